package formatter

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/shared"
	sprig "github.com/go-task/slim-sprig/v3"
)

const slideMarkup = `{{ define "slide" -}}
  <div class="slide" id="slide-{{ .Number }}" data-transition="{{ .Transition }}"
    {{- if .ImageBackground }} data-background="{{ .Background | html }}"{{ end }} style="
    page-break-after: always;
    height: 100vh;
    width: 100vw;
    display: flex;
    align-items: center;
    justify-content: center;
    background: {{ .BackgroundCSS }};
    position: relative;
    padding: 40px;
  ">
{{- with .Media }}
{{- if eq .Kind "video" }}
    <video src="{{ .Data | html }}" autoplay loop muted playsinline style="position: absolute; inset: 0; width: 100%; height: 100%; object-fit: cover; z-index: 0;"></video>
{{- else }}
    <img src="{{ .Data | html }}" alt="" style="position: absolute; inset: 0; width: 100%; height: 100%; object-fit: cover; z-index: 0;" />
{{- end }}
{{- end }}
    <div style="
      color: {{ .FontColor }};
      font-size: {{ .FontSize }}px;
      text-align: center;
      z-index: 1;
      width: 100%;
    ">
      {{ .Content }}
    </div>
    <div style="position: absolute; bottom: 20px; left: 20px; font-size: 14px; opacity: 0.5; color: {{ .FontColor }};">
      {{ .Watermark | html }}
    </div>
  </div>
{{- end }}`

const htmlDocument = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="generator" content="lyricslide">
  <title>{{ .Title | html }}</title>
  <style>
    body { margin: 0; padding: 0; }
    .slide { box-sizing: border-box; overflow: hidden; }
    @media print {
      .slide { page-break-after: always; }
      body { margin: 0; }
    }
  </style>
</head>
<body>
{{- range .Slides }}
{{ template "slide" . }}
{{- end }}
</body>
</html>
`

var documentTemplate = template.Must(template.New("deck").Funcs(sprig.FuncMap()).Parse(slideMarkup + htmlDocument))

type htmlSlide struct {
	models.Slide
	Number          int
	Watermark       string
	ImageBackground bool
	BackgroundCSS   string
}

func newHTMLSlide(s models.Slide, number int, watermark string) htmlSlide {
	return htmlSlide{
		Slide:           s,
		Number:          number,
		Watermark:       watermark,
		ImageBackground: isDataURI(s.Background),
		BackgroundCSS:   backgroundCSS(s.Background),
	}
}

type htmlValues struct {
	Title     string
	Watermark string
	Slides    []htmlSlide
}

// ExportHTML renders deck as a standalone HTML document. Slide content is
// emitted verbatim since it is already markup.
func ExportHTML(deck models.Deck, title string, opts Options) ([]byte, error) {
	if err := checkDeck(deck); err != nil {
		return nil, err
	}

	values := htmlValues{
		Title:     strings.TrimSpace(title),
		Watermark: opts.watermark(),
		Slides:    make([]htmlSlide, len(deck.Slides)),
	}
	if values.Title == "" {
		values.Title = defaultTitle
	}

	for i, s := range deck.Slides {
		values.Slides[i] = newHTMLSlide(s, i+1, values.Watermark)
	}

	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, values); err != nil {
		return nil, fmt.Errorf("%w: render html: %v", shared.ErrExportFailed, err)
	}
	return buf.Bytes(), nil
}

// SlideHTML renders a single slide frame as it appears in the HTML export,
// numbered from 1.
func SlideHTML(s models.Slide, number int, opts Options) (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.ExecuteTemplate(&buf, "slide", newHTMLSlide(s, number, opts.watermark())); err != nil {
		return "", fmt.Errorf("%w: render slide: %v", shared.ErrExportFailed, err)
	}
	return buf.String(), nil
}

// backgroundCSS wraps image data in url(); gradients and colors pass through.
func backgroundCSS(background string) string {
	if isDataURI(background) {
		return fmt.Sprintf("url('%s') center / cover no-repeat", background)
	}
	return background
}

func isDataURI(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "data:")
}
