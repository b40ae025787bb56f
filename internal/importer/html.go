package importer

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/shared"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
)

var (
	pageBreak   = regexp.MustCompile(`page-break-after:\s*always`)
	backgroundR = regexp.MustCompile(`background:\s*([^;]+);`)
	colorR      = regexp.MustCompile(`(?:^|[;\s])color:\s*([^;]+);`)
	fontSizeR   = regexp.MustCompile(`font-size:\s*(\d+)px`)
)

// frame tracks one open div while tokenizing.
type frame struct {
	container bool
	text      bool
}

type htmlParser struct {
	z      *html.Tokenizer
	stack  []frame
	slides []models.Slide

	inContainer int // stack depth of the open container, 0 when none
	foundText   bool
	capture     *bytes.Buffer
	captureAt   int

	inTitle bool
	title   strings.Builder
}

// parseHTML walks the token stream for page-break containers. Inner markup
// is captured from the raw source so content round-trips byte for byte.
func parseHTML(data []byte) ([]models.Slide, string, error) {
	r, err := charset.NewReader(bytes.NewReader(data), "text/html")
	if err != nil {
		return nil, "", err
	}

	p := &htmlParser{z: html.NewTokenizer(r)}
	if err := p.run(); err != nil {
		return nil, "", err
	}
	if len(p.slides) == 0 {
		return nil, "", shared.ErrNoSlidesFound
	}
	return p.slides, strings.TrimSpace(p.title.String()), nil
}

func (p *htmlParser) run() error {
	for {
		tt := p.z.Next()
		if tt == html.ErrorToken {
			if err := p.z.Err(); !errors.Is(err, io.EOF) {
				return err
			}
			p.finishCapture()
			p.closeContainer()
			return nil
		}

		// Token unescapes in place, so copy the raw bytes first.
		raw := append([]byte(nil), p.z.Raw()...)
		tok := p.z.Token()

		switch tt {
		case html.StartTagToken:
			p.start(tok, raw)
		case html.SelfClosingTagToken:
			p.record(raw)
			p.media(tok)
		case html.EndTagToken:
			p.end(tok, raw)
		case html.TextToken:
			if p.inTitle {
				p.title.WriteString(tok.Data)
			}
			p.record(raw)
		default:
			p.record(raw)
		}
	}
}

func (p *htmlParser) record(raw []byte) {
	if p.capture != nil {
		p.capture.Write(raw)
	}
}

func (p *htmlParser) start(tok html.Token, raw []byte) {
	switch tok.DataAtom {
	case atom.Title:
		if p.inContainer == 0 {
			p.inTitle = true
		}
		p.record(raw)
		return
	case atom.Img, atom.Video:
		p.record(raw)
		p.media(tok)
		return
	case atom.Div:
	default:
		p.record(raw)
		return
	}

	style := attr(tok, "style")

	// A page-break div nested in an open container is an ordinary div.
	if pageBreak.MatchString(style) && p.inContainer == 0 && p.capture == nil {
		p.stack = append(p.stack, frame{container: true})
		p.inContainer = len(p.stack)
		p.foundText = false

		slide := models.Slide{
			Background: models.DefaultBackground,
			FontColor:  models.DefaultFontColor,
			FontSize:   models.DefaultFontSize,
			Transition: models.TransitionFade,
		}
		if bg := attr(tok, "data-background"); bg != "" {
			slide.Background = bg
		} else if m := backgroundR.FindStringSubmatch(style); m != nil {
			slide.Background = strings.TrimSpace(m[1])
		}
		if tr, err := models.ParseTransition(attr(tok, "data-transition")); err == nil {
			slide.Transition = tr
		}
		p.slides = append(p.slides, slide)
		return
	}

	if p.inContainer > 0 && !p.foundText && p.capture == nil {
		if m := colorR.FindStringSubmatch(style); m != nil {
			p.foundText = true
			slide := &p.slides[len(p.slides)-1]
			slide.FontColor = strings.TrimSpace(m[1])
			if fs := fontSizeR.FindStringSubmatch(style); fs != nil {
				if n, err := strconv.Atoi(fs[1]); err == nil && n > 0 {
					slide.FontSize = n
				}
			}
			p.stack = append(p.stack, frame{text: true})
			p.capture = &bytes.Buffer{}
			p.captureAt = len(p.stack)
			return
		}
	}

	p.record(raw)
	p.stack = append(p.stack, frame{})
}

func (p *htmlParser) end(tok html.Token, raw []byte) {
	if tok.DataAtom == atom.Title {
		p.inTitle = false
		p.record(raw)
		return
	}
	if tok.DataAtom != atom.Div || len(p.stack) == 0 {
		p.record(raw)
		return
	}

	depth := len(p.stack)
	top := p.stack[depth-1]
	p.stack = p.stack[:depth-1]

	switch {
	case top.text && depth == p.captureAt:
		p.finishCapture()
	case top.container && depth == p.inContainer:
		p.closeContainer()
	default:
		p.record(raw)
	}
}

// closeContainer ends the open container. One without a text block yields
// no slide.
func (p *htmlParser) closeContainer() {
	if p.inContainer == 0 {
		return
	}
	if !p.foundText && len(p.slides) > 0 {
		p.slides = p.slides[:len(p.slides)-1]
	}
	p.inContainer = 0
	p.foundText = false
}

func (p *htmlParser) finishCapture() {
	if p.capture == nil || len(p.slides) == 0 {
		return
	}
	p.slides[len(p.slides)-1].Content = strings.TrimSpace(p.capture.String())
	p.capture = nil
	p.captureAt = 0
}

// media records an img or video layered directly in the container, before
// the text block.
func (p *htmlParser) media(tok html.Token) {
	if p.inContainer == 0 || p.capture != nil || p.foundText || len(p.stack) != p.inContainer {
		return
	}
	src := attr(tok, "src")
	if src == "" {
		return
	}
	kind := models.MediaImage
	if tok.DataAtom == atom.Video {
		kind = models.MediaVideo
	}
	p.slides[len(p.slides)-1].Media = &models.Media{Kind: kind, Data: src}
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
