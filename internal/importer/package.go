package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/maruel/natural"
)

// maxPartSize bounds a single decompressed slide part.
const maxPartSize = 32 << 20

var (
	slidePart = regexp.MustCompile(`^ppt/slides/slide\d+\.xml$`)
	textRun   = regexp.MustCompile(`<a:t(?:\s[^>]*)?>([^<]*)</a:t>`)
)

// parsePackage extracts text runs from every slide part in natural order.
// Styling is not recovered; slides get the default look.
func (im *Importer) parsePackage(ctx context.Context, filename string, data []byte) ([]models.Slide, string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, "", importFailed(filename, "not a zip package", err)
	}

	parts := make(map[string]*zip.File)
	var names []string
	var core *zip.File
	for _, f := range zr.File {
		switch {
		case slidePart.MatchString(f.Name):
			parts[f.Name] = f
			names = append(names, f.Name)
		case f.Name == "docProps/core.xml":
			core = f
		}
	}
	sort.Sort(natural.StringSlice(names))

	var slides []models.Slide
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, "", importFailed(filename, "cancelled", err)
		}

		body, err := readPart(parts[name])
		if err != nil {
			return nil, "", importFailed(filename, fmt.Sprintf("read %s", name), err)
		}

		content := im.slideText(body)
		if content == "" {
			continue
		}
		slides = append(slides, defaultSlide(content))
	}

	if len(slides) == 0 {
		slides = []models.Slide{defaultSlide("No text content found in " + filename)}
	}

	var title string
	if core != nil {
		if body, err := readPart(core); err == nil {
			title = coreTitle(body)
		}
	}
	return slides, title, nil
}

// slideText joins the non-blank runs of a part with line-break markers.
func (im *Importer) slideText(body []byte) string {
	var lines []string
	for _, m := range textRun.FindAllSubmatch(body, -1) {
		text := html.UnescapeString(string(m[1]))
		if strings.TrimSpace(text) == "" || im.ignored.Contains(strings.TrimSpace(text)) {
			continue
		}
		lines = append(lines, text)
	}
	joined := strings.Join(lines, "\n")
	return strings.ReplaceAll(joined, "\n", "<br/>")
}

func readPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	body, err := io.ReadAll(io.LimitReader(rc, maxPartSize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxPartSize {
		return nil, fmt.Errorf("part %s exceeds %d bytes", f.Name, maxPartSize)
	}
	return body, nil
}

func coreTitle(body []byte) string {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return ""
	}
	for _, el := range doc.FindElements("//*") {
		if el.Tag == "title" {
			return strings.TrimSpace(el.Text())
		}
	}
	return ""
}

func defaultSlide(content string) models.Slide {
	return models.Slide{
		Content:    content,
		Background: models.DefaultBackground,
		FontColor:  models.DefaultFontColor,
		FontSize:   models.DefaultFontSize,
		Transition: models.TransitionFade,
	}
}
