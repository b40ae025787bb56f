package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/shared"
)

const browserExport = `
<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Amazing Grace</title>
</head>
<body>
  <div style="
    page-break-after: always;
    height: 100vh;
    background: linear-gradient(45deg, #1C1C1C, #663399, #B06AB3);
    position: relative;
  ">
    <div style="
      color: #FFFFFF;
      font-size: 36px;
      text-align: center;
    ">
      Amazing grace<br/>How sweet the sound
    </div>
    <div style="position: absolute; bottom: 20px; font-size: 14px; color: #FFFFFF;">
      IPC Gilgal
    </div>
  </div>
  <div style="page-break-after: always; background: #121212;">
    <img src="data:image/png;base64,AAAA" style="position: absolute; inset: 0;" />
    <div style="background-color: #000000; color: #FF0000; font-size: 28px;">Don't <b>stop</b> &amp; go</div>
  </div>
</body>
</html>`

func newImporter() *Importer {
	return New(nil, "IPC Gilgal")
}

func TestImportHTML(t *testing.T) {
	res, err := newImporter().Import(context.Background(), "grace.html", []byte(browserExport), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Title != "Amazing Grace" {
		t.Errorf("title = %q", res.Title)
	}
	if res.Deck.Len() != 2 {
		t.Fatalf("expected 2 slides, got %d", res.Deck.Len())
	}

	first := res.Deck.Slides[0]
	if first.Background != "linear-gradient(45deg, #1C1C1C, #663399, #B06AB3)" {
		t.Errorf("background = %q", first.Background)
	}
	if first.FontColor != "#FFFFFF" || first.FontSize != 36 {
		t.Errorf("font = %s %d", first.FontColor, first.FontSize)
	}
	if first.Content != "Amazing grace<br/>How sweet the sound" {
		t.Errorf("content = %q", first.Content)
	}

	second := res.Deck.Slides[1]
	if second.FontColor != "#FF0000" {
		t.Errorf("color should ignore background-color, got %q", second.FontColor)
	}
	if second.Content != "Don't <b>stop</b> &amp; go" {
		t.Errorf("inner markup should be kept verbatim, got %q", second.Content)
	}
	if second.Media == nil || second.Media.Kind != models.MediaImage {
		t.Errorf("expected image media, got %+v", second.Media)
	}
	if second.Transition != models.TransitionFade {
		t.Errorf("transition = %s", second.Transition)
	}
}

func TestImportHTMLDefaults(t *testing.T) {
	doc := `<html><body><div style="page-break-after: always;"><div style="color: #ABCDEF;">Only text</div></div></body></html>`
	res, err := newImporter().Import(context.Background(), "Sunday Set.htm", []byte(doc), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := res.Deck.Slides[0]
	if s.Background != models.DefaultBackground || s.FontSize != models.DefaultFontSize {
		t.Errorf("expected defaults, got %+v", s)
	}
	if res.Title != "Sunday Set" {
		t.Errorf("title should fall back to filename, got %q", res.Title)
	}
}

func TestImportHTMLSkipsContainersWithoutText(t *testing.T) {
	ctx := context.Background()

	t.Run("mixed", func(t *testing.T) {
		doc := `<html><body>
<div style="page-break-after: always; background: red;"><div style="color: #FFFFFF;">Hello</div></div>
<div style="page-break-after: always; background: blue;"><img src="x.png" /></div>
</body></html>`
		res, err := newImporter().Import(ctx, "mixed.html", []byte(doc), "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Deck.Len() != 1 {
			t.Fatalf("expected 1 slide, got %d", res.Deck.Len())
		}
		if s := res.Deck.Slides[0]; s.Content != "Hello" || s.Background != "red" {
			t.Errorf("unexpected slide %+v", s)
		}
	})

	t.Run("no container has text", func(t *testing.T) {
		doc := `<html><body>
<div style="page-break-after: always; background: blue;"><img src="x.png" /></div>
<div style="page-break-after: always;"><p>plain</p></div>
</body></html>`
		_, err := newImporter().Import(ctx, "blank.html", []byte(doc), "")
		if !errors.Is(err, shared.ErrNoSlidesFound) {
			t.Errorf("expected ErrNoSlidesFound, got %v", err)
		}
	})

	t.Run("nested page break keeps the outer text", func(t *testing.T) {
		doc := `<html><body>
<div style="page-break-after: always; background: green;">
  <div style="page-break-after: always;"><div style="color: #000000;">Inner</div></div>
</div>
</body></html>`
		res, err := newImporter().Import(ctx, "nested.html", []byte(doc), "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Deck.Len() != 1 {
			t.Fatalf("expected 1 slide, got %d", res.Deck.Len())
		}
		if s := res.Deck.Slides[0]; s.Content != "Inner" || s.Background != "green" {
			t.Errorf("unexpected slide %+v", s)
		}
	})
}

func TestImportHTMLTitleOverride(t *testing.T) {
	res, err := newImporter().Import(context.Background(), "grace.html", []byte(browserExport), "  Service Opener ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Title != "Service Opener" {
		t.Errorf("title = %q", res.Title)
	}
}

func TestImportErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := newImporter().Import(ctx, "notes.docx", []byte("anything"), "")
		if !errors.Is(err, shared.ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat, got %v", err)
		}
	})

	t.Run("no slides", func(t *testing.T) {
		_, err := newImporter().Import(ctx, "empty.html", []byte("<html><body><p>hello</p></body></html>"), "")
		if !errors.Is(err, shared.ErrNoSlidesFound) {
			t.Errorf("expected ErrNoSlidesFound, got %v", err)
		}
	})

	t.Run("corrupt package", func(t *testing.T) {
		_, err := newImporter().Import(ctx, "broken.pptx", []byte("not a zip"), "")
		if !errors.Is(err, shared.ErrImportFailed) {
			t.Fatalf("expected ErrImportFailed, got %v", err)
		}
		var ie *ImportError
		if !errors.As(err, &ie) || ie.Filename != "broken.pptx" || ie.Reason == "" {
			t.Errorf("expected ImportError with reason, got %#v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := newImporter().Import(cancelled, "grace.html", []byte(browserExport), "")
		if !errors.Is(err, shared.ErrImportFailed) || !errors.Is(err, context.Canceled) {
			t.Errorf("expected cancelled import failure, got %v", err)
		}
	})
}

func buildPackage(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

func slideXML(runs ...string) string {
	var sb strings.Builder
	sb.WriteString(`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree>`)
	for _, r := range runs {
		sb.WriteString(`<a:p><a:r><a:t>` + r + `</a:t></a:r></a:p>`)
	}
	sb.WriteString(`</p:spTree></p:cSld></p:sld>`)
	return sb.String()
}

func TestImportPackage(t *testing.T) {
	data := buildPackage(t, map[string]string{
		"ppt/slides/slide10.xml":            slideXML("Tenth"),
		"ppt/slides/slide2.xml":             slideXML("Second A", "Second B", "IPC Gilgal"),
		"ppt/slides/slide1.xml":             slideXML("First", "   "),
		"ppt/slides/slide3.xml":             slideXML(" "),
		"ppt/slides/_rels/slide1.xml.rels":  `<Relationships/>`,
		"ppt/slideLayouts/slideLayout1.xml": slideXML("Layout text"),
		"docProps/core.xml":                 `<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>Hymns &amp; Songs</dc:title></cp:coreProperties>`,
	})

	res, err := newImporter().Import(context.Background(), "set.pptx", data, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"First", "Second A<br/>Second B", "Tenth"}
	if res.Deck.Len() != len(want) {
		t.Fatalf("expected %d slides, got %d", len(want), res.Deck.Len())
	}
	for i, s := range res.Deck.Slides {
		if s.Content != want[i] {
			t.Errorf("slide %d = %q, want %q", i, s.Content, want[i])
		}
		if s.Background != models.DefaultBackground || s.FontColor != models.DefaultFontColor || s.FontSize != 30 || s.Transition != models.TransitionFade {
			t.Errorf("slide %d should use defaults: %+v", i, s)
		}
	}
	if res.Title != "Hymns & Songs" {
		t.Errorf("title = %q", res.Title)
	}
}

func TestImportPackageWithoutText(t *testing.T) {
	data := buildPackage(t, map[string]string{
		"ppt/slides/slide1.xml": slideXML(),
		"ppt/slides/slide2.xml": slideXML("  "),
	})

	res, err := newImporter().Import(context.Background(), "blank.pptx", data, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Deck.Len() != 1 {
		t.Fatalf("expected exactly one fallback slide, got %d", res.Deck.Len())
	}
	if !strings.Contains(res.Deck.Slides[0].Content, "blank.pptx") {
		t.Errorf("fallback should name the file: %q", res.Deck.Slides[0].Content)
	}
	if res.Title != "blank" {
		t.Errorf("title = %q", res.Title)
	}
}

func TestGuard(t *testing.T) {
	var g Guard

	release, err := g.Acquire()
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	if !g.Busy() {
		t.Error("guard should be busy")
	}

	if _, err := g.Acquire(); !errors.Is(err, shared.ErrImportInProgress) {
		t.Errorf("expected ErrImportInProgress, got %v", err)
	}

	release()
	release()
	if g.Busy() {
		t.Error("guard should be free after release")
	}

	again, err := g.Acquire()
	if err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
	again()
}

func TestSupportedExt(t *testing.T) {
	for _, ext := range []string{".html", ".htm", ".ppt", ".pptx"} {
		if !SupportedExt.Contains(ext) {
			t.Errorf("%s should be supported", ext)
		}
	}
	if SupportedExt.Contains(".pdf") {
		t.Error(".pdf should not be supported")
	}
}
