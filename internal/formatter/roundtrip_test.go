package formatter_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/desertthunder/lyricslide/internal/formatter"
	"github.com/desertthunder/lyricslide/internal/importer"
	"github.com/desertthunder/lyricslide/internal/lyrics"
	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/shared"
	th "github.com/desertthunder/lyricslide/internal/testing"
)

var _ = Describe("Export then import", func() {
	var (
		ctx  context.Context
		imp  *importer.Importer
		deck models.Deck
		opts formatter.Options
	)

	BeforeEach(func() {
		ctx = context.Background()
		imp = importer.New(shared.NewLogger(GinkgoWriter), formatter.DefaultWatermark)
		deck = th.StyledDeck()
		opts = formatter.Options{}
	})

	Context("with the HTML format", func() {
		It("reproduces every slide's style and content", func() {
			data, err := formatter.ExportHTML(deck, "Amazing Grace", opts)
			Expect(err).NotTo(HaveOccurred())

			res, err := imp.Import(ctx, "amazing-grace.html", data, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Title).To(Equal("Amazing Grace"))
			Expect(res.Deck.Slides).To(HaveLen(deck.Len()))

			for i, want := range deck.Slides {
				got := res.Deck.Slides[i]
				Expect(got.Background).To(Equal(want.Background), "slide %d background", i)
				Expect(got.FontColor).To(Equal(want.FontColor), "slide %d font color", i)
				Expect(got.FontSize).To(Equal(want.FontSize), "slide %d font size", i)
				Expect(got.Content).To(Equal(want.Content), "slide %d content", i)
				Expect(got.Transition).To(Equal(want.Transition), "slide %d transition", i)
			}
		})

		It("keeps image backgrounds and media layers", func() {
			deck.Slides[0].Background = "data:image/png;base64,iVBORw0KGgo="
			deck.Slides[1].Media = &models.Media{Kind: models.MediaVideo, Data: "data:video/mp4;base64,AAAAIGZ0eXBpc29t"}

			data, err := formatter.ExportHTML(deck, "Media", opts)
			Expect(err).NotTo(HaveOccurred())

			res, err := imp.Import(ctx, "media.html", data, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Deck.Slides[0].Background).To(Equal(deck.Slides[0].Background))
			Expect(res.Deck.Slides[1].Media).To(Equal(deck.Slides[1].Media))
		})

		It("survives a trip through the filesystem", func() {
			dir := GinkgoT().TempDir()
			result, err := formatter.WriteHTMLExport(deck, "Sunday Morning", dir, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Path).To(Equal(filepath.Join(dir, "sunday-morning.html")))

			data, err := os.ReadFile(result.Path)
			Expect(err).NotTo(HaveOccurred())

			res, err := imp.Import(ctx, filepath.Base(result.Path), data, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Deck.Slides).To(HaveLen(3))
		})
	})

	Context("with the PPTX format", func() {
		It("re-imports the same slide texts", func() {
			data, err := formatter.ExportPPTX(ctx, deck, "Amazing Grace", opts, nil)
			Expect(err).NotTo(HaveOccurred())

			res, err := imp.Import(ctx, "amazing-grace.pptx", data, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Title).To(Equal("Amazing Grace"))
			Expect(res.Deck.Slides).To(HaveLen(deck.Len()))

			for i, want := range deck.Slides {
				Expect(res.Deck.Slides[i].Content).To(Equal(want.Content), "slide %d", i)
			}
		})

		It("still imports after stripping data descriptors", func() {
			opts.FixZip = true
			data, err := formatter.ExportPPTX(ctx, deck, "Fixed", opts, nil)
			Expect(err).NotTo(HaveOccurred())

			res, err := imp.Import(ctx, "fixed.pptx", data, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Deck.Slides).To(HaveLen(deck.Len()))
		})

		It("round-trips text derived from lyrics", func() {
			text := "Verse one line A\nVerse one line B\n\nVerse two"
			built := lyrics.BuildDeck(text, models.NewDeck())

			data, err := formatter.ExportPPTX(ctx, built, "", opts, nil)
			Expect(err).NotTo(HaveOccurred())

			res, err := imp.Import(ctx, "verses.pptx", data, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Deck.Slides).To(HaveLen(2))
			Expect(res.Deck.Slides[0].Content).To(Equal("Verse one line A<br/>Verse one line B"))
			Expect(res.Deck.Slides[1].Content).To(Equal("Verse two"))
		})
	})

	Context("with an empty deck", func() {
		It("refuses to export", func() {
			_, err := formatter.ExportHTML(models.NewDeck(), "Nothing", opts)
			Expect(err).To(MatchError(shared.ErrExportFailed))

			_, err = formatter.ExportPPTX(ctx, models.NewDeck(), "Nothing", opts, nil)
			Expect(err).To(MatchError(shared.ErrExportFailed))
		})
	})
})
