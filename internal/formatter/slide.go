package formatter

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricslide/internal/models"
)

var (
	cssHex   = regexp.MustCompile(`#(?:[0-9a-fA-F]{6}|[0-9a-fA-F]{3})\b`)
	cssRGB   = regexp.MustCompile(`rgba?\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})`)
	cssAngle = regexp.MustCompile(`(-?\d+(?:\.\d+)?)deg`)
	namedCSS = map[string]string{
		"black": "000000", "white": "FFFFFF", "red": "FF0000", "green": "008000",
		"blue": "0000FF", "yellow": "FFFF00", "purple": "800080", "orange": "FFA500",
		"gray": "808080", "grey": "808080", "navy": "000080", "teal": "008080",
		"maroon": "800000", "silver": "C0C0C0", "gold": "FFD700", "pink": "FFC0CB",
	}
)

const fallbackFill = "1C1C1C"

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}

// parseColor converts a CSS color to RRGGBB. It accepts #rgb, #rrggbb,
// rgb()/rgba() and a handful of names.
func parseColor(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if m := cssHex.FindString(s); m != "" && m == s {
		return expandHex(m), true
	}
	if m := cssRGB.FindStringSubmatch(s); m != nil {
		var out strings.Builder
		for _, part := range m[1:] {
			n, _ := strconv.Atoi(part)
			fmt.Fprintf(&out, "%02X", min(n, 255))
		}
		return out.String(), true
	}
	if hex, ok := namedCSS[strings.ToLower(s)]; ok {
		return hex, true
	}
	return "", false
}

func expandHex(h string) string {
	h = strings.TrimPrefix(h, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	return strings.ToUpper(h)
}

// gradientStops pulls the color stops and angle out of a CSS linear or
// radial gradient. ok is false when the value is not a gradient.
func gradientStops(s string) (stops []string, cssDeg float64, ok bool) {
	if !strings.Contains(strings.ToLower(s), "gradient(") {
		return nil, 0, false
	}
	for _, m := range cssHex.FindAllString(s, -1) {
		stops = append(stops, expandHex(m))
	}
	for _, m := range cssRGB.FindAllString(s, -1) {
		if hex, ok := parseColor(m + ")"); ok {
			stops = append(stops, hex)
		}
	}
	if len(stops) == 0 {
		return nil, 0, false
	}
	if len(stops) == 1 {
		stops = append(stops, stops[0])
	}

	cssDeg = 180
	if m := cssAngle.FindStringSubmatch(s); m != nil {
		cssDeg, _ = strconv.ParseFloat(m[1], 64)
	}
	return stops, cssDeg, true
}

func solidFill(parent *etree.Element, hex string, alpha int) {
	clr := parent.CreateElement("a:solidFill").CreateElement("a:srgbClr")
	clr.CreateAttr("val", hex)
	if alpha > 0 && alpha < 100000 {
		clr.CreateElement("a:alpha").CreateAttr("val", strconv.Itoa(alpha))
	}
}

// backgroundFill writes the fill for a CSS background: gradients become
// a:gradFill, colors a:solidFill and image data a:blipFill.
func (pkg *pptxPackage) backgroundFill(ctx context.Context, bgPr *etree.Element, background string, rels *[]relationship, opts Options, logger *log.Logger) {
	if isDataURI(background) {
		if err := pkg.imageBackground(ctx, bgPr, background, rels, opts); err != nil {
			if logger != nil {
				logger.Warn("image background skipped", "error", err)
			}
			solidFill(bgPr, fallbackFill, 0)
		}
		return
	}

	if stops, deg, ok := gradientStops(background); ok {
		grad := bgPr.CreateElement("a:gradFill")
		grad.CreateAttr("rotWithShape", "1")
		list := grad.CreateElement("a:gsLst")
		for i, hex := range stops {
			gs := list.CreateElement("a:gs")
			gs.CreateAttr("pos", strconv.Itoa(i*100000/(len(stops)-1)))
			gs.CreateElement("a:srgbClr").CreateAttr("val", hex)
		}
		lin := grad.CreateElement("a:lin")
		lin.CreateAttr("ang", strconv.Itoa(drawingAngle(deg)))
		lin.CreateAttr("scaled", "0")
		return
	}

	hex, ok := parseColor(background)
	if !ok {
		hex = fallbackFill
	}
	solidFill(bgPr, hex, 0)
}

func (pkg *pptxPackage) imageBackground(ctx context.Context, bgPr *etree.Element, background string, rels *[]relationship, opts Options) error {
	blob, err := loadMedia(ctx, background, opts.Fetch)
	if err != nil {
		return err
	}
	if blob.isVideo() {
		return fmt.Errorf("video cannot be used as a background")
	}

	target, err := pkg.addMedia(blob)
	if err != nil {
		return err
	}
	rid := nextRID(*rels)
	*rels = append(*rels, relationship{id: rid, kind: relBase + "image", target: target})

	blip := bgPr.CreateElement("a:blipFill")
	blip.CreateAttr("dpi", "0")
	blip.CreateAttr("rotWithShape", "1")
	blip.CreateElement("a:blip").CreateAttr("r:embed", rid)
	blip.CreateElement("a:srcRect")
	blip.CreateElement("a:stretch").CreateElement("a:fillRect")
	return nil
}

// drawingAngle maps a CSS gradient angle (0deg points up, clockwise) to a
// DrawingML angle (0 points right, clockwise) in 60000ths of a degree.
func drawingAngle(cssDeg float64) int {
	deg := int(cssDeg-90) % 360
	if deg < 0 {
		deg += 360
	}
	return deg * 60000
}

func nextRID(rels []relationship) string {
	return "rId" + strconv.Itoa(len(rels)+1)
}

func (pkg *pptxPackage) writeSlide(ctx context.Context, n int, s models.Slide, opts Options, logger *log.Logger) error {
	rels := []relationship{{id: "rId1", kind: relBase + "slideLayout", target: "../slideLayouts/slideLayout1.xml"}}

	doc := newXMLDoc()
	root := presentationRoot(doc, "p:sld")
	cSld := root.CreateElement("p:cSld")

	bgPr := cSld.CreateElement("p:bg").CreateElement("p:bgPr")
	pkg.backgroundFill(ctx, bgPr, s.Background, &rels, opts, logger)
	bgPr.CreateElement("a:effectLst")

	tree := emptyTree(cSld)
	shapeID := 2

	if s.Media != nil {
		if err := pkg.mediaPicture(ctx, tree, shapeID, s.Media, &rels, opts); err != nil {
			if logger != nil {
				logger.Warn("slide media skipped", "slide", n, "error", err)
			}
		} else {
			shapeID++
		}
	}

	fontColor, ok := parseColor(s.FontColor)
	if !ok {
		fontColor = "FFFFFF"
	}

	lyricsBox := textBox(tree, shapeID, "Lyrics", marginEMU, marginEMU, slideCX-2*marginEMU, slideCY-2*marginEMU)
	body := lyricsBox.CreateElement("p:txBody")
	bodyPr := body.CreateElement("a:bodyPr")
	bodyPr.CreateAttr("wrap", "square")
	bodyPr.CreateAttr("anchor", "ctr")
	bodyPr.CreateElement("a:normAutofit")
	body.CreateElement("a:lstStyle")
	for _, line := range slideLines(s) {
		paragraph(body, line, pointSize(s.FontSize), fontColor, 0)
	}
	shapeID++

	watermarkH := 30 * emuPerPx
	mark := textBox(tree, shapeID, "Watermark", 20*emuPerPx, slideCY-20*emuPerPx-watermarkH, slideCX/3, watermarkH)
	markBody := mark.CreateElement("p:txBody")
	markPr := markBody.CreateElement("a:bodyPr")
	markPr.CreateAttr("wrap", "none")
	markPr.CreateAttr("anchor", "b")
	markBody.CreateElement("a:lstStyle")
	paragraph(markBody, opts.watermark(), pointSize(14), fontColor, 50000).SelectElement("a:pPr").CreateAttr("algn", "l")

	root.CreateElement("p:clrMapOvr").CreateElement("a:masterClrMapping")
	transition(root, s.Transition)

	if s.Notes != "" {
		// Presenter notes travel as the lyrics box description.
		lyricsBox.SelectElement("p:nvSpPr").SelectElement("p:cNvPr").CreateAttr("descr", s.Notes)
	}

	name := fmt.Sprintf("ppt/slides/slide%d.xml", n)
	if err := pkg.writeXML(name, "application/vnd.openxmlformats-officedocument.presentationml.slide+xml", doc); err != nil {
		return err
	}
	return pkg.writeRels(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), rels)
}

// pointSize converts CSS pixels to hundredths of a point.
func pointSize(px int) int {
	if px <= 0 {
		px = models.DefaultFontSize
	}
	return min(max(px*75, 100), 400000)
}

func textBox(tree *etree.Element, id int, name string, x, y, cx, cy int) *etree.Element {
	sp := tree.CreateElement("p:sp")
	nv := sp.CreateElement("p:nvSpPr")
	cNvPr := nv.CreateElement("p:cNvPr")
	cNvPr.CreateAttr("id", strconv.Itoa(id))
	cNvPr.CreateAttr("name", name)
	nv.CreateElement("p:cNvSpPr").CreateAttr("txBox", "1")
	nv.CreateElement("p:nvPr")

	spPr := sp.CreateElement("p:spPr")
	placement(spPr, x, y, cx, cy)
	spPr.CreateElement("a:noFill")
	return sp
}

func placement(spPr *etree.Element, x, y, cx, cy int) {
	xfrm := spPr.CreateElement("a:xfrm")
	off := xfrm.CreateElement("a:off")
	off.CreateAttr("x", strconv.Itoa(x))
	off.CreateAttr("y", strconv.Itoa(y))
	ext := xfrm.CreateElement("a:ext")
	ext.CreateAttr("cx", strconv.Itoa(cx))
	ext.CreateAttr("cy", strconv.Itoa(cy))
	geom := spPr.CreateElement("a:prstGeom")
	geom.CreateAttr("prst", "rect")
	geom.CreateElement("a:avLst")
}

func paragraph(body *etree.Element, text string, size int, color string, alpha int) *etree.Element {
	p := body.CreateElement("a:p")
	p.CreateElement("a:pPr").CreateAttr("algn", "ctr")

	if strings.TrimSpace(text) == "" {
		end := p.CreateElement("a:endParaRPr")
		end.CreateAttr("lang", "en-US")
		end.CreateAttr("sz", strconv.Itoa(size))
		return p
	}

	r := p.CreateElement("a:r")
	rPr := r.CreateElement("a:rPr")
	rPr.CreateAttr("lang", "en-US")
	rPr.CreateAttr("sz", strconv.Itoa(size))
	rPr.CreateAttr("dirty", "0")
	solidFill(rPr, color, alpha)
	r.CreateElement("a:t").SetText(text)
	return p
}

func transition(root *etree.Element, t models.Transition) {
	tr := root.CreateElement("p:transition")
	switch t {
	case models.TransitionSlide:
		tr.CreateElement("p:push").CreateAttr("dir", "l")
	case models.TransitionZoom:
		tr.CreateElement("p:zoom")
	default:
		tr.CreateElement("p:fade")
	}
}

// mediaPicture embeds an image, or a video with a transparent poster frame,
// stretched over the whole slide behind the text.
func (pkg *pptxPackage) mediaPicture(ctx context.Context, tree *etree.Element, id int, media *models.Media, rels *[]relationship, opts Options) error {
	blob, err := loadMedia(ctx, media.Data, opts.Fetch)
	if err != nil {
		return err
	}

	video := media.Kind == models.MediaVideo || blob.isVideo()
	var videoRID string
	if video {
		target, err := pkg.addMedia(blob)
		if err != nil {
			return err
		}
		videoRID = nextRID(*rels)
		*rels = append(*rels, relationship{id: videoRID, kind: relBase + "video", target: target})
		blob = &mediaBlob{Data: posterFrame(), Ext: "png", MIME: "image/png"}
	}

	target, err := pkg.addMedia(blob)
	if err != nil {
		return err
	}
	imageRID := nextRID(*rels)
	*rels = append(*rels, relationship{id: imageRID, kind: relBase + "image", target: target})

	pic := tree.CreateElement("p:pic")
	nv := pic.CreateElement("p:nvPicPr")
	cNvPr := nv.CreateElement("p:cNvPr")
	cNvPr.CreateAttr("id", strconv.Itoa(id))
	cNvPr.CreateAttr("name", fmt.Sprintf("Media %d", id))
	nv.CreateElement("p:cNvPicPr").CreateElement("a:picLocks").CreateAttr("noChangeAspect", "1")
	nvPr := nv.CreateElement("p:nvPr")
	if video {
		nvPr.CreateElement("a:videoFile").CreateAttr("r:link", videoRID)
	}

	fill := pic.CreateElement("p:blipFill")
	fill.CreateElement("a:blip").CreateAttr("r:embed", imageRID)
	fill.CreateElement("a:stretch").CreateElement("a:fillRect")

	placement(pic.CreateElement("p:spPr"), 0, 0, slideCX, slideCY)
	return nil
}
