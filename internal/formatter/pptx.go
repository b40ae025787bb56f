package formatter

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/shared"
	fixzip "github.com/hidez8891/zip"
	"go.uber.org/multierr"
)

const (
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsP   = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsRel = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsCT  = "http://schemas.openxmlformats.org/package/2006/content-types"

	relBase   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/"
	relCore   = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
	ctPrefix  = "application/vnd.openxmlformats-officedocument."
	ctRels    = "application/vnd.openxmlformats-package.relationships+xml"
	ctCore    = "application/vnd.openxmlformats-package.core-properties+xml"
	slideCX   = 12192000
	slideCY   = 6858000
	emuPerPx  = 9525
	marginEMU = 40 * emuPerPx
)

// pptxPackage accumulates parts while a deck is written.
type pptxPackage struct {
	zw        *zip.Writer
	overrides [][2]string
	defaults  map[string]string
	media     int
}

// ExportPPTX builds a native slide-deck package with one slide per deck
// slide. Remote media needs opts.Fetch; media that cannot be loaded is
// skipped with a warning on logger, which may be nil.
func ExportPPTX(ctx context.Context, deck models.Deck, title string, opts Options, logger *log.Logger) ([]byte, error) {
	if err := checkDeck(deck); err != nil {
		return nil, err
	}
	if title == "" {
		title = defaultTitle
	}

	var buf bytes.Buffer
	pkg := &pptxPackage{
		zw: zip.NewWriter(&buf),
		defaults: map[string]string{
			"rels": ctRels,
			"xml":  "application/xml",
			"png":  "image/png",
		},
	}

	err := pkg.write(ctx, deck, title, opts, logger)
	err = multierr.Append(err, pkg.zw.Close())
	if err != nil {
		return nil, fmt.Errorf("%w: pptx: %v", shared.ErrExportFailed, err)
	}

	if !opts.FixZip {
		return buf.Bytes(), nil
	}
	fixed, err := stripDataDescriptors(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: fix zip: %v", shared.ErrExportFailed, err)
	}
	return fixed, nil
}

func (pkg *pptxPackage) write(ctx context.Context, deck models.Deck, title string, opts Options, logger *log.Logger) error {
	if err := pkg.writeRootRels(); err != nil {
		return err
	}
	if err := pkg.writeDocProps(title, deck.Len()); err != nil {
		return err
	}
	if err := pkg.writeTheme(); err != nil {
		return err
	}
	if err := pkg.writeMaster(); err != nil {
		return err
	}
	if err := pkg.writeLayout(); err != nil {
		return err
	}

	for i, s := range deck.Slides {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := pkg.writeSlide(ctx, i+1, s, opts, logger); err != nil {
			return fmt.Errorf("slide %d: %w", i+1, err)
		}
	}

	if err := pkg.writePresentation(deck.Len()); err != nil {
		return err
	}
	return pkg.writeContentTypes()
}

func newXMLDoc() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	return doc
}

func (pkg *pptxPackage) writeXML(name, contentType string, doc *etree.Document) error {
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return err
	}
	if contentType != "" {
		pkg.overrides = append(pkg.overrides, [2]string{"/" + name, contentType})
	}
	return pkg.writeData(name, buf.Bytes())
}

func (pkg *pptxPackage) writeData(name string, data []byte) error {
	w, err := pkg.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

type relationship struct {
	id, kind, target string
	external         bool
}

func (pkg *pptxPackage) writeRels(name string, rels []relationship) error {
	doc := newXMLDoc()
	root := doc.CreateElement("Relationships")
	root.CreateAttr("xmlns", nsRel)
	for _, r := range rels {
		el := root.CreateElement("Relationship")
		el.CreateAttr("Id", r.id)
		el.CreateAttr("Type", r.kind)
		el.CreateAttr("Target", r.target)
		if r.external {
			el.CreateAttr("TargetMode", "External")
		}
	}
	return pkg.writeXML(name, "", doc)
}

func (pkg *pptxPackage) writeRootRels() error {
	return pkg.writeRels("_rels/.rels", []relationship{
		{id: "rId1", kind: relBase + "officeDocument", target: "ppt/presentation.xml"},
		{id: "rId2", kind: relCore, target: "docProps/core.xml"},
		{id: "rId3", kind: relBase + "extended-properties", target: "docProps/app.xml"},
	})
}

func (pkg *pptxPackage) writeDocProps(title string, slides int) error {
	core := newXMLDoc()
	props := core.CreateElement("cp:coreProperties")
	props.CreateAttr("xmlns:cp", "http://schemas.openxmlformats.org/package/2006/metadata/core-properties")
	props.CreateAttr("xmlns:dc", "http://purl.org/dc/elements/1.1/")
	props.CreateAttr("xmlns:dcterms", "http://purl.org/dc/terms/")
	props.CreateAttr("xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance")
	props.CreateElement("dc:title").SetText(title)
	props.CreateElement("dc:creator").SetText("lyricslide")
	created := props.CreateElement("dcterms:created")
	created.CreateAttr("xsi:type", "dcterms:W3CDTF")
	created.SetText(time.Now().UTC().Format(time.RFC3339))
	if err := pkg.writeXML("docProps/core.xml", ctCore, core); err != nil {
		return err
	}

	app := newXMLDoc()
	root := app.CreateElement("Properties")
	root.CreateAttr("xmlns", "http://schemas.openxmlformats.org/officeDocument/2006/extended-properties")
	root.CreateElement("Application").SetText("lyricslide")
	root.CreateElement("Slides").SetText(strconv.Itoa(slides))
	return pkg.writeXML("docProps/app.xml", ctPrefix+"extended-properties+xml", app)
}

func presentationRoot(doc *etree.Document, tag string) *etree.Element {
	root := doc.CreateElement(tag)
	root.CreateAttr("xmlns:a", nsA)
	root.CreateAttr("xmlns:r", nsR)
	root.CreateAttr("xmlns:p", nsP)
	return root
}

func (pkg *pptxPackage) writePresentation(slides int) error {
	doc := newXMLDoc()
	root := presentationRoot(doc, "p:presentation")
	root.CreateAttr("saveSubsetFonts", "1")

	masters := root.CreateElement("p:sldMasterIdLst")
	master := masters.CreateElement("p:sldMasterId")
	master.CreateAttr("id", "2147483648")
	master.CreateAttr("r:id", "rId1")

	rels := []relationship{
		{id: "rId1", kind: relBase + "slideMaster", target: "slideMasters/slideMaster1.xml"},
		{id: "rId2", kind: relBase + "theme", target: "theme/theme1.xml"},
	}

	ids := root.CreateElement("p:sldIdLst")
	for i := 1; i <= slides; i++ {
		rid := "rId" + strconv.Itoa(i+2)
		sld := ids.CreateElement("p:sldId")
		sld.CreateAttr("id", strconv.Itoa(255+i))
		sld.CreateAttr("r:id", rid)
		rels = append(rels, relationship{id: rid, kind: relBase + "slide", target: fmt.Sprintf("slides/slide%d.xml", i)})
	}

	size := root.CreateElement("p:sldSz")
	size.CreateAttr("cx", strconv.Itoa(slideCX))
	size.CreateAttr("cy", strconv.Itoa(slideCY))
	notes := root.CreateElement("p:notesSz")
	notes.CreateAttr("cx", strconv.Itoa(slideCY))
	notes.CreateAttr("cy", "9144000")

	if err := pkg.writeXML("ppt/presentation.xml", ctPrefix+"presentationml.presentation.main+xml", doc); err != nil {
		return err
	}
	return pkg.writeRels("ppt/_rels/presentation.xml.rels", rels)
}

// emptyTree adds the group properties every spTree starts with.
func emptyTree(cSld *etree.Element) *etree.Element {
	tree := cSld.CreateElement("p:spTree")
	nv := tree.CreateElement("p:nvGrpSpPr")
	cNvPr := nv.CreateElement("p:cNvPr")
	cNvPr.CreateAttr("id", "1")
	cNvPr.CreateAttr("name", "")
	nv.CreateElement("p:cNvGrpSpPr")
	nv.CreateElement("p:nvPr")

	xfrm := tree.CreateElement("p:grpSpPr").CreateElement("a:xfrm")
	for _, part := range []struct{ tag, x, y string }{
		{"a:off", "x", "y"}, {"a:ext", "cx", "cy"}, {"a:chOff", "x", "y"}, {"a:chExt", "cx", "cy"},
	} {
		el := xfrm.CreateElement(part.tag)
		el.CreateAttr(part.x, "0")
		el.CreateAttr(part.y, "0")
	}
	return tree
}

func (pkg *pptxPackage) writeMaster() error {
	doc := newXMLDoc()
	root := presentationRoot(doc, "p:sldMaster")

	cSld := root.CreateElement("p:cSld")
	bgRef := cSld.CreateElement("p:bg").CreateElement("p:bgRef")
	bgRef.CreateAttr("idx", "1001")
	bgRef.CreateElement("a:schemeClr").CreateAttr("val", "bg1")
	emptyTree(cSld)

	clrMap := root.CreateElement("p:clrMap")
	for _, kv := range [][2]string{
		{"bg1", "lt1"}, {"tx1", "dk1"}, {"bg2", "lt2"}, {"tx2", "dk2"},
		{"accent1", "accent1"}, {"accent2", "accent2"}, {"accent3", "accent3"},
		{"accent4", "accent4"}, {"accent5", "accent5"}, {"accent6", "accent6"},
		{"hlink", "hlink"}, {"folHlink", "folHlink"},
	} {
		clrMap.CreateAttr(kv[0], kv[1])
	}

	layout := root.CreateElement("p:sldLayoutIdLst").CreateElement("p:sldLayoutId")
	layout.CreateAttr("id", "2147483649")
	layout.CreateAttr("r:id", "rId1")

	styles := root.CreateElement("p:txStyles")
	styles.CreateElement("p:titleStyle")
	styles.CreateElement("p:bodyStyle")
	styles.CreateElement("p:otherStyle")

	if err := pkg.writeXML("ppt/slideMasters/slideMaster1.xml", ctPrefix+"presentationml.slideMaster+xml", doc); err != nil {
		return err
	}
	return pkg.writeRels("ppt/slideMasters/_rels/slideMaster1.xml.rels", []relationship{
		{id: "rId1", kind: relBase + "slideLayout", target: "../slideLayouts/slideLayout1.xml"},
		{id: "rId2", kind: relBase + "theme", target: "../theme/theme1.xml"},
	})
}

func (pkg *pptxPackage) writeLayout() error {
	doc := newXMLDoc()
	root := presentationRoot(doc, "p:sldLayout")
	root.CreateAttr("type", "blank")
	root.CreateAttr("preserve", "1")

	cSld := root.CreateElement("p:cSld")
	cSld.CreateAttr("name", "Blank")
	emptyTree(cSld)
	root.CreateElement("p:clrMapOvr").CreateElement("a:masterClrMapping")

	if err := pkg.writeXML("ppt/slideLayouts/slideLayout1.xml", ctPrefix+"presentationml.slideLayout+xml", doc); err != nil {
		return err
	}
	return pkg.writeRels("ppt/slideLayouts/_rels/slideLayout1.xml.rels", []relationship{
		{id: "rId1", kind: relBase + "slideMaster", target: "../slideMasters/slideMaster1.xml"},
	})
}

func (pkg *pptxPackage) writeTheme() error {
	doc := newXMLDoc()
	theme := doc.CreateElement("a:theme")
	theme.CreateAttr("xmlns:a", nsA)
	theme.CreateAttr("name", "lyricslide")
	elements := theme.CreateElement("a:themeElements")

	scheme := elements.CreateElement("a:clrScheme")
	scheme.CreateAttr("name", "lyricslide")
	for _, c := range [][2]string{
		{"dk1", "000000"}, {"lt1", "FFFFFF"}, {"dk2", "1C1C1C"}, {"lt2", "EEECE1"},
		{"accent1", "663399"}, {"accent2", "B06AB3"}, {"accent3", "2C5364"},
		{"accent4", "F56217"}, {"accent5", "71B280"}, {"accent6", "8B0000"},
		{"hlink", "0563C1"}, {"folHlink", "954F72"},
	} {
		scheme.CreateElement("a:"+c[0]).CreateElement("a:srgbClr").CreateAttr("val", c[1])
	}

	fonts := elements.CreateElement("a:fontScheme")
	fonts.CreateAttr("name", "lyricslide")
	for _, tag := range []string{"a:majorFont", "a:minorFont"} {
		f := fonts.CreateElement(tag)
		f.CreateElement("a:latin").CreateAttr("typeface", "Calibri")
		f.CreateElement("a:ea").CreateAttr("typeface", "")
		f.CreateElement("a:cs").CreateAttr("typeface", "")
	}

	fmtScheme := elements.CreateElement("a:fmtScheme")
	fmtScheme.CreateAttr("name", "lyricslide")
	fills := fmtScheme.CreateElement("a:fillStyleLst")
	lines := fmtScheme.CreateElement("a:lnStyleLst")
	effects := fmtScheme.CreateElement("a:effectStyleLst")
	bgFills := fmtScheme.CreateElement("a:bgFillStyleLst")
	for range 3 {
		fills.CreateElement("a:solidFill").CreateElement("a:schemeClr").CreateAttr("val", "phClr")
		ln := lines.CreateElement("a:ln")
		ln.CreateAttr("w", "9525")
		ln.CreateElement("a:solidFill").CreateElement("a:schemeClr").CreateAttr("val", "phClr")
		effects.CreateElement("a:effectStyle").CreateElement("a:effectLst")
		bgFills.CreateElement("a:solidFill").CreateElement("a:schemeClr").CreateAttr("val", "phClr")
	}

	return pkg.writeXML("ppt/theme/theme1.xml", ctPrefix+"theme+xml", doc)
}

func (pkg *pptxPackage) writeContentTypes() error {
	doc := newXMLDoc()
	root := doc.CreateElement("Types")
	root.CreateAttr("xmlns", nsCT)

	for _, ext := range sortedKeys(pkg.defaults) {
		d := root.CreateElement("Default")
		d.CreateAttr("Extension", ext)
		d.CreateAttr("ContentType", pkg.defaults[ext])
	}
	for _, o := range pkg.overrides {
		el := root.CreateElement("Override")
		el.CreateAttr("PartName", o[0])
		el.CreateAttr("ContentType", o[1])
	}
	return pkg.writeXML("[Content_Types].xml", "", doc)
}

// addMedia stores blob under ppt/media and returns its package path relative
// to a slide part.
func (pkg *pptxPackage) addMedia(blob *mediaBlob) (string, error) {
	pkg.media++
	name := fmt.Sprintf("media%d.%s", pkg.media, blob.Ext)
	if _, ok := pkg.defaults[blob.Ext]; !ok {
		pkg.defaults[blob.Ext] = blob.MIME
	}
	if err := pkg.writeData(path.Join("ppt/media", name), blob.Data); err != nil {
		return "", err
	}
	return "../media/" + name, nil
}

// stripDataDescriptors rewrites the archive with the data descriptor flag
// cleared on every entry.
func stripDataDescriptors(data []byte) ([]byte, error) {
	r, err := fixzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("unable to read archive: %w", err)
	}

	var out bytes.Buffer
	w := fixzip.NewWriter(&out)
	for _, file := range r.File {
		file.Flags &= ^fixzip.FlagDataDescriptor
		if err := w.CopyFile(file); err != nil {
			return nil, multierr.Append(fmt.Errorf("unable to copy %s: %w", file.Name, err), w.Close())
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
