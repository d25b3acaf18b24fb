// Package pptxtest builds small in-memory .pptx decks for tests.
package pptxtest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

const (
	nsP = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
		`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`
	relBase = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	pkgRels = "http://schemas.openxmlformats.org/package/2006/relationships"
)

// Geom is a bounding box in EMU.
type Geom struct {
	X, Y, W, H int64
}

// TitleGeom is where layouts place their title placeholder.
var TitleGeom = Geom{X: 457200, Y: 274638, W: 8229600, H: 1143000}

type Run struct {
	Text   string
	Font   string
	SizePt float64
	Bold   *bool
	Color  string // RRGGBB
	Scheme string // scheme color name, used when Color is empty
	LinkID string // relationship id of a hyperlink
}

// Link is an extra slide relationship, typically an external hyperlink.
type Link struct {
	ID       string
	Target   string
	External bool
}

type Slide struct {
	Layout     string // layout name; one layout part is created per distinct name
	Background string // RRGGBB solid background
	Shapes     []string
	Notes      string
	Links      []Link
}

type Deck struct {
	Slides  []Slide
	Masters int               // defaults to 1; extra masters are empty
	Theme   map[string]string // scheme overrides, e.g. "accent1": "FF0000"
	Width   int64
	Height  int64
}

func esc(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// Text renders a run list as a single a:p element.
func Text(runs ...Run) string {
	var b strings.Builder
	b.WriteString("<a:p>")
	for _, r := range runs {
		b.WriteString("<a:r><a:rPr")
		if r.SizePt > 0 {
			fmt.Fprintf(&b, ` sz="%d"`, int(r.SizePt*100))
		}
		if r.Bold != nil {
			if *r.Bold {
				b.WriteString(` b="1"`)
			} else {
				b.WriteString(` b="0"`)
			}
		}
		b.WriteString(">")
		switch {
		case r.Color != "":
			fmt.Fprintf(&b, `<a:solidFill><a:srgbClr val="%s"/></a:solidFill>`, r.Color)
		case r.Scheme != "":
			fmt.Fprintf(&b, `<a:solidFill><a:schemeClr val="%s"/></a:solidFill>`, r.Scheme)
		}
		if r.Font != "" {
			fmt.Fprintf(&b, `<a:latin typeface="%s"/>`, esc(r.Font))
		}
		if r.LinkID != "" {
			fmt.Fprintf(&b, `<a:hlinkClick r:id="%s"/>`, r.LinkID)
		}
		fmt.Fprintf(&b, "</a:rPr><a:t>%s</a:t></a:r>", esc(r.Text))
	}
	b.WriteString("</a:p>")
	return b.String()
}

func xfrm(tag string, g *Geom) string {
	if g == nil {
		return ""
	}
	return fmt.Sprintf(`<%s><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></%s>`, tag, g.X, g.Y, g.W, g.H, tag)
}

func nvPr(placeholder string) string {
	if placeholder == "" {
		return "<p:nvPr/>"
	}
	return fmt.Sprintf(`<p:nvPr><p:ph type="%s"/></p:nvPr>`, placeholder)
}

// Shape describes a p:sp element.
type Shape struct {
	ID          int
	Name        string
	Placeholder string // "title", "body", "ftr", ...
	Geom        *Geom  // nil inherits from the layout
	Fill        string // RRGGBB solid fill
	Alpha       int    // fill alpha in thousandths of a percent, 0 = opaque
	PictureFill bool
	NoFill      bool
	Paragraphs  []string // from Text
}

func (s Shape) XML() string {
	var fill string
	switch {
	case s.NoFill:
		fill = "<a:noFill/>"
	case s.PictureFill:
		fill = `<a:blipFill><a:blip r:embed="rIdImg"/><a:stretch><a:fillRect/></a:stretch></a:blipFill>`
	case s.Fill != "" && s.Alpha > 0:
		fill = fmt.Sprintf(`<a:solidFill><a:srgbClr val="%s"><a:alpha val="%d"/></a:srgbClr></a:solidFill>`, s.Fill, s.Alpha)
	case s.Fill != "":
		fill = fmt.Sprintf(`<a:solidFill><a:srgbClr val="%s"/></a:solidFill>`, s.Fill)
	}
	var body string
	if len(s.Paragraphs) > 0 {
		body = "<p:txBody><a:bodyPr/><a:lstStyle/>" + strings.Join(s.Paragraphs, "") + "</p:txBody>"
	}
	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr/>%s</p:nvSpPr><p:spPr>%s%s</p:spPr>%s</p:sp>`,
		s.ID, esc(s.Name), nvPr(s.Placeholder), xfrm("a:xfrm", s.Geom), fill, body)
}

// Picture renders a p:pic element.
func Picture(id int, name, descr string, g Geom, decorative bool) string {
	ext := ""
	if decorative {
		ext = `<a:extLst><a:ext uri="{C183D7F6-B498-43B3-948B-1728B52AA6E4}">` +
			`<adec:decorative xmlns:adec="http://schemas.microsoft.com/office/drawing/2017/decorative" val="1"/></a:ext></a:extLst>`
	}
	return fmt.Sprintf(`<p:pic><p:nvPicPr><p:cNvPr id="%d" name="%s" descr="%s">%s</p:cNvPr><p:cNvPicPr/><p:nvPr/></p:nvPicPr>`+
		`<p:blipFill><a:blip r:embed="rIdImg"/></p:blipFill><p:spPr>%s<a:prstGeom prst="rect"/></p:spPr></p:pic>`,
		id, esc(name), esc(descr), ext, xfrm("a:xfrm", &g))
}

// Table renders a graphic frame holding a table.
func Table(id int, name string, g Geom) string {
	return fmt.Sprintf(`<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="%d" name="%s"/><p:cNvGraphicFramePr/><p:nvPr/></p:nvGraphicFramePr>`+
		`%s<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table"><a:tbl/></a:graphicData></a:graphic></p:graphicFrame>`,
		id, esc(name), xfrm("p:xfrm", &g))
}

// Group renders a p:grpSp whose child coordinate space equals its extent.
func Group(id int, name string, g Geom, members ...string) string {
	return fmt.Sprintf(`<p:grpSp><p:nvGrpSpPr><p:cNvPr id="%d" name="%s"/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>`+
		`<p:grpSpPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/><a:chOff x="0" y="0"/><a:chExt cx="%d" cy="%d"/></a:xfrm></p:grpSpPr>%s</p:grpSp>`,
		id, esc(name), g.X, g.Y, g.W, g.H, g.W, g.H, strings.Join(members, ""))
}

func spTree(shapes []string) string {
	return `<p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>` +
		strings.Join(shapes, "") + `</p:spTree>`
}

func rels(entries ...string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><Relationships xmlns="` + pkgRels + `">` +
		strings.Join(entries, "") + `</Relationships>`
}

func rel(id, typ, target string, external bool) string {
	mode := ""
	if external {
		mode = ` TargetMode="External"`
	}
	return fmt.Sprintf(`<Relationship Id="%s" Type="%s/%s" Target="%s"%s/>`, id, relBase, typ, esc(target), mode)
}

func theme(overrides map[string]string) string {
	colors := map[string]string{
		"dk2": "44546A", "lt2": "E7E6E6", "accent1": "4472C4", "accent2": "ED7D31",
		"accent3": "A5A5A5", "accent4": "FFC000", "accent5": "5B9BD5", "accent6": "70AD47",
		"hlink": "0563C1", "folHlink": "954F72",
	}
	for k, v := range overrides {
		colors[k] = v
	}
	names := make([]string, 0, len(colors))
	for k := range colors {
		names = append(names, k)
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString(`<a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1><a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1>`)
	for _, n := range names {
		fmt.Fprintf(&b, `<a:%s><a:srgbClr val="%s"/></a:%s>`, n, colors[n], n)
	}
	return `<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="Test"><a:themeElements>` +
		`<a:clrScheme name="Test">` + b.String() + `</a:clrScheme>` +
		`<a:fontScheme name="Test"><a:majorFont><a:latin typeface="Rockwell"/></a:majorFont><a:minorFont><a:latin typeface="Calibri"/></a:minorFont></a:fontScheme>` +
		`</a:themeElements></a:theme>`
}

// Bytes renders the deck as a zip archive.
func (d Deck) Bytes() ([]byte, error) {
	parts := map[string]string{}
	width, height := d.Width, d.Height
	if width == 0 || height == 0 {
		width, height = 9144000, 6858000
	}
	masters := d.Masters
	if masters < 1 {
		masters = 1
	}

	parts["[Content_Types].xml"] = `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`
	parts["_rels/.rels"] = rels(rel("rId1", "officeDocument", "ppt/presentation.xml", false))

	var layoutNames []string
	layoutIndex := map[string]int{}
	for _, s := range d.Slides {
		name := s.Layout
		if name == "" {
			name = "Title and Content"
		}
		if _, ok := layoutIndex[name]; !ok {
			layoutNames = append(layoutNames, name)
			layoutIndex[name] = len(layoutNames)
		}
	}
	if len(layoutNames) == 0 {
		layoutNames = []string{"Title and Content"}
	}

	var masterRels []string
	for i := range layoutNames {
		masterRels = append(masterRels, rel(fmt.Sprintf("rIdL%d", i+1), "slideLayout", fmt.Sprintf("../slideLayouts/slideLayout%d.xml", i+1), false))
	}
	masterRels = append(masterRels, rel("rIdT", "theme", "../theme/theme1.xml", false))
	for m := 1; m <= masters; m++ {
		parts[fmt.Sprintf("ppt/slideMasters/slideMaster%d.xml", m)] = `<p:sldMaster ` + nsP + `><p:cSld>` +
			`<p:bg><p:bgRef idx="1001"><a:schemeClr val="bg1"/></p:bgRef></p:bg>` +
			spTree([]string{Shape{ID: 2, Name: "Title Placeholder 1", Placeholder: "title", Geom: &TitleGeom}.XML()}) +
			`</p:cSld><p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/></p:sldMaster>`
		if m == 1 {
			parts["ppt/slideMasters/_rels/slideMaster1.xml.rels"] = rels(masterRels...)
		} else {
			parts[fmt.Sprintf("ppt/slideMasters/_rels/slideMaster%d.xml.rels", m)] = rels(rel("rIdT", "theme", "../theme/theme1.xml", false))
		}
	}
	parts["ppt/theme/theme1.xml"] = theme(d.Theme)

	for i, name := range layoutNames {
		parts[fmt.Sprintf("ppt/slideLayouts/slideLayout%d.xml", i+1)] = fmt.Sprintf(`<p:sldLayout %s><p:cSld name="%s">%s</p:cSld></p:sldLayout>`,
			nsP, esc(name), spTree([]string{Shape{ID: 2, Name: "Title 1", Placeholder: "title"}.XML()}))
		parts[fmt.Sprintf("ppt/slideLayouts/_rels/slideLayout%d.xml.rels", i+1)] = rels(rel("rId1", "slideMaster", "../slideMasters/slideMaster1.xml", false))
	}

	var presRels, sldIDs, masterIDs []string
	for m := 1; m <= masters; m++ {
		presRels = append(presRels, rel(fmt.Sprintf("rIdM%d", m), "slideMaster", fmt.Sprintf("slideMasters/slideMaster%d.xml", m), false))
		masterIDs = append(masterIDs, fmt.Sprintf(`<p:sldMasterId id="%d" r:id="rIdM%d"/>`, 2147483647+m, m))
	}
	for i, s := range d.Slides {
		n := i + 1
		layout := s.Layout
		if layout == "" {
			layout = "Title and Content"
		}
		presRels = append(presRels, rel(fmt.Sprintf("rIdS%d", n), "slide", fmt.Sprintf("slides/slide%d.xml", n), false))
		sldIDs = append(sldIDs, fmt.Sprintf(`<p:sldId id="%d" r:id="rIdS%d"/>`, 255+n, n))

		bg := ""
		if s.Background != "" {
			bg = fmt.Sprintf(`<p:bg><p:bgPr><a:solidFill><a:srgbClr val="%s"/></a:solidFill><a:effectLst/></p:bgPr></p:bg>`, s.Background)
		}
		parts[fmt.Sprintf("ppt/slides/slide%d.xml", n)] = fmt.Sprintf(`<p:sld %s><p:cSld>%s%s</p:cSld></p:sld>`, nsP, bg, spTree(s.Shapes))

		slideRels := []string{rel("rId1", "slideLayout", fmt.Sprintf("../slideLayouts/slideLayout%d.xml", layoutIndex[layout]), false)}
		for _, l := range s.Links {
			slideRels = append(slideRels, rel(l.ID, "hyperlink", l.Target, l.External))
		}
		if s.Notes != "" {
			slideRels = append(slideRels, rel("rIdN", "notesSlide", fmt.Sprintf("../notesSlides/notesSlide%d.xml", n), false))
			var paras []string
			for _, line := range strings.Split(s.Notes, "\n") {
				paras = append(paras, Text(Run{Text: line}))
			}
			notes := []string{
				Shape{ID: 2, Name: "Slide Image Placeholder 1", Placeholder: "sldImg"}.XML(),
				Shape{ID: 3, Name: "Notes Placeholder 2", Placeholder: "body", Paragraphs: paras}.XML(),
			}
			parts[fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", n)] = fmt.Sprintf(`<p:notes %s><p:cSld>%s</p:cSld></p:notes>`, nsP, spTree(notes))
		}
		parts[fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n)] = rels(slideRels...)
	}
	parts["ppt/_rels/presentation.xml.rels"] = rels(presRels...)
	parts["ppt/presentation.xml"] = fmt.Sprintf(`<p:presentation %s><p:sldMasterIdLst>%s</p:sldMasterIdLst><p:sldIdLst>%s</p:sldIdLst><p:sldSz cx="%d" cy="%d"/></p:presentation>`,
		nsP, strings.Join(masterIDs, ""), strings.Join(sldIDs, ""), width, height)

	names := make([]string, 0, len(parts))
	for k := range parts {
		names = append(names, k)
	}
	sort.Strings(names)
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(parts[name])); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes the deck into dir and returns its path.
func (d Deck) WriteFile(t testing.TB, dir, name string) string {
	t.Helper()
	data, err := d.Bytes()
	if err != nil {
		t.Fatalf("build deck: %v", err)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write deck: %v", err)
	}
	return p
}

// Bool returns a pointer for Run.Bold.
func Bool(b bool) *bool {
	return &b
}
