package domain

import (
	"fmt"
	"strings"
)

// RGB is an sRGB color with 8-bit channels.
type RGB struct {
	R, G, B uint8
}

var (
	Black = RGB{0, 0, 0}
	White = RGB{255, 255, 255}
)

func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

type FillKind int

const (
	FillNone FillKind = iota
	FillSolid
	FillPicture
	FillTexture
	FillGradient
)

type Fill struct {
	Kind  FillKind
	Color *RGB     // set for FillSolid when resolvable
	Alpha *float64 // 0..1; nil means fully opaque
}

// OpaqueSolid reports whether the fill is a resolvable solid color with no transparency.
func (f *Fill) OpaqueSolid() bool {
	if f == nil || f.Kind != FillSolid || f.Color == nil {
		return false
	}
	return f.Alpha == nil || *f.Alpha >= 1.0
}

// IsImage reports whether the fill is a picture or texture.
func (f *Fill) IsImage() bool {
	return f != nil && (f.Kind == FillPicture || f.Kind == FillTexture)
}

type PlaceholderKind int

const (
	PlaceholderNone PlaceholderKind = iota
	PlaceholderTitle
	PlaceholderCenterTitle
	PlaceholderSubtitle
	PlaceholderBody
	PlaceholderFooter
	PlaceholderSlideNumber
	PlaceholderDate
	PlaceholderPicture
	PlaceholderOther
)

// IsTitle reports whether the placeholder is a title or centered title.
func (p PlaceholderKind) IsTitle() bool {
	return p == PlaceholderTitle || p == PlaceholderCenterTitle
}

type ShapeKind int

const (
	ShapeOther ShapeKind = iota
	ShapePicture
	ShapeTable
	ShapeChart
	ShapeGroup
	ShapeConnector
)

// Geometry is a shape bounding box in EMU.
type Geometry struct {
	Left, Top, Width, Height int64
}

// Overlaps reports strict axis-aligned bounding-box intersection.
func (g Geometry) Overlaps(o Geometry) bool {
	return g.Left < o.Left+o.Width &&
		g.Left+g.Width > o.Left &&
		g.Top < o.Top+o.Height &&
		g.Top+g.Height > o.Top
}

type Run struct {
	Text      string
	Font      string  // typeface or theme alias ("+mj-lt"); empty when inherited
	SizePt    float64 // 0 when inherited
	Bold      *bool
	Color     *RGB
	Hyperlink string // external address or "#..." for in-deck jumps
}

type Paragraph struct {
	Runs []Run
}

func (p Paragraph) Text() string {
	var b strings.Builder
	for _, r := range p.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

type TextFrame struct {
	Paragraphs []Paragraph
}

// Text joins paragraphs with newlines.
func (t *TextFrame) Text() string {
	if t == nil {
		return ""
	}
	lines := make([]string, 0, len(t.Paragraphs))
	for _, p := range t.Paragraphs {
		lines = append(lines, p.Text())
	}
	return strings.Join(lines, "\n")
}

// Runs returns every run in reading order.
func (t *TextFrame) Runs() []Run {
	if t == nil {
		return nil
	}
	var out []Run
	for _, p := range t.Paragraphs {
		out = append(out, p.Runs...)
	}
	return out
}

type Shape struct {
	ID          int
	Name        string
	Kind        ShapeKind
	Placeholder PlaceholderKind
	Geometry    Geometry
	Fill        *Fill
	Text        *TextFrame
	AltText     string
	Decorative  bool
	Children    []Shape // group members
}

// HasText reports whether the shape carries a text frame with non-blank content.
func (s *Shape) HasText() bool {
	return s.Text != nil && strings.TrimSpace(s.Text.Text()) != ""
}

type Slide struct {
	Number     int // 1-based
	LayoutName string
	Background *Fill
	Shapes     []Shape // z-order, back to front
	Notes      *TextFrame
}

// NotesText returns the speaker notes, empty when absent.
func (s *Slide) NotesText() string {
	return s.Notes.Text()
}

// TitleText returns the text of the topmost title placeholder, if any.
func (s *Slide) TitleText() string {
	var best *Shape
	for i := range s.Shapes {
		sh := &s.Shapes[i]
		if !sh.Placeholder.IsTitle() {
			continue
		}
		if best == nil || sh.Geometry.Top < best.Geometry.Top {
			best = sh
		}
	}
	if best == nil {
		return ""
	}
	return strings.TrimSpace(best.Text.Text())
}

// OnScreenText joins the text of every shape on the slide.
func (s *Slide) OnScreenText() string {
	var parts []string
	for i := range s.Shapes {
		if t := strings.TrimSpace(s.Shapes[i].Text.Text()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// ImageCount counts picture shapes, including those nested in groups.
func (s *Slide) ImageCount() int {
	var count func(shapes []Shape) int
	count = func(shapes []Shape) int {
		n := 0
		for i := range shapes {
			if shapes[i].Kind == ShapePicture {
				n++
			}
			n += count(shapes[i].Children)
		}
		return n
	}
	return count(s.Shapes)
}

type Presentation struct {
	Name        string
	Slides      []Slide
	MasterCount int
	SlideWidth  int64 // EMU
	SlideHeight int64 // EMU
}
