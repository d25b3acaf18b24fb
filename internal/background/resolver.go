// Package background works out what color sits behind a shape by walking the
// slide's z-order.
package background

import "slideaudit/internal/domain"

type Kind int

const (
	KindColor Kind = iota
	KindImage
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "IMAGE"
	case KindTable:
		return "TABLE"
	default:
		return "COLOR"
	}
}

// Result is either a concrete color or one of the IMAGE/TABLE sentinels.
type Result struct {
	Kind  Kind
	Color domain.RGB
}

// Determinable reports whether the result can be used for a contrast calculation.
func (r Result) Determinable() bool {
	return r.Kind == KindColor
}

func colorResult(c domain.RGB) Result {
	return Result{Kind: KindColor, Color: c}
}

// Resolve returns the effective background for text inside shape: its own
// opaque solid fill or picture fill, otherwise whatever lies beneath it.
func Resolve(shape *domain.Shape, slide *domain.Slide) Result {
	if shape.Fill.OpaqueSolid() {
		return colorResult(*shape.Fill.Color)
	}
	if shape.Fill.IsImage() {
		return Result{Kind: KindImage}
	}
	return ResolveBehind(shape, slide)
}

// ResolveBehind ignores the shape's own fill and scans the shapes earlier in
// z-order whose bounding boxes overlap it. The nearest (last drawn) candidate
// with a determinable fill wins: a table yields TABLE, a picture shape or
// picture fill yields IMAGE, an opaque solid fill yields its color. With no
// candidate the slide background applies, then white.
func ResolveBehind(shape *domain.Shape, slide *domain.Slide) Result {
	idx := indexOf(shape, slide)
	for i := idx - 1; i >= 0; i-- {
		cand := &slide.Shapes[i]
		if !cand.Geometry.Overlaps(shape.Geometry) {
			continue
		}
		switch {
		case cand.Kind == domain.ShapeTable:
			return Result{Kind: KindTable}
		case cand.Kind == domain.ShapePicture, cand.Fill.IsImage():
			return Result{Kind: KindImage}
		case cand.Fill.OpaqueSolid():
			return colorResult(*cand.Fill.Color)
		}
	}
	if slide.Background.OpaqueSolid() {
		return colorResult(*slide.Background.Color)
	}
	if slide.Background.IsImage() {
		return Result{Kind: KindImage}
	}
	return colorResult(domain.White)
}

// indexOf finds the shape's z-order position. Shapes not on the slide are
// treated as topmost so every slide shape counts as beneath them.
func indexOf(shape *domain.Shape, slide *domain.Slide) int {
	for i := range slide.Shapes {
		if &slide.Shapes[i] == shape {
			return i
		}
	}
	for i := range slide.Shapes {
		if shape.ID != 0 && slide.Shapes[i].ID == shape.ID {
			return i
		}
	}
	return len(slide.Shapes)
}
