package colormath

import (
	"github.com/lucasb-eyer/go-colorful"

	"slideaudit/internal/domain"
)

// Adjust holds DrawingML color modifiers as fractions (lumMod 75000 => 0.75).
// Nil fields are not applied.
type Adjust struct {
	LumMod *float64
	LumOff *float64
	Tint   *float64
	Shade  *float64
}

// Apply resolves the modifiers against a base color. Luminance modifiers
// work in HSL space; tint and shade blend toward white and black.
func (a Adjust) Apply(base domain.RGB) domain.RGB {
	c := colorful.Color{R: float64(base.R) / 255, G: float64(base.G) / 255, B: float64(base.B) / 255}
	if a.LumMod != nil || a.LumOff != nil {
		h, s, l := c.Hsl()
		if a.LumMod != nil {
			l *= *a.LumMod
		}
		if a.LumOff != nil {
			l += *a.LumOff
		}
		c = colorful.Hsl(h, s, clamp01(l))
	}
	if a.Tint != nil {
		t := clamp01(*a.Tint)
		c = colorful.Color{R: c.R*t + (1 - t), G: c.G*t + (1 - t), B: c.B*t + (1 - t)}
	}
	if a.Shade != nil {
		s := clamp01(*a.Shade)
		c = colorful.Color{R: c.R * s, G: c.G * s, B: c.B * s}
	}
	r, g, b := c.Clamped().RGB255()
	return domain.RGB{R: r, G: g, B: b}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
