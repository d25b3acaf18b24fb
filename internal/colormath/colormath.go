// Package colormath implements the WCAG 2.x luminance and contrast formulas
// plus the helpers used to suggest a compliant replacement text color.
package colormath

import (
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"slideaudit/internal/domain"
)

const (
	fixStep       = 0.05
	maxIterations = 50
)

// Thresholds carries the configured WCAG ratios.
type Thresholds struct {
	Normal        float64
	Large         float64
	LargeFontSize float64 // points; bold text at or above this size counts as large
}

// DefaultThresholds are the WCAG AA values.
var DefaultThresholds = Thresholds{Normal: 4.5, Large: 3.0, LargeFontSize: 18}

func linearize(c uint8) float64 {
	v := float64(c) / 255.0
	if v <= 0.03928 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// Luminance returns the WCAG relative luminance in [0, 1].
func Luminance(c domain.RGB) float64 {
	return 0.2126*linearize(c.R) + 0.7152*linearize(c.G) + 0.0722*linearize(c.B)
}

// ContrastRatio returns (Lmax+0.05)/(Lmin+0.05); symmetric, in [1, 21].
func ContrastRatio(a, b domain.RGB) float64 {
	la, lb := Luminance(a), Luminance(b)
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}

// RequiredRatio returns the minimum ratio for text of the given size and weight.
// Large text is >= LargeFontSize pt and bold, or >= 24pt regardless of weight.
func (t Thresholds) RequiredRatio(sizePt float64, bold bool) float64 {
	if (sizePt >= t.LargeFontSize && bold) || sizePt >= 24 {
		return t.Large
	}
	return t.Normal
}

// FindCompliantColor nudges fg away from bg until the target ratio is met.
// On a light background the color is darkened 5% per step; otherwise it is
// lightened by 5% of the remaining distance to white. After 50 steps, or once
// pure black or white is reached without success, it falls back to black or
// white depending on the background. Heuristic; not the optimal nearest color.
func FindCompliantColor(fg, bg domain.RGB, target float64) domain.RGB {
	if ContrastRatio(fg, bg) >= target {
		return fg
	}
	bgLum := Luminance(bg)
	darken := bgLum > Luminance(fg)
	cur := fg
	for i := 0; i < maxIterations; i++ {
		if darken {
			cur = domain.RGB{R: scaleDown(cur.R), G: scaleDown(cur.G), B: scaleDown(cur.B)}
		} else {
			cur = domain.RGB{R: scaleUp(cur.R), G: scaleUp(cur.G), B: scaleUp(cur.B)}
		}
		if ContrastRatio(cur, bg) >= target {
			return cur
		}
		if cur == domain.Black || cur == domain.White {
			break
		}
	}
	if bgLum > 0.5 {
		return domain.Black
	}
	return domain.White
}

func scaleDown(c uint8) uint8 {
	return uint8(math.Floor(float64(c) * (1 - fixStep)))
}

func scaleUp(c uint8) uint8 {
	v := math.Ceil(float64(c) + (255-float64(c))*fixStep)
	if v > 255 {
		v = 255
	}
	return uint8(v)
}

// ParseHex parses "#RRGGBB" or "RRGGBB".
func ParseHex(s string) (domain.RGB, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return domain.RGB{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return domain.RGB{R: r, G: g, B: b}, nil
}

// ParsePalette parses a list of hex colors, skipping invalid entries.
func ParsePalette(hexes []string) []domain.RGB {
	out := make([]domain.RGB, 0, len(hexes))
	for _, h := range hexes {
		if c, err := ParseHex(h); err == nil {
			out = append(out, c)
		}
	}
	return out
}

// InPalette reports exact membership.
func InPalette(c domain.RGB, palette []domain.RGB) bool {
	for _, p := range palette {
		if p == c {
			return true
		}
	}
	return false
}
