package pptx

import (
	"strconv"
	"strings"

	"slideaudit/internal/colormath"
	"slideaudit/internal/domain"
)

// palette resolves DrawingML colors against a theme and a master color map.
type palette struct {
	scheme map[string]domain.RGB
	clrMap map[string]string
}

var defaultClrMap = map[string]string{
	"bg1": "lt1",
	"tx1": "dk1",
	"bg2": "lt2",
	"tx2": "dk2",
}

// Office default theme, used when a deck carries no theme part.
var officeScheme = map[string]domain.RGB{
	"dk1":      {R: 0, G: 0, B: 0},
	"lt1":      {R: 255, G: 255, B: 255},
	"dk2":      {R: 0x44, G: 0x54, B: 0x6A},
	"lt2":      {R: 0xE7, G: 0xE6, B: 0xE6},
	"accent1":  {R: 0x44, G: 0x72, B: 0xC4},
	"accent2":  {R: 0xED, G: 0x7D, B: 0x31},
	"accent3":  {R: 0xA5, G: 0xA5, B: 0xA5},
	"accent4":  {R: 0xFF, G: 0xC0, B: 0x00},
	"accent5":  {R: 0x5B, G: 0x9B, B: 0xD5},
	"accent6":  {R: 0x70, G: 0xAD, B: 0x47},
	"hlink":    {R: 0x05, G: 0x63, B: 0xC1},
	"folHlink": {R: 0x95, G: 0x4F, B: 0x72},
}

var presetColors = map[string]domain.RGB{
	"black":  {R: 0, G: 0, B: 0},
	"white":  {R: 255, G: 255, B: 255},
	"red":    {R: 255, G: 0, B: 0},
	"green":  {R: 0, G: 128, B: 0},
	"blue":   {R: 0, G: 0, B: 255},
	"yellow": {R: 255, G: 255, B: 0},
	"gray":   {R: 128, G: 128, B: 128},
}

func newPalette(theme *xTheme, clrMap *xClrMap) *palette {
	p := &palette{scheme: make(map[string]domain.RGB), clrMap: make(map[string]string)}
	for k, v := range officeScheme {
		p.scheme[k] = v
	}
	if theme != nil {
		base := &palette{scheme: map[string]domain.RGB{}, clrMap: defaultClrMap}
		for _, item := range theme.Colors.Items {
			if c, ok := base.color(&item.xColor); ok {
				p.scheme[item.XMLName.Local] = c
			}
		}
	}
	for k, v := range defaultClrMap {
		p.clrMap[k] = v
	}
	if clrMap != nil {
		for k, v := range map[string]string{"bg1": clrMap.Bg1, "tx1": clrMap.Tx1, "bg2": clrMap.Bg2, "tx2": clrMap.Tx2} {
			if v != "" {
				p.clrMap[k] = v
			}
		}
	}
	return p
}

// color resolves a color choice. ok is false for unresolvable colors such as
// the style placeholder "phClr".
func (p *palette) color(c *xColor) (domain.RGB, bool) {
	if c.empty() {
		return domain.RGB{}, false
	}
	var (
		base domain.RGB
		spec *xColorSpec
		ok   bool
	)
	switch {
	case c.Srgb != nil:
		spec = c.Srgb
		base, ok = parseHex(spec.Val)
	case c.Scheme != nil:
		spec = c.Scheme
		name := spec.Val
		if mapped, found := p.clrMap[name]; found {
			name = mapped
		}
		base, ok = p.scheme[name]
	case c.Sys != nil:
		spec = c.Sys
		base, ok = parseHex(spec.LastClr)
		if !ok {
			switch spec.Val {
			case "windowText":
				base, ok = domain.Black, true
			case "window":
				base, ok = domain.White, true
			}
		}
	case c.Prst != nil:
		spec = c.Prst
		base, ok = presetColors[strings.ToLower(spec.Val)]
	}
	if !ok {
		return domain.RGB{}, false
	}
	return adjustments(spec).Apply(base), true
}

// alpha returns the color's opacity, nil when fully opaque.
func alpha(c *xColor) *float64 {
	if c.empty() {
		return nil
	}
	for _, s := range []*xColorSpec{c.Srgb, c.Scheme, c.Sys, c.Prst} {
		if s != nil && s.Alpha != nil {
			return percent(s.Alpha)
		}
	}
	return nil
}

func adjustments(s *xColorSpec) colormath.Adjust {
	return colormath.Adjust{
		LumMod: percent(s.LumMod),
		LumOff: percent(s.LumOff),
		Tint:   percent(s.Tint),
		Shade:  percent(s.Shade),
	}
}

// percent converts a DrawingML percentage (100000 = 1.0) to a fraction.
func percent(v *xVal) *float64 {
	if v == nil {
		return nil
	}
	raw := strings.TrimSuffix(strings.TrimSpace(v.Val), "%")
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	if strings.HasSuffix(v.Val, "%") {
		n /= 100
	} else {
		n /= 100000
	}
	return &n
}

func parseHex(s string) (domain.RGB, bool) {
	c, err := colormath.ParseHex(s)
	if err != nil {
		return domain.RGB{}, false
	}
	return c, true
}
