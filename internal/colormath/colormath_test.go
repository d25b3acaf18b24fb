package colormath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slideaudit/internal/domain"
)

func TestContrastRatioExtremes(t *testing.T) {
	assert.InDelta(t, 21.0, ContrastRatio(domain.Black, domain.White), 0.01)
	assert.InDelta(t, 1.0, ContrastRatio(domain.White, domain.White), 1e-9)
}

func TestContrastRatioSymmetric(t *testing.T) {
	a := domain.RGB{R: 68, G: 129, B: 172}
	b := domain.RGB{R: 255, G: 145, B: 77}
	assert.InDelta(t, ContrastRatio(a, b), ContrastRatio(b, a), 1e-12)
	assert.GreaterOrEqual(t, ContrastRatio(a, b), 1.0)
	assert.LessOrEqual(t, ContrastRatio(a, b), 21.0)
}

func TestLuminanceKnownValues(t *testing.T) {
	assert.InDelta(t, 0.0, Luminance(domain.Black), 1e-12)
	assert.InDelta(t, 1.0, Luminance(domain.White), 1e-9)
	// #777777 is the classic borderline grey on white.
	assert.InDelta(t, 4.48, ContrastRatio(domain.RGB{R: 0x77, G: 0x77, B: 0x77}, domain.White), 0.01)
}

func TestRequiredRatio(t *testing.T) {
	th := DefaultThresholds
	assert.Equal(t, 4.5, th.RequiredRatio(12, false))
	assert.Equal(t, 4.5, th.RequiredRatio(18, false))
	assert.Equal(t, 3.0, th.RequiredRatio(18, true))
	assert.Equal(t, 3.0, th.RequiredRatio(24, false))
	assert.Equal(t, 4.5, th.RequiredRatio(0, true))
}

func TestFindCompliantColorOnWhite(t *testing.T) {
	fg := domain.RGB{R: 170, G: 170, B: 170}
	fixed := FindCompliantColor(fg, domain.White, 4.5)
	assert.GreaterOrEqual(t, ContrastRatio(fixed, domain.White), 4.5)
	assert.Less(t, Luminance(fixed), Luminance(fg), "light background should darken the text")
}

func TestFindCompliantColorOnDark(t *testing.T) {
	bg := domain.RGB{R: 20, G: 20, B: 60}
	fg := domain.RGB{R: 60, G: 60, B: 90}
	fixed := FindCompliantColor(fg, bg, 4.5)
	assert.GreaterOrEqual(t, ContrastRatio(fixed, bg), 4.5)
	assert.Greater(t, Luminance(fixed), Luminance(fg))
}

func TestFindCompliantColorAlreadyCompliant(t *testing.T) {
	assert.Equal(t, domain.Black, FindCompliantColor(domain.Black, domain.White, 4.5))
}

func TestFindCompliantColorFallsBack(t *testing.T) {
	// Mid grey cannot reach 21:1 against anything but black/white extremes.
	grey := domain.RGB{R: 128, G: 128, B: 128}
	assert.Equal(t, domain.White, FindCompliantColor(grey, grey, 21))
	assert.Equal(t, domain.Black, FindCompliantColor(domain.White, domain.White, 4.5))
}

func TestParseHexAndPalette(t *testing.T) {
	c, err := ParseHex("#4481AC")
	require.NoError(t, err)
	assert.Equal(t, domain.RGB{R: 68, G: 129, B: 172}, c)

	c, err = ParseHex("ff914d")
	require.NoError(t, err)
	assert.Equal(t, "#FF914D", c.Hex())

	_, err = ParseHex("not-a-color")
	assert.Error(t, err)

	palette := ParsePalette([]string{"#000000", "bogus", "#FFFFFF"})
	assert.Len(t, palette, 2)
	assert.True(t, InPalette(domain.White, palette))
	assert.False(t, InPalette(domain.RGB{R: 1}, palette))
}

func TestAdjustApply(t *testing.T) {
	half := 0.5
	assert.Equal(t, domain.RGB{R: 128, G: 128, B: 128}, Adjust{Shade: &half}.Apply(domain.White))
	assert.Equal(t, domain.RGB{R: 128, G: 128, B: 128}, Adjust{Tint: &half}.Apply(domain.Black))

	mod, off := 0.5, 0.0
	darker := Adjust{LumMod: &mod, LumOff: &off}.Apply(domain.RGB{R: 68, G: 129, B: 172})
	assert.Less(t, Luminance(darker), Luminance(domain.RGB{R: 68, G: 129, B: 172}))
	assert.Equal(t, domain.RGB{R: 10, G: 20, B: 30}, Adjust{}.Apply(domain.RGB{R: 10, G: 20, B: 30}))
}
