package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slideaudit/internal/config"
	"slideaudit/internal/domain"
)

func newTestChecker(t *testing.T) *Checker {
	t.Helper()
	dict, err := ReadWordList(strings.NewReader("the\nlesson\ncovers\nsafety\nrules\nmail\nwhen\nworking\nreally\nimportant\nthis\nit's\n"))
	require.NoError(t, err)
	return NewChecker(config.Default(), 6858000, NewSpeller(dict, config.Default().SpellingAllowList))
}

func titleShape(id int, top int64) domain.Shape {
	return domain.Shape{
		ID: id, Name: "Title 1", Placeholder: domain.PlaceholderTitle,
		Geometry: domain.Geometry{Left: 0, Top: top, Width: 1000, Height: 200},
		Text:     &domain.TextFrame{Paragraphs: []domain.Paragraph{{Runs: []domain.Run{{Text: "Title"}}}}},
	}
}

func TestSingleQuoteOffenders(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"emphasis", "This is 'really' important.", []string{"'really'"}},
		{"curly emphasis", "This is ‘really’ important.", []string{"‘really’"}},
		{"inside double quotes", `He said "don't call it 'fine' please" yesterday.`, nil},
		{"contraction", "It's the learner's turn and they don't know.", nil},
		{"unclosed", "It is 'open ended", nil},
		{"two offenders", "Use 'this' and 'that' here", []string{"'this'", "'that'"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SingleQuoteOffenders(tt.text))
		})
	}
}

func TestCheckSingleQuotesIssue(t *testing.T) {
	issues := CheckSingleQuotes("This is 'really' important.", "TextBox 2", 3)
	require.Len(t, issues, 1)
	assert.Equal(t, domain.SeverityFail, issues[0].Severity)
	assert.Equal(t, domain.CheckPunctuation, issues[0].Check)
	assert.Contains(t, issues[0].Details, "'really'")
}

func TestSpellingCandidatesAndUnknown(t *testing.T) {
	c := newTestChecker(t)
	text := "The lesson covers safetty rules. Visit https://example.com/Bad or mail foo@bar.com. NASA 2024 rulez CTA it's workingHard"
	unknown := c.Speller.Unknown(text)
	assert.Equal(t, []string{"safetty", "Visit", "rulez", "Hard"}, unknown)
}

func TestSpellingAllowListAndCap(t *testing.T) {
	c := newTestChecker(t)
	assert.Empty(t, c.Speller.Unknown("Youtube video intro agenda module Calibri"))

	issues := c.Speller.Check("aaaa bbbb cccc dddd eeee ffff gggg", "TextBox", 2)
	require.Len(t, issues, 1)
	assert.Equal(t, domain.SeverityWarning, issues[0].Severity)
	assert.Equal(t, "Potential typos found: aaaa, bbbb, cccc, dddd, eeee...", issues[0].Details)
}

func TestCheckCitations(t *testing.T) {
	long := strings.Repeat("word ", 51)
	assert.Len(t, CheckCitations(long, "Notes", 2), 1)
	assert.Empty(t, CheckCitations(long+" (Smith, 2020)", "Notes", 2))
	assert.Empty(t, CheckCitations(long+" Sources: the web", "Notes", 2))
	assert.Empty(t, CheckCitations(long+" [3]", "Notes", 2))
	assert.Empty(t, CheckCitations("Talking Points: "+long, "Notes", 2))
	assert.Empty(t, CheckCitations(strings.Repeat("word ", 50), "Notes", 2))
}

func TestStripCitations(t *testing.T) {
	body := strings.Repeat("Body sentence here. ", 5)
	assert.Equal(t, strings.TrimSpace(body), StripCitations(body+"References: Smith 2020"))
	assert.Equal(t, "Sources: x. "+body, StripCitations("Sources: x. "+body), "header in the front half stays")

	withURL := body + "see https://example.com"
	got := StripCitations(withURL)
	assert.NotContains(t, got, "http")
	assert.Equal(t, "", StripCitations(""))
}

func TestIsExemptShape(t *testing.T) {
	c := newTestChecker(t)
	assert.True(t, c.IsExemptShape(&domain.Shape{Placeholder: domain.PlaceholderFooter}))
	assert.True(t, c.IsExemptShape(&domain.Shape{Name: "Click Trigger Mask 3"}))
	assert.True(t, c.IsExemptShape(&domain.Shape{Name: "ClickTrigger 3"}))
	copyright := domain.Shape{
		Name:     "TextBox 9",
		Geometry: domain.Geometry{Top: 6000000},
		Text:     &domain.TextFrame{Paragraphs: []domain.Paragraph{{Runs: []domain.Run{{Text: "© Copyright 2024"}}}}},
	}
	assert.True(t, c.IsExemptShape(&copyright))
	copyright.Geometry.Top = 100
	assert.False(t, c.IsExemptShape(&copyright))
}

func TestCheckReadingOrder(t *testing.T) {
	c := newTestChecker(t)

	noTitle := &domain.Slide{Number: 2, Shapes: []domain.Shape{{ID: 1, Name: "TextBox"}}}
	issues := c.CheckReadingOrder(noTitle)
	require.Len(t, issues, 1)
	assert.Equal(t, "Slide", issues[0].ShapeName)
	assert.Equal(t, "Slide missing standard Title placeholder.", issues[0].Details)

	slide := &domain.Slide{Number: 3, Shapes: []domain.Shape{
		titleShape(1, 0),
		{ID: 2, Name: "Star 2", Geometry: domain.Geometry{Left: 500, Top: 100, Width: 100, Height: 100}},
		{ID: 3, Name: "Mask 5", Geometry: domain.Geometry{Left: 0, Top: 0, Width: 100, Height: 100}},
		{ID: 4, Name: "Body", Geometry: domain.Geometry{Left: 0, Top: 300, Width: 100, Height: 100}},
	}}
	issues = c.CheckReadingOrder(slide)
	require.Len(t, issues, 1)
	assert.Equal(t, "Object 'Star 2' obscures the Title.", issues[0].Details)
}

func TestCheckReadingOrderIgnoresShapesBelowTitle(t *testing.T) {
	c := newTestChecker(t)
	slide := &domain.Slide{Number: 2, Shapes: []domain.Shape{
		{ID: 5, Name: "Backdrop", Geometry: domain.Geometry{Left: 0, Top: 0, Width: 9144000, Height: 6858000}},
		titleShape(1, 0),
		{ID: 2, Name: "Badge", Geometry: domain.Geometry{Left: 500, Top: 100, Width: 100, Height: 100}},
	}}
	issues := c.CheckReadingOrder(slide)
	require.Len(t, issues, 1)
	assert.Equal(t, "Badge", issues[0].ShapeName)
}

func TestCheckAltText(t *testing.T) {
	pic := domain.Shape{Name: "Picture 3", Kind: domain.ShapePicture}
	assert.Len(t, CheckAltText(&pic, 3), 1)

	pic.AltText = "A chart of sales"
	assert.Empty(t, CheckAltText(&pic, 3))

	deco := domain.Shape{Name: "Picture 4", Kind: domain.ShapePicture, Decorative: true}
	assert.Empty(t, CheckAltText(&deco, 3))

	group := domain.Shape{Name: "Group 1", Kind: domain.ShapeGroup, Children: []domain.Shape{
		{Name: "Picture 7", Kind: domain.ShapePicture},
	}}
	issues := CheckAltText(&group, 3)
	require.Len(t, issues, 1)
	assert.Equal(t, "Picture 7", issues[0].ShapeName)
}

func TestCheckHyperlinks(t *testing.T) {
	shape := domain.Shape{Name: "TextBox", Text: &domain.TextFrame{Paragraphs: []domain.Paragraph{{Runs: []domain.Run{
		{Text: "docs", Hyperlink: "https://example.com"},
		{Text: "next", Hyperlink: "#slide5"},
		{Text: "plain"},
	}}}}}
	issues := CheckHyperlinks(&shape, 4)
	require.Len(t, issues, 1)
	assert.Equal(t, domain.SeverityInfo, issues[0].Severity)
	assert.Equal(t, "External Link found: https://example.com", issues[0].Details)
}

func TestCheckBrandColor(t *testing.T) {
	c := newTestChecker(t)
	brand := domain.RGB{R: 68, G: 129, B: 172}
	off := domain.RGB{R: 1, G: 2, B: 3}
	ok := domain.Shape{Name: "Rect", Fill: &domain.Fill{Kind: domain.FillSolid, Color: &brand}}
	bad := domain.Shape{Name: "Rect", Fill: &domain.Fill{Kind: domain.FillSolid, Color: &off}}
	assert.Empty(t, c.CheckBrandColor(&ok, 2))
	issues := c.CheckBrandColor(&bad, 2)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Details, "#010203")
	assert.Empty(t, c.CheckBrandColor(&domain.Shape{}, 2))
}

func TestCheckRequiredHeaders(t *testing.T) {
	c := newTestChecker(t)
	issues := c.CheckRequiredHeaders("Instructional Time: 5 min\nDo: hand out", 2)
	require.Len(t, issues, 1)
	assert.Equal(t, "Missing critical header: 'Instructional Activity:'", issues[0].Details)

	assert.Empty(t, c.CheckRequiredHeaders("instructional activity: x\ninstructional time: 2", 2))
}
