package analyzer

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slideaudit/internal/colormath"
	"slideaudit/internal/config"
	"slideaudit/internal/domain"
	"slideaudit/internal/pptx"
	"slideaudit/internal/pptx/pptxtest"
)

var fixedNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.ExemptLastSlide = false
	return cfg
}

func newTestAnalyzer(cfg config.Config) *Analyzer {
	return New(cfg, WithClock(func() time.Time { return fixedNow }))
}

func titleShape(text string) domain.Shape {
	return domain.Shape{
		ID:          2,
		Name:        "Title 1",
		Placeholder: domain.PlaceholderTitle,
		Geometry:    domain.Geometry{Left: 457200, Top: 274638, Width: 8229600, Height: 1143000},
		Text: &domain.TextFrame{Paragraphs: []domain.Paragraph{{Runs: []domain.Run{
			{Text: text, Font: "Rockwell", SizePt: 40, Bold: boolPtr(true)},
		}}}},
	}
}

func textFrame(runs ...domain.Run) *domain.TextFrame {
	return &domain.TextFrame{Paragraphs: []domain.Paragraph{{Runs: runs}}}
}

func boolPtr(b bool) *bool { return &b }

func solid(c *domain.RGB) *domain.Fill {
	return &domain.Fill{Kind: domain.FillSolid, Color: c}
}

func byCheck(issues []domain.Issue, check domain.Check) []domain.Issue {
	var out []domain.Issue
	for _, iss := range issues {
		if iss.Check == check {
			out = append(out, iss)
		}
	}
	return out
}

func readDeck(t *testing.T, d pptxtest.Deck) *domain.Presentation {
	t.Helper()
	data, err := d.Bytes()
	require.NoError(t, err)
	pres, err := pptx.NewReader(nil).Read(bytes.NewReader(data), int64(len(data)), "Safety 101")
	require.NoError(t, err)
	return pres
}

func titlePlaceholder(text string) string {
	return pptxtest.Shape{ID: 2, Name: "Title 1", Placeholder: "title", Paragraphs: []string{
		pptxtest.Text(pptxtest.Run{Text: text, Font: "Rockwell", SizePt: 40, Bold: pptxtest.Bool(true)}),
	}}.XML()
}

func threeSlideDeck(extra ...string) pptxtest.Deck {
	frame := pptxtest.Geom{X: 457200, Y: 2000000, W: 4000000, H: 3000000}
	slide3 := []string{
		titlePlaceholder("Spot the Hazards"),
		pptxtest.Shape{ID: 3, Name: "Backdrop", Geom: &frame, PictureFill: true}.XML(),
		pptxtest.Picture(4, "Picture 3", "", frame, false),
		pptxtest.Shape{ID: 5, Name: "Caption", Geom: &pptxtest.Geom{X: 600000, Y: 2500000, W: 3000000, H: 800000}, NoFill: true, Paragraphs: []string{
			pptxtest.Text(pptxtest.Run{Text: "Look ", Color: "FFFFFF"}, pptxtest.Run{Text: "closely", Color: "FFFFFF"}),
		}}.XML(),
	}
	slide3 = append(slide3, extra...)
	return pptxtest.Deck{Slides: []pptxtest.Slide{
		{Layout: "Title Only", Shapes: []string{titlePlaceholder("Welcome")}},
		{
			Shapes: []string{
				titlePlaceholder("Ladder Safety"),
				pptxtest.Shape{ID: 3, Name: "TextBox 2", Geom: &pptxtest.Geom{X: 457200, Y: 2000000, W: 8000000, H: 1000000}, Paragraphs: []string{
					pptxtest.Text(pptxtest.Run{Text: "Safety first today", Font: "Comic Sans MS", SizePt: 10}),
				}}.XML(),
			},
			Notes: "Time: 2\nActivity: intro",
		},
		{Shapes: slide3},
	}}
}

func TestAnalyzeThreeSlideDeck(t *testing.T) {
	rep := newTestAnalyzer(testConfig()).Analyze(readDeck(t, threeSlideDeck()))

	first := rep.IssuesForSlide(1)
	require.Len(t, first, 1)
	assert.Equal(t, domain.CheckStatus, first[0].Check)
	assert.Equal(t, domain.SeverityExempt, first[0].Severity)

	second := rep.IssuesForSlide(2)
	family := byCheck(second, domain.CheckFontFamily)
	require.Len(t, family, 1)
	assert.Equal(t, domain.SeverityFail, family[0].Severity)
	assert.Equal(t, "TextBox 2", family[0].ShapeName)
	size := byCheck(second, domain.CheckFontSize)
	require.Len(t, size, 1)
	assert.Equal(t, domain.SeverityFail, size[0].Severity)
	assert.Empty(t, byCheck(second, domain.CheckTextContrast))

	third := rep.IssuesForSlide(3)
	alt := byCheck(third, domain.CheckAltText)
	require.Len(t, alt, 1)
	assert.Equal(t, domain.SeverityFail, alt[0].Severity)
	assert.Equal(t, "Picture 3", alt[0].ShapeName)
	contrast := byCheck(third, domain.CheckTextContrast)
	require.Len(t, contrast, 1, "manual review is reported once per shape, not per run")
	assert.Equal(t, domain.SeverityManualReview, contrast[0].Severity)
	assert.Equal(t, "Caption", contrast[0].ShapeName)
	assert.Contains(t, contrast[0].Details, "Look")

	s := rep.Summary
	assert.Equal(t, "Safety 101", s.PresentationName)
	assert.Equal(t, fixedNow, s.GeneratedAt)
	assert.Equal(t, 3, s.SlidesChecked)
	assert.Equal(t, len(rep.Issues), s.TotalIssues)
	assert.Equal(t, 1, s.ManualReviews)
	assert.InDelta(t, 33.3, s.ComplianceRate, 0.05, "slides 2 and 3 both carry a FAIL")
	assert.InDelta(t, 100.0, s.WCAGComplianceRate, 0.05, "manual review does not count against the WCAG rate")
	assert.InDelta(t, 2.0, s.Pacing.PlannedMin, 1e-9)

	require.Len(t, rep.SlideContent, 3)
	assert.True(t, rep.SlideContent[1].Exempt)
	assert.Equal(t, "Ladder Safety", rep.SlideContent[2].Title)
	assert.Equal(t, "Time: 2\nActivity: intro", rep.SlideContent[2].Notes)
	assert.Equal(t, 1, rep.SlideContent[3].Images)
	require.Len(t, rep.Timeline, 3)
	assert.True(t, rep.Timeline[0].Exempt)
	assert.Zero(t, rep.Timeline[0].ProjectedMin, "the exempt title slide adds no time")
	assert.Zero(t, rep.Timeline[0].ImplicitMin)
	assert.InDelta(t, 2.5, s.Pacing.ProjectedMin, 1e-9, "explicit 2 on slide 2 plus the 0.5 floor on slide 3")
	require.Len(t, s.Pacing.Sections, 1)
	assert.Equal(t, 2, s.Pacing.Sections[0].SlideCount)
}

func TestAnalyzeWCAGRateCountsContrastFailures(t *testing.T) {
	lowContrast := pptxtest.Shape{ID: 6, Name: "Footnote", Geom: &pptxtest.Geom{X: 457200, Y: 5400000, W: 6000000, H: 400000}, Paragraphs: []string{
		pptxtest.Text(pptxtest.Run{Text: "Faint text", Color: "CCCCCC"}),
	}}.XML()
	rep := newTestAnalyzer(testConfig()).Analyze(readDeck(t, threeSlideDeck(lowContrast)))

	fails := byCheck(rep.IssuesForSlide(3), domain.CheckTextContrast)
	require.Len(t, fails, 2)
	var fail domain.Issue
	for _, iss := range fails {
		if iss.Severity == domain.SeverityFail {
			fail = iss
		}
	}
	require.Equal(t, "Footnote", fail.ShapeName)
	assert.Equal(t, "#CCCCCC", fail.Foreground)
	assert.Equal(t, "#FFFFFF", fail.Background)
	assert.InDelta(t, 1.6, fail.Ratio, 0.05)
	assert.Contains(t, fail.Details, "fails WCAG 4.5:1")
	assert.NotEmpty(t, fail.SuggestedFix)
	assert.InDelta(t, 66.7, rep.Summary.WCAGComplianceRate, 0.05)
}

func TestAnalyzeGraphicContrast(t *testing.T) {
	pres := &domain.Presentation{Name: "g", Slides: []domain.Slide{{
		Number: 1,
		Shapes: []domain.Shape{
			titleShape("Shapes"),
			{ID: 3, Name: "Pale Box", Geometry: domain.Geometry{Left: 0, Top: 3000000, Width: 100, Height: 100}, Fill: solid(&domain.RGB{R: 0xD9, G: 0xD9, B: 0xD9})},
			{ID: 4, Name: "Navy Box", Geometry: domain.Geometry{Left: 500, Top: 3000000, Width: 100, Height: 100}, Fill: solid(&domain.RGB{R: 0x2F, G: 0x54, B: 0x96})},
			{ID: 5, Name: "Navy Box Label", Geometry: domain.Geometry{Left: 500, Top: 3000000, Width: 100, Height: 100}, Fill: solid(&domain.RGB{R: 0xD9, G: 0xD9, B: 0xD9})},
		},
	}}}
	cfg := testConfig()
	cfg.ExemptFirstSlide = false
	rep := newTestAnalyzer(cfg).Analyze(pres)

	graphic := byCheck(rep.Issues, domain.CheckGraphicContrast)
	require.Len(t, graphic, 1, "only the pale box on the white slide fails; the label sits on navy")
	assert.Equal(t, "Pale Box", graphic[0].ShapeName)
	assert.Equal(t, "#FFFFFF", graphic[0].Background)
	assert.Equal(t, domain.SeverityFail, graphic[0].Severity)
	require.NotEmpty(t, graphic[0].SuggestedFix)
	fix, err := colormath.ParseHex(graphic[0].SuggestedFix)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, colormath.ContrastRatio(fix, domain.White), cfg.WCAGGraphicRatio)
	assert.Empty(t, byCheck(rep.Issues, domain.CheckBrandColor))
}

func TestAnalyzeGraphicContrastOverImage(t *testing.T) {
	frame := domain.Geometry{Left: 0, Top: 2000000, Width: 4000000, Height: 3000000}
	pres := &domain.Presentation{Name: "g", Slides: []domain.Slide{{
		Number: 1,
		Shapes: []domain.Shape{
			titleShape("Photo"),
			{ID: 3, Name: "Picture 2", Kind: domain.ShapePicture, AltText: "Ladder", Geometry: frame},
			{ID: 4, Name: "Bar", Geometry: domain.Geometry{Left: 100, Top: 2500000, Width: 1000000, Height: 200000}, Fill: solid(&domain.RGB{R: 0xFA, G: 0xFA, B: 0xFA})},
		},
	}}}
	cfg := testConfig()
	cfg.ExemptFirstSlide = false
	rep := newTestAnalyzer(cfg).Analyze(pres)

	graphic := byCheck(rep.Issues, domain.CheckGraphicContrast)
	require.Len(t, graphic, 1)
	assert.Equal(t, "Bar", graphic[0].ShapeName)
	assert.Equal(t, domain.SeverityManualReview, graphic[0].Severity)
	assert.Equal(t, "Object over Image. Verify contrast manually.", graphic[0].Details)
	assert.InDelta(t, 100.0, rep.Summary.WCAGComplianceRate, 1e-9, "manual review is not a failure")
}

func TestAnalyzeWalksGroupMembersOnce(t *testing.T) {
	pres := &domain.Presentation{Slides: []domain.Slide{{
		Number: 1,
		Shapes: []domain.Shape{
			titleShape("Group"),
			{ID: 3, Name: "Group 2", Kind: domain.ShapeGroup, Geometry: domain.Geometry{Top: 3000000, Width: 10, Height: 10}, Children: []domain.Shape{
				{ID: 4, Name: "Nested Photo", Kind: domain.ShapePicture, Geometry: domain.Geometry{Top: 3000000, Width: 5, Height: 5}},
				{ID: 5, Name: "Nested Label", Geometry: domain.Geometry{Top: 3000000, Width: 5, Height: 5}, Text: textFrame(domain.Run{Text: "Tiny", SizePt: 12})},
			}},
		},
	}}}
	cfg := testConfig()
	cfg.ExemptFirstSlide = false
	rep := newTestAnalyzer(cfg).Analyze(pres)

	alt := byCheck(rep.Issues, domain.CheckAltText)
	require.Len(t, alt, 1)
	assert.Equal(t, "Nested Photo", alt[0].ShapeName)
	size := byCheck(rep.Issues, domain.CheckFontSize)
	require.Len(t, size, 1)
	assert.Equal(t, "Nested Label", size[0].ShapeName)
}

func TestAnalyzeSkipsExemptShapes(t *testing.T) {
	pres := &domain.Presentation{SlideHeight: 6858000, Slides: []domain.Slide{{
		Number: 1,
		Shapes: []domain.Shape{
			titleShape("Footer"),
			{ID: 3, Name: "Footer Placeholder 4", Placeholder: domain.PlaceholderFooter, Geometry: domain.Geometry{Top: 6400000, Width: 10, Height: 10},
				Text: textFrame(domain.Run{Text: "Internal use", Font: "Papyrus", SizePt: 8})},
			{ID: 4, Name: "TextBox 5", Geometry: domain.Geometry{Top: 6500000, Width: 10, Height: 10},
				Text: textFrame(domain.Run{Text: "Copyright 2025 Acme", Font: "Papyrus", SizePt: 8})},
			{ID: 5, Name: "ClickTrigger Mask", Geometry: domain.Geometry{Top: 3000000, Width: 10, Height: 10}, Fill: solid(&domain.RGB{R: 1, G: 2, B: 3})},
		},
	}}}
	cfg := testConfig()
	cfg.ExemptFirstSlide = false
	rep := newTestAnalyzer(cfg).Analyze(pres)
	assert.Empty(t, rep.Issues)
	assert.InDelta(t, 100.0, rep.Summary.ComplianceRate, 1e-9)
}

func TestAnalyzeTextOverTable(t *testing.T) {
	pres := &domain.Presentation{Slides: []domain.Slide{{
		Number: 1,
		Shapes: []domain.Shape{
			titleShape("Rates"),
			{ID: 3, Name: "Table 2", Kind: domain.ShapeTable, Geometry: domain.Geometry{Top: 2000000, Width: 1000, Height: 1000}},
			{ID: 4, Name: "Overlay", Geometry: domain.Geometry{Top: 2000000, Width: 500, Height: 500}, Text: &domain.TextFrame{Paragraphs: []domain.Paragraph{
				{Runs: []domain.Run{{Text: "first"}}},
				{Runs: []domain.Run{{Text: "second"}}},
			}}},
		},
	}}}
	cfg := testConfig()
	cfg.ExemptFirstSlide = false
	rep := newTestAnalyzer(cfg).Analyze(pres)

	contrast := byCheck(rep.Issues, domain.CheckTextContrast)
	require.Len(t, contrast, 1)
	assert.Equal(t, domain.SeverityManualReview, contrast[0].Severity)
	assert.Equal(t, "Text 'first' is over Table. Verify contrast manually.", contrast[0].Details)
}

func TestAnalyzeNotes(t *testing.T) {
	notes := "Instructional Activity: Present Content\nInstructional Time: 3 minutes\n" +
		"Talking Points: Explain the 'three points' rule (OSHA, 2023)."
	pres := &domain.Presentation{Slides: []domain.Slide{{
		Number: 1,
		Shapes: []domain.Shape{titleShape("Ladders")},
		Notes: &domain.TextFrame{Paragraphs: []domain.Paragraph{
			{Runs: []domain.Run{{Text: notes, Font: "Arial", SizePt: 18}}},
		}},
	}}}
	cfg := testConfig()
	cfg.ExemptFirstSlide = false
	rep := newTestAnalyzer(cfg).Analyze(pres)

	assert.Empty(t, byCheck(rep.Issues, domain.CheckInstructional), "both critical headers are present")
	formatting := byCheck(rep.Issues, domain.CheckNotesFormatting)
	require.Len(t, formatting, 2)
	assert.Contains(t, formatting[0].Details, "Notes font is 'Arial'")
	assert.Contains(t, formatting[1].Details, "Notes size is 18pt")

	punct := byCheck(rep.Issues, domain.CheckPunctuation)
	require.Len(t, punct, 1)
	assert.Equal(t, notesShapeName, punct[0].ShapeName)
	assert.InDelta(t, 3.0, rep.Summary.Pacing.PlannedMin, 1e-9)
}

func TestAnalyzeMasterWarning(t *testing.T) {
	rep := newTestAnalyzer(testConfig()).Analyze(&domain.Presentation{MasterCount: 3})
	masters := byCheck(rep.Issues, domain.CheckTemplateMasters)
	require.Len(t, masters, 1)
	assert.Equal(t, domain.SeverityWarning, masters[0].Severity)
	assert.Equal(t, domain.PresentationShapeName, masters[0].ShapeName)
	assert.Equal(t, 3, rep.Summary.MasterSlideCount)
	assert.InDelta(t, 100.0, rep.Summary.ComplianceRate, 1e-9)
	assert.Equal(t, 1, rep.Summary.WarningCount)
}

func TestAnalyzerIsReusable(t *testing.T) {
	a := newTestAnalyzer(testConfig())
	first := a.Analyze(readDeck(t, threeSlideDeck()))
	second := a.Analyze(readDeck(t, threeSlideDeck()))
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.Issues, second.Issues)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b", snippet(" a\n b "))
	long := "abcdefghij abcdefghij abcdefghij abcdefghij abcdefghij"
	assert.Equal(t, long[:50]+"...", snippet(long))
}
