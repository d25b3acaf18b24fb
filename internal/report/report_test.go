package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slideaudit/internal/domain"
	"slideaudit/internal/integrations/llm"
	"slideaudit/internal/orchestrator"
)

func sampleReport() *domain.Report {
	return &domain.Report{
		Summary: domain.Summary{
			PresentationName:   "Ladder Safety: Basics",
			GeneratedAt:        time.Date(2026, 3, 2, 9, 30, 5, 0, time.UTC),
			MasterSlideCount:   2,
			SlidesChecked:      3,
			TotalIssues:        4,
			FailCount:          2,
			WarningCount:       1,
			ComplianceRate:     33.3,
			WCAGComplianceRate: 100,
			Gagne: []domain.EventShare{
				{Event: domain.GainAttention, SlideCount: 1, Minutes: 2, TimeShare: 57.1},
				{Event: domain.OtherEvent, SlideCount: 2, Minutes: 1.5, TimeShare: 42.9},
			},
			Pacing: domain.PacingSummary{
				PlannedMin: 2, ProjectedMin: 3,
				Sections: []domain.Section{{Name: "Intro | Setup", PlannedMin: 2, ProjectedMin: 3, SlideCount: 2}},
			},
			Content: domain.ContentMetrics{Jargon: 1},
		},
		Issues: []domain.Issue{
			{Slide: 0, Check: domain.CheckTemplateMasters, ShapeName: domain.PresentationShapeName, Severity: domain.SeverityWarning, Details: "Presentation uses 2 slide masters."},
			{Slide: 1, Check: domain.CheckStatus, ShapeName: domain.SlideShapeName, Severity: domain.SeverityExempt, Details: "Slide excluded from analysis."},
			{Slide: 2, Check: domain.CheckFontFamily, ShapeName: "Body", Severity: domain.SeverityFail, Details: "Font 'Comic Sans MS' is not allowed."},
			{Slide: 3, Check: domain.CheckTextContrast, ShapeName: "Caption", Severity: domain.SeverityFail, Details: "Contrast 1.6:1 fails WCAG 4.5:1.", SuggestedFix: "#767676"},
		},
		SlideContent: map[int]domain.SlideContent{
			1: {Title: "Welcome", Layout: "Title Slide", Exempt: true},
			2: {Title: "Why Ladders Fail", Layout: "Title and Content", Text: "Three points of contact", Notes: "Time: 2\nActivity: intro discussion about the most common ladder failures"},
			3: {Layout: "Blank"},
		},
		Timeline: []domain.SlideTiming{
			{Slide: 1, Section: "Intro | Setup", Exempt: true},
			{Slide: 2, Section: "Intro | Setup", Activity: "intro", PlannedMin: 2, ProjectedMin: 2, Funded: true, Events: []domain.GagneEvent{domain.GainAttention}},
			{Slide: 3, Section: "Intro | Setup", ImplicitMin: 1, ProjectedMin: 1},
		},
	}
}

func sampleOutcome() *orchestrator.Outcome {
	notes := "Do: Ask who has used a ladder this week.\nCLICK"
	return &orchestrator.Outcome{
		Suggestions: []orchestrator.Suggestion{
			{SlideNumber: 1, ClarityScore: orchestrator.ScoreNA, Exempt: true},
			{SlideNumber: 2, ClarityScore: "6", ToneAudit: "Too passive.", SuggestedNotes: &notes, Remediation: &orchestrator.Remediation{
				OptionA: orchestrator.Option{Label: "Polish Visuals", Text: "Align icons."},
				OptionB: orchestrator.Option{Label: "Simplify Visuals", Text: "Drop the clip art."},
			}},
		},
		Usage: llm.Usage{InputTokens: 900, OutputTokens: 100},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleReport(), sampleOutcome())

	assert.True(t, strings.HasPrefix(md, "# Audit Summary: Ladder Safety: Basics\n"))
	assert.Contains(t, md, "| Compliance | 33.3% |")
	assert.Contains(t, md, "| WCAG compliance | 100.0% |")
	assert.Contains(t, md, "| Intro \\| Setup | 2 | 2.0 | 3.0 |")
	assert.Contains(t, md, "| Gain Attention | 1 | 2.0 | 57.1% |")
	assert.Contains(t, md, "### Presentation")
	assert.Contains(t, md, "### Slide 2: Why Ladders Fail")
	assert.Contains(t, md, "### Slide 3: Untitled")
	assert.Contains(t, md, "Suggested: #767676")
	assert.Contains(t, md, "### Slide 2 (clarity 6)")
	assert.Contains(t, md, "> Do: Ask who has used a ladder this week.\n> CLICK\n")
	assert.Contains(t, md, "- **Polish Visuals:** Align icons.")
	assert.NotContains(t, md, "### Slide 1 (clarity")
	assert.Contains(t, md, "_Tokens used: 1000_")

	// Failing checks rank first; EXEMPT rows are not counted.
	byCheck := md[strings.Index(md, "## Issues by Check"):strings.Index(md, "## Slides")]
	assert.NotContains(t, byCheck, string(domain.CheckStatus))
	assert.Less(t, strings.Index(byCheck, string(domain.CheckFontFamily)), strings.Index(byCheck, string(domain.CheckTemplateMasters)))

	assert.NotContains(t, Markdown(sampleReport(), nil), "## Notes Suggestions")
}

func TestHTML(t *testing.T) {
	page, err := HTML("A <b> deck", "# Title\n\n| A | B |\n|---|---|\n| 1 | 2 |\n\n<script>alert(1)</script>\n")
	require.NoError(t, err)
	assert.Contains(t, page, "<title>A &lt;b&gt; deck</title>")
	assert.Contains(t, page, "<h1>Title</h1>")
	assert.Contains(t, page, "<table>")
	assert.NotContains(t, page, "<script>")
	assert.True(t, strings.HasSuffix(page, "</body></html>\n"))
}

func TestTranscript(t *testing.T) {
	tr := Transcript(sampleReport())
	assert.Contains(t, tr, "--- SLIDE 1: Welcome [Title Slide] (exempt) ---")
	assert.Contains(t, tr, "ON-SCREEN TEXT:\nThree points of contact\n")
	assert.Contains(t, tr, "SPEAKER NOTES:\n(none)\n")
	assert.Contains(t, tr, "2     | Gain Attention                           | 2.0   | EXPLICIT  | Time: 2 Activity: intro discussion about the ...")
	assert.Contains(t, tr, "3     | UNTAGGED")
	assert.Contains(t, tr, "CALCULATED TOTAL DURATION: 3.0 Minutes")
	assert.Contains(t, tr, "1     | UNTAGGED                                 | 0.0   | EXEMPT    | (No Notes)")
}

func TestPacingCSV(t *testing.T) {
	data, err := PacingCSV(sampleReport())
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, pacingHeader, rows[0])
	assert.Equal(t, []string{"2", "Intro | Setup", "intro", "Gain Attention", "2.00", "0.00", "2.00", "0.00", "true",
		"Time: 2 Activity: intro discussion about the ..."}, rows[2])
	assert.Equal(t, "(No Notes)", rows[3][9])
	assert.Equal(t, "1.00", rows[3][7])
}

func TestWriterWritesAllArtifacts(t *testing.T) {
	root := t.TempDir()
	rep := sampleReport()
	a, err := NewWriter(root, nil).Write(rep, sampleOutcome())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "Ladder_Safety__Basics_20260302_093005"), a.Dir)
	for _, p := range []string{a.JSON, a.Markdown, a.HTML, a.Transcript, a.PacingCSV, a.Suggestions} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.NotZero(t, info.Size(), p)
	}

	data, err := os.ReadFile(a.JSON)
	require.NoError(t, err)
	var decoded domain.Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rep.Summary.ComplianceRate, decoded.Summary.ComplianceRate)
	assert.Len(t, decoded.Issues, 4)
	assert.Equal(t, domain.SeverityFail, decoded.Issues[2].Severity)
	assert.Equal(t, "Why Ladders Fail", decoded.SlideContent[2].Title)

	raw, err := os.ReadFile(a.Suggestions)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"clarity_score": "N/A"`)
}

func TestWriterWithoutSuggestions(t *testing.T) {
	a, err := NewWriter(t.TempDir(), nil).Write(sampleReport(), nil)
	require.NoError(t, err)
	assert.Empty(t, a.Suggestions)
	_, err = os.Stat(filepath.Join(a.Dir, SuggestionsFile))
	assert.True(t, os.IsNotExist(err))
}

func TestReportDirFallsBackForBlankName(t *testing.T) {
	rep := sampleReport()
	rep.Summary.PresentationName = "  "
	assert.Equal(t, filepath.Join("out", "presentation_20260302_093005"), ReportDir("out", rep))
}
