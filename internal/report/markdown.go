package report

import (
	"fmt"
	"sort"
	"strings"

	"slideaudit/internal/domain"
	"slideaudit/internal/orchestrator"
)

// Markdown renders the human summary of an audit. outcome may be nil.
func Markdown(rep *domain.Report, outcome *orchestrator.Outcome) string {
	s := rep.Summary
	var b strings.Builder
	fmt.Fprintf(&b, "# Audit Summary: %s\n\n", s.PresentationName)
	fmt.Fprintf(&b, "Generated %s\n\n", s.GeneratedAt.Format("2006-01-02 15:04"))

	b.WriteString("## Scorecard\n\n| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Slides checked | %d |\n", s.SlidesChecked)
	fmt.Fprintf(&b, "| Compliance | %.1f%% |\n", s.ComplianceRate)
	fmt.Fprintf(&b, "| WCAG compliance | %.1f%% |\n", s.WCAGComplianceRate)
	fmt.Fprintf(&b, "| Failures | %d |\n", s.FailCount)
	fmt.Fprintf(&b, "| Warnings | %d |\n", s.WarningCount)
	fmt.Fprintf(&b, "| Manual reviews | %d |\n", s.ManualReviews)
	fmt.Fprintf(&b, "| Slide masters | %d |\n\n", s.MasterSlideCount)

	p := s.Pacing
	b.WriteString("## Pacing\n\n")
	fmt.Fprintf(&b, "- **Planned:** %.1f min\n- **Projected:** %.1f min\n- **Activity buffer:** %.1f min\n\n",
		p.PlannedMin, p.ProjectedMin, p.ActivityBuffer)
	if len(p.Sections) > 0 {
		b.WriteString("| Section | Slides | Planned | Projected |\n|---|---|---|---|\n")
		for _, sec := range p.Sections {
			fmt.Fprintf(&b, "| %s | %d | %.1f | %.1f |\n", cell(sec.Name), sec.SlideCount, sec.PlannedMin, sec.ProjectedMin)
		}
		b.WriteString("\n")
	}

	if len(s.Gagne) > 0 {
		b.WriteString("## Gagné Events\n\n| Event | Slides | Minutes | Share |\n|---|---|---|---|\n")
		for _, e := range s.Gagne {
			fmt.Fprintf(&b, "| %s | %d | %.1f | %.1f%% |\n", e.Event, e.SlideCount, e.Minutes, e.TimeShare)
		}
		b.WriteString("\n")
	}

	c := s.Content
	b.WriteString("## Content\n\n")
	fmt.Fprintf(&b, "- Reading level flags: %d\n- Passive voice: %d\n- Jargon: %d\n\n", c.ReadingLevelFlags, c.PassiveVoice, c.Jargon)

	if counts := checkCounts(rep.Issues); len(counts) > 0 {
		b.WriteString("## Issues by Check\n\n| Check | Fail | Warning | Review |\n|---|---|---|---|\n")
		for _, cc := range counts {
			fmt.Fprintf(&b, "| %s | %d | %d | %d |\n", cc.check, cc.fail, cc.warn, cc.review)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Slides\n\n")
	for _, n := range slideNumbers(rep) {
		issues := rep.IssuesForSlide(n)
		if len(issues) == 0 {
			continue
		}
		if n == 0 {
			b.WriteString("### Presentation\n\n")
		} else {
			title := rep.SlideContent[n].Title
			if title == "" {
				title = "Untitled"
			}
			fmt.Fprintf(&b, "### Slide %d: %s\n\n", n, title)
		}
		for _, iss := range issues {
			fmt.Fprintf(&b, "- **[%s] %s** (%s): %s", iss.Severity, iss.Check, iss.ShapeName, iss.Details)
			if iss.SuggestedFix != "" {
				fmt.Fprintf(&b, " Suggested: %s", iss.SuggestedFix)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if outcome != nil && len(outcome.Suggestions) > 0 {
		b.WriteString("## Notes Suggestions\n\n")
		for _, sg := range outcome.Suggestions {
			if sg.Exempt {
				continue
			}
			fmt.Fprintf(&b, "### Slide %d (clarity %s)\n\n", sg.SlideNumber, sg.ClarityScore)
			if sg.ToneAudit != "" {
				fmt.Fprintf(&b, "%s\n\n", sg.ToneAudit)
			}
			if sg.SuggestedNotes != nil {
				for _, line := range strings.Split(*sg.SuggestedNotes, "\n") {
					fmt.Fprintf(&b, "> %s\n", line)
				}
				b.WriteString("\n")
			}
			if r := sg.Remediation; r != nil {
				fmt.Fprintf(&b, "- **%s:** %s\n- **%s:** %s\n\n", r.OptionA.Label, r.OptionA.Text, r.OptionB.Label, r.OptionB.Text)
			}
		}
		fmt.Fprintf(&b, "_Tokens used: %d_\n", outcome.Usage.TotalTokens())
	}
	return b.String()
}

type checkCount struct {
	check              domain.Check
	fail, warn, review int
}

func checkCounts(issues []domain.Issue) []checkCount {
	idx := make(map[domain.Check]int)
	var out []checkCount
	for _, iss := range issues {
		i, ok := idx[iss.Check]
		if !ok {
			switch iss.Severity {
			case domain.SeverityFail, domain.SeverityWarning, domain.SeverityManualReview:
			default:
				continue
			}
			i = len(out)
			idx[iss.Check] = i
			out = append(out, checkCount{check: iss.Check})
		}
		switch iss.Severity {
		case domain.SeverityFail:
			out[i].fail++
		case domain.SeverityWarning:
			out[i].warn++
		case domain.SeverityManualReview:
			out[i].review++
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].fail != out[j].fail {
			return out[i].fail > out[j].fail
		}
		return out[i].check < out[j].check
	})
	return out
}

// slideNumbers lists every slide with content or issues, presentation-level
// (0) first.
func slideNumbers(rep *domain.Report) []int {
	seen := make(map[int]bool)
	var out []int
	add := func(n int) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	for n := range rep.SlideContent {
		add(n)
	}
	for _, iss := range rep.Issues {
		add(iss.Slide)
	}
	sort.Ints(out)
	return out
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
