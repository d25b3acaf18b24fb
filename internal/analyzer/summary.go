package analyzer

import (
	"slideaudit/internal/domain"
	"slideaudit/internal/pacing"
)

// summarize aggregates issue counts and the two slide-level pass rates.
// ComplianceRate counts a slide as failing on any FAIL; WCAGComplianceRate
// only on a FAIL from a contrast check. Exempt slides are in the
// denominator and never fail.
func summarize(pres *domain.Presentation, issues []domain.Issue, paced pacing.Result) domain.Summary {
	s := domain.Summary{
		PresentationName: pres.Name,
		MasterSlideCount: pres.MasterCount,
		SlidesChecked:    len(pres.Slides),
		TotalIssues:      len(issues),
		Gagne:            paced.Events,
		Pacing:           paced.Summary,
	}
	failing := make(map[int]bool)
	wcagFailing := make(map[int]bool)
	for _, iss := range issues {
		switch iss.Severity {
		case domain.SeverityFail:
			s.FailCount++
			if iss.Slide > 0 {
				failing[iss.Slide] = true
				if iss.Check.IsContrast() {
					wcagFailing[iss.Slide] = true
				}
			}
		case domain.SeverityWarning:
			s.WarningCount++
		case domain.SeverityManualReview:
			s.ManualReviews++
		}
		switch iss.Check {
		case domain.CheckReadingLevel:
			s.Content.ReadingLevelFlags++
		case domain.CheckTone:
			s.Content.PassiveVoice++
		case domain.CheckJargon:
			s.Content.Jargon++
		}
	}
	s.ComplianceRate = passRate(s.SlidesChecked, len(failing))
	s.WCAGComplianceRate = passRate(s.SlidesChecked, len(wcagFailing))
	return s
}

func passRate(checked, failing int) float64 {
	if checked == 0 {
		return 100
	}
	return round1(float64(checked-failing) / float64(checked) * 100)
}
