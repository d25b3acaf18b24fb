package analyzer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"slideaudit/internal/background"
	"slideaudit/internal/colormath"
	"slideaudit/internal/domain"
)

const snippetLen = 50

// textContrast checks every non-blank run against the resolved background.
// Text over an image or table yields a single MANUAL_REVIEW per shape.
func (r *run) textContrast(shape *domain.Shape, slide *domain.Slide) []domain.Issue {
	bg := background.Resolve(shape, slide)
	var issues []domain.Issue
	for _, tr := range shape.Text.Runs() {
		text := strings.TrimSpace(tr.Text)
		if text == "" {
			continue
		}
		if !bg.Determinable() {
			return append(issues, domain.Issue{
				Slide:     slide.Number,
				Check:     domain.CheckTextContrast,
				ShapeName: shape.Name,
				Severity:  domain.SeverityManualReview,
				Details:   fmt.Sprintf("Text '%s' is over %s. Verify contrast manually.", snippet(text), bgLabel(bg)),
			})
		}
		fg := domain.Black
		if tr.Color != nil {
			fg = *tr.Color
		}
		ratio := colormath.ContrastRatio(fg, bg.Color)
		bold := tr.Bold != nil && *tr.Bold
		req := r.a.thresholds.RequiredRatio(tr.SizePt, bold)
		if ratio >= req {
			continue
		}
		fix := colormath.FindCompliantColor(fg, bg.Color, req)
		issues = append(issues, domain.Issue{
			Slide:        slide.Number,
			Check:        domain.CheckTextContrast,
			ShapeName:    shape.Name,
			Severity:     domain.SeverityFail,
			Details:      fmt.Sprintf("Contrast %.1f:1 fails WCAG %g:1. Text: %s on Bg: %s.", ratio, req, fg.Hex(), bg.Color.Hex()),
			Ratio:        round1(ratio),
			Foreground:   fg.Hex(),
			Background:   bg.Color.Hex(),
			SuggestedFix: fix.Hex(),
		})
	}
	return issues
}

// graphicContrast checks text-less opaque solid shapes against whatever
// lies beneath them. Over an image or table it asks for a manual review.
func (r *run) graphicContrast(shape *domain.Shape, slide *domain.Slide) []domain.Issue {
	if shape.HasText() || !shape.Fill.OpaqueSolid() {
		return nil
	}
	bg := background.ResolveBehind(shape, slide)
	if !bg.Determinable() {
		return []domain.Issue{{
			Slide:     slide.Number,
			Check:     domain.CheckGraphicContrast,
			ShapeName: shape.Name,
			Severity:  domain.SeverityManualReview,
			Details:   fmt.Sprintf("Object over %s. Verify contrast manually.", bgLabel(bg)),
		}}
	}
	fill := *shape.Fill.Color
	ratio := colormath.ContrastRatio(fill, bg.Color)
	if ratio >= r.a.graphic {
		return nil
	}
	return []domain.Issue{{
		Slide:        slide.Number,
		Check:        domain.CheckGraphicContrast,
		ShapeName:    shape.Name,
		Severity:     domain.SeverityFail,
		Details:      fmt.Sprintf("Low contrast graphics. Ratio: %.1f:1", ratio),
		Ratio:        round1(ratio),
		Foreground:   fill.Hex(),
		Background:   bg.Color.Hex(),
		SuggestedFix: colormath.FindCompliantColor(fill, bg.Color, r.a.graphic).Hex(),
	}}
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= snippetLen {
		return text
	}
	return string([]rune(text)[:snippetLen]) + "..."
}

func bgLabel(bg background.Result) string {
	if bg.Kind == background.KindTable {
		return "Table"
	}
	return "Image"
}
