// Package content holds the shape- and text-level checks that do not depend
// on color math: accessibility structure, punctuation, spelling, citations,
// links and speaker-note headers.
package content

import (
	"fmt"
	"strings"

	"slideaudit/internal/colormath"
	"slideaudit/internal/config"
	"slideaudit/internal/domain"
	"slideaudit/internal/fonts"
)

const notesShapeName = "Speaker Notes"

type Checker struct {
	ExemptNames     []string
	SlideHeight     int64
	Palette         []domain.RGB
	RequiredHeaders []string
	CriticalHeaders []string
	Speller         *Speller // nil disables spelling
}

func NewChecker(cfg config.Config, slideHeight int64, speller *Speller) *Checker {
	return &Checker{
		ExemptNames:     cfg.ExemptShapeNames,
		SlideHeight:     slideHeight,
		Palette:         colormath.ParsePalette(cfg.BrandColors),
		RequiredHeaders: cfg.RequiredHeaders,
		CriticalHeaders: cfg.CriticalHeaders,
		Speller:         speller,
	}
}

// IsExemptShape skips footer/slide-number/date placeholders, helper shapes
// named like animation masks, and copyright lines in the bottom fifth of the slide.
func (c *Checker) IsExemptShape(shape *domain.Shape) bool {
	switch shape.Placeholder {
	case domain.PlaceholderSlideNumber, domain.PlaceholderFooter, domain.PlaceholderDate:
		return true
	}
	name := strings.ToLower(shape.Name)
	for _, n := range c.ExemptNames {
		if n != "" && strings.Contains(name, strings.ToLower(n)) {
			return true
		}
	}
	if shape.HasText() && c.SlideHeight > 0 {
		text := strings.ToLower(shape.Text.Text())
		if strings.Contains(text, "copyright") || strings.Contains(text, "rights reserved") {
			if float64(shape.Geometry.Top) > float64(c.SlideHeight)*0.8 {
				return true
			}
		}
	}
	return false
}

// CheckReadingOrder fails slides with no title placeholder and any
// non-exempt shape drawn above the canonical title that overlaps it.
func (c *Checker) CheckReadingOrder(slide *domain.Slide) []domain.Issue {
	title := fonts.CanonicalTitle(slide)
	if title == nil {
		return []domain.Issue{{
			Slide:     slide.Number,
			Check:     domain.CheckReadingOrder,
			ShapeName: domain.SlideShapeName,
			Severity:  domain.SeverityFail,
			Details:   "Slide missing standard Title placeholder.",
		}}
	}
	// Only shapes drawn above the title can obscure it.
	start := 0
	for i := range slide.Shapes {
		if &slide.Shapes[i] == title {
			start = i + 1
			break
		}
	}
	var issues []domain.Issue
	for i := start; i < len(slide.Shapes); i++ {
		s := &slide.Shapes[i]
		if s == title || c.IsExemptShape(s) {
			continue
		}
		if s.Geometry.Overlaps(title.Geometry) {
			issues = append(issues, domain.Issue{
				Slide:     slide.Number,
				Check:     domain.CheckReadingOrder,
				ShapeName: s.Name,
				Severity:  domain.SeverityFail,
				Details:   fmt.Sprintf("Object '%s' obscures the Title.", s.Name),
			})
		}
	}
	return issues
}

// CheckAltText fails non-decorative pictures without a description,
// including pictures nested in groups.
func CheckAltText(shape *domain.Shape, slideNum int) []domain.Issue {
	var issues []domain.Issue
	if shape.Kind == domain.ShapePicture && !shape.Decorative && strings.TrimSpace(shape.AltText) == "" {
		issues = append(issues, domain.Issue{
			Slide:     slideNum,
			Check:     domain.CheckAltText,
			ShapeName: shape.Name,
			Severity:  domain.SeverityFail,
			Details:   fmt.Sprintf("Image '%s' is missing Alt Text.", shape.Name),
		})
	}
	for i := range shape.Children {
		issues = append(issues, CheckAltText(&shape.Children[i], slideNum)...)
	}
	return issues
}

// CheckHyperlinks reports every external link as INFO.
func CheckHyperlinks(shape *domain.Shape, slideNum int) []domain.Issue {
	var issues []domain.Issue
	for _, run := range shape.Text.Runs() {
		addr := strings.TrimSpace(run.Hyperlink)
		if addr == "" || strings.HasPrefix(addr, "#") {
			continue
		}
		issues = append(issues, domain.Issue{
			Slide:     slideNum,
			Check:     domain.CheckLinks,
			ShapeName: shape.Name,
			Severity:  domain.SeverityInfo,
			Details:   fmt.Sprintf("External Link found: %s", addr),
		})
	}
	return issues
}

// CheckBrandColor fails solid fills outside the configured palette.
func (c *Checker) CheckBrandColor(shape *domain.Shape, slideNum int) []domain.Issue {
	if len(c.Palette) == 0 || shape.Fill == nil || shape.Fill.Kind != domain.FillSolid || shape.Fill.Color == nil {
		return nil
	}
	if colormath.InPalette(*shape.Fill.Color, c.Palette) {
		return nil
	}
	return []domain.Issue{{
		Slide:     slideNum,
		Check:     domain.CheckBrandColor,
		ShapeName: shape.Name,
		Severity:  domain.SeverityFail,
		Details:   fmt.Sprintf("Non-brand object color found: %s", shape.Fill.Color.Hex()),
	}}
}

// CheckRequiredHeaders fails notes missing any critical header. Matching is
// case-insensitive.
func (c *Checker) CheckRequiredHeaders(notes string, slideNum int) []domain.Issue {
	lower := strings.ToLower(notes)
	var issues []domain.Issue
	for _, h := range c.RequiredHeaders {
		if strings.Contains(lower, strings.ToLower(h)) || !c.isCritical(h) {
			continue
		}
		issues = append(issues, domain.Issue{
			Slide:     slideNum,
			Check:     domain.CheckInstructional,
			ShapeName: notesShapeName,
			Severity:  domain.SeverityFail,
			Details:   fmt.Sprintf("Missing critical header: '%s'", h),
		})
	}
	return issues
}

func (c *Checker) isCritical(header string) bool {
	for _, h := range c.CriticalHeaders {
		if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(header)) {
			return true
		}
	}
	return false
}

// CheckText runs the punctuation and spelling checks shared by slide text
// and speaker notes.
func (c *Checker) CheckText(text, shapeName string, slideNum int) []domain.Issue {
	var issues []domain.Issue
	issues = append(issues, CheckSingleQuotes(text, shapeName, slideNum)...)
	if c.Speller != nil {
		issues = append(issues, c.Speller.Check(text, shapeName, slideNum)...)
	}
	return issues
}
