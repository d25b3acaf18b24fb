package domain

type Severity string

const (
	SeverityFail         Severity = "FAIL"
	SeverityWarning      Severity = "WARNING"
	SeverityInfo         Severity = "INFO"
	SeverityManualReview Severity = "MANUAL_REVIEW"
	SeverityExempt       Severity = "EXEMPT"
)

// Check names the rule category an issue belongs to.
type Check string

const (
	CheckStatus          Check = "Status"
	CheckReadingOrder    Check = "Accessibility - Reading Order"
	CheckAltText         Check = "Accessibility - Alt Text"
	CheckTextContrast    Check = "WCAG Text Contrast"
	CheckGraphicContrast Check = "WCAG Graphic Contrast"
	CheckFontFamily      Check = "Font Rules - Family"
	CheckFontSize        Check = "Font Rules - Size"
	CheckFontWeight      Check = "Font Rules - Weight"
	CheckBrandColor      Check = "Brand Consistency"
	CheckLinks           Check = "Usability - Links"
	CheckPunctuation     Check = "Style - Punctuation"
	CheckSpelling        Check = "Copyediting - Spelling"
	CheckCitations       Check = "Instructional Design - Citations"
	CheckInstructional   Check = "Instructional Design"
	CheckReadingLevel    Check = "Clarity - Reading Level"
	CheckTone            Check = "Clarity - Tone"
	CheckJargon          Check = "Brand Voice - Jargon"
	CheckNotesFormatting Check = "Notes Formatting"
	CheckTemplateMasters Check = "Template - Masters"
)

// Shape names used for issues that are not tied to a single shape.
const (
	PresentationShapeName = "Presentation"
	SlideShapeName        = "Slide"
)

// IsContrast reports whether the check is one of the WCAG contrast rules.
func (c Check) IsContrast() bool {
	return c == CheckTextContrast || c == CheckGraphicContrast
}

type Issue struct {
	Slide        int      `json:"slide"`
	Check        Check    `json:"check"`
	ShapeName    string   `json:"shape_name"`
	Severity     Severity `json:"result"`
	Details      string   `json:"details"`
	Ratio        float64  `json:"ratio,omitempty"`
	Foreground   string   `json:"foreground,omitempty"`
	Background   string   `json:"background,omitempty"`
	SuggestedFix string   `json:"suggested_fix,omitempty"`
}
