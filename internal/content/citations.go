package content

import (
	"regexp"
	"strings"

	"slideaudit/internal/domain"
)

var facilitationKeywords = []string{
	"Talking Points:", "Instructional Activity:", "Do:", "Say:", "Transition:", "Instructor Guide", "Script:",
}

var (
	apaCitationRe   = regexp.MustCompile(`\([A-Za-z\s&]+,\s?\d{4}\)`)
	sourceHeaderRe  = regexp.MustCompile(`(?i)(Source:|Sources:|Reference:|References:|Bibliography:|Works Cited:)`)
	numericCiteRe   = regexp.MustCompile(`(\[\d+\]|\(\d+\)|Source\s+\d+)`)
	citationStartRe = regexp.MustCompile(`(?i)(sources?\s*:|references?\s*:|bibliography\s*:|works\s+cited\s*:)`)
	httpRe          = regexp.MustCompile(`(?i)http`)
)

const citationWordThreshold = 50

// HasCitation reports an APA-style citation, a source header or a numeric reference.
func HasCitation(text string) bool {
	return apaCitationRe.MatchString(text) || sourceHeaderRe.MatchString(text) || numericCiteRe.MatchString(text)
}

// CheckCitations warns when a block of more than 50 words carries no
// citation. Facilitator scripts are exempt.
func CheckCitations(text, shapeName string, slideNum int) []domain.Issue {
	for _, k := range facilitationKeywords {
		if strings.Contains(text, k) {
			return nil
		}
	}
	if HasCitation(text) || len(strings.Fields(text)) <= citationWordThreshold {
		return nil
	}
	return []domain.Issue{{
		Slide:     slideNum,
		Check:     domain.CheckCitations,
		ShapeName: shapeName,
		Severity:  domain.SeverityWarning,
		Details:   "Large text block appears missing APA citation or Source header.",
	}}
}

// StripCitations removes a trailing reference section so it does not skew
// the prose checks. A source header in the back half of the text cuts
// everything from the earliest such header; failing that, a URL in the last
// fifth cuts from the URL.
func StripCitations(text string) string {
	if text == "" {
		return ""
	}
	half := len(text) / 2
	for _, m := range citationStartRe.FindAllStringIndex(text, -1) {
		if m[0] > half {
			return strings.TrimSpace(text[:m[0]])
		}
	}
	split := len(text) * 8 / 10
	if loc := httpRe.FindStringIndex(text[split:]); loc != nil {
		return strings.TrimSpace(text[:split+loc[0]])
	}
	return text
}
