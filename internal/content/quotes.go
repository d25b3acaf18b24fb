package content

import (
	"fmt"
	"strings"
	"unicode"

	"slideaudit/internal/domain"
)

type span struct{ start, end int }

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// doubleQuotedSpans returns rune ranges enclosed by straight or curly
// double quotes. Quotes pair left to right.
func doubleQuotedSpans(runes []rune) []span {
	var out []span
	for i := 0; i < len(runes); i++ {
		if runes[i] != '"' && runes[i] != '“' {
			continue
		}
		for j := i + 1; j < len(runes); j++ {
			if runes[j] == '"' || runes[j] == '”' {
				out = append(out, span{i, j + 1})
				i = j
				break
			}
		}
	}
	return out
}

// singleQuotedSpans finds 'phrase' or ‘phrase’ where the opening quote does
// not follow a word character and the closing quote is not followed by one,
// so apostrophes in contractions and possessives are left alone.
func singleQuotedSpans(runes []rune) []span {
	var out []span
	for i := 0; i < len(runes); i++ {
		if runes[i] != '\'' && runes[i] != '‘' {
			continue
		}
		if i > 0 && isWordRune(runes[i-1]) {
			continue
		}
		for j := i + 2; j < len(runes); j++ {
			if runes[j] != '\'' && runes[j] != '’' {
				continue
			}
			if j+1 < len(runes) && isWordRune(runes[j+1]) {
				continue
			}
			out = append(out, span{i, j + 1})
			i = j
			break
		}
	}
	return out
}

// SingleQuoteOffenders lists single-quoted phrases outside double-quoted
// passages, skipping anything of two characters or fewer.
func SingleQuoteOffenders(text string) []string {
	runes := []rune(text)
	safe := doubleQuotedSpans(runes)
	var offenders []string
	for _, s := range singleQuotedSpans(runes) {
		inside := false
		for _, z := range safe {
			if z.start <= s.start && s.end <= z.end {
				inside = true
				break
			}
		}
		if inside {
			continue
		}
		phrase := strings.TrimSpace(string(runes[s.start:s.end]))
		if len([]rune(phrase)) > 2 {
			offenders = append(offenders, phrase)
		}
	}
	return offenders
}

func CheckSingleQuotes(text, shapeName string, slideNum int) []domain.Issue {
	offenders := SingleQuoteOffenders(text)
	if len(offenders) == 0 {
		return nil
	}
	return []domain.Issue{{
		Slide:     slideNum,
		Check:     domain.CheckPunctuation,
		ShapeName: shapeName,
		Severity:  domain.SeverityFail,
		Details:   fmt.Sprintf("Do not use single quotes for emphasis. Found: %s", strings.Join(offenders, ", ")),
	}}
}
