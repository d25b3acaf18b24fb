// Package clarity scores prose for reading level, passive voice and weak
// or jargon-heavy wording.
package clarity

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"slideaudit/internal/config"
	"slideaudit/internal/domain"
)

type Context int

const (
	ContextSlide Context = iota
	ContextNotes
)

const (
	minReadingWords = 7
	minClarityWords = 4
	maxSuggestions  = 3
	notesGradeSlack = 4
	notesGradeFloor = 14
)

var passiveRe = regexp.MustCompile(`\b(am|is|are|was|were|be|been|being)\s+\w+ed\b`)

// Finding is a single clarity result before it is attached to a shape.
type Finding struct {
	Check    domain.Check
	Severity domain.Severity
	Details  string
}

type jargonRule struct {
	word    string
	simpler string
	re      *regexp.Regexp
}

type Engine struct {
	targetGrade float64
	weasel      []string
	weaselRes   []*regexp.Regexp
	jargon      []jargonRule
}

func wordRe(w string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(w)) + `\b`)
}

// New builds an engine. Jargon rules are applied in alphabetical order so
// output is stable.
func New(targetGrade float64, weasel []string, jargon map[string]string) *Engine {
	e := &Engine{targetGrade: targetGrade}
	for _, w := range weasel {
		if strings.TrimSpace(w) == "" {
			continue
		}
		e.weasel = append(e.weasel, w)
		e.weaselRes = append(e.weaselRes, wordRe(w))
	}
	keys := make([]string, 0, len(jargon))
	for k := range jargon {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e.jargon = append(e.jargon, jargonRule{word: k, simpler: jargon[k], re: wordRe(k)})
	}
	return e
}

func FromConfig(cfg config.Config) *Engine {
	return New(cfg.TargetReadingGrade, cfg.WeaselWords, cfg.Jargon)
}

// ReadingLevel flags text above the target grade on slides, or above
// max(target+4, 14) in notes. Fewer than seven words are not scored.
func (e *Engine) ReadingLevel(text string, ctx Context) *Finding {
	if len(strings.Fields(text)) < minReadingWords {
		return nil
	}
	grade := FleschKincaidGrade(text)
	if ctx == ContextNotes {
		limit := e.targetGrade + notesGradeSlack
		if limit < notesGradeFloor {
			limit = notesGradeFloor
		}
		if grade > limit {
			return &Finding{
				Check:    domain.CheckReadingLevel,
				Severity: domain.SeverityInfo,
				Details:  fmt.Sprintf("Note Complexity: Grade %.1f. Ensure this is easy to read aloud.", grade),
			}
		}
		return nil
	}
	if grade > e.targetGrade {
		return &Finding{
			Check:    domain.CheckReadingLevel,
			Severity: domain.SeverityWarning,
			Details:  fmt.Sprintf("Reading Level High: Grade %.1f (Target: < %g). Simplify sentence structure.", grade, e.targetGrade),
		}
	}
	return nil
}

// PassiveVoice is a heuristic: a form of "to be" followed by an -ed word.
func (e *Engine) PassiveVoice(text string, ctx Context) *Finding {
	if !passiveRe.MatchString(strings.ToLower(text)) {
		return nil
	}
	sev := domain.SeverityWarning
	if ctx == ContextNotes {
		sev = domain.SeverityInfo
	}
	return &Finding{
		Check:    domain.CheckTone,
		Severity: sev,
		Details:  "Passive Voice detected. Use Active Voice for stronger authority.",
	}
}

// BadHabits lists weasel words then jargon, capped at three suggestions.
func (e *Engine) BadHabits(text string) *Finding {
	lower := strings.ToLower(text)
	var items []string
	for i, re := range e.weaselRes {
		if re.MatchString(lower) {
			items = append(items, fmt.Sprintf("Avoid '%s'", e.weasel[i]))
		}
	}
	for _, j := range e.jargon {
		if j.re.MatchString(lower) {
			items = append(items, fmt.Sprintf("Replace '%s' with '%s'", j.word, j.simpler))
		}
	}
	if len(items) == 0 {
		return nil
	}
	if len(items) > maxSuggestions {
		items = items[:maxSuggestions]
	}
	return &Finding{
		Check:    domain.CheckJargon,
		Severity: domain.SeverityWarning,
		Details:  "Style Suggestions: " + strings.Join(items, ", "),
	}
}

// Check runs all three clarity rules on text of four or more words.
func (e *Engine) Check(text, shapeName string, slideNum int, ctx Context) []domain.Issue {
	if len(strings.Fields(text)) < minClarityWords {
		return nil
	}
	var issues []domain.Issue
	for _, f := range []*Finding{e.ReadingLevel(text, ctx), e.PassiveVoice(text, ctx), e.BadHabits(text)} {
		if f == nil {
			continue
		}
		issues = append(issues, domain.Issue{
			Slide:     slideNum,
			Check:     f.Check,
			ShapeName: shapeName,
			Severity:  f.Severity,
			Details:   f.Details,
		})
	}
	return issues
}
