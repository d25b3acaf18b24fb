// Package fonts enforces the brand typography rules for titles, body text
// and speaker notes.
package fonts

import (
	"fmt"
	"sort"
	"strings"

	"slideaudit/internal/colormath"
	"slideaudit/internal/config"
	"slideaudit/internal/domain"
)

const (
	majorAlias = "+mj-lt"
	minorAlias = "+mn-lt"

	defaultNotesSize = 12.0
	sampleLen        = 20
	notesShapeName   = "Speaker Notes"
)

type Rules struct {
	TitleFont        string
	TitleSizeMin     float64
	TitleSizeMax     float64
	TitleMustBeBold  bool
	BodyFont         string
	AllowedBodyFonts []string
	BodySizeMin      float64
	ThemeFonts       map[string]string

	NotesFont    string
	NotesSizeMin float64
	NotesSizeMax float64
	NotesColor   *domain.RGB
}

func RulesFromConfig(cfg config.Config) Rules {
	r := Rules{
		TitleFont:        cfg.TitleFont,
		TitleSizeMin:     cfg.TitleFontSizeMin,
		TitleSizeMax:     cfg.TitleFontSizeMax,
		TitleMustBeBold:  cfg.TitleMustBeBold,
		BodyFont:         cfg.BodyFont,
		AllowedBodyFonts: cfg.AllowedBodyFonts,
		BodySizeMin:      cfg.BodyFontSizeMin,
		ThemeFonts:       cfg.ThemeFonts,
		NotesFont:        cfg.NotesFont,
		NotesSizeMin:     cfg.NotesFontSizeMin,
		NotesSizeMax:     cfg.NotesFontSizeMax,
	}
	if c, err := colormath.ParseHex(cfg.NotesFontColor); err == nil {
		r.NotesColor = &c
	}
	return r
}

// Resolve maps a theme alias to its configured font. An empty name falls
// back to the body font.
func (r Rules) Resolve(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		if r.BodyFont != "" {
			return r.BodyFont
		}
		return "Calibri"
	}
	if mapped, ok := r.ThemeFonts[strings.ToLower(name)]; ok && mapped != "" {
		return mapped
	}
	return name
}

// rawName is the font name as authored, with inherited runs shown as the
// theme alias for their role.
func rawName(run domain.Run, title bool) string {
	if strings.TrimSpace(run.Font) != "" {
		return run.Font
	}
	if title {
		return majorAlias
	}
	return minorAlias
}

// VisuallyBold treats unset weight as bold since title placeholders usually
// inherit bold from the master, and accepts heavy face names.
func VisuallyBold(run domain.Run, fontName string) bool {
	if run.Bold == nil || *run.Bold {
		return true
	}
	lower := strings.ToLower(fontName)
	for _, w := range []string{"bold", "black", "heavy"} {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func sample(text string) string {
	text = strings.TrimSpace(text)
	r := []rune(text)
	if len(r) > sampleLen {
		r = r[:sampleLen]
	}
	return string(r) + "..."
}

func (r Rules) allowedBody(font string) bool {
	for _, f := range r.AllowedBodyFonts {
		if strings.EqualFold(strings.TrimSpace(f), font) {
			return true
		}
	}
	return strings.EqualFold(r.BodyFont, font)
}

// TitleCandidates returns title and centered-title placeholders ordered top to bottom.
func TitleCandidates(slide *domain.Slide) []*domain.Shape {
	var out []*domain.Shape
	for i := range slide.Shapes {
		if slide.Shapes[i].Placeholder.IsTitle() {
			out = append(out, &slide.Shapes[i])
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Geometry.Top < out[b].Geometry.Top
	})
	return out
}

// CanonicalTitle is the topmost title candidate, nil when the slide has none.
func CanonicalTitle(slide *domain.Slide) *domain.Shape {
	c := TitleCandidates(slide)
	if len(c) == 0 {
		return nil
	}
	return c[0]
}

// IsGhostTitle reports a title placeholder that is not the canonical title.
func IsGhostTitle(shape *domain.Shape, slide *domain.Slide) bool {
	if !shape.Placeholder.IsTitle() {
		return false
	}
	canonical := CanonicalTitle(slide)
	return canonical != nil && canonical != shape && !(shape.ID != 0 && canonical.ID == shape.ID)
}

type issueSet struct {
	seen   map[string]bool
	issues []domain.Issue
}

func (s *issueSet) add(iss domain.Issue) {
	key := string(iss.Check) + "|" + iss.Details
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	s.issues = append(s.issues, iss)
}

// CheckShape applies the title or body rules to every non-blank run.
// Ghost titles and shapes without text are skipped. Identical findings
// within one shape are reported once.
func (r Rules) CheckShape(shape *domain.Shape, slide *domain.Slide) []domain.Issue {
	if !shape.HasText() || IsGhostTitle(shape, slide) {
		return nil
	}
	title := shape.Placeholder.IsTitle()
	var set issueSet
	fail := func(check domain.Check, details string) {
		set.add(domain.Issue{
			Slide:     slide.Number,
			Check:     check,
			ShapeName: shape.Name,
			Severity:  domain.SeverityFail,
			Details:   details,
		})
	}
	for _, run := range shape.Text.Runs() {
		if strings.TrimSpace(run.Text) == "" {
			continue
		}
		raw := rawName(run, title)
		name := r.Resolve(raw)
		txt := sample(run.Text)
		if title {
			if !strings.EqualFold(name, r.TitleFont) {
				fail(domain.CheckFontFamily, fmt.Sprintf("Title font is '%s' (Should be %s). Text: '%s'", raw, r.TitleFont, txt))
			}
			if run.SizePt > 0 && (run.SizePt < r.TitleSizeMin || run.SizePt > r.TitleSizeMax) {
				fail(domain.CheckFontSize, fmt.Sprintf("Title size is %gpt (Should be %g-%gpt). Text: '%s'", run.SizePt, r.TitleSizeMin, r.TitleSizeMax, txt))
			}
			if r.TitleMustBeBold && !VisuallyBold(run, raw) {
				fail(domain.CheckFontWeight, fmt.Sprintf("Title is not Bold. Text: '%s'", txt))
			}
			continue
		}
		if run.SizePt > 0 && run.SizePt < r.BodySizeMin {
			fail(domain.CheckFontSize, fmt.Sprintf("Font size %gpt is below minimum (%gpt). Text: '%s'", run.SizePt, r.BodySizeMin, txt))
		}
		if !r.allowedBody(name) {
			fail(domain.CheckFontFamily, fmt.Sprintf("Unauthorized font found: '%s'. Text: '%s'", raw, txt))
		}
	}
	return set.issues
}

// CheckNotes validates speaker-note typography. Each rule is reported at
// most once per slide; unset sizes count as 12pt and unset colors pass.
func (r Rules) CheckNotes(slide *domain.Slide) []domain.Issue {
	if strings.TrimSpace(slide.NotesText()) == "" {
		return nil
	}
	var issues []domain.Issue
	fail := func(details string) {
		issues = append(issues, domain.Issue{
			Slide:     slide.Number,
			Check:     domain.CheckNotesFormatting,
			ShapeName: notesShapeName,
			Severity:  domain.SeverityFail,
			Details:   details,
		})
	}
	var fontLogged, sizeLogged, colorLogged bool
	for _, run := range slide.Notes.Runs() {
		if strings.TrimSpace(run.Text) == "" {
			continue
		}
		if !fontLogged && strings.TrimSpace(r.NotesFont) != "" {
			raw := rawName(run, false)
			if !strings.EqualFold(r.Resolve(raw), r.NotesFont) {
				fail(fmt.Sprintf("Notes font is '%s' (Should be %s)", raw, r.NotesFont))
				fontLogged = true
			}
		}
		if !sizeLogged {
			size := run.SizePt
			if size == 0 {
				size = defaultNotesSize
			}
			if size < r.NotesSizeMin || size > r.NotesSizeMax {
				fail(fmt.Sprintf("Notes size is %gpt (Should be %g-%g)", size, r.NotesSizeMin, r.NotesSizeMax))
				sizeLogged = true
			}
		}
		if !colorLogged && r.NotesColor != nil && run.Color != nil && *run.Color != *r.NotesColor {
			fail(fmt.Sprintf("Notes font color is %s (Should be %s).", run.Color.Hex(), r.NotesColor.Hex()))
			colorLogged = true
		}
	}
	return issues
}
