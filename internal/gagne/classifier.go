// Package gagne tags slides with Gagné's events of instruction from the
// speaker notes and title.
package gagne

import (
	"regexp"
	"strings"

	"slideaudit/internal/domain"
)

// Rule maps a keyword pattern to the event it signals.
type Rule struct {
	Pattern *regexp.Regexp
	Event   domain.GagneEvent
}

func rule(pattern string, ev domain.GagneEvent) Rule {
	return Rule{Pattern: regexp.MustCompile(`\b(?:` + pattern + `)\b`), Event: ev}
}

// TitleRules are applied to the slide title independently of the notes.
var TitleRules = []Rule{
	rule(`knowledge\s*check|quiz(?:zes)?|tests?|assessments?|exams?`, domain.AssessPerformance),
}

// KeywordRules are applied, in order, to the selected activity line.
var KeywordRules = []Rule{
	rule(`gain\s*attention|hook|ice\s*breaker|warm\s*up|welcome`, domain.GainAttention),
	rule(`inform\s*objectives|objectives?|outcomes?|goals?|agenda|directions?|overview|roadmap`, domain.InformObjectives),
	rule(`stimulate\s*recall|recall|review|prior\s*knowledge|refresh|remind`, domain.StimulateRecall),
	rule(`present\s*content|presentation|lecture|explain|demonstrate|show|teach|concepts?`, domain.PresentContent),
	rule(`provide\s*guidance|guidance|guided\s*learning|scaffold|support|coach|help|tips?`, domain.ProvideGuidance),
	rule(`elicit\s*performance|practice|group\s*activity|learner\s*activity|exercises?|simulation|role\s*play|hands\s*on|worksheet`, domain.ElicitPerformance),
	rule(`provide\s*feedback|feedback|debrief|review\s*answers?|correct|discussion`, domain.ProvideFeedback),
	rule(`assess\s*performance|assessment|quiz|test|check|knowledge\s*check|evaluate`, domain.AssessPerformance),
	rule(`enhance\s*retention|retention|transfer|wrap\s*up|summary|conclusion|close|job\s*aid|takeaways?`, domain.EnhanceRetention),
}

var (
	headerRe    = regexp.MustCompile(`(?i)^\s*(?:instructional\s+)?(?:activity|gagn[eé]\s*event)\s*:`)
	canonicalRe = regexp.MustCompile(`(?i)gain\s*attention|inform\s*objectives|stimulate\s*recall|present\s*content|provide\s*guidance|elicit\s*performance|provide\s*feedback|assess\s*performance|enhance\s*retention`)
)

const maxFallbackLineLen = 100

type Classifier struct {
	title    []Rule
	keywords []Rule
}

func New() *Classifier {
	return &Classifier{title: TitleRules, keywords: KeywordRules}
}

// NewWithRules builds a classifier over custom tables.
func NewWithRules(title, keywords []Rule) *Classifier {
	return &Classifier{title: title, keywords: keywords}
}

// ActivityLine picks the notes line to classify: the first line opening with
// an "Instructional Activity:" or "Gagné Event:" header, otherwise the first
// short line naming a canonical event. It returns "" when neither exists.
func ActivityLine(notes string) string {
	lines := strings.Split(notes, "\n")
	for _, line := range lines {
		if headerRe.MatchString(line) {
			return strings.ToLower(line)
		}
	}
	for _, line := range lines {
		if len(line) < maxFallbackLineLen && len(strings.TrimSpace(line)) > 3 && canonicalRe.MatchString(line) {
			return strings.ToLower(line)
		}
	}
	return ""
}

// Classify returns the distinct events for a slide in canonical order.
// A title that looks like a quiz always contributes Assess Performance.
func (c *Classifier) Classify(notes, title string) []domain.GagneEvent {
	found := make(map[domain.GagneEvent]bool)
	lowerTitle := strings.ToLower(title)
	for _, r := range c.title {
		if r.Pattern.MatchString(lowerTitle) {
			found[r.Event] = true
		}
	}
	if line := ActivityLine(notes); line != "" {
		for _, r := range c.keywords {
			if r.Pattern.MatchString(line) {
				found[r.Event] = true
			}
		}
	}
	if len(found) == 0 {
		return nil
	}
	events := make([]domain.GagneEvent, 0, len(found))
	for _, ev := range domain.GagneEvents {
		if found[ev] {
			events = append(events, ev)
		}
	}
	return events
}

// Interactive reports whether any event implies learner activity.
func Interactive(events []domain.GagneEvent) bool {
	for _, ev := range events {
		if ev.Interactive() {
			return true
		}
	}
	return false
}

// Weight is the relative share of slide time an event receives when a slide
// maps to several events.
func Weight(ev domain.GagneEvent) float64 {
	switch ev {
	case domain.ElicitPerformance, domain.AssessPerformance:
		return 10
	case domain.PresentContent, domain.ProvideFeedback:
		return 3
	default:
		return 1
	}
}

// Split divides minutes across events by Weight.
func Split(events []domain.GagneEvent, minutes float64) map[domain.GagneEvent]float64 {
	out := make(map[domain.GagneEvent]float64, len(events))
	var total float64
	for _, ev := range events {
		total += Weight(ev)
	}
	if total == 0 {
		return out
	}
	for _, ev := range events {
		out[ev] = Weight(ev) / total * minutes
	}
	return out
}
