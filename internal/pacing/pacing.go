// Package pacing estimates delivery time for a deck from its speaker notes.
//
// The model is a left fold over slides. Each Step sees one slide and the
// running State and returns the next State; Finish turns the final State
// into the report's pacing summary and Gagné distribution.
package pacing

import (
	"fmt"
	"regexp"
	"strings"

	"slideaudit/internal/config"
	"slideaudit/internal/domain"
	"slideaudit/internal/gagne"
)

// FirstSectionName labels slides before the first section break.
const FirstSectionName = "Introduction"

var numberedHeadingRe = regexp.MustCompile(`^\d+\.\d+\.\d+`)

// Slide is the pacing view of one slide.
type Slide struct {
	Number   int
	Title    string
	Layout   string
	Notes    string
	OnScreen string
	Exempt   bool
}

type Params struct {
	WordsPerMinute float64
	ActivityBuffer float64
	MinSlideMin    float64
}

func ParamsFromConfig(cfg config.Config) Params {
	return Params{
		WordsPerMinute: cfg.ReadingSpeedWPM,
		ActivityBuffer: cfg.ActivityBufferMinutes,
		MinSlideMin:    cfg.StandardSlideMinutes,
	}
}

// State is carried from slide to slide.
type State struct {
	Section        domain.Section
	Sections       []domain.Section
	FundedActivity string
	PlannedMin     float64
	ProjectedMin   float64
	EventSlides    map[domain.GagneEvent]int
	EventMinutes   map[domain.GagneEvent]float64
	Timeline       []domain.SlideTiming
}

func NewState() State {
	return State{
		Section:      domain.Section{Name: FirstSectionName},
		EventSlides:  make(map[domain.GagneEvent]int),
		EventMinutes: make(map[domain.GagneEvent]float64),
	}
}

// StepFunc advances the state by one slide.
type StepFunc func(State, Slide) State

// Fold applies step to every slide in order.
func Fold(slides []Slide, init State, step StepFunc) State {
	s := init
	for _, sl := range slides {
		s = step(s, sl)
	}
	return s
}

type Engine struct {
	params     Params
	classifier *gagne.Classifier
}

func NewEngine(params Params, classifier *gagne.Classifier) *Engine {
	if classifier == nil {
		classifier = gagne.New()
	}
	return &Engine{params: params, classifier: classifier}
}

// IsSectionBreak reports whether a slide opens a new section.
func IsSectionBreak(layout, title string) bool {
	l := strings.ToLower(layout)
	if strings.Contains(l, "section") || strings.Contains(l, "agenda") || strings.Contains(l, "divider") {
		return true
	}
	return numberedHeadingRe.MatchString(strings.TrimSpace(title))
}

// ImplicitMinutes is the word-count estimate for a slide, floored at
// MinSlideMin. Interactive slides with an activity label are floored at the
// activity buffer instead.
func (e *Engine) ImplicitMinutes(wordCount int, interactive bool, activity string) float64 {
	est := float64(wordCount) / e.params.WordsPerMinute
	if est < e.params.MinSlideMin {
		est = e.params.MinSlideMin
	}
	if interactive && activity != "" && e.params.ActivityBuffer > est {
		est = e.params.ActivityBuffer
	}
	return est
}

// Step is the pacing transition for one slide. The input state is not
// modified; maps and slices are copied before being written. An exempt
// slide only gets a zero-time timeline row.
func (e *Engine) Step(s State, sl Slide) State {
	next := s.clone()
	if sl.Exempt {
		next.Timeline = append(next.Timeline, domain.SlideTiming{
			Slide:   sl.Number,
			Section: next.Section.Name,
			Exempt:  true,
		})
		return next
	}

	if IsSectionBreak(sl.Layout, sl.Title) {
		next.FundedActivity = ""
		if next.Section.SlideCount > 0 {
			next.Sections = append(next.Sections, next.Section)
		}
		name := strings.TrimSpace(sl.Title)
		if name == "" {
			name = fmt.Sprintf("Section %d", sl.Number)
		}
		next.Section = domain.Section{Name: name}
	}

	explicit := ExplicitMinutes(sl.Notes)
	activity := ActivityLabel(sl.Notes)
	events := e.classifier.Classify(sl.Notes, sl.Title)
	interactive := gagne.Interactive(events)

	var implicit, slideTime float64
	funded := false
	switch {
	case explicit > 0:
		slideTime = explicit
		next.FundedActivity = activity
	case activity != "" && activity == next.FundedActivity:
		funded = true
	default:
		words := len(strings.Fields(sl.Notes + " " + sl.OnScreen))
		implicit = e.ImplicitMinutes(words, interactive, activity)
		slideTime = implicit
		next.FundedActivity = ""
	}

	next.PlannedMin += explicit
	next.ProjectedMin += slideTime
	next.Section.SlideCount++
	next.Section.PlannedMin += explicit
	next.Section.ProjectedMin += slideTime

	if len(events) == 0 {
		next.EventSlides[domain.OtherEvent]++
		next.EventMinutes[domain.OtherEvent] += slideTime
	} else {
		for ev, minutes := range gagne.Split(events, slideTime) {
			next.EventSlides[ev]++
			next.EventMinutes[ev] += minutes
		}
	}

	next.Timeline = append(next.Timeline, domain.SlideTiming{
		Slide:        sl.Number,
		Section:      next.Section.Name,
		Activity:     activity,
		PlannedMin:   explicit,
		ImplicitMin:  implicit,
		ProjectedMin: slideTime,
		Funded:       funded,
		Events:       events,
	})
	return next
}

func (s State) clone() State {
	c := s
	c.Sections = append([]domain.Section(nil), s.Sections...)
	c.Timeline = append([]domain.SlideTiming(nil), s.Timeline...)
	c.EventSlides = make(map[domain.GagneEvent]int, len(s.EventSlides))
	for k, v := range s.EventSlides {
		c.EventSlides[k] = v
	}
	c.EventMinutes = make(map[domain.GagneEvent]float64, len(s.EventMinutes))
	for k, v := range s.EventMinutes {
		c.EventMinutes[k] = v
	}
	return c
}

// Result is the finished pacing model for a deck.
type Result struct {
	Summary  domain.PacingSummary
	Events   []domain.EventShare
	Timeline []domain.SlideTiming
}

// Run folds all slides and finishes the state.
func (e *Engine) Run(slides []Slide) Result {
	return e.Finish(Fold(slides, NewState(), e.Step))
}

// Finish flushes the open section and computes event time shares. Shares
// are percentages of projected minutes; every event appears, in canonical
// order with Other last.
func (e *Engine) Finish(s State) Result {
	sections := append([]domain.Section(nil), s.Sections...)
	if s.Section.SlideCount > 0 {
		sections = append(sections, s.Section)
	}
	for i := range sections {
		sections[i].PlannedMin = round1(sections[i].PlannedMin)
		sections[i].ProjectedMin = round1(sections[i].ProjectedMin)
	}

	all := append(append([]domain.GagneEvent(nil), domain.GagneEvents...), domain.OtherEvent)
	shares := make([]domain.EventShare, 0, len(all))
	for _, ev := range all {
		share := domain.EventShare{
			Event:      ev,
			SlideCount: s.EventSlides[ev],
			Minutes:    round1(s.EventMinutes[ev]),
		}
		if s.ProjectedMin > 0 {
			share.TimeShare = round1(s.EventMinutes[ev] / s.ProjectedMin * 100)
		}
		shares = append(shares, share)
	}

	return Result{
		Summary: domain.PacingSummary{
			PlannedMin:     round1(s.PlannedMin),
			ProjectedMin:   round1(s.ProjectedMin),
			ActivityBuffer: e.params.ActivityBuffer,
			Sections:       sections,
		},
		Events:   shares,
		Timeline: s.Timeline,
	}
}
