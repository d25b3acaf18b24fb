package pacing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slideaudit/internal/config"
	"slideaudit/internal/domain"
)

func newTestEngine() *Engine {
	return NewEngine(ParamsFromConfig(config.Default()), nil)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"10", 10},
		{"2.5", 2.5},
		{"5 min", 5},
		{"5 minutes", 5},
		{"1 hour 30 minutes", 90},
		{"2 hrs", 120},
		{"90 seconds", 1.5},
		{"1:30", 90},
		{"0:45", 45},
		{"tbd", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseDuration(tt.raw), 1e-9)
		})
	}
}

func TestExplicitMinutesAndActivityLabel(t *testing.T) {
	notes := "Instructional Activity: Group Lab\nInstructional Time: 15 min\nDo: split into pairs"
	assert.InDelta(t, 15.0, ExplicitMinutes(notes), 1e-9)
	assert.Equal(t, "group lab", ActivityLabel(notes))

	assert.Zero(t, ExplicitMinutes("Talking Points: none"))
	assert.Equal(t, "", ActivityLabel("Talking Points: none"))
	assert.Equal(t, "", ActivityLabel("Activity:\nTime: 10"), "an empty header does not borrow the next line")
	assert.Equal(t, 0.0, ExplicitMinutes("Instructional Time:\nDo: 5 pairs"))
	assert.InDelta(t, 3.0, ExplicitMinutes("Est. Time: 3"), 1e-9)
}

func TestIsSectionBreak(t *testing.T) {
	assert.True(t, IsSectionBreak("Section Header", "Safety"))
	assert.True(t, IsSectionBreak("Agenda", ""))
	assert.True(t, IsSectionBreak("Title and Content", "1.2.3 Ladders"))
	assert.False(t, IsSectionBreak("Title and Content", "1.2 Ladders"))
	assert.False(t, IsSectionBreak("Title and Content", "Ladders"))
}

func TestStepFundedActivitySuppression(t *testing.T) {
	e := newTestEngine()
	s := Fold([]Slide{
		{Number: 1, Notes: "Activity: lab\nTime: 10"},
		{Number: 2, Notes: "Activity: lab"},
	}, NewState(), e.Step)

	assert.InDelta(t, 10.0, s.PlannedMin, 1e-9)
	assert.InDelta(t, 10.0, s.ProjectedMin, 1e-9)
	require.Len(t, s.Timeline, 2)
	assert.True(t, s.Timeline[1].Funded)
	assert.Zero(t, s.Timeline[1].ProjectedMin)
	assert.Equal(t, 2, s.Section.SlideCount)
}

func TestStepImplicitFloor(t *testing.T) {
	e := newTestEngine()
	s := e.Step(NewState(), Slide{Number: 1, OnScreen: "Short text"})
	assert.InDelta(t, 0.5, s.ProjectedMin, 1e-9)
	assert.Zero(t, s.PlannedMin)

	long := make([]byte, 0, 260*2)
	for i := 0; i < 260; i++ {
		long = append(long, 'w', ' ')
	}
	s = e.Step(NewState(), Slide{Number: 1, Notes: string(long)})
	assert.InDelta(t, 2.0, s.ProjectedMin, 1e-9)
}

func TestStepInteractiveBuffer(t *testing.T) {
	e := newTestEngine()
	s := e.Step(NewState(), Slide{Number: 1, Notes: "Instructional Activity: Elicit Performance - group exercise"})
	assert.InDelta(t, 5.0, s.ProjectedMin, 1e-9)
	assert.InDelta(t, 5.0, s.EventMinutes[domain.ElicitPerformance], 1e-9)
}

func TestStepEstimatedSlideDoesNotFund(t *testing.T) {
	e := newTestEngine()
	s := Fold([]Slide{
		{Number: 1, Notes: "Activity: lab"},
		{Number: 2, Notes: "Activity: lab"},
	}, NewState(), e.Step)
	assert.False(t, s.Timeline[1].Funded)
	assert.InDelta(t, 1.0, s.ProjectedMin, 1e-9)
}

func TestStepSectionBreakResetsFunding(t *testing.T) {
	e := newTestEngine()
	s := Fold([]Slide{
		{Number: 1, Notes: "Activity: lab\nTime: 10"},
		{Number: 2, Layout: "Section Header", Title: "Part Two", Notes: "Activity: lab"},
	}, NewState(), e.Step)
	require.Len(t, s.Sections, 1)
	assert.Equal(t, FirstSectionName, s.Sections[0].Name)
	assert.Equal(t, "Part Two", s.Section.Name)
	assert.False(t, s.Timeline[1].Funded)
	assert.InDelta(t, 10.5, s.ProjectedMin, 1e-9)
}

func TestStepExemptSlideAddsNoTime(t *testing.T) {
	e := newTestEngine()
	s := Fold([]Slide{
		{Number: 1, Layout: "Title Slide", Title: "Welcome", Exempt: true},
		{Number: 2, Notes: "Activity: lab\nTime: 10"},
		{Number: 3, Notes: "Activity: lab"},
	}, NewState(), e.Step)

	assert.InDelta(t, 10.0, s.ProjectedMin, 1e-9)
	assert.Equal(t, 2, s.Section.SlideCount)
	require.Len(t, s.Timeline, 3)
	assert.True(t, s.Timeline[0].Exempt)
	assert.Zero(t, s.Timeline[0].ProjectedMin)
	assert.True(t, s.Timeline[2].Funded, "an exempt slide does not break funding")
}

func TestStepDoesNotMutateInput(t *testing.T) {
	e := newTestEngine()
	start := NewState()
	_ = e.Step(start, Slide{Number: 1, Notes: "Time: 4"})
	assert.Zero(t, start.ProjectedMin)
	assert.Empty(t, start.EventSlides)
	assert.Empty(t, start.Timeline)
}

func TestRunSummaryAndShares(t *testing.T) {
	e := newTestEngine()
	res := e.Run([]Slide{
		{Number: 1, Title: "Welcome"},
		{Number: 2, Layout: "Section Header", Title: "Hazards"},
		{Number: 3, Title: "Knowledge Check", Notes: "Instructional Activity: Present Content\nTime: 4"},
	})

	assert.InDelta(t, 4.0, res.Summary.PlannedMin, 1e-9)
	assert.InDelta(t, 5.0, res.Summary.ProjectedMin, 1e-9)
	assert.Equal(t, 5.0, res.Summary.ActivityBuffer)
	require.Len(t, res.Summary.Sections, 2)
	assert.Equal(t, "Introduction", res.Summary.Sections[0].Name)
	assert.Equal(t, 1, res.Summary.Sections[0].SlideCount)
	assert.Equal(t, "Hazards", res.Summary.Sections[1].Name)
	assert.Equal(t, 2, res.Summary.Sections[1].SlideCount)

	require.Len(t, res.Events, 10)
	byEvent := map[domain.GagneEvent]domain.EventShare{}
	var total float64
	for _, sh := range res.Events {
		byEvent[sh.Event] = sh
		total += sh.TimeShare
	}
	assert.Equal(t, domain.OtherEvent, res.Events[9].Event)
	assert.Equal(t, 2, byEvent[domain.OtherEvent].SlideCount)
	assert.Equal(t, 1, byEvent[domain.AssessPerformance].SlideCount)
	// 4 minutes split 10:3 between assessment and content
	assert.InDelta(t, 3.1, byEvent[domain.AssessPerformance].Minutes, 1e-9)
	assert.InDelta(t, 0.9, byEvent[domain.PresentContent].Minutes, 1e-9)
	assert.InDelta(t, 100.0, total, 0.2)
	assert.Len(t, res.Timeline, 3)
}
