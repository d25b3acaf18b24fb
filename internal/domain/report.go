package domain

import "time"

// GagneEvent is one of Gagné's nine events of instruction.
type GagneEvent string

const (
	GainAttention     GagneEvent = "Gain Attention"
	InformObjectives  GagneEvent = "Inform Objectives"
	StimulateRecall   GagneEvent = "Stimulate Recall"
	PresentContent    GagneEvent = "Present Content"
	ProvideGuidance   GagneEvent = "Provide Guidance"
	ElicitPerformance GagneEvent = "Elicit Performance"
	ProvideFeedback   GagneEvent = "Provide Feedback"
	AssessPerformance GagneEvent = "Assess Performance"
	EnhanceRetention  GagneEvent = "Enhance Retention"
	OtherEvent        GagneEvent = "Other"
)

// GagneEvents lists the canonical events in instructional order.
var GagneEvents = []GagneEvent{
	GainAttention,
	InformObjectives,
	StimulateRecall,
	PresentContent,
	ProvideGuidance,
	ElicitPerformance,
	ProvideFeedback,
	AssessPerformance,
	EnhanceRetention,
}

// Interactive reports whether the event implies learner activity.
func (e GagneEvent) Interactive() bool {
	return e == ProvideGuidance || e == ElicitPerformance || e == AssessPerformance
}

type SlideContent struct {
	Title  string `json:"title"`
	Layout string `json:"layout"`
	Text   string `json:"text"`
	Notes  string `json:"notes"`
	Images int    `json:"images"`
	Exempt bool   `json:"exempt"`
}

type Section struct {
	Name         string  `json:"name"`
	PlannedMin   float64 `json:"planned_minutes"`
	ProjectedMin float64 `json:"projected_minutes"`
	SlideCount   int     `json:"slide_count"`
}

// SlideTiming records how the pacing fold scored one slide.
type SlideTiming struct {
	Slide        int          `json:"slide"`
	Section      string       `json:"section"`
	Activity     string       `json:"activity"`
	PlannedMin   float64      `json:"planned_minutes"`
	ImplicitMin  float64      `json:"implicit_minutes"`
	ProjectedMin float64      `json:"projected_minutes"`
	Funded       bool         `json:"funded"`
	Events       []GagneEvent `json:"events"`
	Exempt       bool         `json:"exempt,omitempty"`
}

type PacingSummary struct {
	PlannedMin     float64   `json:"planned_minutes"`
	ProjectedMin   float64   `json:"projected_minutes"`
	ActivityBuffer float64   `json:"activity_buffer_minutes"`
	Sections       []Section `json:"sections"`
}

type EventShare struct {
	Event      GagneEvent `json:"event"`
	SlideCount int        `json:"slide_count"`
	Minutes    float64    `json:"minutes"`
	TimeShare  float64    `json:"time_share"` // percent of projected time
}

type ContentMetrics struct {
	ReadingLevelFlags int `json:"reading_level_flags"`
	PassiveVoice      int `json:"passive_voice"`
	Jargon            int `json:"jargon"`
}

type Summary struct {
	PresentationName   string         `json:"presentation_name"`
	GeneratedAt        time.Time      `json:"generated_at"`
	MasterSlideCount   int            `json:"master_slide_count"`
	SlidesChecked      int            `json:"total_slides_checked"`
	TotalIssues        int            `json:"total_issues"`
	FailCount          int            `json:"fail_count"`
	WarningCount       int            `json:"warning_count"`
	ManualReviews      int            `json:"manual_reviews"`
	ComplianceRate     float64        `json:"compliance_rate"`
	WCAGComplianceRate float64        `json:"wcag_compliance_rate"`
	Gagne              []EventShare   `json:"gagne_distribution"`
	Pacing             PacingSummary  `json:"pacing"`
	Content            ContentMetrics `json:"content_metrics"`
}

type Report struct {
	Summary      Summary              `json:"summary"`
	Issues       []Issue              `json:"issues"`
	SlideContent map[int]SlideContent `json:"slide_content"`
	Timeline     []SlideTiming        `json:"timeline"`
}

// IssuesForSlide returns the issues recorded for a 1-based slide number.
func (r *Report) IssuesForSlide(n int) []Issue {
	var out []Issue
	for _, iss := range r.Issues {
		if iss.Slide == n {
			out = append(out, iss)
		}
	}
	return out
}
