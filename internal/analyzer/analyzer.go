// Package analyzer walks a presentation slide by slide, runs every rule
// family against it and assembles the typed Report.
package analyzer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"slideaudit/internal/clarity"
	"slideaudit/internal/colormath"
	"slideaudit/internal/config"
	"slideaudit/internal/content"
	"slideaudit/internal/domain"
	"slideaudit/internal/fonts"
	"slideaudit/internal/gagne"
	"slideaudit/internal/pacing"
)

const notesShapeName = "Speaker Notes"

// Analyzer holds the immutable rule engines. A single Analyzer can audit
// several decks concurrently; per-deck state lives in a run.
type Analyzer struct {
	cfg        config.Config
	fonts      fonts.Rules
	clarity    *clarity.Engine
	pacing     *pacing.Engine
	speller    *content.Speller
	thresholds colormath.Thresholds
	graphic    float64
	log        *zap.Logger
	now        func() time.Time
}

type Option func(*Analyzer)

func WithLogger(log *zap.Logger) Option {
	return func(a *Analyzer) {
		if log != nil {
			a.log = log
		}
	}
}

// WithClock fixes the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// WithSpeller enables the spelling check. Without one spelling is skipped.
func WithSpeller(s *content.Speller) Option {
	return func(a *Analyzer) { a.speller = s }
}

func New(cfg config.Config, opts ...Option) *Analyzer {
	a := &Analyzer{
		cfg:     cfg,
		fonts:   fonts.RulesFromConfig(cfg),
		clarity: clarity.FromConfig(cfg),
		pacing:  pacing.NewEngine(pacing.ParamsFromConfig(cfg), gagne.New()),
		thresholds: colormath.Thresholds{
			Normal:        cfg.WCAGRatioNormal,
			Large:         cfg.WCAGRatioLarge,
			LargeFontSize: cfg.WCAGLargeFontSize,
		},
		graphic: cfg.WCAGGraphicRatio,
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// run is the state of one deck's audit.
type run struct {
	a       *Analyzer
	pres    *domain.Presentation
	checker *content.Checker
	issues  []domain.Issue
	slides  map[int]domain.SlideContent
}

// Analyze audits the presentation and returns the report. It never fails:
// shapes with missing properties fall back to defaults.
func (a *Analyzer) Analyze(pres *domain.Presentation) *domain.Report {
	r := &run{
		a:       a,
		pres:    pres,
		checker: content.NewChecker(a.cfg, pres.SlideHeight, a.speller),
		slides:  make(map[int]domain.SlideContent, len(pres.Slides)),
	}
	start := a.now()
	r.checkMasters()

	total := len(pres.Slides)
	pacingSlides := make([]pacing.Slide, 0, total)
	for i := range pres.Slides {
		slide := &pres.Slides[i]
		exempt := a.cfg.IsExemptSlide(slide.Number, total)
		r.slides[slide.Number] = domain.SlideContent{
			Title:  slide.TitleText(),
			Layout: slide.LayoutName,
			Text:   slide.OnScreenText(),
			Notes:  slide.NotesText(),
			Images: slide.ImageCount(),
			Exempt: exempt,
		}
		pacingSlides = append(pacingSlides, pacing.Slide{
			Number:   slide.Number,
			Title:    slide.TitleText(),
			Layout:   slide.LayoutName,
			Notes:    slide.NotesText(),
			OnScreen: slide.OnScreenText(),
			Exempt:   exempt,
		})
		if exempt {
			r.add(domain.Issue{
				Slide:     slide.Number,
				Check:     domain.CheckStatus,
				ShapeName: domain.SlideShapeName,
				Severity:  domain.SeverityExempt,
				Details:   "Slide excluded from analysis.",
			})
			continue
		}
		r.walk(slide)
	}

	paced := a.pacing.Run(pacingSlides)
	report := &domain.Report{
		Issues:       r.issues,
		SlideContent: r.slides,
		Timeline:     paced.Timeline,
	}
	report.Summary = summarize(pres, r.issues, paced)
	report.Summary.GeneratedAt = start
	a.log.Info("deck analyzed",
		zap.String("deck", pres.Name),
		zap.Int("slides", total),
		zap.Int("issues", len(r.issues)),
		zap.Float64("compliance_rate", report.Summary.ComplianceRate),
	)
	return report
}

func (r *run) add(issues ...domain.Issue) {
	r.issues = append(r.issues, issues...)
}

func (r *run) checkMasters() {
	if r.pres.MasterCount <= 1 {
		return
	}
	r.add(domain.Issue{
		Slide:     0,
		Check:     domain.CheckTemplateMasters,
		ShapeName: domain.PresentationShapeName,
		Severity:  domain.SeverityWarning,
		Details:   fmt.Sprintf("Presentation uses %d slide masters. Consolidate to a single template.", r.pres.MasterCount),
	})
}

func (r *run) walk(slide *domain.Slide) {
	r.add(r.checker.CheckReadingOrder(slide)...)
	for i := range slide.Shapes {
		r.shape(&slide.Shapes[i], slide)
	}
	r.notes(slide)
}

func (r *run) shape(shape *domain.Shape, slide *domain.Slide) {
	if r.checker.IsExemptShape(shape) {
		return
	}
	n := slide.Number
	r.add(r.a.fonts.CheckShape(shape, slide)...)
	r.add(r.checker.CheckBrandColor(shape, n)...)
	r.add(r.graphicContrast(shape, slide)...)
	r.add(content.CheckHyperlinks(shape, n)...)
	if shape.Kind == domain.ShapePicture {
		r.add(content.CheckAltText(shape, n)...)
	}
	if shape.HasText() {
		text := content.StripCitations(shape.Text.Text())
		r.add(r.checker.CheckText(text, shape.Name, n)...)
		r.add(r.a.clarity.Check(text, shape.Name, n, clarity.ContextSlide)...)
		r.add(r.textContrast(shape, slide)...)
	}
	// Group members are walked as shapes of their own; their geometry is
	// already in slide coordinates.
	for i := range shape.Children {
		r.shape(&shape.Children[i], slide)
	}
}

func (r *run) notes(slide *domain.Slide) {
	raw := slide.NotesText()
	if strings.TrimSpace(raw) == "" {
		return
	}
	n := slide.Number
	clean := content.StripCitations(raw)
	r.add(r.checker.CheckText(clean, notesShapeName, n)...)
	r.add(content.CheckCitations(raw, notesShapeName, n)...)
	r.add(r.a.fonts.CheckNotes(slide)...)
	r.add(r.checker.CheckRequiredHeaders(raw, n)...)
	r.add(r.a.clarity.Check(clean, notesShapeName, n, clarity.ContextNotes)...)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
