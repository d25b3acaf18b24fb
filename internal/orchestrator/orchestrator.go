// Package orchestrator runs the three-agent notes rewrite over a deck:
// topic summary, research query plus retrieval, then a batched rewrite.
package orchestrator

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"slideaudit/internal/config"
	"slideaudit/internal/domain"
	"slideaudit/internal/integrations/llm"
)

const (
	// FallbackResearch is used whenever retrieval fails.
	FallbackResearch = "Standard Best Practice: Maintain clarity."
	fallbackTopic    = "General instructional content."

	maxSystemInstructionChars = 8000
	batchConcurrencyLimit     = 4
)

// Agent executes one prompt for a role. *llm.Executor satisfies it.
type Agent interface {
	Execute(ctx context.Context, role llm.Role, systemPrompt, userPrompt string) (string, llm.Usage, error)
}

// Retriever returns supporting text for a query. *retrieval.Store satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (string, error)
}

// SlideInput is what the agents see of one slide.
type SlideInput struct {
	Number int
	Title  string
	Layout string
	Text   string
	Notes  string
	Images int
}

// SlidesFromReport lists the report's slide content in slide order.
func SlidesFromReport(rep *domain.Report) []SlideInput {
	out := make([]SlideInput, 0, len(rep.SlideContent))
	for n, c := range rep.SlideContent {
		out = append(out, SlideInput{
			Number: n,
			Title:  c.Title,
			Layout: c.Layout,
			Text:   c.Text,
			Notes:  c.Notes,
			Images: c.Images,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Outcome is the merged result of a rewrite run.
type Outcome struct {
	Suggestions []Suggestion `json:"suggestions"`
	Usage       llm.Usage    `json:"usage"`
	Batches     []BatchTrace `json:"batches"`
}

// BatchTrace records what each stage produced for one batch. Errors are
// kept as text so the trace serializes cleanly.
type BatchTrace struct {
	Slides []int    `json:"slides"`
	Topic  string   `json:"topic"`
	Query  string   `json:"query"`
	Errors []string `json:"errors,omitempty"`
}

type Orchestrator struct {
	agent     Agent
	retriever Retriever
	cfg       config.Config
	system    string
	log       *zap.Logger
}

func New(cfg config.Config, agent Agent, retriever Retriever, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		agent:     agent,
		retriever: retriever,
		cfg:       cfg,
		system:    loadSystemInstruction(cfg.SystemInstructionPath, log),
		log:       log,
	}
}

func loadSystemInstruction(path string, log *zap.Logger) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return defaultSystemInstruction
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("system instruction skipped", zap.String("path", path), zap.Error(err))
		return defaultSystemInstruction
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return defaultSystemInstruction
	}
	if len(text) > maxSystemInstructionChars {
		text = text[:maxSystemInstructionChars] + "\n...(truncated)"
	}
	return text
}

// Run rewrites the notes of every non-exempt slide. total is the deck's
// slide count, used by the last-slide exemption. Stage failures fall back
// and are recorded in the trace; Run only returns an error when ctx ends.
func (o *Orchestrator) Run(ctx context.Context, slides []SlideInput, total int) (*Outcome, error) {
	out := &Outcome{}
	var active []SlideInput
	for _, s := range slides {
		if o.cfg.IsExemptSlide(s.Number, total) {
			out.Suggestions = append(out.Suggestions, exemptPlaceholder(s.Number))
			continue
		}
		active = append(active, s)
	}

	batches := chunk(active, o.cfg.LLMBatchSize)
	type batchResult struct {
		suggestions []Suggestion
		usage       llm.Usage
		trace       BatchTrace
	}
	results := make([]batchResult, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrencyLimit)
	for i, batch := range batches {
		g.Go(func() error {
			sugg, usage, trace := o.runBatch(gctx, i, batch)
			results[i] = batchResult{suggestions: sugg, usage: usage, trace: trace}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, r := range results {
		out.Suggestions = append(out.Suggestions, r.suggestions...)
		out.Usage.Add(r.usage)
		out.Batches = append(out.Batches, r.trace)
	}
	sort.SliceStable(out.Suggestions, func(i, j int) bool {
		return out.Suggestions[i].SlideNumber < out.Suggestions[j].SlideNumber
	})
	o.log.Info("rewrite complete",
		zap.Int("slides", len(slides)),
		zap.Int("active", len(active)),
		zap.Int("batches", len(batches)),
		zap.Int("suggestions", len(out.Suggestions)),
		zap.Int64("total_tokens", out.Usage.TotalTokens()),
	)
	return out, nil
}

func (o *Orchestrator) runBatch(ctx context.Context, idx int, batch []SlideInput) ([]Suggestion, llm.Usage, BatchTrace) {
	var total llm.Usage
	trace := BatchTrace{Slides: make([]int, len(batch))}
	for i, s := range batch {
		trace.Slides[i] = s.Number
	}
	note := func(r interface{ Err() error }) {
		if err := r.Err(); err != nil {
			trace.Errors = append(trace.Errors, err.Error())
			o.log.Warn("rewrite stage failed", zap.Int("batch", idx), zap.Error(err))
		}
	}

	sys, user := topicPrompt(batch)
	topicRes := o.call(ctx, "topic", llm.RoleTopic, sys, user, &total)
	note(topicRes)
	trace.Topic = topicRes.UnwrapOr(fallbackTopic)
	o.log.Debug("topic", zap.Int("batch", idx), zap.String("topic", trace.Topic))

	sys, user = researchQueryPrompt(trace.Topic)
	queryRes := o.call(ctx, "research query", llm.RoleResearch, sys, user, &total)
	note(queryRes)
	trace.Query = queryRes.UnwrapOr(trace.Topic)

	research, err := o.retrieve(ctx, trace.Query)
	researchRes := Attempt("retrieval", research, err)
	note(researchRes)

	sys, user = rewritePrompt(batch, researchRes.UnwrapOr(FallbackResearch), o.system, o.cfg.NotesScriptingLevel, o.cfg.RequiredHeaders)
	rewriteRes := o.call(ctx, "rewrite", llm.RoleRewrite, sys, user, &total)
	note(rewriteRes)
	if !rewriteRes.IsOk() {
		return nil, total, trace
	}
	raw, _ := rewriteRes.Unwrap()
	parsed, err := parseSuggestions(raw)
	parsedRes := Attempt("parse", parsed, err)
	note(parsedRes)
	return keepBatch(parsedRes.UnwrapOr(nil), batch), total, trace
}

func (o *Orchestrator) call(ctx context.Context, stage string, role llm.Role, sys, user string, total *llm.Usage) Result[string] {
	text, usage, err := o.agent.Execute(ctx, role, sys, user)
	total.Add(usage)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errEmptyResponse
	}
	return Attempt(stage, strings.TrimSpace(text), err)
}

var errNoRetriever = errors.New("no knowledge store configured")

func (o *Orchestrator) retrieve(ctx context.Context, query string) (string, error) {
	if o.retriever == nil {
		return "", errNoRetriever
	}
	return o.retriever.Retrieve(ctx, query)
}

// keepBatch drops suggestions for slides outside the batch and repeats of a
// slide the model already answered for.
func keepBatch(in []Suggestion, batch []SlideInput) []Suggestion {
	want := make(map[int]bool, len(batch))
	for _, s := range batch {
		want[s.Number] = true
	}
	var out []Suggestion
	for _, s := range in {
		if !want[s.SlideNumber] {
			continue
		}
		want[s.SlideNumber] = false
		s.Exempt = false
		out = append(out, s)
	}
	return out
}

func chunk(slides []SlideInput, size int) [][]SlideInput {
	if size < 1 {
		size = 1
	}
	var out [][]SlideInput
	for start := 0; start < len(slides); start += size {
		end := min(start+size, len(slides))
		out = append(out, slides[start:end])
	}
	return out
}
