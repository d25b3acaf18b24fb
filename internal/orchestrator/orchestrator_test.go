package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"slideaudit/internal/config"
	"slideaudit/internal/domain"
	"slideaudit/internal/integrations/llm"
)

type prompt struct {
	role         llm.Role
	system, user string
}

// fakeAgent answers each role from a canned function and records prompts.
type fakeAgent struct {
	mu      sync.Mutex
	prompts []prompt
	fail    map[llm.Role]error
	rewrite func(user string) string
}

var slideHeader = regexp.MustCompile(`--- SLIDE (\d+) `)

func (f *fakeAgent) Execute(_ context.Context, role llm.Role, system, user string) (string, llm.Usage, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt{role, system, user})
	f.mu.Unlock()
	usage := llm.Usage{InputTokens: 10, OutputTokens: 5}
	if err := f.fail[role]; err != nil {
		return "", llm.Usage{}, err
	}
	switch role {
	case llm.RoleTopic:
		return "Ladder safety for new hires.", usage, nil
	case llm.RoleResearch:
		return "ladder safety multimedia principles", usage, nil
	}
	if f.rewrite != nil {
		return f.rewrite(user), usage, nil
	}
	var items []string
	for _, m := range slideHeader.FindAllStringSubmatch(user, -1) {
		items = append(items, fmt.Sprintf(`{"slide_number": %s, "clarity_score": 8, "tone_audit": "ok", "suggested_notes": null}`, m[1]))
	}
	return "```json\n[" + strings.Join(items, ",") + "]\n```", usage, nil
}

func (f *fakeAgent) byRole(role llm.Role) []prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []prompt
	for _, p := range f.prompts {
		if p.role == role {
			out = append(out, p)
		}
	}
	return out
}

type fakeRetriever struct {
	text    string
	err     error
	queries []string
	mu      sync.Mutex
}

func (r *fakeRetriever) Retrieve(_ context.Context, query string) (string, error) {
	r.mu.Lock()
	r.queries = append(r.queries, query)
	r.mu.Unlock()
	return r.text, r.err
}

func slides(n int) []SlideInput {
	out := make([]SlideInput, n)
	for i := range out {
		out[i] = SlideInput{Number: i + 1, Title: fmt.Sprintf("Slide title %d", i+1), Layout: "Title and Content", Notes: "Talk about ladders."}
	}
	return out
}

func numbers(s []Suggestion) []int {
	out := make([]int, len(s))
	for i, x := range s {
		out[i] = x.SlideNumber
	}
	return out
}

func TestRunExemptSlidesNeverReachAgents(t *testing.T) {
	cfg := config.Default()
	cfg.ExemptSlides = []int{3}
	agent := &fakeAgent{}
	o := New(cfg, agent, &fakeRetriever{text: "- Signaling (Mayer): highlight essentials."}, nil)

	out, err := o.Run(context.Background(), slides(5), 5)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, numbers(out.Suggestions))

	for _, n := range []int{1, 3, 5} {
		s := out.Suggestions[n-1]
		assert.True(t, s.Exempt, "slide %d", n)
		assert.Equal(t, ScoreNA, s.ClarityScore)
		assert.Equal(t, "Slide marked as Exempt in settings.", s.ToneAudit)
	}
	assert.Equal(t, Score("8"), out.Suggestions[1].ClarityScore)

	rewrites := agent.byRole(llm.RoleRewrite)
	require.Len(t, rewrites, 1)
	assert.Contains(t, rewrites[0].user, "--- SLIDE 2 ")
	assert.Contains(t, rewrites[0].user, "--- SLIDE 4 ")
	for _, n := range []int{1, 3, 5} {
		assert.NotContains(t, rewrites[0].user, fmt.Sprintf("--- SLIDE %d ", n))
	}
	assert.Contains(t, rewrites[0].user, "Signaling (Mayer)")
	assert.Equal(t, int64(45), out.Usage.TotalTokens(), "three calls of 15 tokens")
}

func TestRunAllExemptSkipsAgents(t *testing.T) {
	cfg := config.Default()
	agent := &fakeAgent{}
	out, err := New(cfg, agent, nil, nil).Run(context.Background(), slides(2), 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, numbers(out.Suggestions))
	assert.Empty(t, agent.prompts)
	assert.Empty(t, out.Batches)
}

func TestRunBatchesAndSorts(t *testing.T) {
	cfg := config.Default()
	cfg.ExemptFirstSlide = false
	cfg.ExemptLastSlide = false
	cfg.LLMBatchSize = 2
	agent := &fakeAgent{}
	retriever := &fakeRetriever{text: "research"}

	out, err := New(cfg, agent, retriever, nil).Run(context.Background(), slides(5), 5)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, numbers(out.Suggestions))
	require.Len(t, out.Batches, 3)
	assert.Equal(t, []int{1, 2}, out.Batches[0].Slides)
	assert.Equal(t, []int{5}, out.Batches[2].Slides)
	assert.Len(t, agent.byRole(llm.RoleTopic), 3)
	assert.Len(t, agent.byRole(llm.RoleRewrite), 3)
	assert.Len(t, retriever.queries, 3)
	assert.Equal(t, "ladder safety multimedia principles", retriever.queries[0])
	assert.Equal(t, int64(135), out.Usage.TotalTokens())
}

func TestRunFallsBackWhenStagesFail(t *testing.T) {
	cfg := config.Default()
	cfg.ExemptFirstSlide = false
	cfg.ExemptLastSlide = false
	agent := &fakeAgent{fail: map[llm.Role]error{llm.RoleTopic: errors.New("boom")}}
	retriever := &fakeRetriever{err: errors.New("store offline")}

	out, err := New(cfg, agent, retriever, nil).Run(context.Background(), slides(2), 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, numbers(out.Suggestions))

	require.Len(t, out.Batches, 1)
	trace := out.Batches[0]
	assert.Equal(t, fallbackTopic, trace.Topic)
	require.Len(t, trace.Errors, 2)
	assert.Contains(t, trace.Errors[0], "topic: boom")
	assert.Contains(t, trace.Errors[1], "retrieval: store offline")

	query := agent.byRole(llm.RoleResearch)
	require.Len(t, query, 1)
	assert.Contains(t, query[0].user, fallbackTopic)
	rewrite := agent.byRole(llm.RoleRewrite)
	require.Len(t, rewrite, 1)
	assert.Contains(t, rewrite[0].user, FallbackResearch)
}

func TestRunQueryFailureUsesTopic(t *testing.T) {
	cfg := config.Default()
	agent := &fakeAgent{fail: map[llm.Role]error{llm.RoleResearch: errors.New("rate limited")}}
	retriever := &fakeRetriever{text: "research"}
	out, err := New(cfg, agent, retriever, nil).Run(context.Background(), slides(3), 3)
	require.NoError(t, err)
	require.Len(t, retriever.queries, 1)
	assert.Equal(t, "Ladder safety for new hires.", retriever.queries[0])
	assert.Equal(t, "Ladder safety for new hires.", out.Batches[0].Query)
}

func TestRunRewriteFailureKeepsPlaceholders(t *testing.T) {
	cfg := config.Default()
	agent := &fakeAgent{fail: map[llm.Role]error{llm.RoleRewrite: errors.New("overloaded")}}
	out, err := New(cfg, agent, &fakeRetriever{text: "r"}, nil).Run(context.Background(), slides(4), 4)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4}, numbers(out.Suggestions))
	assert.Contains(t, out.Batches[0].Errors[0], "rewrite: overloaded")
}

func TestRunUnparseableRewrite(t *testing.T) {
	cfg := config.Default()
	agent := &fakeAgent{rewrite: func(string) string { return "I could not analyze these slides." }}
	out, err := New(cfg, agent, &fakeRetriever{text: "r"}, nil).Run(context.Background(), slides(3), 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, numbers(out.Suggestions))
	require.Len(t, out.Batches[0].Errors, 1)
	assert.Contains(t, out.Batches[0].Errors[0], "parse:")
}

func TestRunDropsForeignAndDuplicateSlides(t *testing.T) {
	cfg := config.Default()
	agent := &fakeAgent{rewrite: func(string) string {
		return `Here you go: [{"slide_number": 2, "clarity_score": "7", "tone_audit": "first"},
			{"slide_number": 2, "clarity_score": 3, "tone_audit": "second"},
			{"slide_number": 1, "clarity_score": 9, "tone_audit": "exempt slide"},
			{"slide_number": 42, "clarity_score": 9, "tone_audit": "invented"}] Thanks!`
	}}
	out, err := New(cfg, agent, &fakeRetriever{text: "r"}, nil).Run(context.Background(), slides(3), 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, numbers(out.Suggestions))
	assert.True(t, out.Suggestions[0].Exempt)
	assert.Equal(t, "first", out.Suggestions[1].ToneAudit)
	assert.Equal(t, Score("7"), out.Suggestions[1].ClarityScore)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(config.Default(), &fakeAgent{}, nil, nil).Run(ctx, slides(3), 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRewritePromptSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "instruction.txt")
	require.NoError(t, os.WriteFile(path, []byte("You audit safety training decks.\n"), 0o644))

	cfg := config.Default()
	cfg.SystemInstructionPath = path
	cfg.NotesScriptingLevel = "Heavy"
	cfg.RequiredHeaders = []string{"Do:", "Materials:"}
	agent := &fakeAgent{}
	_, err := New(cfg, agent, &fakeRetriever{text: "r"}, nil).Run(context.Background(), slides(3), 3)
	require.NoError(t, err)

	rewrite := agent.byRole(llm.RoleRewrite)
	require.Len(t, rewrite, 1)
	assert.True(t, strings.HasPrefix(rewrite[0].system, "You audit safety training decks."))
	assert.Contains(t, rewrite[0].system, "strict JSON LIST")
	assert.Contains(t, rewrite[0].user, "Current Setting: HEAVY SCRIPTING")
	assert.Contains(t, rewrite[0].user, "Write word-for-word script.")
	assert.Contains(t, rewrite[0].user, "['Do:', 'Materials:']")

	topic := agent.byRole(llm.RoleTopic)
	require.Len(t, topic, 1)
	assert.Contains(t, topic[0].user, "Slide 2: Slide title 2 [Title and Content]")
}

func TestLoadSystemInstructionFallbacks(t *testing.T) {
	assert.Equal(t, defaultSystemInstruction, loadSystemInstruction("", zap.NewNop()))
	assert.Equal(t, defaultSystemInstruction, loadSystemInstruction(filepath.Join(t.TempDir(), "missing.txt"), zap.NewNop()))
}

func TestScriptingLevel(t *testing.T) {
	assert.Equal(t, "basic", scriptingLevel("Basic"))
	assert.Equal(t, "heavy", scriptingLevel(" HEAVY "))
	assert.Equal(t, "light", scriptingLevel("extreme"))
}

func TestOutlineDefaults(t *testing.T) {
	got := outline([]SlideInput{{Number: 4}})
	assert.Equal(t, "Slide 4: Untitled [Unknown]\n", got)
}

func TestSlidesFromReport(t *testing.T) {
	rep := &domain.Report{SlideContent: map[int]domain.SlideContent{
		3: {Title: "C", Images: 2},
		1: {Title: "A", Notes: "n"},
		2: {Title: "B", Layout: "Blank"},
	}}
	got := SlidesFromReport(rep)
	require.Len(t, got, 3)
	assert.Equal(t, SlideInput{Number: 1, Title: "A", Notes: "n"}, got[0])
	assert.Equal(t, "Blank", got[1].Layout)
	assert.Equal(t, 2, got[2].Images)
}

func TestParseSuggestions(t *testing.T) {
	t.Run("fenced list", func(t *testing.T) {
		got, err := parseSuggestions("```json\n[{\"slide_number\": 2, \"clarity_score\": 6, \"suggested_notes\": \"Do: climb\"}]\n```")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 2, got[0].SlideNumber)
		assert.Equal(t, Score("6"), got[0].ClarityScore)
		require.NotNil(t, got[0].SuggestedNotes)
		assert.Equal(t, "Do: climb", *got[0].SuggestedNotes)
	})
	t.Run("control characters", func(t *testing.T) {
		got, err := parseSuggestions("[{\"slide_number\": 3, \"tone_audit\": \"tab\there\"}]")
		require.NoError(t, err)
		assert.Equal(t, "tabhere", got[0].ToneAudit)
	})
	t.Run("single object", func(t *testing.T) {
		got, err := parseSuggestions(`{"slide_number": 5, "clarity_score": "N/A"}`)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, ScoreNA, got[0].ClarityScore)
	})
	t.Run("object inside prose", func(t *testing.T) {
		got, err := parseSuggestions(`Result: {"slide_number": 6, "remediation": {"option_a": {"label": "Polish Visuals", "text": "Align"}}} done`)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.NotNil(t, got[0].Remediation)
		assert.Equal(t, "Polish Visuals", got[0].Remediation.OptionA.Label)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := parseSuggestions("no json here")
		require.Error(t, err)
		_, err = parseSuggestions("```json\n```")
		assert.ErrorIs(t, err, errEmptyResponse)
	})
}

func TestScoreMarshal(t *testing.T) {
	data, err := json.Marshal([]Suggestion{{SlideNumber: 1, ClarityScore: "8"}, exemptPlaceholder(2)})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"clarity_score":8`)
	assert.Contains(t, string(data), `"clarity_score":"N/A"`)
	assert.Contains(t, string(data), `"exempt":true`)
}

func TestResult(t *testing.T) {
	ok := Ok("value")
	assert.True(t, ok.IsOk())
	assert.Equal(t, "value", ok.UnwrapOr("fallback"))

	failed := Attempt("retrieval", "", errors.New("timeout"))
	assert.False(t, failed.IsOk())
	assert.Equal(t, "fallback", failed.UnwrapOr("fallback"))
	var stageErr *StageError
	require.ErrorAs(t, failed.Err(), &stageErr)
	assert.Equal(t, "retrieval", stageErr.Stage)
	assert.EqualError(t, failed.Err(), "retrieval: timeout")

	n, err := Fail[int](errors.New("x")).Unwrap()
	assert.Zero(t, n)
	assert.Error(t, err)
}
