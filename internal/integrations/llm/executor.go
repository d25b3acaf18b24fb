// Package llm runs the audit agents against Anthropic, OpenAI-compatible
// or Gemini backends and records every call in the token ledger.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"slideaudit/internal/config"
)

// Role identifies one of the three audit agents.
type Role string

const (
	RoleTopic    Role = "AGENT_1"
	RoleResearch Role = "AGENT_2"
	RoleRewrite  Role = "AGENT_3"
)

// Provider completes a single system+user prompt.
type Provider interface {
	Complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, Usage, error)
}

// Recorder persists ledger entries. Recording failures are logged, never
// returned to the caller.
type Recorder interface {
	RecordCall(ctx context.Context, call Call) error
}

const (
	defaultAnthropicModel = "claude-sonnet-4-5-20250929"
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultGeminiModel    = "gemini-2.5-flash"
)

var roleModels = map[Role]map[string]string{
	RoleTopic: {
		config.ProviderAnthropic: defaultAnthropicModel,
		config.ProviderOpenAI:    defaultOpenAIModel,
		config.ProviderGemini:    defaultGeminiModel,
	},
	RoleResearch: {
		config.ProviderAnthropic: "claude-haiku-4-5",
		config.ProviderOpenAI:    defaultOpenAIModel,
		config.ProviderGemini:    defaultGeminiModel,
	},
	RoleRewrite: {
		config.ProviderAnthropic: defaultAnthropicModel,
		config.ProviderOpenAI:    "gpt-4o",
		config.ProviderGemini:    "gemini-2.5-pro",
	},
}

// DefaultModel returns the model used for a role when none is configured.
func DefaultModel(role Role, provider string) string {
	return roleModels[role][provider]
}

// Executor maps agent roles to providers and models from config. Provider
// clients are created on first use.
type Executor struct {
	cfg        config.Config
	httpClient *http.Client
	recorder   Recorder
	log        *zap.Logger
	now        func() time.Time

	mu        sync.Mutex
	providers map[string]Provider
}

func NewExecutor(cfg config.Config, httpClient *http.Client, recorder Recorder, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{
		cfg:        cfg,
		httpClient: httpClient,
		recorder:   recorder,
		log:        log,
		now:        time.Now,
		providers:  make(map[string]Provider),
	}
}

// SetProvider installs a client for a provider name, replacing the one
// built from config.
func (e *Executor) SetProvider(name string, p Provider) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.providers[strings.ToLower(name)] = p
}

func (e *Executor) agent(role Role) config.AgentConfig {
	switch role {
	case RoleTopic:
		return e.cfg.Agents.Topic
	case RoleResearch:
		return e.cfg.Agents.Research
	default:
		return e.cfg.Agents.Rewrite
	}
}

func (e *Executor) provider(ctx context.Context, name string) (Provider, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.providers[name]; ok {
		return p, nil
	}
	var p Provider
	switch name {
	case config.ProviderAnthropic:
		if e.cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("provider %s missing API key", name)
		}
		p = NewAnthropic(e.cfg.AnthropicAPIKey, e.httpClient)
	case config.ProviderOpenAI:
		if e.cfg.OpenAIAPIKey == "" && e.cfg.OpenAIBaseURL == "" {
			return nil, fmt.Errorf("provider %s missing API key", name)
		}
		p = NewOpenAI(e.cfg.OpenAIAPIKey, e.cfg.OpenAIBaseURL, e.httpClient)
	case config.ProviderGemini:
		g, err := NewGemini(ctx, e.cfg.GeminiAPIKey, e.httpClient)
		if err != nil {
			return nil, err
		}
		p = g
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	e.providers[name] = p
	return p, nil
}

// Execute runs one agent call. Success and failure are both written to the
// ledger with latency and token counts.
func (e *Executor) Execute(ctx context.Context, role Role, systemPrompt, userPrompt string) (string, Usage, error) {
	agent := e.agent(role)
	name := strings.ToLower(strings.TrimSpace(agent.Provider))
	if name == "" {
		name = config.ProviderGemini
	}
	model := agent.Model
	if model == "" {
		model = DefaultModel(role, name)
	}

	start := e.now()
	call := Call{At: start, Role: role, Provider: name, Model: model}
	p, err := e.provider(ctx, name)
	var text string
	var usage Usage
	if err == nil {
		e.log.Debug("llm agent call", zap.String("role", string(role)), zap.String("provider", name), zap.String("model", model), zap.Int("prompt_chars", len(userPrompt)))
		text, usage, err = p.Complete(ctx, model, systemPrompt, userPrompt)
	}
	call.Latency = e.now().Sub(start)
	call.Usage = usage
	call.Status = StatusSuccess
	if err != nil {
		call.Status = StatusError
		call.Error = err.Error()
		e.log.Error("llm agent failed", zap.String("role", string(role)), zap.String("provider", name), zap.Error(err))
	} else {
		e.log.Info("llm agent response",
			zap.String("role", string(role)),
			zap.String("provider", name),
			zap.Int("size", len(text)),
			zap.Int64("tokens_in", usage.InputTokens),
			zap.Int64("tokens_out", usage.OutputTokens),
			zap.Duration("latency", call.Latency),
		)
	}
	if e.recorder != nil {
		if rerr := e.recorder.RecordCall(ctx, call); rerr != nil {
			e.log.Warn("token ledger write failed", zap.Error(rerr))
		}
	}
	if err != nil {
		return "", usage, fmt.Errorf("agent %s on %s: %w", role, name, err)
	}
	return text, usage, nil
}
