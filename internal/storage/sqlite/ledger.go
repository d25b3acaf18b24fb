package sqlite

import (
	"context"
	"database/sql"
	"time"

	"slideaudit/internal/integrations/llm"
)

type runKey struct{}

// WithRunID tags LLM calls made under ctx with an audit run.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runKey{}, runID)
}

func runIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runKey{}).(string)
	return id
}

// Ledger records every agent call in token_ledger.
type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) RecordCall(ctx context.Context, c llm.Call) error {
	at := c.At
	if at.IsZero() {
		at = time.Now()
	}
	// Recording must survive a cancelled audit.
	ctx = context.WithoutCancel(ctx)
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO token_ledger
		 (run_id, agent, provider, model, input_tokens, output_tokens, cache_creation_tokens, cache_read_tokens, latency_ms, status, error, called_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runIDFrom(ctx), string(c.Role), c.Provider, c.Model,
		c.Usage.InputTokens, c.Usage.OutputTokens, c.Usage.CacheCreationInputTokens, c.Usage.CacheReadInputTokens,
		c.Latency.Milliseconds(), c.Status, c.Error, at.UTC(),
	)
	return err
}

// UsageTotal aggregates ledger rows per agent, provider and model.
type UsageTotal struct {
	Agent        string
	Provider     string
	Model        string
	Calls        int
	Errors       int
	InputTokens  int64
	OutputTokens int64
	AvgLatency   time.Duration
}

func (u UsageTotal) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

func UsageTotals(ctx context.Context, db *sql.DB, since time.Time) ([]UsageTotal, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT agent, provider, model, COUNT(*),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0),
		        COALESCE(AVG(latency_ms), 0)
		 FROM token_ledger WHERE called_at >= ?
		 GROUP BY agent, provider, model ORDER BY agent, provider, model`,
		llm.StatusError, since.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UsageTotal
	for rows.Next() {
		var u UsageTotal
		var avgMs float64
		if err := rows.Scan(&u.Agent, &u.Provider, &u.Model, &u.Calls, &u.Errors,
			&u.InputTokens, &u.OutputTokens, &avgMs); err != nil {
			return nil, err
		}
		u.AvgLatency = time.Duration(avgMs * float64(time.Millisecond))
		out = append(out, u)
	}
	return out, rows.Err()
}

// RunUsage sums the tokens spent under one run.
func RunUsage(ctx context.Context, db *sql.DB, runID string) (llm.Usage, error) {
	var u llm.Usage
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0),
		        COALESCE(SUM(cache_creation_tokens), 0), COALESCE(SUM(cache_read_tokens), 0)
		 FROM token_ledger WHERE run_id = ?`,
		runID,
	).Scan(&u.InputTokens, &u.OutputTokens, &u.CacheCreationInputTokens, &u.CacheReadInputTokens)
	return u, err
}
