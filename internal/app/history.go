package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"slideaudit/internal/storage/sqlite"
)

func newHistoryCommand(e *env) *cobra.Command {
	var limit int
	var deck string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent audit runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := e.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			runs, err := sqlite.ListRuns(cmd.Context(), db, deck, limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			e.render(historyMarkdown(runs, e.cfg.Location))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().StringVar(&deck, "deck", "", "only runs of this presentation")
	return cmd
}

func historyMarkdown(runs []sqlite.Run, loc *time.Location) string {
	if len(runs) == 0 {
		return "No audit runs recorded yet.\n"
	}
	if loc == nil {
		loc = time.Local
	}
	var b strings.Builder
	b.WriteString("# Audit History\n\n| When | Deck | Slides | Compliance | WCAG | Fails | Projected min | Run |\n|---|---|---|---|---|---|---|---|\n")
	for _, r := range runs {
		fmt.Fprintf(&b, "| %s | %s | %d | %.1f%% | %.1f%% | %d | %.1f | %s |\n",
			r.CreatedAt.In(loc).Format("2006-01-02 15:04"), r.Presentation, r.Slides,
			r.ComplianceRate, r.WCAGComplianceRate, r.FailCount, r.ProjectedMin, shortID(r.ID))
	}
	return b.String()
}

func newUsageCommand(e *env) *cobra.Command {
	var since time.Duration
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show LLM token usage per agent and model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := e.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			var from time.Time
			if since > 0 {
				from = time.Now().Add(-since)
			}
			totals, err := sqlite.UsageTotals(cmd.Context(), db, from)
			if err != nil {
				return fmt.Errorf("usage totals: %w", err)
			}
			e.render(usageMarkdown(totals))
			return nil
		},
	}
	cmd.Flags().DurationVar(&since, "since", 0, "only calls within this window, e.g. 168h (default all)")
	return cmd
}

func usageMarkdown(totals []sqlite.UsageTotal) string {
	if len(totals) == 0 {
		return "No LLM calls recorded yet.\n"
	}
	var b strings.Builder
	b.WriteString("# LLM Usage\n\n| Agent | Provider | Model | Calls | Errors | Input | Output | Avg latency |\n|---|---|---|---|---|---|---|---|\n")
	var in, out int64
	for _, u := range totals {
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %d | %d | %d | %s |\n",
			u.Agent, u.Provider, u.Model, u.Calls, u.Errors, u.InputTokens, u.OutputTokens, u.AvgLatency.Round(time.Millisecond))
		in += u.InputTokens
		out += u.OutputTokens
	}
	fmt.Fprintf(&b, "\n**Total tokens:** %d (%d in / %d out)\n", in+out, in, out)
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
