package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"slideaudit/internal/domain"
	"slideaudit/internal/report"
)

type auditFlags struct {
	out     string
	rewrite bool
	notify  bool
	noStore bool
	format  string
}

func newAuditCommand(e *env) *cobra.Command {
	f := &auditFlags{}
	cmd := &cobra.Command{
		Use:   "audit FILE...",
		Short: "Audit one or more .pptx decks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.format != "md" && f.format != "json" {
				return fmt.Errorf("--format must be 'md' or 'json', got '%s'", f.format)
			}
			if f.notify && !e.cfg.SlackConfigured() {
				return fmt.Errorf("--notify needs slack_bot_token and slack_channel_id")
			}
			var db *sql.DB
			if !f.noStore {
				var err error
				if db, err = e.openDB(); err != nil {
					return err
				}
				defer db.Close()
			}
			p, err := NewPipeline(e.cfg, Options{
				OutputDir: f.out,
				Rewrite:   f.rewrite,
				Notify:    f.notify,
				Store:     !f.noStore,
			}, db, e.log)
			if err != nil {
				return err
			}
			results, err := auditAll(cmd.Context(), p, args, e.cfg.AuditConcurrency, e.log)
			e.printResults(results, f.format)
			return err
		},
	}
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "report output directory (default report_output_dir)")
	cmd.Flags().BoolVar(&f.rewrite, "rewrite", false, "rewrite speaker notes with the LLM agents")
	cmd.Flags().BoolVar(&f.notify, "notify", false, "post a summary to Slack")
	cmd.Flags().BoolVar(&f.noStore, "no-store", false, "do not record the run in the history database")
	cmd.Flags().StringVar(&f.format, "format", "md", "console output: md or json")
	return cmd
}

// auditAll audits decks concurrently, bounded by limit. Results keep the
// order of paths; a failed deck leaves a nil entry and its error is joined
// into the returned error.
func auditAll(ctx context.Context, p *Pipeline, paths []string, limit int, log *zap.Logger) ([]*Result, error) {
	if limit < 1 {
		limit = 1
	}
	results := make([]*Result, len(paths))
	errs := make([]error, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, path := range paths {
		g.Go(func() error {
			res, err := p.Audit(gctx, path)
			if err != nil {
				log.Error("audit failed", zap.String("path", path), zap.Error(err))
				errs[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	var failed []string
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err.Error())
		}
	}
	if len(failed) > 0 {
		return results, fmt.Errorf("%d of %d decks failed: %s", len(failed), len(paths), strings.Join(failed, "; "))
	}
	return results, nil
}

type jsonResult struct {
	Path      string         `json:"path"`
	RunID     string         `json:"run_id"`
	ReportDir string         `json:"report_dir"`
	Summary   domain.Summary `json:"summary"`
	Issues    []domain.Issue `json:"issues"`
}

func (e *env) printResults(results []*Result, format string) {
	if format == "json" {
		var out []jsonResult
		for _, r := range results {
			if r == nil {
				continue
			}
			out = append(out, jsonResult{
				Path:      r.Path,
				RunID:     r.RunID,
				ReportDir: r.Artifacts.Dir,
				Summary:   r.Report.Summary,
				Issues:    r.Report.Issues,
			})
		}
		enc := json.NewEncoder(e.out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		return
	}
	for _, r := range results {
		if r == nil {
			continue
		}
		e.render(report.Markdown(r.Report, r.Outcome) + fmt.Sprintf("\n_Report written to %s_\n", r.Artifacts.Dir))
	}
}
