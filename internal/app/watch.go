package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"slideaudit/internal/httpx"
	slackbot "slideaudit/internal/integrations/slack"
	"slideaudit/internal/watch"
)

func newWatchCommand(e *env) *cobra.Command {
	var out string
	var rewrite bool
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Audit decks as they appear in a directory and post a scheduled digest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if st, err := os.Stat(dir); err != nil || !st.IsDir() {
				return fmt.Errorf("watch: %s is not a directory", dir)
			}
			db, err := e.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			slack := e.cfg.SlackConfigured()
			p, err := NewPipeline(e.cfg, Options{OutputDir: out, Rewrite: rewrite, Notify: slack, Store: true}, db, e.log)
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			w := watch.NewWatcher(dir, func(ctx context.Context, path string) error {
				_, err := p.Audit(ctx, path)
				return err
			}, e.log)
			w.SetDebounce(debounce)
			g.Go(func() error { return w.Run(ctx) })

			switch {
			case e.cfg.DigestSchedule == "":
				e.log.Info("digest disabled", zap.String("reason", "no digest_schedule"))
			case !slack:
				e.log.Info("digest disabled", zap.String("reason", "slack not configured"))
			default:
				notifier, err := slackbot.New(e.cfg, httpx.ExternalHTTPClient(), e.log)
				if err != nil {
					return err
				}
				sched, err := watch.NewScheduler(e.cfg.DigestSchedule, e.cfg.Location, func(ctx context.Context) error {
					n, err := watch.SendDigest(ctx, db, notifier, time.Now())
					if err == nil {
						e.log.Info("digest sent", zap.Int("runs", n))
					}
					return err
				}, e.log)
				if err != nil {
					return err
				}
				g.Go(func() error { return sched.Run(ctx) })
			}

			err = g.Wait()
			if cmd.Context().Err() != nil {
				e.log.Info("watch stopped")
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "report output directory (default report_output_dir)")
	cmd.Flags().BoolVar(&rewrite, "rewrite", false, "rewrite speaker notes with the LLM agents")
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "quiet period before a changed deck is audited")
	return cmd
}
