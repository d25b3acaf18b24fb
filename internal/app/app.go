// Package app wires the slideaudit command line.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"slideaudit/internal/config"
	"slideaudit/internal/httpx"
	"slideaudit/internal/storage/sqlite"
)

// env carries what every command needs once the root pre-run has loaded
// config and built the logger.
type env struct {
	configPath string
	verbose    bool
	cfg        config.Config
	log        *zap.Logger
	out        io.Writer
}

func Main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:   "slideaudit",
		Short: "Audit PowerPoint decks for accessibility, brand and pacing",
		Long: `slideaudit checks .pptx decks for WCAG contrast, alt text, brand fonts and
colors, instructional structure and pacing, and can rewrite speaker notes with
a three-agent LLM pipeline.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(e.configPath)
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.log, err = buildLogger(cfg.LogLevel, e.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			applied := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
			e.log.Debug("config loaded",
				zap.String("timezone", cfg.Timezone),
				zap.Int("llm_batch_size", cfg.LLMBatchSize),
				zap.Int("audit_concurrency", cfg.AuditConcurrency),
				zap.Duration("external_http_timeout", applied),
			)
			e.out = cmd.OutOrStdout()
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.log != nil {
				_ = e.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&e.configPath, "config", "c", "", "config file (default config.yaml or $SLIDEAUDIT_CONFIG)")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newAuditCommand(e), newHistoryCommand(e), newUsageCommand(e), newWatchCommand(e))
	return root
}

func buildLogger(level string, verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.Set(level); err != nil {
			return nil, fmt.Errorf("invalid log_level '%s': %w", level, err)
		}
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func (e *env) openDB() (*sql.DB, error) {
	db, err := sqlite.InitDB(e.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("init database %s: %w", e.cfg.DBPath, err)
	}
	e.log.Debug("database initialized", zap.String("path", e.cfg.DBPath))
	return db, nil
}

// render prints Markdown through glamour, falling back to the raw text when
// the terminal renderer cannot be built.
func (e *env) render(markdown string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err == nil {
		if out, rerr := r.Render(markdown); rerr == nil {
			fmt.Fprint(e.out, out)
			return
		}
	}
	fmt.Fprint(e.out, markdown)
}
