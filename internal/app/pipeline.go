package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"slideaudit/internal/analyzer"
	"slideaudit/internal/config"
	"slideaudit/internal/content"
	"slideaudit/internal/domain"
	"slideaudit/internal/httpx"
	"slideaudit/internal/integrations/llm"
	slackbot "slideaudit/internal/integrations/slack"
	"slideaudit/internal/orchestrator"
	"slideaudit/internal/pptx"
	"slideaudit/internal/report"
	"slideaudit/internal/retrieval"
	"slideaudit/internal/storage/sqlite"
)

// Options selects the optional stages of an audit.
type Options struct {
	OutputDir string
	Rewrite   bool
	Notify    bool
	Store     bool
}

// Pipeline audits one deck end to end: read, analyze, optionally rewrite
// notes, write artifacts, store the run and notify Slack.
type Pipeline struct {
	cfg          config.Config
	log          *zap.Logger
	reader       *pptx.Reader
	analyzer     *analyzer.Analyzer
	writer       *report.Writer
	db           *sql.DB
	orchestrator *orchestrator.Orchestrator
	notifier     *slackbot.Notifier
	spelling     bool
}

// Result is what one audited deck produced.
type Result struct {
	Path      string
	RunID     string
	Report    *domain.Report
	Outcome   *orchestrator.Outcome
	Artifacts report.Artifacts
}

// NewPipeline builds the stages Options asks for. db may be nil only when
// Store is false.
func NewPipeline(cfg config.Config, opts Options, db *sql.DB, log *zap.Logger) (*Pipeline, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var aopts []analyzer.Option
	aopts = append(aopts, analyzer.WithLogger(log))
	words, err := content.LoadWordList(cfg.DictionaryPath)
	spelling := err == nil
	if spelling {
		aopts = append(aopts, analyzer.WithSpeller(content.NewSpeller(words, cfg.SpellingAllowList)))
	} else {
		log.Warn("spelling check disabled", zap.String("dictionary_path", cfg.DictionaryPath), zap.Error(err))
	}

	outDir := opts.OutputDir
	if outDir == "" {
		outDir = cfg.ReportOutputDir
	}
	p := &Pipeline{
		cfg:      cfg,
		log:      log,
		reader:   pptx.NewReader(log),
		analyzer: analyzer.New(cfg, aopts...),
		writer:   report.NewWriter(outDir, log),
		spelling: spelling,
	}
	if opts.Store {
		if db == nil {
			return nil, fmt.Errorf("run storage requested without a database")
		}
		p.db = db
	}

	if opts.Rewrite {
		if err := cfg.ValidateLLM(); err != nil {
			return nil, err
		}
		var recorder llm.Recorder
		if p.db != nil {
			recorder = sqlite.NewLedger(p.db)
		}
		exec := llm.NewExecutor(cfg, httpx.ExternalHTTPClient(), recorder, log)
		store, err := retrieval.Load(cfg.KnowledgeBasePath, cfg.RetrievalTopK)
		if err != nil {
			return nil, fmt.Errorf("load knowledge base: %w", err)
		}
		p.orchestrator = orchestrator.New(cfg, exec, store, log)
	}

	if opts.Notify {
		n, err := slackbot.New(cfg, httpx.ExternalHTTPClient(), log)
		if err != nil {
			return nil, err
		}
		p.notifier = n
	}
	return p, nil
}

// Audit runs every configured stage for one deck. Only an unreadable deck or
// a failure to write artifacts is fatal; storage and Slack errors are logged.
func (p *Pipeline) Audit(ctx context.Context, path string) (*Result, error) {
	pres, err := p.reader.Open(path)
	if err != nil {
		return nil, err
	}
	rep := p.analyzer.Analyze(pres)
	res := &Result{Path: path, RunID: uuid.New().String(), Report: rep}

	if p.orchestrator != nil {
		runCtx := sqlite.WithRunID(ctx, res.RunID)
		out, err := p.orchestrator.Run(runCtx, orchestrator.SlidesFromReport(rep), len(pres.Slides))
		if err != nil {
			return nil, fmt.Errorf("rewrite %s: %w", path, err)
		}
		res.Outcome = out
	}

	res.Artifacts, err = p.writer.Write(rep, res.Outcome)
	if err != nil {
		return nil, fmt.Errorf("write report for %s: %w", path, err)
	}

	if p.db != nil {
		run := sqlite.RunFromReport(rep, path, res.Artifacts.Dir)
		run.ID = res.RunID
		if _, err := sqlite.InsertRun(ctx, p.db, run, rep.Issues); err != nil {
			p.log.Error("store run failed", zap.String("path", path), zap.Error(err))
		}
	}

	if p.notifier != nil {
		if err := p.notifier.NotifyRun(ctx, rep); err != nil {
			p.log.Error("slack notify failed", zap.String("path", path), zap.Error(err))
		}
	}
	p.log.Info("audit complete",
		zap.String("path", path),
		zap.String("run_id", res.RunID),
		zap.String("dir", res.Artifacts.Dir),
	)
	return res, nil
}
