package watch

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"slideaudit/internal/config"
	"slideaudit/internal/storage/sqlite"
)

const digestTopFailures = 5

// DigestNotifier is satisfied by the Slack notifier.
type DigestNotifier interface {
	NotifyDigest(ctx context.Context, runs []sqlite.Run, top []sqlite.CheckCount, since time.Time) error
}

// SendDigest posts every run stored since the previous digest and records
// the new digest. It returns how many runs were included.
func SendDigest(ctx context.Context, db *sql.DB, n DigestNotifier, now time.Time) (int, error) {
	since, err := sqlite.LastDigestAt(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("last digest: %w", err)
	}
	runs, err := sqlite.RunsSince(ctx, db, since)
	if err != nil {
		return 0, fmt.Errorf("runs since %s: %w", since.Format(time.RFC3339), err)
	}
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	top, err := sqlite.TopFailures(ctx, db, ids, digestTopFailures)
	if err != nil {
		return 0, fmt.Errorf("top failures: %w", err)
	}
	if err := n.NotifyDigest(ctx, runs, top, since); err != nil {
		return 0, err
	}
	if len(runs) == 0 {
		return 0, nil
	}
	return len(runs), sqlite.MarkDigest(ctx, db, now, len(runs))
}

// Scheduler fires a job on a cron schedule in a fixed location.
type Scheduler struct {
	sched cron.Schedule
	expr  string
	loc   *time.Location
	job   func(ctx context.Context) error
	log   *zap.Logger
	now   func() time.Time
}

func NewScheduler(expr string, loc *time.Location, job func(ctx context.Context) error, log *zap.Logger) (*Scheduler, error) {
	sched, err := config.ParseSchedule(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid digest_schedule '%s': %w", expr, err)
	}
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{sched: sched, expr: expr, loc: loc, job: job, log: log, now: time.Now}, nil
}

// Next returns the first firing strictly after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.sched.Next(t.In(s.loc))
}

// Run blocks until ctx is done, running the job at each firing. Job errors
// are logged and the schedule continues.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		now := s.now()
		next := s.Next(now)
		wait := next.Sub(now)
		s.log.Info("next digest scheduled",
			zap.String("cron", s.expr),
			zap.String("at", next.Format("Mon Jan 2 15:04")),
			zap.Duration("in", wait.Round(time.Minute)),
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if err := s.job(ctx); err != nil {
			s.log.Error("digest failed", zap.Error(err))
		}
	}
}
