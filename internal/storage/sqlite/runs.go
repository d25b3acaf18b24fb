package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"slideaudit/internal/domain"
)

// Run is one stored audit.
type Run struct {
	ID                 string
	Presentation       string
	SourcePath         string
	Slides             int
	TotalIssues        int
	FailCount          int
	WarningCount       int
	ManualReviews      int
	ComplianceRate     float64
	WCAGComplianceRate float64
	PlannedMin         float64
	ProjectedMin       float64
	ReportDir          string
	CreatedAt          time.Time
}

func RunFromReport(rep *domain.Report, sourcePath, reportDir string) Run {
	s := rep.Summary
	return Run{
		Presentation:       s.PresentationName,
		SourcePath:         sourcePath,
		Slides:             s.SlidesChecked,
		TotalIssues:        s.TotalIssues,
		FailCount:          s.FailCount,
		WarningCount:       s.WarningCount,
		ManualReviews:      s.ManualReviews,
		ComplianceRate:     s.ComplianceRate,
		WCAGComplianceRate: s.WCAGComplianceRate,
		PlannedMin:         s.Pacing.PlannedMin,
		ProjectedMin:       s.Pacing.ProjectedMin,
		ReportDir:          reportDir,
		CreatedAt:          s.GeneratedAt,
	}
}

const runColumns = `id, presentation, source_path, slides, total_issues, fail_count, warning_count,
		manual_reviews, compliance_rate, wcag_compliance_rate, planned_minutes, projected_minutes,
		report_dir, created_at`

// InsertRun stores a run with its issues and returns the run ID. A run
// without an ID gets a fresh UUID.
func InsertRun(ctx context.Context, db *sql.DB, run Run, issues []domain.Issue) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Presentation, run.SourcePath, run.Slides, run.TotalIssues, run.FailCount,
		run.WarningCount, run.ManualReviews, run.ComplianceRate, run.WCAGComplianceRate,
		run.PlannedMin, run.ProjectedMin, run.ReportDir, run.CreatedAt.UTC(),
	); err != nil {
		return "", err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO issues (run_id, slide, check_name, shape_name, severity, details, ratio, foreground, background, suggested_fix)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for _, iss := range issues {
		if _, err := stmt.ExecContext(ctx,
			run.ID, iss.Slide, string(iss.Check), iss.ShapeName, string(iss.Severity), iss.Details,
			iss.Ratio, iss.Foreground, iss.Background, iss.SuggestedFix,
		); err != nil {
			return "", err
		}
	}
	return run.ID, tx.Commit()
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.ID, &r.Presentation, &r.SourcePath, &r.Slides, &r.TotalIssues, &r.FailCount,
			&r.WarningCount, &r.ManualReviews, &r.ComplianceRate, &r.WCAGComplianceRate,
			&r.PlannedMin, &r.ProjectedMin, &r.ReportDir, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListRuns returns the most recent runs first. An empty presentation name
// matches every deck.
func ListRuns(ctx context.Context, db *sql.DB, presentation string, limit int) ([]Run, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs
		 WHERE (? = '' OR presentation = ?)
		 ORDER BY created_at DESC, id LIMIT ?`,
		presentation, presentation, limit,
	)
	if err != nil {
		return nil, err
	}
	return scanRuns(rows)
}

func GetRun(ctx context.Context, db *sql.DB, id string) (Run, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	if err != nil {
		return Run{}, err
	}
	runs, err := scanRuns(rows)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, sql.ErrNoRows
	}
	return runs[0], nil
}

// RunsSince returns runs created at or after since, oldest first.
func RunsSince(ctx context.Context, db *sql.DB, since time.Time) ([]Run, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE created_at >= ? ORDER BY created_at, id`,
		since.UTC(),
	)
	if err != nil {
		return nil, err
	}
	return scanRuns(rows)
}

func GetRunIssues(ctx context.Context, db *sql.DB, runID string) ([]domain.Issue, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT slide, check_name, shape_name, severity, details, ratio, foreground, background, suggested_fix
		 FROM issues WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var issues []domain.Issue
	for rows.Next() {
		var iss domain.Issue
		var check, severity string
		if err := rows.Scan(&iss.Slide, &check, &iss.ShapeName, &severity, &iss.Details,
			&iss.Ratio, &iss.Foreground, &iss.Background, &iss.SuggestedFix); err != nil {
			return nil, err
		}
		iss.Check = domain.Check(check)
		iss.Severity = domain.Severity(severity)
		issues = append(issues, iss)
	}
	return issues, rows.Err()
}

// CheckCount is how often a check failed across runs.
type CheckCount struct {
	Check domain.Check
	Count int
}

// TopFailures ranks checks by FAIL count for the given runs.
func TopFailures(ctx context.Context, db *sql.DB, runIDs []string, limit int) ([]CheckCount, error) {
	if len(runIDs) == 0 {
		return nil, nil
	}
	if limit < 1 {
		limit = 5
	}
	args := make([]any, 0, len(runIDs)+2)
	placeholders := make([]byte, 0, len(runIDs)*2)
	for i, id := range runIDs {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, id)
	}
	args = append(args, string(domain.SeverityFail), limit)
	rows, err := db.QueryContext(ctx,
		`SELECT check_name, COUNT(*) FROM issues
		 WHERE run_id IN (`+string(placeholders)+`) AND severity = ?
		 GROUP BY check_name ORDER BY COUNT(*) DESC, check_name LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CheckCount
	for rows.Next() {
		var c CheckCount
		var check string
		if err := rows.Scan(&check, &c.Count); err != nil {
			return nil, err
		}
		c.Check = domain.Check(check)
		out = append(out, c)
	}
	return out, rows.Err()
}

// LastDigestAt returns when the last digest was sent, or the zero time.
func LastDigestAt(ctx context.Context, db *sql.DB) (time.Time, error) {
	var at time.Time
	err := db.QueryRowContext(ctx, `SELECT sent_at FROM digests ORDER BY sent_at DESC, id DESC LIMIT 1`).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	return at, err
}

func MarkDigest(ctx context.Context, db *sql.DB, at time.Time, runs int) error {
	_, err := db.ExecContext(ctx, `INSERT INTO digests (runs, sent_at) VALUES (?, ?)`, runs, at.UTC())
	return err
}
