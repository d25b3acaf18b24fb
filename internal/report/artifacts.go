// Package report writes the audit artifacts for one deck.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"slideaudit/internal/domain"
	"slideaudit/internal/orchestrator"
)

const (
	JSONFile        = "audit_report.json"
	MarkdownFile    = "summary.md"
	HTMLFile        = "summary.html"
	TranscriptFile  = "project_transcript.txt"
	PacingFile      = "pacing_log.csv"
	SuggestionsFile = "ai_suggestions.json"

	notesSnippetLen = 45
)

// Artifacts lists the files written for one report.
type Artifacts struct {
	Dir         string
	JSON        string
	Markdown    string
	HTML        string
	Transcript  string
	PacingCSV   string
	Suggestions string
}

type Writer struct {
	root string
	log  *zap.Logger
}

func NewWriter(root string, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{root: root, log: log}
}

// ReportDir is the per-run directory under root, named after the deck and
// the report timestamp.
func ReportDir(root string, rep *domain.Report) string {
	name := sanitizeFilename(rep.Summary.PresentationName)
	if name == "" {
		name = "presentation"
	}
	return filepath.Join(root, fmt.Sprintf("%s_%s", name, rep.Summary.GeneratedAt.Format("20060102_150405")))
}

// Write renders every artifact. outcome may be nil, in which case no
// suggestions file is written.
func (w *Writer) Write(rep *domain.Report, outcome *orchestrator.Outcome) (Artifacts, error) {
	dir := ReportDir(w.root, rep)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Artifacts{}, err
	}
	a := Artifacts{
		Dir:        dir,
		JSON:       filepath.Join(dir, JSONFile),
		Markdown:   filepath.Join(dir, MarkdownFile),
		HTML:       filepath.Join(dir, HTMLFile),
		Transcript: filepath.Join(dir, TranscriptFile),
		PacingCSV:  filepath.Join(dir, PacingFile),
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return a, fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(a.JSON, data, 0644); err != nil {
		return a, err
	}

	md := Markdown(rep, outcome)
	if err := os.WriteFile(a.Markdown, []byte(md), 0644); err != nil {
		return a, err
	}
	page, err := HTML(rep.Summary.PresentationName, md)
	if err != nil {
		return a, err
	}
	if err := os.WriteFile(a.HTML, []byte(page), 0644); err != nil {
		return a, err
	}

	if err := os.WriteFile(a.Transcript, []byte(Transcript(rep)), 0644); err != nil {
		return a, err
	}

	csvData, err := PacingCSV(rep)
	if err != nil {
		return a, err
	}
	if err := os.WriteFile(a.PacingCSV, csvData, 0644); err != nil {
		return a, err
	}

	if outcome != nil {
		a.Suggestions = filepath.Join(dir, SuggestionsFile)
		data, err := json.MarshalIndent(outcome, "", "  ")
		if err != nil {
			return a, fmt.Errorf("encode suggestions: %w", err)
		}
		if err := os.WriteFile(a.Suggestions, data, 0644); err != nil {
			return a, err
		}
	}
	w.log.Info("report written", zap.String("deck", rep.Summary.PresentationName), zap.String("dir", dir))
	return a, nil
}

const htmlHead = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>%s</title>
<style>
body { font-family: Calibri, Arial, sans-serif; font-size: 11pt; color: #1f1f1f; line-height: 1.35; max-width: 960px; margin: 24px auto; }
table { border-collapse: collapse; margin: 8px 0; }
th, td { border: 1px solid #d0d0d0; padding: 4px 8px; text-align: left; }
blockquote { border-left: 3px solid #2f5496; margin: 8px 0; padding-left: 12px; color: #333333; }
</style></head><body>
`

// HTML renders the Markdown summary as a standalone page.
func HTML(title, markdown string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return fmt.Sprintf(htmlHead, html.EscapeString(title)) + body.String() + "</body></html>\n", nil
}

// Transcript lists every slide's title, on-screen text and notes followed by
// the cadence table from the pacing timeline.
func Transcript(rep *domain.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PROJECT TRANSCRIPT: %s\n%s\n\n", rep.Summary.PresentationName, strings.Repeat("=", 80))
	for _, n := range slideNumbers(rep) {
		c, ok := rep.SlideContent[n]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "--- SLIDE %d: %s [%s]", n, c.Title, c.Layout)
		if c.Exempt {
			b.WriteString(" (exempt)")
		}
		b.WriteString(" ---\n")
		fmt.Fprintf(&b, "ON-SCREEN TEXT:\n%s\n", orNone(c.Text))
		fmt.Fprintf(&b, "SPEAKER NOTES:\n%s\n\n", orNone(c.Notes))
	}

	row := "%-5s | %-40s | %-5s | %-9s | %s\n"
	b.WriteString("CADENCE & PACING LOG\n" + strings.Repeat("=", 80) + "\n")
	fmt.Fprintf(&b, row, "SLIDE", "GAGNE EVENTS", "TIME", "LOGIC", "SNIPPET")
	b.WriteString(strings.Repeat("-", 80) + "\n")
	var total float64
	for _, t := range rep.Timeline {
		events := joinEvents(t.Events)
		if events == "" {
			events = "UNTAGGED"
		}
		if len(events) > 40 {
			events = events[:40]
		}
		logic := "IMPLICIT"
		switch {
		case t.Exempt:
			logic = "EXEMPT"
		case t.PlannedMin > 0:
			logic = "EXPLICIT"
		}
		total += t.ProjectedMin
		fmt.Fprintf(&b, row, strconv.Itoa(t.Slide), events, strconv.FormatFloat(t.ProjectedMin, 'f', 1, 64), logic,
			notesSnippet(rep.SlideContent[t.Slide].Notes))
	}
	b.WriteString(strings.Repeat("-", 80) + "\n")
	fmt.Fprintf(&b, "CALCULATED TOTAL DURATION: %.1f Minutes\n", total)
	return b.String()
}

var pacingHeader = []string{"Slide", "Section", "Activity", "Events", "Planned", "Implicit", "Projected", "Delta", "Funded", "Notes"}

// PacingCSV writes one row per timeline entry.
func PacingCSV(rep *domain.Report) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(pacingHeader); err != nil {
		return nil, err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	for _, t := range rep.Timeline {
		if err := cw.Write([]string{
			strconv.Itoa(t.Slide),
			t.Section,
			t.Activity,
			joinEvents(t.Events),
			f(t.PlannedMin),
			f(t.ImplicitMin),
			f(t.ProjectedMin),
			f(t.ProjectedMin - t.PlannedMin),
			strconv.FormatBool(t.Funded),
			notesSnippet(rep.SlideContent[t.Slide].Notes),
		}); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}

func joinEvents(events []domain.GagneEvent) string {
	parts := make([]string, len(events))
	for i, e := range events {
		parts[i] = string(e)
	}
	return strings.Join(parts, ", ")
}

func notesSnippet(notes string) string {
	notes = strings.Join(strings.Fields(notes), " ")
	if notes == "" {
		return "(No Notes)"
	}
	r := []rune(notes)
	if len(r) > notesSnippetLen {
		return string(r[:notesSnippetLen]) + "..."
	}
	return notes
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", " ", "_")
	return replacer.Replace(strings.TrimSpace(s))
}
