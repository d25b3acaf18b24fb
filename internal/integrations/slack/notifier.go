// Package slackbot posts audit summaries and digests to a Slack channel.
package slackbot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"slideaudit/internal/config"
	"slideaudit/internal/domain"
	"slideaudit/internal/storage/sqlite"
)

const topFailureCount = 3

var ErrNotConfigured = errors.New("slack bot token or channel not configured")

type Notifier struct {
	api     *slack.Client
	channel string
	log     *zap.Logger
}

func New(cfg config.Config, httpClient *http.Client, log *zap.Logger) (*Notifier, error) {
	if !cfg.SlackConfigured() {
		return nil, ErrNotConfigured
	}
	opts := []slack.Option{}
	if httpClient != nil {
		opts = append(opts, slack.OptionHTTPClient(httpClient))
	}
	if cfg.SlackAPIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.SlackAPIURL))
	}
	return NewWithClient(slack.New(cfg.SlackBotToken, opts...), cfg.SlackChannelID, log), nil
}

func NewWithClient(api *slack.Client, channel string, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{api: api, channel: channel, log: log}
}

// NotifyRun posts the summary of one audit.
func (n *Notifier) NotifyRun(ctx context.Context, rep *domain.Report) error {
	text, blocks := runMessage(rep)
	return n.post(ctx, text, blocks)
}

// NotifyDigest posts a roll-up of the runs since the previous digest.
// Nothing is posted when runs is empty.
func (n *Notifier) NotifyDigest(ctx context.Context, runs []sqlite.Run, top []sqlite.CheckCount, since time.Time) error {
	if len(runs) == 0 {
		n.log.Info("slack digest skipped", zap.String("reason", "no runs"))
		return nil
	}
	text, blocks := digestMessage(runs, top, since)
	return n.post(ctx, text, blocks)
}

func (n *Notifier) post(ctx context.Context, text string, blocks []slack.Block) error {
	_, ts, err := n.api.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return fmt.Errorf("slack post to %s: %w", n.channel, err)
	}
	n.log.Info("slack message posted", zap.String("channel", n.channel), zap.String("ts", ts))
	return nil
}

func runMessage(rep *domain.Report) (string, []slack.Block) {
	s := rep.Summary
	text := fmt.Sprintf("Audit of %s: %.1f%% compliant, %.1f%% WCAG", s.PresentationName, s.ComplianceRate, s.WCAGComplianceRate)

	fields := []*slack.TextBlockObject{
		mrkdwn(fmt.Sprintf("*Slides*\n%d", s.SlidesChecked)),
		mrkdwn(fmt.Sprintf("*Compliance*\n%.1f%%", s.ComplianceRate)),
		mrkdwn(fmt.Sprintf("*WCAG*\n%.1f%%", s.WCAGComplianceRate)),
		mrkdwn(fmt.Sprintf("*Pacing*\n%.1f planned / %.1f projected min", s.Pacing.PlannedMin, s.Pacing.ProjectedMin)),
	}
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, "Slide audit: "+s.PresentationName, false, false)),
		slack.NewSectionBlock(nil, fields, nil),
	}
	if top := topFailures(rep.Issues); len(top) > 0 {
		var b strings.Builder
		b.WriteString("*Top failures*")
		for _, c := range top {
			fmt.Fprintf(&b, "\n• %s: %d", c.Check, c.Count)
		}
		blocks = append(blocks, slack.NewSectionBlock(mrkdwn(b.String()), nil, nil))
	}
	return text, blocks
}

func digestMessage(runs []sqlite.Run, top []sqlite.CheckCount, since time.Time) (string, []slack.Block) {
	var sum, wcag float64
	for _, r := range runs {
		sum += r.ComplianceRate
		wcag += r.WCAGComplianceRate
	}
	avg := sum / float64(len(runs))
	avgWCAG := wcag / float64(len(runs))
	text := fmt.Sprintf("Slide audit digest: %d runs, average compliance %.1f%%", len(runs), avg)

	var b strings.Builder
	if since.IsZero() {
		b.WriteString("*Runs so far*")
	} else {
		fmt.Fprintf(&b, "*Runs since %s*", since.Format("2006-01-02 15:04"))
	}
	for _, r := range runs {
		fmt.Fprintf(&b, "\n• %s: %.1f%% (%d fails)", r.Presentation, r.ComplianceRate, r.FailCount)
	}
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, "Slide audit digest", false, false)),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			mrkdwn(fmt.Sprintf("*Runs*\n%d", len(runs))),
			mrkdwn(fmt.Sprintf("*Avg compliance*\n%.1f%%", avg)),
			mrkdwn(fmt.Sprintf("*Avg WCAG*\n%.1f%%", avgWCAG)),
		}, nil),
		slack.NewSectionBlock(mrkdwn(b.String()), nil, nil),
	}
	if len(top) > 0 {
		var tb strings.Builder
		tb.WriteString("*Most frequent failures*")
		for _, c := range top {
			fmt.Fprintf(&tb, "\n• %s: %d", c.Check, c.Count)
		}
		blocks = append(blocks, slack.NewSectionBlock(mrkdwn(tb.String()), nil, nil))
	}
	return text, blocks
}

func topFailures(issues []domain.Issue) []sqlite.CheckCount {
	counts := make(map[domain.Check]int)
	for _, iss := range issues {
		if iss.Severity == domain.SeverityFail {
			counts[iss.Check]++
		}
	}
	out := make([]sqlite.CheckCount, 0, len(counts))
	for c, k := range counts {
		out = append(out, sqlite.CheckCount{Check: c, Count: k})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Check < out[j].Check
	})
	if len(out) > topFailureCount {
		out = out[:topFailureCount]
	}
	return out
}

func mrkdwn(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}
