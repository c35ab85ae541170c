// Package notify delivers the end-of-run summary.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-cli/internal/config"
	"github.com/sells-group/invoice-cli/internal/model"
)

// Notifier sends a run summary to one channel.
type Notifier interface {
	Send(ctx context.Context, summary model.RunSummary) error
}

// Channel names accepted in notify.channels.
const (
	ChannelLog     = "log"
	ChannelWebhook = "webhook"
	ChannelSlack   = "slack"
	ChannelEmail   = "email"
)

// Subject is the one-line title of a summary.
func Subject(s model.RunSummary) string {
	if s.Failed > 0 || s.SyncFailed > 0 {
		return "Invoice run finished with failures"
	}
	return "Invoice run finished"
}

// Text renders the summary counts, one per line.
func Text(s model.RunSummary) string {
	var sb strings.Builder
	for _, f := range fields(s) {
		fmt.Fprintf(&sb, "%s: %d\n", f.label, f.value)
	}
	return sb.String()
}

type field struct {
	label string
	value int
}

func fields(s model.RunSummary) []field {
	return []field{
		{"Retrieved", s.Retrieved},
		{"Processed", s.Processed},
		{"Failed", s.Failed},
		{"Retry", s.Retried},
		{"Synced", s.Synced},
		{"Sync failed", s.SyncFailed},
	}
}

// New builds a notifier for every configured channel.
func New(cfg config.NotifyConfig) (Notifier, error) {
	if len(cfg.Channels) == 0 {
		return NewLog(), nil
	}

	var ns []Notifier
	for _, ch := range cfg.Channels {
		switch strings.ToLower(strings.TrimSpace(ch)) {
		case ChannelLog:
			ns = append(ns, NewLog())
		case ChannelWebhook:
			if cfg.WebhookURL == "" {
				return nil, eris.New("notify: webhook channel requires webhook_url")
			}
			ns = append(ns, NewWebhook(cfg.WebhookURL))
		case ChannelSlack:
			if cfg.SlackWebhookURL == "" {
				return nil, eris.New("notify: slack channel requires slack_webhook_url")
			}
			ns = append(ns, NewSlack(cfg.SlackWebhookURL))
		case ChannelEmail:
			e, err := NewEmail(cfg.SendGridKey, cfg.EmailFrom, cfg.EmailTo)
			if err != nil {
				return nil, err
			}
			ns = append(ns, e)
		default:
			return nil, eris.Errorf("notify: unknown channel %q", ch)
		}
	}
	if len(ns) == 1 {
		return ns[0], nil
	}
	return Multi(ns), nil
}
