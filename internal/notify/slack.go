package notify

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/slack-go/slack"

	"github.com/sells-group/invoice-cli/internal/model"
)

// Slack posts the summary to a Slack incoming webhook.
type Slack struct {
	url string
}

// NewSlack creates a Slack notifier.
func NewSlack(url string) *Slack {
	return &Slack{url: url}
}

// Send implements Notifier.
func (s *Slack) Send(ctx context.Context, summary model.RunSummary) error {
	err := slack.PostWebhookContext(ctx, s.url, slackMessage(summary))
	return eris.Wrap(err, "notify: slack webhook")
}

func slackMessage(summary model.RunSummary) *slack.WebhookMessage {
	title := Subject(summary)

	var counts []*slack.TextBlockObject
	for _, f := range fields(summary) {
		counts = append(counts, slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*%s*\n%d", f.label, f.value), false, false))
	}

	return &slack.WebhookMessage{
		Text: title,
		Blocks: &slack.Blocks{BlockSet: []slack.Block{
			slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, title, false, false)),
			slack.NewSectionBlock(nil, counts, nil),
		}},
	}
}
