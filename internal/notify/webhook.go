package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-cli/internal/model"
)

// Report is the JSON body posted to a generic webhook.
type Report struct {
	Type      string           `json:"type"`
	Severity  string           `json:"severity"`
	Message   string           `json:"message"`
	Summary   model.RunSummary `json:"summary"`
	Timestamp time.Time        `json:"timestamp"`
}

// Webhook posts the summary as JSON to a URL.
type Webhook struct {
	url    string
	client *http.Client
	now    func() time.Time
}

// NewWebhook creates a Webhook notifier.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
}

// Send implements Notifier. A response status of 400 or above is an error.
func (w *Webhook) Send(ctx context.Context, s model.RunSummary) error {
	severity := "info"
	if s.Failed > 0 || s.SyncFailed > 0 {
		severity = "high"
	}

	payload, err := json.Marshal(Report{
		Type:      "invoice_run_summary",
		Severity:  severity,
		Message:   Subject(s),
		Summary:   s,
		Timestamp: w.now().UTC(),
	})
	if err != nil {
		return eris.Wrap(err, "notify: marshal report")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "notify: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "notify: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
