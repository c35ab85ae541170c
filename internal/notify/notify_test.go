package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/invoice-cli/internal/config"
	"github.com/sells-group/invoice-cli/internal/model"
)

var sampleSummary = model.RunSummary{
	Retrieved:  3,
	Processed:  2,
	Failed:     1,
	Retried:    0,
	Synced:     2,
	SyncFailed: 0,
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "Invoice run finished with failures", Subject(sampleSummary))
	assert.Equal(t, "Invoice run finished", Subject(model.RunSummary{Retrieved: 1, Processed: 1, Synced: 1}))
}

func TestText(t *testing.T) {
	want := "Retrieved: 3\nProcessed: 2\nFailed: 1\nRetry: 0\nSynced: 2\nSync failed: 0\n"
	assert.Equal(t, want, Text(sampleSummary))
}

func TestNew(t *testing.T) {
	n, err := New(config.NotifyConfig{})
	require.NoError(t, err)
	assert.IsType(t, &Log{}, n)

	n, err = New(config.NotifyConfig{Channels: []string{"webhook"}, WebhookURL: "http://example.test"})
	require.NoError(t, err)
	assert.IsType(t, &Webhook{}, n)

	n, err = New(config.NotifyConfig{
		Channels:        []string{"log", " Slack "},
		SlackWebhookURL: "http://example.test/slack",
	})
	require.NoError(t, err)
	require.IsType(t, Multi{}, n)
	assert.Len(t, n.(Multi), 2)

	_, err = New(config.NotifyConfig{Channels: []string{"webhook"}})
	assert.ErrorContains(t, err, "requires webhook_url")

	_, err = New(config.NotifyConfig{Channels: []string{"slack"}})
	assert.ErrorContains(t, err, "requires slack_webhook_url")

	_, err = New(config.NotifyConfig{Channels: []string{"email"}, SendGridKey: "k"})
	assert.ErrorContains(t, err, "requires email_from and email_to")

	_, err = New(config.NotifyConfig{Channels: []string{"pager"}})
	assert.ErrorContains(t, err, `unknown channel "pager"`)
}

func TestLog_Send(t *testing.T) {
	assert.NoError(t, NewLog().Send(context.Background(), sampleSummary))
}

func TestWebhook_Send(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	var got Report
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL)
	w.now = func() time.Time { return fixed }

	require.NoError(t, w.Send(context.Background(), sampleSummary))
	assert.Equal(t, "invoice_run_summary", got.Type)
	assert.Equal(t, "high", got.Severity)
	assert.Equal(t, sampleSummary, got.Summary)
	assert.True(t, fixed.Equal(got.Timestamp))
}

func TestWebhook_Send_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL).Send(context.Background(), sampleSummary)
	assert.ErrorContains(t, err, "webhook returned status 502")
}

func TestSlack_Send(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	require.NoError(t, NewSlack(srv.URL).Send(context.Background(), sampleSummary))
	assert.Equal(t, "Invoice run finished with failures", body["text"])

	blocks, ok := body["blocks"].([]any)
	require.True(t, ok)
	require.Len(t, blocks, 2)
	assert.Equal(t, "header", blocks[0].(map[string]any)["type"])
	fields := blocks[1].(map[string]any)["fields"].([]any)
	assert.Len(t, fields, 6)
	assert.Equal(t, "*Retrieved*\n3", fields[0].(map[string]any)["text"])
}

func TestSlack_Send_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewSlack(srv.URL).Send(context.Background(), sampleSummary)
	assert.ErrorContains(t, err, "notify: slack webhook")
}

func TestEmail_Send(t *testing.T) {
	var body struct {
		From struct {
			Email string `json:"email"`
		} `json:"from"`
		Subject          string `json:"subject"`
		Personalizations []struct {
			To []struct {
				Email string `json:"email"`
			} `json:"to"`
		} `json:"personalizations"`
		Content []struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"content"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	e, err := NewEmail("sg-key", "bot@example.com", []string{"a@example.com", "b@example.com"})
	require.NoError(t, err)
	e.host = srv.URL

	require.NoError(t, e.Send(context.Background(), sampleSummary))
	assert.Equal(t, "bot@example.com", body.From.Email)
	assert.Equal(t, "Invoice run finished with failures", body.Subject)
	require.Len(t, body.Personalizations, 1)
	assert.Len(t, body.Personalizations[0].To, 2)
	require.Len(t, body.Content, 1)
	assert.Equal(t, Text(sampleSummary), body.Content[0].Value)
}

func TestEmail_Send_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	e, err := NewEmail("sg-key", "bot@example.com", []string{"a@example.com"})
	require.NoError(t, err)
	e.host = srv.URL

	err = e.Send(context.Background(), sampleSummary)
	assert.ErrorContains(t, err, "sendgrid returned status 401")
}

type stubNotifier struct {
	err   error
	calls int
}

func (s *stubNotifier) Send(context.Context, model.RunSummary) error {
	s.calls++
	return s.err
}

func TestMulti_Send(t *testing.T) {
	boom := errors.New("boom")
	a, b, c := &stubNotifier{}, &stubNotifier{err: boom}, &stubNotifier{}

	err := Multi{a, b, c}.Send(context.Background(), sampleSummary)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 1, c.calls)

	assert.NoError(t, Multi{a, c}.Send(context.Background(), sampleSummary))
}

func TestMulti_Send_CollectsEveryFailure(t *testing.T) {
	slackErr, mailErr := errors.New("slack down"), errors.New("sendgrid down")

	err := Multi{&stubNotifier{err: slackErr}, &stubNotifier{}, &stubNotifier{err: mailErr}}.
		Send(context.Background(), sampleSummary)
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 2)
	assert.ErrorIs(t, err, slackErr)
	assert.ErrorIs(t, err, mailErr)
}
