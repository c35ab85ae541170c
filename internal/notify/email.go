package notify

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/sells-group/invoice-cli/internal/model"
)

const sendGridHost = "https://api.sendgrid.com"

// Email sends the summary through SendGrid.
type Email struct {
	apiKey string
	host   string
	from   *mail.Email
	to     []*mail.Email
}

// NewEmail creates an Email notifier.
func NewEmail(apiKey, from string, to []string) (*Email, error) {
	if apiKey == "" {
		return nil, eris.New("notify: email channel requires sendgrid_api_key")
	}
	if from == "" || len(to) == 0 {
		return nil, eris.New("notify: email channel requires email_from and email_to")
	}

	e := &Email{apiKey: apiKey, host: sendGridHost, from: mail.NewEmail("", from)}
	for _, addr := range to {
		e.to = append(e.to, mail.NewEmail("", addr))
	}
	return e, nil
}

// Send implements Notifier.
func (e *Email) Send(ctx context.Context, s model.RunSummary) error {
	p := mail.NewPersonalization()
	p.AddTos(e.to...)

	m := mail.NewV3Mail()
	m.SetFrom(e.from)
	m.Subject = Subject(s)
	m.AddPersonalizations(p)
	m.AddContent(mail.NewContent("text/plain", Text(s)))

	req := sendgrid.GetRequest(e.apiKey, "/v3/mail/send", e.host)
	req.Method = "POST"
	req.Body = mail.GetRequestBody(m)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return eris.Wrap(err, "notify: sendgrid request")
	}
	if resp.StatusCode >= 400 {
		return eris.Errorf("notify: sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
