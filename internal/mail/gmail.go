package mail

import (
	"context"
	"encoding/base64"
	"net/mail"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/sells-group/invoice-cli/internal/config"
	"github.com/sells-group/invoice-cli/internal/filestore"
	"github.com/sells-group/invoice-cli/internal/googleauth"
	"github.com/sells-group/invoice-cli/internal/model"
)

const (
	defaultUser  = "me"
	defaultQuery = "is:unread has:attachment"
	unreadLabel  = "UNREAD"
)

// Gmail implements Source with the Gmail API.
type Gmail struct {
	svc        *gmail.Service
	files      filestore.Storage
	user       string
	query      string
	maxResults int64
	now        func() time.Time
}

// NewGmail creates a Gmail source that stores attachments in files.
func NewGmail(ctx context.Context, cfg config.MailConfig, files filestore.Storage, opts ...option.ClientOption) (*Gmail, error) {
	authOpts, err := googleauth.ClientOptions(ctx, googleauth.Settings{
		CredentialsFile: cfg.CredentialsFile,
		TokenFile:       cfg.TokenFile,
		Endpoint:        cfg.Endpoint,
		Scopes:          []string{gmail.GmailModifyScope},
	})
	if err != nil {
		return nil, eris.Wrap(err, "mail: auth")
	}

	svc, err := gmail.NewService(ctx, append(authOpts, opts...)...)
	if err != nil {
		return nil, eris.Wrap(err, "mail: new gmail service")
	}

	g := &Gmail{
		svc:        svc,
		files:      files,
		user:       cfg.User,
		query:      cfg.Query,
		maxResults: cfg.MaxResults,
		now:        time.Now,
	}
	if g.user == "" {
		g.user = defaultUser
	}
	if g.query == "" {
		g.query = defaultQuery
	}
	return g, nil
}

// FetchNew implements Source. Messages that fail or carry no PDF are
// logged and skipped; only the listing call fails the whole fetch.
func (g *Gmail) FetchNew(ctx context.Context) ([]model.Email, error) {
	ids, err := g.listIDs(ctx)
	if err != nil {
		return nil, err
	}
	zap.L().Info("mail: found messages", zap.Int("count", len(ids)))

	var out []model.Email
	for _, id := range ids {
		email, err := g.fetchMessage(ctx, id)
		if err != nil {
			zap.L().Error("mail: skip message", zap.String("message_id", id), zap.Error(err))
			continue
		}
		if email == nil {
			zap.L().Info("mail: no pdf attachment", zap.String("message_id", id))
			continue
		}
		out = append(out, *email)
	}
	return out, nil
}

func (g *Gmail) listIDs(ctx context.Context) ([]string, error) {
	call := g.svc.Users.Messages.List(g.user).Q(g.query)
	if g.maxResults > 0 {
		call = call.MaxResults(g.maxResults)
	}

	var ids []string
	err := call.Pages(ctx, func(resp *gmail.ListMessagesResponse) error {
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		if g.maxResults > 0 && int64(len(ids)) >= g.maxResults {
			return errStopPaging
		}
		return nil
	})
	if err != nil && !eris.Is(err, errStopPaging) {
		return nil, eris.Wrap(err, "mail: list messages")
	}
	return ids, nil
}

var errStopPaging = eris.New("mail: page limit reached")

func (g *Gmail) fetchMessage(ctx context.Context, id string) (*model.Email, error) {
	msg, err := g.svc.Users.Messages.Get(g.user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, eris.Wrapf(err, "mail: get message %s", id)
	}
	if msg.Payload == nil {
		return nil, nil
	}

	part := findPDFPart(msg.Payload)
	if part == nil {
		return nil, nil
	}

	data, err := g.attachmentData(ctx, id, part)
	if err != nil {
		return nil, err
	}

	locator, err := g.files.Save(ctx, id+"_"+part.Filename, data)
	if err != nil {
		return nil, eris.Wrapf(err, "mail: save attachment of %s", id)
	}
	zap.L().Info("mail: saved attachment", zap.String("message_id", id), zap.String("locator", locator))

	headers := msg.Payload.Headers
	return &model.Email{
		ID:             id,
		Sender:         headerOr(headers, "From", "Unknown Sender"),
		Subject:        headerOr(headers, "Subject", "No Subject"),
		ReceivedAt:     parseDate(headerOr(headers, "Date", ""), g.now),
		AttachmentPath: locator,
		Body:           msg.Snippet,
	}, nil
}

func (g *Gmail) attachmentData(ctx context.Context, msgID string, part *gmail.MessagePart) ([]byte, error) {
	if part.Body == nil {
		return nil, eris.Errorf("mail: attachment %q of %s has no body", part.Filename, msgID)
	}

	encoded := part.Body.Data
	if part.Body.AttachmentId != "" {
		body, err := g.svc.Users.Messages.Attachments.Get(g.user, msgID, part.Body.AttachmentId).Context(ctx).Do()
		if err != nil {
			return nil, eris.Wrapf(err, "mail: get attachment of %s", msgID)
		}
		encoded = body.Data
	}
	return decodeBase64URL(encoded)
}

// MarkConsumed removes the UNREAD label.
func (g *Gmail) MarkConsumed(ctx context.Context, id string) error {
	_, err := g.svc.Users.Messages.Modify(g.user, id, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{unreadLabel},
	}).Context(ctx).Do()
	return eris.Wrapf(err, "mail: mark consumed %s", id)
}

// findPDFPart walks the MIME tree depth-first and returns the first part
// whose file name ends in .pdf.
func findPDFPart(part *gmail.MessagePart) *gmail.MessagePart {
	if part == nil {
		return nil
	}
	if part.Filename != "" && strings.HasSuffix(strings.ToLower(part.Filename), ".pdf") {
		return part
	}
	for _, p := range part.Parts {
		if found := findPDFPart(p); found != nil {
			return found
		}
	}
	return nil
}

func headerOr(headers []*gmail.MessagePartHeader, name, fallback string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return fallback
}

func parseDate(v string, now func() time.Time) time.Time {
	if t, err := mail.ParseDate(v); err == nil {
		return t
	}
	return now()
}

func decodeBase64URL(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	data, err := base64.RawURLEncoding.DecodeString(s)
	return data, eris.Wrap(err, "mail: decode attachment")
}
