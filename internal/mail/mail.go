// Package mail fetches invoice e-mails with PDF attachments from the
// source mailbox.
package mail

import (
	"context"

	"github.com/sells-group/invoice-cli/internal/model"
)

// Source is the source mailbox.
type Source interface {
	// FetchNew returns unconsumed messages that carry a PDF attachment. The
	// attachment is already saved and Email.AttachmentPath is its locator.
	FetchNew(ctx context.Context) ([]model.Email, error)
	// MarkConsumed stops the message from being returned by FetchNew.
	MarkConsumed(ctx context.Context, id string) error
}
