package store

import (
	"context"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/rotisserie/eris"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/sells-group/invoice-cli/internal/model"
)

// Collection names.
const (
	RawInvoicesCollection       = "raw_invoices"
	ProcessedInvoicesCollection = "processed_invoices"
)

// FirestoreStore implements Store on two flat Firestore collections.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestore connects to Firestore. When FIRESTORE_EMULATOR_HOST is set
// the client talks to the emulator and credentials are ignored.
func NewFirestore(ctx context.Context, projectID, credentialsFile string, opts ...option.ClientOption) (*FirestoreStore, error) {
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "firestore: new client")
	}
	return &FirestoreStore{client: client}, nil
}

type emailDoc struct {
	ID             string    `firestore:"id"`
	Sender         string    `firestore:"sender"`
	Subject        string    `firestore:"subject"`
	ReceivedAt     time.Time `firestore:"received_at"`
	AttachmentPath string    `firestore:"attachment_path"`
	Body           string    `firestore:"body"`
}

type rawDoc struct {
	ID           string    `firestore:"id"`
	EmailID      string    `firestore:"email_id"`
	Email        emailDoc  `firestore:"email"`
	Status       string    `firestore:"status"`
	ErrorMessage string    `firestore:"error_message"`
	CreatedAt    time.Time `firestore:"created_at"`
	UpdatedAt    time.Time `firestore:"updated_at"`
}

type lineItemDoc struct {
	Description string  `firestore:"description"`
	Quantity    float64 `firestore:"quantity"`
	UnitPrice   float64 `firestore:"unit_price"`
	TotalPrice  float64 `firestore:"total_price"`
}

type invoiceDataDoc struct {
	InvoiceDate   time.Time     `firestore:"invoice_date"`
	Category      string        `firestore:"category"`
	VendorName    string        `firestore:"vendor_name"`
	NetAmount     float64       `firestore:"net_amount"`
	GrossAmount   float64       `firestore:"gross_amount"`
	InvoiceNumber string        `firestore:"invoice_number"`
	DueDate       time.Time     `firestore:"due_date"`
	Currency      string        `firestore:"currency"`
	TaxAmount     float64       `firestore:"tax_amount"`
	Items         []lineItemDoc `firestore:"items"`
}

type processedDoc struct {
	ID            string         `firestore:"id"`
	RawInvoiceID  string         `firestore:"raw_invoice_id"`
	InvoiceNumber string         `firestore:"invoice_number"`
	Data          invoiceDataDoc `firestore:"extracted_data"`
	SyncStatus    string         `firestore:"sync_status"`
	ErrorMessage  string         `firestore:"error_message"`
	CreatedAt     time.Time      `firestore:"created_at"`
	UpdatedAt     time.Time      `firestore:"updated_at"`
}

func toRawDoc(inv *model.RawInvoice) rawDoc {
	return rawDoc{
		ID:      inv.ID,
		EmailID: inv.EmailID,
		Email: emailDoc{
			ID:             inv.Email.ID,
			Sender:         inv.Email.Sender,
			Subject:        inv.Email.Subject,
			ReceivedAt:     inv.Email.ReceivedAt,
			AttachmentPath: inv.Email.AttachmentPath,
			Body:           inv.Email.Body,
		},
		Status:       string(inv.Status),
		ErrorMessage: inv.ErrorMessage,
		CreatedAt:    inv.CreatedAt.UTC(),
		UpdatedAt:    inv.UpdatedAt.UTC(),
	}
}

func (d rawDoc) model() (*model.RawInvoice, error) {
	st, err := model.ParseProcessingStatus(d.Status)
	if err != nil {
		return nil, err
	}
	return &model.RawInvoice{
		ID:      d.ID,
		EmailID: d.EmailID,
		Email: model.Email{
			ID:             d.Email.ID,
			Sender:         d.Email.Sender,
			Subject:        d.Email.Subject,
			ReceivedAt:     d.Email.ReceivedAt,
			AttachmentPath: d.Email.AttachmentPath,
			Body:           d.Email.Body,
		},
		Status:       st,
		ErrorMessage: d.ErrorMessage,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}

func toProcessedDoc(inv *model.ProcessedInvoice) processedDoc {
	items := make([]lineItemDoc, len(inv.Data.Items))
	for i, it := range inv.Data.Items {
		items[i] = lineItemDoc(it)
	}
	return processedDoc{
		ID:            inv.ID,
		RawInvoiceID:  inv.RawInvoiceID,
		InvoiceNumber: inv.Data.InvoiceNumber,
		Data: invoiceDataDoc{
			InvoiceDate:   inv.Data.InvoiceDate,
			Category:      inv.Data.Category,
			VendorName:    inv.Data.VendorName,
			NetAmount:     inv.Data.NetAmount,
			GrossAmount:   inv.Data.GrossAmount,
			InvoiceNumber: inv.Data.InvoiceNumber,
			DueDate:       inv.Data.DueDate,
			Currency:      inv.Data.Currency,
			TaxAmount:     inv.Data.TaxAmount,
			Items:         items,
		},
		SyncStatus:   string(inv.SyncStatus),
		ErrorMessage: inv.ErrorMessage,
		CreatedAt:    inv.CreatedAt.UTC(),
		UpdatedAt:    inv.UpdatedAt.UTC(),
	}
}

func (d processedDoc) model() (*model.ProcessedInvoice, error) {
	st, err := model.ParseSyncStatus(d.SyncStatus)
	if err != nil {
		return nil, err
	}
	var items []model.LineItem
	for _, it := range d.Data.Items {
		items = append(items, model.LineItem(it))
	}
	return &model.ProcessedInvoice{
		ID:           d.ID,
		RawInvoiceID: d.RawInvoiceID,
		Data: model.InvoiceData{
			InvoiceDate:   d.Data.InvoiceDate,
			Category:      d.Data.Category,
			VendorName:    d.Data.VendorName,
			NetAmount:     d.Data.NetAmount,
			GrossAmount:   d.Data.GrossAmount,
			InvoiceNumber: d.Data.InvoiceNumber,
			DueDate:       d.Data.DueDate,
			Currency:      d.Data.Currency,
			TaxAmount:     d.Data.TaxAmount,
			Items:         items,
		},
		SyncStatus:   st,
		ErrorMessage: d.ErrorMessage,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}

// Migrate is a no-op; Firestore collections are created on first write.
func (s *FirestoreStore) Migrate(context.Context) error {
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) SaveRawInvoice(ctx context.Context, inv *model.RawInvoice) error {
	_, err := s.client.Collection(RawInvoicesCollection).Doc(inv.ID).Set(ctx, toRawDoc(inv))
	return eris.Wrapf(err, "firestore: save raw invoice %s", inv.ID)
}

func (s *FirestoreStore) ListRawInvoices(ctx context.Context, statuses ...model.ProcessingStatus) ([]model.RawInvoice, error) {
	q := s.client.Collection(RawInvoicesCollection).Query
	if len(statuses) > 0 {
		q = q.Where("status", "in", processingStrings(statuses))
	}
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, eris.Wrap(err, "firestore: list raw invoices")
	}

	out := make([]model.RawInvoice, 0, len(snaps))
	for _, snap := range snaps {
		var d rawDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, eris.Wrapf(err, "firestore: decode raw invoice %s", snap.Ref.ID)
		}
		inv, err := d.model()
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	slices.SortStableFunc(out, func(a, b model.RawInvoice) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *FirestoreStore) UpdateRawInvoiceStatus(ctx context.Context, id string, st model.ProcessingStatus, errMsg string) error {
	_, err := s.client.Collection(RawInvoicesCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(st)},
		{Path: "error_message", Value: errMsg},
		{Path: "updated_at", Value: time.Now().UTC()},
	})
	return firestoreUpdateErr(err, "raw invoice", id)
}

func (s *FirestoreStore) RawInvoiceExistsForEmail(ctx context.Context, emailID string) (bool, error) {
	return s.exists(ctx, RawInvoicesCollection, "email_id", emailID)
}

func (s *FirestoreStore) SaveProcessedInvoice(ctx context.Context, inv *model.ProcessedInvoice) error {
	_, err := s.client.Collection(ProcessedInvoicesCollection).Doc(inv.ID).Set(ctx, toProcessedDoc(inv))
	return eris.Wrapf(err, "firestore: save processed invoice %s", inv.ID)
}

func (s *FirestoreStore) ListProcessedInvoices(ctx context.Context, statuses ...model.SyncStatus) ([]model.ProcessedInvoice, error) {
	q := s.client.Collection(ProcessedInvoicesCollection).Query
	if len(statuses) > 0 {
		q = q.Where("sync_status", "in", syncStrings(statuses))
	}
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, eris.Wrap(err, "firestore: list processed invoices")
	}

	out := make([]model.ProcessedInvoice, 0, len(snaps))
	for _, snap := range snaps {
		var d processedDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, eris.Wrapf(err, "firestore: decode processed invoice %s", snap.Ref.ID)
		}
		inv, err := d.model()
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	slices.SortStableFunc(out, func(a, b model.ProcessedInvoice) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *FirestoreStore) UpdateProcessedSyncStatus(ctx context.Context, id string, st model.SyncStatus, errMsg string) error {
	_, err := s.client.Collection(ProcessedInvoicesCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "sync_status", Value: string(st)},
		{Path: "error_message", Value: errMsg},
		{Path: "updated_at", Value: time.Now().UTC()},
	})
	return firestoreUpdateErr(err, "processed invoice", id)
}

func (s *FirestoreStore) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	return s.exists(ctx, ProcessedInvoicesCollection, "invoice_number", number)
}

func (s *FirestoreStore) ProcessedInvoiceExistsForRaw(ctx context.Context, rawID string) (bool, error) {
	return s.exists(ctx, ProcessedInvoicesCollection, "raw_invoice_id", rawID)
}

func (s *FirestoreStore) CountByStatus(ctx context.Context) (*model.StatusCounts, error) {
	counts := newStatusCounts()

	raw, err := s.client.Collection(RawInvoicesCollection).Select("status").Documents(ctx).GetAll()
	if err != nil {
		return nil, eris.Wrap(err, "firestore: count raw invoices")
	}
	for _, snap := range raw {
		v, _ := snap.Data()["status"].(string)
		st, err := model.ParseProcessingStatus(v)
		if err != nil {
			return nil, err
		}
		counts.Raw[st]++
	}

	processed, err := s.client.Collection(ProcessedInvoicesCollection).Select("sync_status").Documents(ctx).GetAll()
	if err != nil {
		return nil, eris.Wrap(err, "firestore: count processed invoices")
	}
	for _, snap := range processed {
		v, _ := snap.Data()["sync_status"].(string)
		st, err := model.ParseSyncStatus(v)
		if err != nil {
			return nil, err
		}
		counts.Processed[st]++
	}

	return counts, nil
}

func (s *FirestoreStore) exists(ctx context.Context, collection, field, value string) (bool, error) {
	snaps, err := s.client.Collection(collection).Where(field, "==", value).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return false, eris.Wrapf(err, "firestore: query %s by %s", collection, field)
	}
	return len(snaps) > 0, nil
}

func firestoreUpdateErr(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return eris.Wrapf(err, "firestore: update %s %s", entity, id)
}
