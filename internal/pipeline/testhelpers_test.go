package pipeline

import (
	"fmt"
	"time"

	"github.com/sells-group/invoice-cli/internal/model"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

var (
	pendingOnly  = []model.ProcessingStatus{model.ProcessingStatusPending, model.ProcessingStatusRetry}
	notSynced    = []model.SyncStatus{model.SyncStatusNotSynced}
	syncedOnly   = []model.SyncStatus{model.SyncStatusSynced}
	syncFailed   = []model.SyncStatus{model.SyncStatusFailed}
	rawFailed    = []model.ProcessingStatus{model.ProcessingStatusFailed}
	rawUnhealthy = []model.ProcessingStatus{model.ProcessingStatusFailed, model.ProcessingStatusRetry}
)

func rawInvoice(id string) model.RawInvoice {
	return model.RawInvoice{
		ID:      id,
		EmailID: "msg-" + id,
		Email: model.Email{
			ID:             "msg-" + id,
			Sender:         "faktury@dostawca.pl",
			Subject:        "Faktura " + id,
			ReceivedAt:     fixedNow,
			AttachmentPath: "/attachments/" + id + ".pdf",
		},
		Status:    model.ProcessingStatusPending,
		CreatedAt: fixedNow,
		UpdatedAt: fixedNow,
	}
}

func extractedFields(number string) map[string]any {
	return map[string]any{
		"invoice_date":   "2024-02-28",
		"payment_date":   "14.03.2024",
		"vendor":         "Hurtownia Smak",
		"category":       "JEDZENIE",
		"invoice_number": number,
		"net_amount":     100.0,
		"gross_amount":   123.0,
		"tax_amount":     23.0,
	}
}

func processedInvoice(id, number string) model.ProcessedInvoice {
	return model.ProcessedInvoice{
		ID:           id,
		RawInvoiceID: "raw-" + id,
		Data: model.InvoiceData{
			InvoiceDate:   time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC),
			Category:      "JEDZENIE",
			VendorName:    "Hurtownia Smak",
			NetAmount:     100,
			GrossAmount:   123,
			InvoiceNumber: number,
			DueDate:       time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
			Currency:      model.DefaultCurrency,
		},
		SyncStatus: model.SyncStatusNotSynced,
		CreatedAt:  fixedNow,
		UpdatedAt:  fixedNow,
	}
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
