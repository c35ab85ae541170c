package model

import "time"

// DefaultCurrency is applied when the extraction result carries no currency.
const DefaultCurrency = "PLN"

// Email is the snapshot of a source message captured at retrieval time.
type Email struct {
	ID             string    `json:"id"`
	Sender         string    `json:"sender"`
	Subject        string    `json:"subject"`
	ReceivedAt     time.Time `json:"received_at"`
	AttachmentPath string    `json:"attachment_path"` // storage locator of the PDF
	Body           string    `json:"body,omitempty"`
}

// LineItem is a single position on an invoice.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
}

// InvoiceData holds the validated fields extracted from an invoice document.
type InvoiceData struct {
	InvoiceDate   time.Time  `json:"invoice_date"`
	Category      string     `json:"category"`
	VendorName    string     `json:"vendor_name"`
	NetAmount     float64    `json:"net_amount"`
	GrossAmount   float64    `json:"gross_amount"`
	InvoiceNumber string     `json:"invoice_number"`
	DueDate       time.Time  `json:"due_date"`
	Currency      string     `json:"currency"`
	TaxAmount     float64    `json:"tax_amount"`
	Items         []LineItem `json:"items,omitempty"`
}

// RawInvoice is an ingested e-mail attachment awaiting or past extraction.
type RawInvoice struct {
	ID           string           `json:"id"`
	EmailID      string           `json:"email_id"`
	Email        Email            `json:"email"`
	Status       ProcessingStatus `json:"status"`
	ErrorMessage string           `json:"error_message,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ProcessedInvoice is the validated extraction result of a raw invoice.
type ProcessedInvoice struct {
	ID           string      `json:"id"`
	RawInvoiceID string      `json:"raw_invoice_id"`
	Data         InvoiceData `json:"extracted_data"`
	SyncStatus   SyncStatus  `json:"sync_status"`
	ErrorMessage string      `json:"error_message,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// NewRawInvoice builds a PENDING raw invoice for an e-mail.
func NewRawInvoice(id string, email Email, now time.Time) *RawInvoice {
	return &RawInvoice{
		ID:        id,
		EmailID:   email.ID,
		Email:     email,
		Status:    ProcessingStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewProcessedInvoice builds a NOT_SYNCED processed invoice.
func NewProcessedInvoice(id, rawID string, data InvoiceData, now time.Time) *ProcessedInvoice {
	return &ProcessedInvoice{
		ID:           id,
		RawInvoiceID: rawID,
		Data:         data,
		SyncStatus:   SyncStatusNotSynced,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
