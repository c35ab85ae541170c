// Package export appends processed invoices to the bookkeeping spreadsheet.
package export

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/sells-group/invoice-cli/internal/config"
	"github.com/sells-group/invoice-cli/internal/model"
)

// Appender appends one row per processed invoice.
type Appender interface {
	AppendRow(ctx context.Context, inv *model.ProcessedInvoice) error
}

// Header is the column layout of the bookkeeping sheet.
var Header = []string{
	"Data wstawienia",
	"PŁATNOŚĆ ZA",
	"FIRMA / KONTRAHENT",
	"NETTO",
	"KWOTA BRUTTO",
	"NR FV",
	"TERMIN PŁATNOŚCI",
}

const dateLayout = "2006-01-02"

var plPrinter = message.NewPrinter(language.Polish)

// FormatAmount renders v with two decimals, a decimal comma and no
// grouping, e.g. 1234,50.
func FormatAmount(v float64) string {
	return plPrinter.Sprint(number.Decimal(v, number.Scale(2), number.NoSeparator()))
}

// Row renders inv in Header order.
func Row(inv *model.ProcessedInvoice) []string {
	d := inv.Data
	return []string{
		formatDate(d.InvoiceDate),
		d.Category,
		d.VendorName,
		FormatAmount(d.NetAmount),
		FormatAmount(d.GrossAmount),
		d.InvoiceNumber,
		formatDate(d.DueDate),
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// New creates the Appender selected by cfg.Backend.
func New(ctx context.Context, cfg config.ExportConfig) (Appender, error) {
	switch cfg.Backend {
	case "sheets", "":
		return NewSheets(ctx, cfg)
	case "xlsx":
		return NewWorkbook(cfg.WorkbookPath, cfg.SheetName), nil
	default:
		return nil, eris.Errorf("export: unknown backend %q", cfg.Backend)
	}
}
