package extract

import (
	"strings"
)

const systemPromptHeader = `You extract structured data from Polish purchase invoices (faktury VAT).

Reply with a single JSON object and nothing else. Use exactly these keys:
  "invoice_date"   issue date, YYYY-MM-DD
  "payment_date"   payment due date, YYYY-MM-DD; use invoice_date if none is printed
  "vendor"         seller name as printed
  "category"       one value from the category list below
  "invoice_number" invoice number exactly as printed
  "net_amount"     total net amount as a number
  "gross_amount"   total gross amount as a number
  "tax_amount"     total VAT amount as a number
  "currency"       ISO 4217 code, PLN if not printed
  "items"          array of {"description", "quantity", "unit_price", "total_price"}

Amounts use a dot as the decimal separator and no thousands separator.
Use null for a value that is not on the document.

Categories:
`

// buildSystemPrompt renders the extraction instructions for the given
// category set.
func buildSystemPrompt(categories []string) string {
	var sb strings.Builder
	sb.WriteString(systemPromptHeader)
	for _, c := range categories {
		sb.WriteString("- ")
		sb.WriteString(c)
		sb.WriteByte('\n')
	}
	return sb.String()
}

const documentInstruction = "Extract the invoice fields from the attached PDF."

func textInstruction(text string) string {
	return "Extract the invoice fields from this invoice text:\n\n" + text
}
