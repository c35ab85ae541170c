// Package mapping turns the loosely-typed field map returned by the
// extraction provider into validated invoice data.
//
// The extraction contract uses one canonical schema:
//
//	invoice_date   -> InvoiceData.InvoiceDate   (required)
//	payment_date   -> InvoiceData.DueDate       (required)
//	vendor         -> InvoiceData.VendorName    (default "Unknown")
//	category       -> InvoiceData.Category      (default "UNCATEGORIZED")
//	invoice_number -> InvoiceData.InvoiceNumber (default "UNKNOWN", blank rejected)
//	net_amount     -> InvoiceData.NetAmount     (default 0)
//	gross_amount   -> InvoiceData.GrossAmount   (default 0)
//	tax_amount     -> InvoiceData.TaxAmount     (default 0)
//	currency       -> InvoiceData.Currency      (default "PLN")
//	items[]        -> InvoiceData.Items         (description, quantity, unit_price, total_price)
package mapping

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/model"
)

// Field keys of the extraction schema.
const (
	FieldInvoiceDate   = "invoice_date"
	FieldPaymentDate   = "payment_date"
	FieldVendor        = "vendor"
	FieldCategory      = "category"
	FieldInvoiceNumber = "invoice_number"
	FieldNetAmount     = "net_amount"
	FieldGrossAmount   = "gross_amount"
	FieldTaxAmount     = "tax_amount"
	FieldCurrency      = "currency"
	FieldItems         = "items"
)

// Sentinels applied to missing string fields.
const (
	UnknownVendor        = "Unknown"
	UnknownInvoiceNumber = "UNKNOWN"
)

// ToInvoiceData validates fields and maps them into InvoiceData. Every
// failure is returned as a *ValidationError naming the offending field.
func ToInvoiceData(fields map[string]any) (*model.InvoiceData, error) {
	if fields == nil {
		return nil, &ValidationError{Field: "fields", Err: eris.New("empty extraction result")}
	}

	var data model.InvoiceData
	var err error

	if data.InvoiceDate, err = requiredDate(fields, FieldInvoiceDate); err != nil {
		return nil, err
	}
	if data.DueDate, err = requiredDate(fields, FieldPaymentDate); err != nil {
		return nil, err
	}

	if data.NetAmount, err = amount(fields, FieldNetAmount); err != nil {
		return nil, err
	}
	if data.GrossAmount, err = amount(fields, FieldGrossAmount); err != nil {
		return nil, err
	}
	if data.TaxAmount, err = amount(fields, FieldTaxAmount); err != nil {
		return nil, err
	}

	if data.Category, err = stringOr(fields, FieldCategory, model.UncategorizedCategory); err != nil {
		return nil, err
	}
	if data.VendorName, err = stringOr(fields, FieldVendor, UnknownVendor); err != nil {
		return nil, err
	}
	if data.Currency, err = stringOr(fields, FieldCurrency, model.DefaultCurrency); err != nil {
		return nil, err
	}
	if data.InvoiceNumber, err = stringOr(fields, FieldInvoiceNumber, UnknownInvoiceNumber); err != nil {
		return nil, err
	}
	data.InvoiceNumber = strings.TrimSpace(data.InvoiceNumber)
	if data.InvoiceNumber == "" {
		return nil, &ValidationError{Field: FieldInvoiceNumber, Err: eris.New("invoice number is empty")}
	}

	if data.Items, err = lineItems(fields); err != nil {
		return nil, err
	}

	if data.GrossAmount < data.NetAmount {
		zap.L().Warn("mapping: gross amount below net amount",
			zap.String("invoice_number", data.InvoiceNumber),
			zap.Float64("net_amount", data.NetAmount),
			zap.Float64("gross_amount", data.GrossAmount),
		)
	}

	return &data, nil
}

// ToFloat coerces a loosely-typed numeric value. Nil maps to 0. NaN and
// infinities are rejected.
func ToFloat(v any) (float64, error) {
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, eris.Errorf("not a finite number: %v", v)
	}
	return f, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, eris.Errorf("not a number: %q", n)
		}
		return f, nil
	default:
		return 0, eris.Errorf("unsupported numeric type %T", v)
	}
}

func requiredDate(fields map[string]any, key string) (time.Time, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return time.Time{}, &ValidationError{Field: key, Err: eris.New("missing date")}
	}
	s, ok := v.(string)
	if !ok {
		return time.Time{}, &ValidationError{Field: key, Value: v, Err: eris.Errorf("expected string, got %T", v)}
	}
	t, err := ParseDate(s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: key, Value: v, Err: err}
	}
	return t, nil
}

func amount(fields map[string]any, key string) (float64, error) {
	f, err := ToFloat(fields[key])
	if err != nil {
		return 0, &ValidationError{Field: key, Value: fields[key], Err: err}
	}
	if f < 0 {
		return 0, &ValidationError{Field: key, Value: fields[key], Err: eris.New("amount is negative")}
	}
	return f, nil
}

func stringOr(fields map[string]any, key, def string) (string, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return def, nil
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case json.Number:
		return s.String(), nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	default:
		return "", &ValidationError{Field: key, Value: v, Err: eris.Errorf("expected string, got %T", v)}
	}
}

func lineItems(fields map[string]any) ([]model.LineItem, error) {
	raw, ok := fields[FieldItems]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, &ValidationError{Field: FieldItems, Value: raw, Err: eris.Errorf("expected list, got %T", raw)}
	}

	items := make([]model.LineItem, 0, len(list))
	for i, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, &ValidationError{Field: itemField(i, ""), Value: entry, Err: eris.Errorf("expected object, got %T", entry)}
		}
		var item model.LineItem
		var err error
		if item.Description, err = stringOr(m, "description", ""); err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				ve.Field = itemField(i, "description")
			}
			return nil, err
		}
		for _, f := range []struct {
			key string
			dst *float64
		}{
			{"quantity", &item.Quantity},
			{"unit_price", &item.UnitPrice},
			{"total_price", &item.TotalPrice},
		} {
			if *f.dst, err = ToFloat(m[f.key]); err != nil {
				return nil, &ValidationError{Field: itemField(i, f.key), Value: m[f.key], Err: err}
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func itemField(i int, key string) string {
	f := FieldItems + "[" + strconv.Itoa(i) + "]"
	if key != "" {
		f += "." + key
	}
	return f
}
