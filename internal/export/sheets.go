package export

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/sells-group/invoice-cli/internal/config"
	"github.com/sells-group/invoice-cli/internal/googleauth"
	"github.com/sells-group/invoice-cli/internal/model"
)

const defaultRange = "Sheet1!A:G"

// Sheets appends rows to a Google Sheets spreadsheet.
type Sheets struct {
	svc           *sheets.Service
	spreadsheetID string
	rng           string
}

// NewSheets creates a Sheets appender.
func NewSheets(ctx context.Context, cfg config.ExportConfig, opts ...option.ClientOption) (*Sheets, error) {
	if cfg.SpreadsheetID == "" {
		return nil, eris.New("export: spreadsheet_id is required")
	}

	authOpts, err := googleauth.ClientOptions(ctx, googleauth.Settings{
		CredentialsFile: cfg.CredentialsFile,
		TokenFile:       cfg.TokenFile,
		Endpoint:        cfg.Endpoint,
		Scopes:          []string{sheets.SpreadsheetsScope},
	})
	if err != nil {
		return nil, eris.Wrap(err, "export: auth")
	}

	svc, err := sheets.NewService(ctx, append(authOpts, opts...)...)
	if err != nil {
		return nil, eris.Wrap(err, "export: new sheets service")
	}

	rng := cfg.Range
	if rng == "" {
		rng = defaultRange
	}
	return &Sheets{svc: svc, spreadsheetID: cfg.SpreadsheetID, rng: rng}, nil
}

// AppendRow implements Appender.
func (s *Sheets) AppendRow(ctx context.Context, inv *model.ProcessedInvoice) error {
	row := Row(inv)
	values := make([]any, len(row))
	for i, v := range row {
		values[i] = v
	}

	resp, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.rng, &sheets.ValueRange{
		Values: [][]any{values},
	}).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return eris.Wrapf(err, "export: append invoice %s", inv.ID)
	}

	var cells int64
	if resp.Updates != nil {
		cells = resp.Updates.UpdatedCells
	}
	zap.L().Debug("export: appended row",
		zap.String("processed_invoice_id", inv.ID),
		zap.Int64("updated_cells", cells),
	)
	return nil
}
