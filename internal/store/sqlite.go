package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/invoice-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS raw_invoices (
	id            TEXT PRIMARY KEY,
	email_id      TEXT NOT NULL,
	email         TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'PENDING',
	error_message TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS processed_invoices (
	id             TEXT PRIMARY KEY,
	raw_invoice_id TEXT NOT NULL,
	invoice_number TEXT NOT NULL,
	extracted_data TEXT NOT NULL,
	sync_status    TEXT NOT NULL DEFAULT 'NOT_SYNCED',
	error_message  TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_raw_invoices_status ON raw_invoices(status);
CREATE INDEX IF NOT EXISTS idx_raw_invoices_email_id ON raw_invoices(email_id);
CREATE INDEX IF NOT EXISTS idx_processed_invoices_sync_status ON processed_invoices(sync_status);
CREATE INDEX IF NOT EXISTS idx_processed_invoices_number ON processed_invoices(invoice_number);
CREATE INDEX IF NOT EXISTS idx_processed_invoices_raw_id ON processed_invoices(raw_invoice_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRawInvoice(ctx context.Context, inv *model.RawInvoice) error {
	emailJSON, err := json.Marshal(inv.Email)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal email")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO raw_invoices (id, email_id, email, status, error_message, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.EmailID, string(emailJSON), string(inv.Status), nullString(inv.ErrorMessage),
		inv.CreatedAt.UTC(), inv.UpdatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert raw invoice %s", inv.ID)
}

func (s *SQLiteStore) ListRawInvoices(ctx context.Context, statuses ...model.ProcessingStatus) ([]model.RawInvoice, error) {
	query := `SELECT id, email_id, email, status, error_message, created_at, updated_at FROM raw_invoices`
	where, args := sqliteIn("status", processingStrings(statuses))
	query += where + ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list raw invoices")
	}
	defer rows.Close()

	var out []model.RawInvoice
	for rows.Next() {
		inv, err := scanRawInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list raw invoices iterate")
}

func (s *SQLiteStore) UpdateRawInvoiceStatus(ctx context.Context, id string, status model.ProcessingStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE raw_invoices SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		string(status), nullString(errMsg), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update raw invoice status %s", id)
	}
	return checkRowsAffected(res, "raw invoice", id)
}

func (s *SQLiteStore) RawInvoiceExistsForEmail(ctx context.Context, emailID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM raw_invoices WHERE email_id = ?`, emailID,
	).Scan(&n)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: raw invoice exists for email %s", emailID)
	}
	return n > 0, nil
}

func (s *SQLiteStore) SaveProcessedInvoice(ctx context.Context, inv *model.ProcessedInvoice) error {
	dataJSON, err := json.Marshal(inv.Data)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal extracted data")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO processed_invoices (id, raw_invoice_id, invoice_number, extracted_data, sync_status, error_message, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.RawInvoiceID, inv.Data.InvoiceNumber, string(dataJSON), string(inv.SyncStatus),
		nullString(inv.ErrorMessage), inv.CreatedAt.UTC(), inv.UpdatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert processed invoice %s", inv.ID)
}

func (s *SQLiteStore) ListProcessedInvoices(ctx context.Context, statuses ...model.SyncStatus) ([]model.ProcessedInvoice, error) {
	query := `SELECT id, raw_invoice_id, extracted_data, sync_status, error_message, created_at, updated_at FROM processed_invoices`
	where, args := sqliteIn("sync_status", syncStrings(statuses))
	query += where + ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list processed invoices")
	}
	defer rows.Close()

	var out []model.ProcessedInvoice
	for rows.Next() {
		inv, err := scanProcessedInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list processed invoices iterate")
}

func (s *SQLiteStore) UpdateProcessedSyncStatus(ctx context.Context, id string, status model.SyncStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE processed_invoices SET sync_status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		string(status), nullString(errMsg), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update sync status %s", id)
	}
	return checkRowsAffected(res, "processed invoice", id)
}

func (s *SQLiteStore) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM processed_invoices WHERE invoice_number = ?`, number,
	).Scan(&n)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: invoice number exists %s", number)
	}
	return n > 0, nil
}

func (s *SQLiteStore) ProcessedInvoiceExistsForRaw(ctx context.Context, rawID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM processed_invoices WHERE raw_invoice_id = ?`, rawID,
	).Scan(&n)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: processed invoice exists for raw %s", rawID)
	}
	return n > 0, nil
}

func (s *SQLiteStore) CountByStatus(ctx context.Context) (*model.StatusCounts, error) {
	counts := newStatusCounts()

	if err := s.countGrouped(ctx, `SELECT status, COUNT(1) FROM raw_invoices GROUP BY status`, func(v string, n int) error {
		st, err := model.ParseProcessingStatus(v)
		if err != nil {
			return err
		}
		counts.Raw[st] = n
		return nil
	}); err != nil {
		return nil, eris.Wrap(err, "sqlite: count raw invoices")
	}

	if err := s.countGrouped(ctx, `SELECT sync_status, COUNT(1) FROM processed_invoices GROUP BY sync_status`, func(v string, n int) error {
		st, err := model.ParseSyncStatus(v)
		if err != nil {
			return err
		}
		counts.Processed[st] = n
		return nil
	}); err != nil {
		return nil, eris.Wrap(err, "sqlite: count processed invoices")
	}

	return counts, nil
}

func (s *SQLiteStore) countGrouped(ctx context.Context, query string, add func(string, int) error) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var v string
		var n int
		if err := rows.Scan(&v, &n); err != nil {
			return err
		}
		if err := add(v, n); err != nil {
			return err
		}
	}
	return rows.Err()
}

// helpers

// sqliteIn renders a WHERE clause matching any of values. No values means
// no filter.
func sqliteIn(column string, values []string) (string, []any) {
	if len(values) == 0 {
		return "", nil
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return ` WHERE ` + column + ` IN (` + strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ") + `)`, args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRawInvoice(row scannable) (*model.RawInvoice, error) {
	var inv model.RawInvoice
	var emailJSON, status string
	var errMsg sql.NullString

	if err := row.Scan(&inv.ID, &inv.EmailID, &emailJSON, &status, &errMsg, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan raw invoice")
	}
	if err := json.Unmarshal([]byte(emailJSON), &inv.Email); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal email")
	}
	st, err := model.ParseProcessingStatus(status)
	if err != nil {
		return nil, err
	}
	inv.Status = st
	inv.ErrorMessage = errMsg.String
	return &inv, nil
}

func scanProcessedInvoice(row scannable) (*model.ProcessedInvoice, error) {
	var inv model.ProcessedInvoice
	var dataJSON, status string
	var errMsg sql.NullString

	if err := row.Scan(&inv.ID, &inv.RawInvoiceID, &dataJSON, &status, &errMsg, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan processed invoice")
	}
	if err := json.Unmarshal([]byte(dataJSON), &inv.Data); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal extracted data")
	}
	st, err := model.ParseSyncStatus(status)
	if err != nil {
		return nil, err
	}
	inv.SyncStatus = st
	inv.ErrorMessage = errMsg.String
	return &inv, nil
}
