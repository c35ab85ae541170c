package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-cli/internal/db"
	"github.com/sells-group/invoice-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// the per-invoice operations of a run.
var preparedStatements = map[string]string{
	"insert_raw_invoice":    `INSERT INTO raw_invoices (id, email_id, email, status, error_message, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"update_raw_status":     `UPDATE raw_invoices SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4`,
	"raw_exists_for_email":  `SELECT EXISTS (SELECT 1 FROM raw_invoices WHERE email_id = $1)`,
	"insert_processed":      `INSERT INTO processed_invoices (id, raw_invoice_id, invoice_number, extracted_data, sync_status, error_message, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"update_sync_status":    `UPDATE processed_invoices SET sync_status = $1, error_message = $2, updated_at = $3 WHERE id = $4`,
	"invoice_number_exists": `SELECT EXISTS (SELECT 1 FROM processed_invoices WHERE invoice_number = $1)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS raw_invoices (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	email_id      TEXT NOT NULL,
	email         JSONB NOT NULL,
	status        TEXT NOT NULL DEFAULT 'PENDING',
	error_message TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS processed_invoices (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	raw_invoice_id TEXT NOT NULL,
	invoice_number TEXT NOT NULL,
	extracted_data JSONB NOT NULL,
	sync_status    TEXT NOT NULL DEFAULT 'NOT_SYNCED',
	error_message  TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_raw_invoices_status ON raw_invoices(status);
CREATE INDEX IF NOT EXISTS idx_raw_invoices_email_id ON raw_invoices(email_id);
CREATE INDEX IF NOT EXISTS idx_processed_invoices_sync_status ON processed_invoices(sync_status);
CREATE INDEX IF NOT EXISTS idx_processed_invoices_number ON processed_invoices(invoice_number);
CREATE INDEX IF NOT EXISTS idx_processed_invoices_raw_id ON processed_invoices(raw_invoice_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveRawInvoice(ctx context.Context, inv *model.RawInvoice) error {
	emailJSON, err := json.Marshal(inv.Email)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal email")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO raw_invoices (id, email_id, email, status, error_message, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		inv.ID, inv.EmailID, emailJSON, string(inv.Status), nullable(inv.ErrorMessage), inv.CreatedAt.UTC(), inv.UpdatedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: insert raw invoice %s", inv.ID)
}

func (s *PostgresStore) ListRawInvoices(ctx context.Context, statuses ...model.ProcessingStatus) ([]model.RawInvoice, error) {
	query := `SELECT id, email_id, email, status, error_message, created_at, updated_at FROM raw_invoices`
	var args []any
	if len(statuses) > 0 {
		query += ` WHERE status = ANY($1)`
		args = append(args, processingStrings(statuses))
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list raw invoices")
	}
	defer rows.Close()

	var out []model.RawInvoice
	for rows.Next() {
		var inv model.RawInvoice
		var emailJSON []byte
		var status string
		var errMsg *string

		if err := rows.Scan(&inv.ID, &inv.EmailID, &emailJSON, &status, &errMsg, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan raw invoice")
		}
		if err := json.Unmarshal(emailJSON, &inv.Email); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal email")
		}
		if inv.Status, err = model.ParseProcessingStatus(status); err != nil {
			return nil, err
		}
		if errMsg != nil {
			inv.ErrorMessage = *errMsg
		}
		out = append(out, inv)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list raw invoices iterate")
}

func (s *PostgresStore) UpdateRawInvoiceStatus(ctx context.Context, id string, status model.ProcessingStatus, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE raw_invoices SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4`,
		string(status), nullable(errMsg), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update raw invoice status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "raw invoice %s", id)
	}
	return nil
}

func (s *PostgresStore) RawInvoiceExistsForEmail(ctx context.Context, emailID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM raw_invoices WHERE email_id = $1)`, emailID,
	).Scan(&exists)
	return exists, eris.Wrapf(err, "postgres: raw invoice exists for email %s", emailID)
}

func (s *PostgresStore) SaveProcessedInvoice(ctx context.Context, inv *model.ProcessedInvoice) error {
	dataJSON, err := json.Marshal(inv.Data)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal extracted data")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO processed_invoices (id, raw_invoice_id, invoice_number, extracted_data, sync_status, error_message, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		inv.ID, inv.RawInvoiceID, inv.Data.InvoiceNumber, dataJSON, string(inv.SyncStatus),
		nullable(inv.ErrorMessage), inv.CreatedAt.UTC(), inv.UpdatedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: insert processed invoice %s", inv.ID)
}

func (s *PostgresStore) ListProcessedInvoices(ctx context.Context, statuses ...model.SyncStatus) ([]model.ProcessedInvoice, error) {
	query := `SELECT id, raw_invoice_id, extracted_data, sync_status, error_message, created_at, updated_at FROM processed_invoices`
	var args []any
	if len(statuses) > 0 {
		query += ` WHERE sync_status = ANY($1)`
		args = append(args, syncStrings(statuses))
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list processed invoices")
	}
	defer rows.Close()

	var out []model.ProcessedInvoice
	for rows.Next() {
		var inv model.ProcessedInvoice
		var dataJSON []byte
		var status string
		var errMsg *string

		if err := rows.Scan(&inv.ID, &inv.RawInvoiceID, &dataJSON, &status, &errMsg, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan processed invoice")
		}
		if err := json.Unmarshal(dataJSON, &inv.Data); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal extracted data")
		}
		if inv.SyncStatus, err = model.ParseSyncStatus(status); err != nil {
			return nil, err
		}
		if errMsg != nil {
			inv.ErrorMessage = *errMsg
		}
		out = append(out, inv)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list processed invoices iterate")
}

func (s *PostgresStore) UpdateProcessedSyncStatus(ctx context.Context, id string, status model.SyncStatus, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE processed_invoices SET sync_status = $1, error_message = $2, updated_at = $3 WHERE id = $4`,
		string(status), nullable(errMsg), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update sync status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "processed invoice %s", id)
	}
	return nil
}

func (s *PostgresStore) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM processed_invoices WHERE invoice_number = $1)`, number,
	).Scan(&exists)
	return exists, eris.Wrapf(err, "postgres: invoice number exists %s", number)
}

func (s *PostgresStore) ProcessedInvoiceExistsForRaw(ctx context.Context, rawID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM processed_invoices WHERE raw_invoice_id = $1)`, rawID,
	).Scan(&exists)
	return exists, eris.Wrapf(err, "postgres: processed invoice exists for raw %s", rawID)
}

func (s *PostgresStore) CountByStatus(ctx context.Context) (*model.StatusCounts, error) {
	counts := newStatusCounts()

	rows, err := s.pool.Query(ctx,
		`SELECT 'raw', status, COUNT(*) FROM raw_invoices GROUP BY status
		 UNION ALL
		 SELECT 'processed', sync_status, COUNT(*) FROM processed_invoices GROUP BY sync_status`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count by status")
	}
	defer rows.Close()

	for rows.Next() {
		var kind, status string
		var n int64
		if err := rows.Scan(&kind, &status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan status count")
		}
		switch kind {
		case "raw":
			st, err := model.ParseProcessingStatus(status)
			if err != nil {
				return nil, err
			}
			counts.Raw[st] = int(n)
		default:
			st, err := model.ParseSyncStatus(status)
			if err != nil {
				return nil, err
			}
			counts.Processed[st] = int(n)
		}
	}
	return counts, eris.Wrap(rows.Err(), "postgres: count by status iterate")
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
