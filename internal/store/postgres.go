package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/db"
	"github.com/sells-group/prospector/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

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

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS people_search_leads (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL DEFAULT '',
	email             TEXT NOT NULL DEFAULT '',
	title             TEXT NOT NULL DEFAULT '',
	organization_name TEXT NOT NULL DEFAULT '',
	linkedin_url      TEXT NOT NULL DEFAULT '',
	batch_run_id      TEXT NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_people_search_leads_batch ON people_search_leads(batch_run_id);

CREATE TABLE IF NOT EXISTS search_progress (
	user_id           TEXT NOT NULL,
	filters_hash      TEXT NOT NULL,
	last_company_page INTEGER NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, filters_hash)
);

CREATE TABLE IF NOT EXISTS enrichment_logs (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	record_id       TEXT NOT NULL,
	table_name      TEXT NOT NULL,
	method          TEXT NOT NULL,
	match_found     BOOLEAN NOT NULL DEFAULT false,
	email_found     BOOLEAN NOT NULL DEFAULT false,
	phone_count     INTEGER NOT NULL DEFAULT 0,
	row_check_found BOOLEAN NOT NULL DEFAULT false,
	removed_columns JSONB,
	error           TEXT,
	raw_payload     JSONB,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_enrichment_logs_record ON enrichment_logs(record_id);
CREATE INDEX IF NOT EXISTS idx_enrichment_logs_created ON enrichment_logs(created_at);
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

func (s *PostgresStore) UpsertLeads(ctx context.Context, leads []model.Lead) (int64, error) {
	if len(leads) == 0 {
		return 0, nil
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "people_search_leads",
		Columns:      leadColumns,
		ConflictKeys: []string{"id"},
	}, leadRows(leads))
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert leads")
	}
	return n, nil
}

func (s *PostgresStore) LeadsByBatch(ctx context.Context, batchRunID string) ([]model.Lead, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, email, title, organization_name, linkedin_url, batch_run_id, updated_at
		 FROM people_search_leads WHERE batch_run_id = $1 ORDER BY name`,
		batchRunID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: leads by batch")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		if err := rows.Scan(&l.ID, &l.Name, &l.Email, &l.Title, &l.OrganizationName, &l.LinkedInURL, &l.BatchRunID, &l.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: leads by batch iterate")
}

func (s *PostgresStore) CountLeadsByBatch(ctx context.Context, batchRunID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM people_search_leads WHERE batch_run_id = $1`,
		batchRunID,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: count leads by batch")
	}
	return n, nil
}

func (s *PostgresStore) GetSearchProgress(ctx context.Context, userID, filtersHash string) (int, error) {
	var page int
	err := s.pool.QueryRow(ctx,
		`SELECT last_company_page FROM search_progress WHERE user_id = $1 AND filters_hash = $2`,
		userID, filtersHash,
	).Scan(&page)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: get search progress for %s", userID)
	}
	return page, nil
}

// SaveSearchProgress upserts the checkpoint. GREATEST keeps the stored page
// monotonic when concurrent searches race on the same key.
func (s *PostgresStore) SaveSearchProgress(ctx context.Context, userID, filtersHash string, lastPage int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO search_progress (user_id, filters_hash, last_company_page, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (user_id, filters_hash) DO UPDATE
		 SET last_company_page = GREATEST(search_progress.last_company_page, EXCLUDED.last_company_page),
		     updated_at = EXCLUDED.updated_at`,
		userID, filtersHash, lastPage,
	)
	return eris.Wrapf(err, "postgres: save search progress for %s", userID)
}

func (s *PostgresStore) AppendEnrichmentLog(ctx context.Context, entry model.EnrichmentLogEntry) error {
	id := entry.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var removedJSON []byte
	if entry.RemovedColumns != nil {
		var err error
		removedJSON, err = json.Marshal(entry.RemovedColumns)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal removed columns")
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO enrichment_logs
		 (id, record_id, table_name, method, match_found, email_found, phone_count, row_check_found, removed_columns, error, raw_payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, entry.RecordID, entry.TableName, entry.Method, entry.MatchFound, entry.EmailFound,
		entry.PhoneCount, entry.RowCheckFound, removedJSON, nullIfEmpty(entry.Error), []byte(entry.RawPayload), createdAt,
	)
	return eris.Wrapf(err, "postgres: append enrichment log for %s", entry.RecordID)
}

func (s *PostgresStore) RecordExists(ctx context.Context, table, recordID string) (bool, error) {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, db.SanitizeTable(table))
	if err := s.pool.QueryRow(ctx, query, recordID).Scan(&exists); err != nil {
		return false, eris.Wrapf(err, "postgres: record exists in %s", table)
	}
	return exists, nil
}

func (s *PostgresStore) TableColumns(ctx context.Context, table string) (map[string]bool, error) {
	schema := "public"
	name := table
	if parts := strings.SplitN(table, ".", 2); len(parts) == 2 {
		schema, name = parts[0], parts[1]
	}

	rows, err := s.pool.Query(ctx,
		`SELECT column_name FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2`,
		schema, name,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: describe columns of %s", table)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, eris.Wrap(err, "postgres: scan column name")
		}
		cols[c] = true
	}
	return cols, eris.Wrapf(rows.Err(), "postgres: describe columns of %s iterate", table)
}

// UpdateRecord applies a keyed update to a caller-owned table, dropping
// fields the destination has no column for. Columns are filtered against
// introspected table metadata first; undefined-column errors from a stale
// description drop the named column and retry, bounded by maxUpdateAttempts.
func (s *PostgresStore) UpdateRecord(ctx context.Context, table, recordID string, fields map[string]any) (*UpdateResult, error) {
	result := &UpdateResult{}

	remaining := make(map[string]any, len(fields))
	cols, err := s.TableColumns(ctx, table)
	if err != nil {
		// Introspection failure falls through to the error-driven drop loop.
		zap.L().Warn("column introspection failed, relying on drop-and-retry",
			zap.String("table", table),
			zap.Error(err),
		)
		for k, v := range fields {
			remaining[k] = v
		}
	} else {
		for k, v := range fields {
			if cols[k] {
				remaining[k] = v
			} else {
				result.RemovedColumns = append(result.RemovedColumns, k)
			}
		}
	}
	sort.Strings(result.RemovedColumns)

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		if len(remaining) == 0 {
			return result, eris.Errorf("postgres: no updatable columns remain for %s.%s", table, recordID)
		}

		query, args := buildUpdateSQL(table, recordID, remaining)
		tag, err := s.pool.Exec(ctx, query, args...)
		if err == nil {
			result.RowsAffected = tag.RowsAffected()
			if result.RowsAffected == 0 {
				return result, eris.Errorf("postgres: record %s not found in %s", recordID, table)
			}
			return result, nil
		}

		col, ok := undefinedColumn(err)
		if !ok {
			return result, eris.Wrapf(err, "postgres: update %s.%s", table, recordID)
		}
		delete(remaining, col)
		result.RemovedColumns = append(result.RemovedColumns, col)
		zap.L().Warn("dropping unknown column and retrying update",
			zap.String("table", table),
			zap.String("record_id", recordID),
			zap.String("column", col),
		)
	}

	return result, eris.Errorf("postgres: update %s.%s: attempts exhausted", table, recordID)
}

// buildUpdateSQL renders "UPDATE t SET a=$1, b=$2 WHERE id=$3" with columns
// in sorted order for deterministic statements.
func buildUpdateSQL(table, recordID string, fields map[string]any) (string, []any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	setClauses := make([]string, len(keys))
	args := make([]any, 0, len(keys)+1)
	for i, k := range keys {
		setClauses[i] = fmt.Sprintf("%s = $%d", pgx.Identifier{k}.Sanitize(), i+1)
		args = append(args, fields[k])
	}
	args = append(args, recordID)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
		db.SanitizeTable(table), strings.Join(setClauses, ", "), len(keys)+1)
	return query, args
}

var pgUndefinedColumnRe = regexp.MustCompile(`column "([^"]+)"`)

// undefinedColumn extracts the offending column name from a SQLSTATE 42703
// (undefined_column) error.
func undefinedColumn(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "42703" {
		return "", false
	}
	m := pgUndefinedColumnRe.FindStringSubmatch(pgErr.Message)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
