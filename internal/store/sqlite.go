package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/prospector/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Used for local
// development and tests; postgres is the production driver.
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
CREATE TABLE IF NOT EXISTS people_search_leads (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL DEFAULT '',
	email             TEXT NOT NULL DEFAULT '',
	title             TEXT NOT NULL DEFAULT '',
	organization_name TEXT NOT NULL DEFAULT '',
	linkedin_url      TEXT NOT NULL DEFAULT '',
	batch_run_id      TEXT NOT NULL,
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_people_search_leads_batch ON people_search_leads(batch_run_id);

CREATE TABLE IF NOT EXISTS search_progress (
	user_id           TEXT NOT NULL,
	filters_hash      TEXT NOT NULL,
	last_company_page INTEGER NOT NULL,
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (user_id, filters_hash)
);

CREATE TABLE IF NOT EXISTS enrichment_logs (
	id              TEXT PRIMARY KEY,
	record_id       TEXT NOT NULL,
	table_name      TEXT NOT NULL,
	method          TEXT NOT NULL,
	match_found     INTEGER NOT NULL DEFAULT 0,
	email_found     INTEGER NOT NULL DEFAULT 0,
	phone_count     INTEGER NOT NULL DEFAULT 0,
	row_check_found INTEGER NOT NULL DEFAULT 0,
	removed_columns TEXT,
	error           TEXT,
	raw_payload     TEXT,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_enrichment_logs_record ON enrichment_logs(record_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertLeads(ctx context.Context, leads []model.Lead) (int64, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert leads: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO people_search_leads (id, name, email, title, organization_name, linkedin_url, batch_run_id, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   email = excluded.email,
		   title = excluded.title,
		   organization_name = excluded.organization_name,
		   linkedin_url = excluded.linkedin_url,
		   batch_run_id = excluded.batch_run_id,
		   updated_at = excluded.updated_at`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert leads: prepare")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, l := range leads {
		if _, err := stmt.ExecContext(ctx, l.ID, l.Name, l.Email, l.Title, l.OrganizationName, l.LinkedInURL, l.BatchRunID, l.UpdatedAt); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert lead %s", l.ID)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert leads: commit")
	}
	return n, nil
}

func (s *SQLiteStore) LeadsByBatch(ctx context.Context, batchRunID string) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, title, organization_name, linkedin_url, batch_run_id, updated_at
		 FROM people_search_leads WHERE batch_run_id = ? ORDER BY name`,
		batchRunID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: leads by batch")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		if err := rows.Scan(&l.ID, &l.Name, &l.Email, &l.Title, &l.OrganizationName, &l.LinkedInURL, &l.BatchRunID, &l.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: leads by batch iterate")
}

func (s *SQLiteStore) CountLeadsByBatch(ctx context.Context, batchRunID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM people_search_leads WHERE batch_run_id = ?`,
		batchRunID,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: count leads by batch")
	}
	return n, nil
}

func (s *SQLiteStore) GetSearchProgress(ctx context.Context, userID, filtersHash string) (int, error) {
	var page int
	err := s.db.QueryRowContext(ctx,
		`SELECT last_company_page FROM search_progress WHERE user_id = ? AND filters_hash = ?`,
		userID, filtersHash,
	).Scan(&page)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: get search progress for %s", userID)
	}
	return page, nil
}

func (s *SQLiteStore) SaveSearchProgress(ctx context.Context, userID, filtersHash string, lastPage int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_progress (user_id, filters_hash, last_company_page, updated_at)
		 VALUES (?, ?, ?, datetime('now'))
		 ON CONFLICT(user_id, filters_hash) DO UPDATE SET
		   last_company_page = MAX(search_progress.last_company_page, excluded.last_company_page),
		   updated_at = excluded.updated_at`,
		userID, filtersHash, lastPage,
	)
	return eris.Wrapf(err, "sqlite: save search progress for %s", userID)
}

func (s *SQLiteStore) AppendEnrichmentLog(ctx context.Context, entry model.EnrichmentLogEntry) error {
	id := entry.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var removedJSON any
	if entry.RemovedColumns != nil {
		b, err := json.Marshal(entry.RemovedColumns)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal removed columns")
		}
		removedJSON = string(b)
	}

	var rawPayload any
	if len(entry.RawPayload) > 0 {
		rawPayload = string(entry.RawPayload)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO enrichment_logs
		 (id, record_id, table_name, method, match_found, email_found, phone_count, row_check_found, removed_columns, error, raw_payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, entry.RecordID, entry.TableName, entry.Method, entry.MatchFound, entry.EmailFound,
		entry.PhoneCount, entry.RowCheckFound, removedJSON, nullIfEmpty(entry.Error), rawPayload, createdAt,
	)
	return eris.Wrapf(err, "sqlite: append enrichment log for %s", entry.RecordID)
}

func (s *SQLiteStore) RecordExists(ctx context.Context, table, recordID string) (bool, error) {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = ?)`, quoteIdent(table))
	if err := s.db.QueryRowContext(ctx, query, recordID).Scan(&exists); err != nil {
		return false, eris.Wrapf(err, "sqlite: record exists in %s", table)
	}
	return exists, nil
}

func (s *SQLiteStore) TableColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: describe columns of %s", table)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan column name")
		}
		cols[c] = true
	}
	return cols, eris.Wrapf(rows.Err(), "sqlite: describe columns of %s iterate", table)
}

func (s *SQLiteStore) UpdateRecord(ctx context.Context, table, recordID string, fields map[string]any) (*UpdateResult, error) {
	result := &UpdateResult{}

	remaining := make(map[string]any, len(fields))
	cols, err := s.TableColumns(ctx, table)
	if err != nil {
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
			return result, eris.Errorf("sqlite: no updatable columns remain for %s.%s", table, recordID)
		}

		keys := make([]string, 0, len(remaining))
		for k := range remaining {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		setClauses := make([]string, len(keys))
		args := make([]any, 0, len(keys)+1)
		for i, k := range keys {
			setClauses[i] = fmt.Sprintf("%s = ?", quoteIdent(k))
			args = append(args, remaining[k])
		}
		args = append(args, recordID)

		query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?",
			quoteIdent(table), strings.Join(setClauses, ", "))

		res, err := s.db.ExecContext(ctx, query, args...)
		if err == nil {
			n, err := res.RowsAffected()
			if err != nil {
				return result, eris.Wrap(err, "sqlite: rows affected")
			}
			result.RowsAffected = n
			if n == 0 {
				return result, eris.Errorf("sqlite: record %s not found in %s", recordID, table)
			}
			return result, nil
		}

		col, ok := sqliteMissingColumn(err)
		if !ok {
			return result, eris.Wrapf(err, "sqlite: update %s.%s", table, recordID)
		}
		delete(remaining, col)
		result.RemovedColumns = append(result.RemovedColumns, col)
		zap.L().Warn("dropping unknown column and retrying update",
			zap.String("table", table),
			zap.String("record_id", recordID),
			zap.String("column", col),
		)
	}

	return result, eris.Errorf("sqlite: update %s.%s: attempts exhausted", table, recordID)
}

var sqliteNoColumnRe = regexp.MustCompile(`no such column:?\s+"?([A-Za-z0-9_]+)"?`)

func sqliteMissingColumn(err error) (string, bool) {
	m := sqliteNoColumnRe.FindStringSubmatch(err.Error())
	if m == nil {
		return "", false
	}
	return m[1], true
}

// quoteIdent double-quotes a SQLite identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
