// Package store persists leads, search progress checkpoints, enrichment
// audit logs, and performs keyed updates against caller-owned target tables.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospector/internal/config"
	"github.com/sells-group/prospector/internal/model"
)

// UpdateResult reports the outcome of a schema-drift tolerant record update.
type UpdateResult struct {
	// RemovedColumns lists fields dropped because the target table has no
	// matching column.
	RemovedColumns []string
	// RowsAffected is the number of rows the final update touched.
	RowsAffected int64
}

// Store defines the persistence interface for the prospecting pipeline.
type Store interface {
	// Leads
	UpsertLeads(ctx context.Context, leads []model.Lead) (int64, error)
	LeadsByBatch(ctx context.Context, batchRunID string) ([]model.Lead, error)
	CountLeadsByBatch(ctx context.Context, batchRunID string) (int, error)

	// Search progress checkpoints. GetSearchProgress returns 0 when no
	// checkpoint exists for the key. SaveSearchProgress upserts and never
	// regresses last_company_page for a key.
	GetSearchProgress(ctx context.Context, userID, filtersHash string) (int, error)
	SaveSearchProgress(ctx context.Context, userID, filtersHash string, lastPage int) error

	// Enrichment audit log (append-only).
	AppendEnrichmentLog(ctx context.Context, entry model.EnrichmentLogEntry) error

	// Dynamic target records owned by external collaborators. The table
	// name is caller-supplied; rows are keyed by an "id" column.
	RecordExists(ctx context.Context, table, recordID string) (bool, error)
	TableColumns(ctx context.Context, table string) (map[string]bool, error)
	UpdateRecord(ctx context.Context, table, recordID string, fields map[string]any) (*UpdateResult, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// maxUpdateAttempts bounds the drop-unknown-column retry loop in
// UpdateRecord implementations.
const maxUpdateAttempts = 10

// leadColumns is the column order used by bulk lead upserts.
var leadColumns = []string{"id", "name", "email", "title", "organization_name", "linkedin_url", "batch_run_id", "updated_at"}

func leadRows(leads []model.Lead) [][]any {
	rows := make([][]any, len(leads))
	for i, l := range leads {
		rows[i] = []any{l.ID, l.Name, l.Email, l.Title, l.OrganizationName, l.LinkedInURL, l.BatchRunID, l.UpdatedAt}
	}
	return rows
}
