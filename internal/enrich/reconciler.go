package enrich

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/config"
	"github.com/sells-group/prospector/internal/model"
	"github.com/sells-group/prospector/internal/store"
)

// CallbackParams are the reconciliation parameters the dispatcher encoded
// into the webhook URL's query string.
type CallbackParams struct {
	RecordID  string
	TableName string
	Prefs     RevealPrefs
}

// CallbackResult is the webhook response payload.
type CallbackResult struct {
	Received       bool     `json:"received"`
	Processed      bool     `json:"processed"`
	RemovedColumns []string `json:"removed_columns,omitempty"`
}

// Reconciler applies asynchronous provider callbacks to target records.
type Reconciler struct {
	store store.Store
	cfg   config.EnrichConfig
}

// NewReconciler creates a Reconciler.
func NewReconciler(st store.Store, cfg config.EnrichConfig) *Reconciler {
	return &Reconciler{store: st, cfg: cfg}
}

// HandleCallback reconciles one provider callback against its target
// record. An unrecognized payload is acknowledged without processing. The
// callback may race ahead of the record's creation, so a bounded
// existence-retry runs before the update; if the row never appears the
// update is attempted anyway and its failure is logged, not escalated.
// Exactly one audit entry is appended per invocation.
func (r *Reconciler) HandleCallback(ctx context.Context, params CallbackParams, payload json.RawMessage) *CallbackResult {
	entry := model.EnrichmentLogEntry{
		RecordID:   params.RecordID,
		TableName:  params.TableName,
		Method:     methodWebhook,
		RawPayload: payload,
	}

	person, shape, ok := ExtractPerson(payload)
	if !ok {
		zap.L().Info("webhook payload carried no person, acknowledging",
			zap.String("record_id", params.RecordID),
			zap.String("table", params.TableName),
		)
		appendAudit(ctx, r.store, entry)
		return &CallbackResult{Received: true, Processed: false}
	}

	entry.MatchFound = true
	zap.L().Debug("webhook person payload located",
		zap.String("record_id", params.RecordID),
		zap.String("shape", shape),
	)

	found := waitForRecord(ctx, r.store, params.TableName, params.RecordID, r.cfg.RowCheckAttempts, r.cfg.RowCheckDelay())
	entry.RowCheckFound = found
	if !found {
		zap.L().Warn("target record still absent after retries, attempting update anyway",
			zap.String("table", params.TableName),
			zap.String("record_id", params.RecordID),
		)
	}

	fields, ext := MapPersonFields(person, params.Prefs)
	fields["enrichment_status"] = StatusCompleted
	entry.EmailFound = ext.Email != ""
	entry.PhoneCount = ext.PhoneCount

	result, err := r.store.UpdateRecord(ctx, params.TableName, params.RecordID, fields)
	if err != nil {
		entry.Error = err.Error()
		appendAudit(ctx, r.store, entry)
		zap.L().Error("webhook reconciliation update failed",
			zap.String("table", params.TableName),
			zap.String("record_id", params.RecordID),
			zap.Error(err),
		)
		// Processing was attempted; the failure lives in the audit log.
		return &CallbackResult{Received: true, Processed: true}
	}

	entry.RemovedColumns = result.RemovedColumns
	appendAudit(ctx, r.store, entry)

	return &CallbackResult{
		Received:       true,
		Processed:      true,
		RemovedColumns: result.RemovedColumns,
	}
}
