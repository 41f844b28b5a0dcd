package enrich

import (
	"context"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/config"
	"github.com/sells-group/prospector/internal/model"
	"github.com/sells-group/prospector/internal/store"
	"github.com/sells-group/prospector/pkg/apollo"
)

// Enrichment status values written to the target record.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Dispatch methods recorded in the audit log.
const (
	methodIDMatch     = "id_match"
	methodSearchMatch = "search_match"
	methodWebhook     = "webhook"
)

// CRMPusher pushes a completed enrichment to an external CRM. Optional.
type CRMPusher interface {
	PushEnriched(ctx context.Context, recordID string, fields map[string]any) error
}

// Result is the trigger response payload for one dispatch.
type Result struct {
	Success          bool       `json:"success"`
	EnrichmentStatus string     `json:"enrichment_status"`
	DataFound        bool       `json:"data_found"`
	ExtractedData    *Extracted `json:"extracted_data,omitempty"`
	RemovedColumns   []string   `json:"removed_columns,omitempty"`
}

// Dispatcher submits enrichment requests to the provider. The callback URL
// it builds carries the record id, table name, and resolved reveal flags so
// the webhook reconciler never re-derives preferences.
type Dispatcher struct {
	client apollo.Client
	store  store.Store
	crm    CRMPusher
	cfg    config.EnrichConfig
}

// NewDispatcher creates a Dispatcher. crm may be nil.
func NewDispatcher(client apollo.Client, st store.Store, crm CRMPusher, cfg config.EnrichConfig) *Dispatcher {
	return &Dispatcher{client: client, store: st, crm: crm, cfg: cfg}
}

// Dispatch runs one enrichment attempt. When the provider returns an
// immediate person match it applies the same mapping and update logic the
// webhook reconciler uses; otherwise it marks the target row pending and
// relies on the later callback. One audit entry is written per attempt
// regardless of outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) (*Result, error) {
	if req.RecordID == "" || req.TableName == "" {
		return nil, eris.New("enrich: record_id and table_name are required")
	}

	prefs := ResolvePrefs(req)
	method := methodSearchMatch
	if req.Lead.PersonID != "" {
		method = methodIDMatch
	}

	entry := model.EnrichmentLogEntry{
		RecordID:  req.RecordID,
		TableName: req.TableName,
		Method:    method,
	}

	match, err := d.client.MatchPerson(ctx, apollo.MatchRequest{
		ID:               req.Lead.PersonID,
		Name:             req.Lead.Name,
		OrganizationName: req.Lead.OrganizationName,
		Domain:           req.Lead.Domain,
		LinkedinURL:      req.Lead.LinkedinURL,
	}, apollo.MatchOptions{
		RevealPersonalEmails: prefs.Email,
		RevealPhoneNumber:    prefs.Phone,
		WebhookURL:           d.callbackURL(req.RecordID, req.TableName, prefs),
	})
	if err != nil {
		entry.Error = err.Error()
		appendAudit(ctx, d.store, entry)
		return nil, eris.Wrapf(err, "enrich: match person for %s", req.RecordID)
	}

	found := waitForRecord(ctx, d.store, req.TableName, req.RecordID, d.cfg.RowCheckAttempts, d.cfg.RowCheckDelay())
	entry.RowCheckFound = found
	if !found {
		zap.L().Warn("target record still absent after retries, attempting update anyway",
			zap.String("table", req.TableName),
			zap.String("record_id", req.RecordID),
		)
	}

	// Async path: no immediate person, the webhook will finish the job.
	if match.Person == nil {
		result, err := d.store.UpdateRecord(ctx, req.TableName, req.RecordID, map[string]any{
			"enrichment_status": StatusPending,
		})
		if err != nil {
			entry.Error = err.Error()
			appendAudit(ctx, d.store, entry)
			return nil, eris.Wrapf(err, "enrich: mark %s pending", req.RecordID)
		}
		entry.RemovedColumns = result.RemovedColumns
		appendAudit(ctx, d.store, entry)
		return &Result{
			Success:          true,
			EnrichmentStatus: StatusPending,
			RemovedColumns:   result.RemovedColumns,
		}, nil
	}

	// Sync path: the provider matched immediately, apply the same mapping
	// the webhook reconciler would.
	fields, ext := MapPersonFields(match.Person, prefs)
	fields["enrichment_status"] = StatusCompleted

	entry.MatchFound = true
	entry.EmailFound = ext.Email != ""
	entry.PhoneCount = ext.PhoneCount

	result, err := d.store.UpdateRecord(ctx, req.TableName, req.RecordID, fields)
	if err != nil {
		entry.Error = err.Error()
		appendAudit(ctx, d.store, entry)
		return nil, eris.Wrapf(err, "enrich: apply match to %s", req.RecordID)
	}
	entry.RemovedColumns = result.RemovedColumns
	appendAudit(ctx, d.store, entry)

	if d.crm != nil {
		if err := d.crm.PushEnriched(ctx, req.RecordID, fields); err != nil {
			zap.L().Warn("crm push failed",
				zap.String("record_id", req.RecordID),
				zap.Error(err),
			)
		}
	}

	return &Result{
		Success:          true,
		EnrichmentStatus: StatusCompleted,
		DataFound:        true,
		ExtractedData:    &ext,
		RemovedColumns:   result.RemovedColumns,
	}, nil
}

// callbackURL encodes the reconciliation parameters the webhook needs.
func (d *Dispatcher) callbackURL(recordID, table string, prefs RevealPrefs) string {
	if d.cfg.CallbackBaseURL == "" {
		return ""
	}
	q := url.Values{}
	q.Set("record_id", recordID)
	q.Set("table_name", table)
	q.Set("reveal_email", strconv.FormatBool(prefs.Email))
	q.Set("reveal_phone", strconv.FormatBool(prefs.Phone))
	return d.cfg.CallbackBaseURL + "/webhook/apollo?" + q.Encode()
}
