package enrich

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospector/internal/config"
	"github.com/sells-group/prospector/internal/store"
	"github.com/sells-group/prospector/pkg/apollo"
)

func testEnrichConfig() config.EnrichConfig {
	return config.EnrichConfig{
		CallbackBaseURL:  "https://svc.example.com",
		RowCheckAttempts: 1,
	}
}

func TestDispatcher_RequiresRecordAndTable(t *testing.T) {
	d := NewDispatcher(&stubClient{}, &stubStore{}, nil, testEnrichConfig())

	_, err := d.Dispatch(context.Background(), &Request{RecordID: "r1"})
	require.Error(t, err)
	_, err = d.Dispatch(context.Background(), &Request{TableName: "contacts"})
	require.Error(t, err)
}

func TestDispatcher_SyncMatchCompletes(t *testing.T) {
	client := &stubClient{matchResp: &apollo.MatchResponse{Person: &apollo.Person{
		ID:    "p1",
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
		PhoneNumbers: []apollo.PhoneNumber{
			{RawNumber: "+1 512 555 0100", Type: "mobile"},
		},
	}}}
	st := &stubStore{exists: true}
	d := NewDispatcher(client, st, nil, testEnrichConfig())

	result, err := d.Dispatch(context.Background(), &Request{
		RecordID:  "rec-1",
		TableName: "contacts",
		Lead:      LeadQuery{PersonID: "p1"},
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, StatusCompleted, result.EnrichmentStatus)
	assert.True(t, result.DataFound)
	require.NotNil(t, result.ExtractedData)
	assert.Equal(t, "ada@example.com", result.ExtractedData.Email)

	require.Len(t, st.updates, 1)
	assert.Equal(t, "contacts", st.updates[0].table)
	assert.Equal(t, "rec-1", st.updates[0].id)
	assert.Equal(t, StatusCompleted, st.updates[0].fields["enrichment_status"])
	assert.Equal(t, "ada@example.com", st.updates[0].fields["email"])

	require.Len(t, st.logs, 1)
	entry := st.logs[0]
	assert.Equal(t, "id_match", entry.Method)
	assert.True(t, entry.MatchFound)
	assert.True(t, entry.EmailFound)
	assert.Equal(t, 1, entry.PhoneCount)
	assert.True(t, entry.RowCheckFound)
}

func TestDispatcher_AsyncMatchMarksPending(t *testing.T) {
	client := &stubClient{matchResp: &apollo.MatchResponse{Person: nil}}
	st := &stubStore{exists: true}
	d := NewDispatcher(client, st, nil, testEnrichConfig())

	result, err := d.Dispatch(context.Background(), &Request{
		RecordID:  "rec-1",
		TableName: "contacts",
		Lead:      LeadQuery{Name: "Ada Lovelace", Domain: "engines.example.com"},
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, StatusPending, result.EnrichmentStatus)
	assert.False(t, result.DataFound)
	assert.Nil(t, result.ExtractedData)

	require.Len(t, st.updates, 1)
	assert.Equal(t, map[string]any{"enrichment_status": StatusPending}, st.updates[0].fields)

	require.Len(t, st.logs, 1)
	assert.Equal(t, "search_match", st.logs[0].Method)
	assert.False(t, st.logs[0].MatchFound)
}

func TestDispatcher_CallbackURLCarriesReconciliationParams(t *testing.T) {
	client := &stubClient{matchResp: &apollo.MatchResponse{}}
	d := NewDispatcher(client, &stubStore{exists: true}, nil, testEnrichConfig())

	_, err := d.Dispatch(context.Background(), &Request{
		RecordID:    "rec-1",
		TableName:   "contacts",
		RevealPhone: boolPtr(false),
	})
	require.NoError(t, err)

	assert.True(t, client.gotOpts.RevealPersonalEmails)
	assert.False(t, client.gotOpts.RevealPhoneNumber)

	u, err := url.Parse(client.gotOpts.WebhookURL)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(u.Path, "/webhook/apollo"))
	q := u.Query()
	assert.Equal(t, "rec-1", q.Get("record_id"))
	assert.Equal(t, "contacts", q.Get("table_name"))
	assert.Equal(t, "true", q.Get("reveal_email"))
	assert.Equal(t, "false", q.Get("reveal_phone"))
}

func TestDispatcher_NoCallbackURLWithoutBase(t *testing.T) {
	client := &stubClient{matchResp: &apollo.MatchResponse{}}
	cfg := testEnrichConfig()
	cfg.CallbackBaseURL = ""
	d := NewDispatcher(client, &stubStore{exists: true}, nil, cfg)

	_, err := d.Dispatch(context.Background(), &Request{RecordID: "rec-1", TableName: "contacts"})
	require.NoError(t, err)
	assert.Empty(t, client.gotOpts.WebhookURL)
}

func TestDispatcher_MatchErrorIsAudited(t *testing.T) {
	client := &stubClient{matchErr: errors.New("upstream 500")}
	st := &stubStore{}
	d := NewDispatcher(client, st, nil, testEnrichConfig())

	_, err := d.Dispatch(context.Background(), &Request{RecordID: "rec-1", TableName: "contacts"})
	require.Error(t, err)

	require.Len(t, st.logs, 1)
	assert.Contains(t, st.logs[0].Error, "upstream 500")
	assert.Empty(t, st.updates)
}

func TestDispatcher_UpdateFailureSurfaces(t *testing.T) {
	client := &stubClient{matchResp: &apollo.MatchResponse{Person: &apollo.Person{ID: "p1"}}}
	st := &stubStore{exists: true, updateErr: errors.New("no updatable columns")}
	d := NewDispatcher(client, st, nil, testEnrichConfig())

	_, err := d.Dispatch(context.Background(), &Request{RecordID: "rec-1", TableName: "contacts"})
	require.Error(t, err)
	require.Len(t, st.logs, 1)
	assert.NotEmpty(t, st.logs[0].Error)
}

func TestDispatcher_RemovedColumnsReported(t *testing.T) {
	client := &stubClient{matchResp: &apollo.MatchResponse{Person: &apollo.Person{ID: "p1", Name: "Ada"}}}
	st := &stubStore{
		exists:       true,
		updateResult: &store.UpdateResult{RemovedColumns: []string{"headline"}, RowsAffected: 1},
	}
	d := NewDispatcher(client, st, nil, testEnrichConfig())

	result, err := d.Dispatch(context.Background(), &Request{RecordID: "rec-1", TableName: "contacts"})
	require.NoError(t, err)
	assert.Equal(t, []string{"headline"}, result.RemovedColumns)
	require.Len(t, st.logs, 1)
	assert.Equal(t, []string{"headline"}, st.logs[0].RemovedColumns)
}

func TestDispatcher_PendingPathAuditsRemovedColumns(t *testing.T) {
	client := &stubClient{matchResp: &apollo.MatchResponse{Person: nil}}
	st := &stubStore{
		exists:       true,
		updateResult: &store.UpdateResult{RemovedColumns: []string{"headline"}, RowsAffected: 1},
	}
	d := NewDispatcher(client, st, nil, testEnrichConfig())

	result, err := d.Dispatch(context.Background(), &Request{RecordID: "rec-1", TableName: "contacts"})
	require.NoError(t, err)
	assert.Equal(t, []string{"headline"}, result.RemovedColumns)

	// The audit entry carries the dropped columns just like the sync path.
	require.Len(t, st.logs, 1)
	assert.Equal(t, []string{"headline"}, st.logs[0].RemovedColumns)
}

func TestDispatcher_CRMPushBestEffort(t *testing.T) {
	client := &stubClient{matchResp: &apollo.MatchResponse{Person: &apollo.Person{ID: "p1", Name: "Ada"}}}
	pusher := &stubPusher{err: errors.New("salesforce down")}
	d := NewDispatcher(client, &stubStore{exists: true}, pusher, testEnrichConfig())

	result, err := d.Dispatch(context.Background(), &Request{RecordID: "rec-1", TableName: "contacts"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, pusher.pushed, 1)
	assert.Equal(t, "rec-1", pusher.pushed[0].id)
}

func TestDispatcher_NoCRMPushOnPending(t *testing.T) {
	client := &stubClient{matchResp: &apollo.MatchResponse{}}
	pusher := &stubPusher{}
	d := NewDispatcher(client, &stubStore{exists: true}, pusher, testEnrichConfig())

	_, err := d.Dispatch(context.Background(), &Request{RecordID: "rec-1", TableName: "contacts"})
	require.NoError(t, err)
	assert.Empty(t, pusher.pushed)
}
