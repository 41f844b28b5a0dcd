package crm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUpdater struct {
	object string
	record map[string]any
	calls  int
	err    error
}

func (f *fakeUpdater) UpdateOne(sObjectName string, record any) error {
	f.calls++
	f.object = sObjectName
	f.record = record.(map[string]any)
	return f.err
}

func TestPushEnriched_MapsKnownFields(t *testing.T) {
	sf := &fakeUpdater{}
	p := NewPusherWithClient(sf, "Contact")

	err := p.PushEnriched(context.Background(), "003ABC", map[string]any{
		"name":              "Ada Lovelace",
		"email":             "ada@example.com",
		"primary_phone":     "+15125550100",
		"organization_name": "Analytical Engines",
		"enrichment_status": "completed",
		"departments":       `["engineering"]`,
	})
	require.NoError(t, err)

	assert.Equal(t, "Contact", sf.object)
	assert.Equal(t, "003ABC", sf.record["Id"])
	assert.Equal(t, "Ada Lovelace", sf.record["Name"])
	assert.Equal(t, "ada@example.com", sf.record["Email"])
	assert.Equal(t, "+15125550100", sf.record["Phone"])
	assert.Equal(t, "Analytical Engines", sf.record["Company__c"])

	// Unmapped columns never reach Salesforce.
	_, hasStatus := sf.record["enrichment_status"]
	assert.False(t, hasStatus)
	assert.Len(t, sf.record, 5)
}

func TestPushEnriched_SkipsWhenNothingMapped(t *testing.T) {
	sf := &fakeUpdater{}
	p := NewPusherWithClient(sf, "Contact")

	err := p.PushEnriched(context.Background(), "003ABC", map[string]any{
		"enrichment_status": "pending",
	})
	require.NoError(t, err)
	assert.Zero(t, sf.calls)
}

func TestPushEnriched_WrapsClientError(t *testing.T) {
	sf := &fakeUpdater{err: errors.New("INVALID_SESSION_ID")}
	p := NewPusherWithClient(sf, "Contact")

	err := p.PushEnriched(context.Background(), "003ABC", map[string]any{"name": "Ada"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "003ABC")
	assert.Contains(t, err.Error(), "INVALID_SESSION_ID")
}
