package enrich

import (
	"context"

	"github.com/sells-group/prospector/internal/model"
	"github.com/sells-group/prospector/internal/store"
	"github.com/sells-group/prospector/pkg/apollo"
)

type updateCall struct {
	table  string
	id     string
	fields map[string]any
}

// stubStore implements store.Store for dispatcher and reconciler tests.
type stubStore struct {
	exists       bool
	existsErr    error
	updates      []updateCall
	updateErr    error
	updateResult *store.UpdateResult
	logs         []model.EnrichmentLogEntry
	logErr       error
}

func (s *stubStore) UpsertLeads(ctx context.Context, leads []model.Lead) (int64, error) {
	return 0, nil
}

func (s *stubStore) LeadsByBatch(ctx context.Context, batchRunID string) ([]model.Lead, error) {
	return nil, nil
}

func (s *stubStore) CountLeadsByBatch(ctx context.Context, batchRunID string) (int, error) {
	return 0, nil
}

func (s *stubStore) GetSearchProgress(ctx context.Context, userID, filtersHash string) (int, error) {
	return 0, nil
}

func (s *stubStore) SaveSearchProgress(ctx context.Context, userID, filtersHash string, lastPage int) error {
	return nil
}

func (s *stubStore) AppendEnrichmentLog(ctx context.Context, entry model.EnrichmentLogEntry) error {
	if s.logErr != nil {
		return s.logErr
	}
	s.logs = append(s.logs, entry)
	return nil
}

func (s *stubStore) RecordExists(ctx context.Context, table, recordID string) (bool, error) {
	return s.exists, s.existsErr
}

func (s *stubStore) TableColumns(ctx context.Context, table string) (map[string]bool, error) {
	return nil, nil
}

func (s *stubStore) UpdateRecord(ctx context.Context, table, recordID string, fields map[string]any) (*store.UpdateResult, error) {
	s.updates = append(s.updates, updateCall{table: table, id: recordID, fields: fields})
	if s.updateErr != nil {
		return &store.UpdateResult{}, s.updateErr
	}
	if s.updateResult != nil {
		return s.updateResult, nil
	}
	return &store.UpdateResult{RowsAffected: 1}, nil
}

func (s *stubStore) Migrate(ctx context.Context) error { return nil }
func (s *stubStore) Close() error                      { return nil }

// stubClient implements apollo.Client; only MatchPerson is exercised here.
type stubClient struct {
	matchResp *apollo.MatchResponse
	matchErr  error
	gotReq    apollo.MatchRequest
	gotOpts   apollo.MatchOptions
}

func (c *stubClient) SearchOrganizations(ctx context.Context, req apollo.CompanySearchRequest) (*apollo.CompanySearchResponse, error) {
	return &apollo.CompanySearchResponse{}, nil
}

func (c *stubClient) SearchPeople(ctx context.Context, req apollo.PeopleSearchRequest) (*apollo.PeopleSearchResponse, error) {
	return &apollo.PeopleSearchResponse{}, nil
}

func (c *stubClient) MatchPerson(ctx context.Context, req apollo.MatchRequest, opts apollo.MatchOptions) (*apollo.MatchResponse, error) {
	c.gotReq = req
	c.gotOpts = opts
	if c.matchErr != nil {
		return nil, c.matchErr
	}
	if c.matchResp != nil {
		return c.matchResp, nil
	}
	return &apollo.MatchResponse{}, nil
}

// stubPusher records CRM pushes.
type stubPusher struct {
	pushed []updateCall
	err    error
}

func (p *stubPusher) PushEnriched(ctx context.Context, recordID string, fields map[string]any) error {
	p.pushed = append(p.pushed, updateCall{id: recordID, fields: fields})
	return p.err
}
