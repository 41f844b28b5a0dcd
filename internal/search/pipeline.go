package search

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/config"
	"github.com/sells-group/prospector/internal/model"
	"github.com/sells-group/prospector/internal/store"
	"github.com/sells-group/prospector/pkg/apollo"
)

// Result is the outcome of one search invocation.
type Result struct {
	BatchRunID string       `json:"batch_run_id"`
	Leads      []model.Lead `json:"leads"`
}

// Pipeline orchestrates a prospecting search: checkpoint-resumed company
// pagination, chunked people fetches, and lead persistence.
//
// max_results is the leads budget: the people budget is decremented across
// chunks so the total never exceeds the request. The company stage consumes
// whole pages and stops once it has gathered at least that many
// organizations, so every fetched page advances the checkpoint even when
// the page holds more companies than the budget needs.
type Pipeline struct {
	companies *CompanyFetcher
	people    *PeopleFetcher
	store     store.Store
	chunkSize int
	defaults  int
}

// NewPipeline wires the pipeline from the provider client and store.
func NewPipeline(client apollo.Client, st store.Store, cfg config.SearchConfig) *Pipeline {
	return &Pipeline{
		companies: NewCompanyFetcher(client, cfg.PageSize, cfg.MaxPagesPerCall),
		people:    NewPeopleFetcher(client, cfg.PageSize, cfg.MaxPagesPerCall),
		store:     st,
		chunkSize: cfg.OrgChunkSize,
		defaults:  cfg.DefaultMaxResults,
	}
}

// Run executes one search request. Fetch-stage failures degrade to partial
// results; persistence failure aborts because the caller expects durable
// leads.
func (p *Pipeline) Run(ctx context.Context, req model.SearchRequest) (*Result, error) {
	if req.UserID == "" {
		return nil, eris.New("search: user_id is required")
	}
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = p.defaults
	}

	hash := Fingerprint(req.Filters)

	lastPage, err := p.store.GetSearchProgress(ctx, req.UserID, hash)
	if err != nil {
		// Missing checkpoint bookkeeping must not block the search itself.
		zap.L().Warn("checkpoint read failed, starting from page 1",
			zap.String("user_id", req.UserID),
			zap.String("filters_hash", hash),
			zap.Error(err),
		)
		lastPage = 0
	}
	startPage := lastPage + 1

	companyPage := p.companies.Fetch(ctx, req.Filters, maxResults, startPage)
	zap.L().Info("company pagination complete",
		zap.String("user_id", req.UserID),
		zap.Int("start_page", startPage),
		zap.Int("organizations", len(companyPage.Organizations)),
		zap.Int("last_completed_page", companyPage.LastCompletedPage),
	)

	if companyPage.LastCompletedPage >= startPage {
		if err := p.store.SaveSearchProgress(ctx, req.UserID, hash, companyPage.LastCompletedPage); err != nil {
			zap.L().Warn("checkpoint write failed, search continues",
				zap.String("user_id", req.UserID),
				zap.String("filters_hash", hash),
				zap.Error(err),
			)
		}
	}

	orgIDs := make([]string, 0, len(companyPage.Organizations))
	for _, org := range companyPage.Organizations {
		if org.ID != "" {
			orgIDs = append(orgIDs, org.ID)
		}
	}

	batchRunID := uuid.New().String()
	now := time.Now().UTC()

	var leads []model.Lead
	budget := maxResults
	for _, chunk := range ChunkIDs(orgIDs, p.chunkSize) {
		if budget <= 0 {
			break
		}
		people := p.people.FetchChunk(ctx, chunk, req.Filters, budget)
		budget -= len(people)
		for i := range people {
			leads = append(leads, personToLead(&people[i], batchRunID, now))
		}
	}

	if _, err := p.store.UpsertLeads(ctx, leads); err != nil {
		return nil, eris.Wrap(err, "search: persist leads")
	}

	if len(leads) > 0 {
		count, err := p.store.CountLeadsByBatch(ctx, batchRunID)
		if err != nil {
			zap.L().Warn("lead visibility check failed",
				zap.String("batch_run_id", batchRunID),
				zap.Error(err),
			)
		} else if count != len(leads) {
			zap.L().Warn("persisted lead count does not match fetched leads",
				zap.String("batch_run_id", batchRunID),
				zap.Int("fetched", len(leads)),
				zap.Int("visible", count),
			)
		}
	}

	return &Result{BatchRunID: batchRunID, Leads: leads}, nil
}

func personToLead(p *apollo.Person, batchRunID string, now time.Time) model.Lead {
	orgName := ""
	if p.Organization != nil {
		orgName = p.Organization.Name
	}
	return model.Lead{
		ID:               p.ID,
		Name:             p.FullName(),
		Email:            p.Email,
		Title:            p.Title,
		OrganizationName: orgName,
		LinkedInURL:      p.LinkedinURL,
		BatchRunID:       batchRunID,
		UpdatedAt:        now,
	}
}
