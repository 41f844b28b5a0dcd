package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/model"
	"github.com/sells-group/prospector/pkg/apollo"
)

// CompanyPage holds the outcome of one company pagination run.
type CompanyPage struct {
	Organizations []apollo.Organization
	// LastCompletedPage is the highest page whose results were fully
	// consumed. Pages are always consumed whole, so every fetched page
	// advances it.
	LastCompletedPage int
}

// CompanyFetcher pages through the provider's company search.
type CompanyFetcher struct {
	client   apollo.Client
	pageSize int
	maxPages int
}

// NewCompanyFetcher creates a fetcher with the given page size and per-call
// safety bound on page count.
func NewCompanyFetcher(client apollo.Client, pageSize, maxPages int) *CompanyFetcher {
	return &CompanyFetcher{client: client, pageSize: pageSize, maxPages: maxPages}
}

// Fetch accumulates organizations starting at startPage until enough have
// been gathered, a page comes back empty, or the safety bound is hit. Pages
// are consumed whole: the cap only decides when to stop requesting MORE
// pages, so a fetched page always advances LastCompletedPage and the final
// page may overshoot the cap. The dependent people budget enforces the lead
// limit. A remote error stops pagination and returns what was accumulated
// so far; partial results degrade silently rather than failing the request.
func (f *CompanyFetcher) Fetch(ctx context.Context, filters model.SearchFilters, cap, startPage int) CompanyPage {
	result := CompanyPage{LastCompletedPage: startPage - 1}
	if cap <= 0 {
		return result
	}

	for i := 0; i < f.maxPages; i++ {
		page := startPage + i
		resp, err := f.client.SearchOrganizations(ctx, apollo.CompanySearchRequest{
			IndustryKeywords: filters.IndustryKeywords,
			Locations:        filters.CompanyLocations,
			EmployeeRanges:   filters.EmployeeRanges,
			Page:             page,
			PerPage:          f.pageSize,
		})
		if err != nil {
			zap.L().Warn("company search page failed, returning partial results",
				zap.Int("page", page),
				zap.Int("accumulated", len(result.Organizations)),
				zap.Error(err),
			)
			return result
		}

		orgs := resp.Organizations
		if len(orgs) == 0 {
			return result
		}

		result.Organizations = append(result.Organizations, orgs...)
		result.LastCompletedPage = page

		if len(result.Organizations) >= cap {
			return result
		}
	}

	return result
}
