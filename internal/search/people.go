package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/model"
	"github.com/sells-group/prospector/pkg/apollo"
)

// PeopleFetcher pages through the provider's people search, scoped to a
// chunk of organization ids.
type PeopleFetcher struct {
	client   apollo.Client
	pageSize int
	maxPages int
}

// NewPeopleFetcher creates a fetcher with the given page size and per-chunk
// safety bound on page count.
func NewPeopleFetcher(client apollo.Client, pageSize, maxPages int) *PeopleFetcher {
	return &PeopleFetcher{client: client, pageSize: pageSize, maxPages: maxPages}
}

// FetchChunk accumulates people for one organization-id chunk until the
// remaining budget is exhausted, a page comes back empty, or the safety
// bound is hit. Remote errors degrade to the partial accumulation, matching
// the company fetcher.
func (f *PeopleFetcher) FetchChunk(ctx context.Context, orgIDs []string, filters model.SearchFilters, budget int) []apollo.Person {
	if budget <= 0 || len(orgIDs) == 0 {
		return nil
	}

	var people []apollo.Person
	for page := 1; page <= f.maxPages; page++ {
		resp, err := f.client.SearchPeople(ctx, apollo.PeopleSearchRequest{
			OrganizationIDs: orgIDs,
			Titles:          filters.Titles,
			Seniorities:     filters.Seniorities,
			Page:            page,
			PerPage:         f.pageSize,
		})
		if err != nil {
			zap.L().Warn("people search page failed, returning partial results",
				zap.Int("page", page),
				zap.Int("accumulated", len(people)),
				zap.Error(err),
			)
			return people
		}

		if len(resp.People) == 0 {
			return people
		}

		remaining := budget - len(people)
		if len(resp.People) >= remaining {
			return append(people, resp.People[:remaining]...)
		}
		people = append(people, resp.People...)
	}

	return people
}

// ChunkIDs splits ids into chunks of at most size elements, preserving order.
func ChunkIDs(ids []string, size int) [][]string {
	if size <= 0 || len(ids) == 0 {
		return nil
	}
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
