package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospector/internal/model"
	"github.com/sells-group/prospector/pkg/apollo"
)

func TestPeopleFetcher_BudgetTruncates(t *testing.T) {
	client := &fakeClient{peoplePages: map[string]map[int][]apollo.Person{
		"o1,o2": {1: people("p", 5)},
	}}
	f := NewPeopleFetcher(client, 5, 5)

	got := f.FetchChunk(context.Background(), []string{"o1", "o2"}, model.SearchFilters{}, 3)
	assert.Len(t, got, 3)
}

func TestPeopleFetcher_ZeroBudgetSkipsCall(t *testing.T) {
	client := &fakeClient{}
	f := NewPeopleFetcher(client, 5, 5)

	assert.Nil(t, f.FetchChunk(context.Background(), []string{"o1"}, model.SearchFilters{}, 0))
	assert.Nil(t, f.FetchChunk(context.Background(), nil, model.SearchFilters{}, 10))
	assert.Empty(t, client.peopleCalls)
}

func TestPeopleFetcher_PaginatesUntilEmpty(t *testing.T) {
	client := &fakeClient{peoplePages: map[string]map[int][]apollo.Person{
		"o1": {1: people("a", 2), 2: people("b", 1), 3: nil},
	}}
	f := NewPeopleFetcher(client, 2, 5)

	got := f.FetchChunk(context.Background(), []string{"o1"}, model.SearchFilters{}, 10)
	assert.Len(t, got, 3)
	assert.Len(t, client.peopleCalls, 3)
}

func TestPeopleFetcher_RemoteErrorReturnsPartial(t *testing.T) {
	client := &fakeClient{
		peoplePages: map[string]map[int][]apollo.Person{"o1": {1: people("a", 2)}},
		peopleErrs:  map[int]error{2: errors.New("upstream 502")},
	}
	f := NewPeopleFetcher(client, 2, 5)

	got := f.FetchChunk(context.Background(), []string{"o1"}, model.SearchFilters{}, 10)
	assert.Len(t, got, 2)
}

func TestPeopleFetcher_ForwardsTitleFilters(t *testing.T) {
	client := &fakeClient{}
	f := NewPeopleFetcher(client, 10, 5)

	filters := model.SearchFilters{Titles: []string{"CTO"}, Seniorities: []string{"c_suite"}}
	f.FetchChunk(context.Background(), []string{"o1"}, filters, 10)

	require.Len(t, client.peopleCalls, 1)
	call := client.peopleCalls[0]
	assert.Equal(t, []string{"o1"}, call.OrganizationIDs)
	assert.Equal(t, filters.Titles, call.Titles)
	assert.Equal(t, filters.Seniorities, call.Seniorities)
}

func TestChunkIDs(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		size int
		want [][]string
	}{
		{"even split", []string{"a", "b", "c", "d"}, 2, [][]string{{"a", "b"}, {"c", "d"}}},
		{"remainder", []string{"a", "b", "c"}, 2, [][]string{{"a", "b"}, {"c"}}},
		{"oversized chunk", []string{"a"}, 25, [][]string{{"a"}}},
		{"empty input", nil, 2, nil},
		{"zero size", []string{"a"}, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChunkIDs(tt.ids, tt.size))
		})
	}
}
