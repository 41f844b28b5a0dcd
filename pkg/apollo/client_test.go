package apollo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(1000))
}

func TestClient_SearchOrganizations(t *testing.T) {
	var gotReq CompanySearchRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/mixed_companies/search", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(CompanySearchResponse{
			Organizations: []Organization{{ID: "o1", Name: "Acme"}},
			Pagination:    Pagination{Page: 2, TotalPages: 9},
		})
	})

	resp, err := client.SearchOrganizations(context.Background(), CompanySearchRequest{
		IndustryKeywords: []string{"software"},
		Page:             2,
		PerPage:          100,
	})
	require.NoError(t, err)
	require.Len(t, resp.Organizations, 1)
	assert.Equal(t, "o1", resp.Organizations[0].ID)
	assert.Equal(t, 2, gotReq.Page)
	assert.Equal(t, []string{"software"}, gotReq.IndustryKeywords)
}

func TestClient_SearchPeople(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/mixed_people/search", r.URL.Path)
		json.NewEncoder(w).Encode(PeopleSearchResponse{
			People: []Person{{ID: "p1", FirstName: "Ada"}},
		})
	})

	resp, err := client.SearchPeople(context.Background(), PeopleSearchRequest{
		OrganizationIDs: []string{"o1"},
	})
	require.NoError(t, err)
	require.Len(t, resp.People, 1)
	assert.Equal(t, "Ada", resp.People[0].FirstName)
}

func TestClient_MatchPerson_QueryParams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/people/match", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "true", q.Get("reveal_personal_emails"))
		assert.Equal(t, "false", q.Get("reveal_phone_number"))
		assert.Equal(t, "https://svc.example.com/webhook/apollo?record_id=r1", q.Get("webhook_url"))

		json.NewEncoder(w).Encode(MatchResponse{Person: &Person{ID: "p1"}})
	})

	resp, err := client.MatchPerson(context.Background(),
		MatchRequest{ID: "p1"},
		MatchOptions{
			RevealPersonalEmails: true,
			RevealPhoneNumber:    false,
			WebhookURL:           "https://svc.example.com/webhook/apollo?record_id=r1",
		},
	)
	require.NoError(t, err)
	require.NotNil(t, resp.Person)
	assert.Equal(t, "p1", resp.Person.ID)
}

func TestClient_MatchPerson_NilPersonDeferred(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"person":null}`))
	})

	resp, err := client.MatchPerson(context.Background(), MatchRequest{ID: "p1"}, MatchOptions{})
	require.NoError(t, err)
	assert.Nil(t, resp.Person)
}

func TestClient_RetriesRateLimit(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limited"}`))
			return
		}
		json.NewEncoder(w).Encode(CompanySearchResponse{Organizations: []Organization{{ID: "o1"}}})
	}))
	t.Cleanup(srv.Close)

	c := NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(1000), WithMaxRetries(2)).(*httpClient)
	c.backoff = time.Millisecond

	resp, err := c.SearchOrganizations(context.Background(), CompanySearchRequest{Page: 1})
	require.NoError(t, err)
	assert.Len(t, resp.Organizations, 1)
	assert.Equal(t, 2, calls)
}

func TestClient_DoesNotRetryOtherErrors(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"missing filters"}`))
	})

	_, err := client.SearchOrganizations(context.Background(), CompanySearchRequest{Page: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Equal(t, 1, calls)
}
