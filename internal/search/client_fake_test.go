package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/sells-group/prospector/pkg/apollo"
)

// fakeClient serves canned pages keyed by page number (companies) and by
// org-id chunk plus page number (people).
type fakeClient struct {
	orgPages map[int][]apollo.Organization
	orgErrs  map[int]error
	orgCalls []apollo.CompanySearchRequest

	peoplePages map[string]map[int][]apollo.Person
	peopleErrs  map[int]error
	peopleCalls []apollo.PeopleSearchRequest
}

func (f *fakeClient) SearchOrganizations(ctx context.Context, req apollo.CompanySearchRequest) (*apollo.CompanySearchResponse, error) {
	f.orgCalls = append(f.orgCalls, req)
	if err := f.orgErrs[req.Page]; err != nil {
		return nil, err
	}
	return &apollo.CompanySearchResponse{Organizations: f.orgPages[req.Page]}, nil
}

func (f *fakeClient) SearchPeople(ctx context.Context, req apollo.PeopleSearchRequest) (*apollo.PeopleSearchResponse, error) {
	f.peopleCalls = append(f.peopleCalls, req)
	if err := f.peopleErrs[req.Page]; err != nil {
		return nil, err
	}
	chunk := strings.Join(req.OrganizationIDs, ",")
	return &apollo.PeopleSearchResponse{People: f.peoplePages[chunk][req.Page]}, nil
}

func (f *fakeClient) MatchPerson(ctx context.Context, req apollo.MatchRequest, opts apollo.MatchOptions) (*apollo.MatchResponse, error) {
	return &apollo.MatchResponse{}, nil
}

func orgs(prefix string, n int) []apollo.Organization {
	out := make([]apollo.Organization, n)
	for i := range out {
		out[i] = apollo.Organization{ID: fmt.Sprintf("%s-%d", prefix, i), Name: fmt.Sprintf("%s co %d", prefix, i)}
	}
	return out
}

func people(prefix string, n int) []apollo.Person {
	out := make([]apollo.Person, n)
	for i := range out {
		out[i] = apollo.Person{
			ID:        fmt.Sprintf("%s-%d", prefix, i),
			FirstName: "Pat",
			LastName:  fmt.Sprintf("%s%d", prefix, i),
			Title:     "VP Sales",
		}
	}
	return out
}
