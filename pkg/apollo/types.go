// Package apollo provides a client for the Apollo-style prospecting API:
// paginated company and people search plus person match/enrich with an
// asynchronous webhook callback.
package apollo

// Organization is a company record returned by company search or embedded in
// a person payload.
type Organization struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	WebsiteURL            string `json:"website_url,omitempty"`
	PrimaryDomain         string `json:"primary_domain,omitempty"`
	Industry              string `json:"industry,omitempty"`
	EstimatedNumEmployees int    `json:"estimated_num_employees,omitempty"`
	Phone                 string `json:"phone,omitempty"`
	SanitizedPhone        string `json:"sanitized_phone,omitempty"`
	City                  string `json:"city,omitempty"`
	State                 string `json:"state,omitempty"`
	Country               string `json:"country,omitempty"`
}

// PhoneNumber is one entry in a person's revealed phone list.
type PhoneNumber struct {
	RawNumber       string `json:"raw_number"`
	SanitizedNumber string `json:"sanitized_number,omitempty"`
	Type            string `json:"type,omitempty"`
	Position        int    `json:"position"`
	Status          string `json:"status,omitempty"`
}

// Person is a people-search result or a match/enrich payload.
type Person struct {
	ID           string        `json:"id"`
	FirstName    string        `json:"first_name,omitempty"`
	LastName     string        `json:"last_name,omitempty"`
	Name         string        `json:"name,omitempty"`
	Email        string        `json:"email,omitempty"`
	Title        string        `json:"title,omitempty"`
	Headline     string        `json:"headline,omitempty"`
	LinkedinURL  string        `json:"linkedin_url,omitempty"`
	PhotoURL     string        `json:"photo_url,omitempty"`
	City         string        `json:"city,omitempty"`
	State        string        `json:"state,omitempty"`
	Country      string        `json:"country,omitempty"`
	Seniority    string        `json:"seniority,omitempty"`
	Departments  []string      `json:"departments,omitempty"`
	PhoneNumbers []PhoneNumber `json:"phone_numbers,omitempty"`
	Organization *Organization `json:"organization,omitempty"`
}

// FullName returns the display name, preferring the provider's precomposed
// name field.
func (p *Person) FullName() string {
	if p.Name != "" {
		return p.Name
	}
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	default:
		return p.LastName
	}
}

// Pagination reports the provider's paging state for a search response.
type Pagination struct {
	Page         int `json:"page"`
	PerPage      int `json:"per_page"`
	TotalEntries int `json:"total_entries"`
	TotalPages   int `json:"total_pages"`
}

// CompanySearchRequest is the body for POST /v1/mixed_companies/search.
type CompanySearchRequest struct {
	IndustryKeywords []string `json:"q_organization_keyword_tags,omitempty"`
	Locations        []string `json:"organization_locations,omitempty"`
	EmployeeRanges   []string `json:"organization_num_employees_ranges,omitempty"`
	Page             int      `json:"page"`
	PerPage          int      `json:"per_page"`
}

// CompanySearchResponse is the response from POST /v1/mixed_companies/search.
type CompanySearchResponse struct {
	Organizations []Organization `json:"organizations"`
	Pagination    Pagination     `json:"pagination"`
}

// PeopleSearchRequest is the body for POST /v1/mixed_people/search.
type PeopleSearchRequest struct {
	OrganizationIDs []string `json:"organization_ids,omitempty"`
	Titles          []string `json:"person_titles,omitempty"`
	Seniorities     []string `json:"person_seniorities,omitempty"`
	Page            int      `json:"page"`
	PerPage         int      `json:"per_page"`
}

// PeopleSearchResponse is the response from POST /v1/mixed_people/search.
type PeopleSearchResponse struct {
	People     []Person   `json:"people"`
	Pagination Pagination `json:"pagination"`
}

// MatchRequest is the body for POST /v1/people/match. ID takes precedence;
// the attribute fields drive a search-based match when ID is empty.
type MatchRequest struct {
	ID               string `json:"id,omitempty"`
	Name             string `json:"name,omitempty"`
	OrganizationName string `json:"organization_name,omitempty"`
	Domain           string `json:"domain,omitempty"`
	LinkedinURL      string `json:"linkedin_url,omitempty"`
}

// MatchOptions carries the query-string parameters of a match call: reveal
// flags and the webhook URL the provider calls back with revealed data.
type MatchOptions struct {
	RevealPersonalEmails bool
	RevealPhoneNumber    bool
	WebhookURL           string
}

// MatchResponse is the response from POST /v1/people/match. Person is nil
// when the provider defers the result to the webhook callback.
type MatchResponse struct {
	Person *Person `json:"person"`
}
