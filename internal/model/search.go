package model

// SearchFilters holds the full filter set for a prospecting search. Industry,
// location and employee-range filters scope the company stage; title and
// seniority filters only apply to the dependent people stage.
type SearchFilters struct {
	IndustryKeywords []string `json:"industry_keywords,omitempty"`
	CompanyLocations []string `json:"company_location,omitempty"`
	EmployeeRanges   []string `json:"employee_ranges,omitempty"`
	Titles           []string `json:"titles,omitempty"`
	Seniorities      []string `json:"seniorities,omitempty"`
}

// SearchRequest is one prospecting search invocation.
type SearchRequest struct {
	UserID     string        `json:"user_id"`
	Filters    SearchFilters `json:"filters"`
	MaxResults int           `json:"max_results"`
}
