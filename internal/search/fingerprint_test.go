package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/prospector/internal/model"
)

func TestFingerprint_Stable(t *testing.T) {
	f := model.SearchFilters{
		IndustryKeywords: []string{"software", "saas"},
		CompanyLocations: []string{"Austin, TX"},
		EmployeeRanges:   []string{"11,50"},
	}
	assert.Equal(t, Fingerprint(f), Fingerprint(f))
	assert.Len(t, Fingerprint(f), 64)
}

func TestFingerprint_IgnoresPeopleFilters(t *testing.T) {
	base := model.SearchFilters{
		IndustryKeywords: []string{"software"},
		CompanyLocations: []string{"Austin, TX"},
	}
	withTitles := base
	withTitles.Titles = []string{"CEO"}
	withTitles.Seniorities = []string{"c_suite"}

	// Title and seniority changes must not reset company pagination.
	assert.Equal(t, Fingerprint(base), Fingerprint(withTitles))
}

func TestFingerprint_CompanyFiltersChangeKey(t *testing.T) {
	base := model.SearchFilters{IndustryKeywords: []string{"software"}}

	byLocation := base
	byLocation.CompanyLocations = []string{"Denver, CO"}
	assert.NotEqual(t, Fingerprint(base), Fingerprint(byLocation))

	byEmployees := base
	byEmployees.EmployeeRanges = []string{"51,200"}
	assert.NotEqual(t, Fingerprint(base), Fingerprint(byEmployees))

	byIndustry := base
	byIndustry.IndustryKeywords = []string{"hardware"}
	assert.NotEqual(t, Fingerprint(base), Fingerprint(byIndustry))
}
