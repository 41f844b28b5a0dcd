// Package search implements the paginated prospecting pipeline: fingerprinted
// filter checkpoints, company pagination, chunked people fetches, and lead
// persistence.
package search

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/sells-group/prospector/internal/model"
)

// companyFilterKey is the canonical serialization of the filter subset that
// drives company pagination. Title and seniority filters only affect the
// dependent people stage and are excluded so that people-filter changes do
// not reset company progress.
type companyFilterKey struct {
	IndustryKeywords []string `json:"industry_keywords"`
	CompanyLocations []string `json:"company_locations"`
	EmployeeRanges   []string `json:"employee_ranges"`
}

// Fingerprint returns the SHA-256 hex of the canonical JSON of the
// company-stage filter subset. Used as an opaque checkpoint key.
func Fingerprint(f model.SearchFilters) string {
	key := companyFilterKey{
		IndustryKeywords: f.IndustryKeywords,
		CompanyLocations: f.CompanyLocations,
		EmployeeRanges:   f.EmployeeRanges,
	}
	b, _ := json.Marshal(key)
	h := sha256.Sum256(b)
	return fmt.Sprintf("%x", h)
}
