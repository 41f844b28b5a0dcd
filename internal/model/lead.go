package model

import (
	"encoding/json"
	"time"
)

// Lead is a person record fetched from the data provider and persisted in
// people_search_leads, keyed by the provider's person id.
type Lead struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email,omitempty"`
	Title            string    `json:"title,omitempty"`
	OrganizationName string    `json:"organization_name,omitempty"`
	LinkedInURL      string    `json:"linkedin_url,omitempty"`
	BatchRunID       string    `json:"batch_run_id"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SearchProgress is the resumability checkpoint for company pagination,
// keyed by (user id, filter fingerprint).
type SearchProgress struct {
	UserID          string    `json:"user_id"`
	FiltersHash     string    `json:"filters_hash"`
	LastCompanyPage int       `json:"last_company_page"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EnrichmentLogEntry is one append-only audit row per enrichment attempt or
// webhook callback.
type EnrichmentLogEntry struct {
	ID             string          `json:"id"`
	RecordID       string          `json:"record_id"`
	TableName      string          `json:"table_name"`
	Method         string          `json:"method"`
	MatchFound     bool            `json:"match_found"`
	EmailFound     bool            `json:"email_found"`
	PhoneCount     int             `json:"phone_count"`
	RowCheckFound  bool            `json:"row_check_found"`
	RemovedColumns []string        `json:"removed_columns,omitempty"`
	Error          string          `json:"error,omitempty"`
	RawPayload     json.RawMessage `json:"raw_payload,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
