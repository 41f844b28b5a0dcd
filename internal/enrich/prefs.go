// Package enrich implements the enrichment dispatcher and webhook
// reconciler: provider match calls, reveal-preference resolution, field
// mapping, and schema-drift tolerant updates to caller-owned records.
package enrich

import "strings"

// RevealPrefs are the two resolved flags forwarded to the provider and
// encoded into the webhook callback URL.
type RevealPrefs struct {
	Email bool
	Phone bool
}

// LeadQuery describes the person to enrich. PersonID selects an id-based
// match; the remaining fields drive a search-based match.
type LeadQuery struct {
	PersonID         string `json:"person_id,omitempty"`
	Name             string `json:"name,omitempty"`
	OrganizationName string `json:"organization_name,omitempty"`
	Domain           string `json:"domain,omitempty"`
	LinkedinURL      string `json:"linkedin_url,omitempty"`
}

// Request is an enrichment trigger. The reveal-preference fields are an
// accreted compatibility surface: several aliases may appear, and
// PrefPrecedence decides which one wins.
type Request struct {
	RecordID  string    `json:"record_id"`
	TableName string    `json:"table_name"`
	Lead      LeadQuery `json:"lead"`
	Secret    string    `json:"secret,omitempty"`

	RevealEmail      *bool `json:"reveal_email,omitempty"`
	RevealEmailCamel *bool `json:"revealEmail,omitempty"`
	RevealPhone      *bool `json:"reveal_phone,omitempty"`
	RevealPhoneCamel *bool `json:"revealPhone,omitempty"`

	Config *RequestConfig `json:"config,omitempty"`

	RequestedData   map[string]bool `json:"requested_data,omitempty"`
	RequestedFields []string        `json:"requested_fields,omitempty"`
	EnrichmentLevel string          `json:"enrichment_level,omitempty"`
}

// RequestConfig is the nested alias form of the reveal flags.
type RequestConfig struct {
	RevealEmail *bool `json:"reveal_email,omitempty"`
	RevealPhone *bool `json:"reveal_phone,omitempty"`
}

// PrefSource extracts reveal preferences from one request surface. A nil
// return means the source expresses no opinion for that flag.
type PrefSource struct {
	Name    string
	Extract func(r *Request) (email, phone *bool)
}

// PrefPrecedence is evaluated top to bottom; for each flag the first source
// returning a non-nil value wins. The order itself is the compatibility
// contract: explicit booleans beat the nested config, which beats the
// requested-data map, the requested-fields list, and finally the named
// enrichment level.
var PrefPrecedence = []PrefSource{
	{
		Name: "explicit_booleans",
		Extract: func(r *Request) (*bool, *bool) {
			email := firstNonNil(r.RevealEmail, r.RevealEmailCamel)
			phone := firstNonNil(r.RevealPhone, r.RevealPhoneCamel)
			return email, phone
		},
	},
	{
		Name: "config_nested",
		Extract: func(r *Request) (*bool, *bool) {
			if r.Config == nil {
				return nil, nil
			}
			return r.Config.RevealEmail, r.Config.RevealPhone
		},
	},
	{
		Name: "requested_data",
		Extract: func(r *Request) (*bool, *bool) {
			if r.RequestedData == nil {
				return nil, nil
			}
			var email, phone *bool
			if v, ok := r.RequestedData["email"]; ok {
				email = &v
			}
			if v, ok := r.RequestedData["phone"]; ok {
				phone = &v
			}
			return email, phone
		},
	},
	{
		Name: "requested_fields",
		Extract: func(r *Request) (*bool, *bool) {
			if r.RequestedFields == nil {
				return nil, nil
			}
			email, phone := false, false
			for _, f := range r.RequestedFields {
				switch strings.ToLower(f) {
				case "email":
					email = true
				case "phone", "phone_number", "phone_numbers":
					phone = true
				}
			}
			return &email, &phone
		},
	},
	{
		Name: "enrichment_level",
		Extract: func(r *Request) (*bool, *bool) {
			switch strings.ToLower(r.EnrichmentLevel) {
			case "basic":
				email, phone := true, false
				return &email, &phone
			case "deep":
				email, phone := true, true
				return &email, &phone
			default:
				return nil, nil
			}
		},
	},
}

// ResolvePrefs collapses the request's reveal aliases into two booleans.
// When nothing disambiguates a flag it defaults to true for back-compat.
func ResolvePrefs(r *Request) RevealPrefs {
	var email, phone *bool
	for _, src := range PrefPrecedence {
		e, p := src.Extract(r)
		if email == nil {
			email = e
		}
		if phone == nil {
			phone = p
		}
		if email != nil && phone != nil {
			break
		}
	}

	prefs := RevealPrefs{Email: true, Phone: true}
	if email != nil {
		prefs.Email = *email
	}
	if phone != nil {
		prefs.Phone = *phone
	}
	return prefs
}

func firstNonNil(vals ...*bool) *bool {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
