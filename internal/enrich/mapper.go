package enrich

import (
	"encoding/json"
	"strings"

	"github.com/sells-group/prospector/pkg/apollo"
)

// LockedEmailSentinel is the placeholder the provider returns when an email
// exists but has not been revealed. It must never be written to a record.
const LockedEmailSentinel = "email_not_unlocked@domain.com"

// phoneTypeMobile is the provider's type tag for mobile numbers.
const phoneTypeMobile = "mobile"

// phoneTypeHeadquarters tags a phone entry synthesized from the
// organization's switchboard number when the person has none.
const phoneTypeHeadquarters = "work_headquarters"

// Extracted summarizes what the mapper pulled out of a payload, for audit
// logging and trigger responses.
type Extracted struct {
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	PhoneCount int    `json:"phone_count"`
	Name       string `json:"name,omitempty"`
	Title      string `json:"title,omitempty"`
}

// MapPersonFields builds the column update set for a provider person
// payload under the given reveal preferences. Fields are copied
// opportunistically: absent payload values set nothing. List-valued fields
// are serialized to JSON text so they bind against any column type the
// destination table uses.
func MapPersonFields(p *apollo.Person, prefs RevealPrefs) (map[string]any, Extracted) {
	fields := map[string]any{}
	var ext Extracted

	setIf(fields, "name", p.FullName())
	setIf(fields, "title", p.Title)
	setIf(fields, "linkedin_url", p.LinkedinURL)
	setIf(fields, "city", p.City)
	setIf(fields, "state", p.State)
	setIf(fields, "country", p.Country)
	setIf(fields, "headline", p.Headline)
	setIf(fields, "photo_url", p.PhotoURL)
	setIf(fields, "seniority", p.Seniority)
	ext.Name = p.FullName()
	ext.Title = p.Title

	if len(p.Departments) > 0 {
		fields["departments"] = mustJSON(p.Departments)
	}

	if org := p.Organization; org != nil {
		setIf(fields, "organization_name", org.Name)
		setIf(fields, "organization_domain", org.PrimaryDomain)
		setIf(fields, "organization_industry", org.Industry)
		if org.EstimatedNumEmployees > 0 {
			fields["organization_size"] = org.EstimatedNumEmployees
		}
	}

	if prefs.Email && p.Email != "" && !strings.EqualFold(p.Email, LockedEmailSentinel) {
		fields["email"] = p.Email
		ext.Email = p.Email
	}

	if prefs.Phone {
		phones := p.PhoneNumbers
		if len(phones) == 0 {
			if hq := organizationPhone(p.Organization); hq != "" {
				phones = []apollo.PhoneNumber{{RawNumber: hq, Type: phoneTypeHeadquarters}}
			}
		}
		if len(phones) > 0 {
			primary := primaryPhone(phones)
			fields["phone_numbers"] = mustJSON(phones)
			fields["primary_phone"] = primary
			ext.Phone = primary
			ext.PhoneCount = len(phones)
		}
	}

	return fields, ext
}

// primaryPhone prefers an explicitly mobile-typed number, falling back to
// the first entry.
func primaryPhone(phones []apollo.PhoneNumber) string {
	for _, ph := range phones {
		if strings.EqualFold(ph.Type, phoneTypeMobile) {
			return phoneValue(ph)
		}
	}
	return phoneValue(phones[0])
}

func phoneValue(ph apollo.PhoneNumber) string {
	if ph.SanitizedNumber != "" {
		return ph.SanitizedNumber
	}
	return ph.RawNumber
}

func organizationPhone(org *apollo.Organization) string {
	if org == nil {
		return ""
	}
	if org.SanitizedPhone != "" {
		return org.SanitizedPhone
	}
	return org.Phone
}

func setIf(fields map[string]any, key, val string) {
	if val != "" {
		fields[key] = val
	}
}

func mustJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
