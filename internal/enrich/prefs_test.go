package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool { return &b }

func TestResolvePrefs_DefaultsTrue(t *testing.T) {
	prefs := ResolvePrefs(&Request{})
	assert.True(t, prefs.Email)
	assert.True(t, prefs.Phone)
}

func TestResolvePrefs_Precedence(t *testing.T) {
	tests := []struct {
		name      string
		req       Request
		wantEmail bool
		wantPhone bool
	}{
		{
			name:      "explicit snake case",
			req:       Request{RevealEmail: boolPtr(false), RevealPhone: boolPtr(true)},
			wantEmail: false,
			wantPhone: true,
		},
		{
			name:      "camel case alias",
			req:       Request{RevealEmailCamel: boolPtr(false)},
			wantEmail: false,
			wantPhone: true,
		},
		{
			name:      "snake beats camel",
			req:       Request{RevealEmail: boolPtr(true), RevealEmailCamel: boolPtr(false)},
			wantEmail: true,
			wantPhone: true,
		},
		{
			name:      "explicit beats nested config",
			req:       Request{RevealPhone: boolPtr(true), Config: &RequestConfig{RevealPhone: boolPtr(false)}},
			wantEmail: true,
			wantPhone: true,
		},
		{
			name:      "nested config",
			req:       Request{Config: &RequestConfig{RevealEmail: boolPtr(false), RevealPhone: boolPtr(false)}},
			wantEmail: false,
			wantPhone: false,
		},
		{
			name:      "config beats requested_data",
			req:       Request{Config: &RequestConfig{RevealPhone: boolPtr(false)}, RequestedData: map[string]bool{"phone": true}},
			wantEmail: true,
			wantPhone: false,
		},
		{
			name:      "requested_data map",
			req:       Request{RequestedData: map[string]bool{"email": true, "phone": false}},
			wantEmail: true,
			wantPhone: false,
		},
		{
			name:      "requested_fields list",
			req:       Request{RequestedFields: []string{"Email"}},
			wantEmail: true,
			wantPhone: false,
		},
		{
			name:      "requested_fields phone aliases",
			req:       Request{RequestedFields: []string{"phone_numbers"}},
			wantEmail: false,
			wantPhone: true,
		},
		{
			name:      "enrichment level basic",
			req:       Request{EnrichmentLevel: "basic"},
			wantEmail: true,
			wantPhone: false,
		},
		{
			name:      "enrichment level deep",
			req:       Request{EnrichmentLevel: "Deep"},
			wantEmail: true,
			wantPhone: true,
		},
		{
			name:      "unknown enrichment level falls back to defaults",
			req:       Request{EnrichmentLevel: "platinum"},
			wantEmail: true,
			wantPhone: true,
		},
		{
			name: "per-flag resolution crosses sources",
			req: Request{
				RevealEmail:   boolPtr(false),
				RequestedData: map[string]bool{"phone": false},
			},
			wantEmail: false,
			wantPhone: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefs := ResolvePrefs(&tt.req)
			assert.Equal(t, tt.wantEmail, prefs.Email, "email")
			assert.Equal(t, tt.wantPhone, prefs.Phone, "phone")
		})
	}
}
