// Package crm pushes completed enrichments to Salesforce. The push is
// best-effort: failures are surfaced to the caller for logging only.
package crm

import (
	"context"
	"os"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospector/internal/config"
)

// updater is the subset of the go-salesforce API the pusher uses.
type updater interface {
	UpdateOne(sObjectName string, record any) error
}

// Pusher mirrors enriched record fields onto a Salesforce object.
//
// NOTE: go-salesforce/v3 does not accept context.Context; ctx only governs
// the rate-limiter wait, so callers can still cancel that.
type Pusher struct {
	sf      updater
	limiter *rate.Limiter
	object  string
}

// fieldMapping maps enrichment columns to Salesforce Contact fields. Only
// mapped fields are pushed.
var fieldMapping = map[string]string{
	"name":              "Name",
	"email":             "Email",
	"title":             "Title",
	"primary_phone":     "Phone",
	"organization_name": "Company__c",
	"linkedin_url":      "LinkedIn_URL__c",
}

// NewPusher authenticates with Salesforce via the JWT bearer flow.
func NewPusher(cfg config.SalesforceConfig) (*Pusher, error) {
	pem, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "crm: read salesforce key")
	}
	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.LoginURL,
		Username:       cfg.Username,
		ConsumerKey:    cfg.ClientID,
		ConsumerRSAPem: string(pem),
	})
	if err != nil {
		return nil, eris.Wrap(err, "crm: salesforce init")
	}
	return &Pusher{
		sf:      sf,
		limiter: rate.NewLimiter(5, 5),
		object:  cfg.Object,
	}, nil
}

// NewPusherWithClient wraps an existing client. Used by tests.
func NewPusherWithClient(sf updater, object string) *Pusher {
	return &Pusher{sf: sf, limiter: rate.NewLimiter(rate.Inf, 1), object: object}
}

// PushEnriched updates the Salesforce record whose external id matches the
// enriched record id with the mapped subset of fields.
func (p *Pusher) PushEnriched(ctx context.Context, recordID string, fields map[string]any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "crm: rate limit")
	}

	record := map[string]any{"Id": recordID}
	for col, sfField := range fieldMapping {
		if v, ok := fields[col]; ok {
			record[sfField] = v
		}
	}
	if len(record) == 1 {
		return nil
	}

	if err := p.sf.UpdateOne(p.object, record); err != nil {
		return eris.Wrapf(err, "crm: update %s %s", p.object, recordID)
	}
	return nil
}
