package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/crm"
	"github.com/sells-group/prospector/internal/enrich"
	"github.com/sells-group/prospector/internal/search"
	"github.com/sells-group/prospector/internal/store"
	"github.com/sells-group/prospector/pkg/apollo"
)

// serviceEnv holds the initialized store, provider client, and the three
// service components the serve/search commands need.
type serviceEnv struct {
	Store      store.Store
	Client     apollo.Client // nil when no API key is configured
	Pipeline   *search.Pipeline
	Dispatcher *enrich.Dispatcher
	Reconciler *enrich.Reconciler
}

// Close releases resources held by the environment.
func (e *serviceEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initServices sets up the store, provider client, and service components.
// Callers should defer env.Close(). The provider client is left nil when no
// API key is configured so the server can still answer webhooks.
func initServices(ctx context.Context) (*serviceEnv, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	var client apollo.Client
	if cfg.Apollo.APIKey != "" {
		opts := []apollo.Option{
			apollo.WithRateLimit(cfg.Apollo.RPS),
			apollo.WithMaxRetries(cfg.Enrich.MatchRetries),
		}
		if cfg.Apollo.BaseURL != "" {
			opts = append(opts, apollo.WithBaseURL(cfg.Apollo.BaseURL))
		}
		client = apollo.NewClient(cfg.Apollo.APIKey, opts...)
	} else {
		zap.L().Warn("PROSPECTOR_APOLLO_API_KEY not set, search and enrichment triggers disabled")
	}

	var pusher enrich.CRMPusher
	if cfg.Salesforce.Enabled() {
		p, err := crm.NewPusher(cfg.Salesforce)
		if err != nil {
			zap.L().Warn("salesforce init failed, crm push disabled", zap.Error(err))
		} else {
			pusher = p
			zap.L().Info("salesforce crm push enabled", zap.String("object", cfg.Salesforce.Object))
		}
	}

	env := &serviceEnv{
		Store:      st,
		Client:     client,
		Reconciler: enrich.NewReconciler(st, cfg.Enrich),
	}
	if client != nil {
		env.Pipeline = search.NewPipeline(client, st, cfg.Search)
		env.Dispatcher = enrich.NewDispatcher(client, st, pusher, cfg.Enrich)
	}

	return env, nil
}
