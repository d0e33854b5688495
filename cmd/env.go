package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/estimategenie/quote-engine/internal/catalog"
	"github.com/estimategenie/quote-engine/internal/estimate"
	"github.com/estimategenie/quote-engine/internal/pipeline"
	"github.com/estimategenie/quote-engine/internal/selector"
	"github.com/estimategenie/quote-engine/internal/store"
	"github.com/estimategenie/quote-engine/pkg/compose"
	"github.com/estimategenie/quote-engine/pkg/costapi"
	"github.com/estimategenie/quote-engine/pkg/pricing"
	"github.com/estimategenie/quote-engine/pkg/vision"
)

// quoteEnv holds the initialized store, catalog, clients, and the
// orchestrator shared by the serve/quote/batch commands.
type quoteEnv struct {
	Store        store.Store
	Catalog      *catalog.Catalog
	Selector     *selector.Selector
	Calculator   *estimate.Calculator
	Orchestrator *pipeline.Orchestrator
}

// Close releases resources held by the environment.
func (e *quoteEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv sets up the store, price catalog, collaborator clients, the
// provider selector, and the pipeline orchestrator. Callers should
// defer env.Close().
func initEnv(ctx context.Context) (*quoteEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	// Price catalog: defaults, overlaid by external files, overlaid by
	// the remote pricing backend when configured.
	var catOpts []catalog.Option
	if cfg.Pricing.URL != "" {
		pricingClient := pricing.NewClient(cfg.Pricing.URL, cfg.Pricing.Key, secs(cfg.Pricing.TimeoutSecs, 5))
		catOpts = append(catOpts, catalog.WithRemote(pricingClient, secs(cfg.Pricing.TimeoutSecs, 5)))
		zap.L().Info("remote pricing backend enabled")
	}
	cat := catalog.New(cfg.Catalog.Files(), secs(cfg.Catalog.ReloadIntervalSecs, 10), catOpts...)
	status := cat.Status()
	zap.L().Info("price catalog loaded",
		zap.Int("materials", status.TotalMaterials),
		zap.Int("external_keys", status.ExternalKeys),
		zap.Strings("files", status.Files),
	)

	// Collaborator clients are optional; nil skips their stage.
	var visionClient vision.Client
	if cfg.Vision.URL != "" {
		visionClient = vision.NewClient(cfg.Vision.URL, secs(cfg.Vision.TimeoutSecs, 15))
	} else {
		zap.L().Warn("vision collaborator not configured, quotes will skip detection")
	}

	var costClient costapi.Client
	if cfg.CostAPI.URL != "" {
		costClient = costapi.NewClient(cfg.CostAPI.URL, secs(cfg.CostAPI.TimeoutSecs, 15))
	}

	var composeClient compose.Client
	if cfg.Compose.URL != "" {
		composeClient = compose.NewClient(cfg.Compose.URL, secs(cfg.Compose.TimeoutSecs, 45))
	}

	sel := selector.New(cfg.Providers)
	if !sel.Ready() {
		zap.L().Warn("no AI providers configured, template analysis will be used")
	} else {
		zap.L().Info("ai providers available", zap.Strings("providers", sel.Available()))
	}

	calc := estimate.NewCalculator(cat, calculatorConfig())

	orch := pipeline.New(cfg, st, visionClient, sel, costClient, composeClient, calc)

	return &quoteEnv{
		Store:        st,
		Catalog:      cat,
		Selector:     sel,
		Calculator:   calc,
		Orchestrator: orch,
	}, nil
}

// calculatorConfig maps the estimate knobs from config, falling back to
// the tuned defaults for unset values.
func calculatorConfig() estimate.Config {
	c := estimate.DefaultConfig()
	if cfg.Estimate.AreaExponent > 0 {
		c.AreaExponent = cfg.Estimate.AreaExponent
	}
	if cfg.Estimate.AreaFactorMin > 0 {
		c.AreaFactorMin = cfg.Estimate.AreaFactorMin
	}
	if cfg.Estimate.AreaFactorMax > 0 {
		c.AreaFactorMax = cfg.Estimate.AreaFactorMax
	}
	if cfg.Estimate.RoofMultiplier > 0 {
		c.RoofMultiplier = cfg.Estimate.RoofMultiplier
	}
	if cfg.Estimate.DefaultUnitPrice > 0 {
		c.DefaultUnitPrice = cfg.Estimate.DefaultUnitPrice
	}
	if cfg.Estimate.DefaultLaborHrs > 0 {
		c.DefaultLaborHours = cfg.Estimate.DefaultLaborHrs
	}
	return c
}

func secs(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}
