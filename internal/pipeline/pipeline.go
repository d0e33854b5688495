// Package pipeline orchestrates a quote from uploaded photo to priced
// estimate: vision analysis, AI reasoning, cost calculation, and an
// optional compose pass for the narrative sections. Collaborator
// failures degrade the quote instead of failing it; only a panic or a
// dead store puts a quote into the error state.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/estimategenie/quote-engine/internal/config"
	"github.com/estimategenie/quote-engine/internal/estimate"
	"github.com/estimategenie/quote-engine/internal/model"
	"github.com/estimategenie/quote-engine/internal/selector"
	"github.com/estimategenie/quote-engine/internal/store"
	"github.com/estimategenie/quote-engine/pkg/compose"
	"github.com/estimategenie/quote-engine/pkg/costapi"
	"github.com/estimategenie/quote-engine/pkg/vision"
)

// Orchestrator drives quotes through the pipeline state machine.
type Orchestrator struct {
	cfg      *config.Config
	store    store.Store
	vision   vision.Client
	selector *selector.Selector
	costAPI  costapi.Client
	compose  compose.Client
	calc     *estimate.Calculator

	readImage func(path string) ([]byte, error)
}

// New creates an Orchestrator. The costAPI and compose clients may be
// nil; their stages are skipped when unconfigured.
func New(
	cfg *config.Config,
	st store.Store,
	visionClient vision.Client,
	sel *selector.Selector,
	costClient costapi.Client,
	composeClient compose.Client,
	calc *estimate.Calculator,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		store:     st,
		vision:    visionClient,
		selector:  sel,
		costAPI:   costClient,
		compose:   composeClient,
		calc:      calc,
		readImage: readImageFile,
	}
}

// Run processes one quote to a terminal state. The quote must already
// be persisted in status processing. Run is designed to be launched on
// its own goroutine; it reports nothing to the caller and records every
// outcome, including panics, on the quote itself.
func (o *Orchestrator) Run(ctx context.Context, q *model.Quote) {
	timeout := time.Duration(o.cfg.Pipeline.OverallTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log := zap.L().With(zap.String("quote_id", q.ID), zap.String("project_type", q.ProjectType))

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline: panic recovered", zap.Any("panic", r))
			q.Status = model.StatusError
			q.Error = fmt.Sprintf("internal error: %v", r)
			o.save(ctx, q, log)
		}
	}()

	log.Info("pipeline: starting quote")

	// Stage 1: vision analysis.
	visionResult := o.runVision(ctx, q, log)

	// Stage 1b: AI reasoning over the image and vision findings.
	analysis := o.runReasoning(ctx, q, visionResult, log)
	if analysis == nil {
		// Context expired; everything after here would fail too.
		q.Status = model.StatusError
		q.Error = "pipeline timed out during analysis"
		o.save(context.WithoutCancel(ctx), q, log)
		return
	}

	// Stage 2: cost baseline and internal calculation.
	o.runCost(ctx, q, visionResult, analysis, log)

	// Stage 3: compose narrative sections, best effort.
	o.runCompose(ctx, q, log)

	q.Status = model.StatusCompleted
	o.save(ctx, q, log)

	log.Info("pipeline: quote completed",
		zap.Float64("total", totalOf(q)),
		zap.Float64("confidence", confidenceOf(q)),
	)
}

// runVision calls the vision collaborator. Failure marks the quote
// vision_error and returns an empty analysis; the pipeline continues.
func (o *Orchestrator) runVision(ctx context.Context, q *model.Quote, log *zap.Logger) model.VisionAnalysis {
	if o.vision == nil || q.ImagePath == "" {
		q.Notes = append(q.Notes, "vision analysis skipped: no image")
		return model.VisionAnalysis{}
	}

	resp, err := o.vision.Infer(ctx, q.ImagePath, q.ProjectType)
	if err != nil {
		log.Warn("pipeline: vision stage failed", zap.Error(err))
		q.Status = model.StatusVisionError
		q.Notes = append(q.Notes, "vision analysis unavailable, using AI estimates only")
		o.save(ctx, q, log)
		return model.VisionAnalysis{}
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		log.Warn("pipeline: marshal vision result", zap.Error(err))
	} else {
		q.VisionResult = raw
	}
	q.Status = model.StatusVisionComplete
	o.save(ctx, q, log)

	return model.DecodeVision(q.VisionResult)
}

// runReasoning walks the provider chain. The selector degrades to its
// template fallback internally, so a nil result only means the context
// is done.
func (o *Orchestrator) runReasoning(ctx context.Context, q *model.Quote, visionResult model.VisionAnalysis, log *zap.Logger) *selector.Analysis {
	var img []byte
	if q.ImagePath != "" {
		data, err := o.readImage(q.ImagePath)
		if err != nil {
			log.Warn("pipeline: read image for reasoning", zap.Error(err))
		} else {
			img = data
		}
	}

	analysis, err := o.selector.Analyze(ctx, selector.Request{
		Image:       img,
		MimeType:    mimeFromPath(q.ImagePath),
		ProjectType: q.ProjectType,
		Description: q.Description,
		Vision:      visionResult,
		Model:       q.Model,
	})
	if err != nil {
		log.Warn("pipeline: reasoning stage aborted", zap.Error(err))
		return nil
	}

	if raw, marshalErr := json.Marshal(analysis); marshalErr == nil {
		q.Reasoning = raw
	}
	if analysis.ModelUsed == selector.FallbackModel {
		q.Notes = append(q.Notes, "AI providers unavailable, template analysis applied")
	}
	o.save(ctx, q, log)
	return analysis
}

// runCost prices the quote. The external baseline is best effort and
// marks cost_error on failure; the internal calculator is the estimate
// of record and never fails.
func (o *Orchestrator) runCost(ctx context.Context, q *model.Quote, visionResult model.VisionAnalysis, analysis *selector.Analysis, log *zap.Logger) {
	materials := DeriveMaterials(q.ProjectType, analysis)

	if o.costAPI != nil {
		baseline, err := o.costAPI.Estimate(ctx, costapi.EstimateRequest{
			Zip:         q.ZipCode,
			Region:      q.Options.Region,
			ProjectType: q.ProjectType,
			Materials:   toMaterialSpecs(materials),
		})
		if err != nil {
			log.Warn("pipeline: cost baseline failed", zap.Error(err))
			q.Status = model.StatusCostError
			q.Notes = append(q.Notes, "external cost baseline unavailable, using internal pricing")
			o.save(ctx, q, log)
		} else if raw, marshalErr := json.Marshal(baseline); marshalErr == nil {
			q.CostBaseline = raw
		}
	}

	q.Estimate = o.calc.Calculate(ctx, estimate.Input{
		Materials:   materials,
		LaborHours:  analysis.LaborHours,
		ProjectType: q.ProjectType,
		Vision:      visionResult,
		Options:     q.Options,
	})
	q.Status = model.StatusCostComplete
	o.save(ctx, q, log)
}

// runCompose asks the compose collaborator for narrative timeline and
// steps. Any failure leaves the calculator's own sections in place.
func (o *Orchestrator) runCompose(ctx context.Context, q *model.Quote, log *zap.Logger) {
	if o.compose == nil || q.Estimate == nil {
		return
	}

	resp, err := o.compose.Compose(ctx, compose.ComposeRequest{
		UserInputs: map[string]any{
			"project_type": q.ProjectType,
			"description":  q.Description,
			"zip_code":     q.ZipCode,
		},
		Vision: q.VisionResult,
		Costs:  q.Estimate,
		Template: compose.Template{
			Phases: []string{"timeline", "steps"},
			Output: "json",
		},
		Model: o.cfg.Compose.Model,
	})
	if err != nil {
		log.Warn("pipeline: compose stage failed", zap.Error(err))
		q.Notes = append(q.Notes, "narrative compose unavailable, using calculated sections")
		return
	}

	sections, err := resp.Decode()
	if err != nil {
		log.Warn("pipeline: compose output unparseable", zap.Error(err))
		return
	}

	if sections.Timeline != nil {
		q.Estimate.Timeline = model.Timeline{
			EstimatedHours: sections.Timeline.EstimatedHours,
			EstimatedDays:  sections.Timeline.EstimatedDays,
			MinDays:        sections.Timeline.MinDays,
			MaxDays:        sections.Timeline.MaxDays,
		}
	}
	if len(sections.Steps) > 0 {
		steps := make([]model.WorkStep, len(sections.Steps))
		for i, s := range sections.Steps {
			steps[i] = model.WorkStep{Order: s.Order, Description: s.Description, Duration: s.Duration}
		}
		q.Estimate.Steps = steps
	}
}

// save persists the full quote snapshot. Persistence failures are
// logged and the pipeline continues; the in-memory quote remains the
// source of truth for later saves.
func (o *Orchestrator) save(ctx context.Context, q *model.Quote, log *zap.Logger) {
	if err := o.store.SaveQuote(ctx, q); err != nil {
		log.Warn("pipeline: failed to persist quote snapshot",
			zap.String("status", string(q.Status)),
			zap.Error(err),
		)
	}
}

func toMaterialSpecs(materials []estimate.MaterialNeed) []costapi.MaterialSpec {
	specs := make([]costapi.MaterialSpec, len(materials))
	for i, m := range materials {
		specs[i] = costapi.MaterialSpec{
			Name:     m.Name,
			Quantity: estimate.ParseQuantity(m.Quantity),
			Unit:     m.Unit,
		}
	}
	return specs
}

func totalOf(q *model.Quote) float64 {
	if q.Estimate == nil {
		return 0
	}
	return q.Estimate.TotalCost.Amount
}

func confidenceOf(q *model.Quote) float64 {
	if q.Estimate == nil {
		return 0
	}
	return q.Estimate.ConfidenceScore
}
