// Package selector picks an AI provider for image analysis and walks an
// ordered fallback chain when providers fail. When every candidate is
// exhausted it degrades to a deterministic per-project template so the
// pipeline always gets a usable analysis.
package selector

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/estimategenie/quote-engine/internal/config"
	"github.com/estimategenie/quote-engine/internal/model"
	"github.com/estimategenie/quote-engine/internal/resilience"
	"github.com/estimategenie/quote-engine/pkg/anthropic"
	"github.com/estimategenie/quote-engine/pkg/gemini"
	"github.com/estimategenie/quote-engine/pkg/openai"
)

// Request is one analysis request against the provider chain.
type Request struct {
	Image       []byte
	MimeType    string
	ProjectType string
	Description string
	Vision      model.VisionAnalysis
	Model       string // "", "auto", or a provider id
}

// Selector walks providers in priority order. Providers are fixed at
// construction; availability is decided by credential presence.
type Selector struct {
	providers []Provider
	preferred string
	limiter   *rate.Limiter
	breakers  *resilience.BreakerSet
}

// New builds the provider chain from configuration. The priority order
// is gemini, gpt4v, claude, gpt-oss-20b; a configured preferred provider
// is tried first.
func New(cfg config.ProvidersConfig) *Selector {
	var providers []Provider

	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	if cfg.GoogleKey != "" {
		providers = append(providers, &geminiProvider{
			client: gemini.NewClient(cfg.GoogleKey, gemini.WithTimeout(timeout)),
			model:  cfg.GeminiModel,
		})
	}
	if cfg.OpenAIKey != "" {
		providers = append(providers, &gpt4vProvider{
			client: openai.NewClient(cfg.OpenAIKey, openai.WithTimeout(timeout)),
			model:  cfg.GPT4VModel,
		})
	}
	if cfg.AnthropicKey != "" {
		providers = append(providers, &claudeProvider{
			client: anthropic.NewClient(cfg.AnthropicKey, anthropic.WithTimeout(timeout)),
			model:  cfg.ClaudeModel,
		})
	}
	if cfg.OpenRouterKey != "" {
		providers = append(providers, &openRouterProvider{
			client: openai.NewClient(cfg.OpenRouterKey,
				openai.WithTimeout(timeout),
				openai.WithBaseURL("https://openrouter.ai/api/v1"),
				openai.WithHeader("HTTP-Referer", "https://estimategenie.net"),
				openai.WithHeader("X-Title", "EstimateGenie"),
			),
			model: cfg.OpenRouterModel,
		})
	}

	ratePerSec := cfg.RatePerSec
	if ratePerSec <= 0 {
		ratePerSec = 2
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 4
	}

	s := &Selector{
		providers: providers,
		preferred: strings.ToLower(cfg.Preferred),
		limiter:   rate.NewLimiter(rate.Limit(ratePerSec), burst),
		breakers:  resilience.NewBreakerSet(3, 30*time.Second),
	}

	zap.L().Info("selector: initialized",
		zap.Strings("available", s.Available()),
		zap.String("preferred", s.preferred),
	)
	return s
}

// NewWithProviders builds a selector over explicit providers. Used by
// tests and anywhere the chain needs to be assembled by hand.
func NewWithProviders(preferred string, limiter *rate.Limiter, providers ...Provider) *Selector {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Selector{
		providers: providers,
		preferred: strings.ToLower(preferred),
		limiter:   limiter,
		breakers:  resilience.NewBreakerSet(3, 30*time.Second),
	}
}

// Ready reports whether at least one provider is configured.
func (s *Selector) Ready() bool {
	return len(s.providers) > 0
}

// Available returns the configured provider ids in priority order.
func (s *Selector) Available() []string {
	ids := make([]string, len(s.providers))
	for i, p := range s.providers {
		ids[i] = p.ID()
	}
	return ids
}

// Models returns metadata for every configured provider.
func (s *Selector) Models() []ModelInfo {
	infos := make([]ModelInfo, len(s.providers))
	for i, p := range s.providers {
		infos[i] = p.Info()
	}
	return infos
}

// Analyze runs the request down the provider chain. Provider errors are
// logged and the next candidate is tried; the template fallback means
// the returned analysis is never nil and the error is always nil unless
// the context is done.
func (s *Selector) Analyze(ctx context.Context, req Request) (*Analysis, error) {
	prompt := BuildPrompt(req.ProjectType, req.Description, req.Vision)

	var lastErr error
	for _, p := range s.chain(req.Model) {
		br := s.breakers.For(p.ID())
		if err := br.Allow(); err != nil {
			zap.L().Warn("selector: provider skipped, breaker open",
				zap.String("provider", p.ID()),
			)
			lastErr = err
			continue
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "selector: rate limit wait")
		}

		zap.L().Debug("selector: trying provider", zap.String("provider", p.ID()))
		text, err := p.Analyze(ctx, prompt, req.Image, req.MimeType)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(err, "selector: analyze")
			}
			br.Record(err)
			zap.L().Warn("selector: provider failed",
				zap.String("provider", p.ID()),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		br.Record(nil)

		analysis := Parse(text)
		analysis.ModelUsed = p.ID()
		return analysis, nil
	}

	zap.L().Warn("selector: all providers failed, using template fallback",
		zap.String("project_type", req.ProjectType),
		zap.Error(lastErr),
	)
	reason := ""
	if lastErr != nil {
		reason = lastErr.Error()
	} else if len(s.providers) == 0 {
		reason = "no providers configured"
	}
	return Fallback(req.ProjectType, reason), nil
}

// chain orders providers for one request: an explicitly requested
// provider alone if configured, otherwise preferred first and the rest
// in priority order.
func (s *Selector) chain(requested string) []Provider {
	requested = strings.ToLower(requested)
	if requested != "" && requested != "auto" {
		for _, p := range s.providers {
			if p.ID() == requested {
				return []Provider{p}
			}
		}
		zap.L().Warn("selector: requested provider not configured",
			zap.String("requested", requested),
		)
	}

	out := make([]Provider, 0, len(s.providers))
	for _, p := range s.providers {
		if p.ID() == s.preferred {
			out = append(out, p)
		}
	}
	for _, p := range s.providers {
		if p.ID() != s.preferred {
			out = append(out, p)
		}
	}
	return out
}
