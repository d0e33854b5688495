package selector

import (
	"context"
	"encoding/base64"

	"github.com/estimategenie/quote-engine/pkg/anthropic"
	"github.com/estimategenie/quote-engine/pkg/gemini"
	"github.com/estimategenie/quote-engine/pkg/openai"
)

// Provider is one AI backend capable of analyzing a project image.
// Implementations must be safe for concurrent use.
type Provider interface {
	ID() string
	Info() ModelInfo
	Analyze(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// ModelInfo describes a provider for the models listing endpoint.
type ModelInfo struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Provider     string   `json:"provider"`
	Capabilities []string `json:"capabilities"`
	BestFor      string   `json:"best_for"`
}

// geminiProvider analyzes images through the Generative Language API.
type geminiProvider struct {
	client gemini.Client
	model  string
}

func (p *geminiProvider) ID() string { return "gemini" }

func (p *geminiProvider) Info() ModelInfo {
	return ModelInfo{
		ID:           "gemini",
		Name:         "Google Gemini 2.0 Flash",
		Provider:     "google",
		Capabilities: []string{"vision", "reasoning", "fast"},
		BestFor:      "General purpose, fast responses",
	}
}

func (p *geminiProvider) Analyze(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	return p.client.GenerateContent(ctx, gemini.GenerateRequest{
		Model:    p.model,
		Prompt:   prompt,
		Image:    image,
		MimeType: mimeType,
	})
}

// gpt4vProvider analyzes images through the OpenAI chat completions API.
type gpt4vProvider struct {
	client openai.Client
	model  string
}

func (p *gpt4vProvider) ID() string { return "gpt4v" }

func (p *gpt4vProvider) Info() ModelInfo {
	return ModelInfo{
		ID:           "gpt4v",
		Name:         "OpenAI GPT-4 Vision",
		Provider:     "openai",
		Capabilities: []string{"vision", "reasoning", "detailed"},
		BestFor:      "Detailed analysis, complex reasoning",
	}
}

func (p *gpt4vProvider) Analyze(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	return p.client.ChatCompletion(ctx, openai.ChatRequest{
		Model:    p.model,
		Prompt:   prompt,
		Image:    image,
		MimeType: mimeType,
	})
}

// claudeProvider analyzes images through the Anthropic Messages API.
type claudeProvider struct {
	client anthropic.Client
	model  string
}

// estimatorSystem anchors the estimator role for every Claude request.
// It is identical across requests, so it is marked cacheable.
const estimatorSystem = "You are an expert construction estimator. " +
	"Always respond with the single JSON object the user requests and nothing else."

// claudeTemperature keeps estimates deterministic across retries.
const claudeTemperature = 0.2

func (p *claudeProvider) ID() string { return "claude" }

func (p *claudeProvider) Info() ModelInfo {
	return ModelInfo{
		ID:           "claude",
		Name:         "Anthropic Claude 3.5 Sonnet",
		Provider:     "anthropic",
		Capabilities: []string{"vision", "reasoning", "precise"},
		BestFor:      "Precise measurements, technical analysis",
	}
}

func (p *claudeProvider) Analyze(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	msg := anthropic.Message{Role: "user", Content: prompt}
	if len(image) > 0 {
		mime := mimeType
		if mime == "" {
			mime = "image/jpeg"
		}
		msg.Image = &anthropic.ImageAttachment{
			MediaType: mime,
			Data:      base64.StdEncoding.EncodeToString(image),
		}
	}

	temp := claudeTemperature
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.model,
		MaxTokens: 2000,
		System: []anthropic.SystemBlock{{
			Text:         estimatorSystem,
			CacheControl: &anthropic.CacheControl{TTL: "5m"},
		}},
		Messages:    []anthropic.Message{msg},
		Temperature: &temp,
	})
	if err != nil {
		return "", err
	}
	resp.Usage.LogCost(p.model, "image_analysis")
	return resp.Text(), nil
}

// openRouterProvider runs text-only reasoning on an OpenAI-compatible
// gateway. The image is omitted; the prompt must carry the vision
// findings instead.
type openRouterProvider struct {
	client openai.Client
	model  string
}

func (p *openRouterProvider) ID() string { return "gpt-oss-20b" }

func (p *openRouterProvider) Info() ModelInfo {
	return ModelInfo{
		ID:           "gpt-oss-20b",
		Name:         "OpenAI GPT-OSS 20B (via OpenRouter)",
		Provider:     "openrouter",
		Capabilities: []string{"reasoning", "cost-effective"},
		BestFor:      "Cost-effective structured reasoning (text-only)",
	}
}

func (p *openRouterProvider) Analyze(ctx context.Context, prompt string, _ []byte, _ string) (string, error) {
	return p.client.ChatCompletion(ctx, openai.ChatRequest{
		Model:  p.model,
		Prompt: prompt,
	})
}
