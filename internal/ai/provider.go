// Package ai is the boundary to the external text-generation capability.
// Providers accept a system and user instruction and return free text or a
// structured JSON object; API rejections are classified into user-facing
// categories with remediation hints.
package ai

import (
	"context"
	"fmt"
	"regexp"
)

// Provider is the interface all LLM providers implement.
type Provider interface {
	// Complete sends one system+user instruction pair and returns the raw
	// text of the model's reply.
	Complete(ctx context.Context, system, user string) (string, error)

	// CompleteJSON is Complete with the provider's strongest available
	// guarantee that the reply is a single JSON object.
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

// ProviderConfig holds the configuration needed to create a provider.
type ProviderConfig struct {
	Provider string // "openai" | "anthropic"
	APIKey   string
	Model    string
}

// NewProvider creates the appropriate provider based on config.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(cfg.APIKey, cfg.Model), nil
	case "anthropic":
		return NewAnthropicProvider(cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}

// reasoningModelRe matches OpenAI reasoning models, which reject an explicit
// temperature parameter.
var reasoningModelRe = regexp.MustCompile(`^(o[1-9]|o\d+-)`)

// isReasoningModel reports whether the model rejects sampling parameters.
func isReasoningModel(model string) bool {
	return reasoningModelRe.MatchString(model)
}

// Models lists the OpenAI model identifiers the CLI offers for selection.
var Models = []string{
	"gpt-4o-mini", "gpt-4o",
	"gpt-4.1-nano", "gpt-4.1-mini", "gpt-4.1",
	"gpt-5-nano", "gpt-5-mini", "gpt-5",
	"gpt-5.1", "gpt-5.1-codex-mini", "gpt-5.1-codex",
	"gpt-5.2", "gpt-5.2-pro", "gpt-5.2-codex",
	"o3-mini", "o3", "o3-pro", "o4-mini",
}
