package llms

import (
	"os"

	"github.com/ojasjagtap/prompt-ide/pkg/core"
	"github.com/ojasjagtap/prompt-ide/pkg/errors"
)

// Supported provider names, in the order reported by unsupported-provider
// errors.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// SupportedProviders lists every provider Provision accepts.
var SupportedProviders = []string{ProviderOllama, ProviderOpenAI, ProviderAnthropic}

// ProviderConfig describes a language-model backend. It is constructed
// once per job from the configuration document and never mutated after
// the handle is provisioned.
type ProviderConfig struct {
	Provider string // one of SupportedProviders
	Model    string // provider-specific model identifier
	APIKey   string // optional; cloud providers fall back to the environment
	BaseURL  string // optional endpoint override
}

// Provision resolves a backend descriptor into a callable model handle.
// Cloud providers read their conventional environment variable when the
// descriptor carries no credential; the local-hosted provider needs none.
func Provision(cfg ProviderConfig) (core.LLM, error) {
	switch cfg.Provider {
	case ProviderOllama:
		return NewOllamaLLM(cfg.BaseURL, cfg.Model)

	case ProviderOpenAI:
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		return NewOpenAILLM(apiKey, cfg.Model, cfg.BaseURL)

	case ProviderAnthropic:
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		return NewAnthropicLLM(apiKey, cfg.Model, cfg.BaseURL)

	default:
		return nil, errors.WithFields(
			errors.Newf(errors.UnsupportedOption,
				"unsupported provider: %q (use 'ollama', 'openai', or 'anthropic')", cfg.Provider),
			errors.Fields{
				"provider": cfg.Provider,
			})
	}
}
