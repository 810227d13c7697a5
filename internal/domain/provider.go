package domain

import (
	"net/http"
	"strings"
)

// Provider identifies an upstream LLM vendor.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// ParseProvider maps free-form input onto a known provider. Anything that is
// not recognisably Anthropic is treated as OpenAI, which is the default.
func ParseProvider(s string) Provider {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "anthropic", "claude":
		return ProviderAnthropic
	default:
		return ProviderOpenAI
	}
}

// ProviderConfig is the per-process configuration of one upstream provider.
// It is sourced from the environment, never from end-user input.
type ProviderConfig struct {
	Provider    Provider
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Configured reports whether the provider has a credential and may be called.
func (c ProviderConfig) Configured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// ProviderRequest is a fully assembled upstream HTTP call.
type ProviderRequest struct {
	URL    string
	Header http.Header
	Body   []byte
}
