package types

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Provider identifies a text-completion service backend
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderOllama    Provider = "ollama"
)

// Providers returns all supported providers
func Providers() []Provider {
	return []Provider{ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderOllama}
}

// ParseProvider normalizes a provider name. It does not validate support;
// use Validate for that.
func ParseProvider(s string) Provider {
	return Provider(strings.ToLower(strings.TrimSpace(s)))
}

// Validate checks if the Provider is one of the supported backends
func (p Provider) Validate() error {
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderOllama:
		return nil
	}
	return goerr.New("unsupported provider", goerr.V("provider", string(p)))
}

// IsLocal reports whether the provider is served by a locally reachable
// endpoint rather than a remote credentialed API.
func (p Provider) IsLocal() bool {
	return p == ProviderOllama
}

// String returns the string representation of Provider
func (p Provider) String() string {
	return string(p)
}
