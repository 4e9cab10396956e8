// Package llm builds completion clients for the supported model providers.
package llm

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/claude"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/gollem/llm/openai"

	"github.com/inkfold/writerstudio/pkg/domain/model"
	"github.com/inkfold/writerstudio/pkg/domain/types"
)

var (
	// ErrUnsupportedProvider is returned for a provider name outside the
	// closed set in types.Providers.
	ErrUnsupportedProvider = goerr.New("unsupported provider")

	// ErrMissingCredential is returned when the selected provider has no
	// credential configured. The wrapped message names the missing setting.
	ErrMissingCredential = goerr.New("missing provider credential")

	// ErrDependencyUnavailable is returned when a local backend such as
	// ollama is configured but not reachable.
	ErrDependencyUnavailable = goerr.New("provider dependency unavailable")
)

// DefaultTimeout bounds a single completion call.
const DefaultTimeout = 120 * time.Second

// Config carries provider credentials and run defaults. Zero values mean
// "not configured"; Build reports a per-provider error when the selected
// provider lacks its credential.
type Config struct {
	Provider types.Provider
	Model    string
	Lang     string

	OpenAIAPIKey    string
	AnthropicAPIKey string
	GeminiProject   string
	GeminiLocation  string
	OllamaHost      string

	Timeout time.Duration
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

func (c Config) ollamaHost() string {
	if c.OllamaHost == "" {
		return "http://localhost:11434"
	}
	return c.OllamaHost
}

// Factory builds per-agent completion clients from shared credentials.
type Factory struct {
	config Config
}

func NewFactory(config Config) *Factory {
	return &Factory{config: config}
}

// Build returns a completion client for the given model and provider. Empty
// arguments fall back to the factory's configured defaults.
func (f *Factory) Build(ctx context.Context, modelName string, provider types.Provider) (model.CompletionClient, error) {
	if provider == "" {
		provider = f.config.Provider
	}
	if modelName == "" {
		modelName = f.config.Model
	}
	if err := provider.Validate(); err != nil {
		return nil, goerr.Wrap(ErrUnsupportedProvider, "cannot build completion client",
			goerr.V("provider", provider.String()),
		)
	}

	switch provider {
	case types.ProviderOpenAI:
		if f.config.OpenAIAPIKey == "" {
			return nil, goerr.Wrap(ErrMissingCredential, "openai api key is not configured")
		}
		client, err := openai.New(ctx, f.config.OpenAIAPIKey, openai.WithModel(modelName))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create openai client")
		}
		return f.wrap(client, provider, modelName), nil

	case types.ProviderAnthropic:
		if f.config.AnthropicAPIKey == "" {
			return nil, goerr.Wrap(ErrMissingCredential, "anthropic api key is not configured")
		}
		client, err := claude.New(ctx, f.config.AnthropicAPIKey, claude.WithModel(modelName))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create anthropic client")
		}
		return f.wrap(client, provider, modelName), nil

	case types.ProviderGemini:
		if f.config.GeminiProject == "" {
			return nil, goerr.Wrap(ErrMissingCredential, "gemini project is not configured")
		}
		client, err := gemini.New(ctx, f.config.GeminiProject, f.config.GeminiLocation, gemini.WithModel(modelName))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create gemini client")
		}
		return f.wrap(client, provider, modelName), nil

	case types.ProviderOllama:
		return newOllamaClient(f.config.ollamaHost(), modelName, f.config.timeout()), nil
	}

	return nil, goerr.Wrap(ErrUnsupportedProvider, "cannot build completion client",
		goerr.V("provider", provider.String()),
	)
}

func (f *Factory) wrap(client gollem.LLMClient, provider types.Provider, modelName string) model.CompletionClient {
	return &gollemClient{
		llm:      client,
		provider: provider,
		model:    modelName,
		timeout:  f.config.timeout(),
	}
}
