package config

import (
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/inkfold/writerstudio/pkg/domain/types"
	"github.com/inkfold/writerstudio/pkg/service/llm"
)

// LLM holds CLI flags for model provider configuration
type LLM struct {
	provider string
	model    string
	lang     string

	openaiAPIKey    string
	anthropicAPIKey string
	geminiProject   string
	geminiLocation  string
	ollamaHost      string

	timeout time.Duration
}

// Flags returns CLI flags for LLM configuration
func (l *LLM) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "provider",
			Usage:       "Default model provider (openai, anthropic, gemini, ollama)",
			Value:       "openai",
			Sources:     cli.EnvVars("WRITERSTUDIO_PROVIDER"),
			Destination: &l.provider,
		},
		&cli.StringFlag{
			Name:        "model",
			Usage:       "Default model name",
			Value:       "gpt-4o-mini",
			Sources:     cli.EnvVars("WRITERSTUDIO_MODEL"),
			Destination: &l.model,
		},
		&cli.StringFlag{
			Name:        "lang",
			Usage:       "Default answer language code",
			Value:       "zh-CN",
			Sources:     cli.EnvVars("WRITERSTUDIO_LANG"),
			Destination: &l.lang,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key",
			Sources:     cli.EnvVars("WRITERSTUDIO_OPENAI_API_KEY", "OPENAI_API_KEY"),
			Destination: &l.openaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "anthropic-api-key",
			Usage:       "Anthropic API key",
			Sources:     cli.EnvVars("WRITERSTUDIO_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"),
			Destination: &l.anthropicAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini API",
			Sources:     cli.EnvVars("WRITERSTUDIO_GEMINI_PROJECT"),
			Destination: &l.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini API",
			Value:       "us-central1",
			Sources:     cli.EnvVars("WRITERSTUDIO_GEMINI_LOCATION"),
			Destination: &l.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "ollama-host",
			Usage:       "Ollama server host",
			Value:       "http://localhost:11434",
			Sources:     cli.EnvVars("WRITERSTUDIO_OLLAMA_HOST", "OLLAMA_HOST"),
			Destination: &l.ollamaHost,
		},
		&cli.DurationFlag{
			Name:        "llm-timeout",
			Usage:       "Timeout for a single completion call",
			Value:       llm.DefaultTimeout,
			Sources:     cli.EnvVars("WRITERSTUDIO_LLM_TIMEOUT"),
			Destination: &l.timeout,
		},
	}
}

// LogValue implements slog.LogValuer. Credentials are intentionally absent.
func (l LLM) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("provider", l.provider),
		slog.String("model", l.model),
		slog.String("lang", l.lang),
	)
}

// Provider returns the configured default provider
func (l *LLM) Provider() types.Provider {
	return types.ParseProvider(l.provider)
}

// Model returns the configured default model name
func (l *LLM) Model() string {
	return l.model
}

// Lang returns the configured default answer language
func (l *LLM) Lang() string {
	return l.lang
}

// Configure builds the completion client factory from the configured flags.
func (l *LLM) Configure() *llm.Factory {
	return llm.NewFactory(llm.Config{
		Provider:        l.Provider(),
		Model:           l.model,
		Lang:            l.lang,
		OpenAIAPIKey:    l.openaiAPIKey,
		AnthropicAPIKey: l.anthropicAPIKey,
		GeminiProject:   l.geminiProject,
		GeminiLocation:  l.geminiLocation,
		OllamaHost:      l.ollamaHost,
		Timeout:         l.timeout,
	})
}
