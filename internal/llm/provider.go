// Package llm talks to text-completion backends and extracts JSON from
// their replies.
package llm

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/carpenike/repcoach/internal/models"
)

// ErrNotConfigured is returned when no model provider is configured.
var ErrNotConfigured = fmt.Errorf("llm: model provider not configured")

// Provider is the interface for text-completion backends.
type Provider interface {
	// Complete sends a single prompt to the model and returns its text.
	// Providers never retry; callers decide what to do with failures.
	Complete(ctx context.Context, prompt string, opts Options) (*Response, error)

	// Ping validates connectivity and credentials. Returns nil if the
	// provider is reachable and authenticated.
	Ping(ctx context.Context) error

	// Name returns the display name of this provider (e.g. "OpenRouter").
	Name() string
}

// Options controls generation behavior.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Response holds the model's output.
type Response struct {
	Content    string
	Model      string
	TokensUsed int
	Duration   time.Duration
	StopReason string
}

// NewProviderFromSettings creates a Provider using the current app_settings
// configuration (with env var overrides).
func NewProviderFromSettings(ctx context.Context, db *sql.DB) (Provider, error) {
	provider := models.GetSetting(db, "llm.provider")
	if provider == "" {
		return nil, ErrNotConfigured
	}

	model := models.GetSetting(db, "llm.model")
	apiKey := models.GetSetting(db, "llm.api_key")
	baseURL := models.GetSetting(db, "llm.base_url")

	switch provider {
	case "openrouter":
		return NewOpenRouterProvider(apiKey, model, baseURL), nil
	case "openai":
		return NewOpenAIProvider(apiKey, model, baseURL), nil
	case "anthropic":
		return NewAnthropicProvider(apiKey, model), nil
	case "ollama":
		return NewOllamaProvider(baseURL, model), nil
	case "gemini":
		return NewGeminiProvider(ctx, apiKey, model)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", provider)
	}
}

// OptionsFromSettings reads temperature and max tokens.
func OptionsFromSettings(db *sql.DB) Options {
	return Options{
		Temperature: TemperatureFromSettings(db),
		MaxTokens:   MaxTokensFromSettings(db),
	}
}

// TemperatureFromSettings reads the temperature setting.
func TemperatureFromSettings(db *sql.DB) float64 {
	v := models.GetSetting(db, "llm.temperature")
	temp, err := strconv.ParseFloat(v, 64)
	if err != nil || temp < 0 || temp > 2 {
		return 0.7
	}
	return temp
}

// MaxTokensFromSettings reads the max output tokens setting.
func MaxTokensFromSettings(db *sql.DB) int {
	v := models.GetSetting(db, "llm.max_tokens")
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 4096
	}
	return n
}
