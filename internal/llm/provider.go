package llm

import (
	"context"
	"fmt"
)

// ProviderConfig selects and configures a backend.
type ProviderConfig struct {
	Provider string // gemini or openai
	BaseURL  string
	APIKey   string
	Model    string
}

// NewBackend builds the backend named by cfg.Provider.
func NewBackend(ctx context.Context, cfg ProviderConfig) (Backend, error) {
	switch cfg.Provider {
	case "", "gemini":
		b, err := NewGemini(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "openai":
		b, err := NewOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
