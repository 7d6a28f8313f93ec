package ai

import (
	"context"
	"fmt"
	"strings"
)

// Closer is a Generator holding resources.
type Closer interface {
	Generator
	Close() error
}

// New creates the generator for provider: gemini, moonshot or openai.
func New(ctx context.Context, provider, apiKey, model string) (Closer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing API key for %s", provider)
	}
	switch strings.ToLower(provider) {
	case "", "gemini":
		return NewClient(ctx, apiKey, model)
	case "moonshot", "kimi":
		return NewMoonshotClient(apiKey, model), nil
	case "openai":
		return NewOpenAIClient(apiKey, model), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", provider)
	}
}
