// Package embedding provides vector embedding clients used for semantic
// belief similarity. The provider is optional: when none is configured the
// engine falls back to lexical similarity.
package embedding

import (
	"fmt"

	"github.com/credohq/credo/internal/domain"
)

const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
	ProviderNone   = "none"
)

// NewClient creates an embedding client for the named provider. Returns
// (nil, nil) for "none" so callers can wire the absence of a client directly.
func NewClient(provider, apiKey string) (domain.EmbeddingClient, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI embedding provider")
		}
		return NewOpenAIClient(apiKey), nil

	case ProviderMock:
		return NewMockClient(), nil

	case ProviderNone, "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (valid options: openai, mock, none)", provider)
	}
}
