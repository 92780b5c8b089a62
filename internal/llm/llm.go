package llm

import (
	"context"
	"log"
	"strings"

	"github.com/TobiSchelling/TechBrief/internal/config"
)

// temperature is kept low so repeated classification of the same story is stable.
const temperature = 0.2

// Provider is the interface for LLM providers.
type Provider interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
	IsConfigured() bool
	Name() string
}

// CreateProvider picks the configured provider, falling back to OpenAI when
// the preferred one is unavailable. It returns nil when nothing is usable.
func CreateProvider(cfg config.Classification) Provider {
	var candidates []Provider
	switch strings.ToLower(cfg.Provider) {
	case "ollama":
		candidates = append(candidates, NewOllamaProvider(cfg.Model, cfg.OllamaURL))
	case "openai":
	default:
		candidates = append(candidates, NewGeminiProvider(cfg.Model, cfg.APIKeyEnv))
	}
	candidates = append(candidates, NewOpenAIProvider(cfg.OpenAIModel, cfg.OpenAIAPIKeyEnv))

	for i, p := range candidates {
		if p.IsConfigured() {
			if i > 0 {
				log.Printf("Preferred provider %q not available, falling back", cfg.Provider)
			}
			log.Printf("Using %s for classification", p.Name())
			return p
		}
	}

	log.Printf("No LLM provider available. Set %s or %s, or start Ollama.", cfg.APIKeyEnv, cfg.OpenAIAPIKeyEnv)
	return nil
}
