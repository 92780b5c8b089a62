package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider classifies with Google's Gemini models.
type GeminiProvider struct {
	Model  string
	APIKey string

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiProvider creates a provider reading its key from apiKeyEnv.
// The API client is created on first use.
func NewGeminiProvider(model, apiKeyEnv string) *GeminiProvider {
	return &GeminiProvider{
		Model:  strings.TrimPrefix(model, "models/"),
		APIKey: os.Getenv(apiKeyEnv),
	}
}

func (g *GeminiProvider) Name() string { return "gemini/" + g.Model }

func (g *GeminiProvider) IsConfigured() bool {
	return g.APIKey != ""
}

// Generate sends prompt and returns the concatenated text parts of the
// first candidate. Responses are requested as JSON.
func (g *GeminiProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return "", err
	}

	model := client.GenerativeModel(g.Model)
	model.SetTemperature(temperature)
	if maxTokens > 0 {
		model.SetMaxOutputTokens(int32(maxTokens))
	}
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no candidates in Gemini response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty Gemini response")
	}
	return sb.String(), nil
}

// Close releases the underlying API client.
func (g *GeminiProvider) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}

func (g *GeminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	if g.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key not configured")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	g.client = client
	return client, nil
}
