package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/TechBrief/internal/config"
)

type answer struct {
	Key string `json:"key"`
	Num int    `json:"num"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want answer
	}{
		{"plain", `{"key": "value", "num": 42}`, answer{Key: "value", Num: 42}},
		{"json fence", "```json\n{\"key\": \"value\"}\n```", answer{Key: "value"}},
		{"plain fence", "```\n{\"key\": \"value\"}\n```", answer{Key: "value"}},
		{"surrounding prose", "Here is the analysis:\n{\"key\": \"value\"}\nHope this helps.", answer{Key: "value"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a answer
			require.NoError(t, DecodeJSON(tt.text, &a))
			assert.Equal(t, tt.want, a)
		})
	}
}

func TestDecodeJSONInvalid(t *testing.T) {
	var a answer
	assert.Error(t, DecodeJSON("not json at all", &a))
}

func TestDecodeJSONEmpty(t *testing.T) {
	var a answer
	assert.ErrorIs(t, DecodeJSON("   \n  ", &a), ErrEmptyResponse)
}

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.Write([]byte(`{"models": [{"name": "llama3.2:latest"}]}`))
		case "/api/generate":
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "json", body["format"], "expected JSON format request")
			w.Write([]byte(`{"response": "{\"ok\": true}"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewOllamaProvider("llama3.2", srv.URL+"/")
	require.True(t, p.IsConfigured(), "expected ollama to be configured")
	out, err := p.Generate(context.Background(), "classify", 64)
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, out)
}

func TestOllamaMissingModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models": [{"name": "mistral:7b"}]}`))
	}))
	defer srv.Close()

	assert.False(t, NewOllamaProvider("llama3.2", srv.URL).IsConfigured())
}

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices": [{"message": {"content": "{\"ok\": true}"}}]}`))
	}))
	defer srv.Close()

	p := &OpenAIProvider{Model: "gpt-4o-mini", APIKey: "sk-test", BaseURL: srv.URL, client: srv.Client()}
	out, err := p.Generate(context.Background(), "classify", 64)
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, out)
}

func TestOpenAIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := &OpenAIProvider{Model: "gpt-4o-mini", APIKey: "sk-test", BaseURL: srv.URL, client: srv.Client()}
	_, err := p.Generate(context.Background(), "classify", 64)
	assert.Error(t, err, "expected error on 429")
}

func TestGeminiUnconfigured(t *testing.T) {
	t.Setenv("TECHBRIEF_TEST_GEMINI_KEY", "")
	p := NewGeminiProvider("models/gemini-flash-latest", "TECHBRIEF_TEST_GEMINI_KEY")
	assert.False(t, p.IsConfigured())
	assert.Equal(t, "gemini-flash-latest", p.Model, "models/ prefix stripped")

	_, err := p.Generate(context.Background(), "classify", 64)
	assert.Error(t, err, "expected error without API key")
	assert.NoError(t, p.Close(), "Close on unused provider")
}

func TestCreateProviderFallsBackToOpenAI(t *testing.T) {
	t.Setenv("TECHBRIEF_TEST_GEMINI_KEY", "")
	t.Setenv("TECHBRIEF_TEST_OPENAI_KEY", "sk-test")

	p := CreateProvider(config.Classification{
		Provider:        "gemini",
		Model:           "gemini-flash-latest",
		APIKeyEnv:       "TECHBRIEF_TEST_GEMINI_KEY",
		OpenAIModel:     "gpt-4o-mini",
		OpenAIAPIKeyEnv: "TECHBRIEF_TEST_OPENAI_KEY",
	})
	require.NotNil(t, p, "expected fallback provider")
	assert.Equal(t, "openai/gpt-4o-mini", p.Name())
}

func TestCreateProviderPrefersGemini(t *testing.T) {
	t.Setenv("TECHBRIEF_TEST_GEMINI_KEY", "g-test")
	t.Setenv("TECHBRIEF_TEST_OPENAI_KEY", "sk-test")

	p := CreateProvider(config.Classification{
		Provider:        "gemini",
		Model:           "gemini-flash-latest",
		APIKeyEnv:       "TECHBRIEF_TEST_GEMINI_KEY",
		OpenAIModel:     "gpt-4o-mini",
		OpenAIAPIKeyEnv: "TECHBRIEF_TEST_OPENAI_KEY",
	})
	require.NotNil(t, p)
	assert.Equal(t, "gemini/gemini-flash-latest", p.Name())
}

func TestCreateProviderNone(t *testing.T) {
	t.Setenv("TECHBRIEF_TEST_OPENAI_KEY", "")
	p := CreateProvider(config.Classification{
		Provider:        "openai",
		OpenAIModel:     "gpt-4o-mini",
		OpenAIAPIKeyEnv: "TECHBRIEF_TEST_OPENAI_KEY",
	})
	assert.Nil(t, p)
}
