package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Sources        Sources        `yaml:"sources"`
	Ingestion      Ingestion      `yaml:"ingestion"`
	Classification Classification `yaml:"classification"`
	Topics         []string       `yaml:"topics"`
	Selection      Selection      `yaml:"selection"`
	Output         Output         `yaml:"output"`
	Server         Server         `yaml:"server"`
	Logging        Logging        `yaml:"logging"`
}

type Sources struct {
	Feeds            []Feed   `yaml:"feeds"`
	MaxPerFeed       int      `yaml:"max_per_feed"`
	RecencyHours     int      `yaml:"recency_hours"`
	ExcludedKeywords []string `yaml:"excluded_keywords"`
}

// Feed is a trusted origin. TrustScore ranks its entries inside the diversifier.
type Feed struct {
	Name       string  `yaml:"name"`
	Domain     string  `yaml:"domain"`
	URL        string  `yaml:"url"`
	TrustScore float64 `yaml:"trust_score"`
}

type Ingestion struct {
	MaxPerSource        int  `yaml:"max_per_source"`
	MaxBatch            int  `yaml:"max_batch"`
	ContentChars        int  `yaml:"content_chars"`
	FetchMissingContent bool `yaml:"fetch_missing_content"`
	FetchTimeoutSeconds int  `yaml:"fetch_timeout_seconds"`
}

type Classification struct {
	Provider          string `yaml:"provider"`
	Model             string `yaml:"model"`
	APIKeyEnv         string `yaml:"api_key_env"`
	OllamaURL         string `yaml:"ollama_url"`
	OpenAIModel       string `yaml:"openai_model"`
	OpenAIAPIKeyEnv   string `yaml:"openai_api_key_env"`
	MaxTokens         int    `yaml:"max_tokens"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type Selection struct {
	RelevanceThreshold float64            `yaml:"relevance_threshold"`
	MinStories         int                `yaml:"min_stories"`
	MaxStories         int                `yaml:"max_stories"`
	HistoryDays        int                `yaml:"history_days"`
	CandidateDays      int                `yaml:"candidate_days"`
	RequiredTopics     []TopicRequirement `yaml:"required_topics"`
}

// TopicRequirement is one entry of the ordered coverage mapping.
type TopicRequirement struct {
	Topic string `yaml:"topic"`
	Min   int    `yaml:"min"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for techbrief.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "techbrief")
}

// DataDir returns the XDG data directory for techbrief.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "techbrief")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/techbrief/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'techbrief init' to create a default config",
		xdgConfig,
	)
}

// Load reads, parses and validates a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Sources: Sources{
			MaxPerFeed:   15,
			RecencyHours: 168,
		},
		Ingestion: Ingestion{
			MaxPerSource:        5,
			MaxBatch:            25,
			ContentChars:        1000,
			FetchMissingContent: true,
			FetchTimeoutSeconds: 15,
		},
		Classification: Classification{
			Provider:          "gemini",
			Model:             "gemini-flash-latest",
			APIKeyEnv:         "GEMINI_API_KEY",
			OllamaURL:         "http://localhost:11434",
			OpenAIModel:       "gpt-4o-mini",
			OpenAIAPIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:         512,
			RequestsPerMinute: 5,
		},
		Selection: Selection{
			RelevanceThreshold: 0.6,
			MinStories:         5,
			MaxStories:         8,
			HistoryDays:        7,
			CandidateDays:      2,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks the selection settings against the topic vocabulary.
func (c *Config) Validate() error {
	s := c.Selection
	if s.RelevanceThreshold < 0 || s.RelevanceThreshold > 1 {
		return fmt.Errorf("selection.relevance_threshold must be within [0, 1], got %v", s.RelevanceThreshold)
	}
	if s.MaxStories <= 0 {
		return fmt.Errorf("selection.max_stories must be positive, got %d", s.MaxStories)
	}
	if s.MinStories > s.MaxStories {
		return fmt.Errorf("selection.min_stories (%d) exceeds max_stories (%d)", s.MinStories, s.MaxStories)
	}
	if s.HistoryDays < 0 {
		return fmt.Errorf("selection.history_days must not be negative, got %d", s.HistoryDays)
	}
	seen := make(map[string]struct{}, len(s.RequiredTopics))
	for _, req := range s.RequiredTopics {
		if !slices.Contains(c.Topics, req.Topic) {
			return fmt.Errorf("required topic %q is not in the topic vocabulary", req.Topic)
		}
		if _, dup := seen[req.Topic]; dup {
			return fmt.Errorf("required topic %q listed twice", req.Topic)
		}
		if req.Min < 0 {
			return fmt.Errorf("required topic %q has negative minimum", req.Topic)
		}
		seen[req.Topic] = struct{}{}
	}
	for _, f := range c.Sources.Feeds {
		if f.TrustScore < 0 || f.TrustScore > 1 {
			return fmt.Errorf("feed %q trust_score must be within [0, 1], got %v", f.Name, f.TrustScore)
		}
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// ClassificationInterval is the spacing between classification calls
// derived from the requests-per-minute quota. Zero means unpaced.
func (c *Config) ClassificationInterval() time.Duration {
	rpm := c.Classification.RequestsPerMinute
	if rpm <= 0 {
		return 0
	}
	return time.Minute / time.Duration(rpm)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
