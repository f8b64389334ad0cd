package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LogConfig selects the logger output mode.
type LogConfig struct {
	Mode string `yaml:"mode"`
}

// PostgresConfig contains connection details for the pgvector-backed chunk
// store. The password comes from the environment variable named by
// PasswordEnv so it never lives in the file.
type PostgresConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	PasswordEnv string `yaml:"password_env"`
	Database    string `yaml:"database"`
}

// StoreConfig selects and configures the chunk store implementation.
type StoreConfig struct {
	Type     string          `yaml:"type"`
	Postgres *PostgresConfig `yaml:"postgres,omitempty"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible
// embedder. Dimension fixes the embedding space for the whole store.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	Dimension   int    `yaml:"dimension"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// GeminiConfig contains settings for the Gemini generation backend.
type GeminiConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// LLMConfig selects and configures the answer generation backend.
type LLMConfig struct {
	Type   string        `yaml:"type"`
	Stream bool          `yaml:"stream"`
	Gemini *GeminiConfig `yaml:"gemini,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	MaxTokens        int `yaml:"max_tokens"`
	OverlapSentences int `yaml:"overlap_sentences"`
}

// RetrievalConfig bounds what reaches the model as context. The threshold
// is a pointer so an explicit 0 (accept everything above zero similarity)
// survives default filling.
type RetrievalConfig struct {
	TopK                int      `yaml:"top_k"`
	SimilarityThreshold *float64 `yaml:"similarity_threshold"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	LLM       LLMConfig       `yaml:"llm"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// Load reads a config from a specified path. If the file does not exist,
// returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/docrag/config.yaml and
// returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Log: LogConfig{Mode: "dev"},
		Store: StoreConfig{
			Type: "postgres",
			Postgres: &PostgresConfig{
				Host:        "localhost",
				Port:        5432,
				User:        "postgres",
				PasswordEnv: "DOC_DB_PASSWORD",
				Database:    "rag_test",
			},
		},
		Embedder: EmbedderConfig{
			Type: "openai",
			OpenAI: &OpenAIEmbedderConfig{
				BaseURL:     "http://localhost:11434/api",
				APIKeyEnv:   "EMBED_API_KEY",
				Model:       "nomic-embed-text",
				Dimension:   768,
				TimeoutSecs: 30,
			},
		},
		LLM: LLMConfig{
			Type:   "gemini",
			Stream: true,
			Gemini: &GeminiConfig{
				APIKeyEnv:   "GEMINI_API_KEY",
				Model:       "gemma-3-27b-it",
				TimeoutSecs: 120,
			},
		},
		Chunker:   ChunkerConfig{MaxTokens: 320, OverlapSentences: 1},
		Retrieval: RetrievalConfig{TopK: 3, SimilarityThreshold: floatPtr(0.55)},
	}
	return cfg
}

func floatPtr(f float64) *float64 { return &f }

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Log.Mode == "" {
		cfg.Log.Mode = def.Log.Mode
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = def.Store.Type
	}
	if cfg.Store.Type == "postgres" {
		if cfg.Store.Postgres == nil {
			cfg.Store.Postgres = def.Store.Postgres
		} else {
			p := cfg.Store.Postgres
			if p.Host == "" {
				p.Host = def.Store.Postgres.Host
			}
			if p.Port == 0 {
				p.Port = def.Store.Postgres.Port
			}
			if p.User == "" {
				p.User = def.Store.Postgres.User
			}
			if p.PasswordEnv == "" {
				p.PasswordEnv = def.Store.Postgres.PasswordEnv
			}
			if p.Database == "" {
				p.Database = def.Store.Postgres.Database
			}
		}
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = def.Embedder.Type
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = def.Embedder.OpenAI
		} else {
			e := cfg.Embedder.OpenAI
			if e.APIKeyEnv == "" {
				e.APIKeyEnv = def.Embedder.OpenAI.APIKeyEnv
			}
			if e.Dimension == 0 {
				e.Dimension = def.Embedder.OpenAI.Dimension
			}
			if e.TimeoutSecs == 0 {
				e.TimeoutSecs = def.Embedder.OpenAI.TimeoutSecs
			}
		}
	}
	if cfg.LLM.Type == "" {
		cfg.LLM.Type = def.LLM.Type
	}
	if cfg.LLM.Type == "gemini" {
		if cfg.LLM.Gemini == nil {
			cfg.LLM.Gemini = def.LLM.Gemini
		} else {
			g := cfg.LLM.Gemini
			if g.APIKeyEnv == "" {
				g.APIKeyEnv = def.LLM.Gemini.APIKeyEnv
			}
			if g.Model == "" {
				g.Model = def.LLM.Gemini.Model
			}
			if g.TimeoutSecs == 0 {
				g.TimeoutSecs = def.LLM.Gemini.TimeoutSecs
			}
		}
	}
	if cfg.Chunker.MaxTokens == 0 {
		cfg.Chunker.MaxTokens = def.Chunker.MaxTokens
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if cfg.Retrieval.SimilarityThreshold == nil {
		cfg.Retrieval.SimilarityThreshold = def.Retrieval.SimilarityThreshold
	}
}
