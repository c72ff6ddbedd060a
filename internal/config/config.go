package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all mnemo configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	LLM      LLMConfig      `toml:"llm"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LLMConfig struct {
	Provider  string `toml:"provider"`   // "openai", "anthropic", "mock"
	Model     string `toml:"model"`      // provider-specific model id
	BaseURL   string `toml:"base_url"`   // OpenAI-compatible gateway URL
	APIKey    string `toml:"api_key"`
	MaxTokens int    `toml:"max_tokens"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		LLM: LLMConfig{
			Provider:  "anthropic",
			MaxTokens: 4096,
		},
	}
}

// DefaultPath returns the default config file path: ~/.mnemo/config.toml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return home + "/.mnemo/config.toml", nil
}

// Load builds the configuration: defaults, then the TOML file at path
// (skipped if absent), then .env / environment variable overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	// .env is optional; real env vars win over it either way.
	_ = godotenv.Load()
	cfg.applyEnv()

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MNEMO_BIND"); v != "" {
		c.Server.Bind = v
	}
	if v := os.Getenv("MNEMO_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("MNEMO_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("MNEMO_LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("MNEMO_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("MNEMO_LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}

	// Provider keys follow the conventional names.
	switch c.LLM.Provider {
	case "anthropic":
		if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
			c.LLM.APIKey = v
		}
	case "openai":
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			c.LLM.APIKey = v
		}
	}
}

// Validate checks startup requirements. A missing model credential is
// a configuration error at startup, not a per-request one.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "mock":
		// No credential needed.
	case "anthropic", "openai":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm provider %q requires an API key", c.LLM.Provider)
		}
	default:
		return fmt.Errorf("unknown llm provider: %q", c.LLM.Provider)
	}
	return nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
