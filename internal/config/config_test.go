package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr())
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 4096, cfg.LLM.MaxTokens)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server, cfg.Server)
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
bind = "0.0.0.0"
port = 9090

[database]
path = "/tmp/test.db"

[llm]
provider = "openai"
model = "gpt-4o"
api_key = "sk-test"
max_tokens = 1024
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr())
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 1024, cfg.LLM.MaxTokens)
}

func TestLoadMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nbind ="), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MNEMO_BIND", "10.0.0.1")
	t.Setenv("MNEMO_PORT", "7777")
	t.Setenv("MNEMO_DB_PATH", "/data/mnemo.db")
	t.Setenv("MNEMO_LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:7777", cfg.ListenAddr())
	assert.Equal(t, "/data/mnemo.db", cfg.Database.Path)
	assert.Equal(t, "sk-ant-test", cfg.LLM.APIKey)
}

func TestProviderKeySelection(t *testing.T) {
	t.Setenv("MNEMO_LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-oai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-oai", cfg.LLM.APIKey)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.LLM.Provider = "anthropic"
	assert.Error(t, cfg.Validate())

	cfg.LLM.APIKey = "sk-ant-test"
	assert.NoError(t, cfg.Validate())

	cfg.LLM.Provider = "mock"
	cfg.LLM.APIKey = ""
	assert.NoError(t, cfg.Validate())

	cfg.LLM.Provider = "gemini"
	assert.Error(t, cfg.Validate())
}
