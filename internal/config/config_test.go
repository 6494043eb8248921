package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/alisa-relay/internal/config"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alisa.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(config.APIKeyEnv, "")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, 10, cfg.Memory.ShortTermSize)
	assert.Equal(t, 5, cfg.Memory.Recall)
}

func TestLoad_File(t *testing.T) {
	t.Setenv(config.APIKeyEnv, "")
	path := writeFile(t, `
server:
  addr: 127.0.0.1:9000
llm:
  provider: script
  script:
    replies:
      - "<emotion=happy> hello there"
    delay: 10ms
memory:
  dir: /var/lib/alisa
  short_term_size: 4
broadcast:
  write_timeout: 2s
  max_parallel: 8
modes:
  initial: calm
  catalogue:
    calm: Speak softly.
    default: Be yourself.
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout, "unset keys keep defaults")
	assert.Equal(t, config.ProviderScript, cfg.LLM.Provider)
	assert.Equal(t, []string{"<emotion=happy> hello there"}, cfg.LLM.Script.Replies)
	assert.Equal(t, 10*time.Millisecond, cfg.LLM.Script.Delay)
	assert.Equal(t, "/var/lib/alisa", cfg.Memory.Dir)
	assert.Equal(t, 4, cfg.Memory.ShortTermSize)
	assert.Equal(t, 5, cfg.Memory.Recall)
	assert.Equal(t, 2*time.Second, cfg.Broadcast.WriteTimeout)
	assert.Equal(t, 8, cfg.Broadcast.MaxParallel)
	assert.Equal(t, "calm", cfg.Modes.Initial)
	assert.Equal(t, map[string]string{"calm": "Speak softly.", "default": "Be yourself."}, cfg.Modes.Catalogue)
}

func TestLoad_APIKeyEnv(t *testing.T) {
	t.Setenv(config.APIKeyEnv, "from-env")
	path := writeFile(t, "llm:\n  provider: gemini\n  model: gemini-2.0-flash\n  api_key: from-file\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
}

func TestLoad_APIKeyReference(t *testing.T) {
	t.Setenv(config.APIKeyEnv, "")
	t.Setenv("MY_GEMINI_KEY", "secret")
	path := writeFile(t, "llm:\n  provider: gemini\n  model: gemini-2.0-flash\n  api_key: $MY_GEMINI_KEY\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.LLM.APIKey)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv(config.APIKeyEnv, "")
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown provider", content: "llm:\n  provider: llamafile\n"},
		{name: "gemini without key", content: "llm:\n  provider: gemini\n  model: m\n"},
		{name: "zero short term", content: "memory:\n  short_term_size: 0\n"},
		{name: "negative recall", content: "memory:\n  recall: -1\n"},
		{name: "empty addr", content: "server:\n  addr: \"\"\n"},
		{name: "malformed yaml", content: "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeFile(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
