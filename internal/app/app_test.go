package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/omochice/alisa-relay/internal/app"
	"github.com/omochice/alisa-relay/internal/client"
	"github.com/omochice/alisa-relay/internal/config"
	"github.com/omochice/alisa-relay/internal/transport/ws"
)

func scriptConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.LLM.Provider = config.ProviderScript
	cfg.LLM.Script.Replies = []string{"<emotion=calm> Take a breath."}
	return cfg
}

func run(t *testing.T, cfg *config.Config) *app.App {
	t.Helper()
	a, err := app.New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, a.Start())
	t.Cleanup(func() { _ = a.Stop(context.Background()) })
	return a
}

func TestApp_EndToEnd(t *testing.T) {
	cfg := scriptConfig(t)
	cfg.Memory.Dir = t.TempDir()
	a := run(t, cfg)

	c := client.New("ws://"+a.Addr()+ws.Path, nil)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reply, err := c.Ask(ctx, "I'm stressed")
	require.NoError(t, err)

	assert.Equal(t, "calm", reply.Emotion)
	assert.Equal(t, "<emotion=calm> Take a breath.", reply.Text())
}

func TestApp_CustomModesAndTemplate(t *testing.T) {
	cfg := scriptConfig(t)
	tmpl := filepath.Join(t.TempDir(), "system.gotmpl")
	require.NoError(t, os.WriteFile(tmpl, []byte("{{ .Mode.Name }}"), 0o600))
	cfg.Prompt.TemplateFile = tmpl
	cfg.Modes = config.Modes{Initial: "quiet", Catalogue: map[string]string{"quiet": "Whisper."}}

	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Stop(context.Background())
	assert.NotNil(t, a.Relay())
}

func TestApp_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "unknown provider", mutate: func(c *config.Config) { c.LLM.Provider = "nope" }},
		{name: "unknown initial mode", mutate: func(c *config.Config) { c.Modes.Initial = "grumpy" }},
		{name: "missing template", mutate: func(c *config.Config) { c.Prompt.TemplateFile = "/nonexistent/system.gotmpl" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := scriptConfig(t)
			tt.mutate(cfg)
			_, err := app.New(context.Background(), cfg, nil)
			assert.Error(t, err)
		})
	}
}
