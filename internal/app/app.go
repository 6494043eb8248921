// Package app assembles the relay from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/omochice/alisa-relay/internal/chat"
	"github.com/omochice/alisa-relay/internal/config"
	"github.com/omochice/alisa-relay/internal/kv"
	"github.com/omochice/alisa-relay/internal/llm"
	"github.com/omochice/alisa-relay/internal/memory"
	"github.com/omochice/alisa-relay/internal/mode"
	"github.com/omochice/alisa-relay/internal/presence"
	"github.com/omochice/alisa-relay/internal/prompt"
	"github.com/omochice/alisa-relay/internal/transport/ws"
)

// App is a configured relay and its websocket server.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  kv.Store
	relay  *chat.Relay
	server *ws.Server
}

// New builds every component from cfg. Nothing listens until Start.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	gen, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}

	modes, err := mode.NewRegistry(catalogue(cfg.Modes), cfg.Modes.Initial)
	if err != nil {
		return nil, err
	}

	prompts, err := newPromptBuilder(cfg.Prompt)
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg.Memory, logger)
	if err != nil {
		return nil, err
	}

	mem := memory.NewStore(
		memory.NewBuffer(cfg.Memory.ShortTermSize),
		memory.NewLongTerm(store, cfg.Memory.Retain, logger),
	)
	tracker := presence.NewTracker(cfg.Presence.TTL)

	registry := chat.NewRegistry()
	bc := chat.NewBroadcaster(registry, chat.BroadcastOptions{
		WriteTimeout: cfg.Broadcast.WriteTimeout,
		MaxParallel:  cfg.Broadcast.MaxParallel,
	}, logger)
	turns := chat.NewTurnExecutor(gen, mem, prompts, modes, tracker, bc, chat.TurnOptions{
		Recall:  cfg.Memory.Recall,
		Timeout: cfg.Turn.Timeout,
	}, logger)
	relay := chat.NewRelay(registry, bc, turns, modes, mem, tracker, logger)

	logger.Info("relay configured",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
		zap.String("mode", modes.Current().Name),
		zap.Strings("modes", modes.Names()),
		zap.String("memory_dir", cfg.Memory.Dir))

	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
		relay:  relay,
		server: ws.New(cfg.Server.Addr, relay, logger),
	}, nil
}

// Relay returns the assembled relay.
func (a *App) Relay() *chat.Relay { return a.relay }

// Start begins serving.
func (a *App) Start() error {
	return a.server.Start()
}

// Addr returns the bound address once started.
func (a *App) Addr() string {
	return a.server.Addr()
}

// Stop shuts the server down and closes the memory store.
func (a *App) Stop(ctx context.Context) error {
	return errors.Join(a.server.Stop(ctx), a.store.Close())
}

func catalogue(m config.Modes) map[string]string {
	if len(m.Catalogue) > 0 {
		return m.Catalogue
	}
	return mode.Builtin
}

func newPromptBuilder(cfg config.Prompt) (*prompt.Builder, error) {
	opts := []prompt.Option{prompt.WithPersona(cfg.Persona)}
	if cfg.TemplateFile != "" {
		text, err := os.ReadFile(cfg.TemplateFile)
		if err != nil {
			return nil, fmt.Errorf("prompt template: %w", err)
		}
		opts = append(opts, prompt.WithTemplate(string(text)))
	}
	return prompt.New(opts...)
}

func openStore(cfg config.Memory, logger *zap.Logger) (kv.Store, error) {
	if cfg.Dir == "" {
		return kv.NewMemory(), nil
	}
	store, err := kv.NewBadger(kv.BadgerOptions{Dir: cfg.Dir, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}
	return store, nil
}
