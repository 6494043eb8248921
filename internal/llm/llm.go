// Package llm adapts text-generation backends to chat.Generator.
package llm

import (
	"context"
	"fmt"

	"github.com/omochice/alisa-relay/internal/chat"
	"github.com/omochice/alisa-relay/internal/config"
)

// New returns the generator for cfg.Provider.
func New(ctx context.Context, cfg config.LLM) (chat.Generator, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAI(cfg), nil
	case config.ProviderGemini:
		return NewGemini(ctx, cfg)
	case config.ProviderScript:
		return NewScript(cfg.Script), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
