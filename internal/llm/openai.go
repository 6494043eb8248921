package llm

import (
	"context"
	"fmt"
	"iter"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/omochice/alisa-relay/internal/chat"
	"github.com/omochice/alisa-relay/internal/config"
)

// OpenAI streams chat completions from the OpenAI API or any compatible
// server such as Ollama.
type OpenAI struct {
	client      openai.Client
	model       string
	maxTokens   int
	temperature float64
}

var _ chat.Generator = (*OpenAI)(nil)

// NewOpenAI creates an OpenAI generator. An empty API key falls back to the
// client library's OPENAI_API_KEY lookup.
func NewOpenAI(cfg config.LLM, opts ...option.RequestOption) *OpenAI {
	var reqOpts []option.RequestOption
	if cfg.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{
		client:      openai.NewClient(append(reqOpts, opts...)...),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

func (g *OpenAI) Stream(ctx context.Context, messages []chat.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		params := openai.ChatCompletionNewParams{
			Model:    g.model,
			Messages: openAIMessages(messages),
		}
		if g.maxTokens > 0 {
			params.MaxTokens = openai.Int(int64(g.maxTokens))
		}
		if g.temperature > 0 {
			params.Temperature = openai.Float(g.temperature)
		}

		stream := g.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			if s := chunk.Choices[0].Delta.Content; s != "" {
				if !yield(s, nil) {
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			yield("", fmt.Errorf("openai: %w", err))
		}
	}
}

func openAIMessages(messages []chat.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case chat.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case chat.RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case chat.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		}
	}
	return out
}
