package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/omochice/alisa-relay/internal/emotion"
	"github.com/omochice/alisa-relay/pkg/protocol"
)

// Turn is one completed request/response cycle.
type Turn struct {
	Input   string
	Reply   string
	Emotion emotion.Label
	Text    string
	Tokens  int
}

// TurnError reports a turn abandoned because the generator failed.
// Partial holds the text relayed before the failure.
type TurnError struct {
	Partial string
	Err     error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("%v after %d bytes: %v", ErrGenerationFailed, len(e.Partial), e.Err)
}

func (e *TurnError) Unwrap() []error {
	return []error{ErrGenerationFailed, e.Err}
}

// TurnOptions configures a TurnExecutor.
type TurnOptions struct {
	// Recall is how many long-term memories feed the system prompt.
	Recall int
	// Timeout bounds generation. Zero means no bound.
	Timeout time.Duration
}

// TurnExecutor runs conversational turns: it builds the context, streams
// the generator's tokens to every connection, tags the reply and persists
// it.
type TurnExecutor struct {
	gen      Generator
	memory   MemoryStore
	prompts  PromptBuilder
	modes    ModeRegistry
	presence Presence
	bc       *Broadcaster
	opts     TurnOptions
	logger   *zap.Logger
}

// NewTurnExecutor creates a TurnExecutor. presence may be nil.
func NewTurnExecutor(gen Generator, memory MemoryStore, prompts PromptBuilder, modes ModeRegistry, presence Presence, bc *Broadcaster, opts TurnOptions, logger *zap.Logger) *TurnExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TurnExecutor{
		gen:      gen,
		memory:   memory,
		prompts:  prompts,
		modes:    modes,
		presence: presence,
		bc:       bc,
		opts:     opts,
		logger:   logger.Named("turn"),
	}
}

// Run executes one turn for input sent by origin. The user message must
// already be in short-term memory.
//
// The turn is detached from ctx cancellation: if origin disconnects, the
// remaining connections still receive the whole reply. The configured
// timeout bounds generation only; frames are bounded by the broadcaster's
// write timeout. A generator failure ends the turn with a *TurnError after
// an error frame and an end frame have been sent. Tokens relayed before
// the failure stay delivered.
func (e *TurnExecutor) Run(ctx context.Context, origin Conn, input string) (*Turn, error) {
	ctx = context.WithoutCancel(ctx)
	genCtx := ctx
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}
	logger := e.logger.With(zap.String("conn", origin.ID()))

	messages, err := e.buildContext(genCtx, logger)
	if err != nil {
		e.abort(ctx, origin, "turn failed")
		return nil, err
	}

	turn := &Turn{Input: input}
	var reply strings.Builder
	for tok, err := range e.gen.Stream(genCtx, messages) {
		if err != nil {
			logger.Warn("generation failed", zap.Int("tokens", turn.Tokens), zap.Error(err))
			e.abort(ctx, origin, "generation failed")
			return nil, &TurnError{Partial: reply.String(), Err: err}
		}
		if tok == "" {
			continue
		}
		reply.WriteString(tok)
		turn.Tokens++
		e.bc.Emit(ctx, origin, protocol.Token(tok))
	}

	turn.Reply = reply.String()
	res := emotion.Extract(turn.Reply)
	turn.Emotion, turn.Text = res.Label, res.Text

	if err := e.memory.Append(ctx, Message{Role: RoleAssistant, Content: turn.Text}); err != nil {
		logger.Error("failed to append reply to short-term memory", zap.Error(err))
	}
	if err := e.memory.Remember(ctx, Memory{Emotion: turn.Emotion, Text: turn.Text, At: time.Now()}); err != nil {
		logger.Error("failed to persist memory", zap.Error(err))
	}

	e.bc.Emit(ctx, origin, protocol.EmotionTag(turn.Emotion.String()))
	e.bc.Emit(ctx, origin, protocol.End())

	logger.Debug("turn complete",
		zap.Int("tokens", turn.Tokens),
		zap.String("emotion", turn.Emotion.String()))
	return turn, nil
}

// buildContext assembles the system prompt followed by the short-term history.
func (e *TurnExecutor) buildContext(ctx context.Context, logger *zap.Logger) ([]Message, error) {
	memories, err := e.memory.Recall(ctx, e.opts.Recall)
	if err != nil {
		logger.Warn("failed to recall memories", zap.Error(err))
		memories = nil
	}
	var presence string
	if e.presence != nil {
		presence = e.presence.Current()
	}
	system, err := e.prompts.Build(e.modes.Current(), memories, presence)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}
	history, err := e.memory.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, Message{Role: RoleSystem, Content: system})
	return append(messages, history...), nil
}

// abort tells every connection the turn is over without a reply.
func (e *TurnExecutor) abort(ctx context.Context, origin Conn, reason string) {
	e.bc.Emit(ctx, origin, protocol.Error(reason))
	e.bc.Emit(ctx, origin, protocol.End())
}
