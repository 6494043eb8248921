package chat

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/omochice/alisa-relay/pkg/protocol"
)

// Relay wires the shared state every session works against. Both the
// websocket server and tests hand accepted connections to Handle.
type Relay struct {
	registry *Registry
	bc       *Broadcaster
	turns    *TurnExecutor
	modes    ModeRegistry
	memory   MemoryStore
	presence Presence
	logger   *zap.Logger
}

// NewRelay creates a Relay. presence may be nil, in which case presence
// reports are accepted and ignored.
func NewRelay(registry *Registry, bc *Broadcaster, turns *TurnExecutor, modes ModeRegistry, memory MemoryStore, presence Presence, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		registry: registry,
		bc:       bc,
		turns:    turns,
		modes:    modes,
		memory:   memory,
		presence: presence,
		logger:   logger.Named("session"),
	}
}

// Registry returns the relay's connection registry.
func (r *Relay) Registry() *Registry { return r.registry }

// Handle registers conn and runs its read loop until the peer disconnects,
// a read fails or ctx is done. Frames are handled one at a time, so a turn
// finishes before the next frame from the same connection is read.
//
// On return the connection is unregistered and closed. A clean disconnect
// returns nil; any other read failure returns an error wrapping
// ErrConnectionLost.
func (r *Relay) Handle(ctx context.Context, conn Conn) error {
	if err := r.registry.Add(conn); err != nil {
		return err
	}
	s := &session{
		relay:  r,
		conn:   conn,
		logger: r.logger.With(zap.String("conn", conn.ID()), zap.String("remote", conn.RemoteAddr())),
	}
	s.logger.Info("client connected", zap.Int("clients", r.registry.Count()))
	defer s.close()

	for {
		data, err := conn.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || !r.registry.Contains(conn) {
				return nil
			}
			return fmt.Errorf("%w: %v", ErrConnectionLost, err)
		}
		s.dispatch(ctx, string(data))
	}
}

// session is the state of one connection's read loop.
type session struct {
	relay  *Relay
	conn   Conn
	logger *zap.Logger
}

func (s *session) dispatch(ctx context.Context, text string) {
	in, err := protocol.ParseInbound(text)
	if err != nil {
		s.logger.Debug("rejected command", zap.Error(err))
		s.reply(ctx, protocol.Error(err.Error()), protocol.End())
		return
	}

	switch in.Kind {
	case protocol.InboundModeCommand:
		s.switchMode(ctx, in.Text)
	case protocol.InboundPresence:
		if p := s.relay.presence; p != nil {
			p.Update(in.Text)
		}
		s.logger.Debug("presence updated", zap.String("state", in.Text))
	default:
		s.converse(ctx, in.Text)
	}
}

func (s *session) switchMode(ctx context.Context, name string) {
	if err := s.relay.modes.Set(name); err != nil {
		s.logger.Debug("mode switch refused", zap.String("mode", name), zap.Error(err))
		s.reply(ctx, protocol.Error(err.Error()), protocol.End())
		return
	}
	s.logger.Info("mode changed", zap.String("mode", name))
	s.reply(ctx, protocol.ModeChanged(), protocol.End())
}

func (s *session) converse(ctx context.Context, text string) {
	if err := s.relay.memory.Append(ctx, Message{Role: RoleUser, Content: text}); err != nil {
		s.logger.Error("failed to append user turn", zap.Error(err))
	}
	if _, err := s.relay.turns.Run(ctx, s.conn, text); err != nil {
		s.logger.Warn("turn failed", zap.Error(err))
	}
}

// reply sends frames to this connection only.
func (s *session) reply(ctx context.Context, frames ...protocol.Outbound) {
	for _, f := range frames {
		if err := s.relay.bc.SendTo(ctx, s.conn, f); err != nil {
			s.logger.Debug("reply not delivered", zap.Error(err))
			return
		}
	}
}

func (s *session) close() {
	s.relay.registry.Remove(s.conn)
	_ = s.conn.Close()
	s.logger.Info("client disconnected", zap.Int("clients", s.relay.registry.Count()))
}
