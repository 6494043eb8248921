package ws

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"go.uber.org/zap"

	"github.com/omochice/alisa-relay/internal/chat"
)

// Path is where clients connect.
const Path = "/ws/chat"

// Server accepts websocket connections and hands each to the relay.
type Server struct {
	address string
	relay   *chat.Relay
	logger  *zap.Logger

	listener net.Listener
	server   *http.Server

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// New creates a server for address that serves relay.
func New(address string, relay *chat.Relay, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		address: address,
		relay:   relay,
		logger:  logger.Named("ws"),
		ctx:     ctx,
		cancel:  cancel,
	}
	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.handleWebSocket)
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler serving Path.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start binds the listener and serves in the background. It returns once
// the address is bound.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	s.listener = listener
	s.logger.Info("websocket server started", zap.String("addr", listener.Addr().String()), zap.String("path", Path))

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve failed", zap.Error(err))
		}
	}()
	return nil
}

// Stop stops accepting, closes every connection and waits for the sessions
// to finish or ctx to expire.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	err := s.server.Shutdown(ctx)
	s.relay.Registry().CloseAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.logger.Info("websocket server stopped")
	return err
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.track() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	defer s.wg.Done()

	netConn, rw, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.logger.Debug("upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	// Deadlines left over from the HTTP server do not apply to the session.
	_ = netConn.SetDeadline(time.Time{})

	var src io.Reader
	if rw != nil && rw.Reader.Buffered() > 0 {
		src = rw.Reader
	}
	conn := NewConn(netConn, src)

	if err := s.relay.Handle(s.ctx, conn); err != nil {
		s.logger.Info("session ended", zap.String("conn", conn.ID()), zap.Error(err))
	}
}

// track registers a session with the wait group unless the server is
// stopping.
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.wg.Add(1)
	return true
}
