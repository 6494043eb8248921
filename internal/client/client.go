// Package client is a websocket client for the relay, used by the
// interactive CLI and the end-to-end tests.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/omochice/alisa-relay/pkg/protocol"
)

// ErrNotConnected is returned when sending without a connection.
var ErrNotConnected = errors.New("client: not connected to server")

// ErrDisconnected is returned by Collect when the connection ends before
// the reply does.
var ErrDisconnected = errors.New("client: disconnected")

// Reply is the outcome of one exchange, collected up to its end frame.
type Reply struct {
	Tokens      []string
	Emotion     string
	ModeChanged bool
	Err         string
}

// Text returns the tokens joined together.
func (r Reply) Text() string {
	return strings.Join(r.Tokens, "")
}

// Client talks to the relay over a websocket connection.
type Client struct {
	address string
	logger  *zap.Logger

	mu         sync.RWMutex
	wmu        sync.Mutex
	conn       *websocket.Conn
	frames     chan protocol.Outbound
	done       chan struct{}
	doneOnce   sync.Once
	wg         sync.WaitGroup
	isShutdown bool
}

// New creates a client for a ws:// URL such as ws://localhost:8000/ws/chat.
func New(address string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		address: address,
		logger:  logger.Named("client"),
		frames:  make(chan protocol.Outbound, 64),
		done:    make(chan struct{}),
	}
}

// Connect dials the relay and starts receiving frames.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.address, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.wg.Add(1)
	go c.receive(conn)
	return nil
}

// Disconnect closes the connection and waits for the receiver to stop.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.isShutdown {
		c.mu.Unlock()
		return
	}
	c.isShutdown = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		c.wmu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteMessage(websocket.CloseMessage, msg)
		c.wmu.Unlock()
		conn.Close()
	}
	c.doneOnce.Do(func() { close(c.done) })
	c.wg.Wait()
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// Send sends one text frame.
func (c *Client) Send(text string) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SetMode asks the relay to switch modes.
func (c *Client) SetMode(name string) error {
	return c.Send(protocol.ModeCommandPrefix + " " + name)
}

// ReportPresence sends a presence signal.
func (c *Client) ReportPresence(state string) error {
	return c.Send(protocol.PresencePrefix + state)
}

// Frames returns the received frames. The channel is closed when the
// connection ends.
func (c *Client) Frames() <-chan protocol.Outbound {
	return c.frames
}

// Collect gathers frames until an end frame. Every token is passed to
// onToken, if set, as it arrives.
func (c *Client) Collect(ctx context.Context, onToken func(string)) (Reply, error) {
	var r Reply
	for {
		select {
		case <-ctx.Done():
			return r, ctx.Err()
		case f, ok := <-c.frames:
			if !ok {
				return r, ErrDisconnected
			}
			switch f.Kind {
			case protocol.OutboundToken:
				r.Tokens = append(r.Tokens, f.Text)
				if onToken != nil {
					onToken(f.Text)
				}
			case protocol.OutboundEmotion:
				r.Emotion = f.Text
			case protocol.OutboundModeChanged:
				r.ModeChanged = true
			case protocol.OutboundError:
				r.Err = f.Text
			case protocol.OutboundEnd:
				return r, nil
			}
		}
	}
}

// Ask sends text and collects the reply.
func (c *Client) Ask(ctx context.Context, text string) (Reply, error) {
	if err := c.Send(text); err != nil {
		return Reply{}, err
	}
	return c.Collect(ctx, nil)
}

func (c *Client) receive(conn *websocket.Conn) {
	defer c.wg.Done()
	defer close(c.frames)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("connection closed", zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		select {
		case c.frames <- protocol.ParseOutbound(data):
		case <-c.done:
			return
		}
	}
}
