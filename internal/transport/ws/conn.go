// Package ws serves the relay over websockets using gobwas/ws.
package ws

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"

	"github.com/omochice/alisa-relay/internal/chat"
)

// closeTimeout bounds the close handshake frame.
const closeTimeout = time.Second

// Conn adapts a server-side gobwas websocket connection to chat.Conn.
// Frames are text messages; writes are serialized.
type Conn struct {
	id     string
	conn   net.Conn
	src    io.Reader
	remote string

	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

var _ chat.Conn = (*Conn)(nil)

// NewConn wraps an upgraded connection. src is where frames are read from;
// pass the upgrade's buffered reader when it holds data, else nil.
func NewConn(conn net.Conn, src io.Reader) *Conn {
	if src == nil {
		src = conn
	}
	return &Conn{
		id:     uuid.NewString(),
		conn:   conn,
		src:    src,
		remote: conn.RemoteAddr().String(),
	}
}

func (c *Conn) ID() string { return c.id }

// Read returns the next data message. Control frames are answered on the
// way. A close frame or EOF from the peer yields io.EOF; a cancelled ctx
// yields ctx.Err().
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	if err := c.conn.SetReadDeadline(time.Time{}); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	data, _, err := wsutil.ReadClientData(readWriter{c})
	if err == nil {
		return data, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	var closed wsutil.ClosedError
	if errors.As(err, &closed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, io.EOF
	}
	return nil, err
}

// Write sends data as one text message. ctx's deadline bounds the write.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetWriteDeadline(time.Now())
	})
	defer stop()

	if err := wsutil.WriteServerText(c.conn, data); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Close sends a normal close frame and closes the socket. Only the first
// call has an effect.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.wmu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(closeTimeout))
		body := ws.NewCloseFrameBody(ws.StatusNormalClosure, "")
		_ = wsutil.WriteServerMessage(c.conn, ws.OpClose, body)
		c.wmu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *Conn) RemoteAddr() string {
	return c.remote
}

// readWriter lets wsutil answer pings and close frames through the write
// lock while reading.
type readWriter struct {
	c *Conn
}

func (rw readWriter) Read(p []byte) (int, error) {
	return rw.c.src.Read(p)
}

func (rw readWriter) Write(p []byte) (int, error) {
	rw.c.wmu.Lock()
	defer rw.c.wmu.Unlock()
	return rw.c.conn.Write(p)
}
