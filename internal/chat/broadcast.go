package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/omochice/alisa-relay/pkg/protocol"
)

// BroadcastOptions bounds a fan-out pass.
type BroadcastOptions struct {
	// WriteTimeout bounds each per-connection write. Zero means no bound
	// beyond the caller's context.
	WriteTimeout time.Duration

	// MaxParallel bounds the number of concurrent writes in one pass.
	// Zero or negative means one goroutine per connection.
	MaxParallel int
}

// Delivery reports the outcome of a SendAll pass.
type Delivery struct {
	// Sent is the number of connections the frame reached.
	Sent int
	// Dropped lists the IDs of connections removed after a failed write.
	Dropped []string
}

// Broadcaster delivers frames to registered connections and removes the
// ones that fail.
//
// Writes within one SendAll pass run concurrently so a stalled client
// delays the others by at most WriteTimeout. SendAll returns after every
// write of the pass has finished, which keeps frames in order per
// connection across successive calls.
type Broadcaster struct {
	registry *Registry
	opts     BroadcastOptions
	logger   *zap.Logger
}

// NewBroadcaster creates a Broadcaster over the registry.
func NewBroadcaster(registry *Registry, opts BroadcastOptions, logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{
		registry: registry,
		opts:     opts,
		logger:   logger.Named("broadcast"),
	}
}

// SendAll writes frame to every registered connection except exclude,
// which may be nil. A failed write never stops delivery to the others;
// failed connections are removed and closed once the pass is done.
func (b *Broadcaster) SendAll(ctx context.Context, frame protocol.Outbound, exclude Conn) Delivery {
	data := frame.Encode()

	var (
		mu     sync.Mutex
		sent   int
		failed []failure
	)

	var g errgroup.Group
	if b.opts.MaxParallel > 0 {
		g.SetLimit(b.opts.MaxParallel)
	}
	for _, c := range b.registry.Snapshot() {
		if exclude != nil && c.ID() == exclude.ID() {
			continue
		}
		g.Go(func() error {
			err := b.write(ctx, c, data)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, failure{conn: c, err: err})
			} else {
				sent++
			}
			return nil
		})
	}
	_ = g.Wait()

	d := Delivery{Sent: sent}
	for _, f := range failed {
		if b.drop(f.conn, f.err) {
			d.Dropped = append(d.Dropped, f.conn.ID())
		}
	}
	return d
}

// SendTo writes frame to a single connection. A connection that is no
// longer registered is skipped with ErrConnectionLost; a failed write
// removes the connection.
func (b *Broadcaster) SendTo(ctx context.Context, conn Conn, frame protocol.Outbound) error {
	if !b.registry.Contains(conn) {
		return fmt.Errorf("%w: %s not registered", ErrConnectionLost, conn.ID())
	}
	if err := b.write(ctx, conn, frame.Encode()); err != nil {
		b.drop(conn, err)
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	return nil
}

// Emit sends frame to origin first and then to everyone else. origin may
// be nil.
func (b *Broadcaster) Emit(ctx context.Context, origin Conn, frame protocol.Outbound) {
	if origin != nil {
		_ = b.SendTo(ctx, origin, frame)
	}
	b.SendAll(ctx, frame, origin)
}

type failure struct {
	conn Conn
	err  error
}

func (b *Broadcaster) write(ctx context.Context, conn Conn, data []byte) error {
	if b.opts.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.WriteTimeout)
		defer cancel()
	}
	return conn.Write(ctx, data)
}

// drop removes and closes a failed connection. It reports false when
// another caller already removed it.
func (b *Broadcaster) drop(conn Conn, cause error) bool {
	if !b.registry.Remove(conn) {
		return false
	}
	b.logger.Info("dropping connection after failed write",
		zap.String("conn", conn.ID()),
		zap.String("remote", conn.RemoteAddr()),
		zap.Error(cause))
	_ = conn.Close()
	return true
}
