package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/omochice/alisa-relay/internal/chat"
	"github.com/omochice/alisa-relay/internal/kv"
)

// keyspace is the kv prefix of every long-term record.
var keyspace = kv.Key{"memory"}

// LongTerm persists memories in a kv.Store under keys ordered by time.
type LongTerm struct {
	store  kv.Store
	retain int
	logger *zap.Logger
}

// NewLongTerm creates a LongTerm over store. When retain is positive only
// the retain most recent records are kept.
func NewLongTerm(store kv.Store, retain int, logger *zap.Logger) *LongTerm {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LongTerm{store: store, retain: retain, logger: logger.Named("longterm")}
}

// Save persists m. A zero At is stamped with the current time.
func (l *LongTerm) Save(ctx context.Context, m chat.Memory) error {
	if m.At.IsZero() {
		m.At = time.Now()
	}
	data, err := marshalRecord(m)
	if err != nil {
		return err
	}
	if err := l.store.Set(ctx, recordKey(m.At), data); err != nil {
		return fmt.Errorf("memory: save: %w", err)
	}
	if l.retain > 0 {
		if err := l.prune(ctx); err != nil {
			l.logger.Warn("failed to prune long-term memory", zap.Error(err))
		}
	}
	return nil
}

// Recent returns up to n of the newest memories, oldest first.
func (l *LongTerm) Recent(ctx context.Context, n int) ([]chat.Memory, error) {
	if n <= 0 {
		return nil, nil
	}
	out := make([]chat.Memory, 0, n)
	for e, err := range l.store.ListReverse(ctx, keyspace) {
		if err != nil {
			return nil, fmt.Errorf("memory: recall: %w", err)
		}
		m, err := unmarshalRecord(e.Value)
		if err != nil {
			l.logger.Warn("skipping unreadable record", zap.Stringer("key", e.Key), zap.Error(err))
			continue
		}
		out = append(out, m)
		if len(out) == n {
			break
		}
	}
	slices.Reverse(out)
	return out, nil
}

func (l *LongTerm) prune(ctx context.Context) error {
	var stale []kv.Key
	seen := 0
	for e, err := range l.store.ListReverse(ctx, keyspace) {
		if err != nil {
			return err
		}
		seen++
		if seen > l.retain {
			stale = append(stale, e.Key)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	return l.store.BatchDelete(ctx, stale)
}

// recordKey orders by time; the uuid suffix separates records saved in the
// same nanosecond.
func recordKey(at time.Time) kv.Key {
	return kv.Key{keyspace[0], fmt.Sprintf("%020d", at.UnixNano()), uuid.NewString()}
}
