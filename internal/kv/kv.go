// Package kv is the byte store behind long-term memory. Keys are
// hierarchical paths such as {"memory", "00001697040000000000"} joined
// with ':' on disk, so a prefix scan over {"memory"} visits records in key
// order.
package kv

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("kv: not found")

// Separator joins key segments. Segments must not contain it.
const Separator byte = ':'

// Key is a hierarchical path.
type Key []string

func (k Key) String() string {
	return strings.Join(k, string(Separator))
}

// Entry is a key and its value.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is a key-value store with path keys.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key Key, value []byte) error

	// List yields the entries under prefix in ascending key order.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// ListReverse yields the entries under prefix in descending key order.
	ListReverse(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// BatchDelete removes keys atomically. Missing keys are ignored.
	BatchDelete(ctx context.Context, keys []Key) error

	Close() error
}

func encode(k Key) []byte {
	return []byte(k.String())
}

func decode(b []byte) Key {
	return Key(strings.Split(string(b), string(Separator)))
}

// scanPrefix is the byte prefix shared by every key under k. The trailing
// separator keeps {"a","b"} from matching "a:bc".
func scanPrefix(k Key) []byte {
	if len(k) == 0 {
		return nil
	}
	return append(encode(k), Separator)
}
