// Package presence remembers what the vision process last reported about
// the user in front of the camera.
package presence

import (
	"sync"
	"time"

	"github.com/omochice/alisa-relay/internal/chat"
)

// States reported by the vision process. A detected face emotion may be
// reported instead of any of these.
const (
	Present    = "present"
	Absent     = "absent"
	Focused    = "focused"
	Distracted = "distracted"
)

// Tracker holds the latest presence report. A report older than the
// tracker's TTL is treated as unknown.
type Tracker struct {
	mu    sync.RWMutex
	state string
	at    time.Time
	ttl   time.Duration
	now   func() time.Time
}

var _ chat.Presence = (*Tracker)(nil)

// NewTracker creates a Tracker. A zero ttl keeps reports forever.
func NewTracker(ttl time.Duration) *Tracker {
	return &Tracker{ttl: ttl, now: time.Now}
}

func (t *Tracker) Update(state string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
	t.at = t.now()
}

// Current returns the latest state, or "" when nothing recent is known.
func (t *Tracker) Current() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.ttl > 0 && t.now().Sub(t.at) > t.ttl {
		return ""
	}
	return t.state
}
