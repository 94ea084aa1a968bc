// Package session is the in-memory runtime state of live duels: the
// shared timer anchor and who is currently in the room. Nothing here
// is a source of truth for persisted facts — status and winner always
// go through the lifecycle manager into the record store.
package session

import (
	"sync"
	"time"

	"github.com/codeduels/duel-server/pkg/types"
)

// TimerAnchor is the {start, duration} pair every client derives the
// remaining countdown from. It is created exactly once per duel and
// never reset, so reconnects converge on the same clock.
type TimerAnchor struct {
	StartTime  int64 // unix milliseconds
	DurationMs int64
}

func (a TimerAnchor) Payload() types.TimerPayload {
	return types.TimerPayload{StartTime: a.StartTime, DurationMs: a.DurationMs}
}

type entry struct {
	anchor       *TimerAnchor
	participants map[string]types.Role
}

// Directory tracks per-duel runtime state. All access goes through the
// mutex; entries are created lazily on first join and dropped on
// terminate/complete.
type Directory struct {
	mu    sync.RWMutex
	duels map[string]*entry
}

func NewDirectory() *Directory {
	return &Directory{duels: make(map[string]*entry)}
}

func (d *Directory) ensure(duelID string) *entry {
	e, ok := d.duels[duelID]
	if !ok {
		e = &entry{participants: make(map[string]types.Role)}
		d.duels[duelID] = e
	}
	return e
}

// RecordJoin adds a participant under the given role. Joining twice
// with the same participant id is a no-op, so reconnects do not
// inflate the room count.
func (d *Directory) RecordJoin(duelID, participantID string, role types.Role) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := d.ensure(duelID)
	if _, ok := e.participants[participantID]; ok {
		return
	}
	e.participants[participantID] = role
}

// RecordLeave drops a participant. The timer anchor stays: a rejoin
// must see the same countdown.
func (d *Directory) RecordLeave(duelID, participantID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.duels[duelID]; ok {
		delete(e.participants, participantID)
	}
}

// RoomSize counts current participants holding the role.
func (d *Directory) RoomSize(duelID string, role types.Role) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.duels[duelID]
	if !ok {
		return 0
	}
	n := 0
	for _, r := range e.participants {
		if r == role {
			n++
		}
	}
	return n
}

// GetOrCreateTimer returns the duel's anchor, creating it at the
// current instant if none exists yet. The second return reports
// whether this call created it — the caller broadcasts only then.
func (d *Directory) GetOrCreateTimer(duelID string, durationMs int64) (TimerAnchor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := d.ensure(duelID)
	if e.anchor != nil {
		return *e.anchor, false
	}
	a := &TimerAnchor{StartTime: time.Now().UnixMilli(), DurationMs: durationMs}
	e.anchor = a
	return *a, true
}

// Timer returns the anchor if one exists, without creating it.
func (d *Directory) Timer(duelID string) (TimerAnchor, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if e, ok := d.duels[duelID]; ok && e.anchor != nil {
		return *e.anchor, true
	}
	return TimerAnchor{}, false
}

// Remove deletes all runtime state for the duel. Safe to call for ids
// that were never joined or already removed.
func (d *Directory) Remove(duelID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.duels, duelID)
}
