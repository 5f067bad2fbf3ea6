// Package state holds the player state container: the loaded media, the
// committed source and stream, and playback progress. Writers go through the
// Set* methods; readers take a Snapshot or Subscribe to changes.
package state

import (
	"sync"

	"github.com/samber/mo"

	"reel/internal/media"
)

// Progress is the playback position in seconds.
type Progress struct {
	Time     float64
	Duration float64
}

// Snapshot is a copy of the store at one instant.
type Snapshot struct {
	Meta     mo.Option[media.Meta]
	SourceID mo.Option[string]
	Source   mo.Option[Source]
	Progress Progress
}

// Store is the process-wide player state. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	snap   Snapshot
	nextID int
	subs   map[int]func(Snapshot)
}

// New creates an empty store.
func New() *Store {
	return &Store{subs: make(map[int]func(Snapshot))}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// SetMeta loads new media. The committed source and progress belong to the
// previous media and are cleared.
func (s *Store) SetMeta(m media.Meta) {
	s.update(func(snap *Snapshot) {
		snap.Meta = mo.Some(m)
		snap.Source = mo.None[Source]()
		snap.Progress = Progress{}
	})
}

// SetSource commits a playable source and the position to start it at.
func (s *Store) SetSource(src Source, startAt float64) {
	s.update(func(snap *Snapshot) {
		snap.Source = mo.Some(src)
		snap.Progress.Time = max(startAt, 0)
	})
}

// SetSourceID records which source the committed stream came from.
func (s *Store) SetSourceID(id mo.Option[string]) {
	s.update(func(snap *Snapshot) { snap.SourceID = id })
}

// SetProgress records the playback position reported by the player.
func (s *Store) SetProgress(p Progress) {
	s.update(func(snap *Snapshot) {
		snap.Progress = Progress{Time: max(p.Time, 0), Duration: max(p.Duration, 0)}
	})
}

// Subscribe registers fn to be called with the new snapshot after every
// change. The returned func removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// update applies fn under the lock, then notifies subscribers outside it so
// a subscriber may read or write the store.
func (s *Store) update(fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.snap)
	snap := s.snap
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
}
