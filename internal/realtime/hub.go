package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/si14444/roomie-backend/internal/storage"
	"github.com/si14444/roomie-backend/internal/team"
)

// Hub hands out per-team adapters with an explicit acquire/release
// lifecycle. The first acquire for a team starts its subscription; the
// last release tears it down. This keeps shared bill caches owned here
// instead of in an ambient singleton mutated from arbitrary call sites.
type Hub struct {
	store storage.Store
	teams team.Directory
	clock func() time.Time

	mu      sync.Mutex
	entries map[string]*hubEntry
}

type hubEntry struct {
	adapter *Adapter
	refs    int
}

// NewHub creates a Hub. A nil clock defaults to time.Now.
func NewHub(store storage.Store, teams team.Directory, clock func() time.Time) *Hub {
	return &Hub{
		store:   store,
		teams:   teams,
		clock:   clock,
		entries: make(map[string]*hubEntry),
	}
}

// Acquire returns the live adapter for a team, starting one if none is
// running. The returned release func must be called when the caller is
// done; the adapter shuts down when its last holder releases it.
func (h *Hub) Acquire(ctx context.Context, teamID string) (*Adapter, func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.entries[teamID]
	if !ok {
		adapter := NewAdapter(h.store, h.teams, teamID, h.clock)
		if err := adapter.Start(ctx); err != nil {
			return nil, nil, err
		}
		entry = &hubEntry{adapter: adapter}
		h.entries[teamID] = entry
	}
	entry.refs++

	var once sync.Once
	release := func() {
		once.Do(func() { h.release(teamID) })
	}
	return entry.adapter, release, nil
}

func (h *Hub) release(teamID string) {
	h.mu.Lock()
	entry, ok := h.entries[teamID]
	if !ok {
		h.mu.Unlock()
		return
	}
	entry.refs--
	if entry.refs > 0 {
		h.mu.Unlock()
		return
	}
	delete(h.entries, teamID)
	h.mu.Unlock()

	entry.adapter.Close()
}

// Close shuts down every live adapter.
func (h *Hub) Close() {
	h.mu.Lock()
	entries := h.entries
	h.entries = make(map[string]*hubEntry)
	h.mu.Unlock()

	for _, entry := range entries {
		entry.adapter.Close()
	}
}
