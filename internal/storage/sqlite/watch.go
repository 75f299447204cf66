package sqlite

import (
	"context"
	"sync"

	"github.com/si14444/roomie-backend/internal/models"
	"github.com/si14444/roomie-backend/internal/storage"
)

// SubscribeBills registers a subscriber for a team's bill collection.
// The current snapshot is delivered inline, before SubscribeBills
// returns; after that, one snapshot follows every committed change.
// Delivery is per-subscriber in commit order; if a subscriber lags,
// intermediate snapshots are coalesced and only the most recent one is
// delivered.
func (s *SQLiteStore) SubscribeBills(teamID string, onSnapshot func([]models.Bill), onError func(error)) (storage.UnsubscribeFunc, error) {
	// Registration, the initial load, and the inline first delivery are
	// serialized with commit fanout under publishMu, keeping the first
	// snapshot ordered ahead of any concurrent commit's.
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	bills, err := s.ListBills(context.Background(), teamID)
	if err != nil {
		return nil, err
	}
	w := s.watchers.add(teamID, onSnapshot, onError)
	onSnapshot(bills)

	return func() { s.watchers.remove(w.id) }, nil
}

// publishSnapshot loads the team's current bill set after a commit and
// fans it out to every subscriber for that team. The load and fan-out are
// serialized so snapshots reach each subscriber in commit order.
func (s *SQLiteStore) publishSnapshot(teamID string) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	targets := s.watchers.forTeam(teamID)
	if len(targets) == 0 {
		return
	}

	bills, err := s.ListBills(context.Background(), teamID)
	if err != nil {
		for _, w := range targets {
			w.fail(err)
		}
		return
	}
	for _, w := range targets {
		w.push(bills)
	}
}

type watcher struct {
	id         int
	teamID     string
	onSnapshot func([]models.Bill)
	onError    func(error)

	// ch carries at most one pending snapshot; a newer snapshot
	// replaces an undelivered older one.
	ch   chan []models.Bill
	done chan struct{}
	once sync.Once
}

func (w *watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case bills := <-w.ch:
			w.onSnapshot(bills)
		}
	}
}

func (w *watcher) push(bills []models.Bill) {
	for {
		select {
		case w.ch <- bills:
			return
		case <-w.done:
			return
		default:
		}
		// Channel full: discard the stale pending snapshot and retry.
		select {
		case <-w.ch:
		default:
		}
	}
}

func (w *watcher) fail(err error) {
	select {
	case <-w.done:
	default:
		w.onError(err)
	}
}

func (w *watcher) stop() {
	w.once.Do(func() { close(w.done) })
}

type watcherRegistry struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]*watcher
}

func newWatcherRegistry() *watcherRegistry {
	return &watcherRegistry{byID: make(map[int]*watcher)}
}

func (r *watcherRegistry) add(teamID string, onSnapshot func([]models.Bill), onError func(error)) *watcher {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	w := &watcher{
		id:         r.nextID,
		teamID:     teamID,
		onSnapshot: onSnapshot,
		onError:    onError,
		ch:         make(chan []models.Bill, 1),
		done:       make(chan struct{}),
	}
	r.byID[w.id] = w
	go w.run()
	return w
}

func (r *watcherRegistry) remove(id int) {
	r.mu.Lock()
	w, ok := r.byID[id]
	delete(r.byID, id)
	r.mu.Unlock()
	if ok {
		w.stop()
	}
}

func (r *watcherRegistry) forTeam(teamID string) []*watcher {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*watcher
	for _, w := range r.byID {
		if w.teamID == teamID {
			out = append(out, w)
		}
	}
	return out
}

func (r *watcherRegistry) closeAll() {
	r.mu.Lock()
	watchers := make([]*watcher, 0, len(r.byID))
	for _, w := range r.byID {
		watchers = append(watchers, w)
	}
	r.byID = make(map[int]*watcher)
	r.mu.Unlock()

	for _, w := range watchers {
		w.stop()
	}
}
