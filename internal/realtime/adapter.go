// Package realtime mirrors the store's authoritative bill state into a
// local read model. The adapter owns the subscription for one team:
// every remote snapshot replaces the local bill set wholesale, statistics
// are recomputed on each change, and transient subscription failures are
// retried with backoff. The adapter never mutates bill fields itself;
// mutations flow through the lifecycle manager into store transactions
// and come back as confirmed snapshots.
package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/si14444/roomie-backend/internal/calculator"
	"github.com/si14444/roomie-backend/internal/models"
	"github.com/si14444/roomie-backend/internal/storage"
	"github.com/si14444/roomie-backend/internal/team"
)

// Snapshot is one consistent view of a team's bills and derived
// statistics.
type Snapshot struct {
	Bills      []models.Bill
	Statistics models.Statistics
}

// Adapter maintains the live read model for a single team.
type Adapter struct {
	store  storage.Store
	teams  team.Directory
	teamID string
	clock  func() time.Time

	cancel context.CancelFunc

	mu          sync.RWMutex
	bills       []models.Bill
	stats       models.Statistics
	members     []models.TeamMember
	unsubscribe storage.UnsubscribeFunc
	nextSub     int
	subs        map[int]chan Snapshot
}

// NewAdapter creates an adapter for one team. Call Start to begin
// mirroring and Close to tear the subscription down.
func NewAdapter(store storage.Store, teams team.Directory, teamID string, clock func() time.Time) *Adapter {
	if clock == nil {
		clock = time.Now
	}
	return &Adapter{
		store:  store,
		teams:  teams,
		teamID: teamID,
		clock:  clock,
		subs:   make(map[int]chan Snapshot),
	}
}

// Start subscribes to the store and begins applying snapshots. The
// store delivers the initial snapshot inline, so the adapter holds
// confirmed state by the time Start returns; later deliveries happen on
// the store's subscription goroutine.
func (a *Adapter) Start(ctx context.Context) error {
	members, err := a.teams.GetTeamMembers(ctx, a.teamID)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.members = members
	a.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	unsub, err := a.store.SubscribeBills(a.teamID, a.applySnapshot, func(err error) {
		a.handleSubscriptionError(runCtx, err)
	})
	if err != nil {
		cancel()
		return err
	}

	a.mu.Lock()
	a.unsubscribe = unsub
	a.mu.Unlock()
	return nil
}

// Close tears down the subscription and all watch channels.
func (a *Adapter) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	a.mu.Lock()
	unsub := a.unsubscribe
	a.unsubscribe = nil
	subs := a.subs
	a.subs = make(map[int]chan Snapshot)
	a.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	for _, ch := range subs {
		close(ch)
	}
}

// Snapshot returns the most recently confirmed bills and statistics.
func (a *Adapter) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Snapshot{Bills: cloneBills(a.bills), Statistics: a.stats}
}

// Watch registers a subscriber for future snapshots. The current
// snapshot is delivered immediately. The returned func unregisters; the
// channel is closed on unregister or adapter shutdown. A slow consumer
// sees coalesced snapshots, never a backlog.
func (a *Adapter) Watch() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	a.mu.Lock()
	a.nextSub++
	id := a.nextSub
	a.subs[id] = ch
	current := Snapshot{Bills: cloneBills(a.bills), Statistics: a.stats}
	a.mu.Unlock()

	ch <- current

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.mu.Lock()
			if _, ok := a.subs[id]; ok {
				delete(a.subs, id)
				close(ch)
			}
			a.mu.Unlock()
		})
	}
}

// applySnapshot replaces the local bill set wholesale and recomputes
// statistics. An out-of-order arrival self-heals because the next
// snapshot always carries the full current state.
func (a *Adapter) applySnapshot(bills []models.Bill) {
	members := a.refreshMembers()
	stats := calculator.Aggregate(bills, members, a.clock())

	a.mu.Lock()
	a.bills = bills
	a.stats = stats
	snapshot := Snapshot{Bills: cloneBills(bills), Statistics: stats}
	subs := make([]chan Snapshot, 0, len(a.subs))
	for _, ch := range a.subs {
		subs = append(subs, ch)
	}
	a.mu.Unlock()

	snapshotsApplied.WithLabelValues(a.teamID).Inc()
	billsCurrent.WithLabelValues(a.teamID).Set(float64(len(bills)))

	for _, ch := range subs {
		// Coalesce: replace an undelivered snapshot instead of blocking.
		select {
		case ch <- snapshot:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// refreshMembers re-reads the roster so statistics reflect current
// membership. A transient directory failure keeps the previous roster.
func (a *Adapter) refreshMembers() []models.TeamMember {
	members, err := a.teams.GetTeamMembers(context.Background(), a.teamID)
	if err != nil {
		slog.Warn("failed to refresh team roster", "team_id", a.teamID, "error", err)
		a.mu.RLock()
		defer a.mu.RUnlock()
		return a.members
	}
	a.mu.Lock()
	a.members = members
	a.mu.Unlock()
	return members
}

// handleSubscriptionError retries the subscription with exponential
// backoff until it succeeds or the adapter shuts down. Only subscription
// failures are retried; mutation failures surface to their callers once.
func (a *Adapter) handleSubscriptionError(ctx context.Context, cause error) {
	subscriptionErrors.WithLabelValues(a.teamID).Inc()
	slog.Warn("bill subscription failed, resubscribing", "team_id", a.teamID, "error", cause)

	go func() {
		backoff := 200 * time.Millisecond
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}

			unsub, err := a.store.SubscribeBills(a.teamID, a.applySnapshot, func(err error) {
				a.handleSubscriptionError(ctx, err)
			})
			if err == nil {
				a.mu.Lock()
				if ctx.Err() != nil {
					// The adapter closed while the subscribe call was in
					// flight; the new subscription has no owner to tear
					// it down later.
					a.mu.Unlock()
					unsub()
					return
				}
				old := a.unsubscribe
				a.unsubscribe = unsub
				a.mu.Unlock()
				if old != nil {
					old()
				}
				resubscribes.WithLabelValues(a.teamID).Inc()
				slog.Info("bill subscription restored", "team_id", a.teamID)
				return
			}

			slog.Warn("resubscribe attempt failed", "team_id", a.teamID, "error", err)
			if backoff < 5*time.Second {
				backoff *= 2
				if backoff > 5*time.Second {
					backoff = 5 * time.Second
				}
			}
		}
	}()
}

func cloneBills(bills []models.Bill) []models.Bill {
	out := make([]models.Bill, len(bills))
	for i := range bills {
		out[i] = *bills[i].Clone()
	}
	return out
}
