// Package storage defines the abstract document store the bills core is
// written against. The store owns the authoritative copy of every bill;
// the rest of the system mirrors store state through subscriptions and
// mutates it only through the transaction primitives below.
package storage

import (
	"context"
	"errors"

	"github.com/si14444/roomie-backend/internal/models"
)

var (
	// ErrNotFound indicates the requested bill document does not exist.
	ErrNotFound = errors.New("bill not found")

	// ErrSync indicates a transient store failure: a broken subscription
	// or a failed transaction. Subscriptions retry with backoff; mutation
	// failures are surfaced once to the caller, never silently retried.
	ErrSync = errors.New("store sync failure")
)

// UnsubscribeFunc tears down one bill subscription. Safe to call more
// than once.
type UnsubscribeFunc func()

// Store is the document store contract for a team's bill collection.
//
// Snapshots delivered to subscribers arrive in the store's commit order
// and always carry the full bill set for the team; subscribers apply them
// by wholesale replacement, so a skipped intermediate snapshot self-heals
// when the next one arrives.
type Store interface {
	// CreateBill persists a new bill document. The bill's ID and
	// CreatedAt are populated by the store if unset.
	CreateBill(ctx context.Context, bill *models.Bill) error

	// GetBill retrieves the current document for one bill.
	// Returns ErrNotFound if the bill does not exist.
	GetBill(ctx context.Context, billID string) (*models.Bill, error)

	// ListBills retrieves all bill documents for a team.
	ListBills(ctx context.Context, teamID string) ([]models.Bill, error)

	// UpdateBillField applies a targeted update to a single dotted path
	// inside the bill document (e.g. "payments.<memberId>"), leaving
	// sibling fields untouched so concurrent updates to different
	// sub-keys do not clobber each other.
	UpdateBillField(ctx context.Context, billID, path string, value any) error

	// ReplaceBillDocument overwrites the whole bill document in a single
	// all-or-nothing transaction. Used for bulk settle and due-date
	// extension, which must not interleave with per-member toggles.
	ReplaceBillDocument(ctx context.Context, bill *models.Bill) error

	// DeleteBillDocument removes the bill document. Hard delete; there
	// is no tombstone.
	DeleteBillDocument(ctx context.Context, billID string) error

	// SubscribeBills registers a subscriber for a team's bill
	// collection. The current snapshot is delivered inline before
	// SubscribeBills returns, then one snapshot per committed change.
	// onError receives transient subscription failures.
	SubscribeBills(teamID string, onSnapshot func([]models.Bill), onError func(error)) (UnsubscribeFunc, error)

	// Close releases any resources held by the store.
	Close() error
}
