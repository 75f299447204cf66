package models

import "time"

// Event is a discrete lifecycle fact about a bill. The set of variants is
// closed: each operation on the lifecycle manager emits exactly one kind,
// and each kind carries only the fields it needs.
type Event interface {
	// EventName returns the stable name of the event kind for logging.
	EventName() string
}

// BillAddedEvent is emitted when a new bill is persisted.
type BillAddedEvent struct {
	Bill *Bill
}

func (BillAddedEvent) EventName() string { return "bill_added" }

// BillSettledEvent is emitted exactly once, at the moment the last unpaid
// member's share becomes paid (whether by a single toggle or a bulk
// mark-as-paid).
type BillSettledEvent struct {
	Bill *Bill
}

func (BillSettledEvent) EventName() string { return "bill_settled" }

// DueDateExtendedEvent is emitted when a bill's due date is pushed out.
type DueDateExtendedEvent struct {
	Bill       *Bill
	OldDueDate time.Time
	NewDueDate time.Time
}

func (DueDateExtendedEvent) EventName() string { return "due_date_extended" }

// BillDeletedEvent is emitted after a bill's document has been removed.
// It carries a snapshot of the deleted bill, since the document no longer
// exists in the store.
type BillDeletedEvent struct {
	Bill *Bill
}

func (BillDeletedEvent) EventName() string { return "bill_deleted" }
