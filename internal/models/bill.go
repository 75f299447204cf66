package models

import (
	"time"
)

// Category classifies a bill for display and notification grouping.
type Category string

const (
	CategoryUtility      Category = "utility"
	CategoryRent         Category = "rent"
	CategoryInternet     Category = "internet"
	CategorySubscription Category = "subscription"
	CategoryOther        Category = "other"
)

// Valid reports whether the category is one of the closed set.
func (c Category) Valid() bool {
	switch c {
	case CategoryUtility, CategoryRent, CategoryInternet, CategorySubscription, CategoryOther:
		return true
	}
	return false
}

// SplitType selects how a bill's amount is divided among team members.
type SplitType string

const (
	// SplitEqual divides the amount evenly, distributing any remainder
	// one minor unit at a time in ascending member-id order.
	SplitEqual SplitType = "equal"

	// SplitCustom uses the bill's CustomSplit map verbatim.
	SplitCustom SplitType = "custom"
)

// PaymentRecord tracks one member's payment state on a bill.
type PaymentRecord struct {
	Paid   bool       `json:"paid"`
	PaidAt *time.Time `json:"paidAt"`
}

// Bill represents a shared expense owed collectively by a team and split
// among its members.
//
// Amounts are integer minor currency units (e.g. cents) to avoid float
// drift; display conversion to major units is a presentation concern.
type Bill struct {
	// ID is the unique identifier for the bill (UUID format), assigned
	// at creation and immutable after.
	ID string `json:"id"`

	// TeamID is the team whose bill collection owns this document.
	TeamID string `json:"teamId"`

	// Name is the human-readable name for the bill. Never empty.
	Name string `json:"name"`

	// Amount is the total owed, in minor units. Always positive and
	// fixed at creation.
	Amount int64 `json:"amount"`

	// AccountNumber and Bank are optional free-text payee routing info.
	AccountNumber string `json:"accountNumber,omitempty"`
	Bank          string `json:"bank,omitempty"`

	Category  Category  `json:"category"`
	SplitType SplitType `json:"splitType"`

	// CustomSplit maps member id to owed minor units. Present iff
	// SplitType is SplitCustom; its values sum exactly to Amount
	// (validated at creation).
	CustomSplit map[string]int64 `json:"customSplit,omitempty"`

	// DueDate is mutable only through the due-date extension operation.
	DueDate time.Time `json:"dueDate"`

	// CreatedBy is the member id of the creator. Immutable.
	CreatedBy string `json:"createdBy"`

	// Payments holds one entry per team member as of creation time.
	// Membership is frozen at creation: members joining later owe
	// nothing retroactively.
	Payments map[string]PaymentRecord `json:"payments"`

	// CreatedAt is the immutable creation timestamp.
	CreatedAt time.Time `json:"createdAt"`
}

// FullyPaid reports whether every member's share has been marked paid.
func (b *Bill) FullyPaid() bool {
	for _, p := range b.Payments {
		if !p.Paid {
			return false
		}
	}
	return len(b.Payments) > 0
}

// Overdue reports whether the bill is past due and still unpaid. This is
// derived state, computed against the caller's clock, never stored.
func (b *Bill) Overdue(now time.Time) bool {
	return b.DueDate.Before(now) && !b.FullyPaid()
}

// Clone returns a deep copy so callers can hand out bills without
// aliasing the Payments and CustomSplit maps.
func (b *Bill) Clone() *Bill {
	c := *b
	if b.Payments != nil {
		c.Payments = make(map[string]PaymentRecord, len(b.Payments))
		for id, p := range b.Payments {
			if p.PaidAt != nil {
				at := *p.PaidAt
				p.PaidAt = &at
			}
			c.Payments[id] = p
		}
	}
	if b.CustomSplit != nil {
		c.CustomSplit = make(map[string]int64, len(b.CustomSplit))
		for id, v := range b.CustomSplit {
			c.CustomSplit[id] = v
		}
	}
	return &c
}
