// Package notify translates bill lifecycle events into notification
// creation requests for the notification collaborator. Whether a given
// member actually sees a notification is decided entirely by the
// collaborator's category preferences, not here.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/si14444/roomie-backend/internal/models"
)

// Type is the notification category understood by the collaborator.
type Type string

const (
	TypeBillAdded       Type = "bill_added"
	TypePaymentReceived Type = "payment_received"
	TypeBillPaymentDue  Type = "bill_payment_due"
)

// Notification is one notification-creation request.
type Notification struct {
	Title     string
	Message   string
	Type      Type
	RelatedID string
}

// Creator is the external notification collaborator contract.
type Creator interface {
	CreateNotification(ctx context.Context, n Notification) error
}

// Emitter maps lifecycle events onto notification requests.
type Emitter struct {
	creator Creator
}

// NewEmitter creates an Emitter delivering to the given collaborator.
func NewEmitter(creator Creator) *Emitter {
	return &Emitter{creator: creator}
}

// Publish converts one lifecycle event into a notification request.
// Creation failures are logged and do not propagate: losing a
// notification must never fail the financial mutation that produced it.
func (e *Emitter) Publish(ctx context.Context, event models.Event) {
	n, ok := e.translate(event)
	if !ok {
		slog.Warn("no notification mapping for event", "event", event.EventName())
		return
	}
	if err := e.creator.CreateNotification(ctx, n); err != nil {
		slog.Warn("failed to create notification",
			"event", event.EventName(),
			"type", n.Type,
			"related_id", n.RelatedID,
			"error", err,
		)
	}
}

func (e *Emitter) translate(event models.Event) (Notification, bool) {
	switch ev := event.(type) {
	case models.BillAddedEvent:
		return Notification{
			Title:     "New bill",
			Message:   fmt.Sprintf("%s was added (%d, due %s)", ev.Bill.Name, ev.Bill.Amount, ev.Bill.DueDate.Format("Jan 2")),
			Type:      TypeBillAdded,
			RelatedID: ev.Bill.ID,
		}, true
	case models.BillSettledEvent:
		return Notification{
			Title:     "Bill settled",
			Message:   fmt.Sprintf("Everyone has paid their share of %s", ev.Bill.Name),
			Type:      TypePaymentReceived,
			RelatedID: ev.Bill.ID,
		}, true
	case models.DueDateExtendedEvent:
		return Notification{
			Title:     "Due date extended",
			Message:   fmt.Sprintf("%s is now due %s", ev.Bill.Name, ev.NewDueDate.Format("Jan 2")),
			Type:      TypeBillPaymentDue,
			RelatedID: ev.Bill.ID,
		}, true
	case models.BillDeletedEvent:
		// Deletions share the bill-collection category with additions;
		// the collaborator's enumeration has no dedicated delete type.
		return Notification{
			Title:     "Bill removed",
			Message:   fmt.Sprintf("%s was deleted", ev.Bill.Name),
			Type:      TypeBillAdded,
			RelatedID: ev.Bill.ID,
		}, true
	}
	return Notification{}, false
}
