// Package service implements the bill lifecycle manager: the sole local
// mutator of bill state. Every operation validates input, re-checks
// permissions authoritatively against current store state, and expresses
// its mutation as a store transaction; the local view catches up through
// the real-time subscription once the store confirms.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/si14444/roomie-backend/internal/calculator"
	"github.com/si14444/roomie-backend/internal/models"
	"github.com/si14444/roomie-backend/internal/permissions"
	"github.com/si14444/roomie-backend/internal/storage"
	"github.com/si14444/roomie-backend/internal/team"
)

// EventSink receives lifecycle events after the store has confirmed the
// corresponding mutation.
type EventSink interface {
	Publish(ctx context.Context, event models.Event)
}

// BillService owns bill creation, payment toggling, due-date extension,
// and deletion.
type BillService struct {
	store  storage.Store
	teams  team.Directory
	events EventSink
	clock  func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewBillService creates a BillService. A nil clock defaults to time.Now.
func NewBillService(store storage.Store, teams team.Directory, events EventSink, clock func() time.Time) *BillService {
	if clock == nil {
		clock = time.Now
	}
	return &BillService{
		store:    store,
		teams:    teams,
		events:   events,
		clock:    clock,
		inFlight: make(map[string]struct{}),
	}
}

// AddBillInput is the caller-supplied portion of a new bill.
type AddBillInput struct {
	Name          string
	Amount        int64
	AccountNumber string
	Bank          string
	Category      models.Category
	SplitType     models.SplitType
	CustomSplit   map[string]int64
	DueDate       time.Time
}

// AddBill validates the input, seeds one payment entry per current team
// member, persists the bill, and emits a bill-added event.
func (s *BillService) AddBill(ctx context.Context, teamID string, actor models.TeamMember, input AddBillInput) (*models.Bill, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	if input.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %d", ErrValidation, input.Amount)
	}
	if !input.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrValidation, input.Category)
	}
	if input.SplitType != models.SplitEqual && input.SplitType != models.SplitCustom {
		return nil, fmt.Errorf("%w: unknown split type %q", ErrValidation, input.SplitType)
	}
	if input.DueDate.IsZero() {
		return nil, fmt.Errorf("%w: due date is required", ErrValidation)
	}

	members, err := s.teams.GetTeamMembers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load team %s: %w", teamID, err)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: team %s has no members", calculator.ErrInvalidSplit, teamID)
	}
	if _, ok := team.MemberByID(members, actor.ID); !ok {
		return nil, fmt.Errorf("%w: %s is not on team %s", ErrPermissionDenied, actor.ID, teamID)
	}

	memberIDs := make([]string, len(members))
	for i, m := range members {
		memberIDs[i] = m.ID
	}

	var customSplit map[string]int64
	if input.SplitType == models.SplitCustom {
		if err := calculator.ValidateCustomSplit(input.CustomSplit, input.Amount, memberIDs); err != nil {
			return nil, err
		}
		customSplit = make(map[string]int64, len(input.CustomSplit))
		for id, share := range input.CustomSplit {
			customSplit[id] = share
		}
	}

	payments := make(map[string]models.PaymentRecord, len(members))
	for _, m := range members {
		payments[m.ID] = models.PaymentRecord{}
	}

	bill := &models.Bill{
		TeamID:        teamID,
		Name:          strings.TrimSpace(input.Name),
		Amount:        input.Amount,
		AccountNumber: input.AccountNumber,
		Bank:          input.Bank,
		Category:      input.Category,
		SplitType:     input.SplitType,
		CustomSplit:   customSplit,
		DueDate:       input.DueDate,
		CreatedBy:     actor.ID,
		Payments:      payments,
		CreatedAt:     s.clock().UTC(),
	}

	if err := s.store.CreateBill(ctx, bill); err != nil {
		return nil, fmt.Errorf("failed to persist bill: %w", err)
	}

	slog.Info("Bill created",
		"bill_id", bill.ID,
		"team_id", teamID,
		"amount", bill.Amount,
		"split_type", bill.SplitType,
		"created_by", actor.ID,
	)
	s.events.Publish(ctx, models.BillAddedEvent{Bill: bill.Clone()})
	return bill, nil
}

// TogglePayment flips one member's paid flag. The write is a targeted
// field update on payments.<memberId>, so two members toggling their own
// entries concurrently never overwrite each other. If the toggle settles
// the bill, a settled event is emitted exactly once, at the transition.
func (s *BillService) TogglePayment(ctx context.Context, teamID, billID, memberID string, actor models.TeamMember) (*models.Bill, error) {
	release, err := s.begin(billID)
	if err != nil {
		return nil, err
	}
	defer release()

	bill, err := s.loadTeamBill(ctx, teamID, billID)
	if err != nil {
		return nil, err
	}

	payment, ok := bill.Payments[memberID]
	if !ok {
		return nil, fmt.Errorf("%w: member %s is not on bill %s", ErrValidation, memberID, billID)
	}
	if !permissions.CanEditPayment(actor, bill, memberID) {
		return nil, fmt.Errorf("%w: %s may not toggle payment of %s", ErrPermissionDenied, actor.ID, memberID)
	}

	wasSettled := bill.FullyPaid()

	record := models.PaymentRecord{Paid: !payment.Paid}
	if record.Paid {
		now := s.clock().UTC()
		record.PaidAt = &now
	}

	if err := s.store.UpdateBillField(ctx, billID, "payments."+memberID, record); err != nil {
		return nil, err
	}
	bill.Payments[memberID] = record

	if !wasSettled && bill.FullyPaid() {
		slog.Info("Bill settled", "bill_id", billID, "last_paid_by", memberID)
		s.events.Publish(ctx, models.BillSettledEvent{Bill: bill.Clone()})
	}
	return bill, nil
}

// MarkBillAsPaid settles every member's share in one whole-document
// transaction. Requires bill-level edit permission: this is a bulk
// override, not self-service marking.
func (s *BillService) MarkBillAsPaid(ctx context.Context, teamID, billID string, actor models.TeamMember) (*models.Bill, error) {
	release, err := s.begin(billID)
	if err != nil {
		return nil, err
	}
	defer release()

	bill, err := s.loadTeamBill(ctx, teamID, billID)
	if err != nil {
		return nil, err
	}
	if !permissions.CanEditBill(actor, bill) {
		return nil, fmt.Errorf("%w: %s may not mark bill %s paid", ErrPermissionDenied, actor.ID, billID)
	}

	if bill.FullyPaid() {
		// Already settled; nothing to write and no second event.
		return bill, nil
	}

	now := s.clock().UTC()
	for id, payment := range bill.Payments {
		if payment.Paid {
			continue
		}
		at := now
		bill.Payments[id] = models.PaymentRecord{Paid: true, PaidAt: &at}
	}

	if err := s.store.ReplaceBillDocument(ctx, bill); err != nil {
		return nil, err
	}

	slog.Info("Bill settled", "bill_id", billID, "marked_by", actor.ID)
	s.events.Publish(ctx, models.BillSettledEvent{Bill: bill.Clone()})
	return bill, nil
}

// ExtendDueDate advances the due date by exactly seven calendar days from
// its current value, not from now, so repeated extensions accumulate
// instead of resetting.
func (s *BillService) ExtendDueDate(ctx context.Context, teamID, billID string, actor models.TeamMember) (*models.Bill, error) {
	release, err := s.begin(billID)
	if err != nil {
		return nil, err
	}
	defer release()

	bill, err := s.loadTeamBill(ctx, teamID, billID)
	if err != nil {
		return nil, err
	}
	if !permissions.CanEditBill(actor, bill) {
		return nil, fmt.Errorf("%w: %s may not extend bill %s", ErrPermissionDenied, actor.ID, billID)
	}

	oldDue := bill.DueDate
	bill.DueDate = oldDue.AddDate(0, 0, 7)

	if err := s.store.ReplaceBillDocument(ctx, bill); err != nil {
		return nil, err
	}

	slog.Info("Due date extended",
		"bill_id", billID,
		"old_due", oldDue.Format(time.DateOnly),
		"new_due", bill.DueDate.Format(time.DateOnly),
	)
	s.events.Publish(ctx, models.DueDateExtendedEvent{
		Bill:       bill.Clone(),
		OldDueDate: oldDue,
		NewDueDate: bill.DueDate,
	})
	return bill, nil
}

// DeleteBill hard-deletes the bill. The permission re-check here is
// authoritative; the caller's UI having hidden the delete affordance is
// never trusted.
func (s *BillService) DeleteBill(ctx context.Context, teamID, billID string, actor models.TeamMember) error {
	release, err := s.begin(billID)
	if err != nil {
		return err
	}
	defer release()

	bill, err := s.loadTeamBill(ctx, teamID, billID)
	if err != nil {
		return err
	}
	if !permissions.CanDeleteBill(actor, bill) {
		return fmt.Errorf("%w: %s may not delete bill %s", ErrPermissionDenied, actor.ID, billID)
	}

	if err := s.store.DeleteBillDocument(ctx, billID); err != nil {
		return err
	}

	slog.Info("Bill deleted", "bill_id", billID, "deleted_by", actor.ID)
	s.events.Publish(ctx, models.BillDeletedEvent{Bill: bill})
	return nil
}

// loadTeamBill fetches a bill and verifies it belongs to the given team.
// A bill outside the actor's team reads as not found rather than leaking
// its existence.
func (s *BillService) loadTeamBill(ctx context.Context, teamID, billID string) (*models.Bill, error) {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if bill.TeamID != teamID {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, billID)
	}
	return bill, nil
}

// GetPaymentLink loads a bill and derives its payment-link data. Returns
// nil data when every member has already paid.
func (s *BillService) GetPaymentLink(ctx context.Context, teamID, billID string) (*PaymentLinkData, error) {
	bill, err := s.loadTeamBill(ctx, teamID, billID)
	if err != nil {
		return nil, err
	}
	return GetPaymentLinkData(bill)
}

// begin acquires the per-bill mutation guard. At most one mutation per
// bill may be outstanding; a second attempt fails with
// ErrMutationInFlight instead of queueing.
func (s *BillService) begin(billID string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[billID]; busy {
		return nil, fmt.Errorf("%w %s", ErrMutationInFlight, billID)
	}
	s.inFlight[billID] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inFlight, billID)
		s.mu.Unlock()
	}, nil
}

// MemberShare is one unpaid member's owed amount on a bill.
type MemberShare struct {
	MemberID string
	Amount   int64
}

// PaymentLinkData describes an external payment request for a bill's
// outstanding shares.
type PaymentLinkData struct {
	BillID       string
	BillName     string
	UnpaidShares []MemberShare
}

// GetPaymentLinkData returns the unpaid members and their owed amounts
// for generating an external payment request, or nil if every member has
// already paid. Pure: it never mutates payment state, and completing a
// transfer is never inferred from this call.
func GetPaymentLinkData(bill *models.Bill) (*PaymentLinkData, error) {
	var unpaid []MemberShare
	for id, payment := range bill.Payments {
		if payment.Paid {
			continue
		}
		share, err := calculator.SplitAmount(bill, id)
		if err != nil {
			return nil, err
		}
		unpaid = append(unpaid, MemberShare{MemberID: id, Amount: share})
	}
	if len(unpaid) == 0 {
		return nil, nil
	}
	sort.Slice(unpaid, func(i, j int) bool { return unpaid[i].MemberID < unpaid[j].MemberID })
	return &PaymentLinkData{
		BillID:       bill.ID,
		BillName:     bill.Name,
		UnpaidShares: unpaid,
	}, nil
}
