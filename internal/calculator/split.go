// Package calculator implements the pure money math for bills: per-member
// split amounts and cross-bill statistics. All amounts are integer minor
// currency units; every function here guarantees that member shares sum
// exactly to the bill total, with no rounding leftover.
package calculator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/si14444/roomie-backend/internal/models"
)

// ErrInvalidSplit indicates a split that cannot be computed: a member
// missing from a custom split, a custom split that does not sum to the
// bill amount, or a bill with no members at all.
var ErrInvalidSplit = errors.New("invalid split")

// SplitAmount returns the minor-unit amount memberID owes on the bill.
//
// For equal splits the remainder of amount/memberCount is distributed one
// minor unit at a time in ascending member-id order, so the same inputs
// always reproduce the same per-member split regardless of map iteration
// order, and the shares always sum to the bill amount exactly.
func SplitAmount(bill *models.Bill, memberID string) (int64, error) {
	switch bill.SplitType {
	case models.SplitCustom:
		share, ok := bill.CustomSplit[memberID]
		if !ok {
			return 0, fmt.Errorf("%w: member %s not in custom split", ErrInvalidSplit, memberID)
		}
		return share, nil
	default:
		return equalShare(bill, memberID)
	}
}

// ValidateCustomSplit checks that a custom split covers exactly the given
// members and that its values sum to amount. Called at bill creation;
// query-time SplitAmount only checks member presence.
func ValidateCustomSplit(split map[string]int64, amount int64, memberIDs []string) error {
	if len(memberIDs) == 0 {
		return fmt.Errorf("%w: no members", ErrInvalidSplit)
	}
	var sum int64
	for id, share := range split {
		if share < 0 {
			return fmt.Errorf("%w: negative share %d for member %s", ErrInvalidSplit, share, id)
		}
		sum += share
	}
	if sum != amount {
		return fmt.Errorf("%w: shares sum to %d, want %d", ErrInvalidSplit, sum, amount)
	}
	for _, id := range memberIDs {
		if _, ok := split[id]; !ok {
			return fmt.Errorf("%w: member %s missing from custom split", ErrInvalidSplit, id)
		}
	}
	if len(split) != len(memberIDs) {
		return fmt.Errorf("%w: split names %d members, team has %d", ErrInvalidSplit, len(split), len(memberIDs))
	}
	return nil
}

func equalShare(bill *models.Bill, memberID string) (int64, error) {
	ids := billMemberIDs(bill)
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: bill has no members", ErrInvalidSplit)
	}

	idx := sort.SearchStrings(ids, memberID)
	if idx >= len(ids) || ids[idx] != memberID {
		return 0, fmt.Errorf("%w: member %s not on bill", ErrInvalidSplit, memberID)
	}

	n := int64(len(ids))
	base := bill.Amount / n
	remainder := bill.Amount % n
	if int64(idx) < remainder {
		return base + 1, nil
	}
	return base, nil
}

// billMemberIDs returns the bill's member ids in ascending order. The
// Payments map is membership-complete at creation, so its keys are the
// authoritative member set for the bill.
func billMemberIDs(bill *models.Bill) []string {
	ids := make([]string, 0, len(bill.Payments))
	for id := range bill.Payments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
