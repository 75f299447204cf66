package calculator

import (
	"time"

	"github.com/si14444/roomie-backend/internal/models"
)

// Aggregate derives cross-bill statistics for the current accounting
// period. The period is the calendar month of each bill's CreatedAt,
// evaluated against the caller-supplied now; bills from prior periods are
// excluded from the totals but otherwise untouched.
//
// The computation is a wholesale recompute on every call. A team's active
// bill set is tens of bills at most, so there is no incremental path.
func Aggregate(bills []models.Bill, members []models.TeamMember, now time.Time) models.Statistics {
	stats := models.Statistics{
		PerMemberDebt: make(map[string]models.MemberDebt, len(members)),
	}
	for _, m := range members {
		stats.PerMemberDebt[m.ID] = models.MemberDebt{}
	}

	for i := range bills {
		bill := &bills[i]
		if !inPeriod(bill.CreatedAt, now) {
			continue
		}
		stats.TotalAmount += bill.Amount

		for _, m := range members {
			payment, ok := bill.Payments[m.ID]
			if !ok {
				// Membership is frozen at bill creation; members who
				// joined later owe nothing on this bill.
				continue
			}
			share, err := SplitAmount(bill, m.ID)
			if err != nil {
				continue
			}
			debt := stats.PerMemberDebt[m.ID]
			debt.TotalDebt += share
			if payment.Paid {
				debt.PaidAmount += share
			}
			stats.PerMemberDebt[m.ID] = debt
		}
	}

	if len(members) > 0 {
		stats.PerPersonAmount = stats.TotalAmount / int64(len(members))
	}
	return stats
}

func inPeriod(createdAt, now time.Time) bool {
	return createdAt.Year() == now.Year() && createdAt.Month() == now.Month()
}
