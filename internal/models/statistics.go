package models

// MemberDebt is one member's share of the current period's bills.
type MemberDebt struct {
	// TotalDebt is the member's summed share across in-period bills,
	// in minor units.
	TotalDebt int64

	// PaidAmount is the portion of TotalDebt the member has marked paid.
	PaidAmount int64
}

// Statistics is the derived cross-bill summary for one team. It is
// recomputed wholesale on every bill-set change and never persisted.
type Statistics struct {
	// TotalAmount sums the amounts of bills created in the current
	// accounting period (the calendar month of the evaluation time).
	TotalAmount int64

	// PerPersonAmount is TotalAmount divided by the member count.
	// Display-only; exact per-member accounting lives in PerMemberDebt.
	PerPersonAmount int64

	// PerMemberDebt maps member id to that member's debt summary.
	PerMemberDebt map[string]MemberDebt
}
