// Package permissions contains the pure predicates deciding whether a
// member may edit or delete a bill. Callers check before mutating; the
// lifecycle manager re-checks authoritatively and rejects unauthorized
// mutations regardless of what the caller's UI showed.
package permissions

import "github.com/si14444/roomie-backend/internal/models"

// CanEditBill reports whether actor may perform bill-level edits: bulk
// mark-as-paid and due-date extension. Granted to the bill creator and to
// admins and owners.
func CanEditBill(actor models.TeamMember, bill *models.Bill) bool {
	if actor.ID == bill.CreatedBy {
		return true
	}
	return actor.Role == models.RoleAdmin || actor.Role == models.RoleOwner
}

// CanEditPayment reports whether actor may toggle targetMemberID's payment
// entry on the bill. Marking your own share paid is always allowed; the
// creator, admins, and owners may toggle anyone's.
func CanEditPayment(actor models.TeamMember, bill *models.Bill, targetMemberID string) bool {
	if actor.ID == targetMemberID {
		return true
	}
	return CanEditBill(actor, bill)
}

// CanDeleteBill reports whether actor may delete the bill. Deliberately
// narrower than edit: only the creator or an owner. Admins may edit but
// not delete bills they did not create.
func CanDeleteBill(actor models.TeamMember, bill *models.Bill) bool {
	return actor.ID == bill.CreatedBy || actor.Role == models.RoleOwner
}
