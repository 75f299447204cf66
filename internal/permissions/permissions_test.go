package permissions

import (
	"testing"

	"github.com/si14444/roomie-backend/internal/models"
)

func permBill(createdBy string) *models.Bill {
	return &models.Bill{ID: "bill-1", CreatedBy: createdBy}
}

func TestCanDeleteBill(t *testing.T) {
	tests := []struct {
		name  string
		actor models.TeamMember
		bill  *models.Bill
		want  bool
	}{
		{
			name:  "creator with plain role can delete",
			actor: models.TeamMember{ID: "a", Role: models.RoleMember},
			bill:  permBill("a"),
			want:  true,
		},
		{
			name:  "owner who is not creator can delete",
			actor: models.TeamMember{ID: "o", Role: models.RoleOwner},
			bill:  permBill("a"),
			want:  true,
		},
		{
			name:  "admin who is not creator cannot delete",
			actor: models.TeamMember{ID: "adm", Role: models.RoleAdmin},
			bill:  permBill("a"),
			want:  false,
		},
		{
			name:  "admin who is creator can delete",
			actor: models.TeamMember{ID: "adm", Role: models.RoleAdmin},
			bill:  permBill("adm"),
			want:  true,
		},
		{
			name:  "plain member who is not creator cannot delete",
			actor: models.TeamMember{ID: "m", Role: models.RoleMember},
			bill:  permBill("a"),
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanDeleteBill(tt.actor, tt.bill); got != tt.want {
				t.Errorf("CanDeleteBill() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanEditBill(t *testing.T) {
	tests := []struct {
		name  string
		actor models.TeamMember
		want  bool
	}{
		{name: "creator", actor: models.TeamMember{ID: "a", Role: models.RoleMember}, want: true},
		{name: "owner", actor: models.TeamMember{ID: "o", Role: models.RoleOwner}, want: true},
		{name: "admin", actor: models.TeamMember{ID: "adm", Role: models.RoleAdmin}, want: true},
		{name: "unrelated member", actor: models.TeamMember{ID: "m", Role: models.RoleMember}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanEditBill(tt.actor, permBill("a")); got != tt.want {
				t.Errorf("CanEditBill() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanEditPayment(t *testing.T) {
	bill := permBill("creator")

	tests := []struct {
		name   string
		actor  models.TeamMember
		target string
		want   bool
	}{
		{
			name:   "member toggling own entry",
			actor:  models.TeamMember{ID: "m", Role: models.RoleMember},
			target: "m",
			want:   true,
		},
		{
			name:   "member toggling someone else's entry",
			actor:  models.TeamMember{ID: "m", Role: models.RoleMember},
			target: "other",
			want:   false,
		},
		{
			name:   "creator toggling someone else's entry",
			actor:  models.TeamMember{ID: "creator", Role: models.RoleMember},
			target: "other",
			want:   true,
		},
		{
			name:   "admin toggling someone else's entry",
			actor:  models.TeamMember{ID: "adm", Role: models.RoleAdmin},
			target: "other",
			want:   true,
		},
		{
			name:   "owner toggling someone else's entry",
			actor:  models.TeamMember{ID: "o", Role: models.RoleOwner},
			target: "other",
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanEditPayment(tt.actor, bill, tt.target); got != tt.want {
				t.Errorf("CanEditPayment() = %v, want %v", got, tt.want)
			}
		})
	}
}
