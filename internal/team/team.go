// Package team defines the team/permission collaborator contract. Team
// creation and invites live in a separate service; the bills core only
// reads the roster to seed payment maps and evaluate permissions.
package team

import (
	"context"
	"errors"

	"github.com/si14444/roomie-backend/internal/models"
)

// ErrNotFound indicates the team does not exist.
var ErrNotFound = errors.New("team not found")

// Directory supplies team rosters with roles.
type Directory interface {
	// GetTeamMembers returns the current members of a team.
	// Returns ErrNotFound if the team does not exist.
	GetTeamMembers(ctx context.Context, teamID string) ([]models.TeamMember, error)
}

// MemberByID finds one member in a roster. The second return is false if
// the member is not on the team.
func MemberByID(members []models.TeamMember, memberID string) (models.TeamMember, bool) {
	for _, m := range members {
		if m.ID == memberID {
			return m, true
		}
	}
	return models.TeamMember{}, false
}
