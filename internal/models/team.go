package models

// Role is a team member's permission level.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// TeamMember is a member of a team as supplied by the team collaborator.
// This service consumes members but does not own them.
type TeamMember struct {
	// ID is the unique identifier for the member.
	ID string

	// Role determines what the member may edit or delete.
	Role Role
}
