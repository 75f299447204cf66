package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/si14444/roomie-backend/internal/models"
	"github.com/si14444/roomie-backend/internal/team"
)

// Ensure SQLiteStore implements team.Directory
var _ team.Directory = (*SQLiteStore)(nil)

// CreateTeam persists a team record. Team lifecycle (invites, naming) is
// owned elsewhere; this exists so a single-binary deployment can host the
// roster the bills core reads.
func (s *SQLiteStore) CreateTeam(ctx context.Context, teamID, name string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO teams (id, name, created_at) VALUES (?, ?, ?)",
		teamID, name, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert team: %w", err)
	}
	return nil
}

// AddTeamMember adds or updates one member of a team.
func (s *SQLiteStore) AddTeamMember(ctx context.Context, teamID string, member models.TeamMember) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO team_members (team_id, member_id, role) VALUES (?, ?, ?)
		 ON CONFLICT (team_id, member_id) DO UPDATE SET role = excluded.role`,
		teamID, member.ID, string(member.Role),
	)
	if err != nil {
		return fmt.Errorf("failed to insert team member: %w", err)
	}
	return nil
}

// GetTeamMembers returns the current roster of a team, ordered by member id.
func (s *SQLiteStore) GetTeamMembers(ctx context.Context, teamID string) ([]models.TeamMember, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM teams WHERE id = ?", teamID,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", team.ErrNotFound, teamID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check team: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT member_id, role FROM team_members WHERE team_id = ? ORDER BY member_id",
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get team members: %w", err)
	}
	defer rows.Close()

	var members []models.TeamMember
	for rows.Next() {
		var m models.TeamMember
		var role string
		if err := rows.Scan(&m.ID, &role); err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		m.Role = models.Role(role)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate team members: %w", err)
	}
	return members, nil
}
