package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kanflow/movedigest/internal/domain"
)

// GetListPolicy returns domain.ErrNotFound for missing or soft-deleted lists.
func (s *Store) GetListPolicy(ctx context.Context, listID int64) (*domain.ListPolicy, error) {
	var p domain.ListPolicy
	err := s.db.QueryRowContext(ctx, `
		SELECT id, board_id, name, email_assignees_on_move, email_leaders_on_move, minimum_role
		FROM lists WHERE id = ? AND deleted_at IS NULL`, listID).
		Scan(&p.ListID, &p.BoardID, &p.Name, &p.NotifyAssigneesOnMove, &p.NotifyLeadersOnMove, &p.MinimumRole)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get list %d: %w", listID, err)
	}
	return &p, nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, COALESCE(name, ''), email FROM users WHERE id = ?`, userID).
		Scan(&u.ID, &u.Name, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *Store) GetBoardName(ctx context.Context, boardID int64) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM boards WHERE id = ?`, boardID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get board %d: %w", boardID, err)
	}
	return name, nil
}

func (s *Store) CardAssignees(ctx context.Context, cardID int64) ([]domain.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT wm.user_id, wm.email, wm.role
		FROM card_to_workspace_members c
		JOIN workspace_members wm ON wm.id = c.workspace_member_id
		WHERE c.card_id = ? AND wm.deleted_at IS NULL AND wm.status = ?
		ORDER BY wm.id`, cardID, string(domain.MemberActive))
	if err != nil {
		return nil, fmt.Errorf("card assignees: %w", err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

func (s *Store) WorkspaceLeaders(ctx context.Context, workspaceID int64) ([]domain.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, email, role
		FROM workspace_members
		WHERE workspace_id = ? AND deleted_at IS NULL AND status = ? AND role IN (?, ?)
		ORDER BY id`,
		workspaceID, string(domain.MemberActive), string(domain.RoleAdmin), string(domain.RoleLeader))
	if err != nil {
		return nil, fmt.Errorf("workspace leaders: %w", err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

func scanMembers(rows *sql.Rows) ([]domain.Member, error) {
	var members []domain.Member
	for rows.Next() {
		var (
			m      domain.Member
			userID sql.NullString
		)
		if err := rows.Scan(&userID, &m.Email, &m.Role); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		if userID.Valid {
			m.UserID = &userID.String
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
