package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kanflow/movedigest/internal/domain"
)

type pgDirectory struct {
	pool *pgxpool.Pool
}

// NewPgDirectory returns a Directory backed by PostgreSQL.
func NewPgDirectory(pool *pgxpool.Pool) Directory {
	return &pgDirectory{pool: pool}
}

func (d *pgDirectory) GetListPolicy(ctx context.Context, listID int64) (*domain.ListPolicy, error) {
	var p domain.ListPolicy
	err := d.pool.QueryRow(ctx, `
		SELECT id, board_id, name, email_assignees_on_move, email_leaders_on_move, minimum_role
		FROM lists
		WHERE id = $1 AND deleted_at IS NULL`, listID).
		Scan(&p.ListID, &p.BoardID, &p.Name, &p.NotifyAssigneesOnMove, &p.NotifyLeadersOnMove, &p.MinimumRole)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get list %d: %w", listID, err)
	}
	return &p, nil
}

func (d *pgDirectory) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var u domain.User
	err := d.pool.QueryRow(ctx, `
		SELECT id::text, COALESCE(name, ''), email
		FROM users WHERE id = $1`, userID).
		Scan(&u.ID, &u.Name, &u.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (d *pgDirectory) GetBoardName(ctx context.Context, boardID int64) (string, error) {
	var name string
	err := d.pool.QueryRow(ctx, `SELECT name FROM boards WHERE id = $1`, boardID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get board %d: %w", boardID, err)
	}
	return name, nil
}

func (d *pgDirectory) CardAssignees(ctx context.Context, cardID int64) ([]domain.Member, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT wm.user_id::text, wm.email, wm.role
		FROM card_to_workspace_members c
		JOIN workspace_members wm ON wm.id = c.workspace_member_id
		WHERE c.card_id = $1
		  AND wm.deleted_at IS NULL
		  AND wm.status = $2
		ORDER BY wm.id`, cardID, domain.MemberActive)
	if err != nil {
		return nil, fmt.Errorf("card assignees: %w", err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

func (d *pgDirectory) WorkspaceLeaders(ctx context.Context, workspaceID int64) ([]domain.Member, error) {
	roles := make([]string, len(domain.LeaderRoles))
	for i, r := range domain.LeaderRoles {
		roles[i] = string(r)
	}

	rows, err := d.pool.Query(ctx, `
		SELECT user_id::text, email, role
		FROM workspace_members
		WHERE workspace_id = $1
		  AND deleted_at IS NULL
		  AND status = $2
		  AND role = ANY($3)
		ORDER BY id`, workspaceID, domain.MemberActive, roles)
	if err != nil {
		return nil, fmt.Errorf("workspace leaders: %w", err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

func scanMembers(rows pgx.Rows) ([]domain.Member, error) {
	var members []domain.Member
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.UserID, &m.Email, &m.Role); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
