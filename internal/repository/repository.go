package repository

import (
	"context"
	"time"

	"github.com/kanflow/movedigest/internal/domain"
)

// Directory is the read side of the board model the notifier needs.
// The pgx implementation is in pg_directory.go; SQLite lives in
// internal/storage/sqlite. Tests use the hand-written MockDirectory.
type Directory interface {
	// GetListPolicy returns domain.ErrNotFound for missing or deleted lists.
	GetListPolicy(ctx context.Context, listID int64) (*domain.ListPolicy, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetBoardName(ctx context.Context, boardID int64) (string, error)

	// CardAssignees returns active, non-deleted members assigned to the card.
	CardAssignees(ctx context.Context, cardID int64) ([]domain.Member, error)
	// WorkspaceLeaders returns active, non-deleted members of the workspace
	// whose role is one of domain.LeaderRoles.
	WorkspaceLeaders(ctx context.Context, workspaceID int64) ([]domain.Member, error)
}

// PendingEmailRepository owns the pending_card_move_email table. All mutation
// goes through BulkCreate and ClaimDueBefore.
type PendingEmailRepository interface {
	// BulkCreate inserts every row in one transaction and fills in ID and
	// CreatedAt. Either all rows are stored or none are.
	BulkCreate(ctx context.Context, rows []*domain.PendingCardMoveEmail) error

	// ClaimDueBefore selects and deletes every row created at or before the
	// given instant in one transaction and returns the deleted rows ordered
	// by ID. Concurrent callers never receive the same row.
	ClaimDueBefore(ctx context.Context, before time.Time) ([]*domain.PendingCardMoveEmail, error)

	CountPending(ctx context.Context) (int, error)
}
