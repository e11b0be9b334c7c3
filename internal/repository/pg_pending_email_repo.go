package repository

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kanflow/movedigest/internal/domain"
)

type pgPendingEmailRepository struct {
	pool *pgxpool.Pool
}

// NewPgPendingEmailRepository returns a PendingEmailRepository backed by PostgreSQL.
func NewPgPendingEmailRepository(pool *pgxpool.Pool) PendingEmailRepository {
	return &pgPendingEmailRepository{pool: pool}
}

const pendingColumns = `id, type, recipient_user_id::text, recipient_email,
	card_id, card_title, card_public_id,
	from_list_id, from_list_name, to_list_id, to_list_name,
	moved_by_user_id::text, moved_by_name, board_name, created_at`

func (r *pgPendingEmailRepository) BulkCreate(ctx context.Context, rows []*domain.PendingCardMoveEmail) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, p := range rows {
		batch.Queue(`
			INSERT INTO pending_card_move_email
				(type, recipient_user_id, recipient_email, card_id, card_title, card_public_id,
				 from_list_id, from_list_name, to_list_id, to_list_name,
				 moved_by_user_id, moved_by_name, board_name)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			RETURNING id, created_at`,
			p.Type, p.RecipientUserID, p.RecipientEmail, p.CardID, p.CardTitle, p.CardPublicID,
			p.FromListID, p.FromListName, p.ToListID, p.ToListName,
			p.MovedByUserID, p.MovedByName, p.BoardName,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for _, p := range rows {
		if err := results.QueryRow().Scan(&p.ID, &p.CreatedAt); err != nil {
			results.Close() //nolint:errcheck
			return mapInsertError(err)
		}
	}
	if err := results.Close(); err != nil {
		return mapInsertError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit pending emails: %w", err)
	}
	return nil
}

// ClaimDueBefore locks the due rows with SKIP LOCKED so that a concurrent
// claimer sees only rows this transaction has not taken, then deletes them.
func (r *pgPendingEmailRepository) ClaimDueBefore(ctx context.Context, before time.Time) ([]*domain.PendingCardMoveEmail, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	rows, err := tx.Query(ctx, `
		DELETE FROM pending_card_move_email
		WHERE id IN (
			SELECT id FROM pending_card_move_email
			WHERE created_at <= $1
			ORDER BY id
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+pendingColumns, before)
	if err != nil {
		return nil, fmt.Errorf("claim pending emails: %w", err)
	}

	claimed, err := scanPendingEmails(rows)
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("scan claimed emails: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	slices.SortFunc(claimed, func(a, b *domain.PendingCardMoveEmail) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return claimed, nil
}

func (r *pgPendingEmailRepository) CountPending(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM pending_card_move_email`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending emails: %w", err)
	}
	return n, nil
}

// ---- helpers ----

// mapInsertError turns a foreign key violation (card, list or user deleted
// between lookup and insert) into domain.ErrStaleReference.
func mapInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
		return fmt.Errorf("insert pending email: %w: %s", domain.ErrStaleReference, pgErr.ConstraintName)
	}
	return fmt.Errorf("insert pending email: %w", err)
}

func scanPendingEmail(row pgx.Row) (*domain.PendingCardMoveEmail, error) {
	var p domain.PendingCardMoveEmail
	err := row.Scan(
		&p.ID, &p.Type, &p.RecipientUserID, &p.RecipientEmail,
		&p.CardID, &p.CardTitle, &p.CardPublicID,
		&p.FromListID, &p.FromListName, &p.ToListID, &p.ToListName,
		&p.MovedByUserID, &p.MovedByName, &p.BoardName, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPendingEmails(rows pgx.Rows) ([]*domain.PendingCardMoveEmail, error) {
	var result []*domain.PendingCardMoveEmail
	for rows.Next() {
		p, err := scanPendingEmail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
