package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kanflow/movedigest/internal/domain"
)

const pendingColumns = `id, type, recipient_user_id, recipient_email,
	card_id, card_title, card_public_id,
	from_list_id, from_list_name, to_list_id, to_list_name,
	moved_by_user_id, moved_by_name, board_name, created_at`

// BulkCreate inserts rows in one transaction. created_at is stored as Unix
// nanoseconds so range comparisons stay numeric.
func (s *Store) BulkCreate(ctx context.Context, rows []*domain.PendingCardMoveEmail) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pending_card_move_email
			(type, recipient_user_id, recipient_email, card_id, card_title, card_public_id,
			 from_list_id, from_list_name, to_list_id, to_list_name,
			 moved_by_user_id, moved_by_name, board_name, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	createdAt := s.now()
	for _, p := range rows {
		res, err := stmt.ExecContext(ctx,
			string(p.Type), p.RecipientUserID, p.RecipientEmail, p.CardID, p.CardTitle, p.CardPublicID,
			p.FromListID, p.FromListName, p.ToListID, p.ToListName,
			p.MovedByUserID, p.MovedByName, p.BoardName, createdAt.UnixNano(),
		)
		if err != nil {
			return mapInsertError(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert pending email: %w", err)
		}
		p.ID = id
		p.CreatedAt = createdAt
	}

	if err := tx.Commit(); err != nil {
		return mapInsertError(err)
	}
	return nil
}

// ClaimDueBefore reads and deletes the due rows inside one immediate
// transaction. The write lock is held from the SELECT onward, so no other
// claimer can observe the same rows.
func (s *Store) ClaimDueBefore(ctx context.Context, before time.Time) ([]*domain.PendingCardMoveEmail, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	cutoff := before.UnixNano()
	rows, err := tx.QueryContext(ctx, `
		SELECT `+pendingColumns+`
		FROM pending_card_move_email
		WHERE created_at <= ?
		ORDER BY id`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("select due emails: %w", err)
	}
	claimed, err := scanPendingEmails(rows)
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("scan due emails: %w", err)
	}
	if len(claimed) == 0 {
		return nil, nil
	}

	maxID := claimed[len(claimed)-1].ID
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM pending_card_move_email
		WHERE created_at <= ? AND id <= ?`, cutoff, maxID); err != nil {
		return nil, fmt.Errorf("delete claimed emails: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	s.logger.Debug("claimed pending emails", zap.Int("count", len(claimed)))
	return claimed, nil
}

func (s *Store) CountPending(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_card_move_email`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending emails: %w", err)
	}
	return n, nil
}

func mapInsertError(err error) error {
	if isForeignKeyViolation(err) {
		return fmt.Errorf("insert pending email: %w", domain.ErrStaleReference)
	}
	return fmt.Errorf("insert pending email: %w", err)
}

func scanPendingEmails(rows *sql.Rows) ([]*domain.PendingCardMoveEmail, error) {
	var result []*domain.PendingCardMoveEmail
	for rows.Next() {
		var (
			p         domain.PendingCardMoveEmail
			movedByID sql.NullString
			movedBy   sql.NullString
			createdAt int64
		)
		err := rows.Scan(
			&p.ID, &p.Type, &p.RecipientUserID, &p.RecipientEmail,
			&p.CardID, &p.CardTitle, &p.CardPublicID,
			&p.FromListID, &p.FromListName, &p.ToListID, &p.ToListName,
			&movedByID, &movedBy, &p.BoardName, &createdAt,
		)
		if err != nil {
			return nil, err
		}
		if movedByID.Valid {
			p.MovedByUserID = &movedByID.String
		}
		if movedBy.Valid {
			p.MovedByName = &movedBy.String
		}
		p.CreatedAt = time.Unix(0, createdAt).UTC()
		result = append(result, &p)
	}
	return result, rows.Err()
}
