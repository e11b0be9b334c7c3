package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kanflow/movedigest/internal/domain"
	"github.com/kanflow/movedigest/internal/repository"
)

// NotifierHooks carries the metric callbacks injected by main.
type NotifierHooks struct {
	OnQueued func(t domain.EmailType, n int)
}

// MoveNotifier decides who hears about a card move and queues one pending
// email per recipient. It runs synchronously inside the card-move request.
type MoveNotifier struct {
	dir      repository.Directory
	repo     repository.PendingEmailRepository
	logger   *zap.Logger
	onQueued func(domain.EmailType, int)
}

func NewMoveNotifier(
	dir repository.Directory,
	repo repository.PendingEmailRepository,
	logger *zap.Logger,
	hooks NotifierHooks,
) *MoveNotifier {
	onQueued := hooks.OnQueued
	if onQueued == nil {
		onQueued = func(domain.EmailType, int) {}
	}
	return &MoveNotifier{dir: dir, repo: repo, logger: logger, onQueued: onQueued}
}

// QueueMoveNotifications resolves recipients for move from the destination
// list's policy and persists them in one bulk write.
//
// A missing destination list or a policy with both flags off is a silent
// no-op. Missing source list, board or mover degrade to placeholder names.
// Recipient scans and the insert are hard failures.
func (s *MoveNotifier) QueueMoveNotifications(ctx context.Context, move domain.MoveEvent) error {
	target, err := s.dir.GetListPolicy(ctx, move.ToListID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("destination list: %w", err)
	}
	if !target.Enabled() {
		return nil
	}

	tmpl := s.template(ctx, move, target)
	log := s.logger.With(zap.Int64("card_id", move.CardID), zap.Int64("to_list_id", move.ToListID))

	var rows []*domain.PendingCardMoveEmail
	seen := make(map[string]bool)

	if target.NotifyAssigneesOnMove {
		assignees, err := s.dir.CardAssignees(ctx, move.CardID)
		if err != nil {
			return fmt.Errorf("card assignees: %w", err)
		}
		rows = appendRecipients(rows, seen, assignees, domain.EmailTypeAssignee, move.MovedByUserID, tmpl)
	}

	assigneeCount := len(rows)

	if target.NotifyLeadersOnMove {
		leaders, err := s.dir.WorkspaceLeaders(ctx, move.WorkspaceID)
		if err != nil {
			return fmt.Errorf("workspace leaders: %w", err)
		}
		rows = appendRecipients(rows, seen, leaders, domain.EmailTypeLeader, move.MovedByUserID, tmpl)
	}

	if len(rows) == 0 {
		log.Debug("card move has no recipients")
		return nil
	}

	if err := s.repo.BulkCreate(ctx, rows); err != nil {
		return fmt.Errorf("queue card move emails: %w", err)
	}

	if assigneeCount > 0 {
		s.onQueued(domain.EmailTypeAssignee, assigneeCount)
	}
	if leaderCount := len(rows) - assigneeCount; leaderCount > 0 {
		s.onQueued(domain.EmailTypeLeader, leaderCount)
	}
	log.Info("queued card move emails",
		zap.Int("assignees", assigneeCount),
		zap.Int("leaders", len(rows)-assigneeCount),
	)
	return nil
}

// QueueMoveNotificationsSafe is the entry point for card-move callers: a
// notification failure is logged and never fails the move itself.
func (s *MoveNotifier) QueueMoveNotificationsSafe(ctx context.Context, move domain.MoveEvent) {
	if err := s.QueueMoveNotifications(ctx, move); err != nil {
		s.logger.Error("failed to queue card move emails",
			zap.Int64("card_id", move.CardID),
			zap.Int64("from_list_id", move.FromListID),
			zap.Int64("to_list_id", move.ToListID),
			zap.Error(err),
		)
	}
}

// ---- private helpers ----

// template builds the move description shared by every row of one move.
func (s *MoveNotifier) template(ctx context.Context, move domain.MoveEvent, target *domain.ListPolicy) domain.PendingCardMoveEmail {
	fromListName := domain.UnknownListName
	if source, err := s.dir.GetListPolicy(ctx, move.FromListID); err == nil {
		fromListName = source.DisplayName()
	} else if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("source list lookup failed", zap.Int64("list_id", move.FromListID), zap.Error(err))
	}

	boardName := domain.UnknownBoardName
	if name, err := s.dir.GetBoardName(ctx, target.BoardID); err == nil && name != "" {
		boardName = name
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("board lookup failed", zap.Int64("board_id", target.BoardID), zap.Error(err))
	}

	var movedByID *string
	var mover *domain.User
	if move.MovedByUserID != "" {
		u, err := s.dir.GetUser(ctx, move.MovedByUserID)
		switch {
		case err == nil:
			mover = u
			id := move.MovedByUserID
			movedByID = &id
		case errors.Is(err, domain.ErrNotFound):
			// Deleted mover: keep the row insertable by dropping the reference.
		default:
			s.logger.Warn("mover lookup failed", zap.String("user_id", move.MovedByUserID), zap.Error(err))
			id := move.MovedByUserID
			movedByID = &id
		}
	}
	movedByName := mover.DisplayName()

	return domain.PendingCardMoveEmail{
		CardID:        move.CardID,
		CardTitle:     move.CardTitle,
		CardPublicID:  move.CardPublicID,
		FromListID:    move.FromListID,
		FromListName:  fromListName,
		ToListID:      move.ToListID,
		ToListName:    target.DisplayName(),
		MovedByUserID: movedByID,
		MovedByName:   &movedByName,
		BoardName:     boardName,
	}
}

// appendRecipients adds one row per member that has an account, is not the
// mover and has not been selected already for this move.
func appendRecipients(
	rows []*domain.PendingCardMoveEmail,
	seen map[string]bool,
	members []domain.Member,
	t domain.EmailType,
	moverID string,
	tmpl domain.PendingCardMoveEmail,
) []*domain.PendingCardMoveEmail {
	for _, m := range members {
		if m.UserID == nil || *m.UserID == "" || *m.UserID == moverID {
			continue
		}
		if seen[*m.UserID] {
			continue
		}
		seen[*m.UserID] = true

		row := tmpl
		row.Type = t
		row.RecipientUserID = *m.UserID
		row.RecipientEmail = m.Email
		rows = append(rows, &row)
	}
	return rows
}
