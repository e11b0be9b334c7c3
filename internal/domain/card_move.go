package domain

import "time"

// Placeholders used when a lookup degrades.
const (
	UnknownListName  = "Unknown"
	UnknownBoardName = "Board"
	AnonymousMover   = "Someone"
)

// CardMoveDigestTemplate is the email template id for move digests.
const CardMoveDigestTemplate = "CARD_MOVE_DIGEST"

// EmailType records why a recipient was selected. It is informational only.
type EmailType string

const (
	EmailTypeAssignee EmailType = "assignee"
	EmailTypeLeader   EmailType = "leader"
)

func (t EmailType) IsValid() bool {
	switch t {
	case EmailTypeAssignee, EmailTypeLeader:
		return true
	}
	return false
}

// MoveEvent describes one card changing list. It is produced by the card-move
// operation and consumed once by the notifier; it is never persisted as is.
// MovedByUserID is empty for system-initiated moves.
type MoveEvent struct {
	CardID        int64  `json:"card_id" validate:"required,gt=0"`
	CardPublicID  string `json:"card_public_id" validate:"required,max=12"`
	CardTitle     string `json:"card_title" validate:"required,max=500"`
	FromListID    int64  `json:"from_list_id" validate:"required,gt=0"`
	ToListID      int64  `json:"to_list_id" validate:"required,gt=0,nefield=FromListID"`
	MovedByUserID string `json:"moved_by_user_id,omitempty" validate:"omitempty,uuid"`
	WorkspaceID   int64  `json:"workspace_id" validate:"required,gt=0"`
}

// PendingCardMoveEmail is a queued intent to tell one recipient about one move.
// Recipient email and all display names are snapshots taken at queue time.
// Rows are created once and deleted when claimed; they are never updated.
type PendingCardMoveEmail struct {
	ID              int64     `json:"id"`
	Type            EmailType `json:"type"`
	RecipientUserID string    `json:"recipient_user_id"`
	RecipientEmail  string    `json:"recipient_email"`
	CardID          int64     `json:"card_id"`
	CardTitle       string    `json:"card_title"`
	CardPublicID    string    `json:"card_public_id"`
	FromListID      int64     `json:"from_list_id"`
	FromListName    string    `json:"from_list_name"`
	ToListID        int64     `json:"to_list_id"`
	ToListName      string    `json:"to_list_name"`
	MovedByUserID   *string   `json:"moved_by_user_id,omitempty"`
	MovedByName     *string   `json:"moved_by_name,omitempty"`
	BoardName       string    `json:"board_name"`
	CreatedAt       time.Time `json:"created_at"`
}

// Movement is one line of a digest email. The JSON names are the keys the
// digest template reads.
type Movement struct {
	CardTitle    string `json:"cardTitle"`
	CardURL      string `json:"cardUrl"`
	FromListName string `json:"fromListName"`
	ToListName   string `json:"toListName"`
	MovedByName  string `json:"movedByName"`
	BoardName    string `json:"boardName"`
}

// SameTransition reports whether m and o describe the same card moving
// between the same two lists.
func (m Movement) SameTransition(o Movement) bool {
	return m.CardTitle == o.CardTitle &&
		m.FromListName == o.FromListName &&
		m.ToListName == o.ToListName
}

// DispatchResult summarises one dispatcher run.
type DispatchResult struct {
	Sent       int `json:"sent"`
	Recipients int `json:"recipients"`
}
