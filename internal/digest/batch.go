// Package digest turns claimed pending rows into per-recipient digest
// content: grouping, deduplication, subject lines and the rendered body.
package digest

import (
	"strings"

	"github.com/kanflow/movedigest/internal/domain"
)

// NewMovement builds the digest line for one pending row. The card link is
// baseURL + "/cards/" + public id.
func NewMovement(p *domain.PendingCardMoveEmail, baseURL string) domain.Movement {
	movedBy := domain.AnonymousMover
	if p.MovedByName != nil && *p.MovedByName != "" {
		movedBy = *p.MovedByName
	}
	return domain.Movement{
		CardTitle:    p.CardTitle,
		CardURL:      CardURL(baseURL, p.CardPublicID),
		FromListName: p.FromListName,
		ToListName:   p.ToListName,
		MovedByName:  movedBy,
		BoardName:    p.BoardName,
	}
}

// CardURL joins the public base URL and a card's public id.
func CardURL(baseURL, publicID string) string {
	return strings.TrimRight(baseURL, "/") + "/cards/" + publicID
}

// Recipient accumulates the movements destined for one user.
type Recipient struct {
	UserID    string
	Email     string
	Movements []domain.Movement
}

// Add appends m unless a movement with the same transition is already
// present. It reports whether m was kept.
func (r *Recipient) Add(m domain.Movement) bool {
	for _, existing := range r.Movements {
		if existing.SameTransition(m) {
			return false
		}
	}
	r.Movements = append(r.Movements, m)
	return true
}

// Batch groups the rows of one dispatcher run by recipient, keeping the
// order in which recipients were first seen. It lives for a single run.
type Batch struct {
	baseURL    string
	order      []*Recipient
	byUserID   map[string]*Recipient
	duplicates int
}

func NewBatch(baseURL string) *Batch {
	return &Batch{baseURL: baseURL, byUserID: make(map[string]*Recipient)}
}

// Add files one claimed row. The first row seen for a recipient fixes the
// address the digest goes to.
func (b *Batch) Add(p *domain.PendingCardMoveEmail) {
	m := NewMovement(p, b.baseURL)
	r, ok := b.byUserID[p.RecipientUserID]
	if !ok {
		r = &Recipient{UserID: p.RecipientUserID, Email: p.RecipientEmail}
		b.byUserID[p.RecipientUserID] = r
		b.order = append(b.order, r)
	}
	if !r.Add(m) {
		b.duplicates++
	}
}

// Recipients returns the groups in first-seen order.
func (b *Batch) Recipients() []*Recipient { return b.order }

// Len is the number of distinct recipients.
func (b *Batch) Len() int { return len(b.order) }

// Duplicates is the number of rows collapsed into an existing line.
func (b *Batch) Duplicates() int { return b.duplicates }

// Group is a convenience wrapper building a Batch from a slice of rows.
func Group(rows []*domain.PendingCardMoveEmail, baseURL string) *Batch {
	b := NewBatch(baseURL)
	for _, p := range rows {
		b.Add(p)
	}
	return b
}
