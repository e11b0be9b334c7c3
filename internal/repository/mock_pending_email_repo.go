package repository

import (
	"context"
	"sync"
	"time"

	"github.com/kanflow/movedigest/internal/domain"
)

// MockPendingEmailRepository is a hand-written, in-memory
// PendingEmailRepository used in unit tests. A single mutex makes
// ClaimDueBefore atomic, matching the transactional guarantee of the real
// stores.
type MockPendingEmailRepository struct {
	mu     sync.Mutex
	rows   []*domain.PendingCardMoveEmail
	nextID int64

	// Now stamps CreatedAt on insert. Defaults to time.Now().UTC().
	Now func() time.Time

	// Optional error overrides, set in tests to simulate failure paths.
	BulkCreateErr error
	ClaimErr      error

	// BulkCreateCalls counts calls that reached the store.
	BulkCreateCalls int
}

func NewMockPendingEmailRepository() *MockPendingEmailRepository {
	return &MockPendingEmailRepository{
		Now: func() time.Time { return time.Now().UTC() },
	}
}

func (m *MockPendingEmailRepository) BulkCreate(_ context.Context, rows []*domain.PendingCardMoveEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BulkCreateCalls++
	if m.BulkCreateErr != nil {
		return m.BulkCreateErr
	}
	now := m.Now()
	for _, p := range rows {
		m.nextID++
		p.ID = m.nextID
		p.CreatedAt = now
		clone := *p
		m.rows = append(m.rows, &clone)
	}
	return nil
}

func (m *MockPendingEmailRepository) ClaimDueBefore(_ context.Context, before time.Time) ([]*domain.PendingCardMoveEmail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ClaimErr != nil {
		return nil, m.ClaimErr
	}
	var claimed, kept []*domain.PendingCardMoveEmail
	for _, p := range m.rows {
		if p.CreatedAt.After(before) {
			kept = append(kept, p)
			continue
		}
		claimed = append(claimed, p)
	}
	m.rows = kept
	return claimed, nil
}

func (m *MockPendingEmailRepository) CountPending(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows), nil
}

// Rows returns copies of every stored row in insertion order.
func (m *MockPendingEmailRepository) Rows() []domain.PendingCardMoveEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.PendingCardMoveEmail, len(m.rows))
	for i, p := range m.rows {
		out[i] = *p
	}
	return out
}
