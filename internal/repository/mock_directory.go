package repository

import (
	"context"
	"sync"

	"github.com/kanflow/movedigest/internal/domain"
)

// MockMember is a workspace membership row held by MockDirectory.
type MockMember struct {
	WorkspaceID int64
	Member      domain.Member
	Status      domain.MemberStatus
	Deleted     bool
}

// MockDirectory is a hand-written, in-memory Directory used in unit tests.
type MockDirectory struct {
	mu          sync.RWMutex
	lists       map[int64]*domain.ListPolicy
	users       map[string]*domain.User
	boards      map[int64]string
	members     []MockMember
	assignments map[int64][]int

	// Optional error overrides, set in tests to simulate failure paths.
	GetListErr   error
	GetUserErr   error
	GetBoardErr  error
	AssigneesErr error
	LeadersErr   error
}

func NewMockDirectory() *MockDirectory {
	return &MockDirectory{
		lists:       make(map[int64]*domain.ListPolicy),
		users:       make(map[string]*domain.User),
		boards:      make(map[int64]string),
		assignments: make(map[int64][]int),
	}
}

func (m *MockDirectory) AddList(p domain.ListPolicy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[p.ListID] = &p
}

func (m *MockDirectory) AddUser(u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = &u
}

func (m *MockDirectory) AddBoard(id int64, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boards[id] = name
}

// AddMember stores a membership row and returns its handle for Assign.
func (m *MockDirectory) AddMember(mm MockMember) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members = append(m.members, mm)
	return len(m.members) - 1
}

// Assign attaches the member handle returned by AddMember to a card.
func (m *MockDirectory) Assign(cardID int64, member int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[cardID] = append(m.assignments[cardID], member)
}

func (m *MockDirectory) GetListPolicy(_ context.Context, listID int64) (*domain.ListPolicy, error) {
	if m.GetListErr != nil {
		return nil, m.GetListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.lists[listID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *MockDirectory) GetUser(_ context.Context, userID string) (*domain.User, error) {
	if m.GetUserErr != nil {
		return nil, m.GetUserErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *MockDirectory) GetBoardName(_ context.Context, boardID int64) (string, error) {
	if m.GetBoardErr != nil {
		return "", m.GetBoardErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.boards[boardID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return name, nil
}

func (m *MockDirectory) CardAssignees(_ context.Context, cardID int64) ([]domain.Member, error) {
	if m.AssigneesErr != nil {
		return nil, m.AssigneesErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.Member
	for _, idx := range m.assignments[cardID] {
		mm := m.members[idx]
		if mm.Deleted || mm.Status != domain.MemberActive {
			continue
		}
		result = append(result, mm.Member)
	}
	return result, nil
}

func (m *MockDirectory) WorkspaceLeaders(_ context.Context, workspaceID int64) ([]domain.Member, error) {
	if m.LeadersErr != nil {
		return nil, m.LeadersErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.Member
	for _, mm := range m.members {
		if mm.WorkspaceID != workspaceID || mm.Deleted || mm.Status != domain.MemberActive {
			continue
		}
		if !mm.Member.Role.IsLeader() {
			continue
		}
		result = append(result, mm.Member)
	}
	return result, nil
}
