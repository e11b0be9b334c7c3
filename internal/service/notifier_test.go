package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kanflow/movedigest/internal/domain"
	"github.com/kanflow/movedigest/internal/repository"
	"github.com/kanflow/movedigest/internal/service"
)

const (
	workspaceID = int64(7)
	boardID     = int64(3)
	fromListID  = int64(10)
	toListID    = int64(11)
	cardID      = int64(100)

	userA     = "00000000-0000-0000-0000-00000000000a"
	userB     = "00000000-0000-0000-0000-00000000000b"
	userLead  = "00000000-0000-0000-0000-00000000001e"
	userAdmin = "00000000-0000-0000-0000-0000000000ad"
	userMover = "00000000-0000-0000-0000-00000000000f"
)

func ptr(s string) *string { return &s }

type fixture struct {
	dir      *repository.MockDirectory
	repo     *repository.MockPendingEmailRepository
	notifier *service.MoveNotifier
	queued   map[domain.EmailType]int
}

// newFixture seeds a board with a source list, a destination list using the
// given policy flags, and the users A, B, a leader, an admin and the mover.
func newFixture(assignees, leaders bool) *fixture {
	dir := repository.NewMockDirectory()
	dir.AddBoard(boardID, "Roadmap")
	dir.AddList(domain.ListPolicy{ListID: fromListID, BoardID: boardID, Name: "Doing"})
	dir.AddList(domain.ListPolicy{
		ListID:                toListID,
		BoardID:               boardID,
		Name:                  "Done",
		NotifyAssigneesOnMove: assignees,
		NotifyLeadersOnMove:   leaders,
	})
	dir.AddUser(domain.User{ID: userMover, Name: "Mira", Email: "mira@example.com"})

	repo := repository.NewMockPendingEmailRepository()
	f := &fixture{dir: dir, repo: repo, queued: make(map[domain.EmailType]int)}
	f.notifier = service.NewMoveNotifier(dir, repo, zap.NewNop(), service.NotifierHooks{
		OnQueued: func(t domain.EmailType, n int) { f.queued[t] += n },
	})
	return f
}

func (f *fixture) member(userID, email string, role domain.Role) int {
	return f.dir.AddMember(repository.MockMember{
		WorkspaceID: workspaceID,
		Member:      domain.Member{UserID: ptr(userID), Email: email, Role: role},
		Status:      domain.MemberActive,
	})
}

func move() domain.MoveEvent {
	return domain.MoveEvent{
		CardID:        cardID,
		CardPublicID:  "abc123",
		CardTitle:     "Ship it",
		FromListID:    fromListID,
		ToListID:      toListID,
		MovedByUserID: userMover,
		WorkspaceID:   workspaceID,
	}
}

func recipients(rows []domain.PendingCardMoveEmail) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.RecipientUserID
	}
	return out
}

func TestQueue_AssigneesScenario(t *testing.T) {
	f := newFixture(true, false)
	f.dir.Assign(cardID, f.member(userA, "a@example.com", domain.RoleMember))
	f.dir.Assign(cardID, f.member(userB, "b@example.com", domain.RoleMember))
	f.member(userLead, "lead@example.com", domain.RoleLeader)

	require.NoError(t, f.notifier.QueueMoveNotifications(context.Background(), move()))

	rows := f.repo.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{userA, userB}, recipients(rows))
	for _, r := range rows {
		assert.Equal(t, domain.EmailTypeAssignee, r.Type)
		assert.Equal(t, "Ship it", r.CardTitle)
		assert.Equal(t, "abc123", r.CardPublicID)
		assert.Equal(t, "Doing", r.FromListName)
		assert.Equal(t, "Done", r.ToListName)
		assert.Equal(t, "Roadmap", r.BoardName)
		require.NotNil(t, r.MovedByName)
		assert.Equal(t, "Mira", *r.MovedByName)
		require.NotNil(t, r.MovedByUserID)
		assert.Equal(t, userMover, *r.MovedByUserID)
	}
	assert.Equal(t, "a@example.com", rows[0].RecipientEmail)
	assert.Equal(t, "b@example.com", rows[1].RecipientEmail)
	assert.Equal(t, 2, f.queued[domain.EmailTypeAssignee])
	assert.Zero(t, f.queued[domain.EmailTypeLeader])
}

func TestQueue_PolicyDisabledWritesNothing(t *testing.T) {
	f := newFixture(false, false)
	f.dir.Assign(cardID, f.member(userA, "a@example.com", domain.RoleAdmin))

	require.NoError(t, f.notifier.QueueMoveNotifications(context.Background(), move()))
	assert.Empty(t, f.repo.Rows())
	assert.Zero(t, f.repo.BulkCreateCalls)
}

func TestQueue_MissingDestinationIsNoop(t *testing.T) {
	f := newFixture(true, true)
	f.dir.Assign(cardID, f.member(userA, "a@example.com", domain.RoleMember))

	m := move()
	m.ToListID = 999
	require.NoError(t, f.notifier.QueueMoveNotifications(context.Background(), m))
	assert.Zero(t, f.repo.BulkCreateCalls)
}

func TestQueue_LeadersScenario(t *testing.T) {
	f := newFixture(false, true)
	f.member(userLead, "lead@example.com", domain.RoleLeader)
	f.member(userAdmin, "admin@example.com", domain.RoleAdmin)
	f.member(userA, "a@example.com", domain.RoleMember)
	f.member(userB, "b@example.com", "Leader") // role match is case-sensitive
	f.dir.AddMember(repository.MockMember{
		WorkspaceID: workspaceID + 1,
		Member:      domain.Member{UserID: ptr("other-workspace"), Email: "x@example.com", Role: domain.RoleAdmin},
		Status:      domain.MemberActive,
	})

	require.NoError(t, f.notifier.QueueMoveNotifications(context.Background(), move()))

	rows := f.repo.Rows()
	assert.Equal(t, []string{userLead, userAdmin}, recipients(rows))
	for _, r := range rows {
		assert.Equal(t, domain.EmailTypeLeader, r.Type)
	}
	assert.Equal(t, 2, f.queued[domain.EmailTypeLeader])
}

func TestQueue_MoverIsNeverNotified(t *testing.T) {
	f := newFixture(true, true)
	mover := f.member(userMover, "mira@example.com", domain.RoleAdmin)
	f.dir.Assign(cardID, mover)
	f.dir.Assign(cardID, f.member(userA, "a@example.com", domain.RoleMember))

	require.NoError(t, f.notifier.QueueMoveNotifications(context.Background(), move()))

	rows := f.repo.Rows()
	assert.Equal(t, []string{userA}, recipients(rows))
	assert.NotContains(t, recipients(rows), userMover)
}

func TestQueue_AssigneeLeaderGetsOneRow(t *testing.T) {
	f := newFixture(true, true)
	f.dir.Assign(cardID, f.member(userLead, "lead@example.com", domain.RoleLeader))
	f.member(userAdmin, "admin@example.com", domain.RoleAdmin)

	require.NoError(t, f.notifier.QueueMoveNotifications(context.Background(), move()))

	rows := f.repo.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, userLead, rows[0].RecipientUserID)
	assert.Equal(t, domain.EmailTypeAssignee, rows[0].Type, "assignee pass wins")
	assert.Equal(t, userAdmin, rows[1].RecipientUserID)
	assert.Equal(t, domain.EmailTypeLeader, rows[1].Type)
	assert.Equal(t, 1, f.queued[domain.EmailTypeAssignee])
	assert.Equal(t, 1, f.queued[domain.EmailTypeLeader])
}

func TestQueue_SkipsInactiveDeletedAndAccountlessMembers(t *testing.T) {
	f := newFixture(true, true)
	f.dir.Assign(cardID, f.dir.AddMember(repository.MockMember{
		WorkspaceID: workspaceID,
		Member:      domain.Member{UserID: ptr(userA), Email: "a@example.com", Role: domain.RoleLeader},
		Status:      domain.MemberPaused,
	}))
	f.dir.Assign(cardID, f.dir.AddMember(repository.MockMember{
		WorkspaceID: workspaceID,
		Member:      domain.Member{UserID: ptr(userB), Email: "b@example.com", Role: domain.RoleAdmin},
		Status:      domain.MemberActive,
		Deleted:     true,
	}))
	f.dir.Assign(cardID, f.dir.AddMember(repository.MockMember{
		WorkspaceID: workspaceID,
		Member:      domain.Member{Email: "invited@example.com", Role: domain.RoleAdmin},
		Status:      domain.MemberActive,
	}))

	require.NoError(t, f.notifier.QueueMoveNotifications(context.Background(), move()))
	assert.Empty(t, f.repo.Rows())
	assert.Zero(t, f.repo.BulkCreateCalls, "empty candidate set means no write")
}

func TestQueue_DegradedLookups(t *testing.T) {
	t.Run("source list deleted", func(t *testing.T) {
		f := newFixture(true, false)
		f.dir.Assign(cardID, f.member(userA, "a@example.com", domain.RoleMember))
		m := move()
		m.FromListID = 404

		require.NoError(t, f.notifier.QueueMoveNotifications(context.Background(), m))
		rows := f.repo.Rows()
		require.Len(t, rows, 1)
		assert.Equal(t, "Unknown", rows[0].FromListName)
		assert.Equal(t, int64(404), rows[0].FromListID)
	})

	t.Run("board missing", func(t *testing.T) {
		f := newFixture(true, false)
		f.dir.Assign(cardID, f.member(userA, "a@example.com", domain.RoleMember))
		f.dir.GetBoardErr = domain.ErrNotFound

		require.NoError(t, f.notifier.QueueMoveNotifications(context.Background(), move()))
		assert.Equal(t, "Board", f.repo.Rows()[0].BoardName)
	})

	t.Run("mover deleted", func(t *testing.T) {
		f := newFixture(true, false)
		f.dir.Assign(cardID, f.member(userA, "a@example.com", domain.RoleMember))
		m := move()
		m.MovedByUserID = "00000000-0000-0000-0000-000000000404"

		require.NoError(t, f.notifier.QueueMoveNotifications(context.Background(), m))
		row := f.repo.Rows()[0]
		assert.Nil(t, row.MovedByUserID)
		require.NotNil(t, row.MovedByName)
		assert.Equal(t, "Someone", *row.MovedByName)
	})

	t.Run("mover without name uses email", func(t *testing.T) {
		f := newFixture(true, false)
		f.dir.AddUser(domain.User{ID: userMover, Name: "  ", Email: "mira@example.com"})
		f.dir.Assign(cardID, f.member(userA, "a@example.com", domain.RoleMember))

		require.NoError(t, f.notifier.QueueMoveNotifications(context.Background(), move()))
		assert.Equal(t, "mira@example.com", *f.repo.Rows()[0].MovedByName)
	})

	t.Run("system move", func(t *testing.T) {
		f := newFixture(true, false)
		f.dir.Assign(cardID, f.member(userA, "a@example.com", domain.RoleMember))
		m := move()
		m.MovedByUserID = ""

		require.NoError(t, f.notifier.QueueMoveNotifications(context.Background(), m))
		row := f.repo.Rows()[0]
		assert.Nil(t, row.MovedByUserID)
		assert.Equal(t, "Someone", *row.MovedByName)
	})

	t.Run("blank destination name", func(t *testing.T) {
		f := newFixture(true, false)
		f.dir.AddList(domain.ListPolicy{ListID: toListID, BoardID: boardID, NotifyAssigneesOnMove: true})
		f.dir.Assign(cardID, f.member(userA, "a@example.com", domain.RoleMember))

		require.NoError(t, f.notifier.QueueMoveNotifications(context.Background(), move()))
		assert.Equal(t, "Unknown", f.repo.Rows()[0].ToListName)
	})
}

func TestQueue_HardFailures(t *testing.T) {
	boom := errors.New("db down")

	t.Run("destination lookup", func(t *testing.T) {
		f := newFixture(true, true)
		f.dir.GetListErr = boom
		assert.ErrorIs(t, f.notifier.QueueMoveNotifications(context.Background(), move()), boom)
	})

	t.Run("assignee scan", func(t *testing.T) {
		f := newFixture(true, true)
		f.dir.AssigneesErr = boom
		assert.ErrorIs(t, f.notifier.QueueMoveNotifications(context.Background(), move()), boom)
		assert.Zero(t, f.repo.BulkCreateCalls)
	})

	t.Run("leader scan", func(t *testing.T) {
		f := newFixture(true, true)
		f.dir.Assign(cardID, f.member(userA, "a@example.com", domain.RoleMember))
		f.dir.LeadersErr = boom
		assert.ErrorIs(t, f.notifier.QueueMoveNotifications(context.Background(), move()), boom)
		assert.Empty(t, f.repo.Rows(), "no partial recipient set is written")
	})

	t.Run("insert", func(t *testing.T) {
		f := newFixture(true, false)
		f.dir.Assign(cardID, f.member(userA, "a@example.com", domain.RoleMember))
		f.repo.BulkCreateErr = boom
		assert.ErrorIs(t, f.notifier.QueueMoveNotifications(context.Background(), move()), boom)
		assert.Zero(t, f.queued[domain.EmailTypeAssignee])
	})
}

func TestQueueSafe_SwallowsErrors(t *testing.T) {
	f := newFixture(true, false)
	f.dir.Assign(cardID, f.member(userA, "a@example.com", domain.RoleMember))
	f.repo.BulkCreateErr = errors.New("db down")

	assert.NotPanics(t, func() {
		f.notifier.QueueMoveNotificationsSafe(context.Background(), move())
	})
}
