package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kanflow/movedigest/internal/api"
	"github.com/kanflow/movedigest/internal/domain"
)

type stubDispatcher struct {
	result domain.DispatchResult
	err    error
	calls  int
}

func (s *stubDispatcher) DispatchDueDigests(_ context.Context, _ time.Time) (domain.DispatchResult, error) {
	s.calls++
	return s.result, s.err
}

type stubQueuer struct {
	mu    sync.Mutex
	moves []domain.MoveEvent
	err   error
}

func (s *stubQueuer) QueueMoveNotifications(_ context.Context, move domain.MoveEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moves = append(s.moves, move)
	return s.err
}

type stubCounter struct {
	n   int
	err error
}

func (s stubCounter) CountPending(context.Context) (int, error) { return s.n, s.err }

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type fixture struct {
	dispatcher *stubDispatcher
	queuer     *stubQueuer
	handler    http.Handler
}

func newFixture(secret string) *fixture {
	f := &fixture{
		dispatcher: &stubDispatcher{},
		queuer:     &stubQueuer{},
	}
	f.handler = api.NewRouter(api.Deps{
		Queuer:     f.queuer,
		Dispatcher: f.dispatcher,
		Pending:    stubCounter{n: 7},
		Gatherer:   prometheus.NewRegistry(),
		CronSecret: secret,
		Logger:     zap.NewNop(),
	})
	return f
}

func (f *fixture) do(method, path, auth, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

const cronPath = "/api/cron/process-card-move-emails"

func TestCron_Success(t *testing.T) {
	f := newFixture("s3cret")
	f.dispatcher.result = domain.DispatchResult{Sent: 2, Recipients: 3}

	rec := f.do(http.MethodPost, cronPath, "Bearer s3cret", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"success": true, "sent": 2.0, "recipients": 3.0}, decode(t, rec))
	assert.Equal(t, 1, f.dispatcher.calls)
}

func TestCron_EmptyStore(t *testing.T) {
	f := newFixture("")
	rec := f.do(http.MethodPost, cronPath, "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"success": true, "sent": 0.0, "recipients": 0.0}, decode(t, rec))
}

func TestCron_WrongMethod(t *testing.T) {
	f := newFixture("s3cret")
	rec := f.do(http.MethodGet, cronPath, "Bearer wrong", "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
	assert.Equal(t, false, decode(t, rec)["success"])
	assert.Zero(t, f.dispatcher.calls)
}

func TestCron_Unauthorized(t *testing.T) {
	f := newFixture("s3cret")

	for _, auth := range []string{"", "Bearer wrong", "s3cret", "Basic s3cret"} {
		rec := f.do(http.MethodPost, cronPath, auth, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "auth=%q", auth)
		assert.Equal(t, map[string]any{"success": false, "error": "Unauthorized"}, decode(t, rec))
	}
	assert.Zero(t, f.dispatcher.calls)
}

func TestCron_NoSecretAcceptsAnyCaller(t *testing.T) {
	f := newFixture("")
	rec := f.do(http.MethodPost, cronPath, "Bearer anything", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCron_DispatchFailure(t *testing.T) {
	f := newFixture("")
	f.dispatcher.err = errors.New("db down")

	rec := f.do(http.MethodPost, cronPath, "", "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]any{"success": false, "error": "Internal server error"}, decode(t, rec))
}

const validMove = `{
	"card_id": 1,
	"card_public_id": "abc123",
	"card_title": "Ship it",
	"from_list_id": 10,
	"to_list_id": 20,
	"moved_by_user_id": "6f1c1c55-6a8f-4e4b-9d0e-0c7a1c3f2a10",
	"workspace_id": 5
}`

func TestCardMove_Accepted(t *testing.T) {
	f := newFixture("s3cret")
	rec := f.do(http.MethodPost, "/api/internal/card-moves", "Bearer s3cret", validMove)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, f.queuer.moves, 1)
	assert.Equal(t, int64(20), f.queuer.moves[0].ToListID)
	assert.Equal(t, "Ship it", f.queuer.moves[0].CardTitle)
}

func TestCardMove_QueuerErrorStillAccepted(t *testing.T) {
	f := newFixture("")
	f.queuer.err = errors.New("insert failed")

	rec := f.do(http.MethodPost, "/api/internal/card-moves", "", validMove)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestCardMove_BadJSON(t *testing.T) {
	f := newFixture("")
	rec := f.do(http.MethodPost, "/api/internal/card-moves", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.queuer.moves)
}

func TestCardMove_ValidationFailure(t *testing.T) {
	f := newFixture("")
	body := `{"card_id": 1, "card_public_id": "abc123", "card_title": "x",
		"from_list_id": 3, "to_list_id": 3, "moved_by_user_id": "not-a-uuid", "workspace_id": 5}`

	rec := f.do(http.MethodPost, "/api/internal/card-moves", "", body)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	fields, ok := decode(t, rec)["fields"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "to_list_id")
	assert.Contains(t, fields, "moved_by_user_id")
	assert.Empty(t, f.queuer.moves)
}

func TestCardMove_SystemMoveWithoutMover(t *testing.T) {
	f := newFixture("")
	body := `{"card_id": 1, "card_public_id": "abc123", "card_title": "x",
		"from_list_id": 3, "to_list_id": 4, "workspace_id": 5}`

	rec := f.do(http.MethodPost, "/api/internal/card-moves", "", body)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, f.queuer.moves, 1)
	assert.Empty(t, f.queuer.moves[0].MovedByUserID)
}

func TestInternalRoutesRequireSecret(t *testing.T) {
	f := newFixture("s3cret")

	rec := f.do(http.MethodPost, "/api/internal/card-moves", "", validMove)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodGet, "/api/internal/pending", "Bearer nope", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPendingCount(t *testing.T) {
	f := newFixture("s3cret")
	rec := f.do(http.MethodGet, "/api/internal/pending", "Bearer s3cret", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7.0, decode(t, rec)["pending"])
}

func TestHealth(t *testing.T) {
	f := newFixture("")
	rec := f.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	down := api.NewRouter(api.Deps{
		Queuer:     &stubQueuer{},
		Dispatcher: &stubDispatcher{},
		Pending:    stubCounter{},
		Store:      stubPinger{err: errors.New("gone")},
		Gatherer:   prometheus.NewRegistry(),
		Logger:     zap.NewNop(),
	})
	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCorrelationIDEchoed(t *testing.T) {
	f := newFixture("")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Correlation-ID"))

	rec = f.do(http.MethodGet, "/health", "", "")
	assert.Len(t, rec.Header().Get("X-Correlation-ID"), 36)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture("")
	rec := f.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
