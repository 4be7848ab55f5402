package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallbox/recallbox/internal/domain"
	"github.com/recallbox/recallbox/internal/domain/srs"
	"github.com/recallbox/recallbox/internal/extensions"
	"github.com/recallbox/recallbox/internal/service/optimizer"
	"github.com/recallbox/recallbox/internal/service/review_session"
	"github.com/recallbox/recallbox/internal/store/logfile"
	"github.com/recallbox/recallbox/internal/store/notefile"
)

type testServer struct {
	srv  *httptest.Server
	logs *logfile.Store
}

func newTestServer(t *testing.T, cards map[string]string) *testServer {
	t.Helper()

	root := t.TempDir()
	for key, content := range cards {
		path := filepath.Join(root, filepath.FromSlash(key))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	notes := notefile.New(root)
	logs := logfile.New(filepath.Join(t.TempDir(), "review-log.ndjson"))
	model := srs.NewDefaultService()

	builder := review_session.NewQueueBuilder(notes, nil)
	manager := review_session.NewManager(
		builder, notes, logs, model, extensions.NewRegistry(), nil)
	opt := optimizer.NewDefault(nil)

	router := NewRouter(
		NewSessionHandler(manager, nil),
		NewOptimizerHandler(opt, logs, nil),
	)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, logs: logs}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func twoCards() map[string]string {
	return map[string]string{
		"deck/a.md": "Front A\n===\nBack A\n",
		"deck/b.md": "Front B\n===\nBack B\n",
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	resp := ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, twoCards())

	// No session yet.
	resp := ts.do(t, http.MethodGet, "/api/sessions/current", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Start.
	resp = ts.do(t, http.MethodPost, "/api/sessions", StartSessionRequest{DeckScope: "deck"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var snap review_session.Snapshot
	decode(t, resp, &snap)
	assert.Equal(t, 2, snap.InitialTotal)
	assert.Equal(t, "deck/a.md", string(snap.CurrentCardID))
	assert.Equal(t, 2, snap.SideCount)
	assert.Equal(t, 0, snap.CurrentSide)

	// A second start conflicts.
	resp = ts.do(t, http.MethodPost, "/api/sessions", StartSessionRequest{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Rating before the back side is shown is rejected.
	resp = ts.do(t, http.MethodPost, "/api/sessions/current/rating", RateRequest{Rating: 3})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Advance, then rate.
	resp = ts.do(t, http.MethodPost, "/api/sessions/current/advance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &snap)
	assert.Equal(t, 1, snap.CurrentSide)

	resp = ts.do(t, http.MethodPost, "/api/sessions/current/rating", RateRequest{Rating: 3})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rated RateResponse
	decode(t, resp, &rated)
	assert.Equal(t, "deck/a.md", string(rated.CardID))
	assert.False(t, rated.Completed)
	assert.Empty(t, rated.AuditWarning)
	require.NotNil(t, rated.Session)
	assert.Equal(t, 1, rated.Session.ReviewedCount)

	// End.
	resp = ts.do(t, http.MethodDelete, "/api/sessions/current", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/sessions/current", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartNoDueCards(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	resp := ts.do(t, http.MethodPost, "/api/sessions", StartSessionRequest{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRateInvalidBody(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, twoCards())
	resp := ts.do(t, http.MethodPost, "/api/sessions", StartSessionRequest{})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Out-of-range rating fails request validation.
	resp = ts.do(t, http.MethodPost, "/api/sessions/current/rating", RateRequest{Rating: 9})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp struct {
		Error     string `json:"error"`
		RequestID string `json:"request_id"`
	}
	decode(t, resp, &errResp)
	assert.NotEmpty(t, errResp.Error)
	assert.NotEmpty(t, errResp.RequestID)
}

func TestOperationsWithoutSession(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, twoCards())

	resp := ts.do(t, http.MethodPost, "/api/sessions/current/advance", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/sessions/current/rating", RateRequest{Rating: 3})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Ending an inactive session is still a success.
	resp = ts.do(t, http.MethodDelete, "/api/sessions/current", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestOptimizerRunInsufficientData(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)

	// Seed a few log entries, well below the 50-review minimum.
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		entry := domain.LogEntry{
			CardID:    domain.CardID(fmt.Sprintf("card-%d.md", i)),
			Timestamp: time.Date(2026, 2, 1, 9, i, 0, 0, time.UTC),
			Rating:    domain.RatingGood,
		}
		require.NoError(t, ts.logs.Append(ctx, entry))
	}

	resp := ts.do(t, http.MethodPost, "/api/optimizer/run", RunRequest{})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestOptimizerRunReturnsWeights(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)

	// 50 same-day reviews: enough data, and the fit degenerates to the
	// defaults without any cross-day history.
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		entry := domain.LogEntry{
			CardID:    domain.CardID(fmt.Sprintf("card-%d.md", i%5)),
			Timestamp: time.Date(2026, 2, 1, 9, 0, i, 0, time.UTC),
			Rating:    domain.Rating(i%4 + 1),
		}
		require.NoError(t, ts.logs.Append(ctx, entry))
	}

	resp := ts.do(t, http.MethodPost, "/api/optimizer/run", RunRequest{EnableShortTerm: false})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result optimizer.Result
	decode(t, resp, &result)
	assert.Len(t, result.Weights, srs.WeightCountLongTerm)
	assert.Equal(t, 5, result.CardsUsed)
	assert.Equal(t, 50, result.ReviewsUsed)
}
