package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habit-tracker/handler"
	"habit-tracker/model"
	"habit-tracker/store"
)

func newTestMux(t *testing.T) (*http.ServeMux, *store.Store) {
	t.Helper()
	now := time.Date(2026, time.October, 14, 20, 0, 0, 0, time.Local)
	s := store.New(
		store.NewFilePersister(filepath.Join(t.TempDir(), "persistence.json")),
		store.WithClock(func() time.Time { return now }),
	)
	s.Load(context.Background())
	return SetupRoutes(handler.NewHandler(s, nil), nil), s
}

func do(t *testing.T, mux http.Handler, method, target, body string) (*httptest.ResponseRecorder, handler.Response) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var resp handler.Response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func habitPath(base, name string) string {
	return base + "/habits/" + url.PathEscape(name)
}

func TestEndToEnd(t *testing.T) {
	mux, s := newTestMux(t)

	for _, name := range []string{"健身", "练琴", "英语口语"} {
		require.NoError(t, s.DeleteHabit(context.Background(), name))
	}

	rec, _ := do(t, mux, http.MethodPost, "/api/v1/habits", `{"name":"A","target":"t"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = do(t, mux, http.MethodPost, "/api/v1/habits", `{"name":"B"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = do(t, mux, http.MethodPost, "/api/v1/habits", `{"name":"B"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, resp := do(t, mux, http.MethodPost, habitPath("/api/v1", "A")+"/done", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, handler.AllCompleteMessage, resp.Message)

	rec, resp = do(t, mux, http.MethodPost, habitPath("/api/v1", "B")+"/done", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, handler.AllCompleteMessage, resp.Message)

	rec, _ = do(t, mux, http.MethodDelete, habitPath("/api/v1", "A"), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, mux, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data model.Stats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	counts := body.Data.Counts()
	assert.Equal(t, 1, counts["B"])
	assert.NotContains(t, counts, "A")
}

func TestChineseNamesInPath(t *testing.T) {
	mux, s := newTestMux(t)

	rec, _ := do(t, mux, http.MethodPost, habitPath("/api/v1", "英语口语")+"/done", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, s.Record().History["2026-10-14"], "英语口语")

	rec, _ = do(t, mux, http.MethodDelete, habitPath("/api/v1", "英语口语")+"/done", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, s.Record().History["2026-10-14"])
}

func TestRenameRoute(t *testing.T) {
	mux, s := newTestMux(t)
	id := s.Habits()[1].ID

	rec, _ := do(t, mux, http.MethodPut, "/api/v1/habits/"+id, `{"name":"钢琴"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, s.HasHabit("钢琴"))
	assert.False(t, s.HasHabit("练琴"))
}

func TestLegacyRoutes(t *testing.T) {
	mux, _ := newTestMux(t)

	rec, resp := do(t, mux, http.MethodGet, "/api/habits", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	rec, _ = do(t, mux, http.MethodGet, "/api/calendar?month=2026-02", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	mux, _ := newTestMux(t)

	rec, _ := do(t, mux, http.MethodOptions, "/api/v1/habits", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthAndMetrics(t *testing.T) {
	mux, _ := newTestMux(t)

	rec, resp := do(t, mux, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	// 先产生一次带中间件的变更请求
	rec, _ = do(t, mux, http.MethodPost, "/api/v1/habits", `{"name":"喝水"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = do(t, mux, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_request_duration_seconds")
	assert.Contains(t, rec.Body.String(), "habit_store_mutations_total")
}

func TestMethodNotAllowed(t *testing.T) {
	mux, _ := newTestMux(t)
	rec, _ := do(t, mux, http.MethodPatch, "/api/v1/stats", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecoverMiddleware(t *testing.T) {
	f := chain(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}, recoverMiddleware(zap.NewNop()))

	rec := httptest.NewRecorder()
	f(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
