package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presentos/presentos/internal/agents"
	"github.com/presentos/presentos/internal/api"
	"github.com/presentos/presentos/internal/api/handlers"
	"github.com/presentos/presentos/internal/config"
	"github.com/presentos/presentos/internal/interrupt"
	"github.com/presentos/presentos/internal/notify"
	"github.com/presentos/presentos/internal/store"
	"github.com/presentos/presentos/pkg/models"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	s := store.NewMemoryStore("")
	t.Cleanup(func() { s.Close() })

	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	cfg := &config.Config{Version: "test"}
	h := &handlers.Handlers{
		Tasks:    agents.NewTaskService(config.TasksConfig{}, s),
		XP:       agents.NewXPService(s),
		Contacts: agents.NewContactService(s),
		Focus:    interrupt.NewPolicy(config.FocusConfig{DefaultMinutes: 25}, loc),
		Notify:   notify.NewService(),
		Store:    s,
	}
	return api.NewRouter(cfg, h)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "presentos-backend", body["service"])
}

func TestVersion(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/version", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "test", body["version"])
}

func TestTaskCreateAndList(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/v1/tasks/", map[string]string{
		"title":    "Ship the release",
		"priority": "P2",
		"avatar":   "Producer",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.TaskCreateResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, created.Success)

	rec = doJSON(t, router, "GET", "/api/v1/tasks/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var tasks []models.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "Ship the release", tasks[0].Title)
}

func TestTaskCreateRequiresTitle(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/v1/tasks/", map[string]string{"priority": "P2"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFocusLifecycle(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/v1/focus/start", map[string]any{
		"duration_minutes": 45,
		"task_name":        "deep work",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "GET", "/api/v1/focus/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status models.FocusStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Active)

	rec = doJSON(t, router, "POST", "/api/v1/focus/end", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Ending again conflicts
	rec = doJSON(t, router, "POST", "/api/v1/focus/end", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestEvaluateNotification(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/v1/notifications/evaluate", map[string]any{
		"type":     "message",
		"priority": "P5",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, "POST", "/api/v1/notifications/evaluate", map[string]any{
		"type":     "alert",
		"priority": "P1",
		"source":   "pagerduty",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var decision models.AdmissionDecision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.Equal(t, models.ActionInterrupt, decision.Action)
}

func TestAddChannelRejectsBadURL(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/v1/notifications/channels", map[string]string{
		"name": "default",
		"url":  "not-a-url",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
