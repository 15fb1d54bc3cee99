package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rosterbot/internal/core/domain"
	"rosterbot/internal/infrastructure/monitoring"
	"rosterbot/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dropCounter struct{ n int }

func (d *dropCounter) RecordQueueDropped() { d.n++ }

func newTestRouter(t *testing.T, queueSize int) (*gin.Engine, chan domain.InboundEvent, *dropCounter, *monitoring.HealthChecker) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	queue := make(chan domain.InboundEvent, queueSize)
	drops := &dropCounter{}
	handler := NewCallbackHandler(CallbackConfig{
		GroupID:      42,
		Confirmation: "c0nf1rm",
		Secret:       "s3cret",
	}, queue, drops, nil)

	health := monitoring.NewHealthChecker()
	router := NewRouter(config.DefaultConfig(), handler, health, prometheus.NewRegistry(), nil)
	return router, queue, drops, health
}

func postCallback(router http.Handler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/callback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

const messageNew = `{
	"type": "message_new",
	"group_id": 42,
	"secret": "s3cret",
	"event_id": "abc",
	"object": {"message": {
		"id": 7, "date": 1709294400, "peer_id": 2000000001, "from_id": 100,
		"text": "Enter", "payload": "{\"action\":\"entered\"}"
	}}
}`

func TestCallback_Confirmation(t *testing.T) {
	router, _, _, _ := newTestRouter(t, 1)

	w := postCallback(router, `{"type": "confirmation", "group_id": 42}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c0nf1rm", w.Body.String())
}

func TestCallback_WrongGroup(t *testing.T) {
	router, _, _, _ := newTestRouter(t, 1)

	w := postCallback(router, `{"type": "confirmation", "group_id": 43}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")
}

func TestCallback_MessageNewIsQueued(t *testing.T) {
	router, queue, _, _ := newTestRouter(t, 1)

	w := postCallback(router, messageNew)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	require.Len(t, queue, 1)
	ev := <-queue
	assert.Equal(t, int64(2000000001), ev.PeerID)
	assert.Equal(t, domain.UserID(100), ev.FromID)
	assert.Equal(t, "Enter", ev.Text)
	assert.Equal(t, `{"action":"entered"}`, ev.Payload)
	assert.Equal(t, time.Unix(1709294400, 0), ev.ReceivedAt)
}

func TestCallback_SecretMismatch(t *testing.T) {
	router, queue, _, _ := newTestRouter(t, 1)

	w := postCallback(router, strings.Replace(messageNew, "s3cret", "guess", 1))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, queue)
}

func TestCallback_QueueFull(t *testing.T) {
	router, queue, drops, _ := newTestRouter(t, 1)

	require.Equal(t, http.StatusOK, postCallback(router, messageNew).Code)
	w := postCallback(router, messageNew)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "QUEUE_FULL")
	assert.Equal(t, 1, drops.n)
	assert.Len(t, queue, 1)
}

func TestCallback_CommunityMessagesAreSkipped(t *testing.T) {
	router, queue, _, _ := newTestRouter(t, 1)

	w := postCallback(router, strings.Replace(messageNew, `"from_id": 100`, `"from_id": -42`, 1))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, queue)
}

func TestCallback_OtherTypesAcknowledged(t *testing.T) {
	router, queue, _, _ := newTestRouter(t, 1)

	w := postCallback(router, `{"type": "message_reply", "group_id": 42, "object": {}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.Empty(t, queue)
}

func TestCallback_InvalidBody(t *testing.T) {
	router, _, _, _ := newTestRouter(t, 1)

	assert.Equal(t, http.StatusBadRequest, postCallback(router, `{"group_id": 42}`).Code)
	assert.Equal(t, http.StatusBadRequest, postCallback(router, `not json`).Code)
}

func TestReadiness(t *testing.T) {
	router, _, _, health := newTestRouter(t, 1)

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	assert.Equal(t, http.StatusOK, get("/health").Code)
	assert.Equal(t, http.StatusOK, get("/ready").Code)
	assert.Equal(t, http.StatusOK, get("/metrics").Code)

	health.AddCheck("storage", func(context.Context) error { return errors.New("disk full") }, time.Second)
	w := get("/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "disk full")
}
