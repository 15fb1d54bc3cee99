package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"rosterbot/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.RecordEvent("command", 20*time.Millisecond)
	c.RecordEvent("command", time.Millisecond)
	c.RecordEventFailure()
	c.RecordMutation(domain.GroupSenior, "add", domain.OutcomeApplied)
	c.RecordMutation(domain.GroupSenior, "add", domain.OutcomeAlreadyPresent)
	c.RecordDenial(domain.ActionAddSenior)
	c.RecordEvictions(3)
	c.SetActiveSessions(4)
	c.SetPendingPrompts(2)
	c.RecordLookupFailure("profile")
	c.RecordQueueDropped()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.eventsTotal.WithLabelValues("command")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.eventFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.mutationsTotal.WithLabelValues("senior", "add", "already_present")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.denialsTotal.WithLabelValues("add_senior")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.sessionsEvicted))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.sessionsActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.promptsPending))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.lookupFailures.WithLabelValues("profile")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.queueDroppedTotal))

	// a second collector on its own registry does not collide
	NewPrometheusCollector(prometheus.NewRegistry())
}

func TestHealthChecker(t *testing.T) {
	h := NewHealthChecker()
	h.AddCheck("storage", func(context.Context) error { return nil }, time.Second)
	assert.True(t, h.IsReady(context.Background()))

	h.AddCheck("vk", func(context.Context) error { return errors.New("circuit open") }, 0)
	status := h.CheckAll(context.Background())
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "healthy", status.Checks["storage"])
	assert.Equal(t, "circuit open", status.Checks["vk"])
	assert.False(t, h.IsReady(context.Background()))
}
