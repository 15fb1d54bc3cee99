package ports

import (
	"time"

	"rosterbot/internal/core/domain"
)

// Metrics receives bot telemetry. Implemented by the Prometheus collector.
type Metrics interface {
	RecordEvent(kind string, duration time.Duration)
	RecordEventFailure()
	RecordMutation(group domain.Group, op string, outcome domain.Outcome)
	RecordDenial(action domain.ActionKind)
	RecordEvictions(count int)
	SetActiveSessions(count int)
	SetPendingPrompts(count int)
	RecordLookupFailure(kind string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordEvent(string, time.Duration)                   {}
func (NopMetrics) RecordEventFailure()                                 {}
func (NopMetrics) RecordMutation(domain.Group, string, domain.Outcome) {}
func (NopMetrics) RecordDenial(domain.ActionKind)                      {}
func (NopMetrics) RecordEvictions(int)                                 {}
func (NopMetrics) SetActiveSessions(int)                               {}
func (NopMetrics) SetPendingPrompts(int)                               {}
func (NopMetrics) RecordLookupFailure(string)                          {}
