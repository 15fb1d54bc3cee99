package services

import (
	"sync"
	"time"

	"rosterbot/internal/core/domain"
)

// DefaultPromptTTL bounds how long a pending prompt waits for its target.
const DefaultPromptTTL = 10 * time.Minute

type pendingPrompt struct {
	action    domain.ActionKind
	createdAt time.Time
}

// ConversationTracker holds the per-actor "awaiting target" state. An actor
// with no entry is Idle. State is volatile and lives for the process only.
type ConversationTracker struct {
	mu      sync.Mutex
	prompts map[domain.UserID]pendingPrompt
	ttl     time.Duration
	now     func() time.Time
}

// NewConversationTracker creates a tracker. A ttl of zero disables expiry.
func NewConversationTracker(ttl time.Duration, now func() time.Time) *ConversationTracker {
	if now == nil {
		now = time.Now
	}
	return &ConversationTracker{
		prompts: make(map[domain.UserID]pendingPrompt),
		ttl:     ttl,
		now:     now,
	}
}

// Begin moves the actor to AwaitingTarget(action), replacing any prompt that
// was already outstanding.
func (t *ConversationTracker) Begin(actor domain.UserID, action domain.ActionKind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prompts[actor] = pendingPrompt{action: action, createdAt: t.now()}
}

// Take consumes the pending prompt of the actor, returning to Idle. Expired
// prompts are discarded and reported as absent.
func (t *ConversationTracker) Take(actor domain.UserID) (domain.ActionKind, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.prompts[actor]
	if !ok {
		return domain.ActionNone, false
	}
	delete(t.prompts, actor)
	if t.expired(p) {
		return domain.ActionNone, false
	}
	return p.action, true
}

// pending reports the outstanding prompt without consuming it.
func (t *ConversationTracker) pending(actor domain.UserID) (domain.ActionKind, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.prompts[actor]
	if !ok || t.expired(p) {
		return domain.ActionNone, false
	}
	return p.action, true
}

// PurgeExpired drops stale prompts and returns how many were removed.
func (t *ConversationTracker) PurgeExpired() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for actor, p := range t.prompts {
		if t.expired(p) {
			delete(t.prompts, actor)
			removed++
		}
	}
	return removed
}

// Len counts outstanding prompts, expired ones included until purged.
func (t *ConversationTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.prompts)
}

func (t *ConversationTracker) expired(p pendingPrompt) bool {
	return t.ttl > 0 && t.now().Sub(p.createdAt) > t.ttl
}
