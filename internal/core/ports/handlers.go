package ports

import (
	"context"

	"rosterbot/internal/core/domain"
)

// EventHandler processes one inbound chat event to completion.
type EventHandler interface {
	HandleEvent(ctx context.Context, event domain.InboundEvent) error
}
