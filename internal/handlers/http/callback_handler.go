package http

import (
	"net/http"
	"time"

	"rosterbot/internal/core/domain"
	"rosterbot/pkg/errors"
	"rosterbot/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	callbackConfirmation = "confirmation"
	callbackMessageNew   = "message_new"
)

// QueueDropRecorder counts events rejected by a full queue.
type QueueDropRecorder interface {
	RecordQueueDropped()
}

// CallbackConfig holds the values the platform uses to authenticate callbacks.
type CallbackConfig struct {
	GroupID      int64
	Confirmation string
	Secret       string
}

type callbackRequest struct {
	Type    string         `json:"type" binding:"required"`
	GroupID int64          `json:"group_id"`
	Secret  string         `json:"secret"`
	EventID string         `json:"event_id"`
	Object  callbackObject `json:"object"`
}

type callbackObject struct {
	Message *callbackMessage `json:"message"`
}

type callbackMessage struct {
	ID      int64  `json:"id"`
	Date    int64  `json:"date"`
	PeerID  int64  `json:"peer_id"`
	FromID  int64  `json:"from_id"`
	Text    string `json:"text"`
	Payload string `json:"payload"`
}

// CallbackHandler accepts Callback API deliveries and feeds new messages to
// the dispatcher queue without waiting for them to be processed.
type CallbackHandler struct {
	cfg     CallbackConfig
	queue   chan<- domain.InboundEvent
	dropped QueueDropRecorder
	logger  *zap.SugaredLogger
}

func NewCallbackHandler(cfg CallbackConfig, queue chan<- domain.InboundEvent, dropped QueueDropRecorder, logger *zap.SugaredLogger) *CallbackHandler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &CallbackHandler{
		cfg:     cfg,
		queue:   queue,
		dropped: dropped,
		logger:  logger,
	}
}

func (h *CallbackHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/callback", h.HandleCallback)
	}
}

func (h *CallbackHandler) HandleCallback(c *gin.Context) {
	var req callbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.WrapError(err, errors.ErrCodeInvalidInput, "invalid callback body", http.StatusBadRequest))
		return
	}
	if req.GroupID != h.cfg.GroupID {
		_ = c.Error(errors.NewForbiddenError("unknown group").WithContext("group_id", req.GroupID))
		return
	}

	switch req.Type {
	case callbackConfirmation:
		c.String(http.StatusOK, h.cfg.Confirmation)
		return
	case callbackMessageNew:
		if h.cfg.Secret != "" && req.Secret != h.cfg.Secret {
			_ = c.Error(errors.NewForbiddenError("secret mismatch"))
			return
		}
		if req.Object.Message == nil {
			_ = c.Error(errors.NewInvalidInputError("message_new without message"))
			return
		}
		if !h.enqueue(req.EventID, req.Object.Message) {
			_ = c.Error(errors.NewQueueFullError(cap(h.queue)))
			return
		}
	}

	c.String(http.StatusOK, "ok")
}

// enqueue reports false only when the queue is full. Messages from
// communities are acknowledged and skipped.
func (h *CallbackHandler) enqueue(eventID string, msg *callbackMessage) bool {
	if msg.FromID <= 0 {
		return true
	}

	received := time.Now()
	if msg.Date > 0 {
		received = time.Unix(msg.Date, 0)
	}
	ev := domain.InboundEvent{
		PeerID:     msg.PeerID,
		FromID:     domain.UserID(msg.FromID),
		Text:       utils.SanitizeText(msg.Text),
		Payload:    msg.Payload,
		ReceivedAt: received,
	}

	select {
	case h.queue <- ev:
		return true
	default:
		if h.dropped != nil {
			h.dropped.RecordQueueDropped()
		}
		h.logger.Warnw("event queue full, asking for redelivery",
			"event_id", eventID,
			"from_id", msg.FromID,
			"capacity", cap(h.queue),
		)
		return false
	}
}
