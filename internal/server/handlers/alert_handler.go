package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anilytics/agriwarehouse/internal/domain/models"
)

// MessageSender delivers manual operator messages.
type MessageSender interface {
	SendMessage(ctx context.Context, req models.OutboundMessageRequest) (string, error)
}

// AlertHandler handles outbound operator messages.
type AlertHandler struct {
	svc    MessageSender
	logger *zap.Logger
}

// NewAlertHandler constructs the alert HTTP adapter.
func NewAlertHandler(svc MessageSender, logger *zap.Logger) *AlertHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertHandler{svc: svc, logger: logger}
}

// SendMessage sends a manual message to the given or the configured recipient.
func (h *AlertHandler) SendMessage(c *gin.Context) {
	var req models.OutboundMessageRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	id, err := h.svc.SendMessage(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusAccepted, models.OutboundMessageResponse{MessageID: id, To: req.To})
}
