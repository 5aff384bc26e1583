package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/llm-gateway/utils"
	"go.uber.org/zap"
)

// SessionHandler handles session history requests
type SessionHandler struct {
	service GatewayService
	logger  *zap.Logger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(service GatewayService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		logger:  logger,
	}
}

// HandleGetMessages handles GET /api/v1/sessions/{id}/messages
func (h *SessionHandler) HandleGetMessages(w http.ResponseWriter, r *http.Request) {
	sessionID, err := utils.ParseUUID(chi.URLParam(r, "id"), "session id")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	history, err := h.service.GetSessionMessages(r.Context(), sessionID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, history)
}

// HandleDelete handles DELETE /api/v1/sessions/{id}
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID, err := utils.ParseUUID(chi.URLParam(r, "id"), "session id")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	if err := h.service.DeleteSession(r.Context(), sessionID); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}
