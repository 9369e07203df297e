package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bookwise-ai/booking-assistant/internal/middleware"
	"github.com/bookwise-ai/booking-assistant/internal/service"
	"github.com/bookwise-ai/booking-assistant/pkg/logger"
)

// ConversationHandler exposes conversation state inspection.
type ConversationHandler struct {
	agent  *service.Agent
	logger *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(agent *service.Agent, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		agent:  agent,
		logger: log,
	}
}

// Get handles GET /conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, ok := h.agent.Conversation(id)
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	writeJSON(w, http.StatusOK, conv)
}
