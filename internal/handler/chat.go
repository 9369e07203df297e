// Package handler provides HTTP handlers for the booking assistant API.
package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/bookwise-ai/booking-assistant/internal/middleware"
	"github.com/bookwise-ai/booking-assistant/internal/model"
	"github.com/bookwise-ai/booking-assistant/internal/service"
	"github.com/bookwise-ai/booking-assistant/pkg/logger"
)

// ChatHandler handles conversational turns.
type ChatHandler struct {
	agent  *service.Agent
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(agent *service.Agent, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		agent:  agent,
		logger: log,
	}
}

// Chat handles POST /chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateConversationID(req.ConversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.agent.ProcessMessage(r.Context(), req.Message, req.ConversationID)

	h.logger.Debug("chat turn completed",
		zap.String("conversation_id", req.ConversationID),
		zap.Bool("booking_confirmed", result.BookingConfirmed),
	)

	writeJSON(w, http.StatusOK, model.ChatResponse{
		Response:         result.Response,
		BookingConfirmed: result.BookingConfirmed,
		BookingDetails:   result.Details,
		ConversationID:   req.ConversationID,
	})
}
