package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bookwise-ai/booking-assistant/internal/middleware"
	"github.com/bookwise-ai/booking-assistant/internal/model"
	"github.com/bookwise-ai/booking-assistant/internal/service"
	"github.com/bookwise-ai/booking-assistant/pkg/logger"
)

// AvailabilityHandler exposes calendar availability lookups.
type AvailabilityHandler struct {
	agent  *service.Agent
	logger *logger.Logger
}

// NewAvailabilityHandler creates a new availability handler.
func NewAvailabilityHandler(agent *service.Agent, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		agent:  agent,
		logger: log,
	}
}

// Availability handles GET /availability/{date}
func (h *AvailabilityHandler) Availability(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if err := middleware.ValidateDate(date); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	slots, err := h.agent.GetAvailability(r.Context(), date)
	if err != nil {
		h.logger.Error("availability lookup failed", zap.String("date", date), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to check availability")
		return
	}

	if slots == nil {
		slots = []model.TimeSlot{}
	}

	writeJSON(w, http.StatusOK, model.AvailabilityResponse{
		Date:           date,
		AvailableSlots: slots,
	})
}
