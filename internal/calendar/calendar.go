// Package calendar provides the availability engine: slot generation from
// business hours, conflict filtering and booking writes.
package calendar

import (
	"context"

	"github.com/bookwise-ai/booking-assistant/internal/model"
)

// Service is the narrow calendar contract the assistant depends on. Any
// backend satisfying it (in-memory, external provider) is interchangeable. A
// backend backed by a remote calendar must re-validate availability
// immediately before committing.
type Service interface {
	// GetAvailability returns the open slots for a date in chronological
	// order. Past dates and weekends have no availability.
	GetAvailability(ctx context.Context, date string, durationMinutes int) ([]model.TimeSlot, error)

	// BookAppointment writes a booking if its slot is still free. Domain
	// rejections are reported in the result, not as errors.
	BookAppointment(ctx context.Context, req *model.BookingRequest) (*model.BookingResult, error)

	// GetBookingSuggestions recommends bookable slots, either for a
	// preferred date or by scanning the upcoming business days. Best-effort,
	// not exhaustive.
	GetBookingSuggestions(ctx context.Context, preferredDate, preferredTime string, durationMinutes int) ([]model.Suggestion, error)
}

// Config holds the business-hours window and slot granularity.
type Config struct {
	BusinessStart string
	BusinessEnd   string
	SlotMinutes   int
}

// DefaultConfig returns standard 9-to-5 business hours with 30-minute slots.
func DefaultConfig() Config {
	return Config{
		BusinessStart: "09:00",
		BusinessEnd:   "17:00",
		SlotMinutes:   30,
	}
}
