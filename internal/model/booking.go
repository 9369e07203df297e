package model

// DefaultDurationMinutes is the appointment length assumed when the user
// never states one.
const DefaultDurationMinutes = 30

// DefaultTitle is used for bookings with no derived title.
const DefaultTitle = "Meeting"

// BookingRequest is an immutable request to book one appointment. A new
// instance is built per booking attempt.
type BookingRequest struct {
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
}

// TimeSlot is a bookable window derived from business hours and existing
// bookings. Never persisted and never mutated after creation.
type TimeSlot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
}

// BookingResult reports the outcome of a booking attempt. Domain rejections
// (past date, slot taken) are carried in Reason with Success false; they are
// not errors.
type BookingResult struct {
	Success   bool   `json:"success"`
	BookingID string `json:"booking_id,omitempty"`
	Message   string `json:"message,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Suggestion is a labeled booking recommendation.
type Suggestion struct {
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
	Label           string `json:"label"`
}

// BookingDetails is the structured confirmation payload returned to the
// caller alongside the response text.
type BookingDetails struct {
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
	Title           string `json:"title"`
}
