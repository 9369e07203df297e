// Package model defines data structures for the booking assistant.
package model

import (
	"time"
)

// Node is a named state in the conversation state machine.
type Node string

const (
	NodeStart            Node = "start"
	NodeIntentBooking    Node = "intent_booking"
	NodeCollectDate      Node = "collect_date"
	NodeCollectTime      Node = "collect_time"
	NodeShowAvailability Node = "show_availability"
	NodeConfirmBooking   Node = "confirm_booking"
	NodeBookingComplete  Node = "booking_complete"
	NodeHandleQuery      Node = "handle_query"
)

// Intent is the coarse classification of the user's purpose for one message.
type Intent string

const (
	IntentBookAppointment   Intent = "book_appointment"
	IntentCheckAvailability Intent = "check_availability"
	IntentReschedule        Intent = "reschedule"
	IntentConfirm           Intent = "confirm"
	IntentDecline           Intent = "decline"
	IntentGeneralQuery      Intent = "general_query"
)

// Preference labels for the date/time preference slots. Coarse time-of-day
// labels ("morning", "afternoon", "evening") are also valid values.
const (
	PreferenceSpecific = "specific"
	PreferenceRelative = "relative"
	PreferenceFlexible = "flexible"
)

// Slots holds the scheduling information accumulated across turns. A filled
// slot persists until explicitly cleared, e.g. the time slot on a decline.
type Slots struct {
	Date            string `json:"date,omitempty"`
	Time            string `json:"time,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	DatePreference  string `json:"date_preference,omitempty"`
	TimePreference  string `json:"time_preference,omitempty"`
	Context         string `json:"context,omitempty"`
}

// Merge copies the filled fields of other into s, leaving already-accumulated
// values in place when the new turn did not extract them.
func (s *Slots) Merge(other Slots) {
	if other.Date != "" {
		s.Date = other.Date
	}
	if other.Time != "" {
		s.Time = other.Time
	}
	if other.DurationMinutes > 0 {
		s.DurationMinutes = other.DurationMinutes
	}
	if other.DatePreference != "" {
		s.DatePreference = other.DatePreference
	}
	if other.TimePreference != "" {
		s.TimePreference = other.TimePreference
	}
	if other.Context != "" {
		s.Context = other.Context
	}
}

// IntentResult is the classifier output for a single message.
type IntentResult struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Slots      Slots   `json:"slots"`
}

// ConversationState is the persisted state of one conversation, keyed by the
// caller-assigned conversation id.
type ConversationState struct {
	ID             string          `json:"id"`
	CurrentNode    Node            `json:"current_node"`
	Intent         Intent          `json:"intent,omitempty"`
	Slots          Slots           `json:"slots"`
	PendingBooking *BookingRequest `json:"pending_booking,omitempty"`
	LastResponse   string          `json:"last_response,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
