package model

// ChatRequest is the inbound payload for one conversational turn.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

// ChatResponse is the reply for one conversational turn.
type ChatResponse struct {
	Response         string          `json:"response"`
	BookingConfirmed bool            `json:"booking_confirmed"`
	BookingDetails   *BookingDetails `json:"booking_details,omitempty"`
	ConversationID   string          `json:"conversation_id"`
}

// AvailabilityResponse lists the open slots for one date.
type AvailabilityResponse struct {
	Date           string     `json:"date"`
	AvailableSlots []TimeSlot `json:"available_slots"`
}
