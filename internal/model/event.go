package model

import (
	"time"
)

// EventType represents the type of booking lifecycle event.
type EventType string

const (
	EventTypeBookingConfirmed EventType = "booking_confirmed"
)

// BookingEvent is published when a booking is committed to the calendar.
type BookingEvent struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Type           EventType      `json:"type"`
	Details        BookingDetails `json:"details"`
	CreatedAt      time.Time      `json:"created_at"`
}
