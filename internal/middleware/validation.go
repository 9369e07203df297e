package middleware

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/bookwise-ai/booking-assistant/internal/timeparse"
)

// ValidateMessageContent validates a chat message body.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("message cannot be empty")
	}
	if len(content) > 10000 {
		return errors.New("message exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("message must be valid UTF-8")
	}
	return nil
}

// ValidateConversationID validates a caller-assigned conversation ID.
// IDs are opaque strings, not UUIDs.
func ValidateConversationID(id string) error {
	if len(id) == 0 {
		return errors.New("conversation ID cannot be empty")
	}
	if len(id) > 128 {
		return errors.New("conversation ID exceeds maximum length")
	}
	if !utf8.ValidString(id) {
		return errors.New("conversation ID must be valid UTF-8")
	}
	return nil
}

// ValidateDate validates an ISO calendar date.
func ValidateDate(date string) error {
	if _, err := time.Parse(timeparse.DateLayout, date); err != nil {
		return errors.New("date must be in YYYY-MM-DD format")
	}
	return nil
}
