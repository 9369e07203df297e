// Package intent classifies user messages into coarse intents and extracts
// scheduling slots from their text.
package intent

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bookwise-ai/booking-assistant/internal/model"
	"github.com/bookwise-ai/booking-assistant/internal/timeparse"
	"github.com/bookwise-ai/booking-assistant/pkg/logger"
)

// Keyword buckets checked in precedence order; the first match wins.
var (
	bookingWords      = []string{"book", "schedule", "meeting", "appointment", "call"}
	availabilityWords = []string{"available", "availability", "free", "open"}
	changeWords       = []string{"cancel", "reschedule", "change"}
	affirmativeWords  = []string{"yes", "confirm", "ok", "sure", "works", "good", "fine", "perfect", "great"}
	negativeWords     = []string{"no", "not", "different", "another", "other"}
	relativeDateWords = []string{"tomorrow", "today", "monday", "tuesday", "wednesday", "thursday", "friday"}
)

// Classifier runs the deterministic rule cascade over message text.
type Classifier struct {
	logger *logger.Logger
	now    func() time.Time
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithClock overrides the base date for relative-date parsing, used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) { c.now = now }
}

// NewClassifier creates a classifier.
func NewClassifier(log *logger.Logger, opts ...Option) *Classifier {
	c := &Classifier{logger: log, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify produces the intent and extracted slots for one message given the
// conversation's current state. It never fails; text that matches nothing
// yields a general query with empty slots.
func (c *Classifier) Classify(message string, conv *model.ConversationState) model.IntentResult {
	lower := strings.ToLower(message)

	date, hasDate := timeparse.ParseRelativeDate(message, c.now())
	clock, hasTime := timeparse.ParseTimeExpression(message)

	result := model.IntentResult{
		Intent:     model.IntentGeneralQuery,
		Confidence: 0.9,
	}

	switch {
	case containsAny(lower, bookingWords):
		result.Intent = model.IntentBookAppointment
	case containsAny(lower, availabilityWords):
		result.Intent = model.IntentCheckAvailability
	case containsAny(lower, changeWords):
		result.Intent = model.IntentReschedule
	case containsAny(lower, affirmativeWords):
		// Affirmatives only confirm when a confirmation is actually in
		// flight; otherwise they read as a wish to book.
		if conv != nil && (conv.CurrentNode == model.NodeConfirmBooking || conv.PendingBooking != nil) {
			result.Intent = model.IntentConfirm
		} else {
			result.Intent = model.IntentBookAppointment
		}
	case containsAny(lower, negativeWords):
		result.Intent = model.IntentDecline
	}

	if result.Intent == model.IntentGeneralQuery && (hasDate || hasTime) {
		result.Intent = model.IntentBookAppointment
	}

	timePref := model.PreferenceFlexible
	switch {
	case hasTime:
		timePref = model.PreferenceSpecific
	case strings.Contains(lower, "morning"):
		timePref = "morning"
	case strings.Contains(lower, "afternoon"):
		timePref = "afternoon"
	case strings.Contains(lower, "evening"):
		timePref = "evening"
	}

	datePref := model.PreferenceFlexible
	if hasDate {
		datePref = model.PreferenceSpecific
	} else if containsAny(lower, relativeDateWords) {
		datePref = model.PreferenceRelative
	}

	duration := model.DefaultDurationMinutes
	if strings.Contains(message, "30") || strings.Contains(lower, "thirty") {
		duration = 30
	}
	if strings.Contains(message, "60") || strings.Contains(lower, "hour") {
		duration = 60
	}
	if strings.Contains(message, "15") || strings.Contains(lower, "fifteen") {
		duration = 15
	}

	result.Slots = model.Slots{
		Date:            date,
		Time:            clock,
		DurationMinutes: duration,
		DatePreference:  datePref,
		TimePreference:  timePref,
		Context:         message,
	}

	c.logger.Debug("intent classified",
		zap.String("intent", string(result.Intent)),
		zap.String("date", date),
		zap.String("time", clock),
		zap.String("time_preference", timePref),
	)
	return result
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
