package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bookwise-ai/booking-assistant/internal/calendar"
	"github.com/bookwise-ai/booking-assistant/internal/dialog"
	"github.com/bookwise-ai/booking-assistant/internal/intent"
	"github.com/bookwise-ai/booking-assistant/internal/model"
	"github.com/bookwise-ai/booking-assistant/pkg/logger"
	"github.com/bookwise-ai/booking-assistant/pkg/metrics"
)

// apologyResponse is the single user-visible fallback for unexpected
// internal failures. The conversation continues; the caller never sees a
// crash.
const apologyResponse = "I'm sorry, I encountered an error while processing your request. Please try again."

// EventPublisher publishes booking lifecycle events. It may be nil when
// eventing is disabled.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, event *model.BookingEvent) error
}

// Result is the outcome of one processed message.
type Result struct {
	Response         string
	BookingConfirmed bool
	Details          *model.BookingDetails
}

// Agent is the session/orchestration layer: it owns the conversation map,
// drives each message through the classifier and the state machine, and
// reconciles booking side effects.
type Agent struct {
	store      *ConversationStore
	classifier *intent.Classifier
	graph      *dialog.Graph
	calendar   calendar.Service
	events     EventPublisher
	logger     *logger.Logger
	now        func() time.Time
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithEventPublisher installs an optional booking event publisher.
func WithEventPublisher(p EventPublisher) AgentOption {
	return func(a *Agent) { a.events = p }
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) AgentOption {
	return func(a *Agent) { a.now = now }
}

// NewAgent creates the orchestration layer over its injected collaborators.
func NewAgent(
	store *ConversationStore,
	classifier *intent.Classifier,
	graph *dialog.Graph,
	cal calendar.Service,
	log *logger.Logger,
	opts ...AgentOption,
) *Agent {
	a := &Agent{
		store:      store,
		classifier: classifier,
		graph:      graph,
		calendar:   cal,
		logger:     log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ProcessMessage drives one conversational turn. It never fails from the
// caller's perspective: unexpected internal failures become the generic
// apology response.
func (a *Agent) ProcessMessage(ctx context.Context, message, conversationID string) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("panic while processing message",
				zap.Any("panic", r),
				zap.String("conversation_id", conversationID),
			)
			result = &Result{Response: apologyResponse}
		}
	}()

	now := a.now()
	conv, release := a.store.Acquire(conversationID, now)
	defer release()
	conv.UpdatedAt = now
	metrics.ConversationsActive.Set(float64(a.store.Len()))

	classified := a.classifier.Classify(message, conv)
	conv.Intent = classified.Intent
	conv.Slots.Merge(classified.Slots)
	metrics.MessagesTotal.WithLabelValues(string(classified.Intent)).Inc()

	outcome := a.graph.Process(ctx, conv, message, classified)
	conv.CurrentNode = outcome.Next
	conv.LastResponse = outcome.Response

	result = &Result{Response: outcome.Response}
	switch outcome.Action {
	case dialog.ActionConfirmBooking:
		a.commitPending(ctx, conv, result)
	case dialog.ActionBookingConfirmed:
		result.BookingConfirmed = true
		result.Details = outcome.Details
		a.reportConfirmed(ctx, conv.ID, outcome.Details)
	}

	// A completed or restarted conversation must not carry a stale pending
	// booking that a later affirmative could re-commit.
	if conv.CurrentNode == model.NodeBookingComplete || conv.CurrentNode == model.NodeStart {
		conv.PendingBooking = nil
	}

	return result
}

// commitPending commits the conversation's pending booking and folds the
// outcome into the response.
func (a *Agent) commitPending(ctx context.Context, conv *model.ConversationState, result *Result) {
	pending := conv.PendingBooking
	conv.PendingBooking = nil
	if pending == nil {
		a.logger.Warn("confirm requested with no pending booking", zap.String("conversation_id", conv.ID))
		result.Response = "I don't have a booking waiting for confirmation. What would you like to schedule?"
		conv.CurrentNode = model.NodeStart
		return
	}

	booked, err := a.calendar.BookAppointment(ctx, pending)
	if err != nil {
		a.logger.Error("pending booking commit failed", zap.Error(err), zap.String("conversation_id", conv.ID))
		metrics.BookingsTotal.WithLabelValues("failed").Inc()
		result.Response = apologyResponse
		conv.CurrentNode = model.NodeCollectTime
		return
	}
	if !booked.Success {
		metrics.BookingsTotal.WithLabelValues("rejected").Inc()
		result.Response = fmt.Sprintf("I'm sorry, I couldn't complete that booking. %s. What other time would work for you?", booked.Reason)
		conv.CurrentNode = model.NodeCollectTime
		return
	}

	details := &model.BookingDetails{
		Date:            pending.Date,
		Time:            pending.Time,
		DurationMinutes: pending.DurationMinutes,
		Title:           pending.Title,
	}
	if details.DurationMinutes <= 0 {
		details.DurationMinutes = model.DefaultDurationMinutes
	}
	if details.Title == "" {
		details.Title = model.DefaultTitle
	}

	result.BookingConfirmed = true
	result.Details = details
	a.reportConfirmed(ctx, conv.ID, details)
}

// reportConfirmed records metrics and publishes the booking event.
func (a *Agent) reportConfirmed(ctx context.Context, conversationID string, details *model.BookingDetails) {
	metrics.BookingsTotal.WithLabelValues("confirmed").Inc()
	if a.events == nil || details == nil {
		return
	}
	event := &model.BookingEvent{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		Type:           model.EventTypeBookingConfirmed,
		Details:        *details,
		CreatedAt:      a.now(),
	}
	if err := a.events.PublishBookingConfirmed(ctx, event); err != nil {
		a.logger.Warn("failed to publish booking event", zap.Error(err), zap.String("conversation_id", conversationID))
	}
}

// GetAvailability is the read-only inbound surface listing a date's open
// slots at the default duration.
func (a *Agent) GetAvailability(ctx context.Context, date string) ([]model.TimeSlot, error) {
	return a.calendar.GetAvailability(ctx, date, model.DefaultDurationMinutes)
}

// Conversation returns a diagnostic snapshot of one conversation.
func (a *Agent) Conversation(id string) (*model.ConversationState, bool) {
	return a.store.Get(id)
}
