package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwise-ai/booking-assistant/internal/calendar"
	"github.com/bookwise-ai/booking-assistant/internal/dialog"
	"github.com/bookwise-ai/booking-assistant/internal/intent"
	"github.com/bookwise-ai/booking-assistant/internal/model"
	"github.com/bookwise-ai/booking-assistant/pkg/logger"
)

// Thursday morning; "tomorrow" is a business day.
var testNow = time.Date(2025, 6, 26, 8, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestAgent(t *testing.T, opts ...AgentOption) (*Agent, *calendar.MemoryService) {
	t.Helper()
	log := logger.NewNop()
	cal := calendar.NewMemoryService(calendar.DefaultConfig(), log, calendar.WithClock(fixedClock))
	classifier := intent.NewClassifier(log, intent.WithClock(fixedClock))
	graph := dialog.NewGraph(cal, log)
	opts = append(opts, WithClock(fixedClock))
	return NewAgent(NewConversationStore(), classifier, graph, cal, log, opts...), cal
}

func TestProcessMessageBooksEndToEnd(t *testing.T) {
	agent, cal := newTestAgent(t)

	result := agent.ProcessMessage(context.Background(), "I need to book a meeting tomorrow at 2pm", "conv-1")

	assert.True(t, result.BookingConfirmed)
	require.NotNil(t, result.Details)
	assert.Equal(t, "2025-06-27", result.Details.Date)
	assert.Equal(t, "14:00", result.Details.Time)
	assert.Equal(t, 30, result.Details.DurationMinutes)
	assert.Contains(t, result.Response, "Your booking is confirmed!")

	slots, err := cal.GetAvailability(context.Background(), "2025-06-27", 30)
	require.NoError(t, err)
	for _, slot := range slots {
		assert.NotEqual(t, "14:00", slot.StartTime)
	}

	conv, ok := agent.Conversation("conv-1")
	require.True(t, ok)
	assert.Equal(t, model.NodeBookingComplete, conv.CurrentNode)
	assert.Nil(t, conv.PendingBooking)
}

func TestProcessMessageListsAvailability(t *testing.T) {
	agent, _ := newTestAgent(t)

	result := agent.ProcessMessage(context.Background(), "do you have anything free on friday", "conv-1")

	assert.False(t, result.BookingConfirmed)
	assert.Contains(t, result.Response, "available time slots for Friday, June 27")

	conv, ok := agent.Conversation("conv-1")
	require.True(t, ok)
	assert.Equal(t, model.NodeCollectTime, conv.CurrentNode)
	assert.Equal(t, "2025-06-27", conv.Slots.Date)
}

func TestProcessMessageMultiTurnFlow(t *testing.T) {
	agent, _ := newTestAgent(t)

	result := agent.ProcessMessage(context.Background(), "I'd like to schedule an appointment", "conv-1")
	assert.Contains(t, result.Response, "What date would you prefer")

	result = agent.ProcessMessage(context.Background(), "tomorrow", "conv-1")
	assert.Contains(t, result.Response, "What time would work best")

	result = agent.ProcessMessage(context.Background(), "10am", "conv-1")
	assert.True(t, result.BookingConfirmed)
	require.NotNil(t, result.Details)
	assert.Equal(t, "2025-06-27", result.Details.Date)
	assert.Equal(t, "10:00", result.Details.Time)
}

func TestConfirmCommitsPendingExactlyOnce(t *testing.T) {
	agent, cal := newTestAgent(t)

	conv, release := agent.store.Acquire("conv-1", testNow)
	conv.CurrentNode = model.NodeConfirmBooking
	conv.PendingBooking = &model.BookingRequest{Date: "2025-06-27", Time: "14:00", DurationMinutes: 30}
	release()

	result := agent.ProcessMessage(context.Background(), "yes", "conv-1")
	assert.True(t, result.BookingConfirmed)
	require.NotNil(t, result.Details)
	assert.Equal(t, "14:00", result.Details.Time)
	assert.Equal(t, model.DefaultTitle, result.Details.Title)

	snapshot, ok := agent.Conversation("conv-1")
	require.True(t, ok)
	assert.Nil(t, snapshot.PendingBooking)

	// A later affirmative must not re-commit anything.
	result = agent.ProcessMessage(context.Background(), "yes", "conv-1")
	assert.False(t, result.BookingConfirmed)
	assert.Contains(t, result.Response, "What date would you prefer")

	// Exactly the one committed slot is gone.
	slots, err := cal.GetAvailability(context.Background(), "2025-06-27", 30)
	require.NoError(t, err)
	require.Len(t, slots, 15)
	for _, slot := range slots {
		assert.NotEqual(t, "14:00", slot.StartTime)
	}
}

func TestConfirmWithNothingPending(t *testing.T) {
	agent, _ := newTestAgent(t)

	conv, release := agent.store.Acquire("conv-1", testNow)
	conv.CurrentNode = model.NodeConfirmBooking
	release()

	result := agent.ProcessMessage(context.Background(), "yes", "conv-1")
	assert.False(t, result.BookingConfirmed)
	assert.Contains(t, result.Response, "I don't have a booking waiting for confirmation")

	snapshot, ok := agent.Conversation("conv-1")
	require.True(t, ok)
	assert.Equal(t, model.NodeStart, snapshot.CurrentNode)
}

func TestConfirmRejectedWhenSlotTaken(t *testing.T) {
	agent, cal := newTestAgent(t)
	require.NoError(t, cal.Seed("2025-06-27", "14:00", "15:00", "Other meeting"))

	conv, release := agent.store.Acquire("conv-1", testNow)
	conv.CurrentNode = model.NodeConfirmBooking
	conv.PendingBooking = &model.BookingRequest{Date: "2025-06-27", Time: "14:00"}
	release()

	result := agent.ProcessMessage(context.Background(), "yes", "conv-1")
	assert.False(t, result.BookingConfirmed)
	assert.Contains(t, result.Response, "I couldn't complete that booking")
	assert.Contains(t, result.Response, "The requested time slot is not available")

	snapshot, ok := agent.Conversation("conv-1")
	require.True(t, ok)
	assert.Equal(t, model.NodeCollectTime, snapshot.CurrentNode)
	assert.Nil(t, snapshot.PendingBooking)
}

// brokenCalendar fails every operation.
type brokenCalendar struct{}

func (b *brokenCalendar) GetAvailability(ctx context.Context, date string, durationMinutes int) ([]model.TimeSlot, error) {
	return nil, errors.New("calendar offline")
}

func (b *brokenCalendar) BookAppointment(ctx context.Context, req *model.BookingRequest) (*model.BookingResult, error) {
	return nil, errors.New("calendar offline")
}

func (b *brokenCalendar) GetBookingSuggestions(ctx context.Context, preferredDate, preferredTime string, durationMinutes int) ([]model.Suggestion, error) {
	return nil, errors.New("calendar offline")
}

func TestCalendarFailuresAreContained(t *testing.T) {
	log := logger.NewNop()
	cal := &brokenCalendar{}
	classifier := intent.NewClassifier(log, intent.WithClock(fixedClock))
	graph := dialog.NewGraph(cal, log)
	agent := NewAgent(NewConversationStore(), classifier, graph, cal, log, WithClock(fixedClock))

	result := agent.ProcessMessage(context.Background(), "book a meeting tomorrow at 2pm", "conv-1")
	assert.False(t, result.BookingConfirmed)
	assert.Contains(t, result.Response, "trouble checking availability")

	conv, release := agent.store.Acquire("conv-2", testNow)
	conv.CurrentNode = model.NodeConfirmBooking
	conv.PendingBooking = &model.BookingRequest{Date: "2025-06-27", Time: "14:00"}
	release()

	result = agent.ProcessMessage(context.Background(), "yes", "conv-2")
	assert.False(t, result.BookingConfirmed)
	assert.Equal(t, apologyResponse, result.Response)
}

// capturingPublisher records published booking events.
type capturingPublisher struct {
	events []*model.BookingEvent
	err    error
}

func (p *capturingPublisher) PublishBookingConfirmed(ctx context.Context, event *model.BookingEvent) error {
	p.events = append(p.events, event)
	return p.err
}

func TestBookingEventsArePublished(t *testing.T) {
	pub := &capturingPublisher{}
	agent, _ := newTestAgent(t, WithEventPublisher(pub))

	result := agent.ProcessMessage(context.Background(), "book a meeting tomorrow at 2pm", "conv-1")
	require.True(t, result.BookingConfirmed)

	require.Len(t, pub.events, 1)
	event := pub.events[0]
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "conv-1", event.ConversationID)
	assert.Equal(t, model.EventTypeBookingConfirmed, event.Type)
	assert.Equal(t, "14:00", event.Details.Time)
	assert.Equal(t, testNow, event.CreatedAt)
}

func TestPublishFailureDoesNotFailTheTurn(t *testing.T) {
	pub := &capturingPublisher{err: errors.New("stream down")}
	agent, _ := newTestAgent(t, WithEventPublisher(pub))

	result := agent.ProcessMessage(context.Background(), "book a meeting tomorrow at 2pm", "conv-1")
	assert.True(t, result.BookingConfirmed)
	assert.Contains(t, result.Response, "Your booking is confirmed!")
}

func TestGetAvailabilitySurface(t *testing.T) {
	agent, cal := newTestAgent(t)
	require.NoError(t, cal.Seed("2025-06-27", "09:00", "12:00", "Offsite"))

	slots, err := agent.GetAvailability(context.Background(), "2025-06-27")
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, "12:00", slots[0].StartTime)
}

func TestConversationUnknownID(t *testing.T) {
	agent, _ := newTestAgent(t)
	_, ok := agent.Conversation("missing")
	assert.False(t, ok)
}
