package dialog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwise-ai/booking-assistant/internal/calendar"
	"github.com/bookwise-ai/booking-assistant/internal/model"
	"github.com/bookwise-ai/booking-assistant/pkg/logger"
)

// Friday morning.
var testNow = time.Date(2025, 6, 27, 8, 0, 0, 0, time.UTC)

func newTestGraph(t *testing.T) (*Graph, *calendar.MemoryService) {
	t.Helper()
	cal := calendar.NewMemoryService(calendar.DefaultConfig(), logger.NewNop(),
		calendar.WithClock(func() time.Time { return testNow }))
	return NewGraph(cal, logger.NewNop()), cal
}

func newConv(node model.Node) *model.ConversationState {
	return &model.ConversationState{ID: "conv-1", CurrentNode: node}
}

func TestRoute(t *testing.T) {
	tests := []struct {
		name   string
		node   model.Node
		result model.IntentResult
		want   model.Node
	}{
		{"confirm goes to confirm node", model.NodeStart,
			model.IntentResult{Intent: model.IntentConfirm}, model.NodeConfirmBooking},
		{"booking while confirming stays confirming", model.NodeConfirmBooking,
			model.IntentResult{Intent: model.IntentBookAppointment}, model.NodeConfirmBooking},
		{"booking goes to intent node", model.NodeStart,
			model.IntentResult{Intent: model.IntentBookAppointment}, model.NodeIntentBooking},
		{"availability goes to show node", model.NodeStart,
			model.IntentResult{Intent: model.IntentCheckAvailability}, model.NodeShowAvailability},
		{"decline collects a new time", model.NodeConfirmBooking,
			model.IntentResult{Intent: model.IntentDecline}, model.NodeCollectTime},
		{"bare date goes to intent node", model.NodeStart,
			model.IntentResult{Intent: model.IntentGeneralQuery, Slots: model.Slots{Date: "2025-06-30"}}, model.NodeIntentBooking},
		{"bare time goes to intent node", model.NodeStart,
			model.IntentResult{Intent: model.IntentGeneralQuery, Slots: model.Slots{Time: "14:00"}}, model.NodeIntentBooking},
		{"nothing goes to query node", model.NodeStart,
			model.IntentResult{Intent: model.IntentGeneralQuery}, model.NodeHandleQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Route(newConv(tt.node), tt.result))
		})
	}
}

func TestProcessAsksForDateThenTime(t *testing.T) {
	g, _ := newTestGraph(t)
	conv := newConv(model.NodeStart)

	out := g.Process(context.Background(), conv, "I want to book a meeting",
		model.IntentResult{Intent: model.IntentBookAppointment})
	assert.Contains(t, out.Response, "What date would you prefer")
	assert.Equal(t, model.NodeCollectDate, out.Next)

	conv.CurrentNode = out.Next
	conv.Slots.Date = "2025-06-30"
	out = g.Process(context.Background(), conv, "monday",
		model.IntentResult{Intent: model.IntentBookAppointment, Slots: model.Slots{Date: "2025-06-30"}})
	assert.Contains(t, out.Response, "What time would work best")
	assert.Equal(t, model.NodeCollectTime, out.Next)
}

func TestProcessBooksExactOpenTime(t *testing.T) {
	g, cal := newTestGraph(t)
	conv := newConv(model.NodeStart)

	out := g.Process(context.Background(), conv, "book a meeting monday at 2pm",
		model.IntentResult{
			Intent: model.IntentBookAppointment,
			Slots:  model.Slots{Date: "2025-06-30", Time: "14:00", DurationMinutes: 30},
		})

	assert.Equal(t, ActionBookingConfirmed, out.Action)
	assert.Equal(t, model.NodeBookingComplete, out.Next)
	assert.Contains(t, out.Response, "Monday, June 30 at 14:00 for 30 minutes")
	require.NotNil(t, out.Details)
	assert.Equal(t, "2025-06-30", out.Details.Date)
	assert.Equal(t, "14:00", out.Details.Time)
	assert.Equal(t, model.DefaultTitle, out.Details.Title)

	slots, err := cal.GetAvailability(context.Background(), "2025-06-30", 30)
	require.NoError(t, err)
	for _, slot := range slots {
		assert.NotEqual(t, "14:00", slot.StartTime)
	}
}

func TestProcessListsAlternativesWhenTimeTaken(t *testing.T) {
	g, cal := newTestGraph(t)
	require.NoError(t, cal.Seed("2025-06-30", "14:00", "15:00", "Busy"))
	conv := newConv(model.NodeStart)

	out := g.Process(context.Background(), conv, "book monday at 2pm",
		model.IntentResult{
			Intent: model.IntentBookAppointment,
			Slots:  model.Slots{Date: "2025-06-30", Time: "14:00"},
		})

	assert.Equal(t, ActionNone, out.Action)
	assert.Equal(t, model.NodeCollectTime, out.Next)
	assert.Contains(t, out.Response, "14:00 isn't available on 2025-06-30")
	assert.Contains(t, out.Response, "• 09:00 - 09:30")
}

func TestProcessListsSlotsWithoutTime(t *testing.T) {
	g, _ := newTestGraph(t)
	conv := newConv(model.NodeStart)

	out := g.Process(context.Background(), conv, "what's open on monday",
		model.IntentResult{
			Intent: model.IntentCheckAvailability,
			Slots:  model.Slots{Date: "2025-06-30"},
		})

	assert.Equal(t, model.NodeCollectTime, out.Next)
	assert.Contains(t, out.Response, "available time slots for Monday, June 30")
	assert.Contains(t, out.Response, "• 09:00 - 09:30")
}

func TestProcessOffersOtherDaysWhenDateFull(t *testing.T) {
	g, cal := newTestGraph(t)
	// Saturday has no availability at all.
	conv := newConv(model.NodeStart)

	out := g.Process(context.Background(), conv, "anything on saturday?",
		model.IntentResult{
			Intent: model.IntentCheckAvailability,
			Slots:  model.Slots{Date: "2025-06-28"},
		})

	assert.Equal(t, model.NodeIntentBooking, out.Next)
	assert.Contains(t, out.Response, "I don't have any availability on 2025-06-28")
	assert.Contains(t, out.Response, "•")

	// The lookup must not create bookings.
	slots, err := cal.GetAvailability(context.Background(), "2025-06-30", 30)
	require.NoError(t, err)
	assert.Len(t, slots, 16)
}

func TestProcessAccumulatedSlotsAcrossTurns(t *testing.T) {
	g, _ := newTestGraph(t)
	conv := newConv(model.NodeCollectTime)
	conv.Slots = model.Slots{Date: "2025-06-30"}

	out := g.Process(context.Background(), conv, "2pm works",
		model.IntentResult{
			Intent: model.IntentBookAppointment,
			Slots:  model.Slots{Time: "14:00"},
		})

	assert.Equal(t, ActionBookingConfirmed, out.Action)
	require.NotNil(t, out.Details)
	assert.Equal(t, "2025-06-30", out.Details.Date)
}

func TestConfirmBookingResponses(t *testing.T) {
	g, _ := newTestGraph(t)

	conv := newConv(model.NodeConfirmBooking)
	conv.PendingBooking = &model.BookingRequest{Date: "2025-06-30", Time: "14:00"}
	out := g.Process(context.Background(), conv, "yes please",
		model.IntentResult{Intent: model.IntentConfirm})
	assert.Equal(t, ActionConfirmBooking, out.Action)
	assert.Equal(t, model.NodeBookingComplete, out.Next)

	conv = newConv(model.NodeConfirmBooking)
	conv.PendingBooking = &model.BookingRequest{Date: "2025-06-30", Time: "14:00"}
	out = g.Process(context.Background(), conv, "no, cancel that",
		model.IntentResult{Intent: model.IntentDecline})
	// Decline routes to collect_time, dropping the pending booking flow.
	assert.Equal(t, model.NodeCollectTime, out.Next)

	conv = newConv(model.NodeConfirmBooking)
	out = g.Process(context.Background(), conv, "maybe later",
		model.IntentResult{Intent: model.IntentBookAppointment})
	assert.Equal(t, model.NodeConfirmBooking, out.Next)
	assert.Contains(t, out.Response, "Would you like me to confirm")
}

func TestDeclineClearsAccumulatedTime(t *testing.T) {
	g, _ := newTestGraph(t)
	conv := newConv(model.NodeConfirmBooking)
	conv.Slots = model.Slots{Date: "2025-06-30", Time: "14:00"}

	out := g.Process(context.Background(), conv, "no",
		model.IntentResult{Intent: model.IntentDecline})

	assert.Empty(t, conv.Slots.Time)
	assert.Equal(t, "2025-06-30", conv.Slots.Date)
	assert.Equal(t, model.NodeCollectTime, out.Next)
	assert.Contains(t, out.Response, "What time would work best")
}

func TestBookingCompleteReturnsToStart(t *testing.T) {
	g, _ := newTestGraph(t)
	conv := newConv(model.NodeBookingComplete)

	out := g.handle(context.Background(), model.NodeBookingComplete, conv, "thanks", model.IntentResult{})
	assert.Equal(t, model.NodeStart, out.Next)
	assert.Contains(t, out.Response, "successfully booked")
}

func TestHandleQueryListsCapabilities(t *testing.T) {
	g, _ := newTestGraph(t)
	conv := newConv(model.NodeStart)

	out := g.Process(context.Background(), conv, "what can you do",
		model.IntentResult{Intent: model.IntentGeneralQuery})
	assert.Equal(t, model.NodeStart, out.Next)
	assert.Contains(t, out.Response, "Book new appointments")
}

// failingCalendar errors on every call.
type failingCalendar struct{}

func (f *failingCalendar) GetAvailability(ctx context.Context, date string, durationMinutes int) ([]model.TimeSlot, error) {
	return nil, errors.New("backend down")
}

func (f *failingCalendar) BookAppointment(ctx context.Context, req *model.BookingRequest) (*model.BookingResult, error) {
	return nil, errors.New("backend down")
}

func (f *failingCalendar) GetBookingSuggestions(ctx context.Context, preferredDate, preferredTime string, durationMinutes int) ([]model.Suggestion, error) {
	return nil, errors.New("backend down")
}

func TestProcessContainsCalendarErrors(t *testing.T) {
	g := NewGraph(&failingCalendar{}, logger.NewNop())
	conv := newConv(model.NodeStart)

	out := g.Process(context.Background(), conv, "book monday at 2pm",
		model.IntentResult{
			Intent: model.IntentBookAppointment,
			Slots:  model.Slots{Date: "2025-06-30", Time: "14:00"},
		})

	assert.Equal(t, ActionNone, out.Action)
	assert.Equal(t, model.NodeIntentBooking, out.Next)
	assert.Contains(t, out.Response, "trouble checking availability")
}

// fixedTitler always returns the same title.
type fixedTitler struct{ title string }

func (f *fixedTitler) MeetingTitle(ctx context.Context, text string) string { return f.title }

func TestBookingUsesSuggestedTitle(t *testing.T) {
	cal := calendar.NewMemoryService(calendar.DefaultConfig(), logger.NewNop(),
		calendar.WithClock(func() time.Time { return testNow }))
	g := NewGraph(cal, logger.NewNop(), WithTitler(&fixedTitler{title: "Quarterly Review"}))
	conv := newConv(model.NodeStart)

	out := g.Process(context.Background(), conv, "book the quarterly review monday at 2pm",
		model.IntentResult{
			Intent: model.IntentBookAppointment,
			Slots:  model.Slots{Date: "2025-06-30", Time: "14:00"},
		})

	require.NotNil(t, out.Details)
	assert.Equal(t, "Quarterly Review", out.Details.Title)
}
