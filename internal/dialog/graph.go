// Package dialog implements the conversation state machine that drives a
// chat from free text to a committed booking.
package dialog

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bookwise-ai/booking-assistant/internal/calendar"
	"github.com/bookwise-ai/booking-assistant/internal/model"
	"github.com/bookwise-ai/booking-assistant/internal/timeparse"
	"github.com/bookwise-ai/booking-assistant/pkg/logger"
)

// Action signals a side effect the orchestration layer must perform.
type Action string

const (
	// ActionNone means the turn had no booking side effect.
	ActionNone Action = ""
	// ActionConfirmBooking asks the orchestration layer to commit the
	// conversation's pending booking.
	ActionConfirmBooking Action = "confirm_booking"
	// ActionBookingConfirmed reports a booking already committed this turn.
	ActionBookingConfirmed Action = "booking_confirmed"
)

// Outcome is the result of processing one conversational turn.
type Outcome struct {
	Response string
	Next     model.Node
	Action   Action
	Details  *model.BookingDetails
}

// Titler derives a meeting title from the user's own words. Implementations
// return "" when they have nothing better than the default.
type Titler interface {
	MeetingTitle(ctx context.Context, text string) string
}

// Graph routes classified messages through the conversation nodes and
// executes node handlers. Side effects are confined to calendar calls in the
// show-availability handler.
type Graph struct {
	calendar calendar.Service
	titler   Titler
	logger   *logger.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithTitler installs an optional meeting-title source.
func WithTitler(t Titler) Option {
	return func(g *Graph) { g.titler = t }
}

// NewGraph creates a conversation graph backed by the given calendar.
func NewGraph(cal calendar.Service, log *logger.Logger, opts ...Option) *Graph {
	g := &Graph{calendar: cal, logger: log}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Route decides the next node from the current node, the classified intent
// and this turn's extracted slots.
func Route(conv *model.ConversationState, res model.IntentResult) model.Node {
	switch {
	case res.Intent == model.IntentConfirm,
		res.Intent == model.IntentBookAppointment && conv.CurrentNode == model.NodeConfirmBooking:
		return model.NodeConfirmBooking
	case res.Intent == model.IntentBookAppointment:
		return model.NodeIntentBooking
	case res.Intent == model.IntentCheckAvailability:
		return model.NodeShowAvailability
	case res.Intent == model.IntentDecline:
		return model.NodeCollectTime
	case res.Slots.Date != "" || res.Slots.Time != "":
		return model.NodeIntentBooking
	default:
		return model.NodeHandleQuery
	}
}

// Process executes one turn: route to the next node, then run its handler.
func (g *Graph) Process(ctx context.Context, conv *model.ConversationState, message string, res model.IntentResult) Outcome {
	if res.Intent == model.IntentDecline {
		// A declined time must not be silently reused by the next
		// availability check.
		conv.Slots.Time = ""
	}

	next := Route(conv, res)
	g.logger.Debug("conversation routed",
		zap.String("conversation_id", conv.ID),
		zap.String("from", string(conv.CurrentNode)),
		zap.String("to", string(next)),
		zap.String("intent", string(res.Intent)),
	)
	return g.handle(ctx, next, conv, message, res)
}

// handle dispatches to the node handler. The switch covers every node; the
// trailing query handler only serves as the closed-world default.
func (g *Graph) handle(ctx context.Context, node model.Node, conv *model.ConversationState, message string, res model.IntentResult) Outcome {
	switch node {
	case model.NodeStart:
		return g.handleStart()
	case model.NodeIntentBooking:
		return g.handleIntentBooking(ctx, conv, res)
	case model.NodeCollectDate:
		return g.handleCollectDate(message, res)
	case model.NodeCollectTime:
		return g.handleCollectTime(ctx, conv, res)
	case model.NodeShowAvailability:
		return g.handleShowAvailability(ctx, conv, res)
	case model.NodeConfirmBooking:
		return g.handleConfirmBooking(conv, message)
	case model.NodeBookingComplete:
		return g.handleBookingComplete()
	case model.NodeHandleQuery:
		return g.handleQuery(ctx, conv, res)
	}
	return g.handleQuery(ctx, conv, res)
}

func (g *Graph) handleStart() Outcome {
	return Outcome{
		Response: "Hello! I'm your AI booking assistant. I can help you schedule appointments, check availability, and manage your calendar. What would you like to do today?",
		Next:     model.NodeIntentBooking,
	}
}

func (g *Graph) handleIntentBooking(ctx context.Context, conv *model.ConversationState, res model.IntentResult) Outcome {
	date := firstNonEmpty(res.Slots.Date, conv.Slots.Date)
	clock := firstNonEmpty(res.Slots.Time, conv.Slots.Time)

	if date == "" {
		return Outcome{
			Response: "I'd be happy to help you schedule an appointment! What date would you prefer? You can say something like 'tomorrow', 'next Friday', or give me a specific date.",
			Next:     model.NodeCollectDate,
		}
	}
	if clock == "" {
		return Outcome{
			Response: fmt.Sprintf("Great! I see you want to schedule something for %s. What time would work best for you?", timeparse.FormatDisplayDate(date)),
			Next:     model.NodeCollectTime,
		}
	}
	return g.handleShowAvailability(ctx, conv, res)
}

func (g *Graph) handleCollectDate(message string, res model.IntentResult) Outcome {
	switch {
	case res.Slots.Date != "":
		return Outcome{
			Response: fmt.Sprintf("Perfect! I have %s. What time would you prefer for your appointment?", timeparse.FormatDisplayDate(res.Slots.Date)),
			Next:     model.NodeCollectTime,
		}
	case timeparse.ContainsDateLike(message):
		return Outcome{
			Response: "I'm having trouble understanding that date. Could you please specify the date more clearly? For example, 'tomorrow', 'next Monday', or 'June 28th'.",
			Next:     model.NodeCollectDate,
		}
	default:
		return Outcome{
			Response: "I didn't catch a specific date. Could you tell me when you'd like to schedule your appointment? You can say 'tomorrow', 'next week', or give me a specific date.",
			Next:     model.NodeCollectDate,
		}
	}
}

func (g *Graph) handleCollectTime(ctx context.Context, conv *model.ConversationState, res model.IntentResult) Outcome {
	if res.Slots.Time != "" {
		return g.handleShowAvailability(ctx, conv, res)
	}
	switch res.Slots.TimePreference {
	case "morning", "afternoon", "evening":
		return g.handleShowAvailability(ctx, conv, res)
	}
	return Outcome{
		Response: "What time would work best for you? You can be specific like '2:00 PM' or general like 'morning' or 'afternoon'.",
		Next:     model.NodeCollectTime,
	}
}

func (g *Graph) handleShowAvailability(ctx context.Context, conv *model.ConversationState, res model.IntentResult) Outcome {
	date := firstNonEmpty(res.Slots.Date, conv.Slots.Date)
	clock := firstNonEmpty(res.Slots.Time, conv.Slots.Time)
	duration := res.Slots.DurationMinutes
	if duration <= 0 {
		duration = model.DefaultDurationMinutes
	}

	if date == "" {
		return Outcome{
			Response: "I need a date to check availability. What date would you like to schedule for?",
			Next:     model.NodeCollectDate,
		}
	}

	slots, err := g.calendar.GetAvailability(ctx, date, duration)
	if err != nil {
		g.logger.Error("availability check failed", zap.Error(err), zap.String("date", date))
		return Outcome{
			Response: "I'm having trouble checking availability right now. Please try again in a moment.",
			Next:     model.NodeIntentBooking,
		}
	}

	if len(slots) == 0 {
		return g.offerAlternatives(ctx, date, duration)
	}

	if clock != "" {
		if !slotAvailable(slots, clock) {
			return Outcome{
				Response: fmt.Sprintf("The time %s isn't available on %s. Here are some available options:\n\n%s\n\nWhich time would you prefer?", clock, date, slotList(slots, 5)),
				Next:     model.NodeCollectTime,
			}
		}
		return g.bookNow(ctx, conv, date, clock, duration, res.Slots.Context)
	}

	return Outcome{
		Response: fmt.Sprintf("Here are the available time slots for %s:\n\n%s\n\nWhich time would you prefer?", timeparse.FormatDisplayDate(date), slotList(slots, 5)),
		Next:     model.NodeCollectTime,
	}
}

// offerAlternatives handles a date with no open slots: suggest other days, or
// ask for a different date when the whole window is full.
func (g *Graph) offerAlternatives(ctx context.Context, date string, duration int) Outcome {
	suggestions, err := g.calendar.GetBookingSuggestions(ctx, "", "", duration)
	if err != nil {
		g.logger.Error("suggestion lookup failed", zap.Error(err), zap.String("date", date))
		return Outcome{
			Response: "I'm having trouble checking availability right now. Please try again in a moment.",
			Next:     model.NodeIntentBooking,
		}
	}
	if len(suggestions) == 0 {
		return Outcome{
			Response: fmt.Sprintf("I don't have any availability on %s. Would you like to try a different date?", date),
			Next:     model.NodeCollectDate,
		}
	}

	var lines []string
	for i, s := range suggestions {
		if i == 3 {
			break
		}
		lines = append(lines, "• "+s.Label)
	}
	return Outcome{
		Response: fmt.Sprintf("I don't have any availability on %s. Here are some alternative options:\n\n%s\n\nWould any of these work for you?", date, strings.Join(lines, "\n")),
		Next:     model.NodeIntentBooking,
	}
}

// bookNow books a slot the user asked for by exact time and it is open.
func (g *Graph) bookNow(ctx context.Context, conv *model.ConversationState, date, clock string, duration int, userText string) Outcome {
	req := &model.BookingRequest{
		Date:            date,
		Time:            clock,
		DurationMinutes: duration,
		Title:           g.meetingTitle(ctx, userText),
	}
	result, err := g.calendar.BookAppointment(ctx, req)
	if err != nil {
		g.logger.Error("booking failed", zap.Error(err), zap.String("conversation_id", conv.ID))
		return Outcome{
			Response: "I'm sorry, there was an issue booking that time slot. Please try a different time.",
			Next:     model.NodeCollectTime,
		}
	}
	if !result.Success {
		return Outcome{
			Response: fmt.Sprintf("I'm sorry, there was an issue booking that time slot. %s.", result.Reason),
			Next:     model.NodeCollectTime,
		}
	}

	return Outcome{
		Response: fmt.Sprintf("Perfect! I've successfully booked your appointment for %s at %s for %d minutes. Your booking is confirmed!", timeparse.FormatDisplayDate(date), clock, duration),
		Next:     model.NodeBookingComplete,
		Action:   ActionBookingConfirmed,
		Details: &model.BookingDetails{
			Date:            date,
			Time:            clock,
			DurationMinutes: duration,
			Title:           req.Title,
		},
	}
}

var (
	confirmWords = []string{"yes", "confirm", "book", "schedule", "ok", "sure", "please"}
	declineWords = []string{"no", "cancel", "different", "change"}
)

func (g *Graph) handleConfirmBooking(conv *model.ConversationState, message string) Outcome {
	lower := strings.ToLower(strings.TrimSpace(message))

	if containsAny(lower, confirmWords) {
		return Outcome{
			Response: "Perfect! I'm booking your appointment now...",
			Next:     model.NodeBookingComplete,
			Action:   ActionConfirmBooking,
		}
	}
	if containsAny(lower, declineWords) {
		conv.PendingBooking = nil
		return Outcome{
			Response: "No problem! Let's find a different time that works better for you. What would you prefer?",
			Next:     model.NodeCollectTime,
		}
	}
	return Outcome{
		Response: "Would you like me to confirm this appointment? Just let me know 'yes' to book it or 'no' if you'd like to choose a different time.",
		Next:     model.NodeConfirmBooking,
	}
}

func (g *Graph) handleBookingComplete() Outcome {
	return Outcome{
		Response: "Your appointment has been successfully booked! You should receive a confirmation shortly. Is there anything else I can help you with?",
		Next:     model.NodeStart,
	}
}

func (g *Graph) handleQuery(ctx context.Context, conv *model.ConversationState, res model.IntentResult) Outcome {
	if res.Intent == model.IntentCheckAvailability {
		return g.handleShowAvailability(ctx, conv, res)
	}
	return Outcome{
		Response: "I'm here to help you with appointment scheduling. I can:\n\n• Book new appointments\n• Check availability\n• Find suitable time slots\n\nWhat would you like to do?",
		Next:     model.NodeStart,
	}
}

func (g *Graph) meetingTitle(ctx context.Context, text string) string {
	if g.titler == nil {
		return model.DefaultTitle
	}
	if title := g.titler.MeetingTitle(ctx, text); title != "" {
		return title
	}
	return model.DefaultTitle
}

func slotAvailable(slots []model.TimeSlot, clock string) bool {
	for _, slot := range slots {
		if slot.StartTime == clock {
			return true
		}
	}
	return false
}

func slotList(slots []model.TimeSlot, limit int) string {
	var lines []string
	for i, slot := range slots {
		if i == limit {
			break
		}
		lines = append(lines, fmt.Sprintf("• %s - %s", slot.StartTime, slot.EndTime))
	}
	return strings.Join(lines, "\n")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
