package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bookwise-ai/booking-assistant/internal/model"
	"github.com/bookwise-ai/booking-assistant/internal/timeparse"
	"github.com/bookwise-ai/booking-assistant/pkg/logger"
)

// suggestionWindowDays is how far ahead GetBookingSuggestions scans when no
// preferred date is given.
const suggestionWindowDays = 14

// maxSuggestions caps the suggestion list.
const maxSuggestions = 5

// bookedInterval is a committed (start, end) range on one date. Times are
// kept both as HH:MM strings and as minutes since midnight.
type bookedInterval struct {
	Start       string
	End         string
	Title       string
	Description string

	startMin int
	endMin   int
}

// MemoryService is the in-memory Service implementation. It is the sole
// writer to its calendar store; the availability re-check and the booking
// append happen under one lock so double-booking a slot is impossible.
type MemoryService struct {
	logger *logger.Logger
	now    func() time.Time

	openMin  int
	closeMin int
	slotMin  int

	mu       sync.RWMutex
	bookings map[string][]bookedInterval
}

// Option configures a MemoryService.
type Option func(*MemoryService)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryService) { s.now = now }
}

// NewMemoryService creates an empty in-memory calendar. Malformed business
// hours fall back to the defaults.
func NewMemoryService(cfg Config, log *logger.Logger, opts ...Option) *MemoryService {
	def := DefaultConfig()
	openMin, err := timeparse.MinuteOfDay(cfg.BusinessStart)
	if err != nil {
		log.Warn("invalid business start, using default", zap.String("value", cfg.BusinessStart))
		openMin, _ = timeparse.MinuteOfDay(def.BusinessStart)
	}
	closeMin, err := timeparse.MinuteOfDay(cfg.BusinessEnd)
	if err != nil || closeMin <= openMin {
		log.Warn("invalid business end, using default", zap.String("value", cfg.BusinessEnd))
		closeMin, _ = timeparse.MinuteOfDay(def.BusinessEnd)
	}
	slotMin := cfg.SlotMinutes
	if slotMin <= 0 {
		slotMin = def.SlotMinutes
	}

	s := &MemoryService{
		logger:   log,
		now:      time.Now,
		openMin:  openMin,
		closeMin: closeMin,
		slotMin:  slotMin,
		bookings: make(map[string][]bookedInterval),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// GetAvailability implements Service.
func (s *MemoryService) GetAvailability(ctx context.Context, date string, durationMinutes int) ([]model.TimeSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.availabilityLocked(date, durationMinutes)
}

// availabilityLocked generates the open slots for a date. Callers must hold
// s.mu in at least read mode.
func (s *MemoryService) availabilityLocked(date string, durationMinutes int) ([]model.TimeSlot, error) {
	if durationMinutes <= 0 {
		durationMinutes = model.DefaultDurationMinutes
	}

	day, err := time.Parse(timeparse.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}
	if day.Before(dateOnly(s.now().UTC())) || isWeekend(day) {
		return nil, nil
	}

	booked := s.bookings[date]
	var slots []model.TimeSlot
	for start := s.openMin; start+durationMinutes <= s.closeMin; start += s.slotMin {
		end := start + durationMinutes
		if overlapsAny(start, end, booked) {
			continue
		}
		slots = append(slots, model.TimeSlot{
			StartTime: timeparse.ClockString(start),
			EndTime:   timeparse.ClockString(end),
			Available: true,
		})
	}
	return slots, nil
}

// overlapsAny uses the half-open interval test: a slot conflicts only when it
// genuinely overlaps a booking, not when they merely touch.
func overlapsAny(start, end int, booked []bookedInterval) bool {
	for _, b := range booked {
		if start < b.endMin && end > b.startMin {
			return true
		}
	}
	return false
}

// BookAppointment implements Service. The availability re-check and the
// append to the store run under one exclusive lock.
func (s *MemoryService) BookAppointment(ctx context.Context, req *model.BookingRequest) (*model.BookingResult, error) {
	if req == nil {
		return nil, errors.New("nil booking request")
	}
	duration := req.DurationMinutes
	if duration <= 0 {
		duration = model.DefaultDurationMinutes
	}

	day, err := time.Parse(timeparse.DateLayout, req.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", req.Date, err)
	}
	startMin, err := timeparse.MinuteOfDay(req.Time)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if day.Before(dateOnly(s.now().UTC())) {
		return &model.BookingResult{Success: false, Reason: "Cannot book appointments in the past"}, nil
	}

	slots, err := s.availabilityLocked(req.Date, duration)
	if err != nil {
		return nil, err
	}
	start := timeparse.ClockString(startMin)
	open := false
	for _, slot := range slots {
		if slot.StartTime == start {
			open = true
			break
		}
	}
	if !open {
		return &model.BookingResult{Success: false, Reason: "The requested time slot is not available"}, nil
	}

	title := req.Title
	if title == "" {
		title = model.DefaultTitle
	}
	endMin := startMin + duration
	s.bookings[req.Date] = append(s.bookings[req.Date], bookedInterval{
		Start:       start,
		End:         timeparse.ClockString(endMin),
		Title:       title,
		Description: req.Description,
		startMin:    startMin,
		endMin:      endMin,
	})

	id := "book_" + uuid.Must(uuid.NewV7()).String()
	s.logger.Info("appointment booked",
		zap.String("booking_id", id),
		zap.String("date", req.Date),
		zap.String("time", start),
		zap.Int("duration_minutes", duration),
	)

	return &model.BookingResult{
		Success:   true,
		BookingID: id,
		Message:   fmt.Sprintf("Appointment booked successfully for %s at %s", req.Date, start),
	}, nil
}

// GetBookingSuggestions implements Service. The preferred time is accepted
// for contract compatibility but suggestions are keyed off dates only.
func (s *MemoryService) GetBookingSuggestions(ctx context.Context, preferredDate, preferredTime string, durationMinutes int) ([]model.Suggestion, error) {
	if durationMinutes <= 0 {
		durationMinutes = model.DefaultDurationMinutes
	}

	if preferredDate != "" {
		slots, err := s.GetAvailability(ctx, preferredDate, durationMinutes)
		if err != nil {
			return nil, err
		}
		display := timeparse.FormatDisplayDate(preferredDate)
		var out []model.Suggestion
		for _, slot := range slots {
			if len(out) == maxSuggestions {
				break
			}
			out = append(out, model.Suggestion{
				Date:            preferredDate,
				Time:            slot.StartTime,
				DurationMinutes: durationMinutes,
				Label:           fmt.Sprintf("%s at %s", display, slot.StartTime),
			})
		}
		return out, nil
	}

	noonMin, _ := timeparse.MinuteOfDay("12:00")
	eveningMin, _ := timeparse.MinuteOfDay("17:00")

	var out []model.Suggestion
	today := dateOnly(s.now().UTC())
	for i := 1; i <= suggestionWindowDays; i++ {
		day := today.AddDate(0, 0, i)
		if isWeekend(day) {
			continue
		}
		date := day.Format(timeparse.DateLayout)
		slots, err := s.GetAvailability(ctx, date, durationMinutes)
		if err != nil {
			return nil, err
		}

		display := timeparse.FormatDisplayDate(date)
		if slot, ok := firstSlotIn(slots, 0, noonMin); ok {
			out = append(out, model.Suggestion{
				Date:            date,
				Time:            slot.StartTime,
				DurationMinutes: durationMinutes,
				Label:           fmt.Sprintf("%s - Morning", display),
			})
		}
		if slot, ok := firstSlotIn(slots, noonMin, eveningMin); ok {
			out = append(out, model.Suggestion{
				Date:            date,
				Time:            slot.StartTime,
				DurationMinutes: durationMinutes,
				Label:           fmt.Sprintf("%s - Afternoon", display),
			})
		}
		if len(out) >= maxSuggestions {
			break
		}
	}
	return out, nil
}

// Seed registers an existing booking without availability checks. Intended
// for demo fixtures and tests.
func (s *MemoryService) Seed(date, start, end, title string) error {
	startMin, err := timeparse.MinuteOfDay(start)
	if err != nil {
		return err
	}
	endMin, err := timeparse.MinuteOfDay(end)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[date] = append(s.bookings[date], bookedInterval{
		Start:    start,
		End:      end,
		Title:    title,
		startMin: startMin,
		endMin:   endMin,
	})
	return nil
}

// SeedDemoData books a handful of meetings over the next few business days
// so a fresh process has something to show.
func (s *MemoryService) SeedDemoData() {
	day := dateOnly(s.now().UTC())
	seeded := 0
	for seeded < 3 {
		day = day.AddDate(0, 0, 1)
		if isWeekend(day) {
			continue
		}
		date := day.Format(timeparse.DateLayout)
		switch seeded {
		case 0:
			s.Seed(date, "09:00", "10:00", "Team Meeting")
			s.Seed(date, "14:00", "15:30", "Client Call")
		case 1:
			s.Seed(date, "11:00", "12:00", "Project Review")
			s.Seed(date, "16:00", "17:00", "One-on-One")
		case 2:
			s.Seed(date, "10:00", "11:00", "Stand-up")
			s.Seed(date, "15:00", "16:00", "Planning")
		}
		seeded++
	}
}

func firstSlotIn(slots []model.TimeSlot, fromMin, toMin int) (model.TimeSlot, bool) {
	for _, slot := range slots {
		min, err := timeparse.MinuteOfDay(slot.StartTime)
		if err != nil {
			continue
		}
		if min >= fromMin && min < toMin {
			return slot, true
		}
	}
	return model.TimeSlot{}, false
}
