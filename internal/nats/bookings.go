package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/bookwise-ai/booking-assistant/internal/model"
	"github.com/bookwise-ai/booking-assistant/pkg/metrics"
)

const (
	// StreamName is the JetStream stream holding booking events.
	StreamName = "BOOKINGS"

	// SubjectPrefix is the root subject for booking events.
	SubjectPrefix = "bookings"
)

// BookingStream publishes booking lifecycle events to JetStream.
type BookingStream struct {
	client *Client
}

// NewBookingStream creates a booking event stream over an existing client.
func NewBookingStream(client *Client) *BookingStream {
	return &BookingStream{client: client}
}

// EnsureStream creates or updates the bookings stream.
func (b *BookingStream) EnsureStream(ctx context.Context) error {
	_, err := b.client.JetStream().CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{SubjectPrefix + ".>"},
		Retention: jetstream.LimitsPolicy,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure stream %s: %w", StreamName, err)
	}
	return nil
}

// ConfirmedSubject returns the subject for a confirmed booking event.
func ConfirmedSubject(conversationID string) string {
	return SubjectPrefix + ".confirmed." + conversationID
}

// PublishBookingConfirmed publishes a booking-confirmed event.
func (b *BookingStream) PublishBookingConfirmed(ctx context.Context, event *model.BookingEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		metrics.EventsPublished.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to marshal booking event: %w", err)
	}

	if _, err := b.client.JetStream().Publish(ctx, ConfirmedSubject(event.ConversationID), data); err != nil {
		metrics.EventsPublished.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to publish booking event: %w", err)
	}

	metrics.EventsPublished.WithLabelValues("published").Inc()
	b.client.logger.Debug("published booking event",
		zap.String("event_id", event.ID),
		zap.String("conversation_id", event.ConversationID),
	)
	return nil
}
