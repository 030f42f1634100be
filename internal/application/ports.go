package application

import (
	"context"

	"go.uber.org/zap"

	"github.com/haulwise/service-dispatch/internal/events"
	"github.com/haulwise/service-dispatch/pkg/kafka"
)

// EventPublisher publishes CloudEvents; *kafka.Producer satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// MetricsRecorder receives domain counters; *metrics.Metrics satisfies it.
type MetricsRecorder interface {
	BookingCreated()
	StatusChanged(from, to string)
	DestinationDelivered()
	ResourcesSynced(status string)
	BookingsActivated(n int)
	ConflictDetected(operation string)
}

// NopPublisher drops every event. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishEvent(context.Context, string, kafka.CloudEvent) error { return nil }

type nopRecorder struct{}

func (nopRecorder) BookingCreated()              {}
func (nopRecorder) StatusChanged(string, string) {}
func (nopRecorder) DestinationDelivered()        {}
func (nopRecorder) ResourcesSynced(string)       {}
func (nopRecorder) BookingsActivated(int)        {}
func (nopRecorder) ConflictDetected(string)      {}

func orNopRecorder(m MetricsRecorder) MetricsRecorder {
	if m == nil {
		return nopRecorder{}
	}
	return m
}

func orNopPublisher(p EventPublisher) EventPublisher {
	if p == nil {
		return NopPublisher{}
	}
	return p
}

// eventPublisher wraps an EventPublisher with CloudEvent construction and
// failure logging. Publishing never fails a use case.
type eventPublisher struct {
	publisher EventPublisher
	topic     string
	logger    *zap.Logger
}

func (p eventPublisher) publish(ctx context.Context, eventType, subject string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent(events.Source, eventType, data)
	if err != nil {
		p.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}
	cloudEvent.Subject = subject

	if err := p.publisher.PublishEvent(ctx, p.topic, cloudEvent); err != nil {
		p.logger.Error("failed to publish event",
			zap.String("topic", p.topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
