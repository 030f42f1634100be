package events

import (
	"context"
	"errors"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/haulwise/service-dispatch/pkg/domain"
	"github.com/haulwise/service-dispatch/pkg/kafka"
)

// LocationReporter stores a driver's GPS fix on a booking.
type LocationReporter interface {
	ReportLocation(ctx context.Context, driverID, bookingID uuid.UUID, latitude, longitude, accuracy float64) error
}

// DriverLocationConsumer applies location fixes from the telemetry topic.
type DriverLocationConsumer struct {
	consumer *kafka.Consumer
	reporter LocationReporter
	logger   *zap.Logger
}

// NewDriverLocationConsumer creates a new DriverLocationConsumer.
func NewDriverLocationConsumer(
	brokers []string,
	groupID string,
	topic string,
	reporter LocationReporter,
	logger *zap.Logger,
) *DriverLocationConsumer {
	return &DriverLocationConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, topic, logger),
		reporter: reporter,
		logger:   logger,
	}
}

// Start begins consuming location events. This blocks until the context is cancelled.
func (c *DriverLocationConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *DriverLocationConsumer) Close() error {
	return c.consumer.Close()
}

func (c *DriverLocationConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from telemetry topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case DriverLocationReported:
		return c.handleLocationReported(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled telemetry event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *DriverLocationConsumer) handleLocationReported(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt DriverLocationReportedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse DriverLocationReportedEvent data", zap.Error(err))
		return nil // Don't retry malformed data
	}
	if evt.BookingID == uuid.Nil || evt.DriverID == uuid.Nil {
		c.logger.Warn("location event without booking or driver", zap.String("event_id", cloudEvent.ID))
		return nil
	}

	err := c.reporter.ReportLocation(ctx, evt.DriverID, evt.BookingID, evt.Latitude, evt.Longitude, evt.Accuracy)
	if err == nil {
		return nil
	}

	// Business rejections will not succeed on redelivery.
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) && !errors.Is(err, domain.ErrConflict) {
		c.logger.Warn("location update rejected",
			zap.String("booking_id", evt.BookingID.String()),
			zap.String("driver_id", evt.DriverID.String()),
			zap.String("code", domainErr.Code),
			zap.String("reason", domainErr.Message),
		)
		return nil
	}

	c.logger.Error("failed to apply driver location",
		zap.String("booking_id", evt.BookingID.String()),
		zap.Error(err),
	)
	return err
}
