package notification

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/kafka"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/sse"
)

type kafkaSink struct {
	producer *kafka.Producer
}

// NewKafkaSink keys records by employee so one employee's events stay ordered.
func NewKafkaSink(producer *kafka.Producer) Sink {
	return &kafkaSink{producer: producer}
}

func (s *kafkaSink) Deliver(ctx context.Context, event notification.CheckInEvent) error {
	return s.producer.ProduceJSON(ctx, event.EmployeeID, event)
}

type logSink struct{}

// NewLogSink is used when no broker is configured.
func NewLogSink() Sink {
	return logSink{}
}

func (logSink) Deliver(_ context.Context, event notification.CheckInEvent) error {
	slog.Info("Check-in event",
		"type", event.Type,
		"punch_id", event.PunchID,
		"employee_id", event.EmployeeID,
		"date", event.Date,
		"time", event.Time,
		"direction", event.Direction,
	)
	return nil
}

type hubSink struct {
	hub *sse.Hub
}

// NewHubSink feeds the live check-in stream. Events go to the employee's topic and to sse.TopicAll.
func NewHubSink(hub *sse.Hub) Sink {
	return &hubSink{hub: hub}
}

func (s *hubSink) Deliver(_ context.Context, event notification.CheckInEvent) error {
	s.hub.Publish(sse.Event{Event: string(event.Type), Data: event}, sse.TopicAll, event.EmployeeID)
	return nil
}

type multiSink []Sink

// NewMultiSink delivers to every sink and joins their errors.
func NewMultiSink(sinks ...Sink) Sink {
	return multiSink(sinks)
}

func (m multiSink) Deliver(ctx context.Context, event notification.CheckInEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Deliver(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
