package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/notification"
)

// Sink delivers one event to the notification collaborator.
type Sink interface {
	Deliver(ctx context.Context, event notification.CheckInEvent) error
}

// Config holds dispatcher configuration
type Config struct {
	WorkerCount     int           // default: 2
	QueueSize       int           // default: 1000
	DeliveryTimeout time.Duration // default: 5 seconds
}

type dispatcher struct {
	sink   Sink
	config Config

	queue    chan notification.CheckInEvent
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewDispatcher returns a fire-and-forget Publisher that hands events to sink from background workers.
func NewDispatcher(sink Sink, cfg Config) notification.Publisher {
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1000
	}
	if cfg.DeliveryTimeout == 0 {
		cfg.DeliveryTimeout = 5 * time.Second
	}

	d := &dispatcher{
		sink:   sink,
		config: cfg,
		queue:  make(chan notification.CheckInEvent, cfg.QueueSize),
		stopCh: make(chan struct{}),
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}

	slog.Info("Notification dispatcher started", "workers", cfg.WorkerCount, "queue_size", cfg.QueueSize)

	return d
}

func (d *dispatcher) worker(id int) {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.queue:
			d.deliver(id, event)
		case <-d.stopCh:
			// drain what is already queued
			for {
				select {
				case event := <-d.queue:
					d.deliver(id, event)
				default:
					return
				}
			}
		}
	}
}

func (d *dispatcher) deliver(worker int, event notification.CheckInEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.DeliveryTimeout)
	defer cancel()

	if err := d.sink.Deliver(ctx, event); err != nil {
		slog.Warn("Notification delivery failed",
			"worker", worker,
			"punch_id", event.PunchID,
			"employee_id", event.EmployeeID,
			"error", err,
		)
	}
}

// Publish queues the event. A full queue drops the event with a warning.
func (d *dispatcher) Publish(ctx context.Context, event notification.CheckInEvent) error {
	select {
	case <-d.stopCh:
		return notification.ErrPublisherClosed
	default:
	}

	select {
	case d.queue <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		slog.Warn("Notification queue full, event dropped", "punch_id", event.PunchID, "employee_id", event.EmployeeID)
		return nil
	}
}

// Close stops the workers after the queue is drained.
func (d *dispatcher) Close() {
	d.stopOnce.Do(func() {
		close(d.stopCh)
		d.wg.Wait()
		slog.Info("Notification dispatcher stopped")
	})
}
