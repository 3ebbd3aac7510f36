package mailer

import (
	"context"
	"sync"
	"time"

	"helipad/pkg/logger"
	"helipad/pkg/model"
)

const deliveryTimeout = 10 * time.Second

// Notifier is the engine's view of the email collaborator. Calls return
// immediately; delivery failures are logged and never reach the caller.
type Notifier interface {
	NotifyConfirmed(r *model.Reservation)
	NotifyCancelled(r *model.Reservation)
}

// Sink hands a notice to the delivery provider.
type Sink interface {
	Deliver(ctx context.Context, notice Notice) error
	Close() error
}

type Dispatcher struct {
	sink   Sink
	queue  chan Notice
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	log    *logger.Logger
}

func NewDispatcher(sink Sink, workers int, queueSize int, log *logger.Logger) *Dispatcher {
	d := &Dispatcher{
		sink:  sink,
		queue: make(chan Notice, queueSize),
		log:   log.Component("mailer"),
	}
	for i := 0; i < max(workers, 1); i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *Dispatcher) NotifyConfirmed(r *model.Reservation) {
	d.enqueue(newNotice(NoticeConfirmed, r))
}

func (d *Dispatcher) NotifyCancelled(r *model.Reservation) {
	d.enqueue(newNotice(NoticeCancelled, r))
}

func (d *Dispatcher) enqueue(notice Notice) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.Warn("Mailer closed, dropping notice", "kind", notice.Kind, "reservation_id", notice.ReservationID)
		return
	}
	select {
	case d.queue <- notice:
	default:
		d.log.Warn("Mailer queue full, dropping notice", "kind", notice.Kind, "reservation_id", notice.ReservationID)
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for notice := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		err := d.sink.Deliver(ctx, notice)
		cancel()

		if err != nil {
			d.log.Error("Failed to deliver notice",
				"kind", notice.Kind,
				"reservation_id", notice.ReservationID,
				"error", err,
			)
			continue
		}
		d.log.Debug("Notice delivered", "kind", notice.Kind, "reservation_id", notice.ReservationID)
	}
}

// Close drains queued notices and closes the sink.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	return d.sink.Close()
}
