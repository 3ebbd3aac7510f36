package notifier

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"helipad/pkg/logger"
	"helipad/pkg/model"
)

const relaySendTimeout = 5 * time.Second

// Bus carries encoded change events between processes.
type Bus interface {
	Send(ctx context.Context, key string, eventType string, payload []byte) error
	Close() error
}

// Relay is the engine-facing Publisher in multi-process deployments. Events
// are queued and forwarded to the bus by a single goroutine, preserving
// commit order. Every process, including this one, receives them back
// through its Feed.
type Relay struct {
	bus    Bus
	queue  chan model.ChangeEvent
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
	log    *logger.Logger
}

func NewRelay(bus Bus, queueSize int, log *logger.Logger) *Relay {
	r := &Relay{
		bus:   bus,
		queue: make(chan model.ChangeEvent, queueSize),
		done:  make(chan struct{}),
		log:   log.Component("notifier_relay"),
	}
	go r.run()
	return r
}

func (r *Relay) Publish(ctx context.Context, event model.ChangeEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.log.Warn("Relay queue full, dropping change event",
			"reservation_id", event.ID,
			"kind", event.Kind,
		)
	}
}

func (r *Relay) run() {
	defer close(r.done)

	for event := range r.queue {
		payload, err := json.Marshal(event)
		if err != nil {
			r.log.Error("Failed to encode change event", "reservation_id", event.ID, "error", err)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), relaySendTimeout)
		err = r.bus.Send(ctx, event.ResourceID, string(event.Kind), payload)
		cancel()
		if err != nil {
			r.log.Error("Failed to relay change event",
				"reservation_id", event.ID,
				"kind", event.Kind,
				"error", err,
			)
		}
	}
}

// Close flushes queued events and closes the bus.
func (r *Relay) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done
	return r.bus.Close()
}
