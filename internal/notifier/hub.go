package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"helipad/pkg/logger"
	"helipad/pkg/model"
)

const DefaultQueueSize = 64

var (
	ErrHubClosed       = errors.New("notifier hub is closed")
	ErrDuplicateHandle = errors.New("connection id already subscribed")
)

// Publisher is what the engine calls after a transition commits. It never
// blocks on delivery and never reports delivery failures.
type Publisher interface {
	Publish(ctx context.Context, event model.ChangeEvent)
}

// Observer is one connected client.
type Observer interface {
	Send(payload []byte) error
	Close() error
}

type subscription struct {
	id       string
	observer Observer
	queue    chan []byte
	done     chan struct{}
	stopOnce sync.Once
}

func (s *subscription) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// Hub fans committed events out to every subscribed observer. Each
// subscription has its own bounded queue and writer goroutine; events are
// enqueued under the registry lock so all observers see the same order.
type Hub struct {
	mu        sync.Mutex
	subs      map[string]*subscription
	queueSize int
	closed    bool
	wg        sync.WaitGroup
	log       *logger.Logger
}

func NewHub(queueSize int, log *logger.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Hub{
		subs:      make(map[string]*subscription),
		queueSize: queueSize,
		log:       log.Component("notifier_hub"),
	}
}

func (h *Hub) Subscribe(id string, observer Observer) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	if _, exists := h.subs[id]; exists {
		return ErrDuplicateHandle
	}

	sub := &subscription{
		id:       id,
		observer: observer,
		queue:    make(chan []byte, h.queueSize),
		done:     make(chan struct{}),
	}
	h.subs[id] = sub

	h.wg.Add(1)
	go h.pump(sub)

	h.log.Debug("Observer subscribed", "connection_id", id, "observers", len(h.subs))
	return nil
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	h.mu.Unlock()

	if ok {
		sub.stop()
		h.log.Debug("Observer unsubscribed", "connection_id", id)
	}
}

func (h *Hub) Publish(ctx context.Context, event model.ChangeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("Failed to encode change event", "reservation_id", event.ID, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	for id, sub := range h.subs {
		select {
		case sub.queue <- payload:
		default:
			delete(h.subs, id)
			sub.stop()
			h.log.Warn("Dropped slow observer", "connection_id", id)
		}
	}
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every observer and waits for their writers to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		sub.stop()
	}
	h.mu.Unlock()

	h.wg.Wait()
}

func (h *Hub) pump(sub *subscription) {
	defer h.wg.Done()
	defer func() {
		if err := sub.observer.Close(); err != nil {
			h.log.Debug("Observer close failed", "connection_id", sub.id, "error", err)
		}
	}()

	for {
		select {
		case <-sub.done:
			return
		case payload := <-sub.queue:
			if err := sub.observer.Send(payload); err != nil {
				h.log.Debug("Observer write failed", "connection_id", sub.id, "error", err)
				h.remove(sub)
				return
			}
		}
	}
}

func (h *Hub) remove(sub *subscription) {
	h.mu.Lock()
	if current, ok := h.subs[sub.id]; ok && current == sub {
		delete(h.subs, sub.id)
	}
	h.mu.Unlock()
	sub.stop()
}
