package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"helipad/pkg/logger"
	"helipad/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBus struct {
	mu     sync.Mutex
	sent   []string
	keys   []string
	fail   bool
	closed bool
}

func (b *fakeBus) Send(ctx context.Context, key string, eventType string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errors.New("broker down")
	}
	var e model.ChangeEvent
	if err := json.Unmarshal(payload, &e); err != nil {
		return err
	}
	b.sent = append(b.sent, e.ID)
	b.keys = append(b.keys, key)
	return nil
}

func (b *fakeBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func TestRelay_ForwardsInOrderAndFlushesOnClose(t *testing.T) {
	bus := &fakeBus{}
	relay := NewRelay(bus, 100, logger.Discard())

	var want []string
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("r%d", i)
		want = append(want, id)
		relay.Publish(context.Background(), event(id))
	}
	require.NoError(t, relay.Close())

	assert.Equal(t, want, bus.sent)
	assert.Equal(t, "pad", bus.keys[0])
	assert.True(t, bus.closed)

	relay.Publish(context.Background(), event("late"))
	assert.Len(t, bus.sent, 20)
}

func TestRelay_BusFailureIsSwallowed(t *testing.T) {
	bus := &fakeBus{fail: true}
	relay := NewRelay(bus, 4, logger.Discard())

	relay.Publish(context.Background(), event("r1"))
	require.NoError(t, relay.Close())
	assert.Empty(t, bus.sent)
}

type chanSource struct {
	ch     chan []byte
	closed chan struct{}
	once   sync.Once
}

func newChanSource() *chanSource {
	return &chanSource{ch: make(chan []byte, 8), closed: make(chan struct{})}
}

func (s *chanSource) Receive(ctx context.Context) ([]byte, error) {
	select {
	case p := <-s.ch:
		return p, nil
	case <-s.closed:
		return nil, ErrSourceClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *chanSource) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func TestFeed_RepublishesIntoHub(t *testing.T) {
	hub := NewHub(16, logger.Discard())
	defer hub.Close()
	observer := newRecordingObserver()
	require.NoError(t, hub.Subscribe("conn", observer))

	source := newChanSource()
	feed := NewFeed(source, hub, logger.Discard())

	done := make(chan error, 1)
	go func() { done <- feed.Run(context.Background()) }()

	first, _ := json.Marshal(event("r1"))
	source.ch <- first
	source.ch <- []byte("not json")
	second, _ := json.Marshal(event("r2"))
	source.ch <- second

	require.Eventually(t, func() bool { return observer.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"r1", "r2"}, observer.ids(t))

	require.NoError(t, feed.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("feed did not stop after source closed")
	}
}
