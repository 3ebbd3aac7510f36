package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	reservationserrors "helipad/internal/reservations/errors"
)

// memorySlotLocker holds a one-slot semaphore per resource.
type memorySlotLocker struct {
	mu          sync.Mutex
	slots       map[string]chan struct{}
	waitTimeout time.Duration
}

func NewMemorySlotLocker(waitTimeout time.Duration) SlotLocker {
	return &memorySlotLocker{
		slots:       make(map[string]chan struct{}),
		waitTimeout: waitTimeout,
	}
}

func (l *memorySlotLocker) slot(resourceID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.slots[resourceID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[resourceID] = ch
	}
	return ch
}

func (l *memorySlotLocker) Acquire(ctx context.Context, resourceID string) (func(), error) {
	ch := l.slot(resourceID)

	timer := time.NewTimer(l.waitTimeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s", reservationserrors.ErrLockTimeout, resourceID)
	}
}
