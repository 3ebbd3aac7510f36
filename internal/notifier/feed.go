package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"helipad/pkg/logger"
	"helipad/pkg/model"
)

// Source yields encoded change events from the bus for this process.
type Source interface {
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Feed republishes bus events into the local hub.
type Feed struct {
	source Source
	hub    Publisher
	log    *logger.Logger
}

func NewFeed(source Source, hub Publisher, log *logger.Logger) *Feed {
	return &Feed{source: source, hub: hub, log: log.Component("notifier_feed")}
}

// Run blocks until ctx is cancelled or the source is closed.
func (f *Feed) Run(ctx context.Context) error {
	for {
		payload, err := f.source.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, ErrSourceClosed) {
				return nil
			}
			f.log.Warn("Feed receive failed", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		var event model.ChangeEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			f.log.Warn("Discarding malformed change event", "error", err)
			continue
		}
		f.hub.Publish(ctx, event)
	}
}

func (f *Feed) Close() error {
	return f.source.Close()
}
