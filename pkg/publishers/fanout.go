package publishers

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
)

// maxInflight caps concurrent deliveries for one event.
const maxInflight = 4

// Fanout delivers each activity event to every configured sink in parallel.
// A failing sink never cancels delivery to the others.
type Fanout struct {
	sinks []Publisher
	log   Logger
}

// NewFanout drops nil entries and returns a dispatcher over the rest.
func NewFanout(pubs []Publisher, log Logger) *Fanout {
	sinks := make([]Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			sinks = append(sinks, p)
		}
	}
	return &Fanout{sinks: sinks, log: ensureLogger(log)}
}

// Publish reports how many sinks accepted evt, along with the joined sink errors.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f == nil || len(f.sinks) == 0 {
		return 0, nil
	}

	failures := make([]error, len(f.sinks))
	var g errgroup.Group
	g.SetLimit(maxInflight)
	for i, sink := range f.sinks {
		g.Go(func() error {
			if err := sink.Publish(ctx, evt); err != nil {
				failures[i] = fmt.Errorf("%s sink %q: %w", sink.Type(), sink.ID(), err)
			}
			return nil
		})
	}
	_ = g.Wait()

	delivered := 0
	for _, err := range failures {
		if err == nil {
			delivered++
		}
	}
	err := errors.Join(failures...)
	if err != nil {
		f.log.WarnObj("activity fanout incomplete", "fanout_result", map[string]any{
			"event_type": evt.Type,
			"delivered":  delivered,
			"failed":     len(f.sinks) - delivered,
		})
	}
	return delivered, err
}

// Size is the number of sinks.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.sinks)
}

// Close shuts down sinks holding client connections.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, sink := range f.sinks {
		c, ok := sink.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s sink %q: %w", sink.Type(), sink.ID(), err))
		}
	}
	return errors.Join(errs...)
}
