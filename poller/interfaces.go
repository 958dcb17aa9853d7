package poller

import (
	"context"
	"time"

	"github.com/arednch/nodemon/data"
)

// Clock abstracts time-related operations.
type Clock interface {
	Now() time.Time
	Ticker(d time.Duration) Ticker
}

// Ticker abstracts the ticker behavior.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

// Fetcher retrieves the raw status document of a node.
type Fetcher interface {
	Fetch(ctx context.Context, address string, timeout time.Duration) (data.RawPayload, error)
}

// Sink receives the outcome of every completed poll cycle.
type Sink interface {
	Publish(Event)
}

// Forgetter is implemented by sinks that keep per-node state.
type Forgetter interface {
	Forget(address string)
}

type nopSink struct{}

func (nopSink) Publish(Event) {}
