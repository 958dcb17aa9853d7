// Package poller periodically fetches the status of configured nodes and tracks their reachability.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/arednch/nodemon/data"
	"github.com/arednch/nodemon/importer"
	"github.com/arednch/nodemon/metrics"
	"github.com/arednch/nodemon/sysinfo"
)

const (
	DefaultInterval = time.Minute
	DefaultTimeout  = 10 * time.Second
)

var ErrNoAddress = errors.New("node address must not be empty")

// Node describes one polled node. The values are fixed for the lifetime of its loop.
type Node struct {
	Address    string        `json:"address"`
	Interval   time.Duration `json:"interval"`
	Timeout    time.Duration `json:"timeout"`
	Retries    int           `json:"retries"` // additional attempts within one cycle
	RetryDelay time.Duration `json:"retry_delay"`
}

func (n Node) withDefaults() Node {
	if n.Interval <= 0 {
		n.Interval = DefaultInterval
	}
	if n.Timeout <= 0 {
		n.Timeout = DefaultTimeout
	}
	if n.Retries < 0 {
		n.Retries = 0
	}
	if n.RetryDelay < 0 {
		n.RetryDelay = 0
	}
	return n
}

// State is the reachability of a node as seen by its poll loop.
type State struct {
	Reachability        data.Reachability `json:"reachability"`
	LastSuccess         time.Time         `json:"last_success"`
	LastAttempt         time.Time         `json:"last_attempt"`
	ConsecutiveFailures int               `json:"consecutive_failures"`
	LastError           string            `json:"last_error,omitempty"`
}

// Event is emitted after every completed cycle. Snapshot is nil when the node
// could not be polled; Previous is the last good snapshot before this one.
type Event struct {
	Address      string
	Time         time.Time
	Reachability data.Reachability
	Snapshot     *data.Snapshot
	Previous     *data.Snapshot
	Err          error
}

type Option func(*Poller)

func WithClock(c Clock) Option {
	return func(p *Poller) { p.clock = c }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(p *Poller) { p.metrics = m }
}

// Poller runs the poll loop of a single node.
type Poller struct {
	node    Node
	fetcher Fetcher
	sink    Sink
	clock   Clock
	logger  zerolog.Logger
	metrics *metrics.Collector

	mu    sync.RWMutex
	state State

	// last is only touched by the goroutine running the cycles.
	last *data.Snapshot
}

func New(node Node, f Fetcher, sink Sink, logger zerolog.Logger, opts ...Option) *Poller {
	if sink == nil {
		sink = nopSink{}
	}
	node = node.withDefaults()
	p := &Poller{
		node:    node,
		fetcher: f,
		sink:    sink,
		clock:   realClock{},
		logger:  logger.With().Str("address", node.Address).Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Poller) Node() Node {
	return p.node
}

// State returns a copy of the current reachability state.
func (p *Poller) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Run polls the node once immediately and then on every tick until ctx is done.
// Cycles never overlap: a tick arriving during a cycle is handled after it.
func (p *Poller) Run(ctx context.Context) {
	ticker := p.clock.Ticker(p.node.Interval)
	defer ticker.Stop()

	p.logger.Debug().Dur("interval", p.node.Interval).Msg("Starting poll loop")
	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Debug().Msg("Poll loop stopped")
			return
		case <-ticker.Chan():
			if ctx.Err() != nil {
				return
			}
			p.Poll(ctx)
		}
	}
}

// Poll runs exactly one cycle: fetch and normalize, retried up to the
// configured number of times. It reports false when ctx ended during the
// cycle, in which case the outcome is discarded and nothing is published.
// Poll must not be called concurrently with itself or Run.
func (p *Poller) Poll(ctx context.Context) (Event, bool) {
	var snap *data.Snapshot
	attempt := func() error {
		s, err := p.attempt(ctx)
		if err != nil {
			return err
		}
		snap = s
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.node.RetryDelay), uint64(p.node.Retries)),
		ctx,
	)
	err := backoff.RetryNotify(attempt, b, func(err error, wait time.Duration) {
		p.logger.Debug().Err(err).Dur("retry_in", wait).Msg("Poll attempt failed")
	})
	if ctx.Err() != nil {
		return Event{}, false
	}

	now := p.clock.Now()
	ev := Event{Address: p.node.Address, Time: now}

	p.mu.Lock()
	prev := p.state.Reachability
	p.state.LastAttempt = now
	if err != nil {
		p.state.Reachability = data.Unreachable
		p.state.ConsecutiveFailures++
		p.state.LastError = err.Error()
	} else {
		p.state.Reachability = data.Reachable
		p.state.LastSuccess = now
		p.state.ConsecutiveFailures = 0
		p.state.LastError = ""
	}
	ev.Reachability = p.state.Reachability
	p.mu.Unlock()

	if err != nil {
		ev.Err = err
	} else {
		ev.Snapshot = snap
		ev.Previous = p.last
		p.last = snap
	}

	if prev != ev.Reachability {
		p.logger.Info().
			Stringer("from", prev).
			Stringer("to", ev.Reachability).
			AnErr("cause", err).
			Msg("Reachability changed")
	}
	p.metrics.RecordPollCycle(p.node.Address, err == nil)
	p.sink.Publish(ev)
	return ev, true
}

// attempt performs one fetch and normalize. The fetch is detached from ctx so
// that an in-flight request completes; Poll discards its result if ctx ended.
func (p *Poller) attempt(ctx context.Context) (*data.Snapshot, error) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.node.Timeout)
	defer cancel()

	raw, err := p.fetcher.Fetch(fctx, p.node.Address, p.node.Timeout)
	if err != nil {
		kind := string(importer.KindOf(err))
		if kind == "" {
			kind = "error"
		}
		p.metrics.RecordFetch(kind)
		return nil, err
	}
	snap, err := sysinfo.Normalize(raw, p.clock.Now())
	if err != nil {
		p.metrics.RecordFetch("parse-error")
		return nil, err
	}
	p.metrics.RecordFetch("ok")
	return snap, nil
}
