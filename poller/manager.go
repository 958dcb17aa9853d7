package poller

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/arednch/nodemon/metrics"
)

// Manager owns one poll loop per configured node. Loops are independent:
// removing a node stops only its own loop.
type Manager struct {
	ctx     context.Context
	fetcher Fetcher
	sink    Sink
	logger  zerolog.Logger
	metrics *metrics.Collector
	opts    []Option

	mu      sync.Mutex
	pollers map[string]*loop
	wg      sync.WaitGroup
}

type loop struct {
	poller *Poller
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a manager whose loops end when ctx is done or Stop is called.
func NewManager(ctx context.Context, f Fetcher, sink Sink, logger zerolog.Logger, m *metrics.Collector, opts ...Option) *Manager {
	if sink == nil {
		sink = nopSink{}
	}
	return &Manager{
		ctx:     ctx,
		fetcher: f,
		sink:    sink,
		logger:  logger,
		metrics: m,
		opts:    append([]Option{WithMetrics(m)}, opts...),
		pollers: make(map[string]*loop),
	}
}

// Add starts polling a node. Adding an address twice is an error.
func (m *Manager) Add(node Node) error {
	node.Address = strings.TrimSpace(node.Address)
	if node.Address == "" {
		return ErrNoAddress
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.pollers[node.Address]; exists {
		return fmt.Errorf("node %q is already polled", node.Address)
	}

	ctx, cancel := context.WithCancel(m.ctx)
	l := &loop{
		poller: New(node, m.fetcher, m.sink, m.logger, m.opts...),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.pollers[node.Address] = l

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(l.done)
		l.poller.Run(ctx)
	}()

	m.logger.Info().Str("address", node.Address).Dur("interval", l.poller.Node().Interval).Msg("Node added")
	return nil
}

// Remove stops polling a node. It waits for a cycle in flight to finish so
// that nothing is published for the node afterwards. It reports whether the
// node was known.
func (m *Manager) Remove(address string) bool {
	m.mu.Lock()
	l, ok := m.pollers[address]
	if ok {
		delete(m.pollers, address)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}

	l.cancel()
	<-l.done

	if f, ok := m.sink.(Forgetter); ok {
		f.Forget(address)
	}
	m.metrics.ForgetNode(address)
	m.logger.Info().Str("address", address).Msg("Node removed")
	return true
}

// Nodes returns the polled nodes ordered by address.
func (m *Manager) Nodes() []Node {
	m.mu.Lock()
	defer m.mu.Unlock()

	nodes := make([]Node, 0, len(m.pollers))
	for _, l := range m.pollers {
		nodes = append(nodes, l.poller.Node())
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Address < nodes[j].Address })
	return nodes
}

// States returns the reachability state of every polled node.
func (m *Manager) States() map[string]State {
	m.mu.Lock()
	defer m.mu.Unlock()

	states := make(map[string]State, len(m.pollers))
	for addr, l := range m.pollers {
		states[addr] = l.poller.State()
	}
	return states
}

// Stop cancels all loops and waits for them to return.
func (m *Manager) Stop() {
	m.mu.Lock()
	for addr, l := range m.pollers {
		l.cancel()
		delete(m.pollers, addr)
	}
	m.mu.Unlock()
	m.wg.Wait()
}
