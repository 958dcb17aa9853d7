// Package registry keeps the latest known state of every polled node in memory.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/arednch/nodemon/data"
	"github.com/arednch/nodemon/metrics"
	"github.com/arednch/nodemon/poller"
	"github.com/arednch/nodemon/reconcile"
)

type entry struct {
	status  data.NodeStatus
	keys    map[data.SubEntityKey]struct{}
	changes reconcile.Changes
}

// Registry consumes poll events and applies the reconciled sub-entity
// changes. It is safe for concurrent use.
type Registry struct {
	Mu      *sync.RWMutex
	nodes   map[string]*entry
	logger  zerolog.Logger
	metrics *metrics.Collector
}

func New(logger zerolog.Logger, m *metrics.Collector) *Registry {
	return &Registry{
		Mu:      &sync.RWMutex{},
		nodes:   make(map[string]*entry),
		logger:  logger,
		metrics: m,
	}
}

func (r *Registry) get(address string) *entry {
	e, ok := r.nodes[address]
	if !ok {
		e = &entry{
			status: data.NodeStatus{Address: address},
			keys:   make(map[data.SubEntityKey]struct{}),
		}
		r.nodes[address] = e
	}
	return e
}

// Track registers a node before its first poll result arrives.
func (r *Registry) Track(address string) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.get(address)
}

// Publish implements poller.Sink.
func (r *Registry) Publish(ev poller.Event) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	e := r.get(ev.Address)
	e.status.Reachability = ev.Reachability
	e.status.LastAttempt = ev.Time

	if ev.Snapshot == nil {
		// Keep the sub-entities but never present the old snapshot as current.
		e.status.Snapshot = nil
		if ev.Err != nil {
			e.status.LastError = ev.Err.Error()
		}
		e.changes = reconcile.Changes{}
		return
	}

	changes := reconcile.Reconcile(ev.Previous, ev.Snapshot)
	for _, k := range changes.Removed {
		delete(e.keys, k)
	}
	for _, k := range changes.Added {
		e.keys[k] = struct{}{}
	}
	e.changes = changes

	e.status.Name = ev.Snapshot.Name
	e.status.Snapshot = ev.Snapshot
	e.status.LastSuccess = ev.Time
	e.status.LastError = ""
	e.status.SubEntities = data.SortedKeys(e.keys)

	if len(changes.Added) > 0 || len(changes.Removed) > 0 {
		r.logger.Info().
			Str("address", ev.Address).
			Stringers("added", keyStringers(changes.Added)).
			Stringers("removed", keyStringers(changes.Removed)).
			Msg("Sub-entities changed")
	}
	r.metrics.SetSubEntities(ev.Address, e.status.SubEntities)
}

// Forget implements poller.Forgetter.
func (r *Registry) Forget(address string) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	delete(r.nodes, address)
}

// Status returns a copy of the status of one node.
func (r *Registry) Status(address string) (*data.NodeStatus, bool) {
	r.Mu.RLock()
	defer r.Mu.RUnlock()

	e, ok := r.nodes[address]
	if !ok {
		return nil, false
	}
	return copyStatus(e), true
}

// LastChanges returns the sub-entity changes applied by the most recent successful poll.
func (r *Registry) LastChanges(address string) (reconcile.Changes, bool) {
	r.Mu.RLock()
	defer r.Mu.RUnlock()

	e, ok := r.nodes[address]
	if !ok {
		return reconcile.Changes{}, false
	}
	return e.changes, true
}

// List returns the status of all nodes ordered by address.
func (r *Registry) List() []*data.NodeStatus {
	r.Mu.RLock()
	defer r.Mu.RUnlock()

	out := make([]*data.NodeStatus, 0, len(r.nodes))
	for _, e := range r.nodes {
		out = append(out, copyStatus(e))
	}
	sort.Sort(data.ByAddress(out))
	return out
}

func copyStatus(e *entry) *data.NodeStatus {
	s := e.status
	s.SubEntities = append([]data.SubEntityKey(nil), e.status.SubEntities...)
	return &s
}

func keyStringers(keys []data.SubEntityKey) []fmt.Stringer {
	out := make([]fmt.Stringer, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out
}
