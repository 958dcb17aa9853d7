// Package reconcile computes which sub-entities of a node appeared, vanished or persisted between two snapshots.
package reconcile

import (
	"github.com/arednch/nodemon/data"
)

// Changes lists sub-entity keys in a stable order.
type Changes struct {
	Added   []data.SubEntityKey `json:"added"`
	Removed []data.SubEntityKey `json:"removed"`
	Updated []data.SubEntityKey `json:"updated"`
}

func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Updated) == 0
}

// Reconcile diffs the sub-entity sets of two snapshots. Either may be nil,
// which counts as a snapshot without sub-entities. Keys present in both are
// reported as updated even when their values did not change.
func Reconcile(previous, current *data.Snapshot) Changes {
	prev := previous.SubEntities()
	cur := current.SubEntities()

	added := make(map[data.SubEntityKey]struct{})
	updated := make(map[data.SubEntityKey]struct{})
	removed := make(map[data.SubEntityKey]struct{})
	for k := range cur {
		if _, ok := prev[k]; ok {
			updated[k] = struct{}{}
		} else {
			added[k] = struct{}{}
		}
	}
	for k := range prev {
		if _, ok := cur[k]; !ok {
			removed[k] = struct{}{}
		}
	}

	return Changes{
		Added:   data.SortedKeys(added),
		Removed: data.SortedKeys(removed),
		Updated: data.SortedKeys(updated),
	}
}
