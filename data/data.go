package data

import (
	"fmt"
	"strings"
	"time"
)

const (
	AREDNDomain    = "local.mesh"
	AREDNLocalNode = "localnode.local.mesh" // AREDN default for local node
)

// Reachability is the outcome of the most recent poll cycle for a node.
type Reachability int

const (
	Unknown Reachability = iota
	Reachable
	Unreachable
)

func (r Reachability) String() string {
	switch r {
	case Reachable:
		return "reachable"
	case Unreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

func (r Reachability) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Reachability) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "reachable":
		*r = Reachable
	case "unreachable":
		*r = Unreachable
	case "unknown", "":
		*r = Unknown
	default:
		return fmt.Errorf("unknown reachability %q", string(b))
	}
	return nil
}

// FQDN turns a short mesh hostname into its fully qualified form. Names that
// already contain a dot (FQDNs or IPs) are returned unchanged.
func FQDN(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, ".") {
		return name
	}
	return fmt.Sprintf("%s.%s", name, AREDNDomain)
}

// Candidate is a node found during discovery, presented for configuration.
type Candidate struct {
	Address string `json:"address" yaml:"address"`
	Name    string `json:"name" yaml:"name"`
	Depth   int    `json:"depth" yaml:"depth"`
}

// NodeStatus is the externally visible state of one configured node.
type NodeStatus struct {
	Address      string         `json:"address" yaml:"address"`
	Name         string         `json:"name,omitempty" yaml:"name,omitempty"`
	Reachability Reachability   `json:"reachability" yaml:"reachability"`
	LastSuccess  time.Time      `json:"last_success,omitempty" yaml:"last_success,omitempty"`
	LastAttempt  time.Time      `json:"last_attempt,omitempty" yaml:"last_attempt,omitempty"`
	LastError    string         `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	Snapshot     *Snapshot      `json:"snapshot,omitempty" yaml:"snapshot,omitempty"` // nil while unreachable
	SubEntities  []SubEntityKey `json:"sub_entities,omitempty" yaml:"sub_entities,omitempty"`
}

type ByAddress []*NodeStatus

func (s ByAddress) Len() int           { return len(s) }
func (s ByAddress) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s ByAddress) Less(i, j int) bool { return s[i].Address < s[j].Address }
