package data

import (
	"fmt"
	"sort"
	"strings"
)

type LinkType string

const (
	LinkTypeRF        LinkType = "RF"
	LinkTypeDTD       LinkType = "DTD"
	LinkTypeTunnel    LinkType = "TUN"
	LinkTypeWireguard LinkType = "WIREGUARD"
	LinkTypeXLink     LinkType = "XLINK"
	LinkTypeSupernode LinkType = "SUPERNODE"
	LinkTypeOther     LinkType = "OTHER"
)

var knownLinkTypes = map[string]LinkType{
	"RF":        LinkTypeRF,
	"DTD":       LinkTypeDTD,
	"TUN":       LinkTypeTunnel,
	"WIREGUARD": LinkTypeWireguard,
	"XLINK":     LinkTypeXLink,
	"SUPERNODE": LinkTypeSupernode,
}

// ClassifyLinkType maps the token reported by a node onto the known link types.
// Unrecognized (or empty) tokens are classified as LinkTypeOther.
func ClassifyLinkType(raw string) LinkType {
	if t, ok := knownLinkTypes[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return t
	}
	return LinkTypeOther
}

// Link is one peer connection reported in link_info.
type Link struct {
	Peer     string   `json:"peer" yaml:"peer"`
	Hostname string   `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	IP       string   `json:"ip,omitempty" yaml:"ip,omitempty"`
	Type     LinkType `json:"type" yaml:"type"`
	RawType  string   `json:"raw_type,omitempty" yaml:"raw_type,omitempty"`

	// Optional quality metrics (dB); SNR is only set when both signal and noise are.
	Signal *int `json:"signal,omitempty" yaml:"signal,omitempty"`
	Noise  *int `json:"noise,omitempty" yaml:"noise,omitempty"`
	SNR    *int `json:"snr,omitempty" yaml:"snr,omitempty"`

	LinkQuality         *float64 `json:"lq,omitempty" yaml:"lq,omitempty"`
	NeighborLinkQuality *float64 `json:"nlq,omitempty" yaml:"nlq,omitempty"`
}

// Key returns the identity of the link. Unrecognized link types keep their raw
// token so that two unknown types towards the same peer do not collide.
func (l Link) Key() LinkKey {
	t := string(l.Type)
	if l.Type == LinkTypeOther && strings.TrimSpace(l.RawType) != "" {
		t = strings.TrimSpace(l.RawType)
	}
	return LinkKey{Peer: l.Peer, Type: t}
}

type LinkKey struct {
	Peer string
	Type string
}

func (k LinkKey) String() string {
	return fmt.Sprintf("%s/%s", k.Peer, k.Type)
}

func (k LinkKey) Less(o LinkKey) bool {
	if k.Peer != o.Peer {
		return k.Peer < o.Peer
	}
	return k.Type < o.Type
}

func (k LinkKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *LinkKey) UnmarshalText(b []byte) error {
	s := string(b)
	idx := strings.LastIndex(s, "/")
	if idx == -1 {
		return fmt.Errorf("invalid link key %q", s)
	}
	k.Peer, k.Type = s[:idx], s[idx+1:]
	return nil
}

func (k LinkKey) SubEntityKey() SubEntityKey {
	return SubEntityKey{Kind: SubEntityLink, Name: k.Peer, LinkType: k.Type}
}

type Interface struct {
	Name string `json:"name" yaml:"name"`
	IP   string `json:"ip" yaml:"ip"`
	MAC  string `json:"mac,omitempty" yaml:"mac,omitempty"`
}

type SubEntityKind string

const (
	SubEntityLink      SubEntityKind = "link"
	SubEntityInterface SubEntityKind = "interface"
)

// SubEntityKey identifies a link (peer and type) or an interface (name).
type SubEntityKey struct {
	Kind     SubEntityKind `json:"kind" yaml:"kind"`
	Name     string        `json:"name" yaml:"name"`
	LinkType string        `json:"link_type,omitempty" yaml:"link_type,omitempty"`
}

func InterfaceKey(name string) SubEntityKey {
	return SubEntityKey{Kind: SubEntityInterface, Name: name}
}

func (k SubEntityKey) String() string {
	if k.Kind == SubEntityLink {
		return fmt.Sprintf("%s/%s/%s", k.Kind, k.Name, k.LinkType)
	}
	return fmt.Sprintf("%s/%s", k.Kind, k.Name)
}

func (k SubEntityKey) Less(o SubEntityKey) bool {
	if k.Kind != o.Kind {
		return k.Kind < o.Kind
	}
	if k.Name != o.Name {
		return k.Name < o.Name
	}
	return k.LinkType < o.LinkType
}

// SortedKeys returns the keys of a sub-entity set in a stable order.
func SortedKeys(set map[SubEntityKey]struct{}) []SubEntityKey {
	keys := make([]SubEntityKey, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}
