package data

import (
	"sort"
	"time"
)

// RawPayload is the undecoded status document returned by /a/sysinfo. Its shape
// varies between firmware versions, so it is kept as a generic JSON tree.
type RawPayload map[string]any

// Snapshot is one normalized capture of a node's reported state. It is built
// once per fetch and not modified afterwards.
type Snapshot struct {
	Name       string `json:"node" yaml:"node"`
	APIVersion string `json:"api_version" yaml:"api_version"`

	Model           string `json:"model,omitempty" yaml:"model,omitempty"`
	FirmwareVersion string `json:"firmware_version,omitempty" yaml:"firmware_version,omitempty"`
	BoardID         string `json:"board_id,omitempty" yaml:"board_id,omitempty"`

	Uptime       *time.Duration `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	BootTime     *time.Time     `json:"boot_time,omitempty" yaml:"boot_time,omitempty"`
	Loads        *Loads         `json:"loads,omitempty" yaml:"loads,omitempty"`
	FreeMemoryKB *int64         `json:"free_memory_kb,omitempty" yaml:"free_memory_kb,omitempty"`

	Location   *Location `json:"location,omitempty" yaml:"location,omitempty"`
	GridSquare string    `json:"grid_square,omitempty" yaml:"grid_square,omitempty"`
	RF         *RF       `json:"meshrf,omitempty" yaml:"meshrf,omitempty"`

	ActiveTunnels *int `json:"active_tunnels,omitempty" yaml:"active_tunnels,omitempty"`
	MeshNodes     *int `json:"mesh_nodes,omitempty" yaml:"mesh_nodes,omitempty"`

	Interfaces map[string]Interface `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	Links      map[LinkKey]Link     `json:"links,omitempty" yaml:"links,omitempty"`
}

type Loads struct {
	One     *float64 `json:"1m,omitempty" yaml:"1m,omitempty"`
	Five    *float64 `json:"5m,omitempty" yaml:"5m,omitempty"`
	Fifteen *float64 `json:"15m,omitempty" yaml:"15m,omitempty"`
}

type Location struct {
	Latitude  float64 `json:"lat" yaml:"lat"`
	Longitude float64 `json:"lon" yaml:"lon"`
}

type RF struct {
	Status  string `json:"status,omitempty" yaml:"status,omitempty"`
	SSID    string `json:"ssid,omitempty" yaml:"ssid,omitempty"`
	Channel string `json:"channel,omitempty" yaml:"channel,omitempty"`

	FrequencyMHz        *float64 `json:"freq_mhz,omitempty" yaml:"freq_mhz,omitempty"`
	ChannelBandwidthMHz *float64 `json:"chanbw_mhz,omitempty" yaml:"chanbw_mhz,omitempty"`

	AntennaDescription  string   `json:"antenna,omitempty" yaml:"antenna,omitempty"`
	AntennaGainDBi      *float64 `json:"antenna_gain_dbi,omitempty" yaml:"antenna_gain_dbi,omitempty"`
	AntennaBeamwidthDeg *float64 `json:"antenna_beamwidth_deg,omitempty" yaml:"antenna_beamwidth_deg,omitempty"`
}

// SortedLinks returns the links ordered by key so callers iterate deterministically.
func (s *Snapshot) SortedLinks() []Link {
	links := make([]Link, 0, len(s.Links))
	for _, l := range s.Links {
		links = append(links, l)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Key().Less(links[j].Key()) })
	return links
}

// LinkCounts returns the number of links per link type.
func (s *Snapshot) LinkCounts() map[LinkType]int {
	counts := make(map[LinkType]int)
	for _, l := range s.Links {
		counts[l.Type]++
	}
	return counts
}

// SubEntities returns the keys of all dynamic sub-entities (links and interfaces).
func (s *Snapshot) SubEntities() map[SubEntityKey]struct{} {
	if s == nil {
		return map[SubEntityKey]struct{}{}
	}
	keys := make(map[SubEntityKey]struct{}, len(s.Links)+len(s.Interfaces))
	for k := range s.Links {
		keys[k.SubEntityKey()] = struct{}{}
	}
	for name := range s.Interfaces {
		keys[InterfaceKey(name)] = struct{}{}
	}
	return keys
}
