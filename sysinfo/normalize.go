// Package sysinfo turns the loosely typed /a/sysinfo document into a data.Snapshot.
package sysinfo

import (
	"sort"
	"time"

	"github.com/arednch/nodemon/data"
)

// Normalize converts a raw status document into a Snapshot. Only the node name
// and API version are required; every other section is optional and simply left
// unset when missing or malformed. now is the reference used to derive the boot
// time from the reported uptime. Normalize has no side effects.
func Normalize(raw data.RawPayload, now time.Time) (*data.Snapshot, error) {
	root := map[string]any(raw)

	name, ok := str(root, "node")
	if !ok {
		return nil, &ParseError{Field: "node"}
	}
	apiVersion, ok := str(root, "api_version")
	if !ok {
		return nil, &ParseError{Field: "api_version"}
	}

	snap := &data.Snapshot{
		Name:       name,
		APIVersion: apiVersion,
		Interfaces: map[string]data.Interface{},
		Links:      map[data.LinkKey]data.Link{},
	}

	if details, ok := object(root, "node_details"); ok {
		snap.Model, _ = str(details, "model")
		snap.FirmwareVersion, _ = str(details, "firmware_version")
		snap.BoardID, _ = str(details, "board_id")
	}

	if sys, ok := object(root, "sysinfo"); ok {
		parseSystem(snap, sys, now)
	}

	lat, latOK := toFloat(root["lat"])
	lon, lonOK := toFloat(root["lon"])
	if latOK && lonOK {
		snap.Location = &data.Location{Latitude: lat, Longitude: lon}
	}
	snap.GridSquare, _ = str(root, "grid_square")

	if rf, ok := object(root, "meshrf"); ok {
		snap.RF = parseRF(rf)
	}

	if tunnels, ok := object(root, "tunnels"); ok {
		snap.ActiveTunnels = integer(tunnels, "active_tunnel_count")
	}

	if nodes, ok := list(root, "nodes"); ok {
		n := len(nodes)
		snap.MeshNodes = &n
	} else if hosts, ok := list(root, "hosts"); ok {
		n := len(hosts)
		snap.MeshNodes = &n
	}

	if ifaces, ok := list(root, "interfaces"); ok {
		for _, v := range ifaces {
			iface, ok := v.(map[string]any)
			if !ok {
				continue
			}
			n, nameOK := str(iface, "name")
			ip, ipOK := str(iface, "ip")
			if !nameOK || !ipOK {
				continue // only addressed interfaces are tracked
			}
			mac, _ := str(iface, "mac")
			snap.Interfaces[n] = data.Interface{Name: n, IP: ip, MAC: mac}
		}
	}

	for _, l := range parseLinks(root) {
		snap.Links[l.Key()] = l
	}

	return snap, nil
}

func parseSystem(snap *data.Snapshot, sys map[string]any, now time.Time) {
	if up, ok := parseUptime(sys["uptime"]); ok {
		boot := now.Add(-up)
		snap.Uptime = &up
		snap.BootTime = &boot
	}

	if loads, ok := list(sys, "loads"); ok {
		l := &data.Loads{}
		at := func(i int) *float64 {
			if i >= len(loads) {
				return nil
			}
			f, ok := toFloat(loads[i])
			if !ok {
				return nil
			}
			return &f
		}
		l.One, l.Five, l.Fifteen = at(0), at(1), at(2)
		if l.One != nil || l.Five != nil || l.Fifteen != nil {
			snap.Loads = l
		}
	}

	snap.FreeMemoryKB = integer64(sys, "freememory")
}

func parseRF(rf map[string]any) *data.RF {
	out := &data.RF{
		FrequencyMHz:        float(rf, "freq"),
		ChannelBandwidthMHz: float(rf, "chanbw"),
	}
	out.Status, _ = str(rf, "status")
	out.SSID, _ = str(rf, "ssid")
	out.Channel, _ = str(rf, "channel")

	if ant, ok := object(rf, "antenna"); ok {
		out.AntennaDescription, _ = str(ant, "description")
		out.AntennaGainDBi = float(ant, "gain")
		out.AntennaBeamwidthDeg = float(ant, "beamwidth")
	}
	return out
}

// parseLinks reads link_info, which is an object keyed by the peer IP. Some
// firmware builds report a list of objects carrying an "ip" field instead.
func parseLinks(root map[string]any) []data.Link {
	type entry struct {
		ip   string
		info map[string]any
	}
	var entries []entry

	switch li := root["link_info"].(type) {
	case map[string]any:
		for ip, v := range li {
			if info, ok := v.(map[string]any); ok {
				entries = append(entries, entry{ip: ip, info: info})
			}
		}
	case []any:
		for _, v := range li {
			info, ok := v.(map[string]any)
			if !ok {
				continue
			}
			ip, _ := str(info, "ip")
			entries = append(entries, entry{ip: ip, info: info})
		}
	}
	// Stable order so that a duplicate key always resolves the same way.
	sort.Slice(entries, func(i, j int) bool { return entries[i].ip < entries[j].ip })

	links := make([]data.Link, 0, len(entries))
	for _, e := range entries {
		if l, ok := parseLink(e.ip, e.info); ok {
			links = append(links, l)
		}
	}
	return links
}

func parseLink(ip string, info map[string]any) (data.Link, bool) {
	hostname, _ := str(info, "hostname")
	peer := data.FQDN(hostname)
	if peer == "" {
		peer = ip
	}
	if peer == "" {
		return data.Link{}, false
	}

	rawType, _ := str(info, "linkType")
	l := data.Link{
		Peer:                peer,
		Hostname:            hostname,
		IP:                  ip,
		Type:                data.ClassifyLinkType(rawType),
		RawType:             rawType,
		Signal:              integer(info, "signal"),
		Noise:               integer(info, "noise"),
		LinkQuality:         float(info, "linkQuality"),
		NeighborLinkQuality: float(info, "neighborLinkQuality"),
	}
	if l.Signal != nil && l.Noise != nil {
		snr := *l.Signal - *l.Noise
		l.SNR = &snr
	}
	return l, true
}
