package exporter

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/arednch/nodemon/data"
)

// CSV writes one row per node with a fixed column order.
type CSV struct{}

var csvLinkTypes = []data.LinkType{
	data.LinkTypeRF,
	data.LinkTypeDTD,
	data.LinkTypeTunnel,
	data.LinkTypeWireguard,
	data.LinkTypeXLink,
	data.LinkTypeSupernode,
	data.LinkTypeOther,
}

func (c *CSV) Export(nodes []*data.NodeStatus) ([]byte, error) {
	var b bytes.Buffer
	writer := csv.NewWriter(&b)

	header := []string{
		"address",
		"name",
		"reachability",
		"last_success",
		"last_attempt",
		"model",
		"firmware_version",
		"api_version",
		"uptime_seconds",
		"boot_time",
		"load_1m",
		"free_memory_kb",
		"latitude",
		"longitude",
		"grid_square",
		"ssid",
		"frequency_mhz",
		"mesh_nodes",
		"active_tunnels",
		"interfaces",
	}
	for _, t := range csvLinkTypes {
		header = append(header, "links_"+string(t))
	}
	if err := writer.Write(header); err != nil {
		return nil, err
	}

	for _, n := range nodes {
		record := []string{
			n.Address,
			n.Name,
			n.Reachability.String(),
			formatTime(n.LastSuccess),
			formatTime(n.LastAttempt),
		}
		record = append(record, snapshotColumns(n.Snapshot)...)
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func (c *CSV) ContentType() string { return "text/csv" }
func (c *CSV) Extension() string   { return ".csv" }

// snapshotColumns renders the snapshot part of a row. Absent values are left empty.
func snapshotColumns(s *data.Snapshot) []string {
	cols := make([]string, 15+len(csvLinkTypes))
	if s == nil {
		return cols
	}

	cols[0] = s.Model
	cols[1] = s.FirmwareVersion
	cols[2] = s.APIVersion
	if s.Uptime != nil {
		cols[3] = strconv.FormatInt(int64(s.Uptime.Seconds()), 10)
	}
	if s.BootTime != nil {
		cols[4] = formatTime(*s.BootTime)
	}
	if s.Loads != nil {
		cols[5] = formatFloat(s.Loads.One)
	}
	if s.FreeMemoryKB != nil {
		cols[6] = strconv.FormatInt(*s.FreeMemoryKB, 10)
	}
	if s.Location != nil {
		cols[7] = strconv.FormatFloat(s.Location.Latitude, 'f', -1, 64)
		cols[8] = strconv.FormatFloat(s.Location.Longitude, 'f', -1, 64)
	}
	cols[9] = s.GridSquare
	if s.RF != nil {
		cols[10] = s.RF.SSID
		cols[11] = formatFloat(s.RF.FrequencyMHz)
	}
	cols[12] = formatInt(s.MeshNodes)
	cols[13] = formatInt(s.ActiveTunnels)
	cols[14] = strconv.Itoa(len(s.Interfaces))

	counts := s.LinkCounts()
	for i, t := range csvLinkTypes {
		cols[15+i] = strconv.Itoa(counts[t])
	}
	return cols
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func formatInt(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}
