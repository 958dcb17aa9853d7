package sysinfo

import (
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/arednch/nodemon/data"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func loadPayload(t *testing.T, path string) data.RawPayload {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw data.RawPayload
	require.NoError(t, json.Unmarshal(b, &raw))
	return raw
}

func TestNormalizeFullPayload(t *testing.T) {
	raw := loadPayload(t, "testdata/sysinfo.json")

	got, err := Normalize(raw, now)
	require.NoError(t, err)

	uptime := 3*24*time.Hour + 4*time.Hour + 5*time.Minute
	want := &data.Snapshot{
		Name:            "N0CALL-HAP",
		APIVersion:      "1.5",
		Model:           "MikroTik RouterBOARD RB952Ui-5ac2nD (hAP ac lite)",
		FirmwareVersion: "3.24.4.0",
		BoardID:         "0x0000",
		Uptime:          &uptime,
		BootTime:        ptr(now.Add(-uptime)),
		Loads:           &data.Loads{One: ptr(0.12), Five: ptr(0.25), Fifteen: ptr(0.5)},
		FreeMemoryKB:    ptr(int64(21544)),
		Location:        &data.Location{Latitude: 47.3769, Longitude: 8.5417},
		GridSquare:      "JN47qi",
		RF: &data.RF{
			Status:              "on",
			SSID:                "AREDN-10-v3",
			Channel:             "-2",
			FrequencyMHz:        ptr(2397.0),
			ChannelBandwidthMHz: ptr(10.0),
			AntennaDescription:  "Omni",
			AntennaGainDBi:      ptr(2.0),
			AntennaBeamwidthDeg: ptr(360.0),
		},
		ActiveTunnels: ptr(2),
		MeshNodes:     ptr(3),
		Interfaces: map[string]data.Interface{
			"br-lan": {Name: "br-lan", IP: "10.54.1.1", MAC: "aa:bb:cc:dd:ee:01"},
			"wlan0":  {Name: "wlan0", IP: "10.20.30.40", MAC: "aa:bb:cc:dd:ee:02"},
		},
		Links: map[data.LinkKey]data.Link{
			{Peer: "N0CALL-A.local.mesh", Type: "RF"}: {
				Peer: "N0CALL-A.local.mesh", Hostname: "N0CALL-A", IP: "10.20.30.41",
				Type: data.LinkTypeRF, RawType: "RF",
				Signal: ptr(-80), Noise: ptr(-95), SNR: ptr(15),
				LinkQuality: ptr(1.0), NeighborLinkQuality: ptr(0.9),
			},
			{Peer: "N0CALL-B.local.mesh", Type: "RF"}: {
				Peer: "N0CALL-B.local.mesh", Hostname: "N0CALL-B.local.mesh", IP: "10.20.30.42",
				Type: data.LinkTypeRF, RawType: "RF", Signal: ptr(-70),
			},
			{Peer: "N0CALL-C.local.mesh", Type: "WIREGUARD"}: {
				Peer: "N0CALL-C.local.mesh", Hostname: "N0CALL-C", IP: "172.31.1.2",
				Type: data.LinkTypeWireguard, RawType: "WIREGUARD",
			},
			{Peer: "10.20.30.43", Type: "BABEL"}: {
				Peer: "10.20.30.43", IP: "10.20.30.43", Type: data.LinkTypeOther, RawType: "BABEL",
			},
		},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeRequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		raw   data.RawPayload
		field string
	}{
		{"missing node", data.RawPayload{"api_version": "1.5"}, "node"},
		{"empty node", data.RawPayload{"node": " ", "api_version": "1.5"}, "node"},
		{"node of wrong type", data.RawPayload{"node": []any{"x"}, "api_version": "1.5"}, "node"},
		{"missing api version", data.RawPayload{"node": "N0CALL"}, "api_version"},
		{"legacy payload", data.RawPayload{"node": "N0CALL", "sysinfo": map[string]any{"uptime": "1:00"}}, "api_version"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			snap, err := Normalize(tc.raw, now)
			require.Nil(t, snap)
			require.ErrorIs(t, err, ErrMissingRequiredField)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			require.Equal(t, tc.field, pe.Field)
		})
	}
}

func TestNormalizeMinimalPayload(t *testing.T) {
	got, err := Normalize(data.RawPayload{"node": "N0CALL", "api_version": 1.5}, now)
	require.NoError(t, err)

	want := &data.Snapshot{
		Name:       "N0CALL",
		APIVersion: "1.5",
		Interfaces: map[string]data.Interface{},
		Links:      map[data.LinkKey]data.Link{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeIgnoresMalformedOptionalSections(t *testing.T) {
	raw := data.RawPayload{
		"node":        "N0CALL",
		"api_version": "1.5",
		"lat":         "",
		"lon":         "8.5",
		"sysinfo":     "not an object",
		"meshrf":      []any{"on"},
		"interfaces":  map[string]any{"br-lan": "10.0.0.1"},
		"link_info":   "none",
		"tunnels":     map[string]any{"active_tunnel_count": "n/a"},
	}

	got, err := Normalize(raw, now)
	require.NoError(t, err)
	require.Nil(t, got.Location)
	require.Nil(t, got.Loads)
	require.Nil(t, got.RF)
	require.Nil(t, got.ActiveTunnels)
	require.Empty(t, got.Interfaces)
	require.Empty(t, got.Links)
}

func TestSNR(t *testing.T) {
	tests := []struct {
		name string
		info map[string]any
		want *int
	}{
		{"signal and noise", map[string]any{"signal": -80.0, "noise": -95.0}, ptr(15)},
		{"string values", map[string]any{"signal": "-60", "noise": "-92"}, ptr(32)},
		{"noise missing", map[string]any{"signal": -80.0}, nil},
		{"signal missing", map[string]any{"noise": -95.0}, nil},
		{"noise garbage", map[string]any{"signal": -80.0, "noise": "n/a"}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.info["hostname"] = "peer"
			tc.info["linkType"] = "RF"
			raw := data.RawPayload{
				"node":        "N0CALL",
				"api_version": "1.5",
				"link_info":   map[string]any{"10.0.0.2": tc.info},
			}
			snap, err := Normalize(raw, now)
			require.NoError(t, err)

			l, ok := snap.Links[data.LinkKey{Peer: "peer.local.mesh", Type: "RF"}]
			require.True(t, ok)
			if diff := cmp.Diff(tc.want, l.SNR); diff != "" {
				t.Errorf("SNR mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLinkListForm(t *testing.T) {
	raw := data.RawPayload{
		"node":        "N0CALL",
		"api_version": "2.0",
		"link_info": []any{
			map[string]any{"ip": "10.0.0.2", "hostname": "peer", "linkType": "dtd"},
			map[string]any{"ip": "10.0.0.2", "hostname": "peer", "linkType": "RF"},
			map[string]any{"linkType": "RF"}, // neither hostname nor ip
		},
	}

	snap, err := Normalize(raw, now)
	require.NoError(t, err)
	require.Len(t, snap.Links, 2)
	require.Contains(t, snap.Links, data.LinkKey{Peer: "peer.local.mesh", Type: "DTD"})
	require.Contains(t, snap.Links, data.LinkKey{Peer: "peer.local.mesh", Type: "RF"})
}

func TestParseUptime(t *testing.T) {
	tests := []struct {
		in     any
		want   time.Duration
		wantOK bool
	}{
		{"3 days, 4:05", 76*time.Hour + 5*time.Minute, true},
		{"1 day, 0:01", 24*time.Hour + time.Minute, true},
		{"4:05", 4*time.Hour + 5*time.Minute, true},
		{"12 min", 12 * time.Minute, true},
		{"2 days, 12 min", 48*time.Hour + 12*time.Minute, true},
		{" up 0:07:30 ", 7*time.Minute + 30*time.Second, true},
		{"3600", time.Hour, true},
		{90.0, 90 * time.Second, true},
		{"forever", 0, false},
		{-5.0, 0, false},
		{nil, 0, false},
		{1e12, 0, false},
		{"99999999999999999999 days, 1:00", 0, false},
	}

	for _, tc := range tests {
		got, ok := parseUptime(tc.in)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("parseUptime(%v) = %v, %t; want %v, %t", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestIntegerOutOfRange(t *testing.T) {
	m := map[string]any{"huge": 1e30, "tiny": -1e30, "ok": "-87"}

	require.Nil(t, integer(m, "huge"))
	require.Nil(t, integer(m, "tiny"))
	require.Nil(t, integer64(m, "huge"))
	require.Equal(t, -87, *integer(m, "ok"))
	require.Equal(t, int64(-87), *integer64(m, "ok"))
}

func TestNormalizeIsPure(t *testing.T) {
	raw := loadPayload(t, "testdata/sysinfo.json")

	a, err := Normalize(raw, now)
	require.NoError(t, err)
	b, err := Normalize(raw, now)
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("Normalize() not deterministic (-first +second):\n%s", diff)
	}
}
