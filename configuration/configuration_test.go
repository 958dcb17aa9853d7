package configuration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func wantTestConfig() *Config {
	return &Config{
		Nodes: []NodeConfig{
			{Address: "localnode.local.mesh"},
			{Address: "N0CALL-A.local.mesh", IntervalSeconds: 30},
		},
		PollIntervalSeconds: 120,
		Retries:             intPtr(0),
		Discovery: DiscoveryConfig{
			MaxDepth:    intPtr(1),
			MaxPerLevel: 50,
			Seeds:       []string{"10.54.1.1"},
			UseGateways: boolPtr(false),
		},
		Server:                    true,
		Port:                      8081,
		WebUser:                   "admin",
		WebPwd:                    "secret",
		AllowRuntimeConfigChanges: true,
	}
}

func TestRead(t *testing.T) {
	for _, path := range []string{"testdata/config.json", "testdata/config.yaml"} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			got, err := Read(path)
			require.NoError(t, err)
			if diff := cmp.Diff(wantTestConfig(), got); diff != "" {
				t.Errorf("Read(%s) mismatch (-want +got):\n%s", path, diff)
			}
		})
	}
}

func TestReadErrors(t *testing.T) {
	_, err := Read("testdata/missing.json")
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, writeRaw(bad, "{nodes"))
	_, err = Read(bad)
	require.ErrorContains(t, err, "parsing")
}

func TestWriteRoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Write(wantTestConfig(), path))

			got, err := Read(path)
			require.NoError(t, err)
			if diff := cmp.Diff(wantTestConfig(), got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	c := &Config{}
	c.ApplyDefaults()

	require.Equal(t, DefaultPollSeconds, c.PollIntervalSeconds)
	require.Equal(t, 10*time.Second, c.Timeout())
	require.Equal(t, DefaultRetries, c.RetryCount())
	require.Equal(t, time.Second, c.RetryDelay())
	require.Equal(t, DefaultPort, c.Port)
	require.Equal(t, DefaultMaxDepth, c.Discovery.Depth())
	require.Equal(t, 5*time.Second, c.Discovery.Timeout())
	require.Equal(t, DefaultWorkers, c.Discovery.Workers)
	require.True(t, c.Discovery.Gateways())
	require.NoError(t, c.Validate())

	// Explicit zero values survive.
	c = wantTestConfig()
	c.ApplyDefaults()
	require.Equal(t, 0, c.RetryCount())
	require.Equal(t, 1, c.Discovery.Depth())
	require.False(t, c.Discovery.Gateways())
}

func TestApplyDefaultsTrimsAddresses(t *testing.T) {
	c := &Config{Nodes: []NodeConfig{{Address: " hap.local.mesh\t"}, {Address: "hap.local.mesh "}}}
	c.ApplyDefaults()

	require.Equal(t, "hap.local.mesh", c.Nodes[0].Address)
	require.True(t, c.HasNode("hap.local.mesh"))
	require.ErrorContains(t, c.Validate(), "duplicate address")
}

func TestValidate(t *testing.T) {
	c := wantTestConfig()
	c.ApplyDefaults()
	require.NoError(t, c.Validate())

	c.PollIntervalSeconds = 5
	c.Nodes = append(c.Nodes, NodeConfig{Address: "localnode.local.mesh"}, NodeConfig{Address: " "}, NodeConfig{Address: "x", IntervalSeconds: 7200})
	c.Discovery.MaxDepth = intPtr(-1)
	c.AllowRuntimeConfigChanges = false
	c.AllowPermanentConfigChanges = true

	err := c.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"poll_interval_seconds",
		"duplicate address",
		"address must not be empty",
		"interval_seconds must be between",
		"max_depth",
		"allow_permanent_config_changes",
	} {
		require.True(t, strings.Contains(err.Error(), want), "missing %q in %q", want, err)
	}
}

func TestPollInterval(t *testing.T) {
	c := wantTestConfig()
	require.Equal(t, 2*time.Minute, c.PollInterval(c.Nodes[0]))
	require.Equal(t, 30*time.Second, c.PollInterval(c.Nodes[1]))
}

func TestAddRemoveNode(t *testing.T) {
	c := wantTestConfig()
	orig := c.Nodes

	require.False(t, c.AddNode(NodeConfig{Address: "localnode.local.mesh"}))
	require.True(t, c.AddNode(NodeConfig{Address: "N0CALL-B.local.mesh"}))
	require.True(t, c.HasNode("N0CALL-B.local.mesh"))

	require.True(t, c.RemoveNode("localnode.local.mesh"))
	require.False(t, c.RemoveNode("localnode.local.mesh"))
	require.Len(t, c.Nodes, 2)
	require.Equal(t, "localnode.local.mesh", orig[0].Address, "removal must not modify shared backing arrays")
}

func TestConvertToJSON(t *testing.T) {
	c := wantTestConfig()
	b, err := ConvertToJSON(*c, true)
	require.NoError(t, err)
	require.NotContains(t, string(b), "secret")
	require.Contains(t, string(b), redacted)
	require.Contains(t, string(b), "\n  \"nodes\"")
	require.Equal(t, "secret", c.WebPwd)
}

func TestDiff(t *testing.T) {
	a, b := wantTestConfig(), wantTestConfig()

	d, err := a.Diff(b)
	require.NoError(t, err)
	require.Equal(t, "no differences", d)

	b.Port = 9090
	b.WebPwd = "other"
	d, err = a.Diff(b)
	require.NoError(t, err)
	require.Contains(t, d, "9090")
	require.NotContains(t, d, "secret")
	require.NotContains(t, d, "other")

	_, err = a.Diff(nil)
	require.Error(t, err)
}

func writeRaw(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}
