package configuration

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

const (
	MinimalPollSeconds = 10
	MaxPollSeconds     = 3600

	DefaultPollSeconds      = 60
	DefaultTimeoutSeconds   = 10
	DefaultRetries          = 1
	DefaultRetryDelayMillis = 1000
	DefaultPort             = 8080

	DefaultMaxDepth                = 2
	DefaultDiscoveryTimeoutSeconds = 5
	DefaultWorkers                 = 8

	redacted = "<redacted>"
)

type NodeConfig struct {
	Address string `json:"address" yaml:"address"`
	// IntervalSeconds overrides the global poll interval for this node.
	IntervalSeconds int `json:"interval_seconds,omitempty" yaml:"interval_seconds,omitempty"`
}

type DiscoveryConfig struct {
	MaxDepth       *int     `json:"max_depth,omitempty" yaml:"max_depth,omitempty"`
	MaxPerLevel    int      `json:"max_per_level,omitempty" yaml:"max_per_level,omitempty"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	Workers        int      `json:"workers,omitempty" yaml:"workers,omitempty"`
	Seeds          []string `json:"seeds,omitempty" yaml:"seeds,omitempty"`
	HostsFile      string   `json:"hosts_file,omitempty" yaml:"hosts_file,omitempty"`
	UseGateways    *bool    `json:"use_gateways,omitempty" yaml:"use_gateways,omitempty"`
}

type Config struct {
	// Polling.
	Nodes               []NodeConfig `json:"nodes" yaml:"nodes"`
	PollIntervalSeconds int          `json:"poll_interval_seconds" yaml:"poll_interval_seconds"`
	TimeoutSeconds      int          `json:"timeout_seconds" yaml:"timeout_seconds"`
	Retries             *int         `json:"retries,omitempty" yaml:"retries,omitempty"`
	RetryDelayMillis    int          `json:"retry_delay_millis" yaml:"retry_delay_millis"`

	Discovery DiscoveryConfig `json:"discovery" yaml:"discovery"`

	// Generally applicable.
	Debug    bool   `json:"debug" yaml:"debug"`
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`

	// Only relevant when running in non-server / ad-hoc mode.
	Path    string   `json:"path,omitempty" yaml:"path,omitempty"`
	Formats []string `json:"formats,omitempty" yaml:"formats,omitempty"`

	// Only relevant when running in server mode.
	Server                      bool   `json:"server,omitempty" yaml:"server,omitempty"`
	Port                        int    `json:"port" yaml:"port"`
	WebUser                     string `json:"web_user,omitempty" yaml:"web_user,omitempty"`
	WebPwd                      string `json:"web_pwd,omitempty" yaml:"web_pwd,omitempty"`
	AllowRuntimeConfigChanges   bool   `json:"allow_runtime_config_changes" yaml:"allow_runtime_config_changes"`
	AllowPermanentConfigChanges bool   `json:"allow_permanent_config_changes" yaml:"allow_permanent_config_changes"`
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Read loads a configuration file. Files ending in .yaml or .yml are parsed
// as YAML, everything else as JSON.
func Read(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var conf Config
	if isYAML(path) {
		err = yaml.Unmarshal(b, &conf)
	} else {
		err = json.Unmarshal(b, &conf)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &conf, nil
}

// Write stores conf at path in the format implied by the file extension.
func Write(conf *Config, path string) error {
	var (
		b   []byte
		err error
	)
	if isYAML(path) {
		b, err = yaml.Marshal(conf)
	} else {
		b, err = json.MarshalIndent(conf, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// ConvertToJSON renders a config for display. The web password is never included.
func ConvertToJSON(conf Config, indent bool) ([]byte, error) {
	if conf.WebPwd != "" {
		conf.WebPwd = redacted
	}
	if indent {
		return json.MarshalIndent(conf, "", "  ")
	}
	return json.Marshal(conf)
}

// Diff describes how other differs from c.
func (c *Config) Diff(other *Config) (string, error) {
	if other == nil {
		return "", errors.New("no config to compare against")
	}
	a, b := *c, *other
	if a.WebPwd != "" {
		a.WebPwd = redacted
	}
	if b.WebPwd != "" {
		b.WebPwd = redacted
	}
	if d := cmp.Diff(a, b); d != "" {
		return d, nil
	}
	return "no differences", nil
}

func intPtr(i int) *int    { return &i }
func boolPtr(b bool) *bool { return &b }

// ApplyDefaults normalizes node addresses and fills in every unset value.
func (c *Config) ApplyDefaults() {
	for i := range c.Nodes {
		c.Nodes[i].Address = strings.TrimSpace(c.Nodes[i].Address)
	}
	if c.PollIntervalSeconds == 0 {
		c.PollIntervalSeconds = DefaultPollSeconds
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.Retries == nil {
		c.Retries = intPtr(DefaultRetries)
	}
	if c.RetryDelayMillis == 0 {
		c.RetryDelayMillis = DefaultRetryDelayMillis
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}

	d := &c.Discovery
	if d.MaxDepth == nil {
		d.MaxDepth = intPtr(DefaultMaxDepth)
	}
	if d.TimeoutSeconds == 0 {
		d.TimeoutSeconds = DefaultDiscoveryTimeoutSeconds
	}
	if d.Workers == 0 {
		d.Workers = DefaultWorkers
	}
	if d.UseGateways == nil {
		d.UseGateways = boolPtr(true)
	}
}

func validPoll(secs int) bool {
	return secs >= MinimalPollSeconds && secs <= MaxPollSeconds
}

// Validate reports every problem found in the config. Defaults must have been applied.
func (c *Config) Validate() error {
	var errs []error

	if !validPoll(c.PollIntervalSeconds) {
		errs = append(errs, fmt.Errorf("poll_interval_seconds must be between %d and %d, got %d", MinimalPollSeconds, MaxPollSeconds, c.PollIntervalSeconds))
	}
	if c.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("timeout_seconds must be positive, got %d", c.TimeoutSeconds))
	}
	if c.Retries != nil && *c.Retries < 0 {
		errs = append(errs, fmt.Errorf("retries must not be negative, got %d", *c.Retries))
	}
	if c.RetryDelayMillis < 0 {
		errs = append(errs, fmt.Errorf("retry_delay_millis must not be negative, got %d", c.RetryDelayMillis))
	}

	seen := make(map[string]bool)
	for i, n := range c.Nodes {
		addr := strings.TrimSpace(n.Address)
		switch {
		case addr == "":
			errs = append(errs, fmt.Errorf("nodes[%d]: address must not be empty", i))
		case seen[addr]:
			errs = append(errs, fmt.Errorf("nodes[%d]: duplicate address %q", i, addr))
		}
		seen[addr] = true
		if n.IntervalSeconds != 0 && !validPoll(n.IntervalSeconds) {
			errs = append(errs, fmt.Errorf("nodes[%d]: interval_seconds must be between %d and %d, got %d", i, MinimalPollSeconds, MaxPollSeconds, n.IntervalSeconds))
		}
	}

	d := c.Discovery
	if d.MaxDepth != nil && *d.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("discovery.max_depth must not be negative, got %d", *d.MaxDepth))
	}
	if d.MaxPerLevel < 0 {
		errs = append(errs, fmt.Errorf("discovery.max_per_level must not be negative, got %d", d.MaxPerLevel))
	}
	if d.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("discovery.timeout_seconds must not be negative, got %d", d.TimeoutSeconds))
	}
	if d.Workers < 0 {
		errs = append(errs, fmt.Errorf("discovery.workers must not be negative, got %d", d.Workers))
	}

	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 0 and 65535, got %d", c.Port))
	}
	if c.AllowPermanentConfigChanges && !c.AllowRuntimeConfigChanges {
		errs = append(errs, errors.New("allow_permanent_config_changes requires allow_runtime_config_changes"))
	}
	return errors.Join(errs...)
}

// PollInterval returns the effective interval of a node.
func (c *Config) PollInterval(n NodeConfig) time.Duration {
	if n.IntervalSeconds > 0 {
		return time.Duration(n.IntervalSeconds) * time.Second
	}
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMillis) * time.Millisecond
}

func (c *Config) RetryCount() int {
	if c.Retries == nil {
		return DefaultRetries
	}
	return *c.Retries
}

func (d *DiscoveryConfig) Depth() int {
	if d.MaxDepth == nil {
		return DefaultMaxDepth
	}
	return *d.MaxDepth
}

func (d *DiscoveryConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

func (d *DiscoveryConfig) Gateways() bool {
	return d.UseGateways == nil || *d.UseGateways
}

// HasNode reports whether address is configured.
func (c *Config) HasNode(address string) bool {
	for _, n := range c.Nodes {
		if n.Address == address {
			return true
		}
	}
	return false
}

// AddNode appends a node unless its address is already configured.
func (c *Config) AddNode(n NodeConfig) bool {
	if c.HasNode(n.Address) {
		return false
	}
	c.Nodes = append(c.Nodes, n)
	return true
}

// RemoveNode drops the node with the given address.
func (c *Config) RemoveNode(address string) bool {
	for i, n := range c.Nodes {
		if n.Address == address {
			c.Nodes = append(c.Nodes[:i:i], c.Nodes[i+1:]...)
			return true
		}
	}
	return false
}
