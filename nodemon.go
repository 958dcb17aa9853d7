package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/arednch/nodemon/configuration"
	"github.com/arednch/nodemon/data"
	"github.com/arednch/nodemon/discovery"
	"github.com/arednch/nodemon/exporter"
	"github.com/arednch/nodemon/importer"
	"github.com/arednch/nodemon/logger"
	"github.com/arednch/nodemon/metrics"
	"github.com/arednch/nodemon/network"
	"github.com/arednch/nodemon/olsr"
	"github.com/arednch/nodemon/poller"
	"github.com/arednch/nodemon/registry"
	"github.com/arednch/nodemon/server"
	"github.com/arednch/nodemon/sysinfo"
)

const version = "0.1.0"

var (
	conf     = flag.String("conf", "", "Config file to read settings from (JSON, or YAML with a .yaml/.yml extension).")
	nodes    = flag.String("nodes", "", "Comma separated list of node addresses to poll.")
	path     = flag.String("path", "", "Folder to write the exports to (non-server mode). Prints to stdout when empty.")
	formats  = flag.String("formats", "", "Comma separated list of export formats. Supported: csv,json,yaml")
	srv      = flag.Bool("server", false, "Run continuously and serve the HTTP interface.")
	port     = flag.Int("port", configuration.DefaultPort, "Port to listen on (when running as a server).")
	debug    = flag.Bool("debug", false, "Turns on verbose logging to stderr.")
	logLevel = flag.String("log_level", "", "Log level (debug, info, warn, error).")
	console  = flag.Bool("log_console", false, "Log human readable lines instead of JSON.")

	discover  = flag.Bool("discover", false, "Run a single discovery and print the candidates.")
	seeds     = flag.String("seeds", "", "Comma separated list of additional discovery seeds.")
	depth     = flag.Int("depth", configuration.DefaultMaxDepth, "Number of link hops followed during discovery.")
	hostsFile = flag.String("hosts_file", "", "OLSR hosts file to take discovery seeds from (e.g. "+olsr.DefaultHostsFile+").")

	payload = flag.String("payload", "", "Normalize a saved status document and print it.")
)

// loadConfig reads the config file if set and applies all flags that were
// explicitly given on top of it.
func loadConfig() (*configuration.Config, error) {
	cfg := &configuration.Config{}
	if *conf != "" {
		var err error
		if cfg, err = configuration.Read(*conf); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "nodes":
			for _, a := range splitList(*nodes) {
				cfg.AddNode(configuration.NodeConfig{Address: a})
			}
		case "path":
			cfg.Path = *path
		case "formats":
			cfg.Formats = splitList(*formats)
		case "server":
			cfg.Server = *srv
		case "port":
			cfg.Port = *port
		case "debug":
			cfg.Debug = *debug
		case "log_level":
			cfg.LogLevel = *logLevel
		case "seeds":
			cfg.Discovery.Seeds = append(cfg.Discovery.Seeds, splitList(*seeds)...)
		case "depth":
			d := *depth
			cfg.Discovery.MaxDepth = &d
		case "hosts_file":
			cfg.Discovery.HostsFile = *hostsFile
		}
	})

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// seedsFunc collects the default discovery seeds: the local node, the
// default gateways, the configured seeds and the OLSR host list.
func seedsFunc(cfg *configuration.Config) server.SeedsFunc {
	inspector := network.NewInspector(logger.WithComponent("network"))
	return func() []string {
		var gateways []string
		if cfg.Discovery.Gateways() {
			gateways = inspector.DefaultGateways()
		}
		extra := append([]string(nil), cfg.Discovery.Seeds...)
		if cfg.Discovery.HostsFile != "" {
			hosts, err := olsr.ReadFromFile(cfg.Discovery.HostsFile)
			if err != nil {
				log.Warn().Err(err).Str("path", cfg.Discovery.HostsFile).Msg("Unable to read OLSR hosts file")
			} else {
				extra = append(extra, olsr.Addresses(hosts)...)
			}
		}
		return discovery.DefaultSeeds(gateways, extra)
	}
}

func newSpider(cfg *configuration.Config, f discovery.Fetcher, m *metrics.Collector) *discovery.Spider {
	return discovery.NewSpider(f, discovery.Config{
		MaxDepth:    cfg.Discovery.Depth(),
		MaxPerLevel: cfg.Discovery.MaxPerLevel,
		Timeout:     cfg.Discovery.Timeout(),
		Workers:     cfg.Discovery.Workers,
	}, logger.WithComponent("discovery"), m)
}

// pollOnce runs a single cycle for every configured node.
func pollOnce(ctx context.Context, cfg *configuration.Config, f poller.Fetcher, reg *registry.Registry) error {
	if len(cfg.Nodes) == 0 {
		return fmt.Errorf("no nodes configured, use -nodes or the config file")
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Discovery.Workers)
	for _, n := range cfg.Nodes {
		reg.Track(n.Address)
		p := poller.New(server.NodeFromConfig(cfg, n), f, reg, logger.WithComponent("poller"))
		g.Go(func() error {
			p.Poll(ctx)
			return nil
		})
	}
	return g.Wait()
}

func exportOnce(cfg *configuration.Config, exps map[string]exporter.Exporter, list []*data.NodeStatus) error {
	fmts := cfg.Formats
	if len(fmts) == 0 {
		fmts = []string{"json"}
	}
	for _, outFmt := range fmts {
		exp, ok := exporter.Lookup(exps, outFmt)
		if !ok {
			return fmt.Errorf("unknown exporter %q", outFmt)
		}
		body, err := exp.Export(list)
		if err != nil {
			return err
		}
		if cfg.Path == "" {
			os.Stdout.Write(body)
			continue
		}
		outpath := filepath.Join(cfg.Path, "nodes"+exp.Extension())
		if err := os.WriteFile(outpath, body, 0644); err != nil {
			return err
		}
		log.Info().Str("path", outpath).Msg("Export written")
	}
	return nil
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func normalizePayload(path string) error {
	raw, err := importer.ReadFromFile(path)
	if err != nil {
		return err
	}
	snap, err := sysinfo.Normalize(raw, time.Now())
	if err != nil {
		return err
	}
	return printJSON(struct {
		Snapshot  *data.Snapshot   `json:"snapshot"`
		MeshHosts []*data.MeshHost `json:"mesh_hosts,omitempty"`
	}{snap, olsr.FromPayload(raw)})
}

func main() {
	// Parse flags globally.
	flag.Parse()

	if *payload != "" {
		if err := normalizePayload(*payload); err != nil {
			log.Fatal().Err(err).Msg("Unable to normalize payload")
		}
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Debug: cfg.Debug, Console: *console}); err != nil {
		log.Fatal().Err(err).Msg("Unable to set up logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := importer.NewClient()
	m := metrics.New()
	exps := exporter.Default()

	if *discover {
		seedList := seedsFunc(cfg)()
		res := newSpider(cfg, client, m).Discover(ctx, seedList)
		if err := printJSON(&data.WebDiscovery{
			ID:         res.ID,
			Seeds:      seedList,
			Visited:    res.Visited,
			Cancelled:  res.Cancelled,
			Candidates: res.Candidates,
		}); err != nil {
			log.Fatal().Err(err).Msg("Unable to print discovery result")
		}
		return
	}

	reg := registry.New(logger.WithComponent("registry"), m)

	if !cfg.Server {
		if err := pollOnce(ctx, cfg, client, reg); err != nil {
			log.Fatal().Err(err).Msg("Unable to poll nodes")
		}
		if err := exportOnce(cfg, exps, reg.List()); err != nil {
			log.Fatal().Err(err).Msg("Unable to export nodes")
		}
		return
	}

	mgr := poller.NewManager(ctx, client, reg, logger.WithComponent("poller"), m)
	defer mgr.Stop()

	s := &server.Server{
		Config:     cfg,
		ConfigPath: *conf,
		Version:    version,
		Started:    time.Now(),
		Registry:   reg,
		Manager:    mgr,
		Spider:     newSpider(cfg, client, m),
		SeedsFn:    seedsFunc(cfg),
		Exporters:  exps,
		Metrics:    m,
		Logger:     logger.WithComponent("server"),
	}
	s.SyncNodes()

	if err := s.Run(ctx, fmt.Sprintf(":%d", cfg.Port)); err != nil {
		log.Fatal().Err(err).Msg("HTTP server failed")
	}
}
