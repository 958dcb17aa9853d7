// Package discovery finds mesh nodes by walking the peer links reported in their status pages.
package discovery

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/arednch/nodemon/data"
	"github.com/arednch/nodemon/importer"
	"github.com/arednch/nodemon/metrics"
	"github.com/arednch/nodemon/sysinfo"
)

const (
	DefaultMaxDepth = 2
	DefaultTimeout  = 5 * time.Second
	DefaultWorkers  = 8
)

// Fetcher retrieves the raw status document of a node.
type Fetcher interface {
	Fetch(ctx context.Context, address string, timeout time.Duration) (data.RawPayload, error)
}

type Config struct {
	// MaxDepth is the number of link hops followed from the seeds.
	MaxDepth int
	// MaxPerLevel caps the number of addresses probed per level beyond the seeds (0 = unlimited).
	MaxPerLevel int
	Timeout     time.Duration
	Workers     int
}

// Result of one discovery run.
type Result struct {
	ID         string            `json:"id"`
	Candidates []*data.Candidate `json:"candidates"`
	Visited    int               `json:"visited"`
	Cancelled  bool              `json:"cancelled"`
}

// Spider performs bounded breadth-first discovery. A Spider holds no per-run
// state and may run several discoveries at once.
type Spider struct {
	fetcher Fetcher
	cfg     Config
	logger  zerolog.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

func NewSpider(f Fetcher, cfg Config, logger zerolog.Logger, m *metrics.Collector) *Spider {
	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = 0
	}
	if cfg.MaxPerLevel < 0 {
		cfg.MaxPerLevel = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	return &Spider{
		fetcher: f,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// WithMaxDepth returns a copy of the spider using a different depth bound.
func (s *Spider) WithMaxDepth(depth int) *Spider {
	c := *s
	if depth < 0 {
		depth = 0
	}
	c.cfg.MaxDepth = depth
	return &c
}

func (s *Spider) Config() Config {
	return s.cfg
}

type probe struct {
	snap *data.Snapshot
	err  error
	done bool
}

// Discover walks the mesh starting at seeds. Each address is probed at most
// once per run and failures are skipped. Candidates are returned in discovery
// order: seeds first, then level by level. When ctx is cancelled the fetches in
// flight are abandoned; nodes already confirmed are returned but not expanded.
func (s *Spider) Discover(ctx context.Context, seeds []string) Result {
	res := Result{ID: uuid.NewString()}
	logger := s.logger.With().Str("run_id", res.ID).Logger()
	logger.Info().Strs("seeds", seeds).Int("max_depth", s.cfg.MaxDepth).Msg("Starting discovery")

	visited := make(map[string]bool)
	frontier := seeds
	for depth := 0; len(frontier) > 0 && depth <= s.cfg.MaxDepth; depth++ {
		var level []string
		for _, addr := range frontier {
			addr = strings.TrimSpace(addr)
			if addr == "" || visited[addr] {
				continue
			}
			visited[addr] = true
			level = append(level, addr)
		}
		if len(level) == 0 {
			break
		}

		probes, ok := s.probeLevel(ctx, level)

		var next []string
		queued := make(map[string]bool)
		for i, p := range probes {
			if !p.done {
				continue
			}
			if p.err != nil {
				logger.Debug().Err(p.err).Str("address", level[i]).Int("depth", depth).Msg("Skipping node")
				continue
			}
			res.Candidates = append(res.Candidates, &data.Candidate{
				Address: level[i],
				Name:    p.snap.Name,
				Depth:   depth,
			})
			if !ok || depth == s.cfg.MaxDepth {
				continue
			}
			for _, l := range p.snap.SortedLinks() {
				if visited[l.Peer] || queued[l.Peer] {
					continue
				}
				if s.cfg.MaxPerLevel > 0 && len(next) >= s.cfg.MaxPerLevel {
					break
				}
				queued[l.Peer] = true
				next = append(next, l.Peer)
			}
		}
		if !ok {
			res.Cancelled = true
			break
		}
		logger.Debug().Int("depth", depth).Int("probed", len(level)).Int("next", len(next)).Msg("Level complete")
		frontier = next
	}

	res.Visited = len(visited)
	s.metrics.RecordDiscovery(len(res.Candidates), res.Cancelled)
	logger.Info().
		Int("candidates", len(res.Candidates)).
		Int("visited", res.Visited).
		Bool("cancelled", res.Cancelled).
		Msg("Discovery finished")
	return res
}

// probeLevel fetches all addresses of one level concurrently. It returns false
// when ctx ends before the level has been fully resolved; the probes that had
// completed by then are still returned, marked done.
func (s *Spider) probeLevel(ctx context.Context, level []string) ([]probe, bool) {
	var mu sync.Mutex
	probes := make([]probe, len(level))
	done := make(chan struct{})

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	go func() {
		defer close(done)
		for i, addr := range level {
			if ctx.Err() != nil {
				break
			}
			i, addr := i, addr
			g.Go(func() error {
				snap, err := s.probe(ctx, addr)
				mu.Lock()
				probes[i] = probe{snap: snap, err: err, done: true}
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	out := append([]probe(nil), probes...)
	return out, ctx.Err() == nil
}

func (s *Spider) probe(ctx context.Context, address string) (*data.Snapshot, error) {
	raw, err := s.fetcher.Fetch(ctx, address, s.cfg.Timeout)
	if err != nil {
		kind := string(importer.KindOf(err))
		if kind == "" {
			kind = "error"
		}
		s.metrics.RecordFetch(kind)
		return nil, err
	}
	snap, err := sysinfo.Normalize(raw, s.now())
	if err != nil {
		s.metrics.RecordFetch("parse-error")
		return nil, err
	}
	s.metrics.RecordFetch("ok")
	return snap, nil
}

// DefaultSeeds builds the ordered seed list: the well-known local node name,
// then the given gateways, then any extra addresses. Duplicates and blanks are dropped.
func DefaultSeeds(gateways, extra []string) []string {
	seen := make(map[string]bool)
	var seeds []string
	add := func(addrs ...string) {
		for _, a := range addrs {
			a = strings.TrimSpace(a)
			if a == "" || seen[a] {
				continue
			}
			seen[a] = true
			seeds = append(seeds, a)
		}
	}
	add(data.AREDNLocalNode)
	add(gateways...)
	add(extra...)
	return seeds
}
