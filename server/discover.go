package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/arednch/nodemon/data"
)

// Discover runs a discovery from the given seeds, or the default seeds when
// none are given. The run is cancelled when the client goes away.
func (s *Server) Discover(w http.ResponseWriter, r *http.Request) {
	if s.Spider == nil {
		http.Error(w, "discovery is not available", http.StatusServiceUnavailable)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "unable to parse request", http.StatusBadRequest)
		return
	}

	var seeds []string
	for _, v := range r.Form["seed"] {
		for _, seed := range strings.Split(v, ",") {
			if seed = strings.TrimSpace(seed); seed != "" {
				seeds = append(seeds, seed)
			}
		}
	}
	if len(seeds) == 0 && s.SeedsFn != nil {
		seeds = s.SeedsFn()
	}
	if len(seeds) == 0 {
		http.Error(w, "no seeds to start discovery from", http.StatusBadRequest)
		return
	}

	spider := s.Spider
	if d := strings.TrimSpace(r.FormValue("depth")); d != "" {
		depth, err := strconv.Atoi(d)
		if err != nil || depth < 0 {
			http.Error(w, fmt.Sprintf("invalid depth %q", d), http.StatusBadRequest)
			return
		}
		spider = spider.WithMaxDepth(depth)
	}

	res := spider.Discover(r.Context(), seeds)
	s.Logger.Debug().
		Str("run_id", res.ID).
		Int("candidates", len(res.Candidates)).
		Bool("cancelled", res.Cancelled).
		Msg("/discover: finished")

	cands := res.Candidates
	if cands == nil {
		cands = []*data.Candidate{}
	}
	s.writeJSON(w, http.StatusOK, &data.WebDiscovery{
		ID:         res.ID,
		Seeds:      seeds,
		Visited:    res.Visited,
		Cancelled:  res.Cancelled,
		Candidates: cands,
	})
}
