package server

import (
	"fmt"
	"net/http"

	"github.com/arednch/nodemon/configuration"
	"github.com/arednch/nodemon/data"
	"github.com/arednch/nodemon/poller"
)

// SyncNodes makes the running poll loops match the configured nodes. Loops
// whose settings changed are restarted and reported as added. The caller must hold cfgMu or own
// the server exclusively.
func (s *Server) SyncNodes() (added, removed []string) {
	want := make(map[string]poller.Node, len(s.Config.Nodes))
	for _, n := range s.Config.Nodes {
		want[n.Address] = NodeFromConfig(s.Config, n)
	}

	for _, running := range s.Manager.Nodes() {
		n, ok := want[running.Address]
		if ok && n == running {
			delete(want, running.Address)
			continue
		}
		s.Manager.Remove(running.Address)
		if !ok {
			removed = append(removed, running.Address)
		}
	}

	for _, cn := range s.Config.Nodes {
		n, ok := want[cn.Address]
		if !ok {
			continue
		}
		s.Registry.Track(n.Address)
		if err := s.Manager.Add(n); err != nil {
			s.Logger.Error().Err(err).Str("address", n.Address).Msg("Unable to start polling node")
			continue
		}
		added = append(added, n.Address)
	}
	return added, removed
}

// ReloadConfig re-reads the config file and applies its node list and
// poll settings.
func (s *Server) ReloadConfig(w http.ResponseWriter, r *http.Request) {
	resp := &data.WebConfigChange{Success: true}
	if s.ConfigPath == "" {
		resp.Success = false
		resp.Messages = append(resp.Messages, "nodemon was not started with a config path set ('-conf' flag) so config file can't be loaded")
		s.writeJSON(w, http.StatusConflict, resp)
		return
	}

	cfg, err := configuration.Read(s.ConfigPath)
	if err == nil {
		cfg.ApplyDefaults()
		err = cfg.Validate()
	}
	if err != nil {
		s.Logger.Debug().Err(err).Msg("/reload: unable to load config")
		resp.Success = false
		resp.Messages = append(resp.Messages, fmt.Sprintf("unable to load config: %s", err))
		s.writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	s.cfgMu.Lock()
	s.Config.Nodes = cfg.Nodes
	s.Config.PollIntervalSeconds = cfg.PollIntervalSeconds
	s.Config.TimeoutSeconds = cfg.TimeoutSeconds
	s.Config.Retries = cfg.Retries
	s.Config.RetryDelayMillis = cfg.RetryDelayMillis
	added, removed := s.SyncNodes()
	s.cfgMu.Unlock()

	s.Logger.Info().Strs("added", added).Strs("removed", removed).Msg("Config reloaded")
	resp.Messages = append(resp.Messages, fmt.Sprintf("config reloaded from %q: %d nodes added, %d removed", s.ConfigPath, len(added), len(removed)))
	s.writeJSON(w, http.StatusOK, resp)
}
