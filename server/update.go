package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/arednch/nodemon/configuration"
	"github.com/arednch/nodemon/data"
)

type configChange struct {
	resp      *data.WebConfigChange
	permanent bool
}

// beginChange checks whether the request may change the config at all. The
// caller must hold cfgMu.
func (s *Server) beginChange(w http.ResponseWriter, r *http.Request, endpoint string) (*configChange, bool) {
	c := &configChange{resp: &data.WebConfigChange{Success: true}}

	if !s.Config.AllowRuntimeConfigChanges {
		s.Logger.Debug().Msgf("%s: updating config is not allowed by config", endpoint)
		c.fail(w, s, http.StatusForbidden, "updating config is not allowed by config flag (-allow_runtime_config_changes)")
		return nil, false
	}

	c.permanent = strings.ToLower(strings.TrimSpace(r.FormValue("perm"))) == "true"
	if c.permanent && !s.Config.AllowPermanentConfigChanges {
		s.Logger.Debug().Msgf("%s: updating config on disk is not allowed by config", endpoint)
		c.fail(w, s, http.StatusForbidden, "updating config on disk is not allowed by config flag (-allow_permanent_config_changes)")
		return nil, false
	}
	if c.permanent && s.ConfigPath == "" {
		c.permanent = false
		c.resp.Messages = append(c.resp.Messages, "nodemon was not started with a config path set ('-conf' flag) so config file won't be updated")
	}
	if !c.permanent {
		c.resp.Messages = append(c.resp.Messages, "config changes are not going to be written to disk")
	}
	return c, true
}

func (c *configChange) fail(w http.ResponseWriter, s *Server, status int, msg string) {
	c.resp.Success = false
	c.resp.Messages = append(c.resp.Messages, msg)
	s.writeJSON(w, status, c.resp)
}

// persist applies fn to the config on disk when the change is permanent.
func (c *configChange) persist(s *Server, endpoint string, fn func(*configuration.Config) bool) {
	if !c.permanent {
		return
	}
	cfg, err := configuration.Read(s.ConfigPath)
	if err != nil {
		s.Logger.Debug().Err(err).Msgf("%s: unable to read config", endpoint)
		c.resp.Messages = append(c.resp.Messages, "unable to read config, runtime change only")
		return
	}
	if !fn(cfg) {
		c.resp.Messages = append(c.resp.Messages, fmt.Sprintf("config in %q already up to date", s.ConfigPath))
		return
	}
	if err := configuration.Write(cfg, s.ConfigPath); err != nil {
		s.Logger.Debug().Err(err).Msgf("%s: unable to write config", endpoint)
		c.resp.Messages = append(c.resp.Messages, "unable to write config, runtime change only")
		return
	}
	c.resp.Messages = append(c.resp.Messages, fmt.Sprintf("config changes have been written to %q", s.ConfigPath))
}

// AddNode starts monitoring a node at runtime.
func (s *Server) AddNode(w http.ResponseWriter, r *http.Request) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	c, ok := s.beginChange(w, r, "/addnode")
	if !ok {
		return
	}

	n := configuration.NodeConfig{Address: strings.TrimSpace(r.FormValue("address"))}
	if n.Address == "" {
		c.fail(w, s, http.StatusBadRequest, "'address' must be specified")
		return
	}
	if iv := strings.TrimSpace(r.FormValue("interval")); iv != "" {
		secs, err := strconv.Atoi(iv)
		if err != nil || secs < configuration.MinimalPollSeconds || secs > configuration.MaxPollSeconds {
			c.fail(w, s, http.StatusBadRequest, fmt.Sprintf("'interval' must be between %d and %d seconds", configuration.MinimalPollSeconds, configuration.MaxPollSeconds))
			return
		}
		n.IntervalSeconds = secs
	}
	if s.Config.HasNode(n.Address) {
		c.fail(w, s, http.StatusConflict, fmt.Sprintf("%q is already monitored", n.Address))
		return
	}

	s.Registry.Track(n.Address)
	if err := s.Manager.Add(NodeFromConfig(s.Config, n)); err != nil {
		s.Registry.Forget(n.Address)
		s.Logger.Debug().Err(err).Str("address", n.Address).Msg("/addnode: unable to start polling")
		c.fail(w, s, http.StatusInternalServerError, "unable to start polling node")
		return
	}
	s.Config.AddNode(n)
	c.resp.Messages = append(c.resp.Messages, fmt.Sprintf("monitoring %q", n.Address))

	c.persist(s, "/addnode", func(cfg *configuration.Config) bool { return cfg.AddNode(n) })
	s.writeJSON(w, http.StatusOK, c.resp)
}

// RemoveNode stops monitoring a node at runtime. The poll loop is stopped
// after cfgMu is released since it may wait for a fetch in flight.
func (s *Server) RemoveNode(w http.ResponseWriter, r *http.Request) {
	resp, addr, ok := s.removeFromConfig(w, r)
	if !ok {
		return
	}
	s.Manager.Remove(addr)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) removeFromConfig(w http.ResponseWriter, r *http.Request) (*data.WebConfigChange, string, bool) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	c, ok := s.beginChange(w, r, "/removenode")
	if !ok {
		return nil, "", false
	}

	addr := strings.TrimSpace(r.FormValue("address"))
	if addr == "" {
		c.fail(w, s, http.StatusBadRequest, "'address' must be specified")
		return nil, "", false
	}
	if !s.Config.HasNode(addr) {
		c.fail(w, s, http.StatusNotFound, fmt.Sprintf("%q is not monitored", addr))
		return nil, "", false
	}

	s.Config.RemoveNode(addr)
	c.resp.Messages = append(c.resp.Messages, fmt.Sprintf("stopped monitoring %q", addr))
	c.persist(s, "/removenode", func(cfg *configuration.Config) bool { return cfg.RemoveNode(addr) })
	return c.resp, addr, true
}
