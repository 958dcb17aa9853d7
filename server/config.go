package server

import (
	"net/http"
	"strings"

	"github.com/arednch/nodemon/configuration"
	"github.com/arednch/nodemon/data"
)

func (s *Server) ShowConfig(w http.ResponseWriter, r *http.Request) {
	resp := &data.WebShowConfig{Success: true}
	fail := func(status int, msg string) {
		resp.Success = false
		resp.Messages = append(resp.Messages, msg)
		s.writeJSON(w, status, resp)
	}

	t := strings.ToLower(strings.TrimSpace(r.FormValue("type")))
	var cfg *configuration.Config
	switch t {
	case "":
		s.Logger.Debug().Msg("/showconfig: 'type' not specified")
		fail(http.StatusBadRequest, "'type' must be specified: [disk,runtime,diff]")
		return
	case "d", "disk", "diff":
		if s.ConfigPath == "" {
			fail(http.StatusConflict, "nodemon was not started with a config path set ('-conf' flag) so config file can't be loaded")
			return
		}
		var err error
		if cfg, err = configuration.Read(s.ConfigPath); err != nil {
			s.Logger.Debug().Err(err).Msg("/showconfig: unable to read config")
			fail(http.StatusInternalServerError, "unable to read config")
			return
		}
	case "r", "runtime":
		s.cfgMu.RLock()
		c := *s.Config
		s.cfgMu.RUnlock()
		cfg = &c
	default:
		s.Logger.Debug().Str("type", t).Msg("/showconfig: 'type' not as expected")
		fail(http.StatusBadRequest, "'type' must be specified: [disk,runtime,diff]")
		return
	}

	if t != "diff" {
		b, err := configuration.ConvertToJSON(*cfg, true)
		if err != nil {
			s.Logger.Debug().Err(err).Msg("/showconfig: unable to convert config")
			fail(http.StatusInternalServerError, "unable to convert config")
			return
		}
		resp.Content = string(b)
		s.writeJSON(w, http.StatusOK, resp)
		return
	}

	// The runtime config always carries defaults.
	cfg.ApplyDefaults()
	s.cfgMu.RLock()
	diffs, err := s.Config.Diff(cfg)
	s.cfgMu.RUnlock()
	if err != nil {
		s.Logger.Debug().Err(err).Msg("/showconfig: unable to diff configs")
		fail(http.StatusInternalServerError, "unable to diff config")
		return
	}
	resp.Diff = true
	resp.Content = diffs
	s.writeJSON(w, http.StatusOK, resp)
}
