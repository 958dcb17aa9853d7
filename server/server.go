package server

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/arednch/nodemon/configuration"
	"github.com/arednch/nodemon/discovery"
	"github.com/arednch/nodemon/exporter"
	"github.com/arednch/nodemon/metrics"
	"github.com/arednch/nodemon/poller"
	"github.com/arednch/nodemon/registry"
)

// SeedsFunc returns the seeds used when a discovery request names none.
type SeedsFunc func() []string

type Server struct {
	Config     *configuration.Config
	ConfigPath string // optional when using config file
	Version    string
	Started    time.Time

	Registry  *registry.Registry
	Manager   *poller.Manager
	Spider    *discovery.Spider
	SeedsFn   SeedsFunc
	Exporters map[string]exporter.Exporter
	Metrics   *metrics.Collector
	Logger    zerolog.Logger

	// cfgMu guards Config against runtime changes.
	cfgMu sync.RWMutex
}

// NodeFromConfig derives the poll settings of a configured node.
func NodeFromConfig(c *configuration.Config, n configuration.NodeConfig) poller.Node {
	return poller.Node{
		Address:    n.Address,
		Interval:   c.PollInterval(n),
		Timeout:    c.Timeout(),
		Retries:    c.RetryCount(),
		RetryDelay: c.RetryDelay(),
	}
}

// BasicAuth protects a handler when a web user is configured.
func (s *Server) BasicAuth(next http.HandlerFunc) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.cfgMu.RLock()
		user, pwd := s.Config.WebUser, s.Config.WebPwd
		s.cfgMu.RUnlock()
		if user == "" {
			next.ServeHTTP(w, r)
			return
		}

		username, password, ok := r.BasicAuth()
		if ok {
			usernameHash := sha256.Sum256([]byte(username))
			passwordHash := sha256.Sum256([]byte(password))
			expectedUsernameHash := sha256.Sum256([]byte(user))
			expectedPasswordHash := sha256.Sum256([]byte(pwd))

			usernameMatch := subtle.ConstantTimeCompare(usernameHash[:], expectedUsernameHash[:]) == 1
			passwordMatch := subtle.ConstantTimeCompare(passwordHash[:], expectedPasswordHash[:]) == 1
			if usernameMatch && passwordMatch {
				next.ServeHTTP(w, r)
				return
			}
		}

		s.Logger.Debug().Str("path", r.URL.Path).Msg("Rejected unauthenticated request")
		w.Header().Set("WWW-Authenticate", `Basic realm="restricted", charset="UTF-8"`)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}

func postOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// Handler returns the routes served by the monitor.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.Index)
	mux.HandleFunc("/info", s.Info)
	mux.HandleFunc("/nodes", s.Nodes)
	mux.HandleFunc("/node", s.Node)
	mux.HandleFunc("/export", s.Export)
	mux.HandleFunc("/discover", s.BasicAuth(s.Discover))
	mux.HandleFunc("/addnode", s.BasicAuth(postOnly(s.AddNode)))
	mux.HandleFunc("/removenode", s.BasicAuth(postOnly(s.RemoveNode)))
	mux.HandleFunc("/reload", s.BasicAuth(postOnly(s.ReloadConfig)))
	mux.HandleFunc("/showconfig", s.BasicAuth(s.ShowConfig))
	mux.Handle("/metrics", s.Metrics.Handler())
	return mux
}

// Run serves HTTP on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info().Str("addr", addr).Msg("Serving HTTP")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		s.Logger.Error().Err(err).Msg("Unable to marshal response")
		http.Error(w, "unable to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}
