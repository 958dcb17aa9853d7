package server

import (
	"net/http"

	"github.com/arednch/nodemon/data"
	"github.com/arednch/nodemon/exporter"
)

var endpoints = []string{
	"/info",
	"/nodes",
	"/node?address=",
	"/export?format=",
	"/discover?seed=&depth=",
	"/addnode",
	"/removenode",
	"/reload",
	"/showconfig?type=",
	"/metrics",
}

func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.writeJSON(w, http.StatusOK, &data.WebIndex{
		Version:   s.Version,
		Formats:   exporter.Formats(s.Exporters),
		Endpoints: endpoints,
	})
}
