package server

import (
	"net/http"
	"strings"

	"github.com/arednch/nodemon/data"
)

func (s *Server) Info(w http.ResponseWriter, r *http.Request) {
	nodes := s.Registry.List()
	info := &data.WebInfo{
		Version: s.Version,
		Started: s.Started,
		Nodes:   len(nodes),
	}
	for _, n := range nodes {
		if n.Reachability == data.Reachable {
			info.Reachable++
		}
	}
	s.writeJSON(w, http.StatusOK, info)
}

func (s *Server) Nodes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Registry.List())
}

func (s *Server) Node(w http.ResponseWriter, r *http.Request) {
	addr := strings.TrimSpace(r.FormValue("address"))
	if addr == "" {
		http.Error(w, "'address' must be specified", http.StatusBadRequest)
		return
	}
	st, ok := s.Registry.Status(addr)
	if !ok {
		http.Error(w, "node is not monitored", http.StatusNotFound)
		return
	}

	resp := &data.WebNode{Status: st}
	if c, ok := s.Registry.LastChanges(addr); ok && !c.Empty() {
		resp.Changes = &data.WebSubChanges{
			Added:   c.Added,
			Removed: c.Removed,
			Updated: c.Updated,
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}
