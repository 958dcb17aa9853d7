package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/arednch/nodemon/exporter"
)

const defaultExportFormat = "json"

func (s *Server) Export(w http.ResponseWriter, r *http.Request) {
	format := r.FormValue("format")
	if strings.TrimSpace(format) == "" {
		format = defaultExportFormat
	}
	exp, ok := exporter.Lookup(s.Exporters, format)
	if !ok {
		s.Logger.Debug().Str("format", format).Msg("/export: unsupported format")
		http.Error(w, fmt.Sprintf("unsupported format %q, use one of %s", format, strings.Join(exporter.Formats(s.Exporters), ",")), http.StatusBadRequest)
		return
	}

	b, err := exp.Export(s.Registry.List())
	if err != nil {
		s.Logger.Error().Err(err).Str("format", format).Msg("/export: unable to export nodes")
		http.Error(w, "unable to export nodes", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", exp.ContentType())
	if r.FormValue("download") == "true" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "nodes"+exp.Extension()))
	}
	w.Write(b)
}
