// Package exporter renders the status of polled nodes in various formats.
package exporter

import (
	"sort"
	"strings"

	"github.com/arednch/nodemon/data"
)

type Exporter interface {
	Export([]*data.NodeStatus) ([]byte, error)
	ContentType() string
	// Extension is the file name suffix including the leading dot.
	Extension() string
}

// Default returns all supported exporters keyed by format name.
func Default() map[string]Exporter {
	return map[string]Exporter{
		"json": &JSON{Indent: true},
		"yaml": &YAML{},
		"csv":  &CSV{},
	}
}

// Formats lists the names of exps in sorted order.
func Formats(exps map[string]Exporter) []string {
	names := make([]string, 0, len(exps))
	for n := range exps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup finds an exporter by case-insensitive format name.
func Lookup(exps map[string]Exporter, format string) (Exporter, bool) {
	e, ok := exps[strings.ToLower(strings.TrimSpace(format))]
	return e, ok
}
