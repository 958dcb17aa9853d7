package exporter

import (
	"encoding/json"

	"github.com/arednch/nodemon/data"
)

type JSON struct {
	Indent bool
}

func (j *JSON) Export(nodes []*data.NodeStatus) ([]byte, error) {
	if nodes == nil {
		nodes = []*data.NodeStatus{}
	}
	if j.Indent {
		return json.MarshalIndent(nodes, "", "  ")
	}
	return json.Marshal(nodes)
}

func (j *JSON) ContentType() string { return "application/json" }
func (j *JSON) Extension() string   { return ".json" }
