package exporter

import (
	"gopkg.in/yaml.v3"

	"github.com/arednch/nodemon/data"
)

type YAML struct{}

func (y *YAML) Export(nodes []*data.NodeStatus) ([]byte, error) {
	if nodes == nil {
		nodes = []*data.NodeStatus{}
	}
	return yaml.Marshal(nodes)
}

func (y *YAML) ContentType() string { return "application/yaml" }
func (y *YAML) Extension() string   { return ".yaml" }
