package ir

import (
	"io"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type yamlGraph struct {
	Nodes []yamlNode `yaml:"nodes"`
}

type yamlNode struct {
	ID     NodeID   `yaml:"id"`
	Name   string   `yaml:"name"`
	Op     string   `yaml:"op"`
	Inputs []string `yaml:"inputs,omitempty"`
	Attrs  Attrs    `yaml:"attrs,omitempty"`
}

// WriteYAML writes the graph as a YAML document. Inputs are rendered as GraphDef-style references
// ("name", "name:idx", "^name").
func (g *Graph) WriteYAML(w io.Writer) error {
	doc := yamlGraph{Nodes: make([]yamlNode, len(g.nodes))}
	for i, n := range g.nodes {
		yn := yamlNode{ID: n.ID, Name: n.Name, Op: n.Op, Attrs: n.Attrs}
		for _, e := range n.InEdges {
			yn.Inputs = append(yn.Inputs, g.refString(e))
		}
		doc.Nodes[i] = yn
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "failed to encode graph")
	}
	return errors.Wrap(enc.Close(), "failed to flush graph")
}

func (g *Graph) refString(e Edge) string {
	name := g.nodes[e.Src].Name
	switch {
	case e.Control:
		return "^" + name
	case e.Index == 0:
		return name
	default:
		return name + ":" + strconv.Itoa(e.Index)
	}
}
