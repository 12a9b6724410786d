// Package ir holds the internal graph representation produced by the builder.
//
// A Graph is immutable once constructed: nodes are addressed by a dense NodeID in declaration
// order, each node carries its normalized attributes and ordered input edges, and output edges
// are derived from the inputs at construction time. Cycles are allowed.
package ir

import (
	"github.com/pkg/errors"
)

// NodeID identifies a node within one Graph. IDs are dense and follow declaration order.
type NodeID int

// Attrs maps attribute names to typed values.
type Attrs map[string]any

// Edge is an input edge: the Index-th output of node Src feeds the owning node.
// Control edges carry ordering only and always have Index 0.
type Edge struct {
	Src     NodeID
	Index   int
	Control bool
}

// OutEdge is the derived reverse of an Edge.
type OutEdge struct {
	Dst     NodeID // Consuming node
	Index   int    // Output index of the source node
	Slot    int    // Position in the consumer's InEdges
	Control bool
}

// Node is a single IR node.
type Node struct {
	ID      NodeID
	Name    string
	Op      string
	Attrs   Attrs
	InEdges []Edge
}

// Attr returns the named attribute.
func (n *Node) Attr(name string) (any, bool) {
	v, ok := n.Attrs[name]
	return v, ok
}

// Graph is a set of IR nodes with their edges.
type Graph struct {
	nodes  []*Node
	byName map[string]NodeID
	out    [][]OutEdge
}

// NewGraph assembles a graph from nodes.
// Node IDs must equal their position, names must be unique and every edge must point at a node
// of the graph.
func NewGraph(nodes []*Node) (*Graph, error) {
	g := &Graph{
		nodes:  nodes,
		byName: make(map[string]NodeID, len(nodes)),
		out:    make([][]OutEdge, len(nodes)),
	}
	for i, n := range nodes {
		if n == nil {
			return nil, errors.Errorf("node #%d is nil", i)
		}
		if int(n.ID) != i {
			return nil, errors.Errorf("node %q has id %d at position %d", n.Name, n.ID, i)
		}
		if _, dup := g.byName[n.Name]; dup {
			return nil, errors.Errorf("duplicate node name %q", n.Name)
		}
		g.byName[n.Name] = n.ID
	}
	for _, n := range nodes {
		for slot, e := range n.InEdges {
			if e.Src < 0 || int(e.Src) >= len(nodes) {
				return nil, errors.Errorf("node %q input %d: source id %d out of range", n.Name, slot, e.Src)
			}
			g.out[e.Src] = append(g.out[e.Src], OutEdge{Dst: n.ID, Index: e.Index, Slot: slot, Control: e.Control})
		}
	}
	return g, nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns the nodes in declaration order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// Lookup returns the node with the given name.
func (g *Graph) Lookup(name string) (*Node, bool) {
	id, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return g.nodes[id], true
}

// OutEdges returns the consumers of node id, ordered by consumer id then slot.
func (g *Graph) OutEdges(id NodeID) []OutEdge {
	if id < 0 || int(id) >= len(g.out) {
		return nil
	}
	out := make([]OutEdge, len(g.out[id]))
	copy(out, g.out[id])
	return out
}

// OpCounts returns the number of nodes per op.
func (g *Graph) OpCounts() map[string]int {
	counts := make(map[string]int)
	for _, n := range g.nodes {
		counts[n.Op]++
	}
	return counts
}
