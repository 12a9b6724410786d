package builder

import (
	"fmt"
)

// NodeState is the extraction state of a raw node.
type NodeState int

// Node states. Populated and Failed are terminal.
const (
	Pending NodeState = iota
	Dispatched
	Populated
	Failed
)

// String returns the state name.
func (s NodeState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Dispatched:
		return "dispatched"
	case Populated:
		return "populated"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("NodeState(%d)", int(s))
	}
}

// NodeStatus is the report line of one raw node.
type NodeStatus struct {
	Name        string
	Op          string
	State       NodeState
	PassThrough bool       // Kept by the fallback extractor
	Err         *NodeError // Set when State is Failed
}

// Report describes the outcome of every raw node of a build, in declaration order.
type Report struct {
	Nodes []NodeStatus
}

func (s *buildState) report() *Report {
	r := &Report{Nodes: make([]NodeStatus, len(s.g.Nodes))}
	for i := range s.g.Nodes {
		r.Nodes[i] = NodeStatus{
			Name:        s.g.Nodes[i].Name,
			Op:          s.g.Nodes[i].Op,
			State:       s.states[i],
			PassThrough: s.through[i],
			Err:         s.errs[i],
		}
	}
	return r
}

// Count returns the number of nodes in state st.
func (r *Report) Count(st NodeState) int {
	n := 0
	for _, ns := range r.Nodes {
		if ns.State == st {
			n++
		}
	}
	return n
}

// PassedThrough returns the names of nodes kept by the fallback extractor.
func (r *Report) PassedThrough() []string {
	var names []string
	for _, ns := range r.Nodes {
		if ns.PassThrough {
			names = append(names, ns.Name)
		}
	}
	return names
}
