// Package depgraph builds the per-loop dependence graph consumed by
// the induction analyses: one node per operation of the loop body,
// data edges from producers to consumers, control edges from
// conditional branches to the operations they gate, and the
// strongly-connected-component decomposition of the result.
//
// Values defined outside the loop appear as external nodes: they may
// source edges but belong to no SCC.
package depgraph

import (
	"sort"

	"github.com/edeiana/noelle/ir"
	"github.com/edeiana/noelle/loopnest"
)

// EdgeKind distinguishes data from control dependences.
type EdgeKind uint8

const (
	Data EdgeKind = iota
	Control
)

func (k EdgeKind) String() string {
	if k == Control {
		return "control"
	}
	return "data"
}

// Edge is a dependence from a producer (or controlling branch) to a
// consumer.
type Edge struct {
	From *Node
	To   *Node
	Kind EdgeKind
}

// Node wraps one value of the graph.
type Node struct {
	V  *ir.Value
	In []*Edge // edges whose To is this node
	Out []*Edge

	internal bool
	order    int
}

// Internal reports whether the node's value is defined inside the loop.
func (n *Node) Internal() bool { return n.internal }

// Graph is the dependence graph of one loop.
type Graph struct {
	loop  *loopnest.Loop
	nodes map[*ir.Value]*Node
	order []*Node // internal nodes in block/instruction order
	sccs  []*SCC
	sccOf map[*ir.Value]*SCC
}

// Build constructs the dependence graph and its SCCs for l.
func Build(l *loopnest.Loop) *Graph {
	g := &Graph{
		loop:  l,
		nodes: make(map[*ir.Value]*Node),
		sccOf: make(map[*ir.Value]*SCC),
	}
	blocks := l.Blocks()
	for _, b := range blocks {
		for _, v := range b.Instrs {
			n := &Node{V: v, internal: true, order: len(g.order)}
			g.nodes[v] = n
			g.order = append(g.order, n)
		}
	}

	for _, n := range g.order {
		for _, op := range n.V.Operands() {
			if op == nil {
				continue
			}
			g.addEdge(g.ensure(op), n, Data)
		}
	}

	// A conditional branch in b gates the operations of b2 when b2
	// post-dominates one successor of the branch but not b itself.
	// The block holding the branch is excluded so header phis and the
	// exit comparison do not depend on their own branch.
	nest := l.Nest()
	for _, b := range blocks {
		t := b.Terminator()
		if t == nil || t.Kind != ir.KindCondBr {
			continue
		}
		br := g.nodes[t]
		for _, b2 := range blocks {
			if b2 == b || nest.PostDominates(b2, b) {
				continue
			}
			gated := false
			for _, s := range t.Succs {
				if nest.PostDominates(b2, s) {
					gated = true
					break
				}
			}
			if !gated {
				continue
			}
			for _, v := range b2.Instrs {
				g.addEdge(br, g.nodes[v], Control)
			}
		}
	}

	g.buildSCCs()
	return g
}

func (g *Graph) ensure(v *ir.Value) *Node {
	if n, ok := g.nodes[v]; ok {
		return n
	}
	n := &Node{V: v, order: -1}
	g.nodes[v] = n
	return n
}

func (g *Graph) addEdge(from, to *Node, kind EdgeKind) {
	e := &Edge{From: from, To: to, Kind: kind}
	from.Out = append(from.Out, e)
	to.In = append(to.In, e)
}

// NodeOf returns the node of v, or nil if v does not appear in the loop.
func (g *Graph) NodeOf(v *ir.Value) *Node { return g.nodes[v] }

// SCCOf returns the strongly connected component containing v, or nil
// for values outside the loop.
func (g *Graph) SCCOf(v *ir.Value) *SCC { return g.sccOf[v] }

// SCCs returns every component, in discovery order.
func (g *Graph) SCCs() []*SCC { return g.sccs }

// SCC is one strongly connected component of internal nodes.
type SCC struct {
	g     *Graph
	set   map[*ir.Value]bool
	nodes []*Node
}

// IsInternal reports whether v is a member of the component.
func (s *SCC) IsInternal(v *ir.Value) bool { return s.set[v] }

// NodeOf returns the graph node for v; v need not be a member.
func (s *SCC) NodeOf(v *ir.Value) *Node { return s.g.nodes[v] }

// Nodes returns the members in block/instruction order.
func (s *SCC) Nodes() []*Node { return s.nodes }

// Incoming returns the dependence edges into v's node.
func (s *SCC) Incoming(v *ir.Value) []*Edge {
	n := s.g.nodes[v]
	if n == nil {
		return nil
	}
	return n.In
}

// buildSCCs runs Tarjan's algorithm over the internal nodes.
func (g *Graph) buildSCCs() {
	index := make(map[*Node]int)
	lowlink := make(map[*Node]int)
	onStack := make(map[*Node]bool)
	var stack []*Node
	next := 0

	var strongconnect func(n *Node)
	strongconnect = func(n *Node) {
		index[n] = next
		lowlink[n] = next
		next++
		stack = append(stack, n)
		onStack[n] = true

		for _, e := range n.Out {
			m := e.To
			if !m.internal {
				continue
			}
			if _, seen := index[m]; !seen {
				strongconnect(m)
				if lowlink[m] < lowlink[n] {
					lowlink[n] = lowlink[m]
				}
			} else if onStack[m] && index[m] < lowlink[n] {
				lowlink[n] = index[m]
			}
		}

		if lowlink[n] == index[n] {
			scc := &SCC{g: g, set: make(map[*ir.Value]bool)}
			for {
				m := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[m] = false
				scc.set[m.V] = true
				scc.nodes = append(scc.nodes, m)
				if m == n {
					break
				}
			}
			// Restore block/instruction order for determinism.
			sort.Slice(scc.nodes, func(i, j int) bool {
				return scc.nodes[i].order < scc.nodes[j].order
			})
			for v := range scc.set {
				g.sccOf[v] = scc
			}
			g.sccs = append(g.sccs, scc)
		}
	}

	for _, n := range g.order {
		if _, seen := index[n]; !seen {
			strongconnect(n)
		}
	}
}
