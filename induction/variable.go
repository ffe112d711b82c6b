// Package induction detects the induction variables of a loop,
// decides which one governs loop termination, and derives the
// canonical exit test plus the graph edits needed to evaluate it
// against a chunked iteration scheme.
package induction

import (
	"github.com/edeiana/noelle/depgraph"
	"github.com/edeiana/noelle/ir"
	"github.com/edeiana/noelle/loopnest"
)

// Variable is one induction variable: a header merge whose value
// evolves by a constant-step recurrence across loop iterations.
type Variable struct {
	HeaderPhi *ir.Value
	Start     *ir.Value // value flowing into the merge from outside the loop
	Step      *ir.Value // constant step; its sign gives the direction

	phis         map[*ir.Value]bool
	accumulators map[*ir.Value]bool
	members      map[*ir.Value]bool
	memberOrder  []*ir.Value

	scc *depgraph.SCC
}

// newVariable collects the recurrence's member operations by a
// breadth-first walk over the internal data edges of the owning SCC,
// then locates the start value on the out-of-loop header edge.
func newVariable(l *loopnest.Loop, phi *ir.Value, scc *depgraph.SCC, step *ir.Value) *Variable {
	v := &Variable{
		HeaderPhi:    phi,
		Step:         step,
		phis:         make(map[*ir.Value]bool),
		accumulators: make(map[*ir.Value]bool),
		members:      make(map[*ir.Value]bool),
		scc:          scc,
	}

	queue := []*depgraph.Node{scc.NodeOf(phi)}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		val := node.V
		if v.members[val] {
			continue
		}
		v.members[val] = true
		v.memberOrder = append(v.memberOrder, val)
		if val.Kind == ir.KindPhi {
			v.phis[val] = true
		} else {
			v.accumulators[val] = true
		}
		for _, e := range node.In {
			if e.Kind != depgraph.Data || !scc.IsInternal(e.From.V) {
				continue
			}
			queue = append(queue, e.From)
		}
	}

	for _, e := range phi.Edges {
		if !l.Contains(e.Block) {
			v.Start = e.Value
			break
		}
	}
	return v
}

// IsMember reports whether val participates in computing the recurrence.
func (v *Variable) IsMember(val *ir.Value) bool { return v.members[val] }

// Members returns every member operation in visit order, the header
// merge first.
func (v *Variable) Members() []*ir.Value {
	out := make([]*ir.Value, len(v.memberOrder))
	copy(out, v.memberOrder)
	return out
}

// Phis returns the merge nodes among the members.
func (v *Variable) Phis() []*ir.Value {
	return v.filter(v.phis)
}

// Accumulators returns the non-merge member operations.
func (v *Variable) Accumulators() []*ir.Value {
	return v.filter(v.accumulators)
}

func (v *Variable) filter(set map[*ir.Value]bool) []*ir.Value {
	var out []*ir.Value
	for _, m := range v.memberOrder {
		if set[m] {
			out = append(out, m)
		}
	}
	return out
}

// SCC returns the strongly connected component owning the recurrence.
func (v *Variable) SCC() *depgraph.SCC { return v.scc }

// StepInt returns the constant step as an integer.
func (v *Variable) StepInt() int64 { return v.Step.Int }
