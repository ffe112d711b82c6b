package induction

import (
	"github.com/edeiana/noelle/depgraph"
	"github.com/edeiana/noelle/ir"
)

// Attribution records whether one candidate induction variable
// governs its loop's termination: the header must end in a
// conditional branch on a comparison that tests the candidate against
// a value computed independently of it, with one successor leaving
// the loop nest, and every remaining operation of the recurrence's
// SCC must be structurally transparent. A well-formed attribution is
// the precondition for the Utility's exit-test rewrites.
type Attribution struct {
	iv  *Variable
	scc *depgraph.SCC

	cmp       *ir.Value
	br        *ir.Value
	exitBlock *ir.Block
	condValue *ir.Value

	derivation map[*ir.Value]bool
	wellFormed bool
}

// IV returns the candidate.
func (a *Attribution) IV() *Variable { return a.iv }

// IsWellFormed returns the attribution verdict.
func (a *Attribution) IsWellFormed() bool { return a.wellFormed }

// HeaderCmp returns the exit comparison, nil if the header terminator
// was rejected before one was found.
func (a *Attribution) HeaderCmp() *ir.Value { return a.cmp }

// HeaderBr returns the header's conditional branch, if any.
func (a *Attribution) HeaderBr() *ir.Value { return a.br }

// ExitBlock returns the branch successor outside the loop nest.
func (a *Attribution) ExitBlock() *ir.Block { return a.exitBlock }

// ConditionValue returns the non-IV operand of the exit comparison.
func (a *Attribution) ConditionValue() *ir.Value { return a.condValue }

// IsDerived reports whether v helps compute the condition value.
func (a *Attribution) IsDerived(v *ir.Value) bool { return a.derivation[v] }

// Derivation returns the condition-derivation members in the SCC's
// block/instruction order.
func (a *Attribution) Derivation() []*ir.Value {
	var out []*ir.Value
	for _, n := range a.scc.Nodes() {
		if a.derivation[n.V] {
			out = append(out, n.V)
		}
	}
	return out
}

// Attribute evaluates whether iv governs the termination of its loop.
// Every rejection leaves the verdict false and is an expected
// non-match, never an error.
func Attribute(iv *Variable, scc *depgraph.SCC, exitBlocks []*ir.Block) *Attribution {
	a := &Attribution{iv: iv, scc: scc, derivation: make(map[*ir.Value]bool)}

	headerPhi := iv.HeaderPhi
	term := headerPhi.Block().Terminator()
	if term == nil || term.Kind != ir.KindCondBr {
		return a
	}
	a.br = term

	cond := term.Cond()
	if cond == nil || cond.Kind != ir.KindCmp {
		return a
	}
	a.cmp = cond

	// Exactly one comparison operand must be the candidate: testing
	// the IV against itself, or not at all, disqualifies it.
	opL, opR := cond.Ops[0], cond.Ops[1]
	if (opL == headerPhi) == (opR == headerPhi) {
		return a
	}
	if opL == headerPhi {
		a.condValue = opR
	} else {
		a.condValue = opL
	}

	exits := make(map[*ir.Block]bool, len(exitBlocks))
	for _, e := range exitBlocks {
		exits[e] = true
	}
	switch {
	case exits[term.Succs[0]] && exits[term.Succs[1]]:
		return a
	case exits[term.Succs[0]]:
		a.exitBlock = term.Succs[0]
	case exits[term.Succs[1]]:
		a.exitBlock = term.Succs[1]
	default:
		return a
	}

	// A condition value computed inside the SCC must have its whole
	// derivation there too, and the derivation must never touch the
	// recurrence: an exit test circularly derived from the value it
	// bounds cannot be rewritten safely.
	if scc.IsInternal(a.condValue) {
		if iv.IsMember(a.condValue) {
			return a
		}
		a.derivation[a.condValue] = true
		queue := []*ir.Value{a.condValue}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			for _, e := range scc.Incoming(v) {
				src := e.From.V
				if e.Kind != depgraph.Data || !scc.IsInternal(src) || a.derivation[src] {
					continue
				}
				if iv.IsMember(src) {
					return a
				}
				a.derivation[src] = true
				queue = append(queue, src)
			}
		}
	}

	// Every SCC member not yet accounted for must be structurally
	// transparent.
	for _, n := range scc.Nodes() {
		v := n.V
		if iv.IsMember(v) || a.derivation[v] {
			continue
		}
		switch v.Kind {
		case ir.KindCmp:
			if v != a.cmp {
				return a
			}
		case ir.KindCondBr:
			if v != a.br {
				return a
			}
		case ir.KindBr, ir.KindAddress, ir.KindPhi:
			// Transparent.
		default:
			return a
		}
	}

	a.wellFormed = true
	return a
}
