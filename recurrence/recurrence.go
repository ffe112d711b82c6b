// Package recurrence classifies loop-header merge values as symbolic
// recurrences: a start value flowing in from outside the loop plus a
// step term applied on every back edge. Only additive closed forms
// are recognised; the step term itself is further classified so that
// the induction detector can keep constant-step candidates and drop
// the rest.
package recurrence

import (
	"github.com/edeiana/noelle/ir"
	"github.com/edeiana/noelle/loopnest"
)

// StepKind classifies the step term of an additive recurrence.
type StepKind uint8

const (
	StepConstant StepKind = iota
	StepAdditive
	StepMultiplicative
	StepRecurrence // step is itself another header recurrence
	StepUnknown
)

func (k StepKind) String() string {
	switch k {
	case StepConstant:
		return "constant"
	case StepAdditive:
		return "additive"
	case StepMultiplicative:
		return "multiplicative"
	case StepRecurrence:
		return "recurrence"
	}
	return "unknown"
}

// Recurrence is the closed form of one header merge value.
type Recurrence struct {
	Phi   *ir.Value
	Start *ir.Value // incoming value from outside the loop; nil if none found

	StepKind StepKind
	Step     *ir.Value // constant step; set only when StepKind is StepConstant
}

// Analysis produces recurrence descriptors for header merges.
// OfPhi returns nil when the value is not an additive recurrence.
type Analysis interface {
	OfPhi(l *loopnest.Loop, phi *ir.Value) *Recurrence
}

// Analyzer is the default Analysis. It recognises header phis whose
// every back-edge value is an add or subtract of the phi itself.
type Analyzer struct{}

// NewAnalyzer returns the default recurrence analyzer.
func NewAnalyzer() *Analyzer { return &Analyzer{} }

// OfPhi classifies one merge value of l's header.
func (a *Analyzer) OfPhi(l *loopnest.Loop, phi *ir.Value) *Recurrence {
	if phi.Kind != ir.KindPhi || phi.Block() != l.Header {
		return nil
	}

	r := &Recurrence{Phi: phi, StepKind: StepUnknown}
	sawUpdate := false
	for _, e := range phi.Edges {
		if !l.Contains(e.Block) {
			if r.Start == nil {
				r.Start = e.Value
			}
			continue
		}
		kind, step, ok := classifyUpdate(l, phi, e.Value)
		if !ok {
			return nil // back edge is not an additive update
		}
		if !sawUpdate {
			sawUpdate = true
			r.StepKind, r.Step = kind, step
			continue
		}
		// Multiple latches must agree on the step to stay closed form.
		if kind != r.StepKind || kind != StepConstant || step.Int != r.Step.Int {
			r.StepKind, r.Step = StepUnknown, nil
		}
	}
	if !sawUpdate {
		return nil
	}
	return r
}

// classifyUpdate inspects one back-edge value. It must be phi+step or
// phi-step for the merge to be an additive recurrence; the returned
// kind describes the step term.
func classifyUpdate(l *loopnest.Loop, phi, update *ir.Value) (StepKind, *ir.Value, bool) {
	if update.Kind != ir.KindBinOp {
		return 0, nil, false
	}
	var stepOp *ir.Value
	switch update.Arith {
	case ir.ArithAdd:
		switch {
		case update.Ops[0] == phi:
			stepOp = update.Ops[1]
		case update.Ops[1] == phi:
			stepOp = update.Ops[0]
		default:
			return 0, nil, false
		}
	case ir.ArithSub:
		// step - phi is not an additive update of phi.
		if update.Ops[0] != phi {
			return 0, nil, false
		}
		stepOp = update.Ops[1]
	default:
		return 0, nil, false
	}

	switch stepOp.Kind {
	case ir.KindConst:
		c := stepOp.Int
		if update.Arith == ir.ArithSub {
			c = -c
		}
		return StepConstant, ir.ConstInt(stepOp.Type, c), true
	case ir.KindPhi:
		if stepOp.Block() != nil && l.Contains(stepOp.Block()) {
			return StepRecurrence, nil, true
		}
		return StepUnknown, nil, true
	case ir.KindBinOp:
		switch stepOp.Arith {
		case ir.ArithAdd, ir.ArithSub:
			return StepAdditive, nil, true
		case ir.ArithMul:
			return StepMultiplicative, nil, true
		}
		return StepUnknown, nil, true
	}
	return StepUnknown, nil, true
}
