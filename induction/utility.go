package induction

import (
	"fmt"

	"github.com/edeiana/noelle/ir"
)

// Utility rewrites a loop's exit test so the governing recurrence can
// advance once per chunk of iterations instead of once per iteration.
// It is built only from a well-formed attribution with a constant
// step; anything else is an invariant violation upstream and panics,
// because continuing would emit silently wrong parallel code.
//
// Construction canonicalises the exit predicate into a non-strict
// form with the induction variable as left operand:
//
//	!=            kept (steps past the bound by at most one stride)
//	==            widened to u>= (positive step) or u<= (negative)
//	< <= u< u<=   kept, step must be negative
//	> >= u> u>=   kept, step must be positive
//
// The edit primitives mutate the graph in place and are not
// transactional; the caller sequences them and must not apply them
// concurrently with other edits to the same loop.
type Utility struct {
	attr *Attribution

	nonStrict    ir.Predicate
	flipOperands bool
	ivOnLeft     bool

	orderedDerivation []*ir.Value
}

// NewUtility derives the canonical termination predicate for a
// validated attribution. Panics when the attribution is not
// well-formed, when the step is not a recognised constant, or when
// the predicate direction contradicts the step sign.
func NewUtility(attr *Attribution) *Utility {
	if !attr.IsWellFormed() {
		panic("induction: utility constructed from a non-well-formed attribution")
	}
	iv := attr.IV()
	if iv.Step == nil || iv.Step.Kind != ir.KindConst {
		panic("induction: governing recurrence has no constant step")
	}

	u := &Utility{attr: attr}
	cmp, br := attr.HeaderCmp(), attr.HeaderBr()
	u.ivOnLeft = cmp.Ops[0] == iv.HeaderPhi
	u.flipOperands = !u.ivOnLeft

	// Replay order for cloned derivations follows the original block's
	// instruction order.
	for _, v := range cmp.Block().Instrs {
		if attr.IsDerived(v) {
			u.orderedDerivation = append(u.orderedDerivation, v)
		}
	}

	stepPositive := iv.StepInt() > 0
	exitsOnTrue := br.Succs[0] == attr.ExitBlock()
	pred := cmp.Pred
	if !exitsOnTrue {
		pred = pred.Inverse()
	}
	if !u.ivOnLeft {
		pred = pred.Swapped()
	}

	switch pred {
	case ir.PredNE:
		// Already non-strict: overshoot costs at most one extra stride.
		u.nonStrict = pred
	case ir.PredEQ:
		// Widen the single-point match so a chunk cannot jump past it.
		if stepPositive {
			u.nonStrict = ir.PredUGE
		} else {
			u.nonStrict = ir.PredULE
		}
	case ir.PredSLT, ir.PredSLE, ir.PredULT, ir.PredULE:
		if stepPositive {
			panic(fmt.Sprintf("induction: step %d incompatible with exit predicate %s", iv.StepInt(), pred))
		}
		u.nonStrict = pred
	case ir.PredSGT, ir.PredSGE, ir.PredUGT, ir.PredUGE:
		if !stepPositive {
			panic(fmt.Sprintf("induction: step %d incompatible with exit predicate %s", iv.StepInt(), pred))
		}
		u.nonStrict = pred
	default:
		panic(fmt.Sprintf("induction: unhandled exit predicate %s", pred))
	}
	return u
}

// Attribution returns the attribution the utility was built from.
func (u *Utility) Attribution() *Attribution { return u.attr }

// NonStrictPredicate returns the canonical termination predicate.
func (u *Utility) NonStrictPredicate() ir.Predicate { return u.nonStrict }

// MustFlipOperands reports whether the comparison's operands must be
// swapped to keep the induction variable on the left.
func (u *Utility) MustFlipOperands() bool { return u.flipOperands }

// OrderedDerivation returns the condition-derivation operations in
// original instruction order, for deterministic replay of clones.
func (u *Utility) OrderedDerivation() []*ir.Value {
	out := make([]*ir.Value, len(u.orderedDerivation))
	copy(out, u.orderedDerivation)
	return out
}

// CreateChunkPHI inserts a merge at the header tracking the position
// inside the current chunk: zero on the preheader edge, and
// (prev+1) == chunkSize ? 0 : prev+1 on every other incoming edge.
// Returns the new merge node.
func (u *Utility) CreateChunkPHI(preheader, header *ir.Block, typ ir.Type, chunkSize *ir.Value) *ir.Value {
	chunkPhi := ir.NewBuilder(header).CreatePhi(typ, "chunk")
	zero := ir.ConstInt(typ, 0)
	one := ir.ConstInt(typ, 1)

	for _, pred := range header.Preds {
		if pred == preheader {
			chunkPhi.AddIncoming(zero, pred)
			continue
		}
		latch := ir.NewBuilder(pred)
		inc := latch.CreateAdd(chunkPhi, one)
		completed := latch.CreateCmp(ir.PredEQ, inc, chunkSize)
		wrap := latch.CreateSelect(completed, zero, inc)
		wrap.SetLabel("chunkWrap")
		chunkPhi.AddIncoming(wrap, pred)
	}
	return chunkPhi
}

// ChunkLoopGoverningPHI rewrites every non-preheader incoming value
// of the governing merge to advance by chunkStep only when the paired
// chunk-completion condition holds, keeping the original single-step
// value otherwise. The recurrence then advances once per full chunk
// while still producing a correct per-iteration value for in-chunk
// consumers.
func (u *Utility) ChunkLoopGoverningPHI(preheader *ir.Block, governingPhi, chunkPhi, chunkStep *ir.Value) {
	for i, in := range governingPhi.Edges {
		if in.Block == preheader {
			continue
		}
		wrap := chunkPhi.Edges[chunkPhi.BlockIndex(in.Block)].Value
		if wrap.Kind != ir.KindSelect {
			panic("induction: chunk merge edge lost its wrap select")
		}
		completed := wrap.Cond()

		latch := ir.NewBuilder(in.Block)
		advanced := latch.CreateAdd(in.Value, chunkStep)
		next := latch.CreateSelect(completed, advanced, in.Value)
		next.SetLabel("nextStepOrNextChunk")
		governingPhi.SetIncoming(i, next)
	}
}

// UpdateConditionAndBranchToCatchIteratingPastExitValue rewrites the
// exit comparison to the canonical non-strict form (flipping the
// operands when needed) and reorders the branch successors so slot 0
// is always the exit block.
func (u *Utility) UpdateConditionAndBranchToCatchIteratingPastExitValue(cmp, br *ir.Value, exitBlock *ir.Block) {
	if u.flipOperands {
		cmp.Ops[0], cmp.Ops[1] = cmp.Ops[1], cmp.Ops[0]
	}
	cmp.Pred = u.nonStrict

	if br.Succs[0] != exitBlock {
		br.Succs[1] = br.Succs[0]
		br.Succs[0] = exitBlock
	}
}

// CloneConditionalCheckFor emits an exit check equivalent to the
// canonical one for a duplicated code path: a comparison of the
// supplied recurrence value against the cloned condition value,
// followed by a conditional branch to exitBlock or continueBlock.
func (u *Utility) CloneConditionalCheckFor(recurrenceValue, clonedCompareValue *ir.Value, continueBlock, exitBlock *ir.Block, bld *ir.Builder) {
	cmp := bld.CreateCmp(u.nonStrict, recurrenceValue, clonedCompareValue)
	bld.CreateCondBr(cmp, exitBlock, continueBlock)
}
