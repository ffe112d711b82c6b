package induction

import (
	"strings"
	"testing"

	"github.com/edeiana/noelle/ir"
	"github.com/edeiana/noelle/ir/build"
	"github.com/edeiana/noelle/loopnest"
	"github.com/edeiana/noelle/recurrence"
)

// srcLoop builds the first loop of a named function from Go source.
func srcLoop(t *testing.T, src, name string) (*loopnest.Nest, *loopnest.Loop) {
	t.Helper()
	info, err := build.FromReader(strings.NewReader(src)).Build()
	if err != nil {
		t.Fatal("cannot build SSA:", err)
	}
	ssafn, err := info.FuncNamed(name)
	if err != nil {
		t.Fatal(err)
	}
	fn, err := build.FuncIR(ssafn)
	if err != nil {
		t.Fatal(err)
	}
	nest := loopnest.New(fn)
	if len(nest.Loops()) == 0 {
		t.Fatal("no loops found")
	}
	return nest, nest.Loops()[0]
}

// countingLoop is a hand-built loop with full control over the exit
// comparison:
//
//	entry:  br header
//	header: i = phi [0, entry], [inc, body]
//	        c = cmp(pred, i, n)      (operands swapped unless ivOnLeft)
//	        condbr c, exit, body     (or body, exit unless exitOnTrue)
//	body:   inc = i + step           (i - |step| for negative steps)
//	        br header
//	exit:   ret
type countingLoop struct {
	fn     *ir.Func
	entry  *ir.Block
	header *ir.Block
	body   *ir.Block
	exit   *ir.Block

	phi   *ir.Value
	inc   *ir.Value
	cmp   *ir.Value
	br    *ir.Value
	bound *ir.Value

	nest *loopnest.Nest
	loop *loopnest.Loop
}

func buildCountingLoop(t *testing.T, pred ir.Predicate, step int64, ivOnLeft, exitOnTrue bool) *countingLoop {
	t.Helper()
	c := &countingLoop{fn: ir.NewFunc("f")}
	c.entry = c.fn.NewBlock("entry")
	c.header = c.fn.NewBlock("for.loop")
	c.body = c.fn.NewBlock("for.body")
	c.exit = c.fn.NewBlock("for.done")
	c.bound = ir.Extern(ir.TypeInt, "n")

	ir.NewBuilder(c.entry).CreateBr(c.header)

	hb := ir.NewBuilder(c.header)
	c.phi = hb.CreatePhi(ir.TypeInt, "i")
	c.phi.AddIncoming(ir.ConstInt(ir.TypeInt, 0), c.entry)

	bb := ir.NewBuilder(c.body)
	if step >= 0 {
		c.inc = bb.CreateAdd(c.phi, ir.ConstInt(ir.TypeInt, step))
	} else {
		c.inc = bb.CreateBinOp(ir.ArithSub, c.phi, ir.ConstInt(ir.TypeInt, -step))
	}
	bb.CreateBr(c.header)
	c.phi.AddIncoming(c.inc, c.body)

	x, y := c.phi, c.bound
	if !ivOnLeft {
		x, y = y, x
	}
	c.cmp = hb.CreateCmp(pred, x, y)
	if exitOnTrue {
		c.br = hb.CreateCondBr(c.cmp, c.exit, c.body)
	} else {
		c.br = hb.CreateCondBr(c.cmp, c.body, c.exit)
	}
	ir.NewBuilder(c.exit).CreateRet()

	c.nest = loopnest.New(c.fn)
	if len(c.nest.Loops()) != 1 {
		t.Fatalf("hand-built CFG yields %d loops, want 1", len(c.nest.Loops()))
	}
	c.loop = c.nest.Loops()[0]
	return c
}

// detect runs the detector over the hand-built loop.
func (c *countingLoop) detect() *Set {
	d := NewDetector(recurrence.NewAnalyzer())
	return d.Detect(c.nest).Of(c.loop)
}

// attribute runs attribution for the hand-built loop's only candidate.
func (c *countingLoop) attribute(t *testing.T) *Attribution {
	t.Helper()
	set := c.detect()
	if set.Len() != 1 {
		t.Fatalf("detected %d IVs, want 1", set.Len())
	}
	iv := set.At(0)
	return Attribute(iv, iv.SCC(), c.nest.ExitBlocks())
}

func loopnestOf(t *testing.T, fn *ir.Func) *loopnest.Nest {
	t.Helper()
	nest := loopnest.New(fn)
	if len(nest.Loops()) == 0 {
		t.Fatal("hand-built CFG has no loops")
	}
	return nest
}
