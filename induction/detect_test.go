package induction

import (
	"testing"

	"github.com/edeiana/noelle/ir"
	"github.com/edeiana/noelle/recurrence"
)

// countSrc has one loop with a constant-step index and a data-dependent
// accumulator. Only the index is an induction variable.
const countSrc = `package main

func count(n int) int {
	s := 0
	for i := 0; i < n; i++ {
		s += i
	}
	return s
}

func main() { count(10) }
`

func TestDetectCountingLoop(t *testing.T) {
	nest, loop := srcLoop(t, countSrc, "count")
	d := NewDetector(recurrence.NewAnalyzer())
	set := d.Detect(nest).Of(loop)
	if set.Len() != 1 {
		t.Fatalf("detected %d IVs, want 1 (s accumulates i, not a constant step)", set.Len())
	}
	iv := set.At(0)
	if iv.HeaderPhi.Kind != ir.KindPhi || iv.HeaderPhi.Block() != loop.Header {
		t.Errorf("header phi %s not in loop header", iv.HeaderPhi.Name())
	}
	if iv.StepInt() != 1 {
		t.Errorf("step = %d, want 1", iv.StepInt())
	}
	if iv.Start == nil || iv.Start.Kind != ir.KindConst || iv.Start.Int != 0 {
		t.Errorf("start = %v, want const 0", iv.Start)
	}
}

// The member set is exactly the header phi plus its in-loop update; the
// comparison, branch and unrelated accumulator stay out.
func TestDetectMemberSet(t *testing.T) {
	nest, loop := srcLoop(t, countSrc, "count")
	set := NewDetector(recurrence.NewAnalyzer()).Detect(nest).Of(loop)
	iv := set.At(0)

	members := iv.Members()
	if len(members) != 2 {
		for _, m := range members {
			t.Log(m.Name(), m.Kind)
		}
		t.Fatalf("got %d members, want 2 (phi and increment)", len(members))
	}
	if phis := iv.Phis(); len(phis) != 1 || phis[0] != iv.HeaderPhi {
		t.Errorf("phis = %v, want just the header phi", phis)
	}
	accs := iv.Accumulators()
	if len(accs) != 1 || accs[0].Kind != ir.KindBinOp || accs[0].Arith != ir.ArithAdd {
		t.Fatalf("accumulators = %v, want one add", accs)
	}
	if !iv.IsMember(iv.HeaderPhi) || !iv.IsMember(accs[0]) {
		t.Error("IsMember disagrees with Members")
	}
	if iv.IsMember(iv.Start) {
		t.Error("start value must not be a member")
	}
}

func TestDetectGoverning(t *testing.T) {
	nest, loop := srcLoop(t, countSrc, "count")
	vars := NewDetector(recurrence.NewAnalyzer()).Detect(nest)
	set := vars.Of(loop)
	gov := set.Governing()
	if gov == nil {
		t.Fatal("counting loop has no governing IV")
	}
	if gov != set.At(set.GoverningIndex()) {
		t.Error("Governing and GoverningIndex disagree")
	}
	if vars.Governing(loop) != gov {
		t.Error("Variables.Governing disagrees with Set.Governing")
	}
}

// Detection is a pure analysis: running it twice yields structurally
// identical results.
func TestDetectIdempotent(t *testing.T) {
	nest, loop := srcLoop(t, countSrc, "count")
	a := NewDetector(recurrence.NewAnalyzer()).Detect(nest).Of(loop)
	b := NewDetector(recurrence.NewAnalyzer()).Detect(nest).Of(loop)
	if a.Len() != b.Len() {
		t.Fatalf("runs disagree on IV count: %d vs %d", a.Len(), b.Len())
	}
	for i := 0; i < a.Len(); i++ {
		x, y := a.At(i), b.At(i)
		if x.HeaderPhi != y.HeaderPhi || x.Start != y.Start || x.StepInt() != y.StepInt() {
			t.Errorf("IV %d differs between runs", i)
		}
		if len(x.Members()) != len(y.Members()) {
			t.Errorf("IV %d member sets differ between runs", i)
		}
	}
	if a.GoverningIndex() != b.GoverningIndex() {
		t.Error("governing choice differs between runs")
	}
}

func TestDetectNonConstantStepDropped(t *testing.T) {
	src := `package main

func stride(n, k int) int {
	s := 0
	for i := 0; i < n; i += k {
		s++
	}
	return s
}

func main() { stride(10, 2) }
`
	nest, loop := srcLoop(t, src, "stride")
	vars := NewDetector(recurrence.NewAnalyzer()).Detect(nest)
	set := vars.Of(loop)
	// The counter s is still a unit-step IV, but it cannot govern: the
	// exit comparison tests i, whose step is unknown.
	if gov := vars.Governing(loop); gov != nil {
		t.Errorf("governing IV = %s, want none", gov.HeaderPhi.Name())
	}
	for i := 0; i < set.Len(); i++ {
		if iv := set.At(i); iv.HeaderPhi.Type == ir.TypeInt && iv.Start != nil && iv.Start.Int == 0 && len(iv.Accumulators()) > 0 {
			if acc := iv.Accumulators()[0]; acc.Arith == ir.ArithAdd {
				for _, op := range acc.Ops {
					if op.Kind == ir.KindExtern {
						t.Fatal("variable-step merge must not be detected")
					}
				}
			}
		}
	}
}

func TestDetectNestedLoops(t *testing.T) {
	src := `package main

func grid(n, m int) int {
	s := 0
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			s++
		}
	}
	return s
}

func main() { grid(3, 4) }
`
	nest, _ := srcLoop(t, src, "grid")
	vars := NewDetector(recurrence.NewAnalyzer()).Detect(nest)
	loops := nest.Loops()
	if len(loops) != 2 {
		t.Fatalf("found %d loops, want 2", len(loops))
	}
	var outer, inner *Set
	for _, l := range loops {
		set := vars.Of(l)
		if set.Len() < 1 {
			t.Errorf("loop at depth %d: no IV detected", l.Depth())
			continue
		}
		if l.Depth() == 1 {
			outer = set
		} else {
			inner = set
		}
	}
	// Attribution checks successors against the nesting root's exits,
	// so only the outermost loop can carry a governing pick: the inner
	// loop's exit leads back into the nest.
	if outer.Governing() == nil {
		t.Error("outer loop has no governing IV")
	}
	if inner.Governing() != nil {
		t.Errorf("inner loop governing = %s, want none", inner.Governing().HeaderPhi.Name())
	}
	// The inner counter may reach the outer loop only as an external
	// value. The outer set never claims the inner phi.
	for i := 0; i < outer.Len(); i++ {
		for j := 0; j < inner.Len(); j++ {
			if outer.At(i).HeaderPhi == inner.At(j).HeaderPhi {
				t.Error("outer and inner sets share a header phi")
			}
		}
	}
}

// Two well-formed candidates compared against each other: the governing
// slot goes to the first in header declaration order.
func TestGoverningFirstWins(t *testing.T) {
	fn := ir.NewFunc("race")
	entry := fn.NewBlock("entry")
	header := fn.NewBlock("for.loop")
	body := fn.NewBlock("for.body")
	exit := fn.NewBlock("for.done")

	ir.NewBuilder(entry).CreateBr(header)
	hb := ir.NewBuilder(header)
	up := hb.CreatePhi(ir.TypeInt, "lo")
	down := hb.CreatePhi(ir.TypeInt, "hi")
	up.AddIncoming(ir.ConstInt(ir.TypeInt, 0), entry)
	down.AddIncoming(ir.ConstInt(ir.TypeInt, 100), entry)

	bb := ir.NewBuilder(body)
	upInc := bb.CreateAdd(up, ir.ConstInt(ir.TypeInt, 1))
	downDec := bb.CreateBinOp(ir.ArithSub, down, ir.ConstInt(ir.TypeInt, 1))
	bb.CreateBr(header)
	up.AddIncoming(upInc, body)
	down.AddIncoming(downDec, body)

	cmp := hb.CreateCmp(ir.PredSLT, up, down)
	hb.CreateCondBr(cmp, body, exit)
	ir.NewBuilder(exit).CreateRet()

	nest := loopnestOf(t, fn)
	set := NewDetector(recurrence.NewAnalyzer()).Detect(nest).Of(nest.Loops()[0])
	if set.Len() != 2 {
		t.Fatalf("detected %d IVs, want 2", set.Len())
	}
	gov := set.Governing()
	if gov == nil {
		t.Fatal("no governing IV")
	}
	if gov.HeaderPhi != up {
		t.Errorf("governing phi = %s, want first declared (%s)", gov.HeaderPhi.Name(), up.Name())
	}
}
