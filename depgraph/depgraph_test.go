package depgraph

import (
	"strings"
	"testing"

	"github.com/edeiana/noelle/ir"
	"github.com/edeiana/noelle/ir/build"
	"github.com/edeiana/noelle/loopnest"
)

func buildLoop(t *testing.T, src, name string) *loopnest.Loop {
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
	return nest.Loops()[0]
}

const countSrc = `package main
func f(n int) int {
	s := 0
	for i := 0; i < n; i++ {
		s += i
	}
	return s
}
func main() { f(3) }`

func TestRecurrenceSCC(t *testing.T) {
	l := buildLoop(t, countSrc, "f")
	g := Build(l)

	term := l.Header.Terminator()
	cmp := term.Cond()
	var indexPhi *ir.Value
	for _, phi := range l.Header.Phis() {
		if phi == cmp.Ops[0] || phi == cmp.Ops[1] {
			indexPhi = phi
		}
	}
	if indexPhi == nil {
		t.Fatal("no header phi feeds the exit comparison")
	}

	scc := g.SCCOf(indexPhi)
	if scc == nil {
		t.Fatal("index phi not in any SCC")
	}
	for _, v := range []*ir.Value{indexPhi, cmp, term} {
		if !scc.IsInternal(v) {
			t.Errorf("%s not internal to the recurrence SCC", v)
		}
	}

	// The increment joins the SCC through its data edge to the phi.
	var inc *ir.Value
	for _, e := range indexPhi.Edges {
		if l.Contains(e.Block) {
			inc = e.Value
		}
	}
	if inc == nil || !scc.IsInternal(inc) {
		t.Errorf("increment %v not internal to the recurrence SCC", inc)
	}
}

func TestExternalProducers(t *testing.T) {
	l := buildLoop(t, countSrc, "f")
	g := Build(l)

	cmp := l.Header.Terminator().Cond()
	var bound *ir.Value
	for _, op := range cmp.Ops {
		if op.Kind == ir.KindExtern {
			bound = op
		}
	}
	if bound == nil {
		t.Fatal("no extern bound operand")
	}
	n := g.NodeOf(bound)
	if n == nil {
		t.Fatal("bound has no node")
	}
	if n.Internal() {
		t.Errorf("bound parameter must be external to the loop graph")
	}
	if g.SCCOf(bound) != nil {
		t.Errorf("external value assigned to an SCC")
	}
}

func TestIncomingEdgeKinds(t *testing.T) {
	l := buildLoop(t, countSrc, "f")
	g := Build(l)

	term := l.Header.Terminator()
	cmp := term.Cond()
	scc := g.SCCOf(cmp)
	if scc == nil {
		t.Fatal("comparison not in an SCC")
	}

	// The branch consumes the comparison through a data edge.
	foundData := false
	for _, e := range scc.Incoming(term) {
		if e.Kind == Data && e.From.V == cmp {
			foundData = true
		}
	}
	if !foundData {
		t.Errorf("no data edge from comparison to branch")
	}

	// Body operations are gated by the header branch.
	foundControl := false
	for _, b := range l.Blocks() {
		if b == l.Header {
			continue
		}
		for _, v := range b.Instrs {
			for _, e := range g.NodeOf(v).In {
				if e.Kind == Control && e.From.V == term {
					foundControl = true
				}
			}
		}
	}
	if !foundControl {
		t.Errorf("no control edge from header branch to body operations")
	}
}

// Operations that run once per outer iteration are not gated by the
// inner loop's branch: the outer increment executes whether or not the
// inner body runs.
func TestControlEdgesRespectPostDominance(t *testing.T) {
	src := `package main
func g(n, m int) int {
	s := 0
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			s++
		}
	}
	return s
}
func main() { g(2, 3) }`

	info, err := build.FromReader(strings.NewReader(src)).Build()
	if err != nil {
		t.Fatal("cannot build SSA:", err)
	}
	ssafn, err := info.FuncNamed("g")
	if err != nil {
		t.Fatal(err)
	}
	fn, err := build.FuncIR(ssafn)
	if err != nil {
		t.Fatal(err)
	}
	nest := loopnest.New(fn)

	var outer, inner *loopnest.Loop
	for _, l := range nest.Loops() {
		if l.Depth() == 1 {
			outer = l
		} else {
			inner = l
		}
	}
	if outer == nil || inner == nil {
		t.Fatal("expected an outer and an inner loop")
	}

	g := Build(outer)
	innerBr := inner.Header.Terminator()
	for _, e := range g.NodeOf(innerBr).Out {
		if e.Kind != Control {
			continue
		}
		if blk := e.To.V.Block(); !inner.Contains(blk) {
			t.Errorf("inner branch gates %s outside the inner loop", e.To.V)
		}
	}

	// The two index recurrences stay in separate components.
	outerPhi := headerIndexPhi(t, outer)
	innerPhi := headerIndexPhi(t, inner)
	if g.SCCOf(outerPhi) == g.SCCOf(innerPhi) {
		t.Error("outer and inner index recurrences share an SCC")
	}
}

func headerIndexPhi(t *testing.T, l *loopnest.Loop) *ir.Value {
	t.Helper()
	cmp := l.Header.Terminator().Cond()
	for _, phi := range l.Header.Phis() {
		if phi == cmp.Ops[0] || phi == cmp.Ops[1] {
			return phi
		}
	}
	t.Fatal("no header phi feeds the exit comparison")
	return nil
}
