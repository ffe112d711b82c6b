package report

import (
	"strings"
	"testing"

	"github.com/edeiana/noelle/analysis"
	"github.com/edeiana/noelle/ir"
	"github.com/edeiana/noelle/ir/build"
)

const src = `package main

func count(n int) int {
	s := 0
	for i := 0; i < n; i++ {
		s += i
	}
	return s
}

func main() { count(5) }
`

func analyse(t *testing.T) []*analysis.Result {
	t.Helper()
	info, err := build.FromReader(strings.NewReader(src)).Build()
	if err != nil {
		t.Fatal("cannot build SSA:", err)
	}
	var fns []*ir.Func
	for _, ssafn := range info.SrcFuncs() {
		fn, err := build.FuncIR(ssafn)
		if err != nil {
			t.Fatal(err)
		}
		fns = append(fns, fn)
	}
	results, err := analysis.Program(fns, analysis.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return results
}

func TestReportRoundTrip(t *testing.T) {
	r := New(analyse(t))

	var fr *FuncReport
	for i := range r.Funcs {
		if r.Funcs[i].Name == "main.count" {
			fr = &r.Funcs[i]
		}
	}
	if fr == nil {
		t.Fatal("count missing from report")
	}
	if len(fr.Loops) != 1 {
		t.Fatalf("count has %d loops in report, want 1", len(fr.Loops))
	}
	lr := fr.Loops[0]
	if lr.Governing < 0 || lr.Governing >= len(lr.IVs) {
		t.Fatalf("governing index %d out of range of %d IVs", lr.Governing, len(lr.IVs))
	}
	gov := lr.IVs[lr.Governing]
	if gov.Step != 1 {
		t.Errorf("governing step = %d, want 1", gov.Step)
	}
	if len(gov.Members) < 2 {
		t.Errorf("governing IV reports %d members, want the phi and its update", len(gov.Members))
	}

	b, err := r.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	back, err := Unmarshal(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(back.Funcs) != len(r.Funcs) {
		t.Fatalf("round trip lost functions: %d != %d", len(back.Funcs), len(r.Funcs))
	}
	for i := range back.Funcs {
		if back.Funcs[i].Name != r.Funcs[i].Name {
			t.Errorf("func %d name %q != %q", i, back.Funcs[i].Name, r.Funcs[i].Name)
		}
		if len(back.Funcs[i].Loops) != len(r.Funcs[i].Loops) {
			t.Errorf("func %d loop count differs after round trip", i)
		}
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	if _, err := Unmarshal([]byte{0xc1, 0x00}); err == nil {
		t.Error("expected an error decoding garbage")
	}
}

func TestNewSkipsNilResults(t *testing.T) {
	results := append(analyse(t), nil)
	r := New(results)
	for _, fr := range r.Funcs {
		if fr.Name == "" {
			t.Error("nil result produced an empty function report")
		}
	}
}
