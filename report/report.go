// Package report renders analysis results into a serializable form
// for consumers outside the process, such as a parallelization
// planner inspecting which loops carry a governing induction
// variable. The wire encoding is msgpack.
package report

import (
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/edeiana/noelle/analysis"
)

// Report summarises the loops of an analysed program.
type Report struct {
	Funcs []FuncReport `msgpack:"funcs"`
}

// FuncReport summarises one function.
type FuncReport struct {
	Name  string       `msgpack:"name"`
	Loops []LoopReport `msgpack:"loops"`
}

// LoopReport summarises one loop. Governing is an index into IVs,
// -1 when no induction variable governs the loop.
type LoopReport struct {
	Header    int        `msgpack:"header"`
	Depth     int        `msgpack:"depth"`
	Governing int        `msgpack:"governing"`
	IVs       []IVReport `msgpack:"ivs"`
}

// IVReport summarises one induction variable.
type IVReport struct {
	Phi     string   `msgpack:"phi"`
	Start   string   `msgpack:"start"`
	Step    int64    `msgpack:"step"`
	Members []string `msgpack:"members"`
}

// New builds a report from per-function results; nil results (from
// bodyless functions) are skipped.
func New(results []*analysis.Result) *Report {
	r := &Report{}
	for _, res := range results {
		if res == nil {
			continue
		}
		fr := FuncReport{Name: res.Func.Name}
		for _, l := range res.Nest.Loops() {
			set := res.IVs.Of(l)
			lr := LoopReport{
				Header:    l.Header.Index,
				Depth:     l.Depth(),
				Governing: set.GoverningIndex(),
			}
			for i := 0; i < set.Len(); i++ {
				iv := set.At(i)
				ivr := IVReport{
					Phi:  iv.HeaderPhi.Name(),
					Step: iv.StepInt(),
				}
				if iv.Start != nil {
					ivr.Start = iv.Start.Name()
				}
				for _, m := range iv.Members() {
					ivr.Members = append(ivr.Members, m.Name())
				}
				lr.IVs = append(lr.IVs, ivr)
			}
			fr.Loops = append(fr.Loops, lr)
		}
		r.Funcs = append(r.Funcs, fr)
	}
	return r
}

// Marshal encodes the report as msgpack.
func (r *Report) Marshal() ([]byte, error) {
	b, err := msgpack.Marshal(r)
	if err != nil {
		return nil, errors.Wrap(err, "report: encode")
	}
	return b, nil
}

// Unmarshal decodes a msgpack-encoded report.
func Unmarshal(b []byte) (*Report, error) {
	var r Report
	if err := msgpack.Unmarshal(b, &r); err != nil {
		return nil, errors.Wrap(err, "report: decode")
	}
	return &r, nil
}
