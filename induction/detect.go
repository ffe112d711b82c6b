package induction

import (
	"go.uber.org/zap"

	"github.com/edeiana/noelle/depgraph"
	"github.com/edeiana/noelle/ir"
	"github.com/edeiana/noelle/loopnest"
	"github.com/edeiana/noelle/recurrence"
)

// Detector finds the induction variables of every loop in a nest and
// picks, per loop, the one governing termination.
type Detector struct {
	rec recurrence.Analysis
	log *zap.SugaredLogger
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger routes the detector's debug output to l.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(d *Detector) { d.log = l }
}

// NewDetector returns a Detector using rec to classify header merges.
func NewDetector(rec recurrence.Analysis, opts ...Option) *Detector {
	d := &Detector{rec: rec, log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Set holds the induction variables of one loop. The variables are
// owned by the set's arena and addressed by index; they stay valid
// for the lifetime of the set.
type Set struct {
	arena     []Variable
	governing int // arena index of the governing variable, -1 if none
}

// Len returns the number of induction variables.
func (s *Set) Len() int { return len(s.arena) }

// At returns the i-th induction variable.
func (s *Set) At(i int) *Variable { return &s.arena[i] }

// Governing returns the loop-governing induction variable, nil when
// no candidate attributed successfully.
func (s *Set) Governing() *Variable {
	if s.governing < 0 {
		return nil
	}
	return &s.arena[s.governing]
}

// GoverningIndex returns the arena index of the governing variable,
// -1 when none.
func (s *Set) GoverningIndex() int { return s.governing }

// Variables maps each loop of a nest to its detected induction
// variables.
type Variables struct {
	byLoop map[*loopnest.Loop]*Set
}

// Of returns the set for l. The result is never nil.
func (v *Variables) Of(l *loopnest.Loop) *Set {
	if s, ok := v.byLoop[l]; ok {
		return s
	}
	return &Set{governing: -1}
}

// Governing returns l's governing induction variable, or nil.
func (v *Variables) Governing(l *loopnest.Loop) *Variable {
	return v.Of(l).Governing()
}

// Detect analyses every loop of the nest. For each header merge the
// recurrence analysis either classifies an additive closed form or
// the candidate is skipped; candidates whose step is not a single
// constant are dropped too. Both are expected non-matches, not
// errors. Accepted variables are then attributed in header
// declaration order and the first well-formed attribution fixes the
// loop's governing pick; later well-formed candidates never replace
// it.
func (d *Detector) Detect(nest *loopnest.Nest) *Variables {
	vars := &Variables{byLoop: make(map[*loopnest.Loop]*Set)}
	exits := nest.ExitBlocks()
	for _, l := range nest.Loops() {
		vars.byLoop[l] = d.detectLoop(l, exits)
	}
	return vars
}

func (d *Detector) detectLoop(l *loopnest.Loop, exits []*ir.Block) *Set {
	g := depgraph.Build(l)
	set := &Set{governing: -1}

	for _, phi := range l.Header.Phis() {
		r := d.rec.OfPhi(l, phi)
		if r == nil {
			continue
		}
		if r.StepKind != recurrence.StepConstant {
			d.log.Debugf("induction: %s: %s step, dropping candidate", phi.Name(), r.StepKind)
			continue
		}
		scc := g.SCCOf(phi)
		if scc == nil {
			continue
		}
		set.arena = append(set.arena, *newVariable(l, phi, scc, r.Step))
		d.log.Debugf("induction: %s: step %d, start %s", phi.Name(), r.Step.Int, startName(set.arena[len(set.arena)-1].Start))
	}

	// Arena is complete; handing out element pointers is safe now.
	for i := range set.arena {
		iv := &set.arena[i]
		attr := Attribute(iv, iv.SCC(), exits)
		if attr.IsWellFormed() && set.governing < 0 {
			set.governing = i
			d.log.Debugf("induction: %s governs loop at #%d", iv.HeaderPhi.Name(), l.Header.Index)
		}
	}
	return set
}

func startName(v *ir.Value) string {
	if v == nil {
		return "<none>"
	}
	return v.Name()
}
