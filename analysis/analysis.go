// Package analysis drives the per-function loop analyses: loop-nest
// discovery, induction-variable detection and the governing pick.
// One function's analysis is strictly sequential; independent
// functions may run concurrently through Program.
package analysis

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/edeiana/noelle/induction"
	"github.com/edeiana/noelle/ir"
	"github.com/edeiana/noelle/loopnest"
	"github.com/edeiana/noelle/recurrence"
)

// ErrNoBody marks functions without a body (external declarations).
var ErrNoBody = errors.New("function has no body")

// Options configures an analysis run. The zero value uses the default
// recurrence analyzer, no logging, and unbounded parallelism.
type Options struct {
	Recurrence  recurrence.Analysis
	Logger      *zap.Logger
	Parallelism int // max concurrent functions in Program, 0 for unbounded
}

func (o Options) recurrence() recurrence.Analysis {
	if o.Recurrence != nil {
		return o.Recurrence
	}
	return recurrence.NewAnalyzer()
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

// Result is the analysis outcome for one function.
type Result struct {
	Func *ir.Func
	Nest *loopnest.Nest
	IVs  *induction.Variables
}

// Func analyses a single function.
func Func(fn *ir.Func, opts Options) (*Result, error) {
	if fn == nil || len(fn.Blocks) == 0 {
		return nil, errors.Wrap(ErrNoBody, "analysis")
	}
	log := opts.logger()
	nest := loopnest.New(fn)
	det := induction.NewDetector(opts.recurrence(), induction.WithLogger(log.Sugar()))
	ivs := det.Detect(nest)
	log.Sugar().Debugf("analysis: %s: %d loop(s)", fn.Name, len(nest.Loops()))
	return &Result{Func: fn, Nest: nest, IVs: ivs}, nil
}

// Program analyses several functions, each independently. Results
// keep the input order; bodyless functions yield a nil slot rather
// than an error.
func Program(fns []*ir.Func, opts Options) ([]*Result, error) {
	results := make([]*Result, len(fns))
	var g errgroup.Group
	if opts.Parallelism > 0 {
		g.SetLimit(opts.Parallelism)
	}
	for i, fn := range fns {
		i, fn := i, fn
		g.Go(func() error {
			r, err := Func(fn, opts)
			if err != nil {
				if errors.Is(err, ErrNoBody) {
					return nil
				}
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
