// Package engine runs the propose→validate→correct cycle. Each request
// walks a single path: propose a layout, validate it, and either stop on
// a pass or feed the rendered feedback into the next proposal, up to a
// fixed retry budget. The only state carried between iterations is the
// iteration index, the best result so far, and the last feedback text.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/planwright/planwright/internal/logger"
	"github.com/planwright/planwright/internal/plan"
	"github.com/planwright/planwright/internal/rules"
	"github.com/planwright/planwright/internal/scoring"
)

var log = logger.ForComponent("engine")

// ErrNoProposal is returned when every iteration failed to produce a
// usable layout. There is no best attempt to fall back on.
var ErrNoProposal = errors.New("no proposer produced a usable layout")

// Proposer produces a candidate layout from the requirements and the
// previous attempt's feedback (empty on the first call). A proposer
// returns (nil, err) for expected failure modes; it never panics for
// them. The engine treats a nil layout as a consumed retry.
type Proposer interface {
	Propose(ctx context.Context, req *plan.Requirements, feedback string) (*plan.Layout, error)
}

// ProposeFunc adapts a function to the Proposer interface.
type ProposeFunc func(ctx context.Context, req *plan.Requirements, feedback string) (*plan.Layout, error)

func (f ProposeFunc) Propose(ctx context.Context, req *plan.Requirements, feedback string) (*plan.Layout, error) {
	return f(ctx, req, feedback)
}

// Options bounds a run.
type Options struct {
	MaxIterations    int             `yaml:"max_iterations"`
	IterationTimeout time.Duration   `yaml:"iteration_timeout"`
	Scoring          scoring.Options `yaml:"scoring"`
}

func DefaultOptions() Options {
	return Options{
		MaxIterations:    5,
		IterationTimeout: 60 * time.Second,
		Scoring:          scoring.DefaultOptions(),
	}
}

// Attempt records one completed iteration.
type Attempt struct {
	Iteration int             `json:"iteration"`
	Layout    *plan.Layout    `json:"layout,omitempty"`
	Result    *scoring.Result `json:"result,omitempty"`
	Err       string          `json:"error,omitempty"`
}

// RunResult is the outcome of a full correction run. When no attempt
// passed, Best carries the highest-scoring attempt anyway so callers can
// show the closest miss.
type RunResult struct {
	Passed     bool      `json:"passed"`
	Iterations int       `json:"iterations"`
	Best       *Attempt  `json:"best,omitempty"`
	Attempts   []Attempt `json:"attempts"`
}

// Engine drives the correction loop against an injected proposer and a
// read-only rule catalog. Engines are safe for concurrent use; each Run
// keeps all mutable state on its own stack.
type Engine struct {
	proposer Proposer
	catalog  *rules.Catalog
	opts     Options
}

func New(proposer Proposer, catalog *rules.Catalog, opts Options) (*Engine, error) {
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultOptions().MaxIterations
	}
	return &Engine{proposer: proposer, catalog: catalog, opts: opts}, nil
}

// Validate scores a single layout without running the loop.
func (e *Engine) Validate(l *plan.Layout, req *plan.Requirements) *scoring.Result {
	return scoring.Score(l, req, e.catalog, e.opts.Scoring)
}

// Run executes the correction loop. The requirements are validated up
// front; a malformed spec is rejected before any proposal is made.
// Cancellation is honored between iterations, never mid-validation.
func (e *Engine) Run(ctx context.Context, req *plan.Requirements) (*RunResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	res := &RunResult{}
	var best *Attempt
	feedback := ""

	for i := 1; i <= e.opts.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		layout, err := e.propose(ctx, req, feedback)
		if err != nil || layout == nil {
			attempt := Attempt{Iteration: i}
			if err != nil {
				attempt.Err = err.Error()
				log.Warn("proposal failed", "iteration", i, "error", err)
			} else {
				attempt.Err = "proposer returned no layout"
				log.Warn("proposer returned no layout", "iteration", i)
			}
			res.Attempts = append(res.Attempts, attempt)
			res.Iterations = i
			continue
		}

		result := scoring.Score(layout, req, e.catalog, e.opts.Scoring)
		attempt := Attempt{Iteration: i, Layout: layout, Result: result}
		res.Attempts = append(res.Attempts, attempt)
		res.Iterations = i

		log.Info("attempt validated",
			"iteration", i,
			"score", result.Score,
			"passed", result.Passed,
			"hard_failures", len(result.HardFailures),
		)

		if best == nil || result.Score > best.Result.Score {
			best = &res.Attempts[len(res.Attempts)-1]
		}

		if result.Passed {
			res.Passed = true
			res.Best = best
			return res, nil
		}

		feedback = result.Feedback
	}

	if best == nil {
		return nil, ErrNoProposal
	}
	res.Best = best
	return res, nil
}

// propose calls the injected proposer under the per-iteration timeout.
// A timeout is a proposer failure that consumes one retry.
func (e *Engine) propose(ctx context.Context, req *plan.Requirements, feedback string) (*plan.Layout, error) {
	if e.opts.IterationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.IterationTimeout)
		defer cancel()
	}
	return e.proposer.Propose(ctx, req, feedback)
}
