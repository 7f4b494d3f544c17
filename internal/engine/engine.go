// Package engine evaluates compiled profiles against crate metadata graphs.
// It walks the requirement tree depth-first and aggregates check results
// into a report.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"golang.org/x/sync/errgroup"

	"github.com/rocval-dev/rocval/internal/crate"
	"github.com/rocval-dev/rocval/internal/profiles"
)

// errStop ends the tree walk early when fail-fast is enabled.
var errStop = errors.New("stop validation")

// Options control a validation run.
type Options struct {
	// MaxConcurrentChecks limits parallel check evaluation within a
	// requirement (0 = no limit)
	MaxConcurrentChecks int

	// Severity is the minimum severity a requirement must have to be
	// validated. Requirements below it are omitted from the report.
	Severity profiles.Severity
	// SeverityOnly restricts validation to requirements of exactly Severity.
	SeverityOnly bool

	// FailFast stops the walk after the first requirement with a failed or
	// errored check. The default is to collect every result.
	FailFast bool

	// DisableInheritance validates only the profile's own requirements,
	// skipping those of the profiles it extends.
	DisableInheritance bool

	// FilterProgram selects requirements by expression, evaluated against a
	// RequirementEnv.
	FilterProgram *vm.Program
}

// RequirementEnv exposes requirement metadata to filter expressions.
type RequirementEnv struct {
	Name     string `expr:"name"`
	Path     string `expr:"path"`
	Severity string `expr:"severity"`
	Hidden   bool   `expr:"hidden"`
}

// Engine validates crates against compiled profiles. Profiles are immutable
// after compilation, so one engine may serve concurrent validation runs as
// long as each run gets its own graph and report.
type Engine struct {
	opts Options
}

// New creates an engine. The zero Options value validates every requirement
// and collects all results.
func New(opts Options) *Engine {
	return &Engine{opts: opts}
}

// ValidateCrate loads the crate at path and validates it against the
// profile. A crate that cannot be loaded aborts the run before any check is
// evaluated.
func (e *Engine) ValidateCrate(ctx context.Context, p *profiles.Profile, path string) (*Report, error) {
	g, err := crate.Load(path)
	if err != nil {
		report := NewReport(p)
		report.start()
		report.abort()
		return report, err
	}
	return e.Validate(ctx, p, g)
}

// Validate walks the profile's requirement tree depth-first, ancestors
// first, and evaluates every selected check against the graph. Sibling
// checks are isolated: a failed or errored check never prevents its siblings
// from producing results. Cancellation is honored between requirement nodes
// and aborts the run.
func (e *Engine) Validate(ctx context.Context, p *profiles.Profile, g *crate.Graph) (*Report, error) {
	if p == nil {
		return nil, fmt.Errorf("no profile to validate against")
	}
	if g == nil {
		return nil, fmt.Errorf("no graph to validate")
	}

	report := NewReport(p)
	report.start()

	lineage := p.Lineage()
	if e.opts.DisableInheritance {
		lineage = lineage[len(lineage)-1:]
	}
	slog.Debug("validation run started",
		"run_id", report.RunID, "profile", p.Token, "profiles", len(lineage))

	for _, prof := range lineage {
		err := e.validateTree(ctx, g, prof.Requirements, report)
		if errors.Is(err, errStop) {
			break
		}
		if err != nil {
			report.abort()
			return report, err
		}
	}

	report.Finalize()
	slog.Debug("validation run completed",
		"run_id", report.RunID,
		"checks", report.Summary.TotalChecks,
		"failed", report.Summary.FailedChecks,
		"errors", report.Summary.ErrorChecks)
	return report, nil
}

func (e *Engine) validateTree(ctx context.Context, g *crate.Graph, reqs []*profiles.Requirement, report *Report) error {
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return err
		}

		if e.selects(req) {
			results := e.evaluateChecks(g, req)
			if req.Hidden {
				results = failuresOnly(results)
			}
			slog.Debug("requirement evaluated",
				"requirement", req.Path, "name", req.Name, "checks", len(results))
			report.add(results...)
			if e.opts.FailFast && hasFailure(results) {
				return errStop
			}
		}

		// Children carry their own severity, so they are filtered
		// independently of their parent.
		if err := e.validateTree(ctx, g, req.Children, report); err != nil {
			return err
		}
	}
	return nil
}

// selects applies the severity threshold and the filter expression to one
// requirement node.
func (e *Engine) selects(req *profiles.Requirement) bool {
	if e.opts.SeverityOnly {
		if req.Severity != e.opts.Severity {
			return false
		}
	} else if !req.Severity.AtLeast(e.opts.Severity) {
		return false
	}

	if e.opts.FilterProgram != nil {
		env := RequirementEnv{
			Name:     req.Name,
			Path:     req.Path,
			Severity: req.Severity.String(),
			Hidden:   req.Hidden,
		}
		out, err := expr.Run(e.opts.FilterProgram, env)
		if err != nil {
			slog.Warn("requirement filter expression failed", "requirement", req.Path, "error", err)
			return false
		}
		if ok, _ := out.(bool); !ok {
			return false
		}
	}

	return true
}

// evaluateChecks runs a requirement's checks, in parallel when it has more
// than one. Each goroutine writes to a unique index in the pre-allocated
// slice, so results keep declaration order regardless of completion order.
func (e *Engine) evaluateChecks(g *crate.Graph, req *profiles.Requirement) []CheckResult {
	if len(req.Checks) == 0 {
		return nil
	}

	results := make([]CheckResult, len(req.Checks))
	if len(req.Checks) == 1 {
		results[0] = Evaluate(g, req.Checks[0])
	} else {
		var grp errgroup.Group
		if e.opts.MaxConcurrentChecks > 0 {
			grp.SetLimit(e.opts.MaxConcurrentChecks)
		}
		for i, chk := range req.Checks {
			grp.Go(func() error {
				results[i] = Evaluate(g, chk)
				return nil
			})
		}
		_ = grp.Wait()
	}

	for i := range results {
		results[i].Requirement = req.Name
	}
	return results
}

func hasFailure(results []CheckResult) bool {
	for _, r := range results {
		if r.Status != StatusPass {
			return true
		}
	}
	return false
}

// failuresOnly keeps failed and errored results. Hidden requirements are
// evaluated like any other but stay out of the report while they hold.
func failuresOnly(results []CheckResult) []CheckResult {
	var kept []CheckResult
	for _, r := range results {
		if r.Status != StatusPass {
			kept = append(kept, r)
		}
	}
	return kept
}

// CompileFilter compiles a requirement filter expression for Options.
func CompileFilter(source string) (*vm.Program, error) {
	program, err := expr.Compile(source, expr.Env(RequirementEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	return program, nil
}
