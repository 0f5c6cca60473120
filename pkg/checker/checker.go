// Package checker runs the full constraint pipeline over a loaded model
// registry and aggregates per-constraint verdicts into a batch report.
package checker

import (
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vitruv-tools/oclsharp/pkg/eval"
	"github.com/vitruv-tools/oclsharp/pkg/model"
	"github.com/vitruv-tools/oclsharp/pkg/parser"
	"github.com/vitruv-tools/oclsharp/pkg/sema"
)

// Verdict is the single outcome class of one constraint.
type Verdict int

const (
	// Satisfied means every matching context instance satisfied the body.
	Satisfied Verdict = iota
	// Violated means at least one instance failed the body.
	Violated
	// CompileError means scope resolution or type checking failed; the
	// constraint was never evaluated.
	CompileError
	// RuntimeError means evaluation failed on at least one instance.
	RuntimeError
)

func (v Verdict) String() string {
	switch v {
	case Satisfied:
		return "satisfied"
	case Violated:
		return "violated"
	case CompileError:
		return "compile-error"
	case RuntimeError:
		return "runtime-error"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// InstanceRef names one violating context object and where it was loaded.
type InstanceRef struct {
	Label      string
	SourceFile string
	Message    string
}

// ConstraintResult is the outcome of one constraint over the whole model.
type ConstraintResult struct {
	Name       string
	Context    string
	Verdict    Verdict
	Messages   []string
	Violations []InstanceRef
	Errors     []sema.Diagnostic
	Instances  int
}

// Report is the outcome of one checking run. Results appear in
// declaration order, one entry per requested constraint; Satisfied is
// the conjunction over all results and parse errors.
type Report struct {
	RunID       string
	Results     []ConstraintResult
	ParseErrors []string
	Satisfied   bool
}

// Checker drives parse, analysis, and evaluation against one registry.
// The registry must be fully loaded before checking starts and is
// treated as read-only from then on, which is what makes concurrent
// constraint evaluation safe.
type Checker struct {
	registry *model.Registry
	workers  int
}

// New creates a Checker. Workers below one evaluate sequentially.
func New(reg *model.Registry, workers int) *Checker {
	if workers < 1 {
		workers = 1
	}
	return &Checker{registry: reg, workers: workers}
}

// CheckSource parses a constraint file and checks every constraint in
// it. Constraints evaluate concurrently up to the worker limit; each
// writes to its declaration-position slot, so the report order is
// deterministic regardless of scheduling.
func (c *Checker) CheckSource(src, filename string) *Report {
	file, parseErrs := parser.ParseFile(src, filename)
	report := &Report{RunID: uuid.NewString(), Satisfied: true}
	for _, err := range parseErrs {
		report.ParseErrors = append(report.ParseErrors, err.Error())
		report.Satisfied = false
	}

	report.Results = c.checkAll(file.Constraints)
	for _, res := range report.Results {
		if res.Verdict != Satisfied {
			report.Satisfied = false
		}
	}
	return report
}

// CheckConstraint checks a single named constraint from a source file.
// An unknown name yields an error result, never a silent drop.
func (c *Checker) CheckConstraint(src, filename, name string) *Report {
	file, parseErrs := parser.ParseFile(src, filename)
	report := &Report{RunID: uuid.NewString(), Satisfied: true}
	for _, err := range parseErrs {
		report.ParseErrors = append(report.ParseErrors, err.Error())
		report.Satisfied = false
	}

	var picked []*parser.ConstraintDecl
	for _, decl := range file.Constraints {
		if decl.Name == name {
			picked = append(picked, decl)
		}
	}
	if len(picked) == 0 {
		report.Results = []ConstraintResult{{
			Name:     name,
			Verdict:  CompileError,
			Messages: []string{fmt.Sprintf("no constraint named %q in %s", name, filename)},
		}}
		report.Satisfied = false
		return report
	}

	report.Results = c.checkAll(picked)
	for _, res := range report.Results {
		if res.Verdict != Satisfied {
			report.Satisfied = false
		}
	}
	return report
}

func (c *Checker) checkAll(decls []*parser.ConstraintDecl) []ConstraintResult {
	results := make([]ConstraintResult, len(decls))

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i, decl := range decls {
		i, decl := i, decl
		g.Go(func() error {
			results[i] = c.checkOne(decl)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors
	return results
}

// checkOne runs the three passes for a single constraint. Analysis
// errors stop before evaluation; evaluation errors are scoped to their
// instance and already-computed instance results are retained.
func (c *Checker) checkOne(decl *parser.ConstraintDecl) ConstraintResult {
	res := ConstraintResult{
		Name:    decl.Name,
		Context: decl.Metamodel + "::" + decl.Class,
	}

	checked, diags := sema.Analyze(decl, c.registry)
	res.Errors = diags
	if checked == nil || sema.HasErrors(diags) {
		res.Verdict = CompileError
		return res
	}

	instances := eval.New(c.registry, checked).Evaluate()
	res.Instances = len(instances)

	for _, inst := range instances {
		switch {
		case inst.Err != nil:
			res.Verdict = RuntimeError
			res.Messages = append(res.Messages,
				fmt.Sprintf("%s (%s): %s", inst.Object.Label(), inst.SourceFile, inst.Err))
		case !inst.Satisfied:
			res.Violations = append(res.Violations, InstanceRef{
				Label:      inst.Object.Label(),
				SourceFile: inst.SourceFile,
				Message:    inst.Message,
			})
		}
	}

	if res.Verdict != RuntimeError {
		if len(res.Violations) > 0 {
			res.Verdict = Violated
		} else {
			// Zero matching instances satisfy vacuously.
			res.Verdict = Satisfied
		}
	}
	return res
}
