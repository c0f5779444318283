// Package engine dispatches analysis requests to the registered procedures.
package engine

import (
	"context"
	"fmt"

	"statlab/adapters/datareadiness/coercer"
	"statlab/adapters/stats/procedures"
	"statlab/domain/analysis"
	"statlab/domain/core"
)

// Engine is the statistics computation engine. It holds no per-request state and
// is safe for concurrent use.
type Engine struct {
	procedures []procedures.Procedure
	index      map[analysis.TestType]procedures.Procedure
}

// New creates an engine with every built-in procedure registered
func New() *Engine {
	return NewWithProcedures(procedures.All()...)
}

// NewWithProcedures creates an engine with an explicit registry; later entries
// replace earlier ones of the same test type
func NewWithProcedures(procs ...procedures.Procedure) *Engine {
	e := &Engine{index: make(map[analysis.TestType]procedures.Procedure, len(procs))}
	position := make(map[analysis.TestType]int, len(procs))
	for _, p := range procs {
		if i, dup := position[p.Type()]; dup {
			e.procedures[i] = p
		} else {
			position[p.Type()] = len(e.procedures)
			e.procedures = append(e.procedures, p)
		}
		e.index[p.Type()] = p
	}
	return e
}

// Catalog lists the registered tests in registration order
func (e *Engine) Catalog() []analysis.CatalogEntry {
	out := make([]analysis.CatalogEntry, len(e.procedures))
	for i, p := range e.procedures {
		out[i] = analysis.CatalogEntry{
			TestType:    p.Type(),
			Name:        p.Name(),
			Description: p.Description(),
			Family:      p.Family(),
			Advanced:    p.Advanced(),
		}
	}
	return out
}

// Lookup returns the procedure for testType and enforces the capability gate
func (e *Engine) Lookup(testType analysis.TestType, caps analysis.Capabilities) (procedures.Procedure, error) {
	p, ok := e.index[analysis.ParseTestType(string(testType))]
	if !ok {
		return nil, core.NewUnsupportedTestError(string(testType))
	}
	if p.Advanced() && !caps.Advanced {
		return nil, core.NewCapabilityError(string(p.Type()))
	}
	return p, nil
}

// Run computes one analysis. A ConvergenceError may accompany a non-nil result
// holding the best available estimates.
func (e *Engine) Run(ctx context.Context, req *analysis.Request) (res *analysis.Result, err error) {
	p, frame, err := e.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	defer recoverInternal(p.Type(), &err)

	res, err = p.Run(ctx, req, frame)
	if res != nil {
		res.TestType = p.Type()
	}
	return res, err
}

// CheckAssumptions runs the assumption checks relevant to the test family.
// Tests without checkable assumptions return an empty list.
func (e *Engine) CheckAssumptions(ctx context.Context, req *analysis.Request) (out []analysis.AssumptionResult, err error) {
	p, frame, err := e.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	checker, ok := p.(procedures.AssumptionChecker)
	if !ok {
		return []analysis.AssumptionResult{}, nil
	}
	defer recoverInternal(p.Type(), &err)
	return checker.Assumptions(ctx, req, frame)
}

func (e *Engine) prepare(ctx context.Context, req *analysis.Request) (procedures.Procedure, *coercer.Frame, error) {
	if req == nil {
		return nil, nil, core.NewUnsupportedTestError("")
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	p, err := e.Lookup(req.TestType, req.Capabilities)
	if err != nil {
		return nil, nil, err
	}
	frame := coercer.NewFrame(req.Dataset())
	if err := frame.Require(req.ReferencedVariables()...); err != nil {
		return nil, nil, err
	}
	return p, frame, nil
}

// recoverInternal turns a panic inside a procedure into an internal error
func recoverInternal(testType analysis.TestType, err *error) {
	if rec := recover(); rec != nil {
		*err = fmt.Errorf("%s: internal error: %v", testType, rec)
	}
}
