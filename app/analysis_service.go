package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"statlab/domain/analysis"
	"statlab/domain/core"
	"statlab/internal"
	"statlab/internal/errors"
	"statlab/internal/report"
	"statlab/ports"
)

// Limits bounds the work the service accepts
type Limits struct {
	MaxRows               int
	MaxConcurrentAnalyses int
}

// AnalysisService runs engine requests for the web, API and CLI surfaces.
// It applies the plan capabilities, the row limit and the concurrency bound,
// then optionally narrates and stores the result.
type AnalysisService struct {
	engine       ports.AnalysisEngine
	narrator     ports.Narrator
	repo         ports.AnalysisRepository
	capabilities analysis.Capabilities
	limits       Limits
	sem          *semaphore.Weighted
	logger       *internal.Logger
}

// NewAnalysisService creates the service. narrator and repo may be nil.
func NewAnalysisService(engine ports.AnalysisEngine, narrator ports.Narrator, repo ports.AnalysisRepository,
	capabilities analysis.Capabilities, limits Limits, logger *internal.Logger) *AnalysisService {
	if limits.MaxConcurrentAnalyses <= 0 {
		limits.MaxConcurrentAnalyses = 4
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &AnalysisService{
		engine:       engine,
		narrator:     narrator,
		repo:         repo,
		capabilities: capabilities,
		limits:       limits,
		sem:          semaphore.NewWeighted(int64(limits.MaxConcurrentAnalyses)),
		logger:       logger,
	}
}

// RunOptions selects the host side steps around the engine call
type RunOptions struct {
	DatasetName string
	Narrate     bool
	Persist     bool
}

// RunOutcome is the engine result plus what the host added to it
type RunOutcome struct {
	ID        core.AnalysisID   `json:"id,omitempty"`
	Result    *analysis.Result  `json:"result"`
	Narrative *ports.Narrative  `json:"narrative,omitempty"`
	Warnings  []string          `json:"warnings,omitempty"`
	ErrorKind string            `json:"errorKind,omitempty"`
	TestType  analysis.TestType `json:"testType"`
}

// CatalogItem is a catalog entry with its availability under the current plan
type CatalogItem struct {
	analysis.CatalogEntry
	Available bool `json:"available"`
}

// Catalog lists every registered test
func (s *AnalysisService) Catalog() []CatalogItem {
	entries := s.engine.Catalog()
	items := make([]CatalogItem, len(entries))
	for i, e := range entries {
		items[i] = CatalogItem{CatalogEntry: e, Available: !e.Advanced || s.capabilities.Advanced}
	}
	return items
}

// Capabilities returns the plan flags passed to the engine
func (s *AnalysisService) Capabilities() analysis.Capabilities {
	return s.capabilities
}

// Run executes one analysis. A convergence failure that still produced a
// result is reported as a warning, every other engine error is returned.
func (s *AnalysisService) Run(ctx context.Context, req *analysis.Request, opts RunOptions) (*RunOutcome, error) {
	if err := s.admit(req); err != nil {
		return nil, err
	}
	start := time.Now()

	res, runErr := s.withSlot(ctx, func() (*analysis.Result, error) {
		return s.engine.Run(ctx, req)
	})
	outcome := &RunOutcome{TestType: req.TestType, Result: res}
	switch {
	case runErr == nil:
	case core.IsConvergenceError(runErr) && res != nil:
		outcome.ErrorKind = core.KindConvergence
		outcome.Warnings = append(outcome.Warnings, runErr.Error())
		s.logger.Warn("[AnalysisService] %s returned a best-effort result: %v", req.TestType, runErr)
	default:
		s.logger.Info("[AnalysisService] %s failed (%s): %v", req.TestType, core.ErrorKind(runErr), runErr)
		return nil, errors.FromDomain(runErr)
	}
	s.logger.Debug("[AnalysisService] %s on %d rows took %s", req.TestType, len(req.Data), time.Since(start))

	if opts.Narrate && s.narrator != nil {
		narrative, err := s.narrator.Narrate(ctx, req, res)
		if err != nil {
			s.logger.Warn("[AnalysisService] narrative for %s failed: %v", req.TestType, err)
			outcome.Warnings = append(outcome.Warnings, "Narrative interpretation is unavailable.")
		} else {
			outcome.Narrative = narrative
		}
	}

	if opts.Persist && s.repo != nil {
		record := &ports.AnalysisRecord{
			ID:          core.NewAnalysisID(),
			TestType:    req.TestType,
			DatasetName: opts.DatasetName,
			DataHash:    fingerprint(req),
			RowCount:    len(req.Data),
			Request:     *req,
			Result:      res,
			Narrative:   outcome.Narrative,
			Warning:     strings.Join(outcome.Warnings, " "),
			CreatedAt:   time.Now(),
		}
		if err := s.repo.Save(ctx, record); err != nil {
			s.logger.Error("[AnalysisService] failed to store %s run: %v", req.TestType, err)
			outcome.Warnings = append(outcome.Warnings, "The run could not be saved to history.")
		} else {
			outcome.ID = record.ID
		}
	}
	return outcome, nil
}

// CheckAssumptions runs the assumption checks of the requested test
func (s *AnalysisService) CheckAssumptions(ctx context.Context, req *analysis.Request) ([]analysis.AssumptionResult, error) {
	if err := s.admit(req); err != nil {
		return nil, err
	}
	var checks []analysis.AssumptionResult
	_, err := s.withSlot(ctx, func() (*analysis.Result, error) {
		var err error
		checks, err = s.engine.CheckAssumptions(ctx, req)
		return nil, err
	})
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	return checks, nil
}

// History lists stored runs
func (s *AnalysisService) History(ctx context.Context, filters ports.AnalysisFilters) ([]ports.AnalysisSummary, error) {
	if s.repo == nil {
		return []ports.AnalysisSummary{}, nil
	}
	return s.repo.List(ctx, filters)
}

// Get loads one stored run
func (s *AnalysisService) Get(ctx context.Context, id string) (*ports.AnalysisRecord, error) {
	if s.repo == nil {
		return nil, errors.NotFound("analysis " + id)
	}
	aid, err := core.ParseAnalysisID(id)
	if err != nil {
		return nil, errors.InvalidInput(err.Error())
	}
	return s.repo.Get(ctx, aid)
}

// Report renders a stored run as a standalone HTML page
func (s *AnalysisService) Report(ctx context.Context, id string) ([]byte, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	doc := report.Document{
		Title:     titleFor(s.engine.Catalog(), rec.TestType),
		Dataset:   rec.DatasetName,
		RowCount:  rec.RowCount,
		CreatedAt: rec.CreatedAt,
		Result:    rec.Result,
	}
	if rec.Narrative != nil {
		doc.Narrative = rec.Narrative.Text
	}
	return report.HTML(doc), nil
}

// admit validates the request against the deployment limits and applies the
// plan capabilities; callers cannot raise their own capabilities.
func (s *AnalysisService) admit(req *analysis.Request) error {
	if req == nil {
		return errors.InvalidInput("request body is required")
	}
	if strings.TrimSpace(string(req.TestType)) == "" {
		return errors.InvalidInput("testType is required")
	}
	req.TestType = analysis.ParseTestType(string(req.TestType))
	if s.limits.MaxRows > 0 && len(req.Data) > s.limits.MaxRows {
		return errors.TooLarge(fmt.Sprintf("dataset has %d rows, the limit is %d", len(req.Data), s.limits.MaxRows))
	}
	req.Capabilities = s.capabilities
	return nil
}

// withSlot runs fn while holding one unit of the concurrency budget
func (s *AnalysisService) withSlot(ctx context.Context, fn func() (*analysis.Result, error)) (*analysis.Result, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, &errors.AppError{Code: errors.CodeUnavailable, Message: "timed out waiting for an analysis slot", Cause: err}
	}
	defer s.sem.Release(1)
	return fn()
}

func fingerprint(req *analysis.Request) core.Hash {
	raw, err := json.Marshal(struct {
		Columns []string    `json:"columns"`
		Data    interface{} `json:"data"`
	}{Columns: req.Columns, Data: req.Data})
	if err != nil {
		return ""
	}
	return core.NewHash(raw)
}

func titleFor(catalog []analysis.CatalogEntry, t analysis.TestType) string {
	for _, e := range catalog {
		if e.TestType == t {
			return e.Name
		}
	}
	return string(t)
}

// Delete removes a stored run
func (s *AnalysisService) Delete(ctx context.Context, id string) error {
	if s.repo == nil {
		return errors.NotFound("analysis " + id)
	}
	aid, err := core.ParseAnalysisID(id)
	if err != nil {
		return errors.InvalidInput(err.Error())
	}
	return s.repo.Delete(ctx, aid)
}
