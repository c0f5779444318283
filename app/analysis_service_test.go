package app

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"statlab/domain/analysis"
	"statlab/domain/core"
	"statlab/domain/dataset"
	"statlab/internal/errors"
	"statlab/ports"
)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Catalog() []analysis.CatalogEntry {
	return m.Called().Get(0).([]analysis.CatalogEntry)
}

func (m *mockEngine) Run(ctx context.Context, req *analysis.Request) (*analysis.Result, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*analysis.Result)
	return res, args.Error(1)
}

func (m *mockEngine) CheckAssumptions(ctx context.Context, req *analysis.Request) ([]analysis.AssumptionResult, error) {
	args := m.Called(ctx, req)
	out, _ := args.Get(0).([]analysis.AssumptionResult)
	return out, args.Error(1)
}

type mockNarrator struct {
	mock.Mock
}

func (m *mockNarrator) Narrate(ctx context.Context, req *analysis.Request, res *analysis.Result) (*ports.Narrative, error) {
	args := m.Called(ctx, req, res)
	out, _ := args.Get(0).(*ports.Narrative)
	return out, args.Error(1)
}

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Save(ctx context.Context, record *ports.AnalysisRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockRepository) Get(ctx context.Context, id core.AnalysisID) (*ports.AnalysisRecord, error) {
	args := m.Called(ctx, id)
	rec, _ := args.Get(0).(*ports.AnalysisRecord)
	return rec, args.Error(1)
}

func (m *mockRepository) List(ctx context.Context, filters ports.AnalysisFilters) ([]ports.AnalysisSummary, error) {
	args := m.Called(ctx, filters)
	out, _ := args.Get(0).([]ports.AnalysisSummary)
	return out, args.Error(1)
}

func (m *mockRepository) Delete(ctx context.Context, id core.AnalysisID) error {
	return m.Called(ctx, id).Error(0)
}

func request(rows int) *analysis.Request {
	data := make([]dataset.Row, rows)
	for i := range data {
		data[i] = dataset.Row{"score": float64(i)}
	}
	return &analysis.Request{
		TestType:           "Descriptives",
		DependentVariables: []string{"score"},
		Data:               data,
		Capabilities:       analysis.Capabilities{Advanced: true},
	}
}

func result(summary string) *analysis.Result {
	res := analysis.NewResult(analysis.TestDescriptives)
	res.SetSummary(summary)
	return res
}

func TestRunNarratesAndPersists(t *testing.T) {
	engine, narrator, repo := new(mockEngine), new(mockNarrator), new(mockRepository)
	res := result("score has a mean of 2.000.")
	engine.On("Run", mock.Anything, mock.MatchedBy(func(r *analysis.Request) bool {
		return r.TestType == analysis.TestDescriptives && !r.Capabilities.Advanced
	})).Return(res, nil)
	narrator.On("Narrate", mock.Anything, mock.Anything, res).
		Return(&ports.Narrative{Text: "Average.", Source: ports.NarrativeHeuristic}, nil)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(rec *ports.AnalysisRecord) bool {
		return rec.RowCount == 5 && rec.DatasetName == "scores.csv" && rec.DataHash != "" && rec.Narrative != nil
	})).Return(nil)

	svc := NewAnalysisService(engine, narrator, repo, analysis.Capabilities{}, Limits{MaxRows: 10}, nil)
	out, err := svc.Run(context.Background(), request(5), RunOptions{DatasetName: "scores.csv", Narrate: true, Persist: true})
	require.NoError(t, err)

	assert.Same(t, res, out.Result)
	assert.Equal(t, "Average.", out.Narrative.Text)
	assert.NotEmpty(t, out.ID)
	assert.Empty(t, out.Warnings)
	engine.AssertExpectations(t)
	narrator.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestRunRejectsLargeDatasets(t *testing.T) {
	engine := new(mockEngine)
	svc := NewAnalysisService(engine, nil, nil, analysis.Capabilities{}, Limits{MaxRows: 3}, nil)

	_, err := svc.Run(context.Background(), request(4), RunOptions{})
	assert.Equal(t, errors.CodeTooLarge, errors.GetCode(err))

	_, err = svc.Run(context.Background(), nil, RunOptions{})
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	engine.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestRunMapsEngineErrors(t *testing.T) {
	engine := new(mockEngine)
	engine.On("Run", mock.Anything, mock.Anything).Return(nil, core.NewInvalidVariableError("age", ""))

	svc := NewAnalysisService(engine, nil, nil, analysis.Capabilities{}, Limits{}, nil)
	_, err := svc.Run(context.Background(), request(2), RunOptions{})

	require.Error(t, err)
	assert.Equal(t, errors.CodeValidationError, errors.GetCode(err))
	assert.True(t, core.IsInvalidVariableError(err))
}

func TestRunKeepsBestEffortResultOnConvergenceFailure(t *testing.T) {
	engine, repo := new(mockEngine), new(mockRepository)
	res := result("best effort")
	engine.On("Run", mock.Anything, mock.Anything).Return(res, core.NewConvergenceError("logistic regression", 25))
	repo.On("Save", mock.Anything, mock.Anything).Return(errors.DatabaseError("down", stderrors.New("conn refused")))

	svc := NewAnalysisService(engine, nil, repo, analysis.Capabilities{}, Limits{}, nil)
	out, err := svc.Run(context.Background(), request(2), RunOptions{Persist: true})
	require.NoError(t, err)

	assert.Same(t, res, out.Result)
	assert.Equal(t, core.KindConvergence, out.ErrorKind)
	require.Len(t, out.Warnings, 2)
	assert.Contains(t, out.Warnings[0], "did not converge")
	assert.Contains(t, out.Warnings[1], "could not be saved")
	assert.Empty(t, out.ID)
}

func TestRunSurvivesNarratorFailure(t *testing.T) {
	engine, narrator := new(mockEngine), new(mockNarrator)
	engine.On("Run", mock.Anything, mock.Anything).Return(result("ok"), nil)
	narrator.On("Narrate", mock.Anything, mock.Anything, mock.Anything).Return(nil, stderrors.New("timeout"))

	svc := NewAnalysisService(engine, narrator, nil, analysis.Capabilities{}, Limits{}, nil)
	out, err := svc.Run(context.Background(), request(2), RunOptions{Narrate: true})
	require.NoError(t, err)
	assert.Nil(t, out.Narrative)
	assert.Equal(t, []string{"Narrative interpretation is unavailable."}, out.Warnings)
}

func TestConcurrencyIsBounded(t *testing.T) {
	engine := new(mockEngine)
	var running, peak int32
	engine.On("Run", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&running, -1)
	}).Return(result("ok"), nil)

	svc := NewAnalysisService(engine, nil, nil, analysis.Capabilities{}, Limits{MaxConcurrentAnalyses: 2}, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Run(context.Background(), request(2), RunOptions{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	engine.AssertNumberOfCalls(t, "Run", 8)
}

func TestWaitingForSlotHonoursCancellation(t *testing.T) {
	engine := new(mockEngine)
	started, release := make(chan struct{}, 1), make(chan struct{})
	engine.On("Run", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		started <- struct{}{}
		<-release
	}).Return(result("ok"), nil)

	svc := NewAnalysisService(engine, nil, nil, analysis.Capabilities{}, Limits{MaxConcurrentAnalyses: 1}, nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Run(context.Background(), request(2), RunOptions{})
	}()

	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.Run(ctx, request(2), RunOptions{})
	assert.Equal(t, errors.CodeUnavailable, errors.GetCode(err))

	close(release)
	<-done
}

func TestCatalogAvailability(t *testing.T) {
	engine := new(mockEngine)
	engine.On("Catalog").Return([]analysis.CatalogEntry{
		{TestType: analysis.TestDescriptives, Name: "Descriptive Statistics"},
		{TestType: analysis.TestFactorAnalysis, Name: "Factor Analysis", Advanced: true},
	})

	basic := NewAnalysisService(engine, nil, nil, analysis.Capabilities{}, Limits{}, nil).Catalog()
	assert.True(t, basic[0].Available)
	assert.False(t, basic[1].Available)

	pro := NewAnalysisService(engine, nil, nil, analysis.Capabilities{Advanced: true}, Limits{}, nil).Catalog()
	assert.True(t, pro[1].Available)
}

func TestCheckAssumptions(t *testing.T) {
	engine := new(mockEngine)
	checks := []analysis.AssumptionResult{{Name: analysis.AssumptionNormality, Passed: true}}
	engine.On("CheckAssumptions", mock.Anything, mock.Anything).Return(checks, nil).Once()
	engine.On("CheckAssumptions", mock.Anything, mock.Anything).Return(nil, core.NewUnsupportedTestError("x")).Once()

	svc := NewAnalysisService(engine, nil, nil, analysis.Capabilities{}, Limits{}, nil)
	got, err := svc.CheckAssumptions(context.Background(), request(3))
	require.NoError(t, err)
	assert.Equal(t, checks, got)

	_, err = svc.CheckAssumptions(context.Background(), request(3))
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestReportRendersStoredRun(t *testing.T) {
	engine, repo := new(mockEngine), new(mockRepository)
	id := core.NewAnalysisID()
	engine.On("Catalog").Return([]analysis.CatalogEntry{{TestType: analysis.TestDescriptives, Name: "Descriptive Statistics"}})
	repo.On("Get", mock.Anything, id).Return(&ports.AnalysisRecord{
		ID: id, TestType: analysis.TestDescriptives, DatasetName: "scores.csv", Result: result("score has a mean of 2.000."),
		Narrative: &ports.Narrative{Text: "Scores are average."}, CreatedAt: time.Now(),
	}, nil)

	svc := NewAnalysisService(engine, nil, repo, analysis.Capabilities{}, Limits{}, nil)
	page, err := svc.Report(context.Background(), id.String())
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>Descriptive Statistics</title>")
	assert.Contains(t, string(page), "Scores are average.")

	_, err = svc.Report(context.Background(), "not-a-uuid")
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestDelete(t *testing.T) {
	repo := new(mockRepository)
	id := core.NewAnalysisID()
	repo.On("Delete", mock.Anything, id).Return(nil)

	svc := NewAnalysisService(new(mockEngine), nil, repo, analysis.Capabilities{}, Limits{}, nil)
	require.NoError(t, svc.Delete(context.Background(), id.String()))
	repo.AssertExpectations(t)

	err := svc.Delete(context.Background(), "not-a-uuid")
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	noHistory := NewAnalysisService(new(mockEngine), nil, nil, analysis.Capabilities{}, Limits{}, nil)
	err = noHistory.Delete(context.Background(), id.String())
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}
