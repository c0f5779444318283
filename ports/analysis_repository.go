package ports

import (
	"context"
	"time"

	"statlab/domain/analysis"
	"statlab/domain/core"
)

// AnalysisRecord is one persisted analysis run. The row data is not stored,
// only its fingerprint.
type AnalysisRecord struct {
	ID          core.AnalysisID   `json:"id"`
	TestType    analysis.TestType `json:"testType"`
	DatasetName string            `json:"datasetName,omitempty"`
	DataHash    core.Hash         `json:"dataHash"`
	RowCount    int               `json:"rowCount"`
	Request     analysis.Request  `json:"request"`
	Result      *analysis.Result  `json:"result"`
	Narrative   *Narrative        `json:"narrative,omitempty"`
	Warning     string            `json:"warning,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// AnalysisFilters narrows a history listing
type AnalysisFilters struct {
	TestType analysis.TestType
	Limit    int
	Offset   int
}

// AnalysisSummary is the history list projection of a record
type AnalysisSummary struct {
	ID          core.AnalysisID   `json:"id"`
	TestType    analysis.TestType `json:"testType"`
	DatasetName string            `json:"datasetName,omitempty"`
	RowCount    int               `json:"rowCount"`
	Summary     string            `json:"summary"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// AnalysisRepository stores run history
type AnalysisRepository interface {
	Save(ctx context.Context, record *AnalysisRecord) error
	Get(ctx context.Context, id core.AnalysisID) (*AnalysisRecord, error)
	List(ctx context.Context, filters AnalysisFilters) ([]AnalysisSummary, error)
	Delete(ctx context.Context, id core.AnalysisID) error
}
