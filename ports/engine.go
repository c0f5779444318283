package ports

import (
	"context"

	"statlab/domain/analysis"
)

// AnalysisEngine is the statistics computation engine as seen by the host
type AnalysisEngine interface {
	Catalog() []analysis.CatalogEntry
	Run(ctx context.Context, req *analysis.Request) (*analysis.Result, error)
	CheckAssumptions(ctx context.Context, req *analysis.Request) ([]analysis.AssumptionResult, error)
}
