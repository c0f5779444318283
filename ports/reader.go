package ports

import (
	"context"
	"io"

	"statlab/domain/dataset"
)

// DatasetReader parses uploaded CSV or spreadsheet files
type DatasetReader interface {
	Read(ctx context.Context, src io.Reader, filename string) (*dataset.Upload, error)
}
