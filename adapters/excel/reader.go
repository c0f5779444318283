package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"statlab/adapters/datareadiness/coercer"
	"statlab/domain/dataset"
	"statlab/internal"
)

// ErrUnsupportedFile is returned for anything that is not CSV or XLSX
var ErrUnsupportedFile = errors.New("unsupported dataset file")

// ErrTooManyRows is returned when a file exceeds the configured row limit
var ErrTooManyRows = errors.New("dataset exceeds the row limit")

// DataReader handles reading Excel and CSV uploads
type DataReader struct {
	config  ReaderConfig
	coercer *coercer.TypeCoercer
	logger  *internal.Logger
}

// NewDataReader creates a reader that handles both Excel and CSV files
func NewDataReader(config ReaderConfig, logger *internal.Logger) *DataReader {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &DataReader{
		config:  config,
		coercer: coercer.NewTypeCoercer(config.Coercion),
		logger:  logger,
	}
}

// ReadFile opens path and parses it according to its extension
func (r *DataReader) ReadFile(ctx context.Context, path string) (*dataset.Upload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer f.Close()
	return r.Read(ctx, f, filepath.Base(path))
}

// Read parses an uploaded stream; the filename extension selects the format
func (r *DataReader) Read(ctx context.Context, src io.Reader, filename string) (*dataset.Upload, error) {
	start := time.Now()
	var (
		rows [][]string
		err  error
	)
	switch kind := fileType(filename); kind {
	case "csv":
		rows, err = r.readCSV(ctx, src)
	case "xlsx":
		rows, err = r.readExcel(src)
	default:
		return nil, fmt.Errorf("%w: %q (expected .csv or .xlsx)", ErrUnsupportedFile, filename)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s must have a header row and at least one data row", filename)
	}
	if r.config.MaxRows > 0 && len(rows)-1 > r.config.MaxRows {
		return nil, fmt.Errorf("%w: %d rows, limit %d", ErrTooManyRows, len(rows)-1, r.config.MaxRows)
	}

	upload := r.processRows(rows)
	upload.Name = filename
	upload.Variables = r.InferVariables(upload)

	r.logger.Debug("[DataReader] %s parsed in %.2fms (%d columns, %d rows)",
		filename, float64(time.Since(start).Nanoseconds())/1e6, len(upload.Columns), len(upload.Rows))
	return upload, nil
}

func fileType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return "csv"
	case ".xlsx", ".xlsm":
		return "xlsx"
	}
	return ""
}

// readExcel reads the first worksheet
func (r *DataReader) readExcel(src io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := r.config.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("Excel file has no worksheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func (r *DataReader) readCSV(ctx context.Context, src io.Reader) ([][]string, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if r.config.Delimiter != 0 {
		reader.Comma = r.config.Delimiter
	}

	var rows [][]string
	for {
		if len(rows)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV file: %w", err)
		}
		rows = append(rows, record)
		if r.config.MaxRows > 0 && len(rows)-1 > r.config.MaxRows {
			return nil, fmt.Errorf("%w: more than %d rows", ErrTooManyRows, r.config.MaxRows)
		}
	}
	return rows, nil
}

// processRows converts raw string rows into typed dataset rows
func (r *DataReader) processRows(rows [][]string) *dataset.Upload {
	headers := uniqueHeaders(rows[0])

	upload := &dataset.Upload{Columns: headers, Rows: make([]dataset.Row, 0, len(rows)-1)}
	for _, raw := range rows[1:] {
		if blank(raw) {
			continue
		}
		row := make(dataset.Row, len(headers))
		for j, header := range headers {
			if j < len(raw) {
				row[header] = cellValue(raw[j])
			} else {
				row[header] = nil
			}
		}
		upload.Rows = append(upload.Rows, row)
	}
	return upload
}

// uniqueHeaders trims header cells, names empty ones by position and
// suffixes duplicates so every column can be addressed.
func uniqueHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		if n := seen[h]; n > 0 {
			seen[h] = n + 1
			h = fmt.Sprintf("%s_%d", h, n+1)
		}
		seen[h]++
		headers[i] = h
	}
	return headers
}

func blank(raw []string) bool {
	for _, cell := range raw {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// cellValue keeps numbers as float64, empty cells as nil and everything else as text
func cellValue(cell string) interface{} {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return cell
}

// InferVariables proposes a measure for every column from its values
func (r *DataReader) InferVariables(upload *dataset.Upload) []dataset.VariableDescriptor {
	vars := make([]dataset.VariableDescriptor, 0, len(upload.Columns))
	for _, name := range upload.Columns {
		values := make([]interface{}, len(upload.Rows))
		for i, row := range upload.Rows {
			values[i] = row[name]
		}
		analysis := r.coercer.AnalyzeTypeDistribution(values)
		vars = append(vars, dataset.VariableDescriptor{Name: name, Measure: analysis.RecommendedMeasure})
	}
	return vars
}
