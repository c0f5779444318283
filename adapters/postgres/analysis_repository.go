package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"statlab/domain/analysis"
	"statlab/domain/core"
	"statlab/internal/errors"
	"statlab/ports"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Connect opens the run-history database without touching the schema.
// driver is "postgres" or "sqlite3".
func Connect(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, errors.DatabaseError(fmt.Sprintf("failed to connect to %s", driver), err)
	}
	if driver == "sqlite3" {
		// a single writer avoids "database is locked" under concurrent saves
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// Open connects and applies pending migrations
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	db, err := Connect(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := NewMigrator(db).Up(ctx); err != nil {
		db.Close()
		return nil, errors.DatabaseError("failed to migrate schema", err)
	}
	return db, nil
}

// AnalysisRepositoryImpl implements ports.AnalysisRepository on sqlx
type AnalysisRepositoryImpl struct {
	db *sqlx.DB
}

// NewAnalysisRepository creates a new analysis history repository
func NewAnalysisRepository(db *sqlx.DB) ports.AnalysisRepository {
	return &AnalysisRepositoryImpl{db: db}
}

type analysisRow struct {
	ID          string         `db:"id"`
	TestType    string         `db:"test_type"`
	DatasetName string         `db:"dataset_name"`
	DataHash    string         `db:"data_hash"`
	RowCount    int            `db:"row_count"`
	Summary     string         `db:"summary"`
	Warning     string         `db:"warning"`
	Request     string         `db:"request"`
	Result      string         `db:"result"`
	Narrative   sql.NullString `db:"narrative"`
	CreatedAt   time.Time      `db:"created_at"`
}

// Save inserts or replaces a record; the request rows are never persisted
func (r *AnalysisRepositoryImpl) Save(ctx context.Context, record *ports.AnalysisRecord) error {
	if record == nil || record.Result == nil {
		return errors.ValidationError("analysis record requires a result")
	}
	if record.ID == "" {
		record.ID = core.NewAnalysisID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	record.CreatedAt = record.CreatedAt.UTC().Truncate(time.Microsecond)

	req := record.Request
	req.Data = nil
	requestJSON, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	resultJSON, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	var narrative sql.NullString
	if record.Narrative != nil {
		raw, err := json.Marshal(record.Narrative)
		if err != nil {
			return fmt.Errorf("marshal narrative: %w", err)
		}
		narrative = sql.NullString{String: string(raw), Valid: true}
	}

	row := analysisRow{
		ID:          record.ID.String(),
		TestType:    string(record.TestType),
		DatasetName: record.DatasetName,
		DataHash:    record.DataHash.String(),
		RowCount:    record.RowCount,
		Summary:     record.Result.Summary,
		Warning:     record.Warning,
		Request:     string(requestJSON),
		Result:      string(resultJSON),
		Narrative:   narrative,
		CreatedAt:   record.CreatedAt,
	}

	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO analyses (
			id, test_type, dataset_name, data_hash, row_count, summary, warning,
			request, result, narrative, created_at
		) VALUES (
			:id, :test_type, :dataset_name, :data_hash, :row_count, :summary, :warning,
			:request, :result, :narrative, :created_at
		)
		ON CONFLICT (id) DO UPDATE SET
			summary = EXCLUDED.summary,
			warning = EXCLUDED.warning,
			result = EXCLUDED.result,
			narrative = EXCLUDED.narrative`, row)
	if err != nil {
		return errors.DatabaseError("failed to save analysis", err)
	}
	return nil
}

// Get loads one record by ID
func (r *AnalysisRepositoryImpl) Get(ctx context.Context, id core.AnalysisID) (*ports.AnalysisRecord, error) {
	var row analysisRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT id, test_type, dataset_name, data_hash, row_count, summary, warning,
		       request, result, narrative, created_at
		FROM analyses
		WHERE id = ?`), id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("analysis " + id.String())
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load analysis", err)
	}
	return row.record()
}

func (row analysisRow) record() (*ports.AnalysisRecord, error) {
	rec := &ports.AnalysisRecord{
		ID:          core.AnalysisID(row.ID),
		TestType:    analysis.TestType(row.TestType),
		DatasetName: row.DatasetName,
		DataHash:    core.Hash(row.DataHash),
		RowCount:    row.RowCount,
		Warning:     row.Warning,
		CreatedAt:   row.CreatedAt.UTC(),
	}
	if err := json.Unmarshal([]byte(row.Request), &rec.Request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}
	rec.Result = &analysis.Result{}
	if err := json.Unmarshal([]byte(row.Result), rec.Result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	if row.Narrative.Valid {
		rec.Narrative = &ports.Narrative{}
		if err := json.Unmarshal([]byte(row.Narrative.String), rec.Narrative); err != nil {
			return nil, fmt.Errorf("failed to unmarshal narrative: %w", err)
		}
	}
	return rec, nil
}

// List returns the newest records first
func (r *AnalysisRepositoryImpl) List(ctx context.Context, filters ports.AnalysisFilters) ([]ports.AnalysisSummary, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT id, test_type, dataset_name, row_count, summary, created_at FROM analyses`
	var args []interface{}
	if filters.TestType != "" {
		query += ` WHERE test_type = ?`
		args = append(args, string(filters.TestType))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	var rows []struct {
		ID          string    `db:"id"`
		TestType    string    `db:"test_type"`
		DatasetName string    `db:"dataset_name"`
		RowCount    int       `db:"row_count"`
		Summary     string    `db:"summary"`
		CreatedAt   time.Time `db:"created_at"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, errors.DatabaseError("failed to list analyses", err)
	}

	out := make([]ports.AnalysisSummary, len(rows))
	for i, row := range rows {
		out[i] = ports.AnalysisSummary{
			ID:          core.AnalysisID(row.ID),
			TestType:    analysis.TestType(row.TestType),
			DatasetName: row.DatasetName,
			RowCount:    row.RowCount,
			Summary:     row.Summary,
			CreatedAt:   row.CreatedAt.UTC(),
		}
	}
	return out, nil
}

// Delete removes a record; deleting a missing record is NotFound
func (r *AnalysisRepositoryImpl) Delete(ctx context.Context, id core.AnalysisID) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM analyses WHERE id = ?`), id.String())
	if err != nil {
		return errors.DatabaseError("failed to delete analysis", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NotFound("analysis " + id.String())
	}
	return nil
}
