package excel

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"statlab/domain/dataset"
)

func TestReadCSV(t *testing.T) {
	src := "\ufeffgroup,score,,score\n" +
		"a, 1.5 ,x,2\n" +
		",,,\n" +
		"b,,y\n"
	r := NewDataReader(DefaultReaderConfig(0), nil)

	upload, err := r.Read(context.Background(), strings.NewReader(src), "scores.csv")
	require.NoError(t, err)

	assert.Equal(t, "scores.csv", upload.Name)
	assert.Equal(t, []string{"group", "score", "column_3", "score_2"}, upload.Columns)
	require.Len(t, upload.Rows, 2, "blank rows are skipped")
	assert.Equal(t, 1.5, upload.Rows[0]["score"])
	assert.Equal(t, "a", upload.Rows[0]["group"])
	assert.Nil(t, upload.Rows[1]["score"])
	assert.Nil(t, upload.Rows[1]["score_2"], "short rows are padded with missing values")
}

func TestReadCSVKeepsNonFiniteAsText(t *testing.T) {
	r := NewDataReader(DefaultReaderConfig(0), nil)
	upload, err := r.Read(context.Background(), strings.NewReader("x\nNaN\n3\n"), "x.csv")
	require.NoError(t, err)

	assert.Equal(t, "NaN", upload.Rows[0]["x"])
	assert.Equal(t, 3.0, upload.Rows[1]["x"])
}

func TestReadInfersMeasures(t *testing.T) {
	var b strings.Builder
	b.WriteString("id,likert,city\n")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "%d,%d,%s\n", i+1, i%5+1, []string{"Oslo", "Lima"}[i%2])
	}
	r := NewDataReader(DefaultReaderConfig(0), nil)

	upload, err := r.Read(context.Background(), strings.NewReader(b.String()), "survey.csv")
	require.NoError(t, err)

	measures := map[string]dataset.Measure{}
	for _, v := range upload.Variables {
		measures[v.Name] = v.Measure
	}
	assert.Equal(t, dataset.MeasureScale, measures["id"])
	assert.Equal(t, dataset.MeasureOrdinal, measures["likert"])
	assert.Equal(t, dataset.MeasureNominal, measures["city"])
}

func TestReadRowLimit(t *testing.T) {
	r := NewDataReader(DefaultReaderConfig(2), nil)
	_, err := r.Read(context.Background(), strings.NewReader("x\n1\n2\n3\n"), "x.csv")
	assert.ErrorIs(t, err, ErrTooManyRows)
}

func TestReadRejectsUnknownExtension(t *testing.T) {
	r := NewDataReader(DefaultReaderConfig(0), nil)
	_, err := r.Read(context.Background(), strings.NewReader("x\n1\n"), "notes.docx")
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = r.Read(context.Background(), strings.NewReader("x\n"), "header-only.csv")
	assert.Error(t, err)
}

func TestReadCSVHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewDataReader(DefaultReaderConfig(0), nil)
	_, err := r.Read(ctx, strings.NewReader("x\n1\n"), "x.csv")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadExcelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"group", "score"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"control", 4}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"treatment", 7.25}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	r := NewDataReader(DefaultReaderConfig(0), nil)
	upload, err := r.ReadFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "scores.xlsx", upload.Name)
	assert.Equal(t, []string{"group", "score"}, upload.Columns)
	require.Len(t, upload.Rows, 2)
	assert.Equal(t, 4.0, upload.Rows[0]["score"])
	assert.Equal(t, 7.25, upload.Rows[1]["score"])
	assert.Equal(t, "treatment", upload.Rows[1]["group"])
	assert.Equal(t, 2, upload.Dataset().RowCount())
}
