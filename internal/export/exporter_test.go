package export

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/wonny/clv/backend/internal/contracts"
	"github.com/wonny/clv/backend/internal/frame"
	"github.com/wonny/clv/backend/internal/pipeline"
	"github.com/wonny/clv/backend/pkg/logger"
)

func sampleResult() *pipeline.RunResult {
	summary := frame.MustNew(
		frame.IntColumn("customer_id", []int64{2, 1}),
		frame.IntColumn("total_transactions", []int64{3, 1}),
		frame.FloatColumn("clv", []float64{1250000.5, 40}),
		frame.StringColumn("segment", []string{"A", "D"}),
	)
	predictions := frame.MustNew(
		frame.IntColumn("customer_id", []int64{2}),
		frame.FloatColumn("predicted_clv", []float64{math.NaN()}),
	)
	segments := []contracts.SegmentStats{
		{Label: "D", Count: 1, Mean: map[string]float64{"clv": 40}, Sum: map[string]float64{"clv": 40}},
		{Label: "A", Count: 1, Mean: map[string]float64{"clv": 1250000.5}, Sum: map[string]float64{"clv": 1250000.5}},
	}

	var state pipeline.State
	state = state.WithSummary(summary).WithPredictions(predictions)

	return &pipeline.RunResult{
		Report: &contracts.RunReport{
			RunID:           "run-1",
			CompletedStages: []string{"S0_DATA"},
			Segments:        segments,
			Customers:       []contracts.CustomerValue{{CustomerID: 2, CLV: 1250000.5, Segment: "A"}},
		},
		State: state,
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("parquet")
	assert.ErrorIs(t, err, contracts.ErrInvalidValue)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResult().State.Summary))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "customer_id,total_transactions,clv,segment", lines[0])
	assert.Equal(t, "2,3,1250000.5,A", lines[1], "no exponent notation")
}

func TestSegmentFrame(t *testing.T) {
	f := SegmentFrame(sampleResult().Report.Segments)

	assert.Equal(t, []string{"segment", "count", "mean_clv", "sum_clv"}, f.Names())
	labels, err := f.Strings("segment")
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "A"}, labels)
}

func TestExport_CSV(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir, logger.Nop())

	paths, err := e.Export(sampleResult(), FormatCSV)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(dir, "summary.csv"), paths[0])

	data, err := os.ReadFile(filepath.Join(dir, "predictions.csv"))
	require.NoError(t, err)
	assert.Equal(t, "customer_id,predicted_clv\n2,\n", string(data), "NaN is written empty")
}

func TestExport_XLSX(t *testing.T) {
	dir := t.TempDir()

	paths, err := NewExporter(dir, nil).Export(sampleResult(), FormatXLSX)
	require.NoError(t, err)
	require.Len(t, paths, 1)

	wb, err := excelize.OpenFile(paths[0])
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"summary", "predictions", "segments"}, wb.GetSheetList())
	rows, err := wb.GetRows("summary")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"customer_id", "total_transactions", "clv", "segment"}, rows[0])
	assert.Equal(t, "A", rows[1][3])
}

func TestExport_JSON(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir, nil)
	e.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }

	paths, err := e.Export(sampleResult(), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "clv_report_20240301_093000.json"), paths[0])

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	var report contracts.RunReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "run-1", report.RunID)
	assert.Len(t, report.Segments, 2)
}

func TestExport_Errors(t *testing.T) {
	e := NewExporter(t.TempDir(), nil)

	_, err := e.Export(nil, FormatCSV)
	assert.ErrorIs(t, err, contracts.ErrEmptyInput)

	_, err = e.Export(sampleResult(), Format("pdf"))
	assert.ErrorIs(t, err, contracts.ErrInvalidValue)
}

func TestTables_ActivityMatrix(t *testing.T) {
	result := sampleResult()
	assert.Len(t, Tables(result), 3)

	matrix := frame.MustNew(
		frame.FloatColumn("frequency", []float64{0, 1}),
		frame.FloatColumn("recency", []float64{0, 0}),
		frame.FloatColumn("p_alive", []float64{1, 0.4}),
	)
	result.State = result.State.WithActivity(nil, matrix)

	tables := Tables(result)
	require.Len(t, tables, 4)
	names := make([]string, len(tables))
	for i, tbl := range tables {
		names[i] = tbl.Name
	}
	assert.Equal(t, []string{"summary", "predictions", "activity_matrix", "segments"}, names)
	assert.Same(t, matrix, tables[2].Frame)
}
