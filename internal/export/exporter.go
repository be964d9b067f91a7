package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/clv/backend/internal/contracts"
	"github.com/wonny/clv/backend/internal/frame"
	"github.com/wonny/clv/backend/internal/pipeline"
	"github.com/wonny/clv/backend/pkg/logger"
)

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// ParseFormat parses csv, xlsx or json (case-insensitive)
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: export format %q (csv, xlsx, json)", contracts.ErrInvalidValue, s)
	}
}

// Table is one exported sheet / file
type Table struct {
	Name  string
	Frame *frame.Frame
}

// Exporter writes pipeline results to a directory
type Exporter struct {
	dir    string
	logger *logger.Logger
	now    func() time.Time
}

// NewExporter creates a new exporter writing into dir
func NewExporter(dir string, log *logger.Logger) *Exporter {
	if log == nil {
		log = logger.Nop()
	}
	return &Exporter{dir: dir, logger: log, now: time.Now}
}

// Export writes the result in the given format and returns the written paths
func (e *Exporter) Export(result *pipeline.RunResult, format Format) ([]string, error) {
	if result == nil || result.Report == nil {
		return nil, fmt.Errorf("export: %w", contracts.ErrEmptyInput)
	}
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	var (
		paths []string
		err   error
	)
	switch format {
	case FormatCSV:
		paths, err = e.writeCSV(Tables(result))
	case FormatXLSX:
		var path string
		path, err = e.writeXLSX(Tables(result))
		paths = []string{path}
	case FormatJSON:
		path := TimestampedFilename(e.dir, "clv_report", e.now())
		err = WriteJSON(path, result.Report)
		paths = []string{path}
	default:
		_, err = ParseFormat(string(format))
	}
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(map[string]interface{}{
		"format": string(format),
		"files":  len(paths),
		"run_id": result.Report.RunID,
	}).Info("Export completed")

	return paths, nil
}

// Tables returns the exported tables of a run: customer summary, model
// predictions, the frequency/recency activity grid and both segment reports.
func Tables(result *pipeline.RunResult) []Table {
	var tables []Table
	if result.State.Summary != nil {
		tables = append(tables, Table{Name: "summary", Frame: result.State.Summary})
	}
	if result.State.Predictions != nil {
		tables = append(tables, Table{Name: "predictions", Frame: result.State.Predictions})
	}
	if result.State.Activity != nil {
		tables = append(tables, Table{Name: "activity_matrix", Frame: result.State.Activity})
	}
	tables = append(tables, Table{Name: "segments", Frame: SegmentFrame(result.Report.Segments)})
	if len(result.Report.PredictedSegments) > 0 {
		tables = append(tables, Table{Name: "predicted_segments", Frame: SegmentFrame(result.Report.PredictedSegments)})
	}
	return tables
}

// SegmentFrame flattens segment stats into label, count, mean_<col>, sum_<col>
func SegmentFrame(stats []contracts.SegmentStats) *frame.Frame {
	labels := make([]string, len(stats))
	counts := make([]int64, len(stats))
	keys := map[string]struct{}{}
	for i, s := range stats {
		labels[i] = s.Label
		counts[i] = int64(s.Count)
		for k := range s.Mean {
			keys[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)

	cols := []frame.Column{
		frame.StringColumn("segment", labels),
		frame.IntColumn("count", counts),
	}
	for _, prefix := range []string{"mean", "sum"} {
		for _, name := range names {
			v := make([]float64, len(stats))
			for i, s := range stats {
				if prefix == "mean" {
					v[i] = s.Mean[name]
				} else {
					v[i] = s.Sum[name]
				}
			}
			cols = append(cols, frame.FloatColumn(prefix+"_"+name, v))
		}
	}
	return frame.MustNew(cols...)
}

// TimestampedFilename returns dir/name_YYYYMMDD_HHMMSS.json
func TimestampedFilename(dir, name string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.json", name, t.Format("20060102_150405")))
}

// cell formats a value for text output. NaN becomes empty.
func cell(v interface{}) string {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format("2006-01-02")
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
