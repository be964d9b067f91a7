package s4_segment

import (
	"fmt"
	"math"
	"sort"

	"github.com/wonny/clv/backend/internal/contracts"
	"github.com/wonny/clv/backend/internal/frame"
	"github.com/wonny/clv/backend/pkg/logger"
)

// standardLabels lowest → highest value
var standardLabels = []string{"D", "C", "B", "A"}

// DefaultLabels returns n ordinal labels, lowest first.
// n == 4 gives D, C, B, A; other counts give S1 … Sn.
func DefaultLabels(n int) []string {
	if n == len(standardLabels) {
		return append([]string(nil), standardLabels...)
	}
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("S%d", i+1)
	}
	return labels
}

// Options selects the value to bucket and the labels to use
type Options struct {
	ValueColumn   string
	SegmentColumn string   // 기본: "segment"
	Labels        []string // 낮은 값 → 높은 값, 기본: D, C, B, A
}

// Segmenter implements S4: quantile segmentation and segment reports
// ⭐ SSOT: S4 세그먼트 로직은 여기서만
type Segmenter struct {
	logger *logger.Logger
}

// NewSegmenter creates a new segmenter
func NewSegmenter(log *logger.Logger) *Segmenter {
	if log == nil {
		log = logger.Nop()
	}
	return &Segmenter{logger: log}
}

// Assign buckets ValueColumn into len(Labels) quantile bins and writes the
// label to SegmentColumn. Bins are [e_i, e_i+1) with the last one closed.
// The result is sorted by value, descending.
func (s *Segmenter) Assign(f *frame.Frame, opts Options) (*frame.Frame, error) {
	if opts.SegmentColumn == "" {
		opts.SegmentColumn = "segment"
	}
	if len(opts.Labels) == 0 {
		opts.Labels = DefaultLabels(len(standardLabels))
	}

	values, err := f.Numeric(opts.ValueColumn)
	if err != nil {
		return nil, fmt.Errorf("assign segments: %w", err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("assign segments: %w", contracts.ErrEmptyInput)
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("assign segments: %w: non-finite %s at row %d",
				contracts.ErrInvalidValue, opts.ValueColumn, i)
		}
	}

	edges, err := Edges(values, len(opts.Labels))
	if err != nil {
		return nil, fmt.Errorf("assign segments: %w", err)
	}

	segments := make([]string, len(values))
	for i, v := range values {
		segments[i] = opts.Labels[bin(edges, v)]
	}

	out, err := f.WithStrings(opts.SegmentColumn, segments)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"column":   opts.ValueColumn,
		"segments": len(opts.Labels),
		"rows":     len(values),
	}).Debug("Segments assigned")

	return out.SortBy(opts.ValueColumn, true)
}

// Edges returns the n+1 quantile edges of values. Equal neighbouring edges
// cannot form a bin and are rejected.
func Edges(values []float64, n int) ([]float64, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d segments", contracts.ErrInvalidValue, n)
	}
	qs := make([]float64, n+1)
	for i := range qs {
		qs[i] = float64(i) / float64(n)
	}
	edges := frame.Quantiles(values, qs...)
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return nil, fmt.Errorf("%w: duplicate bin edge %v", contracts.ErrInvalidValue, edges[i])
		}
	}
	return edges, nil
}

// bin returns the index of the bin holding v
func bin(edges []float64, v float64) int {
	last := len(edges) - 2
	// 첫 번째 e_(i+1) > v
	i := sort.Search(len(edges)-1, func(k int) bool { return edges[k+1] > v })
	if i > last {
		return last
	}
	return i
}

// Summarize reports count, mean and sum of every numeric column except
// keyColumn, per label in label order. Empty segments report zeros.
func (s *Segmenter) Summarize(f *frame.Frame, segmentColumn string, labels []string, keyColumn string) ([]contracts.SegmentStats, error) {
	segments, err := f.Strings(segmentColumn)
	if err != nil {
		return nil, fmt.Errorf("summarize segments: %w", err)
	}

	var columns []string
	for _, name := range f.NumericNames() {
		if name != keyColumn {
			columns = append(columns, name)
		}
	}

	index := make(map[string]int, len(labels))
	stats := make([]contracts.SegmentStats, len(labels))
	counts := make([]map[string]int, len(labels)) // NaN 제외 개수 (평균 분모)
	for i, label := range labels {
		index[label] = i
		stats[i] = contracts.SegmentStats{
			Label: label,
			Mean:  make(map[string]float64, len(columns)),
			Sum:   make(map[string]float64, len(columns)),
		}
		counts[i] = make(map[string]int, len(columns))
		for _, name := range columns {
			stats[i].Sum[name] = 0
			stats[i].Mean[name] = 0
		}
	}

	for _, seg := range segments {
		if i, ok := index[seg]; ok {
			stats[i].Count++
		}
	}

	for _, name := range columns {
		values, err := f.Numeric(name)
		if err != nil {
			return nil, fmt.Errorf("summarize segments: %w", err)
		}
		for row, v := range values {
			i, ok := index[segments[row]]
			if !ok || math.IsNaN(v) {
				continue
			}
			stats[i].Sum[name] += v
			counts[i][name]++
		}
	}

	for i := range stats {
		for _, name := range columns {
			if n := counts[i][name]; n > 0 {
				stats[i].Mean[name] = stats[i].Sum[name] / float64(n)
			}
		}
	}
	return stats, nil
}
