package s4_segment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/clv/backend/internal/contracts"
	"github.com/wonny/clv/backend/internal/frame"
	"github.com/wonny/clv/backend/pkg/logger"
)

func clvFrame(t *testing.T, values ...float64) *frame.Frame {
	t.Helper()
	ids := make([]int64, len(values))
	sales := make([]float64, len(values))
	for i := range values {
		ids[i] = int64(i + 1)
		sales[i] = values[i] * 10
	}
	f, err := frame.New(
		frame.IntColumn("customer_id", ids),
		frame.FloatColumn("total_sales_amount", sales),
		frame.FloatColumn("clv", values),
	)
	require.NoError(t, err)
	return f
}

func TestDefaultLabels(t *testing.T) {
	assert.Equal(t, []string{"D", "C", "B", "A"}, DefaultLabels(4))
	assert.Equal(t, []string{"S1", "S2", "S3"}, DefaultLabels(3))
}

func TestEdges(t *testing.T) {
	edges, err := Edges([]float64{1, 2, 3, 4, 5, 6, 7, 8}, 4)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 2.75, 4.5, 6.25, 8}, edges, 1e-12)

	_, err = Edges([]float64{5, 5, 5, 5}, 4)
	assert.ErrorIs(t, err, contracts.ErrInvalidValue)

	_, err = Edges([]float64{1, 2}, 0)
	assert.ErrorIs(t, err, contracts.ErrInvalidValue)
}

func TestAssign_Quartiles(t *testing.T) {
	s := NewSegmenter(logger.Nop())
	f := clvFrame(t, 3, 8, 1, 6, 2, 7, 5, 4)

	out, err := s.Assign(f, Options{ValueColumn: "clv"})
	require.NoError(t, err)

	values, err := out.Numeric("clv")
	require.NoError(t, err)
	assert.Equal(t, []float64{8, 7, 6, 5, 4, 3, 2, 1}, values, "sorted by value descending")

	segments, err := out.Strings("segment")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "A", "B", "B", "C", "C", "D", "D"}, segments)

	// 원본은 변경되지 않음
	assert.False(t, f.Has("segment"))
}

func TestAssign_GroupSizesNearEqual(t *testing.T) {
	s := NewSegmenter(nil)
	values := make([]float64, 37)
	for i := range values {
		values[i] = float64(i*i) + 0.5
	}

	out, err := s.Assign(clvFrame(t, values...), Options{ValueColumn: "clv", SegmentColumn: "tier"})
	require.NoError(t, err)

	segments, err := out.Strings("tier")
	require.NoError(t, err)
	counts := map[string]int{}
	for _, seg := range segments {
		counts[seg]++
	}
	assert.Len(t, counts, 4)
	limit := int(math.Ceil(37.0 / 4))
	for label, n := range counts {
		assert.InDelta(t, 37.0/4, float64(n), float64(limit), label)
	}
}

func TestAssign_CustomLabels(t *testing.T) {
	s := NewSegmenter(nil)

	out, err := s.Assign(clvFrame(t, 10, 20, 30), Options{ValueColumn: "clv", Labels: []string{"low", "high"}})
	require.NoError(t, err)

	segments, err := out.Strings("segment")
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "high", "low"}, segments)

	// 재실행은 같은 컬럼을 덮어씀
	again, err := s.Assign(out, Options{ValueColumn: "clv", Labels: []string{"x"}})
	require.NoError(t, err)
	segments, err = again.Strings("segment")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "x", "x"}, segments)
	assert.Len(t, again.Names(), len(out.Names()))
}

func TestAssign_Errors(t *testing.T) {
	s := NewSegmenter(nil)

	_, err := s.Assign(clvFrame(t, 1, 2, 3, 4), Options{ValueColumn: "missing"})
	assert.ErrorIs(t, err, contracts.ErrMissingColumn)

	_, err = s.Assign(clvFrame(t, 1, math.NaN(), 3, 4), Options{ValueColumn: "clv"})
	assert.ErrorIs(t, err, contracts.ErrInvalidValue)

	_, err = s.Assign(clvFrame(t, 1, 1, 1, 1, 2), Options{ValueColumn: "clv"})
	assert.ErrorIs(t, err, contracts.ErrInvalidValue)

	_, err = s.Assign(clvFrame(t), Options{ValueColumn: "clv"})
	assert.ErrorIs(t, err, contracts.ErrEmptyInput)
}

func TestSummarize_MassConservation(t *testing.T) {
	s := NewSegmenter(nil)
	f := clvFrame(t, 3, 8, 1, 6, 2, 7, 5, 4)

	segmented, err := s.Assign(f, Options{ValueColumn: "clv"})
	require.NoError(t, err)

	stats, err := s.Summarize(segmented, "segment", DefaultLabels(4), "customer_id")
	require.NoError(t, err)
	require.Len(t, stats, 4)

	labels := make([]string, len(stats))
	total := 0.0
	customers := 0
	for i, st := range stats {
		labels[i] = st.Label
		total += st.Sum["total_sales_amount"]
		customers += st.Count
		assert.NotContains(t, st.Sum, "customer_id")
	}
	assert.Equal(t, []string{"D", "C", "B", "A"}, labels, "label order, not alphabetical")
	assert.Equal(t, 8, customers)

	sales, err := f.Numeric("total_sales_amount")
	require.NoError(t, err)
	assert.InDelta(t, frame.Sum(sales), total, 1e-9)

	assert.Equal(t, 2, stats[0].Count)
	assert.InDelta(t, 1.5, stats[0].Mean["clv"], 1e-12)
	assert.InDelta(t, 15.0, stats[3].Sum["clv"], 1e-12)
}

func TestSummarize_EmptySegment(t *testing.T) {
	s := NewSegmenter(nil)
	f, err := frame.New(
		frame.IntColumn("customer_id", []int64{1, 2}),
		frame.FloatColumn("clv", []float64{10, math.NaN()}),
		frame.StringColumn("segment", []string{"A", "A"}),
	)
	require.NoError(t, err)

	stats, err := s.Summarize(f, "segment", []string{"B", "A"}, "customer_id")
	require.NoError(t, err)

	assert.Equal(t, 0, stats[0].Count)
	assert.Equal(t, map[string]float64{"clv": 0}, stats[0].Mean)
	assert.Equal(t, map[string]float64{"clv": 0}, stats[0].Sum, "빈 세그먼트도 컬럼 키 유지")

	assert.Equal(t, 2, stats[1].Count)
	assert.Equal(t, 10.0, stats[1].Mean["clv"], "NaN is skipped")
	assert.Equal(t, 10.0, stats[1].Sum["clv"])
}

func TestSummarize_MeanIsSumOverCount(t *testing.T) {
	s := NewSegmenter(nil)
	f, err := frame.New(
		frame.IntColumn("customer_id", []int64{1, 2, 3, 4, 5}),
		frame.FloatColumn("clv", []float64{10, 20, 30, 5, 15}),
		frame.StringColumn("segment", []string{"A", "A", "A", "B", "B"}),
	)
	require.NoError(t, err)

	stats, err := s.Summarize(f, "segment", []string{"B", "A"}, "customer_id")
	require.NoError(t, err)

	for _, st := range stats {
		assert.InDelta(t, st.Sum["clv"]/float64(st.Count), st.Mean["clv"], 1e-12, st.Label)
	}
	assert.Equal(t, 20.0, stats[0].Sum["clv"])
	assert.Equal(t, 60.0, stats[1].Sum["clv"])
	assert.Equal(t, 20.0, stats[1].Mean["clv"])
}
