package s3_model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/clv/backend/internal/contracts"
	"github.com/wonny/clv/backend/internal/frame"
	"github.com/wonny/clv/backend/internal/s2_features"
)

// stubRepeat: E[N(t)] = rate * t * (x + 1)
type stubRepeat struct {
	unit contracts.TimeUnit
	rate float64
}

func (s stubRepeat) Unit() contracts.TimeUnit { return s.unit }

func (s stubRepeat) ExpectedPurchases(t float64, in contracts.RepeatInputs) ([]float64, error) {
	out := make([]float64, in.Len())
	for i, x := range in.Frequency {
		out[i] = s.rate * t * (x + 1)
	}
	return out, nil
}

// stubSpend: E[M] = monetary
type stubSpend struct{}

func (stubSpend) ExpectedAverageProfit(in contracts.SpendInputs) ([]float64, error) {
	return append([]float64(nil), in.Monetary...), nil
}

type nanSpend struct{}

func (nanSpend) ExpectedAverageProfit(in contracts.SpendInputs) ([]float64, error) {
	out := make([]float64, in.Len())
	for i := range out {
		out[i] = math.NaN()
	}
	return out, nil
}

func sampleFeatures(t *testing.T) *frame.Frame {
	t.Helper()
	f, err := frame.New(
		frame.IntColumn("customer_id", []int64{1, 2, 3}),
		frame.FloatColumn("frequency", []float64{1, 3, 2}),
		frame.FloatColumn("recency", []float64{7, 14, 21}),
		frame.FloatColumn("T", []float64{28, 28, 35}),
		frame.FloatColumn("monetary", []float64{10, 20, 30}),
	)
	require.NoError(t, err)
	return f
}

func newTestPredictor() *Predictor {
	return NewPredictor(s2_features.NewExtractor(s2_features.DefaultColumns()), DefaultOutputColumns())
}

func TestPredictPurchases_SortedDescending(t *testing.T) {
	p := newTestPredictor()

	out, err := p.PredictPurchases(stubRepeat{unit: contracts.UnitWeek, rate: 0.1}, sampleFeatures(t), 1)
	require.NoError(t, err)

	ids, err := out.Ints("customer_id")
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 1}, ids)

	expected, err := out.Numeric("expected_purchases")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.4, 0.3, 0.2}, expected, 1e-12)
}

func TestExpectedAverageProfit_SortedDescending(t *testing.T) {
	p := newTestPredictor()

	out, err := p.ExpectedAverageProfit(stubSpend{}, sampleFeatures(t))
	require.NoError(t, err)

	ids, err := out.Ints("customer_id")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 1}, ids)
	assert.Equal(t, 3, out.Len())
}

func TestLifetimeValue(t *testing.T) {
	p := newTestPredictor()
	opts := LifetimeOptions{Months: 12, DiscountRate: 0.01, Unit: contracts.UnitWeek}

	out, err := p.LifetimeValue(stubRepeat{unit: contracts.UnitWeek, rate: 0.1}, stubSpend{}, sampleFeatures(t), opts)
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())
	assert.Equal(t, []string{"customer_id", "predicted_clv"}, out.Names())

	ids, err := out.Ints("customer_id")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids, "input order is kept")

	annuity := 0.0
	for i := 1; i <= 12; i++ {
		annuity += 1 / math.Pow(1.01, float64(i))
	}
	step := 0.1 * contracts.UnitWeek.PeriodsPerMonth()

	clv, err := out.Numeric("predicted_clv")
	require.NoError(t, err)
	assert.InDelta(t, 10*step*2*annuity, clv[0], 1e-9)
	assert.InDelta(t, 20*step*4*annuity, clv[1], 1e-9)
	assert.InDelta(t, 30*step*3*annuity, clv[2], 1e-9)
	for _, v := range clv {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestLifetimeValue_Errors(t *testing.T) {
	p := newTestPredictor()
	repeat := stubRepeat{unit: contracts.UnitWeek, rate: 0.1}
	features := sampleFeatures(t)

	tests := []struct {
		name  string
		spend contracts.SpendModel
		opts  LifetimeOptions
		want  error
	}{
		{"zero months", stubSpend{}, LifetimeOptions{Months: 0, Unit: contracts.UnitWeek}, contracts.ErrInvalidValue},
		{"unit mismatch", stubSpend{}, LifetimeOptions{Months: 12, Unit: contracts.UnitDay}, contracts.ErrInvalidValue},
		{"invalid unit", stubSpend{}, LifetimeOptions{Months: 12, Unit: "Y"}, contracts.ErrInvalidValue},
		{"discount rate", stubSpend{}, LifetimeOptions{Months: 12, DiscountRate: -1, Unit: contracts.UnitWeek}, contracts.ErrInvalidValue},
		{"non-finite result", nanSpend{}, LifetimeOptions{Months: 12, Unit: contracts.UnitWeek}, contracts.ErrModelFit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.LifetimeValue(repeat, tt.spend, features, tt.opts)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMergePredictions_UnmatchedIsNaN(t *testing.T) {
	p := newTestPredictor()
	predictions, err := frame.New(
		frame.IntColumn("customer_id", []int64{3, 1}),
		frame.FloatColumn("predicted_clv", []float64{300, 100}),
	)
	require.NoError(t, err)

	merged, err := p.MergePredictions(sampleFeatures(t), predictions)
	require.NoError(t, err)
	require.Equal(t, 3, merged.Len())

	clv, err := merged.Numeric("predicted_clv")
	require.NoError(t, err)
	assert.Equal(t, 100.0, clv[0])
	assert.True(t, math.IsNaN(clv[1]))
	assert.Equal(t, 300.0, clv[2])
}

func TestFitAndPredict_EndToEnd(t *testing.T) {
	p := newTestPredictor()
	features, err := frame.New(
		frame.IntColumn("customer_id", []int64{1, 2, 3, 4, 5, 6}),
		frame.FloatColumn("frequency", []float64{1, 2, 3, 1, 4, 2}),
		frame.FloatColumn("recency", []float64{30, 60, 90, 14, 120, 45}),
		frame.FloatColumn("T", []float64{150, 160, 170, 100, 180, 140}),
		frame.FloatColumn("monetary", []float64{25, 40, 30, 55, 35, 20}),
	)
	require.NoError(t, err)

	in, err := p.features.RepeatInputs(features, contracts.UnitWeek)
	require.NoError(t, err)
	repeat, err := NewBGNBDFitter(DefaultBGNBDPenalizer, 0).Fit(in)
	require.NoError(t, err)

	spendIn, err := p.features.SpendInputs(features)
	require.NoError(t, err)
	spend, err := NewGammaGammaFitter(DefaultGammaGammaPenalizer, 0).Fit(spendIn)
	require.NoError(t, err)

	out, err := p.LifetimeValue(repeat, spend, features, LifetimeOptions{Months: 12, DiscountRate: 0.01, Unit: contracts.UnitWeek})
	require.NoError(t, err)
	assert.Equal(t, features.Len(), out.Len())

	clv, err := out.Numeric("predicted_clv")
	require.NoError(t, err)
	for _, v := range clv {
		assert.False(t, math.IsNaN(v))
		assert.False(t, math.IsInf(v, 0))
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestProbabilityAlive_OptionalCapability(t *testing.T) {
	p := newTestPredictor()
	features := sampleFeatures(t)

	out, ok, err := p.ProbabilityAlive(stubRepeat{unit: contracts.UnitWeek, rate: 0.1}, features)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, out)

	model := &BGNBDModel{R: 0.243, Alpha: 4.414, A: 0.793, B: 2.426, TimeUnit: contracts.UnitWeek}
	out, ok, err = p.ProbabilityAlive(model, features)
	require.NoError(t, err)
	require.True(t, ok)

	ids, err := out.Ints("customer_id")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	alive, err := out.Numeric("p_alive")
	require.NoError(t, err)
	for _, v := range alive {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestActivityMatrix(t *testing.T) {
	p := newTestPredictor()
	features := sampleFeatures(t)
	model := &BGNBDModel{R: 0.243, Alpha: 4.414, A: 0.793, B: 2.426, TimeUnit: contracts.UnitWeek}

	out, err := p.ActivityMatrix(model, features)
	require.NoError(t, err)

	// frequency 0..3, recency 0..5주 (35일)
	assert.Equal(t, 4*6, out.Len())
	for _, name := range []string{MatrixFrequency, MatrixRecency, "expected_purchases", "p_alive"} {
		assert.True(t, out.Has(name), name)
	}

	// stub 모델은 p_alive 없음
	out, err = p.ActivityMatrix(stubRepeat{unit: contracts.UnitWeek, rate: 0.1}, features)
	require.NoError(t, err)
	assert.False(t, out.Has("p_alive"))
	assert.True(t, out.Has("expected_purchases"))
}
