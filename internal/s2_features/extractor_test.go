package s2_features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/clv/backend/internal/contracts"
	"github.com/wonny/clv/backend/internal/frame"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func days(n int) time.Time {
	return day0.AddDate(0, 0, n)
}

// customer 1: three purchases (two lines in the first), customer 2: one purchase
func sampleTx() *frame.Frame {
	return frame.MustNew(
		frame.TimeColumn("date", []time.Time{days(0), days(0), days(7), days(14), days(10)}),
		frame.IntColumn("customer_id", []int64{1, 1, 1, 1, 2}),
		frame.IntColumn("transaction_id", []int64{100, 100, 101, 102, 200}),
		frame.FloatColumn("sales_amount", []float64{10, 20, 30, 60, 50}),
	)
}

func TestExtract(t *testing.T) {
	e := NewExtractor(DefaultColumns())

	features, err := e.Extract(sampleTx(), Observation{OffsetDays: 1})
	require.NoError(t, err)
	require.Equal(t, 2, features.Len())

	ids, _ := features.Ints("customer_id")
	freq, _ := features.Numeric("frequency")
	recency, _ := features.Numeric("recency")
	tenure, _ := features.Numeric("T")
	monetary, _ := features.Numeric("monetary")

	assert.Equal(t, []int64{1, 2}, ids)
	assert.Equal(t, []float64{2, 0}, freq)
	assert.Equal(t, []float64{14, 0}, recency)
	// 관측일 = 최대일(14) + 1
	assert.Equal(t, []float64{15, 5}, tenure)
	assert.Equal(t, []float64{40, 50}, monetary)
}

func TestExtract_CallerObservationDate(t *testing.T) {
	e := NewExtractor(DefaultColumns())

	features, err := e.Extract(sampleTx(), Observation{Date: days(30)})
	require.NoError(t, err)

	tenure, _ := features.Numeric("T")
	assert.Equal(t, []float64{30, 20}, tenure)

	_, err = e.Extract(sampleTx(), Observation{Date: days(5)})
	assert.ErrorIs(t, err, contracts.ErrInvalidValue)
}

func TestExtract_Errors(t *testing.T) {
	e := NewExtractor(DefaultColumns())

	noDate := frame.MustNew(
		frame.IntColumn("customer_id", []int64{1}),
		frame.IntColumn("transaction_id", []int64{1}),
		frame.FloatColumn("sales_amount", []float64{1}),
	)
	_, err := e.Extract(noDate, Observation{})
	assert.ErrorIs(t, err, contracts.ErrMissingColumn)

	empty := frame.MustNew(
		frame.TimeColumn("date", nil),
		frame.IntColumn("customer_id", nil),
		frame.IntColumn("transaction_id", nil),
		frame.FloatColumn("sales_amount", nil),
	)
	_, err = e.Extract(empty, Observation{})
	assert.ErrorIs(t, err, contracts.ErrEmptyInput)
}

func TestQualifying_ExcludesSingleTransactionCustomers(t *testing.T) {
	e := NewExtractor(DefaultColumns())

	features, err := e.Extract(sampleTx(), Observation{OffsetDays: 1})
	require.NoError(t, err)

	qualifying, err := e.Qualifying(features)
	require.NoError(t, err)

	ids, _ := qualifying.Ints("customer_id")
	assert.Equal(t, []int64{1}, ids, "customer 2 has frequency 0")
}

func TestQualifying_NegativeMonetary(t *testing.T) {
	e := NewExtractor(DefaultColumns())
	features := frame.MustNew(
		frame.IntColumn("customer_id", []int64{1, 2, 3}),
		frame.FloatColumn("frequency", []float64{1, 2, 3}),
		frame.FloatColumn("monetary", []float64{-5, 0, 10}),
	)

	qualifying, err := e.Qualifying(features)
	require.NoError(t, err)
	ids, _ := qualifying.Ints("customer_id")
	assert.Equal(t, []int64{2, 3}, ids)
}

func TestRepeatInputs_UnitConversion(t *testing.T) {
	e := NewExtractor(DefaultColumns())
	features := frame.MustNew(
		frame.IntColumn("customer_id", []int64{1}),
		frame.FloatColumn("frequency", []float64{2}),
		frame.FloatColumn("recency", []float64{14}),
		frame.FloatColumn("T", []float64{21}),
		frame.FloatColumn("monetary", []float64{40}),
	)

	in, err := e.RepeatInputs(features, contracts.UnitWeek)
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, in.Frequency)
	assert.Equal(t, []float64{2}, in.Recency)
	assert.Equal(t, []float64{3}, in.T)
	assert.Equal(t, contracts.UnitWeek, in.Unit)

	_, err = e.RepeatInputs(features, "Y")
	assert.ErrorIs(t, err, contracts.ErrInvalidValue)

	spend, err := e.SpendInputs(features)
	require.NoError(t, err)
	assert.Equal(t, []float64{40}, spend.Monetary)
}
