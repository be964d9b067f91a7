package quality

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/clv/backend/internal/contracts"
	"github.com/wonny/clv/backend/internal/frame"
)

func transactions() *frame.Frame {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return frame.MustNew(
		frame.IntColumn("customer_id", []int64{1, 1, 2, 3}),
		frame.TimeColumn("date", []time.Time{day, day.AddDate(0, 0, 3), day, {}}),
		frame.FloatColumn("unit_price", []float64{10, 20, math.NaN(), 40}),
		frame.StringColumn("sku", []string{"A", "B", "A", ""}),
	)
}

func TestQualityGate_Check(t *testing.T) {
	gate := NewQualityGate(Config{MinScore: 0.7})

	snapshot, err := gate.Check(transactions())
	require.NoError(t, err)

	assert.Equal(t, 4, snapshot.Rows)
	assert.Equal(t, 4, snapshot.Columns)
	assert.Equal(t, 1.0, snapshot.Coverage["customer_id"])
	assert.Equal(t, 0.75, snapshot.Coverage["date"])
	assert.Equal(t, 0.75, snapshot.Coverage["unit_price"])
	assert.Equal(t, 0.75, snapshot.Coverage["sku"])
	assert.InDelta(t, 0.8125, snapshot.QualityScore, 1e-9)
	assert.True(t, snapshot.Passed)
}

func TestQualityGate_RequiredColumns(t *testing.T) {
	gate := NewQualityGate(Config{MinScore: 0.9, Required: []string{"customer_id", "unit_price"}})

	snapshot, err := gate.Check(transactions())
	require.NoError(t, err)
	assert.InDelta(t, 0.875, snapshot.QualityScore, 1e-9)
	assert.False(t, snapshot.Passed)

	_, err = NewQualityGate(Config{Required: []string{"quantity"}}).Check(transactions())
	assert.ErrorIs(t, err, contracts.ErrMissingColumn)
}

func TestQualityGate_EmptyFrame(t *testing.T) {
	empty := frame.MustNew(frame.IntColumn("customer_id", nil))

	snapshot, err := NewQualityGate(Config{MinScore: 0}).Check(empty)
	require.NoError(t, err)
	assert.False(t, snapshot.Passed, "zero rows never pass")
}

func TestDescribe(t *testing.T) {
	f := transactions()

	ids := Describe(f, "customer_id")
	assert.Equal(t, "int", ids.Kind)
	assert.Equal(t, 3, ids.Unique)
	assert.Equal(t, 0, ids.Nulls)
	assert.Equal(t, 1.0, ids.Quantiles["0%"])
	assert.Equal(t, 1.5, ids.Quantiles["50%"])
	assert.Equal(t, 3.0, ids.Quantiles["100%"])

	price := Describe(f, "unit_price")
	assert.Equal(t, 1, price.Nulls)
	assert.Equal(t, 20.0, price.Quantiles["50%"])

	dates := Describe(f, "date")
	assert.Equal(t, 2, dates.Unique)
	assert.Equal(t, 1, dates.Nulls)
	assert.Nil(t, dates.Quantiles)
}
