package s1_summary

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/clv/backend/internal/contracts"
	"github.com/wonny/clv/backend/internal/frame"
)

// scenario: (cust=1, amt=100), (cust=1, amt=50), (cust=2, amt=200)
func scenarioTx() *frame.Frame {
	return frame.MustNew(
		frame.IntColumn("customer_id", []int64{1, 1, 2}),
		frame.IntColumn("transaction_id", []int64{10, 11, 20}),
		frame.IntColumn("quantity", []int64{2, 1, 4}),
		frame.FloatColumn("unit_price", []float64{50, 50, 50}),
	)
}

func newTestBuilder() *Builder {
	return NewBuilder(DefaultColumns())
}

func summaryOf(t *testing.T, b *Builder, tx *frame.Frame) *frame.Frame {
	t.Helper()
	withAmount, err := b.SalesAmount(tx)
	require.NoError(t, err)
	summary, err := b.CustomerSummary(withAmount)
	require.NoError(t, err)
	return summary
}

func TestSalesAmount(t *testing.T) {
	b := newTestBuilder()
	tx := scenarioTx()

	out, err := b.SalesAmount(tx)
	require.NoError(t, err)

	amount, _ := out.Numeric("sales_amount")
	assert.Equal(t, []float64{100, 50, 200}, amount)
	assert.False(t, tx.Has("sales_amount"), "input frame must not change")

	again, err := b.SalesAmount(out)
	require.NoError(t, err)
	amount2, _ := again.Numeric("sales_amount")
	assert.Equal(t, amount, amount2, "idempotent")
	assert.Equal(t, out.Names(), again.Names())
}

func TestSalesAmount_MissingColumn(t *testing.T) {
	tx := frame.MustNew(frame.FloatColumn("unit_price", []float64{1}))

	_, err := newTestBuilder().SalesAmount(tx)
	var mce *contracts.MissingColumnError
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, "quantity", mce.Column)
}

func TestCustomerSummary_Scenario(t *testing.T) {
	b := newTestBuilder()
	summary := summaryOf(t, b, scenarioTx())

	ids, _ := summary.Ints("customer_id")
	tt, _ := summary.Ints("total_transactions")
	sales, _ := summary.Numeric("total_sales_amount")

	assert.Equal(t, []int64{1, 2}, ids, "first appearance order")
	assert.Equal(t, []int64{2, 1}, tt)
	assert.Equal(t, []float64{150, 200}, sales)

	repeat, err := b.RepeatRate(summary)
	require.NoError(t, err)
	assert.Equal(t, 0.5, repeat.Rate)
	assert.False(t, repeat.NoRepeatCustomers)

	churn, err := ChurnRate(repeat.Rate)
	require.NoError(t, err)
	assert.Equal(t, 0.5, churn)
}

func TestCustomerSummary_DistinctTransactions(t *testing.T) {
	tx := frame.MustNew(
		frame.IntColumn("customer_id", []int64{5, 5, 5, 6}),
		frame.IntColumn("transaction_id", []int64{1, 1, 2, 3}),
		frame.FloatColumn("sales_amount", []float64{1, 2, 3, 4}),
	)

	summary, err := newTestBuilder().CustomerSummary(tx)
	require.NoError(t, err)

	tt, _ := summary.Ints("total_transactions")
	sales, _ := summary.Numeric("total_sales_amount")
	assert.Equal(t, []int64{2, 1}, tt)
	assert.Equal(t, []float64{6, 4}, sales)
}

func TestCustomerSummary_Errors(t *testing.T) {
	b := newTestBuilder()

	empty := frame.MustNew(
		frame.IntColumn("customer_id", nil),
		frame.IntColumn("transaction_id", nil),
		frame.FloatColumn("sales_amount", nil),
	)
	_, err := b.CustomerSummary(empty)
	assert.ErrorIs(t, err, contracts.ErrEmptyInput)

	_, err = b.CustomerSummary(scenarioTx())
	assert.ErrorIs(t, err, contracts.ErrMissingColumn)
}

func TestDerivedMetrics(t *testing.T) {
	b := newTestBuilder()
	summary := summaryOf(t, b, scenarioTx())

	summary, err := b.AverageOrderValue(summary)
	require.NoError(t, err)
	aov, _ := summary.Numeric("average_order_value")
	assert.Equal(t, []float64{75, 200}, aov)

	summary, err = b.PurchaseFrequency(summary)
	require.NoError(t, err)
	pf, _ := summary.Numeric("purchase_frequency")
	assert.Equal(t, []float64{1, 0.5}, pf)

	summary, err = b.ProfitMargin(summary, 0.10)
	require.NoError(t, err)
	pm, _ := summary.Numeric("profit_margin")
	assert.InDeltaSlice(t, []float64{15, 20}, pm, 1e-9)

	summary, err = b.CustomerValue(summary)
	require.NoError(t, err)
	cv, _ := summary.Numeric("customer_value")
	assert.Equal(t, []float64{75, 100}, cv)

	summary, err = b.CLV(summary, 0.5)
	require.NoError(t, err)
	clv, _ := summary.Numeric("clv")
	assert.InDeltaSlice(t, []float64{2250, 4000}, clv, 1e-9)
}

func TestDerivedMetrics_MissingDependency(t *testing.T) {
	b := newTestBuilder()
	summary := summaryOf(t, b, scenarioTx())

	_, err := b.CustomerValue(summary)
	var mce *contracts.MissingColumnError
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, "average_order_value", mce.Column)

	_, err = b.CLV(summary, 0.5)
	assert.ErrorIs(t, err, contracts.ErrMissingColumn)
}

func TestDerivedMetrics_EmptySummary(t *testing.T) {
	b := newTestBuilder()
	empty := frame.MustNew(
		frame.IntColumn("customer_id", nil),
		frame.IntColumn("total_transactions", nil),
		frame.FloatColumn("total_sales_amount", nil),
	)

	_, err := b.AverageOrderValue(empty)
	assert.ErrorIs(t, err, contracts.ErrEmptyInput)
	_, err = b.PurchaseFrequency(empty)
	assert.ErrorIs(t, err, contracts.ErrEmptyInput)
	_, err = b.RepeatRate(empty)
	assert.ErrorIs(t, err, contracts.ErrEmptyInput)
	_, err = b.ProfitMargin(empty, 0.1)
	assert.ErrorIs(t, err, contracts.ErrEmptyInput)
}

func TestRepeatRate_NoRepeatCustomers(t *testing.T) {
	b := newTestBuilder()
	tx := frame.MustNew(
		frame.IntColumn("customer_id", []int64{1, 2}),
		frame.IntColumn("transaction_id", []int64{1, 2}),
		frame.FloatColumn("sales_amount", []float64{10, 20}),
	)
	summary, err := b.CustomerSummary(tx)
	require.NoError(t, err)

	repeat, err := b.RepeatRate(summary)
	require.NoError(t, err, "no repeat customers is a warning, not an error")
	assert.True(t, repeat.NoRepeatCustomers)
	assert.Equal(t, 0.0, repeat.Rate)

	churn, err := ChurnRate(repeat.Rate)
	require.NoError(t, err)
	assert.Equal(t, 1.0, churn)
}

func TestCLV_AllCustomersRepeat(t *testing.T) {
	b := newTestBuilder()
	tx := frame.MustNew(
		frame.IntColumn("customer_id", []int64{1, 1, 2, 2}),
		frame.IntColumn("transaction_id", []int64{1, 2, 3, 4}),
		frame.FloatColumn("sales_amount", []float64{10, 20, 30, 40}),
	)
	summary, err := b.CustomerSummary(tx)
	require.NoError(t, err)

	repeat, err := b.RepeatRate(summary)
	require.NoError(t, err)
	require.Equal(t, 1.0, repeat.Rate)

	churn, err := ChurnRate(repeat.Rate)
	require.NoError(t, err)

	summary, _ = b.AverageOrderValue(summary)
	summary, _ = b.PurchaseFrequency(summary)
	summary, _ = b.ProfitMargin(summary, 0.1)
	summary, _ = b.CustomerValue(summary)

	_, err = b.CLV(summary, churn)
	assert.ErrorIs(t, err, contracts.ErrInvalidValue)
}

func TestChurnRate_OutOfRange(t *testing.T) {
	for _, r := range []float64{-0.1, 1.1} {
		_, err := ChurnRate(r)
		assert.ErrorIs(t, err, contracts.ErrInvalidValue)
	}
}

func TestProfitMargin_InvalidRate(t *testing.T) {
	b := newTestBuilder()
	summary := summaryOf(t, b, scenarioTx())

	_, err := b.ProfitMargin(summary, -1)
	assert.ErrorIs(t, err, contracts.ErrInvalidValue)
}
