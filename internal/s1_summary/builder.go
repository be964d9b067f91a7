package s1_summary

import (
	"fmt"
	"math"

	"github.com/wonny/clv/backend/internal/contracts"
	"github.com/wonny/clv/backend/internal/frame"
)

// Columns names every input and output column used by S1
type Columns struct {
	CustomerID    string
	TransactionID string
	Quantity      string
	UnitPrice     string

	SalesAmount       string
	TotalTransactions string
	TotalSalesAmount  string
	AverageOrderValue string
	PurchaseFrequency string
	ProfitMargin      string
	CustomerValue     string
	CLV               string
}

// DefaultColumns returns the standard column names
func DefaultColumns() Columns {
	return Columns{
		CustomerID:        "customer_id",
		TransactionID:     "transaction_id",
		Quantity:          "quantity",
		UnitPrice:         "unit_price",
		SalesAmount:       "sales_amount",
		TotalTransactions: "total_transactions",
		TotalSalesAmount:  "total_sales_amount",
		AverageOrderValue: "average_order_value",
		PurchaseFrequency: "purchase_frequency",
		ProfitMargin:      "profit_margin",
		CustomerValue:     "customer_value",
		CLV:               "clv",
	}
}

// Builder computes the customer summary and the deterministic CLV (S1).
// Every method returns a new frame and leaves its input untouched.
type Builder struct {
	cols Columns
}

// NewBuilder creates a new summary Builder
func NewBuilder(cols Columns) *Builder {
	return &Builder{cols: cols}
}

// Columns returns the column names the builder reads and writes
func (b *Builder) Columns() Columns {
	return b.cols
}

// SalesAmount adds sales_amount = unit_price * quantity to the transaction table
func (b *Builder) SalesAmount(tx *frame.Frame) (*frame.Frame, error) {
	price, err := tx.Numeric(b.cols.UnitPrice)
	if err != nil {
		return nil, fmt.Errorf("sales amount: %w", err)
	}
	qty, err := tx.Numeric(b.cols.Quantity)
	if err != nil {
		return nil, fmt.Errorf("sales amount: %w", err)
	}

	amount := make([]float64, len(price))
	for i := range price {
		amount[i] = price[i] * qty[i]
	}
	return tx.WithFloats(b.cols.SalesAmount, amount)
}

// CustomerSummary aggregates per customer the number of distinct transactions
// and the summed sales amount. Rows follow first appearance in tx.
// ⭐ SSOT: S1 고객 요약 테이블 생성
func (b *Builder) CustomerSummary(tx *frame.Frame) (*frame.Frame, error) {
	if err := tx.Require(b.cols.CustomerID, b.cols.TransactionID, b.cols.SalesAmount); err != nil {
		return nil, fmt.Errorf("customer summary: %w", err)
	}
	if tx.Len() == 0 {
		return nil, fmt.Errorf("customer summary: %w", contracts.ErrEmptyInput)
	}

	customers, err := tx.Ints(b.cols.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("customer summary: %w", err)
	}
	transactions, err := tx.Ints(b.cols.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("customer summary: %w", err)
	}
	amount, err := tx.Numeric(b.cols.SalesAmount)
	if err != nil {
		return nil, fmt.Errorf("customer summary: %w", err)
	}

	var order []int64
	distinct := make(map[int64]map[int64]struct{})
	sales := make(map[int64]float64)
	for i, c := range customers {
		seen, ok := distinct[c]
		if !ok {
			seen = make(map[int64]struct{})
			distinct[c] = seen
			order = append(order, c)
		}
		seen[transactions[i]] = struct{}{}
		// pandas sum과 동일하게 NaN은 건너뜀
		if !math.IsNaN(amount[i]) {
			sales[c] += amount[i]
		}
	}

	counts := make([]int64, len(order))
	totals := make([]float64, len(order))
	for i, c := range order {
		counts[i] = int64(len(distinct[c]))
		totals[i] = sales[c]
	}

	return frame.New(
		frame.IntColumn(b.cols.CustomerID, order),
		frame.IntColumn(b.cols.TotalTransactions, counts),
		frame.FloatColumn(b.cols.TotalSalesAmount, totals),
	)
}

// AverageOrderValue adds total_sales_amount / total_transactions
func (b *Builder) AverageOrderValue(summary *frame.Frame) (*frame.Frame, error) {
	return b.ratio(summary, "average order value", b.cols.TotalSalesAmount, b.cols.TotalTransactions, b.cols.AverageOrderValue)
}

// PurchaseFrequency adds total_transactions / number of customers
func (b *Builder) PurchaseFrequency(summary *frame.Frame) (*frame.Frame, error) {
	tt, err := b.numeric(summary, "purchase frequency", b.cols.TotalTransactions)
	if err != nil {
		return nil, err
	}

	n := float64(summary.Len())
	out := make([]float64, len(tt))
	for i, v := range tt {
		out[i] = v / n
	}
	return summary.WithFloats(b.cols.PurchaseFrequency, out)
}

// RepeatResult is the repeat rate with its non-fatal warning flag
type RepeatResult struct {
	Rate              float64
	RepeatCustomers   int
	Customers         int
	NoRepeatCustomers bool // 재구매 고객 0명 → rate 0, churn 1 (경고만)
}

// RepeatRate returns the share of customers with more than one transaction.
// No repeat customers is not an error: the rate is 0 and NoRepeatCustomers is set.
func (b *Builder) RepeatRate(summary *frame.Frame) (RepeatResult, error) {
	tt, err := b.numeric(summary, "repeat rate", b.cols.TotalTransactions)
	if err != nil {
		return RepeatResult{}, err
	}

	repeat := 0
	for _, v := range tt {
		if v > 1 {
			repeat++
		}
	}

	result := RepeatResult{
		RepeatCustomers: repeat,
		Customers:       len(tt),
	}
	if repeat == 0 {
		result.NoRepeatCustomers = true
		return result, nil
	}
	result.Rate = float64(repeat) / float64(len(tt))
	return result, nil
}

// ChurnRate returns 1 - repeatRate
func ChurnRate(repeatRate float64) (float64, error) {
	if math.IsNaN(repeatRate) || repeatRate < 0 || repeatRate > 1 {
		return 0, fmt.Errorf("churn rate: %w: repeat rate %v outside [0, 1]", contracts.ErrInvalidValue, repeatRate)
	}
	return 1 - repeatRate, nil
}

// ProfitMargin adds total_sales_amount * rate
func (b *Builder) ProfitMargin(summary *frame.Frame, rate float64) (*frame.Frame, error) {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		return nil, fmt.Errorf("profit margin: %w: rate %v", contracts.ErrInvalidValue, rate)
	}
	sales, err := b.numeric(summary, "profit margin", b.cols.TotalSalesAmount)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(sales))
	for i, v := range sales {
		out[i] = v * rate
	}
	return summary.WithFloats(b.cols.ProfitMargin, out)
}

// CustomerValue adds average_order_value * purchase_frequency
func (b *Builder) CustomerValue(summary *frame.Frame) (*frame.Frame, error) {
	aov, err := b.numeric(summary, "customer value", b.cols.AverageOrderValue)
	if err != nil {
		return nil, err
	}
	pf, err := b.numeric(summary, "customer value", b.cols.PurchaseFrequency)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(aov))
	for i := range aov {
		out[i] = aov[i] * pf[i]
	}
	return summary.WithFloats(b.cols.CustomerValue, out)
}

// CLV adds (customer_value / churnRate) * profit_margin.
// churnRate 0 (every customer repeats) is rejected instead of yielding +Inf.
func (b *Builder) CLV(summary *frame.Frame, churnRate float64) (*frame.Frame, error) {
	if churnRate == 0 || math.IsNaN(churnRate) {
		return nil, fmt.Errorf("clv: %w: churn rate is %v", contracts.ErrInvalidValue, churnRate)
	}
	cv, err := b.numeric(summary, "clv", b.cols.CustomerValue)
	if err != nil {
		return nil, err
	}
	pm, err := b.numeric(summary, "clv", b.cols.ProfitMargin)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(cv))
	for i := range cv {
		out[i] = (cv[i] / churnRate) * pm[i]
	}
	return summary.WithFloats(b.cols.CLV, out)
}

// numeric fetches a summary column after the shared missing/empty checks
func (b *Builder) numeric(summary *frame.Frame, step, column string) ([]float64, error) {
	v, err := summary.Numeric(column)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", step, err)
	}
	if summary.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", step, contracts.ErrEmptyInput)
	}
	return v, nil
}

func (b *Builder) ratio(summary *frame.Frame, step, num, den, out string) (*frame.Frame, error) {
	n, err := b.numeric(summary, step, num)
	if err != nil {
		return nil, err
	}
	d, err := b.numeric(summary, step, den)
	if err != nil {
		return nil, err
	}

	v := make([]float64, len(n))
	for i := range n {
		v[i] = n[i] / d[i]
	}
	return summary.WithFloats(out, v)
}
