package s2_features

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/clv/backend/internal/contracts"
	"github.com/wonny/clv/backend/internal/frame"
)

// Columns names the inputs and outputs of the feature extractor
type Columns struct {
	CustomerID    string
	TransactionID string
	Date          string
	SalesAmount   string

	Frequency string
	Recency   string
	T         string
	Monetary  string
}

// DefaultColumns returns the standard column names
func DefaultColumns() Columns {
	return Columns{
		CustomerID:    "customer_id",
		TransactionID: "transaction_id",
		Date:          "date",
		SalesAmount:   "sales_amount",
		Frequency:     "frequency",
		Recency:       "recency",
		T:             "T",
		Monetary:      "monetary",
	}
}

// Observation is the reference date T is measured against.
// A zero Date means the latest purchase date in the data.
// OffsetDays is added in both cases.
type Observation struct {
	Date       time.Time
	OffsetDays int
}

// Extractor derives frequency / recency / T / monetary per customer (S2)
type Extractor struct {
	cols Columns
}

// NewExtractor creates a new feature Extractor
func NewExtractor(cols Columns) *Extractor {
	return &Extractor{cols: cols}
}

// Columns returns the column names the extractor reads and writes
func (e *Extractor) Columns() Columns {
	return e.cols
}

type customerAgg struct {
	first, last  time.Time
	transactions map[int64]struct{}
	sales        float64
}

// Extract computes per customer, in order of first appearance:
//   - frequency: distinct transactions - 1
//   - recency:   whole days from first to last purchase
//   - T:         whole days from first purchase to the observation date
//   - monetary:  total sales / distinct transactions (first purchase included)
//
// ⭐ SSOT: S1 → S2 확률 모델 피처 생성
func (e *Extractor) Extract(tx *frame.Frame, obs Observation) (*frame.Frame, error) {
	if err := tx.Require(e.cols.Date, e.cols.CustomerID, e.cols.TransactionID, e.cols.SalesAmount); err != nil {
		return nil, fmt.Errorf("extract features: %w", err)
	}
	if tx.Len() == 0 {
		return nil, fmt.Errorf("extract features: %w", contracts.ErrEmptyInput)
	}
	if obs.OffsetDays < 0 {
		return nil, fmt.Errorf("extract features: %w: negative offset %d", contracts.ErrInvalidValue, obs.OffsetDays)
	}

	dates, err := tx.Times(e.cols.Date)
	if err != nil {
		return nil, fmt.Errorf("extract features: %w", err)
	}
	customers, err := tx.Ints(e.cols.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("extract features: %w", err)
	}
	transactions, err := tx.Ints(e.cols.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("extract features: %w", err)
	}
	amount, err := tx.Numeric(e.cols.SalesAmount)
	if err != nil {
		return nil, fmt.Errorf("extract features: %w", err)
	}

	var (
		order   []int64
		aggs    = make(map[int64]*customerAgg)
		maxDate time.Time
	)
	for i, c := range customers {
		d := dates[i]
		if d.IsZero() {
			return nil, fmt.Errorf("extract features: %w: missing date at row %d", contracts.ErrInvalidValue, i)
		}
		if d.After(maxDate) {
			maxDate = d
		}

		agg, ok := aggs[c]
		if !ok {
			agg = &customerAgg{first: d, last: d, transactions: make(map[int64]struct{})}
			aggs[c] = agg
			order = append(order, c)
		}
		if d.Before(agg.first) {
			agg.first = d
		}
		if d.After(agg.last) {
			agg.last = d
		}
		agg.transactions[transactions[i]] = struct{}{}
		if !math.IsNaN(amount[i]) {
			agg.sales += amount[i]
		}
	}

	ref := obs.Date
	if ref.IsZero() {
		ref = maxDate
	}
	ref = ref.AddDate(0, 0, obs.OffsetDays)

	n := len(order)
	frequency := make([]float64, n)
	recency := make([]float64, n)
	tenure := make([]float64, n)
	monetary := make([]float64, n)
	for i, c := range order {
		agg := aggs[c]
		count := float64(len(agg.transactions))

		t := wholeDays(ref.Sub(agg.first))
		if t < 0 {
			return nil, fmt.Errorf("extract features: %w: observation date %s before first purchase of customer %d",
				contracts.ErrInvalidValue, ref.Format("2006-01-02"), c)
		}

		frequency[i] = count - 1
		recency[i] = wholeDays(agg.last.Sub(agg.first))
		tenure[i] = t
		monetary[i] = agg.sales / count
	}

	return frame.New(
		frame.IntColumn(e.cols.CustomerID, order),
		frame.FloatColumn(e.cols.Frequency, frequency),
		frame.FloatColumn(e.cols.Recency, recency),
		frame.FloatColumn(e.cols.T, tenure),
		frame.FloatColumn(e.cols.Monetary, monetary),
	)
}

// Qualifying keeps customers with at least one repeat purchase and a
// non-negative monetary value. The others cannot inform the models.
func (e *Extractor) Qualifying(features *frame.Frame) (*frame.Frame, error) {
	freq, err := features.Numeric(e.cols.Frequency)
	if err != nil {
		return nil, fmt.Errorf("qualifying customers: %w", err)
	}
	monetary, err := features.Numeric(e.cols.Monetary)
	if err != nil {
		return nil, fmt.Errorf("qualifying customers: %w", err)
	}

	keep := make([]int, 0, len(freq))
	for i := range freq {
		if freq[i] > 0 && monetary[i] >= 0 {
			keep = append(keep, i)
		}
	}
	return features.Take(keep), nil
}

// RepeatInputs converts the day-based features into model periods
func (e *Extractor) RepeatInputs(features *frame.Frame, unit contracts.TimeUnit) (contracts.RepeatInputs, error) {
	if !unit.Valid() {
		return contracts.RepeatInputs{}, fmt.Errorf("repeat inputs: %w: time unit %q", contracts.ErrInvalidValue, unit)
	}
	freq, err := features.Numeric(e.cols.Frequency)
	if err != nil {
		return contracts.RepeatInputs{}, fmt.Errorf("repeat inputs: %w", err)
	}
	recency, err := features.Numeric(e.cols.Recency)
	if err != nil {
		return contracts.RepeatInputs{}, fmt.Errorf("repeat inputs: %w", err)
	}
	tenure, err := features.Numeric(e.cols.T)
	if err != nil {
		return contracts.RepeatInputs{}, fmt.Errorf("repeat inputs: %w", err)
	}

	in := contracts.RepeatInputs{
		Frequency: append([]float64(nil), freq...),
		Recency:   make([]float64, len(recency)),
		T:         make([]float64, len(tenure)),
		Unit:      unit,
	}
	for i := range recency {
		in.Recency[i] = unit.FromDays(recency[i])
		in.T[i] = unit.FromDays(tenure[i])
	}
	return in, nil
}

// SpendInputs returns frequency and monetary for the spend model
func (e *Extractor) SpendInputs(features *frame.Frame) (contracts.SpendInputs, error) {
	freq, err := features.Numeric(e.cols.Frequency)
	if err != nil {
		return contracts.SpendInputs{}, fmt.Errorf("spend inputs: %w", err)
	}
	monetary, err := features.Numeric(e.cols.Monetary)
	if err != nil {
		return contracts.SpendInputs{}, fmt.Errorf("spend inputs: %w", err)
	}
	return contracts.SpendInputs{
		Frequency: append([]float64(nil), freq...),
		Monetary:  append([]float64(nil), monetary...),
	}, nil
}

// wholeDays truncates a duration to whole days, like a pandas Timedelta's .days
func wholeDays(d time.Duration) float64 {
	return math.Floor(d.Hours() / 24)
}
