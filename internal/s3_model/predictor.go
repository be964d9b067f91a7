package s3_model

import (
	"fmt"
	"math"

	"github.com/wonny/clv/backend/internal/contracts"
	"github.com/wonny/clv/backend/internal/frame"
	"github.com/wonny/clv/backend/internal/s2_features"
)

// OutputColumns names the prediction columns
type OutputColumns struct {
	ExpectedPurchases string
	ExpectedProfit    string
	PredictedCLV      string
	ProbabilityAlive  string
}

// DefaultOutputColumns returns the standard prediction column names
func DefaultOutputColumns() OutputColumns {
	return OutputColumns{
		ExpectedPurchases: "expected_purchases",
		ExpectedProfit:    "expected_average_profit",
		PredictedCLV:      "predicted_clv",
		ProbabilityAlive:  "p_alive",
	}
}

// LifetimeOptions controls the discounted CLV projection
type LifetimeOptions struct {
	Months       int                // 예측 기간 (월)
	DiscountRate float64            // 월 할인율
	Unit         contracts.TimeUnit // 모델 적합 단위와 같아야 함
}

// Predictor turns fitted handles into prediction tables (S3)
type Predictor struct {
	features *s2_features.Extractor
	out      OutputColumns
}

// NewPredictor creates a Predictor reading feature columns through the extractor
func NewPredictor(features *s2_features.Extractor, out OutputColumns) *Predictor {
	return &Predictor{features: features, out: out}
}

// Columns returns the prediction column names
func (p *Predictor) Columns() OutputColumns {
	return p.out
}

// PredictPurchases adds the expected purchases over the next t model periods
// and sorts customers by it, descending (stable).
func (p *Predictor) PredictPurchases(model contracts.RepeatPurchaseModel, features *frame.Frame, t float64) (*frame.Frame, error) {
	in, err := p.features.RepeatInputs(features, model.Unit())
	if err != nil {
		return nil, fmt.Errorf("predict purchases: %w", err)
	}
	expected, err := model.ExpectedPurchases(t, in)
	if err != nil {
		return nil, fmt.Errorf("predict purchases: %w", err)
	}

	out, err := features.WithFloats(p.out.ExpectedPurchases, expected)
	if err != nil {
		return nil, err
	}
	return out.SortBy(p.out.ExpectedPurchases, true)
}

// ExpectedAverageProfit adds the expected value per transaction and sorts
// customers by it, descending (stable).
func (p *Predictor) ExpectedAverageProfit(model contracts.SpendModel, features *frame.Frame) (*frame.Frame, error) {
	in, err := p.features.SpendInputs(features)
	if err != nil {
		return nil, fmt.Errorf("expected average profit: %w", err)
	}
	profit, err := model.ExpectedAverageProfit(in)
	if err != nil {
		return nil, fmt.Errorf("expected average profit: %w", err)
	}

	out, err := features.WithFloats(p.out.ExpectedProfit, profit)
	if err != nil {
		return nil, err
	}
	return out.SortBy(p.out.ExpectedProfit, true)
}

// LifetimeValue projects a discounted CLV per customer over opts.Months.
// For month i with f periods per month:
//
//	clv += profit * (E[N(i*f)] - E[N((i-1)*f)]) / (1+d)^i
//
// Rows keep the order of features; the result holds the customer key and
// the predicted CLV column.
// ⭐ SSOT: S3 할인 CLV 예측
func (p *Predictor) LifetimeValue(repeat contracts.RepeatPurchaseModel, spend contracts.SpendModel,
	features *frame.Frame, opts LifetimeOptions) (*frame.Frame, error) {
	if opts.Months <= 0 {
		return nil, fmt.Errorf("lifetime value: %w: months %d", contracts.ErrInvalidValue, opts.Months)
	}
	if math.IsNaN(opts.DiscountRate) || opts.DiscountRate <= -1 {
		return nil, fmt.Errorf("lifetime value: %w: discount rate %v", contracts.ErrInvalidValue, opts.DiscountRate)
	}
	if !opts.Unit.Valid() {
		return nil, fmt.Errorf("lifetime value: %w: time unit %q", contracts.ErrInvalidValue, opts.Unit)
	}
	if opts.Unit != repeat.Unit() {
		return nil, fmt.Errorf("lifetime value: %w: unit %q, repeat model fitted in %q",
			contracts.ErrInvalidValue, opts.Unit, repeat.Unit())
	}

	cols := p.features.Columns()
	ids, err := features.Ints(cols.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("lifetime value: %w", err)
	}
	repeatIn, err := p.features.RepeatInputs(features, opts.Unit)
	if err != nil {
		return nil, fmt.Errorf("lifetime value: %w", err)
	}
	spendIn, err := p.features.SpendInputs(features)
	if err != nil {
		return nil, fmt.Errorf("lifetime value: %w", err)
	}

	profit, err := spend.ExpectedAverageProfit(spendIn)
	if err != nil {
		return nil, fmt.Errorf("lifetime value: %w", err)
	}

	factor := opts.Unit.PeriodsPerMonth()
	clv := make([]float64, len(ids))
	prev := make([]float64, len(ids)) // E[N(0)] = 0
	for month := 1; month <= opts.Months; month++ {
		cur, err := repeat.ExpectedPurchases(float64(month)*factor, repeatIn)
		if err != nil {
			return nil, fmt.Errorf("lifetime value: month %d: %w", month, err)
		}
		discount := math.Pow(1+opts.DiscountRate, float64(month))
		for i := range clv {
			clv[i] += profit[i] * (cur[i] - prev[i]) / discount
		}
		prev = cur
	}

	for i, v := range clv {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("lifetime value: %w: non-finite value for customer %d", contracts.ErrModelFit, ids[i])
		}
	}

	return frame.New(
		frame.IntColumn(cols.CustomerID, ids),
		frame.FloatColumn(p.out.PredictedCLV, clv),
	)
}

// ProbabilityAlive returns the customer key and p_alive per customer in
// feature order. ok is false when the model cannot estimate activity.
func (p *Predictor) ProbabilityAlive(model contracts.RepeatPurchaseModel, features *frame.Frame) (out *frame.Frame, ok bool, err error) {
	activity, ok := model.(contracts.ActivityModel)
	if !ok {
		return nil, false, nil
	}

	key := p.features.Columns().CustomerID
	ids, err := features.Ints(key)
	if err != nil {
		return nil, true, fmt.Errorf("probability alive: %w", err)
	}
	in, err := p.features.RepeatInputs(features, model.Unit())
	if err != nil {
		return nil, true, fmt.Errorf("probability alive: %w", err)
	}
	alive, err := activity.ProbabilityAlive(in)
	if err != nil {
		return nil, true, fmt.Errorf("probability alive: %w", err)
	}

	out, err = frame.New(
		frame.IntColumn(key, ids),
		frame.FloatColumn(p.out.ProbabilityAlive, alive),
	)
	return out, true, err
}

// MatrixColumns of ActivityMatrix, long format
const (
	MatrixFrequency = "frequency"
	MatrixRecency   = "recency"
)

// maxMatrixSteps bounds the recency axis of ActivityMatrix (H 단위에서 행 폭증 방지)
const maxMatrixSteps = 100

// ActivityMatrix evaluates the model on a frequency x recency grid for a
// customer observed for the longest T in features: expected purchases in the
// next period and, when available, p_alive. Frequency runs 0..max frequency,
// recency 0..T in model periods.
func (p *Predictor) ActivityMatrix(model contracts.RepeatPurchaseModel, features *frame.Frame) (*frame.Frame, error) {
	in, err := p.features.RepeatInputs(features, model.Unit())
	if err != nil {
		return nil, fmt.Errorf("activity matrix: %w", err)
	}
	if in.Len() == 0 {
		return nil, fmt.Errorf("activity matrix: %w", contracts.ErrEmptyInput)
	}

	maxFreq, maxT := 0.0, 0.0
	for i := range in.Frequency {
		maxFreq = math.Max(maxFreq, in.Frequency[i])
		maxT = math.Max(maxT, in.T[i])
	}
	step := math.Max(1, math.Ceil(maxT/maxMatrixSteps))

	grid := contracts.RepeatInputs{Unit: model.Unit()}
	for x := 0.0; x <= maxFreq; x++ {
		for tx := 0.0; tx <= maxT; tx += step {
			grid.Frequency = append(grid.Frequency, x)
			grid.Recency = append(grid.Recency, tx)
			grid.T = append(grid.T, maxT)
		}
	}

	expected, err := model.ExpectedPurchases(1, grid)
	if err != nil {
		return nil, fmt.Errorf("activity matrix: %w", err)
	}
	cols := []frame.Column{
		frame.FloatColumn(MatrixFrequency, grid.Frequency),
		frame.FloatColumn(MatrixRecency, grid.Recency),
		frame.FloatColumn(p.out.ExpectedPurchases, expected),
	}
	if activity, ok := model.(contracts.ActivityModel); ok {
		alive, err := activity.ProbabilityAlive(grid)
		if err != nil {
			return nil, fmt.Errorf("activity matrix: %w", err)
		}
		cols = append(cols, frame.FloatColumn(p.out.ProbabilityAlive, alive))
	}
	return frame.New(cols...)
}

// MergePredictions left-joins prediction columns onto the feature table by
// customer key. Customers without a prediction get NaN.
func (p *Predictor) MergePredictions(features, predictions *frame.Frame) (*frame.Frame, error) {
	merged, err := frame.LeftJoin(features, predictions, p.features.Columns().CustomerID)
	if err != nil {
		return nil, fmt.Errorf("merge predictions: %w", err)
	}
	return merged, nil
}
