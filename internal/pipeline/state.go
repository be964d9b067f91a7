package pipeline

import (
	"github.com/wonny/clv/backend/internal/contracts"
	"github.com/wonny/clv/backend/internal/frame"
	"github.com/wonny/clv/backend/internal/s1_summary"
)

// State holds every intermediate table of one run.
// Each With* method returns a modified copy and leaves the receiver as is.
// Replacing an upstream field does not clear the fields derived from it.
type State struct {
	Transactions *frame.Frame                   // S0 + sales_amount
	Quality      *contracts.DataQualitySnapshot // S0

	Summary   *frame.Frame // S1 고객 요약 (+ 파생 지표, CLV, segment)
	Repeat    s1_summary.RepeatResult
	ChurnRate float64

	Features   *frame.Frame // S2 전체 고객
	Qualifying *frame.Frame // S2 frequency > 0

	RepeatModel contracts.RepeatPurchaseModel // S3
	SpendModel  contracts.SpendModel
	Purchases   *frame.Frame // expected_purchases, 내림차순
	Profit      *frame.Frame // expected_average_profit, 내림차순
	Lifetime    *frame.Frame // predicted_clv
	Alive       *frame.Frame // p_alive, 모델이 지원할 때만
	Activity    *frame.Frame // frequency x recency 격자 (expected_purchases, p_alive)
	Predictions *frame.Frame // Qualifying + 예측 컬럼 (+ predicted_segment)

	Segments          []contracts.SegmentStats // S4
	PredictedSegments []contracts.SegmentStats
}

// WithTransactions sets the loaded transaction table
func (s State) WithTransactions(tx *frame.Frame) State {
	s.Transactions = tx
	return s
}

// WithQuality sets the data quality snapshot
func (s State) WithQuality(q *contracts.DataQualitySnapshot) State {
	s.Quality = q
	return s
}

// WithSummary sets the customer summary
func (s State) WithSummary(summary *frame.Frame) State {
	s.Summary = summary
	return s
}

// WithRepeat sets the repeat rate and the churn rate derived from it
func (s State) WithRepeat(repeat s1_summary.RepeatResult, churn float64) State {
	s.Repeat = repeat
	s.ChurnRate = churn
	return s
}

// WithFeatures sets the feature table and its qualifying subset
func (s State) WithFeatures(all, qualifying *frame.Frame) State {
	s.Features = all
	s.Qualifying = qualifying
	return s
}

// WithModels sets the fitted model handles, replacing earlier ones
func (s State) WithModels(repeat contracts.RepeatPurchaseModel, spend contracts.SpendModel) State {
	s.RepeatModel = repeat
	s.SpendModel = spend
	return s
}

// WithPurchases sets the expected purchases table
func (s State) WithPurchases(f *frame.Frame) State {
	s.Purchases = f
	return s
}

// WithProfit sets the expected average profit table
func (s State) WithProfit(f *frame.Frame) State {
	s.Profit = f
	return s
}

// WithLifetime sets the predicted CLV table
func (s State) WithLifetime(f *frame.Frame) State {
	s.Lifetime = f
	return s
}

// WithActivity sets the p_alive table and the frequency/recency grid
func (s State) WithActivity(alive, matrix *frame.Frame) State {
	s.Alive = alive
	s.Activity = matrix
	return s
}

// WithPredictions sets the merged prediction table
func (s State) WithPredictions(f *frame.Frame) State {
	s.Predictions = f
	return s
}

// WithSegments sets the segment reports
func (s State) WithSegments(deterministic, predicted []contracts.SegmentStats) State {
	s.Segments = deterministic
	s.PredictedSegments = predicted
	return s
}
