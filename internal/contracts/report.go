package contracts

import "time"

// RunMetrics are the scalar results of one analysis run
type RunMetrics struct {
	Transactions        int     `json:"transactions"`
	Customers           int     `json:"customers"`
	QualifyingCustomers int     `json:"qualifying_customers"`
	TotalSales          float64 `json:"total_sales"`
	RepeatRate          float64 `json:"repeat_rate"`
	ChurnRate           float64 `json:"churn_rate"`
}

// SegmentStats is one row of a segment report
type SegmentStats struct {
	Label string             `json:"label"`
	Count int                `json:"count"`
	Mean  map[string]float64 `json:"mean"`
	Sum   map[string]float64 `json:"sum"`
}

// CustomerValue is the per-customer view served by the report API.
// Prediction fields are nil for customers without a repeat purchase.
type CustomerValue struct {
	CustomerID        int64    `json:"customer_id"`
	TotalTransactions float64  `json:"total_transactions"`
	TotalSalesAmount  float64  `json:"total_sales_amount"`
	CLV               float64  `json:"clv"`
	Segment           string   `json:"segment"`
	ExpectedPurchases *float64 `json:"expected_purchases,omitempty"`
	ExpectedProfit    *float64 `json:"expected_average_profit,omitempty"`
	PredictedCLV      *float64 `json:"predicted_clv,omitempty"`
	ProbabilityAlive  *float64 `json:"p_alive,omitempty"`
	PredictedSegment  string   `json:"predicted_segment,omitempty"`
}

// RunReport is the serialisable outcome of a pipeline run
// ⭐ SSOT: 분석 결과 리포트 (API, 캐시, export 공용)
type RunReport struct {
	RunID             string               `json:"run_id"`
	ConfigHash        string               `json:"config_hash"`
	StartedAt         time.Time            `json:"started_at"`
	FinishedAt        time.Time            `json:"finished_at"`
	CompletedStages   []string             `json:"completed_stages"`
	Warnings          []string             `json:"warnings,omitempty"`
	Quality           *DataQualitySnapshot `json:"quality,omitempty"`
	Metrics           RunMetrics           `json:"metrics"`
	Segments          []SegmentStats       `json:"segments"`
	PredictedSegments []SegmentStats       `json:"predicted_segments,omitempty"`
	Customers         []CustomerValue      `json:"customers"`
}

// Customer looks up a customer by id
func (r *RunReport) Customer(id int64) (CustomerValue, bool) {
	for _, c := range r.Customers {
		if c.CustomerID == id {
			return c, true
		}
	}
	return CustomerValue{}, false
}
