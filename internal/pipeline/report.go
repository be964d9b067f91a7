package pipeline

import (
	"math"

	"github.com/wonny/clv/backend/internal/contracts"
	"github.com/wonny/clv/backend/internal/frame"
)

// fillReport copies the final state into the serialisable report.
// Customers follow the summary order (CLV descending after S4).
func fillReport(report *contracts.RunReport, c components, s State) error {
	cols := c.summary.Columns()
	out := c.predictor.Columns()

	ids, err := s.Summary.Ints(cols.CustomerID)
	if err != nil {
		return err
	}
	txCount, err := s.Summary.Numeric(cols.TotalTransactions)
	if err != nil {
		return err
	}
	sales, err := s.Summary.Numeric(cols.TotalSalesAmount)
	if err != nil {
		return err
	}
	clv, err := s.Summary.Numeric(cols.CLV)
	if err != nil {
		return err
	}
	segments, err := s.Summary.Strings(segmentColumn)
	if err != nil {
		return err
	}

	predictedCols := []string{out.ExpectedPurchases, out.ExpectedProfit, out.PredictedCLV}
	if s.Predictions != nil && s.Predictions.Has(out.ProbabilityAlive) {
		predictedCols = append(predictedCols, out.ProbabilityAlive)
	}
	predicted, err := predictionsByCustomer(s.Predictions, c.features.Columns().CustomerID, predictedCols...)
	if err != nil {
		return err
	}
	predictedSegments := map[int64]string{}
	if s.Predictions != nil && s.Predictions.Has(predictedSegmentColumn) {
		pids, _ := s.Predictions.Ints(c.features.Columns().CustomerID)
		labels, err := s.Predictions.Strings(predictedSegmentColumn)
		if err != nil {
			return err
		}
		for i, id := range pids {
			predictedSegments[id] = labels[i]
		}
	}

	report.Customers = make([]contracts.CustomerValue, len(ids))
	for i, id := range ids {
		cv := contracts.CustomerValue{
			CustomerID:        id,
			TotalTransactions: txCount[i],
			TotalSalesAmount:  sales[i],
			CLV:               clv[i],
			Segment:           segments[i],
			PredictedSegment:  predictedSegments[id],
		}
		if p, ok := predicted[id]; ok {
			cv.ExpectedPurchases = p[0]
			cv.ExpectedProfit = p[1]
			cv.PredictedCLV = p[2]
			if len(p) > 3 {
				cv.ProbabilityAlive = p[3]
			}
		}
		report.Customers[i] = cv
	}

	report.Quality = s.Quality
	report.Metrics = contracts.RunMetrics{
		Transactions: int(frame.Sum(txCount)),
		Customers:    len(ids),
		TotalSales:   frame.Sum(sales),
		RepeatRate:   s.Repeat.Rate,
		ChurnRate:    s.ChurnRate,
	}
	if s.Qualifying != nil {
		report.Metrics.QualifyingCustomers = s.Qualifying.Len()
	}
	report.Segments = s.Segments
	report.PredictedSegments = s.PredictedSegments
	return nil
}

// predictionsByCustomer indexes the given columns by customer key.
// NaN cells (no prediction) stay nil.
func predictionsByCustomer(f *frame.Frame, key string, columns ...string) (map[int64][]*float64, error) {
	out := make(map[int64][]*float64)
	if f == nil {
		return out, nil
	}
	ids, err := f.Ints(key)
	if err != nil {
		return nil, err
	}

	values := make([][]float64, len(columns))
	for j, name := range columns {
		if values[j], err = f.Numeric(name); err != nil {
			return nil, err
		}
	}

	for i, id := range ids {
		row := make([]*float64, len(columns))
		for j := range columns {
			if v := values[j][i]; !math.IsNaN(v) {
				row[j] = &v
			}
		}
		out[id] = row
	}
	return out, nil
}
