package contracts

// RepeatInputs holds per-customer repeat-purchase features in Unit periods.
// All slices have the same length.
type RepeatInputs struct {
	Frequency []float64
	Recency   []float64
	T         []float64
	Unit      TimeUnit
}

// Len returns the number of customers
func (in RepeatInputs) Len() int {
	return len(in.Frequency)
}

// SpendInputs holds per-customer repeat frequency and average transaction value
type SpendInputs struct {
	Frequency []float64
	Monetary  []float64
}

// Len returns the number of customers
func (in SpendInputs) Len() int {
	return len(in.Frequency)
}

// RepeatPurchaseModel predicts purchase counts (fitted BG/NBD handle)
type RepeatPurchaseModel interface {
	// Unit is the period granularity the model was fitted in
	Unit() TimeUnit

	// ExpectedPurchases returns E[N(t)] per customer for t periods ahead
	ExpectedPurchases(t float64, in RepeatInputs) ([]float64, error)
}

// ActivityModel is a repeat-purchase model that can also estimate whether a
// customer is still active. Models without it leave p_alive empty.
type ActivityModel interface {
	ProbabilityAlive(in RepeatInputs) ([]float64, error)
}

// RepeatPurchaseFitter fits a repeat-purchase count model (S3)
// ⭐ SSOT: S3 구매 횟수 모델 인터페이스
type RepeatPurchaseFitter interface {
	Fit(in RepeatInputs) (RepeatPurchaseModel, error)
}

// SpendModel predicts the expected value per transaction (fitted Gamma-Gamma handle)
type SpendModel interface {
	ExpectedAverageProfit(in SpendInputs) ([]float64, error)
}

// SpendFitter fits a monetary-value model (S3)
// ⭐ SSOT: S3 구매 금액 모델 인터페이스
type SpendFitter interface {
	Fit(in SpendInputs) (SpendModel, error)
}
