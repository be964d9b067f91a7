package s3_model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mathext"

	"github.com/wonny/clv/backend/internal/contracts"
)

const (
	// DefaultBGNBDPenalizer L2 계수 (파라미터 원래 스케일)
	DefaultBGNBDPenalizer = 0.001

	// MinBGNBDCustomers is the smallest sample the 4-parameter fit accepts
	MinBGNBDCustomers = 4
)

// BGNBDFitter fits the BG/NBD repeat-purchase model by penalized maximum likelihood
type BGNBDFitter struct {
	Penalizer     float64
	MaxIterations int
}

// NewBGNBDFitter creates a fitter with the given L2 penalizer
func NewBGNBDFitter(penalizer float64, maxIterations int) *BGNBDFitter {
	return &BGNBDFitter{Penalizer: penalizer, MaxIterations: maxIterations}
}

var _ contracts.RepeatPurchaseFitter = (*BGNBDFitter)(nil)

// BGNBDModel is a fitted BG/NBD handle
type BGNBDModel struct {
	R     float64 `json:"r"`
	Alpha float64 `json:"alpha"`
	A     float64 `json:"a"`
	B     float64 `json:"b"`

	TimeUnit      contracts.TimeUnit `json:"unit"`
	LogLikelihood float64            `json:"log_likelihood"` // 평균 log-likelihood (penalty 제외)
	Customers     int                `json:"customers"`
}

var (
	_ contracts.RepeatPurchaseModel = (*BGNBDModel)(nil)
	_ contracts.ActivityModel       = (*BGNBDModel)(nil)
)

// Fit estimates r, alpha, a, b from frequency / recency / T
// ⭐ SSOT: S3 BG/NBD 적합
func (f *BGNBDFitter) Fit(in contracts.RepeatInputs) (contracts.RepeatPurchaseModel, error) {
	if in.Len() < MinBGNBDCustomers {
		return nil, fmt.Errorf("bg/nbd fit: %w: %d customers, need at least %d",
			contracts.ErrModelFit, in.Len(), MinBGNBDCustomers)
	}
	if err := validateRepeat(in); err != nil {
		return nil, fmt.Errorf("bg/nbd fit: %w", err)
	}

	objective := func(logParams []float64) float64 {
		r, alpha, a, b := math.Exp(logParams[0]), math.Exp(logParams[1]), math.Exp(logParams[2]), math.Exp(logParams[3])
		ll := bgnbdMeanLogLikelihood(r, alpha, a, b, in)
		return -ll + f.Penalizer*(r*r+alpha*alpha+a*a+b*b)
	}

	params, err := minimize(objective, 4, f.MaxIterations)
	if err != nil {
		return nil, fmt.Errorf("bg/nbd fit: %w", err)
	}

	model := &BGNBDModel{
		R:         params[0],
		Alpha:     params[1],
		A:         params[2],
		B:         params[3],
		TimeUnit:  in.Unit,
		Customers: in.Len(),
	}
	model.LogLikelihood = bgnbdMeanLogLikelihood(model.R, model.Alpha, model.A, model.B, in)
	return model, nil
}

// bgnbdMeanLogLikelihood is the per-customer average of the BG/NBD log-likelihood
func bgnbdMeanLogLikelihood(r, alpha, a, b float64, in contracts.RepeatInputs) float64 {
	lgR, _ := math.Lgamma(r)
	lgAB, _ := math.Lgamma(a + b)
	lgB, _ := math.Lgamma(b)

	total := 0.0
	for i := range in.Frequency {
		x, tx, T := in.Frequency[i], in.Recency[i], in.T[i]

		lgRX, _ := math.Lgamma(r + x)
		lgBX, _ := math.Lgamma(b + x)
		lgABX, _ := math.Lgamma(a + b + x)

		a1 := lgRX - lgR + r*math.Log(alpha)
		a2 := lgAB + lgBX - lgB - lgABX
		a3 := -(r + x) * math.Log(alpha+T)

		ll := a1 + a2 + a3
		if x > 0 {
			a4 := math.Log(a) - math.Log(b+math.Max(x, 1)-1) - (r+x)*math.Log(alpha+tx)
			ll = a1 + a2 + logAddExp(a3, a4)
		}
		total += ll
	}
	return total / float64(len(in.Frequency))
}

// Unit returns the period granularity the model was fitted in
func (m *BGNBDModel) Unit() contracts.TimeUnit {
	return m.TimeUnit
}

// ExpectedPurchases returns the conditional expected number of purchases in
// the next t periods for each customer.
func (m *BGNBDModel) ExpectedPurchases(t float64, in contracts.RepeatInputs) ([]float64, error) {
	if in.Unit != m.TimeUnit {
		return nil, fmt.Errorf("bg/nbd predict: %w: inputs in %q, model fitted in %q",
			contracts.ErrInvalidValue, in.Unit, m.TimeUnit)
	}
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return nil, fmt.Errorf("bg/nbd predict: %w: horizon %v", contracts.ErrInvalidValue, t)
	}
	if err := validateRepeat(in); err != nil {
		return nil, fmt.Errorf("bg/nbd predict: %w", err)
	}

	out := make([]float64, in.Len())
	for i := range out {
		v := m.conditionalExpected(t, in.Frequency[i], in.Recency[i], in.T[i])
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("bg/nbd predict: %w: non-finite expectation for row %d", contracts.ErrModelFit, i)
		}
		out[i] = v
	}
	return out, nil
}

// ProbabilityAlive returns P(customer still active | x, t_x, T) per customer.
// A customer without a repeat purchase is alive with probability 1.
func (m *BGNBDModel) ProbabilityAlive(in contracts.RepeatInputs) ([]float64, error) {
	if in.Unit != m.TimeUnit {
		return nil, fmt.Errorf("bg/nbd p_alive: %w: inputs in %q, model fitted in %q",
			contracts.ErrInvalidValue, in.Unit, m.TimeUnit)
	}
	if err := validateRepeat(in); err != nil {
		return nil, fmt.Errorf("bg/nbd p_alive: %w", err)
	}

	out := make([]float64, in.Len())
	for i := range out {
		out[i] = m.probabilityAlive(in.Frequency[i], in.Recency[i], in.T[i])
	}
	return out, nil
}

func (m *BGNBDModel) probabilityAlive(x, tx, T float64) float64 {
	if x == 0 {
		return 1
	}
	logDiv := (m.R+x)*math.Log((m.Alpha+T)/(m.Alpha+tx)) + math.Log(m.A/(m.B+math.Max(x, 1)-1))
	return 1 / (1 + math.Exp(logDiv)) // expit(-logDiv)
}

func (m *BGNBDModel) conditionalExpected(t, x, tx, T float64) float64 {
	if t == 0 {
		return 0
	}
	r, alpha, a, b := m.R, m.Alpha, m.A, m.B

	ha := r + x
	hb := b + x
	hc := a + b + x - 1
	z := t / (alpha + T + t)

	lnHyp := math.Log(mathext.Hypergeo(ha, hb, hc, z))
	if math.IsInf(lnHyp, 0) || math.IsNaN(lnHyp) {
		// Euler 변환: 2F1(a,b;c;z) = (1-z)^(c-a-b) 2F1(c-a,c-b;c;z)
		lnHyp = math.Log(mathext.Hypergeo(hc-ha, hc-hb, hc, z)) + (hc-ha-hb)*math.Log(1-z)
	}

	first := (a + b + x - 1) / (a - 1)
	second := 1 - math.Exp(lnHyp+(r+x)*math.Log((alpha+T)/(alpha+t+T)))

	denom := 1.0
	if x > 0 {
		denom += (a / (b + x - 1)) * math.Pow((alpha+T)/(alpha+tx), r+x)
	}
	return first * second / denom
}

func logAddExp(x, y float64) float64 {
	m := math.Max(x, y)
	if math.IsInf(m, -1) {
		return m
	}
	return m + math.Log(math.Exp(x-m)+math.Exp(y-m))
}
