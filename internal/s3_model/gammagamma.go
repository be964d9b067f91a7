package s3_model

import (
	"fmt"
	"math"

	"github.com/wonny/clv/backend/internal/contracts"
)

const (
	// DefaultGammaGammaPenalizer L2 계수 (파라미터 원래 스케일)
	DefaultGammaGammaPenalizer = 0.01

	// MinGammaGammaCustomers is the smallest sample the 3-parameter fit accepts
	MinGammaGammaCustomers = 3
)

// GammaGammaFitter fits the Gamma-Gamma spend model
type GammaGammaFitter struct {
	Penalizer     float64
	MaxIterations int
}

// NewGammaGammaFitter creates a fitter with the given L2 penalizer
func NewGammaGammaFitter(penalizer float64, maxIterations int) *GammaGammaFitter {
	return &GammaGammaFitter{Penalizer: penalizer, MaxIterations: maxIterations}
}

var _ contracts.SpendFitter = (*GammaGammaFitter)(nil)

// GammaGammaModel is a fitted Gamma-Gamma handle
type GammaGammaModel struct {
	P float64 `json:"p"`
	Q float64 `json:"q"`
	V float64 `json:"v"`

	LogLikelihood float64 `json:"log_likelihood"`
	Customers     int     `json:"customers"`
}

var _ contracts.SpendModel = (*GammaGammaModel)(nil)

// Fit estimates p, q, v from repeat frequency and average transaction value.
// Every customer needs frequency >= 1 and monetary > 0.
// ⭐ SSOT: S3 Gamma-Gamma 적합
func (f *GammaGammaFitter) Fit(in contracts.SpendInputs) (contracts.SpendModel, error) {
	if in.Len() < MinGammaGammaCustomers {
		return nil, fmt.Errorf("gamma-gamma fit: %w: %d customers, need at least %d",
			contracts.ErrModelFit, in.Len(), MinGammaGammaCustomers)
	}
	if err := validateSpend(in); err != nil {
		return nil, fmt.Errorf("gamma-gamma fit: %w", err)
	}

	objective := func(logParams []float64) float64 {
		p, q, v := math.Exp(logParams[0]), math.Exp(logParams[1]), math.Exp(logParams[2])
		ll := gammaGammaMeanLogLikelihood(p, q, v, in)
		return -ll + f.Penalizer*(p*p+q*q+v*v)
	}

	params, err := minimize(objective, 3, f.MaxIterations)
	if err != nil {
		return nil, fmt.Errorf("gamma-gamma fit: %w", err)
	}

	model := &GammaGammaModel{
		P:         params[0],
		Q:         params[1],
		V:         params[2],
		Customers: in.Len(),
	}
	model.LogLikelihood = gammaGammaMeanLogLikelihood(model.P, model.Q, model.V, in)
	return model, nil
}

func gammaGammaMeanLogLikelihood(p, q, v float64, in contracts.SpendInputs) float64 {
	lgQ, _ := math.Lgamma(q)

	total := 0.0
	for i := range in.Frequency {
		x, m := in.Frequency[i], in.Monetary[i]
		px := p * x

		lgPXQ, _ := math.Lgamma(px + q)
		lgPX, _ := math.Lgamma(px)

		total += lgPXQ - lgPX - lgQ + q*math.Log(v) +
			(px-1)*math.Log(m) + px*math.Log(x) - (px+q)*math.Log(x*m+v)
	}
	return total / float64(len(in.Frequency))
}

// ExpectedAverageProfit returns E[M | x, m] = (v*p + p*x*m) / (p*x + q - 1)
func (m *GammaGammaModel) ExpectedAverageProfit(in contracts.SpendInputs) ([]float64, error) {
	if err := validateSpend(in); err != nil {
		return nil, fmt.Errorf("gamma-gamma predict: %w", err)
	}

	out := make([]float64, in.Len())
	for i := range out {
		x, mon := in.Frequency[i], in.Monetary[i]
		denom := m.P*x + m.Q - 1
		if denom <= 0 {
			return nil, fmt.Errorf("gamma-gamma predict: %w: p*x+q-1 = %v for row %d",
				contracts.ErrInvalidValue, denom, i)
		}
		out[i] = (m.V*m.P + m.P*x*mon) / denom
	}
	return out, nil
}
