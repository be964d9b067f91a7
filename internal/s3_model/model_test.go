package s3_model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/clv/backend/internal/contracts"
)

// 12 customers, weekly periods
func repeatSample() contracts.RepeatInputs {
	return contracts.RepeatInputs{
		Frequency: []float64{1, 2, 3, 1, 5, 2, 4, 1, 6, 3, 2, 8},
		Recency:   []float64{4, 10, 20, 2, 30, 12, 25, 6, 35, 15, 8, 38},
		T:         []float64{20, 30, 40, 10, 40, 25, 30, 40, 38, 40, 20, 40},
		Unit:      contracts.UnitWeek,
	}
}

func spendSample() contracts.SpendInputs {
	return contracts.SpendInputs{
		Frequency: []float64{1, 2, 3, 1, 5, 2, 4, 1, 6, 3},
		Monetary:  []float64{20, 35, 28, 50, 31, 22, 40, 18, 27, 33},
	}
}

func TestBGNBD_ConditionalExpectation_PublishedValue(t *testing.T) {
	// Fader, Hardie & Lee (2005) CDNOW 예제
	model := &BGNBDModel{R: 0.243, Alpha: 4.414, A: 0.793, B: 2.426, TimeUnit: contracts.UnitWeek}
	in := contracts.RepeatInputs{
		Frequency: []float64{2},
		Recency:   []float64{30.43},
		T:         []float64{38.86},
		Unit:      contracts.UnitWeek,
	}

	got, err := model.ExpectedPurchases(39, in)
	require.NoError(t, err)
	assert.InDelta(t, 1.226, got[0], 0.01)

	zero, err := model.ExpectedPurchases(0, in)
	require.NoError(t, err)
	assert.Equal(t, 0.0, zero[0])
}

func TestBGNBD_UnitMismatch(t *testing.T) {
	model := &BGNBDModel{R: 0.243, Alpha: 4.414, A: 0.793, B: 2.426, TimeUnit: contracts.UnitWeek}
	in := repeatSample()
	in.Unit = contracts.UnitDay

	_, err := model.ExpectedPurchases(1, in)
	assert.ErrorIs(t, err, contracts.ErrInvalidValue)
}

func TestBGNBD_Fit(t *testing.T) {
	in := repeatSample()
	fitter := NewBGNBDFitter(DefaultBGNBDPenalizer, 0)

	handle, err := fitter.Fit(in)
	require.NoError(t, err)

	model, ok := handle.(*BGNBDModel)
	require.True(t, ok)
	assert.Equal(t, contracts.UnitWeek, model.Unit())
	assert.Equal(t, 12, model.Customers)
	for _, v := range []float64{model.R, model.Alpha, model.A, model.B} {
		assert.Greater(t, v, 0.0)
		assert.False(t, math.IsInf(v, 0))
	}

	// 최적점의 목적함수 값은 시작점(모든 파라미터 1) 이하
	penalty := func(ps ...float64) float64 {
		s := 0.0
		for _, p := range ps {
			s += p * p
		}
		return DefaultBGNBDPenalizer * s
	}
	start := -bgnbdMeanLogLikelihood(1, 1, 1, 1, in) + penalty(1, 1, 1, 1)
	optimum := -model.LogLikelihood + penalty(model.R, model.Alpha, model.A, model.B)
	assert.LessOrEqual(t, optimum, start)

	expected, err := model.ExpectedPurchases(4, in)
	require.NoError(t, err)
	for _, v := range expected {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestBGNBD_FitErrors(t *testing.T) {
	fitter := NewBGNBDFitter(DefaultBGNBDPenalizer, 100)

	small := contracts.RepeatInputs{
		Frequency: []float64{1, 2, 3},
		Recency:   []float64{1, 2, 3},
		T:         []float64{5, 5, 5},
		Unit:      contracts.UnitWeek,
	}
	_, err := fitter.Fit(small)
	assert.ErrorIs(t, err, contracts.ErrModelFit)

	nonFinite := repeatSample()
	nonFinite.T[0] = math.NaN()
	_, err = fitter.Fit(nonFinite)
	assert.ErrorIs(t, err, contracts.ErrModelFit)

	recencyAfterT := repeatSample()
	recencyAfterT.Recency[0] = 100
	_, err = fitter.Fit(recencyAfterT)
	assert.ErrorIs(t, err, contracts.ErrInvalidValue)
}

func TestGammaGamma_ExpectedAverageProfit_ClosedForm(t *testing.T) {
	model := &GammaGammaModel{P: 6.25, Q: 3.74, V: 15.44}

	got, err := model.ExpectedAverageProfit(contracts.SpendInputs{
		Frequency: []float64{2},
		Monetary:  []float64{30},
	})
	require.NoError(t, err)
	// (v*p + p*x*m) / (p*x + q - 1) = (96.5 + 375) / 15.24
	assert.InDelta(t, 30.938, got[0], 0.001)
}

func TestGammaGamma_Fit(t *testing.T) {
	in := spendSample()

	handle, err := NewGammaGammaFitter(DefaultGammaGammaPenalizer, 0).Fit(in)
	require.NoError(t, err)

	model := handle.(*GammaGammaModel)
	for _, v := range []float64{model.P, model.Q, model.V} {
		assert.Greater(t, v, 0.0)
	}

	start := -gammaGammaMeanLogLikelihood(1, 1, 1, in) + DefaultGammaGammaPenalizer*3
	optimum := -model.LogLikelihood + DefaultGammaGammaPenalizer*(model.P*model.P+model.Q*model.Q+model.V*model.V)
	assert.LessOrEqual(t, optimum, start)
}

func TestGammaGamma_Preconditions(t *testing.T) {
	fitter := NewGammaGammaFitter(DefaultGammaGammaPenalizer, 100)

	zeroFreq := spendSample()
	zeroFreq.Frequency[0] = 0
	_, err := fitter.Fit(zeroFreq)
	assert.ErrorIs(t, err, contracts.ErrInvalidValue)

	zeroMonetary := spendSample()
	zeroMonetary.Monetary[0] = 0
	_, err = fitter.Fit(zeroMonetary)
	assert.ErrorIs(t, err, contracts.ErrInvalidValue)

	_, err = fitter.Fit(contracts.SpendInputs{Frequency: []float64{1, 2}, Monetary: []float64{1, 2}})
	assert.ErrorIs(t, err, contracts.ErrModelFit)
}

func TestLogAddExp(t *testing.T) {
	assert.InDelta(t, math.Log(math.Exp(1)+math.Exp(2)), logAddExp(1, 2), 1e-12)
	assert.Equal(t, 5.0, logAddExp(5, math.Inf(-1)))
}

func TestBGNBD_ProbabilityAlive(t *testing.T) {
	model := &BGNBDModel{R: 0.243, Alpha: 4.414, A: 0.793, B: 2.426, TimeUnit: contracts.UnitWeek}
	in := contracts.RepeatInputs{
		Frequency: []float64{2, 0, 5},
		Recency:   []float64{30.43, 0, 10},
		T:         []float64{38.86, 38.86, 38.86},
		Unit:      contracts.UnitWeek,
	}

	got, err := model.ProbabilityAlive(in)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.InDelta(t, 0.7265786, got[0], 1e-6)
	assert.Equal(t, 1.0, got[1], "반복 구매 없음 = 생존")
	assert.InDelta(t, 0.0248044, got[2], 1e-6)

	in.Unit = contracts.UnitDay
	_, err = model.ProbabilityAlive(in)
	assert.ErrorIs(t, err, contracts.ErrInvalidValue)
}
