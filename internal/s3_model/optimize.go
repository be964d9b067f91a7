package s3_model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/wonny/clv/backend/internal/contracts"
)

const defaultMaxIterations = 2000

// minimize runs Nelder-Mead over log-parameters starting from all params = 1
// and returns the optimum on the natural scale.
func minimize(objective func([]float64) float64, dim, maxIterations int) ([]float64, error) {
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			v := objective(x)
			// NaN은 단체법 비교를 깨뜨리므로 +Inf로 대체
			if math.IsNaN(v) {
				return math.Inf(1)
			}
			return v
		},
	}
	settings := &optimize.Settings{
		MajorIterations: maxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-10,
			Iterations: 200,
		},
	}

	result, err := optimize.Minimize(problem, make([]float64, dim), settings, &optimize.NelderMead{})
	if result == nil {
		return nil, fmt.Errorf("%w: optimizer: %v", contracts.ErrModelFit, err)
	}
	if math.IsInf(result.F, 0) || math.IsNaN(result.F) {
		return nil, fmt.Errorf("%w: non-finite objective at optimum (status %v)", contracts.ErrModelFit, result.Status)
	}

	params := make([]float64, dim)
	for i, lp := range result.X {
		params[i] = math.Exp(lp)
		if params[i] <= 0 || math.IsInf(params[i], 0) || math.IsNaN(params[i]) {
			return nil, fmt.Errorf("%w: degenerate parameter %d = %v", contracts.ErrModelFit, i, params[i])
		}
	}
	return params, nil
}

// validateRepeat checks lengths, finiteness and recency <= T
func validateRepeat(in contracts.RepeatInputs) error {
	n := len(in.Frequency)
	if len(in.Recency) != n || len(in.T) != n {
		return fmt.Errorf("%w: frequency/recency/T lengths %d/%d/%d",
			contracts.ErrInvalidValue, n, len(in.Recency), len(in.T))
	}
	if n == 0 {
		return contracts.ErrEmptyInput
	}
	if !in.Unit.Valid() {
		return fmt.Errorf("%w: time unit %q", contracts.ErrInvalidValue, in.Unit)
	}
	for i := 0; i < n; i++ {
		x, tx, T := in.Frequency[i], in.Recency[i], in.T[i]
		if !finite(x) || !finite(tx) || !finite(T) {
			return fmt.Errorf("%w: non-finite input at row %d", contracts.ErrModelFit, i)
		}
		if x < 0 || tx < 0 || T < 0 {
			return fmt.Errorf("%w: negative input at row %d", contracts.ErrInvalidValue, i)
		}
		if tx > T {
			return fmt.Errorf("%w: recency %v > T %v at row %d", contracts.ErrInvalidValue, tx, T, i)
		}
	}
	return nil
}

// validateSpend checks lengths, finiteness, frequency >= 1 and monetary > 0
func validateSpend(in contracts.SpendInputs) error {
	n := len(in.Frequency)
	if len(in.Monetary) != n {
		return fmt.Errorf("%w: frequency/monetary lengths %d/%d", contracts.ErrInvalidValue, n, len(in.Monetary))
	}
	if n == 0 {
		return contracts.ErrEmptyInput
	}
	for i := 0; i < n; i++ {
		x, m := in.Frequency[i], in.Monetary[i]
		if !finite(x) || !finite(m) {
			return fmt.Errorf("%w: non-finite input at row %d", contracts.ErrModelFit, i)
		}
		if x < 1 {
			return fmt.Errorf("%w: frequency %v < 1 at row %d", contracts.ErrInvalidValue, x, i)
		}
		if m <= 0 {
			return fmt.Errorf("%w: monetary %v <= 0 at row %d", contracts.ErrInvalidValue, m, i)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
