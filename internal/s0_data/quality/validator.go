package quality

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/clv/backend/internal/contracts"
	"github.com/wonny/clv/backend/internal/frame"
)

// describeQuantiles are the percentiles reported for every numeric column
var describeQuantiles = []float64{0, 0.05, 0.50, 0.95, 0.99, 1}

// QualityGate validates the loaded transaction table and generates snapshots
type QualityGate struct {
	config Config
}

// Config holds quality gate thresholds
type Config struct {
	MinScore float64  `yaml:"min_score"` // 0.7
	Required []string `yaml:"required"`  // 점수 계산 대상 컬럼 (비어 있으면 전체)
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(config Config) *QualityGate {
	return &QualityGate{config: config}
}

// Check profiles every column and scores the table by non-null coverage
// ⭐ SSOT: S0 → S1 품질 검증
func (g *QualityGate) Check(f *frame.Frame) (*contracts.DataQualitySnapshot, error) {
	if err := f.Require(g.config.Required...); err != nil {
		return nil, fmt.Errorf("quality check: %w", err)
	}

	snapshot := &contracts.DataQualitySnapshot{
		CheckedAt: time.Now(),
		Rows:      f.Len(),
		Columns:   len(f.Names()),
		Coverage:  make(map[string]float64),
	}

	// 1. 컬럼별 프로파일
	for _, name := range f.Names() {
		profile := Describe(f, name)
		snapshot.Profiles = append(snapshot.Profiles, profile)

		if f.Len() > 0 {
			snapshot.Coverage[name] = float64(f.Len()-profile.Nulls) / float64(f.Len())
		} else {
			snapshot.Coverage[name] = 0
		}
	}

	// 2. 품질 점수 계산
	snapshot.QualityScore = g.calculateScore(snapshot.Coverage)
	snapshot.Passed = snapshot.IsValid(g.config.MinScore)

	return snapshot, nil
}

// calculateScore averages coverage over the required columns
func (g *QualityGate) calculateScore(coverage map[string]float64) float64 {
	names := g.config.Required
	if len(names) == 0 {
		for name := range coverage {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return 0
	}

	total := 0.0
	for _, name := range names {
		total += coverage[name]
	}
	return total / float64(len(names))
}

// Describe returns unique/null counts and, for numeric columns, the
// 0/5/50/95/99/100 % quantiles of a column.
// NULL 기준: float NaN, string "", time zero
func Describe(f *frame.Frame, name string) contracts.ColumnProfile {
	col, ok := f.Column(name)
	if !ok {
		return contracts.ColumnProfile{Name: name}
	}

	profile := contracts.ColumnProfile{Name: name, Kind: col.Kind.String()}
	seen := make(map[interface{}]struct{})

	for i := 0; i < col.Len(); i++ {
		v := col.Value(i)
		if isNull(v) {
			profile.Nulls++
			continue
		}
		if t, ok := v.(time.Time); ok {
			v = t.UnixNano()
		}
		seen[v] = struct{}{}
	}
	profile.Unique = len(seen)

	if col.Kind == frame.KindInt || col.Kind == frame.KindFloat {
		values, _ := f.Numeric(name)
		qs := frame.Quantiles(values, describeQuantiles...)
		profile.Quantiles = make(map[string]float64, len(qs))
		for i, q := range describeQuantiles {
			if !math.IsNaN(qs[i]) {
				profile.Quantiles[fmt.Sprintf("%g%%", q*100)] = qs[i]
			}
		}
	}

	return profile
}

func isNull(v interface{}) bool {
	switch x := v.(type) {
	case float64:
		return math.IsNaN(x)
	case string:
		return x == ""
	case time.Time:
		return x.IsZero()
	default:
		return false
	}
}
