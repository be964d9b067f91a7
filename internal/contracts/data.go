package contracts

import "time"

// ColumnProfile describes one column of the loaded transaction table
type ColumnProfile struct {
	Name      string             `json:"name"`
	Kind      string             `json:"kind"`
	Unique    int                `json:"unique"`
	Nulls     int                `json:"nulls"`
	Quantiles map[string]float64 `json:"quantiles,omitempty"` // 숫자 컬럼만 (0%, 5%, 50%, 95%, 99%, 100%)
}

// DataQualitySnapshot represents data quality information passed from S0 to S1
// ⭐ SSOT: S0 → S1 데이터 품질 정보 전달
type DataQualitySnapshot struct {
	CheckedAt    time.Time          `json:"checked_at"`
	Rows         int                `json:"rows"`
	Columns      int                `json:"columns"`
	Profiles     []ColumnProfile    `json:"profiles"`
	Coverage     map[string]float64 `json:"coverage"`      // 컬럼별 non-null 비율
	QualityScore float64            `json:"quality_score"` // 0.0 ~ 1.0
	Passed       bool               `json:"passed"`        // 품질 검증 통과 여부
}

// IsValid checks if the data quality snapshot meets minimum requirements
func (d *DataQualitySnapshot) IsValid(minScore float64) bool {
	return d.Rows > 0 && d.QualityScore >= minScore
}

// CoverageRate returns the average coverage rate across all columns
func (d *DataQualitySnapshot) CoverageRate() float64 {
	if len(d.Coverage) == 0 {
		return 0.0
	}

	total := 0.0
	for _, rate := range d.Coverage {
		total += rate
	}

	return total / float64(len(d.Coverage))
}
