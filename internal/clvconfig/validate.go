package clvconfig

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/clv/backend/internal/contracts"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.AnalysisID == "" {
		return ValidationError{"meta.analysis_id", "required"}
	}

	// === Data ===
	if cfg.Data.MinQualityScore < 0 || cfg.Data.MinQualityScore > 1 {
		return ValidationError{"data.min_quality_score", "must be in [0, 1]"}
	}

	// === Columns ===
	cols := map[string]string{
		"columns.date":           cfg.Columns.Date,
		"columns.customer_id":    cfg.Columns.CustomerID,
		"columns.transaction_id": cfg.Columns.TransactionID,
		"columns.quantity":       cfg.Columns.Quantity,
		"columns.unit_price":     cfg.Columns.UnitPrice,
	}
	for field, name := range cols {
		if name == "" {
			return ValidationError{field, "required"}
		}
	}

	// === Summary ===
	if !finite(cfg.Summary.ProfitMarginRate) || cfg.Summary.ProfitMarginRate < 0 {
		return ValidationError{"summary.profit_margin_rate", "must be >= 0"}
	}

	// === Features ===
	if cfg.Features.ObservationDate != "" {
		if _, err := time.Parse("2006-01-02", cfg.Features.ObservationDate); err != nil {
			return ValidationError{"features.observation_date", "must be YYYY-MM-DD"}
		}
	}
	if cfg.Features.OffsetDays < 0 {
		return ValidationError{"features.offset_days", "must be >= 0"}
	}

	// === Model ===
	if _, err := contracts.ParseTimeUnit(cfg.Model.Unit); err != nil {
		return ValidationError{"model.unit", "must be one of H, D, W, M"}
	}
	if !finite(cfg.Model.BGNBDPenalizer) || cfg.Model.BGNBDPenalizer < 0 {
		return ValidationError{"model.bgnbd_penalizer", "must be >= 0"}
	}
	if !finite(cfg.Model.GammaGammaPenalizer) || cfg.Model.GammaGammaPenalizer < 0 {
		return ValidationError{"model.gamma_gamma_penalizer", "must be >= 0"}
	}
	if cfg.Model.MaxIterations <= 0 {
		return ValidationError{"model.max_iterations", "must be > 0"}
	}
	if !finite(cfg.Model.PurchaseHorizon) || cfg.Model.PurchaseHorizon <= 0 {
		return ValidationError{"model.purchase_horizon", "must be > 0"}
	}

	// === CLTV ===
	if cfg.CLTV.Months <= 0 {
		return ValidationError{"cltv.months", "must be > 0"}
	}
	if !finite(cfg.CLTV.DiscountRate) || cfg.CLTV.DiscountRate <= -1 {
		return ValidationError{"cltv.discount_rate", "must be > -1"}
	}

	// === Segment ===
	if len(cfg.Segment.Labels) < 2 {
		return ValidationError{"segment.labels", "need at least 2 labels"}
	}
	seen := make(map[string]bool, len(cfg.Segment.Labels))
	for _, l := range cfg.Segment.Labels {
		if l == "" {
			return ValidationError{"segment.labels", "empty label"}
		}
		if seen[l] {
			return ValidationError{"segment.labels", fmt.Sprintf("duplicate label %q", l)}
		}
		seen[l] = true
	}

	return nil
}

// ObservationDate returns the configured observation date, or the zero time
func (c *Config) ObservationDate() time.Time {
	if c.Features.ObservationDate == "" {
		return time.Time{}
	}
	d, _ := time.Parse("2006-01-02", c.Features.ObservationDate)
	return d
}

// Unit returns the parsed model unit
func (c *Config) Unit() contracts.TimeUnit {
	u, _ := contracts.ParseTimeUnit(c.Model.Unit)
	return u
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
