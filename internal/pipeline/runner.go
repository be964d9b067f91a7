package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/clv/backend/internal/clvconfig"
	"github.com/wonny/clv/backend/internal/contracts"
	"github.com/wonny/clv/backend/internal/frame"
	"github.com/wonny/clv/backend/internal/s0_data"
	"github.com/wonny/clv/backend/internal/s0_data/quality"
	"github.com/wonny/clv/backend/internal/s1_summary"
	"github.com/wonny/clv/backend/internal/s2_features"
	"github.com/wonny/clv/backend/internal/s3_model"
	"github.com/wonny/clv/backend/internal/s4_segment"
	"github.com/wonny/clv/backend/pkg/logger"
)

const (
	segmentColumn          = "segment"
	predictedSegmentColumn = "predicted_segment"
)

// Runner coordinates the 5-stage CLV pipeline
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Runner struct {
	source s0_data.Source
	logger *logger.Logger

	// nil이면 설정값으로 BG/NBD, Gamma-Gamma 생성
	repeatFitter contracts.RepeatPurchaseFitter
	spendFitter  contracts.SpendFitter

	onStage func(contracts.Stage)
}

// RunResult holds the results of a complete pipeline run
type RunResult struct {
	Report   *contracts.RunReport
	State    State
	Duration time.Duration
}

// NewRunner creates a new pipeline runner
func NewRunner(source s0_data.Source, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{source: source, logger: log}
}

// SetFitters replaces the default estimators
func (r *Runner) SetFitters(repeat contracts.RepeatPurchaseFitter, spend contracts.SpendFitter) {
	r.repeatFitter = repeat
	r.spendFitter = spend
}

// OnStage registers a callback invoked after each completed stage
func (r *Runner) OnStage(fn func(contracts.Stage)) {
	r.onStage = fn
}

// components are the stage workers built from one analysis config
type components struct {
	cfg       *clvconfig.Config
	gate      *quality.QualityGate
	summary   *s1_summary.Builder
	features  *s2_features.Extractor
	predictor *s3_model.Predictor
	segmenter *s4_segment.Segmenter
	repeat    contracts.RepeatPurchaseFitter
	spend     contracts.SpendFitter
}

func (r *Runner) components(cfg *clvconfig.Config) components {
	sumCols := s1_summary.DefaultColumns()
	sumCols.CustomerID = cfg.Columns.CustomerID
	sumCols.TransactionID = cfg.Columns.TransactionID
	sumCols.Quantity = cfg.Columns.Quantity
	sumCols.UnitPrice = cfg.Columns.UnitPrice

	featCols := s2_features.DefaultColumns()
	featCols.CustomerID = cfg.Columns.CustomerID
	featCols.TransactionID = cfg.Columns.TransactionID
	featCols.Date = cfg.Columns.Date
	featCols.SalesAmount = sumCols.SalesAmount

	extractor := s2_features.NewExtractor(featCols)

	c := components{
		cfg: cfg,
		gate: quality.NewQualityGate(quality.Config{
			MinScore: cfg.Data.MinQualityScore,
			Required: []string{
				cfg.Columns.Date, cfg.Columns.CustomerID, cfg.Columns.TransactionID,
				cfg.Columns.Quantity, cfg.Columns.UnitPrice,
			},
		}),
		summary:   s1_summary.NewBuilder(sumCols),
		features:  extractor,
		predictor: s3_model.NewPredictor(extractor, s3_model.DefaultOutputColumns()),
		segmenter: s4_segment.NewSegmenter(r.logger),
		repeat:    r.repeatFitter,
		spend:     r.spendFitter,
	}
	if c.repeat == nil {
		c.repeat = s3_model.NewBGNBDFitter(cfg.Model.BGNBDPenalizer, cfg.Model.MaxIterations)
	}
	if c.spend == nil {
		c.spend = s3_model.NewGammaGammaFitter(cfg.Model.GammaGammaPenalizer, cfg.Model.MaxIterations)
	}
	return c
}

// Run executes the complete pipeline
// S0 → S1 → S2 → S3 → S4
func (r *Runner) Run(ctx context.Context, cfg *clvconfig.Config) (*RunResult, error) {
	startTime := time.Now()

	if err := clvconfig.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid analysis config: %w", err)
	}
	hash, err := clvconfig.Hash(cfg)
	if err != nil {
		return nil, err
	}

	report := &contracts.RunReport{
		RunID:           uuid.NewString(),
		ConfigHash:      hash,
		StartedAt:       startTime,
		CompletedStages: make([]string, 0, len(contracts.AllStages())),
	}
	result := &RunResult{Report: report}

	log := r.logger.WithRun(report.RunID, hash).WithField("analysis_id", cfg.Meta.AnalysisID)
	log.Info("Starting pipeline run")

	c := r.components(cfg)
	state := State{}

	steps := []struct {
		stage contracts.Stage
		run   func(context.Context, components, State, *contracts.RunReport) (State, error)
	}{
		{contracts.StageData, r.runS0},
		{contracts.StageSummary, r.runS1},
		{contracts.StageFeatures, r.runS2},
		{contracts.StageModel, r.runS3},
		{contracts.StageSegment, r.runS4},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("%s canceled: %w", step.stage.ShortName(), err)
		}

		next, err := step.run(ctx, c, state, report)
		if err != nil {
			log.WithStage(step.stage.String()).WithError(err).Error("Stage failed")
			return result, fmt.Errorf("%s failed: %w", step.stage.ShortName(), err)
		}
		state = next
		result.State = state
		report.CompletedStages = append(report.CompletedStages, step.stage.String())

		if r.onStage != nil {
			r.onStage(step.stage)
		}
	}

	if err := fillReport(report, c, state); err != nil {
		return result, fmt.Errorf("build report: %w", err)
	}
	report.FinishedAt = time.Now()
	result.Duration = report.FinishedAt.Sub(startTime)

	log.WithDuration(result.Duration).WithFields(map[string]interface{}{
		"customers": report.Metrics.Customers,
		"warnings":  len(report.Warnings),
	}).Info("Pipeline run completed successfully")

	return result, nil
}

// runS0 loads transactions and runs the quality gate
func (r *Runner) runS0(ctx context.Context, c components, s State, _ *contracts.RunReport) (State, error) {
	r.logger.Info("Running S0: Data load")

	tx, err := r.source.Load(ctx, s0_data.DefaultQuery(c.cfg.Columns, c.cfg.Data.Query))
	if err != nil {
		return s, err
	}
	if tx.Len() == 0 {
		return s, fmt.Errorf("load transactions: %w", contracts.ErrEmptyInput)
	}

	snapshot, err := c.gate.Check(tx)
	if err != nil {
		return s, fmt.Errorf("quality gate validation: %w", err)
	}
	if !snapshot.Passed {
		return s, fmt.Errorf("quality gate failed: %w: score=%.2f", contracts.ErrInvalidValue, snapshot.QualityScore)
	}

	r.logger.WithFields(map[string]interface{}{
		"rows":          snapshot.Rows,
		"quality_score": snapshot.QualityScore,
	}).Info("S0 completed")

	return s.WithTransactions(tx).WithQuality(snapshot), nil
}

// runS1 builds the customer summary and the deterministic CLV
func (r *Runner) runS1(_ context.Context, c components, s State, report *contracts.RunReport) (State, error) {
	r.logger.Info("Running S1: Customer summary")
	b := c.summary

	tx, err := b.SalesAmount(s.Transactions)
	if err != nil {
		return s, err
	}
	s = s.WithTransactions(tx)

	summary, err := b.CustomerSummary(tx)
	if err != nil {
		return s, err
	}
	if summary, err = b.AverageOrderValue(summary); err != nil {
		return s, err
	}
	if summary, err = b.PurchaseFrequency(summary); err != nil {
		return s, err
	}

	repeat, err := b.RepeatRate(summary)
	if err != nil {
		return s, err
	}
	if repeat.NoRepeatCustomers {
		msg := "no repeat customers: repeat rate 0, churn rate 1"
		r.logger.WithField("customers", repeat.Customers).Warn(msg)
		report.Warnings = append(report.Warnings, msg)
	}
	churn, err := s1_summary.ChurnRate(repeat.Rate)
	if err != nil {
		return s, err
	}

	if summary, err = b.ProfitMargin(summary, c.cfg.Summary.ProfitMarginRate); err != nil {
		return s, err
	}
	if summary, err = b.CustomerValue(summary); err != nil {
		return s, err
	}
	if summary, err = b.CLV(summary, churn); err != nil {
		return s, err
	}

	r.logger.WithFields(map[string]interface{}{
		"customers":   summary.Len(),
		"repeat_rate": repeat.Rate,
		"churn_rate":  churn,
	}).Info("S1 completed")

	return s.WithSummary(summary).WithRepeat(repeat, churn), nil
}

// runS2 extracts frequency / recency / T / monetary
func (r *Runner) runS2(_ context.Context, c components, s State, _ *contracts.RunReport) (State, error) {
	r.logger.Info("Running S2: Features")

	all, err := c.features.Extract(s.Transactions, s2_features.Observation{
		Date:       c.cfg.ObservationDate(),
		OffsetDays: c.cfg.Features.OffsetDays,
	})
	if err != nil {
		return s, err
	}
	qualifying, err := c.features.Qualifying(all)
	if err != nil {
		return s, err
	}

	r.logger.WithFields(map[string]interface{}{
		"customers":  all.Len(),
		"qualifying": qualifying.Len(),
	}).Info("S2 completed")

	return s.WithFeatures(all, qualifying), nil
}

// runS3 fits both models and predicts purchases, profit and CLV
func (r *Runner) runS3(_ context.Context, c components, s State, _ *contracts.RunReport) (State, error) {
	r.logger.Info("Running S3: Model")
	unit := c.cfg.Unit()
	p := c.predictor

	repeatIn, err := c.features.RepeatInputs(s.Qualifying, unit)
	if err != nil {
		return s, err
	}
	repeat, err := c.repeat.Fit(repeatIn)
	if err != nil {
		return s, err
	}
	spendIn, err := c.features.SpendInputs(s.Qualifying)
	if err != nil {
		return s, err
	}
	spend, err := c.spend.Fit(spendIn)
	if err != nil {
		return s, err
	}
	s = s.WithModels(repeat, spend)

	purchases, err := p.PredictPurchases(repeat, s.Qualifying, c.cfg.Model.PurchaseHorizon)
	if err != nil {
		return s, err
	}
	profit, err := p.ExpectedAverageProfit(spend, s.Qualifying)
	if err != nil {
		return s, err
	}
	lifetime, err := p.LifetimeValue(repeat, spend, s.Qualifying, s3_model.LifetimeOptions{
		Months:       c.cfg.CLTV.Months,
		DiscountRate: c.cfg.CLTV.DiscountRate,
		Unit:         unit,
	})
	if err != nil {
		return s, err
	}

	alive, hasAlive, err := p.ProbabilityAlive(repeat, s.Qualifying)
	if err != nil {
		return s, err
	}

	key := c.features.Columns().CustomerID
	out := p.Columns()
	type selection struct {
		table  *frame.Frame
		column string
	}
	selections := []selection{
		{purchases, out.ExpectedPurchases},
		{profit, out.ExpectedProfit},
		{lifetime, out.PredictedCLV},
	}
	if hasAlive {
		selections = append(selections, selection{alive, out.ProbabilityAlive})
	}

	merged := s.Qualifying
	for _, sel := range selections {
		cols, err := sel.table.Select(key, sel.column)
		if err != nil {
			return s, err
		}
		if merged, err = p.MergePredictions(merged, cols); err != nil {
			return s, err
		}
	}

	r.logger.WithFields(map[string]interface{}{
		"customers": merged.Len(),
		"unit":      unit.String(),
		"months":    c.cfg.CLTV.Months,
	}).Info("S3 completed")

	// 진단용 격자: 실패해도 실행은 계속
	matrix, err := p.ActivityMatrix(repeat, s.Qualifying)
	if err != nil {
		r.logger.WithError(err).Warn("Activity matrix skipped")
		matrix = nil
	}

	return s.WithPurchases(purchases).WithProfit(profit).WithLifetime(lifetime).
		WithActivity(alive, matrix).WithPredictions(merged), nil
}

// runS4 segments both CLV estimates and summarizes each segment
func (r *Runner) runS4(_ context.Context, c components, s State, _ *contracts.RunReport) (State, error) {
	r.logger.Info("Running S4: Segment")
	labels := c.cfg.Segment.Labels
	key := c.cfg.Columns.CustomerID

	summary, err := c.segmenter.Assign(s.Summary, s4_segment.Options{
		ValueColumn:   c.summary.Columns().CLV,
		SegmentColumn: segmentColumn,
		Labels:        labels,
	})
	if err != nil {
		return s, err
	}
	segments, err := c.segmenter.Summarize(summary, segmentColumn, labels, key)
	if err != nil {
		return s, err
	}

	predictions, err := c.segmenter.Assign(s.Predictions, s4_segment.Options{
		ValueColumn:   c.predictor.Columns().PredictedCLV,
		SegmentColumn: predictedSegmentColumn,
		Labels:        labels,
	})
	if err != nil {
		return s, err
	}
	predicted, err := c.segmenter.Summarize(predictions, predictedSegmentColumn, labels, key)
	if err != nil {
		return s, err
	}

	r.logger.WithField("segments", len(labels)).Info("S4 completed")

	return s.WithSummary(summary).WithPredictions(predictions).WithSegments(segments, predicted), nil
}
