// Package analytics orchestrates one pipeline run: clean, join, score,
// estimate and aggregate. A run is a pure function of the loaded tables,
// the analysis date and the date window, so re-running with identical
// inputs reproduces identical outputs.
package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"shoppulse/internal/aggregate"
	"shoppulse/internal/config"
	"shoppulse/internal/dataset"
	"shoppulse/internal/pipeline"
	"shoppulse/internal/regionstats"
	"shoppulse/internal/rfm"
)

// Result bundles every table a run produces for the exporter and the
// dashboard API.
type Result struct {
	RunID        string    `json:"run_id"`
	AnalysisDate time.Time `json:"analysis_date"`
	GeneratedAt  time.Time `json:"generated_at"`
	From         string    `json:"from,omitempty"`
	To           string    `json:"to,omitempty"`

	RFM            []rfm.Record               `json:"rfm"`
	SegmentCounts  []rfm.SegmentCount         `json:"segment_counts"`
	RegionStats    []regionstats.RegionStat   `json:"region_stats"`
	Overall        regionstats.Overall        `json:"overall"`
	ProductRevenue []aggregate.ProductRevenue `json:"product_revenue"`
	DailyOrders    []aggregate.DailyOrders    `json:"daily_orders"`

	SpendByCity      []aggregate.PlaceSpend     `json:"spend_by_city"`
	SpendByState     []aggregate.PlaceSpend     `json:"spend_by_state"`
	CustomersByCity  []aggregate.PlaceCustomers `json:"customers_by_city"`
	CustomersByState []aggregate.PlaceCustomers `json:"customers_by_state"`
	MostCommonState  string                     `json:"most_common_state"`

	CategoryCounts  []aggregate.CategoryCount `json:"category_counts"`
	StatusCounts    []aggregate.StatusCount   `json:"status_counts"`
	ReviewScores    []aggregate.ScoreCount    `json:"review_scores"`
	MostCommonScore int                       `json:"most_common_score"`
}

// Service owns the cleaned tables and joined views of one dataset and
// runs the analytics over them, optionally narrowed to a date window.
type Service struct {
	cfg       *config.Config
	logger    *slog.Logger
	engine    *rfm.Engine
	estimator *regionstats.Estimator

	tables   *dataset.Tables
	sales    []pipeline.SalesRow
	payments []pipeline.PaymentRow
}

// NewService cleans and joins the raw tables once and prepares the
// scoring engine. The analysis date must be configured.
func NewService(ctx context.Context, cfg *config.Config, raw *dataset.Tables, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	analysisDate, err := cfg.AnalysisDate()
	if err != nil {
		return nil, err
	}

	rules := rfm.DefaultSegmentRules()
	if cfg.Analysis.SegmentRulesFile != "" {
		rules, err = rfm.LoadSegmentRules(cfg.Analysis.SegmentRulesFile)
		if err != nil {
			return nil, err
		}
	}

	engine, err := rfm.NewEngine(rfm.Config{
		AnalysisDate:    analysisDate,
		BinCount:        cfg.Analysis.BinCount,
		AllowDegenerate: cfg.Analysis.AllowDegenerate,
		Rules:           rules,
	}, logger)
	if err != nil {
		return nil, err
	}

	cleaner := dataset.NewCleaner(logger)
	joiner := pipeline.NewJoiner(logger)

	tables := cleaner.Clean(ctx, raw)

	return &Service{
		cfg:       cfg,
		logger:    logger,
		engine:    engine,
		estimator: regionstats.NewEstimator(cfg.Analysis.Confidence, logger),
		tables:    tables,
		sales:     joiner.SalesRows(ctx, tables),
		payments:  joiner.PaymentRows(ctx, tables),
	}, nil
}

// Run executes the full analytics over the date window. Zero bounds
// leave the window open on that side. Filtering is on order approval,
// matching the dashboard date picker.
func (s *Service) Run(ctx context.Context, from, to time.Time) (*Result, error) {
	analysisDate, err := s.cfg.AnalysisDate()
	if err != nil {
		return nil, err
	}

	sales := pipeline.FilterByApproval(s.sales, from, to)
	payments := pipeline.FilterPaymentsByApproval(s.payments, from, to)
	orders := filterOrders(s.tables.Orders, from, to)

	records, err := s.engine.Compute(ctx, pipeline.Purchases(sales))
	if err != nil {
		return nil, err
	}

	spends := pipeline.CustomerSpend(payments)

	customersByCity := aggregate.CustomersByPlace(s.tables.Customers, aggregate.CustomerCity)
	customersByState := aggregate.CustomersByPlace(s.tables.Customers, aggregate.CustomerState)
	reviewScores := aggregate.ReviewScores(s.tables.Reviews)

	result := &Result{
		RunID:        uuid.New().String(),
		AnalysisDate: analysisDate,
		GeneratedAt:  time.Now().UTC(),

		RFM:            records,
		SegmentCounts:  s.engine.CountSegments(records),
		RegionStats:    s.estimator.ByState(ctx, spends),
		Overall:        s.estimator.Pooled(spends),
		ProductRevenue: aggregate.ProductRevenuePivot(sales),
		DailyOrders:    aggregate.DailyOrderSeries(payments),

		SpendByCity:      aggregate.SpendByPlace(payments, aggregate.ByCity),
		SpendByState:     aggregate.SpendByPlace(payments, aggregate.ByState),
		CustomersByCity:  customersByCity,
		CustomersByState: customersByState,
		MostCommonState:  aggregate.MostCommonPlace(customersByState),

		CategoryCounts:  aggregate.CategoryCounts(sales, s.tables.Products, s.tables.Translations),
		StatusCounts:    aggregate.StatusCounts(orders),
		ReviewScores:    reviewScores,
		MostCommonScore: aggregate.MostCommonScore(reviewScores),
	}
	if !from.IsZero() {
		result.From = from.Format(config.AnalysisDateFormat)
	}
	if !to.IsZero() {
		result.To = to.Format(config.AnalysisDateFormat)
	}

	s.logger.InfoContext(ctx, "analytics run complete",
		slog.String("run_id", result.RunID),
		slog.Int("rfm_records", len(result.RFM)),
		slog.Int("region_stats", len(result.RegionStats)),
		slog.Int("products", len(result.ProductRevenue)))

	return result, nil
}

// DateBounds returns the approval-date range of the loaded dataset.
func (s *Service) DateBounds() (time.Time, time.Time) {
	return aggregate.ApprovalBounds(s.payments)
}

func filterOrders(orders []dataset.Order, from, to time.Time) []dataset.Order {
	kept := make([]dataset.Order, 0, len(orders))
	for _, o := range orders {
		if !from.IsZero() && o.ApprovedAt.Before(from) {
			continue
		}
		if !to.IsZero() && o.ApprovedAt.After(to) {
			continue
		}
		kept = append(kept, o)
	}
	return kept
}
