package rfm

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Purchase is one order-item row attributed to a customer, the minimal
// input the engine needs from the cleaned join.
type Purchase struct {
	CustomerUniqueID string
	PurchasedAt      time.Time
	Price            float64
}

// Record is the scored result for one unique customer.
type Record struct {
	CustomerUniqueID string  `json:"customer_unique_id"`
	Recency          int     `json:"recency"`
	Frequency        int     `json:"frequency"`
	Monetary         float64 `json:"monetary"`
	RScore           int     `json:"r_score"`
	FScore           int     `json:"f_score"`
	MScore           int     `json:"m_score"`
	Code             string  `json:"code"`
	Segment          string  `json:"segment"`
}

// Config carries the knobs of one engine instance. AnalysisDate is a
// caller-supplied constant, never wall-clock now, so identical inputs
// always reproduce identical scores.
type Config struct {
	AnalysisDate    time.Time
	BinCount        int
	AllowDegenerate bool
	Rules           []SegmentRule
}

// Engine computes RFM records for a customer population.
type Engine struct {
	analysisDate time.Time
	binner       *Binner
	segments     *SegmentTable
	logger       *slog.Logger
}

// NewEngine creates an engine. BinCount defaults to 4 and Rules to the
// built-in table when unset; AnalysisDate is required.
func NewEngine(cfg Config, logger *slog.Logger) (*Engine, error) {
	if cfg.AnalysisDate.IsZero() {
		return nil, fmt.Errorf("rfm: analysis date is required")
	}
	if cfg.BinCount == 0 {
		cfg.BinCount = 4
	}
	if cfg.Rules == nil {
		cfg.Rules = DefaultSegmentRules()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		analysisDate: cfg.AnalysisDate,
		binner:       NewBinner(cfg.BinCount, cfg.AllowDegenerate),
		segments:     NewSegmentTable(cfg.Rules),
		logger:       logger,
	}, nil
}

// SegmentTable exposes the engine's classification table.
func (e *Engine) SegmentTable() *SegmentTable {
	return e.segments
}

// Compute scores the full population in one pass: group purchases by
// customer, derive recency/frequency/monetary, quartile-bucket each
// dimension across all customers, compose the code and classify it.
// Either every customer is scored or an error is returned; a partial
// table is never produced.
func (e *Engine) Compute(ctx context.Context, purchases []Purchase) ([]Record, error) {
	grouped := make(map[string]*Record)
	lastPurchase := make(map[string]time.Time)

	for _, p := range purchases {
		if p.CustomerUniqueID == "" {
			continue
		}
		rec, ok := grouped[p.CustomerUniqueID]
		if !ok {
			rec = &Record{CustomerUniqueID: p.CustomerUniqueID}
			grouped[p.CustomerUniqueID] = rec
		}
		rec.Frequency++
		rec.Monetary += p.Price
		if p.PurchasedAt.After(lastPurchase[p.CustomerUniqueID]) {
			lastPurchase[p.CustomerUniqueID] = p.PurchasedAt
		}
	}

	if len(grouped) == 0 {
		return []Record{}, nil
	}

	records := make([]Record, 0, len(grouped))
	for id, rec := range grouped {
		rec.Recency = wholeDays(lastPurchase[id], e.analysisDate)
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CustomerUniqueID < records[j].CustomerUniqueID
	})

	recency := make([]float64, len(records))
	frequency := make([]float64, len(records))
	monetary := make([]float64, len(records))
	for i, rec := range records {
		recency[i] = float64(rec.Recency)
		frequency[i] = float64(rec.Frequency)
		monetary[i] = rec.Monetary
	}

	rScores, err := e.binner.Score("recency", recency)
	if err != nil {
		return nil, err
	}
	fScores, err := e.binner.Score("frequency", frequency)
	if err != nil {
		return nil, err
	}
	mScores, err := e.binner.Score("monetary", monetary)
	if err != nil {
		return nil, err
	}

	for i := range records {
		// Recency is inverted: the most recent purchase earns the top score
		records[i].RScore = e.binner.Invert(rScores[i])
		records[i].FScore = fScores[i]
		records[i].MScore = mScores[i]
		records[i].Code = fmt.Sprintf("%d%d%d", records[i].RScore, records[i].FScore, records[i].MScore)
		records[i].Segment = e.segments.Classify(records[i].Code)
	}

	e.logger.InfoContext(ctx, "computed rfm records",
		slog.Int("customers", len(records)),
		slog.Time("analysis_date", e.analysisDate))

	return records, nil
}

// SegmentCounts tallies records per segment in the table's order.
type SegmentCount struct {
	Segment string `json:"segment"`
	Count   int    `json:"count"`
}

// CountSegments aggregates a scored table into per-segment counts,
// listing every named segment even when empty.
func (e *Engine) CountSegments(records []Record) []SegmentCount {
	byName := make(map[string]int)
	for _, rec := range records {
		byName[rec.Segment]++
	}
	segments := e.segments.Segments()
	counts := make([]SegmentCount, 0, len(segments))
	for _, name := range segments {
		counts = append(counts, SegmentCount{Segment: name, Count: byName[name]})
	}
	return counts
}

// wholeDays returns the whole-day difference from a to b, truncated.
func wholeDays(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
