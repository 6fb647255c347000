// Package regionstats estimates per-state customer spend with
// Student-t confidence intervals.
package regionstats

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// CustomerSpend is one customer's total payment value and home state,
// produced by the payments join.
type CustomerSpend struct {
	CustomerUniqueID string  `json:"customer_unique_id"`
	State            string  `json:"state"`
	Total            float64 `json:"total"`
}

// RegionStat summarizes one state's per-customer spend. CILow and
// CIHigh are both set when Count > 1 and both nil otherwise; a state
// with a single customer has no defined interval, which is not an error.
type RegionStat struct {
	State  string   `json:"state"`
	Mean   float64  `json:"mean"`
	Std    float64  `json:"std"`
	Count  int      `json:"count"`
	CILow  *float64 `json:"ci_low"`
	CIHigh *float64 `json:"ci_high"`
}

// Overall is the pooled interval across the whole customer population,
// computed with the standard error of the mean.
type Overall struct {
	Mean   float64  `json:"mean"`
	Std    float64  `json:"std"`
	Count  int      `json:"count"`
	CILow  *float64 `json:"ci_low"`
	CIHigh *float64 `json:"ci_high"`
}

// Estimator computes spend statistics at a fixed confidence level.
type Estimator struct {
	confidence float64
	logger     *slog.Logger
}

// NewEstimator creates an estimator. Confidence outside (0,1) falls
// back to 0.95.
func NewEstimator(confidence float64, logger *slog.Logger) *Estimator {
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Estimator{confidence: confidence, logger: logger}
}

// ByState groups per-customer totals by state and computes mean, sample
// standard deviation, count and the two-sided confidence interval per
// state. Every state present in the input appears exactly once in the
// output, sorted by state code.
func (e *Estimator) ByState(ctx context.Context, spends []CustomerSpend) []RegionStat {
	byState := make(map[string][]float64)
	for _, s := range spends {
		if s.State == "" {
			continue
		}
		byState[s.State] = append(byState[s.State], s.Total)
	}

	states := make([]string, 0, len(byState))
	for state := range byState {
		states = append(states, state)
	}
	sort.Strings(states)

	result := make([]RegionStat, 0, len(states))
	for _, state := range states {
		values := byState[state]
		rs := RegionStat{
			State: state,
			Mean:  stat.Mean(values, nil),
			Count: len(values),
		}
		if len(values) > 1 {
			rs.Std = stat.StdDev(values, nil)
			low, high := e.interval(rs.Mean, rs.Std/math.Sqrt(float64(rs.Count)), rs.Count-1)
			rs.CILow, rs.CIHigh = &low, &high
		}
		result = append(result, rs)
	}

	e.logger.InfoContext(ctx, "computed region statistics",
		slog.Int("states", len(result)),
		slog.Int("customers", len(spends)))

	return result
}

// Pooled computes the overall interval over every customer total using
// the standard error of the mean.
func (e *Estimator) Pooled(spends []CustomerSpend) Overall {
	values := make([]float64, 0, len(spends))
	for _, s := range spends {
		values = append(values, s.Total)
	}
	overall := Overall{Count: len(values)}
	if len(values) == 0 {
		return overall
	}
	overall.Mean = stat.Mean(values, nil)
	if len(values) > 1 {
		overall.Std = stat.StdDev(values, nil)
		sem := overall.Std / math.Sqrt(float64(overall.Count))
		low, high := e.interval(overall.Mean, sem, overall.Count-1)
		overall.CILow, overall.CIHigh = &low, &high
	}
	return overall
}

// interval returns the two-sided confidence interval for a mean with
// the given scale and degrees of freedom.
func (e *Estimator) interval(mean, scale float64, df int) (float64, float64) {
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	q := t.Quantile(1 - (1-e.confidence)/2)
	return mean - q*scale, mean + q*scale
}
