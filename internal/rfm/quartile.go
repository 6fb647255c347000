package rfm

import (
	"sort"

	apperrors "shoppulse/internal/errors"
)

// Binner assigns equal-population ordinal scores (1..binCount) to values
// of one score dimension. Scoring is rank-consistent: a strictly larger
// value never receives a lower score.
type Binner struct {
	binCount        int
	allowDegenerate bool
}

// NewBinner creates a binner. binCount is 4 for classic quartiles.
func NewBinner(binCount int, allowDegenerate bool) *Binner {
	if binCount < 2 {
		binCount = 2
	}
	return &Binner{binCount: binCount, allowDegenerate: allowDegenerate}
}

// Score buckets every value against the empirical distribution of the
// whole slice and returns scores aligned with the input order.
//
// Ties straddling a bucket boundary collapse onto the lower bucket, so
// equal values always score equally. A single-valued distribution is
// degenerate: with the fallback enabled every value gets the middle
// score, otherwise a DEGENERATE_DISTRIBUTION error is returned and no
// scores are emitted.
func (b *Binner) Score(dimension string, values []float64) ([]int, error) {
	n := len(values)
	if n == 0 {
		return []int{}, nil
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	distinct := countDistinct(sorted)
	if distinct == 1 {
		if !b.allowDegenerate {
			return nil, apperrors.NewDegenerateDistributionError(dimension, distinct)
		}
		scores := make([]int, n)
		mid := (b.binCount + 1) / 2
		for i := range scores {
			scores[i] = mid
		}
		return scores, nil
	}

	cuts := b.cutpoints(sorted)
	scores := make([]int, n)
	for i, v := range values {
		score := 1
		for _, cut := range cuts {
			if v > cut {
				score++
			}
		}
		scores[i] = score
	}
	return scores, nil
}

// Invert flips a score so the smallest underlying value receives the
// highest score. Used for recency, where recent means valuable.
func (b *Binner) Invert(score int) int {
	return b.binCount + 1 - score
}

// BinCount returns the configured number of buckets.
func (b *Binner) BinCount() int {
	return b.binCount
}

// cutpoints computes the binCount-1 interior empirical quantiles of an
// already-sorted slice, with linear interpolation between order
// statistics.
func (b *Binner) cutpoints(sorted []float64) []float64 {
	cuts := make([]float64, 0, b.binCount-1)
	for k := 1; k < b.binCount; k++ {
		q := float64(k) / float64(b.binCount)
		cuts = append(cuts, quantile(sorted, q))
	}
	return cuts
}

// quantile returns the q-th empirical quantile of a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(pos)
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func countDistinct(sorted []float64) int {
	if len(sorted) == 0 {
		return 0
	}
	distinct := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			distinct++
		}
	}
	return distinct
}
