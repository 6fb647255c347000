// Package rfm implements Recency/Frequency/Monetary customer scoring.
//
// The engine groups purchases by customer unique id, measures each
// customer's recency against a fixed analysis date, buckets the three
// dimensions into equal-population quartiles over the whole customer
// population, composes the three ordinal scores into a code such as
// "444", and classifies the code through an ordered, data-driven rule
// table with "Others" as the default.
//
// Binning is rank-based over the empirical distribution. When a
// dimension carries too few distinct values to fill every bucket, ties
// collapse deterministically onto the lower bucket; a single-valued
// dimension either falls back to the middle score for every customer or
// fails with a named degenerate-distribution error, depending on
// configuration. The engine scores the full population or fails as a
// whole; it never emits a partial table.
package rfm
