// Package compute derives product metrics from raw dataset rows.
//
// value.go provides the pure ValueScore(rating, price) function:
// rating / ln(1+price). A non-positive price or a non-finite result is
// reported as a *ValidationError, never returned as NaN/Inf.
//
// availability.go assigns the stock proxy label. Thresholds are quantiles of
// the review counts over the full dataset, so labels are dataset-relative:
// High when reviews > q(high) and rating >= floor, Medium when
// reviews > q(medium), Low otherwise.
//
// aggregate.go, histogram.go and lowess.go compute the five dashboard views.
// report.go ties everything together in Build, which takes an explicit
// time.Time so tests are deterministic.
package compute
