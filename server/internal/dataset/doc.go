// Package dataset reads product rows from a CSV file or a SQLite table.
//
// Both sources share the same column contract: product_name, price, rating,
// reviews and price_tier must be present (any order, extra columns ignored).
// Every row is parsed and checked with compute.Validate. What happens to an
// invalid row depends on the Policy: Reject fails the whole load with the
// row's *compute.ValidationError, Skip drops it, logs it at WARN and counts
// it in Result.Rejected. A missing column always fails the load.
package dataset
