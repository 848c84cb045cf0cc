// Package types defines the shared product record types used across the
// dataset loaders, the metrics deriver and the serving surfaces. These are
// the canonical in-memory representations of one product row, separate from
// the CSV/SQLite column layout and from the JSON wire format.
package types
