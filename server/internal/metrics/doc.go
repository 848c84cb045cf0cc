// Package metrics exposes the current report's aggregates in the Prometheus
// text exposition format at /metrics.
//
// Families are built directly as client_model protobufs on every scrape from
// the store's current report, so the exposition always matches the report
// the dashboard shows:
//
//	shelfsight_products_total
//	shelfsight_rejected_rows_total
//	shelfsight_tier_value_score_mean{tier}
//	shelfsight_tier_products{tier}
//	shelfsight_availability_products{label}
//	shelfsight_report_generated_timestamp_seconds
//	shelfsight_report_generation
//	shelfsight_reloads_total{result="success"|"failure"}
package metrics
