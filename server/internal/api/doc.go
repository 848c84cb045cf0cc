// Package api implements the shelfsight JSON REST API.
//
// New(store, alerts) returns an http.Handler that serves:
//
//	GET /api/v1/health              liveness plus current generation
//	GET /api/v1/summary             dataset-wide statistics and thresholds
//	GET /api/v1/tiers               mean value score per price tier, best first
//	GET /api/v1/availability        stock proxy breakdown (count + pct)
//	GET /api/v1/prices/histogram    price histogram (log-scaled frequency axis)
//	GET /api/v1/ratings             rating-vs-price points and trend line
//	GET /api/v1/products/top?n=     most-reviewed products
//	GET /api/v1/products            enriched products, ?label= and ?tier= filters
//	GET /api/v1/insights            human-readable hints about the dataset
//	GET /api/v1/alerts              firing and recently resolved alerts
//	GET /api/v1/report              the full current report
//	GET /api/v1/reports             current and superseded reports, newest first
//	GET /api/v1/reports/{id}        one report by ID
//
// All endpoints answer application/json, return 405 for non-GET methods and
// 503 while no report has been loaded (health excepted).
package api
