// Package render serves the server-side dashboard: one HTML page with the
// five charts as inline SVG plus the top-reviewed table, and each chart on
// its own under /charts/{name}.svg.
//
// Rendered output is cached per store generation with go-cache, so repeated
// page loads between reloads cost a map lookup. A new generation simply
// misses the cache; stale entries expire after the configured TTL.
package render
