// Package refresh turns a dataset into the live report.
//
// Refresher.Reload runs one load pass: dataset.Load reads the configured
// source, compute.Build derives the report, store.Put publishes it, the
// alert engine evaluates it and the WebSocket hub pushes it to clients.
// A failed pass is logged and leaves the previous report in place.
//
// Reloads are serialised. Apply swaps in a new config between passes, and
// Watch follows the dataset file, moving to the new path when Apply changes it.
package refresh
