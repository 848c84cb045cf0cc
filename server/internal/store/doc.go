// Package store holds the dashboard's current report and a short history of
// the reports that preceded it. Readers get the current *compute.Report under
// a read lock; a reload swaps it with Put. Superseded reports stay reachable
// by ID until they are older than the history TTL.
package store
