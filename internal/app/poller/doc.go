// Package poller keeps the farm snapshot cache fresh.
//
// The poller derives the set of fetch keys from the selected chain, the
// connected account and the farm feature flag, and hands one job per key to
// the Scheduler. The Scheduler owns an explicit key → runner table: each
// runner fetches immediately, then on its refresh interval, never with two
// fetches in flight for the same key. Results are committed to the snapshot
// sink unless the key was retired while the fetch was running.
package poller
