// Package history keeps a bounded, in-memory record of jobs that reached
// a terminal state.
//
// A [Buffer] holds at most its capacity; pushing into a full buffer evicts
// the oldest entry. It is the diagnostics surface behind the engine's
// Stats: counts of completed and failed jobs are computed over what is
// retained, so evicted jobs no longer contribute.
package history
