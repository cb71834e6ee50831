// Package history implements the batch recorder for accepted updates.
//
// The Recorder:
//   - Buffers updates from the bridge on a bounded channel (never blocks)
//   - Accumulates batches and flushes on size or interval
//   - Appends to the update_history table (TimescaleDB, insert-only)
package history
