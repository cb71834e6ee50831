// Package database provides connection pool management for the update
// history store.
//
// The sync daemon's history lives in TimescaleDB; accepted updates are
// appended to the update_history hypertable by the history recorder.
package database
