// Package model defines the payload types pushed by the status server.
//
// Conventions:
//   - IDs: uuid.UUID for devices, string for dashboard targets
//   - Timestamps: time.Time, RFC 3339 on the wire
//   - Bandwidth: bytes per second, averaged over the sample window
package model
