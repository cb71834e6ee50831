// Package session implements a single WebSocket connection attempt.
//
// A Session:
//   - Dials the push endpoint and runs a dedicated read loop
//   - Decodes wire frames and reports them through Events callbacks
//   - Sends protocol pings and force-closes stale connections
//   - Classifies every termination as clean or unclean
//
// Sessions are single-use: once closed they are never reopened. The
// connection manager creates a fresh Session for every attempt.
package session
