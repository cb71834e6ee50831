// Package keepalive implements the application-level ping loop.
//
// The Keepalive:
//   - Requests a keepalive-ack every interval (default 30s)
//   - Proves the path end-to-end, beyond protocol-level pings
//   - Skips silently while disconnected; the manager owns recovery
package keepalive
