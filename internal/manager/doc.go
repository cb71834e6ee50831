// Package manager implements the connection lifecycle state machine.
//
// The Manager:
//   - Holds at most one live session at a time
//   - Retries unclean closures with exponential backoff (1s base, 30s cap)
//   - Abandons after the configured attempt limit until told to reconnect
//   - Tags sessions with generations so late events from dead sessions
//     are discarded
//   - Fans decoded frames out to the listener registry
package manager
