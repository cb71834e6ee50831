// Package bridge applies pushed updates to dashboard targets with
// last-write-wins ordering.
//
// Each target keeps a monotonic marker (logical timestamp plus arrival
// sequence). Updates older than the marker are discarded; accepted
// updates advance the marker before rendering, so a re-entrant read
// during render always sees the newest state. Partial-refresh responses
// flow through the same gate via ApplyRefresh.
package bridge
