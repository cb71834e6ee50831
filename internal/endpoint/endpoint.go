// Package endpoint derives the push-service WebSocket URL from the
// dashboard's own origin, so a securely-served dashboard talks to the
// secure transport variant.
package endpoint

import (
	"fmt"
	"net/url"
	"strings"
)

// Resolve builds the WebSocket endpoint for a dashboard origin.
// http/ws origins map to ws, https/wss map to wss; the path is
// appended to any path already on the origin.
func Resolve(origin, path string) (string, error) {
	if strings.TrimSpace(origin) == "" {
		return "", fmt.Errorf("origin cannot be empty")
	}

	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("parse origin: %w", err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	if path != "" {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	}

	return u.String(), nil
}
