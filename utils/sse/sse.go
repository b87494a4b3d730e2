package sse

import (
	"bufio"
	"encoding/json"
	"fmt"
)

// Send writes a single SSE data frame and flushes immediately.
// The payload is JSON-encoded unless it is already a string or []byte.
func Send(w *bufio.Writer, data interface{}) error {
	var dataStr string
	switch v := data.(type) {
	case string:
		dataStr = v
	case []byte:
		dataStr = string(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal event data: %w", err)
		}
		dataStr = string(encoded)
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", dataStr); err != nil {
		return fmt.Errorf("failed to write event data: %w", err)
	}

	return w.Flush()
}

// SendKeepAlive sends a comment frame to keep the connection alive
// through reverse proxies during quiet periods.
func SendKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive\n\n"); err != nil {
		return fmt.Errorf("failed to write keepalive: %w", err)
	}
	return w.Flush()
}
