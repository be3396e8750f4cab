package utils

import (
	"context"
	"strings"
	"time"
)

// WaitFor blocks for the given duration or until the context is cancelled,
// whichever comes first. It is the delay between loop iterations: the wait
// starts after the previous iteration finished, so a slow iteration
// stretches the effective period instead of piling up ticks.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// TruncateForLog shortens the provided string to the specified limit, appending an ellipsis when truncated.
func TruncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
