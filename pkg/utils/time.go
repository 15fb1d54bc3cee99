package utils

import (
	"fmt"
	"time"
)

// FormatOnline renders an on-duty duration as "Xh Ym", "Xh", "Ym" or "<1m".
// Seconds are truncated.
func FormatOnline(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)

	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return "<1m"
	}
}

// IsExpired reports whether more than ttl has elapsed between start and now.
func IsExpired(start, now time.Time, ttl time.Duration) bool {
	return now.Sub(start) > ttl
}
