// Package timefmt renders timestamps as relative-time strings at the
// presentation boundary. Stored and queried data stays as exact timestamps.
package timefmt

import (
	"fmt"
	"time"
)

// Relative renders t against now: "Just now", "N minutes ago",
// "N hours ago", "Yesterday", "N days ago". Zero and future timestamps
// render as an empty string.
func Relative(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	diff := now.Sub(t)
	if diff < 0 {
		return ""
	}

	if diff < time.Hour {
		mins := int(diff / time.Minute)
		if mins == 0 {
			return "Just now"
		}
		return fmt.Sprintf("%d minute%s ago", mins, plural(mins))
	}
	if diff < 24*time.Hour {
		hours := int(diff / time.Hour)
		return fmt.Sprintf("%d hour%s ago", hours, plural(hours))
	}

	days := int(diff / (24 * time.Hour))
	if days == 1 {
		return "Yesterday"
	}
	return fmt.Sprintf("%d days ago", days)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
