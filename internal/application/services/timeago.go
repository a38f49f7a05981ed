package services

import (
	"fmt"
	"strings"
	"time"
)

var timeAgoUnits = []struct {
	name    string
	seconds int64
}{
	{"year", 365 * 86400},
	{"month", 30 * 86400},
	{"week", 7 * 86400},
	{"day", 86400},
	{"hour", 3600},
	{"min", 60},
	{"sec", 1},
}

// FormatTimeAgo renders the age of a Unix timestamp using its two largest
// units, e.g. "3 days 4 hours ago"
func FormatTimeAgo(now time.Time, ts int64) string {
	if ts <= 0 {
		return "Never"
	}

	remaining := now.Unix() - ts
	parts := make([]string, 0, 2)
	for _, unit := range timeAgoUnits {
		value := remaining / unit.seconds
		if value > 0 {
			plural := ""
			if value != 1 {
				plural = "s"
			}
			parts = append(parts, fmt.Sprintf("%d %s%s", value, unit.name, plural))
			remaining -= value * unit.seconds
		}
		if len(parts) == 2 {
			break
		}
	}

	if len(parts) == 0 {
		return "Just now"
	}
	return strings.Join(parts, " ") + " ago"
}
