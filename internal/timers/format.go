package timers

import (
	"fmt"
	"time"
)

// FormatUntil renders d as "H hours and M minutes", or "M minutes" below an hour.
func FormatUntil(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d / time.Hour)
	minutes := int(d%time.Hour) / int(time.Minute)
	if hours > 0 {
		return fmt.Sprintf("%d hours and %d minutes", hours, minutes)
	}
	return fmt.Sprintf("%d minutes", minutes)
}

// FormatCountdown renders whole seconds as "M minutes and S seconds".
func FormatCountdown(d time.Duration) string {
	total := int(d / time.Second)
	if total < 0 {
		total = 0
	}
	minutes, seconds := total/60, total%60
	if minutes > 0 {
		return fmt.Sprintf("%d minutes and %d seconds", minutes, seconds)
	}
	return fmt.Sprintf("%d seconds", seconds)
}
