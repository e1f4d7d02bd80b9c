package chess

import "fmt"

// FormatClockTime formats a duration in milliseconds for display: "H:MM" from
// one hour up, "MM:SS" from one minute up and "MM:SS.D" below that.
// Non-positive times show as zero.
func FormatClockTime(timeMs int64) string {
	if timeMs < 0 {
		timeMs = 0
	}

	tenths := timeMs / 100
	seconds := tenths / 10
	minutes := seconds / 60
	hours := minutes / 60

	switch {
	case hours >= 1:
		return fmt.Sprintf("%d:%02d", hours, minutes%60)
	case minutes >= 1:
		return fmt.Sprintf("%02d:%02d", minutes, seconds%60)
	}

	return fmt.Sprintf("%02d:%02d.%d", minutes, seconds, tenths%10)
}

// FormatDelay formats an optional delay, an absent delay shows as nothing
func FormatDelay(delayMs *int64) string {
	if delayMs == nil {
		return ""
	}

	return FormatClockTime(*delayMs)
}
