package utils

import (
	"fmt"
	"strconv"
	"time"
)

// Number formats an integer with thousands separators, 1234567 -> "1,234,567".
func Number(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := s[0] == '-'
	if neg {
		s = s[1:]
	}
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}

	out := make([]byte, 0, len(s)+len(s)/3+1)
	if neg {
		out = append(out, '-')
	}
	for i := range len(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	return string(out)
}

// Size formats a byte count with a binary unit suffix.
// Examples:
//   - 512: "512B"
//   - 2048: "2.0KiB"
//   - 13631488: "13.0MiB"
func Size(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 4; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTP"[exp])
}

// Duration formats time duration in human-readable form.
// Examples:
//   - Less than 1 millisecond: "0ms"
//   - Less than 1 second: "12.3ms"
//   - Less than 1 minute: "5.2s"
//   - 1 minute or more: "3m5.2s"
func Duration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return "0ms"
	case d < time.Second:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1e6)
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		minutes := int(d.Minutes())
		return fmt.Sprintf("%dm%.1fs", minutes, d.Seconds()-float64(minutes*60))
	}
}

// Rate formats a per-second rate with K/M suffixes above a thousand.
func Rate(rate float64) string {
	switch {
	case rate < 1000:
		return fmt.Sprintf("%.2f", rate)
	case rate < 1000000:
		return fmt.Sprintf("%.2fK", rate/1000)
	default:
		return fmt.Sprintf("%.2fM", rate/1000000)
	}
}
