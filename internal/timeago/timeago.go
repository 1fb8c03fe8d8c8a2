// Package timeago renders timestamps as short relative ages ("5 minutes ago").
package timeago

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const (
	// NoDate is rendered when there is no timestamp at all.
	NoDate = "No date"
	// InvalidDate is rendered when a timestamp string cannot be parsed.
	InvalidDate = "Invalid date"
	// JustNow covers everything under half a minute, including small clock skew.
	JustNow = "just now"
	// DateLayout is used once a timestamp is a week or more old.
	DateLayout = "1/2/2006"
)

const (
	minute = 60
	hour   = 60 * minute
	day    = 24 * hour
	week   = 7 * day
)

// Format renders t relative to now.
func Format(now time.Time, t *time.Time) string {
	if t == nil || t.IsZero() {
		return NoDate
	}

	seconds := int64(now.Sub(*t) / time.Second)
	switch {
	case seconds < 30:
		return JustNow
	case seconds < minute:
		return fmt.Sprintf("%d seconds ago", seconds)
	case seconds < hour:
		return plural(seconds/minute, "minute")
	case seconds < day:
		return plural(seconds/hour, "hour")
	case seconds < week:
		return plural(seconds/day, "day")
	default:
		return t.In(now.Location()).Format(DateLayout)
	}
}

// FormatString parses raw leniently and renders it relative to now. It never
// fails: unusable input renders as NoDate or InvalidDate.
func FormatString(now time.Time, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return NoDate
	}
	t, err := dateparse.ParseIn(raw, now.Location())
	if err != nil {
		return InvalidDate
	}
	return Format(now, &t)
}

// Since renders t relative to the current time.
func Since(t *time.Time) string {
	return Format(time.Now(), t)
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
