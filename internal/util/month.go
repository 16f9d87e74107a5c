package util

import (
	"fmt"
	"strconv"
	"time"
)

// Date key layouts
const (
	DayLayout   = "2006-01-02"
	MonthLayout = "2006-01"
	YearLayout  = "2006"
)

// DayKey returns the YYYY-MM-DD key of t in t's location
func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}

// MonthKey returns the YYYY-MM key of t in t's location
func MonthKey(t time.Time) string {
	return t.Format(MonthLayout)
}

// YearAgoKey returns the key one calendar year before a YYYY or YYYY-MM key.
// The month part is kept as-is; ok is false when the key has no valid year prefix.
func YearAgoKey(key string) (string, bool) {
	if len(key) < 4 {
		return "", false
	}
	year, err := strconv.Atoi(key[:4])
	if err != nil || year < 1 {
		return "", false
	}
	return fmt.Sprintf("%04d%s", year-1, key[4:]), true
}

// ParseDay parses a YYYY-MM-DD key as a UTC date
func ParseDay(key string) (time.Time, error) {
	return time.Parse(DayLayout, key)
}

// DaysBetween returns the whole number of days from earlier to later
func DaysBetween(earlier, later time.Time) int {
	return int(later.Sub(earlier).Hours() / 24)
}

// MonthsAgo returns t moved back n calendar months
func MonthsAgo(t time.Time, n int) time.Time {
	return t.AddDate(0, -n, 0)
}
