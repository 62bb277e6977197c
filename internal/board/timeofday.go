package board

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTimeOfDay parses a 24-hour "HH:MM" string into minutes since
// midnight. Single-digit hours ("9:30") are accepted; anything else
// malformed is rejected.
func ParseTimeOfDay(raw string) (int, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[0]) > 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("malformed time of day %q", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("malformed time of day %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("malformed time of day %q", raw)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time of day %q out of range", raw)
	}
	return hour*60 + minute, nil
}

// MinutesOfDay truncates an instant to minutes since local midnight.
func MinutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// TargetToday projects an "HH:MM" entry onto the calendar day of now.
func TargetToday(raw string, now time.Time) (time.Time, error) {
	minutes, err := ParseTimeOfDay(raw)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(now.Year(), now.Month(), now.Day(), minutes/60, minutes%60, 0, 0, now.Location()), nil
}

// IsValidTimeOfDay reports whether raw is a well-formed "HH:MM" entry.
func IsValidTimeOfDay(raw string) bool {
	_, err := ParseTimeOfDay(raw)
	return err == nil
}

// InNightWindow reports whether t falls inside the quiet window
// [start, end). An end earlier than its start wraps past midnight.
// Malformed or equal bounds disable the window.
func InNightWindow(t time.Time, start, end string) bool {
	from, err := ParseTimeOfDay(start)
	if err != nil {
		return false
	}
	until, err := ParseTimeOfDay(end)
	if err != nil {
		return false
	}
	if from == until {
		return false
	}
	m := MinutesOfDay(t)
	if from < until {
		return m >= from && m < until
	}
	return m >= from || m < until
}
