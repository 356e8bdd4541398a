package forecast

import (
	"regexp"
	"strconv"
	"time"
)

const (
	// minSteps floors the forecast step count for parsed horizons.
	minSteps = 10
	// defaultSteps is used when the horizon expression cannot be parsed.
	defaultSteps = 60
	// defaultHorizonDays is the default target window (roughly 3 months).
	defaultHorizonDays = 90
)

var (
	quarterPattern = regexp.MustCompile(`(?i)\bQ([1-4])\s+(\d{4})\b`)
	monthsPattern  = regexp.MustCompile(`(?i)\b(\d+)\s*months?\b`)
)

// ParseHorizon turns a human horizon expression into a target date and a
// business-day step count. Rules, in order:
//   - "Q4 2025": target is the quarter's last calendar day, steps are the
//     business days from now to target, floored at 10.
//   - "3 months": target is now + 30 days per month, same step rule.
//   - anything else: target is now + 90 days with a fixed 60 steps.
func ParseHorizon(expr string, now time.Time) (time.Time, int) {
	if m := quarterPattern.FindStringSubmatch(expr); m != nil {
		quarter, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[2])
		// Day 0 of the following month is the quarter's last day.
		target := time.Date(year, time.Month(quarter*3+1), 0, 0, 0, 0, 0, now.Location())
		return target, stepsTo(now, target)
	}

	if m := monthsPattern.FindStringSubmatch(expr); m != nil {
		months, _ := strconv.Atoi(m[1])
		target := now.AddDate(0, 0, 30*months)
		return target, stepsTo(now, target)
	}

	return now.AddDate(0, 0, defaultHorizonDays), defaultSteps
}

func stepsTo(now, target time.Time) int {
	days := businessDaysBetween(now, target)
	if days < minSteps {
		return minSteps
	}
	return days
}

// businessDaysBetween counts weekdays in [from, to). Returns 0 when to is not
// after from.
func businessDaysBetween(from, to time.Time) int {
	from = truncateDay(from)
	to = truncateDay(to)

	count := 0
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			count++
		}
	}
	return count
}

// nextBusinessDays returns the n business days strictly after start.
func nextBusinessDays(start time.Time, n int) []time.Time {
	dates := make([]time.Time, 0, n)
	d := truncateDay(start)
	for len(dates) < n {
		d = d.AddDate(0, 0, 1)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, d)
		}
	}
	return dates
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
