package tvprogram

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// parseStart combines an ISO date and an HH:MM time of day into an instant in loc.
func parseStart(date, start string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	hour, minute, err := parseClock(start)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), nil
}

// parseClock accepts "9:05", "09:05" and "09.05".
func parseClock(input string) (int, int, error) {
	input = strings.ReplaceAll(strings.TrimSpace(input), ".", ":")
	parts := strings.Split(input, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time of day %q", input)
	}
	parsed := [2]int{}
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0, 0, fmt.Errorf("invalid time of day %q: %w", input, err)
		}
		parsed[i] = n
	}
	if parsed[0] < 0 || parsed[0] > 23 || parsed[1] < 0 || parsed[1] > 59 {
		return 0, 0, fmt.Errorf("time of day out of range %q", input)
	}
	return parsed[0], parsed[1], nil
}

// normalizeClock renders a parsed time of day as HH:MM.
func normalizeClock(input string) (string, error) {
	h, m, err := parseClock(input)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}

func dayOffset(today time.Time, days int) string {
	y, m, d := today.Date()
	return time.Date(y, m, d+days, 0, 0, 0, 0, today.Location()).Format(dateLayout)
}
