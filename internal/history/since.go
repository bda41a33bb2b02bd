package history

import (
	"strings"
	"time"
)

// sinceLayouts are the explicit date forms accepted by ParseSince
var sinceLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	time.RFC3339,
}

// ParseSince turns a stats filter into a cutoff at the start of a day in
// loc. "today" and "week" (since Monday) are relative to now. "all", the
// empty string and anything unrecognized return nil, meaning no cutoff.
func ParseSince(s string, now time.Time, loc *time.Location) *time.Time {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	s = strings.TrimSpace(s)
	var day time.Time
	switch strings.ToLower(s) {
	case "", "all":
		return nil
	case "today":
		day = now
	case "week":
		offset := (int(now.Weekday()) + 6) % 7
		day = now.AddDate(0, 0, -offset)
	default:
		parsed, ok := parseDate(s, loc)
		if !ok {
			return nil
		}
		day = parsed.In(loc)
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	return &start
}

func parseDate(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range sinceLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
