package service

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"

	"github.com/noah-isme/timetable-skill/internal/models"
)

// Relative day tokens and their offset from the current date.
var relativeDayOffsets = map[string]int{
	"today":                  0,
	"tomorrow":               1,
	"day after tomorrow":     2,
	"the day after tomorrow": 2,
	"今日":                     0,
	"きょう":                    0,
	"明日":                     1,
	"あした":                    1,
	"明後日":                    2,
	"あさって":                   2,
}

// Words meaning "period" that may surround the number in a period slot.
var (
	periodPrefixes = []string{"period", "class", "no.", "#"}
	periodSuffixes = []string{"時間目", "限目", "限", "period", "class", "th", "st", "nd", "rd"}
)

// Resolution is the canonical form of a day/period query.
type Resolution struct {
	// DayKey is the canonical day key, or the raw token when it named no known day.
	DayKey string
	// DayLabel is what the answer calls the day.
	DayLabel  string
	Period    int
	HasPeriod bool
}

// DayResolver turns slot values into a Resolution against the process clock.
type DayResolver struct {
	now func() time.Time
}

// NewDayResolver builds a resolver. A nil clock means time.Now in the host time zone.
func NewDayResolver(now func() time.Time) *DayResolver {
	if now == nil {
		now = time.Now
	}
	return &DayResolver{now: now}
}

// Resolve combines the relative-day, explicit-day and period tokens. An explicit
// day wins over a relative one; with neither the query is about today. A
// relative word given as the explicit day is resolved like a relative token.
func (r *DayResolver) Resolve(relative, explicit, period string) Resolution {
	var res Resolution
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if wd, ok := models.ParseWeekday(explicit); ok {
			res.DayKey, res.DayLabel = wd.Key, wd.Name
		} else if _, ok := relativeDayOffsets[strings.ToLower(explicit)]; ok {
			wd := r.RelativeDay(explicit)
			res.DayKey, res.DayLabel = wd.Key, wd.Name
		} else {
			res.DayKey, res.DayLabel = explicit, explicit
		}
	} else {
		wd := r.RelativeDay(relative)
		res.DayKey, res.DayLabel = wd.Key, wd.Name
	}

	res.Period, res.HasPeriod = ParsePeriod(period)
	return res
}

// RelativeDay returns the weekday for a relative token. Unknown or empty tokens mean today.
func (r *DayResolver) RelativeDay(token string) models.Weekday {
	offset := relativeDayOffsets[strings.ToLower(strings.TrimSpace(token))]
	return models.WeekdayOf(r.now().AddDate(0, 0, offset))
}

// ParsePeriod extracts the period number from slot text such as "3", "3rd period"
// or "3限". Text that does not reduce to an integer means no period was given.
func ParsePeriod(raw string) (int, bool) {
	value := strings.ToLower(strings.TrimSpace(width.Narrow.String(raw)))
	if value == "" {
		return 0, false
	}

	for changed := true; changed; {
		changed = false
		for _, prefix := range periodPrefixes {
			if strings.HasPrefix(value, prefix) {
				value = strings.TrimSpace(strings.TrimPrefix(value, prefix))
				changed = true
			}
		}
		for _, suffix := range periodSuffixes {
			if strings.HasSuffix(value, suffix) {
				value = strings.TrimSpace(strings.TrimSuffix(value, suffix))
				changed = true
			}
		}
	}

	period, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return period, true
}
