package service

import (
	"fmt"
	"strings"

	"github.com/noah-isme/timetable-skill/internal/models"
)

const (
	phraseDaySchedule       = "%s's schedule is: %s."
	phraseDayItem           = "period %d is %s"
	phraseDayNotRegistered  = "%s's schedule is not registered."
	phrasePeriod            = "%s's period %d is %s."
	phrasePeriodMissing     = "%s's period %d does not exist."
	placeholderUnregistered = "not registered"
	listSeparator           = ", "
)

// AnswerFormatter renders the spoken sentence for a resolved query.
type AnswerFormatter struct {
	maxPeriod int
}

// NewAnswerFormatter builds a formatter for timetables with periods 1..maxPeriod.
func NewAnswerFormatter(maxPeriod int) *AnswerFormatter {
	if maxPeriod <= 0 {
		maxPeriod = 6
	}
	return &AnswerFormatter{maxPeriod: maxPeriod}
}

// Format answers a resolution against a user's schedule.
func (f *AnswerFormatter) Format(res Resolution, schedule models.Schedule) string {
	day := schedule.Day(res.DayKey)
	if res.HasPeriod {
		return f.Period(res.DayLabel, res.Period, day)
	}
	return f.Day(res.DayLabel, day)
}

// Day lists every registered subject of the day in ascending period order.
func (f *AnswerFormatter) Day(label string, day models.DaySchedule) string {
	items := make([]string, 0, len(day))
	for _, period := range day.Periods() {
		subject := day[period]
		if subject == "" || !f.InRange(period) {
			continue
		}
		items = append(items, fmt.Sprintf(phraseDayItem, period, subject))
	}
	if len(items) == 0 {
		return fmt.Sprintf(phraseDayNotRegistered, label)
	}
	return fmt.Sprintf(phraseDaySchedule, label, strings.Join(items, listSeparator))
}

// Period answers a single period of the day.
func (f *AnswerFormatter) Period(label string, period int, day models.DaySchedule) string {
	if !f.InRange(period) {
		return fmt.Sprintf(phrasePeriodMissing, label, period)
	}
	subject := day[period]
	if subject == "" {
		subject = placeholderUnregistered
	}
	return fmt.Sprintf(phrasePeriod, label, period, subject)
}

// InRange reports whether period lies within 1..maxPeriod.
func (f *AnswerFormatter) InRange(period int) bool {
	return period >= 1 && period <= f.maxPeriod
}

// MaxPeriod returns the configured last period.
func (f *AnswerFormatter) MaxPeriod() int {
	return f.maxPeriod
}
