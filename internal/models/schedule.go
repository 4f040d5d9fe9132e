package models

import "sort"

// DaySchedule maps a period number to its subject. An empty subject means no class.
type DaySchedule map[int]string

// Schedule is a user's weekly timetable keyed by canonical day key (see Weekday.Key).
// Unknown day keys simply have no schedule.
type Schedule map[string]DaySchedule

// Periods returns the period numbers of the day in ascending numeric order.
func (d DaySchedule) Periods() []int {
	periods := make([]int, 0, len(d))
	for period := range d {
		periods = append(periods, period)
	}
	sort.Ints(periods)
	return periods
}

// HasSubjects reports whether at least one period carries a non-empty subject.
func (d DaySchedule) HasSubjects() bool {
	for _, subject := range d {
		if subject != "" {
			return true
		}
	}
	return false
}

// Day returns the schedule for a day key, nil when absent.
func (s Schedule) Day(key string) DaySchedule {
	if s == nil {
		return nil
	}
	return s[key]
}

// Subject returns the subject of a single cell.
func (s Schedule) Subject(day string, period int) string {
	return s.Day(day)[period]
}

// Set assigns a subject to a cell. An empty subject removes the entry and
// days left without entries are dropped.
func (s Schedule) Set(day string, period int, subject string) {
	if subject == "" {
		if periods, ok := s[day]; ok {
			delete(periods, period)
			if len(periods) == 0 {
				delete(s, day)
			}
		}
		return
	}
	periods, ok := s[day]
	if !ok {
		periods = make(DaySchedule)
		s[day] = periods
	}
	periods[period] = subject
}

// Clone returns a deep copy so callers can mutate without touching cached values.
func (s Schedule) Clone() Schedule {
	out := make(Schedule, len(s))
	for day, periods := range s {
		copied := make(DaySchedule, len(periods))
		for period, subject := range periods {
			copied[period] = subject
		}
		out[day] = copied
	}
	return out
}
