package models

import (
	"strings"
	"time"
)

// Weekday is one entry of the fixed weekday enumeration.
type Weekday struct {
	Key  string
	Name string
	Day  time.Weekday
}

// Weekdays lists the canonical day keys Monday first.
var Weekdays = []Weekday{
	{Key: "Mon", Name: "Monday", Day: time.Monday},
	{Key: "Tue", Name: "Tuesday", Day: time.Tuesday},
	{Key: "Wed", Name: "Wednesday", Day: time.Wednesday},
	{Key: "Thu", Name: "Thursday", Day: time.Thursday},
	{Key: "Fri", Name: "Friday", Day: time.Friday},
	{Key: "Sat", Name: "Saturday", Day: time.Saturday},
	{Key: "Sun", Name: "Sunday", Day: time.Sunday},
}

// weekdayAliases maps lower-cased spoken forms onto canonical keys.
var weekdayAliases = map[string]string{
	"tues": "Tue", "weds": "Wed", "thur": "Thu", "thurs": "Thu",
	"月曜日": "Mon", "火曜日": "Tue", "水曜日": "Wed", "木曜日": "Thu", "金曜日": "Fri", "土曜日": "Sat", "日曜日": "Sun",
	"月曜": "Mon", "火曜": "Tue", "水曜": "Wed", "木曜": "Thu", "金曜": "Fri", "土曜": "Sat", "日曜": "Sun",
	"月": "Mon", "火": "Tue", "水": "Wed", "木": "Thu", "金": "Fri", "土": "Sat", "日": "Sun",
}

func init() {
	for _, wd := range Weekdays {
		weekdayAliases[strings.ToLower(wd.Key)] = wd.Key
		weekdayAliases[strings.ToLower(wd.Name)] = wd.Key
	}
}

// WeekdayByKey looks up a canonical key such as "Tue".
func WeekdayByKey(key string) (Weekday, bool) {
	for _, wd := range Weekdays {
		if wd.Key == key {
			return wd, true
		}
	}
	return Weekday{}, false
}

// WeekdayOf returns the enumeration entry for the date's weekday.
func WeekdayOf(t time.Time) Weekday {
	for _, wd := range Weekdays {
		if wd.Day == t.Weekday() {
			return wd
		}
	}
	return Weekdays[0]
}

// ParseWeekday maps a spoken or typed day name onto the enumeration.
func ParseWeekday(token string) (Weekday, bool) {
	key, ok := weekdayAliases[strings.ToLower(strings.TrimSpace(token))]
	if !ok {
		return Weekday{}, false
	}
	return WeekdayByKey(key)
}
