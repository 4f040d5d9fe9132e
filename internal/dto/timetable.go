package dto

import "github.com/noah-isme/timetable-skill/internal/models"

// ReplaceTimetableRequest overwrites a user's whole timetable.
type ReplaceTimetableRequest struct {
	Schedule map[string]map[int]string `json:"schedule" validate:"required,dive,keys,timetable_day,endkeys,dive,keys,timetable_period,endkeys,max=100"`
}

// TimetableResponse describes a stored timetable together with its grid shape.
type TimetableResponse struct {
	UID       string          `json:"uid"`
	Days      []string        `json:"days"`
	MaxPeriod int             `json:"max_period"`
	Schedule  models.Schedule `json:"schedule"`
}

// AnswerResponse is the spoken answer for a timetable query.
type AnswerResponse struct {
	UID    string `json:"uid"`
	Day    string `json:"day"`
	Period *int   `json:"period,omitempty"`
	Speech string `json:"speech"`
}
