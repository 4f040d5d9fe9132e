package models

import "time"

// TimetableUser links an external voice-platform user id to the short uid used
// as storage key and in the registration form URL. Created once, never updated.
type TimetableUser struct {
	ExternalID string    `db:"external_id" json:"-"`
	UID        string    `db:"uid" json:"uid"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// TimetableRecord is the persisted form of a Schedule. Payload holds the JSON
// document as text so it binds to a JSONB column.
type TimetableRecord struct {
	UID       string    `db:"uid" json:"uid"`
	Payload   string    `db:"schedule" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
