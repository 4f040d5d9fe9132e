package repository

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/noah-isme/timetable-skill/internal/models"
)

var (
	// ErrNotFound is returned when no uid or schedule exists for the key.
	ErrNotFound = errors.New("record not found")
	// ErrUIDTaken is returned by ClaimUID when the uid already belongs to another user.
	ErrUIDTaken = errors.New("uid already assigned")
	// ErrMalformed wraps decode failures of persisted schedules.
	ErrMalformed = errors.New("malformed timetable record")
)

// externalKey hashes an external user id into a fixed-length storage key.
// Voice platform ids are long and contain characters unsafe for file names.
func externalKey(externalID string) string {
	sum := blake2b.Sum256([]byte(externalID))
	return hex.EncodeToString(sum[:])
}

func encodeSchedule(schedule models.Schedule) ([]byte, error) {
	if schedule == nil {
		schedule = models.Schedule{}
	}
	payload, err := json.Marshal(schedule)
	if err != nil {
		return nil, fmt.Errorf("encode timetable: %w", err)
	}
	return payload, nil
}

func decodeSchedule(uid string, payload []byte) (models.Schedule, error) {
	schedule := models.Schedule{}
	if len(payload) == 0 {
		return schedule, nil
	}
	if err := json.Unmarshal(payload, &schedule); err != nil {
		return nil, fmt.Errorf("%w: uid %s: %v", ErrMalformed, uid, err)
	}
	if schedule == nil {
		schedule = models.Schedule{}
	}
	return schedule, nil
}
