package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/timetable-skill/internal/models"
)

const pqUniqueViolation = "23505"

// PostgresTimetableRepository persists users and schedules in PostgreSQL.
type PostgresTimetableRepository struct {
	db *sqlx.DB
}

// NewPostgresTimetableRepository creates a new postgres-backed repository.
func NewPostgresTimetableRepository(db *sqlx.DB) *PostgresTimetableRepository {
	return &PostgresTimetableRepository{db: db}
}

// FindUID returns the uid issued to the external id.
func (r *PostgresTimetableRepository) FindUID(ctx context.Context, externalID string) (string, error) {
	const query = `SELECT external_id, uid, created_at FROM timetable_users WHERE external_id = $1`
	var user models.TimetableUser
	if err := r.db.GetContext(ctx, &user, query, externalKey(externalID)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("find uid: %w", err)
	}
	return user.UID, nil
}

// ClaimUID inserts the mapping unless the external id already has one.
func (r *PostgresTimetableRepository) ClaimUID(ctx context.Context, externalID, uid string) (string, error) {
	user := models.TimetableUser{ExternalID: externalKey(externalID), UID: uid, CreatedAt: time.Now().UTC()}
	const query = `INSERT INTO timetable_users (external_id, uid, created_at) VALUES (:external_id, :uid, :created_at) ON CONFLICT (external_id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return "", ErrUIDTaken
		}
		return "", fmt.Errorf("claim uid: %w", err)
	}
	return r.FindUID(ctx, externalID)
}

// GetSchedule loads the schedule saved for uid.
func (r *PostgresTimetableRepository) GetSchedule(ctx context.Context, uid string) (models.Schedule, error) {
	const query = `SELECT uid, schedule, updated_at FROM timetables WHERE uid = $1`
	var record models.TimetableRecord
	if err := r.db.GetContext(ctx, &record, query, uid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get timetable: %w", err)
	}
	return decodeSchedule(uid, []byte(record.Payload))
}

// SaveSchedule upserts the full schedule for uid.
func (r *PostgresTimetableRepository) SaveSchedule(ctx context.Context, uid string, schedule models.Schedule) error {
	payload, err := encodeSchedule(schedule)
	if err != nil {
		return err
	}
	record := models.TimetableRecord{UID: uid, Payload: string(payload), UpdatedAt: time.Now().UTC()}
	const query = `INSERT INTO timetables (uid, schedule, updated_at) VALUES (:uid, :schedule, :updated_at)
ON CONFLICT (uid) DO UPDATE SET schedule = EXCLUDED.schedule, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("save timetable: %w", err)
	}
	return nil
}
