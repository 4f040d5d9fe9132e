package repository

import (
	"context"
	"sync"

	"github.com/noah-isme/timetable-skill/internal/models"
)

// MemoryTimetableRepository keeps timetables in process memory. It backs tests
// and local development; contents vanish on restart.
type MemoryTimetableRepository struct {
	mu        sync.RWMutex
	uids      map[string]string
	owners    map[string]string
	schedules map[string]models.Schedule
}

// NewMemoryTimetableRepository constructs an empty in-memory store.
func NewMemoryTimetableRepository() *MemoryTimetableRepository {
	return &MemoryTimetableRepository{
		uids:      make(map[string]string),
		owners:    make(map[string]string),
		schedules: make(map[string]models.Schedule),
	}
}

// FindUID returns the uid issued to the external id.
func (r *MemoryTimetableRepository) FindUID(ctx context.Context, externalID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	uid, ok := r.uids[externalID]
	if !ok {
		return "", ErrNotFound
	}
	return uid, nil
}

// ClaimUID stores uid for externalID unless one already exists, returning the stored uid.
func (r *MemoryTimetableRepository) ClaimUID(ctx context.Context, externalID, uid string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.uids[externalID]; ok {
		return existing, nil
	}
	if _, taken := r.owners[uid]; taken {
		return "", ErrUIDTaken
	}
	r.uids[externalID] = uid
	r.owners[uid] = externalID
	return uid, nil
}

// GetSchedule returns a copy of the saved schedule.
func (r *MemoryTimetableRepository) GetSchedule(ctx context.Context, uid string) (models.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schedule, ok := r.schedules[uid]
	if !ok {
		return nil, ErrNotFound
	}
	return schedule.Clone(), nil
}

// SaveSchedule overwrites the schedule for uid.
func (r *MemoryTimetableRepository) SaveSchedule(ctx context.Context, uid string, schedule models.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules[uid] = schedule.Clone()
	return nil
}
