package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/timetable-skill/internal/models"
)

const (
	redisUserKeyPrefix      = "timetable:user:"
	redisUIDKeyPrefix       = "timetable:uid:"
	redisTimetableKeyPrefix = "timetable:schedule:"
)

// RedisTimetableRepository keeps users and schedules as plain redis strings
// without expiry.
type RedisTimetableRepository struct {
	client *redis.Client
}

// NewRedisTimetableRepository constructs a redis-backed repository.
func NewRedisTimetableRepository(client *redis.Client) *RedisTimetableRepository {
	return &RedisTimetableRepository{client: client}
}

// FindUID returns the uid issued to the external id.
func (r *RedisTimetableRepository) FindUID(ctx context.Context, externalID string) (string, error) {
	uid, err := r.client.Get(ctx, redisUserKeyPrefix+externalKey(externalID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("redis find uid: %w", err)
	}
	return uid, nil
}

// ClaimUID reserves uid with SETNX and then binds it to the external id,
// releasing the reservation when another request won the race.
func (r *RedisTimetableRepository) ClaimUID(ctx context.Context, externalID, uid string) (string, error) {
	userKey := redisUserKeyPrefix + externalKey(externalID)
	uidKey := redisUIDKeyPrefix + uid

	reserved, err := r.client.SetNX(ctx, uidKey, externalKey(externalID), 0).Result()
	if err != nil {
		return "", fmt.Errorf("redis reserve uid: %w", err)
	}
	if !reserved {
		if existing, findErr := r.FindUID(ctx, externalID); findErr == nil {
			return existing, nil
		}
		return "", ErrUIDTaken
	}

	bound, err := r.client.SetNX(ctx, userKey, uid, 0).Result()
	if err != nil {
		_ = r.client.Del(ctx, uidKey).Err()
		return "", fmt.Errorf("redis store uid: %w", err)
	}
	if !bound {
		_ = r.client.Del(ctx, uidKey).Err()
		return r.FindUID(ctx, externalID)
	}
	return uid, nil
}

// GetSchedule loads the schedule saved for uid.
func (r *RedisTimetableRepository) GetSchedule(ctx context.Context, uid string) (models.Schedule, error) {
	raw, err := r.client.Get(ctx, redisTimetableKeyPrefix+uid).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get timetable: %w", err)
	}
	return decodeSchedule(uid, raw)
}

// SaveSchedule overwrites the schedule for uid.
func (r *RedisTimetableRepository) SaveSchedule(ctx context.Context, uid string, schedule models.Schedule) error {
	payload, err := encodeSchedule(schedule)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, redisTimetableKeyPrefix+uid, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis save timetable: %w", err)
	}
	return nil
}
