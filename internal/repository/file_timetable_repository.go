package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/noah-isme/timetable-skill/internal/models"
	"github.com/noah-isme/timetable-skill/pkg/storage"
)

// fileStore is the subset of storage.LocalStorage used by the file repository.
type fileStore interface {
	Save(name string, data []byte) error
	Create(name string, data []byte) error
	Read(name string) ([]byte, error)
	Delete(name string) error
}

// FileTimetableRepository stores one file per record under a data directory:
// users/<hash>.uid holds the uid of an external user, uids/<uid> reserves a
// uid, and timetables/<uid>.json holds the schedule.
type FileTimetableRepository struct {
	files fileStore
}

// NewFileTimetableRepository constructs a file-backed repository.
func NewFileTimetableRepository(files fileStore) *FileTimetableRepository {
	return &FileTimetableRepository{files: files}
}

// FindUID returns the uid issued to the external id.
func (r *FileTimetableRepository) FindUID(ctx context.Context, externalID string) (string, error) {
	data, err := r.files.Read(userFile(externalID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("find uid: %w", err)
	}
	uid := strings.TrimSpace(string(data))
	if uid == "" {
		return "", fmt.Errorf("%w: empty uid file", ErrMalformed)
	}
	return uid, nil
}

// ClaimUID stores uid for externalID unless one already exists, returning the stored uid.
func (r *FileTimetableRepository) ClaimUID(ctx context.Context, externalID, uid string) (string, error) {
	if existing, err := r.FindUID(ctx, externalID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	if err := r.files.Create(uidFile(uid), []byte(externalKey(externalID))); err != nil {
		if errors.Is(err, storage.ErrExists) {
			return "", ErrUIDTaken
		}
		return "", fmt.Errorf("reserve uid: %w", err)
	}

	if err := r.files.Create(userFile(externalID), []byte(uid)); err != nil {
		_ = r.files.Delete(uidFile(uid))
		if errors.Is(err, storage.ErrExists) {
			return r.FindUID(ctx, externalID)
		}
		return "", fmt.Errorf("store uid: %w", err)
	}
	return uid, nil
}

// GetSchedule loads the schedule saved for uid.
func (r *FileTimetableRepository) GetSchedule(ctx context.Context, uid string) (models.Schedule, error) {
	data, err := r.files.Read(timetableFile(uid))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read timetable: %w", err)
	}
	return decodeSchedule(uid, data)
}

// SaveSchedule overwrites the schedule file for uid.
func (r *FileTimetableRepository) SaveSchedule(ctx context.Context, uid string, schedule models.Schedule) error {
	payload, err := encodeSchedule(schedule)
	if err != nil {
		return err
	}
	if err := r.files.Save(timetableFile(uid), payload); err != nil {
		return fmt.Errorf("save timetable: %w", err)
	}
	return nil
}

func userFile(externalID string) string {
	return "users/" + externalKey(externalID) + ".uid"
}

func uidFile(uid string) string {
	return "uids/" + uid
}

func timetableFile(uid string) string {
	return "timetables/" + uid + ".json"
}
