package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/timetable-skill/internal/dto"
	"github.com/noah-isme/timetable-skill/internal/models"
	"github.com/noah-isme/timetable-skill/internal/repository"
	appErrors "github.com/noah-isme/timetable-skill/pkg/errors"
)

type timetableRepoStub struct {
	*repository.MemoryTimetableRepository
	findErr  error
	claimErr error
	getErr   error
	saveErr  error
	gets     int
}

func newTimetableRepoStub() *timetableRepoStub {
	return &timetableRepoStub{MemoryTimetableRepository: repository.NewMemoryTimetableRepository()}
}

func (s *timetableRepoStub) FindUID(ctx context.Context, externalID string) (string, error) {
	if s.findErr != nil {
		return "", s.findErr
	}
	return s.MemoryTimetableRepository.FindUID(ctx, externalID)
}

func (s *timetableRepoStub) ClaimUID(ctx context.Context, externalID, uid string) (string, error) {
	if s.claimErr != nil {
		return "", s.claimErr
	}
	return s.MemoryTimetableRepository.ClaimUID(ctx, externalID, uid)
}

func (s *timetableRepoStub) GetSchedule(ctx context.Context, uid string) (models.Schedule, error) {
	s.gets++
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.MemoryTimetableRepository.GetSchedule(ctx, uid)
}

func (s *timetableRepoStub) SaveSchedule(ctx context.Context, uid string, schedule models.Schedule) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MemoryTimetableRepository.SaveSchedule(ctx, uid, schedule)
}

func newTestTimetableService(repo timetableRepository, cache *CacheService, cfg TimetableConfig) *TimetableService {
	if cfg.Now == nil {
		cfg.Now = fixedClock(2)
	}
	return NewTimetableService(repo, cache, nil, nil, cfg, nil)
}

func TestTimetableServiceGetUIDIsIdempotent(t *testing.T) {
	svc := newTestTimetableService(newTimetableRepoStub(), nil, TimetableConfig{})
	ctx := context.Background()

	first, err := svc.GetUID(ctx, "amzn1.ask.account.alice")
	require.NoError(t, err)
	assert.Len(t, first, 6)
	assert.True(t, ValidUID(first))

	again, err := svc.GetUID(ctx, "amzn1.ask.account.alice")
	require.NoError(t, err)
	assert.Equal(t, first, again)

	other, err := svc.GetUID(ctx, "amzn1.ask.account.bob")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestTimetableServiceGetUIDRetriesOnCollision(t *testing.T) {
	repo := newTimetableRepoStub()
	ctx := context.Background()
	_, err := repo.ClaimUID(ctx, "someone-else", "000000")
	require.NoError(t, err)

	random := bytes.NewReader(append(bytes.Repeat([]byte{0}, 6), bytes.Repeat([]byte{11}, 6)...))
	svc := newTestTimetableService(repo, nil, TimetableConfig{Random: random})

	uid, err := svc.GetUID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "111111", uid)
}

func TestTimetableServiceNewUIDSkipsHighBytes(t *testing.T) {
	random := bytes.NewReader([]byte{255, 250, 3, 1, 2, 4, 5, 6, 7, 8, 9, 0})
	svc := newTestTimetableService(newTimetableRepoStub(), nil, TimetableConfig{Random: random})

	uid, err := svc.newUID()
	require.NoError(t, err)
	assert.Equal(t, "312456", uid)

	svc = newTestTimetableService(newTimetableRepoStub(), nil, TimetableConfig{Random: bytes.NewReader(bytes.Repeat([]byte{251}, 6))})
	_, err = svc.newUID()
	assert.Error(t, err)
}

func TestTimetableServiceGetUIDErrors(t *testing.T) {
	ctx := context.Background()

	svc := newTestTimetableService(newTimetableRepoStub(), nil, TimetableConfig{})
	_, err := svc.GetUID(ctx, " ")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	repo := newTimetableRepoStub()
	repo.findErr = errors.New("disk on fire")
	_, err = newTestTimetableService(repo, nil, TimetableConfig{}).GetUID(ctx, "alice")
	assert.ErrorIs(t, err, appErrors.ErrInternal)

	repo = newTimetableRepoStub()
	repo.claimErr = repository.ErrUIDTaken
	_, err = newTestTimetableService(repo, nil, TimetableConfig{}).GetUID(ctx, "alice")
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestTimetableServiceScheduleRoundTrip(t *testing.T) {
	svc := newTestTimetableService(newTimetableRepoStub(), nil, TimetableConfig{})
	ctx := context.Background()

	empty, err := svc.GetSchedule(ctx, "123456")
	require.NoError(t, err)
	assert.Empty(t, empty)

	saved := models.Schedule{"Tue": {1: "Math", 3: "Logic"}}
	require.NoError(t, svc.SaveSchedule(ctx, "123456", saved))
	loaded, err := svc.GetSchedule(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)

	_, err = svc.GetSchedule(ctx, "../etc")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestTimetableServiceStoreFailures(t *testing.T) {
	ctx := context.Background()

	repo := newTimetableRepoStub()
	repo.getErr = fmt.Errorf("%w: bad json", repository.ErrMalformed)
	_, err := newTestTimetableService(repo, nil, TimetableConfig{}).GetSchedule(ctx, "123456")
	assert.ErrorIs(t, err, appErrors.ErrMalformedRecord)

	repo = newTimetableRepoStub()
	repo.getErr = errors.New("connection refused")
	_, err = newTestTimetableService(repo, nil, TimetableConfig{}).GetSchedule(ctx, "123456")
	assert.ErrorIs(t, err, appErrors.ErrInternal)

	repo = newTimetableRepoStub()
	repo.saveErr = errors.New("read-only file system")
	err = newTestTimetableService(repo, nil, TimetableConfig{}).SaveSchedule(ctx, "123456", models.Schedule{})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestTimetableServiceApplyCells(t *testing.T) {
	svc := newTestTimetableService(newTimetableRepoStub(), nil, TimetableConfig{})
	ctx := context.Background()
	require.NoError(t, svc.SaveSchedule(ctx, "123456", models.Schedule{
		"Tue": {1: "Math", 2: "Art"},
		"Mon": {4: "PE"},
	}))

	updated, err := svc.ApplyCells(ctx, "123456", map[string]string{
		"Tue_1": "",
		"Tue_3": "  Logic ",
		"Wed_2": "Music",
		"Sun_1": "Ignored",
		"Mon_9": "Ignored",
		"other": "Ignored",
	})
	require.NoError(t, err)
	expected := models.Schedule{
		"Tue": {2: "Art", 3: "Logic"},
		"Wed": {2: "Music"},
		"Mon": {4: "PE"},
	}
	assert.Equal(t, expected, updated)

	stored, err := svc.GetSchedule(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, expected, stored)

	_, err = svc.ApplyCells(ctx, "123456", map[string]string{"Mon_1": strings.Repeat("x", 101)})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestTimetableServiceReplaceValidation(t *testing.T) {
	svc := newTestTimetableService(newTimetableRepoStub(), nil, TimetableConfig{})
	ctx := context.Background()

	cases := map[string]map[string]map[int]string{
		"period out of range": {"Mon": {7: "Math"}},
		"period zero":         {"Mon": {0: "Math"}},
		"unconfigured day":    {"Sun": {1: "Math"}},
		"unknown day":         {"Funday": {1: "Math"}},
		"subject too long":    {"Mon": {1: strings.Repeat("x", 101)}},
	}
	for name, schedule := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Replace(ctx, "123456", dto.ReplaceTimetableRequest{Schedule: schedule})
			assert.ErrorIs(t, err, appErrors.ErrValidation)
		})
	}

	_, err := svc.Replace(ctx, "123456", dto.ReplaceTimetableRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	stored, err := svc.Replace(ctx, "123456", dto.ReplaceTimetableRequest{Schedule: map[string]map[int]string{
		"Mon": {1: " Math ", 2: ""},
		"Sat": {6: "Club"},
	}})
	require.NoError(t, err)
	assert.Equal(t, models.Schedule{"Mon": {1: "Math"}, "Sat": {6: "Club"}}, stored)
}

func TestTimetableServiceDaysConfig(t *testing.T) {
	svc := newTestTimetableService(newTimetableRepoStub(), nil, TimetableConfig{Days: []string{"monday", "Tue", "nope", "Mon"}, MaxPeriod: 8})
	days := svc.Days()
	require.Len(t, days, 2)
	assert.Equal(t, "Mon", days[0].Key)
	assert.Equal(t, "Tue", days[1].Key)
	assert.Equal(t, 8, svc.MaxPeriod())

	defaults := newTestTimetableService(newTimetableRepoStub(), nil, TimetableConfig{}).Days()
	assert.Len(t, defaults, 6)
	assert.Equal(t, "Sat", defaults[5].Key)
}

func TestTimetableServiceAnswer(t *testing.T) {
	svc := newTestTimetableService(newTimetableRepoStub(), nil, TimetableConfig{})
	ctx := context.Background()
	require.NoError(t, svc.SaveSchedule(ctx, "123456", models.Schedule{"Tue": {1: "Math", 3: "Logic"}, "Wed": {2: "Art"}}))

	result, err := svc.Answer(ctx, "123456", AnswerQuery{When: "today"})
	require.NoError(t, err)
	assert.Equal(t, "Tuesday's schedule is: period 1 is Math, period 3 is Logic.", result.Speech)

	result, err = svc.Answer(ctx, "123456", AnswerQuery{When: "tomorrow", Period: "2nd period"})
	require.NoError(t, err)
	assert.Equal(t, "Wednesday's period 2 is Art.", result.Speech)
	assert.True(t, result.Resolution.HasPeriod)
}

func TestTimetableServiceExport(t *testing.T) {
	svc := newTestTimetableService(newTimetableRepoStub(), nil, TimetableConfig{Days: []string{"Mon", "Tue"}, MaxPeriod: 2})
	ctx := context.Background()
	require.NoError(t, svc.SaveSchedule(ctx, "123456", models.Schedule{"Tue": {1: "Math"}}))

	file, err := svc.Export(ctx, "123456", "")
	require.NoError(t, err)
	assert.Equal(t, "timetable-123456.csv", file.Filename)
	assert.Equal(t, "Period,Monday,Tuesday\n1,,Math\n2,,\n", string(file.Payload))

	file, err = svc.Export(ctx, "123456", "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Payload, []byte("%PDF-")))

	_, err = svc.Export(ctx, "123456", "xlsx")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func newTestCache(t *testing.T) (*CacheService, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := repository.NewCacheRepository(client, "", nil)
	return NewCacheService(repo, NewMetricsService(), time.Minute, nil, true), server
}

func TestTimetableServiceReadCache(t *testing.T) {
	cache, server := newTestCache(t)
	repo := newTimetableRepoStub()
	svc := newTestTimetableService(repo, cache, TimetableConfig{})
	ctx := context.Background()

	require.NoError(t, svc.SaveSchedule(ctx, "123456", models.Schedule{"Mon": {1: "Math"}}))
	first, err := svc.GetSchedule(ctx, "123456")
	require.NoError(t, err)
	second, err := svc.GetSchedule(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.gets)
	assert.True(t, server.Exists("timetable:cache:123456"))

	require.NoError(t, svc.SaveSchedule(ctx, "123456", models.Schedule{"Mon": {1: "Art"}}))
	assert.False(t, server.Exists("timetable:cache:123456"))
	third, err := svc.GetSchedule(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, "Art", third.Subject("Mon", 1))
	assert.Equal(t, 2, repo.gets)
}

func TestTimetableServiceCacheOutageFallsBackToStore(t *testing.T) {
	cache, server := newTestCache(t)
	repo := newTimetableRepoStub()
	svc := newTestTimetableService(repo, cache, TimetableConfig{})
	ctx := context.Background()
	require.NoError(t, svc.SaveSchedule(ctx, "123456", models.Schedule{"Mon": {1: "Math"}}))

	server.Close()
	schedule, err := svc.GetSchedule(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, "Math", schedule.Subject("Mon", 1))
}

func TestCellNameAndValidUID(t *testing.T) {
	assert.Equal(t, "Tue_3", CellName("Tue", 3))
	assert.True(t, ValidUID("123456"))
	assert.False(t, ValidUID("12a456"))
	assert.False(t, ValidUID("123"))
	assert.False(t, ValidUID(""))
}

func TestTimetableServiceLogsFailedValidationRegistration(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	svc := NewTimetableService(newTimetableRepoStub(), nil, nil, nil, TimetableConfig{Now: fixedClock(2)}, zap.New(core))
	assert.Zero(t, logs.Len())

	svc.registerValidation("", func(validator.FieldLevel) bool { return true })
	entries := logs.FilterMessage("failed to register validation").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "", entries[0].ContextMap()["tag"])
}
