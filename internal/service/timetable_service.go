package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-skill/internal/dto"
	"github.com/noah-isme/timetable-skill/internal/models"
	"github.com/noah-isme/timetable-skill/internal/repository"
	"github.com/noah-isme/timetable-skill/pkg/export"
	appErrors "github.com/noah-isme/timetable-skill/pkg/errors"
)

const (
	maxSubjectLength = 100
	uidAttempts      = 5
	minUIDLength     = 4
	maxUIDLength     = 20
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type timetableRepository interface {
	FindUID(ctx context.Context, externalID string) (string, error)
	ClaimUID(ctx context.Context, externalID, uid string) (string, error)
	GetSchedule(ctx context.Context, uid string) (models.Schedule, error)
	SaveSchedule(ctx context.Context, uid string, schedule models.Schedule) error
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// TimetableConfig shapes the timetable grid and uid allocation.
type TimetableConfig struct {
	Days      []string
	MaxPeriod int
	UIDLength int
	CSVBOM    bool
	Now       func() time.Time
	// Random feeds uid generation; crypto/rand when nil.
	Random io.Reader
}

// AnswerQuery carries the raw day and period tokens of a question.
type AnswerQuery struct {
	When   string
	Day    string
	Period string
}

// AnswerResult is a formatted answer together with its resolution.
type AnswerResult struct {
	Resolution Resolution
	Speech     string
}

// ExportFile is a rendered timetable download.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// TimetableService owns user identity mapping, timetable persistence and answers.
type TimetableService struct {
	repo      timetableRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	resolver  *DayResolver
	formatter *AnswerFormatter
	csv       csvRenderer
	pdf       pdfRenderer
	days      []models.Weekday
	dayKeys   map[string]struct{}
	uidLength int
	random    io.Reader
}

// NewTimetableService constructs the service.
func NewTimetableService(repo timetableRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, cfg TimetableConfig, logger *zap.Logger) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UIDLength < minUIDLength || cfg.UIDLength > maxUIDLength {
		cfg.UIDLength = 6
	}
	if cfg.Random == nil {
		cfg.Random = rand.Reader
	}

	svc := &TimetableService{
		repo:      repo,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		resolver:  NewDayResolver(cfg.Now),
		formatter: NewAnswerFormatter(cfg.MaxPeriod),
		csv:       export.NewCSVExporter(cfg.CSVBOM),
		pdf:       export.NewPDFExporter(),
		dayKeys:   make(map[string]struct{}),
		uidLength: cfg.UIDLength,
		random:    cfg.Random,
	}
	for _, key := range cfg.Days {
		wd, ok := models.ParseWeekday(key)
		if !ok {
			logger.Warn("ignoring unknown timetable day", zap.String("day", key))
			continue
		}
		if _, dup := svc.dayKeys[wd.Key]; dup {
			continue
		}
		svc.dayKeys[wd.Key] = struct{}{}
		svc.days = append(svc.days, wd)
	}
	if len(svc.days) == 0 {
		for _, wd := range models.Weekdays[:6] {
			svc.dayKeys[wd.Key] = struct{}{}
			svc.days = append(svc.days, wd)
		}
	}

	svc.registerValidation("timetable_day", func(fl validator.FieldLevel) bool {
		_, ok := svc.dayKeys[fl.Field().String()]
		return ok
	})
	svc.registerValidation("timetable_period", func(fl validator.FieldLevel) bool {
		return svc.formatter.InRange(int(fl.Field().Int()))
	})
	return svc
}

func (s *TimetableService) registerValidation(tag string, fn validator.Func) {
	if err := s.validator.RegisterValidation(tag, fn); err != nil {
		s.logger.Error("failed to register validation", zap.String("tag", tag), zap.Error(err))
	}
}

// Days lists the configured editable days in configuration order.
func (s *TimetableService) Days() []models.Weekday {
	out := make([]models.Weekday, len(s.days))
	copy(out, s.days)
	return out
}

// MaxPeriod returns the last period of the grid.
func (s *TimetableService) MaxPeriod() int {
	return s.formatter.MaxPeriod()
}

// ValidUID reports whether uid has the shape of an allocated uid.
func ValidUID(uid string) bool {
	if len(uid) < minUIDLength || len(uid) > maxUIDLength {
		return false
	}
	for _, r := range uid {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CellName is the form field name of one timetable cell.
func CellName(dayKey string, period int) string {
	return dayKey + "_" + strconv.Itoa(period)
}

// GetUID returns the uid bound to an external user id, allocating one on first use.
func (s *TimetableService) GetUID(ctx context.Context, externalID string) (string, error) {
	if strings.TrimSpace(externalID) == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "user id is required")
	}

	var uid string
	err := s.observe("find_uid", func() error {
		var findErr error
		uid, findErr = s.repo.FindUID(ctx, externalID)
		return findErr
	})
	if err == nil {
		return uid, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up user")
	}

	for attempt := 0; attempt < uidAttempts; attempt++ {
		candidate, genErr := s.newUID()
		if genErr != nil {
			return "", appErrors.Wrap(genErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate uid")
		}
		var claimed string
		claimErr := s.observe("claim_uid", func() error {
			var err error
			claimed, err = s.repo.ClaimUID(ctx, externalID, candidate)
			return err
		})
		if claimErr == nil {
			if claimed == candidate {
				s.logger.Info("allocated timetable uid", zap.String("uid", claimed))
			}
			return claimed, nil
		}
		if errors.Is(claimErr, repository.ErrUIDTaken) {
			s.logger.Debug("uid collision, retrying", zap.Int("attempt", attempt+1))
			continue
		}
		return "", appErrors.Wrap(claimErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate uid")
	}
	return "", appErrors.Clone(appErrors.ErrInternal, "failed to allocate a free uid")
}

// GetSchedule loads a timetable. A uid without a stored timetable yields an empty one.
func (s *TimetableService) GetSchedule(ctx context.Context, uid string) (models.Schedule, error) {
	if !ValidUID(uid) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
	}
	key := timetableCacheKey(uid)
	var cached models.Schedule
	if s.cache.Get(ctx, key, &cached) {
		if cached == nil {
			cached = models.Schedule{}
		}
		return cached, nil
	}

	var schedule models.Schedule
	err := s.observe("get_schedule", func() error {
		var getErr error
		schedule, getErr = s.repo.GetSchedule(ctx, uid)
		if errors.Is(getErr, repository.ErrNotFound) {
			return nil
		}
		return getErr
	})
	if err != nil {
		if errors.Is(err, repository.ErrMalformed) {
			s.logger.Error("malformed timetable record", zap.String("uid", uid), zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrMalformedRecord.Code, appErrors.ErrMalformedRecord.Status, "stored timetable is unreadable")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if schedule == nil {
		schedule = models.Schedule{}
	}
	s.cache.Set(ctx, key, schedule)
	return schedule, nil
}

// SaveSchedule replaces the stored timetable of uid.
func (s *TimetableService) SaveSchedule(ctx context.Context, uid string, schedule models.Schedule) error {
	if !ValidUID(uid) {
		return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
	}
	if schedule == nil {
		schedule = models.Schedule{}
	}
	err := s.observe("save_schedule", func() error {
		return s.repo.SaveSchedule(ctx, uid, schedule)
	})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save timetable")
	}
	if err := s.cache.Invalidate(ctx, timetableCacheKey(uid)); err != nil {
		s.logger.Warn("stale timetable may be served until cache expiry", zap.String("uid", uid))
	}
	return nil
}

// ApplyCells merges submitted form cells into the stored timetable. Cells are
// keyed by CellName; an empty value clears the cell and names outside the grid
// are ignored. Cells not submitted keep their stored subject.
func (s *TimetableService) ApplyCells(ctx context.Context, uid string, cells map[string]string) (models.Schedule, error) {
	schedule, err := s.GetSchedule(ctx, uid)
	if err != nil {
		return nil, err
	}
	updated := schedule.Clone()
	for _, wd := range s.days {
		for period := 1; period <= s.MaxPeriod(); period++ {
			value, ok := cells[CellName(wd.Key, period)]
			if !ok {
				continue
			}
			subject := strings.TrimSpace(value)
			if utf8.RuneCountInString(subject) > maxSubjectLength {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s period %d: subject is longer than %d characters", wd.Name, period, maxSubjectLength))
			}
			updated.Set(wd.Key, period, subject)
		}
	}
	if err := s.SaveSchedule(ctx, uid, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Replace validates and stores a whole timetable.
func (s *TimetableService) Replace(ctx context.Context, uid string, req dto.ReplaceTimetableRequest) (models.Schedule, error) {
	if !ValidUID(uid) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable")
	}
	schedule := models.Schedule{}
	for day, periods := range req.Schedule {
		for period, subject := range periods {
			schedule.Set(day, period, strings.TrimSpace(subject))
		}
	}
	if err := s.SaveSchedule(ctx, uid, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

// Answer resolves the query tokens and formats the spoken answer against uid's timetable.
func (s *TimetableService) Answer(ctx context.Context, uid string, query AnswerQuery) (*AnswerResult, error) {
	schedule, err := s.GetSchedule(ctx, uid)
	if err != nil {
		return nil, err
	}
	res := s.resolver.Resolve(query.When, query.Day, query.Period)
	return &AnswerResult{Resolution: res, Speech: s.formatter.Format(res, schedule)}, nil
}

// Export renders uid's timetable as a downloadable grid.
func (s *TimetableService) Export(ctx context.Context, uid, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", format))
	}
	schedule, err := s.GetSchedule(ctx, uid)
	if err != nil {
		return nil, err
	}

	dataset := s.buildDataset(uid, schedule)
	file := &ExportFile{Filename: fmt.Sprintf("timetable-%s.%s", uid, format)}
	switch format {
	case ExportFormatPDF:
		file.ContentType = "application/pdf"
		file.Payload, err = s.pdf.Render(dataset)
	default:
		file.ContentType = "text/csv; charset=utf-8"
		file.Payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}
	return file, nil
}

func (s *TimetableService) buildDataset(uid string, schedule models.Schedule) export.Dataset {
	headers := []string{"Period"}
	for _, wd := range s.days {
		headers = append(headers, wd.Name)
	}
	rows := make([]map[string]string, 0, s.MaxPeriod())
	for period := 1; period <= s.MaxPeriod(); period++ {
		row := map[string]string{"Period": strconv.Itoa(period)}
		for _, wd := range s.days {
			row[wd.Name] = schedule.Subject(wd.Key, period)
		}
		rows = append(rows, row)
	}
	return export.Dataset{Title: "Timetable " + uid, Headers: headers, Rows: rows}
}

// newUID draws decimal digits from the random source. Bytes of 250 and above
// are rejected so every digit is equally likely.
func (s *TimetableService) newUID() (string, error) {
	uid := make([]byte, 0, s.uidLength)
	buf := make([]byte, s.uidLength)
	for len(uid) < s.uidLength {
		if _, err := io.ReadFull(s.random, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= 250 {
				continue
			}
			uid = append(uid, '0'+b%10)
			if len(uid) == s.uidLength {
				break
			}
		}
	}
	return string(uid), nil
}

// observe times a store call.
func (s *TimetableService) observe(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.metrics.ObserveStoreOperation(operation, time.Since(start), err)
	return err
}

func timetableCacheKey(uid string) string {
	return "timetable:cache:" + uid
}
