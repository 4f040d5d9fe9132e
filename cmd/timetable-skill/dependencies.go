package main

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-skill/internal/handler"
	"github.com/noah-isme/timetable-skill/internal/models"
	"github.com/noah-isme/timetable-skill/internal/repository"
	"github.com/noah-isme/timetable-skill/internal/service"
	"github.com/noah-isme/timetable-skill/pkg/cache"
	"github.com/noah-isme/timetable-skill/pkg/config"
	"github.com/noah-isme/timetable-skill/pkg/database"
	"github.com/noah-isme/timetable-skill/pkg/linktoken"
	"github.com/noah-isme/timetable-skill/pkg/storage"
)

type timetableStore interface {
	FindUID(ctx context.Context, externalID string) (string, error)
	ClaimUID(ctx context.Context, externalID, uid string) (string, error)
	GetSchedule(ctx context.Context, uid string) (models.Schedule, error)
	SaveSchedule(ctx context.Context, uid string, schedule models.Schedule) error
}

// dependencies holds the long-lived objects shared by the routes.
type dependencies struct {
	db         *sqlx.DB
	redis      *redis.Client
	metrics    *service.MetricsService
	timetables *service.TimetableService
	skill      *service.SkillService
	signer     *linktoken.Signer
	checks     map[string]handler.ReadinessCheck
}

func newDependencies(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*dependencies, error) {
	deps := &dependencies{checks: map[string]handler.ReadinessCheck{}}
	if cfg.Metrics.Enabled {
		deps.metrics = service.NewMetricsService()
	}

	store, err := deps.openStore(ctx, cfg)
	if err != nil {
		deps.Close()
		return nil, err
	}

	if cfg.Cache.Enabled && deps.redis == nil {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis cache unavailable, continuing without cache", zap.Error(err))
		} else {
			deps.redis = client
			deps.checks["redis"] = redisCheck(client)
		}
	}
	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled && cfg.Store.Driver != config.StoreRedis && deps.redis != nil {
		cacheRepo := repository.NewCacheRepository(deps.redis, "", logr)
		cacheSvc = service.NewCacheService(cacheRepo, deps.metrics, cfg.Cache.TTL, logr, true)
	}

	deps.timetables = service.NewTimetableService(store, cacheSvc, deps.metrics, validator.New(), service.TimetableConfig{
		Days:      cfg.Timetable.Days,
		MaxPeriod: cfg.Timetable.MaxPeriod,
		UIDLength: cfg.Timetable.UIDLength,
		CSVBOM:    true,
	}, logr)
	deps.signer = linktoken.NewSigner(cfg.FormLink.Secret, cfg.FormLink.TTL)
	deps.skill = service.NewSkillService(deps.timetables, deps.signer, cfg.BaseURL, deps.metrics, logr)
	return deps, nil
}

func (d *dependencies) openStore(ctx context.Context, cfg *config.Config) (timetableStore, error) {
	switch cfg.Store.Driver {
	case config.StoreMemory:
		return repository.NewMemoryTimetableRepository(), nil
	case config.StoreFile, "":
		files, err := storage.NewLocalStorage(cfg.Store.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open data dir: %w", err)
		}
		return repository.NewFileTimetableRepository(files), nil
	case config.StorePostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		d.db = db
		d.checks["postgres"] = db.PingContext
		if err := database.EnsureSchema(ctx, db); err != nil {
			return nil, err
		}
		return repository.NewPostgresTimetableRepository(db), nil
	case config.StoreRedis:
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		d.redis = client
		d.checks["redis"] = redisCheck(client)
		return repository.NewRedisTimetableRepository(client), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// Close releases backing connections.
func (d *dependencies) Close() {
	if d.db != nil {
		_ = d.db.Close()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}
}

func redisCheck(client *redis.Client) handler.ReadinessCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
