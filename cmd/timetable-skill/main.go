package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/timetable-skill/api/swagger"
	"github.com/noah-isme/timetable-skill/pkg/config"
	"github.com/noah-isme/timetable-skill/pkg/logger"
)

// @title Timetable Skill API
// @version 1.0.0
// @description Voice skill answering class timetable questions, with a registration form and JSON API.
// @BasePath /api/v1
// @schemes http https

func main() {
	if err := run(); err != nil {
		log.Fatalf("timetable-skill: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := newDependencies(ctx, cfg, logr)
	if err != nil {
		logr.Error("failed to init dependencies", zap.Error(err))
		return err
	}
	defer deps.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, deps, logr),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Store.Driver)
	if err := serve(ctx, srv, logr); err != nil {
		logr.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}

// serve runs srv until ctx is cancelled or the listener fails, then drains
// in-flight requests.
func serve(ctx context.Context, srv *http.Server, logr *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
