package main

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-skill/internal/handler"
	"github.com/noah-isme/timetable-skill/internal/middleware"
	"github.com/noah-isme/timetable-skill/internal/web"
	"github.com/noah-isme/timetable-skill/pkg/config"
	"github.com/noah-isme/timetable-skill/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-skill/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-skill/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, deps *dependencies, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))
	r.SetHTMLTemplate(web.Templates())

	metricsHandler := handler.NewMetricsHandler(deps.metrics, deps.checks)
	skillHandler := handler.NewSkillHandler(deps.skill, cfg.Skill.ApplicationID)
	formHandler := handler.NewFormHandler(deps.timetables, deps.signer)
	timetableHandler := handler.NewTimetableHandler(deps.timetables)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Docs.Enabled && cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.POST("/", skillHandler.Handle)
	r.GET("/timetable/:uid", formHandler.Show)
	r.POST("/timetable/:uid", formHandler.Save)

	prefix := "/" + strings.Trim(cfg.APIPrefix, "/")
	if prefix == "/" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)
	api.POST("/skill", skillHandler.Handle)

	timetables := api.Group("/timetables/:uid", middleware.LinkToken(deps.signer))
	timetables.GET("", timetableHandler.Get)
	timetables.PUT("", timetableHandler.Replace)
	timetables.GET("/answer", timetableHandler.Answer)
	timetables.GET("/export", timetableHandler.Export)

	return r
}
