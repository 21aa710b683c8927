package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-scheduler-api/api/swagger"
	"github.com/noah-isme/campus-scheduler-api/internal/handler"
	internalmiddleware "github.com/noah-isme/campus-scheduler-api/internal/middleware"
	"github.com/noah-isme/campus-scheduler-api/internal/models"
	"github.com/noah-isme/campus-scheduler-api/internal/repository"
	"github.com/noah-isme/campus-scheduler-api/internal/service"
	"github.com/noah-isme/campus-scheduler-api/pkg/cache"
	"github.com/noah-isme/campus-scheduler-api/pkg/config"
	"github.com/noah-isme/campus-scheduler-api/pkg/database"
	"github.com/noah-isme/campus-scheduler-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-scheduler-api/pkg/middleware/requestid"
)

// @title Campus Scheduler API
// @version 1.0.0
// @description Course section timetabling and enrollment capacity management.
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect to redis", zap.Error(err))
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	sectionRepo := repository.NewSectionRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Scheduler.CacheTTL, logr, cfg.Redis.Enabled)
	tokenSvc := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Expiry: cfg.JWT.Expiration})
	schedulerSvc := service.NewSchedulerService(sectionRepo, classroomRepo, scheduleRepo, db, cacheSvc, metricsSvc, validate, logr,
		service.SchedulerConfig{
			MaxSteps: cfg.Scheduler.MaxSteps,
			Timeout:  cfg.Scheduler.Timeout,
			CacheTTL: cfg.Scheduler.CacheTTL,
		})
	conflictSvc := service.NewScheduleConflictService(enrollmentRepo, sectionRepo, validate, logr)
	prereqSvc := service.NewPrerequisiteService(courseRepo, 0, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, sectionRepo, prereqSvc, conflictSvc, cacheSvc, metricsSvc, validate, logr,
		service.EnrollmentConfig{
			EnforcePrerequisites: cfg.Enrollment.EnforcePrerequisites,
			DropWindow:           cfg.Enrollment.DropWindow,
			CurrentSemester:      cfg.Enrollment.CurrentSemester,
			CurrentYear:          cfg.Enrollment.CurrentYear,
		})

	scheduleHandler := handler.NewScheduleHandler(schedulerSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, conflictSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
		"redis":    cacheRepo.Ping,
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics", "/health"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(tokenSvc))

	schedules := api.Group("/schedules")
	schedules.POST("/generate", internalmiddleware.RequireRoles(models.RoleAdmin), scheduleHandler.Generate)
	schedules.GET("", scheduleHandler.List)
	schedules.GET("/export", scheduleHandler.Export)

	enrollments := api.Group("/enrollments")
	enrollments.POST("", internalmiddleware.RequireRoles(models.RoleStudent, models.RoleAdmin), enrollmentHandler.Enroll)
	enrollments.POST("/:id/drop", internalmiddleware.RequireRoles(models.RoleStudent), enrollmentHandler.Drop)
	enrollments.POST("/auto", internalmiddleware.RequireRoles(models.RoleStudent, models.RoleAdmin), enrollmentHandler.AutoEnroll)
	enrollments.POST("/conflicts", enrollmentHandler.CheckConflicts)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
