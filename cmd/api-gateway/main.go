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
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "github.com/noah-isme/tutoring-schedule-api/api/swagger"
	"github.com/noah-isme/tutoring-schedule-api/internal/handler"
	"github.com/noah-isme/tutoring-schedule-api/internal/repository"
	"github.com/noah-isme/tutoring-schedule-api/internal/schedule"
	"github.com/noah-isme/tutoring-schedule-api/internal/service"
	"github.com/noah-isme/tutoring-schedule-api/pkg/cache"
	"github.com/noah-isme/tutoring-schedule-api/pkg/config"
	"github.com/noah-isme/tutoring-schedule-api/pkg/database"
	"github.com/noah-isme/tutoring-schedule-api/pkg/export"
	"github.com/noah-isme/tutoring-schedule-api/pkg/logger"
)

// @title Tutoring Schedule API
// @version 1.0.0
// @description Weekly tutoring sessions, open seats, bookings and attendance
// @BasePath /api/v1
// @schemes http
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	loc, err := cfg.Schedule.Location()
	if err != nil {
		logr.Fatal("invalid schedule configuration", zap.Error(err))
	}
	grid, err := schedule.NewGrid(cfg.Schedule.TimeSlots, cfg.Schedule.MaxCapacity, cfg.Schedule.WeekDays, loc)
	if err != nil {
		logr.Fatal("invalid schedule configuration", zap.Error(err))
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db, logr); err != nil {
		logr.Fatal("failed to apply migrations", zap.Error(err))
	}

	metrics := service.NewMetricsService()
	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, week cache disabled", zap.Error(err))
		} else {
			defer client.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(client, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	handlers := buildHandlers(cfg, db, grid, cacheSvc, metrics, logr)
	router := newRouter(cfg, handlers, metrics, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "week_days", grid.WeekDays, "capacity", grid.Capacity)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

type handlers struct {
	auth     *handler.AuthHandler
	schedule *handler.ScheduleHandler
	bookings *handler.BookingHandler
	sessions *handler.SessionHandler
	tutors   *handler.TutorHandler
	students *handler.StudentHandler
	metrics  *handler.MetricsHandler
	tokens   *service.AuthService
}

func buildHandlers(cfg *config.Config, db *sqlx.DB, grid schedule.Grid, cacheSvc *service.CacheService, metrics *service.MetricsService, logr *zap.Logger) handlers {
	validate := validator.New()

	tutorRepo := repository.NewTutorRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	userRepo := repository.NewUserRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	tutorSvc := service.NewTutorService(tutorRepo, grid, cacheSvc, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, grid, cacheSvc, validate, logr)
	scheduleSvc := service.NewScheduleService(tutorRepo, studentRepo, sessionRepo, grid, cacheSvc, cfg.Cache.TTL, logr)
	seatSvc := service.NewSeatService(tutorRepo, sessionRepo, grid, logr)
	bookingSvc := service.NewBookingService(db, sessionRepo, enrollmentRepo, tutorRepo, studentRepo, grid, service.BookingConfig{
		MaxRecurringWeeks:     cfg.Schedule.MaxRecurringWeeks,
		DefaultRecurringWeeks: cfg.Schedule.DefaultRecurringLen,
	}, cacheSvc, metrics, validate, logr)
	attendanceSvc := service.NewAttendanceService(db, enrollmentRepo, sessionRepo, cfg.Schedule.PruneEmptySessions, cacheSvc, metrics, validate, logr)
	exportSvc := service.NewExportService(scheduleSvc, logr, export.NewSpreadsheetCSVExporter(), export.NewPDFExporter())

	return handlers{
		auth:     handler.NewAuthHandler(authSvc),
		schedule: handler.NewScheduleHandler(scheduleSvc, seatSvc, exportSvc),
		bookings: handler.NewBookingHandler(bookingSvc),
		sessions: handler.NewSessionHandler(attendanceSvc),
		tutors:   handler.NewTutorHandler(tutorSvc),
		students: handler.NewStudentHandler(studentSvc),
		metrics:  handler.NewMetricsHandler(metrics, db),
		tokens:   authSvc,
	}
}
