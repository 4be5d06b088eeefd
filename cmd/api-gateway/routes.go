package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-schedule-api/internal/middleware"
	"github.com/noah-isme/tutoring-schedule-api/internal/models"
	"github.com/noah-isme/tutoring-schedule-api/internal/service"
	"github.com/noah-isme/tutoring-schedule-api/pkg/config"
	"github.com/noah-isme/tutoring-schedule-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tutoring-schedule-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tutoring-schedule-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, h handlers, metrics *service.MetricsService, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health"))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	api.POST("/auth/login", h.auth.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(h.tokens))
	authed.GET("/auth/me", h.auth.Me)

	portal := authed.Group("/tutor")
	portal.Use(middleware.RequireRoles(models.RoleTutor, models.RoleAdmin))
	portal.GET("/me/week", h.schedule.TutorWeek)
	portal.PATCH("/sessions/:id/students/:studentId", h.sessions.TutorSetAttendance)

	admin := authed.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))

	admin.POST("/users", h.auth.CreateUser)

	admin.GET("/schedule/weeks/:weekStart", h.schedule.Week)
	admin.GET("/schedule/weeks/:weekStart/export", h.schedule.Export)
	admin.GET("/schedule/seats", h.schedule.Seats)

	admin.POST("/bookings", h.bookings.Create)

	admin.PATCH("/sessions/:id/students/:studentId", h.sessions.SetAttendance)
	admin.DELETE("/sessions/:id/students/:studentId", h.sessions.Remove)

	tutors := admin.Group("/tutors")
	tutors.GET("", h.tutors.List)
	tutors.POST("", h.tutors.Create)
	tutors.GET("/:id", h.tutors.Get)
	tutors.PUT("/:id", h.tutors.Update)
	tutors.DELETE("/:id", h.tutors.Delete)

	students := admin.Group("/students")
	students.GET("", h.students.List)
	students.GET("/booking", h.students.ListForBooking)
	students.POST("", h.students.Create)
	students.GET("/:id", h.students.Get)
	students.PUT("/:id", h.students.Update)
	students.DELETE("/:id", h.students.Delete)

	return r
}
