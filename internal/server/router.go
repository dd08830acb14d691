// Package server assembles the HTTP surface from the domain handlers.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"esports-scheduler/internal/domain/blackout"
	"esports-scheduler/internal/domain/computer"
	"esports-scheduler/internal/domain/reservation"
	"esports-scheduler/internal/domain/team"
	"esports-scheduler/internal/domain/user"
	"esports-scheduler/internal/middleware"
	"esports-scheduler/internal/notify"
	"esports-scheduler/internal/obs"
	"esports-scheduler/internal/pkg/jwt"
	"esports-scheduler/internal/pkg/response"
)

type Options struct {
	DB         *gorm.DB
	JWT        *jwt.Service
	Publisher  notify.Publisher
	Subscriber notify.Subscriber
	Metrics    *obs.Metrics
	Gatherer   prometheus.Gatherer
	Logger     *zap.Logger
	CronSecret string
	Keepalive  time.Duration
	Origins    []string
}

// App is the wired router plus the engine behind it, which the retention
// worker shares.
type App struct {
	Router       *gin.Engine
	Reservations *reservation.Service
}

func New(opts Options) *App {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	computerRepo := computer.NewRepository(opts.DB)
	teamRepo := team.NewRepository(opts.DB)
	userRepo := user.NewRepository(opts.DB)
	blackoutRepo := blackout.NewRepository(opts.DB)
	reservationRepo := reservation.NewRepository(opts.DB)

	reservationService := reservation.NewService(reservation.Deps{
		DB:           opts.DB,
		Reservations: reservationRepo,
		Computers:    computerRepo,
		Teams:        teamRepo,
		Users:        userRepo,
		Blackouts:    blackoutRepo,
		Notifier:     opts.Publisher,
		Metrics:      opts.Metrics,
		Logger:       log,
	})
	blackoutService := blackout.NewService(blackoutRepo, computerRepo, log)

	authHandler := user.NewHandler(userRepo, opts.JWT, log)
	computerHandler := computer.NewHandler(computerRepo, log)
	teamHandler := team.NewHandler(teamRepo, log)
	blackoutHandler := blackout.NewHandler(blackoutService, log)
	reservationHandler := reservation.NewHandler(reservationService, opts.Subscriber, opts.Keepalive, opts.Metrics, log)

	r := gin.New()
	r.Use(middleware.ErrorLogger(log))
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(opts.Origins))

	r.GET("/healthz", health(opts.DB))
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/api/v1")
	{
		// public
		authHandler.RegisterRoutes(v1)

		// admin
		admin := v1.Group("")
		admin.Use(middleware.JWTAuth(opts.JWT), middleware.AdminOnly())

		computerHandler.RegisterRoutes(v1, admin)
		teamHandler.RegisterRoutes(v1)
		blackoutHandler.RegisterRoutes(v1, admin)
		reservationHandler.RegisterRoutes(v1, admin)

		// cron
		cron := v1.Group("/admin")
		cron.Use(middleware.CronSecret(opts.CronSecret, log))
		reservationHandler.RegisterCronRoutes(cron)
	}

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Route not found")
	})

	return &App{Router: r, Reservations: reservationService}
}

func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			response.Error(c, http.StatusServiceUnavailable, "UNAVAILABLE", "Database unreachable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	}
}
