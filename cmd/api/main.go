package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"esports-scheduler/internal/config"
	"esports-scheduler/internal/database"
	"esports-scheduler/internal/domain/reservation"
	"esports-scheduler/internal/notify"
	"esports-scheduler/internal/obs"
	jwtsvc "esports-scheduler/internal/pkg/jwt"
	"esports-scheduler/internal/pkg/logger"
	"esports-scheduler/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zl, err := logger.New(cfg.IsDev())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Sync() }()

	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.OTLPEndpoint, cfg.AppEnv)
	if err != nil {
		zl.Fatal("init tracer", zap.Error(err))
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("db connect", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zl.Fatal("db migrate", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := obs.NewMetrics(reg)

	hub := notify.NewHub(zl)
	var (
		publisher  notify.Publisher  = hub
		subscriber notify.Subscriber = hub
	)

	switch cfg.NotifierBackend {
	case config.NotifierPostgres:
		if !cfg.IsPostgres() {
			zl.Fatal("NOTIFIER_BACKEND=postgres needs a postgres DATABASE_URL")
		}
		pg := notify.NewPGNotifier(db, cfg.DatabaseURL, hub, zl)
		publisher, subscriber = pg, pg
		go func() { _ = pg.Run(ctx) }()
	case config.NotifierRedis:
		client, err := config.NewRedisClient(cfg)
		if err != nil {
			zl.Fatal("redis connect", zap.Error(err))
		}
		defer client.Close()
		rn := notify.NewRedisNotifier(client, hub, zl)
		publisher, subscriber = rn, rn
		go func() { _ = rn.Run(ctx) }()
	}

	if cfg.AMQPURL != "" {
		amqpPub, err := notify.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			zl.Fatal("rabbitmq connect", zap.Error(err))
		}
		defer amqpPub.Close()
		publisher = notify.Multi{publisher, amqpPub}
	}

	app := server.New(server.Options{
		DB:         db,
		JWT:        jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL),
		Publisher:  publisher,
		Subscriber: subscriber,
		Metrics:    metrics,
		Gatherer:   reg,
		Logger:     zl,
		CronSecret: cfg.CronSecret,
		Keepalive:  cfg.StreamKeepalive,
		Origins:    cfg.CORSAllowedOrigins,
	})

	var retention *reservation.RetentionWorker
	if cfg.RetentionInterval > 0 {
		retention = reservation.NewRetentionWorker(app.Reservations, zl, cfg.RetentionInterval, cfg.RetentionDryRun)
		retention.Start()
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("env", cfg.AppEnv),
			zap.String("notifier", cfg.NotifierBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	// open streams end when the hub closes
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("http shutdown", zap.Error(err))
	}
	if retention != nil {
		retention.Stop()
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		zl.Error("tracer shutdown", zap.Error(err))
	}
}
