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
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	_ "github.com/noah-isme/siports-api/api/swagger"
	"github.com/noah-isme/siports-api/internal/handler"
	"github.com/noah-isme/siports-api/internal/middleware"
	"github.com/noah-isme/siports-api/internal/outbox"
	"github.com/noah-isme/siports-api/internal/repository"
	"github.com/noah-isme/siports-api/internal/service"
	"github.com/noah-isme/siports-api/internal/tasks"
	"github.com/noah-isme/siports-api/pkg/cache"
	"github.com/noah-isme/siports-api/pkg/config"
	"github.com/noah-isme/siports-api/pkg/database"
	"github.com/noah-isme/siports-api/pkg/jobs"
	"github.com/noah-isme/siports-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/siports-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/siports-api/pkg/middleware/requestid"
	"github.com/noah-isme/siports-api/pkg/scraper"
	"github.com/noah-isme/siports-api/pkg/telemetry"
)

// @title SIPORTS Booking API
// @version 1.0.0
// @description Exhibitor time slots, B2B appointments and exhibitor mini-sites.
// @BasePath /api/v1
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

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		logr.Fatal("failed to init tracing", zap.Error(err))
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching and rate limiting disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()
	txManager := database.NewTxManager(db)
	metricsSvc := service.NewMetricsService()

	exhibitorRepo := repository.NewExhibitorRepository(db)
	slotRepo := repository.NewTimeSlotRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	miniSiteRepo := repository.NewMiniSiteRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	outboxRepo := outbox.NewRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.SlotsTTL, logr, redisClient != nil)
	retry := service.RetryPolicy{Attempts: cfg.Booking.RetryAttempts, InitialInterval: cfg.Booking.RetryInitialInterval}

	slotSvc := service.NewTimeSlotService(slotRepo, exhibitorRepo, txManager, cacheSvc, service.TimeSlotConfig{
		Event:    cfg.Event,
		CacheTTL: cfg.Cache.SlotsTTL,
	}, validate, logr)
	appointmentSvc := service.NewAppointmentService(appointmentRepo, slotSvc, exhibitorRepo, profileRepo, txManager, outboxRepo, metricsSvc, retry, validate, logr)
	fetcher := scraper.NewFetcher(scraper.Config{
		Timeout:      cfg.Scraper.Timeout,
		UserAgent:    cfg.Scraper.UserAgent,
		MaxBodyBytes: cfg.Scraper.MaxBodyBytes,
		MaxImages:    cfg.Scraper.MaxImages,
	})
	miniSiteSvc := service.NewMiniSiteService(miniSiteRepo, exhibitorRepo, txManager, outboxRepo, fetcher, cacheSvc, metricsSvc, retry, service.MiniSiteConfig{
		DefaultTheme: cfg.MiniSite.DefaultTheme,
		CacheTTL:     cfg.Cache.MiniSiteTTL,
	}, validate, logr)
	exhibitorSvc := service.NewExhibitorService(exhibitorRepo, miniSiteSvc, validate, logr)
	exportSvc := service.NewExportService(appointmentRepo, exhibitorRepo, logr, nil, nil)

	enrichQueue := jobs.NewQueue("minisite-enrich", miniSiteSvc.HandleEnrichJob, jobs.QueueConfig{
		Workers:    cfg.Jobs.EnrichWorkers,
		MaxRetries: cfg.Jobs.EnrichRetries,
		Logger:     logr,
	})
	miniSiteSvc.SetQueue(enrichQueue)
	enrichQueue.Start(ctx)
	defer enrichQueue.Stop()

	publisher := outbox.NewPublisher(outboxRepo, outbox.NewKafkaWriter(cfg.Kafka.Brokers), logr, outbox.PublisherConfig{
		PollEvery: cfg.Outbox.PollInterval,
		BatchSize: cfg.Outbox.BatchSize,
		Observer:  metricsSvc,
	})
	go publisher.Run(ctx)

	pruner := tasks.NewPruner(outboxRepo, appointmentRepo, cfg.Outbox.Retention, logr)
	scheduler, err := pruner.Schedule(cfg.Outbox.CleanupSchedule)
	if err != nil {
		logr.Fatal("invalid cleanup schedule", zap.String("spec", cfg.Outbox.CleanupSchedule), zap.Error(err))
	}
	defer scheduler.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	checks := []handler.ReadinessCheck{{Name: "postgres", Check: db.PingContext}}
	if redisClient != nil {
		checks = append(checks, handler.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc.Handler(), checks...)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	tokenSvc := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	routeMiddleware := handler.RouteMiddleware{Auth: middleware.JWT(tokenSvc)}
	if cfg.RateLimit.Enabled && redisClient != nil {
		routeMiddleware.AppointmentLimiter = middleware.RateLimit(middleware.NewRedisWindow(redisClient), middleware.RateLimitConfig{
			Prefix:   "rl:appointments",
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimit.Window,
		}, logr)
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Exhibitors:   handler.NewExhibitorHandler(exhibitorSvc),
		Slots:        handler.NewTimeSlotHandler(slotSvc),
		Appointments: handler.NewAppointmentHandler(appointmentSvc, exportSvc),
		MiniSites:    handler.NewMiniSiteHandler(miniSiteSvc),
	}, routeMiddleware)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           otelhttp.NewHandler(r, cfg.Telemetry.ServiceName),
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
		logr.Error("http shutdown failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logr.Error("tracer shutdown failed", zap.Error(err))
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
