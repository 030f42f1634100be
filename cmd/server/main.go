package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/haulwise/service-dispatch/internal/application"
	"github.com/haulwise/service-dispatch/internal/config"
	bookingDomain "github.com/haulwise/service-dispatch/internal/domain/booking"
	dispatchEvents "github.com/haulwise/service-dispatch/internal/events"
	"github.com/haulwise/service-dispatch/internal/handler"
	"github.com/haulwise/service-dispatch/internal/repository"
	"github.com/haulwise/service-dispatch/internal/scheduler"
	"github.com/haulwise/service-dispatch/migrations"
	"github.com/haulwise/service-dispatch/pkg/auth"
	"github.com/haulwise/service-dispatch/pkg/database"
	"github.com/haulwise/service-dispatch/pkg/health"
	"github.com/haulwise/service-dispatch/pkg/kafka"
	"github.com/haulwise/service-dispatch/pkg/logger"
	"github.com/haulwise/service-dispatch/pkg/metrics"
	"github.com/haulwise/service-dispatch/pkg/middleware"
)

const serviceName = "service-dispatch"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("timezone", cfg.Location.String()),
		zap.String("sequence_backend", cfg.SequenceBackend),
	)

	// Connect to database
	db, err := database.Connect(cfg.DBConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if err := migrate(db, cfg.AppEnv, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, cfg.JWTConfig.AccessTTL, cfg.JWTConfig.RefreshTTL)

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var recorder application.MetricsRecorder
	var serviceMetrics *metrics.Metrics
	if cfg.MetricsEnabled {
		serviceMetrics = metrics.New("dispatch", registry)
		recorder = serviceMetrics
	}

	// Initialize Kafka producer
	var publisher application.EventPublisher = application.NopPublisher{}
	if cfg.KafkaConfig.Enabled {
		kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
		defer func() { _ = kafkaProducer.Close() }()
		publisher = kafkaProducer
	} else {
		log.Warn("kafka disabled, booking events will not be published")
	}

	// Initialize repositories
	bookingRepo := repository.NewGormBookingRepository(db)
	vehicleRepo := repository.NewGormVehicleRepository(db)
	employeeRepo := repository.NewGormEmployeeRepository(db)
	proofRepo := repository.NewGormProofRepository(db)

	healthHandler := health.NewHandler(db, serviceName)

	// Initialize identifier sequences
	var sequences bookingDomain.SequenceStore
	switch cfg.SequenceBackend {
	case config.SequenceBackendRedis:
		redisStore, err := repository.NewRedisSequenceStore(ctx, cfg.RedisConfig.Addr, cfg.RedisConfig.Password, cfg.RedisConfig.DB)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer func() { _ = redisStore.Close() }()
		healthHandler.AddCheck("redis", redisStore)
		sequences = redisStore
	default:
		sequences = repository.NewGormCounterRepository(db)
	}
	ids := bookingDomain.NewIdentifierGenerator(sequences)

	// Initialize application services
	topic := cfg.KafkaConfig.BookingTopic
	synchronizer := application.NewResourceSynchronizer(
		bookingRepo, vehicleRepo, employeeRepo,
		publisher, topic, recorder, cfg.Location, log,
	)
	bookingService := application.NewBookingService(
		bookingRepo, vehicleRepo, ids, synchronizer,
		publisher, topic, recorder, cfg.Location, log,
	)
	driverService := application.NewDriverService(
		bookingRepo, proofRepo, synchronizer,
		publisher, topic, recorder, log,
	)
	fleetService := application.NewFleetService(vehicleRepo, employeeRepo, log)
	proofService := application.NewProofService(proofRepo, log)

	// Start the daily sweep
	sweep := scheduler.NewDaily(synchronizer, cfg.Location, log)
	go sweep.Run(ctx)

	// Initialize and start driver location consumer in a goroutine
	if cfg.KafkaConfig.Enabled {
		groupID := cfg.KafkaConfig.GroupPrefix + serviceName
		locationConsumer := dispatchEvents.NewDriverLocationConsumer(
			cfg.KafkaConfig.Brokers,
			groupID,
			cfg.KafkaConfig.TelemetryTopic,
			driverService,
			log,
		)
		defer func() { _ = locationConsumer.Close() }()

		go func() {
			log.Info("starting driver location consumer")
			if err := locationConsumer.Start(ctx); err != nil && err != context.Canceled {
				log.Error("driver location consumer error", zap.Error(err))
			}
		}()
	}

	// Setup Gin router
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.MaxBodySize(cfg.MaxBodyBytes))
	if serviceMetrics != nil {
		router.Use(middleware.MetricsMiddleware(serviceMetrics))
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	// Register health check routes
	healthHandler.RegisterRoutes(router)

	// Register routes
	handler.NewBookingHandler(bookingService).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewDriverHandler(driverService).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewFleetHandler(fleetService).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewProofHandler(proofService).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewAdminHandler(bookingService, sweep).RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	// Stop the consumer and scheduler
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}

// migrate auto-migrates the models in development and applies the embedded
// goose migrations everywhere else.
func migrate(db *gorm.DB, appEnv string, log *zap.Logger) error {
	if appEnv == "development" {
		if err := db.AutoMigrate(
			&repository.BookingModel{},
			&repository.CounterModel{},
			&repository.VehicleModel{},
			&repository.EmployeeModel{},
			&repository.ProofModel{},
		); err != nil {
			return fmt.Errorf("auto-migration: %w", err)
		}
		log.Info("database migration completed (dev auto-migrate)")
		return nil
	}
	return database.RunMigrations(db, migrations.FS, ".", log)
}
