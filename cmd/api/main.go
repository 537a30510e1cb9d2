package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/swiftcab/ride-backend/internal/api/handlers"
	"github.com/swiftcab/ride-backend/internal/api/routes"
	"github.com/swiftcab/ride-backend/internal/config"
	"github.com/swiftcab/ride-backend/internal/notify"
	"github.com/swiftcab/ride-backend/internal/observability"
	"github.com/swiftcab/ride-backend/internal/service/pricing"
	"github.com/swiftcab/ride-backend/internal/service/reservation"
	"github.com/swiftcab/ride-backend/internal/service/search"
	"github.com/swiftcab/ride-backend/internal/service/tripflow"
	"github.com/swiftcab/ride-backend/internal/storage/postgres"
	"github.com/swiftcab/ride-backend/pkg/cache"
	"github.com/swiftcab/ride-backend/pkg/database"
	"github.com/swiftcab/ride-backend/pkg/logger"
	"github.com/swiftcab/ride-backend/pkg/monitoring"
	"github.com/swiftcab/ride-backend/pkg/websocket"
)

// tripAssigner adapts the trip service to the search engine's auto-assign
// hook.
type tripAssigner struct {
	svc *tripflow.Service
}

func (a tripAssigner) Assign(ctx context.Context, tripID, driverID uuid.UUID) error {
	_, err := a.svc.Assign(ctx, tripID, driverID)
	return err
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting SwiftCab ride backend",
		logger.String("env", cfg.Server.Env),
		logger.String("port", cfg.Server.Port),
	)

	// Initialize New Relic
	nrApp, err := monitoring.New(monitoring.Config{
		LicenseKey: cfg.NewRelic.LicenseKey,
		AppName:    cfg.NewRelic.AppName,
		Enabled:    cfg.NewRelic.Enabled,
	})
	if err != nil {
		appLogger.Warn("Failed to initialize New Relic", logger.Err(err))
	} else if nrApp.IsEnabled() {
		appLogger.Info("New Relic APM initialized",
			logger.String("app_name", cfg.NewRelic.AppName))
	} else {
		appLogger.Info("New Relic APM disabled")
	}
	defer nrApp.Shutdown(10 * time.Second)

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cache.Config{
		Host:        cfg.Redis.Host,
		Port:        cfg.Redis.Port,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		MaxRetries:  cfg.Redis.MaxRetries,
		PoolSize:    cfg.Redis.PoolSize,
		MinIdleConn: cfg.Redis.MinIdleConn,
		DialTimeout: cfg.Redis.DialTimeout,
		ReadTimeout: cfg.Redis.ReadTimeout,
	})
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", logger.Err(err))
	}
	defer cache.Close(redisClient)

	appLogger.Info("Connected to Redis")

	// Initialize PostgreSQL
	db, err := database.NewPostgresDB(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.MaxConnections,
		MaxIdle:  cfg.Database.MaxIdleConns,
	})
	if err != nil {
		appLogger.Fatal("Failed to connect to PostgreSQL", logger.Err(err))
	}
	defer db.Close()

	appLogger.Info("Connected to PostgreSQL")

	// Initialize WebSocket hub and notification fan-out
	wsHub := websocket.NewHub(appLogger)
	go wsHub.Run()
	observability.RegisterWSConnections(func() float64 {
		return float64(wsHub.ActiveConnections())
	})
	notifier := notify.NewHubNotifier(wsHub)

	// Stores
	driverStore := postgres.NewDriverStore(db, redisClient, appLogger)
	tripStore := postgres.NewTripStore(db, redisClient, appLogger)
	paymentStore := postgres.NewPaymentStore(db)
	adminStore := postgres.NewAdminStore(db)

	// Services
	reservations := reservation.NewManager(driverStore, appLogger, cfg.Search.ReservationLease)
	pricer := pricing.NewService(redisClient, pricing.DefaultConfig())
	trips := tripflow.NewService(tripStore, driverStore, paymentStore, pricer, notifier, appLogger, tripflow.Config{
		PaymentProximityKM: cfg.Proximity.PaymentKM,
		RouteChangeMinKM:   cfg.Proximity.RouteChangeMinKM,
		PricingRegion:      cfg.Pricing.Region,
	})

	rideSearch := search.New(tripStore, driverStore, reservations, nil, notifier, appLogger, search.Config{
		RadiusKM: cfg.Search.RideRadiusKM,
		Timeout:  cfg.Search.Timeout,
	})
	deliverySearch := search.New(tripStore, driverStore, reservations, tripAssigner{svc: trips}, notifier, appLogger, search.Config{
		RadiusKM:   cfg.Search.DeliveryRadiusKM,
		Timeout:    cfg.Search.Timeout,
		AutoAssign: true,
	})

	// Initialize handlers with dependencies
	h := handlers.NewHandlers(trips, rideSearch, deliverySearch, driverStore, paymentStore, adminStore,
		notifier, wsHub, appLogger, cfg.JWT, cfg.WebSocket)

	// Initialize Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Setup all routes
	var nrApplication *monitoring.NewRelicApp
	if nrApp.IsEnabled() {
		nrApplication = nrApp
	}
	if nrApplication != nil {
		routes.SetupRoutes(router, h, nrApplication.Application)
	} else {
		routes.SetupRoutes(router, h, nil)
	}

	appLogger.Info("Routes configured")

	// Create HTTP server. The write timeout leaves room for a request
	// held open across a full driver search.
	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   cfg.Search.Timeout + 30*time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Start server in a goroutine
	go func() {
		appLogger.Info("Server starting", logger.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", logger.Err(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.Err(err))
	}

	appLogger.Info("Server stopped gracefully")
}
