// File: snapfix/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snapfix/config"
	"snapfix/cron"
	"snapfix/database"
	bookingRepo "snapfix/database/repository/booking"
	"snapfix/handlers"
	"snapfix/middleware"
	"snapfix/routes"
	"snapfix/services/availability"
	"snapfix/services/payment"
	"snapfix/services/tasks"
	"snapfix/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitRedis()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// repositories.
	repo := bookingRepo.NewMongoBookingRepo()
	if err := repo.EnsureIndexes(); err != nil {
		logger.Sugar().Fatalf("main: failed to ensure booking indexes: %v", err)
	}

	// services.
	gateway := payment.NewHTTPGateway(
		config.AppConfig.GatewayBaseURL,
		config.AppConfig.GatewayClientID,
		config.AppConfig.GatewayClientSecret,
		time.Duration(config.AppConfig.GatewayTimeoutSecs)*time.Second,
	)

	deepLinkRouter := payment.NewDeepLinkRouter(
		payment.NewRedisProcessedSet(utils.GetPaymentCacheClient()),
	)

	checker := availability.NewChecker(availability.NewMongoOracle(repo))

	sagaManager := payment.NewSagaManager(gateway, repo, deepLinkRouter, checker, logger)
	sagaManager.Lease = availability.NewWindowLease(utils.GetPaymentCacheClient())
	sagaManager.Reconcile = tasks.NewAsynqReconcileScheduler()

	cancellation := payment.NewCancellationFlow(gateway, repo, logger)

	// handlers.
	handlerBundle := &routes.HandlerBundle{
		Payment:      handlers.NewPaymentHandler(sagaManager, deepLinkRouter, logger),
		Booking:      handlers.NewBookingHandler(repo, cancellation, logger),
		Availability: handlers.NewAvailabilityHandler(checker, logger),
	}
	routes.RegisterRoutes(router, handlerBundle)

	// background workers + health monitor.
	cron.InitReconcileWorker(repo, gateway, logger)
	utils.StartHealthMonitor(
		[]*redis.Client{utils.GetCacheClient(), utils.GetPaymentCacheClient()},
		database.MongoClient,
	)

	srv := &http.Server{
		Addr:    ":" + config.AppConfig.AppPort,
		Handler: router,
	}

	go func() {
		logger.Sugar().Infof("main: listening on :%s", config.AppConfig.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server error: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("main: shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Errorf("main: forced shutdown: %v", err)
	}
}
