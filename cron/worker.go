package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"snapfix/config"
	bookingRepo "snapfix/database/repository/booking"
	"snapfix/models"
	"snapfix/services/payment"
	"snapfix/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// InitReconcileWorker runs the async payment-reconciliation worker in
// the background. The worker only reports: a pending booking is never
// auto-expired here, because no product rule defines an expiry. It
// flags the divergence for operators instead.
func InitReconcileWorker(repo bookingRepo.BookingRepository, gateway payment.Gateway, logger *zap.Logger) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisReconcileQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypePaymentReconcile, handleReconcileTask(repo, gateway, logger))

	// Start async worker with retry logic
	go func() {
		log.Println("[ReconcileWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[ReconcileWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[ReconcileWorker] max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleReconcileTask(repo bookingRepo.BookingRepository, gateway payment.Gateway, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.ReconcilePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("reconcile: invalid payload", zap.Error(err))
			return err
		}

		tx, err := repo.GetTransactionByBookingID(ctx, p.BookingID)
		if err != nil {
			logger.Error("reconcile: transaction lookup failed",
				zap.Int64("bookingID", p.BookingID), zap.Error(err))
			return err
		}
		if tx.Status != models.TxPending || tx.GatewayOrderID == "" {
			// Payment settled or never reached the gateway; nothing to flag.
			return nil
		}

		detail, err := gateway.GetOrder(ctx, tx.GatewayOrderID)
		if err != nil {
			logger.Error("reconcile: gateway order lookup failed",
				zap.String("orderID", tx.GatewayOrderID), zap.Error(err))
			return err
		}

		logger.Warn("payment still pending past reconcile window; flagging for operators",
			zap.Int64("bookingID", p.BookingID),
			zap.String("orderID", tx.GatewayOrderID),
			zap.String("gatewayStatus", detail.Status),
			zap.String("attemptID", p.AttemptID))
		return nil
	}
}
