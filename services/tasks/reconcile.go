package tasks

import (
	"encoding/json"
	"time"

	"snapfix/config"
	"snapfix/models"

	"github.com/hibiken/asynq"
)

const TypePaymentReconcile = "payment:reconcile"

// NewReconcileTask builds the deferred pending-payment check task.
func NewReconcileTask(payload models.ReconcilePayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypePaymentReconcile, b)
	opts := []asynq.Option{asynq.ProcessAt(fireAt)}

	return task, opts, nil
}

// AsynqReconcileScheduler enqueues reconcile tasks on the shared Redis
// queue.
type AsynqReconcileScheduler struct {
	client *asynq.Client
}

func NewAsynqReconcileScheduler() *AsynqReconcileScheduler {
	return &AsynqReconcileScheduler{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     config.AppConfig.RedisAddr,
			Password: config.AppConfig.RedisPassword,
			DB:       config.AppConfig.RedisReconcileQueueDB,
		}),
	}
}

func (s *AsynqReconcileScheduler) ScheduleReconcile(payload models.ReconcilePayload, at time.Time) error {
	task, opts, err := NewReconcileTask(payload, at)
	if err != nil {
		return err
	}
	_, err = s.client.Enqueue(task, opts...)
	return err
}
