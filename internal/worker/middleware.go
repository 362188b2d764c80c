package worker

import (
	"context"

	"github.com/contenthub/contenthub/internal/logger"
	"github.com/contenthub/contenthub/internal/metrics"
	"github.com/hibiken/asynq"
)

// LoggingMiddleware tags the request logger with the queue-assigned job
// identity before the handler runs.
func LoggingMiddleware() asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			log := logger.Default().With("task_type", task.Type())
			if id, ok := asynq.GetTaskID(ctx); ok {
				log = log.With("job_id", id)
			}
			if n, ok := asynq.GetRetryCount(ctx); ok && n > 0 {
				log = log.With("retry", n)
			}
			return next.ProcessTask(logger.WithLogger(ctx, log), task)
		})
	}
}

// MetricsMiddleware tracks the in-flight job gauge per queue.
func MetricsMiddleware() asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			queueName, _ := asynq.GetQueueName(ctx)
			metrics.WorkerPoolActiveJobs.WithLabelValues(queueName).Inc()
			defer metrics.WorkerPoolActiveJobs.WithLabelValues(queueName).Dec()
			return next.ProcessTask(ctx, task)
		})
	}
}
