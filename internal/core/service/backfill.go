package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rl1809/food-order/internal/port"
)

const (
	BackfillResultSaved   = "saved"
	BackfillResultError   = "error"
	BackfillResultDropped = "dropped"
)

// Recorder receives operational counters. Implemented by the metrics package.
type Recorder interface {
	BackfillResult(result string)
	WebhookEvent(result string)
}

type nopRecorder struct{}

func (nopRecorder) BackfillResult(string) {}
func (nopRecorder) WebhookEvent(string)   {}

type BackfillTask struct {
	OrderID     string
	TotalAmount int64
}

// BackfillQueue persists computed totals in the background. Submissions never block
// the caller; a full or closed queue drops the task.
type BackfillQueue struct {
	orders   port.OrderRepository
	tasks    chan BackfillTask
	recorder Recorder
	logger   *slog.Logger
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewBackfillQueue(orders port.OrderRepository, queueSize int, recorder Recorder, logger *slog.Logger) *BackfillQueue {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &BackfillQueue{
		orders:   orders,
		tasks:    make(chan BackfillTask, queueSize),
		recorder: recorder,
		logger:   logger.With("component", "backfill"),
		timeout:  5 * time.Second,
	}
}

func (q *BackfillQueue) Start(workerCount int) {
	for i := 0; i < workerCount; i++ {
		q.wg.Add(1)
		go func(id int) {
			defer q.wg.Done()
			q.workerLoop(id)
		}(i)
	}
	q.logger.Info("started backfill workers", "workers", workerCount)
}

func (q *BackfillQueue) Submit(task BackfillTask) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.recorder.BackfillResult(BackfillResultDropped)
		return false
	}

	select {
	case q.tasks <- task:
		return true
	default:
		q.recorder.BackfillResult(BackfillResultDropped)
		q.logger.Warn("backfill queue full, dropping task", "order_id", task.OrderID)
		return false
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
func (q *BackfillQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	q.wg.Wait()
}

func (q *BackfillQueue) workerLoop(id int) {
	for task := range q.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)

		if err := q.orders.SetMissingTotal(ctx, task.OrderID, task.TotalAmount); err != nil {
			q.recorder.BackfillResult(BackfillResultError)
			q.logger.Error("failed to save calculated total",
				"worker", id, "order_id", task.OrderID, "error", err)
		} else {
			q.recorder.BackfillResult(BackfillResultSaved)
			q.logger.Debug("saved calculated total",
				"worker", id, "order_id", task.OrderID, "total_amount", task.TotalAmount)
		}

		cancel()
	}
}
