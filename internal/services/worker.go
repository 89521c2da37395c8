package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/indyforge/groupindustry/internal/config"
	"github.com/indyforge/groupindustry/pkg/logger"
)

// Worker processes async tasks from the queue
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor func(context.Context, *AutoDetectTask) error
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

// NewWorker creates a new worker instance
func NewWorker(cfg *config.RedisConfig) *Worker {
	if !cfg.Enabled {
		return nil
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Infof("[Worker] Error processing task %s: %v", task.Type(), err)
			}),
		},
	)

	return &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
	}
}

// SetProcessor sets the function to process auto-detect tasks
func (w *Worker) SetProcessor(processor func(context.Context, *AutoDetectTask) error) {
	w.processor = processor
}

// Start begins processing tasks
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.mux.HandleFunc(TaskTypeAutoDetect, w.handleAutoDetectTask)

	w.running = true
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		logger.Infof("[Worker] Starting async worker...")
		if err := w.server.Run(w.mux); err != nil {
			logger.Infof("[Worker] Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	logger.Infof("[Worker] Shutting down...")
	w.server.Shutdown()
	w.running = false
	w.wg.Wait()
	logger.Infof("[Worker] Shutdown complete")
}

func (w *Worker) handleAutoDetectTask(ctx context.Context, t *asynq.Task) error {
	var task AutoDetectTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		logger.Infof("[Worker] Failed to unmarshal task: %v", err)
		// A malformed payload never succeeds, don't retry it.
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	logger.Infof("[Worker] Processing auto-detect task: project_id=%d, member_id=%d, bom_item_id=%d, ref=%s",
		task.ProjectID, task.MemberID, task.BomItemID, task.ExternalRef)

	if w.processor == nil {
		logger.Infof("[Worker] Warning: no processor set")
		return nil
	}

	return w.processor(ctx, &task)
}

// AutoDetectProcessor credits a synchronized task through the ledger. A
// duplicate means the work was already credited and is treated as done.
func AutoDetectProcessor(ledger *ContributionLedger) func(context.Context, *AutoDetectTask) error {
	return func(ctx context.Context, task *AutoDetectTask) error {
		value := task.EstimatedValue
		_, err := ledger.SubmitAutoDetected(ctx, task.MemberID, &SubmitContributionRequest{
			BomItemID:      task.BomItemID,
			Type:           task.Type,
			Quantity:       task.Quantity,
			EstimatedValue: &value,
			Note:           autoDetectNote(task.ExternalRef),
		})
		if IsDuplicateContribution(err) {
			logger.Infof("[Worker] Task %s already credited, skipping", task.ExternalRef)
			return nil
		}
		if IsValidationError(err) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
}

func autoDetectNote(ref string) string {
	if ref == "" {
		return "auto-detected"
	}
	return "auto-detected from " + ref
}

// Global worker instance
var (
	globalWorker *Worker
	workerOnce   sync.Once
)

// InitWorker initializes the global worker
func InitWorker(cfg *config.RedisConfig) *Worker {
	workerOnce.Do(func() {
		globalWorker = NewWorker(cfg)
	})
	return globalWorker
}
