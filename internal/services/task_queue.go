package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/indyforge/groupindustry/internal/config"
	"github.com/indyforge/groupindustry/pkg/logger"
)

const (
	TaskTypeAutoDetect = "contribution:auto_detect"
)

// AutoDetectTask is completed work observed by external synchronization
// (industry jobs, asset transfers) that should be credited to a member.
type AutoDetectTask struct {
	ProjectID      uint    `json:"project_id"`
	MemberID       uint    `json:"member_id"`
	BomItemID      uint    `json:"bom_item_id"`
	Type           string  `json:"type"`
	Quantity       int64   `json:"quantity"`
	EstimatedValue float64 `json:"estimated_value"`
	ExternalRef    string  `json:"external_ref"` // e.g. industry job id; dedups enqueues
}

// TaskQueue defines the interface for auto-detected contribution processing
type TaskQueue interface {
	// Enqueue adds a task to the queue
	Enqueue(task *AutoDetectTask) error
	// IsAsync returns true if queue processes tasks asynchronously
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

// Global task queue instance
var (
	globalTaskQueue TaskQueue
	taskQueueOnce   sync.Once
)

// InitTaskQueue initializes the global task queue based on config
func InitTaskQueue(cfg *config.Config) TaskQueue {
	taskQueueOnce.Do(func() {
		if cfg.Redis.Enabled {
			queue, err := NewAsyncQueue(&cfg.Redis)
			if err != nil {
				logger.Infof("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
				globalTaskQueue = NewSyncQueue()
			} else {
				logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Redis.Addr)
				globalTaskQueue = queue
			}
		} else {
			logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
			globalTaskQueue = NewSyncQueue()
		}
	})
	return globalTaskQueue
}

// AsyncQueue implements TaskQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

// NewAsyncQueue creates a new Redis-based async queue
func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := asynq.NewClient(redisOpt)

	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

// Enqueue adds a task to the async queue. Tasks carrying the same external
// reference are only enqueued once.
func (q *AsyncQueue) Enqueue(task *AutoDetectTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	opts := []asynq.Option{
		asynq.Queue("default"),
		asynq.MaxRetry(3),
	}
	if task.ExternalRef != "" {
		opts = append(opts, asynq.TaskID(TaskTypeAutoDetect+":"+task.ExternalRef))
	}

	info, err := q.client.Enqueue(asynq.NewTask(TaskTypeAutoDetect, payload), opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		logger.Infof("[AsyncQueue] Task %s already enqueued, skipping", task.ExternalRef)
		return nil
	}
	if err != nil {
		return err
	}

	logger.Infof("[AsyncQueue] Task enqueued: id=%s, queue=%s", info.ID, info.Queue)
	return nil
}

// IsAsync returns true for async queue
func (q *AsyncQueue) IsAsync() bool {
	return true
}

// Close closes the async queue client
func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue implements TaskQueue with in-process processing (no Redis)
type SyncQueue struct {
	processor func(context.Context, *AutoDetectTask) error
	wg        sync.WaitGroup
}

// NewSyncQueue creates a new synchronous queue
func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

// SetProcessor sets the function to process tasks
func (q *SyncQueue) SetProcessor(processor func(context.Context, *AutoDetectTask) error) {
	q.processor = processor
}

// Enqueue processes the task in a background goroutine
func (q *SyncQueue) Enqueue(task *AutoDetectTask) error {
	if q.processor == nil {
		logger.Infof("[SyncQueue] Warning: no processor set, task will be dropped")
		return nil
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := q.processor(context.Background(), task); err != nil {
			logger.Infof("[SyncQueue] Task processing failed: %v", err)
		}
	}()

	return nil
}

// IsAsync returns false for sync queue
func (q *SyncQueue) IsAsync() bool {
	return false
}

// Close waits for in-flight tasks
func (q *SyncQueue) Close() error {
	q.wg.Wait()
	return nil
}
