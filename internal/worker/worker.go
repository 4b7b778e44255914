package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type JobType string

const (
	JobTypeGoogleTokenRefresh JobType = "google_token_refresh"
)

const (
	QueueDefault  = "default"
	QueueCalendar = "calendar"

	keyPrefix  = "reminddo:queue:"
	delayedKey = "reminddo:delayed"
	deadKey    = "reminddo:dead"
)

func queueKey(name string) string {
	return keyPrefix + name
}

type Job struct {
	ID        string                 `json:"id"`
	Type      JobType                `json:"type"`
	Queue     string                 `json:"queue"`
	Payload   map[string]interface{} `json:"payload"`
	Attempts  int                    `json:"attempts"`
	MaxTries  int                    `json:"max_tries"`
	CreatedAt time.Time              `json:"created_at"`
	ProcessAt time.Time              `json:"process_at"`
}

// PayloadString returns a string field of the payload, or "" when absent.
func (j *Job) PayloadString(key string) string {
	if v, ok := j.Payload[key].(string); ok {
		return v
	}
	return ""
}

type JobHandler func(ctx context.Context, job *Job) error

// ErrPermanent marks a handler failure that must not be retried.
var ErrPermanent = errors.New("permanent job failure")

type Worker struct {
	client       *redis.Client
	logger       *zap.Logger
	handlers     map[JobType]JobHandler
	queues       []string
	pollInterval time.Duration
	jobTimeout   time.Duration
	retryBase    time.Duration
	mu           sync.RWMutex
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

type WorkerConfig struct {
	RedisClient  *redis.Client
	Logger       *zap.Logger
	PollInterval time.Duration
	JobTimeout   time.Duration
	RetryBase    time.Duration
	Queues       []string
}

func NewWorker(config WorkerConfig) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 30 * time.Second
	}
	if config.RetryBase <= 0 {
		config.RetryBase = time.Minute
	}
	if len(config.Queues) == 0 {
		config.Queues = []string{QueueDefault}
	}

	keys := make([]string, len(config.Queues))
	for i, q := range config.Queues {
		keys[i] = queueKey(q)
	}

	return &Worker{
		client:       config.RedisClient,
		logger:       logger.With(zap.String("component", "worker")),
		handlers:     make(map[JobType]JobHandler),
		queues:       keys,
		pollInterval: config.PollInterval,
		jobTimeout:   config.JobTimeout,
		retryBase:    config.RetryBase,
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (w *Worker) RegisterHandler(jobType JobType, handler JobHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = handler
}

// Start launches concurrency consumers plus one goroutine promoting due delayed jobs.
func (w *Worker) Start(concurrency int) {
	if concurrency <= 0 {
		concurrency = 1
	}
	w.logger.Info("starting worker", zap.Int("concurrency", concurrency), zap.Strings("queues", w.queues))

	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop()
	}

	w.wg.Add(1)
	go w.promoteLoop()
}

func (w *Worker) Stop() {
	w.logger.Info("stopping worker")
	w.cancel()
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

func (w *Worker) workerLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			if err := w.processNextJob(); err != nil {
				if w.ctx.Err() != nil {
					return
				}
				w.logger.Error("error processing job", zap.Error(err))
				select {
				case <-w.ctx.Done():
					return
				case <-time.After(time.Second):
				}
			}
		}
	}
}

func (w *Worker) promoteLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if _, err := PromoteDue(w.ctx, w.client, time.Now()); err != nil && w.ctx.Err() == nil {
				w.logger.Error("failed to promote delayed jobs", zap.Error(err))
			}
		}
	}
}

func (w *Worker) processNextJob() error {
	result, err := w.client.BLPop(w.ctx, w.pollInterval, w.queues...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("failed to pop job: %w", err)
	}

	if len(result) < 2 {
		return fmt.Errorf("invalid job result")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return w.executeJob(&job)
}

func (w *Worker) executeJob(job *Job) error {
	w.mu.RLock()
	handler, exists := w.handlers[job.Type]
	w.mu.RUnlock()

	logger := w.logger.With(zap.String("job_id", job.ID), zap.String("job_type", string(job.Type)))

	if !exists {
		logger.Warn("no handler registered for job type")
		return w.moveToDeadQueue(job, fmt.Errorf("no handler registered for job type: %s", job.Type))
	}

	ctx, cancel := context.WithTimeout(w.ctx, w.jobTimeout)
	defer cancel()

	err := handler(ctx, job)
	if err == nil {
		logger.Debug("job completed")
		return nil
	}

	job.Attempts++
	if job.Attempts < job.MaxTries && !errors.Is(err, ErrPermanent) {
		logger.Warn("job failed, retrying",
			zap.Int("attempt", job.Attempts),
			zap.Int("max_tries", job.MaxTries),
			zap.Error(err))
		return w.retryJob(job)
	}

	logger.Error("job failed permanently", zap.Int("attempts", job.Attempts), zap.Error(err))
	return w.moveToDeadQueue(job, err)
}

func (w *Worker) retryJob(job *Job) error {
	delay := time.Duration(1<<(job.Attempts-1)) * w.retryBase
	job.ProcessAt = time.Now().Add(delay)
	return schedule(w.ctx, w.client, job)
}

func (w *Worker) moveToDeadQueue(job *Job, jobErr error) error {
	deadJob := map[string]interface{}{
		"original_job": job,
		"error":        jobErr.Error(),
		"failed_at":    time.Now(),
	}

	deadJobData, err := json.Marshal(deadJob)
	if err != nil {
		return fmt.Errorf("failed to marshal dead job: %w", err)
	}

	return w.client.RPush(w.ctx, deadKey, deadJobData).Err()
}

// schedule pushes the job onto its queue, or parks it in the delayed set until ProcessAt.
func schedule(ctx context.Context, client *redis.Client, job *Job) error {
	jobData, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if job.ProcessAt.After(time.Now()) {
		return client.ZAdd(ctx, delayedKey, redis.Z{
			Score:  float64(job.ProcessAt.UnixMilli()),
			Member: jobData,
		}).Err()
	}
	return client.RPush(ctx, queueKey(job.Queue), jobData).Err()
}

// PromoteDue moves delayed jobs whose time has come onto their queues.
func PromoteDue(ctx context.Context, client *redis.Client, now time.Time) (int, error) {
	members, err := client.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read delayed jobs: %w", err)
	}

	promoted := 0
	for _, member := range members {
		removed, err := client.ZRem(ctx, delayedKey, member).Result()
		if err != nil {
			return promoted, err
		}
		// Another worker already claimed it.
		if removed == 0 {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(member), &job); err != nil {
			return promoted, fmt.Errorf("failed to unmarshal delayed job: %w", err)
		}
		if err := client.RPush(ctx, queueKey(job.Queue), member).Err(); err != nil {
			return promoted, err
		}
		promoted++
	}
	return promoted, nil
}

type JobQueue struct {
	client *redis.Client
}

func NewJobQueue(client *redis.Client) *JobQueue {
	return &JobQueue{client: client}
}

func (q *JobQueue) Enqueue(ctx context.Context, queue string, jobType JobType, payload map[string]interface{}) (*Job, error) {
	return q.EnqueueAt(ctx, queue, jobType, payload, time.Now())
}

func (q *JobQueue) EnqueueAt(ctx context.Context, queue string, jobType JobType, payload map[string]interface{}, processAt time.Time) (*Job, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}

	job := &Job{
		ID:        id.String(),
		Type:      jobType,
		Queue:     queue,
		Payload:   payload,
		Attempts:  0,
		MaxTries:  3,
		CreatedAt: time.Now(),
		ProcessAt: processAt,
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := schedule(ctx, q.client, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (q *JobQueue) GetQueueSize(ctx context.Context, queue string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return q.client.LLen(ctx, queueKey(queue)).Result()
}

func (q *JobQueue) DelayedSize(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, delayedKey).Result()
}

func (q *JobQueue) DeadSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, deadKey).Result()
}
