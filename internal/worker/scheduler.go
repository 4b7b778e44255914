package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"reminddo/internal/models"
)

// ExpiringTokenLister finds users whose Google access token expires before a deadline.
type ExpiringTokenLister interface {
	ExpiringGoogleTokens(ctx context.Context, before time.Time) ([]models.User, error)
}

// Scheduler periodically enqueues token refresh jobs for users about to lose calendar access.
type Scheduler struct {
	cron   *cron.Cron
	queue  *JobQueue
	users  ExpiringTokenLister
	window time.Duration
	logger *zap.Logger
	now    func() time.Time
}

func NewScheduler(queue *JobQueue, users ExpiringTokenLister, window time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		queue:  queue,
		users:  users,
		window: window,
		logger: logger.With(zap.String("component", "scheduler")),
		now:    time.Now,
	}
}

// ScheduleTokenRefresh registers the refresh sweep under a cron spec such as "@every 15m".
func (s *Scheduler) ScheduleTokenRefresh(spec string) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if n, err := s.EnqueueTokenRefreshes(ctx); err != nil {
			s.logger.Error("token refresh sweep failed", zap.Error(err))
		} else if n > 0 {
			s.logger.Info("token refresh jobs enqueued", zap.Int("count", n))
		}
	})
	if err != nil {
		return 0, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return id, nil
}

// EnqueueTokenRefreshes runs one sweep and returns the number of jobs enqueued.
func (s *Scheduler) EnqueueTokenRefreshes(ctx context.Context) (int, error) {
	users, err := s.users.ExpiringGoogleTokens(ctx, s.now().Add(s.window))
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, user := range users {
		payload := map[string]interface{}{"user_id": user.ID.String()}
		if _, err := s.queue.Enqueue(ctx, QueueCalendar, JobTypeGoogleTokenRefresh, payload); err != nil {
			return enqueued, fmt.Errorf("enqueue refresh for %s: %w", user.ID, err)
		}
		enqueued++
	}
	return enqueued, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
