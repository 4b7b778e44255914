package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"reminddo/internal/ai"
	"reminddo/internal/cache"
	"reminddo/internal/calendar"
	"reminddo/internal/config"
	"reminddo/internal/database"
	"reminddo/internal/handlers"
	"reminddo/internal/middleware"
	"reminddo/internal/monitoring"
	"reminddo/internal/repositories"
	"reminddo/internal/services"
	"reminddo/internal/worker"
)

const cacheSweepInterval = time.Minute

// application owns every long-lived component of a running server.
type application struct {
	cfg         *config.Config
	logger      *zap.Logger
	pool        *database.DatabasePool
	redis       *redis.Client
	cache       *cache.MultiLevelCache
	rateLimiter *middleware.RateLimiter
	worker      *worker.Worker
	scheduler   *worker.Scheduler
	router      *gin.Engine

	stopSweep chan struct{}
}

func newApplication(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*application, error) {
	app := &application{cfg: cfg, logger: logger, stopSweep: make(chan struct{})}

	pool, err := database.NewDatabasePool(database.PoolConfigFromConfig(cfg))
	if err != nil {
		return nil, err
	}
	app.pool = pool
	if err := pool.Migrate(); err != nil {
		app.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		app.redis = cache.NewRedisClient(cache.CacheConfigFromConfig(cfg))
		redisCache = cache.NewRedisCache(app.redis)
	}
	app.cache = cache.NewMultiLevelCache(redisCache)

	store := repositories.NewStore(pool.DB)
	users := repositories.NewUserRepository(pool.DB)
	moods := repositories.NewMoodRepository(pool.DB)

	authService := services.NewAuthService(users, cfg.Auth)
	taskService := services.NewCachedTaskService(services.NewTaskService(store, logger), app.cache, logger)
	moodService := services.NewMoodService(moods)

	planner, err := ai.NewPlanner(ctx, cfg.AI, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("ai planner: %w", err)
	}

	var google services.GoogleCalendar
	if cfg.GoogleEnabled() {
		google = calendar.NewGoogleConnector(cfg.Google)
	} else {
		logger.Info("google calendar disabled: no oauth client configured")
	}
	var sealer *calendar.Sealer
	if cfg.ICloud.EncryptionKey != "" {
		if sealer, err = calendar.NewSealer(cfg.ICloud.EncryptionKey); err != nil {
			app.Close()
			return nil, err
		}
	}
	calendarService := services.NewCalendarService(users, google, sealer, cfg.Auth.JWTSecret, cfg.Auth.Issuer, logger)

	if cfg.RateLimit.Enabled {
		app.rateLimiter = middleware.NewRateLimiter(cfg.RateLimit)
	}

	if app.redis != nil {
		app.worker = worker.NewWorker(worker.WorkerConfig{
			RedisClient:  app.redis,
			Logger:       logger,
			PollInterval: cfg.Worker.PollInterval,
			Queues:       cfg.Worker.Queues,
		})
		app.worker.RegisterHandler(worker.JobTypeGoogleTokenRefresh, worker.GoogleTokenRefreshHandler(calendarService))

		if google != nil {
			app.scheduler = worker.NewScheduler(worker.NewJobQueue(app.redis), users, cfg.Worker.RefreshWindow, logger)
			if _, err := app.scheduler.ScheduleTokenRefresh(cfg.Worker.RefreshSchedule); err != nil {
				app.Close()
				return nil, err
			}
		}
	}

	app.registerHealth()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	app.router = handlers.NewRouter(handlers.RouterDeps{
		Auth:           authService,
		Register:       services.NewRegisterService(users, cfg.Auth.BCryptCost),
		Users:          services.NewUserService(users),
		Tasks:          taskService,
		Moods:          moodService,
		Dashboard:      services.NewDashboardService(taskService, moodService),
		Planner:        planner,
		Calendar:       calendarService,
		RateLimiter:    app.rateLimiter,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		FrontendURL:    cfg.Server.FrontendURL,
		Logger:         logger,
	})
	return app, nil
}

func (a *application) registerHealth() {
	monitoring.RegisterHealthCheck("database", func(ctx context.Context) error {
		return a.pool.Health()
	})
	if a.redis != nil {
		monitoring.RegisterHealthCheck("redis", func(ctx context.Context) error {
			return a.cache.Health()
		})
	}

	cacheMetrics := a.cache.Metrics()
	monitoring.RegisterGaugeFunc("cache_hit_rate", "Task list cache hit rate.", cacheMetrics.HitRate)
	monitoring.RegisterCounterFunc("cache_l1_hits_total", "Task list lookups served from process memory.", func() float64 {
		return float64(cacheMetrics.Snapshot().L1Hits)
	})
	monitoring.RegisterCounterFunc("cache_l2_hits_total", "Task list lookups served from Redis.", func() float64 {
		return float64(cacheMetrics.Snapshot().L2Hits)
	})
	monitoring.RegisterCounterFunc("cache_misses_total", "Task list lookups that reached the database.", func() float64 {
		return float64(cacheMetrics.Snapshot().Misses)
	})
	monitoring.RegisterCounterFunc("cache_errors_total", "Task list cache operations that failed.", func() float64 {
		return float64(cacheMetrics.Snapshot().Errors)
	})
	monitoring.RegisterGaugeFunc("db_open_connections", "Open database connections.", func() float64 {
		if n, ok := a.pool.Stats()["open_connections"].(int); ok {
			return float64(n)
		}
		return 0
	})
	if a.redis != nil {
		queue := worker.NewJobQueue(a.redis)
		monitoring.RegisterGaugeFunc("calendar_queue_depth", "Pending calendar jobs.", func() float64 {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			n, err := queue.GetQueueSize(ctx, worker.QueueCalendar)
			if err != nil {
				return 0
			}
			return float64(n)
		})
	}
}

// startBackground launches the worker, scheduler, rate-limit sweeper and cache sweeper.
func (a *application) startBackground() {
	if a.worker != nil {
		a.worker.Start(a.cfg.Worker.Concurrency)
	}
	if a.scheduler != nil {
		a.scheduler.Start()
	}
	if a.rateLimiter != nil {
		go a.rateLimiter.Run()
	}
	go func() {
		ticker := time.NewTicker(cacheSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.cache.SweepLocal()
			case <-a.stopSweep:
				return
			}
		}
	}()
}

// Close stops background work and releases connections. It is safe to call on a partly built application.
func (a *application) Close() error {
	select {
	case <-a.stopSweep:
	default:
		close(a.stopSweep)
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.worker != nil {
		a.worker.Stop()
	}
	if a.rateLimiter != nil {
		a.rateLimiter.Stop()
	}

	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.pool != nil {
		errs = append(errs, a.pool.Close())
	}
	return errors.Join(errs...)
}
