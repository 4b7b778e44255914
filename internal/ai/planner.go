package ai

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"reminddo/internal/breaker"
	"reminddo/internal/config"
	"reminddo/internal/monitoring"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// NewPlanner prefers Gemini when a Gemini key is configured and falls back to OpenAI.
// The result is wrapped in a circuit breaker.
func NewPlanner(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (Planner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		inner    Planner
		provider string
	)
	if cfg.GeminiKey != "" {
		g, err := NewGeminiPlanner(ctx, GeminiConfig{
			APIKey:  cfg.GeminiKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.Timeout,
			AppName: cfg.AppName,
		}, logger)
		if err != nil {
			return nil, err
		}
		inner, provider = g, ProviderGemini
	} else {
		inner = NewOpenAIPlanner(OpenAIConfig{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.Timeout,
			AppName: cfg.AppName,
		}, logger)
		provider = ProviderOpenAI
	}

	logger.Info("ai planner configured", zap.String("provider", provider))
	return NewGuardedPlanner(inner, provider, breaker.DefaultConfig("ai-"+provider), logger), nil
}

// GuardedPlanner records metrics and stops calling a failing provider for a while.
type GuardedPlanner struct {
	inner    Planner
	provider string
	breaker  *breaker.Breaker
	logger   *zap.Logger
}

func NewGuardedPlanner(inner Planner, provider string, cfg breaker.Config, logger *zap.Logger) *GuardedPlanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.IsFailure = isUpstreamFailure
	cfg.OnStateChange = func(name string, from, to breaker.State) {
		logger.Warn("ai circuit breaker state changed",
			zap.String("breaker", name),
			zap.Stringer("from", from),
			zap.Stringer("to", to))
	}
	return &GuardedPlanner{
		inner:    inner,
		provider: provider,
		breaker:  breaker.New(cfg),
		logger:   logger,
	}
}

func (g *GuardedPlanner) GenerateDailyPlan(ctx context.Context, todoList string) (*Plan, error) {
	start := time.Now()

	var plan *Plan
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		plan, err = g.inner.GenerateDailyPlan(ctx, todoList)
		return err
	})
	if errors.Is(err, breaker.ErrOpen) {
		err = &Error{Message: "AI Service unavailable: temporarily disabled after repeated failures", Err: err}
	}

	monitoring.RecordPlannerRequest(g.provider, err)
	g.logger.Debug("ai plan generated",
		zap.String("provider", g.provider),
		zap.Duration("took", time.Since(start)),
		zap.Bool("ok", err == nil))

	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (g *GuardedPlanner) State() breaker.State {
	return g.breaker.State()
}

// isUpstreamFailure ignores configuration and parse errors, which say nothing about provider health.
func isUpstreamFailure(err error) bool {
	var aiErr *Error
	if errors.As(err, &aiErr) {
		if errors.Is(aiErr, ErrParse) {
			return false
		}
		return aiErr.Status != 0 || aiErr.Message == MsgInternalError
	}
	return true
}
