package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reminddo/internal/breaker"
	"reminddo/internal/config"
)

type stubPlanner struct {
	calls int
	plan  *Plan
	err   error
}

func (s *stubPlanner) GenerateDailyPlan(ctx context.Context, todoList string) (*Plan, error) {
	s.calls++
	return s.plan, s.err
}

func testBreakerConfig() breaker.Config {
	cfg := breaker.DefaultConfig("test")
	cfg.MaxFailures = 2
	cfg.Timeout = time.Hour
	return cfg
}

func TestGuardedPlanner_PassesThrough(t *testing.T) {
	stub := &stubPlanner{plan: &Plan{Message: "ok", Tasks: []PlannedTask{}}}
	g := NewGuardedPlanner(stub, ProviderOpenAI, testBreakerConfig(), nil)

	plan, err := g.GenerateDailyPlan(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "ok", plan.Message)
	assert.Equal(t, breaker.Closed, g.State())
}

func TestGuardedPlanner_OpensAfterUpstreamFailures(t *testing.T) {
	stub := &stubPlanner{err: unavailable(500, errors.New("down"))}
	g := NewGuardedPlanner(stub, ProviderOpenAI, testBreakerConfig(), nil)

	for i := 0; i < 2; i++ {
		_, err := g.GenerateDailyPlan(context.Background(), "x")
		require.Error(t, err)
	}
	assert.Equal(t, breaker.Open, g.State())

	_, err := g.GenerateDailyPlan(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, 2, stub.calls, "open breaker must not reach the provider")
	assert.True(t, errors.Is(err, breaker.ErrOpen))

	var aiErr *Error
	require.True(t, errors.As(err, &aiErr))
	assert.Contains(t, aiErr.Message, "AI Service unavailable")
}

func TestGuardedPlanner_IgnoresParseAndKeyErrors(t *testing.T) {
	stub := &stubPlanner{err: parseFailed(errors.New("bad json"))}
	g := NewGuardedPlanner(stub, ProviderGemini, testBreakerConfig(), nil)

	for i := 0; i < 3; i++ {
		_, _ = g.GenerateDailyPlan(context.Background(), "x")
	}
	assert.Equal(t, breaker.Closed, g.State())

	stub.err = missingKey("GEMINI_API_KEY")
	for i := 0; i < 3; i++ {
		_, _ = g.GenerateDailyPlan(context.Background(), "x")
	}
	assert.Equal(t, breaker.Closed, g.State())
}

func TestNewPlanner_Selection(t *testing.T) {
	p, err := NewPlanner(context.Background(), config.AIConfig{OpenAIKey: "sk"}, nil)
	require.NoError(t, err)
	g, ok := p.(*GuardedPlanner)
	require.True(t, ok)
	assert.Equal(t, ProviderOpenAI, g.provider)
	assert.IsType(t, &OpenAIPlanner{}, g.inner)

	p, err = NewPlanner(context.Background(), config.AIConfig{OpenAIKey: "sk", GeminiKey: "gm"}, nil)
	require.NoError(t, err)
	g = p.(*GuardedPlanner)
	assert.Equal(t, ProviderGemini, g.provider)
	assert.IsType(t, &GeminiPlanner{}, g.inner)
}
