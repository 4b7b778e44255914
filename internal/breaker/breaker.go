// Package breaker fails calls to a flaky upstream fast after repeated errors.
package breaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// ErrOpen is returned without calling the upstream while the breaker is open.
var ErrOpen = errors.New("circuit breaker is open")

type Config struct {
	Name             string        `json:"name"`
	MaxFailures      int           `json:"max_failures"`
	Timeout          time.Duration `json:"timeout"`
	HalfOpenMaxCalls int           `json:"half_open_max_calls"`

	// IsFailure decides which errors count toward opening. Nil counts every error.
	IsFailure func(error) bool `json:"-"`
	// OnStateChange is called with the lock released.
	OnStateChange func(name string, from, to State) `json:"-"`
}

func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

type Breaker struct {
	mu       sync.Mutex
	cfg      Config
	state    State
	failures int
	inFlight int
	openedAt time.Time
	now      func() time.Time
}

func New(cfg Config) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// Execute runs fn unless the breaker is open. fn's error is returned unchanged.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn(ctx)
	b.after(err)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	var changed func()

	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.cfg.Timeout {
			b.mu.Unlock()
			return ErrOpen
		}
		changed = b.setState(HalfOpen)
		b.inFlight = 1
	case HalfOpen:
		if b.inFlight >= b.cfg.HalfOpenMaxCalls {
			b.mu.Unlock()
			return ErrOpen
		}
		b.inFlight++
	}

	b.mu.Unlock()
	if changed != nil {
		changed()
	}
	return nil
}

func (b *Breaker) after(err error) {
	failed := err != nil && (b.cfg.IsFailure == nil || b.cfg.IsFailure(err))

	b.mu.Lock()
	var changed func()

	switch b.state {
	case Closed:
		if failed {
			b.failures++
			if b.failures >= b.cfg.MaxFailures {
				changed = b.trip()
			}
		} else {
			b.failures = 0
		}
	case HalfOpen:
		b.inFlight--
		if failed {
			changed = b.trip()
		} else {
			b.failures = 0
			b.inFlight = 0
			changed = b.setState(Closed)
		}
	}

	b.mu.Unlock()
	if changed != nil {
		changed()
	}
}

func (b *Breaker) trip() func() {
	b.openedAt = b.now()
	b.inFlight = 0
	return b.setState(Open)
}

// setState must be called with mu held; the returned func fires the hook.
func (b *Breaker) setState(to State) func() {
	from := b.state
	b.state = to
	if from == to || b.cfg.OnStateChange == nil {
		return nil
	}
	hook, name := b.cfg.OnStateChange, b.cfg.Name
	return func() { hook(name, from, to) }
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Stats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	return map[string]interface{}{
		"name":            b.cfg.Name,
		"state":           b.state.String(),
		"failure_count":   b.failures,
		"max_failures":    b.cfg.MaxFailures,
		"timeout_seconds": b.cfg.Timeout.Seconds(),
	}
}
