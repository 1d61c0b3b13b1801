package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
	"github.com/custodia-labs/tripwise/internal/core/ports/driving"
	"github.com/custodia-labs/tripwise/internal/logger"
)

// DefaultPollInterval is the wait between backend health checks.
const DefaultPollInterval = 5 * time.Second

// Ensure ReadinessGate implements the interface.
var _ driving.ReadinessGate = (*ReadinessGate)(nil)

// ReadinessGate waits for the model backend and makes sure the configured
// models are installed.
//
// States move Unchecked -> WaitingForBackend -> CheckingModel ->
// PullingModel -> Ready. A failed pull ends in Degraded instead; the gate
// still lets generation run since the model may appear out-of-band.
type ReadinessGate struct {
	manager  driven.ModelManager
	models   []string
	interval time.Duration
	sleep    Sleeper

	// sem serialises Ensure.
	sem chan struct{}

	mu    sync.RWMutex
	state domain.ReadinessState
	err   error
}

// ReadinessOption configures the readiness gate.
type ReadinessOption func(*ReadinessGate)

// WithPollInterval sets the wait between health checks.
func WithPollInterval(d time.Duration) ReadinessOption {
	return func(g *ReadinessGate) {
		if d > 0 {
			g.interval = d
		}
	}
}

// WithReadinessSleeper replaces the wait used between health checks.
func WithReadinessSleeper(sleep Sleeper) ReadinessOption {
	return func(g *ReadinessGate) {
		if sleep != nil {
			g.sleep = sleep
		}
	}
}

// NewReadinessGate creates a gate requiring the given models. Blank and
// repeated names are ignored.
func NewReadinessGate(manager driven.ModelManager, models []string, opts ...ReadinessOption) *ReadinessGate {
	g := &ReadinessGate{
		manager:  manager,
		interval: DefaultPollInterval,
		sleep:    SleepContext,
		sem:      make(chan struct{}, 1),
		state:    domain.ReadinessUnchecked,
	}
	seen := make(map[string]bool)
	for _, m := range models {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		g.models = append(g.models, m)
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State returns the current state without blocking.
func (g *ReadinessGate) State() domain.ReadinessState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Err returns the error that moved the gate to Degraded, if any.
func (g *ReadinessGate) Err() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.err
}

// Ensure drives the gate until it settles. Waiting for the backend has no
// upper bound; only ctx ends it, leaving the gate unsettled so a later
// call resumes. Once settled, Ensure returns immediately.
func (g *ReadinessGate) Ensure(ctx context.Context) (domain.ReadinessState, error) {
	if st := g.State(); st.Settled() {
		return st, g.Err()
	}

	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return g.State(), ctx.Err()
	}
	defer func() { <-g.sem }()

	// Another caller may have finished while we waited.
	if st := g.State(); st.Settled() {
		return st, g.Err()
	}

	if err := g.run(ctx); err != nil {
		g.set(domain.ReadinessUnchecked, nil)
		return g.State(), err
	}
	return g.State(), g.Err()
}

func (g *ReadinessGate) run(ctx context.Context) error {
	// 1. Wait for the backend and list installed models
	var installed []string
	for {
		g.set(domain.ReadinessWaitingForBackend, nil)
		if err := g.manager.Ping(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Info("waiting for model backend: %v", err)
			if err := g.sleep(ctx, g.interval); err != nil {
				return err
			}
			continue
		}

		g.set(domain.ReadinessCheckingModel, nil)
		models, err := g.manager.ListModels(ctx)
		if err == nil {
			installed = models
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("listing installed models failed: %v", err)
		if err := g.sleep(ctx, g.interval); err != nil {
			return err
		}
	}

	// 2. Pull what is missing, once each
	var failures []string
	for _, model := range g.models {
		if ModelInstalled(installed, model) {
			logger.Debug("model %s is installed", model)
			continue
		}
		g.set(domain.ReadinessPullingModel, nil)
		logger.Info("pulling model %s, this may take a while", model)
		if err := g.manager.PullModel(ctx, model); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("pulling model %s failed: %v", model, err)
			failures = append(failures, fmt.Sprintf("%s: %v", model, err))
			continue
		}
		logger.Info("model %s pulled", model)
	}

	// 3. Settle
	if len(failures) > 0 {
		g.set(domain.ReadinessDegraded, fmt.Errorf("%w: %s", domain.ErrModelPullFailed, strings.Join(failures, "; ")))
		logger.Warn("model backend degraded; generation will be attempted anyway")
		return nil
	}
	g.set(domain.ReadinessReady, nil)
	logger.Info("model backend ready")
	return nil
}

func (g *ReadinessGate) set(state domain.ReadinessState, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != state {
		logger.Debug("readiness: %s -> %s", g.state, state)
	}
	g.state = state
	g.err = err
}

// ModelInstalled reports whether name is among the installed models. A
// name without a tag also matches its ":latest" variant.
func ModelInstalled(installed []string, name string) bool {
	for _, m := range installed {
		if m == name {
			return true
		}
		if !strings.Contains(name, ":") && m == name+":latest" {
			return true
		}
	}
	return false
}
