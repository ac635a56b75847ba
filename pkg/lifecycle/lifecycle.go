// Package lifecycle coordinates startup hooks, shutdown hooks and readiness
// checks for long-running subsystems.
package lifecycle

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// Check tests whether a subsystem can serve. A nil error reports it ready.
type Check func(ctx context.Context) error

// Status is the result of Readiness.
type Status struct {
	Ready  bool              `json:"ready"`
	Checks map[string]string `json:"checks"`
}

// Coordinator runs startup hooks concurrently, tracks when they have all
// finished, and cancels its context to release shutdown hooks.
type Coordinator struct {
	ctx        context.Context
	cancel     context.CancelFunc
	startupWg  sync.WaitGroup
	shutdownWg sync.WaitGroup

	mu      sync.RWMutex
	started bool
	checks  map[string]Check
}

// New creates a Coordinator with a cancellable context.
func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		ctx:    ctx,
		cancel: cancel,
		checks: make(map[string]Check),
	}
}

// Context returns the coordinator's context, cancelled on shutdown.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup runs fn concurrently with the other startup hooks.
func (c *Coordinator) OnStartup(fn func()) {
	c.startupWg.Go(fn)
}

// OnShutdown runs fn concurrently. Hooks block on <-c.Context().Done()
// before cleaning up.
func (c *Coordinator) OnShutdown(fn func()) {
	c.shutdownWg.Go(fn)
}

// RegisterCheck adds a named readiness check, replacing any check already
// registered under name.
func (c *Coordinator) RegisterCheck(name string, fn Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = fn
}

// Ready reports whether every startup hook has completed.
func (c *Coordinator) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.started
}

// Readiness runs every registered check. The coordinator is ready once
// startup has completed and no check fails.
func (c *Coordinator) Readiness(ctx context.Context) Status {
	c.mu.RLock()
	started := c.started
	checks := maps.Clone(c.checks)
	c.mu.RUnlock()

	status := Status{Ready: started, Checks: make(map[string]string, len(checks)+1)}
	if started {
		status.Checks["startup"] = "ok"
	} else {
		status.Checks["startup"] = "pending"
	}

	for _, name := range slices.Sorted(maps.Keys(checks)) {
		if err := checks[name](ctx); err != nil {
			status.Ready = false
			status.Checks[name] = err.Error()
			continue
		}
		status.Checks[name] = "ok"
	}
	return status
}

// WaitForStartup blocks until every startup hook has returned.
func (c *Coordinator) WaitForStartup() {
	c.startupWg.Wait()
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
}

// Shutdown cancels the context and waits up to timeout for the shutdown
// hooks to return.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.shutdownWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}
