package health

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"dreamui/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Status represents the health status of a component
type Status string

const (
	// StatusUp indicates a component is working correctly
	StatusUp Status = "up"
	// StatusDown indicates a component is not working
	StatusDown Status = "down"
	// StatusDegraded indicates a component is working but with reduced functionality
	StatusDegraded Status = "degraded"
)

// Component represents a system component that can be health-checked
type Component struct {
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Description string    `json:"description,omitempty"`
	Error       string    `json:"error,omitempty"`
	Critical    bool      `json:"critical"`
	LastChecked time.Time `json:"last_checked"`
}

// Check represents a health check function
type Check func(ctx context.Context) (Status, string, error)

type registration struct {
	check    Check
	critical bool
}

// Checker manages health checks for the system
type Checker struct {
	checks      map[string]registration
	components  map[string]*Component
	checkPeriod time.Duration
	timeout     time.Duration
	mutex       sync.RWMutex
	log         *logger.Logger

	stop chan struct{}
	done chan struct{}
}

// NewChecker creates a new health checker
func NewChecker(log *logger.Logger, checkPeriod time.Duration) *Checker {
	if log == nil {
		log = logger.GetGlobal()
	}
	checker := &Checker{
		checks:      make(map[string]registration),
		components:  make(map[string]*Component),
		checkPeriod: checkPeriod,
		timeout:     5 * time.Second,
		log:         log.WithComponent("health"),
	}

	// Register built-in checks
	checker.RegisterCheck("self", false, func(context.Context) (Status, string, error) {
		return StatusUp, "Health checker is running", nil
	})

	return checker
}

// RegisterCheck registers a new health check. A critical component that is
// down makes the whole system report unhealthy.
func (c *Checker) RegisterCheck(name string, critical bool, check Check) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.checks[name] = registration{check: check, critical: critical}
	c.components[name] = &Component{
		Name:        name,
		Status:      StatusDown,
		Description: "Not checked yet",
		Critical:    critical,
	}
}

// RunChecks executes all registered health checks
func (c *Checker) RunChecks(ctx context.Context) {
	c.mutex.RLock()
	regs := make(map[string]registration, len(c.checks))
	for name, reg := range c.checks {
		regs[name] = reg
	}
	c.mutex.RUnlock()

	// Checks may block on the network, so they run without the lock held
	for name, reg := range regs {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		status, description, err := reg.check(checkCtx)
		cancel()

		c.mutex.Lock()
		component := c.components[name]
		component.Status = status
		component.Description = description
		component.LastChecked = time.Now()
		if err != nil {
			component.Error = err.Error()
		} else {
			component.Error = ""
		}
		c.mutex.Unlock()

		if err != nil {
			c.log.Warn("Health check failed",
				"component", name,
				"status", string(status),
				"error", err.Error(),
			)
		} else {
			c.log.Debug("Health check completed",
				"component", name,
				"status", string(status),
			)
		}
	}
}

// Start begins periodic health checks until Stop is called
func (c *Checker) Start() {
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			select {
			case <-c.stop:
				cancel()
			case <-ctx.Done():
			}
		}()

		// Run checks immediately at startup
		c.RunChecks(ctx)

		ticker := time.NewTicker(c.checkPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.RunChecks(ctx)
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop ends periodic checks and waits for the running pass to finish
func (c *Checker) Stop() {
	if c.stop == nil {
		return
	}
	close(c.stop)
	<-c.done
	c.stop = nil
}

// GetStatus returns the current health status
func (c *Checker) GetStatus() map[string]*Component {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	// Create a copy to avoid race conditions
	result := make(map[string]*Component, len(c.components))
	for k, v := range c.components {
		componentCopy := *v
		result[k] = &componentCopy
	}

	return result
}

// IsSystemHealthy returns true if all critical components are up
func (c *Checker) IsSystemHealthy() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	for _, component := range c.components {
		if component.Critical && component.Status == StatusDown {
			return false
		}
	}
	return true
}

// overall folds component states into one word for the response body
func (c *Checker) overall() string {
	if !c.IsSystemHealthy() {
		return string(StatusDown)
	}
	for _, component := range c.GetStatus() {
		if component.Status != StatusUp {
			return string(StatusDegraded)
		}
	}
	return "ok"
}

// Handler returns a gin handler reporting component health. Critical failures answer 503.
func (c *Checker) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		code := http.StatusOK
		if !c.IsSystemHealthy() {
			code = http.StatusServiceUnavailable
		}
		ctx.JSON(code, gin.H{
			"status":     c.overall(),
			"timestamp":  time.Now(),
			"components": c.GetStatus(),
		})
	}
}

// RegisterDirectoryCheck reports whether dir exists or can be created
func (c *Checker) RegisterDirectoryCheck(name, dir string) {
	c.RegisterCheck(name, true, func(context.Context) (Status, string, error) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return StatusDown, "Directory is not usable", err
		}
		info, err := os.Stat(dir)
		if err != nil {
			return StatusDown, "Directory is not readable", err
		}
		if !info.IsDir() {
			return StatusDown, "Path is not a directory", fmt.Errorf("%s is not a directory", dir)
		}
		return StatusUp, dir, nil
	})
}

// RegisterPingCheck registers a dependency probe. A failing probe marks the
// component degraded, or down when critical is set.
func (c *Checker) RegisterPingCheck(name string, critical bool, ping func(ctx context.Context) error) {
	c.RegisterCheck(name, critical, func(ctx context.Context) (Status, string, error) {
		start := time.Now()
		if err := ping(ctx); err != nil {
			if critical {
				return StatusDown, "Dependency is unreachable", err
			}
			return StatusDegraded, "Dependency is unreachable", err
		}
		return StatusUp, fmt.Sprintf("Responding (latency: %s)", time.Since(start).Round(time.Millisecond)), nil
	})
}
