package internal

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultHealthTimeout = 5 * time.Second
	defaultLivenessPath  = "/health/live"
	defaultReadinessPath = "/health/ready"

	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// CheckFunc reports whether a dependency is usable.
type CheckFunc func(ctx context.Context) error

// HealthOption configures the health endpoints.
type HealthOption func(*healthConfig)

// WithLivenessPath overrides the liveness endpoint path.
func WithLivenessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.livenessPath = path
		}
	}
}

// WithReadinessPath overrides the readiness endpoint path.
func WithReadinessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.readinessPath = path
		}
	}
}

// WithReadinessCheck adds a named check to the readiness endpoint.
func WithReadinessCheck(name string, fn CheckFunc) HealthOption {
	return func(c *healthConfig) {
		if fn != nil {
			c.checks[name] = fn
		}
	}
}

type healthConfig struct {
	checks        map[string]CheckFunc
	livenessPath  string
	readinessPath string
	timeout       time.Duration
}

type healthResponse struct {
	Checks map[string]healthCheck `json:"checks,omitempty"`
	Status string                 `json:"status"`
}

type healthCheck struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (h *healthConfig) Routes(r Router) {
	r.GET(h.livenessPath, h.live)
	r.GET(h.readinessPath, h.ready)
}

func (h *healthConfig) live(c Context) error {
	return c.JSON(http.StatusOK, &healthResponse{Status: statusHealthy})
}

func (h *healthConfig) ready(c Context) error {
	resp := h.run(c, c.Logger())
	status := http.StatusOK
	if resp.Status == statusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, resp)
}

// run executes all checks concurrently under one timeout.
func (h *healthConfig) run(ctx context.Context, log *slog.Logger) *healthResponse {
	if len(h.checks) == 0 {
		return &healthResponse{Status: statusHealthy}
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]healthCheck, len(h.checks))
		status  = statusHealthy
	)

	// Check failures are results, not group errors.
	var g errgroup.Group
	for name, check := range h.checks {
		g.Go(func() error {
			res := healthCheck{Status: statusHealthy}
			if err := check(ctx); err != nil {
				res = healthCheck{Status: statusUnhealthy, Error: err.Error()}
				log.WarnContext(ctx, "health check failed",
					slog.String("check", name),
					slog.String("error", err.Error()),
				)
			}

			mu.Lock()
			defer mu.Unlock()
			results[name] = res
			if res.Status == statusUnhealthy {
				status = statusUnhealthy
			}
			return nil
		})
	}
	_ = g.Wait()

	return &healthResponse{Status: status, Checks: results}
}
