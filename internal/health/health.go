// Package health reports whether the server can reach its database, over
// HTTP and the standard gRPC health protocol.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Pinger is anything that can verify its own connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker pings the database with a bounded timeout.
type Checker struct {
	db      Pinger
	timeout time.Duration
}

// NewChecker creates a checker.
func NewChecker(db Pinger, timeout time.Duration) *Checker {
	return &Checker{db: db, timeout: timeout}
}

// Check returns nil when the database answers within the timeout.
func (c *Checker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	return nil
}

// RegisterRoutes registers GET /health.
func (c *Checker) RegisterRoutes(r chi.Router) {
	r.Get("/health", c.ServeHTTP)
}

// ServeHTTP answers 200 when healthy and 503 otherwise.
func (c *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]string{"status": "ok", "database": "ok"}

	if err := c.Check(r.Context()); err != nil {
		slog.Warn("Health check failed", "error", err)
		status = http.StatusServiceUnavailable
		body = map[string]string{"status": "unavailable", "database": err.Error()}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
