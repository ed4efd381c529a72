package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/bryanwahyu/sheetqa/internal/domain/documents"
)

// HealthChecker defines interface for health checking
type HealthChecker interface {
	Check(ctx context.Context) error
}

// StoreHealthChecker reports the content store healthy when it can be listed.
type StoreHealthChecker struct {
	Store documents.Store
}

func (s StoreHealthChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err := s.Store.List(ctx)
	return err
}

// HealthStatus represents the health status
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks"`
}

// CheckStatus represents individual check status
type CheckStatus struct {
	Status string `json:"status"`
}

// HealthHandler runs every checker; any failure turns the response into a 503.
// Failure details go to the log only.
func HealthHandler(log *slog.Logger, checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := HealthStatus{
			Status:    "healthy",
			Timestamp: time.Now(),
			Checks:    make(map[string]CheckStatus, len(checkers)),
		}

		for name, checker := range checkers {
			if err := checker.Check(ctx); err != nil {
				log.Error("health check failed", "check", name, "err", err)
				health.Status = "unhealthy"
				health.Checks[name] = CheckStatus{Status: "unhealthy"}
				continue
			}
			health.Checks[name] = CheckStatus{Status: "healthy"}
		}

		statusCode := http.StatusOK
		if health.Status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(health)
	}
}
