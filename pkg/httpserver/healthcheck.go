package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrymomot/storefront/pkg/logger"
)

// Check is a named readiness probe of one backend.
type Check struct {
	Name  string
	Probe func(context.Context) error
}

type healthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthCheckHandler answers 200 when every probe passes and 503 otherwise.
// Probes run concurrently, each bounded by timeout. Without checks it acts as
// a liveness probe.
func HealthCheckHandler(log *slog.Logger, timeout time.Duration, checks ...Check) http.HandlerFunc {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		report := healthReport{Status: "ok"}
		if len(checks) > 0 {
			report.Checks = make(map[string]string, len(checks))
		}

		var mu sync.Mutex
		var wg sync.WaitGroup
		for _, c := range checks {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ctx, cancel := context.WithTimeout(r.Context(), timeout)
				defer cancel()

				result := "ok"
				if err := c.Probe(ctx); err != nil {
					log.ErrorContext(r.Context(), "readiness check failed", slog.String("check", c.Name), logger.Error(err))
					result = "failed"
				}
				mu.Lock()
				report.Checks[c.Name] = result
				if result != "ok" {
					report.Status = "unavailable"
				}
				mu.Unlock()
			}()
		}
		wg.Wait()

		status := http.StatusOK
		if report.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(report)
	}
}
