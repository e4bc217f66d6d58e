package handler

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Check pings one dependency.
type Check func(ctx context.Context) error

// HealthHandler handles the health check endpoints.
type HealthHandler struct {
	checks map[string]Check
}

// NewHealthHandler creates a new HealthHandler. Nil checks are skipped.
func NewHealthHandler(checks map[string]Check) *HealthHandler {
	active := make(map[string]Check, len(checks))
	for name, c := range checks {
		if c != nil {
			active[name] = c
		}
	}
	return &HealthHandler{checks: active}
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Check handles GET /health. Dependencies are pinged in parallel.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := map[string]interface{}{"status": "ok"}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, check := range h.checks {
		wg.Add(1)
		go func(name string, check Check) {
			defer wg.Done()
			result := "ok"
			if err := check(ctx); err != nil {
				result = "error"
			}
			mu.Lock()
			status[name] = result
			if result != "ok" {
				status["status"] = "degraded"
			}
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()

	code := http.StatusOK
	if status["status"] == "degraded" {
		code = http.StatusServiceUnavailable
	}
	JSON(w, code, status)
}
