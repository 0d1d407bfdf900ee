package router

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/aidashboard/dashboard-auth/internal/http/response"
)

const probeTimeout = 2 * time.Second

// Probe is one readiness dependency, such as the database or redis.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

type probeResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

func runProbes(ctx context.Context, probes []Probe) (bool, []probeResult) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	results := make([]probeResult, len(probes))
	var wg sync.WaitGroup
	for i, p := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := probeResult{Name: p.Name, Healthy: true}
			if err := p.Check(ctx); err != nil {
				res.Healthy = false
				res.Error = err.Error()
			}
			results[i] = res
		}()
	}
	wg.Wait()

	ready := true
	for _, res := range results {
		ready = ready && res.Healthy
	}
	return ready, results
}

func readyHandler(probes []Probe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ready, results := runProbes(r.Context(), probes)
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	}
}
