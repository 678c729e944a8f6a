// Package health serves the liveness and readiness probes.
package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-pos/internal/common"
)

var draining atomic.Bool

// SetReady flips readiness. main clears it when shutdown starts so the load
// balancer stops routing new sales to this instance.
func SetReady(ready bool) { draining.Store(!ready) }

// Pinger is one probed dependency.
type Pinger func(ctx context.Context) error

// Handler exposes the probes.
type Handler struct {
	Checks  map[string]Pinger
	Timeout time.Duration
}

// Routes mounts /live and /ready.
func (h Handler) Routes(r chi.Router) {
	r.Get("/live", h.Live)
	r.Get("/ready", h.Ready)
}

// Live always answers ok while the process serves requests.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready probes every dependency and answers 503 if any fails.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{}
	healthy := !draining.Load()
	if !healthy {
		status["server"] = "draining"
	}
	for name, ping := range h.Checks {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
		err := ping(ctx)
		cancel()
		if err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	common.JSON(w, code, status)
}

func (h Handler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return 500 * time.Millisecond
	}
	return h.Timeout
}
