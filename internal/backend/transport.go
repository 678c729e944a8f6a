package backend

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/toko-pos/internal/config"
	"github.com/noah-isme/toko-pos/internal/resilience"
)

// Target labels backend traffic in breaker and upstream metrics.
const Target = "pos-backend"

// NewHTTPClient assembles the traced, retrying, breaker-guarded transport used
// for every backend call.
func NewHTTPClient(cfg config.BackendConfig, log zerolog.Logger) resilience.HTTPClient {
	breaker := resilience.NewBreaker(cfg.BreakerMinRequests, cfg.BreakerFailureRatio, cfg.BreakerOpenFor).
		WithTarget(Target).
		WithLogger(log)
	return resilience.HTTPClient{
		Client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		Breaker:     breaker,
		Target:      Target,
		BaseBackoff: 100 * time.Millisecond,
		MaxAttempts: cfg.MaxAttempts,
		Jitter:      0.2,
		Timeout:     cfg.Timeout,
	}
}
