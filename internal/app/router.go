// Package app assembles the POS API from its parts.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pos/internal/auth"
	"github.com/noah-isme/toko-pos/internal/backend"
	"github.com/noah-isme/toko-pos/internal/cache"
	"github.com/noah-isme/toko-pos/internal/cart"
	"github.com/noah-isme/toko-pos/internal/catalog"
	"github.com/noah-isme/toko-pos/internal/checkout"
	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/config"
	"github.com/noah-isme/toko-pos/internal/health"
	"github.com/noah-isme/toko-pos/internal/lock"
	"github.com/noah-isme/toko-pos/internal/obs"
	"github.com/noah-isme/toko-pos/internal/ratelimit"
	"github.com/noah-isme/toko-pos/internal/receipt"
	"github.com/noah-isme/toko-pos/internal/report"
	"github.com/noah-isme/toko-pos/internal/resilience"
	"github.com/noah-isme/toko-pos/internal/security"
	"github.com/noah-isme/toko-pos/internal/session"
)

// Dependencies are the process-wide clients the API is built from.
type Dependencies struct {
	Config  *config.Config
	Log     zerolog.Logger
	Redis   *redis.Client
	Backend *backend.Client
	// Registry receives every collector and backs /metrics. Nil means the
	// Prometheus default registry.
	Registry *prometheus.Registry
	Now      func() time.Time
}

// Services are the domain services behind the router. main uses Catalog to
// warm the cache on boot.
type Services struct {
	Catalog  *catalog.Service
	Cart     *cart.Service
	Checkout *checkout.Service
	Reports  *report.Service
}

// NewServices wires the domain services.
func NewServices(d Dependencies) Services {
	cfg := d.Config
	catalogSvc := catalog.NewService(d.Backend,
		cache.NewRedis(d.Redis, cfg.CatalogCacheTTL, "pos:catalog:"),
		obs.Component(d.Log, "catalog"))
	editor := session.Editor{
		Store:   session.RedisStore{R: d.Redis, TTL: cfg.SessionTTL},
		Locker:  lock.Locker{R: d.Redis, Prefix: "pos:lock:"},
		LockTTL: cfg.EditLockTTL,
		Now:     d.Now,
	}
	return Services{
		Catalog: catalogSvc,
		Cart:    &cart.Service{Sessions: editor, Products: catalogSvc},
		Checkout: &checkout.Service{
			Sessions:  editor,
			Sales:     d.Backend,
			Catalog:   catalogSvc,
			Log:       obs.Component(d.Log, "checkout"),
			SubmitTTL: cfg.SubmitTTL,
			Now:       d.Now,
		},
		Reports: &report.Service{
			Sales:        d.Backend,
			ByCashier:    d.Backend,
			Location:     shopLocation(cfg.Shop.Timezone),
			Cache:        cache.NewRedis(d.Redis, cfg.ReportCacheTTL, "pos:"),
			DefaultDays:  cfg.ReportDefaultDays,
			MaxRangeDays: cfg.ReportMaxDays,
			Now:          d.Now,
		},
	}
}

// shopLocation falls back to UTC; NewRouter rejects a bad zone before serving.
func shopLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NewRouter builds the HTTP handler.
func NewRouter(d Dependencies, svc Services) (http.Handler, error) {
	cfg := d.Config
	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if d.Registry != nil {
		reg, gatherer = d.Registry, d.Registry
	}
	obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, reg)
	resilience.MustRegisterMetrics(reg)

	limiter, err := ratelimit.NewFixed(d.Redis, cfg.RateLimit, "pos:rl:")
	if err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	onLimitErr := func(err error) { d.Log.Warn().Err(err).Msg("rate_limit_unavailable") }
	perUser := ratelimit.Handler{Limiter: limiter, Key: ratelimit.ByUser, OnError: onLimitErr}
	checkoutLimit := ratelimit.Handler{
		Limiter: ratelimit.SlidingWindow{
			Client: d.Redis,
			Prefix: "pos:rl:checkout:",
			Window: cfg.CheckoutRateWindow,
			Max:    cfg.CheckoutRateMax,
			Now:    d.Now,
		},
		Key:     ratelimit.ByUser,
		OnError: onLimitErr,
	}
	idem := common.Idem{R: d.Redis, TTL: cfg.IdempotencyTTL}

	loc, err := time.LoadLocation(cfg.Shop.Timezone)
	if err != nil {
		return nil, fmt.Errorf("shop timezone: %w", err)
	}
	authMW := auth.Middleware{
		Verifier: auth.Verifier{
			Secret:    []byte(cfg.JWTSecret),
			Issuer:    cfg.JWTIssuer,
			Audience:  cfg.JWTAudience,
			ClockSkew: 30 * time.Second,
		},
		AccessCookie: cfg.AccessCookie,
	}
	csrf := security.CSRF{}
	if cfg.AccessCookie != "" {
		csrf.Cookie = cfg.CSRFCookie
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Obs.EnableTracing {
		r.Use(obs.Tracing("toko-pos"))
		r.Use(obs.RoutePattern)
	}
	if cfg.Obs.EnablePrometheus {
		r.Use(obs.HTTPObs{Metrics: obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), reg)}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Log}.Middleware)
	r.Use(security.Headers{HSTSMaxAge: cfg.HSTSMaxAge}.Middleware)
	r.Use(security.CORS(cfg.CORSAllowedOrigins))
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

	if cfg.Obs.EnablePrometheus {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/health", health.Handler{Checks: map[string]health.Pinger{
		"redis":   func(ctx context.Context) error { return d.Redis.Ping(ctx).Err() },
		"backend": d.Backend.Ping,
	}}.Routes)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(authMW.RequireAuth)
		v.Use(csrf.Middleware)
		v.Use(perUser.Middleware)

		catalog.NewHandler(svc.Catalog).Routes(v)
		(&cart.Handler{Svc: svc.Cart, Currency: cfg.CurrencyCode}).Routes(v)
		(&checkout.Handler{
			Svc:      svc.Checkout,
			Currency: cfg.CurrencyCode,
			Idem: func(next http.Handler) http.Handler {
				return checkoutLimit.Middleware(idem.Middleware(next))
			},
		}).Routes(v)
		(&receipt.Handler{
			Sales: d.Backend,
			Renderer: receipt.Renderer{
				Shop:     receipt.Shop{Name: cfg.Shop.Name, Address: cfg.Shop.Address, Phone: cfg.Shop.Phone},
				Currency: cfg.CurrencyCode,
				Location: loc,
			},
		}).Routes(v)
		(&report.Handler{Svc: svc.Reports}).Routes(v)
	})
	return r, nil
}
