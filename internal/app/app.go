// Package app wires configuration, storage, services and the HTTP router of
// the grid server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"gridbase/internal/api"
	"gridbase/internal/config"
	internaldb "gridbase/internal/db"
	"gridbase/internal/db/repository"
	"gridbase/internal/domain"
	"gridbase/internal/grid"
	"gridbase/internal/metrics"
	"gridbase/internal/middleware"
	"gridbase/internal/service/datasets"
	"gridbase/internal/service/records"
)

// Deps holds the external dependencies that main() must provide.
type Deps struct {
	Cfg    *config.Config
	Pools  *internaldb.Pools
	Logger *slog.Logger

	// Validator overrides the token validator derived from Cfg.Auth.
	Validator middleware.TokenValidator
	// Policy overrides the default allow-all field access policy.
	Policy domain.FieldAccessPolicy
	// Registry receives the Prometheus collectors. Nil creates a new one.
	Registry *prometheus.Registry
}

// Services groups the services behind the HTTP handler.
type Services struct {
	Datasets *datasets.Service
	Records  *records.Service
}

// App is the fully-wired application.
type App struct {
	Services    Services
	Metrics     *metrics.Metrics
	RateLimiter *middleware.RateLimiter

	cfg       *config.Config
	pools     *internaldb.Pools
	logger    *slog.Logger
	validator middleware.TokenValidator
}

// New wires repositories, services and middleware from deps.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	m := metrics.New(reg)

	datasetRepo := repository.NewDatasetRepo(deps.Pools)
	recordRepo := repository.NewRecordRepo(deps.Pools)

	resolver := grid.NewResolver(grid.Options{
		Strict:       cfg.Grid.StrictFields,
		DefaultLimit: cfg.Grid.DefaultLimit,
		MaxLimit:     cfg.Grid.MaxLimit,
	})

	opts := []records.Option{records.WithMetrics(m)}
	if deps.Policy != nil {
		opts = append(opts, records.WithFieldAccessPolicy(deps.Policy))
	}

	validator := deps.Validator
	if validator == nil && cfg.Auth.Enabled() {
		v, err := newValidator(ctx, cfg.Auth)
		if err != nil {
			return nil, err
		}
		validator = v
	}

	return &App{
		Services: Services{
			Datasets: datasets.NewService(datasetRepo, deps.Logger, m),
			Records:  records.NewService(datasetRepo, recordRepo, resolver, deps.Logger, opts...),
		},
		Metrics: m,
		RateLimiter: middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		}),
		cfg:       cfg,
		pools:     deps.Pools,
		logger:    deps.Logger,
		validator: validator,
	}, nil
}

func newValidator(ctx context.Context, auth config.AuthConfig) (middleware.TokenValidator, error) {
	if auth.OIDCEnabled() {
		v, err := middleware.NewOIDCValidator(ctx, auth.IssuerURL, auth.Audience)
		if err != nil {
			return nil, fmt.Errorf("configure OIDC: %w", err)
		}
		return v, nil
	}
	return middleware.NewSharedSecretValidator(auth.JWTSecret, auth.Audience), nil
}

// Router builds the HTTP handler: public health and metrics endpoints plus
// the authenticated dataset and grid API.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(a.logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(a.Metrics.Middleware)

	r.Get("/healthz", api.Health(a.pools.Write))
	r.Handle("/metrics", a.Metrics.Handler())

	handler := api.NewHandler(a.Services.Datasets, a.Services.Records, a.logger)
	r.Group(func(r chi.Router) {
		r.Use(a.RateLimiter.Handler)
		r.Use(chimw.Timeout(30 * time.Second))
		if a.validator != nil {
			r.Use(middleware.Authenticate(a.validator, a.logger))
		}
		handler.Mount(r)
	})
	return r
}

// RunBackground runs the maintenance loops until ctx is done.
func (a *App) RunBackground(ctx context.Context) error {
	a.RateLimiter.Run(ctx, 5*time.Minute)
	return nil
}
