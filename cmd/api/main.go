package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-dairy/internal/branch"
	"github.com/noah-isme/backend-dairy/internal/common"
	"github.com/noah-isme/backend-dairy/internal/config"
	"github.com/noah-isme/backend-dairy/internal/entry"
	"github.com/noah-isme/backend-dairy/internal/events"
	"github.com/noah-isme/backend-dairy/internal/farmer"
	"github.com/noah-isme/backend-dairy/internal/health"
	"github.com/noah-isme/backend-dairy/internal/notify"
	"github.com/noah-isme/backend-dairy/internal/obs"
	"github.com/noah-isme/backend-dairy/internal/product"
	"github.com/noah-isme/backend-dairy/internal/ratelimit"
	"github.com/noah-isme/backend-dairy/internal/rates"
	"github.com/noah-isme/backend-dairy/internal/repo"
	"github.com/noah-isme/backend-dairy/internal/report"
	"github.com/noah-isme/backend-dairy/internal/society"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "dairy")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "dairy-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	runMigrations(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "dairy-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	validate := validator.New()
	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	entriesRepo := repo.Entries{Pool: pool}
	ratesRepo := repo.Rates{Pool: pool}
	farmersRepo := repo.Farmers{Pool: pool}
	branchesRepo := repo.Branches{Pool: pool}
	productsRepo := repo.Products{Pool: pool}
	notificationsRepo := repo.Notifications{Pool: pool}
	settingsRepo := repo.SettingsStore{Pool: pool}

	var notifiers []events.Notifier
	notifiers = append(notifiers, events.LogNotifier{Logger: logger})
	if cfg.NotifyWebhookURL != "" {
		webhook, err := events.NewWebhookNotifier(cfg.NotifyWebhookURL, cfg.NotifyWebhookSecret)
		if err != nil {
			logger.Fatal().Err(err).Msg("configure webhook notifier")
		}
		notifiers = append(notifiers, webhook)
	}
	bus := &events.Bus{Store: notificationsRepo, Notifiers: notifiers}

	resolver := &rates.Resolver{Store: ratesRepo, R: redisClient, TTL: cfg.RateCacheTTL}
	ratesSvc := &rates.Service{Store: ratesRepo, Resolver: resolver, Bus: bus, Logger: logger}
	ratesHandler := &rates.Handler{Svc: ratesSvc, Validate: validate}

	entrySvc := &entry.Service{Store: entriesRepo, Resolver: resolver, Bus: bus, Logger: logger}
	entryHandler := &entry.Handler{Svc: entrySvc, Validate: validate}

	farmerSvc := &farmer.Service{Store: farmersRepo, Bus: bus, Logger: logger}
	farmerHandler := &farmer.Handler{Svc: farmerSvc, Validate: validate}

	branchHandler := &branch.Handler{Svc: &branch.Service{Store: branchesRepo}, Validate: validate}
	productHandler := &product.Handler{Svc: &product.Service{Store: productsRepo}, Validate: validate}

	reportSvc := &report.Service{
		Entries:      entriesRepo,
		Farmers:      farmersRepo,
		R:            redisClient,
		TTL:          cfg.ReportCacheTTL,
		DefaultRange: cfg.ReportDefaultRange,
		Currency:     cfg.CurrencySymbol,
	}
	reportHandler := &report.Handler{Svc: reportSvc}

	notifyHandler := &notify.Handler{Store: notificationsRepo}
	societyHandler := &society.Handler{Store: settingsRepo, Validate: validate}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	limiter, err := ratelimit.NewRedisLimiter(redisClient, cfg.RateLimitPerMinute)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(ratelimit.Middleware(limiter, func(err error) {
		logger.Warn().Err(err).Msg("rate limiter store")
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", true) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{db: pool, redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/branches", func(b chi.Router) {
			b.Get("/", branchHandler.List)
			b.Post("/", branchHandler.Create)
			b.Route("/{branchID}", func(child chi.Router) {
				child.Get("/", branchHandler.Get)
				child.Put("/", branchHandler.Update)
				child.Delete("/", branchHandler.Delete)

				child.Route("/rates", func(rt chi.Router) {
					rt.Get("/", ratesHandler.List)
					rt.Get("/active", ratesHandler.Active)
					rt.Put("/", ratesHandler.SaveDraft)
					rt.Post("/activate", ratesHandler.Activate)
					rt.Delete("/active", ratesHandler.Deactivate)
				})
			})
		})

		v.Route("/farmers", func(f chi.Router) {
			f.Get("/", farmerHandler.List)
			f.Post("/", farmerHandler.Create)
			f.Route("/{farmerID}", func(child chi.Router) {
				child.Get("/", farmerHandler.Get)
				child.Put("/", farmerHandler.Update)
				child.Delete("/", farmerHandler.Delete)
				child.Get("/statement", reportHandler.FarmerStatement)
			})
		})

		v.Route("/entries", func(e chi.Router) {
			e.Get("/", entryHandler.List)
			e.Post("/preview", entryHandler.Preview)
			e.With(idem.Middleware).Post("/", entryHandler.Create)
			e.Route("/{entryID}", func(child chi.Router) {
				child.Get("/", entryHandler.Get)
				child.Put("/", entryHandler.Update)
				child.Delete("/", entryHandler.Delete)
			})
		})

		v.Route("/products", func(p chi.Router) {
			p.Get("/", productHandler.List)
			p.Post("/", productHandler.Create)
			p.Route("/{productID}", func(child chi.Router) {
				child.Get("/", productHandler.Get)
				child.Put("/", productHandler.Update)
				child.Delete("/", productHandler.Delete)
			})
		})

		v.Route("/reports", func(rp chi.Router) {
			rp.Get("/range", reportHandler.Range)
			rp.Get("/today", reportHandler.Today)
		})

		v.Route("/notifications", func(n chi.Router) {
			n.Get("/", notifyHandler.List)
			n.Post("/read-all", notifyHandler.MarkAllRead)
			n.Post("/{notificationID}/read", notifyHandler.MarkRead)
		})

		v.Route("/settings", func(s chi.Router) {
			s.Get("/", societyHandler.Get)
			s.Put("/", societyHandler.Save)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-shutdownCtx.Done()
		timeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(timeout); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server shutdown complete")
}

func runMigrations(cfg *config.Config, logger zerolog.Logger) {
	m, err := migrate.New(cfg.MigrationsPath, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise migrations")
	}
	defer func() {
		_, _ = m.Close()
	}()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal().Err(err).Msg("run migrations")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/block", pprof.Handler("block"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	mux.Handle("/threadcreate", pprof.Handler("threadcreate"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
