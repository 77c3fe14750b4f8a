package main

import (
	"context"
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
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/aloxstore/storefront/internal/cache"
	"github.com/aloxstore/storefront/internal/cart"
	"github.com/aloxstore/storefront/internal/catalog"
	"github.com/aloxstore/storefront/internal/checkout"
	"github.com/aloxstore/storefront/internal/config"
	"github.com/aloxstore/storefront/internal/db"
	"github.com/aloxstore/storefront/internal/health"
	"github.com/aloxstore/storefront/internal/obs"
	"github.com/aloxstore/storefront/internal/order"
	"github.com/aloxstore/storefront/internal/payment"
	"github.com/aloxstore/storefront/internal/ratelimit"
	"github.com/aloxstore/storefront/internal/security"
	"github.com/aloxstore/storefront/internal/session"
	"github.com/aloxstore/storefront/internal/settings"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "storefront")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "storefront-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Migrate(cfg.DatabaseURL, logger); err != nil {
		logger.Fatal().Err(err).Msg("migrate database")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "storefront-api"

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

	catalogSvc := &catalog.Service{
		Source: &catalog.Store{Pool: pool},
		Cache:  cache.NewJSON(redisClient, cfg.CatalogCacheTTL),
		Logger: logger,
	}
	catalogHandler := &catalog.Handler{Service: catalogSvc}

	settingsSvc := &settings.Service{
		Source: &settings.Store{Pool: pool},
		Cache:  cache.NewJSON(redisClient, cfg.SettingsCacheTTL),
		Logger: logger,
	}
	settingsHandler := &settings.Handler{Service: settingsSvc, AdminToken: cfg.AdminToken}

	cartSvc := &cart.Service{Store: &cart.Store{Client: redisClient, TTL: cfg.CartTTL}}
	cartHandler := &cart.Handler{
		Carts:    cartSvc,
		Products: catalogSvc,
		Settings: settingsSvc,
		Logger:   logger,
	}

	stripeProvider := &payment.Stripe{BaseURL: cfg.StripeBaseURL}

	checkoutSvc := &checkout.Service{
		Carts:      cartSvc,
		Products:   catalogSvc,
		Settings:   settingsSvc,
		Provider:   stripeProvider,
		SuccessURL: cfg.CheckoutSuccessURL,
		CancelURL:  cfg.CheckoutCancelURL,
		Logger:     logger,
	}
	checkoutHandler := &checkout.Handler{
		Service:  checkoutSvc,
		Validate: checkout.NewValidator(),
		Logger:   logger,
	}

	orderStore := &order.Store{Pool: pool}
	orderHandler := &order.Handler{Orders: orderStore}

	webhookHandler := &payment.Webhook{
		Orders:    orderStore,
		Carts:     cartSvc,
		Products:  catalogSvc,
		Settings:  settingsSvc,
		Tolerance: cfg.WebhookTolerance,
		Logger:    logger,
	}

	sessionManager := session.Manager{
		TTL:      cfg.CartTTL,
		Domain:   cfg.CookieDomain,
		Secure:   cfg.CookieSecure,
		SameSite: cfg.CookieSameSite,
	}

	limiter, err := ratelimit.New(redisClient, cfg.RateLimit)
	if err != nil {
		logger.Fatal().Err(err).Str("rate", cfg.RateLimit).Msg("configure rate limiter")
	}
	rateLimit := ratelimit.Middleware{
		Limiter: limiter,
		OnError: func(err error) { logger.Error().Err(err).Msg("rate limiter unavailable") },
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, nil, nil)
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
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(security.Headers{Enable: true}.Middleware)
	r.Use(security.BodyLimit{Max: 1 << 20}.Middleware)
	r.Use(security.CSRF{
		Header:         "X-CSRF-Token",
		ExemptPrefixes: []string{"/api/v1/webhooks/"},
	}.Middleware)

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		r.Mount("/debug/pprof", newPprofMux())
	}

	healthHandler := &health.Handler{
		Checker:      readinessChecker{db: pool, redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(rateLimit.Handler)

		v.Get("/products", catalogHandler.List)
		v.Get("/products/{productID}", catalogHandler.Get)

		v.Route("/cart", func(c chi.Router) {
			c.Use(sessionManager.Middleware)
			c.Get("/", cartHandler.Get)
			c.Post("/add", cartHandler.Add)
			c.Post("/set-qty", cartHandler.SetQty)
			c.Post("/remove", cartHandler.Remove)
			c.Post("/clear", cartHandler.Clear)
		})

		v.Route("/checkout", func(c chi.Router) {
			c.Use(sessionManager.Middleware)
			c.Get("/config", checkoutHandler.Config)
			c.Post("/", checkoutHandler.Create)
			c.Post("/customer", checkoutHandler.Customer)
		})

		v.Get("/orders/by-session/{sessionID}", orderHandler.BySession)

		v.Route("/admin/settings", func(a chi.Router) {
			a.Use(settingsHandler.RequireAdmin)
			a.Get("/", settingsHandler.Get)
			a.Put("/", settingsHandler.Put)
		})

		v.Post("/webhooks/payment/stripe", webhookHandler.HandleStripe)
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-shutdownCh
		logger.Info().Msg("shutdown signal received")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
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

func (c readinessChecker) PingDB(ctx context.Context) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
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
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/allocs", pprof.Handler("allocs"))
	return mux
}
