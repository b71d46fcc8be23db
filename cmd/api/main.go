// Package main is the entrypoint for the Tally API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tallybook/tally/internal/auth"
	"github.com/tallybook/tally/internal/cache"
	"github.com/tallybook/tally/internal/config"
	"github.com/tallybook/tally/internal/events"
	"github.com/tallybook/tally/internal/handler"
	"github.com/tallybook/tally/internal/metrics"
	"github.com/tallybook/tally/internal/middleware"
	"github.com/tallybook/tally/internal/repository"
	"github.com/tallybook/tally/internal/repository/memory"
	"github.com/tallybook/tally/internal/server"
	"github.com/tallybook/tally/internal/service"
)

// store is what the services and the readiness probe need from a backend.
type store interface {
	service.LedgerStore
	service.UserStore
	handler.HealthChecker
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Optional collaborators stay nil interfaces when disabled.
	var (
		ledgerCache service.LedgerCache
		limiter     middleware.RateLimiter
		cacheClient *cache.Cache
	)
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL, cache.Options{
			PoolSize:  cfg.RedisPoolSize,
			OpTimeout: cfg.RedisTimeout,
		})
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			closeStore()
			return err
		}
		ledgerCache = cacheClient
		limiter = cacheClient
		logger.Info("connected to Redis")
	} else {
		logger.Warn("REDIS_URL not set, ledger cache and rate limiting disabled")
	}

	var sinks []events.Publisher
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			logger.Error(
				"failed to connect to RabbitMQ",
				slog.String("error", sanitizeError(err, cfg.AMQPURL)),
				slog.String("amqp_url", redactURL(cfg.AMQPURL)),
			)
			if cacheClient != nil {
				_ = cacheClient.Close()
			}
			closeStore()
			return err
		}
		sinks = append(sinks, amqpPublisher)
		logger.Info("connected to RabbitMQ", slog.String("exchange", cfg.AMQPExchange))
	}
	if cfg.EventStreamEnabled && cacheClient != nil {
		sinks = append(sinks, events.NewStreamPublisher(cacheClient.Client(), cfg.EventStreamKey, logger))
		logger.Info("ledger events mirrored to Redis stream", slog.String("stream", cfg.EventStreamKey))
	}
	publisher := events.Combine(sinks...)

	recorder := metrics.NewInMemory()
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)

	transactionService := service.NewTransactionService(st, service.TransactionServiceConfig{
		Cache:     ledgerCache,
		CacheTTL:  cfg.LedgerCacheTTL,
		Publisher: publisher,
		Metrics:   recorder,
		Logger:    logger,
	})
	accountService, err := service.NewAccountService(st, tokens, service.AccountServiceConfig{
		Cache:     ledgerCache,
		Publisher: publisher,
		Metrics:   recorder,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	healthHandler := handler.NewHealthHandler().Register("store", st)
	if cacheClient != nil {
		healthHandler.Register("redis", cacheClient)
	}

	r := setupRouter(routes{
		base:         handler.New(),
		health:       healthHandler,
		metrics:      handler.NewMetricsHandler(recorder),
		transactions: handler.NewTransactionHandler(transactionService, logger),
		accounts:     handler.NewAuthHandler(accountService, logger),
		tokens:       tokens,
		limiter:      limiter,
	}, cfg, logger)

	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// LIFO: publisher first, store last.
	srv.OnShutdown("store", func(ctx context.Context) error {
		closeStore()
		return nil
	})
	if cacheClient != nil {
		srv.OnShutdown("redis", func(ctx context.Context) error {
			return cacheClient.Close()
		})
	}
	srv.OnShutdown("events", func(ctx context.Context) error {
		return publisher.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"storage", cfg.StorageBackend,
	)

	return srv.Run(ctx)
}

// openStore connects the configured backend and returns its closer.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store, func(), error) {
	if cfg.StorageBackend == config.BackendMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), func() {}, nil
	}

	if cfg.MigrateOnStart {
		if err := repository.Migrate(cfg.DatabaseURL); err != nil {
			logger.Error(
				"failed to apply migrations",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			)
			return nil, nil, err
		}
		logger.Info("database migrations applied")
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return nil, nil, err
	}
	logger.Info("connected to database")

	return repo, repo.Close, nil
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type routes struct {
	base         *handler.Handler
	health       *handler.HealthHandler
	metrics      *handler.MetricsHandler
	transactions *handler.TransactionHandler
	accounts     *handler.AuthHandler
	tokens       middleware.TokenVerifier
	limiter      middleware.RateLimiter
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(rt routes, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))
	r.Use(middleware.CORS(corsCfg))

	r.Get("/healthz", rt.health.Healthz)
	r.Get("/readyz", rt.health.Readyz)
	r.Get("/metrics", rt.metrics.Metrics)
	r.Get("/", rt.base.Hello)

	authCfg := middleware.AuthConfig{
		Logger: logger,
		Tokens: rt.tokens,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:    logger,
		Limiter:   rt.limiter,
		Enabled:   cfg.RateLimitEnabled,
		UserRPM:   cfg.RateLimitUserRPM,
		UserBurst: cfg.RateLimitUserBurst,
		IPRPM:     cfg.RateLimitAuthRPM,
		IPBurst:   cfg.RateLimitAuthBurst,
	}

	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.RateLimitIP(rateLimitCfg))
		r.Post("/signup", rt.accounts.Signup)
		r.Post("/login", rt.accounts.Login)
	})

	r.Route("/expenses", func(r chi.Router) {
		r.Use(middleware.Auth(authCfg))
		r.Use(middleware.RateLimitUser(rateLimitCfg))
		r.Get("/", rt.transactions.List)
		r.Post("/", rt.transactions.Create)
		r.Delete("/{id}", rt.transactions.Delete)
	})

	r.With(middleware.Auth(authCfg)).Delete("/account", rt.accounts.DeleteAccount)

	r.NotFound(rt.base.NotFound)
	r.MethodNotAllowed(rt.base.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
