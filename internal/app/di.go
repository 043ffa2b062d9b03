// Package app provides the dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/allisson/docgate/internal/clock"
	"github.com/allisson/docgate/internal/config"
	"github.com/allisson/docgate/internal/database"
	"github.com/allisson/docgate/internal/gate"
	gateHTTP "github.com/allisson/docgate/internal/gate/http"
	gateService "github.com/allisson/docgate/internal/gate/service"
	"github.com/allisson/docgate/internal/http"
	licenseHTTP "github.com/allisson/docgate/internal/license/http"
	licenseRepository "github.com/allisson/docgate/internal/license/repository"
	licenseService "github.com/allisson/docgate/internal/license/service"
	licenseUsecase "github.com/allisson/docgate/internal/license/usecase"
	"github.com/allisson/docgate/internal/metrics"
	ratelimitDomain "github.com/allisson/docgate/internal/ratelimit/domain"
	ratelimitRepository "github.com/allisson/docgate/internal/ratelimit/repository"
	ratelimitUsecase "github.com/allisson/docgate/internal/ratelimit/usecase"
	sharetokenRepository "github.com/allisson/docgate/internal/sharetoken/repository"
	sharetokenService "github.com/allisson/docgate/internal/sharetoken/service"
	sharetokenUsecase "github.com/allisson/docgate/internal/sharetoken/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger      *slog.Logger
	db          *sql.DB
	redisClient *redis.Client

	// Managers
	txManager database.TxManager

	// Observability
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Repositories
	licenseRepo    licenseUsecase.LicenseRepository
	counterRepo    ratelimitUsecase.CounterRepository
	shareTokenRepo sharetokenUsecase.ShareTokenRepository

	// Use Cases
	licenseUseCase    licenseUsecase.UseCase
	limiter           ratelimitUsecase.Limiter
	shareTokenUseCase sharetokenUsecase.UseCase
	accessGate        gate.Gate

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                    sync.Mutex
	loggerInit            sync.Once
	dbInit                sync.Once
	redisInit             sync.Once
	txManagerInit         sync.Once
	metricsProviderInit   sync.Once
	businessMetricsInit   sync.Once
	licenseRepoInit       sync.Once
	counterRepoInit       sync.Once
	shareTokenRepoInit    sync.Once
	licenseUseCaseInit    sync.Once
	limiterInit           sync.Once
	shareTokenUseCaseInit sync.Once
	accessGateInit        sync.Once
	httpServerInit        sync.Once
	metricsServerInit     sync.Once
	initErrors            map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		db, err := c.initDB()
		if err != nil {
			c.initErrors["db"] = err
			return
		}
		c.db = db
	})
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// Redis returns the Redis client used by the redis rate limit backend.
func (c *Container) Redis() (*redis.Client, error) {
	c.redisInit.Do(func() {
		client, err := database.ConnectRedis(context.Background(), c.config.RedisURL)
		if err != nil {
			c.initErrors["redis"] = fmt.Errorf("failed to connect to redis: %w", err)
			return
		}
		c.redisClient = client
	})
	if storedErr, exists := c.initErrors["redis"]; exists {
		return nil, storedErr
	}
	return c.redisClient, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["txManager"] = fmt.Errorf("failed to get database for tx manager: %w", err)
			return
		}
		c.txManager = database.NewTxManager(db)
	})
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the Prometheus metrics provider, or nil when
// metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = fmt.Errorf("failed to create metrics provider: %w", err)
			return
		}
		c.metricsProvider = provider
	})
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. A no-op recorder is
// returned when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["businessMetrics"] = err
			return
		}
		if provider == nil {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return
		}
		bm, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["businessMetrics"] = fmt.Errorf("failed to create business metrics: %w", err)
			return
		}
		c.businessMetrics = bm
	})
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// LicenseRepository returns the license repository instance.
func (c *Container) LicenseRepository() (licenseUsecase.LicenseRepository, error) {
	c.licenseRepoInit.Do(func() {
		repo, err := c.initLicenseRepository()
		if err != nil {
			c.initErrors["licenseRepo"] = err
			return
		}
		c.licenseRepo = repo
	})
	if storedErr, exists := c.initErrors["licenseRepo"]; exists {
		return nil, storedErr
	}
	return c.licenseRepo, nil
}

// CounterRepository returns the rate limit counter repository instance.
func (c *Container) CounterRepository() (ratelimitUsecase.CounterRepository, error) {
	c.counterRepoInit.Do(func() {
		repo, err := c.initCounterRepository()
		if err != nil {
			c.initErrors["counterRepo"] = err
			return
		}
		c.counterRepo = repo
	})
	if storedErr, exists := c.initErrors["counterRepo"]; exists {
		return nil, storedErr
	}
	return c.counterRepo, nil
}

// ShareTokenRepository returns the share token repository instance.
func (c *Container) ShareTokenRepository() (sharetokenUsecase.ShareTokenRepository, error) {
	c.shareTokenRepoInit.Do(func() {
		repo, err := c.initShareTokenRepository()
		if err != nil {
			c.initErrors["shareTokenRepo"] = err
			return
		}
		c.shareTokenRepo = repo
	})
	if storedErr, exists := c.initErrors["shareTokenRepo"]; exists {
		return nil, storedErr
	}
	return c.shareTokenRepo, nil
}

// LicenseUseCase returns the license use case instance.
func (c *Container) LicenseUseCase() (licenseUsecase.UseCase, error) {
	c.licenseUseCaseInit.Do(func() {
		useCase, err := c.initLicenseUseCase()
		if err != nil {
			c.initErrors["licenseUseCase"] = err
			return
		}
		c.licenseUseCase = useCase
	})
	if storedErr, exists := c.initErrors["licenseUseCase"]; exists {
		return nil, storedErr
	}
	return c.licenseUseCase, nil
}

// Limiter returns the attempt limiter instance.
func (c *Container) Limiter() (ratelimitUsecase.Limiter, error) {
	c.limiterInit.Do(func() {
		limiter, err := c.initLimiter()
		if err != nil {
			c.initErrors["limiter"] = err
			return
		}
		c.limiter = limiter
	})
	if storedErr, exists := c.initErrors["limiter"]; exists {
		return nil, storedErr
	}
	return c.limiter, nil
}

// ShareTokenUseCase returns the share token use case instance.
func (c *Container) ShareTokenUseCase() (sharetokenUsecase.UseCase, error) {
	c.shareTokenUseCaseInit.Do(func() {
		useCase, err := c.initShareTokenUseCase()
		if err != nil {
			c.initErrors["shareTokenUseCase"] = err
			return
		}
		c.shareTokenUseCase = useCase
	})
	if storedErr, exists := c.initErrors["shareTokenUseCase"]; exists {
		return nil, storedErr
	}
	return c.shareTokenUseCase, nil
}

// AccessGate returns the access gate facade.
func (c *Container) AccessGate() (gate.Gate, error) {
	c.accessGateInit.Do(func() {
		accessGate, err := c.initAccessGate()
		if err != nil {
			c.initErrors["accessGate"] = err
			return
		}
		c.accessGate = accessGate
	})
	if storedErr, exists := c.initErrors["accessGate"]; exists {
		return nil, storedErr
	}
	return c.accessGate, nil
}

// HTTPServer returns the HTTP server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	c.httpServerInit.Do(func() {
		server, err := c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
			return
		}
		c.httpServer = server
	})
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server instance, or nil when metrics are
// disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = err
			return
		}
		if provider == nil {
			return
		}
		c.metricsServer = http.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
	})
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("redis close: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initLicenseRepository creates the license repository instance.
func (c *Container) initLicenseRepository() (licenseUsecase.LicenseRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for license repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return licenseRepository.NewMySQLLicenseRepository(db), nil
	case "postgres":
		return licenseRepository.NewPostgreSQLLicenseRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initCounterRepository creates the rate limit counter repository based on the
// configured backend.
func (c *Container) initCounterRepository() (ratelimitUsecase.CounterRepository, error) {
	switch c.config.RateLimitBackend {
	case "redis":
		client, err := c.Redis()
		if err != nil {
			return nil, fmt.Errorf("failed to get redis for counter repository: %w", err)
		}
		return ratelimitRepository.NewRedisCounterRepository(client, c.config.RateLimitRetention), nil
	case "database":
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for counter repository: %w", err)
		}
		switch c.config.DBDriver {
		case "mysql":
			return ratelimitRepository.NewMySQLCounterRepository(db), nil
		case "postgres":
			return ratelimitRepository.NewPostgreSQLCounterRepository(db), nil
		default:
			return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	default:
		return nil, fmt.Errorf("unsupported rate limit backend: %s", c.config.RateLimitBackend)
	}
}

// initShareTokenRepository creates the share token repository instance.
func (c *Container) initShareTokenRepository() (sharetokenUsecase.ShareTokenRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for share token repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return sharetokenRepository.NewMySQLShareTokenRepository(db), nil
	case "postgres":
		return sharetokenRepository.NewPostgreSQLShareTokenRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initLicenseUseCase creates the license use case with all its dependencies.
func (c *Container) initLicenseUseCase() (licenseUsecase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for license use case: %w", err)
	}

	repo, err := c.LicenseRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get license repository for license use case: %w", err)
	}

	bm, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for license use case: %w", err)
	}

	evaluator := licenseService.NewEvaluator(c.config.LicenseGracePeriodDays)
	useCase := licenseUsecase.NewLicenseUseCase(txManager, repo, evaluator, clock.System())

	return licenseUsecase.NewUseCaseWithMetrics(useCase, bm), nil
}

// initLimiter creates the attempt limiter with per-action profiles seeded
// from configuration.
func (c *Container) initLimiter() (ratelimitUsecase.Limiter, error) {
	repo, err := c.CounterRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get counter repository for limiter: %w", err)
	}

	bm, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for limiter: %w", err)
	}

	registry := ratelimitDomain.NewRegistry(ratelimitDomain.Profile{
		MaxAttempts: c.config.RateLimitMaxAttempts,
		Window:      c.config.RateLimitWindow,
		Block:       c.config.RateLimitBlock,
	})
	registry.Register(ratelimitDomain.ActionPasswordVerify, ratelimitDomain.Profile{
		MaxAttempts: c.config.PasswordVerifyMaxAttempts,
		Window:      c.config.PasswordVerifyWindow,
		Block:       c.config.PasswordVerifyBlock,
	})
	registry.Register(ratelimitDomain.ActionShareResolve, ratelimitDomain.Profile{
		MaxAttempts: c.config.ShareResolveMaxAttempts,
		Window:      c.config.ShareResolveWindow,
		Block:       c.config.ShareResolveBlock,
	})

	limiter := ratelimitUsecase.NewLimiterUseCase(repo, registry, clock.System(), c.config.RateLimitFailOpen)

	return ratelimitUsecase.NewLimiterWithMetrics(limiter, bm), nil
}

// initShareTokenUseCase creates the share token use case with all its dependencies.
func (c *Container) initShareTokenUseCase() (sharetokenUsecase.UseCase, error) {
	repo, err := c.ShareTokenRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get share token repository for share token use case: %w", err)
	}

	bm, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for share token use case: %w", err)
	}

	secrets := sharetokenService.NewSecretService()
	useCase := sharetokenUsecase.NewShareTokenUseCase(repo, secrets, clock.System(), c.config.ShareTokenDefaultTTL)

	return sharetokenUsecase.NewUseCaseWithMetrics(useCase, bm), nil
}

// initAccessGate creates the access gate facade with all its dependencies.
func (c *Container) initAccessGate() (gate.Gate, error) {
	licenseUseCase, err := c.LicenseUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get license use case for access gate: %w", err)
	}

	limiter, err := c.Limiter()
	if err != nil {
		return nil, fmt.Errorf("failed to get limiter for access gate: %w", err)
	}

	shareTokenUseCase, err := c.ShareTokenUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get share token use case for access gate: %w", err)
	}

	return gate.NewAccessGate(
		licenseUseCase,
		limiter,
		shareTokenUseCase,
		gateService.NewPasswordService(),
	), nil
}

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	licenseUseCase, err := c.LicenseUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get license use case for http server: %w", err)
	}

	accessGate, err := c.AccessGate()
	if err != nil {
		return nil, fmt.Errorf("failed to get access gate for http server: %w", err)
	}

	routerConfig := http.RouterConfig{
		LicenseHandler:   licenseHTTP.NewLicenseHandler(licenseUseCase, logger),
		GateHandler:      gateHTTP.NewGateHandler(accessGate, logger),
		CORSEnabled:      c.config.CORSEnabled,
		CORSAllowOrigins: c.config.CORSAllowOrigins,
		MetricsNamespace: c.config.MetricsNamespace,
	}

	if c.config.HTTPRateLimitEnabled {
		routerConfig.RateLimitRPS = c.config.HTTPRateLimitRequestsPerSec
		routerConfig.RateLimitBurst = c.config.HTTPRateLimitBurst
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}
	if provider != nil {
		routerConfig.MeterProvider = provider.MeterProvider()
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)
	server.SetupRouter(routerConfig)

	return server, nil
}
