// Package container provides dependency injection using Uber FX
// This implements the Dependency Inversion Principle from SOLID
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/alchemorsel/mealplan/internal/application/shopping"
	"github.com/alchemorsel/mealplan/internal/infrastructure/config"
	"github.com/alchemorsel/mealplan/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/mealplan/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/mealplan/internal/infrastructure/http/server"
	"github.com/alchemorsel/mealplan/internal/infrastructure/messaging"
	"github.com/alchemorsel/mealplan/internal/infrastructure/monitoring"
	gormRepo "github.com/alchemorsel/mealplan/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/mealplan/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/mealplan/internal/infrastructure/persistence/migrations"
	"github.com/alchemorsel/mealplan/internal/infrastructure/persistence/postgres"
	redisRepo "github.com/alchemorsel/mealplan/internal/infrastructure/persistence/redis"
	"github.com/alchemorsel/mealplan/internal/infrastructure/persistence/sqlite"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/alchemorsel/mealplan/pkg/healthcheck"
	"github.com/alchemorsel/mealplan/pkg/logger"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConfigPath is the configuration file to load; empty searches the defaults
type ConfigPath string

// Module provides all dependency injection modules
var Module = fx.Options(
	// Infrastructure modules
	ConfigModule,
	LoggerModule,
	MonitoringModule,
	DatabaseModule,
	CacheModule,
	MessagingModule,

	// Repository modules
	RepositoryModule,

	// Service modules
	ServiceModule,

	// HTTP modules
	HTTPModule,

	// Lifecycle hooks
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func(path ConfigPath) (*config.Config, error) {
		return config.Load(string(path))
	},
)

// LoggerModule provides logging and routes fx's own events through zap
var LoggerModule = fx.Options(
	fx.Provide(
		func(cfg *config.Config) (*zap.Logger, zap.AtomicLevel, error) {
			return logger.NewWithLevel(logger.Config{
				Level:       cfg.App.LogLevel,
				Format:      cfg.App.LogFormat,
				Development: cfg.App.Debug,
			})
		},
	),
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		l := &fxevent.ZapLogger{Logger: log.Named("fx")}
		l.UseLogLevel(zap.DebugLevel)
		return l
	}),
	fx.Invoke(WatchConfig),
)

// MonitoringModule provides metrics, tracing and health checks
var MonitoringModule = fx.Provide(
	monitoring.NewMetricsCollector,
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
		tp, err := monitoring.NewTracingProvider(monitoring.TracingConfig{
			ServiceName:    cfg.App.Name,
			ServiceVersion: cfg.App.Version,
			Environment:    cfg.App.Environment,
			OTLPEndpoint:   cfg.Monitoring.OTLPEndpoint,
			SamplingRate:   cfg.Monitoring.SamplingRate,
			Enabled:        cfg.Monitoring.EnableTracing,
		}, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(tp.Shutdown))
		return tp, nil
	},
	func(tp *monitoring.TracingProvider) trace.Tracer {
		return tp.Tracer()
	},
	func(cfg *config.Config, log *zap.Logger, metrics *monitoring.MetricsCollector) (*healthcheck.HealthCheck, error) {
		hm, err := healthcheck.NewHealthMetrics("mealplan", metrics.Registerer())
		if err != nil {
			return nil, fmt.Errorf("failed to register health metrics: %w", err)
		}
		hc := healthcheck.New(cfg.App.Version, log)
		hc.SetMetrics(hm)
		return hc, nil
	},
)

// DatabaseModule provides the GORM connection for the configured driver
var DatabaseModule = fx.Provide(NewDatabase)

// NewDatabase opens SQLite or PostgreSQL, brings the schema up to date and
// instruments every query
func NewDatabase(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	metrics *monitoring.MetricsCollector,
	health *healthcheck.HealthCheck,
) (*gorm.DB, error) {
	var db *gorm.DB

	switch cfg.Database.Driver {
	case "postgres":
		cm, err := postgres.NewConnectionManager(cfg, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(cm.Close))
		db = cm.GetDB()

		if cfg.Database.AutoMigrate {
			if err := migrateUp(db, log); err != nil {
				return nil, err
			}
		}
		log.Info("Connected to PostgreSQL database",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Database),
		)
	default:
		var err error
		db, err = sqlite.SetupDatabase(cfg.Database.Path, postgres.GORMLogLevel(cfg.Database.LogLevel))
		if err != nil {
			return nil, fmt.Errorf("failed to setup SQLite database: %w", err)
		}
		db.Logger = postgres.NewGORMLogger(log, cfg.Database.LogLevel, cfg.Database.SlowQueryThreshold)

		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(sqlDB.Close))

		log.Info("Connected to SQLite database", zap.String("path", cfg.Database.Path))
	}

	if cfg.Database.Seed {
		if err := sqlite.SeedDatabase(db); err != nil {
			log.Warn("Failed to seed database", zap.Error(err))
		}
	}

	monitor, err := postgres.NewQueryMonitor(log, metrics.Registerer(), cfg.Database.SlowQueryThreshold)
	if err != nil {
		return nil, err
	}
	if err := monitor.Install(db); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	health.Register("database", healthcheck.NewDatabaseChecker(sqlDB))

	return db, nil
}

func migrateUp(db *gorm.DB, log *zap.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	m, err := migrations.New(sqlDB, migrations.DriverPostgres, log)
	if err != nil {
		return err
	}
	return m.Up()
}

// CacheModule provides the list snapshot cache, Redis when enabled
var CacheModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, health *healthcheck.HealthCheck) (outbound.CacheRepository, error) {
		if !cfg.Redis.Enabled {
			log.Info("Using in-memory cache")
			cache := memory.NewCacheRepository()
			lc.Append(fx.StopHook(cache.Close))
			return cache, nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client, err := redisRepo.NewClient(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(client.Close))

		cache := redisRepo.NewCacheRepository(client, "mealplan:", log)
		health.Register("cache", healthcheck.NewOptionalPingChecker("cache", cache))
		return cache, nil
	},
)

// MessagingModule provides the domain event bus, NATS when configured
var MessagingModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, health *healthcheck.HealthCheck) (outbound.MessageBus, error) {
		if cfg.Messaging.Provider != "nats" {
			bus := messaging.NewMemoryBus(log)
			lc.Append(fx.StopHook(bus.Close))
			return bus, nil
		}

		bus, err := messaging.NewNATSBus(&cfg.Messaging, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(bus.Close))
		health.Register("messaging", healthcheck.NewOptionalPingChecker("messaging", bus))
		return bus, nil
	},
)

// RepositoryModule provides repository implementations
var RepositoryModule = fx.Provide(
	gormRepo.NewRecipeRepository,
	gormRepo.NewShoppingListRepository,
)

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	func(
		lists outbound.ShoppingListRepository,
		recipes outbound.RecipeRepository,
		cache outbound.CacheRepository,
		events outbound.MessageBus,
		metrics *monitoring.MetricsCollector,
		tracer trace.Tracer,
		cfg *config.Config,
		log *zap.Logger,
	) inbound.ShoppingService {
		return shopping.NewService(lists, recipes, cache, events, metrics, tracer, shopping.Config{
			CacheTTL:      cfg.Shopping.CacheTTL,
			SaveRetries:   cfg.Shopping.SaveRetries,
			MaxManualName: cfg.Shopping.MaxManualName,
			SubjectPrefix: cfg.Messaging.SubjectPrefix,
		}, log)
	},
)

// HTTPModule provides HTTP server and handlers
var HTTPModule = fx.Provide(
	middleware.New,
	func(cfg *config.Config, log *zap.Logger) *middleware.Authenticator {
		return middleware.NewAuthenticator(cfg.Auth, log)
	},
	handlers.NewShoppingHandlers,
	server.NewServer,
)

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
)

// WatchConfig applies log level changes from the configuration file while
// the application runs
func WatchConfig(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, level zap.AtomicLevel) error {
	if cfg.Source() == "" {
		return nil
	}

	watcher, err := config.NewWatcher(cfg, log)
	if err != nil {
		return err
	}
	watcher.OnChange(func(next *config.Config) {
		if err := logger.SetLevel(level, next.App.LogLevel); err != nil {
			log.Warn("Ignoring log level change", zap.Error(err))
			return
		}
		log.Info("Log level updated", zap.String("level", next.App.LogLevel))
	})

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go watcher.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return watcher.Close()
		},
	})
	return nil
}

// RegisterLifecycleHooks registers application lifecycle hooks
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	log *zap.Logger,
	mw *middleware.Middleware,
	srv *server.Server,
) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("Starting meal plan service",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
				zap.String("database", cfg.Database.Driver),
				zap.String("messaging", cfg.Messaging.Provider),
			)

			go mw.CleanupLimiters(ctx)
			go func() {
				if err := srv.Start(); err != nil {
					log.Error("HTTP server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			log.Info("Shutting down meal plan service")
			cancel()

			if err := srv.Shutdown(stopCtx); err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}

			_ = log.Sync()
			return nil
		},
	})
}
