package di

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"dreamui/backend/internal/archive"
	"dreamui/backend/internal/character"
	"dreamui/backend/internal/inference"
	"dreamui/backend/internal/preferences"
	"dreamui/backend/internal/relay"
	"dreamui/backend/internal/service"
	"dreamui/backend/internal/world"
	"dreamui/backend/internal/ws"
	"dreamui/backend/pkg/cache"
	"dreamui/backend/pkg/config"
	"dreamui/backend/pkg/health"
	"dreamui/backend/pkg/logger"
	"dreamui/backend/shared/observability"
	"dreamui/backend/shared/redis"

	"gorm.io/gorm"
)

// ServiceName identifies the process in traces and metrics
const ServiceName = "dreamui-backend"

// Container holds all the dependencies for the application
type Container struct {
	Config        *config.Config
	Logger        *logger.Logger
	Observability *observability.Provider

	// DB is set only for the sqlite and postgres archive backends
	DB *gorm.DB
	// Redis is set only when REDIS_URL is configured
	Redis *redis.RedisClient

	Archive     archive.Repository
	Reconciler  *archive.Reconciler
	Characters  *character.Store
	World       *world.Store
	Preferences *preferences.Store

	Inference       *inference.Client
	Relay           *relay.Relay
	ChatService     *service.ChatService
	NotebookService *service.NotebookService

	Hub     *ws.Hub
	Health  *health.Checker
	Watcher *cache.Watcher

	stopHub context.CancelFunc
}

// NewLogger builds the process logger from the Logging config group
func NewLogger(cfg *config.Config) *logger.Logger {
	lc := logger.DefaultConfig()
	lc.Level = cfg.Logging.Level
	lc.JSON = !strings.EqualFold(cfg.Logging.Format, "text")
	lc.AddSource = cfg.Server.Env == "development"
	return logger.New(lc)
}

// New wires every component from cfg
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		cfg = config.Get()
	}

	log := NewLogger(cfg)
	logger.SetGlobal(log)

	c := &Container{Config: cfg, Logger: log}

	obs, err := observability.Setup(observability.Config{
		ServiceName:    ServiceName,
		TracingEnabled: cfg.Observability.TracingEnabled,
		MetricsEnabled: cfg.Observability.MetricsEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up observability: %w", err)
	}
	c.Observability = obs

	if err := c.initArchive(); err != nil {
		_ = c.Close(context.Background())
		return nil, err
	}

	c.Characters = character.NewStore(cfg.Storage.CharacterDir, cfg.Cache.TTL, log)
	c.World = world.NewStore(cfg.Storage.WorldDir, cfg.Cache.TTL, log)
	c.Preferences = preferences.NewStore(cfg.Storage.PreferencesPath, log)

	if cfg.Cache.WatchFiles {
		if err := c.watch(); err != nil {
			// Caches still expire on their TTL
			log.Warn("File watching disabled", "error", err.Error())
		}
	}

	c.Inference = inference.NewClient(inference.OptionsFromConfig(cfg, log))
	c.Relay = relay.New(relay.OpenAIDecoder{}, log)
	c.ChatService = service.NewChatService(c.Inference, c.Characters, c.World, c.Preferences, c.Reconciler, c.Relay, log)
	c.NotebookService = service.NewNotebookService(c.Inference, c.Reconciler, c.Relay, log)

	hubCtx, stopHub := context.WithCancel(context.Background())
	c.Hub = ws.NewHub(log)
	c.stopHub = stopHub
	go c.Hub.Run(hubCtx)

	c.Health = health.NewChecker(log, 30*time.Second)
	c.registerHealthChecks()

	return c, nil
}

// OpenArchive opens the repository selected by Storage.ArchiveBackend. db is nil for
// the file backend.
func OpenArchive(cfg *config.Config, log *logger.Logger) (archive.Repository, *gorm.DB, error) {
	switch cfg.Storage.ArchiveBackend {
	case "", config.BackendFile:
		return archive.NewFileRepository(cfg.Storage.ArchiveDir, log), nil, nil
	case config.BackendSQLite, config.BackendPostgres:
		db, err := config.NewDB(cfg)
		if err != nil {
			return nil, nil, err
		}
		repo, err := archive.NewGormRepository(db)
		if err != nil {
			return nil, db, err
		}
		return repo, db, nil
	default:
		return nil, nil, fmt.Errorf("unknown archive backend %q", cfg.Storage.ArchiveBackend)
	}
}

func (c *Container) initArchive() error {
	cfg := c.Config

	repo, db, err := OpenArchive(cfg, c.Logger)
	c.DB = db
	if err != nil {
		return err
	}
	c.Archive = repo

	var locker archive.Locker
	if cfg.Redis.URL != "" {
		client, err := redis.NewRedisClient(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		c.Redis = client
		locker = archive.NewRedisLocker(client, cfg.Redis.LockTTL, c.Logger)
		c.Logger.Info("Archive writes locked through redis")
	}
	c.Reconciler = archive.NewReconciler(c.Archive, locker, c.Logger)

	c.Logger.Info("Archive ready", "backend", orFile(cfg.Storage.ArchiveBackend))
	return nil
}

func orFile(backend string) string {
	if backend == "" {
		return config.BackendFile
	}
	return backend
}

// watch invalidates the world and character caches on external edits
func (c *Container) watch() error {
	worldDir := filepath.Clean(c.Config.Storage.WorldDir)
	characterDir := filepath.Clean(c.Config.Storage.CharacterDir)

	w, err := cache.Watch([]string{worldDir, characterDir}, func(path string) {
		switch filepath.Dir(path) {
		case worldDir:
			c.World.Invalidate()
		case characterDir:
			c.Characters.Invalidate()
		}
	}, c.Logger)
	if err != nil {
		return err
	}
	c.Watcher = w
	return nil
}

func (c *Container) registerHealthChecks() {
	cfg := c.Config

	c.Health.RegisterDirectoryCheck("storage", cfg.Storage.DataDir)
	c.Health.RegisterPingCheck("inference", false, c.Inference.Ping)

	c.Health.RegisterCheck("websocket", false, func(context.Context) (health.Status, string, error) {
		return health.StatusUp, fmt.Sprintf("%d active connections", c.Hub.ActiveConnections()), nil
	})

	if c.DB != nil {
		c.Health.RegisterPingCheck("database", true, func(context.Context) error {
			return config.TestConnection(c.DB)
		})
	}
	if c.Redis != nil {
		c.Health.RegisterPingCheck("redis", true, c.Redis.Ping)
	}
}

// Close releases every resource the container opened
func (c *Container) Close(ctx context.Context) error {
	var errs []error

	if c.Health != nil {
		c.Health.Stop()
	}
	if c.stopHub != nil {
		c.stopHub()
	}
	if c.Watcher != nil {
		errs = append(errs, c.Watcher.Close())
	}
	if c.World != nil {
		c.World.Close()
	}
	if c.Characters != nil {
		c.Characters.Close()
	}
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if c.Observability != nil {
		errs = append(errs, c.Observability.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
