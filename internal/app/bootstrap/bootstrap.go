package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	votingengine "github.com/TADABA21/voting-app/contexts/election/voting-engine"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/adapters/mirror"
	postgresadapter "github.com/TADABA21/voting-app/contexts/election/voting-engine/adapters/postgres"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/adapters/security"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"
	"github.com/TADABA21/voting-app/internal/platform/cache"
	"github.com/TADABA21/voting-app/internal/platform/config"
	"github.com/TADABA21/voting-app/internal/platform/db"
	"github.com/TADABA21/voting-app/internal/platform/httpserver"
	"github.com/TADABA21/voting-app/internal/platform/messaging"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const shutdownTimeout = 10 * time.Second

type APIApp struct {
	server    *httpserver.Server
	module    votingengine.Module
	bus       *messaging.Bus
	resources resources
	logger    *slog.Logger
}

type WorkerApp struct {
	module    votingengine.Module
	interval  time.Duration
	once      bool
	resources resources
	logger    *slog.Logger
}

// resources holds every connection a process opened, closed in reverse.
type resources struct {
	postgres *db.Postgres
	mirrorDB *db.Postgres
	redis    *cache.Redis
}

func (r resources) Close() error {
	return errors.Join(r.redis.Close(), r.mirrorDB.Close(), r.postgres.Close())
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	var bus *messaging.Bus
	if cfg.MirrorAsync {
		bus = messaging.NewBus(logger)
	}
	module, res, err := buildModule(ctx, cfg, logger, bus)
	if err != nil {
		return nil, err
	}

	server := httpserver.New(module, res.postgres.Ping, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:    server,
		module:    module,
		bus:       bus,
		resources: res,
		logger:    logger,
	}, nil
}

func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.MirrorDriver == config.MirrorNone {
		return nil, errors.New("worker needs a secondary store: set MIRROR_DRIVER to postgres or redis")
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")

	module, res, err := buildModule(ctx, cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		module:    module,
		interval:  cfg.SyncInterval,
		once:      cfg.SyncOnce,
		resources: res,
		logger:    logger,
	}, nil
}

func buildModule(
	ctx context.Context,
	cfg config.Config,
	logger *slog.Logger,
	bus *messaging.Bus,
) (votingengine.Module, resources, error) {
	var res resources
	fail := func(err error) (votingengine.Module, resources, error) {
		_ = res.Close()
		return votingengine.Module{}, resources{}, err
	}

	pg, err := db.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return fail(err)
	}
	res.postgres = pg
	if cfg.AutoMigrate {
		if err := pg.Migrate(postgresadapter.Migrate); err != nil {
			return fail(err)
		}
	}

	var remote ports.MirrorRemote
	switch cfg.MirrorDriver {
	case config.MirrorPostgres:
		mirrorDB, err := db.Connect(ctx, cfg.MirrorPostgresDSN)
		if err != nil {
			return fail(fmt.Errorf("mirror: %w", err))
		}
		res.mirrorDB = mirrorDB
		if cfg.AutoMigrate {
			if err := mirrorDB.Migrate(mirror.Migrate); err != nil {
				return fail(fmt.Errorf("mirror: %w", err))
			}
		}
		remote = mirror.NewPostgresRemote(mirrorDB.DB)
	case config.MirrorRedis:
		client, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fail(fmt.Errorf("mirror: %w", err))
		}
		res.redis = client
		remote = mirror.NewRedisRemote(client.Client, cfg.ServiceName+":mirror")
	}

	tokens, err := security.NewJWTIssuer(cfg.JWTSecret, cfg.TokenTTL, cfg.JWTIssuer)
	if err != nil {
		return fail(err)
	}

	deps := votingengine.Dependencies{
		Store:               postgresadapter.NewRepository(pg.DB, logger),
		Hasher:              security.BcryptHasher{Cost: cfg.BcryptCost},
		Tokens:              tokens,
		Clock:               postgresadapter.SystemClock{},
		IDGen:               postgresadapter.UUIDGenerator{},
		Remote:              remote,
		MirrorTimeout:       cfg.MirrorTimeout,
		SourceService:       cfg.ServiceName,
		BootstrapAdminEmail: cfg.AdminEmail,
		Logger:              logger,
	}
	if bus != nil {
		deps.Bus = bus
	}
	logger.Info("voting module wired",
		"event", "bootstrap_module_wired",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"mirror_driver", cfg.MirrorDriver,
		"mirror_async", bus != nil,
	)
	return votingengine.NewModule(deps), res, nil
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (a *APIApp) Run(ctx context.Context) error {
	promoted, err := a.module.Admins.EnsureBootstrapAdmin(ctx)
	if err != nil {
		a.logger.Warn("bootstrap admin check failed",
			"event", "bootstrap_admin_check_failed",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"error", err.Error(),
		)
	} else if promoted {
		a.logger.Info("configured admin promoted at startup",
			"event", "bootstrap_admin_promoted",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}

	group, ctx := errgroup.WithContext(ctx)
	if a.module.MirrorConsumer != nil {
		if err := a.module.MirrorConsumer.Start(ctx); err != nil {
			return err
		}
	}
	group.Go(a.server.Start)
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	err = group.Wait()
	if a.bus != nil {
		a.bus.Wait()
	}
	return err
}

func (a *APIApp) Close() error {
	return a.resources.Close()
}

// Run performs one full sync and returns. With SYNC_ONCE=false it repeats the
// sync every interval until ctx is cancelled, retrying a failed pass on the
// next tick.
func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"sync_interval", w.interval.String(),
		"once", w.once,
	)

	for {
		report, err := w.module.Reconciler.Run(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("full sync failed",
				"event", "bootstrap_worker_sync_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
			if w.once {
				return err
			}
		} else if w.once {
			if len(report.Failures) > 0 {
				return fmt.Errorf("full sync finished with %d failures", len(report.Failures))
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	return w.resources.Close()
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
