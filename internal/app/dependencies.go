package app

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
	"github.com/vladislavdragonenkov/storefront/internal/storage/redis"
)

// runtimeDependencies держит хранилища, выбранные по конфигурации.
type runtimeDependencies struct {
	products        domain.ProductRepository
	carts           domain.CartRepository
	orders          domain.OrderRepository
	outboxRepo      domain.OutboxRepository
	timelineRepo    domain.TimelineRepository
	idempotencyRepo domain.IdempotencyRepository
	users           domain.UserRepository
	wishlist        domain.WishlistRepository
	addresses       domain.AddressRepository
	recent          domain.RecentlyViewedStore

	// memoryCatalog заполнен только в memory-режиме (для демо-каталога).
	memoryCatalog *memory.CatalogRepository
	productCache  *redis.ProductCache

	probes  map[string]func(ctx context.Context) error
	closers []func() error
}

func (d *runtimeDependencies) closeFn() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	return errors.Join(errs...)
}

// initRuntimeDependencies поднимает хранилище и, если задан адрес, redis.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	deps := &runtimeDependencies{probes: map[string]func(ctx context.Context) error{}}

	switch cfg.StorageDriver {
	case StorageDriverMemory:
		initMemoryStorage(deps)
		logger.Info("using in-memory storage")
	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("postgres storage driver requires dsn")
		}
		if err := initPostgresStorage(ctx, cfg, deps, logger); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	deps.recent = memory.NewRecentlyViewedStore()
	if cfg.RedisAddr != "" {
		client, err := redis.Open(ctx, cfg.RedisAddr)
		if err != nil {
			_ = deps.closeFn()
			return nil, err
		}
		deps.recent = redis.NewRecentlyViewedStore(client)
		deps.productCache = redis.NewProductCache(client, 0)
		deps.probes["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		deps.closers = append(deps.closers, client.Close)
		logger.WithField("addr", cfg.RedisAddr).Info("redis connected")
	}
	return deps, nil
}

func initMemoryStorage(deps *runtimeDependencies) {
	catalog := memory.NewCatalogRepository()
	outbox := memory.NewOutboxRepository()
	carts, orders := memory.NewCommerceRepositories(catalog, outbox)

	deps.memoryCatalog = catalog
	deps.products = catalog
	deps.carts = carts
	deps.orders = orders
	deps.outboxRepo = outbox
	deps.timelineRepo = memory.NewTimelineRepository()
	deps.idempotencyRepo = memory.NewIdempotencyRepository()
	deps.users = memory.NewUserRepository()
	deps.wishlist = memory.NewWishlistRepository()
	deps.addresses = memory.NewAddressRepository()
}

func initPostgresStorage(ctx context.Context, cfg Config, deps *runtimeDependencies, logger *log.Entry) error {
	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	if cfg.PostgresAutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("postgres schema is up to date")
	}

	deps.products = postgres.NewCatalogRepository(store)
	deps.carts = postgres.NewCartRepository(store)
	deps.orders = postgres.NewOrderRepository(store)
	deps.outboxRepo = postgres.NewOutboxRepository(store)
	deps.timelineRepo = postgres.NewTimelineRepository(store)
	deps.idempotencyRepo = postgres.NewIdempotencyRepository(store)
	deps.users = postgres.NewUserRepository(store)
	deps.wishlist = postgres.NewWishlistRepository(store)
	deps.addresses = postgres.NewAddressRepository(store)

	deps.probes["postgres"] = store.Ping
	deps.closers = append(deps.closers, store.Close)
	logger.Info("using postgres storage")
	return nil
}

// registerProbes подключает проверки хранилищ к health handler.
// Postgres критичен для готовности, redis только ухудшает работу.
func (d *runtimeDependencies) registerProbes(h *health.Handler) {
	if p, ok := d.probes["postgres"]; ok {
		h.Critical("postgres", p)
	}
	if p, ok := d.probes["redis"]; ok {
		h.Optional("redis", p)
	}
}
