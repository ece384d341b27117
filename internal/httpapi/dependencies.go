package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"agent_gateway/internal/billing"
	"agent_gateway/internal/config"
	"agent_gateway/internal/logging"
	"agent_gateway/internal/metrics"
	"agent_gateway/internal/pricing"
	"agent_gateway/internal/providers"
	"agent_gateway/internal/queue"
	"agent_gateway/internal/registry"
	"agent_gateway/internal/resolver"
	"agent_gateway/internal/responder"
	"agent_gateway/internal/storage"
)

// UsageQueue exposes the async usage pipeline to operators.
type UsageQueue interface {
	QueueLength(ctx context.Context) (int, error)
	DeadLetterItems(ctx context.Context, maxItems int) ([]queue.DeadLetterItem, error)
	RetryDeadLetterItem(ctx context.Context, id string) error
}

// Dependencies aggregates all services the HTTP layer needs.
type Dependencies struct {
	Store      storage.Store
	Registry   *registry.Registry
	Resolver   *resolver.Resolver
	Aggregator *billing.Aggregator
	Responder  *responder.Responder
	Catalog    *pricing.Catalog
	Metrics    metrics.Metrics
	// MetricsHandler serves /metrics; the route is omitted when nil.
	MetricsHandler http.Handler
	// UsageQueue is nil when usage is appended inline.
	UsageQueue UsageQueue

	worker *storage.UsageQueueWorker
	// drain is set for in-process queues, which lose whatever is left on exit.
	drain  queue.Queue
	redis  *redis.Client
}

// NewDependencies opens storage and wires every service from cfg.
// Call Shutdown to stop the usage worker and release connections.
func NewDependencies(ctx context.Context, cfg *config.Config, completer providers.Completer) (*Dependencies, error) {
	logger := logging.NewLogger("bootstrap")

	catalog := pricing.Default()
	if cfg.PricingFile != "" {
		c, err := pricing.LoadFile(cfg.PricingFile)
		if err != nil {
			return nil, err
		}
		catalog = c
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	vault, err := storage.NewVault(cfg.EncryptionKey, cfg.Cache.CredentialCacheSize, cfg.Cache.CredentialCacheTTL)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize credential vault: %w", err)
	}

	prom := metrics.NewPrometheus()
	deps := &Dependencies{
		Store:          store,
		Catalog:        catalog,
		Metrics:        prom,
		MetricsHandler: prom.Handler(),
	}

	var appender storage.UsageAppender = store
	if cfg.Usage.Async {
		worker, err := deps.startUsageWorker(ctx, cfg, store)
		if err != nil {
			store.Close()
			return nil, err
		}
		appender = worker
	}

	if completer == nil {
		completer = providers.NewOpenAICompatible(cfg.Providers.BaseURLs, cfg.Providers.RequestTimeout)
	}

	deps.Registry = registry.New(store, catalog, vault)
	deps.Resolver = resolver.New(store, vault, cfg.Providers.APIKeys, prom)
	deps.Aggregator = billing.NewAggregator(store, cfg.Billing.DisplayCurrency)
	ledger := billing.NewLedger(appender, catalog, cfg.Billing.ExchangeRate, prom)
	deps.Responder = responder.New(store, deps.Resolver, completer, ledger, prom)

	logger.Info().
		Str("store", cfg.StoreDriver).
		Bool("usage_async", cfg.Usage.Async).
		Int("pricing_entries", len(catalog.Entries())).
		Msg("dependencies initialized")
	return deps, nil
}

// OpenStore returns the configured store, migrating Postgres first.
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.StoreDriver == "memory" {
		return storage.NewMemoryStore(), nil
	}

	db, err := storage.NewDB(storage.DBConfig{
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return storage.NewPostgresStore(db), nil
}

func (d *Dependencies) startUsageWorker(ctx context.Context, cfg *config.Config, store storage.UsageStore) (*storage.UsageQueueWorker, error) {
	qcfg := &queue.Config{
		QueueName:    cfg.Usage.QueueName,
		BatchSize:    cfg.Usage.BatchSize,
		BatchTimeout: cfg.Usage.BatchTimeout,
		MaxRetries:   cfg.Usage.MaxRetries,
		RetryBackoff: cfg.Usage.RetryBackoff,
	}

	var (
		q   queue.Queue
		dlq queue.DeadLetterQueue
	)
	switch cfg.Usage.QueueBackend {
	case "redis":
		client, err := queue.NewRedisClient(ctx, queue.RedisOptions{
			Address:      cfg.Redis.Address,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return nil, err
		}
		d.redis = client
		q = queue.NewRedisQueue(client, qcfg)
		dlq = queue.NewRedisDeadLetterQueue(client, qcfg)
	case "memory", "":
		q = queue.NewMemoryQueue(qcfg)
		dlq = queue.NewMemoryDeadLetterQueue()
		d.drain = q
	default:
		return nil, fmt.Errorf("unknown usage queue backend %q", cfg.Usage.QueueBackend)
	}

	worker := storage.NewUsageQueueWorker(q, dlq, store, qcfg)
	worker.Start(context.Background())
	d.worker = worker
	d.UsageQueue = worker
	return worker, nil
}

// Shutdown flushes and stops the usage worker, then closes Redis and the store.
func (d *Dependencies) Shutdown(ctx context.Context) error {
	var errs []error
	if d.worker != nil {
		if d.drain != nil {
			if err := d.drain.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close usage queue: %w", err))
			}
			select {
			case <-d.worker.Done():
			case <-ctx.Done():
				errs = append(errs, fmt.Errorf("usage queue not drained: %w", ctx.Err()))
			}
		}
		if err := d.worker.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop usage worker: %w", err))
		}
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
