package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-books/internal/masterdata"
	"github.com/odyssey-erp/odyssey-books/internal/observability"
	"github.com/odyssey-erp/odyssey-books/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-books/internal/platform/db"
	"github.com/odyssey-erp/odyssey-books/internal/posting"
	postinghttp "github.com/odyssey-erp/odyssey-books/internal/posting/http"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
	"github.com/odyssey-erp/odyssey-books/internal/statement"
	statementhttp "github.com/odyssey-erp/odyssey-books/internal/statement/http"
	"github.com/odyssey-erp/odyssey-books/internal/storage"
	"github.com/odyssey-erp/odyssey-books/internal/storage/memory"
	"github.com/odyssey-erp/odyssey-books/internal/storage/postgres"
	"github.com/odyssey-erp/odyssey-books/jobs"
	"github.com/odyssey-erp/odyssey-books/migrations"
)

// Books is the assembled application: one storage backend, the posting
// engine writing to it and the readers on top.
type Books struct {
	Config  *Config
	Logger  *slog.Logger
	Backend storage.Backend
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Metrics *observability.Metrics

	MasterData  *masterdata.Service
	Engine      *posting.Engine
	Statements  *statement.Reader
	Formatter   *statement.Formatter
	Idempotency *shared.IdempotencyStore
}

// OpenBackend selects the storage backend named by the configuration. The
// pool is nil for the memory backend.
func OpenBackend(ctx context.Context, cfg *Config, logger *slog.Logger) (storage.Backend, *pgxpool.Pool, error) {
	switch cfg.StorageBackend {
	case BackendMemory:
		logger.Warn("using in-memory storage; data is lost on exit")
		return memory.New(), nil, nil
	case BackendPostgres:
		if cfg.PGMigrate {
			if err := db.Migrate(cfg.PGDSN, migrations.FS, logger); err != nil {
				return nil, nil, err
			}
		}
		pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			return nil, nil, err
		}
		return postgres.New(pool), pool, nil
	default:
		return nil, nil, fmt.Errorf("app: unknown storage backend %q", cfg.StorageBackend)
	}
}

// Open wires every component. Redis is optional: when it is unreachable the
// statement cache is disabled and reads go straight to storage.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger) (*Books, error) {
	backend, pool, err := OpenBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	b := &Books{
		Config:  cfg,
		Logger:  logger,
		Backend: backend,
		Pool:    pool,
		Metrics: observability.NewMetrics(),
	}

	var stmtCache *statement.Cache
	if cfg.RedisAddr != "" {
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("statement cache disabled", slog.Any("error", err))
		} else {
			b.Redis = client
			stmtCache = statement.NewCache(client, cfg.StatementCacheTTL)
		}
	}

	var audit posting.AuditPort = shared.SlogAuditor{Logger: logger}
	if pool != nil {
		audit = shared.NewAuditLogger(pool)
		b.Idempotency = shared.NewIdempotencyStore(pool)
	}

	b.MasterData = masterdata.NewService(storage.ForMasterdata(backend), nil, audit)
	deps := posting.Deps{
		Logger:  logger,
		Audit:   audit,
		Metrics: posting.NewMetrics(b.Metrics.Registerer()),
	}
	if stmtCache != nil {
		deps.Cache = stmtCache
	}
	b.Engine = posting.NewEngine(backend, deps)
	b.Statements = statement.NewReader(backend, stmtCache, logger)
	b.Formatter = statement.NewFormatter(cfg.CurrencySymbol, cfg.CompanyName, cfg.CurrencyLocale)
	return b, nil
}

// Handler builds the HTTP router. jobHandler may be nil when no queue is
// configured.
func (b *Books) Handler(jobHandler *jobs.Handler) http.Handler {
	var idem postinghttp.IdempotencyPort
	if b.Idempotency != nil {
		idem = b.Idempotency
	}
	return NewRouter(RouterParams{
		Logger:            b.Logger,
		Config:            b.Config,
		Metrics:           b.Metrics,
		MasterDataHandler: masterdata.NewHandler(b.Logger, b.MasterData),
		PostingHandler:    postinghttp.NewHandler(b.Logger, b.Engine, idem).WithWriteLimit(b.Config.WriteRateLimit),
		StatementHandler:  statementhttp.NewHandler(b.Logger, b.Statements, b.Formatter),
		JobHandler:        jobHandler,
	})
}

// Close releases the backend and the Redis connection.
func (b *Books) Close() {
	if b.Redis != nil {
		_ = b.Redis.Close()
	}
	if b.Backend != nil {
		b.Backend.Close()
	}
}
