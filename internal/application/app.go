// Package application assembles the host data layer from configuration. The
// server and the CLI share it so both see the same item types, rights and
// store.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/etl/internal/authz"
	"github.com/JonMunkholm/etl/internal/config"
	"github.com/JonMunkholm/etl/internal/host"
	_ "github.com/JonMunkholm/etl/internal/host/itemtypes" // register built-in item types
	"github.com/JonMunkholm/etl/internal/migrations"
)

// App holds the assembled collaborators. Pool is nil with the memory store.
type App struct {
	Config  *config.Config
	Pool    *pgxpool.Pool
	Store   host.Store
	Types   *host.TypeRegistry
	Authz   *authz.Authorizer
	Catalog *host.Catalog
}

// New loads item types and rights, then opens the configured store. With
// the postgres store and AutoMigrate set, pending migrations are applied.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	types, err := LoadTypes(cfg.Host.ItemTypesPath)
	if err != nil {
		return nil, err
	}

	az, err := authz.New(cfg.Authz.ModelPath, cfg.Authz.PolicyPath)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Types: types, Authz: az}

	if cfg.Host.UsesPostgres() {
		pool, err := OpenPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		app.Pool = pool
		if cfg.Database.AutoMigrate {
			if err := app.Migrate(ctx); err != nil {
				pool.Close()
				return nil, err
			}
		}
		app.Store = host.NewPGStore(pool)
	} else {
		slog.Warn("using the in-memory item store, items are lost on exit")
		app.Store = host.NewMemStore()
	}

	app.Catalog = host.NewCatalog(types, app.Store, az)

	slog.Info("item types registered", "count", types.Count(), "groups", len(types.Groups()))
	for _, group := range types.Groups() {
		slog.Debug("item type group", "group", group, "types", len(types.ByGroup(group)))
	}
	return app, nil
}

// Migrate applies pending migrations.
func (a *App) Migrate(ctx context.Context) error {
	m, err := a.Migrator()
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up(ctx)
}

// Migrator returns a migrator over the pool. The caller closes it.
func (a *App) Migrator() (*migrations.Migrator, error) {
	if a.Pool == nil {
		return nil, fmt.Errorf("migrations need the postgres store (HOST_STORE=%s)", a.Config.Host.Store)
	}
	return migrations.New(a.Pool)
}

// Close releases the pool.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}

// OpenPool connects and pings PostgreSQL with the pool settings of cfg.
func OpenPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

// LoadTypes copies the built-in item types and adds those of path, if set.
func LoadTypes(path string) (*host.TypeRegistry, error) {
	types := host.NewTypeRegistry()
	for _, t := range host.DefaultTypes.All() {
		types.Register(t)
	}
	if path == "" {
		return types, nil
	}
	n, err := host.LoadItemTypes(types, path)
	if err != nil {
		return nil, err
	}
	slog.Info("item types loaded", "path", path, "count", n)
	return types, nil
}
