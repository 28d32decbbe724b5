package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/georef-cli/internal/config"
	"github.com/sells-group/georef-cli/internal/resilience"
)

// dbPool connects to the configured database, retrying transient connection
// failures up to store.connect_attempts times.
func dbPool(ctx context.Context) (*pgxpool.Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "db: parse database_url")
	}
	if cfg.Store.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Store.MaxConns
	}

	pool, err := resilience.Retry(ctx, connectPolicy(cfg.Store), func(ctx context.Context) (*pgxpool.Pool, error) {
		p, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, eris.Wrap(err, "db: create connection pool")
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return nil, eris.Wrap(err, "db: ping database")
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Debug("connected to database", zap.Int32("max_conns", poolCfg.MaxConns))
	return pool, nil
}

// connectPolicy maps the store settings onto the connect retry policy.
func connectPolicy(sc config.StoreConfig) resilience.Policy {
	return resilience.Policy{
		Attempts: sc.ConnectAttempts,
		Delay:    sc.ConnectDelay,
		MaxDelay: sc.ConnectMaxDelay,
		OnRetry:  resilience.RetryLogger("db.connect"),
	}
}
