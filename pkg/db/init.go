package db

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/FrontGate/FrontGate/pkg/common"
	"github.com/FrontGate/FrontGate/pkg/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jpillora/backoff"
	"golang.org/x/sync/errgroup"
)

const (
	pingAttempts = 5
)

var (
	connectOnce      sync.Once
	globalPool       *pgxpool.Pool
	globalClickhouse *sql.DB
	globalDBErr      error
)

func Connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, *sql.DB, error) {
	connectOnce.Do(func() {
		globalPool, globalClickhouse, globalDBErr = connectEx(ctx, cfg, false /*migrate*/)
	})
	return globalPool, globalClickhouse, globalDBErr
}

func Migrate(ctx context.Context, cfg *config.Config) error {
	pool, clickhouse, err := connectEx(ctx, cfg, true /*migrate*/)
	if err != nil {
		return err
	}

	defer pool.Close()
	defer clickhouse.Close()

	return err
}

// pingRetried gives freshly started database containers time to come up.
func pingRetried(ctx context.Context, ping func(context.Context) error) error {
	b := &backoff.Backoff{
		Min:    250 * time.Millisecond,
		Max:    5 * time.Second,
		Jitter: true,
	}

	var err error
	for i := 0; i < pingAttempts; i++ {
		if err = ping(ctx); err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.Duration()):
		}
	}

	return err
}

func connectEx(ctx context.Context, cfg *config.Config, migrate bool) (pool *pgxpool.Pool, clickhouse *sql.DB, err error) {
	errs, ctx := errgroup.WithContext(ctx)

	errs.Go(func() error {
		opts := ClickHouseConnectOpts{
			Host:     cfg.Getenv("FG_CLICKHOUSE_HOST"),
			Database: cfg.Getenv("FG_CLICKHOUSE_DB"),
			User:     cfg.ClickHouseUser(migrate),
			Password: cfg.ClickHousePassword(migrate),
			Port:     9000,
			Verbose:  cfg.Verbose(),
		}
		clickhouse = connectClickhouse(ctx, opts)
		if perr := pingRetried(ctx, func(context.Context) error { return clickhouse.Ping() }); perr != nil {
			return perr
		}

		if migrate {
			return migrateClickhouse(common.TraceContext(ctx, "clickhouse"), clickhouse, opts.Database)
		}

		return nil
	})

	errs.Go(func() error {
		var perr error
		pool, perr = connectPostgres(ctx, postgresURL(cfg, migrate))
		if perr != nil {
			return perr
		}
		if perr := pingRetried(ctx, pool.Ping); perr != nil {
			return perr
		}

		if migrate {
			return migratePostgres(common.TraceContext(ctx, "postgres"), pool)
		}

		return nil
	})

	err = errs.Wait()

	return
}
