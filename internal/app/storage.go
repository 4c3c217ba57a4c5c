package app

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-task-tracker/internal/config"
	"github.com/adanyl0v/go-task-tracker/internal/storage"
	"github.com/adanyl0v/go-task-tracker/internal/storage/postgres"
	"github.com/adanyl0v/go-task-tracker/internal/storage/sqlite"
)

func openStore(ctx context.Context, logger zerolog.Logger, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		pgPool, err := connectPostgres(ctx, logger, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return postgres.New(logger, pgPool), nil
	case config.StorageDriverSQLite:
		store, err := sqlite.Open(logger, cfg.SQLite.Path)
		if err != nil {
			logger.Error().
				Err(err).
				Str("path", cfg.SQLite.Path).
				Msg("failed to open sqlite")
			return nil, err
		}
		logger.Info().
			Str("path", cfg.SQLite.Path).
			Msg("opened sqlite")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
}

func postgresURL(cfg config.PostgresConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     cfg.Database,
		RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
	}
	return u.String()
}

func connectPostgres(ctx context.Context, logger zerolog.Logger, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(postgresURL(cfg))
	if err != nil {
		logger.Error().
			Err(err).
			Msg("failed to parse postgres config")
		return nil, err
	}
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pgPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Error().
			Err(err).
			Msg("failed to connect to postgres")
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()

	err = pgPool.Ping(pingCtx)
	if err != nil {
		pgPool.Close()
		logger.Error().
			Err(err).
			Msg("failed to ping postgres")
		return nil, err
	}
	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Msg("connected to postgres")
	return pgPool, nil
}
