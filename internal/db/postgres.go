package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/syedazmehaider/maxlife-diet-planner/internal/logger"
)

// Connect opens a pool against dsn, pings it and makes sure the account
// schema exists.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, errors.New("DATABASE_URL not set")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}

	logger.Info("connected to postgres", zap.String("host", config.ConnConfig.Host))

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return pool, nil
}

// schema is applied in order on every start; each statement is idempotent.
var schema = []string{
	// -------------------------------
	// DIETITIANS
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS dietitians (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) UNIQUE NOT NULL,
		password VARCHAR(255) NOT NULL,
		role VARCHAR(50) NOT NULL DEFAULT 'DIETITIAN',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`ALTER TABLE dietitians
		ADD COLUMN IF NOT EXISTS role VARCHAR(50) NOT NULL DEFAULT 'DIETITIAN'`,
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	logger.Info("schema initialized")
	return nil
}
