package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"billing-api/internal/config"
)

const usersSchema = `
	CREATE TABLE IF NOT EXISTS users (
		id                  TEXT PRIMARY KEY,
		email               VARCHAR(120) NOT NULL UNIQUE,
		password_hash       VARCHAR(256),
		customer_id         VARCHAR(120) NOT NULL,
		subscription_id     VARCHAR(120) NOT NULL,
		subscription_status VARCHAR(50) NOT NULL,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS users_customer_id_idx ON users (customer_id);
`

// NewPool construye y devuelve un pool de conexiones configurado.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second

	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// Ping verifica conectividad con la base de datos.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	return pool.Ping(ctx)
}

// EnsureSchema crea la tabla de usuarios si todavia no existe.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, usersSchema)
	return err
}
