package db

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/nkapur/syncbridge/internal/config"
)

// Open creates the PostgreSQL connection pool shared by the consumer and the
// stats API. The sink must be reachable at startup; callers treat an error
// here as fatal.
func Open(ctx context.Context, c *config.Config) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPassword),
		c.DBHost, c.DBPort, c.DBName)

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	// Connection pool configuration
	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Second
	cfg.HealthCheckPeriod = time.Minute
	cfg.ConnConfig.ConnectTimeout = 2 * time.Second

	// Managed Postgres requires TLS but presents a cert that does not verify
	// (Render convention), so verification stays off.
	if c.Production {
		cfg.ConnConfig.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info().
		Str("host", c.DBHost).
		Str("database", c.DBName).
		Int32("max_conns", cfg.MaxConns).
		Bool("tls", c.Production).
		Msg("postgres connection pool created")

	return pool, nil
}
