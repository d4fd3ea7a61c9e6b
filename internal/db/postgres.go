package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/WailSalutem-Health-Care/appointment-service/internal/config"
)

// Connect opens an instrumented PostgreSQL pool and verifies it with a ping.
func Connect(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	attrs := otelsql.WithAttributes(
		semconv.DBSystemPostgreSQL,
		semconv.DBName(cfg.DBName),
	)

	db, err := otelsql.Open("postgres", cfg.DSN(), attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := otelsql.RegisterDBStatsMetrics(db, attrs); err != nil {
		log.Warn().Err(err).Msg("failed to register database stats metrics")
	}

	db.SetMaxOpenConns(cfg.DBMaxOpen)
	db.SetMaxIdleConns(cfg.DBMaxIdle)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("database", cfg.DBName).
		Str("timezone", cfg.Timezone).
		Int("max_open_conns", cfg.DBMaxOpen).
		Msg("connected to PostgreSQL")
	return db, nil
}

// IsolationLevel maps DB_TX_ISOLATION onto database/sql.
func IsolationLevel(name string) sql.IsolationLevel {
	if name == "serializable" {
		return sql.LevelSerializable
	}
	return sql.LevelReadCommitted
}
