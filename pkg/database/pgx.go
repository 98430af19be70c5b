package database

import (
	"context"
	"fmt"
	"log"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PSQL is the squirrel builder with postgres placeholders.
var PSQL = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ConnectPool opens a pgx pool, retrying until the deadline passes.
func ConnectPool(url string, maxConns int32, wait time.Duration) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	var pool *pgxpool.Pool

	deadline := time.Now().Add(wait)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		pool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err == nil {
			if pingErr := pool.Ping(ctx); pingErr == nil {
				cancel()
				return pool, nil
			} else {
				err = pingErr
			}
			pool.Close()
		}
		cancel()

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("failed to connect database after retries: %w", err)
		}
		log.Printf("⚠️ database not ready, retrying: %v", err)
		time.Sleep(time.Second)
	}
}

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func QueryRows(ctx context.Context, db Querier, q sq.Sqlizer) (pgx.Rows, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	return db.Query(ctx, sql, args...)
}

func QueryRow(ctx context.Context, db Querier, q sq.Sqlizer) (pgx.Row, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	return db.QueryRow(ctx, sql, args...), nil
}
