package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vowcraft/internal/domain/repositories"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Prefix    string
	Documents string
	Branches  string
	EditLogs  string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Prefix:    prefix,
		Documents: fmt.Sprintf("%sdocuments", prefix),
		Branches:  fmt.Sprintf("%sbranches", prefix),
		EditLogs:  fmt.Sprintf("%sedit_logs", prefix),
	}
}

// CreateConnectionPool creates a pgx connection pool.
//
// Port 6543 is the Supabase transaction pooler (PgBouncer), which does not support
// prepared statements. On that port the pool switches to QueryExecModeCacheDescribe,
// which keeps the extended protocol (needed for jsonb parameters) without preparing
// statements. A default_query_exec_mode parameter in the URL takes precedence.
//
// Table names are interpolated with fmt.Sprintf before the SQL reaches the server, so
// each prefix (dev_, test_, prod_) gets its own statements.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 2

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

//go:embed schema.sql
var schemaSQL string

// Migrate creates the tables for the configured prefix if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	ddl := strings.ReplaceAll(schemaSQL, "{{prefix}}", tables.Prefix)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// GetExecutor returns the appropriate query executor for the context.
// If a transaction is present in the context, it returns the transaction.
// Otherwise, it returns the provided pool.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
