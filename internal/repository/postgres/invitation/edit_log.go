package invitation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vowcraft/internal/domain"
	"vowcraft/internal/domain/models/history"
	repo "vowcraft/internal/domain/repositories/invitation"
	"vowcraft/internal/repository/postgres"
)

// PostgresEditLogRepository implements the EditLogRepository interface.
// The table is insert-only; no statement here updates or deletes rows.
type PostgresEditLogRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewEditLogRepository creates a new edit log repository
func NewEditLogRepository(config *postgres.RepositoryConfig) repo.EditLogRepository {
	return &PostgresEditLogRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// nullableJSON encodes v, mapping empty values to SQL NULL.
func nullableJSON[T any](v []T) ([]byte, error) {
	if len(v) == 0 {
		return nil, nil
	}
	return json.Marshal(v)
}

// Append inserts an entry
func (r *PostgresEditLogRepository) Append(ctx context.Context, entry *history.Entry) error {
	scope, err := nullableJSON(entry.Scope)
	if err != nil {
		return fmt.Errorf("encode scope: %w", err)
	}
	patchJSON, err := nullableJSON(entry.Patch)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	inverseJSON, err := nullableJSON(entry.Inverse)
	if err != nil {
		return fmt.Errorf("encode inverse: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, user_id, source, base_version, prompt, scope, patch, inverse,
			result_version, outcome, failure_reason, model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, r.tables.EditLogs)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err = executor.Exec(ctx, query,
		entry.ID,
		entry.DocumentID,
		entry.UserID,
		entry.Source,
		entry.BaseVersion,
		entry.Prompt,
		scope,
		patchJSON,
		inverseJSON,
		entry.ResultVersion,
		entry.Outcome,
		entry.FailureReason,
		entry.Model,
		entry.CreatedAt,
	)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return fmt.Errorf("edit log entry %s already exists: %w", entry.ID, domain.ErrConflict)
		}
		return fmt.Errorf("append edit log entry: %w", err)
	}
	return nil
}

const entrySelect = `SELECT id, document_id, user_id, source, base_version, prompt, scope, patch, inverse,
	result_version, outcome, failure_reason, model, created_at FROM %s`

func scanEntry(row pgx.Row) (*history.Entry, error) {
	var (
		e                     history.Entry
		scope, patch, inverse []byte
	)
	if err := row.Scan(
		&e.ID,
		&e.DocumentID,
		&e.UserID,
		&e.Source,
		&e.BaseVersion,
		&e.Prompt,
		&scope,
		&patch,
		&inverse,
		&e.ResultVersion,
		&e.Outcome,
		&e.FailureReason,
		&e.Model,
		&e.CreatedAt,
	); err != nil {
		return nil, err
	}
	for _, col := range []struct {
		raw  []byte
		dest interface{}
	}{{scope, &e.Scope}, {patch, &e.Patch}, {inverse, &e.Inverse}} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dest); err != nil {
			return nil, fmt.Errorf("decode edit log entry %s: %w", e.ID, err)
		}
	}
	return &e, nil
}

// GetByID retrieves a single entry
func (r *PostgresEditLogRepository) GetByID(ctx context.Context, id string) (*history.Entry, error) {
	query := fmt.Sprintf(entrySelect+` WHERE id = $1`, r.tables.EditLogs)

	executor := postgres.GetExecutor(ctx, r.pool)
	e, err := scanEntry(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, domain.NewNotFound("edit", id)
		}
		return nil, fmt.Errorf("get edit log entry: %w", err)
	}
	return e, nil
}

// ListByDocument returns the latest limit entries of a document, oldest first.
// ULID ids sort by creation time.
func (r *PostgresEditLogRepository) ListByDocument(ctx context.Context, documentID string, limit int) ([]history.Entry, error) {
	if limit <= 0 {
		limit = 1000
	}
	query := fmt.Sprintf(`
		SELECT * FROM (`+entrySelect+` WHERE document_id = $1 ORDER BY id DESC LIMIT $2) latest
		ORDER BY id
	`, r.tables.EditLogs)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list edit log: %w", err)
	}
	defer rows.Close()

	entries := []history.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan edit log entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edit log: %w", err)
	}
	return entries, nil
}
