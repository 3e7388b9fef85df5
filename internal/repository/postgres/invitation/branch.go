package invitation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vowcraft/internal/domain"
	models "vowcraft/internal/domain/models/invitation"
	repo "vowcraft/internal/domain/repositories/invitation"
	"vowcraft/internal/repository/postgres"
)

// PostgresBranchRepository implements the BranchRepository interface.
// The branch document is one jsonb column; its version is mirrored in a column
// so conditional writes need not parse json.
type PostgresBranchRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewBranchRepository creates a new branch repository
func NewBranchRepository(config *postgres.RepositoryConfig) repo.BranchRepository {
	return &PostgresBranchRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a branch
func (r *PostgresBranchRepository) Create(ctx context.Context, branch *models.Branch) error {
	doc, err := json.Marshal(branch.Document)
	if err != nil {
		return fmt.Errorf("encode branch document: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, origin_document_id, origin_version, name, document, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.tables.Branches)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err = executor.Exec(ctx, query,
		branch.ID,
		branch.OriginDocumentID,
		branch.OriginVersion,
		branch.Name,
		doc,
		branch.Version(),
		branch.CreatedAt,
	)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return fmt.Errorf("branch %s already exists: %w", branch.ID, domain.ErrConflict)
		}
		if postgres.IsPgForeignKeyError(err) {
			return domain.NewNotFound("document", branch.OriginDocumentID)
		}
		return fmt.Errorf("create branch: %w", err)
	}
	return nil
}

const branchSelect = `SELECT id, origin_document_id, origin_version, name, document, created_at FROM %s`

func scanBranch(row pgx.Row) (*models.Branch, error) {
	var (
		b   models.Branch
		doc []byte
	)
	if err := row.Scan(&b.ID, &b.OriginDocumentID, &b.OriginVersion, &b.Name, &doc, &b.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(doc, &b.Document); err != nil {
		return nil, fmt.Errorf("decode branch document of %s: %w", b.ID, err)
	}
	return &b, nil
}

// GetByID retrieves a branch
func (r *PostgresBranchRepository) GetByID(ctx context.Context, id string) (*models.Branch, error) {
	query := fmt.Sprintf(branchSelect+` WHERE id = $1`, r.tables.Branches)

	executor := postgres.GetExecutor(ctx, r.pool)
	b, err := scanBranch(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, domain.NewNotFound("branch", id)
		}
		return nil, fmt.Errorf("get branch: %w", err)
	}
	return b, nil
}

// ListByOrigin lists branches of a document in creation order
func (r *PostgresBranchRepository) ListByOrigin(ctx context.Context, documentID string) ([]models.Branch, error) {
	query := fmt.Sprintf(branchSelect+` WHERE origin_document_id = $1 ORDER BY seq`, r.tables.Branches)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer rows.Close()

	branches := []models.Branch{}
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		branches = append(branches, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate branches: %w", err)
	}
	return branches, nil
}

// UpdateIfVersion writes the branch document when the stored version equals expectedVersion
func (r *PostgresBranchRepository) UpdateIfVersion(ctx context.Context, branch *models.Branch, expectedVersion int) error {
	doc, err := json.Marshal(branch.Document)
	if err != nil {
		return fmt.Errorf("encode branch document: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s SET document = $3, version = $4, name = $5
		WHERE id = $1 AND version = $2
	`, r.tables.Branches)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, branch.ID, expectedVersion, doc, branch.Version(), branch.Name)
	if err != nil {
		return fmt.Errorf("update branch: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var actual int
	versionQuery := fmt.Sprintf(`SELECT version FROM %s WHERE id = $1`, r.tables.Branches)
	if err := executor.QueryRow(ctx, versionQuery, branch.ID).Scan(&actual); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return domain.NewNotFound("branch", branch.ID)
		}
		return fmt.Errorf("read branch version: %w", err)
	}
	return &domain.ConflictError{
		ResourceType:    "branch",
		ResourceID:      branch.ID,
		ExpectedVersion: expectedVersion,
		ActualVersion:   actual,
	}
}

// Delete removes a branch
func (r *PostgresBranchRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Branches)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFound("branch", id)
	}
	return nil
}
