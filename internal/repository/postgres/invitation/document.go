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

// PostgresDocumentRepository implements the DocumentRepository interface.
// Blocks, style and wedding data are stored as jsonb columns.
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *postgres.RepositoryConfig) repo.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

type documentColumns struct {
	blocks  []byte
	style   []byte
	wedding []byte
}

func encodeDocument(doc *models.Document) (*documentColumns, error) {
	blocks, err := json.Marshal(doc.Blocks)
	if err != nil {
		return nil, fmt.Errorf("encode blocks: %w", err)
	}
	style, err := json.Marshal(doc.Style)
	if err != nil {
		return nil, fmt.Errorf("encode style: %w", err)
	}
	wedding, err := json.Marshal(doc.WeddingData)
	if err != nil {
		return nil, fmt.Errorf("encode wedding data: %w", err)
	}
	return &documentColumns{blocks: blocks, style: style, wedding: wedding}, nil
}

// Create inserts a document at its initial version
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	cols, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, owner_id, title, blocks, style, wedding, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err = executor.Exec(ctx, query,
		doc.ID,
		doc.OwnerID,
		doc.Title,
		cols.blocks,
		cols.style,
		cols.wedding,
		doc.Status,
		doc.Version,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return fmt.Errorf("document %s already exists: %w", doc.ID, domain.ErrConflict)
		}
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

const documentSelect = `SELECT id, owner_id, title, blocks, style, wedding, status, version, created_at, updated_at FROM %s`

func scanDocument(row pgx.Row) (*models.Document, error) {
	var (
		doc                    models.Document
		blocks, style, wedding []byte
	)
	if err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.Title,
		&blocks,
		&style,
		&wedding,
		&doc.Status,
		&doc.Version,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(blocks, &doc.Blocks); err != nil {
		return nil, fmt.Errorf("decode blocks of %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal(style, &doc.Style); err != nil {
		return nil, fmt.Errorf("decode style of %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal(wedding, &doc.WeddingData); err != nil {
		return nil, fmt.Errorf("decode wedding data of %s: %w", doc.ID, err)
	}
	return &doc, nil
}

// GetByID retrieves the committed document
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf(documentSelect+` WHERE id = $1`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, domain.NewNotFound("document", id)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// GetOwnerID reads only the owner column
func (r *PostgresDocumentRepository) GetOwnerID(ctx context.Context, id string) (string, error) {
	query := fmt.Sprintf(`SELECT owner_id FROM %s WHERE id = $1`, r.tables.Documents)

	var ownerID string
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, id).Scan(&ownerID); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return "", domain.NewNotFound("document", id)
		}
		return "", fmt.Errorf("get document owner: %w", err)
	}
	return ownerID, nil
}

// UpdateIfVersion writes doc only when the stored version equals expectedVersion.
// The version predicate makes the write a compare-and-swap: of two writers holding
// the same expected version, the second matches zero rows.
func (r *PostgresDocumentRepository) UpdateIfVersion(ctx context.Context, doc *models.Document, expectedVersion int) error {
	cols, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $3, blocks = $4, style = $5, wedding = $6, status = $7, version = $8, updated_at = $9
		WHERE id = $1 AND version = $2
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query,
		doc.ID,
		expectedVersion,
		doc.Title,
		cols.blocks,
		cols.style,
		cols.wedding,
		doc.Status,
		doc.Version,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var actual int
	versionQuery := fmt.Sprintf(`SELECT version FROM %s WHERE id = $1`, r.tables.Documents)
	if err := executor.QueryRow(ctx, versionQuery, doc.ID).Scan(&actual); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return domain.NewNotFound("document", doc.ID)
		}
		return fmt.Errorf("read document version: %w", err)
	}
	r.logger.Debug("conditional document write lost",
		"document_id", doc.ID,
		"expected_version", expectedVersion,
		"actual_version", actual,
	)
	return &domain.ConflictError{
		ResourceType:    "document",
		ResourceID:      doc.ID,
		ExpectedVersion: expectedVersion,
		ActualVersion:   actual,
	}
}

// ListByOwner lists an owner's documents, most recently updated first
func (r *PostgresDocumentRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Document, error) {
	query := fmt.Sprintf(documentSelect+` WHERE owner_id = $1 ORDER BY updated_at DESC, id`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}
