package invitation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vowcraft/internal/domain"
	"vowcraft/internal/domain/models/history"
	models "vowcraft/internal/domain/models/invitation"
	"vowcraft/internal/domain/models/patch"
	invitationRepo "vowcraft/internal/domain/repositories/invitation"
	"vowcraft/internal/domain/services"
	invitationSvc "vowcraft/internal/domain/services/invitation"
	"vowcraft/internal/service/commit"
)

// documentService implements the DocumentService interface
type documentService struct {
	docRepo    invitationRepo.DocumentRepository
	editLog    invitationRepo.EditLogRepository
	committer  *commit.Committer
	authorizer services.ResourceAuthorizer
	logger     *slog.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	docRepo invitationRepo.DocumentRepository,
	editLog invitationRepo.EditLogRepository,
	committer *commit.Committer,
	authorizer services.ResourceAuthorizer,
	logger *slog.Logger,
) invitationSvc.DocumentService {
	return &documentService{
		docRepo:    docRepo,
		editLog:    editLog,
		committer:  committer,
		authorizer: authorizer,
		logger:     logger,
	}
}

// CreateDocument creates a draft at version 1 from the requested seed
func (s *documentService) CreateDocument(ctx context.Context, req *invitationSvc.CreateDocumentRequest) (*models.Document, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	blocks, wedding, err := models.SeedBlocks(req.Seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if req.Wedding != nil {
		wedding = *req.Wedding
	}

	now := time.Now().UTC()
	doc := &models.Document{
		ID:          uuid.NewString(),
		OwnerID:     req.UserID,
		Title:       req.Title,
		Blocks:      blocks,
		Style:       models.DefaultStyleSystem(),
		WeddingData: wedding,
		Status:      models.StatusDraft,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := models.ValidateDocument(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("document created",
		"id", doc.ID,
		"user_id", req.UserID,
		"seed", req.Seed,
		"blocks", len(doc.Blocks),
	)
	return doc, nil
}

// GetDocument retrieves the committed document
func (s *documentService) GetDocument(ctx context.Context, userID, documentID string) (*models.Document, error) {
	if err := s.authorizer.CanAccessDocument(ctx, userID, documentID); err != nil {
		return nil, err
	}
	return s.docRepo.GetByID(ctx, documentID)
}

// ListDocuments lists the caller's documents, most recently updated first
func (s *documentService) ListDocuments(ctx context.Context, userID string) ([]models.Document, error) {
	return s.docRepo.ListByOwner(ctx, userID)
}

// PatchDocument commits a manual patch set
func (s *documentService) PatchDocument(ctx context.Context, userID, documentID string, req *invitationSvc.PatchRequest) (*invitationSvc.CommitResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.authorizer.CanAccessDocument(ctx, userID, documentID); err != nil {
		return nil, err
	}

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	return s.commit(ctx, &commit.Request{
		UserID:      userID,
		Document:    doc,
		BaseVersion: req.BaseVersion,
		Patch:       req.Ops,
		Source:      history.SourceManual,
		Audit:       req.Audit,
	})
}

// ChangeStatus publishes, unpublishes or archives the document. Status changes
// are always logged.
func (s *documentService) ChangeStatus(ctx context.Context, userID, documentID string, req *invitationSvc.StatusRequest) (*invitationSvc.CommitResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.authorizer.CanAccessDocument(ctx, userID, documentID); err != nil {
		return nil, err
	}

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	op, err := patch.Replace("/status", req.Status)
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, &commit.Request{
		UserID:      userID,
		Document:    doc,
		BaseVersion: req.BaseVersion,
		Patch:       patch.Patch{op},
		Source:      history.SourceManual,
		Prompt:      fmt.Sprintf("status %s -> %s", doc.Status, req.Status),
		Audit:       true,
	})
}

// ListHistory returns the newest limit log entries, oldest first
func (s *documentService) ListHistory(ctx context.Context, userID, documentID string, limit int) ([]history.Entry, error) {
	if err := s.authorizer.CanAccessDocument(ctx, userID, documentID); err != nil {
		return nil, err
	}
	return s.editLog.ListByDocument(ctx, documentID, limit)
}

// UndoEdit applies a committed edit's inverse at the version that edit produced.
// If the document has moved on since, the undo conflicts rather than merging.
func (s *documentService) UndoEdit(ctx context.Context, userID, editID string) (*invitationSvc.CommitResult, error) {
	if err := s.authorizer.CanAccessEdit(ctx, userID, editID); err != nil {
		return nil, err
	}

	entry, err := s.editLog.GetByID(ctx, editID)
	if err != nil {
		return nil, err
	}
	if !entry.Committed() || len(entry.Inverse) == 0 {
		return nil, domain.NewValidation("edit %s did not commit a change and cannot be undone", editID)
	}

	doc, err := s.docRepo.GetByID(ctx, entry.DocumentID)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("undoing edit",
		"edit_id", editID,
		"document_id", entry.DocumentID,
		"edit_version", *entry.ResultVersion,
		"current_version", doc.Version,
	)
	return s.commit(ctx, &commit.Request{
		UserID:      userID,
		Document:    doc,
		BaseVersion: *entry.ResultVersion,
		Patch:       entry.Inverse,
		Source:      history.SourceUndo,
		Prompt:      "undo " + editID,
		Audit:       true,
	})
}

func (s *documentService) commit(ctx context.Context, req *commit.Request) (*invitationSvc.CommitResult, error) {
	res, err := s.committer.Commit(ctx, req)
	if err != nil {
		return nil, err
	}
	out := &invitationSvc.CommitResult{
		Document: res.Document,
		Patch:    req.Patch,
		Inverse:  res.Inverse,
		Changed:  res.Changed,
	}
	if res.Entry != nil {
		out.EditID = res.Entry.ID
	}
	return out, nil
}
