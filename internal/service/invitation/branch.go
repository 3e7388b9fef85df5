package invitation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vowcraft/internal/domain"
	"vowcraft/internal/domain/models/history"
	models "vowcraft/internal/domain/models/invitation"
	invitationRepo "vowcraft/internal/domain/repositories/invitation"
	"vowcraft/internal/domain/services"
	invitationSvc "vowcraft/internal/domain/services/invitation"
	"vowcraft/internal/events"
	"vowcraft/internal/metrics"
	"vowcraft/internal/service/commit"
	"vowcraft/internal/service/patchengine"
)

// branchService implements the BranchService interface
type branchService struct {
	branchRepo invitationRepo.BranchRepository
	docRepo    invitationRepo.DocumentRepository
	engine     *patchengine.Engine
	authorizer services.ResourceAuthorizer
	publisher  events.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewBranchService creates a new branch service
func NewBranchService(
	branchRepo invitationRepo.BranchRepository,
	docRepo invitationRepo.DocumentRepository,
	engine *patchengine.Engine,
	authorizer services.ResourceAuthorizer,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) invitationSvc.BranchService {
	return &branchService{
		branchRepo: branchRepo,
		docRepo:    docRepo,
		engine:     engine,
		authorizer: authorizer,
		publisher:  publisher,
		metrics:    m,
		logger:     logger,
	}
}

// CreateBranch copies the document's committed state into a new branch at version 1
func (s *branchService) CreateBranch(ctx context.Context, userID, documentID string, req *invitationSvc.CreateBranchRequest) (*models.Branch, error) {
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
	copied, err := doc.Clone()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	branch := &models.Branch{
		ID:               uuid.NewString(),
		OriginDocumentID: doc.ID,
		OriginVersion:    doc.Version,
		Name:             req.Name,
		CreatedAt:        now,
	}
	if branch.Name == "" {
		branch.Name = fmt.Sprintf("%s (v%d)", doc.Title, doc.Version)
	}
	copied.ID = branch.ID
	copied.Version = 1
	copied.Status = models.StatusDraft
	copied.CreatedAt = now
	copied.UpdatedAt = now
	branch.Document = *copied

	if err := s.branchRepo.Create(ctx, branch); err != nil {
		return nil, err
	}

	s.logger.Info("branch created",
		"id", branch.ID,
		"document_id", doc.ID,
		"origin_version", doc.Version,
		"user_id", userID,
	)
	s.publish(ctx, events.TypeBranchCreated, branch, userID)
	return branch, nil
}

// ListBranches lists a document's branches in creation order
func (s *branchService) ListBranches(ctx context.Context, userID, documentID string) ([]models.Branch, error) {
	if err := s.authorizer.CanAccessDocument(ctx, userID, documentID); err != nil {
		return nil, err
	}
	return s.branchRepo.ListByOrigin(ctx, documentID)
}

// GetBranch retrieves a branch
func (s *branchService) GetBranch(ctx context.Context, userID, branchID string) (*models.Branch, error) {
	if err := s.authorizer.CanAccessBranch(ctx, userID, branchID); err != nil {
		return nil, err
	}
	return s.branchRepo.GetByID(ctx, branchID)
}

// PatchBranch applies a patch set to the branch's own copy. The origin
// document is never touched.
func (s *branchService) PatchBranch(ctx context.Context, userID, branchID string, req *invitationSvc.PatchRequest) (*invitationSvc.BranchCommitResult, error) {
	start := time.Now()
	defer func() {
		s.metrics.PatchCommitDuration.WithLabelValues("branch", string(history.SourceManual)).Observe(time.Since(start).Seconds())
	}()

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.authorizer.CanAccessBranch(ctx, userID, branchID); err != nil {
		return nil, err
	}

	branch, err := s.branchRepo.GetByID(ctx, branchID)
	if err != nil {
		return nil, err
	}

	applied, err := s.engine.Apply(&branch.Document, req.BaseVersion, req.Ops)
	if err != nil {
		return nil, s.fail(branchConflict(err, branchID))
	}
	if !applied.Changed {
		s.count(history.OutcomeNoop)
		return &invitationSvc.BranchCommitResult{Branch: branch, Patch: req.Ops}, nil
	}

	updated := *branch
	updated.Document = *applied.Document
	if err := s.branchRepo.UpdateIfVersion(ctx, &updated, req.BaseVersion); err != nil {
		return nil, s.fail(branchConflict(err, branchID))
	}
	s.count(history.OutcomeCommitted)

	s.logger.Info("branch version committed",
		"id", branchID,
		"document_id", branch.OriginDocumentID,
		"user_id", userID,
		"base_version", req.BaseVersion,
		"version", updated.Version(),
		"operations", len(req.Ops),
	)
	s.publish(ctx, events.TypeBranchCommitted, &updated, userID)

	return &invitationSvc.BranchCommitResult{
		Branch:  &updated,
		Patch:   req.Ops,
		Inverse: applied.Inverse,
		Changed: true,
	}, nil
}

// DeleteBranch removes a branch
func (s *branchService) DeleteBranch(ctx context.Context, userID, branchID string) error {
	if err := s.authorizer.CanAccessBranch(ctx, userID, branchID); err != nil {
		return err
	}

	branch, err := s.branchRepo.GetByID(ctx, branchID)
	if err != nil {
		return err
	}
	if err := s.branchRepo.Delete(ctx, branchID); err != nil {
		return err
	}

	s.logger.Info("branch deleted", "id", branchID, "document_id", branch.OriginDocumentID, "user_id", userID)
	s.publish(ctx, events.TypeBranchDeleted, branch, userID)
	return nil
}

// branchConflict reports a stale base version against the branch rather than
// its embedded document.
func branchConflict(err error, branchID string) error {
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		return &domain.ConflictError{
			ResourceType:    "branch",
			ResourceID:      branchID,
			ExpectedVersion: conflict.ExpectedVersion,
			ActualVersion:   conflict.ActualVersion,
		}
	}
	return err
}

func (s *branchService) fail(err error) error {
	s.count(commit.Outcome(err))
	return err
}

func (s *branchService) count(outcome history.Outcome) {
	s.metrics.PatchCommitTotal.WithLabelValues("branch", string(history.SourceManual), string(outcome)).Inc()
}

func (s *branchService) publish(ctx context.Context, eventType string, b *models.Branch, userID string) {
	evt := events.BranchChanged{
		BranchID:         b.ID,
		OriginDocumentID: b.OriginDocumentID,
		OriginVersion:    b.OriginVersion,
		Version:          b.Version(),
		UserID:           userID,
	}
	if err := s.publisher.PublishBranch(ctx, eventType, evt); err != nil {
		s.logger.Warn("publish branch event failed", "branch_id", b.ID, "type", eventType, "error", err)
	}
}
