// Package aiedit turns natural-language instructions into committed patch sets.
//
// The pipeline is: authorize, load the committed document, summarize it within
// a byte budget, ask the generative model for a patch, check the reply's shape
// and scope, dry-run it through the patch engine, then commit conditionally on
// the version read at the start. Once the document has been read every outcome
// is written to the edit log, including model failures and conflicts.
package aiedit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"vowcraft/internal/domain"
	"vowcraft/internal/domain/models/history"
	"vowcraft/internal/domain/models/invitation"
	invitationRepo "vowcraft/internal/domain/repositories/invitation"
	"vowcraft/internal/domain/services"
	invitationSvc "vowcraft/internal/domain/services/invitation"
	"vowcraft/internal/metrics"
	"vowcraft/internal/service/commit"
	"vowcraft/internal/telemetry"
)

// Config bounds one edit request.
type Config struct {
	Timeout         time.Duration // whole pipeline, model call included
	ContextMaxBytes int
}

type service struct {
	generator  invitationSvc.PatchGenerator
	docRepo    invitationRepo.DocumentRepository
	committer  *commit.Committer
	authorizer services.ResourceAuthorizer
	cfg        Config
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewService creates the AI edit service
func NewService(
	generator invitationSvc.PatchGenerator,
	docRepo invitationRepo.DocumentRepository,
	committer *commit.Committer,
	authorizer services.ResourceAuthorizer,
	cfg Config,
	m *metrics.Metrics,
	logger *slog.Logger,
) invitationSvc.AIEditService {
	return &service{
		generator:  generator,
		docRepo:    docRepo,
		committer:  committer,
		authorizer: authorizer,
		cfg:        cfg,
		metrics:    m,
		logger:     logger,
	}
}

func (s *service) RequestEdit(ctx context.Context, req *invitationSvc.AIEditRequest) (*invitationSvc.AIEditResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.authorizer.CanAccessDocument(ctx, req.UserID, req.DocumentID); err != nil {
		return nil, err
	}

	doc, err := s.docRepo.GetByID(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}

	// The caller going away must not leave an edit unlogged, so the rest of
	// the pipeline runs on a context that ignores its cancellation.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
	defer cancel()

	return s.run(runCtx, req, doc)
}

func (s *service) run(ctx context.Context, req *invitationSvc.AIEditRequest, doc *invitation.Document) (*invitationSvc.AIEditResult, error) {
	start := time.Now()
	ctx, span := telemetry.Tracer().Start(ctx, "aiedit.request")
	defer span.End()
	span.SetAttributes(
		attribute.String("document.id", doc.ID),
		attribute.Int("document.version", doc.Version),
		attribute.Int("scope.size", len(req.Scope)),
	)

	creq := &commit.Request{
		UserID:      req.UserID,
		Document:    doc,
		BaseVersion: doc.Version,
		Source:      history.SourceAI,
		Prompt:      req.Prompt,
		Scope:       req.Scope,
		Audit:       true,
	}

	res, err := s.pipeline(ctx, creq)

	outcome := commit.Outcome(err)
	if err == nil && !res.Changed {
		outcome = history.OutcomeNoop
	}
	s.metrics.AIEditTotal.WithLabelValues(string(outcome)).Inc()
	s.metrics.AIEditDuration.WithLabelValues(string(outcome)).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.String("edit.outcome", string(outcome)))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("ai edit not committed",
			"document_id", doc.ID,
			"user_id", req.UserID,
			"base_version", doc.Version,
			"outcome", outcome,
			"error", err,
		)
		return nil, err
	}

	result := &invitationSvc.AIEditResult{
		Patch:      creq.Patch,
		NewVersion: res.Document.Version,
		Document:   res.Document,
		Model:      creq.Model,
	}
	if res.Entry != nil {
		result.EditID = res.Entry.ID
	}
	s.logger.Info("ai edit completed",
		"document_id", doc.ID,
		"user_id", req.UserID,
		"base_version", doc.Version,
		"version", result.NewVersion,
		"operations", len(creq.Patch),
		"outcome", outcome,
	)
	return result, nil
}

// pipeline fills in creq as it goes. Failures before the commit are recorded
// here; the committer records its own.
func (s *service) pipeline(ctx context.Context, creq *commit.Request) (*commit.Result, error) {
	doc := creq.Document
	for _, id := range creq.Scope {
		if _, _, ok := doc.BlockByID(id); !ok {
			return nil, s.reject(ctx, creq, domain.NewValidation("scope names unknown block %q", id))
		}
	}

	summary, err := BuildContext(doc, creq.Scope, s.cfg.ContextMaxBytes)
	if err != nil {
		return nil, s.reject(ctx, creq, fmt.Errorf("%w: %v", domain.ErrValidation, err))
	}

	gen, err := s.generator.Generate(ctx, &invitationSvc.GenerateRequest{
		Prompt:  creq.Prompt,
		Context: summary,
		Scope:   creq.Scope,
	})
	if err != nil {
		var ext *domain.ExternalServiceError
		if !errors.As(err, &ext) {
			err = &domain.ExternalServiceError{Service: "model", Err: err}
		}
		return nil, s.reject(ctx, creq, err)
	}
	creq.Model = gen.Model
	s.metrics.ModelTokens.WithLabelValues(gen.Model, "input").Add(float64(gen.InputTokens))
	s.metrics.ModelTokens.WithLabelValues(gen.Model, "output").Add(float64(gen.OutputTokens))

	ops, err := ParsePatch(gen.Raw)
	if err != nil {
		return nil, s.reject(ctx, creq, err)
	}
	creq.Patch = ops

	if err := CheckScope(ops, creq.Scope); err != nil {
		return nil, s.reject(ctx, creq, err)
	}
	if err := s.committer.Engine().Validate(doc, ops); err != nil {
		return nil, s.reject(ctx, creq, err)
	}

	return s.committer.Commit(ctx, creq)
}

func (s *service) reject(ctx context.Context, creq *commit.Request, err error) error {
	s.committer.Record(ctx, creq, err)
	return err
}
