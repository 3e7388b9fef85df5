package template

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"vowcraft/internal/domain"
	"vowcraft/internal/domain/models/history"
	"vowcraft/internal/domain/models/invitation"
	tmpl "vowcraft/internal/domain/models/template"
	invitationRepo "vowcraft/internal/domain/repositories/invitation"
	"vowcraft/internal/domain/services"
	invitationSvc "vowcraft/internal/domain/services/invitation"
	"vowcraft/internal/metrics"
	"vowcraft/internal/service/commit"
	"vowcraft/internal/telemetry"
)

// Catalog is the read-only template source.
type Catalog interface {
	All() []tmpl.Metadata
	Get(id string) (tmpl.Metadata, error)
	Weights() tmpl.Weights
}

// templateService implements the TemplateService interface
type templateService struct {
	catalog    Catalog
	applier    *Applier
	extractor  invitationSvc.SignalExtractor
	docRepo    invitationRepo.DocumentRepository
	committer  *commit.Committer
	authorizer services.ResourceAuthorizer
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewTemplateService creates a new template service. extractor may be nil, in
// which case references always resolve through the composition fallback.
func NewTemplateService(
	catalog Catalog,
	applier *Applier,
	extractor invitationSvc.SignalExtractor,
	docRepo invitationRepo.DocumentRepository,
	committer *commit.Committer,
	authorizer services.ResourceAuthorizer,
	m *metrics.Metrics,
	logger *slog.Logger,
) invitationSvc.TemplateService {
	return &templateService{
		catalog:    catalog,
		applier:    applier,
		extractor:  extractor,
		docRepo:    docRepo,
		committer:  committer,
		authorizer: authorizer,
		metrics:    m,
		logger:     logger,
	}
}

// ListTemplates returns the catalog in catalog order
func (s *templateService) ListTemplates(ctx context.Context) []tmpl.Metadata {
	return s.catalog.All()
}

// GetTemplate returns a catalog entry
func (s *templateService) GetTemplate(ctx context.Context, templateID string) (*tmpl.Metadata, error) {
	t, err := s.catalog.Get(templateID)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ApplyTemplate selects and applies a template as one audited patch set
func (s *templateService) ApplyTemplate(ctx context.Context, userID, documentID string, req *invitationSvc.ApplyTemplateRequest) (*invitationSvc.TemplateApplication, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "template.apply")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", documentID))

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

	app, err := s.selectTemplate(ctx, req, doc.Composition())
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("template.id", app.Template.ID),
		attribute.String("template.method", app.Method),
	)

	ops, preview, err := s.applier.Plan(doc, app.Template)
	if err != nil {
		return nil, fmt.Errorf("plan template %s: %w", app.Template.ID, err)
	}
	app.Preview = preview

	if req.DryRun || (preview.Destructive() && !req.Confirm) {
		s.logger.Debug("template previewed",
			"document_id", documentID,
			"template_id", app.Template.ID,
			"dropped", len(preview.Dropped),
		)
		return app, nil
	}

	res, err := s.committer.Commit(ctx, &commit.Request{
		UserID:      userID,
		Document:    doc,
		BaseVersion: req.BaseVersion,
		Patch:       ops,
		Source:      history.SourceTemplate,
		Prompt:      "apply template " + app.Template.ID,
		Audit:       true,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.metrics.TemplateSelectionTotal.WithLabelValues(app.Template.ID, app.Method).Inc()
	s.logger.Info("template applied",
		"document_id", documentID,
		"template_id", app.Template.ID,
		"method", app.Method,
		"version", res.Document.Version,
	)

	app.Applied = true
	app.Result = &invitationSvc.CommitResult{
		Document: res.Document,
		Patch:    ops,
		Inverse:  res.Inverse,
		Changed:  res.Changed,
	}
	if res.Entry != nil {
		app.Result.EditID = res.Entry.ID
	}
	return app, nil
}

// selectTemplate resolves the request to a template: explicit id, then signals,
// then a free-text reference, then the composition fallback.
func (s *templateService) selectTemplate(ctx context.Context, req *invitationSvc.ApplyTemplateRequest, composition []invitation.BlockType) (*invitationSvc.TemplateApplication, error) {
	if req.TemplateID != "" {
		t, err := s.catalog.Get(req.TemplateID)
		if err != nil {
			return nil, err
		}
		return &invitationSvc.TemplateApplication{Template: t, Method: invitationSvc.SelectionExplicit}, nil
	}

	var signals tmpl.Signals
	switch {
	case req.Signals != nil:
		signals = *req.Signals
	case req.Reference != "" && s.extractor != nil:
		extracted, err := s.extractor.ExtractSignals(ctx, req.Reference)
		if err != nil {
			// Extraction failure degrades to the composition fallback.
			s.logger.Warn("signal extraction failed", "error", err)
		} else {
			signals = extracted
		}
	}

	if match := MatchBestTemplate(signals, s.catalog.All(), s.catalog.Weights()); match != nil {
		return &invitationSvc.TemplateApplication{
			Template: match.Template,
			Method:   invitationSvc.SelectionMatched,
			Score:    match.Score,
		}, nil
	}
	return &invitationSvc.TemplateApplication{
		Template: SelectFallbackTemplate(s.catalog.All(), composition),
		Method:   invitationSvc.SelectionFallback,
	}, nil
}
