package template

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vowcraft/internal/domain"
	"vowcraft/internal/domain/models/history"
	"vowcraft/internal/domain/models/invitation"
	tmpl "vowcraft/internal/domain/models/template"
	invitationRepo "vowcraft/internal/domain/repositories/invitation"
	invitationSvc "vowcraft/internal/domain/services/invitation"
	"vowcraft/internal/events"
	"vowcraft/internal/metrics"
	"vowcraft/internal/repository/memory"
	"vowcraft/internal/service/auth"
	"vowcraft/internal/service/commit"
	"vowcraft/internal/service/patchengine"
)

type fakeExtractor struct {
	signals tmpl.Signals
	err     error
}

func (f fakeExtractor) ExtractSignals(context.Context, string) (tmpl.Signals, error) {
	return f.signals, f.err
}

type serviceFixture struct {
	svc   invitationSvc.TemplateService
	docs  invitationRepo.DocumentRepository
	edits invitationRepo.EditLogRepository
}

func newServiceFixture(t *testing.T, seed invitation.Seed, extractor invitationSvc.SignalExtractor) *serviceFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	docs := memory.NewDocumentRepository()
	branches := memory.NewBranchRepository()
	edits := memory.NewEditLogRepository()
	m := metrics.New(nil)
	engine := patchengine.New()

	require.NoError(t, docs.Create(context.Background(), newDocument(t, seed)))

	committer := commit.NewCommitter(engine, docs, edits, memory.NewTransactionManager(), events.NewRecorder(), m, logger)
	svc := NewTemplateService(
		loadCatalog(t),
		NewApplier(engine, nil),
		extractor,
		docs,
		committer,
		auth.NewOwnerBasedAuthorizer(docs, branches, edits),
		m,
		logger,
	)
	return &serviceFixture{svc: svc, docs: docs, edits: edits}
}

func TestApplyTemplate_ExplicitTemplateCommitsOneVersion(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, invitation.SeedBlank, nil)

	app, err := f.svc.ApplyTemplate(ctx, "alice", "doc-1", &invitationSvc.ApplyTemplateRequest{
		TemplateID: "photo-journal", BaseVersion: 5,
	})
	require.NoError(t, err)
	assert.True(t, app.Applied)
	assert.Equal(t, invitationSvc.SelectionExplicit, app.Method)
	require.NotNil(t, app.Result)
	assert.Equal(t, 6, app.Result.Document.Version)
	assert.Equal(t, []invitation.BlockType{
		invitation.BlockHero, invitation.BlockGallery, invitation.BlockRSVP, invitation.BlockClosing,
	}, app.Result.Document.Composition())

	stored, err := f.docs.GetByID(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 6, stored.Version)

	logged, err := f.edits.ListByDocument(ctx, "doc-1", 0)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, history.SourceTemplate, logged[0].Source)
	assert.Equal(t, app.Result.EditID, logged[0].ID)
}

func TestApplyTemplate_DestructiveRequiresConfirm(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, invitation.SeedSample, nil)

	req := &invitationSvc.ApplyTemplateRequest{TemplateID: "modern-minimal", BaseVersion: 5}
	app, err := f.svc.ApplyTemplate(ctx, "alice", "doc-1", req)
	require.NoError(t, err)
	assert.False(t, app.Applied)
	assert.Nil(t, app.Result)
	require.Len(t, app.Preview.Dropped, 1)
	assert.Equal(t, "story", app.Preview.Dropped[0].ID)

	stored, err := f.docs.GetByID(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Version, "preview commits nothing")

	req.Confirm = true
	app, err = f.svc.ApplyTemplate(ctx, "alice", "doc-1", req)
	require.NoError(t, err)
	assert.True(t, app.Applied)
	assert.Equal(t, 6, app.Result.Document.Version)
}

func TestApplyTemplate_ReferenceUsesExtractedSignals(t *testing.T) {
	f := newServiceFixture(t, invitation.SeedBlank, fakeExtractor{
		signals: tmpl.Signals{Category: "romantic", PaletteTags: []string{"blush"}},
	})

	app, err := f.svc.ApplyTemplate(context.Background(), "alice", "doc-1", &invitationSvc.ApplyTemplateRequest{
		Reference: "soft pink florals, calligraphy", BaseVersion: 5, DryRun: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "romantic-blush", app.Template.ID)
	assert.Equal(t, invitationSvc.SelectionMatched, app.Method)
	assert.Greater(t, app.Score, 0.0)
	assert.False(t, app.Applied)
}

func TestApplyTemplate_ExtractionFailureFallsBackToComposition(t *testing.T) {
	f := newServiceFixture(t, invitation.SeedBlank, fakeExtractor{err: errors.New("model unavailable")})

	app, err := f.svc.ApplyTemplate(context.Background(), "alice", "doc-1", &invitationSvc.ApplyTemplateRequest{
		Reference: "something elegant", BaseVersion: 5, DryRun: true,
	})
	require.NoError(t, err)
	assert.Equal(t, invitationSvc.SelectionFallback, app.Method)
	assert.Equal(t, "modern-minimal", app.Template.ID)
}

func TestApplyTemplate_Errors(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, invitation.SeedBlank, nil)

	_, err := f.svc.ApplyTemplate(ctx, "mallory", "doc-1", &invitationSvc.ApplyTemplateRequest{TemplateID: "photo-journal", BaseVersion: 5})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = f.svc.ApplyTemplate(ctx, "alice", "doc-1", &invitationSvc.ApplyTemplateRequest{TemplateID: "nope", BaseVersion: 5})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = f.svc.ApplyTemplate(ctx, "alice", "doc-1", &invitationSvc.ApplyTemplateRequest{TemplateID: "photo-journal", BaseVersion: 4})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	_, err = f.svc.ApplyTemplate(ctx, "alice", "doc-1", &invitationSvc.ApplyTemplateRequest{
		TemplateID: "photo-journal", Reference: "both", BaseVersion: 5,
	})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestListAndGetTemplates(t *testing.T) {
	f := newServiceFixture(t, invitation.SeedBlank, nil)

	all := f.svc.ListTemplates(context.Background())
	require.NotEmpty(t, all)
	assert.Equal(t, "classic-elegance", all[0].ID)

	got, err := f.svc.GetTemplate(context.Background(), "beach-breeze")
	require.NoError(t, err)
	assert.Equal(t, "Beach Breeze", got.Name)
}
