package invitation

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"vowcraft/internal/domain/models/history"
	models "vowcraft/internal/domain/models/invitation"
	"vowcraft/internal/domain/models/patch"
	invitationRepo "vowcraft/internal/domain/repositories/invitation"
	invitationSvc "vowcraft/internal/domain/services/invitation"
	"vowcraft/internal/events"
	"vowcraft/internal/metrics"
	"vowcraft/internal/repository/memory"
	"vowcraft/internal/service/auth"
	"vowcraft/internal/service/commit"
	"vowcraft/internal/service/patchengine"
)

type fixture struct {
	docs     invitationSvc.DocumentService
	branches invitationSvc.BranchService
	docRepo  invitationRepo.DocumentRepository
	edits    invitationRepo.EditLogRepository
	events   *events.Recorder
	metrics  *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		docRepo: memory.NewDocumentRepository(),
		edits:   memory.NewEditLogRepository(),
		events:  events.NewRecorder(),
		metrics: metrics.New(nil),
	}
	branchRepo := memory.NewBranchRepository()
	engine := patchengine.New()
	authorizer := auth.NewOwnerBasedAuthorizer(f.docRepo, branchRepo, f.edits)
	committer := commit.NewCommitter(engine, f.docRepo, f.edits, memory.NewTransactionManager(), f.events, f.metrics, logger)

	f.docs = NewDocumentService(f.docRepo, f.edits, committer, authorizer, logger)
	f.branches = NewBranchService(branchRepo, f.docRepo, engine, authorizer, f.events, f.metrics, logger)
	return f
}

func (f *fixture) create(t *testing.T, owner string, seed models.Seed) *models.Document {
	t.Helper()
	doc, err := f.docs.CreateDocument(context.Background(), &invitationSvc.CreateDocumentRequest{
		UserID: owner,
		Title:  "Alex & Sam",
		Seed:   seed,
	})
	require.NoError(t, err)
	return doc
}

func (f *fixture) log(t *testing.T, documentID string) []history.Entry {
	t.Helper()
	entries, err := f.edits.ListByDocument(context.Background(), documentID, 0)
	require.NoError(t, err)
	return entries
}

func retitle(t *testing.T, title string) patch.Patch {
	t.Helper()
	op, err := patch.Replace("/blocks/hero/title", title)
	require.NoError(t, err)
	return patch.Patch{op}
}

func heroTitle(t *testing.T, doc *models.Document) string {
	t.Helper()
	hero, _, ok := doc.BlockByID("hero")
	require.True(t, ok)
	return hero.Content.(*models.HeroContent).Title
}
