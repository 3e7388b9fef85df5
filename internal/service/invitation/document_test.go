package invitation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vowcraft/internal/domain"
	"vowcraft/internal/domain/models/history"
	models "vowcraft/internal/domain/models/invitation"
	invitationSvc "vowcraft/internal/domain/services/invitation"
)

func TestCreateDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("blank seed", func(t *testing.T) {
		doc := f.create(t, "alice", models.SeedBlank)
		assert.NotEmpty(t, doc.ID)
		assert.Equal(t, 1, doc.Version)
		assert.Equal(t, models.StatusDraft, doc.Status)
		assert.Equal(t, "alice", doc.OwnerID)
		assert.Equal(t, []models.BlockType{models.BlockHero, models.BlockRSVP}, doc.Composition())
		assert.True(t, models.IsValidDocument(doc))
	})

	t.Run("sample seed", func(t *testing.T) {
		doc := f.create(t, "alice", models.SeedSample)
		assert.Equal(t, "Save the Date", heroTitle(t, doc))
		assert.Equal(t, "Alex", doc.WeddingData.PartnerOne)
	})

	t.Run("wedding override", func(t *testing.T) {
		doc, err := f.docs.CreateDocument(ctx, &invitationSvc.CreateDocumentRequest{
			UserID:  "alice",
			Title:   "Jo & Kim",
			Seed:    models.SeedSample,
			Wedding: &models.WeddingData{PartnerOne: "Jo", PartnerTwo: "Kim"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Jo", doc.WeddingData.PartnerOne)
		assert.Empty(t, doc.WeddingData.VenueName)
	})

	for name, req := range map[string]*invitationSvc.CreateDocumentRequest{
		"missing title": {UserID: "alice"},
		"unknown seed":  {UserID: "alice", Title: "t", Seed: "fancy"},
		"bad wedding":   {UserID: "alice", Title: "t", Wedding: &models.WeddingData{Date: "June 12"}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.docs.CreateDocument(ctx, req)
			assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
		})
	}
}

func TestGetAndListDocuments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mine := f.create(t, "alice", models.SeedBlank)
	f.create(t, "alice", models.SeedSample)
	f.create(t, "bob", models.SeedBlank)

	got, err := f.docs.GetDocument(ctx, "alice", mine.ID)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID)

	_, err = f.docs.GetDocument(ctx, "bob", mine.ID)
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = f.docs.GetDocument(ctx, "alice", "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	list, err := f.docs.ListDocuments(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestPatchDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.create(t, "alice", models.SeedSample)

	res, err := f.docs.PatchDocument(ctx, "alice", doc.ID, &invitationSvc.PatchRequest{
		BaseVersion: 1,
		Ops:         retitle(t, "You're Invited"),
	})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, 2, res.Document.Version)
	assert.Empty(t, res.EditID)
	assert.Empty(t, f.log(t, doc.ID), "manual patches are not logged unless asked")

	res, err = f.docs.PatchDocument(ctx, "alice", doc.ID, &invitationSvc.PatchRequest{
		BaseVersion: 2,
		Ops:         retitle(t, "Join Us"),
		Audit:       true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.EditID)
	entries := f.log(t, doc.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, history.SourceManual, entries[0].Source)

	_, err = f.docs.PatchDocument(ctx, "alice", doc.ID, &invitationSvc.PatchRequest{
		BaseVersion: 2,
		Ops:         retitle(t, "Stale"),
	})
	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, 3, conflict.ActualVersion)

	_, err = f.docs.PatchDocument(ctx, "alice", doc.ID, &invitationSvc.PatchRequest{Ops: retitle(t, "x")})
	assert.True(t, errors.Is(err, domain.ErrValidation), "base version is required")

	_, err = f.docs.PatchDocument(ctx, "bob", doc.ID, &invitationSvc.PatchRequest{BaseVersion: 3, Ops: retitle(t, "x")})
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestChangeStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.create(t, "alice", models.SeedBlank)

	_, err := f.docs.ChangeStatus(ctx, "alice", doc.ID, &invitationSvc.StatusRequest{BaseVersion: 1, Status: models.StatusArchived})
	assert.True(t, errors.Is(err, domain.ErrValidation), "draft cannot be archived directly")

	res, err := f.docs.ChangeStatus(ctx, "alice", doc.ID, &invitationSvc.StatusRequest{BaseVersion: 1, Status: models.StatusPublished})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, res.Document.Status)
	assert.Equal(t, 2, res.Document.Version)

	res, err = f.docs.ChangeStatus(ctx, "alice", doc.ID, &invitationSvc.StatusRequest{BaseVersion: 2, Status: models.StatusArchived})
	require.NoError(t, err)
	assert.Equal(t, models.StatusArchived, res.Document.Status)

	_, err = f.docs.PatchDocument(ctx, "alice", doc.ID, &invitationSvc.PatchRequest{BaseVersion: 3, Ops: retitle(t, "x")})
	assert.True(t, errors.Is(err, domain.ErrValidation), "archived documents are read-only")

	entries := f.log(t, doc.ID)
	require.Len(t, entries, 3, "status changes are always logged, including the rejected one")
	assert.Equal(t, history.OutcomeRejected, entries[0].Outcome)
	assert.Equal(t, history.OutcomeCommitted, entries[1].Outcome)
	assert.Equal(t, "status draft -> published", entries[1].Prompt)
}

func TestUndoEdit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.create(t, "alice", models.SeedSample)

	edited, err := f.docs.PatchDocument(ctx, "alice", doc.ID, &invitationSvc.PatchRequest{
		BaseVersion: 1,
		Ops:         retitle(t, "You're Invited"),
		Audit:       true,
	})
	require.NoError(t, err)

	_, err = f.docs.UndoEdit(ctx, "bob", edited.EditID)
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	undone, err := f.docs.UndoEdit(ctx, "alice", edited.EditID)
	require.NoError(t, err)
	assert.Equal(t, 3, undone.Document.Version)
	assert.Equal(t, "Save the Date", heroTitle(t, undone.Document))

	_, err = f.docs.UndoEdit(ctx, "alice", edited.EditID)
	assert.True(t, errors.Is(err, domain.ErrConflict), "the document moved on since the edit")

	entries, err := f.docs.ListHistory(ctx, "alice", doc.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, history.SourceUndo, entries[1].Source)
	assert.Equal(t, history.OutcomeConflict, entries[2].Outcome)

	latest, err := f.docs.ListHistory(ctx, "alice", doc.ID, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, entries[2].ID, latest[0].ID)

	_, err = f.docs.UndoEdit(ctx, "alice", entries[2].ID)
	assert.True(t, errors.Is(err, domain.ErrValidation), "a failed edit has nothing to undo")

	_, err = f.docs.UndoEdit(ctx, "alice", "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
