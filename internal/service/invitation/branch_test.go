package invitation

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vowcraft/internal/domain"
	models "vowcraft/internal/domain/models/invitation"
	invitationSvc "vowcraft/internal/domain/services/invitation"
	"vowcraft/internal/events"
)

func TestCreateBranch_SnapshotsDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.create(t, "alice", models.SeedSample)

	branch, err := f.branches.CreateBranch(ctx, "alice", doc.ID, &invitationSvc.CreateBranchRequest{})
	require.NoError(t, err)
	assert.Equal(t, doc.ID, branch.OriginDocumentID)
	assert.Equal(t, 1, branch.OriginVersion)
	assert.Equal(t, 1, branch.Version())
	assert.Equal(t, "Alex & Sam (v1)", branch.Name)
	assert.Equal(t, doc.Composition(), branch.Document.Composition())
	assert.Equal(t, 1, f.events.BranchCount(events.TypeBranchCreated))

	named, err := f.branches.CreateBranch(ctx, "alice", doc.ID, &invitationSvc.CreateBranchRequest{Name: "Rustic option"})
	require.NoError(t, err)
	assert.Equal(t, "Rustic option", named.Name)

	list, err := f.branches.ListBranches(ctx, "alice", doc.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, branch.ID, list[0].ID)
	assert.Equal(t, named.ID, list[1].ID)
}

func TestBranches_AreIndependent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.create(t, "alice", models.SeedSample)

	branch, err := f.branches.CreateBranch(ctx, "alice", doc.ID, &invitationSvc.CreateBranchRequest{Name: "alt"})
	require.NoError(t, err)

	res, err := f.branches.PatchBranch(ctx, "alice", branch.ID, &invitationSvc.PatchRequest{
		BaseVersion: 1,
		Ops:         retitle(t, "Branch title"),
	})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, 2, res.Branch.Version())
	assert.NotEmpty(t, res.Inverse)

	origin, err := f.docs.GetDocument(ctx, "alice", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, origin.Version)
	assert.Equal(t, "Save the Date", heroTitle(t, origin))

	_, err = f.docs.PatchDocument(ctx, "alice", doc.ID, &invitationSvc.PatchRequest{BaseVersion: 1, Ops: retitle(t, "Origin title")})
	require.NoError(t, err)

	stored, err := f.branches.GetBranch(ctx, "alice", branch.ID)
	require.NoError(t, err)
	assert.Equal(t, "Branch title", heroTitle(t, &stored.Document))
	assert.Equal(t, 1, stored.OriginVersion)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PatchCommitTotal.WithLabelValues("branch", "manual", "committed")))
	assert.Equal(t, 1, f.events.BranchCount(events.TypeBranchCommitted))
}

func TestCreateBranch_StartsAsDraft(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.create(t, "alice", models.SeedSample)

	_, err := f.docs.ChangeStatus(ctx, "alice", doc.ID, &invitationSvc.StatusRequest{BaseVersion: 1, Status: models.StatusPublished})
	require.NoError(t, err)
	_, err = f.docs.ChangeStatus(ctx, "alice", doc.ID, &invitationSvc.StatusRequest{BaseVersion: 2, Status: models.StatusArchived})
	require.NoError(t, err)

	branch, err := f.branches.CreateBranch(ctx, "alice", doc.ID, &invitationSvc.CreateBranchRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, branch.Document.Status)
	assert.Equal(t, 3, branch.OriginVersion)

	res, err := f.branches.PatchBranch(ctx, "alice", branch.ID, &invitationSvc.PatchRequest{
		BaseVersion: 1,
		Ops:         retitle(t, "Second try"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Branch.Version())
	assert.Equal(t, "Second try", heroTitle(t, &res.Branch.Document))

	origin, err := f.docs.GetDocument(ctx, "alice", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusArchived, origin.Status)
}

func TestPatchBranch_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.create(t, "alice", models.SeedSample)
	branch, err := f.branches.CreateBranch(ctx, "alice", doc.ID, &invitationSvc.CreateBranchRequest{})
	require.NoError(t, err)

	_, err = f.branches.PatchBranch(ctx, "alice", branch.ID, &invitationSvc.PatchRequest{BaseVersion: 7, Ops: retitle(t, "x")})
	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "branch", conflict.ResourceType)
	assert.Equal(t, branch.ID, conflict.ResourceID)
	assert.Equal(t, 1, conflict.ActualVersion)

	_, err = f.branches.PatchBranch(ctx, "alice", branch.ID, &invitationSvc.PatchRequest{
		BaseVersion: 1,
		Ops:         retitle(t, "x")[:0],
	})
	require.NoError(t, err, "an empty patch is a no-op")

	bad := retitle(t, "x")
	bad[0].Path = "/blocks/ghost/title"
	_, err = f.branches.PatchBranch(ctx, "alice", branch.ID, &invitationSvc.PatchRequest{BaseVersion: 1, Ops: bad})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = f.branches.PatchBranch(ctx, "bob", branch.ID, &invitationSvc.PatchRequest{BaseVersion: 1, Ops: retitle(t, "x")})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	stored, err := f.branches.GetBranch(ctx, "alice", branch.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version())
}

func TestDeleteBranch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.create(t, "alice", models.SeedBlank)
	branch, err := f.branches.CreateBranch(ctx, "alice", doc.ID, &invitationSvc.CreateBranchRequest{})
	require.NoError(t, err)

	assert.True(t, errors.Is(f.branches.DeleteBranch(ctx, "bob", branch.ID), domain.ErrForbidden))
	require.NoError(t, f.branches.DeleteBranch(ctx, "alice", branch.ID))
	assert.True(t, errors.Is(f.branches.DeleteBranch(ctx, "alice", branch.ID), domain.ErrNotFound))

	_, err = f.branches.GetBranch(ctx, "alice", branch.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	origin, err := f.docs.GetDocument(ctx, "alice", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, origin.Version)
	assert.Equal(t, 1, f.events.BranchCount(events.TypeBranchDeleted))

	_, err = f.branches.CreateBranch(ctx, "alice", "missing", &invitationSvc.CreateBranchRequest{})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
