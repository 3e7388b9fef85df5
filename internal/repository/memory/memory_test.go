package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vowcraft/internal/domain"
	"vowcraft/internal/domain/models/history"
	"vowcraft/internal/domain/models/invitation"
)

func newDoc(id string) *invitation.Document {
	blocks, _, _ := invitation.SeedBlocks(invitation.SeedBlank)
	now := time.Now().UTC()
	return &invitation.Document{
		ID:        id,
		OwnerID:   "owner",
		Title:     "t",
		Blocks:    blocks,
		Style:     invitation.DefaultStyleSystem(),
		Status:    invitation.StatusDraft,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestDocumentRepository_ConditionalWriteHasOneWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository()
	require.NoError(t, repo.Create(ctx, newDoc("d1")))

	const writers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			next := newDoc("d1")
			next.Version = 2
			next.Title = string(rune('a' + i))
			err := repo.UpdateIfVersion(ctx, next, 1)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, writers-1, conflicts)

	stored, err := repo.GetByID(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
}

func TestDocumentRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository()
	doc := newDoc("d1")
	require.NoError(t, repo.Create(ctx, doc))

	doc.Title = "mutated after create"
	got, err := repo.GetByID(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)

	got.Blocks[0].Visible = false
	again, err := repo.GetByID(ctx, "d1")
	require.NoError(t, err)
	assert.True(t, again.Blocks[0].Visible)
}

func TestDocumentRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository()

	_, err := repo.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = repo.GetOwnerID(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = repo.UpdateIfVersion(ctx, newDoc("missing"), 1)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestBranchRepository_OrderAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewBranchRepository()

	for _, id := range []string{"b1", "b2", "b3"} {
		require.NoError(t, repo.Create(ctx, &invitation.Branch{ID: id, OriginDocumentID: "d1", Document: *newDoc(id)}))
	}
	require.NoError(t, repo.Create(ctx, &invitation.Branch{ID: "other", OriginDocumentID: "d2", Document: *newDoc("other")}))

	list, err := repo.ListByOrigin(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"b1", "b2", "b3"}, []string{list[0].ID, list[1].ID, list[2].ID})

	require.NoError(t, repo.Delete(ctx, "b2"))
	assert.True(t, errors.Is(repo.Delete(ctx, "b2"), domain.ErrNotFound))

	list, err = repo.ListByOrigin(ctx, "d1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	empty, err := repo.ListByOrigin(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEditLogRepository_AppendOnly(t *testing.T) {
	ctx := context.Background()
	repo := NewEditLogRepository()

	for i := 0; i < 3; i++ {
		entry := &history.Entry{
			ID:          history.NewEntryID(time.Now()),
			DocumentID:  "d1",
			Source:      history.SourceManual,
			BaseVersion: i + 1,
			Outcome:     history.OutcomeCommitted,
		}
		require.NoError(t, repo.Append(ctx, entry))
		assert.Error(t, repo.Append(ctx, entry), "duplicate ids are rejected")
	}

	all, err := repo.ListByDocument(ctx, "d1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 1, all[0].BaseVersion)

	latest, err := repo.ListByDocument(ctx, "d1", 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, 2, latest[0].BaseVersion)

	got, err := repo.GetByID(ctx, all[2].ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.BaseVersion)
}
