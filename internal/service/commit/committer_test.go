package commit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vowcraft/internal/domain"
	"vowcraft/internal/domain/models/history"
	"vowcraft/internal/domain/models/invitation"
	"vowcraft/internal/domain/models/patch"
	invitationRepo "vowcraft/internal/domain/repositories/invitation"
	"vowcraft/internal/events"
	"vowcraft/internal/metrics"
	"vowcraft/internal/repository/memory"
	"vowcraft/internal/service/patchengine"
)

type fixture struct {
	committer *Committer
	docs      invitationRepo.DocumentRepository
	edits     invitationRepo.EditLogRepository
	events    *events.Recorder
	metrics   *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		docs:    memory.NewDocumentRepository(),
		edits:   memory.NewEditLogRepository(),
		events:  events.NewRecorder(),
		metrics: metrics.New(nil),
	}
	f.committer = NewCommitter(
		patchengine.New(),
		f.docs,
		f.edits,
		memory.NewTransactionManager(),
		f.events,
		f.metrics,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	blocks, wedding, err := invitation.SeedBlocks(invitation.SeedSample)
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, f.docs.Create(context.Background(), &invitation.Document{
		ID: "doc-1", OwnerID: "alice", Title: "Alex & Sam",
		Blocks: blocks, Style: invitation.DefaultStyleSystem(), WeddingData: wedding,
		Status: invitation.StatusDraft, Version: 1, CreatedAt: now, UpdatedAt: now,
	}))
	return f
}

func (f *fixture) load(t *testing.T) *invitation.Document {
	t.Helper()
	doc, err := f.docs.GetByID(context.Background(), "doc-1")
	require.NoError(t, err)
	return doc
}

func retitle(t *testing.T, title string) patch.Patch {
	t.Helper()
	op, err := patch.Replace("/blocks/hero/title", title)
	require.NoError(t, err)
	return patch.Patch{op}
}

func TestCommit_PersistsAuditsAndPublishes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.committer.Commit(ctx, &Request{
		UserID: "alice", Document: f.load(t), BaseVersion: 1,
		Patch: retitle(t, "You're Invited"), Source: history.SourceManual, Audit: true,
	})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, 2, res.Document.Version)
	require.NotNil(t, res.Entry)
	assert.Equal(t, history.OutcomeCommitted, res.Entry.Outcome)
	require.NotNil(t, res.Entry.ResultVersion)
	assert.Equal(t, 2, *res.Entry.ResultVersion)
	assert.NotEmpty(t, res.Entry.Inverse)

	stored := f.load(t)
	assert.Equal(t, 2, stored.Version)
	hero, _, _ := stored.BlockByID("hero")
	assert.Equal(t, "You're Invited", hero.Content.(*invitation.HeroContent).Title)

	logged, err := f.edits.ListByDocument(ctx, "doc-1", 0)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, res.Entry.ID, logged[0].ID)

	require.Equal(t, 1, f.events.CommitCount())
	assert.Equal(t, res.Entry.ID, f.events.Commits[0].EditID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PatchCommitTotal.WithLabelValues("document", "manual", "committed")))
}

func TestCommit_EmptyPatchIsNoop(t *testing.T) {
	f := newFixture(t)

	res, err := f.committer.Commit(context.Background(), &Request{
		UserID: "alice", Document: f.load(t), BaseVersion: 1, Source: history.SourceManual,
	})
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, 1, res.Document.Version)
	assert.Nil(t, res.Entry)
	assert.Equal(t, 1, f.load(t).Version)
	assert.Zero(t, f.events.CommitCount())
}

func TestCommit_StaleBaseIsLoggedAsConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.committer.Commit(ctx, &Request{
		UserID: "alice", Document: f.load(t), BaseVersion: 1,
		Patch: retitle(t, "First"), Source: history.SourceManual,
	})
	require.NoError(t, err)

	_, err = f.committer.Commit(ctx, &Request{
		UserID: "alice", Document: f.load(t), BaseVersion: 1,
		Patch: retitle(t, "Second"), Source: history.SourceAI, Audit: true,
	})
	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, 1, conflict.ExpectedVersion)
	assert.Equal(t, 2, conflict.ActualVersion)

	logged, err := f.edits.ListByDocument(ctx, "doc-1", 0)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, history.OutcomeConflict, logged[0].Outcome)
	assert.Nil(t, logged[0].ResultVersion)
}

func TestCommit_InvalidPatchIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.committer.Commit(ctx, &Request{
		UserID: "alice", Document: f.load(t), BaseVersion: 1,
		Patch:  patch.Patch{patch.Remove("/blocks/nonexistent")},
		Source: history.SourceManual, Audit: true,
	})
	require.True(t, errors.Is(err, domain.ErrValidation))
	assert.Equal(t, 1, f.load(t).Version)

	logged, err := f.edits.ListByDocument(ctx, "doc-1", 0)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, history.OutcomeRejected, logged[0].Outcome)
	assert.NotEmpty(t, logged[0].FailureReason)
}

func TestCommit_ConcurrentWritersHaveOneWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	base := f.load(t)

	const writers = 8
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
			_, err := f.committer.Commit(ctx, &Request{
				UserID: "alice", Document: base, BaseVersion: 1,
				Patch: retitle(t, string(rune('A'+i))), Source: history.SourceManual, Audit: true,
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if errors.Is(err, domain.ErrConflict) {
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, writers-1, conflicts)
	assert.Equal(t, 2, f.load(t).Version)

	logged, err := f.edits.ListByDocument(ctx, "doc-1", 0)
	require.NoError(t, err)
	assert.Len(t, logged, writers)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, history.OutcomeConflict, Outcome(&domain.ConflictError{}))
	assert.Equal(t, history.OutcomeRejected, Outcome(domain.NewValidation("bad")))
	assert.Equal(t, history.OutcomeFailed, Outcome(&domain.ExternalServiceError{Service: "model", Err: errors.New("down")}))
	assert.Equal(t, history.OutcomeFailed, Outcome(errors.New("disk full")))
}
