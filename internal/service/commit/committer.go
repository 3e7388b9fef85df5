// Package commit is the single write path for document versions. Manual
// patches, AI edits, template applications and undos all commit through it,
// so every source gets the same validation, conditional write, audit entry,
// event and metrics.
package commit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vowcraft/internal/domain"
	"vowcraft/internal/domain/models/history"
	"vowcraft/internal/domain/models/invitation"
	"vowcraft/internal/domain/models/patch"
	"vowcraft/internal/domain/repositories"
	invitationRepo "vowcraft/internal/domain/repositories/invitation"
	"vowcraft/internal/events"
	"vowcraft/internal/metrics"
	"vowcraft/internal/service/patchengine"
)

// Request is one patch set to commit against a loaded document.
type Request struct {
	UserID      string
	Document    *invitation.Document // committed state as read by the caller
	BaseVersion int
	Patch       patch.Patch
	Source      history.Source
	Prompt      string
	Scope       []string
	Model       string
	// Audit writes an edit log entry for every outcome of this request.
	Audit bool
}

// Result is a committed (or no-op) patch set.
type Result struct {
	Document *invitation.Document
	Inverse  patch.Patch
	Changed  bool
	Entry    *history.Entry // nil unless audited
}

// Committer applies patch sets and persists the resulting versions.
type Committer struct {
	engine    *patchengine.Engine
	docs      invitationRepo.DocumentRepository
	editLog   invitationRepo.EditLogRepository
	txManager repositories.TransactionManager
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewCommitter creates a committer
func NewCommitter(
	engine *patchengine.Engine,
	docs invitationRepo.DocumentRepository,
	editLog invitationRepo.EditLogRepository,
	txManager repositories.TransactionManager,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Committer {
	return &Committer{
		engine:    engine,
		docs:      docs,
		editLog:   editLog,
		txManager: txManager,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Engine returns the patch engine used for commits, for dry runs by callers.
func (c *Committer) Engine() *patchengine.Engine {
	return c.engine
}

// Commit applies req.Patch to req.Document at req.BaseVersion and writes the
// result conditionally on the stored version still being req.BaseVersion.
// An empty patch commits nothing and returns the document unchanged.
func (c *Committer) Commit(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()
	source := string(req.Source)
	defer func() {
		c.metrics.PatchCommitDuration.WithLabelValues("document", source).Observe(time.Since(start).Seconds())
	}()

	applied, err := c.engine.Apply(req.Document, req.BaseVersion, req.Patch)
	if err != nil {
		c.fail(ctx, req, err)
		return nil, err
	}

	if !applied.Changed {
		c.metrics.PatchCommitTotal.WithLabelValues("document", source, string(history.OutcomeNoop)).Inc()
		res := &Result{Document: applied.Document}
		if req.Audit {
			res.Entry = c.record(ctx, req, history.OutcomeNoop, nil, nil, "")
		}
		return res, nil
	}

	var entry *history.Entry
	if req.Audit {
		version := applied.Document.Version
		entry = c.newEntry(req, history.OutcomeCommitted, applied.Inverse, &version, "")
	}

	err = c.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := c.docs.UpdateIfVersion(txCtx, applied.Document, req.BaseVersion); err != nil {
			return err
		}
		if entry != nil {
			return c.editLog.Append(txCtx, entry)
		}
		return nil
	})
	if err != nil {
		c.fail(ctx, req, err)
		return nil, err
	}

	c.metrics.PatchCommitTotal.WithLabelValues("document", source, string(history.OutcomeCommitted)).Inc()
	c.logger.Info("document version committed",
		"document_id", applied.Document.ID,
		"user_id", req.UserID,
		"source", source,
		"base_version", req.BaseVersion,
		"version", applied.Document.Version,
		"operations", len(req.Patch),
	)

	evt := events.DocumentCommitted{
		DocumentID:  applied.Document.ID,
		UserID:      req.UserID,
		Source:      source,
		BaseVersion: req.BaseVersion,
		Version:     applied.Document.Version,
	}
	if entry != nil {
		evt.EditID = entry.ID
	}
	if err := c.publisher.PublishDocumentCommitted(ctx, evt); err != nil {
		c.logger.Warn("publish commit event failed", "document_id", evt.DocumentID, "error", err)
	}

	return &Result{
		Document: applied.Document,
		Inverse:  applied.Inverse,
		Changed:  true,
		Entry:    entry,
	}, nil
}

// Record appends an audit entry for a request that failed before reaching Commit,
// such as a generative model error. It returns the entry, or nil if the append failed.
func (c *Committer) Record(ctx context.Context, req *Request, cause error) *history.Entry {
	return c.record(ctx, req, Outcome(cause), nil, nil, reason(cause))
}

// Outcome classifies an error as an audit outcome.
func Outcome(err error) history.Outcome {
	switch {
	case err == nil:
		return history.OutcomeCommitted
	case errors.Is(err, domain.ErrConflict):
		return history.OutcomeConflict
	case errors.Is(err, domain.ErrValidation):
		return history.OutcomeRejected
	default:
		return history.OutcomeFailed
	}
}

func reason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (c *Committer) fail(ctx context.Context, req *Request, err error) {
	outcome := Outcome(err)
	c.metrics.PatchCommitTotal.WithLabelValues("document", string(req.Source), string(outcome)).Inc()
	c.logger.Debug("patch set not committed",
		"document_id", req.Document.ID,
		"source", req.Source,
		"base_version", req.BaseVersion,
		"outcome", outcome,
		"error", err,
	)
	if req.Audit {
		c.record(ctx, req, outcome, nil, nil, reason(err))
	}
}

func (c *Committer) newEntry(req *Request, outcome history.Outcome, inverse patch.Patch, resultVersion *int, failure string) *history.Entry {
	now := c.now()
	return &history.Entry{
		ID:            history.NewEntryID(now),
		DocumentID:    req.Document.ID,
		UserID:        req.UserID,
		Source:        req.Source,
		BaseVersion:   req.BaseVersion,
		Prompt:        req.Prompt,
		Scope:         req.Scope,
		Patch:         req.Patch,
		Inverse:       inverse,
		ResultVersion: resultVersion,
		Outcome:       outcome,
		FailureReason: failure,
		Model:         req.Model,
		CreatedAt:     now,
	}
}

func (c *Committer) record(ctx context.Context, req *Request, outcome history.Outcome, inverse patch.Patch, resultVersion *int, failure string) *history.Entry {
	entry := c.newEntry(req, outcome, inverse, resultVersion, failure)
	if err := c.editLog.Append(ctx, entry); err != nil {
		c.logger.Error("append edit log entry failed",
			"document_id", entry.DocumentID,
			"outcome", outcome,
			"error", err,
		)
		return nil
	}
	return entry
}
