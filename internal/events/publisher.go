// Package events publishes domain events about committed document changes.
// When no NATS URL is configured the publisher is a no-op.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"vowcraft/internal/metrics"
)

// Event types
const (
	TypeDocumentCommitted = "vowcraft.documents.committed"
	TypeBranchCreated     = "vowcraft.branches.created"
	TypeBranchCommitted   = "vowcraft.branches.committed"
	TypeBranchDeleted     = "vowcraft.branches.deleted"
)

const streamName = "VOWCRAFT_DOCUMENTS"

// DocumentCommitted is emitted after a patch set is persisted.
type DocumentCommitted struct {
	DocumentID  string `json:"documentId"`
	UserID      string `json:"userId"`
	Source      string `json:"source"`
	BaseVersion int    `json:"baseVersion"`
	Version     int    `json:"version"`
	EditID      string `json:"editId,omitempty"`
}

// BranchChanged is emitted when a branch is created, patched or deleted.
type BranchChanged struct {
	BranchID         string `json:"branchId"`
	OriginDocumentID string `json:"originDocumentId"`
	OriginVersion    int    `json:"originVersion"`
	Version          int    `json:"version,omitempty"`
	UserID           string `json:"userId"`
}

// Envelope wraps every published event.
type Envelope struct {
	Type          string      `json:"type"`
	Version       string      `json:"version"`
	OccurredAt    time.Time   `json:"occurredAt"`
	CorrelationID string      `json:"correlationId"`
	Payload       interface{} `json:"payload"`
}

// Publisher emits domain events. Publishing is best effort: callers log failures
// and never roll back a commit because an event could not be delivered.
type Publisher interface {
	PublishDocumentCommitted(ctx context.Context, evt DocumentCommitted) error
	PublishBranch(ctx context.Context, eventType string, evt BranchChanged) error
	Close() error
}

type noop struct{}

// NewNoop returns a publisher that drops every event.
func NewNoop() Publisher { return noop{} }

func (noop) PublishDocumentCommitted(context.Context, DocumentCommitted) error { return nil }
func (noop) PublishBranch(context.Context, string, BranchChanged) error        { return nil }
func (noop) Close() error                                                      { return nil }

type natsPublisher struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPublisher connects to NATS JetStream. An empty url, or any connection
// failure, yields the no-op publisher.
func NewPublisher(url string, m *metrics.Metrics, logger *slog.Logger) Publisher {
	if url == "" {
		return NewNoop()
	}
	nc, err := nats.Connect(url, nats.Name("vowcraft"))
	if err != nil {
		logger.Warn("NATS connect failed, using noop publisher", "error", err)
		return NewNoop()
	}
	js, err := nc.JetStream()
	if err != nil {
		logger.Warn("NATS JetStream context creation failed, using noop publisher", "error", err)
		nc.Close()
		return NewNoop()
	}
	if _, err := js.AddStream(&nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{"vowcraft.>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Discard:   nats.DiscardOld,
		Storage:   nats.FileStorage,
	}); err != nil {
		logger.Warn("NATS stream initialization failed, using noop publisher", "error", err)
		nc.Close()
		return NewNoop()
	}
	logger.Info("event publisher connected", "url", url, "stream", streamName)
	return &natsPublisher{nc: nc, js: js, metrics: m, logger: logger}
}

func (p *natsPublisher) PublishDocumentCommitted(ctx context.Context, evt DocumentCommitted) error {
	return p.publish(ctx, TypeDocumentCommitted, evt)
}

func (p *natsPublisher) PublishBranch(ctx context.Context, eventType string, evt BranchChanged) error {
	return p.publish(ctx, eventType, evt)
}

func (p *natsPublisher) publish(ctx context.Context, eventType string, payload interface{}) error {
	b, err := json.Marshal(Envelope{
		Type:          eventType,
		Version:       "1.0.0",
		OccurredAt:    time.Now().UTC(),
		CorrelationID: uuid.NewString(),
		Payload:       payload,
	})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", eventType, err)
	}
	_, err = p.js.Publish(eventType, b, nats.Context(ctx))
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.metrics.EventPublishTotal.WithLabelValues(eventType, status).Inc()
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

func (p *natsPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

// Recorder keeps published events in memory. Used by tests and local tooling.
type Recorder struct {
	mu       sync.Mutex
	Commits  []DocumentCommitted
	Branches map[string][]BranchChanged
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{Branches: map[string][]BranchChanged{}}
}

func (r *Recorder) PublishDocumentCommitted(_ context.Context, evt DocumentCommitted) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Commits = append(r.Commits, evt)
	return nil
}

func (r *Recorder) PublishBranch(_ context.Context, eventType string, evt BranchChanged) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Branches[eventType] = append(r.Branches[eventType], evt)
	return nil
}

func (r *Recorder) Close() error { return nil }

// CommitCount returns the number of recorded commit events.
func (r *Recorder) CommitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Commits)
}

// BranchCount returns the number of recorded branch events of a type.
func (r *Recorder) BranchCount(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Branches[eventType])
}
