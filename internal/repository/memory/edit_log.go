package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"vowcraft/internal/domain"
	"vowcraft/internal/domain/models/history"
	repo "vowcraft/internal/domain/repositories/invitation"
)

type editLogStore struct {
	mu         sync.RWMutex
	entries    map[string]*history.Entry
	byDocument map[string][]string // entry ids in append order
}

// NewEditLogRepository creates an empty in-memory edit log.
func NewEditLogRepository() repo.EditLogRepository {
	return &editLogStore{
		entries:    make(map[string]*history.Entry),
		byDocument: make(map[string][]string),
	}
}

func cloneEntry(e *history.Entry) (*history.Entry, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("clone entry: %w", err)
	}
	var cp history.Entry
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, fmt.Errorf("clone entry: %w", err)
	}
	return &cp, nil
}

func (s *editLogStore) Append(ctx context.Context, entry *history.Entry) error {
	cp, err := cloneEntry(entry)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[entry.ID]; exists {
		return fmt.Errorf("edit log entry %s already exists: %w", entry.ID, domain.ErrConflict)
	}
	s.entries[entry.ID] = cp
	s.byDocument[entry.DocumentID] = append(s.byDocument[entry.DocumentID], entry.ID)
	return nil
}

func (s *editLogStore) GetByID(ctx context.Context, id string) (*history.Entry, error) {
	s.mu.RLock()
	stored, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.NewNotFound("edit", id)
	}
	return cloneEntry(stored)
}

func (s *editLogStore) ListByDocument(ctx context.Context, documentID string, limit int) ([]history.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byDocument[documentID]
	if limit > 0 && len(ids) > limit {
		ids = ids[len(ids)-limit:]
	}
	out := make([]history.Entry, 0, len(ids))
	for _, id := range ids {
		cp, err := cloneEntry(s.entries[id])
		if err != nil {
			return nil, err
		}
		out = append(out, *cp)
	}
	return out, nil
}
