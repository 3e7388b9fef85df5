package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"vowcraft/internal/domain"
	models "vowcraft/internal/domain/models/invitation"
	repo "vowcraft/internal/domain/repositories/invitation"
)

type documentStore struct {
	mu    sync.RWMutex
	docs  map[string]*models.Document
	locks *keyedLocks
}

// NewDocumentRepository creates an empty in-memory document repository.
func NewDocumentRepository() repo.DocumentRepository {
	return &documentStore{
		docs:  make(map[string]*models.Document),
		locks: newKeyedLocks(),
	}
}

func (s *documentStore) Create(ctx context.Context, doc *models.Document) error {
	cp, err := doc.Clone()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[doc.ID]; exists {
		return fmt.Errorf("document %s already exists: %w", doc.ID, domain.ErrConflict)
	}
	s.docs[doc.ID] = cp
	return nil
}

func (s *documentStore) GetByID(ctx context.Context, id string) (*models.Document, error) {
	s.mu.RLock()
	stored, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.NewNotFound("document", id)
	}
	return stored.Clone()
}

func (s *documentStore) GetOwnerID(ctx context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.docs[id]
	if !ok {
		return "", domain.NewNotFound("document", id)
	}
	return stored.OwnerID, nil
}

func (s *documentStore) UpdateIfVersion(ctx context.Context, doc *models.Document, expectedVersion int) error {
	unlock := s.locks.lock(doc.ID)
	defer unlock()

	cp, err := doc.Clone()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.docs[doc.ID]
	if !ok {
		return domain.NewNotFound("document", doc.ID)
	}
	if stored.Version != expectedVersion {
		return &domain.ConflictError{
			ResourceType:    "document",
			ResourceID:      doc.ID,
			ExpectedVersion: expectedVersion,
			ActualVersion:   stored.Version,
		}
	}
	s.docs[doc.ID] = cp
	return nil
}

func (s *documentStore) ListByOwner(ctx context.Context, ownerID string) ([]models.Document, error) {
	s.mu.RLock()
	var out []models.Document
	for _, d := range s.docs {
		if d.OwnerID != ownerID {
			continue
		}
		cp, err := d.Clone()
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		out = append(out, *cp)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
