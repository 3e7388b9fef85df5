package memory

import (
	"context"
	"fmt"
	"sync"

	"vowcraft/internal/domain"
	models "vowcraft/internal/domain/models/invitation"
	repo "vowcraft/internal/domain/repositories/invitation"
)

type branchStore struct {
	mu       sync.RWMutex
	branches map[string]*models.Branch
	order    []string // creation order
	locks    *keyedLocks
}

// NewBranchRepository creates an empty in-memory branch repository.
func NewBranchRepository() repo.BranchRepository {
	return &branchStore{
		branches: make(map[string]*models.Branch),
		locks:    newKeyedLocks(),
	}
}

func cloneBranch(b *models.Branch) (*models.Branch, error) {
	doc, err := b.Document.Clone()
	if err != nil {
		return nil, err
	}
	cp := *b
	cp.Document = *doc
	return &cp, nil
}

func (s *branchStore) Create(ctx context.Context, branch *models.Branch) error {
	cp, err := cloneBranch(branch)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.branches[branch.ID]; exists {
		return fmt.Errorf("branch %s already exists: %w", branch.ID, domain.ErrConflict)
	}
	s.branches[branch.ID] = cp
	s.order = append(s.order, branch.ID)
	return nil
}

func (s *branchStore) GetByID(ctx context.Context, id string) (*models.Branch, error) {
	s.mu.RLock()
	stored, ok := s.branches[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.NewNotFound("branch", id)
	}
	return cloneBranch(stored)
}

func (s *branchStore) ListByOrigin(ctx context.Context, documentID string) ([]models.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Branch{}
	for _, id := range s.order {
		b := s.branches[id]
		if b.OriginDocumentID != documentID {
			continue
		}
		cp, err := cloneBranch(b)
		if err != nil {
			return nil, err
		}
		out = append(out, *cp)
	}
	return out, nil
}

func (s *branchStore) UpdateIfVersion(ctx context.Context, branch *models.Branch, expectedVersion int) error {
	unlock := s.locks.lock(branch.ID)
	defer unlock()

	cp, err := cloneBranch(branch)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.branches[branch.ID]
	if !ok {
		return domain.NewNotFound("branch", branch.ID)
	}
	if stored.Version() != expectedVersion {
		return &domain.ConflictError{
			ResourceType:    "branch",
			ResourceID:      branch.ID,
			ExpectedVersion: expectedVersion,
			ActualVersion:   stored.Version(),
		}
	}
	s.branches[branch.ID] = cp
	return nil
}

func (s *branchStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.branches[id]; !ok {
		return domain.NewNotFound("branch", id)
	}
	delete(s.branches, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
