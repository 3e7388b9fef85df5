// Package memory provides in-memory implementations of the repositories.
// It's intended for development and testing purposes. Stored values are
// deep-copied on the way in and out, so callers never share state with the store.
package memory

import (
	"context"
	"sync"

	"vowcraft/internal/domain/repositories"
)

// keyedLocks hands out one mutex per key. Conditional writes hold the key's
// lock across compare and swap.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedLocks) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// TransactionManager runs fn directly. The in-memory store has no rollback;
// each repository call is individually atomic.
type TransactionManager struct{}

// NewTransactionManager creates a pass-through transaction manager.
func NewTransactionManager() repositories.TransactionManager {
	return TransactionManager{}
}

func (TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}
