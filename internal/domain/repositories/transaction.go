package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions.
// A commit runs the conditional document write and its edit log append
// through one ExecTx call, so an audited edit is never persisted without its entry.
type TransactionManager interface {
	// ExecTx executes fn within a transaction; repositories join it through ctx
	ExecTx(ctx context.Context, fn TxFn) error
}
