// Package history provides the transactional undo/redo engine for scene
// editing.
//
// Edits are recorded as reversible operations grouped into transactions.
// Key concepts:
//
// # Operations
//
// An Operation reverses and reapplies one recorded change:
//   - Rollback reverses the change
//   - Rollforward reapplies it
//   - FreezeContent (optional, via Freezer) snapshots live state once,
//     when the enclosing transaction completes
//
// Operations are only replayed after they are frozen.
//
// # Transactions
//
// A Transaction is an ordered, append-only group of operations. Rollback
// walks them last to first; Rollforward walks them first to last. Completing
// a transaction freezes it. A transaction opened inside another one folds
// into its parent as a single operation when it completes.
//
// # Transaction Stack
//
// The Stack keeps a done-list and a redo-list:
//
//	ctx := history.NewContext("editor")
//	stack := history.NewStack(history.WithCapacity(100))
//
//	tx, _ := stack.CreateTransaction(ctx, history.WithName("Move"))
//	_ = tx.PushOperation(ctx, op)
//	_ = tx.Complete(ctx)
//
//	_ = stack.Undo(ctx)
//	_ = stack.Redo(ctx)
//
// Completing a new top-level transaction clears the redo-list.
//
// # Execution Contexts
//
// The stack has no locks. A Context identifies the single logical writer;
// it is captured when a transaction opens and every later push, complete,
// undo or redo from a different Context fails with ErrContextMismatch.
//
// # Scopes
//
// Begin returns a Scope whose End completes the transaction, suitable for
// defer. Do wraps a function in a scope.
package history
