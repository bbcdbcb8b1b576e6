package history

import (
	"errors"
	"fmt"
)

// Scope guarantees completion of a transaction when an editing scope exits.
// Usage:
//
//	scope, err := stack.Begin(ctx, "Move Entity")
//	if err != nil {
//	    return err
//	}
//	defer scope.End()
//	// ... push operations ...
type Scope struct {
	tx    *Transaction
	ctx   *Context
	ended bool
}

// Begin opens a top-level transaction wrapped in a Scope.
func (s *Stack) Begin(ctx *Context, name string, opts ...TransactionOption) (*Scope, error) {
	tx, err := s.CreateTransaction(ctx, append([]TransactionOption{WithName(name)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Scope{tx: tx, ctx: ctx}, nil
}

// Begin opens a nested transaction wrapped in a Scope.
func (t *Transaction) Begin(ctx *Context, name string, opts ...TransactionOption) (*Scope, error) {
	tx, err := t.CreateTransaction(ctx, append([]TransactionOption{WithName(name)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Scope{tx: tx, ctx: ctx}, nil
}

// Transaction returns the scoped transaction.
func (sc *Scope) Transaction() *Transaction {
	return sc.tx
}

// Push pushes op into the scoped transaction.
func (sc *Scope) Push(op Operation) error {
	return sc.tx.PushOperation(sc.ctx, op)
}

// End completes the scoped transaction. It fails with ErrAlreadyCompleted
// when called twice or after an explicit Complete. If completion fails, for
// instance because a nested child is still open, the scope stays live and End
// may be called again.
func (sc *Scope) End() error {
	if sc.ended {
		return ErrAlreadyCompleted
	}
	err := sc.tx.Complete(sc.ctx)
	if err == nil || errors.Is(err, ErrAlreadyCompleted) {
		sc.ended = true
	}
	return err
}

// Do runs fn inside a named transaction and completes it when fn returns,
// including on panic. Nested transactions fn left open are completed first,
// innermost first. There is no cancellation: operations pushed before fn
// fails stay recorded, so the error from fn is returned alongside any
// completion error.
func (s *Stack) Do(ctx *Context, name string, fn func(tx *Transaction) error) (err error) {
	scope, err := s.Begin(ctx, name)
	if err != nil {
		return err
	}
	defer func() {
		if childErr := scope.tx.completeChildren(ctx); childErr != nil {
			err = errors.Join(err, childErr)
		}
		if endErr := scope.End(); endErr != nil {
			err = errors.Join(err, endErr)
		}
	}()
	return fn(scope.Transaction())
}

// completeChildren completes every open descendant of t, innermost first.
func (t *Transaction) completeChildren(ctx *Context) error {
	for t.child != nil {
		leaf := t.child
		for leaf.child != nil {
			leaf = leaf.child
		}
		if err := leaf.Complete(ctx); err != nil {
			return fmt.Errorf("complete nested %q: %w", leaf.Description(), err)
		}
	}
	return nil
}

// Checkpoint represents a point in history that can be returned to.
type Checkpoint struct {
	undoDepth int
}

// CreateCheckpoint creates a checkpoint at the current history position.
func (s *Stack) CreateCheckpoint() Checkpoint {
	return Checkpoint{undoDepth: len(s.done)}
}

// UndoToCheckpoint undoes all transactions completed since the checkpoint.
func (s *Stack) UndoToCheckpoint(ctx *Context, cp Checkpoint) error {
	for s.UndoCount() > cp.undoDepth {
		if err := s.Undo(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RedoToCheckpoint redoes transactions up to the checkpoint depth.
// It stops early when the redo-list runs out.
func (s *Stack) RedoToCheckpoint(ctx *Context, cp Checkpoint) error {
	for s.UndoCount() < cp.undoDepth && s.RedoCount() > 0 {
		if err := s.Redo(ctx); err != nil {
			return err
		}
	}
	return nil
}
