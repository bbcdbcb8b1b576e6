package history

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Transaction and stack contract errors.
var (
	// ErrAlreadyCompleted indicates a completion or release was attempted
	// on a transaction that is already completed.
	ErrAlreadyCompleted = errors.New("history: transaction already completed")

	// ErrContextMismatch indicates a call from an execution context other
	// than the one owning the transaction or stack.
	ErrContextMismatch = errors.New("history: execution context mismatch")

	// ErrTransactionAlreadyOpen indicates a top-level transaction is open,
	// blocking creation of another one and undo/redo.
	ErrTransactionAlreadyOpen = errors.New("history: transaction already open")

	// ErrNothingToUndo indicates the done-list is empty.
	ErrNothingToUndo = errors.New("history: nothing to undo")

	// ErrNothingToRedo indicates the redo-list is empty.
	ErrNothingToRedo = errors.New("history: nothing to redo")

	// ErrOperationNotFrozen indicates a rollback or rollforward of an
	// operation that was never committed to history.
	ErrOperationNotFrozen = errors.New("history: operation not frozen")

	// ErrNoTransactionOpen indicates a push with no open transaction.
	ErrNoTransactionOpen = errors.New("history: no transaction open")

	// ErrChildTransactionOpen indicates the transaction has an open nested
	// child that must complete first.
	ErrChildTransactionOpen = errors.New("history: nested transaction still open")

	// ErrNilOperation indicates a nil operation was pushed.
	ErrNilOperation = errors.New("history: operation is nil")

	// ErrNilContext indicates a nil execution context was supplied.
	ErrNilContext = errors.New("history: execution context is nil")

	// ErrAlreadyOwned indicates a push of a transaction that already belongs
	// to the stack or to a parent transaction. Nest with CreateTransaction.
	ErrAlreadyOwned = errors.New("history: transaction already owned")

	// ErrDuplicateOperation indicates the same operation value was pushed
	// twice into one transaction.
	ErrDuplicateOperation = errors.New("history: operation already recorded")

	// ErrReplayOutsideStack indicates a direct Rollback or Rollforward of a
	// completed transaction. Replay goes through Stack.Undo and Stack.Redo.
	ErrReplayOutsideStack = errors.New("history: transaction replay outside its stack")
)

// ContextMismatchError describes a rejected cross-context call.
type ContextMismatchError struct {
	// Action is the rejected call (e.g. "push", "complete", "undo").
	Action string

	// Expected is the owning execution context.
	Expected ContextID

	// Actual is the calling execution context.
	Actual ContextID
}

// Error implements the error interface.
func (e *ContextMismatchError) Error() string {
	return fmt.Sprintf("history: %s from context %d, owned by context %d", e.Action, e.Actual, e.Expected)
}

// Is allows errors.Is to match ContextMismatchError with ErrContextMismatch.
func (e *ContextMismatchError) Is(target error) bool {
	return target == ErrContextMismatch
}

// Direction is the replay direction of an undo or redo.
type Direction int

const (
	// DirectionRollback replays a transaction backward (undo).
	DirectionRollback Direction = iota
	// DirectionRollforward replays a transaction forward (redo).
	DirectionRollforward
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionRollback:
		return "rollback"
	case DirectionRollforward:
		return "rollforward"
	default:
		return "unknown"
	}
}

// ReplayError wraps a failure raised by an operation during undo or redo.
//
// The stack has already moved the transaction to its new list when this
// error is returned. No compensation is attempted, so the host state may be
// partially replayed.
type ReplayError struct {
	// TransactionID identifies the transaction being replayed.
	TransactionID uuid.UUID

	// Direction is the replay direction.
	Direction Direction

	// Err is the underlying operation error.
	Err error
}

// Error implements the error interface.
func (e *ReplayError) Error() string {
	return "history: " + e.Direction.String() + " of transaction " + e.TransactionID.String() + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ReplayError) Unwrap() error {
	return e.Err
}
