package history

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// ReadOnlyTransaction is the inspection view of a transaction.
// It is what observers and history listings receive.
type ReadOnlyTransaction interface {
	ID() uuid.UUID
	Name() string
	Description() string
	CreatedAt() time.Time
	Operations() []Operation
	Len() int
	IsEmpty() bool
	IsCompleted() bool
}

// BeforeCompleteFunc observes a transaction just before it completes.
type BeforeCompleteFunc func(tx ReadOnlyTransaction)

// TransactionOption configures a transaction at open time.
type TransactionOption func(*Transaction)

// WithName sets the transaction name shown in history listings.
func WithName(name string) TransactionOption {
	return func(t *Transaction) {
		t.name = name
	}
}

// WithBeforeComplete registers a one-shot pre-completion handler.
func WithBeforeComplete(fn BeforeCompleteFunc) TransactionOption {
	return func(t *Transaction) {
		if fn != nil {
			t.beforeComplete = append(t.beforeComplete, fn)
		}
	}
}

// Transaction is an ordered, atomic group of operations recorded while it is
// open. A completed transaction is frozen and is itself an Operation, which
// is how nested transactions fold into their parents.
type Transaction struct {
	id        uuid.UUID
	name      string
	createdAt time.Time

	stack  *Stack
	parent *Transaction
	child  *Transaction // open nested transaction, if any

	guard  guard
	origin ContextID

	records        []*record
	seen           map[Operation]struct{} // pointer operations already recorded
	beforeComplete []BeforeCompleteFunc

	completing bool
	completed  bool
	frozen     bool
	owned      bool // taken by the stack or a parent transaction
}

func newTransaction(s *Stack, parent *Transaction, ctx *Context, opts ...TransactionOption) *Transaction {
	t := &Transaction{
		id:        uuid.New(),
		createdAt: time.Now(),
		stack:     s,
		parent:    parent,
		guard:     newGuard(ctx),
		origin:    ctx.ID(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ID returns the transaction identifier.
func (t *Transaction) ID() uuid.UUID {
	return t.id
}

// Name returns the name given at open time.
func (t *Transaction) Name() string {
	return t.name
}

// CreatedAt returns when the transaction was opened.
func (t *Transaction) CreatedAt() time.Time {
	return t.createdAt
}

// Description returns a human-readable description.
func (t *Transaction) Description() string {
	if t.name != "" {
		return t.name
	}
	switch len(t.records) {
	case 0:
		return "Empty transaction"
	case 1:
		return t.records[0].description()
	default:
		return fmt.Sprintf("%d operations", len(t.records))
	}
}

// Operations returns the recorded operations in push order.
// Nested transactions appear as *Transaction values.
func (t *Transaction) Operations() []Operation {
	ops := make([]Operation, len(t.records))
	for i, r := range t.records {
		ops[i] = r.op
	}
	return ops
}

// Len returns the number of recorded operations.
func (t *Transaction) Len() int {
	return len(t.records)
}

// IsEmpty returns true if no operation has been recorded.
func (t *Transaction) IsEmpty() bool {
	return len(t.records) == 0
}

// IsCompleted returns true once Complete has succeeded.
func (t *Transaction) IsCompleted() bool {
	return t.completed
}

// IsNested returns true if the transaction was opened inside another one.
func (t *Transaction) IsNested() bool {
	return t.parent != nil
}

// PushOperation appends op to the transaction.
//
// The caller must be the execution context that opened the transaction.
// A completed transaction already belongs to the stack or to its parent, so
// pushing one fails; nest with CreateTransaction instead. The same pointer
// operation cannot be recorded twice in one transaction.
func (t *Transaction) PushOperation(ctx *Context, op Operation) error {
	if t.completed || t.completing {
		return ErrAlreadyCompleted
	}
	if err := t.guard.check("push", ctx); err != nil {
		return err
	}
	if op == nil {
		return ErrNilOperation
	}
	if t.child != nil {
		return ErrChildTransactionOpen
	}
	if tx, ok := op.(*Transaction); ok {
		if tx.origin != t.origin {
			return &ContextMismatchError{
				Action:   "push transaction",
				Expected: t.origin,
				Actual:   tx.origin,
			}
		}
		if !tx.completed {
			return fmt.Errorf("push transaction %s: %w", tx.id, ErrChildTransactionOpen)
		}
		if tx.owned {
			return fmt.Errorf("push transaction %s: %w", tx.id, ErrAlreadyOwned)
		}
	}
	ptr := isPointer(op)
	if ptr {
		if _, dup := t.seen[op]; dup {
			return ErrDuplicateOperation
		}
	}
	t.records = append(t.records, newRecord(op))
	if ptr {
		if t.seen == nil {
			t.seen = make(map[Operation]struct{})
		}
		t.seen[op] = struct{}{}
	}
	return nil
}

// isPointer reports whether op has pointer identity. Only those are
// checked for duplicates; value operations may legitimately repeat.
func isPointer(op Operation) bool {
	return reflect.ValueOf(op).Kind() == reflect.Pointer
}

// CreateTransaction opens a nested transaction. When it completes it is
// pushed into t as a single operation.
func (t *Transaction) CreateTransaction(ctx *Context, opts ...TransactionOption) (*Transaction, error) {
	if t.completed || t.completing {
		return nil, ErrAlreadyCompleted
	}
	if err := t.guard.check("create nested transaction", ctx); err != nil {
		return nil, err
	}
	if t.child != nil {
		return nil, ErrChildTransactionOpen
	}
	child := newTransaction(t.stack, t, ctx, opts...)
	t.child = child
	t.stack.current = child
	return child, nil
}

// OnBeforeComplete registers a handler fired once, just before completion.
func (t *Transaction) OnBeforeComplete(ctx *Context, fn BeforeCompleteFunc) error {
	if t.completed || t.completing {
		return ErrAlreadyCompleted
	}
	if err := t.guard.check("subscribe", ctx); err != nil {
		return err
	}
	if fn != nil {
		t.beforeComplete = append(t.beforeComplete, fn)
	}
	return nil
}

// Complete closes the transaction and hands it to its stack, or to its
// parent if nested. The transaction and every recorded operation are frozen
// afterwards.
func (t *Transaction) Complete(ctx *Context) error {
	if t.completed || t.completing {
		return ErrAlreadyCompleted
	}
	if err := t.guard.check("complete", ctx); err != nil {
		return err
	}
	if t.child != nil {
		return ErrChildTransactionOpen
	}

	// A panicking handler leaves the transaction open and completable.
	t.completing = true
	defer func() {
		t.completing = false
	}()

	handlers := t.beforeComplete
	t.beforeComplete = nil
	view := readOnlyView{t}
	for _, fn := range handlers {
		fn(view)
	}

	notes, err := t.stack.completeTransaction(t)
	if err != nil {
		return err
	}

	t.completed = true
	t.seen = nil
	t.freeze()
	t.guard.release()

	t.stack.emit(notes...)
	return nil
}

// freeze freezes every record in forward order, then the transaction.
func (t *Transaction) freeze() {
	for _, r := range t.records {
		r.freeze()
	}
	t.frozen = true
}

// Rollback reverses every recorded operation, last pushed first.
// It stops at the first failing operation. Only the owning stack replays
// transactions, from Undo.
func (t *Transaction) Rollback() error {
	if !t.frozen {
		return ErrOperationNotFrozen
	}
	if !t.stack.replaying {
		return ErrReplayOutsideStack
	}
	for i := len(t.records) - 1; i >= 0; i-- {
		if err := t.records[i].rollback(); err != nil {
			return fmt.Errorf("rollback %q step %d: %w", t.Description(), i, err)
		}
	}
	return nil
}

// Rollforward reapplies every recorded operation in push order.
// It stops at the first failing operation. Only the owning stack replays
// transactions, from Redo.
func (t *Transaction) Rollforward() error {
	if !t.frozen {
		return ErrOperationNotFrozen
	}
	if !t.stack.replaying {
		return ErrReplayOutsideStack
	}
	for i, r := range t.records {
		if err := r.rollforward(); err != nil {
			return fmt.Errorf("rollforward %q step %d: %w", t.Description(), i, err)
		}
	}
	return nil
}

// readOnlyView hides the mutating methods of a transaction.
type readOnlyView struct {
	t *Transaction
}

func (v readOnlyView) ID() uuid.UUID { return v.t.ID() }
func (v readOnlyView) Name() string { return v.t.Name() }
func (v readOnlyView) Description() string { return v.t.Description() }
func (v readOnlyView) CreatedAt() time.Time { return v.t.CreatedAt() }
func (v readOnlyView) Operations() []Operation { return v.t.Operations() }
func (v readOnlyView) Len() int { return v.t.Len() }
func (v readOnlyView) IsEmpty() bool { return v.t.IsEmpty() }
func (v readOnlyView) IsCompleted() bool { return v.t.IsCompleted() }
