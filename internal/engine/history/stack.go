package history

// Stack owns the undo history of one editing session: a done-list of
// completed top-level transactions, a redo-list of undone ones, and the
// currently open transaction chain.
//
// Stack has no internal locking. It is driven by a single logical owner and
// every call from another execution context is rejected with
// ErrContextMismatch instead of racing.
type Stack struct {
	done []*Transaction
	redo []*Transaction // last element is the front (most recently undone)

	root    *Transaction // open top-level transaction
	current *Transaction // innermost open transaction

	capacity  int
	owner     *Context
	listeners []Listener
	replaying bool // set while Undo or Redo drives a transaction
}

// StackOption configures a Stack.
type StackOption func(*Stack)

// WithCapacity bounds the done-list. Zero or less means unbounded.
func WithCapacity(n int) StackOption {
	return func(s *Stack) {
		if n < 0 {
			n = 0
		}
		s.capacity = n
	}
}

// WithOwner binds the stack to a single execution context. Every stack call
// from another context then fails with ErrContextMismatch.
func WithOwner(ctx *Context) StackOption {
	return func(s *Stack) {
		s.owner = ctx
	}
}

// WithListener registers a listener for history notifications.
func WithListener(l Listener) StackOption {
	return func(s *Stack) {
		if l != nil {
			s.listeners = append(s.listeners, l)
		}
	}
}

// NewStack creates an empty transaction stack.
func NewStack(opts ...StackOption) *Stack {
	s := &Stack{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTransaction opens a new top-level transaction bound to ctx.
func (s *Stack) CreateTransaction(ctx *Context, opts ...TransactionOption) (*Transaction, error) {
	if err := s.checkOwner("create transaction", ctx); err != nil {
		return nil, err
	}
	if s.root != nil {
		return nil, ErrTransactionAlreadyOpen
	}
	t := newTransaction(s, nil, ctx, opts...)
	s.root = t
	s.current = t
	return t, nil
}

// PushOperation pushes op into the innermost open transaction. It lets
// subsystems record changes without holding the transaction handle.
func (s *Stack) PushOperation(ctx *Context, op Operation) error {
	if s.current == nil {
		return ErrNoTransactionOpen
	}
	return s.current.PushOperation(ctx, op)
}

// completeTransaction records a completing transaction. A nested transaction
// is pushed into its parent; a top-level one becomes the newest done entry
// and discards the redo branch.
func (s *Stack) completeTransaction(t *Transaction) ([]Notification, error) {
	if t != s.current {
		return nil, ErrChildTransactionOpen
	}

	if t.parent != nil {
		parent := t.parent
		parent.child = nil
		parent.records = append(parent.records, newRecord(t))
		t.owned = true
		s.current = parent
		return nil, nil
	}

	t.owned = true
	s.root = nil
	s.current = nil

	var notes []Notification
	for i := len(s.redo) - 1; i >= 0; i-- {
		notes = append(notes, Notification{Kind: NotifyDiscarded, Transaction: s.redo[i], Reason: DiscardTruncated})
	}
	s.redo = nil

	s.done = append(s.done, t)
	notes = append(notes, Notification{Kind: NotifyCompleted, Transaction: t})
	notes = append(notes, s.evict()...)
	return notes, nil
}

// evict drops the oldest done entries beyond capacity. Evicted transactions
// are never rolled back.
func (s *Stack) evict() []Notification {
	if s.capacity <= 0 || len(s.done) <= s.capacity {
		return nil
	}
	excess := len(s.done) - s.capacity
	notes := make([]Notification, 0, excess)
	for _, t := range s.done[:excess] {
		notes = append(notes, Notification{Kind: NotifyDiscarded, Transaction: t, Reason: DiscardEvicted})
	}
	clear(s.done[:excess])
	s.done = s.done[excess:]
	return notes
}

// Undo rolls back the newest completed transaction and moves it to the
// front of the redo-list.
//
// The list move happens before rollback. If an operation fails, the error is
// returned as a *ReplayError and the transaction stays on the redo-list.
func (s *Stack) Undo(ctx *Context) error {
	if err := s.checkIdle("undo", ctx); err != nil {
		return err
	}
	if len(s.done) == 0 {
		return ErrNothingToUndo
	}

	t := s.done[len(s.done)-1]
	s.done[len(s.done)-1] = nil
	s.done = s.done[:len(s.done)-1]
	s.redo = append(s.redo, t)

	err := s.replay(t.Rollback)
	s.emit(Notification{Kind: NotifyUndone, Transaction: t, Err: err})
	if err != nil {
		return &ReplayError{TransactionID: t.id, Direction: DirectionRollback, Err: err}
	}
	return nil
}

// Redo rolls forward the most recently undone transaction and appends it to
// the done-list. The rest of the redo-list is kept.
func (s *Stack) Redo(ctx *Context) error {
	if err := s.checkIdle("redo", ctx); err != nil {
		return err
	}
	if len(s.redo) == 0 {
		return ErrNothingToRedo
	}

	t := s.redo[len(s.redo)-1]
	s.redo[len(s.redo)-1] = nil
	s.redo = s.redo[:len(s.redo)-1]
	s.done = append(s.done, t)

	err := s.replay(t.Rollforward)
	s.emit(Notification{Kind: NotifyRedone, Transaction: t, Err: err})
	if err != nil {
		return &ReplayError{TransactionID: t.id, Direction: DirectionRollforward, Err: err}
	}
	return nil
}

// replay runs a transaction's Rollback or Rollforward on behalf of the stack.
func (s *Stack) replay(fn func() error) error {
	s.replaying = true
	defer func() {
		s.replaying = false
	}()
	return fn()
}

// Clear discards all undo and redo history.
func (s *Stack) Clear(ctx *Context) error {
	if err := s.checkIdle("clear", ctx); err != nil {
		return err
	}
	var notes []Notification
	for _, t := range s.done {
		notes = append(notes, Notification{Kind: NotifyDiscarded, Transaction: t, Reason: DiscardCleared})
	}
	for i := len(s.redo) - 1; i >= 0; i-- {
		notes = append(notes, Notification{Kind: NotifyDiscarded, Transaction: s.redo[i], Reason: DiscardCleared})
	}
	s.done = nil
	s.redo = nil
	notes = append(notes, Notification{Kind: NotifyCleared})
	s.emit(notes...)
	return nil
}

// checkOwner validates ctx against the bound owner, if any.
func (s *Stack) checkOwner(action string, ctx *Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	if s.owner != nil && s.owner.id != ctx.id {
		return &ContextMismatchError{Action: action, Expected: s.owner.id, Actual: ctx.id}
	}
	return nil
}

// checkIdle validates ctx and requires that no transaction is open.
func (s *Stack) checkIdle(action string, ctx *Context) error {
	if err := s.checkOwner(action, ctx); err != nil {
		return err
	}
	if s.root != nil {
		if err := s.root.guard.check(action, ctx); err != nil {
			return err
		}
		return ErrTransactionAlreadyOpen
	}
	return nil
}

// SetCapacity changes the done-list bound. Zero or less means unbounded.
// If the done-list is larger, the oldest entries are evicted.
func (s *Stack) SetCapacity(ctx *Context, n int) error {
	if err := s.checkOwner("set capacity", ctx); err != nil {
		return err
	}
	if n < 0 {
		n = 0
	}
	s.capacity = n
	s.emit(s.evict()...)
	return nil
}

// Capacity returns the done-list bound, zero when unbounded.
func (s *Stack) Capacity() int {
	return s.capacity
}

// CanUndo returns true if undo is available.
func (s *Stack) CanUndo() bool {
	return len(s.done) > 0 && s.root == nil
}

// CanRedo returns true if redo is available.
func (s *Stack) CanRedo() bool {
	return len(s.redo) > 0 && s.root == nil
}

// UndoCount returns the depth of the done-list.
func (s *Stack) UndoCount() int {
	return len(s.done)
}

// RedoCount returns the depth of the redo-list.
func (s *Stack) RedoCount() int {
	return len(s.redo)
}

// IsTransactionOpen returns true while a top-level transaction is open.
func (s *Stack) IsTransactionOpen() bool {
	return s.root != nil
}

// Current returns the innermost open transaction, or nil.
func (s *Stack) Current() *Transaction {
	return s.current
}

// Done returns the done-list, oldest first.
func (s *Stack) Done() []ReadOnlyTransaction {
	result := make([]ReadOnlyTransaction, len(s.done))
	for i, t := range s.done {
		result[i] = readOnlyView{t}
	}
	return result
}

// Redoable returns the redo-list, most recently undone first.
func (s *Stack) Redoable() []ReadOnlyTransaction {
	result := make([]ReadOnlyTransaction, len(s.redo))
	for i, t := range s.redo {
		result[len(s.redo)-1-i] = readOnlyView{t}
	}
	return result
}

// PeekUndo returns the transaction the next Undo would roll back.
func (s *Stack) PeekUndo() (ReadOnlyTransaction, bool) {
	if len(s.done) == 0 {
		return nil, false
	}
	return readOnlyView{s.done[len(s.done)-1]}, true
}

// PeekRedo returns the transaction the next Redo would roll forward.
func (s *Stack) PeekRedo() (ReadOnlyTransaction, bool) {
	if len(s.redo) == 0 {
		return nil, false
	}
	return readOnlyView{s.redo[len(s.redo)-1]}, true
}

// emit fills in depths and delivers notifications to listeners.
func (s *Stack) emit(notes ...Notification) {
	if len(s.listeners) == 0 {
		return
	}
	for _, n := range notes {
		n.UndoCount = len(s.done)
		n.RedoCount = len(s.redo)
		if t, ok := n.Transaction.(*Transaction); ok {
			n.Transaction = readOnlyView{t}
		}
		for _, l := range s.listeners {
			l.HistoryChanged(n)
		}
	}
}
