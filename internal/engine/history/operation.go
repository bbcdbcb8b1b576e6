package history

import "fmt"

// Operation is a single reversible unit of recorded change.
//
// Host code performs the mutation, then pushes an Operation describing how to
// reverse and reapply it. Rollback and Rollforward are only invoked by the
// engine, after the enclosing transaction has completed.
type Operation interface {
	// Rollback reverses the recorded effect.
	Rollback() error

	// Rollforward reapplies the recorded effect.
	Rollforward() error
}

// Freezer is implemented by operations that capture live state while their
// transaction is open. FreezeContent is called exactly once, when the
// enclosing transaction completes, and must turn that state into an
// immutable reversal payload.
type Freezer interface {
	FreezeContent()
}

// Describer is implemented by operations that can describe themselves in
// history listings.
type Describer interface {
	Description() string
}

// OperationFunc adapts a pair of functions to the Operation interface.
type OperationFunc struct {
	Name     string
	Undo     func() error
	Redo     func() error
	OnFreeze func()
}

// Rollback calls Undo.
func (f OperationFunc) Rollback() error {
	if f.Undo == nil {
		return nil
	}
	return f.Undo()
}

// Rollforward calls Redo.
func (f OperationFunc) Rollforward() error {
	if f.Redo == nil {
		return nil
	}
	return f.Redo()
}

// FreezeContent calls OnFreeze.
func (f OperationFunc) FreezeContent() {
	if f.OnFreeze != nil {
		f.OnFreeze()
	}
}

// Description returns Name.
func (f OperationFunc) Description() string {
	return f.Name
}

// recordKind tags what a record holds.
type recordKind uint8

const (
	kindOperation recordKind = iota
	kindNested
)

// record is one entry of a transaction. It owns the frozen flag for the
// value it wraps, so host operations need no lifecycle bookkeeping.
type record struct {
	kind   recordKind
	op     Operation
	nested *Transaction
	frozen bool
}

func newRecord(op Operation) *record {
	if tx, ok := op.(*Transaction); ok {
		return &record{kind: kindNested, op: tx, nested: tx}
	}
	return &record{kind: kindOperation, op: op}
}

// freeze marks the record frozen, invoking FreezeContent once.
// Nested transactions freeze themselves when they complete.
func (r *record) freeze() {
	if r.frozen {
		return
	}
	r.frozen = true
	if r.kind == kindNested {
		return
	}
	if f, ok := r.op.(Freezer); ok {
		f.FreezeContent()
	}
}

func (r *record) rollback() error {
	if !r.frozen {
		return ErrOperationNotFrozen
	}
	return r.op.Rollback()
}

func (r *record) rollforward() error {
	if !r.frozen {
		return ErrOperationNotFrozen
	}
	return r.op.Rollforward()
}

func (r *record) description() string {
	if d, ok := r.op.(Describer); ok {
		return d.Description()
	}
	return fmt.Sprintf("%T", r.op)
}
