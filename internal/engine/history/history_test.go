package history

import (
	"errors"
	"fmt"
	"slices"
	"testing"
)

// recorder collects replay calls in order.
type recorder struct {
	calls []string
}

// testOp is an operation that logs its replay calls.
type testOp struct {
	name   string
	rec    *recorder
	frozen int
	fail   error
}

func (o *testOp) Rollback() error {
	o.rec.calls = append(o.rec.calls, "rollback:"+o.name)
	return o.fail
}

func (o *testOp) Rollforward() error {
	o.rec.calls = append(o.rec.calls, "rollforward:"+o.name)
	return o.fail
}

func (o *testOp) FreezeContent() {
	o.frozen++
}

func (o *testOp) Description() string {
	return o.name
}

func newTestStack(opts ...StackOption) (*Stack, *Context, *recorder) {
	return NewStack(opts...), NewContext("test"), &recorder{}
}

// commit records a top-level transaction holding one operation per name.
func commit(t *testing.T, s *Stack, ctx *Context, rec *recorder, name string, ops ...string) *Transaction {
	t.Helper()
	tx, err := s.CreateTransaction(ctx, WithName(name))
	if err != nil {
		t.Fatalf("CreateTransaction(%q): %v", name, err)
	}
	for _, op := range ops {
		if err := tx.PushOperation(ctx, &testOp{name: op, rec: rec}); err != nil {
			t.Fatalf("PushOperation(%q): %v", op, err)
		}
	}
	if err := tx.Complete(ctx); err != nil {
		t.Fatalf("Complete(%q): %v", name, err)
	}
	return tx
}

func names(list []ReadOnlyTransaction) []string {
	result := make([]string, len(list))
	for i, t := range list {
		result[i] = t.Name()
	}
	return result
}

// Transaction Tests

func TestTransactionReplayOrder(t *testing.T) {
	for _, n := range []int{1, 2, 5, 16} {
		t.Run(fmt.Sprintf("%d ops", n), func(t *testing.T) {
			s, ctx, rec := newTestStack()
			ops := make([]string, n)
			for i := range ops {
				ops[i] = fmt.Sprintf("op%d", i)
			}
			commit(t, s, ctx, rec, "batch", ops...)

			if err := s.Undo(ctx); err != nil {
				t.Fatalf("Undo: %v", err)
			}
			if err := s.Redo(ctx); err != nil {
				t.Fatalf("Redo: %v", err)
			}

			var want []string
			for i := n - 1; i >= 0; i-- {
				want = append(want, "rollback:"+ops[i])
			}
			for _, op := range ops {
				want = append(want, "rollforward:"+op)
			}
			if !slices.Equal(rec.calls, want) {
				t.Errorf("calls = %v, want %v", rec.calls, want)
			}
		})
	}
}

func TestTransactionFreezeOnComplete(t *testing.T) {
	s, ctx, rec := newTestStack()
	tx, _ := s.CreateTransaction(ctx)
	a := &testOp{name: "a", rec: rec}
	b := &testOp{name: "b", rec: rec}
	_ = tx.PushOperation(ctx, a)
	_ = tx.PushOperation(ctx, b)

	if a.frozen != 0 {
		t.Fatal("operation frozen before completion")
	}
	if err := tx.Complete(ctx); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if a.frozen != 1 || b.frozen != 1 {
		t.Errorf("FreezeContent calls = %d, %d; want 1, 1", a.frozen, b.frozen)
	}
	if !tx.IsCompleted() {
		t.Error("transaction should be completed")
	}
}

func TestTransactionCompleteTwice(t *testing.T) {
	s, ctx, rec := newTestStack()
	tx := commit(t, s, ctx, rec, "once", "a")

	if err := tx.Complete(ctx); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("second Complete = %v, want ErrAlreadyCompleted", err)
	}
	if s.UndoCount() != 1 {
		t.Errorf("UndoCount = %d, want 1", s.UndoCount())
	}
	if tx.Len() != 1 {
		t.Errorf("Len = %d, want 1", tx.Len())
	}
}

func TestTransactionPushAfterComplete(t *testing.T) {
	s, ctx, rec := newTestStack()
	tx := commit(t, s, ctx, rec, "done", "a")

	err := tx.PushOperation(ctx, &testOp{name: "late", rec: rec})
	if !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("PushOperation = %v, want ErrAlreadyCompleted", err)
	}
	if tx.Len() != 1 {
		t.Errorf("Len = %d, want 1", tx.Len())
	}
}

func TestTransactionContextMismatch(t *testing.T) {
	s, owner, rec := newTestStack()
	other := NewContext("other")

	tx, _ := s.CreateTransaction(owner)
	_ = tx.PushOperation(owner, &testOp{name: "a", rec: rec})

	err := tx.PushOperation(other, &testOp{name: "b", rec: rec})
	if !errors.Is(err, ErrContextMismatch) {
		t.Fatalf("PushOperation = %v, want ErrContextMismatch", err)
	}
	var mismatch *ContextMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatal("expected *ContextMismatchError")
	}
	if mismatch.Expected != owner.ID() || mismatch.Actual != other.ID() || mismatch.Action != "push" {
		t.Errorf("mismatch = %+v", mismatch)
	}

	if err := tx.Complete(other); !errors.Is(err, ErrContextMismatch) {
		t.Errorf("Complete = %v, want ErrContextMismatch", err)
	}
	if tx.Len() != 1 || tx.IsCompleted() {
		t.Errorf("transaction changed: len=%d completed=%v", tx.Len(), tx.IsCompleted())
	}
	if err := tx.Complete(owner); err != nil {
		t.Errorf("Complete by owner: %v", err)
	}
}

func TestTransactionNilArguments(t *testing.T) {
	s, ctx, _ := newTestStack()
	if _, err := s.CreateTransaction(nil); !errors.Is(err, ErrNilContext) {
		t.Errorf("CreateTransaction(nil) = %v, want ErrNilContext", err)
	}
	tx, _ := s.CreateTransaction(ctx)
	if err := tx.PushOperation(ctx, nil); !errors.Is(err, ErrNilOperation) {
		t.Errorf("PushOperation(nil) = %v, want ErrNilOperation", err)
	}
	if err := tx.Complete(nil); !errors.Is(err, ErrNilContext) {
		t.Errorf("Complete(nil) = %v, want ErrNilContext", err)
	}
}

func TestTransactionBeforeComplete(t *testing.T) {
	s, ctx, rec := newTestStack()
	var fired []string
	tx, _ := s.CreateTransaction(ctx, WithBeforeComplete(func(v ReadOnlyTransaction) {
		fired = append(fired, fmt.Sprintf("open:%d", v.Len()))
	}))
	_ = tx.PushOperation(ctx, &testOp{name: "a", rec: rec})
	_ = tx.OnBeforeComplete(ctx, func(v ReadOnlyTransaction) {
		if v.IsCompleted() {
			t.Error("handler saw completed transaction")
		}
		fired = append(fired, "late")
	})

	if err := tx.OnBeforeComplete(NewContext("other"), func(ReadOnlyTransaction) {}); !errors.Is(err, ErrContextMismatch) {
		t.Errorf("OnBeforeComplete from other context = %v", err)
	}

	_ = tx.Complete(ctx)
	_ = tx.Complete(ctx)

	if !slices.Equal(fired, []string{"open:1", "late"}) {
		t.Errorf("fired = %v", fired)
	}
	if err := tx.OnBeforeComplete(ctx, func(ReadOnlyTransaction) {}); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("OnBeforeComplete after completion = %v", err)
	}
}

func TestTransactionBeforeCompleteCannotMutate(t *testing.T) {
	s, ctx, rec := newTestStack()
	tx, _ := s.CreateTransaction(ctx)
	var pushErr error
	_ = tx.OnBeforeComplete(ctx, func(ReadOnlyTransaction) {
		pushErr = tx.PushOperation(ctx, &testOp{name: "sneaky", rec: rec})
	})
	_ = tx.Complete(ctx)

	if !errors.Is(pushErr, ErrAlreadyCompleted) {
		t.Errorf("push during notification = %v, want ErrAlreadyCompleted", pushErr)
	}
	if !tx.IsEmpty() {
		t.Error("transaction should be empty")
	}
}

func TestTransactionDescription(t *testing.T) {
	s, ctx, rec := newTestStack()
	tests := []struct {
		name string
		tx   *Transaction
		want string
	}{
		{"named", commit(t, s, ctx, rec, "Rename", "a", "b"), "Rename"},
		{"empty", commit(t, s, ctx, rec, ""), "Empty transaction"},
		{"single", commit(t, s, ctx, rec, "", "move"), "move"},
		{"many", commit(t, s, ctx, rec, "", "a", "b", "c"), "3 operations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tx.Description(); got != tt.want {
				t.Errorf("Description() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRollbackBeforeFreeze(t *testing.T) {
	s, ctx, rec := newTestStack()
	tx, _ := s.CreateTransaction(ctx)
	_ = tx.PushOperation(ctx, &testOp{name: "a", rec: rec})

	if err := tx.Rollback(); !errors.Is(err, ErrOperationNotFrozen) {
		t.Errorf("Rollback = %v, want ErrOperationNotFrozen", err)
	}
	if err := tx.Rollforward(); !errors.Is(err, ErrOperationNotFrozen) {
		t.Errorf("Rollforward = %v, want ErrOperationNotFrozen", err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("operations replayed: %v", rec.calls)
	}

	r := newRecord(&testOp{name: "b", rec: rec})
	if err := r.rollback(); !errors.Is(err, ErrOperationNotFrozen) {
		t.Errorf("record rollback = %v, want ErrOperationNotFrozen", err)
	}
}

// Nesting Tests

func TestNestedTransactionFoldsIntoParent(t *testing.T) {
	s, ctx, rec := newTestStack()
	parent, _ := s.CreateTransaction(ctx, WithName("parent"))
	_ = parent.PushOperation(ctx, &testOp{name: "p1", rec: rec})

	child, err := parent.CreateTransaction(ctx, WithName("child"))
	if err != nil {
		t.Fatalf("nested CreateTransaction: %v", err)
	}
	if s.Current() != child {
		t.Error("child should be the current transaction")
	}
	if err := s.PushOperation(ctx, &testOp{name: "c1", rec: rec}); err != nil {
		t.Fatalf("stack PushOperation: %v", err)
	}
	_ = child.PushOperation(ctx, &testOp{name: "c2", rec: rec})

	if err := parent.PushOperation(ctx, &testOp{name: "x", rec: rec}); !errors.Is(err, ErrChildTransactionOpen) {
		t.Errorf("push to parent with open child = %v", err)
	}
	if err := parent.Complete(ctx); !errors.Is(err, ErrChildTransactionOpen) {
		t.Errorf("complete parent with open child = %v", err)
	}

	if err := child.Complete(ctx); err != nil {
		t.Fatalf("child Complete: %v", err)
	}
	if s.UndoCount() != 0 {
		t.Errorf("nested completion reached the stack: UndoCount = %d", s.UndoCount())
	}
	_ = parent.PushOperation(ctx, &testOp{name: "p2", rec: rec})
	if err := parent.Complete(ctx); err != nil {
		t.Fatalf("parent Complete: %v", err)
	}

	ops := parent.Operations()
	if len(ops) != 3 {
		t.Fatalf("parent has %d operations, want 3", len(ops))
	}
	if ops[1] != Operation(child) {
		t.Error("child transaction should be the second operation")
	}

	_ = s.Undo(ctx)
	want := []string{"rollback:p2", "rollback:c2", "rollback:c1", "rollback:p1"}
	if !slices.Equal(rec.calls, want) {
		t.Errorf("calls = %v, want %v", rec.calls, want)
	}
}

func TestPushForeignTransaction(t *testing.T) {
	s1, ctx1, rec := newTestStack()
	ctx2 := NewContext("other")
	s2 := NewStack()

	foreign := commit(t, s2, ctx2, rec, "foreign", "f")
	tx, _ := s1.CreateTransaction(ctx1)
	if err := tx.PushOperation(ctx1, foreign); !errors.Is(err, ErrContextMismatch) {
		t.Errorf("push foreign transaction = %v, want ErrContextMismatch", err)
	}
	if !tx.IsEmpty() {
		t.Error("transaction should still be empty")
	}
}

// Stack Tests

func TestStackCreateWhileOpen(t *testing.T) {
	s, ctx, rec := newTestStack()
	first, _ := s.CreateTransaction(ctx, WithName("first"))
	_ = first.PushOperation(ctx, &testOp{name: "a", rec: rec})

	if _, err := s.CreateTransaction(ctx); !errors.Is(err, ErrTransactionAlreadyOpen) {
		t.Fatalf("CreateTransaction = %v, want ErrTransactionAlreadyOpen", err)
	}
	if s.Current() != first || first.Len() != 1 || first.IsCompleted() {
		t.Error("open transaction was affected")
	}
	if err := first.Complete(ctx); err != nil {
		t.Errorf("Complete: %v", err)
	}
}

func TestStackUndoRedoEmpty(t *testing.T) {
	s, ctx, _ := newTestStack()
	if err := s.Undo(ctx); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo = %v, want ErrNothingToUndo", err)
	}
	if err := s.Redo(ctx); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Redo = %v, want ErrNothingToRedo", err)
	}
	if s.UndoCount() != 0 || s.RedoCount() != 0 {
		t.Error("empty stack was mutated")
	}
}

func TestStackUndoRedoRoundTrip(t *testing.T) {
	s, ctx, rec := newTestStack()
	commit(t, s, ctx, rec, "A", "a")
	commit(t, s, ctx, rec, "B", "b")
	commit(t, s, ctx, rec, "C", "c")
	_ = s.Undo(ctx)

	doneBefore := names(s.Done())
	redoBefore := names(s.Redoable())

	if err := s.Undo(ctx); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if got := names(s.Redoable()); !slices.Equal(got, []string{"B", "C"}) {
		t.Errorf("redo-list = %v, want [B C]", got)
	}
	if err := s.Redo(ctx); err != nil {
		t.Fatalf("Redo: %v", err)
	}

	if got := names(s.Done()); !slices.Equal(got, doneBefore) {
		t.Errorf("done-list = %v, want %v", got, doneBefore)
	}
	if got := names(s.Redoable()); !slices.Equal(got, redoBefore) {
		t.Errorf("redo-list = %v, want %v", got, redoBefore)
	}
}

func TestStackBranchTruncation(t *testing.T) {
	s, ctx, rec := newTestStack()
	commit(t, s, ctx, rec, "A", "a")
	commit(t, s, ctx, rec, "B", "b")
	_ = s.Undo(ctx)

	if got := names(s.Redoable()); !slices.Equal(got, []string{"B"}) {
		t.Fatalf("redo-list = %v, want [B]", got)
	}

	commit(t, s, ctx, rec, "C", "c")

	if s.RedoCount() != 0 {
		t.Errorf("RedoCount = %d, want 0", s.RedoCount())
	}
	if got := names(s.Done()); !slices.Equal(got, []string{"A", "C"}) {
		t.Errorf("done-list = %v, want [A C]", got)
	}
}

func TestStackEmptyTransactionIsNoop(t *testing.T) {
	s, ctx, rec := newTestStack()
	tx := commit(t, s, ctx, rec, "nothing")
	if !tx.IsEmpty() {
		t.Fatal("transaction should be empty")
	}
	if err := s.Undo(ctx); err != nil {
		t.Errorf("Undo: %v", err)
	}
	if err := s.Redo(ctx); err != nil {
		t.Errorf("Redo: %v", err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("replay calls = %v, want none", rec.calls)
	}
}

func TestStackUndoWhileOpen(t *testing.T) {
	s, ctx, rec := newTestStack()
	commit(t, s, ctx, rec, "A", "a")
	_, _ = s.CreateTransaction(ctx)

	if err := s.Undo(ctx); !errors.Is(err, ErrTransactionAlreadyOpen) {
		t.Errorf("Undo = %v, want ErrTransactionAlreadyOpen", err)
	}
	if err := s.Undo(NewContext("other")); !errors.Is(err, ErrContextMismatch) {
		t.Errorf("Undo from other context = %v, want ErrContextMismatch", err)
	}
	if s.CanUndo() {
		t.Error("CanUndo should be false while a transaction is open")
	}
	if s.UndoCount() != 1 || len(rec.calls) != 0 {
		t.Error("stack was mutated")
	}
}

func TestStackOwner(t *testing.T) {
	owner := NewContext("owner")
	s := NewStack(WithOwner(owner))
	rec := &recorder{}
	commit(t, s, owner, rec, "A", "a")

	other := NewContext("other")
	if _, err := s.CreateTransaction(other); !errors.Is(err, ErrContextMismatch) {
		t.Errorf("CreateTransaction = %v, want ErrContextMismatch", err)
	}
	if err := s.Undo(other); !errors.Is(err, ErrContextMismatch) {
		t.Errorf("Undo = %v, want ErrContextMismatch", err)
	}
	if err := s.Clear(other); !errors.Is(err, ErrContextMismatch) {
		t.Errorf("Clear = %v, want ErrContextMismatch", err)
	}
	if s.UndoCount() != 1 {
		t.Errorf("UndoCount = %d, want 1", s.UndoCount())
	}
}

func TestStackCapacity(t *testing.T) {
	s, ctx, rec := newTestStack(WithCapacity(2))
	commit(t, s, ctx, rec, "A", "a")
	commit(t, s, ctx, rec, "B", "b")
	commit(t, s, ctx, rec, "C", "c")

	if got := names(s.Done()); !slices.Equal(got, []string{"B", "C"}) {
		t.Fatalf("done-list = %v, want [B C]", got)
	}
	_ = s.Undo(ctx)
	_ = s.Undo(ctx)
	if err := s.Undo(ctx); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("third Undo = %v, want ErrNothingToUndo", err)
	}
	want := []string{"rollback:c", "rollback:b"}
	if !slices.Equal(rec.calls, want) {
		t.Errorf("calls = %v, want %v", rec.calls, want)
	}
}

func TestStackSetCapacity(t *testing.T) {
	s, ctx, rec := newTestStack()
	for _, name := range []string{"A", "B", "C", "D"} {
		commit(t, s, ctx, rec, name, name)
	}
	if err := s.SetCapacity(ctx, 2); err != nil {
		t.Fatalf("SetCapacity: %v", err)
	}
	if s.Capacity() != 2 {
		t.Errorf("Capacity = %d, want 2", s.Capacity())
	}
	if got := names(s.Done()); !slices.Equal(got, []string{"C", "D"}) {
		t.Errorf("done-list = %v, want [C D]", got)
	}
	_ = s.SetCapacity(ctx, -1)
	if s.Capacity() != 0 {
		t.Errorf("Capacity = %d, want 0", s.Capacity())
	}
}

func TestStackSetCapacityOwner(t *testing.T) {
	owner := NewContext("owner")
	s, _, rec := newTestStack(WithOwner(owner))
	for _, name := range []string{"A", "B", "C"} {
		commit(t, s, owner, rec, name, name)
	}

	if err := s.SetCapacity(NewContext("intruder"), 1); !errors.Is(err, ErrContextMismatch) {
		t.Errorf("SetCapacity from other context = %v, want ErrContextMismatch", err)
	}
	if s.Capacity() != 0 || s.UndoCount() != 3 {
		t.Errorf("rejected SetCapacity changed state: capacity=%d undo=%d", s.Capacity(), s.UndoCount())
	}
	if err := s.SetCapacity(nil, 1); !errors.Is(err, ErrNilContext) {
		t.Errorf("SetCapacity(nil) = %v, want ErrNilContext", err)
	}
}

func TestStackClear(t *testing.T) {
	s, ctx, rec := newTestStack()
	commit(t, s, ctx, rec, "A", "a")
	commit(t, s, ctx, rec, "B", "b")
	_ = s.Undo(ctx)

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s.UndoCount() != 0 || s.RedoCount() != 0 {
		t.Errorf("counts = %d/%d, want 0/0", s.UndoCount(), s.RedoCount())
	}
}

func TestStackReplayError(t *testing.T) {
	s, ctx, rec := newTestStack()
	boom := errors.New("boom")
	tx, _ := s.CreateTransaction(ctx, WithName("broken"))
	_ = tx.PushOperation(ctx, &testOp{name: "ok", rec: rec})
	_ = tx.PushOperation(ctx, &testOp{name: "bad", rec: rec, fail: boom})
	_ = tx.Complete(ctx)

	err := s.Undo(ctx)
	if !errors.Is(err, boom) {
		t.Fatalf("Undo = %v, want boom", err)
	}
	var replay *ReplayError
	if !errors.As(err, &replay) {
		t.Fatal("expected *ReplayError")
	}
	if replay.Direction != DirectionRollback || replay.TransactionID != tx.ID() {
		t.Errorf("replay = %+v", replay)
	}
	// list membership is already updated
	if s.UndoCount() != 0 || s.RedoCount() != 1 {
		t.Errorf("counts = %d/%d, want 0/1", s.UndoCount(), s.RedoCount())
	}
	if !slices.Equal(rec.calls, []string{"rollback:bad"}) {
		t.Errorf("calls = %v", rec.calls)
	}
}

func TestStackPushWithoutTransaction(t *testing.T) {
	s, ctx, rec := newTestStack()
	if err := s.PushOperation(ctx, &testOp{name: "a", rec: rec}); !errors.Is(err, ErrNoTransactionOpen) {
		t.Errorf("PushOperation = %v, want ErrNoTransactionOpen", err)
	}
}

func TestStackPeek(t *testing.T) {
	s, ctx, rec := newTestStack()
	if _, ok := s.PeekUndo(); ok {
		t.Error("PeekUndo on empty stack")
	}
	commit(t, s, ctx, rec, "A", "a")
	commit(t, s, ctx, rec, "B", "b")
	if top, ok := s.PeekUndo(); !ok || top.Name() != "B" {
		t.Errorf("PeekUndo = %v, %v", top, ok)
	}
	_ = s.Undo(ctx)
	if top, ok := s.PeekRedo(); !ok || top.Name() != "B" {
		t.Errorf("PeekRedo = %v, %v", top, ok)
	}
}

func TestStackNotifications(t *testing.T) {
	var got []string
	listener := ListenerFunc(func(n Notification) {
		entry := n.Kind.String()
		if n.Transaction != nil {
			entry += ":" + n.Transaction.Name()
		}
		if n.Reason != DiscardNone {
			entry += ":" + n.Reason.String()
		}
		got = append(got, fmt.Sprintf("%s %d/%d", entry, n.UndoCount, n.RedoCount))
	})
	s, ctx, rec := newTestStack(WithListener(listener), WithCapacity(2))

	commit(t, s, ctx, rec, "A", "a")
	commit(t, s, ctx, rec, "B", "b")
	commit(t, s, ctx, rec, "C", "c")
	_ = s.Undo(ctx)
	_ = s.Redo(ctx)
	_ = s.Undo(ctx)
	commit(t, s, ctx, rec, "D", "d")
	_ = s.Clear(ctx)

	want := []string{
		"completed:A 1/0",
		"completed:B 2/0",
		"completed:C 2/0",
		"discarded:A:evicted 2/0",
		"undone:C 1/1",
		"redone:C 2/0",
		"undone:C 1/1",
		"discarded:C:truncated 2/0",
		"completed:D 2/0",
		"discarded:B:cleared 0/0",
		"discarded:D:cleared 0/0",
		"cleared 0/0",
	}
	if !slices.Equal(got, want) {
		t.Errorf("notifications:\n got %v\nwant %v", got, want)
	}
}

// Ownership Tests

func TestPushOwnedTransaction(t *testing.T) {
	s, ctx, rec := newTestStack()
	a := commit(t, s, ctx, rec, "A", "a1")

	b, _ := s.CreateTransaction(ctx, WithName("B"))
	if err := b.PushOperation(ctx, a); !errors.Is(err, ErrAlreadyOwned) {
		t.Errorf("push committed transaction = %v, want ErrAlreadyOwned", err)
	}
	if err := b.Complete(ctx); err != nil {
		t.Fatalf("Complete B: %v", err)
	}

	_ = s.Undo(ctx)
	_ = s.Undo(ctx)
	if want := []string{"rollback:a1"}; !slices.Equal(rec.calls, want) {
		t.Errorf("calls = %v, want %v", rec.calls, want)
	}
}

func TestPushNestedChildElsewhere(t *testing.T) {
	s, ctx, rec := newTestStack()
	parent, _ := s.CreateTransaction(ctx)
	child, _ := parent.CreateTransaction(ctx)
	_ = child.PushOperation(ctx, &testOp{name: "c", rec: rec})
	if err := child.Complete(ctx); err != nil {
		t.Fatalf("child Complete: %v", err)
	}
	if err := parent.PushOperation(ctx, child); !errors.Is(err, ErrAlreadyOwned) {
		t.Errorf("push child a second time = %v, want ErrAlreadyOwned", err)
	}
	if parent.Len() != 1 {
		t.Errorf("parent Len = %d, want 1", parent.Len())
	}
}

func TestPushDuplicateOperation(t *testing.T) {
	s, ctx, rec := newTestStack()
	tx, _ := s.CreateTransaction(ctx)
	op := &testOp{name: "a", rec: rec}
	if err := tx.PushOperation(ctx, op); err != nil {
		t.Fatalf("first push: %v", err)
	}
	if err := tx.PushOperation(ctx, op); !errors.Is(err, ErrDuplicateOperation) {
		t.Errorf("second push = %v, want ErrDuplicateOperation", err)
	}

	// Value operations have no identity and may repeat.
	noop := OperationFunc{Name: "noop"}
	if err := tx.PushOperation(ctx, noop); err != nil {
		t.Errorf("push value operation: %v", err)
	}
	if err := tx.PushOperation(ctx, noop); err != nil {
		t.Errorf("push value operation again: %v", err)
	}
	if tx.Len() != 3 {
		t.Errorf("Len = %d, want 3", tx.Len())
	}
}

func TestBeforeCompletePanicLeavesTransactionCompletable(t *testing.T) {
	s, ctx, rec := newTestStack()
	tx, _ := s.CreateTransaction(ctx, WithBeforeComplete(func(ReadOnlyTransaction) {
		panic("handler failed")
	}))
	_ = tx.PushOperation(ctx, &testOp{name: "a", rec: rec})

	func() {
		defer func() { _ = recover() }()
		_ = tx.Complete(ctx)
	}()

	if tx.IsCompleted() {
		t.Fatal("transaction completed despite panicking handler")
	}
	if err := tx.Complete(ctx); err != nil {
		t.Fatalf("retry Complete: %v", err)
	}
	if s.IsTransactionOpen() {
		t.Error("stack still has an open transaction")
	}
	if _, err := s.CreateTransaction(ctx); err != nil {
		t.Errorf("CreateTransaction after recovery: %v", err)
	}
}

func TestDirectReplayRejected(t *testing.T) {
	s, ctx, rec := newTestStack()
	parent, _ := s.CreateTransaction(ctx)
	child, _ := parent.CreateTransaction(ctx)
	_ = child.PushOperation(ctx, &testOp{name: "c", rec: rec})
	_ = child.Complete(ctx)
	_ = parent.Complete(ctx)

	if err := parent.Rollback(); !errors.Is(err, ErrReplayOutsideStack) {
		t.Errorf("Rollback = %v, want ErrReplayOutsideStack", err)
	}
	nested := parent.Operations()[0]
	if err := nested.Rollforward(); !errors.Is(err, ErrReplayOutsideStack) {
		t.Errorf("nested Rollforward = %v, want ErrReplayOutsideStack", err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("operations replayed: %v", rec.calls)
	}

	if err := s.Undo(ctx); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if want := []string{"rollback:c"}; !slices.Equal(rec.calls, want) {
		t.Errorf("calls = %v, want %v", rec.calls, want)
	}
}
