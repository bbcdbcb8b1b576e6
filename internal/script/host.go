package script

import (
	"context"
	"errors"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/scenetx/internal/engine/history"
	"github.com/dshills/scenetx/internal/scene"
)

const checkpointTypeName = "scenetx.checkpoint"

// Host runs scripts against one scene editor. Like the editor and its
// history stack, a Host belongs to a single goroutine.
type Host struct {
	state  *State
	editor *scene.Editor

	// scopes are transactions opened by the running script, innermost last.
	scopes []*history.Scope
	// floor is the number of scopes owned by enclosing history.transaction
	// calls; history.commit never closes those.
	floor int
}

// NewHost creates a host with a fresh Lua state bound to editor.
func NewHost(editor *scene.Editor, opts ...StateOption) *Host {
	h := &Host{
		state:  NewState(opts...),
		editor: editor,
	}
	h.state.L.NewTypeMetatable(checkpointTypeName)
	h.state.Register("scene", map[string]lua.LGFunction{
		"create":         h.sceneCreate,
		"delete":         h.sceneDelete,
		"rename":         h.sceneRename,
		"reparent":       h.sceneReparent,
		"move":           h.sceneMove,
		"rotate":         h.sceneRotate,
		"scale":          h.sceneScale,
		"get":            h.sceneGet,
		"find":           h.sceneFind,
		"count":          h.sceneCount,
		"roots":          h.sceneRoots,
		"world_position": h.sceneWorldPosition,
	})
	h.state.Register("history", map[string]lua.LGFunction{
		"transaction": h.historyTransaction,
		"begin":       h.historyBegin,
		"commit":      h.historyCommit,
		"undo":        h.historyUndo,
		"redo":        h.historyRedo,
		"undo_count":  h.historyUndoCount,
		"redo_count":  h.historyRedoCount,
		"can_undo":    h.historyCanUndo,
		"can_redo":    h.historyCanRedo,
		"clear":       h.historyClear,
		"checkpoint":  h.historyCheckpoint,
		"rewind":      h.historyRewind,
		"list":        h.historyList,
	})
	return h
}

// Editor returns the scene editor scripts drive.
func (h *Host) Editor() *scene.Editor {
	return h.editor
}

// Run executes code. Transactions the script left open are completed
// before Run returns, even when the script failed.
func (h *Host) Run(ctx context.Context, name, code string) error {
	return h.finish(h.state.Run(ctx, name, code))
}

// RunFile executes the Lua file at path. See Run.
func (h *Host) RunFile(ctx context.Context, path string) error {
	return h.finish(h.state.RunFile(ctx, path))
}

// SetTimeout changes the per-run time limit.
func (h *Host) SetTimeout(d time.Duration) {
	h.state.SetTimeout(d)
}

// OpenTransactions returns the number of script-opened transactions.
func (h *Host) OpenTransactions() int {
	return len(h.scopes)
}

// Close releases the Lua state.
func (h *Host) Close() {
	h.state.Close()
}

func (h *Host) finish(err error) error {
	h.floor = 0
	if len(h.scopes) == 0 {
		return err
	}
	n := len(h.scopes)
	if endErr := h.endFrom(0); endErr != nil {
		return errors.Join(err, fmt.Errorf("completing %d open transactions: %w", n, endErr))
	}
	return err
}

// begin opens a transaction nested in the innermost open one, or a
// top-level transaction when none is open.
func (h *Host) begin(name string) error {
	stack := h.editor.Stack()
	ctx := h.editor.Context()

	var scope *history.Scope
	var err error
	if cur := stack.Current(); cur != nil {
		scope, err = cur.Begin(ctx, name)
	} else {
		scope, err = stack.Begin(ctx, name)
	}
	if err != nil {
		return err
	}
	h.scopes = append(h.scopes, scope)
	return nil
}

// endFrom completes scopes[i:] innermost first and drops them.
func (h *Host) endFrom(i int) error {
	var errs []error
	for j := len(h.scopes) - 1; j >= i; j-- {
		if err := h.scopes[j].End(); err != nil {
			errs = append(errs, err)
		}
		h.scopes[j] = nil
	}
	h.scopes = h.scopes[:i]
	return errors.Join(errs...)
}

// raise throws a Go error into the running script.
func (h *Host) raise(L *lua.LState, err error) int {
	h.state.raise(L, err)
	return 0
}

// scene module

func (h *Host) sceneCreate(L *lua.LState) int {
	name := L.CheckString(1)
	parent := optParent(L, 2)
	id, err := h.editor.Create(name, parent)
	if err != nil {
		return h.raise(L, err)
	}
	L.Push(lua.LString(id.String()))
	return 1
}

func (h *Host) sceneDelete(L *lua.LState) int {
	if err := h.editor.Delete(checkID(L, 1)); err != nil {
		return h.raise(L, err)
	}
	return 0
}

func (h *Host) sceneRename(L *lua.LState) int {
	if err := h.editor.Rename(checkID(L, 1), L.CheckString(2)); err != nil {
		return h.raise(L, err)
	}
	return 0
}

func (h *Host) sceneReparent(L *lua.LState) int {
	if err := h.editor.Reparent(checkID(L, 1), optParent(L, 2)); err != nil {
		return h.raise(L, err)
	}
	return 0
}

func (h *Host) sceneMove(L *lua.LState) int {
	if err := h.editor.Move(checkID(L, 1), checkVec3(L, 2)); err != nil {
		return h.raise(L, err)
	}
	return 0
}

func (h *Host) sceneRotate(L *lua.LState) int {
	if err := h.editor.Rotate(checkID(L, 1), checkVec3(L, 2)); err != nil {
		return h.raise(L, err)
	}
	return 0
}

func (h *Host) sceneScale(L *lua.LState) int {
	if err := h.editor.Scale(checkID(L, 1), checkVec3(L, 2)); err != nil {
		return h.raise(L, err)
	}
	return 0
}

func (h *Host) sceneGet(L *lua.LState) int {
	e, ok := h.editor.Scene().Get(checkID(L, 1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(entityToTable(L, e))
	return 1
}

func (h *Host) sceneFind(L *lua.LState) int {
	L.Push(idsToTable(L, h.editor.Scene().Find(L.CheckString(1))))
	return 1
}

func (h *Host) sceneCount(L *lua.LState) int {
	L.Push(lua.LNumber(h.editor.Scene().Len()))
	return 1
}

func (h *Host) sceneRoots(L *lua.LState) int {
	L.Push(idsToTable(L, h.editor.Scene().Roots()))
	return 1
}

func (h *Host) sceneWorldPosition(L *lua.LState) int {
	pos, err := h.editor.Scene().WorldPosition(checkID(L, 1))
	if err != nil {
		return h.raise(L, err)
	}
	L.Push(vec3ToTable(L, pos))
	return 1
}

// history module

// historyTransaction runs fn inside a named transaction. The transaction is
// completed when fn returns or raises; an error from fn is re-raised after
// completion.
func (h *Host) historyTransaction(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)

	depth := len(h.scopes)
	if err := h.begin(name); err != nil {
		return h.raise(L, err)
	}
	prev := h.floor
	h.floor = len(h.scopes)
	callErr := h.state.call(L, fn)
	h.floor = prev

	if depth > len(h.scopes) {
		depth = len(h.scopes)
	}
	if err := errors.Join(callErr, h.endFrom(depth)); err != nil {
		return h.raise(L, err)
	}
	return 0
}

func (h *Host) historyBegin(L *lua.LState) int {
	if err := h.begin(L.CheckString(1)); err != nil {
		return h.raise(L, err)
	}
	return 0
}

func (h *Host) historyCommit(L *lua.LState) int {
	if len(h.scopes) == 0 {
		return h.raise(L, history.ErrNoTransactionOpen)
	}
	if len(h.scopes) <= h.floor {
		return h.raise(L, ErrCommitEnclosing)
	}
	if err := h.endFrom(len(h.scopes) - 1); err != nil {
		return h.raise(L, err)
	}
	return 0
}

// historyUndo returns false when there is nothing to undo.
func (h *Host) historyUndo(L *lua.LState) int {
	err := h.editor.Stack().Undo(h.editor.Context())
	if errors.Is(err, history.ErrNothingToUndo) {
		L.Push(lua.LFalse)
		return 1
	}
	if err != nil {
		return h.raise(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// historyRedo returns false when there is nothing to redo.
func (h *Host) historyRedo(L *lua.LState) int {
	err := h.editor.Stack().Redo(h.editor.Context())
	if errors.Is(err, history.ErrNothingToRedo) {
		L.Push(lua.LFalse)
		return 1
	}
	if err != nil {
		return h.raise(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

func (h *Host) historyUndoCount(L *lua.LState) int {
	L.Push(lua.LNumber(h.editor.Stack().UndoCount()))
	return 1
}

func (h *Host) historyRedoCount(L *lua.LState) int {
	L.Push(lua.LNumber(h.editor.Stack().RedoCount()))
	return 1
}

func (h *Host) historyCanUndo(L *lua.LState) int {
	L.Push(lua.LBool(h.editor.Stack().CanUndo()))
	return 1
}

func (h *Host) historyCanRedo(L *lua.LState) int {
	L.Push(lua.LBool(h.editor.Stack().CanRedo()))
	return 1
}

func (h *Host) historyClear(L *lua.LState) int {
	if err := h.editor.Stack().Clear(h.editor.Context()); err != nil {
		return h.raise(L, err)
	}
	return 0
}

func (h *Host) historyCheckpoint(L *lua.LState) int {
	ud := L.NewUserData()
	ud.Value = h.editor.Stack().CreateCheckpoint()
	L.SetMetatable(ud, L.GetTypeMetatable(checkpointTypeName))
	L.Push(ud)
	return 1
}

// historyRewind undoes or redoes until the history depth matches the
// checkpoint.
func (h *Host) historyRewind(L *lua.LState) int {
	ud := L.CheckUserData(1)
	cp, ok := ud.Value.(history.Checkpoint)
	if !ok {
		L.ArgError(1, "checkpoint expected")
		return 0
	}
	stack := h.editor.Stack()
	ctx := h.editor.Context()
	if err := stack.UndoToCheckpoint(ctx, cp); err != nil {
		return h.raise(L, err)
	}
	if err := stack.RedoToCheckpoint(ctx, cp); err != nil {
		return h.raise(L, err)
	}
	return 0
}

// historyList returns the done-list descriptions, oldest first.
func (h *Host) historyList(L *lua.LState) int {
	done := h.editor.Stack().Done()
	t := L.CreateTable(len(done), 0)
	for _, tx := range done {
		t.Append(lua.LString(tx.Description()))
	}
	L.Push(t)
	return 1
}
