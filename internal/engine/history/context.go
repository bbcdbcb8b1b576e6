package history

import (
	"strconv"
	"sync/atomic"
)

// ContextID identifies an execution context. Zero is never issued.
type ContextID uint64

var lastContextID atomic.Uint64

// Context is the identity token of a single logical writer, such as an
// editor main loop or a script executor goroutine.
//
// A Context is captured when a transaction opens and compared on every later
// push, complete, undo and redo. Nothing is stored in goroutine-local or
// global state; callers pass their Context explicitly.
type Context struct {
	id   ContextID
	name string
}

// NewContext allocates a new execution context identity.
func NewContext(name string) *Context {
	return &Context{
		id:   ContextID(lastContextID.Add(1)),
		name: name,
	}
}

// ID returns the context identity.
func (c *Context) ID() ContextID {
	if c == nil {
		return 0
	}
	return c.id
}

// Name returns the descriptive name given at creation.
func (c *Context) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// String returns "name#id".
func (c *Context) String() string {
	if c == nil {
		return "<nil>"
	}
	return c.name + "#" + strconv.FormatUint(uint64(c.id), 10)
}

// guard compares callers against the identity captured at open time.
type guard struct {
	owner ContextID
}

func newGuard(ctx *Context) guard {
	return guard{owner: ctx.ID()}
}

// check returns nil when caller is the owning context.
func (g guard) check(action string, caller *Context) error {
	if caller == nil {
		return ErrNilContext
	}
	if caller.id != g.owner {
		return &ContextMismatchError{
			Action:   action,
			Expected: g.owner,
			Actual:   caller.id,
		}
	}
	return nil
}

// bound reports whether the guard still holds an identity.
func (g guard) bound() bool {
	return g.owner != 0
}

// release drops the captured identity.
func (g *guard) release() {
	g.owner = 0
}
