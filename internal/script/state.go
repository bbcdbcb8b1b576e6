package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultTimeout bounds a single script run.
const DefaultTimeout = 5 * time.Second

// errorTypeName is the metatable name of Go errors raised into Lua.
const errorTypeName = "scenetx.error"

// State is a sandboxed Lua state. It is not goroutine-safe.
type State struct {
	L *lua.LState

	timeout time.Duration
	output  io.Writer
	closed  bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithTimeout bounds each Run. Zero disables the limit.
func WithTimeout(d time.Duration) StateOption {
	return func(s *State) {
		if d >= 0 {
			s.timeout = d
		}
	}
}

// WithOutput redirects print. The default is os.Stdout.
func WithOutput(w io.Writer) StateOption {
	return func(s *State) {
		if w != nil {
			s.output = w
		}
	}
}

// NewState creates a sandboxed Lua state.
func NewState(opts ...StateOption) *State {
	s := &State{
		timeout: DefaultTimeout,
		output:  os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetGlobal("print", L.NewFunction(s.print))

	mt := L.NewTypeMetatable(errorTypeName)
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		ud := L.CheckUserData(1)
		if err, ok := ud.Value.(error); ok {
			L.Push(lua.LString(err.Error()))
			return 1
		}
		L.Push(lua.LString("error"))
		return 1
	}))

	s.L = L
	return s
}

// print writes its arguments tab-separated to the configured output.
func (s *State) print(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, n)
	for i := 1; i <= n; i++ {
		parts[i-1] = L.ToStringMeta(L.Get(i)).String()
	}
	fmt.Fprintln(s.output, strings.Join(parts, "\t"))
	return 0
}

// SetTimeout changes the limit for later runs. Zero disables it.
func (s *State) SetTimeout(d time.Duration) {
	if d >= 0 {
		s.timeout = d
	}
}

// Register installs a global table of functions.
func (s *State) Register(name string, funcs map[string]lua.LGFunction) {
	s.L.SetGlobal(name, s.L.SetFuncs(s.L.NewTable(), funcs))
}

// Run compiles and executes code under the chunk name name.
func (s *State) Run(ctx context.Context, name, code string) error {
	return s.run(ctx, name, strings.NewReader(code))
}

// RunFile executes the Lua file at path.
func (s *State) RunFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &ScriptError{Script: path, Err: err}
	}
	defer f.Close()
	return s.run(ctx, path, f)
}

func (s *State) run(ctx context.Context, name string, r io.Reader) error {
	if s.closed {
		return ErrStateClosed
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	fn, err := s.L.Load(r, name)
	if err != nil {
		return &ScriptError{Script: name, Err: err}
	}

	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	s.L.Push(fn)
	if err := s.L.PCall(0, lua.MultRet, nil); err != nil {
		return &ScriptError{Script: name, Err: s.convertError(ctx, err)}
	}
	s.L.SetTop(0)
	return nil
}

// convertError recovers Go errors raised by host functions and maps context
// expiry to ErrScriptTimeout.
func (s *State) convertError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrScriptTimeout
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		if ud, ok := apiErr.Object.(*lua.LUserData); ok {
			if goErr, ok := ud.Value.(error); ok {
				return goErr
			}
		}
	}
	return err
}

// raise throws err into Lua, keeping the Go value so it can be recovered.
func (s *State) raise(L *lua.LState, err error) {
	ud := L.NewUserData()
	ud.Value = err
	L.SetMetatable(ud, L.GetTypeMetatable(errorTypeName))
	L.Error(ud, 1)
}

// call invokes fn in protected mode and returns a Go error on failure.
func (s *State) call(L *lua.LState, fn *lua.LFunction) error {
	err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true})
	if err == nil {
		return nil
	}
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		if ud, ok := apiErr.Object.(*lua.LUserData); ok {
			if goErr, ok := ud.Value.(error); ok {
				return goErr
			}
		}
		return errors.New(apiErr.Object.String())
	}
	return err
}

// Close releases the Lua state.
func (s *State) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.L.Close()
}
