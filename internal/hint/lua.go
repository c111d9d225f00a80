package hint

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// ErrScriptClosed is returned by a closed LuaSource.
var ErrScriptClosed = errors.New("hint script closed")

// LuaSource asks a Lua script for candidates. The script defines a global
// function candidates(key) returning a list whose entries are strings or
// tables with display and value fields.
//
// The state only opens the base, table, string and math libraries and has
// no way to load further code.
type LuaSource struct {
	mu     sync.Mutex
	L      *lua.LState
	closed bool
}

// NewLuaSource runs code and returns a source backed by it.
func NewLuaSource(code string) (*LuaSource, error) {
	return newLuaSource(func(L *lua.LState) error { return L.DoString(code) })
}

// LoadLuaSource runs the script at path.
func LoadLuaSource(path string) (*LuaSource, error) {
	return newLuaSource(func(L *lua.LState) error { return L.DoFile(path) })
}

func newLuaSource(load func(*lua.LState) error) (src *LuaSource, err error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hint script: %v", r)
		}
		if err != nil {
			L.Close()
		}
	}()
	if err := load(L); err != nil {
		return nil, fmt.Errorf("hint script: %w", err)
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	if fn := L.GetGlobal("candidates"); fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("hint script: candidates is %s, want function", fn.Type())
	}
	return &LuaSource{L: L}, nil
}

// Candidates implements Source.
func (s *LuaSource) Candidates(ctx context.Context, key string) (out []Candidate, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrScriptClosed
	}

	s.L.SetContext(ctx)
	defer s.L.RemoveContext()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hint script panic: %v", r)
		}
	}()

	top := s.L.GetTop()
	err = s.L.CallByParam(lua.P{Fn: s.L.GetGlobal("candidates"), NRet: 1, Protect: true}, lua.LString(key))
	if err != nil {
		s.L.SetTop(top)
		return nil, fmt.Errorf("hint script: %w", err)
	}
	ret := s.L.Get(-1)
	s.L.SetTop(top)

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		if ret == lua.LNil {
			return nil, nil
		}
		return nil, fmt.Errorf("hint script: candidates returned %s, want table", ret.Type())
	}
	for i := 1; i <= tbl.Len(); i++ {
		if c, ok := luaCandidate(tbl.RawGetInt(i)); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func luaCandidate(v lua.LValue) (Candidate, bool) {
	switch v := v.(type) {
	case lua.LString:
		return Candidate{Display: string(v), Value: string(v)}, v != ""
	case *lua.LTable:
		value := lua.LVAsString(v.RawGetString("value"))
		display := lua.LVAsString(v.RawGetString("display"))
		if display == "" {
			display = value
		}
		return Candidate{Display: display, Value: value}, value != ""
	}
	return Candidate{}, false
}

// Close releases the Lua state.
func (s *LuaSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.L.Close()
	}
}
