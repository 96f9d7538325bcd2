// Package luacheck runs content validators written in Lua.
//
// A content type's Validator is the body of a Lua function called with the
// candidate text and a boolean telling whether trailing whitespace will be
// chopped:
//
//	local depth = 0
//	for c in text:gmatch("[()]") do
//	  depth = depth + (c == "(" and 1 or -1)
//	end
//	return depth == 0
//
// It returns a number with the content checker meaning (negative rejects,
// zero accepts, positive resumes the boundary search that many bytes past
// the content start) or a boolean (true accepts, false rejects). Nothing
// returned accepts. Script errors reject, and so do fractional numbers and
// positive numbers that would resume the search at or before the rejected
// boundary.
package luacheck

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/gnoswap-labs/treeform/parser"
)

const DefaultTimeout = time.Second

// Checker is a parser.ContentChecker backed by one Lua state.
type Checker struct {
	mu      sync.Mutex
	L       *lua.LState
	fns     map[string]*lua.LFunction
	timeout time.Duration
	onError func(ct parser.ContentType, err error)
}

type Option func(*Checker)

// WithTimeout bounds a single validator call.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) { c.timeout = d }
}

// WithErrorHandler is told about every failing validator call.
func WithErrorHandler(fn func(ct parser.ContentType, err error)) Option {
	return func(c *Checker) { c.onError = fn }
}

// New compiles the validators of every content type in g that has one.
func New(g *parser.Grammar, opts ...Option) (*Checker, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.fn), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("opening lua library %s: %w", lib.name, err)
		}
	}

	c := &Checker{L: L, fns: make(map[string]*lua.LFunction), timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	for _, ct := range g.Contents {
		if ct.Validator == "" {
			continue
		}
		src := "return function(text, chop)\n" + ct.Validator + "\nend"
		fn, err := L.LoadString(src)
		if err != nil {
			L.Close()
			return nil, fmt.Errorf("content type %q: %w", ct.Name, err)
		}
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}); err != nil {
			L.Close()
			return nil, fmt.Errorf("content type %q: %w", ct.Name, err)
		}
		built, ok := L.Get(-1).(*lua.LFunction)
		L.Pop(1)
		if !ok {
			L.Close()
			return nil, fmt.Errorf("content type %q: validator did not compile to a function", ct.Name)
		}
		c.fns[ct.Name] = built
	}
	return c, nil
}

// Check implements parser.ContentChecker.
func (c *Checker) Check(ct parser.ContentType, text string, chopWS bool) int {
	fn, ok := c.fns[ct.Name]
	if !ok {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	c.L.SetContext(ctx)
	defer c.L.RemoveContext()

	err := c.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lua.LString(text), lua.LBool(chopWS))
	if err != nil {
		c.fail(ct, err)
		return -1
	}
	ret := c.L.Get(-1)
	c.L.Pop(1)

	switch v := ret.(type) {
	case lua.LNumber:
		return c.resume(ct, float64(v), len(text))
	case lua.LBool:
		if v {
			return 0
		}
		return -1
	case *lua.LNilType:
		return 0
	}
	c.fail(ct, fmt.Errorf("validator returned %s", ret.Type()))
	return -1
}

// resume validates a numeric result against the candidate length.
func (c *Checker) resume(ct parser.ContentType, n float64, length int) int {
	switch {
	case math.IsNaN(n) || n != math.Trunc(n):
		c.fail(ct, fmt.Errorf("validator returned non-integer %v", n))
		return -1
	case n <= 0:
		if n < 0 {
			return -1
		}
		return 0
	case n <= float64(length):
		c.fail(ct, fmt.Errorf("validator resumed at %v, not past the boundary at %d", n, length))
		return -1
	case n > math.MaxInt32:
		return math.MaxInt32
	}
	return int(n)
}

func (c *Checker) fail(ct parser.ContentType, err error) {
	if c.onError != nil {
		c.onError(ct, err)
	}
}

// Has reports whether content type name has a validator.
func (c *Checker) Has(name string) bool {
	_, ok := c.fns[name]
	return ok
}

func (c *Checker) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.L.Close()
}
