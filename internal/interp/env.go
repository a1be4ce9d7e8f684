// Package interp is the tree-walking evaluator: lexical environments,
// statement/expression dispatch, metamethod resolution, and the
// cooperative coroutine scheduler. It replaces the teacher's register
// VM (vm_test.go's Call/LoadString API) with direct AST recursion, but
// keeps the teacher's error style: Lua-level failures propagate as Go
// panics carrying a *value.LuaError, recovered at protected-call
// boundaries exactly the way the teacher's protectedCall recovers from
// its own Errorf panics.
package interp

import (
	"github.com/embeddedlua/luacore/internal/ast"
	"github.com/embeddedlua/luacore/internal/diag"
	"github.com/embeddedlua/luacore/internal/value"
)

// binding is one local variable's storage cell. Cells are boxed so
// closures that capture a local observe later writes to it (Lua
// upvalues share storage, not snapshots).
type binding struct {
	name   string
	attrib ast.Attrib
	val    value.Value
}

// Env is one lexical scope: a flat slice of bindings plus a parent
// pointer, searched innermost-out on lookup. Function bodies get a
// fresh child Env whose parent is the defining scope, which is how
// closures capture their environment.
type Env struct {
	parent  *Env
	vars    []*binding
	toClose []*binding // <close> locals declared directly in this scope, LIFO order
	varargs []value.Value
}

// NewChildEnv opens a nested scope.
func NewChildEnv(parent *Env) *Env {
	return &Env{parent: parent}
}

// Declare introduces a new local binding, shadowing any existing one
// of the same name in this scope (Lua allows `local x = x`).
func (e *Env) Declare(name string, attrib ast.Attrib, v value.Value) *binding {
	b := &binding{name: name, attrib: attrib, val: v}
	e.vars = append(e.vars, b)
	if attrib == ast.AttribClose {
		e.toClose = append(e.toClose, b)
	}
	return b
}

// Lookup finds the binding for name in e or an ancestor scope.
func (e *Env) Lookup(name string) (*binding, bool) {
	for s := e; s != nil; s = s.parent {
		for i := len(s.vars) - 1; i >= 0; i-- {
			if s.vars[i].name == name {
				return s.vars[i], true
			}
		}
	}
	return nil, false
}

// SetVarargs installs `...` values for this function's top-level scope.
func (e *Env) SetVarargs(vs []value.Value) { e.varargs = vs }

// Varargs walks up to the nearest scope carrying varargs (functions
// open one Env per call that always holds it, even if empty).
func (e *Env) Varargs() []value.Value {
	for s := e; s != nil; s = s.parent {
		if s.varargs != nil {
			return s.varargs
		}
	}
	return nil
}

// closeAll runs __close on every <close> local declared in this scope,
// LIFO, per spec §3.5 / Invariant 5. errVal is the error (if any)
// already in flight when the scope exits, passed to each __close call
// as Lua does; the first additional error raised during closing wins
// if errVal was nil.
func (it *Interpreter) closeAll(e *Env, pos diag.Position, errVal value.Value) value.Value {
	for i := len(e.toClose) - 1; i >= 0; i-- {
		b := e.toClose[i]
		if b.val == nil || b.val == false {
			continue
		}
		mt := value.MetatableOf(b.val)
		closer := mt.TagMethod(value.TMClose)
		if closer == nil {
			continue
		}
		fn, ok := closer.(*value.Function)
		if !ok {
			continue
		}
		_, err := fn.Call([]value.Value{b.val, errVal})
		if err != nil && errVal == nil {
			if le, ok := err.(*value.LuaError); ok {
				errVal = le.Value
			} else {
				errVal = err.Error()
			}
		}
	}
	return errVal
}
