package stdlib

import (
	"github.com/embeddedlua/luacore/internal/interp"
	"github.com/embeddedlua/luacore/internal/value"
)

// coroutineLibrary wires the symmetric cooperative scheduler described
// in spec §5 onto the standard coroutine.* surface.
var coroutineLibrary = []RegistryFunction{
	{"create", coCreate},
	{"resume", coResume},
	{"yield", coYield},
	{"status", coStatus},
	{"isyieldable", coIsYieldable},
	{"running", coRunning},
	{"wrap", coWrap},
}

// CoroutineOpen installs the `coroutine` library.
func CoroutineOpen(it *interp.Interpreter) {
	t := value.NewTable()
	register(t, coroutineLibrary, it)
	it.Globals.Set("coroutine", t)
}

func coCreate(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	fn, ok := arg(args, 0).(*value.Function)
	if !ok {
		return nil, argError("create", 0, "function", arg(args, 0))
	}
	return []value.Value{interp.NewCoroutine(fn)}, nil
}

func coResume(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	co, ok := arg(args, 0).(*interp.Coroutine)
	if !ok {
		return nil, argError("resume", 0, "coroutine", arg(args, 0))
	}
	ok2, results := it.Resume(co, args[1:])
	return append([]value.Value{ok2}, results...), nil
}

func coYield(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	return it.Yield(args), nil
}

func coStatus(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	co, ok := arg(args, 0).(*interp.Coroutine)
	if !ok {
		return nil, argError("status", 0, "coroutine", arg(args, 0))
	}
	return []value.Value{co.Status()}, nil
}

func coIsYieldable(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	return []value.Value{it.IsYieldable()}, nil
}

func coRunning(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	co, isMain := it.Running()
	if co == nil {
		return []value.Value{nil, isMain}, nil
	}
	return []value.Value{co, isMain}, nil
}

func coWrap(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	fn, ok := arg(args, 0).(*value.Function)
	if !ok {
		return nil, argError("wrap", 0, "function", arg(args, 0))
	}
	co := interp.NewCoroutine(fn)
	wrapped := &value.Function{Name: "wrapped", IsGo: true, Call: func(callArgs []value.Value) ([]value.Value, error) {
		ok, results := it.Resume(co, callArgs)
		if !ok {
			var ev value.Value
			if len(results) > 0 {
				ev = results[0]
			}
			return nil, &value.LuaError{Value: ev}
		}
		return results, nil
	}}
	return []value.Value{wrapped}, nil
}
