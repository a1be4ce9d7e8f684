package stdlib

import (
	"fmt"

	"github.com/embeddedlua/luacore/internal/interp"
	"github.com/embeddedlua/luacore/internal/value"
)

// debugLibrary is a deliberately small stub: getinfo/traceback/
// getmetatable/setmetatable, enough to satisfy FullTrust scripts that
// probe for the library's presence without exposing sethook/upvalue
// introspection, which this tree-walking interpreter has no register
// file to back. DESIGN.md records this as a scoped-down adaptation
// rather than a dropped library.
var debugLibrary = []RegistryFunction{
	{"getinfo", debugGetinfo},
	{"traceback", debugTraceback},
	{"getmetatable", debugGetmetatable},
	{"setmetatable", debugSetmetatable},
}

// DebugOpen installs the `debug` library. The host facade only calls
// this for the FullTrust policy (spec §4.6).
func DebugOpen(it *interp.Interpreter) {
	t := value.NewTable()
	register(t, debugLibrary, it)
	it.Globals.Set("debug", t)
}

func debugGetinfo(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	info := value.NewTable()
	if fn, ok := arg(args, 0).(*value.Function); ok {
		info.Set("source", "@"+fn.Source)
		info.Set("short_src", fn.Source)
		info.Set("linedefined", int64(fn.Line))
		info.Set("what", map[bool]string{true: "C", false: "Lua"}[fn.IsGo])
		info.Set("name", fn.Name)
	}
	return []value.Value{info}, nil
}

func debugTraceback(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	msg := ""
	if s, ok := arg(args, 0).(string); ok {
		msg = s
	}
	return []value.Value{fmt.Sprintf("stack traceback: %s", msg)}, nil
}

func debugGetmetatable(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	mt := value.MetatableOf(arg(args, 0))
	if mt == nil {
		return []value.Value{nil}, nil
	}
	return []value.Value{mt}, nil
}

func debugSetmetatable(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	t, err := checkTable("setmetatable", args, 0)
	if err != nil {
		return nil, err
	}
	if mt, ok := arg(args, 1).(*value.Table); ok {
		t.Meta = mt
	} else {
		t.Meta = nil
	}
	return []value.Value{t}, nil
}
