// Package stdlib implements the Lua standard library surface (spec
// §4.5): each Open* function registers one library's RegistryFunction
// table into the interpreter's globals, following the teacher's
// TableOpen/MathOpen/StringOpen naming and registration style even
// though the functions themselves are rewritten against the tree-
// walking Interpreter's calling convention instead of the teacher's
// register-VM stack.
package stdlib

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/embeddedlua/luacore/internal/diag"
	"github.com/embeddedlua/luacore/internal/interp"
	"github.com/embeddedlua/luacore/internal/value"
)

// RegistryFunction names one Go-implemented library entry, exactly the
// shape the teacher's table.go/math.go/string.go use to build their
// library tables.
type RegistryFunction struct {
	Name string
	Fn   func(it *interp.Interpreter, args []value.Value) ([]value.Value, error)
}

func register(t *value.Table, fns []RegistryFunction, it *interp.Interpreter) {
	for _, rf := range fns {
		rf := rf
		t.Set(rf.Name, &value.Function{
			Name: rf.Name,
			IsGo: true,
			Call: func(args []value.Value) ([]value.Value, error) { return rf.Fn(it, args) },
		})
	}
}

func arg(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func argError(fname string, i int, expected string, got value.Value) error {
	return value.NewError(diag.Position{}, "bad argument #%d to '%s' (%s expected, got %s)",
		i+1, fname, expected, value.TypeName(got))
}

func checkString(fname string, args []value.Value, i int) (string, error) {
	v := arg(args, i)
	switch s := v.(type) {
	case string:
		return s, nil
	case int64:
		return value.IntegerToString(s), nil
	case float64:
		return value.NumberToString(s), nil
	}
	return "", argError(fname, i, "string", v)
}

func checkTable(fname string, args []value.Value, i int) (*value.Table, error) {
	t, ok := arg(args, i).(*value.Table)
	if !ok {
		return nil, argError(fname, i, "table", arg(args, i))
	}
	return t, nil
}

func checkInt(fname string, args []value.Value, i int) (int64, error) {
	v := arg(args, i)
	if n, ok := value.ToInteger(v); ok {
		return n, nil
	}
	if s, ok := v.(string); ok {
		if n, ok := value.ParseNumber(s); ok {
			if i64, ok := value.ToInteger(n); ok {
				return i64, nil
			}
		}
	}
	return 0, argError(fname, i, "number", v)
}

func checkFloat(fname string, args []value.Value, i int) (float64, error) {
	v := arg(args, i)
	if f, ok := value.ToFloat(v); ok {
		return f, nil
	}
	if s, ok := v.(string); ok {
		if n, ok := value.ParseNumber(s); ok {
			f, _ := value.ToFloat(n)
			return f, nil
		}
	}
	return 0, argError(fname, i, "number", v)
}

func optInt(args []value.Value, i int, def int64) int64 {
	v := arg(args, i)
	if v == nil {
		return def
	}
	if n, ok := value.ToInteger(v); ok {
		return n
	}
	return def
}

// BasicOpen installs the global base library (print, type, pairs,
// pcall, ...) directly into it.Globals, matching the teacher's
// pattern of installing each library straight into the globals/package
// table rather than returning one.
func BasicOpen(it *interp.Interpreter) {
	g := it.Globals
	g.Set("_G", g)
	g.Set("_VERSION", "Lua 5.4")

	set := func(name string, fn func(it *interp.Interpreter, args []value.Value) ([]value.Value, error)) {
		g.Set(name, &value.Function{Name: name, IsGo: true, Call: func(args []value.Value) ([]value.Value, error) { return fn(it, args) }})
	}

	set("print", func(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = toStringMeta(it, a)
		}
		fmt.Fprintln(os.Stdout, strings.Join(parts, "\t"))
		return nil, nil
	})

	set("type", func(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
		return []value.Value{value.TypeName(arg(args, 0))}, nil
	})

	set("tostring", func(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
		return []value.Value{toStringMeta(it, arg(args, 0))}, nil
	})

	set("tonumber", func(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
		if len(args) >= 2 {
			base, _ := value.ToInteger(args[1])
			s, ok := arg(args, 0).(string)
			if !ok {
				return []value.Value{nil}, nil
			}
			n, err := parseInBase(strings.TrimSpace(s), int(base))
			if err != nil {
				return []value.Value{nil}, nil
			}
			return []value.Value{n}, nil
		}
		v := arg(args, 0)
		if value.IsNumber(v) {
			return []value.Value{v}, nil
		}
		if s, ok := v.(string); ok {
			if n, ok := value.ParseNumber(s); ok {
				return []value.Value{n}, nil
			}
		}
		return []value.Value{nil}, nil
	})

	set("ipairs", func(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
		t, err := checkTable("ipairs", args, 0)
		if err != nil {
			return nil, err
		}
		iter := &value.Function{Name: "inext", IsGo: true, Call: func(a []value.Value) ([]value.Value, error) {
			tbl := a[0].(*value.Table)
			i, _ := value.ToInteger(a[1])
			i++
			v := tbl.Get(i)
			if v == nil {
				return []value.Value{nil}, nil
			}
			return []value.Value{i, v}, nil
		}}
		return []value.Value{iter, t, int64(0)}, nil
	})

	set("next", func(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
		t, err := checkTable("next", args, 0)
		if err != nil {
			return nil, err
		}
		k, v, ok := t.Next(arg(args, 1))
		if !ok {
			return nil, value.NewError(diag.Position{}, "invalid key to 'next'")
		}
		if k == nil {
			return []value.Value{nil}, nil
		}
		return []value.Value{k, v}, nil
	})

	set("pairs", func(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
		t, err := checkTable("pairs", args, 0)
		if err != nil {
			return nil, err
		}
		if mt := t.TagMethod(value.TMIndex); mt != nil {
			_ = mt // __pairs is a 5.2-only extension; 5.4 removed it, ignored here.
		}
		nextFn := g.Get("next").(*value.Function)
		return []value.Value{nextFn, t, nil}, nil
	})

	set("select", func(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
		if s, ok := arg(args, 0).(string); ok && s == "#" {
			return []value.Value{int64(len(args) - 1)}, nil
		}
		n, err := checkInt("select", args, 0)
		if err != nil {
			return nil, err
		}
		rest := args[1:]
		if n < 0 {
			n = int64(len(rest)) + n + 1
		}
		if n < 1 || int(n) > len(rest) {
			return nil, nil
		}
		return rest[n-1:], nil
	})

	set("rawget", func(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
		t, err := checkTable("rawget", args, 0)
		if err != nil {
			return nil, err
		}
		return []value.Value{t.Get(arg(args, 1))}, nil
	})

	set("rawset", func(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
		t, err := checkTable("rawset", args, 0)
		if err != nil {
			return nil, err
		}
		t.Set(arg(args, 1), arg(args, 2))
		return []value.Value{t}, nil
	})

	set("rawequal", func(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
		return []value.Value{value.RawEqual(arg(args, 0), arg(args, 1))}, nil
	})

	set("rawlen", func(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
		switch v := arg(args, 0).(type) {
		case *value.Table:
			return []value.Value{v.Len()}, nil
		case string:
			return []value.Value{int64(len(v))}, nil
		}
		return nil, value.NewError(diag.Position{}, "table or string expected")
	})

	set("setmetatable", func(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
		t, err := checkTable("setmetatable", args, 0)
		if err != nil {
			return nil, err
		}
		if t.Meta != nil && t.Meta.Get("__metatable") != nil {
			return nil, value.NewError(diag.Position{}, "cannot change a protected metatable")
		}
		switch mt := arg(args, 1).(type) {
		case nil:
			t.Meta = nil
		case *value.Table:
			t.Meta = mt
		default:
			return nil, value.NewError(diag.Position{}, "bad argument #2 to 'setmetatable' (nil or table expected)")
		}
		return []value.Value{t}, nil
	})

	set("getmetatable", func(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
		mt := value.MetatableOf(arg(args, 0))
		if mt == nil {
			return []value.Value{nil}, nil
		}
		if protected := mt.Get("__metatable"); protected != nil {
			return []value.Value{protected}, nil
		}
		return []value.Value{mt}, nil
	})

	set("assert", func(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
		if len(args) == 0 || !value.IsTruthy(args[0]) {
			if len(args) >= 2 {
				return nil, &value.LuaError{Value: args[1]}
			}
			return nil, &value.LuaError{Value: "assertion failed!"}
		}
		return args, nil
	})

	set("error", func(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
		v := arg(args, 0)
		level := optInt(args, 1, 1)
		if s, ok := v.(string); ok && level > 0 {
			v = s // the message is raised as given; no position prefix is added at any level
		}
		return nil, &value.LuaError{Value: v}
	})

	set("pcall", func(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
		fn, ok := arg(args, 0).(*value.Function)
		if !ok {
			return []value.Value{false, "attempt to call a " + value.TypeName(arg(args, 0)) + " value"}, nil
		}
		ok2, res, errVal := it.ProtectedCall(fn, args[1:], nil)
		if !ok2 {
			return []value.Value{false, errVal}, nil
		}
		return append([]value.Value{true}, res...), nil
	})

	set("xpcall", func(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
		fn, ok := arg(args, 0).(*value.Function)
		if !ok {
			return []value.Value{false, "attempt to call a " + value.TypeName(arg(args, 0)) + " value"}, nil
		}
		handler, _ := arg(args, 1).(*value.Function)
		rest := args[2:]
		ok2, res, errVal := it.ProtectedCall(fn, rest, handler)
		if !ok2 {
			return []value.Value{false, errVal}, nil
		}
		return append([]value.Value{true}, res...), nil
	})

	set("unpack", tableUnpack) // 5.1 compatibility alias; table.unpack is canonical in 5.4

	// collectgarbage drives Go's GC for "collect"/"step" (there's no
	// generational/incremental knob to expose), and answers the
	// introspection queries ("count", "isrunning") with best-effort
	// numbers; it's a real base-library global mainly so trust levels
	// that block it (Untrusted, spec §4.6) have something to block.
	warnOn := false
	set("collectgarbage", func(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
		opt, _ := arg(args, 0).(string)
		switch opt {
		case "", "collect", "step":
			runtime.GC()
			return []value.Value{int64(0)}, nil
		case "count":
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			return []value.Value{float64(m.HeapAlloc) / 1024, int64(0)}, nil
		case "isrunning":
			return []value.Value{true}, nil
		case "stop", "restart", "incremental", "generational":
			return []value.Value{int64(0)}, nil
		}
		return nil, value.NewError(diag.Position{}, "bad argument #1 to 'collectgarbage' (invalid option '%s')", opt)
	})

	// warn follows 5.4's control-message protocol: a first argument of
	// "@on"/"@off" toggles emission, any other call concatenates its
	// arguments and prints them with the "Lua warning: " prefix when
	// warnings are enabled.
	set("warn", func(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
		if len(args) == 1 {
			if s, ok := args[0].(string); ok && strings.HasPrefix(s, "@") {
				switch s {
				case "@on":
					warnOn = true
				case "@off":
					warnOn = false
				}
				return nil, nil
			}
		}
		if !warnOn {
			return nil, nil
		}
		var b strings.Builder
		for _, a := range args {
			s, ok := a.(string)
			if !ok {
				return nil, value.NewError(diag.Position{}, "bad argument to 'warn' (string expected, got %s)", value.TypeName(a))
			}
			b.WriteString(s)
		}
		fmt.Fprintln(os.Stderr, "Lua warning: "+b.String())
		return nil, nil
	})
}

// toStringMeta applies __tostring/__name before falling back to
// value.ToDisplayString, matching `tostring`'s full resolution order.
func toStringMeta(it *interp.Interpreter, v value.Value) string {
	mt := value.MetatableOf(v)
	if mt != nil {
		if tm := mt.TagMethod(value.TMToString); tm != nil {
			if fn, ok := tm.(*value.Function); ok {
				res, err := fn.Call([]value.Value{v})
				if err == nil && len(res) > 0 {
					if s, ok := res[0].(string); ok {
						return s
					}
				}
			}
		}
		if name, ok := mt.Get("__name").(string); ok {
			return fmt.Sprintf("%s: %p", name, v)
		}
	}
	return value.ToDisplayString(v)
}

func parseInBase(s string, base int) (value.Value, error) {
	if base < 2 || base > 36 {
		return nil, fmt.Errorf("base out of range")
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	if s == "" {
		return nil, fmt.Errorf("empty")
	}
	var n int64
	for _, c := range strings.ToLower(s) {
		var d int
		switch {
		case c >= '0' && c <= '9':
			d = int(c - '0')
		case c >= 'a' && c <= 'z':
			d = int(c-'a') + 10
		default:
			return nil, fmt.Errorf("bad digit")
		}
		if d >= base {
			return nil, fmt.Errorf("bad digit")
		}
		n = n*int64(base) + int64(d)
	}
	if neg {
		n = -n
	}
	return n, nil
}
