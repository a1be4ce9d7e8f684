package stdlib

import (
	"sort"
	"strings"

	"github.com/embeddedlua/luacore/internal/diag"
	"github.com/embeddedlua/luacore/internal/interp"
	"github.com/embeddedlua/luacore/internal/value"
)

// tableLibrary mirrors the teacher's table.go tableLibrary slice:
// the same entry points (insert/remove/concat/sort/pack/unpack/move),
// ported from stack-indexed operations onto value.Table directly.
var tableLibrary = []RegistryFunction{
	{"insert", tableInsert},
	{"remove", tableRemove},
	{"concat", tableConcat},
	{"sort", tableSort},
	{"pack", tablePack},
	{"unpack", tableUnpack},
	{"move", tableMove},
}

// TableOpen installs the `table` library, following the teacher's
// TableOpen(l *State) naming.
func TableOpen(it *interp.Interpreter) {
	t := value.NewTable()
	register(t, tableLibrary, it)
	it.Globals.Set("table", t)
}

func tableInsert(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	t, err := checkTable("insert", args, 0)
	if err != nil {
		return nil, err
	}
	n := t.Len()
	switch len(args) {
	case 2:
		t.Set(n+1, args[1])
	case 3:
		pos, err := checkInt("insert", args, 1)
		if err != nil {
			return nil, err
		}
		if pos < 1 || pos > n+1 {
			return nil, value.NewError(diag.Position{}, "bad argument #2 to 'insert' (position out of bounds)")
		}
		t.Insert(pos, args[2])
	default:
		return nil, value.NewError(diag.Position{}, "wrong number of arguments to 'insert'")
	}
	return nil, nil
}

func tableRemove(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	t, err := checkTable("remove", args, 0)
	if err != nil {
		return nil, err
	}
	n := t.Len()
	pos := n
	if len(args) >= 2 {
		pos, err = checkInt("remove", args, 1)
		if err != nil {
			return nil, err
		}
	}
	if n == 0 {
		return []value.Value{nil}, nil
	}
	if pos < 1 || pos > n+1 {
		return nil, value.NewError(diag.Position{}, "bad argument #2 to 'remove' (position out of bounds)")
	}
	return []value.Value{t.Remove(pos)}, nil
}

func tableConcat(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	t, err := checkTable("concat", args, 0)
	if err != nil {
		return nil, err
	}
	sep := ""
	if len(args) >= 2 && args[1] != nil {
		sep, err = checkString("concat", args, 1)
		if err != nil {
			return nil, err
		}
	}
	i := optInt(args, 2, 1)
	j := optInt(args, 3, t.Len())
	var b strings.Builder
	for idx := i; idx <= j; idx++ {
		s, ok := value.ToStringCoercible(t.Get(idx))
		if !ok {
			return nil, value.NewError(diag.Position{}, "invalid value (at index %d) in table for 'concat'", idx)
		}
		b.WriteString(s)
		if idx < j {
			b.WriteString(sep)
		}
	}
	return []value.Value{b.String()}, nil
}

// sortHelper adapts value.Table to sort.Interface, the same structural
// idea as the teacher's sortHelper (there driving a VM stack, here
// driving the table's Get/Set directly), so tableSort can hand it to
// sort.Stable instead of hand-rolling a sort.
type sortHelper struct {
	t    *value.Table
	n    int64
	less *value.Function
	it   *interp.Interpreter
	err  error
}

func (h *sortHelper) Len() int { return int(h.n) }

func (h *sortHelper) Less(i, j int) bool {
	if h.err != nil {
		return false
	}
	a, b := h.t.Get(int64(i+1)), h.t.Get(int64(j+1))
	if h.less != nil {
		res, err := h.less.Call([]value.Value{a, b})
		if err != nil {
			h.err = err
			return false
		}
		return len(res) > 0 && value.IsTruthy(res[0])
	}
	r, comparable := value.Compare(value.CmpLT, a, b)
	if !comparable {
		h.err = value.NewError(diag.Position{}, "attempt to compare two %s values", value.TypeName(a))
		return false
	}
	return r
}

func (h *sortHelper) Swap(i, j int) {
	a, b := h.t.Get(int64(i+1)), h.t.Get(int64(j+1))
	h.t.Set(int64(i+1), b)
	h.t.Set(int64(j+1), a)
}

func tableSort(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	t, err := checkTable("sort", args, 0)
	if err != nil {
		return nil, err
	}
	var less *value.Function
	if len(args) >= 2 && args[1] != nil {
		fn, ok := args[1].(*value.Function)
		if !ok {
			return nil, argError("sort", 1, "function", args[1])
		}
		less = fn
	}
	h := &sortHelper{t: t, n: t.Len(), less: less, it: it}
	sort.Stable(h)
	if h.err != nil {
		return nil, h.err
	}
	return nil, nil
}

func tablePack(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	t := value.NewTable()
	for i, v := range args {
		t.Set(int64(i+1), v)
	}
	t.Set("n", int64(len(args)))
	return []value.Value{t}, nil
}

func tableUnpack(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	t, err := checkTable("unpack", args, 0)
	if err != nil {
		return nil, err
	}
	i := optInt(args, 1, 1)
	j := optInt(args, 2, t.Len())
	if i > j {
		return nil, nil
	}
	out := make([]value.Value, 0, j-i+1)
	for idx := i; idx <= j; idx++ {
		out = append(out, t.Get(idx))
	}
	return out, nil
}

func tableMove(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	a1, err := checkTable("move", args, 0)
	if err != nil {
		return nil, err
	}
	f, err := checkInt("move", args, 1)
	if err != nil {
		return nil, err
	}
	e, err := checkInt("move", args, 2)
	if err != nil {
		return nil, err
	}
	tpos, err := checkInt("move", args, 3)
	if err != nil {
		return nil, err
	}
	a2 := a1
	if len(args) >= 5 && args[4] != nil {
		a2, err = checkTable("move", args, 4)
		if err != nil {
			return nil, err
		}
	}
	if e >= f {
		if tpos > f || tpos > e || a1 != a2 {
			for i := f; i <= e; i++ {
				a2.Set(tpos+(i-f), a1.Get(i))
			}
		} else {
			for i := e; i >= f; i-- {
				a2.Set(tpos+(i-f), a1.Get(i))
			}
		}
	}
	return []value.Value{a2}, nil
}
