package stdlib

import (
	"math"
	"math/rand"

	"github.com/embeddedlua/luacore/internal/diag"
	"github.com/embeddedlua/luacore/internal/interp"
	"github.com/embeddedlua/luacore/internal/value"
)

// mathLibrary follows the teacher's math.go entry list; integer
// preservation rules (abs/floor/ceil/fmod/min/max keep int64 when
// every input is int64) are ported from its int-vs-float branches.
var mathLibrary = []RegistryFunction{
	{"abs", mathAbs},
	{"ceil", mathCeil},
	{"floor", mathFloor},
	{"sqrt", unary1(math.Sqrt)},
	{"sin", unary1(math.Sin)},
	{"cos", unary1(math.Cos)},
	{"tan", unary1(math.Tan)},
	{"asin", unary1(math.Asin)},
	{"acos", unary1(math.Acos)},
	{"atan", mathAtan},
	{"exp", unary1(math.Exp)},
	{"log", mathLog},
	{"fmod", mathFmod},
	{"modf", mathModf},
	{"max", mathMax},
	{"min", mathMin},
	{"random", mathRandom},
	{"randomseed", mathRandomSeed},
	{"tointeger", mathToInteger},
	{"type", mathType},
	{"ult", mathUlt},
}

// MathOpen installs the `math` library and its constants, matching
// the teacher's MathOpen.
func MathOpen(it *interp.Interpreter) {
	t := value.NewTable()
	register(t, mathLibrary, it)
	t.Set("pi", math.Pi)
	t.Set("huge", math.Inf(1))
	t.Set("maxinteger", int64(math.MaxInt64))
	t.Set("mininteger", int64(math.MinInt64))
	it.Globals.Set("math", t)
}

func unary1(f func(float64) float64) func(*interp.Interpreter, []value.Value) ([]value.Value, error) {
	return func(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
		x, err := checkFloat("math", args, 0)
		if err != nil {
			return nil, err
		}
		return []value.Value{f(x)}, nil
	}
}

func mathAbs(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	if i, ok := arg(args, 0).(int64); ok {
		if i < 0 {
			i = -i
		}
		return []value.Value{i}, nil
	}
	x, err := checkFloat("abs", args, 0)
	if err != nil {
		return nil, err
	}
	return []value.Value{math.Abs(x)}, nil
}

func mathCeil(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	if i, ok := arg(args, 0).(int64); ok {
		return []value.Value{i}, nil
	}
	x, err := checkFloat("ceil", args, 0)
	if err != nil {
		return nil, err
	}
	f := math.Ceil(x)
	if i, ok := value.FloatToInteger(f); ok {
		return []value.Value{i}, nil
	}
	return []value.Value{f}, nil
}

func mathFloor(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	if i, ok := arg(args, 0).(int64); ok {
		return []value.Value{i}, nil
	}
	x, err := checkFloat("floor", args, 0)
	if err != nil {
		return nil, err
	}
	f := math.Floor(x)
	if i, ok := value.FloatToInteger(f); ok {
		return []value.Value{i}, nil
	}
	return []value.Value{f}, nil
}

func mathAtan(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	y, err := checkFloat("atan", args, 0)
	if err != nil {
		return nil, err
	}
	x := 1.0
	if len(args) >= 2 {
		x, err = checkFloat("atan", args, 1)
		if err != nil {
			return nil, err
		}
	}
	return []value.Value{math.Atan2(y, x)}, nil
}

func mathLog(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	x, err := checkFloat("log", args, 0)
	if err != nil {
		return nil, err
	}
	if len(args) >= 2 {
		base, err := checkFloat("log", args, 1)
		if err != nil {
			return nil, err
		}
		switch base {
		case 2:
			return []value.Value{math.Log2(x)}, nil
		case 10:
			return []value.Value{math.Log10(x)}, nil
		default:
			return []value.Value{math.Log(x) / math.Log(base)}, nil
		}
	}
	return []value.Value{math.Log(x)}, nil
}

func mathFmod(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	if xi, ok := arg(args, 0).(int64); ok {
		if yi, ok := arg(args, 1).(int64); ok {
			if yi == 0 {
				return nil, value.NewError(diag.Position{}, "bad argument #2 to 'fmod' (zero)")
			}
			return []value.Value{xi % yi}, nil
		}
	}
	x, err := checkFloat("fmod", args, 0)
	if err != nil {
		return nil, err
	}
	y, err := checkFloat("fmod", args, 1)
	if err != nil {
		return nil, err
	}
	return []value.Value{math.Mod(x, y)}, nil
}

func mathModf(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	x, err := checkFloat("modf", args, 0)
	if err != nil {
		return nil, err
	}
	if math.IsInf(x, 0) {
		return []value.Value{x, 0.0}, nil
	}
	ip, fp := math.Modf(x)
	return []value.Value{ip, fp}, nil
}

func mathMax(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	return reduceMinMax(args, "max", false)
}

func mathMin(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	return reduceMinMax(args, "min", true)
}

// reduceMinMax ports the teacher's reduce() helper: preserve int64
// typing across the whole comparison chain when every argument is an
// integer, otherwise compare in float space.
func reduceMinMax(args []value.Value, name string, wantMin bool) ([]value.Value, error) {
	if len(args) == 0 {
		return nil, value.NewError(diag.Position{}, "bad argument #1 to '%s' (value expected)", name)
	}
	best := args[0]
	for _, v := range args[1:] {
		r, ok := value.Compare(value.CmpLT, v, best)
		if !ok {
			return nil, value.NewError(diag.Position{}, "bad argument to '%s'", name)
		}
		if wantMin == r {
			best = v
		}
	}
	return []value.Value{best}, nil
}

func mathRandom(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	switch len(args) {
	case 0:
		return []value.Value{rand.Float64()}, nil
	case 1:
		m, err := checkInt("random", args, 0)
		if err != nil {
			return nil, err
		}
		if m == 0 {
			return []value.Value{int64(rand.Uint64())}, nil
		}
		if m < 1 {
			return nil, value.NewError(diag.Position{}, "bad argument #1 to 'random' (interval is empty)")
		}
		return []value.Value{int64(rand.Int63n(m)) + 1}, nil
	default:
		lo, err := checkInt("random", args, 0)
		if err != nil {
			return nil, err
		}
		hi, err := checkInt("random", args, 1)
		if err != nil {
			return nil, err
		}
		if lo > hi {
			return nil, value.NewError(diag.Position{}, "bad argument #2 to 'random' (interval is empty)")
		}
		span := uint64(hi - lo)
		if span == math.MaxUint64 {
			return []value.Value{int64(rand.Uint64())}, nil
		}
		return []value.Value{lo + int64(rand.Int63n(int64(span)+1))}, nil
	}
}

func mathRandomSeed(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	if len(args) == 0 {
		return nil, nil
	}
	seed, err := checkInt("randomseed", args, 0)
	if err != nil {
		return nil, err
	}
	rand.Seed(seed)
	return nil, nil
}

func mathToInteger(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	if i, ok := value.ToInteger(arg(args, 0)); ok {
		if !value.IsNumber(arg(args, 0)) {
			return []value.Value{nil}, nil
		}
		return []value.Value{i}, nil
	}
	return []value.Value{nil}, nil
}

func mathType(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	switch arg(args, 0).(type) {
	case int64:
		return []value.Value{"integer"}, nil
	case float64:
		return []value.Value{"float"}, nil
	}
	return []value.Value{nil}, nil
}

func mathUlt(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	a, err := checkInt("ult", args, 0)
	if err != nil {
		return nil, err
	}
	b, err := checkInt("ult", args, 1)
	if err != nil {
		return nil, err
	}
	return []value.Value{uint64(a) < uint64(b)}, nil
}
