package value

import "math"

// TagMethod enumerates the metamethod events, in the order the teacher's
// tag_methods.go declares them, extended with the 5.4 events the
// teacher's 5.2-era VM never needed (__idiv, __band/__bor/__bxor/__bnot/
// __shl/__shr, __close).
type TagMethod int

const (
	TMIndex TagMethod = iota
	TMNewIndex
	TMGC
	TMMode
	TMLen
	TMEq
	TMAdd
	TMSub
	TMMul
	TMMod
	TMPow
	TMDiv
	TMIDiv
	TMBAnd
	TMBOr
	TMBXor
	TMBNot
	TMShl
	TMShr
	TMUnm
	TMLt
	TMLe
	TMConcat
	TMCall
	TMClose
	TMToString
	tmCount
)

// EventNames mirrors the teacher's eventNames: the metamethod field
// name for each TagMethod, e.g. "__index".
var EventNames = [tmCount]string{
	TMIndex: "__index", TMNewIndex: "__newindex", TMGC: "__gc", TMMode: "__mode",
	TMLen: "__len", TMEq: "__eq", TMAdd: "__add", TMSub: "__sub", TMMul: "__mul",
	TMMod: "__mod", TMPow: "__pow", TMDiv: "__div", TMIDiv: "__idiv",
	TMBAnd: "__band", TMBOr: "__bor", TMBXor: "__bxor", TMBNot: "__bnot",
	TMShl: "__shl", TMShr: "__shr", TMUnm: "__unm", TMLt: "__lt", TMLe: "__le",
	TMConcat: "__concat", TMCall: "__call", TMClose: "__close",
	TMToString: "__tostring",
}

// TagMethod looks up event ev in t, where t is itself a metatable (as
// returned by MetatableOf); a nil t has no events. Mirrors teacher's
// (events *table) tagMethod.
func (t *Table) TagMethod(ev TagMethod) Value {
	if t == nil {
		return nil
	}
	return t.Get(EventNames[ev])
}

// MetatableOf returns v's metatable, if it has one addressable from Go:
// tables and userdata carry their own; other types have none here (the
// interpreter layers a shared string metatable on top since it owns
// the global state that holds it).
func MetatableOf(v Value) *Table {
	switch v := v.(type) {
	case *Table:
		return v.Meta
	case *UserData:
		return v.Meta
	default:
		return nil
	}
}

// ArithOp enumerates the arithmetic/bitwise operators dispatched by
// the interpreter's binary-expression evaluator.
type ArithOp int

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpMod
	OpPow
	OpDiv
	OpIDiv
	OpBAnd
	OpBOr
	OpBXor
	OpShl
	OpShr
	OpUnm
	OpBNot
)

// arithToTM maps an ArithOp to its metamethod event, for building the
// fallback error ("attempt to perform arithmetic on a %s value") and
// for metamethod lookup when both operands lack raw numeric values.
var arithToTM = map[ArithOp]TagMethod{
	OpAdd: TMAdd, OpSub: TMSub, OpMul: TMMul, OpMod: TMMod, OpPow: TMPow,
	OpDiv: TMDiv, OpIDiv: TMIDiv, OpBAnd: TMBAnd, OpBOr: TMBOr, OpBXor: TMBXor,
	OpShl: TMShl, OpShr: TMShr, OpUnm: TMUnm, OpBNot: TMBNot,
}

// EventFor returns the metamethod event for an arithmetic operator.
func (op ArithOp) EventFor() TagMethod { return arithToTM[op] }

// IsBitwise reports whether op requires integer-representable operands
// (band/bor/bxor/shl/shr/bnot), which never fall back to float math.
func (op ArithOp) IsBitwise() bool {
	switch op {
	case OpBAnd, OpBOr, OpBXor, OpShl, OpShr, OpBNot:
		return true
	}
	return false
}

// ArithFloat implements the float-domain semantics for an op, mirroring
// the teacher's arith(op, v1, v2 float64) float64 table.
func ArithFloat(op ArithOp, x, y float64) float64 {
	switch op {
	case OpAdd:
		return x + y
	case OpSub:
		return x - y
	case OpMul:
		return x * y
	case OpDiv:
		return x / y
	case OpPow:
		return math.Pow(x, y)
	case OpMod:
		r := math.Mod(x, y)
		if r != 0 && (r < 0) != (y < 0) {
			r += y
		}
		return r
	case OpIDiv:
		return math.Floor(x / y)
	case OpUnm:
		return -x
	}
	return 0
}

// ArithInt implements the integer-domain semantics, returning ok=false
// for the cases Lua raises an error for (division/modulo by zero),
// which the caller turns into a RuntimeSemantic diagnostic.
func ArithInt(op ArithOp, x, y int64) (result int64, ok bool) {
	switch op {
	case OpAdd:
		return x + y, true
	case OpSub:
		return x - y, true
	case OpMul:
		return x * y, true
	case OpUnm:
		return -x, true
	case OpBNot:
		return ^x, true
	case OpBAnd:
		return x & y, true
	case OpBOr:
		return x | y, true
	case OpBXor:
		return x ^ y, true
	case OpShl:
		return shiftLeft(x, y), true
	case OpShr:
		return shiftLeft(x, -y), true
	case OpIDiv:
		if y == 0 {
			return 0, false
		}
		q := x / y
		if (x%y != 0) && ((x < 0) != (y < 0)) {
			q--
		}
		return q, true
	case OpMod:
		if y == 0 {
			return 0, false
		}
		r := x % y
		if r != 0 && (r < 0) != (y < 0) {
			r += y
		}
		return r, true
	}
	return 0, false
}

// shiftLeft implements Lua's logical shift, which defines shifts of 64
// or more bits (in either direction) as zero, and a negative shift
// count as a shift in the opposite direction.
func shiftLeft(x, n int64) int64 {
	if n <= -64 || n >= 64 {
		return 0
	}
	if n >= 0 {
		return int64(uint64(x) << uint(n))
	}
	return int64(uint64(x) >> uint(-n))
}

// CompareOp enumerates the ordering operators; kept distinct from
// ArithOp since only < and <= have metamethods (> and >= are desugared
// by the interpreter into swapped < and <=, per Lua's own manual).
type CompareOp int

const (
	CmpLT CompareOp = iota
	CmpLE
)

// Compare implements < and <= for numbers and strings without
// metamethods; the interpreter calls this first and falls back to
// __lt/__le only when the operand types don't qualify (comparable
// reports false).
func Compare(op CompareOp, a, b Value) (result bool, comparable bool) {
	if IsNumber(a) && IsNumber(b) {
		if ai, ok := a.(int64); ok {
			if bi, ok := b.(int64); ok {
				return intCompare(op, ai, bi), true
			}
		}
		af, _ := ToFloat(a)
		bf, _ := ToFloat(b)
		return floatCompare(op, af, bf), true
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return stringCompare(op, as, bs), true
		}
	}
	return false, false
}

func intCompare(op CompareOp, a, b int64) bool {
	if op == CmpLE {
		return a <= b
	}
	return a < b
}

func floatCompare(op CompareOp, a, b float64) bool {
	if op == CmpLE {
		return a <= b
	}
	return a < b
}

func stringCompare(op CompareOp, a, b string) bool {
	if op == CmpLE {
		return a <= b
	}
	return a < b
}
