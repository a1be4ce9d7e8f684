package stdlib

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/embeddedlua/luacore/internal/diag"
	"github.com/embeddedlua/luacore/internal/interp"
	"github.com/embeddedlua/luacore/internal/value"
)

// stringLibrary follows the teacher's string.go entry list (find,
// match, gmatch, gsub, format, and friends); the pattern-matching
// engine in pattern.go is a direct port of its matchState/singleMatch/match
// recursive-descent algorithm, generalized from byte-slice stack
// operands to plain Go strings.
var stringLibrary = []RegistryFunction{
	{"len", strLen},
	{"sub", strSub},
	{"upper", strUpper},
	{"lower", strLower},
	{"rep", strRep},
	{"reverse", strReverse},
	{"byte", strByte},
	{"char", strChar},
	{"format", strFormat},
	{"find", strFind},
	{"match", strMatch},
	{"gmatch", strGmatch},
	{"gsub", strGsub},
}

// StringOpen installs the `string` library and gives every string
// value an implicit metatable whose __index is the library table, the
// same trick the teacher's StringOpen performs so that `("x"):upper()`
// works.
func StringOpen(it *interp.Interpreter) {
	t := value.NewTable()
	register(t, stringLibrary, it)
	it.Globals.Set("string", t)
	meta := value.NewTable()
	meta.Set("__index", t)
	it.StringMeta = meta
}

func strLen(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	s, err := checkString("len", args, 0)
	if err != nil {
		return nil, err
	}
	return []value.Value{int64(len(s))}, nil
}

// relativePosition maps a Lua string-index argument (1-based, negative
// counts from the end) onto a 0-based Go offset, mirroring the
// teacher's relativePosition helper.
func relativePosition(pos int64, length int) int64 {
	if pos >= 0 {
		return pos
	}
	if -pos > int64(length) {
		return 0
	}
	return int64(length) + pos + 1
}

func strSub(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	s, err := checkString("sub", args, 0)
	if err != nil {
		return nil, err
	}
	l := len(s)
	i := relativePosition(optInt(args, 1, 1), l)
	j := relativePosition(optInt(args, 2, -1), l)
	if i < 1 {
		i = 1
	}
	if j > int64(l) {
		j = int64(l)
	}
	if i > j {
		return []value.Value{""}, nil
	}
	return []value.Value{s[i-1 : j]}, nil
}

func strUpper(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	s, err := checkString("upper", args, 0)
	if err != nil {
		return nil, err
	}
	return []value.Value{strings.ToUpper(s)}, nil
}

func strLower(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	s, err := checkString("lower", args, 0)
	if err != nil {
		return nil, err
	}
	return []value.Value{strings.ToLower(s)}, nil
}

func strRep(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	s, err := checkString("rep", args, 0)
	if err != nil {
		return nil, err
	}
	n, err := checkInt("rep", args, 1)
	if err != nil {
		return nil, err
	}
	sep := ""
	if len(args) >= 3 {
		sep, err = checkString("rep", args, 2)
		if err != nil {
			return nil, err
		}
	}
	if n <= 0 {
		return []value.Value{""}, nil
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = s
	}
	return []value.Value{strings.Join(parts, sep)}, nil
}

func strReverse(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	s, err := checkString("reverse", args, 0)
	if err != nil {
		return nil, err
	}
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return []value.Value{string(b)}, nil
}

func strByte(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	s, err := checkString("byte", args, 0)
	if err != nil {
		return nil, err
	}
	l := len(s)
	i := relativePosition(optInt(args, 1, 1), l)
	j := relativePosition(optInt(args, 2, i), l)
	if i < 1 {
		i = 1
	}
	if j > int64(l) {
		j = int64(l)
	}
	if i > j {
		return nil, nil
	}
	out := make([]value.Value, 0, j-i+1)
	for k := i; k <= j; k++ {
		out = append(out, int64(s[k-1]))
	}
	return out, nil
}

func strChar(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	b := make([]byte, len(args))
	for i := range args {
		n, err := checkInt("char", args, i)
		if err != nil {
			return nil, err
		}
		b[i] = byte(n)
	}
	return []value.Value{string(b)}, nil
}

// strFormat implements string.format's C-printf-derived directive set
// (%d %i %u %s %q %f %g %e %x %X %o %c %%), following the field-flag
// parsing shape of the teacher's scanFormat/formatHelper.
func strFormat(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	f, err := checkString("format", args, 0)
	if err != nil {
		return nil, err
	}
	var out strings.Builder
	argi := 1
	for i := 0; i < len(f); i++ {
		c := f[i]
		if c != '%' {
			out.WriteByte(c)
			continue
		}
		start := i
		i++
		for i < len(f) && strings.ContainsRune("-+ #0", rune(f[i])) {
			i++
		}
		for i < len(f) && f[i] >= '0' && f[i] <= '9' {
			i++
		}
		if i < len(f) && f[i] == '.' {
			i++
			for i < len(f) && f[i] >= '0' && f[i] <= '9' {
				i++
			}
		}
		if i >= len(f) {
			return nil, value.NewError(diag.Position{}, "invalid conversion to 'format'")
		}
		verb := f[i]
		spec := f[start : i+1]
		switch verb {
		case '%':
			out.WriteByte('%')
		case 'd', 'i':
			n, err := checkInt("format", args, argi)
			if err != nil {
				return nil, err
			}
			argi++
			fmt.Fprintf(&out, strings.Replace(spec, string(verb), "d", 1), n)
		case 'u':
			n, err := checkInt("format", args, argi)
			if err != nil {
				return nil, err
			}
			argi++
			fmt.Fprintf(&out, strings.Replace(spec, "u", "d", 1), uint64(n))
		case 'x', 'X', 'o':
			n, err := checkInt("format", args, argi)
			if err != nil {
				return nil, err
			}
			argi++
			fmt.Fprintf(&out, spec, uint64(n))
		case 'c':
			n, err := checkInt("format", args, argi)
			if err != nil {
				return nil, err
			}
			argi++
			out.WriteByte(byte(n))
		case 'f', 'F', 'g', 'G', 'e', 'E':
			n, err := checkFloat("format", args, argi)
			if err != nil {
				return nil, err
			}
			argi++
			fmt.Fprintf(&out, spec, n)
		case 's':
			s := toStringMeta(it, arg(args, argi))
			argi++
			fmt.Fprintf(&out, spec, s)
		case 'q':
			s, err := checkString("format", args, argi)
			if err != nil {
				return nil, err
			}
			argi++
			out.WriteString(quoteLua(s))
		default:
			return nil, value.NewError(diag.Position{}, "invalid conversion '%%%c' to 'format'", verb)
		}
	}
	return []value.Value{out.String()}, nil
}

func quoteLua(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case 0:
			b.WriteString("\\0")
		default:
			if c < 32 || c == 127 {
				b.WriteString("\\")
				b.WriteString(strconv.Itoa(int(c)))
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
