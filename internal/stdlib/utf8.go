package stdlib

import (
	"unicode/utf8"

	"github.com/embeddedlua/luacore/internal/diag"
	"github.com/embeddedlua/luacore/internal/interp"
	"github.com/embeddedlua/luacore/internal/value"
)

// utf8Library covers char/codes/codepoint/len/offset, ported from the
// teacher's utf8.go onto Go's standard unicode/utf8 decoder instead of
// its hand-rolled decodeUTF8 (Lua's UTF-8 library only needs decoding,
// which the standard library already does to spec).
var utf8Library = []RegistryFunction{
	{"char", utf8Char},
	{"codepoint", utf8Codepoint},
	{"len", utf8Len},
	{"offset", utf8Offset},
}

// UTF8Open installs the `utf8` library and its charpattern constant.
func UTF8Open(it *interp.Interpreter) {
	t := value.NewTable()
	register(t, utf8Library, it)
	t.Set("charpattern", "[\x00-\x7F\xC2-\xFD][\x80-\xBF]*")
	t.Set("codes", &value.Function{Name: "codes", IsGo: true, Call: func(args []value.Value) ([]value.Value, error) {
		s, err := checkString("codes", args, 0)
		if err != nil {
			return nil, err
		}
		iter := &value.Function{Name: "utf8_iter", IsGo: true, Call: func(a []value.Value) ([]value.Value, error) {
			pos, _ := value.ToInteger(a[1])
			i := int(pos)
			if i > 0 {
				_, size := utf8.DecodeRuneInString(s[i-1:])
				i = i - 1 + size
			}
			if i >= len(s) {
				return nil, nil
			}
			r, _ := utf8.DecodeRuneInString(s[i:])
			return []value.Value{int64(i + 1), int64(r)}, nil
		}}
		return []value.Value{iter, s, int64(0)}, nil
	}})
	it.Globals.Set("utf8", t)
}

func utf8Char(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	buf := make([]byte, 0, len(args)*4)
	for i := range args {
		n, err := checkInt("char", args, i)
		if err != nil {
			return nil, err
		}
		buf = utf8.AppendRune(buf, rune(n))
	}
	return []value.Value{string(buf)}, nil
}

func utf8Codepoint(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	s, err := checkString("codepoint", args, 0)
	if err != nil {
		return nil, err
	}
	i := int(relativePosition(optInt(args, 1, 1), len(s)))
	j := int(relativePosition(optInt(args, 2, int64(i)), len(s)))
	var out []value.Value
	pos := i - 1
	for pos < j && pos < len(s) {
		r, size := utf8.DecodeRuneInString(s[pos:])
		if r == utf8.RuneError && size <= 1 {
			return nil, value.NewError(diag.Position{}, "invalid UTF-8 code")
		}
		out = append(out, int64(r))
		pos += size
	}
	return out, nil
}

func utf8Len(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	s, err := checkString("len", args, 0)
	if err != nil {
		return nil, err
	}
	i := int(relativePosition(optInt(args, 1, 1), len(s)))
	j := int(relativePosition(optInt(args, 2, -1), len(s)))
	count := int64(0)
	pos := i - 1
	for pos < j {
		r, size := utf8.DecodeRuneInString(s[pos:])
		if r == utf8.RuneError && size <= 1 {
			return []value.Value{nil, int64(pos + 1)}, nil
		}
		count++
		pos += size
	}
	return []value.Value{count}, nil
}

func utf8Offset(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	s, err := checkString("offset", args, 0)
	if err != nil {
		return nil, err
	}
	n, err := checkInt("offset", args, 1)
	if err != nil {
		return nil, err
	}
	def := int64(1)
	if n < 0 {
		def = int64(len(s) + 1)
	}
	i := int(relativePosition(optInt(args, 2, def), len(s))) - 1
	if n > 0 {
		n--
		for n > 0 && i < len(s) {
			i++
			for i < len(s) && isContinuationByte(s[i]) {
				i++
			}
			n--
		}
	} else if n < 0 {
		for n < 0 && i > 0 {
			i--
			for i > 0 && isContinuationByte(s[i]) {
				i--
			}
			n++
		}
	}
	return []value.Value{int64(i + 1)}, nil
}

func isContinuationByte(b byte) bool { return b&0xC0 == 0x80 }
