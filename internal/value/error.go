package value

import (
	"fmt"

	"github.com/embeddedlua/luacore/internal/diag"
)

// LuaError wraps a raised Lua value (any value, not just a string, per
// `error(v)`) so it can travel through Go's panic/recover exactly like
// the teacher's Errorf-based control flow, while still satisfying the
// standard error interface for callers outside the interpreter.
type LuaError struct {
	Value     Value
	Pos       diag.Position
	Traceback []string
}

func (e *LuaError) Error() string {
	msg := ToDisplayString(e.Value)
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s", e.Pos.String(), msg)
	}
	return msg
}

// NewError builds a LuaError carrying a plain string message, optionally
// prefixed with a position the way the reference `error` function does
// at level 1.
func NewError(pos diag.Position, format string, args ...interface{}) *LuaError {
	msg := fmt.Sprintf(format, args...)
	if pos.IsValid() {
		msg = fmt.Sprintf("%s: %s", pos.String(), msg)
	}
	return &LuaError{Value: msg, Pos: pos}
}
