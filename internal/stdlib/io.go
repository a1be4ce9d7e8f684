package stdlib

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/embeddedlua/luacore/internal/diag"
	"github.com/embeddedlua/luacore/internal/interp"
	"github.com/embeddedlua/luacore/internal/value"
)

// fileHandle wraps an *os.File as Lua userdata with a __close
// metamethod and file:read/write/close/lines methods, following the
// teacher's io.go stream{f *os.File; close Function} shape. `popen` is
// intentionally not offered (see DESIGN.md): spawning a subprocess has
// no safe rendering under any trust level below FullTrust, and
// FullTrust scripts can reach the host's own exec facilities instead.
type fileHandle struct {
	f      *os.File
	r      *bufio.Reader
	closed bool
}

var fileMeta *value.Table

func fileMethodsTable(it *interp.Interpreter) *value.Table {
	if fileMeta != nil {
		return fileMeta
	}
	methods := value.NewTable()
	reg := func(name string, fn func(it *interp.Interpreter, args []value.Value) ([]value.Value, error)) {
		methods.Set(name, &value.Function{Name: name, IsGo: true, Call: func(a []value.Value) ([]value.Value, error) { return fn(it, a) }})
	}
	reg("read", fileRead)
	reg("write", fileWrite)
	reg("close", fileClose)
	reg("lines", fileLines)
	reg("flush", fileFlush)
	fileMeta = value.NewTable()
	fileMeta.Set("__index", methods)
	fileMeta.Set("__close", &value.Function{Name: "__close", IsGo: true, Call: func(a []value.Value) ([]value.Value, error) { return fileClose(it, a) }})
	fileMeta.Set("__name", "FILE*")
	return fileMeta
}

func newFileHandle(it *interp.Interpreter, f *os.File) *value.UserData {
	return &value.UserData{Data: &fileHandle{f: f, r: bufio.NewReader(f)}, Meta: fileMethodsTable(it)}
}

func asFileHandle(v value.Value) (*fileHandle, bool) {
	ud, ok := v.(*value.UserData)
	if !ok {
		return nil, false
	}
	fh, ok := ud.Data.(*fileHandle)
	return fh, ok
}

// ioLibrary matches the teacher's ioLibrary shape: open/close/read/
// write/lines as free functions operating on a default input/output.
var ioLibrary = []RegistryFunction{
	{"open", ioOpen},
	{"close", ioClose},
	{"read", ioRead},
	{"write", ioWrite},
	{"lines", ioLines},
}

var stdoutHandle, stdinHandle *value.UserData

// IOOpen installs the `io` library plus registered stdout/stdin handles.
func IOOpen(it *interp.Interpreter) {
	t := value.NewTable()
	register(t, ioLibrary, it)
	stdoutHandle = newFileHandle(it, os.Stdout)
	stdinHandle = newFileHandle(it, os.Stdin)
	t.Set("stdout", stdoutHandle)
	t.Set("stdin", stdinHandle)
	t.Set("stderr", newFileHandle(it, os.Stderr))
	it.Globals.Set("io", t)
}

func ioOpen(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	name, err := checkString("open", args, 0)
	if err != nil {
		return nil, err
	}
	mode := "r"
	if len(args) >= 2 {
		mode, err = checkString("open", args, 1)
		if err != nil {
			return nil, err
		}
	}
	flag := os.O_RDONLY
	switch mode {
	case "w", "wb":
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case "a", "ab":
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	case "r+", "r+b":
		flag = os.O_RDWR
	case "w+", "w+b":
		flag = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(name, flag, 0644)
	if err != nil {
		return []value.Value{nil, err.Error()}, nil
	}
	return []value.Value{newFileHandle(it, f)}, nil
}

func ioClose(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	if len(args) == 0 {
		return fileClose(it, []value.Value{stdoutHandle})
	}
	return fileClose(it, args)
}

func ioRead(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	return fileRead(it, append([]value.Value{stdinHandle}, args...))
}

func ioWrite(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	return fileWrite(it, append([]value.Value{stdoutHandle}, args...))
}

func ioLines(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	if len(args) == 0 {
		return fileLines(it, []value.Value{stdinHandle})
	}
	name, err := checkString("lines", args, 0)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, value.NewError(diag.Position{}, "%s", err.Error())
	}
	return fileLines(it, []value.Value{newFileHandle(it, f)})
}

func fileRead(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	fh, ok := asFileHandle(arg(args, 0))
	if !ok {
		return nil, argError("read", 0, "FILE*", arg(args, 0))
	}
	formats := args[1:]
	if len(formats) == 0 {
		formats = []value.Value{"l"}
	}
	var out []value.Value
	for _, fmtArg := range formats {
		v, err := readOne(fh, fmtArg)
		if err != nil && err != io.EOF {
			return nil, value.NewError(diag.Position{}, "%s", err.Error())
		}
		out = append(out, v)
		if v == nil {
			break
		}
	}
	return out, nil
}

func readOne(fh *fileHandle, format value.Value) (value.Value, error) {
	spec := "l"
	if n, ok := value.ToInteger(format); ok {
		buf := make([]byte, n)
		read, err := io.ReadFull(fh.r, buf)
		if read == 0 && err != nil {
			return nil, err
		}
		return string(buf[:read]), nil
	}
	if s, ok := format.(string); ok {
		spec = s
	}
	for len(spec) > 0 && (spec[0] == '*') {
		spec = spec[1:]
	}
	switch spec {
	case "l", "L":
		line, err := fh.r.ReadString('\n')
		if err != nil && line == "" {
			return nil, err
		}
		if spec == "l" {
			if n := len(line); n > 0 && line[n-1] == '\n' {
				line = line[:n-1]
			}
		}
		return line, nil
	case "a":
		rest, _ := io.ReadAll(fh.r)
		return string(rest), nil
	case "n":
		var f float64
		_, err := fmt.Fscan(fh.r, &f)
		if err != nil {
			return nil, err
		}
		if i, ok := value.FloatToInteger(f); ok {
			return i, nil
		}
		return f, nil
	}
	return nil, fmt.Errorf("invalid format")
}

func fileWrite(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	fh, ok := asFileHandle(arg(args, 0))
	if !ok {
		return nil, argError("write", 0, "FILE*", arg(args, 0))
	}
	for _, v := range args[1:] {
		s, ok := value.ToStringCoercible(v)
		if !ok {
			return nil, value.NewError(diag.Position{}, "invalid argument to 'write'")
		}
		if _, err := fh.f.WriteString(s); err != nil {
			return []value.Value{nil, err.Error()}, nil
		}
	}
	return []value.Value{args[0]}, nil
}

func fileClose(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	fh, ok := asFileHandle(arg(args, 0))
	if !ok {
		return nil, argError("close", 0, "FILE*", arg(args, 0))
	}
	if fh.closed {
		return []value.Value{true}, nil
	}
	fh.closed = true
	if fh.f == os.Stdout || fh.f == os.Stdin || fh.f == os.Stderr {
		return []value.Value{true}, nil
	}
	if err := fh.f.Close(); err != nil {
		return []value.Value{nil, err.Error()}, nil
	}
	return []value.Value{true}, nil
}

func fileFlush(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	fh, ok := asFileHandle(arg(args, 0))
	if !ok {
		return nil, argError("flush", 0, "FILE*", arg(args, 0))
	}
	fh.f.Sync()
	return []value.Value{args[0]}, nil
}

func fileLines(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	fh, ok := asFileHandle(arg(args, 0))
	if !ok {
		return nil, argError("lines", 0, "FILE*", arg(args, 0))
	}
	iter := &value.Function{Name: "lines_iter", IsGo: true, Call: func(_ []value.Value) ([]value.Value, error) {
		line, err := fh.r.ReadString('\n')
		if err != nil && line == "" {
			return []value.Value{nil}, nil
		}
		if n := len(line); n > 0 && line[n-1] == '\n' {
			line = line[:n-1]
		}
		return []value.Value{line}, nil
	}}
	return []value.Value{iter}, nil
}
