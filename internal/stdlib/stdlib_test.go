package stdlib

import (
	"context"
	"testing"

	"github.com/embeddedlua/luacore/internal/ast"
	"github.com/embeddedlua/luacore/internal/diag"
	"github.com/embeddedlua/luacore/internal/interp"
	"github.com/embeddedlua/luacore/internal/parser"
)

func parseChunk(t *testing.T, src string) *ast.Chunk {
	t.Helper()
	diags := &diag.Collector{}
	block, ok := parser.Parse(src, "test.lua", diags)
	if !ok {
		t.Fatalf("parse %q: %v", src, diags.Items())
	}
	return &ast.Chunk{Source: "test.lua", Body: block}
}

// exec is a light facade substitute for package-level stdlib tests:
// it builds an Interpreter, opens the libraries under test, and runs
// one chunk through the real lexer/parser/interpreter pipeline. The
// root lua package has its own broader integration tests; these stay
// close to the libraries this package actually owns.
func exec(t *testing.T, src string) []interface{} {
	t.Helper()
	it := interp.New()
	BasicOpen(it)
	TableOpen(it)
	MathOpen(it)
	StringOpen(it)
	UTF8Open(it)
	CoroutineOpen(it)
	results, err := it.Run(context.Background(), parseChunk(t, src), nil)
	if err != nil {
		t.Fatalf("run %q: %v", src, err)
	}
	return results
}

func TestTableSortWithComparator(t *testing.T) {
	got := exec(t, `
		local t = {5, 3, 4, 1, 2}
		table.sort(t, function(a, b) return a > b end)
		return table.concat(t, ",")
	`)
	if len(got) != 1 || got[0] != "5,4,3,2,1" {
		t.Fatalf("got %v", got)
	}
}

func TestStringFormatIntegerAndString(t *testing.T) {
	got := exec(t, `return string.format("%d-%s-%5.2f", 7, "x", 3.14159)`)
	if len(got) != 1 || got[0] != "7-x- 3.14" {
		t.Fatalf("got %v", got)
	}
}

func TestMathMaxMinPreservesIntType(t *testing.T) {
	got := exec(t, `return math.max(1, 5, 3), math.type(math.max(1, 5, 3))`)
	if len(got) != 2 || got[0] != int64(5) || got[1] != "integer" {
		t.Fatalf("got %v", got)
	}
}

func TestUTF8LenAndChar(t *testing.T) {
	got := exec(t, `return utf8.len("héllo"), utf8.char(104, 233)`)
	if len(got) != 2 || got[0] != int64(5) {
		t.Fatalf("got %v", got)
	}
}

func TestGsubWithFunctionReplacement(t *testing.T) {
	got := exec(t, `
		return (string.gsub("hello world", "%w+", function(w) return w:upper() end))
	`)
	if len(got) != 1 || got[0] != "HELLO WORLD" {
		t.Fatalf("got %v", got)
	}
}
