package parser

import (
	"testing"

	"github.com/embeddedlua/luacore/internal/ast"
	"github.com/embeddedlua/luacore/internal/diag"
)

func mustParse(t *testing.T, src string) *ast.Block {
	t.Helper()
	diags := &diag.Collector{}
	block, ok := Parse(src, "test.lua", diags)
	if !ok {
		t.Fatalf("parse failed: %v", diags.Items())
	}
	return block
}

func TestParseLocalWithAttribs(t *testing.T) {
	block := mustParse(t, `local x <const>, y <close> = 1, f()`)
	if len(block.Stmts) != 1 {
		t.Fatalf("got %d statements, want 1", len(block.Stmts))
	}
	local, ok := block.Stmts[0].(*ast.LocalStmt)
	if !ok {
		t.Fatalf("got %T, want *ast.LocalStmt", block.Stmts[0])
	}
	if len(local.Names) != 2 || local.Names[0] != "x" || local.Names[1] != "y" {
		t.Fatalf("got names %v", local.Names)
	}
	if local.Attribs[0] != ast.AttribConst || local.Attribs[1] != ast.AttribClose {
		t.Fatalf("got attribs %v", local.Attribs)
	}
}

func TestParseIfElseifElseChain(t *testing.T) {
	block := mustParse(t, `
		if a then b()
		elseif c then d()
		else e() end
	`)
	ifStmt, ok := block.Stmts[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("got %T, want *ast.IfStmt", block.Stmts[0])
	}
	elseif, ok := ifStmt.Else.(*ast.IfStmt)
	if !ok {
		t.Fatalf("got %T for Else, want *ast.IfStmt (elseif)", ifStmt.Else)
	}
	if _, ok := elseif.Else.(*ast.Block); !ok {
		t.Fatalf("got %T for elseif.Else, want *ast.Block (trailing else)", elseif.Else)
	}
}

func TestParseNumericForAndGenericFor(t *testing.T) {
	block := mustParse(t, `
		for i = 1, 10, 2 do end
		for k, v in pairs(t) do end
	`)
	if _, ok := block.Stmts[0].(*ast.NumForStmt); !ok {
		t.Fatalf("got %T, want *ast.NumForStmt", block.Stmts[0])
	}
	genFor, ok := block.Stmts[1].(*ast.GenForStmt)
	if !ok {
		t.Fatalf("got %T, want *ast.GenForStmt", block.Stmts[1])
	}
	if len(genFor.Names) != 2 || genFor.Names[0] != "k" || genFor.Names[1] != "v" {
		t.Fatalf("got names %v", genFor.Names)
	}
}

func TestParseMethodCallDesugarsToCall(t *testing.T) {
	block := mustParse(t, `obj:method(1, 2)`)
	exprStmt, ok := block.Stmts[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("got %T, want *ast.ExprStmt", block.Stmts[0])
	}
	if exprStmt.Call == nil {
		t.Fatal("expected a call expression")
	}
}

func TestParseSyntaxErrorReportsDiagnostic(t *testing.T) {
	diags := &diag.Collector{}
	_, ok := Parse(`local x = `, "test.lua", diags)
	if ok {
		t.Fatal("expected parse failure on truncated expression")
	}
	if len(diags.Items()) == 0 {
		t.Fatal("expected at least one diagnostic")
	}
}
