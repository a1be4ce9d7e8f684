package lexer

import (
	"testing"

	"github.com/embeddedlua/luacore/internal/diag"
)

func scanAll(t *testing.T, src string) ([]Token, *diag.Collector) {
	t.Helper()
	diags := &diag.Collector{}
	l := New(src, "test.lua", diags)
	var toks []Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == EOF {
			break
		}
	}
	return toks, diags
}

func TestLexerKeywordsAndSymbols(t *testing.T) {
	toks, diags := scanAll(t, "local x <const> = 1 + 2 -- comment\nreturn x")
	if len(diags.Items()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags.Items())
	}
	want := []Kind{Local, Name, Lt, Name, Gt, Assign, Int, Plus, Int, Return, Name, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Kind, k)
		}
	}
}

func TestLexerStringEscapes(t *testing.T) {
	toks, diags := scanAll(t, `"a\tb\n\065c"`)
	if len(diags.Items()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags.Items())
	}
	if toks[0].Kind != String {
		t.Fatalf("got kind %s, want String", toks[0].Kind)
	}
	want := "a\tb\nAc"
	if toks[0].Str != want {
		t.Errorf("got %q, want %q", toks[0].Str, want)
	}
}

func TestLexerLongBracketString(t *testing.T) {
	toks, diags := scanAll(t, "[[\nhello\nworld]]")
	if len(diags.Items()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags.Items())
	}
	if toks[0].Kind != String || toks[0].Str != "hello\nworld" {
		t.Errorf("got %q (%s)", toks[0].Str, toks[0].Kind)
	}
}

func TestLexerNumbers(t *testing.T) {
	cases := []struct {
		src      string
		kind     Kind
		asInt    int64
		asFloat  float64
		isFloat  bool
	}{
		{"42", Int, 42, 0, false},
		{"0x2A", Int, 42, 0, false},
		{"3.14", Float, 0, 3.14, true},
		{"1e10", Float, 0, 1e10, true},
		{"0x1p4", Float, 0, 16, true},
	}
	for _, c := range cases {
		toks, diags := scanAll(t, c.src)
		if len(diags.Items()) != 0 {
			t.Fatalf("%s: unexpected diagnostics: %v", c.src, diags.Items())
		}
		if toks[0].Kind != c.kind {
			t.Fatalf("%s: got kind %s, want %s", c.src, toks[0].Kind, c.kind)
		}
		if c.isFloat {
			if toks[0].Float != c.asFloat {
				t.Errorf("%s: got %v, want %v", c.src, toks[0].Float, c.asFloat)
			}
		} else if toks[0].Int != c.asInt {
			t.Errorf("%s: got %v, want %v", c.src, toks[0].Int, c.asInt)
		}
	}
}

func TestLexerShebangAndBOM(t *testing.T) {
	toks, diags := scanAll(t, "\xef\xbb\xbf#!/usr/bin/env lua\nreturn 1")
	if len(diags.Items()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags.Items())
	}
	if toks[0].Kind != Return {
		t.Errorf("got %s, want Return", toks[0].Kind)
	}
}
