package stdlib

import "testing"

func TestDoMatchPlainAndClasses(t *testing.T) {
	s, e, caps, ok := doMatch("hello123world", "%a+%d+", 0)
	if !ok {
		t.Fatal("expected a match")
	}
	if s != 0 || e != 8 {
		t.Fatalf("got span [%d,%d), want [0,8)", s, e)
	}
	if len(caps) != 1 || caps[0] != "hello123" {
		t.Fatalf("expected the whole match as an implicit single capture, got %v", caps)
	}
}

func TestDoMatchCaptures(t *testing.T) {
	_, _, caps, ok := doMatch("key=value", "(%a+)=(%a+)", 0)
	if !ok {
		t.Fatal("expected a match")
	}
	if len(caps) != 2 || caps[0] != "key" || caps[1] != "value" {
		t.Fatalf("got %v", caps)
	}
}

func TestDoMatchAnchored(t *testing.T) {
	_, _, _, ok := doMatch("xhello", "^hello", 0)
	if ok {
		t.Fatal("anchored pattern should not match mid-string")
	}
	_, _, _, ok = doMatch("hello", "^hello", 0)
	if !ok {
		t.Fatal("anchored pattern should match at start")
	}
}

func TestDoMatchBalanced(t *testing.T) {
	s, e, _, ok := doMatch("(foo(bar))baz", "%b()", 0)
	if !ok {
		t.Fatal("expected balanced match")
	}
	if got := "(foo(bar))baz"[s:e]; got != "(foo(bar))" {
		t.Fatalf("got %q", got)
	}
}

func TestDoMatchNoMatch(t *testing.T) {
	_, _, _, ok := doMatch("abc", "%d+", 0)
	if ok {
		t.Fatal("expected no match")
	}
}
