package lua

import (
	"context"
	"testing"
)

func TestUntrustedOnlyHasStringAndMath(t *testing.T) {
	h := NewHost(Options{Trust: Untrusted})
	got, err := h.Execute(context.Background(), `
		return os == nil, io == nil, type(string), type(math), table == nil, utf8 == nil, coroutine == nil, package == nil
	`, "=test")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	want := []interface{}{true, true, "table", "table", true, true, true, true}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestUntrustedBlocksMetatableAndErrorGlobals(t *testing.T) {
	h := NewHost(Options{Trust: Untrusted})
	got, err := h.Execute(context.Background(), `
		return pcall == nil, xpcall == nil, error == nil, warn == nil,
			rawget == nil, rawset == nil, rawequal == nil, rawlen == nil,
			getmetatable == nil, setmetatable == nil, collectgarbage == nil, require == nil
	`, "=test")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for i, v := range got {
		if v != true {
			t.Errorf("index %d: got %v, want true", i, v)
		}
	}
}

func TestUntrustedBlocksLoadAndDofile(t *testing.T) {
	h := NewHost(Options{Trust: Untrusted})
	got, err := h.Execute(context.Background(), `
		return load == nil, dofile == nil, loadfile == nil
	`, "=test")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for i, v := range got {
		if v != true {
			t.Errorf("index %d: got %v, want true", i, v)
		}
	}
}

func TestRestrictedHasOSButNotPackage(t *testing.T) {
	h := NewHost(Options{Trust: Restricted})
	got, err := h.Execute(context.Background(), `
		return os ~= nil, package == nil, require == nil, io == nil
	`, "=test")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for i, v := range got {
		if v != true {
			t.Errorf("index %d: got %v, want true", i, v)
		}
	}
}

func TestTrustedHasOSIOAndPackage(t *testing.T) {
	h := NewHost(Options{Trust: Trusted})
	got, err := h.Execute(context.Background(), `
		return os ~= nil, io ~= nil, package ~= nil, require ~= nil, debug == nil
	`, "=test")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for i, v := range got {
		if v != true {
			t.Errorf("index %d: got %v, want true", i, v)
		}
	}
}

func TestFullTrustExposesDebug(t *testing.T) {
	h := NewHost(Options{Trust: FullTrust})
	got, err := h.Execute(context.Background(), `return type(debug)`, "=test")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(got) != 1 || got[0] != "table" {
		t.Fatalf("got %v", got)
	}
}

func TestPolicyForIsMonotonicByLibraryCount(t *testing.T) {
	levels := []TrustLevel{Untrusted, Sandbox, Restricted, Trusted, FullTrust}
	prev := -1
	for _, lvl := range levels {
		p := PolicyFor(lvl)
		if len(p.AllowedLibs) < prev {
			t.Errorf("level %s has fewer allowed libs than the previous level", lvl)
		}
		prev = len(p.AllowedLibs)
	}
}
