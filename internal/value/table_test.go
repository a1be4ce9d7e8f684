package value

import "testing"

func TestTableArrayGetSetAndLen(t *testing.T) {
	tb := NewTable()
	tb.Set(int64(1), "a")
	tb.Set(int64(2), "b")
	tb.Set(int64(3), "c")
	if got := tb.Len(); got != 3 {
		t.Fatalf("len: got %d, want 3", got)
	}
	if got := tb.Get(int64(2)); got != "b" {
		t.Fatalf("get(2): got %v, want b", got)
	}
}

func TestTableFloatKeyFoldsToInteger(t *testing.T) {
	tb := NewTable()
	tb.Set(1.0, "x")
	if got := tb.Get(int64(1)); got != "x" {
		t.Fatalf("expected float key 1.0 to fold onto integer key 1, got %v", got)
	}
}

func TestTableNilValueRemovesKey(t *testing.T) {
	tb := NewTable()
	tb.Set("k", "v")
	tb.Set("k", nil)
	if got := tb.Get("k"); got != nil {
		t.Fatalf("expected nil after deletion, got %v", got)
	}
}

func TestTableTrailingNilShrinksLen(t *testing.T) {
	tb := NewTable()
	tb.Set(int64(1), "a")
	tb.Set(int64(2), "b")
	tb.Set(int64(3), "c")
	tb.Set(int64(3), nil)
	if got := tb.Len(); got != 2 {
		t.Fatalf("len after trimming trailing nil: got %d, want 2", got)
	}
}

func TestTableNextVisitsEveryKeyOnce(t *testing.T) {
	tb := NewTable()
	tb.Set(int64(1), "a")
	tb.Set(int64(2), "b")
	tb.Set("x", "y")
	tb.Set("z", "w")

	seen := map[Value]bool{}
	var k Value
	for {
		nk, _, ok := tb.Next(k)
		if !ok {
			t.Fatalf("Next(%v): key no longer present", k)
		}
		if nk == nil {
			break
		}
		if seen[nk] {
			t.Fatalf("key %v visited twice", nk)
		}
		seen[nk] = true
		k = nk
	}
	for _, want := range []Value{int64(1), int64(2), "x", "z"} {
		if !seen[want] {
			t.Errorf("key %v never visited", want)
		}
	}
}

func TestTableInsertRemove(t *testing.T) {
	tb := NewTable()
	tb.Set(int64(1), "a")
	tb.Set(int64(2), "b")
	tb.Insert(2, "x")
	if got := tb.Get(int64(2)); got != "x" {
		t.Fatalf("insert: got %v, want x", got)
	}
	if got := tb.Get(int64(3)); got != "b" {
		t.Fatalf("insert shift: got %v, want b", got)
	}
	removed := tb.Remove(1)
	if removed != "a" {
		t.Fatalf("remove: got %v, want a", removed)
	}
	if got := tb.Len(); got != 2 {
		t.Fatalf("len after remove: got %d, want 2", got)
	}
}
