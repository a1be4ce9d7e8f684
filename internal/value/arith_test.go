package value

import "testing"

func TestArithIntFlooredModAndDiv(t *testing.T) {
	cases := []struct {
		op       ArithOp
		x, y     int64
		want     int64
	}{
		{OpMod, 7, 3, 1},
		{OpMod, -7, 3, 2},
		{OpMod, 7, -3, -2},
		{OpIDiv, 7, 2, 3},
		{OpIDiv, -7, 2, -4},
	}
	for _, c := range cases {
		got, ok := ArithInt(c.op, c.x, c.y)
		if !ok {
			t.Fatalf("op %v(%d,%d): not ok", c.op, c.x, c.y)
		}
		if got != c.want {
			t.Errorf("op %v(%d,%d): got %d, want %d", c.op, c.x, c.y, got, c.want)
		}
	}
}

func TestArithIntDivisionByZero(t *testing.T) {
	if _, ok := ArithInt(OpIDiv, 1, 0); ok {
		t.Error("expected integer division by zero to report !ok")
	}
	if _, ok := ArithInt(OpMod, 1, 0); ok {
		t.Error("expected integer modulo by zero to report !ok")
	}
}

func TestArithFloatFlooredMod(t *testing.T) {
	got := ArithFloat(OpMod, -7.5, 3)
	want := 1.5
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestShiftLeftBeyondWidthIsZero(t *testing.T) {
	got, ok := ArithInt(OpShl, 1, 64)
	if !ok || got != 0 {
		t.Errorf("got (%d,%v), want (0,true)", got, ok)
	}
	got, ok = ArithInt(OpShl, 1, -64)
	if !ok || got != 0 {
		t.Errorf("got (%d,%v), want (0,true)", got, ok)
	}
}

func TestCompareAcrossIntAndFloat(t *testing.T) {
	result, comparable := Compare(CmpLT, int64(1), 1.5)
	if !comparable || !result {
		t.Errorf("got (%v,%v), want (true,true)", result, comparable)
	}
	result, comparable = Compare(CmpLE, 2.0, int64(2))
	if !comparable || !result {
		t.Errorf("got (%v,%v), want (true,true)", result, comparable)
	}
}

func TestCompareStrings(t *testing.T) {
	result, comparable := Compare(CmpLT, "abc", "abd")
	if !comparable || !result {
		t.Errorf("got (%v,%v), want (true,true)", result, comparable)
	}
}

func TestCompareIncomparableTypes(t *testing.T) {
	_, comparable := Compare(CmpLT, "abc", int64(1))
	if comparable {
		t.Error("expected string/number compare to be reported incomparable")
	}
}
