package value

import (
	"math"
	"testing"
)

func TestParseNumberIntegerAndFloat(t *testing.T) {
	cases := []struct {
		src     string
		want    Value
	}{
		{"42", int64(42)},
		{"-42", int64(-42)},
		{"0x2A", int64(42)},
		{"3.5", 3.5},
		{"1e3", 1000.0},
		{"0x1p4", 16.0},
	}
	for _, c := range cases {
		got, ok := ParseNumber(c.src)
		if !ok {
			t.Fatalf("%s: expected ok", c.src)
		}
		if got != c.want {
			t.Errorf("%s: got %v (%T), want %v (%T)", c.src, got, got, c.want, c.want)
		}
	}
}

func TestParseNumberRejectsGarbage(t *testing.T) {
	if _, ok := ParseNumber("not a number"); ok {
		t.Fatal("expected ParseNumber to reject garbage input")
	}
}

func TestNumberToStringAppendsDotZero(t *testing.T) {
	if got := NumberToString(3.0); got != "3.0" {
		t.Errorf("got %q, want \"3.0\"", got)
	}
}

func TestNumberToStringHandlesInfAndNaN(t *testing.T) {
	if got := NumberToString(math.Inf(1)); got != "inf" {
		t.Errorf("got %q, want \"inf\"", got)
	}
	if got := NumberToString(math.Inf(-1)); got != "-inf" {
		t.Errorf("got %q, want \"-inf\"", got)
	}
	if got := NumberToString(math.NaN()); got != "nan" {
		t.Errorf("got %q, want \"nan\"", got)
	}
}

func TestIntegerToString(t *testing.T) {
	if got := IntegerToString(-7); got != "-7" {
		t.Errorf("got %q", got)
	}
}

func TestToDisplayStringNilBoolNumber(t *testing.T) {
	if got := ToDisplayString(nil); got != "nil" {
		t.Errorf("got %q", got)
	}
	if got := ToDisplayString(true); got != "true" {
		t.Errorf("got %q", got)
	}
	if got := ToDisplayString(int64(7)); got != "7" {
		t.Errorf("got %q", got)
	}
}

func TestRawEqualCrossNumericTypes(t *testing.T) {
	if !RawEqual(int64(1), 1.0) {
		t.Error("expected int64(1) == 1.0 under RawEqual")
	}
	if RawEqual("1", int64(1)) {
		t.Error("expected string \"1\" != integer 1 under RawEqual")
	}
}

func TestFloatToIntegerRejectsOutOfRange(t *testing.T) {
	if _, ok := FloatToInteger(1e300); ok {
		t.Error("expected huge float to fail FloatToInteger")
	}
	if got, ok := FloatToInteger(3.0); !ok || got != 3 {
		t.Errorf("got (%d,%v), want (3,true)", got, ok)
	}
}
