package lua

import (
	"context"
	"testing"
)

func run(t *testing.T, src string) []interface{} {
	t.Helper()
	h := NewHost(Options{Trust: FullTrust})
	results, err := h.Execute(context.Background(), src, "=test")
	if err != nil {
		t.Fatalf("execute %q: %v", src, err)
	}
	return results
}

func TestArithmeticAndIntegerFloatDuality(t *testing.T) {
	cases := []struct {
		src  string
		want interface{}
	}{
		{"return 1 + 2", int64(3)},
		{"return 1 / 2", 0.5},
		{"return 7 // 2", int64(3)},
		{"return 7.0 // 2", 3.0},
		{"return 7 % 3", int64(1)},
		{"return -7 % 3", int64(2)},
		{"return 2^10", 1024.0},
		{"return 1 .. 2", "12"},
		{"return math.type(1)", "integer"},
		{"return math.type(1.0)", "float"},
	}
	for _, c := range cases {
		got := run(t, c.src)
		if len(got) != 1 || got[0] != c.want {
			t.Errorf("%s: got %v, want %v", c.src, got, c.want)
		}
	}
}

func TestMultipleReturnsAndVarargs(t *testing.T) {
	got := run(t, `
		local function f(...) return ... end
		return f(1, 2, 3)
	`)
	if len(got) != 3 || got[0] != int64(1) || got[1] != int64(2) || got[2] != int64(3) {
		t.Fatalf("got %v", got)
	}
}

func TestMetatableIndexChain(t *testing.T) {
	got := run(t, `
		local base = {greet = function(self) return "hi " .. self.name end}
		local mt = {__index = base}
		local obj = setmetatable({name = "lua"}, mt)
		return obj:greet()
	`)
	if len(got) != 1 || got[0] != "hi lua" {
		t.Fatalf("got %v", got)
	}
}

func TestClosuresAndUpvalues(t *testing.T) {
	got := run(t, `
		local function counter()
			local n = 0
			return function() n = n + 1; return n end
		end
		local c = counter()
		c(); c()
		return c()
	`)
	if len(got) != 1 || got[0] != int64(3) {
		t.Fatalf("got %v", got)
	}
}

func TestPcallCatchesError(t *testing.T) {
	got := run(t, `
		local ok, err = pcall(function() error("boom") end)
		return ok, err
	`)
	if len(got) != 2 || got[0] != false {
		t.Fatalf("got %v", got)
	}
}

func TestToBeClosedVariablesCloseInReverseOrder(t *testing.T) {
	got := run(t, `
		local log = {}
		local function tracker(name)
			return setmetatable({}, {__close = function() table.insert(log, name) end})
		end
		do
			local a <close> = tracker("a")
			local b <close> = tracker("b")
		end
		return table.concat(log, ",")
	`)
	if len(got) != 1 || got[0] != "b,a" {
		t.Fatalf("got %v", got)
	}
}

func TestToBeClosedVariablesCloseWhenBlockPanics(t *testing.T) {
	got := run(t, `
		local log = {}
		local function tracker(name)
			return setmetatable({}, {__close = function() table.insert(log, name) end})
		end
		local ok = pcall(function()
			local a <close> = tracker("a")
			local b <close> = tracker("b")
			error("boom")
		end)
		return ok, table.concat(log, ",")
	`)
	if len(got) != 2 || got[0] != false || got[1] != "b,a" {
		t.Fatalf("got %v", got)
	}
}

func TestGenericForClosesFourthValueOnExit(t *testing.T) {
	got := run(t, `
		local log = {}
		local function once()
			local done = false
			return function()
				if done then return nil end
				done = true
				return 1
			end
		end
		local function tracker(name)
			return setmetatable({}, {__close = function() table.insert(log, name) end})
		end
		for x in once(), nil, nil, tracker("normal") do end
		pcall(function()
			for x in once(), nil, nil, tracker("panic") do
				error("boom")
			end
		end)
		for x in once(), nil, nil, tracker("broken") do
			break
		end
		return table.concat(log, ",")
	`)
	if len(got) != 1 || got[0] != "normal,panic,broken" {
		t.Fatalf("got %v", got)
	}
}

func TestConstAttributeRejectsReassignment(t *testing.T) {
	got, err := NewHost(Options{Trust: FullTrust}).Execute(context.Background(), `
		local ok, err = pcall(function()
			local x <const> = 1
			x = 2
		end)
		return ok
	`, "=test")
	if err != nil {
		t.Fatalf("unexpected host error: %v", err)
	}
	if len(got) != 1 || got[0] != false {
		t.Fatalf("expected const reassignment to fail at runtime, got %v", got)
	}
}

func TestCoroutineYieldResume(t *testing.T) {
	got := run(t, `
		local co = coroutine.create(function(a)
			local b = coroutine.yield(a + 1)
			return b + 1
		end)
		local ok1, v1 = coroutine.resume(co, 1)
		local ok2, v2 = coroutine.resume(co, 10)
		return ok1, v1, ok2, v2
	`)
	want := []interface{}{true, int64(2), true, int64(11)}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestStringPatternMatching(t *testing.T) {
	got := run(t, `return string.match("hello world 42", "(%a+) (%a+) (%d+)")`)
	if len(got) != 3 || got[0] != "hello" || got[1] != "world" || got[2] != "42" {
		t.Fatalf("got %v", got)
	}
}

func TestGenericForOverIpairs(t *testing.T) {
	got := run(t, `
		local t = {10, 20, 30}
		local sum = 0
		for i, v in ipairs(t) do sum = sum + v end
		return sum
	`)
	if len(got) != 1 || got[0] != int64(60) {
		t.Fatalf("got %v", got)
	}
}

func TestCreateFilteredEnvironmentMatchesHostGlobals(t *testing.T) {
	g := CreateFilteredEnvironment(Untrusted, Options{})
	if g.Get("os") != nil || g.Get("table") != nil {
		t.Fatalf("expected os/table absent at Untrusted, got os=%v table=%v", g.Get("os"), g.Get("table"))
	}
	if g.Get("math") == nil || g.Get("string") == nil {
		t.Fatalf("expected math/string present at Untrusted")
	}
}

func TestCompileToFunctionRunsWithoutArguments(t *testing.T) {
	fn, err := CompileToFunction(`return 1 + 1`, "=test", Options{Trust: FullTrust})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	res, err := fn(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res) != 1 || res[0] != int64(2) {
		t.Fatalf("got %v", res)
	}
}

func TestGotoOutOfNestedLoop(t *testing.T) {
	got := run(t, `
		local result = 0
		for i = 1, 5 do
			for j = 1, 5 do
				if i == 3 and j == 3 then
					result = i * 10 + j
					goto done
				end
			end
		end
		::done::
		return result
	`)
	if len(got) != 1 || got[0] != int64(33) {
		t.Fatalf("got %v", got)
	}
}
