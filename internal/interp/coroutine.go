package interp

import (
	"github.com/google/uuid"

	"github.com/embeddedlua/luacore/internal/diag"
	"github.com/embeddedlua/luacore/internal/value"
)

// Coroutine implements value.Thread via a dedicated goroutine and a
// pair of unbuffered channels, giving symmetric cooperative scheduling
// (spec §5: resume hands control to the coroutine and blocks until it
// yields, returns, or errors; only one of {main, coroutine} ever runs
// at a time). This mirrors the goroutine-per-coroutine pattern used
// throughout the example pack's worker-pool code, repurposed here so
// only one worker is ever runnable at a time.
type Coroutine struct {
	id       uuid.UUID
	fn       *value.Function
	resumeCh chan []value.Value
	yieldCh  chan coResult
	status   string // "suspended", "running", "normal", "dead"
	started  bool
}

// ID identifies the coroutine for diagnostics and tracebacks
// ("thread: <uuid> (suspended)") instead of a bare pointer address,
// which would be meaningless across a traceback string or log line.
func (c *Coroutine) ID() string { return c.id.String() }

type coResult struct {
	values []value.Value
	err    value.Value
	done   bool
}

// NewCoroutine wraps fn as a fresh, not-yet-started coroutine.
func NewCoroutine(fn *value.Function) *Coroutine {
	return &Coroutine{
		id:       uuid.New(),
		fn:       fn,
		resumeCh: make(chan []value.Value),
		yieldCh:  make(chan coResult),
		status:   "suspended",
	}
}

func (c *Coroutine) Status() string { return c.status }

// Resume transfers control to the coroutine with args, blocking until
// it yields, returns, or errors. ok mirrors coroutine.resume's first
// result: true plus yielded/returned values, or false plus an error
// value.
func (it *Interpreter) Resume(c *Coroutine, args []value.Value) (ok bool, results []value.Value) {
	if c.status == "dead" {
		return false, []value.Value{"cannot resume dead coroutine"}
	}
	if c.status == "running" || c.status == "normal" {
		return false, []value.Value{"cannot resume non-suspended coroutine"}
	}
	prev := it.curCo
	if prev != nil {
		prev.status = "normal"
	}
	it.curCo = c
	c.status = "running"

	if !c.started {
		c.started = true
		go func() {
			first := <-c.resumeCh
			res, err := func() (res []value.Value, err error) {
				defer func() {
					if r := recover(); r != nil {
						if le, ok := r.(*value.LuaError); ok {
							err = le
							return
						}
						panic(r)
					}
				}()
				return c.fn.Call(first)
			}()
			c.status = "dead"
			if err != nil {
				c.yieldCh <- coResult{err: errToValue(err), done: true}
				return
			}
			c.yieldCh <- coResult{values: res, done: true}
		}()
	}

	c.resumeCh <- args
	r := <-c.yieldCh
	it.curCo = prev
	if prev != nil {
		prev.status = "running"
	}
	if r.done {
		if r.err != nil {
			return false, []value.Value{r.err}
		}
		return true, r.values
	}
	c.status = "suspended"
	return true, r.values
}

// Yield suspends the currently running coroutine, handing values back
// to its resumer, and blocks until the next Resume call delivers new
// arguments. Called from stdlib's coroutine.yield.
func (it *Interpreter) Yield(values []value.Value) []value.Value {
	c := it.curCo
	if c == nil {
		it.throwf(diag.Position{}, "attempt to yield from outside a coroutine")
	}
	c.yieldCh <- coResult{values: values, done: false}
	return <-c.resumeCh
}

// IsYieldable reports whether a yield would be legal right now.
func (it *Interpreter) IsYieldable() bool { return it.curCo != nil }

// Running returns the currently running coroutine (nil for the main
// thread) and whether that is the main thread.
func (it *Interpreter) Running() (*Coroutine, bool) {
	return it.curCo, it.curCo == nil
}
