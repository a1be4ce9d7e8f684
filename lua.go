// Package lua is the embedding façade: Execute/Validate/CompileToFunction
// entry points over the tree-walking interpreter in internal/interp,
// guarded by the trust-level security policy in security.go. It plays
// the role the teacher's top-level State/OpenLibraries/LoadString API
// played, but is reshaped around the spec's Host contract (trust
// levels, cancellation, a pluggable module Resolver) instead of the
// teacher's register-VM loading API.
package lua

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/embeddedlua/luacore/internal/ast"
	"github.com/embeddedlua/luacore/internal/diag"
	"github.com/embeddedlua/luacore/internal/interp"
	"github.com/embeddedlua/luacore/internal/parser"
	"github.com/embeddedlua/luacore/internal/stdlib"
	"github.com/embeddedlua/luacore/internal/value"
)

// Options configures a Host: trust level, module resolution roots,
// and resource limits. The zero value is Untrusted trust with no module
// roots, a conservative default for untrusted embedding call sites.
type Options struct {
	Trust       TrustLevel
	ModuleRoots []string
	Resolver    Resolver // overrides the default file-system resolver when set

	// MemoryLimitBytes, when nonzero, makes Execute check the process's
	// resident set size before running a script and reject the call if
	// it is already over budget, at Restricted level and below (spec
	// §4.6's resource-exhaustion posture for untrusted/sandboxed code).
	MemoryLimitBytes uint64
}

// Host is one embedding session: one globals table, one security
// policy, one module cache. Create a Host per isolation boundary (per
// tenant, per request) rather than sharing one across trust domains.
type Host struct {
	id     uuid.UUID
	it     *interp.Interpreter
	opts   Options
	policy Policy
	cache  *compileCache
	memLim *MemoryLimiter
}

// ID identifies this Host for diagnostics and correlating log lines
// across Execute calls, rather than a bare pointer address that is
// meaningless once printed.
func (h *Host) ID() string { return h.id.String() }

// NewHost builds a Host with libraries installed per opts.Trust.
func NewHost(opts Options) *Host {
	it := interp.New()
	policy := PolicyFor(opts.Trust)
	h := &Host{id: uuid.New(), it: it, opts: opts, policy: policy, cache: newCompileCache()}
	if opts.MemoryLimitBytes > 0 && policy.Level <= Restricted {
		if lim, err := NewMemoryLimiter(opts.MemoryLimitBytes); err == nil {
			h.memLim = lim
		}
	}
	stdlib.BasicOpen(it)
	if policy.AllowsLibrary("table") {
		stdlib.TableOpen(it)
	}
	if policy.AllowsLibrary("math") {
		stdlib.MathOpen(it)
	}
	if policy.AllowsLibrary("string") {
		stdlib.StringOpen(it)
	}
	if policy.AllowsLibrary("os") {
		stdlib.OSOpen(it)
	}
	if policy.AllowsLibrary("io") {
		stdlib.IOOpen(it)
	}
	if policy.AllowsLibrary("coroutine") {
		stdlib.CoroutineOpen(it)
	}
	if policy.AllowsLibrary("utf8") {
		stdlib.UTF8Open(it)
	}
	if policy.AllowsLibrary("debug") {
		stdlib.DebugOpen(it)
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = NewFileResolver(opts.ModuleRoots)
	}
	if policy.AllowsLibrary("package") {
		stdlib.PackageOpen(it, resolver)
	}
	applySecurityFilter(it.Globals, policy)
	return h
}

// Validate parses source without executing it, reporting diagnostics.
func Validate(source, chunkName string) *diag.Collector {
	diags := &diag.Collector{}
	parser.Parse(source, chunkName, diags)
	return diags
}

// compile parses source into a Chunk, returning the first diagnostic
// as an error when parsing fails. Results are memoized in h.cache by
// content hash, so repeated Execute calls on the same script body skip
// re-parsing.
func (h *Host) compile(source, chunkName string) (*ast.Chunk, error) {
	if chunk, ok := h.cache.get(chunkName, source); ok {
		return chunk, nil
	}
	diags := &diag.Collector{}
	block, ok := parser.Parse(source, chunkName, diags)
	if !ok {
		items := diags.Items()
		if len(items) > 0 {
			return nil, fmt.Errorf("%s", items[0].String())
		}
		return nil, fmt.Errorf("parse error in %s", chunkName)
	}
	chunk := &ast.Chunk{Source: chunkName, Body: block}
	h.cache.put(chunkName, source, chunk)
	return chunk, nil
}

// Execute parses and runs source synchronously, returning its final
// return statement's values.
func (h *Host) Execute(ctx context.Context, source, chunkName string, args ...interface{}) ([]interface{}, error) {
	if h.memLim.Exceeded() {
		return nil, fmt.Errorf("execution refused: process memory already at or above the configured limit (%d bytes RSS)", h.memLim.RSS())
	}
	chunk, err := h.compile(source, chunkName)
	if err != nil {
		return nil, err
	}
	vargs := make([]value.Value, len(args))
	copy(vargs, args)
	return h.it.Run(ctx, chunk, vargs)
}

// ExecuteAsync runs source on a background goroutine, honoring ctx
// cancellation at statement boundaries (spec §5's cooperative
// cancellation model — there is no preemption mid-expression).
func (h *Host) ExecuteAsync(ctx context.Context, source, chunkName string, args ...interface{}) (<-chan []interface{}, <-chan error) {
	resCh := make(chan []interface{}, 1)
	errCh := make(chan error, 1)
	go func() {
		res, err := h.Execute(ctx, source, chunkName, args...)
		if err != nil {
			errCh <- err
			return
		}
		resCh <- res
	}()
	return resCh, errCh
}

// Globals exposes the Host's globals table for advanced embedding use
// (installing host functions, reading back results).
func (h *Host) Globals() *value.Table { return h.it.Globals }

// CompileToDelegate compiles source once and returns a Go closure that
// re-invokes the compiled chunk on demand, avoiding re-parsing on
// repeated calls — the tree-walking analog of the teacher's separate
// load/call steps.
func (h *Host) CompileToDelegate(source, chunkName string) (func(ctx context.Context, args ...interface{}) ([]interface{}, error), error) {
	chunk, err := h.compile(source, chunkName)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, args ...interface{}) ([]interface{}, error) {
		vargs := make([]value.Value, len(args))
		copy(vargs, args)
		return h.it.Run(ctx, chunk, vargs)
	}, nil
}

// CreateFilteredEnvironment builds a globals table pre-filtered for
// trust, the same filtering NewHost applies, without handing back a
// full Host. This is for embedding call sites that want to inspect or
// extend a trust-scoped environment (install a few extra host
// functions, snapshot it, compare it against another trust level)
// before ever running a script in it — unlike Globals, which only
// exists after a Host is already committed to one trust level for its
// whole lifetime.
func CreateFilteredEnvironment(trust TrustLevel, opts Options) *value.Table {
	opts.Trust = trust
	return NewHost(opts).Globals()
}

// CompileToFunction compiles source once under opts and returns a
// zero-argument Go closure over it: the typed compile entry point of
// spec §4.6, for call sites that know a script never takes positional
// arguments (a config file, a policy predicate) and want a thunk
// rather than CompileToDelegate's variadic args ...interface{} call
// shape.
func CompileToFunction(source, chunkName string, opts Options) (func(ctx context.Context) ([]interface{}, error), error) {
	h := NewHost(opts)
	delegate, err := h.CompileToDelegate(source, chunkName)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) ([]interface{}, error) {
		return delegate(ctx)
	}, nil
}
