package interp

import (
	"context"
	"fmt"
	"math"

	"github.com/embeddedlua/luacore/internal/ast"
	"github.com/embeddedlua/luacore/internal/diag"
	"github.com/embeddedlua/luacore/internal/value"
)

// maxMetaRecursion bounds __index/__newindex chains (spec's
// "metatable recursion bound ~2000"), guarding against cyclic
// metatables looping forever. __call chains are not counted against it.
const maxMetaRecursion = 2000

// flowKind tags how a block finished executing.
type flowKind int

const (
	flowNormal flowKind = iota
	flowBreak
	flowReturn
	flowGoto
)

type flow struct {
	kind   flowKind
	values []value.Value
	label  string
}

var normalFlow = flow{kind: flowNormal}

// Interpreter evaluates a parsed chunk against a globals table. One
// Interpreter instance is single-threaded state, per the spec's
// concurrency model; coroutines created from it run on separate
// goroutines but are scheduled cooperatively, never concurrently with
// the Interpreter's own call stack.
type Interpreter struct {
	Globals    *value.Table
	StringMeta *value.Table // shared metatable giving strings their library methods
	Diags      *diag.Collector
	ChunkName  string

	ctx       context.Context
	callDepth int
	curCo     *Coroutine // nil when running on the main thread
}

// New builds an Interpreter with an empty globals table. Callers
// install standard libraries and host policy via stdlib.Open* and the
// facade package's security filtering before running any chunk.
func New() *Interpreter {
	return &Interpreter{
		Globals: value.NewTable(),
		Diags:   &diag.Collector{},
	}
}

// Run executes chunk's top-level block in a fresh function scope whose
// varargs are args, returning the chunk's final return statement's
// values (or nil). Lua-level errors surface as *value.LuaError.
func (it *Interpreter) Run(ctx context.Context, chunk *ast.Chunk, args []value.Value) (results []value.Value, err error) {
	prevCtx, prevChunk := it.ctx, it.ChunkName
	if ctx != nil {
		it.ctx = ctx
	}
	it.ChunkName = chunk.Source
	defer func() {
		it.ctx, it.ChunkName = prevCtx, prevChunk
		if r := recover(); r != nil {
			if le, ok := r.(*value.LuaError); ok {
				err = le
				return
			}
			panic(r)
		}
	}()
	env := NewChildEnv(nil)
	env.SetVarargs(args)
	f := it.execBlock(chunk.Body, env)
	if f.kind == flowReturn {
		return f.values, nil
	}
	return nil, nil
}

func (it *Interpreter) checkCancel(pos diag.Position) {
	if it.ctx == nil {
		return
	}
	select {
	case <-it.ctx.Done():
		it.throwf(pos, "interrupted: %v", it.ctx.Err())
	default:
	}
}

// throwf raises a formatted runtime error as a Lua error value,
// mirroring the teacher's Errorf-then-panic pattern.
func (it *Interpreter) throwf(pos diag.Position, format string, args ...interface{}) {
	panic(value.NewError(pos, format, args...))
}

func (it *Interpreter) throwValue(v value.Value) {
	panic(&value.LuaError{Value: v})
}

// execBlock runs stmts in a fresh child scope of parent, honoring
// goto/label resolution within this block: a goto whose label is in
// this block's statement list jumps there, otherwise it is handed up to
// the enclosing block. A jump into the scope of a local declared
// between the goto and its label is not rejected.
//
// <close> locals must see __close run on every exit path, not just the
// normal one (spec §3.5/§4.4): a panic unwinding out of execStmts (a
// Lua error; break/goto/return travel as flow values, not panics)
// would otherwise skip straight past the closeAll call below to the
// nearest recover in makeClosure's Call closure. The deferred recover
// here closes the scope first and re-panics, so the panic still
// reaches that same boundary but only after __close has run.
func (it *Interpreter) execBlock(b *ast.Block, parent *Env) (f flow) {
	env := NewChildEnv(parent)
	normal := false
	defer func() {
		if normal {
			return
		}
		r := recover()
		errVal := it.closeAll(env, b.Pos(), recoveredToValue(r))
		if errVal != nil {
			panic(&value.LuaError{Value: errVal})
		}
		panic(r)
	}()
	f = it.execStmts(b.Stmts, env)
	normal = true
	errVal := it.closeAll(env, b.Pos(), nil)
	if errVal != nil {
		it.throwValue(errVal)
	}
	return f
}

// recoveredToValue converts a value captured by recover() into the
// Lua error value __close handlers and pcall see: a *value.LuaError's
// payload unwraps to its Value, anything else (a Go panic with a
// plain string or error, for instance) renders via fmt.Sprint.
func recoveredToValue(r interface{}) value.Value {
	if r == nil {
		return nil
	}
	if le, ok := r.(*value.LuaError); ok {
		return le.Value
	}
	return fmt.Sprint(r)
}

func (it *Interpreter) execStmts(stmts []ast.Stmt, env *Env) flow {
	i := 0
	for i < len(stmts) {
		f := it.execStmt(stmts[i], env)
		if f.kind == flowGoto {
			if target := findLabel(stmts, f.label); target >= 0 {
				i = target
				continue
			}
			return f // propagate to an enclosing block
		}
		if f.kind != flowNormal {
			return f
		}
		i++
	}
	return normalFlow
}

func findLabel(stmts []ast.Stmt, name string) int {
	for i, s := range stmts {
		if l, ok := s.(*ast.LabelStmt); ok && l.Name == name {
			return i
		}
	}
	return -1
}

func (it *Interpreter) execStmt(s ast.Stmt, env *Env) flow {
	it.checkCancel(s.Pos())
	switch s := s.(type) {
	case *ast.EmptyStmt, *ast.LabelStmt:
		return normalFlow
	case *ast.ExprStmt:
		it.evalCall(s.Call, env)
		return normalFlow
	case *ast.LocalStmt:
		it.execLocal(s, env)
		return normalFlow
	case *ast.AssignStmt:
		it.execAssign(s, env)
		return normalFlow
	case *ast.DoStmt:
		return it.execBlock(s.Body, env)
	case *ast.WhileStmt:
		return it.execWhile(s, env)
	case *ast.RepeatStmt:
		return it.execRepeat(s, env)
	case *ast.IfStmt:
		return it.execIf(s, env)
	case *ast.NumForStmt:
		return it.execNumFor(s, env)
	case *ast.GenForStmt:
		return it.execGenFor(s, env)
	case *ast.FuncStmt:
		it.execFuncStmt(s, env)
		return normalFlow
	case *ast.LocalFuncStmt:
		it.execLocalFunc(s, env)
		return normalFlow
	case *ast.ReturnStmt:
		return flow{kind: flowReturn, values: it.evalExprList(s.Exprs, env)}
	case *ast.BreakStmt:
		return flow{kind: flowBreak}
	case *ast.GotoStmt:
		return flow{kind: flowGoto, label: s.Label}
	default:
		it.throwf(s.Pos(), "internal: unhandled statement %T", s)
	}
	return normalFlow
}

func (it *Interpreter) execLocal(s *ast.LocalStmt, env *Env) {
	vals := it.evalExprList(s.Exprs, env)
	for i, name := range s.Names {
		var v value.Value
		if i < len(vals) {
			v = vals[i]
		}
		attrib := ast.AttribNone
		if i < len(s.Attribs) {
			attrib = s.Attribs[i]
		}
		if attrib == ast.AttribClose && v != nil && v != false {
			mt := value.MetatableOf(v)
			if mt.TagMethod(value.TMClose) == nil {
				it.throwf(s.Pos(), "variable '%s' got a non-closable value", name)
			}
		}
		env.Declare(name, attrib, v)
	}
}

func (it *Interpreter) execAssign(s *ast.AssignStmt, env *Env) {
	vals := it.evalExprList(s.Exprs, env)
	for i, target := range s.Targets {
		var v value.Value
		if i < len(vals) {
			v = vals[i]
		}
		it.assignTo(target, v, env)
	}
}

func (it *Interpreter) assignTo(target ast.Expr, v value.Value, env *Env) {
	switch t := target.(type) {
	case *ast.NameExpr:
		if b, ok := env.Lookup(t.Name); ok {
			if b.attrib != ast.AttribNone {
				it.throwf(t.Pos(), "attempt to assign to const variable '%s'", t.Name)
			}
			b.val = v
			return
		}
		it.Globals.Set(t.Name, v)
	case *ast.IndexExpr:
		obj := it.eval1(t.Obj, env)
		key := it.eval1(t.Key, env)
		it.setIndex(t.Pos(), obj, key, v)
	default:
		it.throwf(target.Pos(), "internal: invalid assignment target")
	}
}

func (it *Interpreter) execWhile(s *ast.WhileStmt, env *Env) flow {
	for value.IsTruthy(it.eval1(s.Cond, env)) {
		f := it.execBlock(s.Body, env)
		switch f.kind {
		case flowBreak:
			return normalFlow
		case flowReturn, flowGoto:
			return f
		}
	}
	return normalFlow
}

func (it *Interpreter) execRepeat(s *ast.RepeatStmt, env *Env) flow {
	for {
		// The until-condition sees locals declared in the body, so both
		// share one scope rather than execBlock's fresh child per pass.
		inner := NewChildEnv(env)
		f, done := it.execRepeatPass(s, inner)
		if f.kind == flowBreak {
			return normalFlow
		}
		if f.kind == flowReturn || f.kind == flowGoto {
			return f
		}
		if done {
			return normalFlow
		}
	}
}

// execRepeatPass runs one pass of the body plus its until-condition in
// inner, closing <close> locals on every exit (normal, break, return,
// goto, or a panic unwinding through the body or the condition) before
// control leaves inner's scope. See execBlock for why this needs a
// deferred recover rather than a single closeAll call after the body.
func (it *Interpreter) execRepeatPass(s *ast.RepeatStmt, inner *Env) (f flow, done bool) {
	normal := false
	defer func() {
		if normal {
			return
		}
		r := recover()
		errVal := it.closeAll(inner, s.Pos(), recoveredToValue(r))
		if errVal != nil {
			panic(&value.LuaError{Value: errVal})
		}
		panic(r)
	}()
	f = it.execStmts(s.Body.Stmts, inner)
	if f.kind == flowBreak || f.kind == flowReturn || f.kind == flowGoto {
		normal = true
		it.closeAll(inner, s.Pos(), nil)
		return f, false
	}
	done = value.IsTruthy(it.eval1(s.Cond, inner))
	normal = true
	it.closeAll(inner, s.Pos(), nil)
	return f, done
}

func (it *Interpreter) execIf(s *ast.IfStmt, env *Env) flow {
	if value.IsTruthy(it.eval1(s.Cond, env)) {
		return it.execBlock(s.Then, env)
	}
	switch e := s.Else.(type) {
	case nil:
		return normalFlow
	case *ast.IfStmt:
		return it.execIf(e, env)
	case *ast.Block:
		return it.execBlock(e, env)
	}
	return normalFlow
}

func (it *Interpreter) execNumFor(s *ast.NumForStmt, env *Env) flow {
	start := it.eval1(s.Start, env)
	stop := it.eval1(s.Stop, env)
	var step value.Value = int64(1)
	if s.Step != nil {
		step = it.eval1(s.Step, env)
	}
	si, iok1 := start.(int64)
	pi, iok2 := stop.(int64)
	ti, iok3 := step.(int64)
	if iok1 && iok2 && iok3 {
		if ti == 0 {
			it.throwf(s.Pos(), "'for' step is zero")
		}
		for i := si; (ti > 0 && i <= pi) || (ti < 0 && i >= pi); {
			loopEnv := NewChildEnv(env)
			loopEnv.Declare(s.Name, ast.AttribNone, i)
			f := it.execStmts(s.Body.Stmts, loopEnv)
			errVal := it.closeAll(loopEnv, s.Pos(), nil)
			if errVal != nil {
				it.throwValue(errVal)
			}
			if f.kind == flowBreak {
				return normalFlow
			}
			if f.kind == flowReturn || f.kind == flowGoto {
				return f
			}
			// Overflow-safe increment/termination check.
			if ti > 0 && i > pi-ti {
				break
			}
			if ti < 0 && i < pi-ti {
				break
			}
			i += ti
		}
		return normalFlow
	}
	sf, ok1 := value.ToFloat(start)
	pf, ok2 := value.ToFloat(stop)
	tf, ok3 := value.ToFloat(step)
	if !ok1 || !ok2 || !ok3 {
		it.throwf(s.Pos(), "'for' initial value must be a number")
	}
	if tf == 0 {
		it.throwf(s.Pos(), "'for' step is zero")
	}
	for i := sf; (tf > 0 && i <= pf) || (tf < 0 && i >= pf); i += tf {
		loopEnv := NewChildEnv(env)
		loopEnv.Declare(s.Name, ast.AttribNone, i)
		f := it.execStmts(s.Body.Stmts, loopEnv)
		errVal := it.closeAll(loopEnv, s.Pos(), nil)
		if errVal != nil {
			it.throwValue(errVal)
		}
		if f.kind == flowBreak {
			return normalFlow
		}
		if f.kind == flowReturn || f.kind == flowGoto {
			return f
		}
	}
	return normalFlow
}

// execGenFor runs a generic for loop. Per spec §4.4 the expression
// list is truncated/padded to exactly four values: the iterator
// function f, the invariant state s, the control variable var, and a
// fourth to-be-closed value tbc. tbc is declared as a synthetic
// <close> local in the loop's own env so it closes via the same
// closeAll/defer-recover machinery as an explicit `local x <close>`,
// on every exit from the loop (normal exhaustion, break, return, goto,
// or a panic unwinding through the iterator call or the body).
func (it *Interpreter) execGenFor(s *ast.GenForStmt, env *Env) (f flow) {
	vals := it.evalExprList(s.Exprs, env)
	var iter, state, ctrl, tbc value.Value
	if len(vals) > 0 {
		iter = vals[0]
	}
	if len(vals) > 1 {
		state = vals[1]
	}
	if len(vals) > 2 {
		ctrl = vals[2]
	}
	if len(vals) > 3 {
		tbc = vals[3]
	}
	iterFn, ok := iter.(*value.Function)
	if !ok {
		it.throwf(s.Pos(), "attempt to call a %s value", value.TypeName(iter))
	}

	loopScope := NewChildEnv(env)
	if tbc != nil && tbc != false {
		mt := value.MetatableOf(tbc)
		if mt.TagMethod(value.TMClose) == nil {
			it.throwf(s.Pos(), "variable 'for iterator' got a non-closable value")
		}
		loopScope.Declare("(for tbc)", ast.AttribClose, tbc)
	}
	normal := false
	defer func() {
		if normal {
			return
		}
		r := recover()
		errVal := it.closeAll(loopScope, s.Pos(), recoveredToValue(r))
		if errVal != nil {
			panic(&value.LuaError{Value: errVal})
		}
		panic(r)
	}()

	for {
		rets, err := iterFn.Call([]value.Value{state, ctrl})
		if err != nil {
			it.throwValue(errToValue(err))
		}
		if len(rets) == 0 || rets[0] == nil {
			break
		}
		ctrl = rets[0]
		loopEnv := NewChildEnv(loopScope)
		for i, name := range s.Names {
			var v value.Value
			if i < len(rets) {
				v = rets[i]
			}
			loopEnv.Declare(name, ast.AttribNone, v)
		}
		bf := it.execStmts(s.Body.Stmts, loopEnv)
		errVal := it.closeAll(loopEnv, s.Pos(), nil)
		if errVal != nil {
			it.throwValue(errVal)
		}
		if bf.kind == flowBreak {
			break
		}
		if bf.kind == flowReturn || bf.kind == flowGoto {
			f = bf
			normal = true
			it.closeAll(loopScope, s.Pos(), nil)
			return f
		}
	}
	f = normalFlow
	normal = true
	it.closeAll(loopScope, s.Pos(), nil)
	return f
}

func errToValue(err error) value.Value {
	if le, ok := err.(*value.LuaError); ok {
		return le.Value
	}
	return err.Error()
}

func (it *Interpreter) execFuncStmt(s *ast.FuncStmt, env *Env) {
	fn := it.makeClosure(s.Func, env)
	it.assignTo(s.Target, fn, env)
}

func (it *Interpreter) execLocalFunc(s *ast.LocalFuncStmt, env *Env) {
	// The local is visible inside its own body, enabling recursion.
	b := env.Declare(s.Name, ast.AttribNone, nil)
	fn := it.makeClosure(s.Func, env)
	b.val = fn
}

// eval1 evaluates e for exactly one value, truncating multi-results
// from calls/varargs (Lua's rule for any non-final position).
func (it *Interpreter) eval1(e ast.Expr, env *Env) value.Value {
	vs := it.eval(e, env)
	if len(vs) == 0 {
		return nil
	}
	return vs[0]
}

// evalExprList evaluates a list where only the final expression may
// expand to multiple values (call or `...`), per spec §3.4.
func (it *Interpreter) evalExprList(exprs []ast.Expr, env *Env) []value.Value {
	if len(exprs) == 0 {
		return nil
	}
	out := make([]value.Value, 0, len(exprs))
	for i, e := range exprs {
		if i == len(exprs)-1 {
			out = append(out, it.eval(e, env)...)
		} else {
			out = append(out, it.eval1(e, env))
		}
	}
	return out
}

// eval evaluates e, returning every value it produces (more than one
// only for a trailing call expression or `...`).
func (it *Interpreter) eval(e ast.Expr, env *Env) []value.Value {
	switch e := e.(type) {
	case *ast.NilExpr:
		return []value.Value{nil}
	case *ast.TrueExpr:
		return []value.Value{true}
	case *ast.FalseExpr:
		return []value.Value{false}
	case *ast.Vararg:
		return env.Varargs()
	case *ast.IntExpr:
		return []value.Value{e.Value}
	case *ast.FloatExpr:
		return []value.Value{e.Value}
	case *ast.StringExpr:
		return []value.Value{e.Value}
	case *ast.NameExpr:
		if b, ok := env.Lookup(e.Name); ok {
			return []value.Value{b.val}
		}
		return []value.Value{it.Globals.Get(e.Name)}
	case *ast.ParenExpr:
		return []value.Value{it.eval1(e.X, env)}
	case *ast.IndexExpr:
		obj := it.eval1(e.Obj, env)
		key := it.eval1(e.Key, env)
		return []value.Value{it.index(e.Pos(), obj, key, 0)}
	case *ast.UnaryExpr:
		return []value.Value{it.evalUnary(e, env)}
	case *ast.BinaryExpr:
		return []value.Value{it.evalBinary(e, env)}
	case *ast.TableExpr:
		return []value.Value{it.evalTable(e, env)}
	case *ast.FuncExpr:
		return []value.Value{it.makeClosure(e, env)}
	case *ast.CallExpr:
		return it.evalCall(e, env)
	default:
		it.throwf(e.Pos(), "internal: unhandled expression %T", e)
		return nil
	}
}

func (it *Interpreter) evalTable(e *ast.TableExpr, env *Env) value.Value {
	t := value.NewTable()
	arrayIdx := int64(1)
	for i, f := range e.Fields {
		if f.Key != nil {
			k := it.eval1(f.Key, env)
			v := it.eval1(f.Value, env)
			t.Set(k, v)
			continue
		}
		if i == len(e.Fields)-1 {
			vs := it.eval(f.Value, env)
			for _, v := range vs {
				t.Set(arrayIdx, v)
				arrayIdx++
			}
			continue
		}
		t.Set(arrayIdx, it.eval1(f.Value, env))
		arrayIdx++
	}
	return t
}

func (it *Interpreter) evalUnary(e *ast.UnaryExpr, env *Env) value.Value {
	v := it.eval1(e.X, env)
	switch e.Op {
	case ast.OpNot:
		return !value.IsTruthy(v)
	case ast.OpLen:
		return it.length(e.Pos(), v)
	case ast.OpUnm:
		return it.arith(e.Pos(), value.OpUnm, v, v)
	case ast.OpBNot:
		return it.arith(e.Pos(), value.OpBNot, v, v)
	}
	it.throwf(e.Pos(), "internal: unhandled unary op")
	return nil
}

func (it *Interpreter) length(pos diag.Position, v value.Value) value.Value {
	if s, ok := v.(string); ok {
		return int64(len(s))
	}
	if t, ok := v.(*value.Table); ok {
		if tm := t.Meta.TagMethod(value.TMLen); tm != nil {
			return it.call1(pos, tm, []value.Value{v})
		}
		return t.Len()
	}
	it.throwf(pos, "attempt to get length of a %s value", value.TypeName(v))
	return nil
}

var binOpToArith = map[ast.BinOp]value.ArithOp{
	ast.OpAdd: value.OpAdd, ast.OpSub: value.OpSub, ast.OpMul: value.OpMul,
	ast.OpMod: value.OpMod, ast.OpPow: value.OpPow, ast.OpDiv: value.OpDiv,
	ast.OpIDiv: value.OpIDiv, ast.OpBAnd: value.OpBAnd, ast.OpBOr: value.OpBOr,
	ast.OpBXor: value.OpBXor, ast.OpShl: value.OpShl, ast.OpShr: value.OpShr,
}

func (it *Interpreter) evalBinary(e *ast.BinaryExpr, env *Env) value.Value {
	switch e.Op {
	case ast.OpAnd:
		l := it.eval1(e.X, env)
		if !value.IsTruthy(l) {
			return l
		}
		return it.eval1(e.Y, env)
	case ast.OpOr:
		l := it.eval1(e.X, env)
		if value.IsTruthy(l) {
			return l
		}
		return it.eval1(e.Y, env)
	}
	l := it.eval1(e.X, env)
	r := it.eval1(e.Y, env)
	switch e.Op {
	case ast.OpConcat:
		return it.concat(e.Pos(), l, r)
	case ast.OpEQ:
		return it.equals(e.Pos(), l, r)
	case ast.OpNE:
		return !it.equals(e.Pos(), l, r)
	case ast.OpLT:
		return it.compare(e.Pos(), value.CmpLT, l, r)
	case ast.OpGT:
		return it.compare(e.Pos(), value.CmpLT, r, l)
	case ast.OpLE:
		return it.compare(e.Pos(), value.CmpLE, l, r)
	case ast.OpGE:
		return it.compare(e.Pos(), value.CmpLE, r, l)
	}
	if aop, ok := binOpToArith[e.Op]; ok {
		return it.arith(e.Pos(), aop, l, r)
	}
	it.throwf(e.Pos(), "internal: unhandled binary op")
	return nil
}

func (it *Interpreter) arith(pos diag.Position, op value.ArithOp, l, r value.Value) value.Value {
	if op.IsBitwise() {
		li, lok := value.ToInteger(l)
		ri, rok := value.ToInteger(r)
		if lok && rok {
			res, ok := value.ArithInt(op, li, ri)
			if !ok {
				it.throwf(pos, "attempt to perform 'n%%0'")
			}
			return res
		}
		if v, ok := it.tryArithMeta(pos, op, l, r); ok {
			return v
		}
		bad := l
		if lok {
			bad = r
		}
		if value.IsNumber(bad) {
			it.throwf(pos, "number has no integer representation")
		}
		it.throwf(pos, "attempt to perform bitwise operation on a %s value", value.TypeName(bad))
	}
	if li, ok := l.(int64); ok {
		if ri, ok := r.(int64); ok {
			if op == value.OpDiv || op == value.OpPow {
				return value.ArithFloat(op, float64(li), float64(ri))
			}
			res, ok := value.ArithInt(op, li, ri)
			if !ok {
				it.throwf(pos, "attempt to perform 'n%%0'")
			}
			return res
		}
	}
	lf, lok := numericOperand(l)
	rf, rok := numericOperand(r)
	if lok && rok {
		return value.ArithFloat(op, lf, rf)
	}
	if v, ok := it.tryArithMeta(pos, op, l, r); ok {
		return v
	}
	bad := l
	if lok {
		bad = r
	}
	it.throwf(pos, "attempt to perform arithmetic on a %s value", value.TypeName(bad))
	return nil
}

// numericOperand coerces strings convertible to numbers, as Lua's
// arithmetic does, in addition to raw numbers.
func numericOperand(v value.Value) (float64, bool) {
	if f, ok := value.ToFloat(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		if n, ok := value.ParseNumber(s); ok {
			f, _ := value.ToFloat(n)
			return f, true
		}
	}
	return 0, false
}

func (it *Interpreter) tryArithMeta(pos diag.Position, op value.ArithOp, l, r value.Value) (value.Value, bool) {
	ev := op.EventFor()
	if tm := value.MetatableOf(l).TagMethod(ev); tm != nil {
		return it.call1(pos, tm, []value.Value{l, r}), true
	}
	if tm := value.MetatableOf(r).TagMethod(ev); tm != nil {
		return it.call1(pos, tm, []value.Value{l, r}), true
	}
	return nil, false
}

func (it *Interpreter) concat(pos diag.Position, l, r value.Value) value.Value {
	ls, lok := value.ToStringCoercible(l)
	rs, rok := value.ToStringCoercible(r)
	if lok && rok {
		return ls + rs
	}
	if tm := value.MetatableOf(l).TagMethod(value.TMConcat); tm != nil {
		return it.call1(pos, tm, []value.Value{l, r})
	}
	if tm := value.MetatableOf(r).TagMethod(value.TMConcat); tm != nil {
		return it.call1(pos, tm, []value.Value{l, r})
	}
	bad := l
	if lok {
		bad = r
	}
	it.throwf(pos, "attempt to concatenate a %s value", value.TypeName(bad))
	return nil
}

func (it *Interpreter) equals(pos diag.Position, l, r value.Value) bool {
	if value.RawEqual(l, r) {
		return true
	}
	lt, lok := l.(*value.Table)
	rt, rok := r.(*value.Table)
	if lok && rok {
		if tm := lt.Meta.TagMethod(value.TMEq); tm != nil {
			return value.IsTruthy(it.call1(pos, tm, []value.Value{l, r}))
		}
		if tm := rt.Meta.TagMethod(value.TMEq); tm != nil {
			return value.IsTruthy(it.call1(pos, tm, []value.Value{l, r}))
		}
	}
	return false
}

func (it *Interpreter) compare(pos diag.Position, op value.CompareOp, l, r value.Value) bool {
	if res, ok := value.Compare(op, l, r); ok {
		return res
	}
	ev := value.TMLt
	if op == value.CmpLE {
		ev = value.TMLe
	}
	if tm := value.MetatableOf(l).TagMethod(ev); tm != nil {
		return value.IsTruthy(it.call1(pos, tm, []value.Value{l, r}))
	}
	if tm := value.MetatableOf(r).TagMethod(ev); tm != nil {
		return value.IsTruthy(it.call1(pos, tm, []value.Value{l, r}))
	}
	it.throwf(pos, "attempt to compare two %s values", value.TypeName(l))
	return false
}

// index implements t[k] with __index chaining, bounded by
// maxMetaRecursion to catch metatable cycles (spec's recursion bound).
func (it *Interpreter) index(pos diag.Position, obj, key value.Value, depth int) value.Value {
	if depth > maxMetaRecursion {
		it.throwf(pos, "'__index' chain too long; possible loop")
	}
	if t, ok := obj.(*value.Table); ok {
		v := t.Get(key)
		if v != nil {
			return v
		}
		if t.Meta == nil {
			return nil
		}
		idx := t.Meta.Get("__index")
		if idx == nil {
			return nil
		}
		if fn, ok := idx.(*value.Function); ok {
			return it.call1(pos, fn, []value.Value{obj, key})
		}
		return it.index(pos, idx, key, depth+1)
	}
	if s, ok := obj.(string); ok && it.StringMeta != nil {
		_ = s
		idx := it.StringMeta.Get("__index")
		if idx != nil {
			return it.index(pos, idx, key, depth+1)
		}
	}
	mt := value.MetatableOf(obj)
	if mt != nil {
		idx := mt.Get("__index")
		if idx != nil {
			if fn, ok := idx.(*value.Function); ok {
				return it.call1(pos, fn, []value.Value{obj, key})
			}
			return it.index(pos, idx, key, depth+1)
		}
	}
	it.throwf(pos, "attempt to index a %s value", value.TypeName(obj))
	return nil
}

func (it *Interpreter) setIndex(pos diag.Position, obj, key, v value.Value) {
	it.setIndexDepth(pos, obj, key, v, 0)
}

func (it *Interpreter) setIndexDepth(pos diag.Position, obj, key, v value.Value, depth int) {
	if depth > maxMetaRecursion {
		it.throwf(pos, "'__newindex' chain too long; possible loop")
	}
	if t, ok := obj.(*value.Table); ok {
		if t.Get(key) != nil || t.Meta == nil {
			if key == nil {
				it.throwf(pos, "table index is nil")
			}
			if f, ok := key.(float64); ok && math.IsNaN(f) {
				it.throwf(pos, "table index is NaN")
			}
			t.Set(key, v)
			return
		}
		ni := t.Meta.Get("__newindex")
		if ni == nil {
			t.Set(key, v)
			return
		}
		if fn, ok := ni.(*value.Function); ok {
			it.call(pos, fn, []value.Value{obj, key, v})
			return
		}
		it.setIndexDepth(pos, ni, key, v, depth+1)
		return
	}
	it.throwf(pos, "attempt to index a %s value", value.TypeName(obj))
}

// makeClosure binds a function literal to env, producing a
// value.Function whose Call closes over a child Env per invocation.
func (it *Interpreter) makeClosure(fe *ast.FuncExpr, defEnv *Env) *value.Function {
	name := fe.Name
	if name == "" {
		name = "?"
	}
	fn := &value.Function{Name: name, Source: it.ChunkName, Line: fe.Pos().Line}
	fn.Call = func(args []value.Value) (res []value.Value, err error) {
		defer func() {
			if r := recover(); r != nil {
				if le, ok := r.(*value.LuaError); ok {
					err = le
					return
				}
				panic(r)
			}
		}()
		callEnv := NewChildEnv(defEnv)
		for i, p := range fe.Params {
			var v value.Value
			if i < len(args) {
				v = args[i]
			}
			callEnv.Declare(p.Name, p.Attrib, v)
		}
		if fe.IsVararg && len(args) > len(fe.Params) {
			callEnv.SetVarargs(append([]value.Value{}, args[len(fe.Params):]...))
		} else {
			callEnv.SetVarargs([]value.Value{})
		}
		it.callDepth++
		if it.callDepth > 200 {
			it.callDepth--
			it.throwf(fe.Pos(), "stack overflow")
		}
		f := it.execBlock(fe.Body, callEnv)
		it.callDepth--
		if f.kind == flowReturn {
			return f.values, nil
		}
		return nil, nil
	}
	return fn
}

// evalCall evaluates a call or method-call expression, returning all
// of the callee's results.
func (it *Interpreter) evalCall(e *ast.CallExpr, env *Env) []value.Value {
	fnVal := it.eval1(e.Fn, env)
	var args []value.Value
	if e.Method != "" {
		recv := fnVal
		fnVal = it.index(e.Pos(), recv, e.Method, 0)
		args = append(args, recv)
	}
	args = append(args, it.evalExprList(e.Args, env)...)
	return it.callMulti(e.Pos(), fnVal, args)
}

// callMulti invokes fnVal with args, following __call for non-function
// callables, and returns every result value.
func (it *Interpreter) callMulti(pos diag.Position, fnVal value.Value, args []value.Value) []value.Value {
	it.checkCancel(pos)
	fn, ok := fnVal.(*value.Function)
	if !ok {
		mt := value.MetatableOf(fnVal)
		if tm := mt.TagMethod(value.TMCall); tm != nil {
			callArgs := append([]value.Value{fnVal}, args...)
			return it.callMulti(pos, tm, callArgs)
		}
		it.throwf(pos, "attempt to call a %s value", value.TypeName(fnVal))
	}
	res, err := fn.Call(args)
	if err != nil {
		it.throwValue(errToValue(err))
	}
	return res
}

func (it *Interpreter) call(pos diag.Position, fnVal value.Value, args []value.Value) {
	it.callMulti(pos, fnVal, args)
}

func (it *Interpreter) call1(pos diag.Position, fnVal value.Value, args []value.Value) value.Value {
	res := it.callMulti(pos, fnVal, args)
	if len(res) == 0 {
		return nil
	}
	return res[0]
}

// ProtectedCall implements pcall/xpcall's semantics for the stdlib:
// invoke fn, recovering any Lua error into (false, errValue) rather
// than letting it propagate, mirroring the teacher's protectedCall.
func (it *Interpreter) ProtectedCall(fn *value.Function, args []value.Value, handler *value.Function) (ok bool, results []value.Value, errVal value.Value) {
	defer func() {
		if r := recover(); r != nil {
			le, isLua := r.(*value.LuaError)
			var ev value.Value
			if isLua {
				ev = le.Value
			} else if e, isErr := r.(error); isErr {
				ev = e.Error()
			} else {
				ev = fmt.Sprint(r)
			}
			if handler != nil {
				ev = it.call1(diag.Position{}, handler, []value.Value{ev})
			}
			ok, results, errVal = false, nil, ev
		}
	}()
	res, err := fn.Call(args)
	if err != nil {
		ev := errToValue(err)
		if handler != nil {
			ev = it.call1(diag.Position{}, handler, []value.Value{ev})
		}
		return false, nil, ev
	}
	return true, res, nil
}
