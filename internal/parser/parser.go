// Package parser implements a recursive-descent, Pratt-style parser for
// Lua 5.4 source, following the precedence table and statement grammar
// in spec §4.1. It recovers from malformed statements by synchronizing
// on `;`, `end`, or a keyword that starts a new statement, so one chunk
// can yield more than one diagnostic, mirroring the teacher's
// synchronize-and-continue posture in scanner.go.
package parser

import (
	"github.com/embeddedlua/luacore/internal/ast"
	"github.com/embeddedlua/luacore/internal/diag"
	"github.com/embeddedlua/luacore/internal/lexer"
)

// Parse tokenizes and parses src, returning the chunk body and whether
// parsing finished without error diagnostics. Every diagnostic is
// appended to diags, so callers that want the full list from a
// validation pass, not just the first, read it there.
func Parse(src, file string, diags *diag.Collector) (*ast.Block, bool) {
	lx := lexer.New(src, file, diags)
	p := &parser{lx: lx, diags: diags, file: file}
	p.next()
	body := p.block()
	p.expect(lexer.EOF)
	return body, !diags.HasErrors()
}

type parser struct {
	lx    *lexer.Lexer
	diags *diag.Collector
	file  string
	tok   lexer.Token
	ahead *lexer.Token
}

func (p *parser) next() {
	if p.ahead != nil {
		p.tok = *p.ahead
		p.ahead = nil
		return
	}
	p.tok = p.lx.Next()
}

func (p *parser) peek() lexer.Token {
	if p.ahead == nil {
		t := p.lx.Next()
		p.ahead = &t
	}
	return *p.ahead
}

func (p *parser) pos() diag.Position { return p.tok.Pos }

func (p *parser) errf(format string, args ...interface{}) {
	p.diags.Errorf(diag.FamilyParse+"0002", p.pos(), format, args...)
}

func (p *parser) expect(k lexer.Kind) lexer.Token {
	if p.tok.Kind != k {
		p.errf("'%s' expected near '%s'", k, tokText(p.tok))
	}
	t := p.tok
	p.next()
	return t
}

func tokText(t lexer.Token) string {
	if t.Kind == lexer.Name || t.Kind == lexer.String {
		return t.Str
	}
	return t.Kind.String()
}

// synchronize skips tokens until a statement boundary, so one bad
// statement doesn't cascade into spurious follow-on diagnostics.
func (p *parser) synchronize() {
	for {
		switch p.tok.Kind {
		case lexer.EOF, lexer.Semi, lexer.End, lexer.Else, lexer.Elseif, lexer.Until,
			lexer.If, lexer.While, lexer.For, lexer.Do, lexer.Return, lexer.Local,
			lexer.Function, lexer.Break, lexer.Goto, lexer.DColon:
			return
		}
		p.next()
	}
}

// --- blocks & statements -------------------------------------------------

func blockEnds(k lexer.Kind) bool {
	switch k {
	case lexer.EOF, lexer.End, lexer.Else, lexer.Elseif, lexer.Until:
		return true
	}
	return false
}

func (p *parser) block() *ast.Block {
	b := &ast.Block{Base: ast.Base{P: p.pos()}}
	for !blockEnds(p.tok.Kind) {
		if p.tok.Kind == lexer.Return {
			b.Stmts = append(b.Stmts, p.returnStmt())
			break
		}
		s := p.statement()
		if s != nil {
			b.Stmts = append(b.Stmts, s)
		}
	}
	return b
}

func (p *parser) statement() ast.Stmt {
	pos := p.pos()
	switch p.tok.Kind {
	case lexer.Semi:
		p.next()
		return nil
	case lexer.If:
		return p.ifStmt()
	case lexer.While:
		return p.whileStmt()
	case lexer.Do:
		p.next()
		body := p.block()
		p.expect(lexer.End)
		return &ast.DoStmt{Body: body}
	case lexer.For:
		return p.forStmt()
	case lexer.Repeat:
		return p.repeatStmt()
	case lexer.Function:
		return p.funcStmt()
	case lexer.Local:
		return p.localStmt()
	case lexer.DColon:
		p.next()
		name := p.expect(lexer.Name).Str
		p.expect(lexer.DColon)
		return &ast.LabelStmt{Name: name}
	case lexer.Break:
		p.next()
		return &ast.BreakStmt{}
	case lexer.Goto:
		p.next()
		name := p.expect(lexer.Name).Str
		return &ast.GotoStmt{Label: name}
	default:
		s := p.exprStatement(pos)
		return s
	}
}

func (p *parser) ifStmt() ast.Stmt {
	p.next() // if
	cond := p.expr()
	p.expect(lexer.Then)
	then := p.block()
	s := &ast.IfStmt{Cond: cond, Then: then}
	switch p.tok.Kind {
	case lexer.Elseif:
		s.Else = p.ifStmtElseif()
	case lexer.Else:
		p.next()
		s.Else = p.block()
		p.expect(lexer.End)
	default:
		p.expect(lexer.End)
	}
	return s
}

// ifStmtElseif parses `elseif cond then block ...` and returns it as a
// nested IfStmt chained through Else, consuming the final `end`.
func (p *parser) ifStmtElseif() ast.Stmt {
	p.next() // elseif
	cond := p.expr()
	p.expect(lexer.Then)
	then := p.block()
	s := &ast.IfStmt{Cond: cond, Then: then}
	switch p.tok.Kind {
	case lexer.Elseif:
		s.Else = p.ifStmtElseif()
	case lexer.Else:
		p.next()
		s.Else = p.block()
		p.expect(lexer.End)
	default:
		p.expect(lexer.End)
	}
	return s
}

func (p *parser) whileStmt() ast.Stmt {
	p.next()
	cond := p.expr()
	p.expect(lexer.Do)
	body := p.block()
	p.expect(lexer.End)
	return &ast.WhileStmt{Cond: cond, Body: body}
}

func (p *parser) repeatStmt() ast.Stmt {
	p.next()
	body := p.block()
	p.expect(lexer.Until)
	cond := p.expr()
	return &ast.RepeatStmt{Body: body, Cond: cond}
}

func (p *parser) forStmt() ast.Stmt {
	p.next()
	name := p.expect(lexer.Name).Str
	if p.tok.Kind == lexer.Assign {
		p.next()
		start := p.expr()
		p.expect(lexer.Comma)
		stop := p.expr()
		var step ast.Expr
		if p.tok.Kind == lexer.Comma {
			p.next()
			step = p.expr()
		}
		p.expect(lexer.Do)
		body := p.block()
		p.expect(lexer.End)
		return &ast.NumForStmt{Name: name, Start: start, Stop: stop, Step: step, Body: body}
	}
	names := []string{name}
	for p.tok.Kind == lexer.Comma {
		p.next()
		names = append(names, p.expect(lexer.Name).Str)
	}
	p.expect(lexer.In)
	exprs := p.exprList()
	p.expect(lexer.Do)
	body := p.block()
	p.expect(lexer.End)
	return &ast.GenForStmt{Names: names, Exprs: exprs, Body: body}
}

func (p *parser) funcStmt() ast.Stmt {
	pos := p.pos()
	p.next() // function
	var target ast.Expr = &ast.NameExpr{Name: p.expect(lexer.Name).Str}
	isMethod := false
	for p.tok.Kind == lexer.Dot {
		p.next()
		field := p.expect(lexer.Name).Str
		target = &ast.IndexExpr{Obj: target, Key: &ast.StringExpr{Value: field}}
	}
	if p.tok.Kind == lexer.Colon {
		p.next()
		field := p.expect(lexer.Name).Str
		target = &ast.IndexExpr{Obj: target, Key: &ast.StringExpr{Value: field}}
		isMethod = true
	}
	fn := p.funcBody(pos, isMethod)
	return &ast.FuncStmt{Target: target, Func: fn}
}

func (p *parser) localStmt() ast.Stmt {
	p.next() // local
	if p.tok.Kind == lexer.Function {
		p.next()
		name := p.expect(lexer.Name).Str
		fn := p.funcBody(p.pos(), false)
		return &ast.LocalFuncStmt{Name: name, Func: fn}
	}
	var names []string
	var attribs []ast.Attrib
	readOne := func() {
		names = append(names, p.expect(lexer.Name).Str)
		attrib := ast.AttribNone
		if p.tok.Kind == lexer.Lt {
			p.next()
			a := p.expect(lexer.Name).Str
			switch a {
			case "const":
				attrib = ast.AttribConst
			case "close":
				attrib = ast.AttribClose
			default:
				p.errf("unknown attribute '%s'", a)
			}
			p.expect(lexer.Gt)
		}
		attribs = append(attribs, attrib)
	}
	readOne()
	for p.tok.Kind == lexer.Comma {
		p.next()
		readOne()
	}
	var exprs []ast.Expr
	if p.tok.Kind == lexer.Assign {
		p.next()
		exprs = p.exprList()
	}
	return &ast.LocalStmt{Names: names, Attribs: attribs, Exprs: exprs}
}

func (p *parser) returnStmt() ast.Stmt {
	p.next() // return
	var exprs []ast.Expr
	if !blockEnds(p.tok.Kind) && p.tok.Kind != lexer.Semi {
		exprs = p.exprList()
	}
	if p.tok.Kind == lexer.Semi {
		p.next()
	}
	return &ast.ReturnStmt{Exprs: exprs}
}

// exprStatement parses either an assignment or a bare call statement,
// since both start with a prefix expression.
func (p *parser) exprStatement(pos diag.Position) ast.Stmt {
	first := p.suffixedExpr()
	if p.tok.Kind == lexer.Assign || p.tok.Kind == lexer.Comma {
		targets := []ast.Expr{first}
		for p.tok.Kind == lexer.Comma {
			p.next()
			targets = append(targets, p.suffixedExpr())
		}
		p.expect(lexer.Assign)
		exprs := p.exprList()
		for _, t := range targets {
			switch t.(type) {
			case *ast.NameExpr, *ast.IndexExpr:
			default:
				p.errf("syntax error: cannot assign to this expression")
			}
		}
		return &ast.AssignStmt{Targets: targets, Exprs: exprs}
	}
	call, ok := first.(*ast.CallExpr)
	if !ok {
		p.errf("syntax error near '%s'", tokText(p.tok))
		p.synchronize()
		return nil
	}
	return &ast.ExprStmt{Call: call}
}

// --- expressions ----------------------------------------------------------

func (p *parser) exprList() []ast.Expr {
	list := []ast.Expr{p.expr()}
	for p.tok.Kind == lexer.Comma {
		p.next()
		list = append(list, p.expr())
	}
	return list
}

type binPrec struct {
	left, right int
	op          ast.BinOp
}

var binOps = map[lexer.Kind]binPrec{
	lexer.Or:      {1, 1, ast.OpOr},
	lexer.And:     {2, 2, ast.OpAnd},
	lexer.Lt:      {3, 3, ast.OpLT},
	lexer.Gt:      {3, 3, ast.OpGT},
	lexer.Le:      {3, 3, ast.OpLE},
	lexer.Ge:      {3, 3, ast.OpGE},
	lexer.Ne:      {3, 3, ast.OpNE},
	lexer.Eq:      {3, 3, ast.OpEQ},
	lexer.Pipe:    {4, 4, ast.OpBOr},
	lexer.Tilde:   {5, 5, ast.OpBXor},
	lexer.Amp:     {6, 6, ast.OpBAnd},
	lexer.Shl:     {7, 7, ast.OpShl},
	lexer.Shr:     {7, 7, ast.OpShr},
	lexer.Concat:  {9, 8, ast.OpConcat}, // right-assoc: right < left
	lexer.Plus:    {10, 10, ast.OpAdd},
	lexer.Minus:   {10, 10, ast.OpSub},
	lexer.Star:    {11, 11, ast.OpMul},
	lexer.Slash:   {11, 11, ast.OpDiv},
	lexer.DSlash:  {11, 11, ast.OpIDiv},
	lexer.Percent: {11, 11, ast.OpMod},
	lexer.Caret:   {14, 13, ast.OpPow}, // right-assoc, binds tighter than unary
}

const unaryPrec = 12

func (p *parser) expr() ast.Expr { return p.subExpr(0) }

func (p *parser) subExpr(limit int) ast.Expr {
	var left ast.Expr
	pos := p.pos()
	switch p.tok.Kind {
	case lexer.Not:
		p.next()
		left = &ast.UnaryExpr{Op: ast.OpNot, X: p.subExpr(unaryPrec)}
	case lexer.Hash:
		p.next()
		left = &ast.UnaryExpr{Op: ast.OpLen, X: p.subExpr(unaryPrec)}
	case lexer.Minus:
		p.next()
		left = &ast.UnaryExpr{Op: ast.OpUnm, X: p.subExpr(unaryPrec)}
	case lexer.Tilde:
		p.next()
		left = &ast.UnaryExpr{Op: ast.OpBNot, X: p.subExpr(unaryPrec)}
	default:
		left = p.simpleExpr()
	}
	if ue, ok := left.(*ast.UnaryExpr); ok {
		ue.P = pos
	}
	for {
		prec, ok := binOps[p.tok.Kind]
		if !ok || prec.left <= limit {
			return left
		}
		op := prec.op
		opPos := p.pos()
		p.next()
		right := p.subExpr(prec.right)
		left = &ast.BinaryExpr{Op: op, X: left, Y: right}
		if be, ok := left.(*ast.BinaryExpr); ok {
			be.P = opPos
		}
	}
}

func (p *parser) simpleExpr() ast.Expr {
	pos := p.pos()
	switch p.tok.Kind {
	case lexer.Int:
		v := p.tok.Int
		p.next()
		return &ast.IntExpr{Value: v, Base: ast.Base{P: pos}}
	case lexer.Float:
		v := p.tok.Float
		p.next()
		return &ast.FloatExpr{Value: v, Base: ast.Base{P: pos}}
	case lexer.String:
		v := p.tok.Str
		p.next()
		return &ast.StringExpr{Value: v, Base: ast.Base{P: pos}}
	case lexer.Nil:
		p.next()
		return &ast.NilExpr{Base: ast.Base{P: pos}}
	case lexer.True:
		p.next()
		return &ast.TrueExpr{Base: ast.Base{P: pos}}
	case lexer.False:
		p.next()
		return &ast.FalseExpr{Base: ast.Base{P: pos}}
	case lexer.Ellipsis:
		p.next()
		return &ast.Vararg{Base: ast.Base{P: pos}}
	case lexer.Function:
		p.next()
		return p.funcBody(pos, false)
	case lexer.LBrace:
		return p.tableExpr()
	default:
		return p.suffixedExpr()
	}
}



func (p *parser) primaryExpr() ast.Expr {
	pos := p.pos()
	switch p.tok.Kind {
	case lexer.Name:
		name := p.tok.Str
		p.next()
		return &ast.NameExpr{Name: name, Base: ast.Base{P: pos}}
	case lexer.LParen:
		p.next()
		x := p.expr()
		p.expect(lexer.RParen)
		return &ast.ParenExpr{X: x, Base: ast.Base{P: pos}}
	default:
		p.errf("unexpected symbol near '%s'", tokText(p.tok))
		p.synchronize()
		return &ast.NilExpr{Base: ast.Base{P: pos}}
	}
}



func (p *parser) suffixedExpr() ast.Expr {
	e := p.primaryExpr()
	for {
		pos := p.pos()
		switch p.tok.Kind {
		case lexer.Dot:
			p.next()
			field := p.expect(lexer.Name).Str
			e = &ast.IndexExpr{Obj: e, Key: &ast.StringExpr{Value: field}, Base: ast.Base{P: pos}}
		case lexer.LBracket:
			p.next()
			k := p.expr()
			p.expect(lexer.RBracket)
			e = &ast.IndexExpr{Obj: e, Key: k, Base: ast.Base{P: pos}}
		case lexer.Colon:
			p.next()
			method := p.expect(lexer.Name).Str
			args := p.callArgs()
			e = &ast.CallExpr{Fn: e, Method: method, Args: args, Base: ast.Base{P: pos}}
		case lexer.LParen, lexer.String, lexer.LBrace:
			args := p.callArgs()
			e = &ast.CallExpr{Fn: e, Args: args, Base: ast.Base{P: pos}}
		default:
			return e
		}
	}
}

// callArgs parses (a, b), a single table constructor, or a single
// string literal, per spec §4.1.
func (p *parser) callArgs() []ast.Expr {
	switch p.tok.Kind {
	case lexer.LParen:
		p.next()
		var args []ast.Expr
		if p.tok.Kind != lexer.RParen {
			args = p.exprList()
		}
		p.expect(lexer.RParen)
		return args
	case lexer.LBrace:
		return []ast.Expr{p.tableExpr()}
	case lexer.String:
		pos := p.pos()
		s := p.tok.Str
		p.next()
		return []ast.Expr{&ast.StringExpr{Value: s, Base: ast.Base{P: pos}}}
	default:
		p.errf("function arguments expected")
		return nil
	}
}

func (p *parser) funcBody(pos diag.Position, isMethod bool) *ast.FuncExpr {
	p.expect(lexer.LParen)
	var params []ast.Param
	if isMethod {
		params = append(params, ast.Param{Name: "self"})
	}
	isVararg := false
	if p.tok.Kind != lexer.RParen {
		for {
			if p.tok.Kind == lexer.Ellipsis {
				p.next()
				isVararg = true
				break
			}
			name := p.expect(lexer.Name).Str
			params = append(params, ast.Param{Name: name})
			if p.tok.Kind != lexer.Comma {
				break
			}
			p.next()
		}
	}
	p.expect(lexer.RParen)
	body := p.block()
	p.expect(lexer.End)
	return &ast.FuncExpr{Params: params, IsVararg: isVararg, Body: body, Base: ast.Base{P: pos}}
}

func (p *parser) tableExpr() *ast.TableExpr {
	pos := p.pos()
	p.expect(lexer.LBrace)
	t := &ast.TableExpr{Base: ast.Base{P: pos}}
	for p.tok.Kind != lexer.RBrace {
		switch {
		case p.tok.Kind == lexer.LBracket:
			p.next()
			k := p.expr()
			p.expect(lexer.RBracket)
			p.expect(lexer.Assign)
			v := p.expr()
			t.Fields = append(t.Fields, ast.Field{Key: k, Value: v})
		case p.tok.Kind == lexer.Name && p.peek().Kind == lexer.Assign:
			k := &ast.StringExpr{Value: p.tok.Str, Base: ast.Base{P: p.pos()}}
			p.next()
			p.next()
			v := p.expr()
			t.Fields = append(t.Fields, ast.Field{Key: k, Value: v})
		default:
			v := p.expr()
			t.Fields = append(t.Fields, ast.Field{Value: v})
		}
		if p.tok.Kind == lexer.Comma || p.tok.Kind == lexer.Semi {
			p.next()
		} else {
			break
		}
	}
	p.expect(lexer.RBrace)
	return t
}
