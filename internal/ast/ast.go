// Package ast defines the immutable syntax tree produced by the parser:
// expressions, statements, and function bodies, with optional source
// positions carried on variables and calls for runtime diagnostics.
package ast

import "github.com/embeddedlua/luacore/internal/diag"

// Attrib is a local variable attribute: none, const or close (§3.5).
type Attrib int

const (
	AttribNone Attrib = iota
	AttribConst
	AttribClose
)

func (a Attrib) String() string {
	switch a {
	case AttribConst:
		return "const"
	case AttribClose:
		return "close"
	default:
		return ""
	}
}

// BinOp and UnOp enumerate operator kinds. Values match precedence tiers
// documented in spec §4.1 (lowest to highest).
type BinOp int

const (
	OpOr BinOp = iota
	OpAnd
	OpLT
	OpGT
	OpLE
	OpGE
	OpNE
	OpEQ
	OpBOr
	OpBXor
	OpBAnd
	OpShl
	OpShr
	OpConcat
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpIDiv
	OpMod
	OpPow
)

type UnOp int

const (
	OpNot UnOp = iota
	OpLen
	OpUnm
	OpBNot
)

// Node is any AST node; Pos may be the zero Position when the node
// carries no location (only variables and calls are guaranteed one).
type Node interface {
	Pos() diag.Position
}

// Expr is any expression node.
type Expr interface {
	Node
	exprNode()
}

type Base struct{ P diag.Position }

func (b Base) Pos() diag.Position { return b.P }

// NilExpr, TrueExpr, FalseExpr, Vararg are the constant/special atoms.
type (
	NilExpr   struct{ Base }
	TrueExpr  struct{ Base }
	FalseExpr struct{ Base }
	Vararg    struct{ Base }
)

func (NilExpr) exprNode()   {}
func (TrueExpr) exprNode()  {}
func (FalseExpr) exprNode() {}
func (Vararg) exprNode()    {}

// IntExpr and FloatExpr are numeric literals.
type IntExpr struct {
	Base
	Value int64
}

type FloatExpr struct {
	Base
	Value float64
}

func (IntExpr) exprNode()   {}
func (FloatExpr) exprNode() {}

// StringExpr is a string literal.
type StringExpr struct {
	Base
	Value string
}

func (StringExpr) exprNode() {}

// NameExpr is a variable reference, resolved at evaluation time against
// the lexical scope chain and, on a miss, against the interpreter's
// globals table (there is no _ENV binding).
type NameExpr struct {
	Base
	Name string
}

func (NameExpr) exprNode() {}

// IndexExpr is t[k]; field access t.k parses to IndexExpr with a
// StringExpr key.
type IndexExpr struct {
	Base
	Obj, Key Expr
}

func (IndexExpr) exprNode() {}

// ParenExpr wraps an expression to force truncation to a single value.
type ParenExpr struct {
	Base
	X Expr
}

func (ParenExpr) exprNode() {}

// UnaryExpr and BinaryExpr are operator applications.
type UnaryExpr struct {
	Base
	Op UnOp
	X  Expr
}

type BinaryExpr struct {
	Base
	Op   BinOp
	X, Y Expr
}

func (UnaryExpr) exprNode()  {}
func (BinaryExpr) exprNode() {}

// Field is one entry of a table constructor: Key == nil means positional.
type Field struct {
	Key   Expr
	Value Expr
}

// TableExpr is a table constructor.
type TableExpr struct {
	Base
	Fields []Field
}

func (TableExpr) exprNode() {}

// Param is one parameter of a function definition.
type Param struct {
	Name   string
	Attrib Attrib
}

// FuncExpr is a function definition: parameter list, vararg flag, body.
type FuncExpr struct {
	Base
	Params   []Param
	IsVararg bool
	Body     *Block
	Name     string // for diagnostics only
}

func (FuncExpr) exprNode() {}

// CallExpr is a function or method call. Method != "" marks a method
// call obj:Method(Args), where Fn is the receiver (desugared at eval
// time to prepend Fn's value to Args and look up Method on it).
type CallExpr struct {
	Base
	Fn     Expr
	Method string
	Args   []Expr
}

func (CallExpr) exprNode() {}

// Stmt is any statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Block is a sequence of statements forming one lexical scope.
type Block struct {
	Base
	Stmts []Stmt
}

func (b *Block) stmtNode() {}

type (
	// EmptyStmt is `;`.
	EmptyStmt struct{ Base }

	// ExprStmt is a function call used as a statement.
	ExprStmt struct {
		Base
		Call *CallExpr
	}

	// LocalStmt is `local n1 <a1>, n2 <a2> = e1, e2`.
	LocalStmt struct {
		Base
		Names   []string
		Attribs []Attrib
		Exprs   []Expr
	}

	// AssignStmt is `t1, t2 = e1, e2`.
	AssignStmt struct {
		Base
		Targets []Expr
		Exprs   []Expr
	}

	DoStmt struct {
		Base
		Body *Block
	}

	WhileStmt struct {
		Base
		Cond Expr
		Body *Block
	}

	RepeatStmt struct {
		Base
		Body *Block
		Cond Expr
	}

	// IfStmt models one `if`/`elseif` arm; Else is either another
	// *IfStmt (an elseif) or a *Block (a trailing else), or nil.
	IfStmt struct {
		Base
		Cond Expr
		Then *Block
		Else Stmt
	}

	NumForStmt struct {
		Base
		Name              string
		Start, Stop, Step Expr
		Body              *Block
	}

	GenForStmt struct {
		Base
		Names []string
		Exprs []Expr
		Body  *Block
	}

	// FuncStmt is a non-local function definition, possibly dotted
	// (a.b.c) and possibly a method (a.b:c, which implicitly adds a
	// leading "self" parameter handled by the parser).
	FuncStmt struct {
		Base
		Target Expr
		Func   *FuncExpr
	}

	LocalFuncStmt struct {
		Base
		Name string
		Func *FuncExpr
	}

	ReturnStmt struct {
		Base
		Exprs []Expr
	}

	BreakStmt struct{ Base }

	GotoStmt struct {
		Base
		Label string
	}

	LabelStmt struct {
		Base
		Name string
	}
)

func (EmptyStmt) stmtNode()     {}
func (ExprStmt) stmtNode()      {}
func (LocalStmt) stmtNode()     {}
func (AssignStmt) stmtNode()    {}
func (DoStmt) stmtNode()        {}
func (WhileStmt) stmtNode()     {}
func (RepeatStmt) stmtNode()    {}
func (IfStmt) stmtNode()        {}
func (NumForStmt) stmtNode()    {}
func (GenForStmt) stmtNode()    {}
func (FuncStmt) stmtNode()      {}
func (LocalFuncStmt) stmtNode() {}
func (ReturnStmt) stmtNode()    {}
func (BreakStmt) stmtNode()     {}
func (GotoStmt) stmtNode()      {}
func (LabelStmt) stmtNode()     {}

// Chunk is the parsed top-level block of a compiled source unit.
type Chunk struct {
	Source string
	Body   *Block
}
