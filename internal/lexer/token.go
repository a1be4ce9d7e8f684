package lexer

import "github.com/embeddedlua/luacore/internal/diag"

// Kind identifies a token's lexical class.
type Kind int

const (
	EOF Kind = iota
	Name
	Int
	Float
	String

	// keywords
	And
	Break
	Do
	Else
	Elseif
	End
	False
	For
	Function
	Goto
	If
	In
	Local
	Nil
	Not
	Or
	Repeat
	Return
	Then
	True
	Until
	While

	// symbols
	Plus
	Minus
	Star
	Slash
	DSlash // //
	Percent
	Caret
	Hash
	Amp
	Tilde
	Pipe
	Shl // <<
	Shr // >>
	Eq  // ==
	Ne  // ~=
	Le
	Ge
	Lt
	Gt
	Assign // =
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	DColon // ::
	Semi
	Colon
	Comma
	Dot
	Concat  // ..
	Ellipsis // ...
)

var keywords = map[string]Kind{
	"and": And, "break": Break, "do": Do, "else": Else, "elseif": Elseif,
	"end": End, "false": False, "for": For, "function": Function, "goto": Goto,
	"if": If, "in": In, "local": Local, "nil": Nil, "not": Not, "or": Or,
	"repeat": Repeat, "return": Return, "then": Then, "true": True,
	"until": Until, "while": While,
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "?"
}

var kindNames = map[Kind]string{
	EOF: "<eof>", Name: "<name>", Int: "<integer>", Float: "<number>", String: "<string>",
	And: "and", Break: "break", Do: "do", Else: "else", Elseif: "elseif", End: "end",
	False: "false", For: "for", Function: "function", Goto: "goto", If: "if", In: "in",
	Local: "local", Nil: "nil", Not: "not", Or: "or", Repeat: "repeat", Return: "return",
	Then: "then", True: "true", Until: "until", While: "while",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", DSlash: "//", Percent: "%", Caret: "^",
	Hash: "#", Amp: "&", Tilde: "~", Pipe: "|", Shl: "<<", Shr: ">>", Eq: "==", Ne: "~=",
	Le: "<=", Ge: ">=", Lt: "<", Gt: ">", Assign: "=", LParen: "(", RParen: ")",
	LBrace: "{", RBrace: "}", LBracket: "[", RBracket: "]", DColon: "::", Semi: ";",
	Colon: ":", Comma: ",", Dot: ".", Concat: "..", Ellipsis: "...",
}

// Token is one lexical token with its source span and literal value.
type Token struct {
	Kind  Kind
	Str   string // Name, String literal text (decoded), or symbol spelling
	Int   int64
	Float float64
	Pos   diag.Position
}
