// Package ast defines the compiler's abstract syntax tree.
//
// Following spec.md §9's explicit design note ("represent as a tagged
// variant with per-kind payload rather than a single wide record with
// optional fields"), each node kind is its own concrete Go type rather than
// one struct with every field the original union ever needed.
package ast

import (
	"hmny.dev/uoocc/pkg/ctype"
	"hmny.dev/uoocc/pkg/symtab"
	"hmny.dev/uoocc/pkg/token"
)

// Kind names every AST node kind declared by
// _examples/original_source/uoocc.h, including the ones this compiler's
// core never constructs (see SPEC_FULL.md §6). Only the kinds with a
// concrete Go type below are ever produced by pkg/parser.
type Kind int

const (
	KindIntLit Kind = iota
	KindVarExpr
	KindBinaryExpr
	KindUnaryExpr
	KindAssignExpr
	KindCallExpr
	KindDeclaration
	KindFuncDecl
	KindCompoundStmt
	KindIfStmt
	KindWhileStmt
	KindForStmt
	KindExprStmt

	// Declared by uoocc.h, not constructed by this compiler's parser
	// (Non-goals: strings, bitwise/logical ops, sizeof, struct/enum member
	// access, return/break/continue).
	KindStringLit
	KindBitNot
	KindLogicalNot
	KindLShift
	KindRShift
	KindBitAnd
	KindBitXor
	KindBitOr
	KindLogicalAnd
	KindLogicalOr
	KindSizeof
	KindDotExpr
	KindArrowExpr
	KindEnumDecl
	KindGlobalDeclaration
	KindReturnStmt
	KindBreakStmt
	KindContinueStmt
)

// Node is the interface every AST node satisfies: it remembers the token it
// was built from, for diagnostics.
type Node interface {
	Tok() token.Token
}

// Expr is an expression node: it additionally carries a CType, filled in by
// pkg/analyzer (nil until then).
type Expr interface {
	Node
	CType() *ctype.Type
	SetCType(*ctype.Type)
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// exprBase is embedded by every concrete Expr type to provide the Token and
// CType bookkeeping without repeating it per kind.
type exprBase struct {
	Token token.Token
	Type  *ctype.Type
}

func (e *exprBase) Tok() token.Token      { return e.Token }
func (e *exprBase) CType() *ctype.Type    { return e.Type }
func (e *exprBase) SetCType(t *ctype.Type) { e.Type = t }
func (*exprBase) exprNode()               {}

// stmtBase is embedded by every concrete Stmt type.
type stmtBase struct {
	Token token.Token
}

func (s *stmtBase) Tok() token.Token { return s.Token }
func (*stmtBase) stmtNode()          {}

// ----------------------------------------------------------------------------
// Expressions

// IntLit is an integer literal.
type IntLit struct {
	exprBase
	Value int
}

// NewIntLit builds an IntLit from its originating token.
func NewIntLit(tok token.Token, value int) *IntLit {
	return &IntLit{exprBase: exprBase{Token: tok}, Value: value}
}

// VarExpr resolves to a variable's SymbolTableEntry during analysis.
type VarExpr struct {
	exprBase
	Ident string
	Entry *symtab.Entry // set by pkg/analyzer
}

// NewVarExpr builds a VarExpr from its originating token.
func NewVarExpr(tok token.Token, ident string) *VarExpr {
	return &VarExpr{exprBase: exprBase{Token: tok}, Ident: ident}
}

// BinaryOp enumerates the implemented binary operators.
type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Lt
	Le
	Eq
	Ne
)

// BinaryExpr combines two expressions, e.g. a+b, a<b.
type BinaryExpr struct {
	exprBase
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// NewBinaryExpr builds a BinaryExpr from its originating token.
func NewBinaryExpr(tok token.Token, op BinaryOp, left, right Expr) *BinaryExpr {
	return &BinaryExpr{exprBase: exprBase{Token: tok}, Op: op, Left: left, Right: right}
}

// UnaryOp enumerates the implemented unary/prefix-postfix operators.
type UnaryOp int

const (
	PreInc UnaryOp = iota
	PreDec
	PostInc
	PostDec
	Ref
	Deref
)

// UnaryExpr applies a unary operator to Operand.
type UnaryExpr struct {
	exprBase
	Op      UnaryOp
	Operand Expr
}

// NewUnaryExpr builds a UnaryExpr from its originating token.
func NewUnaryExpr(tok token.Token, op UnaryOp, operand Expr) *UnaryExpr {
	return &UnaryExpr{exprBase: exprBase{Token: tok}, Op: op, Operand: operand}
}

// AssignExpr assigns Right to the lvalue Left (a Var or a Deref).
type AssignExpr struct {
	exprBase
	Left  Expr
	Right Expr
}

// NewAssignExpr builds an AssignExpr from its originating token.
func NewAssignExpr(tok token.Token, left, right Expr) *AssignExpr {
	return &AssignExpr{exprBase: exprBase{Token: tok}, Left: left, Right: right}
}

// CallExpr calls Ident with Args, evaluated right-to-left (spec §4.2/§4.3).
type CallExpr struct {
	exprBase
	Ident string
	Args  []Expr
}

// NewCallExpr builds a CallExpr from its originating token.
func NewCallExpr(tok token.Token, ident string, args []Expr) *CallExpr {
	return &CallExpr{exprBase: exprBase{Token: tok}, Ident: ident, Args: args}
}

// ----------------------------------------------------------------------------
// Statements

// Declaration introduces a local variable (spec §4.1's declaration rule);
// Type is the (possibly pointer/array) declared type.
type Declaration struct {
	stmtBase
	Ident string
	Type  *ctype.Type
}

// NewDeclaration builds a Declaration from its originating token.
func NewDeclaration(tok token.Token, ident string, typ *ctype.Type) *Declaration {
	return &Declaration{stmtBase: stmtBase{Token: tok}, Ident: ident, Type: typ}
}

// Param is a single function parameter, syntactically identical to a
// Declaration but never itself a statement.
type Param struct {
	Ident string
	Type  *ctype.Type
	Token token.Token
}

// FuncDecl is a top-level function definition. SymbolTable and FrameSize are
// filled in by pkg/analyzer.
type FuncDecl struct {
	stmtBase
	Ident       string
	Params      []Param
	Body        *CompoundStmt
	SymbolTable *symtab.Table // set by pkg/analyzer
	FrameSize   int
}

// NewFuncDecl builds a FuncDecl from its originating token.
func NewFuncDecl(tok token.Token, ident string, params []Param, body *CompoundStmt) *FuncDecl {
	return &FuncDecl{stmtBase: stmtBase{Token: tok}, Ident: ident, Params: params, Body: body}
}

// CompoundStmt is a brace-delimited list of statements; spec.md has no block
// scoping, so it does not open a new symbol table.
type CompoundStmt struct {
	stmtBase
	Statements []Stmt
}

// NewCompoundStmt builds a CompoundStmt from its originating token.
func NewCompoundStmt(tok token.Token, statements []Stmt) *CompoundStmt {
	return &CompoundStmt{stmtBase: stmtBase{Token: tok}, Statements: statements}
}

// IfStmt is a conditional with an optional else branch.
type IfStmt struct {
	stmtBase
	Cond Expr
	Then Stmt
	Else Stmt // nil if there is no else branch
}

// NewIfStmt builds an IfStmt from its originating token.
func NewIfStmt(tok token.Token, cond Expr, then, els Stmt) *IfStmt {
	return &IfStmt{stmtBase: stmtBase{Token: tok}, Cond: cond, Then: then, Else: els}
}

// WhileStmt is a pre-tested loop.
type WhileStmt struct {
	stmtBase
	Cond Expr
	Body Stmt
}

// NewWhileStmt builds a WhileStmt from its originating token.
func NewWhileStmt(tok token.Token, cond Expr, body Stmt) *WhileStmt {
	return &WhileStmt{stmtBase: stmtBase{Token: tok}, Cond: cond, Body: body}
}

// ForStmt is a C-style three-clause loop.
type ForStmt struct {
	stmtBase
	Init Expr
	Cond Expr
	Step Expr
	Body Stmt
}

// NewForStmt builds a ForStmt from its originating token.
func NewForStmt(tok token.Token, init, cond, step Expr, body Stmt) *ForStmt {
	return &ForStmt{stmtBase: stmtBase{Token: tok}, Init: init, Cond: cond, Step: step, Body: body}
}

// ExprStmt is an expression evaluated for its side effect (and, for the last
// statement of a function, its value — see spec.md §9 item 1).
type ExprStmt struct {
	stmtBase
	X Expr
}

// NewExprStmt builds an ExprStmt from its originating token.
func NewExprStmt(tok token.Token, x Expr) *ExprStmt {
	return &ExprStmt{stmtBase: stmtBase{Token: tok}, X: x}
}
