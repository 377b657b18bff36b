// Package analyzer implements the compiler's semantic analysis pass: name
// resolution, frame layout, type synthesis and array-to-pointer decay
// (spec.md §4.2). Mutable state (the current function's symbol table and
// the frame-offset accumulator) lives on the Analyzer struct, not package
// globals, per spec.md §9's explicit preference for explicit state objects
// over globals.
//
// The dispatch shape — one Handle<Kind> method per node kind, driven by a
// type switch — mirrors a typechecker walking a tagged-variant AST.
package analyzer

import (
	"fmt"

	"hmny.dev/uoocc/pkg/ast"
	"hmny.dev/uoocc/pkg/ctype"
	"hmny.dev/uoocc/pkg/diagnostics"
	"hmny.dev/uoocc/pkg/symtab"
)

const maxParams = 6

// Analyzer holds the state threaded through one analysis pass: the symbol
// table of the function currently being analyzed and its running frame
// offset (spec.md §4.2 and §5's "current-function symbol-table pointer,
// the frame-offset accumulator").
type Analyzer struct {
	table  *symtab.Table
	offset int
}

// New returns an Analyzer ready to analyze a program.
func New() *Analyzer { return &Analyzer{} }

// AnalyzeExpr analyzes expr against an already-built table, bypassing the
// per-function bootstrap in Analyze. pkg/codegen uses this to re-analyze
// the Assign(var, Add|Sub(var, Int(1))) subtree it synthesizes for pointer
// ++/-- (spec.md §4.3, §9 item 5), so the synthesized Add/Sub gets the same
// pointer scaling a source-level expression would.
func AnalyzeExpr(table *symtab.Table, expr ast.Expr) (ast.Expr, error) {
	a := &Analyzer{table: table}
	return a.analyzeExpr(expr)
}

// Analyze resolves names, computes frame layout and synthesizes types for
// every function in decls, in source order, mutating their AST nodes and
// writing back FuncDecl.SymbolTable/FrameSize.
func (a *Analyzer) Analyze(decls []*ast.FuncDecl) error {
	for _, decl := range decls {
		if err := a.analyzeFuncDecl(decl); err != nil {
			return err
		}
	}
	return nil
}

// allocate grows the frame-offset accumulator for a value of typ and
// returns its offset (spec.md §4.2's frame layout algorithm): 4-byte values
// simply add 4; 8-byte-or-larger values round the accumulator up to the
// next multiple of 8 first.
func (a *Analyzer) allocate(typ *ctype.Type) int {
	size := typ.Size()
	if size == 4 {
		a.offset += 4
		return a.offset
	}
	if a.offset%8 != 0 {
		a.offset += 8 - a.offset%8
	}
	a.offset += size
	return a.offset
}

func (a *Analyzer) analyzeFuncDecl(decl *ast.FuncDecl) error {
	if len(decl.Params) > maxParams {
		return diagnostics.At(decl.Tok(), "too many arguments")
	}

	a.table = symtab.New()
	a.offset = 0

	for _, param := range decl.Params {
		offset := a.allocate(param.Type)
		if err := a.table.Insert(param.Ident, symtab.Entry{Type: param.Type, Offset: offset}); err != nil {
			return diagnostics.At(param.Token, err.Error())
		}
	}

	if err := a.HandleCompoundStmt(decl.Body); err != nil {
		return err
	}

	decl.SymbolTable = a.table
	decl.FrameSize = a.offset
	return nil
}

// ----------------------------------------------------------------------------
// Statements

func (a *Analyzer) analyzeStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.Declaration:
		return a.HandleDeclaration(s)
	case *ast.CompoundStmt:
		return a.HandleCompoundStmt(s)
	case *ast.IfStmt:
		return a.HandleIfStmt(s)
	case *ast.WhileStmt:
		return a.HandleWhileStmt(s)
	case *ast.ForStmt:
		return a.HandleForStmt(s)
	case *ast.ExprStmt:
		return a.HandleExprStmt(s)
	default:
		return diagnostics.At(stmt.Tok(), fmt.Sprintf("unsupported statement kind %T", stmt))
	}
}

// HandleDeclaration installs ident in the current scope at the next frame
// offset. A name already present is "redefinition of 'X'".
func (a *Analyzer) HandleDeclaration(s *ast.Declaration) error {
	offset := a.allocate(s.Type)
	if err := a.table.Insert(s.Ident, symtab.Entry{Type: s.Type, Offset: offset}); err != nil {
		return diagnostics.At(s.Tok(), err.Error())
	}
	return nil
}

// HandleCompoundStmt analyzes each statement in source order. spec.md has
// no block scoping, so this does not push a new symbol table.
func (a *Analyzer) HandleCompoundStmt(s *ast.CompoundStmt) error {
	for _, stmt := range s.Statements {
		if err := a.analyzeStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

// HandleIfStmt analyzes cond, then, and (if present) else.
func (a *Analyzer) HandleIfStmt(s *ast.IfStmt) error {
	cond, err := a.analyzeExpr(s.Cond)
	if err != nil {
		return err
	}
	s.Cond = cond

	if err := a.analyzeStmt(s.Then); err != nil {
		return err
	}
	if s.Else != nil {
		if err := a.analyzeStmt(s.Else); err != nil {
			return err
		}
	}
	return nil
}

// HandleWhileStmt analyzes cond and body.
func (a *Analyzer) HandleWhileStmt(s *ast.WhileStmt) error {
	return a.analyzeCondAndBody(s.Cond, func(e ast.Expr) { s.Cond = e }, s.Body)
}

// HandleForStmt analyzes init and step first, then falls into the same
// cond/body analysis While uses (spec.md §4.2, preserved per §9 item 4:
// "For analyzes init, step, then (falling into the While case) cond and
// statement").
func (a *Analyzer) HandleForStmt(s *ast.ForStmt) error {
	init, err := a.analyzeExpr(s.Init)
	if err != nil {
		return err
	}
	s.Init = init

	step, err := a.analyzeExpr(s.Step)
	if err != nil {
		return err
	}
	s.Step = step

	return a.analyzeCondAndBody(s.Cond, func(e ast.Expr) { s.Cond = e }, s.Body)
}

func (a *Analyzer) analyzeCondAndBody(cond ast.Expr, setCond func(ast.Expr), body ast.Stmt) error {
	analyzed, err := a.analyzeExpr(cond)
	if err != nil {
		return err
	}
	setCond(analyzed)
	return a.analyzeStmt(body)
}

// HandleExprStmt analyzes the wrapped expression for its side effect (and,
// for the last statement of a function, its value — spec.md §9 item 1).
func (a *Analyzer) HandleExprStmt(s *ast.ExprStmt) error {
	x, err := a.analyzeExpr(s.X)
	if err != nil {
		return err
	}
	s.X = x
	return nil
}

// ----------------------------------------------------------------------------
// Expressions

func (a *Analyzer) analyzeExpr(expr ast.Expr) (ast.Expr, error) {
	switch e := expr.(type) {
	case *ast.IntLit:
		return e, a.HandleIntLit(e)
	case *ast.VarExpr:
		return e, a.HandleVarExpr(e)
	case *ast.BinaryExpr:
		return e, a.HandleBinaryExpr(e)
	case *ast.UnaryExpr:
		return e, a.HandleUnaryExpr(e)
	case *ast.AssignExpr:
		return e, a.HandleAssignExpr(e)
	case *ast.CallExpr:
		return e, a.HandleCallExpr(e)
	default:
		return nil, diagnostics.At(expr.Tok(), fmt.Sprintf("unsupported expression kind %T", expr))
	}
}

// analyzeOperand analyzes expr and applies array-to-pointer decay to the
// result — the helper used at every operand position spec.md §4.2 lists
// (Add/Sub, Pre/PostInc/Dec, Deref, both sides of Assign).
func (a *Analyzer) analyzeOperand(expr ast.Expr) (ast.Expr, error) {
	analyzed, err := a.analyzeExpr(expr)
	if err != nil {
		return nil, err
	}
	return decay(analyzed), nil
}

// decay replaces an array-typed node with a Ref wrapper typed Ptr(T),
// matching spec.md §4.2's array-to-pointer decay rule exactly (applying it
// twice is a no-op: the wrapper's own type is Pointer, not Array).
func decay(expr ast.Expr) ast.Expr {
	t := expr.CType()
	if t == nil || t.Kind != ctype.Array {
		return expr
	}
	ref := ast.NewUnaryExpr(expr.Tok(), ast.Ref, expr)
	ref.SetCType(t.Decay())
	return ref
}

// HandleIntLit types a literal Int.
func (a *Analyzer) HandleIntLit(e *ast.IntLit) error {
	e.SetCType(ctype.NewInt())
	return nil
}

// HandleVarExpr resolves Ident against the current scope. An unresolved
// name is "use of undeclared identifier 'X'".
func (a *Analyzer) HandleVarExpr(e *ast.VarExpr) error {
	entry, err := a.table.Lookup(e.Ident)
	if err != nil {
		return diagnostics.At(e.Tok(), err.Error())
	}
	e.Entry = &entry
	e.SetCType(entry.Type)
	return nil
}

// HandleBinaryExpr synthesizes the type of a binary expression per
// spec.md §4.2's type synthesis table.
func (a *Analyzer) HandleBinaryExpr(e *ast.BinaryExpr) error {
	left, err := a.analyzeOperand(e.Left)
	if err != nil {
		return err
	}
	right, err := a.analyzeOperand(e.Right)
	if err != nil {
		return err
	}
	e.Left, e.Right = left, right

	lt, rt := left.CType(), right.CType()
	switch e.Op {
	case ast.Add:
		switch {
		case lt.Kind == ctype.Int && rt.Kind == ctype.Int:
			e.SetCType(ctype.NewInt())
		case lt.Kind == ctype.Pointer && rt.Kind == ctype.Pointer:
			return diagnostics.At(e.Tok(), "invalid operands to binary expression")
		case lt.Kind == ctype.Pointer:
			e.SetCType(lt)
		default:
			e.SetCType(rt)
		}
	case ast.Sub:
		switch {
		case lt.Kind == ctype.Int && rt.Kind == ctype.Int:
			e.SetCType(ctype.NewInt())
		case lt.Kind == ctype.Pointer && rt.Kind == ctype.Pointer:
			e.SetCType(ctype.NewInt())
		case lt.Kind == ctype.Pointer:
			e.SetCType(lt)
		default:
			e.SetCType(rt)
		}
	case ast.Mul, ast.Div:
		e.SetCType(lt)
	case ast.Lt, ast.Le, ast.Eq, ast.Ne:
		e.SetCType(lt)
	default:
		return diagnostics.At(e.Tok(), "unsupported binary operator")
	}
	return nil
}

// HandleUnaryExpr synthesizes the type of a unary/prefix-postfix
// expression per spec.md §4.2's type synthesis table.
func (a *Analyzer) HandleUnaryExpr(e *ast.UnaryExpr) error {
	switch e.Op {
	case ast.Ref:
		operand, err := a.analyzeExpr(e.Operand)
		if err != nil {
			return err
		}
		e.Operand = operand
		e.SetCType(ctype.NewPointer(operand.CType()))
		return nil

	case ast.Deref:
		operand, err := a.analyzeOperand(e.Operand)
		if err != nil {
			return err
		}
		e.Operand = operand
		t := operand.CType()
		if t.Kind != ctype.Pointer || t.Of == nil {
			return diagnostics.At(e.Tok(), "indirection requires pointer operand")
		}
		e.SetCType(t.Of)
		return nil

	case ast.PreInc, ast.PreDec, ast.PostInc, ast.PostDec:
		operand, err := a.analyzeOperand(e.Operand)
		if err != nil {
			return err
		}
		e.Operand = operand
		if _, ok := operand.(*ast.VarExpr); !ok {
			return diagnostics.At(e.Tok(), "expression is not assignable")
		}
		e.SetCType(operand.CType())
		return nil

	default:
		return diagnostics.At(e.Tok(), "unsupported unary operator")
	}
}

// HandleAssignExpr requires Left to be a Var or Deref and both sides to
// share a top-level type tag (spec.md §9 item 6: only the tag is compared,
// so int* to int** is accepted).
func (a *Analyzer) HandleAssignExpr(e *ast.AssignExpr) error {
	left, err := a.analyzeOperand(e.Left)
	if err != nil {
		return err
	}
	right, err := a.analyzeOperand(e.Right)
	if err != nil {
		return err
	}
	e.Left, e.Right = left, right

	switch l := left.(type) {
	case *ast.VarExpr:
	case *ast.UnaryExpr:
		if l.Op != ast.Deref {
			return diagnostics.At(e.Tok(), "expression is not assignable")
		}
	default:
		return diagnostics.At(e.Tok(), "expression is not assignable")
	}

	if !ctype.SameTag(left.CType(), right.CType()) {
		return diagnostics.At(e.Tok(), "expression is not assignable")
	}
	e.SetCType(left.CType())
	return nil
}

// HandleCallExpr analyzes arguments right-to-left (spec.md §4.2/§4.3) and
// types the call Int — this subset has no function prototypes.
func (a *Analyzer) HandleCallExpr(e *ast.CallExpr) error {
	for i := len(e.Args) - 1; i >= 0; i-- {
		analyzed, err := a.analyzeExpr(e.Args[i])
		if err != nil {
			return err
		}
		e.Args[i] = analyzed
	}
	e.SetCType(ctype.NewInt())
	return nil
}
