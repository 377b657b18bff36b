// Package codegen emits AT&T-syntax x86-64 assembly for the System V
// AMD64 ABI from an analyzed AST (spec.md §4.3). Values live on the
// machine stack: every expression pushes exactly one 8-byte result, so the
// generator is a straightforward stack machine.
//
// The dispatch shape — a translation table of sized-operand patterns plus
// one Generate<Kind> method per node kind — mirrors a CodeGenerator walking
// a tagged-variant AST.
package codegen

import (
	"fmt"
	"strings"

	"hmny.dev/uoocc/pkg/analyzer"
	"hmny.dev/uoocc/pkg/ast"
	"hmny.dev/uoocc/pkg/ctype"
	"hmny.dev/uoocc/pkg/diagnostics"
	"hmny.dev/uoocc/pkg/symtab"
)

var argRegs64 = [6]string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}
var argRegs32 = [6]string{"edi", "esi", "edx", "ecx", "r8d", "r9d"}

// Generator holds the state threaded through one emission pass: the
// output buffer, the current function's symbol table (needed to resolve
// synthesized pointer ++/-- subtrees), and the monotonically increasing
// control-flow label counter (spec.md §5: "the label sequence counter,
// monotonic for the whole program so labels are globally unique").
type Generator struct {
	out      *strings.Builder
	table    *symtab.Table
	labelSeq int
}

// New returns a Generator ready to emit a program.
func New() *Generator { return &Generator{out: &strings.Builder{}} }

// Generate emits the full program: the `.global main` directive followed
// by one label and body per function, in source order (spec.md §6.2).
func (g *Generator) Generate(decls []*ast.FuncDecl) (string, error) {
	g.out.WriteString("\t.global main\n")
	for _, decl := range decls {
		if err := g.GenerateFuncDecl(decl); err != nil {
			return "", err
		}
	}
	return g.out.String(), nil
}

func (g *Generator) emit(format string, args ...any) {
	fmt.Fprintf(g.out, "\t"+format+"\n", args...)
}

func (g *Generator) label(name string) {
	fmt.Fprintf(g.out, "%s:\n", name)
}

func (g *Generator) nextLabel() string {
	label := fmt.Sprintf(".L%d", g.labelSeq)
	g.labelSeq++
	return label
}

// scaleShift returns the shift amount pointer arithmetic scales its
// integer operand by: elements of size 4 shift by 2, everything else
// (size 8, this subset's only other size) shifts by 3 (spec.md §4.3).
func scaleShift(of *ctype.Type) int {
	if of.Size() == 4 {
		return 2
	}
	return 3
}

func alignedFrameSize(frameSize int) int {
	if frameSize%16 == 0 {
		return frameSize
	}
	return frameSize + (16 - frameSize%16)
}

// GenerateFuncDecl emits one function's label, prologue, body and epilogue
// (spec.md §4.3 "Per function").
func (g *Generator) GenerateFuncDecl(decl *ast.FuncDecl) error {
	g.table = decl.SymbolTable
	g.label(decl.Ident)
	g.emit("pushq %%rbp")
	g.emit("movq %%rsp, %%rbp")

	if aligned := alignedFrameSize(decl.FrameSize); aligned > 0 {
		g.emit("subq $%d, %%rsp", aligned)
	}

	for i, param := range decl.Params {
		entry, err := decl.SymbolTable.Lookup(param.Ident)
		if err != nil {
			return diagnostics.At(param.Token, err.Error())
		}
		if param.Type.Kind == ctype.Pointer {
			g.emit("movq %%%s, -%d(%%rbp)", argRegs64[i], entry.Offset)
		} else {
			g.emit("movl %%%s, -%d(%%rbp)", argRegs32[i], entry.Offset)
		}
	}

	if err := g.generateBlock(decl.Body.Statements, true); err != nil {
		return err
	}

	// The function's return value is the value of the last expression
	// evaluated (spec.md §9 item 1: there is no `return`); generateBlock
	// leaves that one value on the stack only when the body's last statement
	// is an expression statement. Otherwise nothing is left there, and this
	// pop loads whatever lies below the stack pointer into %rax.
	g.emit("popq %%rax")
	g.emit("movq %%rbp, %%rsp")
	g.emit("popq %%rbp")
	g.emit("ret")
	return nil
}

// ----------------------------------------------------------------------------
// Statements

// generateBlock emits each statement in order. When topLevel is true, the
// final ExprStmt's pushed value is left on the stack (it becomes the
// function's return value); every other statement's expression value is
// discarded immediately after it is pushed, keeping the stack balanced at
// each statement boundary (spec.md §8 invariant 5).
func (g *Generator) generateBlock(statements []ast.Stmt, topLevel bool) error {
	for i, stmt := range statements {
		keepValue := topLevel && i == len(statements)-1
		if err := g.generateStmt(stmt, keepValue); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) generateStmt(stmt ast.Stmt, keepValue bool) error {
	switch s := stmt.(type) {
	case *ast.Declaration:
		return nil // the frame slot is reserved by the analyzer; no code to emit
	case *ast.CompoundStmt:
		return g.generateBlock(s.Statements, false)
	case *ast.IfStmt:
		return g.GenerateIfStmt(s)
	case *ast.WhileStmt:
		return g.GenerateWhileStmt(s)
	case *ast.ForStmt:
		return g.GenerateForStmt(s)
	case *ast.ExprStmt:
		if err := g.generateExpr(s.X); err != nil {
			return err
		}
		if !keepValue {
			g.emit("popq %%rax")
		}
		return nil
	default:
		return fmt.Errorf("codegen: unsupported statement kind %T", stmt)
	}
}

// GenerateIfStmt emits the two-armed or one-armed conditional pattern
// (spec.md §4.3 "Control flow").
func (g *Generator) GenerateIfStmt(s *ast.IfStmt) error {
	if err := g.generateExpr(s.Cond); err != nil {
		return err
	}
	g.emit("popq %%rax")
	g.emit("testq %%rax, %%rax")

	if s.Else == nil {
		end := g.nextLabel()
		g.emit("jz %s", end)
		if err := g.generateStmt(s.Then, false); err != nil {
			return err
		}
		g.label(end)
		return nil
	}

	elseLabel := g.nextLabel()
	end := g.nextLabel()
	g.emit("jz %s", elseLabel)
	if err := g.generateStmt(s.Then, false); err != nil {
		return err
	}
	g.emit("jmp %s", end)
	g.label(elseLabel)
	if err := g.generateStmt(s.Else, false); err != nil {
		return err
	}
	g.label(end)
	return nil
}

// GenerateWhileStmt emits the pre-tested loop pattern.
func (g *Generator) GenerateWhileStmt(s *ast.WhileStmt) error {
	top := g.nextLabel()
	end := g.nextLabel()

	g.label(top)
	if err := g.generateExpr(s.Cond); err != nil {
		return err
	}
	g.emit("popq %%rax")
	g.emit("testq %%rax, %%rax")
	g.emit("jz %s", end)
	if err := g.generateStmt(s.Body, false); err != nil {
		return err
	}
	g.emit("jmp %s", top)
	g.label(end)
	return nil
}

// GenerateForStmt emits the three-clause loop pattern. init and step are
// bare expressions evaluated for side effect only; their pushed results are
// discarded immediately, same as a non-final ExprStmt.
func (g *Generator) GenerateForStmt(s *ast.ForStmt) error {
	if err := g.generateExpr(s.Init); err != nil {
		return err
	}
	g.emit("popq %%rax")

	top := g.nextLabel()
	end := g.nextLabel()

	g.label(top)
	if err := g.generateExpr(s.Cond); err != nil {
		return err
	}
	g.emit("popq %%rax")
	g.emit("testq %%rax, %%rax")
	g.emit("jz %s", end)
	if err := g.generateStmt(s.Body, false); err != nil {
		return err
	}
	if err := g.generateExpr(s.Step); err != nil {
		return err
	}
	g.emit("popq %%rax")
	g.emit("jmp %s", top)
	g.label(end)
	return nil
}

// ----------------------------------------------------------------------------
// Expressions

func (g *Generator) generateExpr(expr ast.Expr) error {
	switch e := expr.(type) {
	case *ast.IntLit:
		return g.GenerateIntLit(e)
	case *ast.VarExpr:
		return g.GenerateVarExpr(e)
	case *ast.BinaryExpr:
		return g.GenerateBinaryExpr(e)
	case *ast.UnaryExpr:
		return g.GenerateUnaryExpr(e)
	case *ast.AssignExpr:
		return g.GenerateAssignExpr(e)
	case *ast.CallExpr:
		return g.GenerateCallExpr(e)
	default:
		return fmt.Errorf("codegen: unsupported expression kind %T", expr)
	}
}

// GenerateIntLit pushes a constant.
func (g *Generator) GenerateIntLit(e *ast.IntLit) error {
	g.emit("pushq $%d", e.Value)
	return nil
}

// GenerateVarExpr pushes a variable's value.
func (g *Generator) GenerateVarExpr(e *ast.VarExpr) error {
	g.emit("pushq -%d(%%rbp)", e.Entry.Offset)
	return nil
}

// GenerateBinaryExpr dispatches on the synthesized operand types (spec.md
// §4.3's Add/Sub/Mul/Div/relational patterns).
func (g *Generator) GenerateBinaryExpr(e *ast.BinaryExpr) error {
	if err := g.generateExpr(e.Left); err != nil {
		return err
	}
	if err := g.generateExpr(e.Right); err != nil {
		return err
	}

	switch e.Op {
	case ast.Add, ast.Sub:
		return g.generateAddSub(e)
	case ast.Mul:
		g.emit("popq %%rbx")
		g.emit("popq %%rax")
		g.emit("mul %%rbx")
		g.emit("pushq %%rax")
		return nil
	case ast.Div:
		// Unsigned div with a zeroed %rdx (no cqto/idiv): quotients of
		// negative operands come out wrong. Kept as a known quirk.
		g.emit("popq %%rbx")
		g.emit("popq %%rax")
		g.emit("xor %%rdx, %%rdx")
		g.emit("div %%rbx")
		g.emit("pushq %%rax")
		return nil
	case ast.Lt, ast.Le, ast.Eq, ast.Ne:
		g.emit("popq %%rdx")
		g.emit("popq %%rax")
		g.emit("cmpl %%edx, %%eax")
		g.emit("%s %%al", setInstruction(e.Op))
		g.emit("movzbl %%al, %%eax")
		g.emit("pushq %%rax")
		return nil
	default:
		return fmt.Errorf("codegen: unsupported binary operator")
	}
}

func setInstruction(op ast.BinaryOp) string {
	switch op {
	case ast.Lt:
		return "setl"
	case ast.Le:
		return "setle"
	case ast.Eq:
		return "sete"
	default:
		return "setne"
	}
}

// generateAddSub emits Add/Sub after both operands have been pushed,
// popping right into %rdx and left into %rax (spec.md §4.3).
func (g *Generator) generateAddSub(e *ast.BinaryExpr) error {
	g.emit("popq %%rdx")
	g.emit("popq %%rax")

	lt, rt := e.Left.CType(), e.Right.CType()
	switch {
	case lt.Kind == ctype.Int && rt.Kind == ctype.Int:
		if e.Op == ast.Add {
			g.emit("addl %%edx, %%eax")
		} else {
			g.emit("subl %%edx, %%eax")
		}
	case lt.Kind == ctype.Pointer && rt.Kind == ctype.Pointer:
		g.emit("subq %%rdx, %%rax")
		g.emit("sarq $%d, %%rax", scaleShift(lt.Of))
	case lt.Kind == ctype.Pointer:
		g.emit("shlq $%d, %%rdx", scaleShift(lt.Of))
		if e.Op == ast.Add {
			g.emit("addq %%rdx, %%rax")
		} else {
			g.emit("subq %%rdx, %%rax")
		}
	default:
		g.emit("shlq $%d, %%rax", scaleShift(rt.Of))
		if e.Op == ast.Add {
			g.emit("addq %%rdx, %%rax")
		} else {
			g.emit("subq %%rdx, %%rax")
		}
	}
	g.emit("pushq %%rax")
	return nil
}

// GenerateUnaryExpr dispatches Ref/Deref/inc-dec (spec.md §4.3).
func (g *Generator) GenerateUnaryExpr(e *ast.UnaryExpr) error {
	switch e.Op {
	case ast.Ref:
		return g.generateLvalue(e.Operand)
	case ast.Deref:
		if err := g.generateExpr(e.Operand); err != nil {
			return err
		}
		g.emit("popq %%rax")
		g.emit("pushq (%%rax)")
		return nil
	case ast.PreInc, ast.PreDec, ast.PostInc, ast.PostDec:
		if e.CType().Kind == ctype.Pointer {
			return g.generatePointerStep(e)
		}
		return g.generateIntStep(e)
	default:
		return fmt.Errorf("codegen: unsupported unary operator")
	}
}

// generateIntStep emits the lvalue/mutate/push pattern for an Int
// variable's ++/-- (spec.md §4.3).
func (g *Generator) generateIntStep(e *ast.UnaryExpr) error {
	varExpr, ok := e.Operand.(*ast.VarExpr)
	if !ok {
		return fmt.Errorf("codegen: ++/-- operand is not a variable")
	}
	if err := g.generateLvalue(varExpr); err != nil {
		return err
	}
	g.emit("popq %%rax")

	mutate := "incl (%%rax)"
	if e.Op == ast.PreDec || e.Op == ast.PostDec {
		mutate = "decl (%%rax)"
	}

	if e.Op == ast.PreInc || e.Op == ast.PreDec {
		g.emit(mutate)
		g.emit("pushq (%%rax)")
	} else {
		g.emit("pushq (%%rax)")
		g.emit(mutate)
	}
	return nil
}

// generatePointerStep lowers a pointer variable's ++/-- into an
// Assign(var, Add|Sub(var, Int(1))) subtree, re-analyzes it against the
// current function's symbol table so the Add/Sub gets proper pointer
// scaling, and emits the result (spec.md §4.3/§9 item 5). For post-forms
// the pre-image is pushed first and the synthesized assignment's own
// pushed value is discarded.
func (g *Generator) generatePointerStep(e *ast.UnaryExpr) error {
	varExpr, ok := e.Operand.(*ast.VarExpr)
	if !ok {
		return fmt.Errorf("codegen: ++/-- operand is not a variable")
	}

	post := e.Op == ast.PostInc || e.Op == ast.PostDec
	if post {
		if err := g.GenerateVarExpr(varExpr); err != nil {
			return err
		}
	}

	op := ast.Add
	if e.Op == ast.PreDec || e.Op == ast.PostDec {
		op = ast.Sub
	}
	tok := e.Tok()
	step := ast.NewAssignExpr(tok,
		ast.NewVarExpr(tok, varExpr.Ident),
		ast.NewBinaryExpr(tok, op, ast.NewVarExpr(tok, varExpr.Ident), ast.NewIntLit(tok, 1)))

	analyzed, err := analyzer.AnalyzeExpr(g.table, step)
	if err != nil {
		return err
	}
	if err := g.generateExpr(analyzed); err != nil {
		return err
	}
	if post {
		g.emit("popq %%rax") // discard the new value; the pre-image is already on the stack
	}
	return nil
}

// GenerateAssignExpr emits the lvalue/generate-right/store pattern
// (spec.md §4.3).
func (g *Generator) GenerateAssignExpr(e *ast.AssignExpr) error {
	if err := g.generateLvalue(e.Left); err != nil {
		return err
	}
	if err := g.generateExpr(e.Right); err != nil {
		return err
	}
	g.emit("popq %%rdi")
	g.emit("popq %%rax")
	if e.Left.CType().Kind == ctype.Pointer {
		g.emit("movq %%rdi, (%%rax)")
	} else {
		g.emit("movl %%edi, (%%rax)")
	}
	g.emit("pushq %%rdi")
	return nil
}

// GenerateCallExpr evaluates arguments right-to-left, pops them into the
// System V argument registers in left-to-right order, then calls (spec.md
// §4.3). No caller-save protection is emitted: the stack-machine discipline
// never holds a live value in a caller-saved register across a call, since
// every intermediate value lives on the machine stack.
func (g *Generator) GenerateCallExpr(e *ast.CallExpr) error {
	for i := len(e.Args) - 1; i >= 0; i-- {
		if err := g.generateExpr(e.Args[i]); err != nil {
			return err
		}
	}
	for i := range e.Args {
		g.emit("popq %%%s", argRegs64[i])
	}
	g.emit("call %s", e.Ident)
	g.emit("pushq %%rax")
	return nil
}

// generateLvalue emits code that leaves an address on the stack, for the
// two node kinds the analyzer accepts as assignable (spec.md §4.3
// "Lvalue emission").
func (g *Generator) generateLvalue(expr ast.Expr) error {
	switch e := expr.(type) {
	case *ast.VarExpr:
		g.emit("leaq -%d(%%rbp), %%rax", e.Entry.Offset)
		g.emit("pushq %%rax")
		return nil
	case *ast.UnaryExpr:
		if e.Op == ast.Deref {
			return g.generateExpr(e.Operand)
		}
	}
	return fmt.Errorf("codegen: %T is not an lvalue", expr)
}
