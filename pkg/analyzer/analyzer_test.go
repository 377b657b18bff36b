package analyzer_test

import (
	"strings"
	"testing"

	"hmny.dev/uoocc/pkg/analyzer"
	"hmny.dev/uoocc/pkg/ast"
	"hmny.dev/uoocc/pkg/ctype"
	"hmny.dev/uoocc/pkg/parser"
)

func analyzeOne(t *testing.T, src string) *ast.FuncDecl {
	t.Helper()
	p, err := parser.NewParser(strings.NewReader(src))
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	decls, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := analyzer.New().Analyze(decls); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(decls) != 1 {
		t.Fatalf("got %d decls, want 1", len(decls))
	}
	return decls[0]
}

func analyzeErr(t *testing.T, src string) error {
	t.Helper()
	p, err := parser.NewParser(strings.NewReader(src))
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	decls, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return analyzer.New().Analyze(decls)
}

func TestFrameLayoutMonotonicity(t *testing.T) {
	decl := analyzeOne(t, "int main(){int a;int b;int c;}")
	entries := decl.SymbolTable.Entries()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	prev := 0
	for _, e := range entries {
		if e.Value.Offset <= prev {
			t.Errorf("offset %d did not strictly increase from %d", e.Value.Offset, prev)
		}
		prev = e.Value.Offset
	}
}

func TestFrameLayoutPointerAlignment(t *testing.T) {
	decl := analyzeOne(t, "int main(){int a;int *p;}")
	entries := decl.SymbolTable.Entries()
	aOffset := entries[0].Value.Offset
	pOffset := entries[1].Value.Offset
	if aOffset != 4 {
		t.Errorf("a offset = %d, want 4", aOffset)
	}
	if pOffset != 16 {
		t.Errorf("p offset = %d, want 16 (rounded up to 8 then +8)", pOffset)
	}
}

func TestUndeclaredIdentifierError(t *testing.T) {
	err := analyzeErr(t, "int main(){a;}")
	if err == nil || !strings.Contains(err.Error(), "use of undeclared identifier 'a'") {
		t.Fatalf("err = %v, want undeclared identifier error", err)
	}
}

func TestRedefinitionError(t *testing.T) {
	err := analyzeErr(t, "int main(){int a;int a;}")
	if err == nil || !strings.Contains(err.Error(), "redefinition of 'a'") {
		t.Fatalf("err = %v, want redefinition error", err)
	}
}

func TestTooManyArgumentsError(t *testing.T) {
	err := analyzeErr(t, "int f(int a,int b,int c,int d,int e,int g,int h){a;} int main(){f(1,2,3,4,5,6,7);}")
	if err == nil || !strings.Contains(err.Error(), "too many arguments") {
		t.Fatalf("err = %v, want too many arguments error", err)
	}
}

func TestPointerArithmeticType(t *testing.T) {
	decl := analyzeOne(t, "int main(){int a;int *p;p=&a;p+1;}")
	last := decl.Body.Statements[3].(*ast.ExprStmt).X
	if last.CType().Kind != ctype.Pointer {
		t.Errorf("CType = %v, want Pointer", last.CType())
	}
}

func TestPointerSubtractionYieldsInt(t *testing.T) {
	decl := analyzeOne(t, "int main(){int *p;int *q;p-q;}")
	last := decl.Body.Statements[2].(*ast.ExprStmt).X
	if last.CType().Kind != ctype.Int {
		t.Errorf("CType = %v, want Int", last.CType())
	}
}

func TestPointerAdditionBothPointersIsError(t *testing.T) {
	err := analyzeErr(t, "int main(){int *p;int *q;p+q;}")
	if err == nil || !strings.Contains(err.Error(), "invalid operands to binary expression") {
		t.Fatalf("err = %v, want invalid operands error", err)
	}
}

func TestDerefRequiresPointerOperand(t *testing.T) {
	err := analyzeErr(t, "int main(){int a;*a;}")
	if err == nil || !strings.Contains(err.Error(), "indirection requires pointer operand") {
		t.Fatalf("err = %v, want indirection error", err)
	}
}

func TestAssignmentTagMismatchIsError(t *testing.T) {
	err := analyzeErr(t, "int main(){int a;int *p;a=p;}")
	if err == nil || !strings.Contains(err.Error(), "expression is not assignable") {
		t.Fatalf("err = %v, want not-assignable error", err)
	}
}

func TestAssignmentAcceptsSameTopLevelTag(t *testing.T) {
	// int* to int** is accepted: only the top-level tag (Pointer) is
	// compared (spec.md §9 item 6).
	decl := analyzeOne(t, "int main(){int **pp;int *p;pp=p;}")
	assign := decl.Body.Statements[2].(*ast.ExprStmt).X
	if assign.CType().Kind != ctype.Pointer {
		t.Errorf("CType = %v, want Pointer", assign.CType())
	}
}

func TestArrayDecaysOnArithmetic(t *testing.T) {
	decl := analyzeOne(t, "int main(){int a[3];a[0];}")
	// a[0] desugars to *(a+0); analyzing it requires a's Array type to
	// decay to Pointer(Int) at the Add operand position.
	exprStmt := decl.Body.Statements[1].(*ast.ExprStmt)
	deref := exprStmt.X.(*ast.UnaryExpr)
	if deref.Op != ast.Deref {
		t.Fatalf("X = %+v, want Deref", exprStmt.X)
	}
	if deref.CType().Kind != ctype.Int {
		t.Errorf("CType = %v, want Int", deref.CType())
	}
}

func TestEveryExpressionHasCType(t *testing.T) {
	p, err := parser.NewParser(strings.NewReader("int f(int x,int y){x*10+y;} int main(){f(3,4);}"))
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	decls, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := analyzer.New().Analyze(decls); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	decl := decls[1]
	var walk func(ast.Stmt)
	var walkExpr func(ast.Expr)
	walkExpr = func(e ast.Expr) {
		if e == nil {
			return
		}
		if e.CType() == nil {
			t.Errorf("node %T has nil CType after analysis", e)
		}
		switch n := e.(type) {
		case *ast.BinaryExpr:
			walkExpr(n.Left)
			walkExpr(n.Right)
		case *ast.UnaryExpr:
			walkExpr(n.Operand)
		case *ast.AssignExpr:
			walkExpr(n.Left)
			walkExpr(n.Right)
		case *ast.CallExpr:
			for _, arg := range n.Args {
				walkExpr(arg)
			}
		}
	}
	walk = func(s ast.Stmt) {
		switch n := s.(type) {
		case *ast.CompoundStmt:
			for _, stmt := range n.Statements {
				walk(stmt)
			}
		case *ast.IfStmt:
			walkExpr(n.Cond)
			walk(n.Then)
			if n.Else != nil {
				walk(n.Else)
			}
		case *ast.WhileStmt:
			walkExpr(n.Cond)
			walk(n.Body)
		case *ast.ForStmt:
			walkExpr(n.Init)
			walkExpr(n.Cond)
			walkExpr(n.Step)
			walk(n.Body)
		case *ast.ExprStmt:
			walkExpr(n.X)
		}
	}
	walk(decl.Body)
}
