package lexer_test

import (
	"strings"
	"testing"

	"hmny.dev/uoocc/pkg/lexer"
	"hmny.dev/uoocc/pkg/token"
)

func kinds(t *testing.T, src string) []token.Kind {
	t.Helper()
	toks, err := lexer.Scan(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Scan(%q) error: %v", src, err)
	}
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestScanBasicProgram(t *testing.T) {
	src := "int main(){int a;a=42;a;}"
	got := kinds(t, src)
	want := []token.Kind{
		token.INT, token.IDENT, token.LPAR, token.RPAR, token.LCUR,
		token.INT, token.IDENT, token.SEMI,
		token.IDENT, token.ASSIGN, token.NUM, token.SEMI,
		token.IDENT, token.SEMI,
		token.RCUR, token.EOF,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestScanMultiCharOperators(t *testing.T) {
	got := kinds(t, "++ -- <= >= == != a>b a>=b")
	want := []token.Kind{
		token.INC, token.DEC, token.LE, token.GE, token.EQUAL, token.NEQUAL,
		token.IDENT, token.GT, token.IDENT,
		token.IDENT, token.GE, token.IDENT,
		token.EOF,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestScanNumberValue(t *testing.T) {
	toks, err := lexer.Scan(strings.NewReader("1234"))
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if toks[0].Value != 1234 {
		t.Errorf("Value = %d, want 1234", toks[0].Value)
	}
}

func TestStreamLookahead(t *testing.T) {
	toks, err := lexer.Scan(strings.NewReader("a = b"))
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	s := lexer.NewStream(toks)

	if s.Current().Kind != token.IDENT {
		t.Fatalf("Current() = %v, want IDENT", s.Current().Kind)
	}
	if s.Second().Kind != token.ASSIGN {
		t.Fatalf("Second() = %v, want ASSIGN", s.Second().Kind)
	}
	s.Next()
	if s.Current().Kind != token.ASSIGN {
		t.Fatalf("after Next(), Current() = %v, want ASSIGN", s.Current().Kind)
	}
	if s.Second().Kind != token.IDENT {
		t.Fatalf("after Next(), Second() = %v, want IDENT", s.Second().Kind)
	}
}

func TestStreamStaysAtEOF(t *testing.T) {
	toks, err := lexer.Scan(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	s := lexer.NewStream(toks)
	s.Next()
	s.Next()
	if s.Current().Kind != token.EOF {
		t.Errorf("Current() = %v, want EOF", s.Current().Kind)
	}
}

func TestRowColTracking(t *testing.T) {
	toks, err := lexer.Scan(strings.NewReader("int\n  x;"))
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	// "x" is on row 2, column 3.
	var xTok token.Token
	for _, tok := range toks {
		if tok.Kind == token.IDENT {
			xTok = tok
		}
	}
	if xTok.Pos.Row != 2 || xTok.Pos.Col != 3 {
		t.Errorf("ident position = %+v, want row 2 col 3", xTok.Pos)
	}
}
