// Package diagnostics implements the compiler's single fatal-error channel
// (spec.md §7): every lexical, syntactic or semantic error reaching the
// driver is an *Error, formatted exactly per spec.md §6.3.
//
// This is the Go-native reading of _examples/original_source/mylib.c's
// error()/error_with_token(): no recovery, first error wins, propagated as
// a normal Go error value (spec.md §7's "result-carrying channel" option)
// instead of the original's exit(1)-on-the-spot.
package diagnostics

import (
	"fmt"

	"hmny.dev/uoocc/pkg/token"
)

// Error is a compiler diagnostic, optionally anchored to a source token.
type Error struct {
	Tok *token.Token // nil when no token context is available
	Msg string
}

// New builds a token-less diagnostic ("Error: <text>.").
func New(msg string) *Error { return &Error{Msg: msg} }

// At builds a diagnostic anchored to tok ("<row>:<col>:<<lexeme>> Error: <text>.").
func At(tok token.Token, msg string) *Error { return &Error{Tok: &tok, Msg: msg} }

// Expectedf builds an "X was expected" diagnostic anchored to tok, matching
// _examples/original_source/mylib.c's expect_token wording.
func Expectedf(tok token.Token, want token.Kind) *Error {
	return At(tok, fmt.Sprintf("%s was expected", want))
}

func (e *Error) Error() string {
	if e.Tok == nil {
		return fmt.Sprintf("Error: %s.", e.Msg)
	}
	return fmt.Sprintf("%d:%d:<%s> Error: %s.", e.Tok.Pos.Row, e.Tok.Pos.Col, e.Tok.Text, e.Msg)
}
