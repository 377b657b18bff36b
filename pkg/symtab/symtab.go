// Package symtab implements the per-function symbol table: an
// insertion-tracking name -> {CType, frame offset} mapping (spec.md §3).
package symtab

import (
	"fmt"

	"hmny.dev/uoocc/pkg/ctype"
	"hmny.dev/uoocc/pkg/utils"
)

// Entry is what a declaration installs in a Table: the variable's type and
// its frame offset (byte distance below %rbp). Entries are never mutated
// after insertion.
type Entry struct {
	Type   *ctype.Type
	Offset int
}

// Table is one function's symbol table: insertion-ordered, one scope,
// no shadowing (spec.md §3: "there is no block scoping").
//
// It is a thin domain wrapper over utils.OrderedMap — exactly the
// "insertion-tracking mapping" spec.md §3 calls for.
type Table struct {
	entries utils.OrderedMap[string, Entry]
}

// New returns an empty Table.
func New() *Table {
	return &Table{entries: utils.NewOrderedMap[string, Entry]()}
}

// Insert adds ident with entry to the table. It fails if ident is already
// present ("redefinition of 'X'", spec.md §4.2).
func (t *Table) Insert(ident string, entry Entry) error {
	if _, found := t.entries.Get(ident); found {
		return fmt.Errorf("redefinition of '%s'", ident)
	}
	t.entries.Set(ident, entry)
	return nil
}

// Lookup resolves ident. It fails if ident is absent ("use of undeclared
// identifier 'X'", spec.md §4.2).
func (t *Table) Lookup(ident string) (Entry, error) {
	entry, found := t.entries.Get(ident)
	if !found {
		return Entry{}, fmt.Errorf("use of undeclared identifier '%s'", ident)
	}
	return entry, nil
}

// Entries returns the table's entries in insertion order — the order
// spec.md §8 invariant 2 (frame monotonicity) is checked against.
func (t *Table) Entries() []utils.MapEntry[string, Entry] {
	return t.entries.Entries()
}
