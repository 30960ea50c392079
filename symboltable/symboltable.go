// Package symboltable implements the scoped symbol table (component C5):
// a rooted tree of scopes with a cursor pointing at the current scope.
// Closing a scope detaches it from the cursor but never from the tree,
// so a finished scope stays walkable afterward (the semantic analyzer's
// warnings pass needs exactly that).
package symboltable

import (
	"sort"

	"github.com/skx/nexus-compiler/token"
)

// Type is a declared variable's static type.
type Type int

const (
	Int Type = iota
	String
	Boolean
)

func (ty Type) String() string {
	switch ty {
	case Int:
		return "int"
	case String:
		return "string"
	case Boolean:
		return "boolean"
	default:
		return "?"
	}
}

// ScopeID addresses one scope in the Table's arena.
type ScopeID int

// Entry is one declared identifier.
type Entry struct {
	Type          Type
	DeclPosition  token.Position
	ScopeID       ScopeID
	IsInitialized bool
	IsUsed        bool
}

type scope struct {
	parent   ScopeID
	hasParent bool
	entries  map[string]*Entry
}

// Table is a rooted scope tree plus a cursor at the scope currently being
// populated or queried. The zero Table is not ready to use; call New.
type Table struct {
	scopes  []scope
	current ScopeID
}

// New creates a Table with a single root scope as the current scope.
func New() *Table {
	t := &Table{}
	t.scopes = append(t.scopes, scope{entries: make(map[string]*Entry)})
	t.current = 0
	return t
}

// OpenScope creates a child of the current scope and descends into it,
// returning the new scope's ID.
func (t *Table) OpenScope() ScopeID {
	id := ScopeID(len(t.scopes))
	t.scopes = append(t.scopes, scope{parent: t.current, hasParent: true, entries: make(map[string]*Entry)})
	t.current = id
	return id
}

// CloseScope ascends to the parent of the current scope. The closed scope
// remains attached to the tree and reachable from Warnings.
func (t *Table) CloseScope() {
	cur := t.scopes[t.current]
	if cur.hasParent {
		t.current = cur.parent
	}
}

// Current returns the scope the cursor currently points at.
func (t *Table) Current() ScopeID {
	return t.current
}

// Declare inserts id into the current scope with the given type and
// declaration position. It returns false, leaving the existing entry
// untouched, if id is already declared in the current scope — a
// redeclaration.
func (t *Table) Declare(id string, ty Type, pos token.Position) bool {
	s := &t.scopes[t.current]
	if _, exists := s.entries[id]; exists {
		return false
	}
	s.entries[id] = &Entry{Type: ty, DeclPosition: pos, ScopeID: t.current}
	return true
}

// Resolve walks from the current scope toward the root and returns the
// first Entry found for id, or nil if none resolves.
func (t *Table) Resolve(id string) *Entry {
	for s := t.current; ; {
		if e, ok := t.scopes[s].entries[id]; ok {
			return e
		}
		scopeAt := t.scopes[s]
		if !scopeAt.hasParent {
			return nil
		}
		s = scopeAt.parent
	}
}

// Field names the boolean flag Mark sets on a resolved entry.
type Field int

const (
	Initialized Field = iota
	Used
)

// Mark resolves id from the current scope and sets the named flag on its
// entry. It is a no-op if id does not resolve.
func (t *Table) Mark(id string, field Field) {
	e := t.Resolve(id)
	if e == nil {
		return
	}
	switch field {
	case Initialized:
		e.IsInitialized = true
	case Used:
		e.IsUsed = true
	}
}

// Warning is one post-pass diagnostic produced by Warnings.
type Warning struct {
	Identifier string
	Position   token.Position
	Message    string
}

// Warnings enumerates every entry in every scope (including closed ones)
// and reports the three possible declared-but-incomplete states: used but
// never initialized, neither initialized nor used, and initialized but
// never used. The result is sorted by declaration position (falling back
// to identifier for two declarations on the same line/column) so that
// compiling the same source twice reports warnings in the same order,
// regardless of the map iteration order entries were visited in.
func (t *Table) Warnings() []Warning {
	var out []Warning
	for _, s := range t.scopes {
		for id, e := range s.entries {
			switch {
			case e.IsUsed && !e.IsInitialized:
				out = append(out, Warning{id, e.DeclPosition, id + " is used but never initialized"})
			case !e.IsInitialized && !e.IsUsed:
				out = append(out, Warning{id, e.DeclPosition, id + " is declared but never initialized or used"})
			case e.IsInitialized && !e.IsUsed:
				out = append(out, Warning{id, e.DeclPosition, id + " is initialized but never used"})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Position, out[j].Position
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return out[i].Identifier < out[j].Identifier
	})
	return out
}
