package symboltable_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skx/nexus-compiler/symboltable"
	"github.com/skx/nexus-compiler/token"
)

func pos(line, col int) token.Position {
	return token.Position{Line: line, Column: col}
}

func TestDeclareAndResolveInSameScope(t *testing.T) {
	st := symboltable.New()
	ok := st.Declare("a", symboltable.Int, pos(1, 1))
	require.True(t, ok)

	e := st.Resolve("a")
	require.NotNil(t, e)
	require.Equal(t, symboltable.Int, e.Type)
	require.False(t, e.IsInitialized)
	require.False(t, e.IsUsed)
}

func TestRedeclarationInSameScopeFails(t *testing.T) {
	st := symboltable.New()
	require.True(t, st.Declare("a", symboltable.Int, pos(1, 1)))
	require.False(t, st.Declare("a", symboltable.String, pos(2, 1)))
}

func TestResolveWalksToParentScope(t *testing.T) {
	st := symboltable.New()
	st.Declare("a", symboltable.Int, pos(1, 1))
	st.OpenScope()

	e := st.Resolve("a")
	require.NotNil(t, e)
	require.Equal(t, symboltable.Int, e.Type)
}

func TestSiblingScopesAreInvisibleToEachOther(t *testing.T) {
	st := symboltable.New()
	st.OpenScope()
	st.Declare("a", symboltable.Int, pos(1, 1))
	st.CloseScope()

	st.OpenScope()
	require.Nil(t, st.Resolve("a"))
}

func TestClosedScopeStaysWalkableForWarnings(t *testing.T) {
	st := symboltable.New()
	st.OpenScope()
	st.Declare("a", symboltable.Int, pos(3, 5))
	st.CloseScope()

	warnings := st.Warnings()
	require.Len(t, warnings, 1)
	require.Equal(t, "a", warnings[0].Identifier)
	require.Equal(t, pos(3, 5), warnings[0].Position)
}

func TestMarkInitializedThenUsedLeavesNoWarning(t *testing.T) {
	st := symboltable.New()
	st.Declare("a", symboltable.Int, pos(1, 1))
	st.Mark("a", symboltable.Initialized)
	st.Mark("a", symboltable.Used)

	require.Empty(t, st.Warnings())
}

func TestWarningsCoverAllThreeIncompleteStates(t *testing.T) {
	st := symboltable.New()
	st.Declare("unused", symboltable.Int, pos(1, 1))
	st.Mark("unused", symboltable.Initialized)

	st.Declare("untouched", symboltable.String, pos(2, 1))

	st.Declare("usedUninit", symboltable.Boolean, pos(3, 1))
	st.Mark("usedUninit", symboltable.Used)

	warnings := st.Warnings()
	require.Len(t, warnings, 3)

	byID := make(map[string]string)
	for _, w := range warnings {
		byID[w.Identifier] = w.Message
	}
	require.Contains(t, byID["unused"], "never used")
	require.Contains(t, byID["untouched"], "never initialized or used")
	require.Contains(t, byID["usedUninit"], "never initialized")
}

func TestMarkOnUnresolvedIdentifierIsNoOp(t *testing.T) {
	st := symboltable.New()
	require.NotPanics(t, func() {
		st.Mark("missing", symboltable.Used)
	})
}

func TestCloseScopeAtRootIsNoOp(t *testing.T) {
	st := symboltable.New()
	root := st.Current()
	st.CloseScope()
	require.Equal(t, root, st.Current())
}
