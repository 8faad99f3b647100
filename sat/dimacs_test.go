package sat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDimacsContradictory(t *testing.T) {
	s := NewDefaultSolver()
	v := newVars(s, 1)
	require.True(t, s.AddClause([]Literal{v[0]}))
	require.False(t, s.AddClause([]Literal{v[0].Opposite()}))

	var sb strings.Builder
	require.NoError(t, s.ToDimacs(&sb, nil))
	assert.Equal(t, "p cnf 1 2\n1 0\n-1 0\n", sb.String())
}

func TestToDimacs(t *testing.T) {
	s := NewDefaultSolver()
	v := newVars(s, 3)
	d := MkLiteral(s.NewVar(true, true), false)

	require.True(t, s.AddClause([]Literal{v[0], v[1]}))
	require.True(t, mustAddLeq(t, s, append([]Literal{}, v...), 1, d))

	var sb strings.Builder
	require.NoError(t, s.ToDimacs(&sb, nil))
	assert.Equal(t, "p cnf 4 2\n1 2 0\n1 2 3 <= 1 # 4\n", sb.String())
}

func TestToDimacsAssumptionsAndRenumbering(t *testing.T) {
	s := NewDefaultSolver()
	v := newVars(s, 4)
	require.True(t, s.AddClause([]Literal{v[2], v[3].Opposite()}))

	var sb strings.Builder
	require.NoError(t, s.ToDimacs(&sb, []Literal{v[1]}))
	// Variables are renumbered densely in first-use order: the clause uses
	// 1 and 2, the assumption becomes 3, and unused v0 disappears.
	assert.Equal(t, "p cnf 3 2\n3 0\n1 -2 0\n", sb.String())
}

func TestToDimacsSkipsSatisfied(t *testing.T) {
	s := NewDefaultSolver()
	v := newVars(s, 3)
	require.True(t, s.AddClause([]Literal{v[0]}))
	require.True(t, s.AddClause([]Literal{v[0], v[1]})) // satisfied at root
	require.True(t, s.AddClause([]Literal{v[0].Opposite(), v[1], v[2]}))

	var sb strings.Builder
	require.NoError(t, s.ToDimacs(&sb, nil))
	// The satisfied clause is dropped and the false literal !v0 is removed
	// from the last clause.
	assert.Equal(t, "p cnf 2 1\n1 2 0\n", sb.String())
}
