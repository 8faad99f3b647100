package dimacs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leqsat/leqsat/sat"
)

func TestParsePlain(t *testing.T) {
	in := `c a comment
p cnf 3 2
1 -2 0
2 3 0
`
	instance, err := Parse(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, 3, instance.Variables)
	assert.Equal(t, [][]int{{1, -2}, {2, 3}}, instance.Clauses)
	assert.Empty(t, instance.Cards)
	assert.Equal(t, []string{"c a comment"}, instance.Comments)
}

func TestParseCards(t *testing.T) {
	in := `p cnf 4 3
1 2 3 <= 1 # 4
1 2 >= 1 #-4
4 0
`
	instance, err := Parse(strings.NewReader(in))
	require.NoError(t, err)

	require.Len(t, instance.Cards, 2)
	assert.Equal(t, Card{Lits: []int{1, 2, 3}, Geq: false, Bound: 1, Dst: 4}, instance.Cards[0])
	assert.Equal(t, Card{Lits: []int{1, 2}, Geq: true, Bound: 1, Dst: -4}, instance.Cards[1])
	assert.Equal(t, [][]int{{4}}, instance.Clauses)
}

func TestParseAutocreatesVariables(t *testing.T) {
	in := `p cnf 2 2
1 -2 0
7 0
`
	instance, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 7, instance.Variables)
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{
		"p cnf x 2\n",
		"p cnf 2\n",
		"p cnf 2 2\n1 foo 0\n",
		"p cnf 2 2\n1 2 <= 0\n",      // missing destination
		"p cnf 2 2\n1 2 <= 1 # 0\n",  // zero destination
		"p cnf 2 2\n1 2 <= one # 3\n",
	} {
		_, err := Parse(strings.NewReader(in))
		assert.Error(t, err, "input %q", in)
	}
}

func TestInstantiateAndSolve(t *testing.T) {
	in := `p cnf 4 3
1 2 3 <= 1 # 4
4 0
1 2 3 0
`
	instance, err := Parse(strings.NewReader(in))
	require.NoError(t, err)

	s := sat.NewDefaultSolver()
	require.NoError(t, Instantiate(s, instance))
	require.Equal(t, 4, s.NumVars())

	status, err := s.Solve(nil)
	require.NoError(t, err)
	require.Equal(t, sat.True, status)

	model := s.Model()
	nTrue := 0
	for _, v := range []int{0, 1, 2} {
		if model[v] == sat.True {
			nTrue++
		}
	}
	assert.Equal(t, 1, nTrue)
	assert.Equal(t, sat.True, model[3])
}

func TestParseStopsAtPercent(t *testing.T) {
	in := `p cnf 2 1
1 2 0
%
garbage that must not be parsed
`
	instance, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Len(t, instance.Clauses, 1)
}
