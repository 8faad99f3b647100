package sat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarOrderByActivity(t *testing.T) {
	s := NewDefaultSolver()
	for i := 0; i < 4; i++ {
		s.NewVar(true, true)
	}
	s.activity[0] = 1
	s.activity[1] = 4
	s.activity[2] = 3
	s.activity[3] = 2
	s.order.build([]Var{0, 1, 2, 3})

	got := []Var{}
	for !s.order.empty() {
		got = append(got, s.order.removeMin())
	}
	assert.Equal(t, []Var{1, 2, 3, 0}, got)
}

func TestVarOrderTieBreaks(t *testing.T) {
	s := NewDefaultSolver()
	for i := 0; i < 3; i++ {
		s.NewVar(true, true)
	}
	// Equal activities: preference wins, then the lower variable id.
	s.varPreference[2] = 1
	s.order.build([]Var{0, 1, 2})

	assert.Equal(t, Var(2), s.order.removeMin())
	assert.Equal(t, Var(0), s.order.removeMin())
	assert.Equal(t, Var(1), s.order.removeMin())
}

func TestVarOrderDecrease(t *testing.T) {
	s := NewDefaultSolver()
	for i := 0; i < 3; i++ {
		s.NewVar(true, true)
	}
	s.order.build([]Var{0, 1, 2})

	s.activity[2] = 10
	s.order.decrease(2)
	assert.Equal(t, Var(2), s.order.at(0))

	require.True(t, s.order.contains(1))
	assert.Equal(t, 3, s.order.len())
	s.order.removeMin()
	assert.False(t, s.order.contains(2))
}

func TestVarOrderInsertAfterRemove(t *testing.T) {
	s := NewDefaultSolver()
	v := s.NewVar(true, true)
	require.True(t, s.order.contains(v))
	assert.Equal(t, v, s.order.removeMin())
	assert.True(t, s.order.empty())

	s.insertVarOrder(v)
	assert.True(t, s.order.contains(v))
}
