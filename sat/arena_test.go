package sat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lits(is ...int) []Literal {
	ls := make([]Literal, len(is))
	for i, v := range is {
		ls[i] = IntToLiteral(v)
	}
	return ls
}

func TestArenaAllocClause(t *testing.T) {
	var a arena
	cr := a.allocClause(lits(1, -2, 3), false)
	c := a.clause(cr)

	assert.Equal(t, 3, c.Len())
	assert.False(t, c.Learnt())
	assert.False(t, c.IsLeq())
	assert.False(t, c.Mark())
	assert.Equal(t, IntToLiteral(1), c.Get(0))
	assert.Equal(t, IntToLiteral(-2), c.Get(1))
	assert.Equal(t, IntToLiteral(3), c.Get(2))

	c.swap(0, 2)
	assert.Equal(t, IntToLiteral(3), c.Get(0))
	assert.Equal(t, IntToLiteral(1), c.Get(2))
}

func TestArenaAllocLearnt(t *testing.T) {
	var a arena
	cr := a.allocClause(lits(1, 2), true)
	c := a.clause(cr)

	require.True(t, c.Learnt())
	assert.Equal(t, float32(0), c.Activity())
	c.setActivity(1.5)
	assert.Equal(t, float32(1.5), c.Activity())
	// The activity word must not alias the literals.
	assert.Equal(t, IntToLiteral(1), c.Get(0))
	assert.Equal(t, IntToLiteral(2), c.Get(1))
}

func TestArenaAllocLeq(t *testing.T) {
	var a arena
	dst := IntToLiteral(4)
	cr := a.allocLeq(lits(1, 2, 3), dst, 2)
	c := a.clause(cr)

	require.True(t, c.IsLeq())
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, dst, c.LeqDst())
	assert.Equal(t, 2, c.LeqBound())
	assert.Equal(t, cr+cref(3)+leqStatusOffset, c.statusRef())

	st := c.status()
	assert.Equal(t, 0, st.nrDecided())
	assert.Equal(t, 0, st.nrTrue())
	assert.Equal(t, implyNone, st.implyType())
}

func TestLeqStatusCounters(t *testing.T) {
	var st leqStatus
	st = st.incr(true)
	st = st.incr(false)
	st = st.incr(true)
	assert.Equal(t, 3, st.nrDecided())
	assert.Equal(t, 2, st.nrTrue())

	st = st.withImply(true, implyLits)
	assert.Equal(t, implyLits, st.implyType())
	assert.True(t, st.precondIsTrue())
	assert.Equal(t, 3, st.nrDecided())
	assert.Equal(t, 2, st.nrTrue())

	st = st.withImplyCleared(false)
	assert.Equal(t, implyLits, st.implyType())
	st = st.withImplyCleared(true)
	assert.Equal(t, implyNone, st.implyType())

	st = st.decr(true)
	assert.Equal(t, 2, st.nrDecided())
	assert.Equal(t, 1, st.nrTrue())
}

func TestArenaFreeAndWasted(t *testing.T) {
	var a arena
	c1 := a.allocClause(lits(1, 2, 3), false)           // 4 words
	c2 := a.allocClause(lits(1, 2), true)               // 4 words
	c3 := a.allocLeq(lits(1, 2, 3), IntToLiteral(4), 1) // 7 words

	assert.Equal(t, 15, a.len())
	a.free(c1)
	assert.Equal(t, 4, a.wasted)
	a.free(c2)
	assert.Equal(t, 8, a.wasted)
	a.free(c3)
	assert.Equal(t, 15, a.wasted)
}

func TestArenaReloc(t *testing.T) {
	var a arena
	garbage := a.allocClause(lits(7, 8, 9, 10), false)
	cr := a.allocClause(lits(1, -2), true)
	lr := a.allocLeq(lits(1, 2, 3), IntToLiteral(4), 1)
	a.free(garbage)

	// Simulate propagation state on the LEQ status.
	st := a.status(a.clause(lr).statusRef()).incr(true)
	a.setStatus(a.clause(lr).statusRef(), st)

	to := arena{words: make([]uint32, 0, a.len()-a.wasted)}
	oldStatusRef := a.clause(lr).statusRef()

	ncr := cr
	a.reloc(&ncr, &to)
	nlr := lr
	a.reloc(&nlr, &to)

	// Relocation is idempotent: a second reloc resolves the forward ref.
	again := cr
	a.reloc(&again, &to)
	assert.Equal(t, ncr, again)

	c := to.clause(ncr)
	assert.True(t, c.Learnt())
	assert.Equal(t, IntToLiteral(1), c.Get(0))
	assert.Equal(t, IntToLiteral(-2), c.Get(1))

	l := to.clause(nlr)
	require.True(t, l.IsLeq())
	assert.Equal(t, IntToLiteral(4), l.LeqDst())
	assert.Equal(t, 1, l.LeqBound())
	assert.Equal(t, 1, l.status().nrTrue())
	assert.Equal(t, 1, l.status().nrDecided())

	// The old status slot forwards to the relocated clause, so journal
	// entries can recompute their reference.
	assert.Equal(t, uint32(nlr), a.words[oldStatusRef])
}
