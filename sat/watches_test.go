package sat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOccListSmudgeCleanAll(t *testing.T) {
	deleted := map[int]bool{}
	var o occList[int]
	o.deleted = func(w int) bool { return deleted[w] }

	o.initKey(3)
	o.push(0, 10)
	o.push(0, 11)
	o.push(2, 11)
	o.push(2, 12)

	deleted[11] = true
	o.smudge(0)
	o.smudge(2)
	o.smudge(2) // smudging twice must not clean twice
	o.cleanAll()

	assert.Equal(t, []int{10}, o.occs[0])
	assert.Equal(t, []int{12}, o.occs[2])
	assert.Empty(t, o.dirties)

	// Lists that were not smudged keep deleted entries until smudged.
	o.push(1, 11)
	o.cleanAll()
	assert.Equal(t, []int{11}, o.occs[1])
	o.smudge(1)
	o.cleanAll()
	assert.Empty(t, o.occs[1])
}

func TestOccListInitKeyGrows(t *testing.T) {
	var o occList[watcher]
	o.deleted = func(watcher) bool { return false }
	o.initKey(5)
	assert.Len(t, o.occs, 6)
	o.initKey(2) // no shrink
	assert.Len(t, o.occs, 6)
}
