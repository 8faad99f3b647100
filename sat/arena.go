package sat

import "math"

// cref is a reference to a clause in the arena. References are stable until
// the next garbage collection, at which point every outstanding cref is
// rewritten by reloc.
type cref uint32

const crefUndef cref = math.MaxUint32

// maxArenaWords bounds the arena to 2^30 words so that status references of
// LEQ constraints always fit the journal's 30-bit budget.
const maxArenaWords = 1 << 30

// Clause header layout. The header is the first word of every allocation:
// flag bits in the high bits, the literal count in the low bits.
const (
	hdrLearnt   uint32 = 1 << 31
	hdrLeq      uint32 = 1 << 30
	hdrReloced  uint32 = 1 << 29
	hdrMark     uint32 = 1 << 28
	hdrSizeMask uint32 = hdrMark - 1
)

// leqStatusOffset is the distance, in words, from a LEQ clause's reference to
// its mutable status block, not counting the literals: header, then the
// literals, then the destination literal, the bound, and finally the status,
// which sits at cref + len + leqStatusOffset.
const leqStatusOffset = 3

// arena is an append-only region allocator for clauses. A disjunction clause
// occupies {header, lits..., activity?} where the trailing activity word is
// present for learnt clauses only. A LEQ clause occupies
// {header, lits..., dst, bound, status}.
type arena struct {
	words  []uint32
	wasted int
}

func (a *arena) len() int { return len(a.words) }

// grow reserves n fresh words and returns their reference.
func (a *arena) grow(n int) cref {
	cr := cref(len(a.words))
	if len(a.words)+n > maxArenaWords {
		panic("sat: clause arena exceeds addressable capacity")
	}
	for i := 0; i < n; i++ {
		a.words = append(a.words, 0)
	}
	return cr
}

// allocClause stores a disjunction clause and returns its reference.
func (a *arena) allocClause(lits []Literal, learnt bool) cref {
	n := len(lits)
	extra := 0
	if learnt {
		extra = 1
	}
	cr := a.grow(1 + n + extra)
	hdr := uint32(n)
	if learnt {
		hdr |= hdrLearnt
	}
	a.words[cr] = hdr
	for i, l := range lits {
		a.words[int(cr)+1+i] = uint32(l)
	}
	return cr
}

// allocLeq stores a LEQ constraint with a zeroed status block and returns
// its reference.
func (a *arena) allocLeq(lits []Literal, dst Literal, bound int) cref {
	n := len(lits)
	cr := a.grow(1 + n + leqStatusOffset)
	a.words[cr] = uint32(n) | hdrLeq
	for i, l := range lits {
		a.words[int(cr)+1+i] = uint32(l)
	}
	a.words[int(cr)+1+n] = uint32(dst)
	a.words[int(cr)+2+n] = uint32(bound)
	a.words[int(cr)+3+n] = 0
	return cr
}

// clauseWords returns the total footprint of the clause at cr.
func (a *arena) clauseWords(cr cref) int {
	hdr := a.words[cr]
	n := int(hdr & hdrSizeMask)
	switch {
	case hdr&hdrLeq != 0:
		return 1 + n + leqStatusOffset
	case hdr&hdrLearnt != 0:
		return 1 + n + 1
	default:
		return 1 + n
	}
}

// free releases the clause at cr. The storage is not reused; it only counts
// toward the wasted total that triggers garbage collection.
func (a *arena) free(cr cref) {
	a.wasted += a.clauseWords(cr)
}

// reloc moves the clause referenced by *cr into the arena to and updates
// *cr. Relocating an already-moved clause only rewrites the reference, so
// the operation is idempotent across the many places a clause may be
// referenced from. For LEQ clauses the forwarding reference is additionally
// stored in the old status slot, letting journal entries recover the new
// status location from the old one.
func (a *arena) reloc(cr *cref, to *arena) {
	old := *cr
	hdr := a.words[old]
	if hdr&hdrReloced != 0 {
		*cr = cref(a.words[old+1])
		return
	}
	total := a.clauseWords(old)
	ncr := to.grow(total)
	copy(to.words[ncr:int(ncr)+total], a.words[old:int(old)+total])
	a.words[old] = hdr | hdrReloced
	a.words[old+1] = uint32(ncr)
	if hdr&hdrLeq != 0 {
		n := int(hdr & hdrSizeMask)
		a.words[int(old)+n+leqStatusOffset] = uint32(ncr)
	}
	*cr = ncr
}
