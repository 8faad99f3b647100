package sat

// watcher represents a disjunction clause attached to the watch list of a
// literal. The blocker is any literal of the clause used as a fast
// satisfied-check before the clause itself is loaded.
type watcher struct {
	cref    cref
	blocker Literal
}

// leqWatcher attaches a LEQ constraint to the watch list of one of its
// variables. The bound and size fields mirror the constraint so that the
// propagator can compute both implication bounds without loading the clause;
// their widths double as the representable capacity of a LEQ.
type leqWatcher struct {
	cref  cref
	bound uint16
	size  uint16
	sign  bool
}

// statusRef returns the arena reference of the constraint's status block.
func (w leqWatcher) statusRef() cref {
	return w.cref + cref(w.size) + leqStatusOffset
}

// boundTrue is the number of true literals at which the LEQ becomes false.
func (w leqWatcher) boundTrue() int { return int(w.bound) + 1 }

// boundFalse is the number of false literals at which the LEQ becomes true.
func (w leqWatcher) boundFalse() int { return int(w.size) - int(w.bound) }

// occList holds a watcher list per key (a literal for disjunction watchers,
// a variable for LEQ watchers). Removal is lazy: detaching a clause only
// smudges the keys it was watched under, and cleanAll later filters every
// smudged list through the deleted predicate.
type occList[W any] struct {
	occs    [][]W
	dirty   []bool
	dirties []int
	deleted func(W) bool
}

// initKey grows the list set to cover key k.
func (o *occList[W]) initKey(k int) {
	for len(o.occs) <= k {
		o.occs = append(o.occs, nil)
		o.dirty = append(o.dirty, false)
	}
}

func (o *occList[W]) push(k int, w W) {
	o.occs[k] = append(o.occs[k], w)
}

// smudge marks key k's list as containing entries to be filtered out.
func (o *occList[W]) smudge(k int) {
	if !o.dirty[k] {
		o.dirty[k] = true
		o.dirties = append(o.dirties, k)
	}
}

func (o *occList[W]) clean(k int) {
	ws := o.occs[k]
	j := 0
	for _, w := range ws {
		if !o.deleted(w) {
			ws[j] = w
			j++
		}
	}
	o.occs[k] = ws[:j]
	o.dirty[k] = false
}

// cleanAll filters every smudged list.
func (o *occList[W]) cleanAll() {
	for _, k := range o.dirties {
		// Dirties may contain duplicates if a key was smudged again after
		// being cleaned.
		if o.dirty[k] {
			o.clean(k)
		}
	}
	o.dirties = o.dirties[:0]
}
