package sat

// propagate performs unit propagation on all enqueued facts. If a conflict
// arises, the conflicting clause is returned, otherwise crefUndef. The
// propagation queue is empty on return, even after a conflict.
func (s *Solver) propagate() cref {
	confl := crefUndef
	numProps := 0
	s.watches.cleanAll()

	for s.qhead < len(s.trail) {
		p := s.trail[s.qhead]
		s.qhead++
		numProps++

		ws := s.watches.occs[p]
		i, j := 0, 0
		for i < len(ws) {
			// Try to avoid inspecting the clause.
			blocker := ws[i].blocker
			if s.LitValue(blocker) == True {
				ws[j] = ws[i]
				i++
				j++
				continue
			}

			// Make sure the false literal is at index 1.
			cr := ws[i].cref
			c := s.ca.clause(cr)
			falseLit := p.Opposite()
			if c.Get(0) == falseLit {
				c.Set(0, c.Get(1))
				c.Set(1, falseLit)
			}
			i++

			// If the 0th watch is true, the clause is already satisfied.
			first := c.Get(0)
			w := watcher{cr, first}
			if first != blocker && s.LitValue(first) == True {
				ws[j] = w
				j++
				continue
			}

			// Look for a new literal to watch.
			moved := false
			for k := 2; k < c.Len(); k++ {
				if s.LitValue(c.Get(k)) != False {
					c.Set(1, c.Get(k))
					c.Set(k, falseLit)
					s.watches.push(int(c.Get(1).Opposite()), w)
					moved = true
					break
				}
			}
			if moved {
				continue
			}

			// No watch found: the clause is unit under the assignment.
			ws[j] = w
			j++
			if s.LitValue(first) == False {
				confl = cr
				s.qhead = len(s.trail)
				// Copy the remaining watchers.
				for i < len(ws) {
					ws[j] = ws[i]
					i++
					j++
				}
			} else {
				s.uncheckedEnqueue(first, cr)
			}
		}
		s.watches.occs[p] = ws[:j]

		if confl == crefUndef {
			confl = s.propagateLeq(p)
		}
	}
	s.Stats.Propagations += uint64(numProps)
	s.simpDBProps -= int64(numProps)
	return confl
}

// propagateLeq updates the status counters of every LEQ constraint watching
// the newly assigned variable and fires whatever the updated counts imply:
// the destination literal, the remaining undecided literals, or a conflict.
func (s *Solver) propagateLeq(newFact Literal) cref {
	factIsTrue := !newFact.Sign()

	ws := s.leqWatches.occs[newFact.VarID()]
	for idx := 0; idx < len(ws); idx++ {
		watch := ws[idx]
		ref := watch.statusRef()
		st := s.ca.status(ref)
		if st.implyType() != implyNone {
			// Already used for an implication at this or an earlier level.
			continue
		}

		// Whether this assignment makes the watched clause literal true.
		isTrue := factIsTrue != watch.sign
		log := leqStatusModLog{statusRef: ref, isTrue: isTrue}
		st = st.incr(isTrue)
		s.ca.setStatus(ref, st)

		nrTrue := st.nrTrue()
		nrFalse := st.nrDecided() - nrTrue
		boundTrue := watch.boundTrue()
		boundFalse := watch.boundFalse()

		if nrTrue < boundTrue-1 && nrFalse < boundFalse-1 {
			// Nothing can be implied.
			s.trailLeqStat = append(s.trailLeqStat, log)
			continue
		}

		cr := watch.cref
		c := s.ca.clause(cr)
		dst := c.LeqDst()

		setupImply := func(precondIsTrue bool, typ uint32) {
			cur := s.ca.status(ref)
			s.ca.setStatus(ref, cur.withImply(precondIsTrue, typ))
			log.implyTypeClear = true
		}
		conflict := func(precondIsTrue bool) cref {
			setupImply(precondIsTrue, implyConfl)
			s.trailLeqStat = append(s.trailLeqStat, log)
			s.qhead = len(s.trail)
			return cr
		}

		if dv := s.LitValue(dst); dv.IsAssigned() {
			// The truth value of the LEQ is known; try to imply literals.
			if dv == True {
				if nrTrue >= boundTrue {
					// The LEQ is violated but dst says it holds.
					s.selectKnownLits(c, nrTrue, true)
					return conflict(true)
				}
				if nrTrue == boundTrue-1 {
					if s.selectKnownAndImplyUnknown(cr, c, nrTrue, true) {
						setupImply(true, implyLits)
					} else {
						// A literal of the constraint is already true but
						// still sits unprocessed in the queue; journal the
						// extra count before reporting the conflict.
						s.ca.setStatus(ref, s.ca.status(ref).incr(true))
						extra := log
						extra.isTrue = true
						s.trailLeqStat = append(s.trailLeqStat, extra)
						return conflict(true)
					}
				}
			} else {
				if nrFalse >= boundFalse {
					// The LEQ holds but dst says it does not.
					s.selectKnownLits(c, nrFalse, false)
					return conflict(false)
				}
				if nrFalse == boundFalse-1 {
					if s.selectKnownAndImplyUnknown(cr, c, nrFalse, false) {
						setupImply(false, implyLits)
					} else {
						s.ca.setStatus(ref, s.ca.status(ref).incr(false))
						extra := log
						extra.isTrue = false
						s.trailLeqStat = append(s.trailLeqStat, extra)
						return conflict(false)
					}
				}
			}
		} else {
			// dst is unknown; try to imply it.
			if nrTrue >= boundTrue {
				s.selectKnownLits(c, nrTrue, true)
				s.uncheckedEnqueue(dst.Opposite(), cr)
				setupImply(true, implyDst)
			} else if nrFalse >= boundFalse {
				s.selectKnownLits(c, nrFalse, false)
				s.uncheckedEnqueue(dst, cr)
				setupImply(false, implyDst)
			}
		}

		s.trailLeqStat = append(s.trailLeqStat, log)
	}
	return crefUndef
}

// selectKnownLits rearranges the constraint's literals so that the first
// num positions hold exactly the literals currently valued selTrue. The
// conflict analyzer consumes this ordering to enumerate antecedents.
func (s *Solver) selectKnownLits(c clause, num int, selTrue bool) {
	for i, j := 0, c.Len()-1; i < num; {
		if s.LitValue(c.Get(i)).Is(selTrue) {
			i++
			continue
		}
		for s.LitValue(c.Get(j)).Is(!selTrue) {
			j--
		}
		c.swap(i, j)
		j--
	}
}

// selectKnownAndImplyUnknown partitions the nrKnown literals valued selTrue
// to the front of the constraint and enqueues the negated side for every
// undecided literal. It reports false when it runs into more selTrue-valued
// literals than the status counters know about (an assignment still in the
// propagation queue); in that case the speculative enqueues are rolled back
// and the caller must treat the constraint as conflicting.
func (s *Solver) selectKnownAndImplyUnknown(cr cref, c clause, nrKnown int, selTrue bool) bool {
	origTop := len(s.trail)
	i, j := 0, c.Len()-1
	// c[0:i] hold the selTrue literals, c[j+1:] the others.
	for i <= j && i <= nrKnown {
		q := c.Get(i)
		v := s.LitValue(q)
		if v.IsAssigned() {
			if v.Is(selTrue) {
				i++
				continue
			}
		} else {
			s.uncheckedEnqueue(q.Xor(selTrue), cr)
		}
		c.swap(i, j)
		j--
	}
	if i > nrKnown {
		s.dequeueUntil(origTop)
		return false
	}
	return true
}
