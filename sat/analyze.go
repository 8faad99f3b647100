package sat

// abstractLevel maps a variable's decision level to one bit of a 32-bit
// mask, used to abort redundancy checks early.
func (s *Solver) abstractLevel(x Var) uint32 {
	return 1 << (uint32(s.level(x)) & 31)
}

// analyze performs 1-UIP conflict analysis on the conflicting clause and
// returns the learnt clause together with the level to backtrack to. The
// first literal of the learnt clause is the asserting literal; if the
// clause has more than one literal, the second one is assigned at the
// backtrack level.
//
// The returned slice is owned by the solver and only valid until the next
// call.
func (s *Solver) analyze(confl cref) ([]Literal, int, error) {
	pathC := 0
	p := LitUndef
	learnt := s.analyzeBuf[:0]
	learnt = append(learnt, LitUndef) // room for the asserting literal
	index := len(s.trail) - 1

	// addAntecedent visits literal q of the clause that implied the current
	// node. Antecedents at the conflict level are counted and resolved
	// later by walking the trail; antecedents from lower levels go straight
	// into the learnt clause.
	addAntecedent := func(q Literal) {
		v := q.VarID()
		if s.seen[v] || s.level(v) <= 0 {
			return
		}
		s.varBumpActivity(v)
		s.seen[v] = true
		if s.level(v) >= s.decisionLevel() {
			pathC++
		} else {
			learnt = append(learnt, q)
		}
	}

	for {
		c := s.ca.clause(confl)

		if c.IsLeq() {
			// The antecedents of a LEQ implication are the literals of the
			// side that fired, partitioned to the front by the propagator,
			// plus the destination literal unless it was the implied one.
			st := c.status()
			isTrue := st.precondIsTrue()
			size := st.nrTrue()
			if !isTrue {
				size = st.nrDecided() - st.nrTrue()
			}
			for i := 0; i < size; i++ {
				addAntecedent(c.Get(i).Xor(isTrue))
			}
			if st.implyType() != implyDst {
				addAntecedent(c.LeqDst().Xor(isTrue))
			}
		} else {
			if c.Learnt() {
				s.claBumpActivity(c)
			}
			start := 1
			if p == LitUndef {
				start = 0
			}
			for j := start; j < c.Len(); j++ {
				// c[0] is the implied literal except on the first iteration.
				addAntecedent(c.Get(j))
			}
		}

		// Select the next clause to look at.
		for !s.seen[s.trail[index].VarID()] {
			index--
		}
		p = s.trail[index]
		index--
		confl = s.reason(p.VarID())
		s.seen[p.VarID()] = false
		pathC--
		if pathC <= 0 {
			break
		}
	}
	learnt[0] = p.Opposite()

	// Minimize the conflict clause.
	s.analyzeToClear = append(s.analyzeToClear[:0], learnt...)
	switch s.opts.CcminMode {
	case 2:
		var levels uint32
		for i := 1; i < len(learnt); i++ {
			levels |= s.abstractLevel(learnt[i].VarID())
		}
		j := 1
		for i := 1; i < len(learnt); i++ {
			if s.reason(learnt[i].VarID()) == crefUndef || !s.litRedundant(learnt[i], levels) {
				learnt[j] = learnt[i]
				j++
			}
		}
		learnt = learnt[:j]
	case 1:
		j := 1
		for i := 1; i < len(learnt); i++ {
			x := learnt[i].VarID()
			r := s.reason(x)
			if r == crefUndef {
				learnt[j] = learnt[i]
				j++
				continue
			}
			c := s.ca.clause(r)
			if c.IsLeq() {
				return nil, 0, ErrLeqCcmin
			}
			for k := 1; k < c.Len(); k++ {
				if v := c.Get(k).VarID(); !s.seen[v] && s.level(v) > 0 {
					learnt[j] = learnt[i]
					j++
					break
				}
			}
		}
		learnt = learnt[:j]
	}

	s.Stats.MaxLiterals += uint64(len(s.analyzeToClear))
	s.Stats.TotLiterals += uint64(len(learnt))

	// Find the backtrack level: the highest level among the non-asserting
	// literals, whose literal is swapped to index 1.
	btLevel := 0
	if len(learnt) > 1 {
		maxI := 1
		for i := 2; i < len(learnt); i++ {
			if s.level(learnt[i].VarID()) > s.level(learnt[maxI].VarID()) {
				maxI = i
			}
		}
		learnt[maxI], learnt[1] = learnt[1], learnt[maxI]
		btLevel = s.level(learnt[1].VarID())
	}

	for _, l := range s.analyzeToClear {
		s.seen[l.VarID()] = false
	}
	s.analyzeBuf = learnt
	return learnt, btLevel, nil
}

// litRedundant checks whether p can be dropped from the learnt clause: it
// is redundant if the already-seen literals form a cut that implies it. The
// DFS over reason antecedents aborts as soon as it reaches a decision or a
// level outside abstractLevels, rolling back the seen marks it pushed.
func (s *Solver) litRedundant(p Literal, abstractLevels uint32) bool {
	s.analyzeStack = append(s.analyzeStack[:0], p)
	top := len(s.analyzeToClear)

	addAntecedent := func(q Literal) bool {
		v := q.VarID()
		if s.seen[v] || s.level(v) <= 0 {
			return true
		}
		if s.reason(v) != crefUndef && s.abstractLevel(v)&abstractLevels != 0 {
			s.seen[v] = true
			s.analyzeStack = append(s.analyzeStack, q)
			s.analyzeToClear = append(s.analyzeToClear, q)
			return true
		}
		for i := top; i < len(s.analyzeToClear); i++ {
			s.seen[s.analyzeToClear[i].VarID()] = false
		}
		s.analyzeToClear = s.analyzeToClear[:top]
		return false
	}

	for len(s.analyzeStack) > 0 {
		last := s.analyzeStack[len(s.analyzeStack)-1]
		s.analyzeStack = s.analyzeStack[:len(s.analyzeStack)-1]
		c := s.ca.clause(s.reason(last.VarID()))

		if c.IsLeq() {
			st := c.status()
			isTrue := st.precondIsTrue()
			size := st.nrTrue()
			if !isTrue {
				size = st.nrDecided() - st.nrTrue()
			}
			for i := 0; i < size; i++ {
				if !addAntecedent(c.Get(i).Xor(isTrue)) {
					return false
				}
			}
			if st.implyType() != implyDst {
				if !addAntecedent(c.LeqDst().Xor(isTrue)) {
					return false
				}
			}
		} else {
			for i := 1; i < c.Len(); i++ {
				if !addAntecedent(c.Get(i)) {
					return false
				}
			}
		}
	}

	// The seen marks are kept: every visited literal is redundant and can
	// block other literals.
	return true
}

// analyzeFinal expresses the final conflict in terms of the assumptions:
// given a literal p that is false under the current assumptions, it stores
// in s.conflict the set of negated assumptions that led there.
func (s *Solver) analyzeFinal(p Literal) error {
	s.conflict = append(s.conflict[:0], p)
	if s.decisionLevel() == 0 {
		return nil
	}
	s.seen[p.VarID()] = true

	for i := len(s.trail) - 1; i >= int(s.trailLim[0].lit); i-- {
		x := s.trail[i].VarID()
		if !s.seen[x] {
			continue
		}
		if r := s.reason(x); r == crefUndef {
			s.conflict = append(s.conflict, s.trail[i].Opposite())
		} else {
			c := s.ca.clause(r)
			if c.IsLeq() {
				return ErrLeqAssumptions
			}
			for j := 1; j < c.Len(); j++ {
				if v := c.Get(j).VarID(); s.level(v) > 0 {
					s.seen[v] = true
				}
			}
		}
		s.seen[x] = false
	}

	s.seen[p.VarID()] = false
	return nil
}
