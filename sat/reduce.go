package sat

import "sort"

// reduceDB removes roughly half of the learnt clauses. Binary clauses and
// locked clauses (those acting as a reason) are kept; from the rest, the
// first half in activity order and any clause below the activity floor are
// deleted.
func (s *Solver) reduceDB() {
	extraLim := s.claInc / float64(len(s.learnts))

	sort.Slice(s.learnts, func(i, j int) bool {
		x := s.ca.clause(s.learnts[i])
		y := s.ca.clause(s.learnts[j])
		return x.Len() > 2 && (y.Len() == 2 || x.Activity() < y.Activity())
	})

	j := 0
	for i, cr := range s.learnts {
		c := s.ca.clause(cr)
		if c.Len() > 2 && !s.locked(c) &&
			(i < len(s.learnts)/2 || float64(c.Activity()) < extraLim) {
			s.removeClause(cr)
		} else {
			s.learnts[j] = cr
			j++
		}
	}
	s.learnts = s.learnts[:j]
	s.checkGarbage()
}

func (s *Solver) removeSatisfiedFrom(cs *[]cref) {
	clauses := *cs
	j := 0
	for _, cr := range clauses {
		if s.satisfied(s.ca.clause(cr)) {
			s.removeClause(cr)
		} else {
			clauses[j] = cr
			j++
		}
	}
	*cs = clauses[:j]
}

// Simplify simplifies the clause database according to the current
// top-level assignment: it propagates pending root facts and removes
// satisfied clauses. Must be called at decision level 0. It reports false
// iff the solver is, or became, contradictory.
func (s *Solver) Simplify() bool {
	if s.decisionLevel() != 0 {
		panic("sat: Simplify called above the root level")
	}
	if !s.ok || s.propagate() != crefUndef {
		s.ok = false
		return false
	}
	if s.NumAssigns() == s.simpDBAssigns || s.simpDBProps > 0 {
		return true
	}

	s.removeSatisfiedFrom(&s.learnts)
	if s.opts.RemoveSatisfied {
		s.removeSatisfiedFrom(&s.clauses)
		// The search will never backtrack below the root again, so the LEQ
		// journal can be dropped; this also keeps it from referencing
		// status blocks of removed constraints across the next collection.
		s.trailLeqStat = s.trailLeqStat[:0]
		s.leqWatches.cleanAll()
	}
	s.checkGarbage()
	s.rebuildOrderHeap()

	s.simpDBAssigns = s.NumAssigns()
	s.simpDBProps = int64(s.Stats.ClausesLiterals + s.Stats.LearntsLiterals)
	return true
}
