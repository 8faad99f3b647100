package sat

import (
	"math"

	"github.com/sirupsen/logrus"
)

// luby returns the x'th element of the Luby restart sequence
// (1 1 2 1 1 2 4 1 1 2 1 1 2 4 8 ...) scaled as powers of y.
func luby(y float64, x int) float64 {
	// Find the finite subsequence that contains index x and its size.
	size, seq := 1, 0
	for size < x+1 {
		seq++
		size = 2*size + 1
	}
	for size-1 != x {
		size = (size - 1) >> 1
		seq--
		x = x % size
	}
	return math.Pow(y, float64(seq))
}

// pickBranchLit selects the next decision literal, or LitUndef if every
// decision variable is assigned.
func (s *Solver) pickBranchLit() Literal {
	next := VarUndef

	// Random decision.
	if s.opts.RandomVarFreq > 0 && !s.order.empty() && s.rng.Float64() < s.opts.RandomVarFreq {
		next = s.order.at(s.rng.Intn(s.order.len()))
		if s.VarValue(next) == Unknown && s.decision[next] {
			s.Stats.RndDecisions++
		}
	}

	// Activity based decision.
	for next == VarUndef || s.VarValue(next) != Unknown || !s.decision[next] {
		if s.order.empty() {
			next = VarUndef
			break
		}
		next = s.order.removeMin()
	}

	if next == VarUndef {
		return LitUndef
	}
	if s.opts.RandomPolarity {
		return MkLiteral(next, s.rng.Intn(2) == 0)
	}
	return MkLiteral(next, s.polarity[next])
}

// SetConfBudget bounds the number of conflicts the next Solve calls may
// spend, counted from now. A value <= 0 removes the bound.
func (s *Solver) SetConfBudget(n int64) {
	if n <= 0 {
		s.conflictBudget = 0
		return
	}
	s.conflictBudget = int64(s.Stats.Conflicts) + n
}

// SetPropBudget bounds the number of propagations the next Solve calls may
// spend, counted from now. A value <= 0 removes the bound.
func (s *Solver) SetPropBudget(n int64) {
	if n <= 0 {
		s.propagationBudget = 0
		return
	}
	s.propagationBudget = int64(s.Stats.Propagations) + n
}

// Interrupt asks the solver to abandon the current Solve call as soon as
// possible, returning Unknown. It is the only method safe to call from
// another goroutine.
func (s *Solver) Interrupt() { s.interrupted.Store(true) }

// ClearInterrupt resets the interrupt flag.
func (s *Solver) ClearInterrupt() { s.interrupted.Store(false) }

func (s *Solver) withinBudget() bool {
	return !s.interrupted.Load() &&
		(s.conflictBudget <= 0 || int64(s.Stats.Conflicts) < s.conflictBudget) &&
		(s.propagationBudget <= 0 || int64(s.Stats.Propagations) < s.propagationBudget)
}

// progressEstimate computes a search progress estimate in [0, 1] from how
// densely the lower decision levels are assigned.
func (s *Solver) progressEstimate() float64 {
	progress := 0.0
	f := 1.0 / float64(s.NumVars())
	for i := 0; i <= s.decisionLevel(); i++ {
		beg := 0
		if i > 0 {
			beg = int(s.trailLim[i-1].lit)
		}
		end := len(s.trail)
		if i < s.decisionLevel() {
			end = int(s.trailLim[i].lit)
		}
		progress += math.Pow(f, float64(i)) * float64(end-beg)
	}
	return progress / float64(s.NumVars())
}

// search runs one search episode of at most nofConflicts conflicts
// (negative means no bound). It returns True if a model was found, False if
// the problem is unsatisfiable, and Unknown if the episode ended on its
// conflict budget, the solver budgets, or an interrupt.
func (s *Solver) search(nofConflicts int) (LBool, error) {
	if !s.ok {
		panic("sat: search on a contradictory solver")
	}
	conflictC := 0
	s.Stats.Starts++

	for {
		if confl := s.propagate(); confl != crefUndef {
			// Conflict.
			s.Stats.Conflicts++
			conflictC++
			if s.decisionLevel() == 0 {
				return False, nil
			}

			learnt, btLevel, err := s.analyze(confl)
			if err != nil {
				return Unknown, err
			}
			s.cancelUntil(btLevel)

			if len(learnt) == 1 {
				s.uncheckedEnqueue(learnt[0], crefUndef)
			} else {
				cr := s.ca.allocClause(learnt, true)
				s.learnts = append(s.learnts, cr)
				s.attachClause(cr)
				s.claBumpActivity(s.ca.clause(cr))
				s.uncheckedEnqueue(learnt[0], cr)
			}

			s.varDecayActivity()
			s.claDecayActivity()

			s.learntsizeAdjustCnt--
			if s.learntsizeAdjustCnt == 0 {
				s.learntsizeAdjustConf *= learntsizeAdjustInc
				s.learntsizeAdjustCnt = int(s.learntsizeAdjustConf)
				s.maxLearnts *= learntsizeInc

				if s.opts.Verbosity >= 1 {
					s.logger.WithFields(logrus.Fields{
						"conflicts":  s.Stats.Conflicts,
						"vars":       s.Stats.DecVars - s.rootAssigns(),
						"clauses":    s.NumClauses(),
						"maxLearnts": int(s.maxLearnts),
						"learnts":    s.NumLearnts(),
						"progress":   s.progressEstimate(),
					}).Info("search status")
				}
			}
			continue
		}

		// No conflict.
		if (nofConflicts >= 0 && conflictC >= nofConflicts) || !s.withinBudget() {
			// Reached the bound on the number of conflicts.
			s.progress = s.progressEstimate()
			s.cancelUntil(0)
			return Unknown, nil
		}

		// Simplify the set of problem clauses.
		if s.decisionLevel() == 0 && !s.Simplify() {
			return False, nil
		}

		if float64(len(s.learnts)-s.NumAssigns()) >= s.maxLearnts {
			s.reduceDB()
		}

		next := LitUndef
		for s.decisionLevel() < len(s.assumptions) {
			// Perform a user provided assumption.
			p := s.assumptions[s.decisionLevel()]
			switch s.LitValue(p) {
			case True:
				// Dummy decision level.
				s.newDecisionLevel()
			case False:
				if err := s.analyzeFinal(p.Opposite()); err != nil {
					return Unknown, err
				}
				return False, nil
			default:
				next = p
			}
			if next != LitUndef {
				break
			}
		}

		if next == LitUndef {
			// New variable decision.
			s.Stats.Decisions++
			next = s.pickBranchLit()
			if next == LitUndef {
				// Model found.
				return True, nil
			}
		}

		s.newDecisionLevel()
		s.uncheckedEnqueue(next, crefUndef)
	}
}

// rootAssigns returns the number of literals assigned at level 0.
func (s *Solver) rootAssigns() int {
	if len(s.trailLim) == 0 {
		return len(s.trail)
	}
	return int(s.trailLim[0].lit)
}

// Solve searches for a model under the given assumptions. It returns True
// with a model available through Model, False when the problem is
// unsatisfiable (with Conflict populated if the assumptions are to blame),
// or Unknown when a budget was exhausted or the solver was interrupted.
func (s *Solver) Solve(assumptions []Literal) (LBool, error) {
	s.model = s.model[:0]
	s.conflict = s.conflict[:0]
	if !s.ok {
		return False, nil
	}
	s.assumptions = append(s.assumptions[:0], assumptions...)

	if s.opts.Verbosity > 0 {
		s.logger.WithFields(logrus.Fields{
			"vars":    s.NumVars(),
			"clauses": s.NumClauses(),
		}).Info("solving")
	}

	// Start with top level unit propagation.
	if !s.Simplify() {
		return False, nil
	}

	s.Stats.Solves++
	s.maxLearnts = float64(s.NumClauses()) * learntsizeFactor
	s.learntsizeAdjustConf = learntsizeAdjustStartConf
	s.learntsizeAdjustCnt = learntsizeAdjustStartConf

	status := Unknown
	for curr := 0; status == Unknown; curr++ {
		restBase := math.Pow(s.opts.RestartInc, float64(curr))
		if s.opts.LubyRestart {
			restBase = luby(s.opts.RestartInc, curr)
		}
		var err error
		status, err = s.search(int(restBase * float64(s.opts.RestartFirst)))
		if err != nil {
			s.cancelUntil(0)
			return Unknown, err
		}
		if !s.withinBudget() {
			break
		}
	}

	if status == True {
		// Extend and copy the model.
		s.model = append(s.model[:0], s.assigns...)
	} else if status == False && len(s.conflict) == 0 {
		s.ok = false
	}

	s.cancelUntil(0)
	if s.opts.Verbosity > 0 {
		s.logger.WithFields(logrus.Fields{
			"status":       status,
			"starts":       s.Stats.Starts,
			"conflicts":    s.Stats.Conflicts,
			"decisions":    s.Stats.Decisions,
			"propagations": s.Stats.Propagations,
		}).Info("search finished")
	}
	return status, nil
}
