// Package sat implements a conflict-driven clause-learning (CDCL) boolean
// satisfiability solver extended with reified cardinality constraints of the
// form (x1 + x2 + ... + xn <= k) <-> d, where d is a destination literal
// carrying the truth value of the constraint.
//
// Disjunction clauses are propagated with the classic two-watched-literal
// scheme; cardinality constraints are propagated with per-variable counters
// journaled for backtracking. All clauses live in a relocatable arena that
// is compacted by a garbage collector once enough of it is wasted.
package sat

import (
	"errors"
	"io"
	"math/rand"
	"sort"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var (
	// ErrLeqTooLarge is returned when a LEQ constraint cannot be
	// represented: either it has too many literals for the status block's
	// counters (see maxLeqSize), or its status block would fall outside the journal's 30-bit
	// reference space.
	ErrLeqTooLarge = errors.New("sat: LEQ constraint too large")

	// ErrLeqCcmin is returned when conflict clause minimization mode 1
	// encounters a LEQ constraint as a reason. This combination is not
	// implemented; use minimization mode 0 or 2 with LEQ constraints.
	ErrLeqCcmin = errors.New("sat: ccmin mode 1 with a LEQ reason is not implemented")

	// ErrLeqAssumptions is returned when the final conflict under
	// assumptions is derived through a LEQ constraint. Extracting
	// assumption cores across LEQ reasons is not implemented.
	ErrLeqAssumptions = errors.New("sat: assumption cores with LEQ reasons are not implemented")
)

// maxLeqSize bounds the literal count of a single LEQ constraint. The status
// block counts decided and true literals in statusCountBits (14) bits each,
// so the cap stays a few units below 1<<14.
const maxLeqSize = 1<<14 - 10

// Learnt database sizing, relative to the number of problem clauses.
const (
	learntsizeFactor          = 1.0 / 3.0
	learntsizeInc             = 1.1
	learntsizeAdjustStartConf = 100
	learntsizeAdjustInc       = 1.5
)

// Options configures a Solver.
type Options struct {
	VarDecay        float64 // variable activity decay factor
	ClauseDecay     float64 // clause activity decay factor
	RandomVarFreq   float64 // frequency of random decisions
	RandomSeed      int64   // seed of the random decision source
	CcminMode       int     // conflict clause minimization: 0=none, 1=basic, 2=deep
	PhaseSaving     int     // 0=none, 1=limited, 2=full
	RandomPolarity  bool    // pick a random polarity on decisions
	RandomInitAct   bool    // randomize initial variable activity
	LubyRestart     bool    // use the Luby restart sequence
	RestartFirst    int     // base restart interval, in conflicts
	RestartInc      float64 // restart interval increase factor
	GarbageFrac     float64 // wasted arena fraction triggering collection
	RemoveSatisfied bool    // remove satisfied original clauses at top level
	Verbosity       int
	Logger          logrus.FieldLogger
}

// DefaultOptions are the options used by NewDefaultSolver.
var DefaultOptions = Options{
	VarDecay:        0.95,
	ClauseDecay:     0.999,
	RandomVarFreq:   0,
	RandomSeed:      92702102,
	CcminMode:       2,
	PhaseSaving:     2,
	RandomPolarity:  false,
	RandomInitAct:   false,
	LubyRestart:     true,
	RestartFirst:    100,
	RestartInc:      2,
	GarbageFrac:     0.20,
	RemoveSatisfied: true,
}

// Stats are statistics about the resolution of the problem. They are
// provided for information purpose only.
type Stats struct {
	Solves       uint64
	Starts       uint64
	Decisions    uint64
	RndDecisions uint64
	Propagations uint64
	Conflicts    uint64

	DecVars         int
	ClausesLiterals uint64 // LEQ constraints count their destination too
	LearntsLiterals uint64
	MaxLiterals     uint64
	TotLiterals     uint64
}

// varData carries the implication reason and decision level of an assigned
// variable.
type varData struct {
	reason cref
	level  int32
}

// trailSep marks the start of a decision level, both in the literal trail
// and in the LEQ status journal.
type trailSep struct {
	lit int32
	leq int32
}

// leqStatusModLog records one increment of a LEQ status block so that
// backtracking can undo it. The status reference must fit in 30 bits.
type leqStatusModLog struct {
	statusRef      cref
	isTrue         bool
	implyTypeClear bool
}

// A Solver holds a problem and solves it. It is not safe for concurrent
// use; the only operation that may be called from another goroutine is
// Interrupt.
type Solver struct {
	opts   Options
	logger logrus.FieldLogger

	ok bool // false once a top-level contradiction was derived

	ca         arena
	clauses    []cref
	learnts    []cref
	watches    occList[watcher]    // one list per literal
	leqWatches occList[leqWatcher] // one list per variable

	assigns       []LBool
	vardata       []varData
	activity      []float64
	varPreference []int
	polarity      []bool
	decision      []bool
	seen          []bool

	trail        []Literal
	trailLim     []trailSep
	trailLeqStat []leqStatusModLog
	qhead        int

	order  varOrder
	varInc float64
	claInc float64

	assumptions []Literal
	model       []LBool
	conflict    []Literal

	simpDBAssigns int
	simpDBProps   int64

	maxLearnts           float64
	learntsizeAdjustConf float64
	learntsizeAdjustCnt  int

	progress float64
	rng      *rand.Rand

	conflictBudget    int64
	propagationBudget int64
	interrupted       atomic.Bool

	analyzeBuf     []Literal
	analyzeToClear []Literal
	analyzeStack   []Literal

	Stats Stats
}

// NewSolver returns a solver configured with the given options.
func NewSolver(opts Options) *Solver {
	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	s := &Solver{
		opts:          opts,
		logger:        logger,
		ok:            true,
		varInc:        1,
		claInc:        1,
		simpDBAssigns: -1,
		rng:           rand.New(rand.NewSource(opts.RandomSeed)),
	}
	s.watches.deleted = func(w watcher) bool { return s.ca.clause(w.cref).Mark() }
	s.leqWatches.deleted = func(w leqWatcher) bool { return s.ca.clause(w.cref).Mark() }
	s.order.solver = s
	return s
}

// NewDefaultSolver is equivalent to NewSolver(DefaultOptions).
func NewDefaultSolver() *Solver {
	return NewSolver(DefaultOptions)
}

// NewVar creates a new variable. polarity is the initial cached phase (true
// means the negative literal is preferred); decision controls whether the
// variable may be selected by the branching heuristic.
func (s *Solver) NewVar(polarity, decision bool) Var {
	v := Var(s.NumVars())
	s.watches.initKey(int(MkLiteral(v, true)))
	s.leqWatches.initKey(int(v))
	s.assigns = append(s.assigns, Unknown)
	s.vardata = append(s.vardata, varData{crefUndef, 0})
	act := 0.0
	if s.opts.RandomInitAct {
		act = s.rng.Float64() * 0.00001
	}
	s.activity = append(s.activity, act)
	s.varPreference = append(s.varPreference, 0)
	s.polarity = append(s.polarity, polarity)
	s.seen = append(s.seen, false)
	s.decision = append(s.decision, false)
	s.setDecisionVar(v, decision)
	return v
}

func (s *Solver) setDecisionVar(v Var, b bool) {
	if b && !s.decision[v] {
		s.Stats.DecVars++
	} else if !b && s.decision[v] {
		s.Stats.DecVars--
	}
	s.decision[v] = b
	s.insertVarOrder(v)
}

// SetVarPreference sets the secondary branching key of v: among variables
// of equal activity, higher preferences are decided first.
func (s *Solver) SetVarPreference(v Var, pref int) {
	s.varPreference[v] = pref
}

// NumVars returns the number of variables.
func (s *Solver) NumVars() int { return len(s.assigns) }

// NumClauses returns the number of original constraints.
func (s *Solver) NumClauses() int { return len(s.clauses) }

// NumLearnts returns the number of learnt clauses.
func (s *Solver) NumLearnts() int { return len(s.learnts) }

// NumAssigns returns the number of assigned variables.
func (s *Solver) NumAssigns() int { return len(s.trail) }

// Okay reports whether the solver is in a consistent state. It becomes
// false once a top-level contradiction is derived, and stays false.
func (s *Solver) Okay() bool { return s.ok }

// VarValue returns the current assignment of variable x.
func (s *Solver) VarValue(x Var) LBool { return s.assigns[x] }

// LitValue returns the current value of literal l.
func (s *Solver) LitValue(l Literal) LBool {
	v := s.assigns[l.VarID()]
	if l.Sign() {
		return v.Opposite()
	}
	return v
}

func (s *Solver) level(x Var) int { return int(s.vardata[x].level) }

func (s *Solver) reason(x Var) cref { return s.vardata[x].reason }

func (s *Solver) decisionLevel() int { return len(s.trailLim) }

// Model returns the assignment found by the last successful Solve, one
// entry per variable.
func (s *Solver) Model() []LBool { return s.model }

// Conflict returns the final conflict clause of the last Solve that failed
// under assumptions: a disjunction of negated assumptions.
func (s *Solver) Conflict() []Literal { return s.conflict }

// ProgressEstimate returns the search progress estimated by the last
// episode, in [0, 1].
func (s *Solver) ProgressEstimate() float64 { return s.progress }

// AddClause adds a disjunction clause over the given literals. Must be
// called at decision level 0. It reports false iff the solver detected a
// top-level contradiction.
func (s *Solver) AddClause(ps []Literal) bool {
	if s.decisionLevel() != 0 {
		panic("sat: AddClause called above the root level")
	}
	if !s.ok {
		return false
	}

	// Check if the clause is satisfied and remove false or duplicate
	// literals. Sorting places a literal and its negation side by side.
	sort.Slice(ps, func(i, j int) bool { return ps[i] < ps[j] })
	j := 0
	p := LitUndef
	for _, l := range ps {
		if s.LitValue(l) == True || l == p.Opposite() {
			return true
		}
		if s.LitValue(l) != False && l != p {
			ps[j] = l
			p = l
			j++
		}
	}
	ps = ps[:j]

	switch len(ps) {
	case 0:
		s.ok = false
		return false
	case 1:
		s.uncheckedEnqueue(ps[0], crefUndef)
		s.ok = s.propagate() == crefUndef
		return s.ok
	default:
		cr := s.ca.allocClause(ps, false)
		s.clauses = append(s.clauses, cr)
		s.attachClause(cr)
	}
	return true
}

func (s *Solver) addBinary(a, b Literal) bool {
	return s.AddClause([]Literal{a, b})
}

// AddLeqAssign adds the reified cardinality constraint
// (ps[0] + ... + ps[n-1] <= bound) <-> dst. Must be called at decision
// level 0. It reports false iff the solver detected a top-level
// contradiction, and returns an error if the constraint is too large to
// represent.
func (s *Solver) AddLeqAssign(ps []Literal, bound int, dst Literal) (bool, error) {
	if s.decisionLevel() != 0 {
		panic("sat: AddLeqAssign called above the root level")
	}
	if !s.ok {
		return false, nil
	}

	ps, bound = s.canonizeLeq(ps, bound)

	if res, handled := s.leqConstProp(ps, dst, bound); handled {
		return res, nil
	}
	if bound == 0 {
		// There are no watchers on dst, so the bound-zero case is expanded
		// into clauses: dst = 1 would have to imply every literal false.
		tmp := make([]Literal, len(ps))
		copy(tmp, ps)
		if !s.AddClause(append(ps, dst)) {
			return false, nil
		}
		for _, l := range tmp {
			if !s.addBinary(l.Opposite(), dst.Opposite()) {
				return false, nil
			}
		}
		return true, nil
	}
	if len(ps) == 1 {
		// The constraint degenerates to dst == !ps[0].
		a, b := dst, ps[0].Opposite()
		return s.addBinary(a.Opposite(), b) && s.addBinary(b.Opposite(), a), nil
	}

	if len(ps) >= maxLeqSize {
		return false, ErrLeqTooLarge
	}
	// The status block address must fit the journal's 30-bit reference.
	if s.ca.len()+1+len(ps)+leqStatusOffset >= 1<<30 {
		return false, ErrLeqTooLarge
	}

	s.addLeqWatchers(ps, dst, bound)
	return true, nil
}

// AddGeqAssign adds (ps[0] + ... + ps[n-1] >= bound) <-> dst, expressed as
// the equivalent LEQ over the negated literals.
func (s *Solver) AddGeqAssign(ps []Literal, bound int, dst Literal) (bool, error) {
	neg := make([]Literal, len(ps))
	for i, l := range ps {
		neg[i] = l.Opposite()
	}
	return s.AddLeqAssign(neg, len(ps)-bound, dst)
}

// canonizeLeq sorts the literals, drops assigned ones (reducing the bound
// for each dropped true literal), and cancels complementary pairs (each
// pair contributes exactly one to the sum, so the bound drops by one).
// Duplicate literals are kept; they are handled by attaching one watcher
// per occurrence.
func (s *Solver) canonizeLeq(ps []Literal, bound int) ([]Literal, int) {
	sort.Slice(ps, func(i, j int) bool { return ps[i] < ps[j] })
	j := 0
	p := LitUndef
	for _, l := range ps {
		if s.LitValue(l) == True {
			bound--
			continue
		}
		if s.LitValue(l) == False {
			continue
		}
		if p != LitUndef && l == p.Opposite() {
			j--
			bound--
			if j > 0 {
				p = ps[j-1]
			} else {
				p = LitUndef
			}
			continue
		}
		ps[j] = l
		p = l
		j++
	}
	return ps[:j], bound
}

// leqConstProp handles the degenerate bounds: if every assignment satisfies
// (or violates) the LEQ, the constraint reduces to a unit fact about dst.
// The second return value reports whether the constraint was handled here.
func (s *Solver) leqConstProp(ps []Literal, dst Literal, bound int) (bool, bool) {
	val := Unknown
	if len(ps) <= bound {
		val = True
	} else if bound < 0 {
		val = False
	}
	if val == Unknown {
		return true, false
	}
	switch s.LitValue(dst) {
	case Unknown:
		if val == True {
			s.uncheckedEnqueue(dst, crefUndef)
		} else {
			s.uncheckedEnqueue(dst.Opposite(), crefUndef)
		}
		s.ok = s.propagate() == crefUndef
		return s.ok, true
	case val:
		return true, true
	default:
		s.ok = false
		return false, true
	}
}

func (s *Solver) addLeqWatchers(ps []Literal, dst Literal, bound int) {
	cr := s.ca.allocLeq(ps, dst, bound)
	s.clauses = append(s.clauses, cr)
	for _, p := range ps {
		s.leqWatches.push(int(p.VarID()), leqWatcher{
			cref:  cr,
			bound: uint16(bound),
			size:  uint16(len(ps)),
			sign:  p.Sign(),
		})
	}
	s.Stats.ClausesLiterals += uint64(len(ps) + 1)
}

func (s *Solver) attachClause(cr cref) {
	c := s.ca.clause(cr)
	if c.Len() < 2 || c.IsLeq() {
		panic("sat: attachClause on invalid clause")
	}
	s.watches.push(int(c.Get(0).Opposite()), watcher{cr, c.Get(1)})
	s.watches.push(int(c.Get(1).Opposite()), watcher{cr, c.Get(0)})
	if c.Learnt() {
		s.Stats.LearntsLiterals += uint64(c.Len())
	} else {
		s.Stats.ClausesLiterals += uint64(c.Len())
	}
}

// detachClause removes the clause from its two watch lists. Detaching is
// lazy: the lists are smudged and filtered by the next cleanAll.
func (s *Solver) detachClause(cr cref) {
	c := s.ca.clause(cr)
	s.watches.smudge(int(c.Get(0).Opposite()))
	s.watches.smudge(int(c.Get(1).Opposite()))
	if c.Learnt() {
		s.Stats.LearntsLiterals -= uint64(c.Len())
	} else {
		s.Stats.ClausesLiterals -= uint64(c.Len())
	}
}

func (s *Solver) removeClause(cr cref) {
	c := s.ca.clause(cr)
	if c.IsLeq() {
		clearReason := func(v Var) {
			if s.vardata[v].reason == cr {
				s.vardata[v].reason = crefUndef
			}
		}
		for i := 0; i < c.Len(); i++ {
			v := c.Get(i).VarID()
			s.leqWatches.smudge(int(v))
			clearReason(v)
		}
		clearReason(c.LeqDst().VarID())
		s.Stats.ClausesLiterals -= uint64(c.Len() + 1)
	} else {
		s.detachClause(cr)
		if s.locked(c) {
			s.vardata[c.Get(0).VarID()].reason = crefUndef
		}
	}
	c.setMark()
	s.ca.free(cr)
}

// locked reports whether the disjunction clause is the reason of its first
// literal's assignment and therefore must not be deleted.
func (s *Solver) locked(c clause) bool {
	first := c.Get(0)
	return s.LitValue(first) == True && s.reason(first.VarID()) == c.cr
}

func (s *Solver) satisfied(c clause) bool {
	if c.IsLeq() {
		vdst := s.LitValue(c.LeqDst())
		if !vdst.IsAssigned() {
			return false
		}
		st := c.status()
		bound := c.LeqBound()
		var vleq bool
		switch {
		case st.nrTrue() >= bound+1:
			vleq = false
		case st.nrDecided()-st.nrTrue() >= c.Len()-bound:
			vleq = true
		default:
			return false
		}
		return vdst.Is(vleq)
	}
	for i := 0; i < c.Len(); i++ {
		if s.LitValue(c.Get(i)) == True {
			return true
		}
	}
	return false
}

// uncheckedEnqueue records a new fact on the trail. The literal must be
// unassigned.
func (s *Solver) uncheckedEnqueue(p Literal, from cref) {
	if s.LitValue(p) != Unknown {
		panic("sat: enqueue of an assigned literal")
	}
	v := p.VarID()
	s.assigns[v] = Lift(!p.Sign())
	s.vardata[v] = varData{from, int32(s.decisionLevel())}
	s.trail = append(s.trail, p)
}

// dequeueUntil unassigns every trail literal past targetSize. It is only
// used to roll back speculative enqueues within a single propagation step,
// so level and reason data need not be restored.
func (s *Solver) dequeueUntil(targetSize int) {
	for i := targetSize; i < len(s.trail); i++ {
		s.assigns[s.trail[i].VarID()] = Unknown
	}
	s.trail = s.trail[:targetSize]
}

func (s *Solver) newDecisionLevel() {
	s.trailLim = append(s.trailLim, trailSep{
		lit: int32(len(s.trail)),
		leq: int32(len(s.trailLeqStat)),
	})
}

// cancelUntil reverts the trail to the given decision level, unassigning
// variables and rewinding the LEQ status journal.
func (s *Solver) cancelUntil(level int) {
	if s.decisionLevel() <= level {
		return
	}
	sep := s.trailLim[level]
	for c := len(s.trail) - 1; c >= int(sep.lit); c-- {
		l := s.trail[c]
		x := l.VarID()
		s.assigns[x] = Unknown
		if s.opts.PhaseSaving > 1 ||
			(s.opts.PhaseSaving == 1 && c > int(s.trailLim[len(s.trailLim)-1].lit)) {
			s.polarity[x] = l.Sign()
		}
		s.insertVarOrder(x)
	}
	for i := len(s.trailLeqStat) - 1; i >= int(sep.leq); i-- {
		log := s.trailLeqStat[i]
		st := s.ca.status(log.statusRef)
		st = st.decr(log.isTrue)
		st = st.withImplyCleared(log.implyTypeClear)
		s.ca.setStatus(log.statusRef, st)
	}
	s.qhead = int(sep.lit)
	s.trail = s.trail[:sep.lit]
	s.trailLeqStat = s.trailLeqStat[:sep.leq]
	s.trailLim = s.trailLim[:level]
}

func (s *Solver) insertVarOrder(v Var) {
	if !s.order.contains(v) && s.decision[v] {
		s.order.insert(v)
	}
}

func (s *Solver) varDecayActivity() {
	s.varInc *= 1 / s.opts.VarDecay
}

func (s *Solver) varBumpActivity(v Var) {
	s.activity[v] += s.varInc
	if s.activity[v] > 1e100 {
		// Rescale to avoid overflow; proportions are preserved.
		for i := range s.activity {
			s.activity[i] *= 1e-100
		}
		s.varInc *= 1e-100
	}
	if s.order.contains(v) {
		s.order.decrease(v)
	}
}

func (s *Solver) claDecayActivity() {
	s.claInc *= 1 / s.opts.ClauseDecay
}

func (s *Solver) claBumpActivity(c clause) {
	act := c.Activity() + float32(s.claInc)
	c.setActivity(act)
	if act > 1e20 {
		for _, cr := range s.learnts {
			lc := s.ca.clause(cr)
			lc.setActivity(lc.Activity() * 1e-20)
		}
		s.claInc *= 1e-20
	}
}

func (s *Solver) rebuildOrderHeap() {
	vs := make([]Var, 0, s.NumVars())
	for v := Var(0); int(v) < s.NumVars(); v++ {
		if s.decision[v] && s.VarValue(v) == Unknown {
			vs = append(vs, v)
		}
	}
	s.order.build(vs)
}
