package sat

import (
	"bufio"
	"fmt"
	"io"
)

// dimacsVarMap renumbers variables densely as they are first used in the
// output.
type dimacsVarMap struct {
	m   []Var
	max Var
}

func (dm *dimacsVarMap) get(x Var) Var {
	for int(x) >= len(dm.m) {
		dm.m = append(dm.m, VarUndef)
	}
	if dm.m[x] == VarUndef {
		dm.m[x] = dm.max
		dm.max++
	}
	return dm.m[x]
}

func (dm *dimacsVarMap) lit(l Literal) int {
	v := int(dm.get(l.VarID())) + 1
	if l.Sign() {
		return -v
	}
	return v
}

// ToDimacs writes the solver's original constraints to w in the extended
// DIMACS format, with the given assumptions emitted as unit clauses.
// Variables are renumbered densely. Satisfied clauses are skipped and false
// literals are dropped from disjunctions; LEQ constraints are written in
// the `<= k # d` inequality syntax.
func (s *Solver) ToDimacs(w io.Writer, assumps []Literal) error {
	bw := bufio.NewWriter(w)

	// A contradictory solver is a trivially unsatisfiable formula.
	if !s.ok {
		if _, err := fmt.Fprintf(bw, "p cnf 1 2\n1 0\n-1 0\n"); err != nil {
			return err
		}
		return bw.Flush()
	}

	var dm dimacsVarMap
	cnt := 0
	for _, cr := range s.clauses {
		c := s.ca.clause(cr)
		if s.satisfied(c) {
			continue
		}
		cnt++
		if c.IsLeq() {
			for i := 0; i < c.Len(); i++ {
				dm.get(c.Get(i).VarID())
			}
			dm.get(c.LeqDst().VarID())
			continue
		}
		for i := 0; i < c.Len(); i++ {
			if s.LitValue(c.Get(i)) != False {
				dm.get(c.Get(i).VarID())
			}
		}
	}
	for _, a := range assumps {
		dm.get(a.VarID())
	}
	cnt += len(assumps)

	if _, err := fmt.Fprintf(bw, "p cnf %d %d\n", dm.max, cnt); err != nil {
		return err
	}

	// Assumptions become unit clauses.
	for _, a := range assumps {
		if _, err := fmt.Fprintf(bw, "%d 0\n", dm.lit(a)); err != nil {
			return err
		}
	}

	for _, cr := range s.clauses {
		c := s.ca.clause(cr)
		if s.satisfied(c) {
			continue
		}
		if c.IsLeq() {
			for i := 0; i < c.Len(); i++ {
				if _, err := fmt.Fprintf(bw, "%d ", dm.lit(c.Get(i))); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(bw, "<= %d # %d\n", c.LeqBound(), dm.lit(c.LeqDst())); err != nil {
				return err
			}
			continue
		}
		for i := 0; i < c.Len(); i++ {
			if s.LitValue(c.Get(i)) != False {
				if _, err := fmt.Fprintf(bw, "%d ", dm.lit(c.Get(i))); err != nil {
					return err
				}
			}
		}
		if _, err := fmt.Fprintf(bw, "0\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
