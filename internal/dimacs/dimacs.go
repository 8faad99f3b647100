// Package dimacs parses DIMACS CNF instances extended with reified
// cardinality constraints. Besides regular clause lines, an instance may
// contain inequality lines of the form
//
//	l1 l2 ... lm <= k # d
//	l1 l2 ... lm >= k # d
//
// stating that d is true if and only if at most (resp. at least) k of the
// literals are true. Variables are created on demand up to the largest id
// seen, so the header's variable count is advisory.
package dimacs

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/leqsat/leqsat/sat"
)

// Card is a reified cardinality constraint over DIMACS literals.
type Card struct {
	Lits  []int
	Geq   bool // constraint is >= rather than <=
	Bound int
	Dst   int
}

// Instance is a parsed problem.
type Instance struct {
	Variables int // from the header, or the largest id seen if larger
	Clauses   [][]int
	Cards     []Card
	Comments  []string
}

// ParseFile parses the instance in the given file. Files ending in ".gz"
// are transparently decompressed.
func ParseFile(filename string) (*Instance, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var r io.Reader = file
	if strings.HasSuffix(filename, ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	return Parse(r)
}

// Parse parses an instance from r.
func Parse(r io.Reader) (*Instance, error) {
	instance := &Instance{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<16), 1<<24)
	sawHeader := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch line[0] {
		case '%': // end of instance
			return instance, scanner.Err()
		case 'c':
			instance.Comments = append(instance.Comments, line)
		case 'p':
			if sawHeader {
				// A second header line is treated as a comment.
				instance.Comments = append(instance.Comments, line)
				continue
			}
			if err := parseHeader(instance, line); err != nil {
				return nil, err
			}
			sawHeader = true
		default:
			if err := parseConstraint(instance, line); err != nil {
				return nil, err
			}
		}
	}
	return instance, scanner.Err()
}

func parseHeader(instance *Instance, line string) error {
	parts := strings.Fields(line)
	if len(parts) != 4 || parts[1] != "cnf" {
		return fmt.Errorf("invalid header line %q", line)
	}
	nVars, err := strconv.Atoi(parts[2])
	if err != nil {
		return fmt.Errorf("could not parse header: %w", err)
	}
	if _, err := strconv.Atoi(parts[3]); err != nil {
		return fmt.Errorf("could not parse header: %w", err)
	}
	instance.Variables = nVars
	return nil
}

func (instance *Instance) sawVar(l int) {
	if l < 0 {
		l = -l
	}
	if l > instance.Variables {
		instance.Variables = l
	}
}

func parseConstraint(instance *Instance, line string) error {
	fields := strings.Fields(line)
	lits := []int{}
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if f == "<=" || f == ">=" {
			card, err := parseCard(instance, lits, fields[i:])
			if err != nil {
				return fmt.Errorf("could not parse constraint %q: %w", line, err)
			}
			instance.Cards = append(instance.Cards, card)
			return nil
		}
		l, err := strconv.Atoi(f)
		if err != nil {
			return fmt.Errorf("could not parse clause %q: %w", line, err)
		}
		if l == 0 {
			break
		}
		instance.sawVar(l)
		lits = append(lits, l)
	}
	instance.Clauses = append(instance.Clauses, lits)
	return nil
}

// parseCard parses the tail of an inequality line: the operator, the bound,
// and the `# d` destination. The '#' may be glued to the destination.
func parseCard(instance *Instance, lits []int, fields []string) (Card, error) {
	card := Card{Lits: lits, Geq: fields[0] == ">="}
	rest := fields[1:]
	if len(rest) == 0 {
		return card, fmt.Errorf("missing bound")
	}
	bound, err := strconv.Atoi(rest[0])
	if err != nil {
		return card, fmt.Errorf("invalid bound %q", rest[0])
	}
	card.Bound = bound

	rest = rest[1:]
	var dstField string
	switch {
	case len(rest) == 2 && rest[0] == "#":
		dstField = rest[1]
	case len(rest) == 1 && strings.HasPrefix(rest[0], "#"):
		dstField = rest[0][1:]
	default:
		return card, fmt.Errorf("missing destination literal")
	}
	dst, err := strconv.Atoi(dstField)
	if err != nil || dst == 0 {
		return card, fmt.Errorf("invalid destination literal %q", dstField)
	}
	card.Dst = dst
	instance.sawVar(dst)
	return card, nil
}

// Instantiate adds the instance's variables and constraints to the solver.
func Instantiate(s *sat.Solver, instance *Instance) error {
	for s.NumVars() < instance.Variables {
		s.NewVar(true, true)
	}
	for _, c := range instance.Clauses {
		clause := make([]sat.Literal, len(c))
		for i, l := range c {
			clause[i] = sat.IntToLiteral(l)
		}
		s.AddClause(clause)
	}
	for _, card := range instance.Cards {
		lits := make([]sat.Literal, len(card.Lits))
		for i, l := range card.Lits {
			lits[i] = sat.IntToLiteral(l)
		}
		dst := sat.IntToLiteral(card.Dst)
		var err error
		if card.Geq {
			_, err = s.AddGeqAssign(lits, card.Bound, dst)
		} else {
			_, err = s.AddLeqAssign(lits, card.Bound, dst)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
