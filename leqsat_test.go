package main

import (
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/leqsat/leqsat/internal/dimacs"
	"github.com/leqsat/leqsat/parsers"
	"github.com/leqsat/leqsat/sat"
)

// This test suite verifies that the solver finds the exact set of models
// for each instance under testdata. Each test case consists of two files:
//
//   - An instance file with the ".cnf" extension, in DIMACS format possibly
//     extended with cardinality lines (`l1 ... lm <= k # d`).
//   - A models file with the ".cnf.models" extension holding one model per
//     line as DIMACS literals terminated by 0. The file is empty for
//     unsatisfiable instances.
var testdataDir = "testdata"

type testCase struct {
	instanceName string
	instanceFile string
	modelsFile   string
}

func listTestCases(dir string) ([]testCase, error) {
	testCases := []testCase{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".cnf") {
			return nil
		}
		testCases = append(testCases, testCase{
			instanceName: d.Name(),
			instanceFile: path,
			modelsFile:   path + ".models",
		})
		return nil
	})
	return testCases, err
}

// toString returns a binary string representation of the given model. For
// example, model [true, false, false] results in string "100".
func toString(model []bool) string {
	s := make([]byte, 0, len(model))
	for _, b := range model {
		if b {
			s = append(s, '1')
		} else {
			s = append(s, '0')
		}
	}
	return string(s)
}

func toSet(models [][]bool) map[string]struct{} {
	set := map[string]struct{}{}
	for _, m := range models {
		set[toString(m)] = struct{}{}
	}
	return set
}

// solveAll returns an unordered list of all the instance's models, blocking
// each found model with a new clause.
func solveAll(t *testing.T, s *sat.Solver) [][]bool {
	t.Helper()
	var models [][]bool
	for {
		status, err := s.Solve(nil)
		if err != nil {
			t.Fatalf("Solve: %s", err)
		}
		if status != sat.True {
			return models
		}
		model := make([]bool, s.NumVars())
		blocking := make([]sat.Literal, s.NumVars())
		for v, val := range s.Model() {
			model[v] = val == sat.True
			blocking[v] = sat.MkLiteral(sat.Var(v), model[v])
		}
		models = append(models, model)
		if !s.AddClause(blocking) {
			return models
		}
	}
}

func TestSolveAll(t *testing.T) {
	testCases, err := listTestCases(testdataDir)
	if err != nil {
		t.Fatalf("Error listing test cases: %s", err)
	}
	if len(testCases) == 0 {
		t.Fatal("no test cases found")
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.instanceName, func(t *testing.T) {
			t.Parallel()

			want, err := parsers.ReadModels(tc.modelsFile)
			if err != nil {
				t.Fatalf("Model parsing error: %s", err)
			}

			instance, err := dimacs.ParseFile(tc.instanceFile)
			if err != nil {
				t.Fatalf("Instance parsing error: %s", err)
			}
			s := sat.NewDefaultSolver()
			if err := dimacs.Instantiate(s, instance); err != nil {
				t.Fatalf("Instance loading error: %s", err)
			}

			got := solveAll(t, s)

			if len(got) != len(want) {
				t.Errorf("Incorrect number of models: got %d, want %d", len(got), len(want))
			}
			if !cmp.Equal(toSet(got), toSet(want)) {
				t.Errorf("Model mismatch: %s", cmp.Diff(toSet(want), toSet(got)))
			}
		})
	}
}

// TestLoadDIMACS loads a plain CNF instance through the dimacs-builder
// based loader.
func TestLoadDIMACS(t *testing.T) {
	s := sat.NewDefaultSolver()
	if err := parsers.LoadDIMACS(filepath.Join(testdataDir, "simple.cnf"), false, s); err != nil {
		t.Fatalf("LoadDIMACS: %s", err)
	}
	if s.NumVars() != 2 {
		t.Errorf("NumVars: got %d, want 2", s.NumVars())
	}
	status, err := s.Solve(nil)
	if err != nil {
		t.Fatalf("Solve: %s", err)
	}
	if status != sat.True {
		t.Errorf("status: got %s, want true", status)
	}
}
