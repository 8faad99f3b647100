package main

import (
	"fmt"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/leqsat/leqsat/internal/dimacs"
	"github.com/leqsat/leqsat/sat"
)

var flags struct {
	verbosity    int
	varDecay     float64
	clauseDecay  float64
	rndFreq      float64
	rndSeed      int64
	ccminMode    int
	phaseSaving  int
	rndPol       bool
	rndInitAct   bool
	luby         bool
	restartFirst int
	restartInc   float64
	gcFrac       float64
	maxConflicts int64
	maxProps     int64
	cpuProfile   string
	memProfile   string
}

var rootCmd = &cobra.Command{
	Use:   "leqsat [flags] <instance.cnf>",
	Short: "CDCL SAT solver with reified cardinality constraints",
	Long: "leqsat solves DIMACS CNF instances, optionally extended with\n" +
		"reified cardinality constraints of the form `l1 ... lm <= k # d`.",
	Args:          cobra.ExactArgs(1),
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	fs := rootCmd.Flags()
	fs.IntVarP(&flags.verbosity, "verb", "v", 0, "verbosity level (0-2)")
	fs.Float64Var(&flags.varDecay, "var-decay", sat.DefaultOptions.VarDecay, "variable activity decay factor")
	fs.Float64Var(&flags.clauseDecay, "cla-decay", sat.DefaultOptions.ClauseDecay, "clause activity decay factor")
	fs.Float64Var(&flags.rndFreq, "rnd-freq", sat.DefaultOptions.RandomVarFreq, "frequency of random decisions")
	fs.Int64Var(&flags.rndSeed, "rnd-seed", sat.DefaultOptions.RandomSeed, "seed of the random decision source")
	fs.IntVar(&flags.ccminMode, "ccmin-mode", sat.DefaultOptions.CcminMode, "conflict clause minimization (0=none, 1=basic, 2=deep)")
	fs.IntVar(&flags.phaseSaving, "phase-saving", sat.DefaultOptions.PhaseSaving, "phase saving (0=none, 1=limited, 2=full)")
	fs.BoolVar(&flags.rndPol, "rnd-pol", false, "randomize the polarity for decisions")
	fs.BoolVar(&flags.rndInitAct, "rnd-init", false, "randomize initial activities")
	fs.BoolVar(&flags.luby, "luby", true, "use the Luby restart sequence")
	fs.IntVar(&flags.restartFirst, "rfirst", sat.DefaultOptions.RestartFirst, "base restart interval")
	fs.Float64Var(&flags.restartInc, "rinc", sat.DefaultOptions.RestartInc, "restart interval increase factor")
	fs.Float64Var(&flags.gcFrac, "gc-frac", sat.DefaultOptions.GarbageFrac, "wasted memory fraction triggering garbage collection")
	fs.Int64Var(&flags.maxConflicts, "max-conflicts", -1, "conflict budget (-1 = no budget)")
	fs.Int64Var(&flags.maxProps, "max-propagations", -1, "propagation budget (-1 = no budget)")
	fs.StringVar(&flags.cpuProfile, "cpuprof", "", "save a pprof CPU profile to the given file")
	fs.StringVar(&flags.memProfile, "memprof", "", "save a pprof memory profile to the given file")
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if flags.verbosity >= 2 {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func solverOptions(logger *logrus.Logger) sat.Options {
	opts := sat.DefaultOptions
	opts.VarDecay = flags.varDecay
	opts.ClauseDecay = flags.clauseDecay
	opts.RandomVarFreq = flags.rndFreq
	opts.RandomSeed = flags.rndSeed
	opts.CcminMode = flags.ccminMode
	opts.PhaseSaving = flags.phaseSaving
	opts.RandomPolarity = flags.rndPol
	opts.RandomInitAct = flags.rndInitAct
	opts.LubyRestart = flags.luby
	opts.RestartFirst = flags.restartFirst
	opts.RestartInc = flags.restartInc
	opts.GarbageFrac = flags.gcFrac
	opts.Verbosity = flags.verbosity
	opts.Logger = logger
	return opts
}

func run(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	if flags.cpuProfile != "" {
		f, err := os.Create(flags.cpuProfile)
		if err != nil {
			return err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	instance, err := dimacs.ParseFile(args[0])
	if err != nil {
		return fmt.Errorf("could not parse instance: %w", err)
	}

	s := sat.NewSolver(solverOptions(logger))
	if err := dimacs.Instantiate(s, instance); err != nil {
		return fmt.Errorf("could not load instance: %w", err)
	}
	if flags.maxConflicts >= 0 {
		s.SetConfBudget(flags.maxConflicts)
	}
	if flags.maxProps >= 0 {
		s.SetPropBudget(flags.maxProps)
	}

	logger.WithFields(logrus.Fields{
		"variables":   instance.Variables,
		"clauses":     len(instance.Clauses),
		"constraints": len(instance.Cards),
	}).Info("instance loaded")

	start := time.Now()
	status, err := s.Solve(nil)
	if err != nil {
		return err
	}
	logger.WithField("seconds", time.Since(start).Seconds()).Info("done")

	if flags.memProfile != "" {
		f, err := os.Create(flags.memProfile)
		if err != nil {
			return err
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			return err
		}
		f.Close()
	}

	switch status {
	case sat.True:
		fmt.Println("s SATISFIABLE")
		fmt.Println(modelLine(s.Model()))
		os.Exit(10)
	case sat.False:
		fmt.Println("s UNSATISFIABLE")
		os.Exit(20)
	default:
		fmt.Println("s INDETERMINATE")
	}
	return nil
}

func modelLine(model []sat.LBool) string {
	var sb strings.Builder
	sb.WriteString("v")
	for i, val := range model {
		if val == sat.False {
			fmt.Fprintf(&sb, " %d", -(i + 1))
		} else {
			fmt.Fprintf(&sb, " %d", i+1)
		}
	}
	sb.WriteString(" 0")
	return sb.String()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}
