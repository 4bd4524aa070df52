// Command refsim runs longitudinal stock-flow simulations of refrigerant
// substances under a declarative program of applications, substances,
// policies, and simulations.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/example/refsim/internal/config"
	"github.com/example/refsim/internal/logging"
	"github.com/example/refsim/internal/program"
	"github.com/example/refsim/internal/result"
	"github.com/example/refsim/internal/resultio"
	"github.com/example/refsim/internal/simerr"
	"github.com/example/refsim/internal/telemetry"
	"github.com/example/refsim/internal/trial"
)

// version is the CLI's semantic version string.
const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "refsim: config error: %v\n", err)
		os.Exit(2)
	}

	logger := logging.New(logging.Config{
		Level:       parseLevel(cfg.LogLevel),
		Format:      logging.Format(cfg.LogFormat),
		AddSource:   cfg.LogSource,
		Environment: cfg.Env,
	})

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: refsim <validate|run|version> [args]")
		os.Exit(1)
	}

	var runErr error
	switch os.Args[1] {
	case "validate":
		runErr = runValidate(os.Args[2:])
	case "run":
		runErr = runSimulate(logger, cfg, os.Args[2:])
	case "version":
		fmt.Println(version)
		return
	default:
		fmt.Fprintf(os.Stderr, "refsim: unknown command %q\n", os.Args[1])
		os.Exit(1)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "refsim: %v\n", runErr)
		os.Exit(simerr.ExitCode(kindOf(runErr)))
	}
}

func runValidate(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: refsim validate <program-file>")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open program file: %w", err)
	}
	defer f.Close()

	if _, err := program.Decode(f); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func runSimulate(logger *slog.Logger, cfg config.Config, args []string) error {
	flags, err := parseRunFlags(cfg, args)
	if err != nil {
		return err
	}

	f, err := os.Open(flags.programFile)
	if err != nil {
		return fmt.Errorf("open program file: %w", err)
	}
	prog, err := program.Decode(f)
	f.Close()
	if err != nil {
		return err
	}

	var rec *telemetry.Recorder
	if cfg.EnableMetrics {
		rec = telemetry.NewRecorder()
	}
	runner := trial.NewRunner(logger, rec, flags.concurrency)

	var allRecords []result.Record
	for i := range prog.Simulations {
		sim := prog.Simulations[i]
		if flags.trials > 0 {
			sim.Trials = flags.trials
		}
		if flags.seed != nil {
			sim.Seed = flags.seed
		}

		outcomes := runner.Run(context.Background(), prog, sim)
		for _, o := range outcomes {
			if o.Err != nil {
				return o.Err
			}
			allRecords = append(allRecords, o.Records...)
		}
	}

	out := os.Stdout
	if flags.outputPath != "" {
		f, err := os.Create(flags.outputPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return resultio.WriteAll(out, allRecords)
}

type runFlags struct {
	programFile string
	outputPath  string
	trials      int
	seed        *int64
	concurrency int
}

// parseRunFlags implements `run [-o out.csv] [--trials N] [--seed S]
// <program-file>`. -o defaults to cfg.OutputPath and --seed to cfg.Seed
// (fs.Visit tells an omitted --seed from one passed as 0); --trials
// defaults to 0, which keeps each simulation's own trial count.
func parseRunFlags(cfg config.Config, args []string) (runFlags, error) {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	output := fs.String("o", cfg.OutputPath, "result CSV destination (default stdout)")
	trials := fs.Int("trials", 0, "override every simulation's trial count")
	seed := fs.Int64("seed", 0, "override every simulation's RNG seed")
	if err := fs.Parse(args); err != nil {
		return runFlags{}, err
	}
	if fs.NArg() != 1 {
		return runFlags{}, errors.New("usage: refsim run [-o out.csv] [--trials N] [--seed S] <program-file>")
	}

	flags := runFlags{
		programFile: fs.Arg(0),
		outputPath:  *output,
		trials:      *trials,
		seed:        cfg.Seed,
		concurrency: cfg.Concurrency,
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			v := *seed
			flags.seed = &v
		}
	})
	return flags, nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func kindOf(err error) simerr.Kind {
	var kinded simerr.Kinded
	if errors.As(err, &kinded) {
		return kinded.Kind()
	}
	return simerr.KindInternal
}
