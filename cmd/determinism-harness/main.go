// Command determinism-harness scores the fixed corpus and compares the
// digests with a stored per-architecture baseline.
//
// Exit codes: 0 success or match, 1 determinism violation, 2 any other
// failure including a missing baseline.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	urfave "github.com/urfave/cli/v3"

	"github.com/okian/fairness/internal/adapters/repository"
	"github.com/okian/fairness/internal/cli"
	"github.com/okian/fairness/internal/harness"
	"github.com/okian/fairness/pkg/logger"
)

// Exit codes.
const (
	exitOK        = 0
	exitViolation = 1
	exitError     = 2
)

const (
	flagBaselineDir  = "baseline-dir"
	flagSaveBaseline = "save-baseline"
	flagCompare      = "compare"
	flagOutput       = "output"
	flagCrossCheck   = "cross-check"
	flagCorpusSize   = "corpus-size"
	flagArch         = "arch"
)

// summary is what the harness prints.
type summary struct {
	Mode          string             `json:"mode"                 yaml:"mode"`
	Architecture  string             `json:"architecture"         yaml:"architecture"`
	CorpusVersion int                `json:"corpus_version"       yaml:"corpus_version"`
	VectorCount   int                `json:"vector_count"         yaml:"vector_count"`
	ModelHash     string             `json:"model_hash"           yaml:"model_hash"`
	Fingerprint   string             `json:"fingerprint"          yaml:"fingerprint"`
	FinalDigest   string             `json:"final_digest"         yaml:"final_digest"`
	Expected      string             `json:"expected_digest,omitempty" yaml:"expected_digest,omitempty"`
	Mismatches    []harness.Mismatch `json:"mismatches,omitempty" yaml:"mismatches,omitempty"`
	Results       any                `json:"results,omitempty"    yaml:"results,omitempty"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	err := newApp(stdout, stderr).Run(ctx, args)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, harness.ErrDeterminismViolation):
		fmt.Fprintln(stderr, "determinism violation:", err)
		return exitViolation
	default:
		fmt.Fprintln(stderr, "error:", err)
		return exitError
	}
}

func newApp(stdout, stderr io.Writer) *urfave.Command {
	return &urfave.Command{
		Name:           "determinism-harness",
		Usage:          "score the determinism corpus and check it against the baseline",
		Writer:         stdout,
		ErrWriter:      stderr,
		ExitErrHandler: func(context.Context, *urfave.Command, error) {},
		Flags: append(cli.CommonFlags(),
			cli.FormatFlag(),
			&urfave.StringFlag{Name: flagBaselineDir, Usage: "directory of per-architecture baselines"},
			&urfave.BoolFlag{Name: flagSaveBaseline, Usage: "store this run as the baseline"},
			&urfave.BoolFlag{Name: flagCompare, Usage: "compare this run with the stored baseline"},
			&urfave.StringFlag{Name: flagOutput, Aliases: []string{"o"}, Usage: "write the report to this file"},
			&urfave.BoolFlag{Name: flagCrossCheck, Usage: "also score through an independent parallel pipeline"},
			&urfave.IntFlag{Name: flagCorpusSize, Usage: "number of corpus vectors"},
			&urfave.StringFlag{Name: flagArch, Usage: "baseline key, defaults to GOOS-GOARCH"},
		),
		Action: action(stderr),
	}
}

func action(logs io.Writer) urfave.ActionFunc {
	return func(ctx context.Context, cmd *urfave.Command) error {
		if cmd.Bool(flagSaveBaseline) && cmd.Bool(flagCompare) {
			return errors.New("--save-baseline and --compare are exclusive")
		}
		format, err := cli.ParseFormat(cmd.String(cli.FlagFormat))
		if err != nil {
			return err
		}
		cfg, err := cli.LoadConfig(ctx, cmd, logs)
		if err != nil {
			return err
		}
		if cmd.IsSet(flagBaselineDir) {
			cfg.BaselineDir = cmd.String(flagBaselineDir)
		}
		if cmd.IsSet(flagCorpusSize) {
			cfg.CorpusSize = cmd.Int(flagCorpusSize)
		}

		svc, err := cli.StartService(ctx, cfg)
		if err != nil {
			return err
		}
		defer svc.Stop()

		opts := []harness.Option{
			harness.WithCorpus(cfg.CorpusVersion, cfg.CorpusSize),
			harness.WithArchitecture(cmd.String(flagArch)),
			harness.WithLogger(logger.Named("harness")),
		}
		if cmd.Bool(flagCrossCheck) {
			opts = append(opts, harness.WithCrossCheck(harness.NewParallelPipeline(svc.Fairness(), cfg.WorkerCount)))
		}
		h := harness.New(svc, repository.NewFileStore(cfg.BaselineDir), opts...)

		mode := harness.ModeRun
		runner := h.Run
		switch {
		case cmd.Bool(flagSaveBaseline):
			mode, runner = harness.ModeSave, h.SaveBaseline
		case cmd.Bool(flagCompare):
			mode, runner = harness.ModeCompare, h.Compare
		}

		report, runErr := runner(ctx)
		if runErr != nil && !errors.Is(runErr, harness.ErrDeterminismViolation) {
			return runErr
		}
		out := summary{
			Mode:          mode,
			Architecture:  h.Architecture(),
			CorpusVersion: report.CorpusVersion,
			VectorCount:   report.VectorCount,
			ModelHash:     report.ModelHash,
			Fingerprint:   report.Fingerprint,
			FinalDigest:   report.FinalDigest,
			Results:       report.Results,
		}
		var v *harness.DeterminismViolation
		if errors.As(runErr, &v) {
			out.Expected = v.Expected.FinalDigest
			out.Mismatches = v.Mismatches
		}
		if err := write(cmd, format, out); err != nil {
			return err
		}
		return runErr
	}
}

func write(cmd *urfave.Command, format string, out summary) error { //nolint:gocritic // hugeParam: written once
	path := cmd.String(flagOutput)
	if path == "" {
		return cli.Encode(cmd.Root().Writer, format, out)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := cli.Encode(f, format, out); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
