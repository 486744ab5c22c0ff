// Command fairness is the operator tool for fairness models: it verifies
// and hashes model files, rewrites them canonically, scores rounds and
// serves the scoring API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	urfave "github.com/urfave/cli/v3"

	"github.com/okian/fairness/internal/cli"
	"github.com/okian/fairness/internal/domain/dgbdt"
	"github.com/okian/fairness/internal/domain/model"
	"github.com/okian/fairness/internal/domain/selector"
	"github.com/okian/fairness/internal/integrity"
	"github.com/okian/fairness/pkg/metrics"
)

var version = "v0.0.1-default"

const (
	flagOutput          = "output"
	flagMetricsFile     = "metrics-file"
	flagMetricsTextfile = "metrics-textfile"
	flagTop             = "top"
	flagMaxBytes        = "max-bytes"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if err := newApp(stdin, stdout, stderr).Run(ctx, args); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *urfave.Command {
	return &urfave.Command{
		Name:           "fairness",
		Version:        version,
		Usage:          "operate fairness models and score validator rounds",
		Reader:         stdin,
		Writer:         stdout,
		ErrWriter:      stderr,
		ExitErrHandler: func(context.Context, *urfave.Command, error) {},
		Commands: []*urfave.Command{
			verifyCmd(stderr),
			hashCmd(),
			canonicalizeCmd(),
			scoreCmd(stdin, stderr),
			serveCmd(stderr),
		},
	}
}

func verifyCmd(logs io.Writer) *urfave.Command {
	return &urfave.Command{
		Name:  "verify",
		Usage: "run the integrity gate on the model against the pinned hash",
		Flags: append(cli.CommonFlags(), cli.FormatFlag()),
		Action: func(ctx context.Context, cmd *urfave.Command) error {
			format, err := cli.ParseFormat(cmd.String(cli.FlagFormat))
			if err != nil {
				return err
			}
			cfg, err := cli.LoadConfig(ctx, cmd, logs)
			if err != nil {
				return err
			}
			art, err := integrity.Load(ctx, cfg.ModelPath, cfg.ExpectedHash, integrity.WithMaxBytes(cfg.MaxModelBytes))
			if err != nil {
				return err
			}
			return cli.Encode(cmd.Root().Writer, format, map[string]any{
				"path":       art.Path,
				"model_hash": art.Hash,
				"bytes":      art.Size,
				"trees":      len(art.Model.Trees),
				"nodes":      art.Model.NodeCount(),
				"features":   art.Model.Features,
			})
		},
	}
}

func hashCmd() *urfave.Command {
	return &urfave.Command{
		Name:      "hash",
		Usage:     "print the BLAKE3-256 of each file's raw bytes",
		ArgsUsage: "FILE...",
		Flags: []urfave.Flag{
			&urfave.Int64Flag{Name: flagMaxBytes, Usage: "largest file to read", Value: integrity.DefaultMaxBytes},
		},
		Action: func(ctx context.Context, cmd *urfave.Command) error {
			if cmd.NArg() == 0 {
				return errors.New("hash: at least one file is required")
			}
			for _, path := range cmd.Args().Slice() {
				hash, _, err := integrity.HashFile(ctx, path, integrity.WithMaxBytes(cmd.Int64(flagMaxBytes)))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.Root().Writer, "%s  %s\n", hash, path)
			}
			return nil
		},
	}
}

func canonicalizeCmd() *urfave.Command {
	return &urfave.Command{
		Name:      "canonicalize",
		Usage:     "decode a model and write its canonical encoding",
		ArgsUsage: "FILE",
		Flags: []urfave.Flag{
			&urfave.StringFlag{Name: flagOutput, Aliases: []string{"o"}, Usage: "write to this file instead of stdout"},
		},
		Action: func(ctx context.Context, cmd *urfave.Command) error {
			if cmd.NArg() != 1 {
				return errors.New("canonicalize: exactly one file is required")
			}
			raw, err := os.ReadFile(cmd.Args().First())
			if err != nil {
				return err
			}
			m, err := dgbdt.Decode(raw)
			if err != nil {
				return err
			}
			out, err := dgbdt.Encode(m)
			if err != nil {
				return err
			}
			if path := cmd.String(flagOutput); path != "" {
				if err := os.WriteFile(path, out, 0o644); err != nil { //nolint:gosec // model files are public
					return err
				}
				fmt.Fprintf(cmd.Root().ErrWriter, "%s  %s\n", integrity.Digest(out), path)
				return nil
			}
			_, err = cmd.Root().Writer.Write(out)
			return err
		},
	}
}

func scoreCmd(stdin io.Reader, logs io.Writer) *urfave.Command {
	return &urfave.Command{
		Name:  "score",
		Usage: "score a JSON array of validator metrics and print the ranking",
		Flags: append(cli.CommonFlags(),
			cli.FormatFlag(),
			&urfave.StringFlag{Name: flagMetricsFile, Usage: "JSON array of validator metrics, - for stdin", Value: "-"},
			&urfave.IntFlag{Name: flagTop, Usage: "print only the first N ranked validators"},
			&urfave.StringFlag{Name: flagMetricsTextfile, Usage: "write Prometheus metrics to this file"},
		),
		Action: func(ctx context.Context, cmd *urfave.Command) error {
			format, err := cli.ParseFormat(cmd.String(cli.FlagFormat))
			if err != nil {
				return err
			}
			cfg, err := cli.LoadConfig(ctx, cmd, logs)
			if err != nil {
				return err
			}
			batch, err := readBatch(stdin, cmd.String(flagMetricsFile))
			if err != nil {
				return err
			}

			svc, err := cli.StartService(ctx, cfg)
			if err != nil {
				return err
			}
			defer svc.Stop()

			round, err := svc.ScoreRound(ctx, batch)
			if err != nil {
				return err
			}
			if n := cmd.Int(flagTop); n > 0 {
				if round.Ranking, err = selector.TopN(round.Ranking, min(n, len(round.Ranking))); err != nil {
					return err
				}
			}
			if err := cli.Encode(cmd.Root().Writer, format, round); err != nil {
				return err
			}

			path := cmd.String(flagMetricsTextfile)
			if path == "" {
				path = cfg.MetricsTextfile
			}
			if path != "" {
				return metrics.WriteTextfile(path)
			}
			return nil
		},
	}
}

func readBatch(stdin io.Reader, path string) ([]model.ValidatorMetrics, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read metrics: %w", err)
	}
	var batch []model.ValidatorMetrics
	if err := json.Unmarshal(raw, &batch); err != nil {
		return nil, fmt.Errorf("decode metrics: %w", err)
	}
	return batch, nil
}
