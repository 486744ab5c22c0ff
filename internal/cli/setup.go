package cli

import (
	"context"
	"io"

	urfave "github.com/urfave/cli/v3"

	service "github.com/okian/fairness/internal/app"
	"github.com/okian/fairness/internal/config"
	"github.com/okian/fairness/internal/integrity"
	"github.com/okian/fairness/pkg/logger"
)

// Flag names shared by the commands.
const (
	FlagModel        = "model"
	FlagExpectedHash = "expected-hash"
	FlagLogLevel     = "log-level"
	FlagLogFormat    = "log-format"
	FlagWorkers      = "workers"
	FlagFormat       = "format"
)

// CommonFlags are accepted by every command that loads a model. Unset
// flags leave the configured value in place.
func CommonFlags() []urfave.Flag {
	return []urfave.Flag{
		&urfave.StringFlag{Name: FlagModel, Usage: "path to the D-GBDT model file"},
		&urfave.StringFlag{Name: FlagExpectedHash, Usage: "pinned BLAKE3-256 of the model file (hex)"},
		&urfave.StringFlag{Name: FlagLogLevel, Usage: "debug, info, warn or error"},
		&urfave.StringFlag{Name: FlagLogFormat, Usage: "text or json"},
		&urfave.IntFlag{Name: FlagWorkers, Usage: "number of scoring workers"},
	}
}

// FormatFlag selects the output encoding.
func FormatFlag() urfave.Flag {
	return &urfave.StringFlag{Name: FlagFormat, Usage: "output format [json, yaml]", Value: FormatJSON}
}

// LoadConfig reads the layered configuration, applies the flags that were
// set and validates the result. It also initializes logging to logs.
func LoadConfig(ctx context.Context, cmd *urfave.Command, logs io.Writer) (*config.Config, error) {
	cfg, err := Reread(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logger.Init(logger.WithWriter(logs), logger.WithJSON(cfg.LogFormat == "json")); err != nil {
		return nil, err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyFlags overrides cfg with the common flags that were set.
func ApplyFlags(cmd *urfave.Command, cfg *config.Config) {
	if cmd.IsSet(FlagModel) {
		cfg.ModelPath = cmd.String(FlagModel)
	}
	if cmd.IsSet(FlagExpectedHash) {
		cfg.ExpectedHash = cmd.String(FlagExpectedHash)
	}
	if cmd.IsSet(FlagLogLevel) {
		cfg.LogLevel = cmd.String(FlagLogLevel)
	}
	if cmd.IsSet(FlagLogFormat) {
		cfg.LogFormat = cmd.String(FlagLogFormat)
	}
	if cmd.IsSet(FlagWorkers) {
		cfg.WorkerCount = cmd.Int(FlagWorkers)
	}
}

// Reread loads the layered configuration again and reapplies the flags
// that were set, so a reload sees the same overrides as startup.
func Reread(ctx context.Context, cmd *urfave.Command) (*config.Config, error) {
	cfg, err := config.Read(ctx)
	if err != nil {
		return nil, err
	}
	ApplyFlags(cmd, cfg)
	return cfg, nil
}

// StartService builds and starts the scoring service the configuration
// describes.
func StartService(ctx context.Context, cfg *config.Config) (*service.Service, error) {
	svc := service.New(
		service.WithLogger(logger.Named("service")),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithProfile(cfg.Profile()),
		service.WithModel(cfg.ModelPath, cfg.ExpectedHash),
		service.WithGateOptions(integrity.WithMaxBytes(cfg.MaxModelBytes)),
	)
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}
