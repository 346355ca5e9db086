package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/swatch-db/csv-validate/pkg/config"
	"github.com/swatch-db/csv-validate/pkg/model"
	"github.com/swatch-db/csv-validate/pkg/runner"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil && !errors.Is(err, model.ErrQuotaExceeded) {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(model.ExitCode(err))
}

func newRootCmd() *cobra.Command {
	cfg, loadErr := config.LoadConfig()
	if cfg == nil {
		cfg = &config.Config{}
	}

	cmd := &cobra.Command{
		Use:   "csvalidate --schema-path SCHEMA CSV_PATH",
		Short: "Validate a CSV file against a JSON schema",
		Long: `Validate every data row of a CSV file against a JSON schema, in parallel.

Rows are numbered from 1 starting at the first line after the header; the
header itself is never counted. --start-row and every "row:" in a failure
report use this numbering.

The run stops early, with exit status 1, once more than --max-fails failures
have been observed. Defaults can be set with CSVALIDATE_* environment
variables or a .env file.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return &model.ConfigError{Field: "CSV_PATH", Err: fmt.Errorf("expected 1 argument, got %d", len(args))}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if loadErr != nil {
				return loadErr
			}
			cfg.CSVPath = args[0]
			return run(cmd.Context(), cmd, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.SchemaPath, "schema-path", "", "path to the JSON schema file (required)")
	flags.IntVar(&cfg.MaxFails, "max-fails", cfg.MaxFails, "stop once more than this many failures are seen")
	flags.IntVar(&cfg.StartRow, "start-row", cfg.StartRow, "first data row to validate (1 = first row after the header)")
	flags.IntVar(&cfg.Processes, "processes", cfg.Processes, "number of concurrent workers")
	flags.IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "stream the file in chunks of this many rows (default: load it whole, rows/processes per chunk)")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &model.ConfigError{Err: err}
	})

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return &model.ConfigError{Field: "logging", Err: err}
	}
	defer func() { _ = logger.Sync() }()

	logger.Debug("Starting run",
		zap.String("schema", cfg.SchemaPath),
		zap.String("csv", cfg.CSVPath),
		zap.Int("maxFails", cfg.MaxFails),
		zap.Int("startRow", cfg.StartRow),
		zap.Int("processes", cfg.Processes),
		zap.Int("chunkSize", cfg.ChunkSize))

	_, err = runner.New(cfg, cmd.OutOrStdout(), logger).Run(ctx)
	return err
}
