package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/discovery"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/invoice"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/pkg/config"
)

var errNoDatabase = errors.New("command needs the discovery log database (DATABASE_ENABLED=true)")

// cli carries what PersistentPreRunE loads for the subcommands.
type cli struct {
	cfg    *config.Config
	logger *slog.Logger

	input   string
	output  string
	mode    string
	workers int
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "auditor",
		Short:         "Check invoice line rates against authorized part prices",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), c.cfg, c.logger)
		},
	}

	root.PersistentFlags().StringVar(&c.input, "input", "", "directory of extracted invoice text (overrides INPUT_DIR)")
	root.PersistentFlags().StringVar(&c.output, "output", "", "review workbook path (overrides REPORT_OUTPUT_PATH)")
	root.PersistentFlags().StringVar(&c.mode, "mode", "", "parts_based or threshold_based (overrides VALIDATION_MODE)")
	root.PersistentFlags().IntVar(&c.workers, "workers", 0, "files validated concurrently (overrides BATCH_WORKERS)")

	root.AddCommand(c.runCmd(), c.pruneCmd(), c.exportCmd())
	return root
}

// load reads the environment and applies flag overrides.
func (c *cli) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if c.input != "" {
		cfg.Batch.InputDir = c.input
	}
	if c.output != "" {
		cfg.Report.OutputPath = c.output
	}
	if c.mode != "" {
		mode, err := invoice.ParseValidationMode(c.mode)
		if err != nil {
			return err
		}
		cfg.Validation.Mode = mode
	}
	if c.workers > 0 {
		cfg.Batch.Workers = c.workers
	}

	c.cfg = cfg
	c.logger = newLogger(cfg.Logging, cmd.ErrOrStderr())
	slog.SetDefault(c.logger)
	return nil
}

func (c *cli) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Validate every invoice in the input directory and write the review outputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), c.cfg, c.logger)
		},
	}
}

func (c *cli) pruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete discovery log entries past DISCOVERY_RETENTION_DAYS",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := InitDependencies(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer deps.Cleanup()

			if deps.Scheduler == nil {
				return errNoDatabase
			}
			deleted, err := deps.Scheduler.RunNow(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d discovery log entries\n", deleted)
			return nil
		},
	}
}

func (c *cli) exportCmd() *cobra.Command {
	var (
		session string
		out     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write one processing session's discovery log as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := InitDependencies(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer deps.Cleanup()

			if deps.DiscoveryRepo == nil {
				return errNoDatabase
			}
			entries, err := deps.DiscoveryRepo.ListBySession(cmd.Context(), session)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				defer f.Close()
				w = f
			}
			if err := discovery.ExportCSV(w, entries); err != nil {
				return err
			}

			c.logger.Info("discovery log exported",
				slog.String("session_id", session),
				slog.Int("entries", len(entries)),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "processing session id")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}
