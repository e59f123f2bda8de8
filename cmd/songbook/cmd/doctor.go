package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/preflight"
)

func newDoctorCmd() *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the corpus, cache and system setup",
		Long: `Run diagnostics to ensure songbook can serve searches.

Checks:
  - Corpus file can be read and parsed (required)
  - Offline cache can be opened
  - Log directory is writable
  - Disk space (50MB minimum)
  - File descriptor limit (256 minimum)

Only a corpus failure makes the command exit non-zero.`,
		Example: `  # Run diagnostics
  songbook doctor

  # Verbose output with details
  songbook doctor --verbose

  # JSON output for scripting
  songbook doctor --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, verbose, jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// doctorJSON is the --json shape of the doctor report.
type doctorJSON struct {
	Status   string                  `json:"status"`
	Checks   []preflight.CheckResult `json:"checks"`
	Warnings []string                `json:"warnings,omitempty"`
	Errors   []string                `json:"errors,omitempty"`
}

func runDoctor(cmd *cobra.Command, verbose, jsonOutput bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	checker := preflight.New(cfg,
		preflight.WithVerbose(verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
	)
	results := checker.RunAll(ctx)

	if jsonOutput {
		report := doctorJSON{
			Status: checker.SummaryStatus(results),
			Checks: results,
		}
		for _, r := range results {
			switch {
			case r.IsCritical():
				report.Errors = append(report.Errors, r.Name+": "+r.Message)
			case r.Status != preflight.StatusPass:
				report.Warnings = append(report.Warnings, r.Name+": "+r.Message)
			}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		return sberrors.New(sberrors.ErrCodeCorpusNotFound, "system check failed", nil).
			WithSuggestion("run 'songbook doctor --verbose' for details")
	}
	return nil
}
