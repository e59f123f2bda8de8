// Package cmd provides the CLI commands for songbook.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/songbook/internal/config"
	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/library"
	"github.com/Aman-CERP/songbook/internal/logging"
	"github.com/Aman-CERP/songbook/internal/output"
	"github.com/Aman-CERP/songbook/internal/profiling"
	"github.com/Aman-CERP/songbook/pkg/version"
)

// Global flags
var (
	debugMode      bool
	corpusFlag     string
	colorFlag      string
	loggingCleanup func()

	profileOpts profiling.Options
	profile     *profiling.Session
)

// NewRootCmd creates the root command for the songbook CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "songbook",
		Short: "Search a devotional song collection",
		Long: `songbook searches a collection of devotional songs by title, author,
verse text and translation, ignoring case and diacritics, so "sri"
finds "Śrī".

It works as a command line tool and as an MCP server for AI assistants.
Run 'songbook' with no arguments to start the MCP server on stdio.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			// stdout belongs to JSON-RPC from here on.
			return runServe(cmd.Context(), serveOptions{})
		},
	}

	cmd.SetVersionTemplate("songbook version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.songbook/logs/")
	cmd.PersistentFlags().StringVar(&corpusFlag, "corpus", "", "Corpus JSON file (overrides corpus.path)")
	cmd.PersistentFlags().StringVar(&colorFlag, "color", "", "Color output: auto, always, never (overrides display.color)")

	cmd.PersistentFlags().StringVar(&profileOpts.CPU, "profile-cpu", "", "Write a CPU profile to `file`")
	cmd.PersistentFlags().StringVar(&profileOpts.Heap, "profile-mem", "", "Write a heap profile to `file` on exit")
	cmd.PersistentFlags().StringVar(&profileOpts.Trace, "profile-trace", "", "Write an execution trace to `file`")
	_ = cmd.PersistentFlags().MarkHidden("profile-trace")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newCategoriesCmd())
	cmd.AddCommand(newConvertCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newCacheCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging installs the CLI logger. serve replaces it with the server
// logger once it starts.
func startLogging(cmd *cobra.Command, _ []string) error {
	cleanup, err := logging.SetupCLI(debugMode, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	if debugMode {
		slog.Info("debug_logging_enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Version))
	}

	if profileOpts.Enabled() {
		session, err := profiling.Start(profileOpts)
		if err != nil {
			return err
		}
		profile = session
	}
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	err := profile.Stop()
	profile = nil
	if err != nil {
		slog.Warn("profile_write_failed", slog.String("error", err.Error()))
	}

	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command and prints errors the way the CLI reports
// them: message, hint and code.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		fmt.Fprint(root.ErrOrStderr(), sberrors.FormatForCLI(err))
	}
	return err
}

// loadConfig loads the configuration for the project containing the working
// directory and applies the global flags.
func loadConfig() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	root, err := config.FindProjectRoot(cwd)
	if err != nil {
		root = cwd
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	if corpusFlag != "" {
		path, err := filepath.Abs(corpusFlag)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve corpus path: %w", err)
		}
		cfg.Corpus.Path = path
	}
	if colorFlag != "" {
		cfg.Display.Color = colorFlag
	}
	return cfg, nil
}

// openLibrary opens the library described by cfg and loads the corpus. The
// caller closes the library.
func openLibrary(ctx context.Context, cfg *config.Config) (*library.Library, error) {
	lib, err := library.Open(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := lib.Load(ctx); err != nil {
		_ = lib.Close()
		return nil, err
	}
	return lib, nil
}

// newWriter returns a status writer for cmd's stdout, colored per cfg.
func newWriter(cmd *cobra.Command, cfg *config.Config) *output.Writer {
	mode := output.ColorAuto
	if cfg != nil {
		mode = cfg.Display.Color
	}
	if colorFlag != "" {
		mode = colorFlag
	}
	return output.New(cmd.OutOrStdout(), output.NewTheme(cmd.OutOrStdout(), mode))
}
