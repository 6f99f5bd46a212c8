// -----------------------------------------------------------------------
// bootcamp-reports: prints the latest bootcamp daily reports as launcher items
// -----------------------------------------------------------------------

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ternarybob/bootcamp-reports/internal/app"
	"github.com/ternarybob/bootcamp-reports/internal/common"
)

// DefaultConfigFile is picked up from the working directory when no --config is given
const DefaultConfigFile = "bootcamp-reports.toml"

// NoWIPArg is the positional argument that hides work-in-progress reports
const NoWIPArg = "nowip"

type rootOptions struct {
	configFiles []string
	logLevel    string
	showVersion bool
}

func main() {
	defer common.RecoverWithCrashFile()
	if logsDir, err := common.LogsDirectory(); err == nil {
		common.InstallCrashHandler(logsDir)
	}

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "bootcamp-reports [nowip]",
		Short: "List the latest bootcamp daily reports as launcher JSON",
		Long: `Logs in to the bootcamp site, fetches the daily report listing and prints
it as a JSON document of launcher items on stdout.

Pass "nowip" to hide reports that are still marked as work in progress.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				common.PrintBanner(common.GetVersion())
				fmt.Fprintf(cmd.OutOrStdout(), "bootcamp-reports version %s\n", common.GetFullVersion())
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cmd.OutOrStdout(), opts, wipFilterRequested(args))
		},
	}

	cmd.Flags().StringArrayVarP(&opts.configFiles, "config", "c", nil, "Configuration file path (can be specified multiple times, later files override earlier ones)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level (overrides config): debug, info, warn, error")
	cmd.Flags().BoolVarP(&opts.showVersion, "version", "v", false, "Print version information")

	return cmd
}

// wipFilterRequested reports whether the first positional argument asks for WIP
// reports to be hidden. Any other value, or none, keeps them.
func wipFilterRequested(args []string) bool {
	return len(args) > 0 && args[0] == NoWIPArg
}

// resolveConfigFiles returns the explicit config files, or the default file when
// it exists in the working directory
func resolveConfigFiles(explicit []string) []string {
	if len(explicit) > 0 {
		return explicit
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return []string{DefaultConfigFile}
	}
	return nil
}

// Startup sequence (REQUIRED ORDER):
// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
// 2. Credential gate, before anything touches the network or the log directory
// 3. Apply CLI overrides and initialize logger
// 4. Build the application and run the pipeline
func run(ctx context.Context, stdout io.Writer, opts *rootOptions, filterWIP bool) error {
	configFiles := resolveConfigFiles(opts.configFiles)

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		return err
	}

	if err := config.CheckCredentials(); err != nil {
		fmt.Fprintln(stdout, common.CredentialsNotConfiguredMessage)
		return nil
	}

	common.ApplyFlagOverrides(config, opts.logLevel)

	if err := config.Validate(); err != nil {
		return err
	}

	logger := common.SetupLogger(config)

	logger.Debug().
		Strs("config_files", configFiles).
		Str("log_level", config.Logging.Level).
		Strs("log_output", config.Logging.Output).
		Str("avatar_dir", config.Avatars.Dir).
		Msg("Resolved configuration (sanitized)")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize application")
		return err
	}

	output, err := application.Run(ctx, filterWIP)
	if err != nil {
		if errors.Is(err, common.ErrCredentialsNotConfigured) {
			fmt.Fprintln(stdout, common.CredentialsNotConfiguredMessage)
			return nil
		}
		logger.Error().Err(err).Str("run_id", application.RunID).Msg("Run failed")
		return err
	}

	return app.WriteItems(stdout, output)
}
