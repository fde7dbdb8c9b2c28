// Package commands provides the CLI commands for hostbridge.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/opencode-ai/hostbridge/internal/config"
	"github.com/opencode-ai/hostbridge/internal/logging"
	"github.com/opencode-ai/hostbridge/pkg/types"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	printLogs bool
	logLevel  string
	workDir   string
	noColor   bool
	jsonOut   bool
)

// appConfig is loaded once before any subcommand runs.
var appConfig *types.Config

var rootCmd = &cobra.Command{
	Use:   "hostbridge",
	Short: "hostbridge - event-correlated requests to a host bridge",
	Long: `hostbridge sends commands to a host over a websocket bridge and waits
for the events that answer them.

Run 'hostbridge serve' to start the host emulator, 'hostbridge call' to send
one command and print its answer, or 'hostbridge watch' to follow events.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR), overrides config")
	rootCmd.PersistentFlags().StringVar(&workDir, "directory", "", "Project directory to load hostbridge.* config from")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Print events as JSON lines")

	rootCmd.SetVersionTemplate(fmt.Sprintf("hostbridge %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(watchCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setup loads .env, the configuration and initializes logging.
func setup(cmd *cobra.Command, args []string) error {
	// A missing .env is fine.
	_ = godotenv.Load()

	dir, err := GetWorkDir(workDir)
	if err != nil {
		return err
	}

	appConfig, err = config.Load(dir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		appConfig.Log.Level = logLevel
	}

	logging.Init(loggingConfig(appConfig))
	return nil
}

// teardown closes the log file opened by setup.
func teardown(cmd *cobra.Command, args []string) {
	logging.Close()
}

// loggingConfig maps the log section of the config onto logger settings.
// Logs stay quiet on the terminal unless --print-logs is set or a log
// directory is configured.
func loggingConfig(cfg *types.Config) logging.Config {
	lc := logging.DefaultConfig()
	if log := cfg.Log; log != nil {
		lc.Level = logging.ParseLevel(log.Level)
		if log.Pretty != nil {
			lc.Pretty = *log.Pretty
		}
		if log.Dir != "" {
			lc.LogToFile = true
			lc.LogDir = log.Dir
		}
	}
	if !printLogs {
		lc.Output = io.Discard
	}
	return lc
}

// GetWorkDir returns the working directory from flag or current directory.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}
