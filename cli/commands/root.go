package commands

import (
	"io"
	"os"

	"github.com/robgonnella/pmtud/internal/core"
	"github.com/robgonnella/pmtud/internal/discovery"
	"github.com/robgonnella/pmtud/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// CommandProps injected props that can be made available to all commands
type CommandProps struct {
	// NewCore builds the app core, observer receives every search step
	NewCore func(observer func(step discovery.Step)) (*core.Core, error)
	// Out receives command results
	Out io.Writer
}

// Root builds and returns our root command
func Root(props *CommandProps) *cobra.Command {
	var verbose bool
	var silent bool
	var logToFile bool
	var logFile *os.File

	cmd := &cobra.Command{
		Use:   "pmtud",
		Short: "Discover the path MTU to IPv4 hosts with DF probes",
		// This runs before all commands and all sub-commands
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// set logging verbosity for all loggers
			zerolog.SetGlobalLevel(zerolog.InfoLevel)

			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}

			if silent {
				zerolog.SetGlobalLevel(zerolog.Disabled)
			}

			if logToFile {
				logPath, ok := viper.Get("log-file").(string)

				if !ok || logPath == "" {
					return nil
				}

				f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)

				if err != nil {
					return err
				}

				logFile = f
				logger.GlobalSetLogFile(f)
			}

			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if logFile == nil {
				return nil
			}

			logger.GlobalSetConsole()

			err := logFile.Close()
			logFile = nil

			return err
		},
	}

	// Persistent flags available to all commands
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logs")
	cmd.PersistentFlags().BoolVar(&silent, "silent", false, "disables all logging")
	cmd.PersistentFlags().BoolVar(&logToFile, "log-file", false, "write logs to the log file instead of stderr")

	cmd.AddCommand(discover(props))
	cmd.AddCommand(echoServer(props))
	cmd.AddCommand(info(props))
	cmd.AddCommand(clear())
	cmd.AddCommand(version(props))

	return cmd
}
