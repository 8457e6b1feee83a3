// Castctl controls cast receivers from the command line.
//
// It discovers receivers with mDNS, launches apps, loads and controls media,
// and can stream receiver events to the terminal or to websocket clients.
//
// Usage:
//
//	castctl [command] [flags]
//
// See 'castctl --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/castcore/internal/config"
	"github.com/muurk/castcore/internal/logging"
	"github.com/muurk/castcore/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	deviceRef  string
	devicePort int
	logLevel   string
	opTimeout  int
	configPath string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "castctl",
	Short: "Cast receiver control utility",
	Long: `A command line sender for cast receivers.

Discovers receivers on the local network, launches apps, loads media and
controls playback over the CASTV2 protocol. Receivers used once are
remembered in the configuration file and can be addressed by name.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initLogging(logLevel); err != nil {
			return err
		}
		if configPath != "" {
			config.SetConfigPath(configPath)
		}
		return nil
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&deviceRef, "device", "", "Receiver address, id or name (skips discovery when an address)")
	rootCmd.PersistentFlags().IntVar(&devicePort, "port", 8009, "Receiver TLS port")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to $"+logging.LogLevelEnvVar)
	rootCmd.PersistentFlags().IntVar(&opTimeout, "timeout", 10, "Timeout in seconds for each receiver operation")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default is the platform config directory)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("castctl %s (commit: %s)\n", version.Version, version.Commit)
	},
}

// initLogging applies --log-level, or CAST_LOG_LEVEL when the flag is empty
func initLogging(level string) error {
	if level == "" {
		return logging.InitializeFromEnv()
	}
	return logging.Initialize(level)
}
