// Lightify is a command-line client for OSRAM Lightify gateways.
//
// It lists the groups and lights a gateway knows, switches and dims them,
// and runs longer-lived services on top of one connection: an interactive
// dashboard, an MQTT relay and an HTTP/WebSocket status server.
//
// Usage:
//
//	lightify [command] [flags]
//
// Running without arguments launches the dashboard.
// See 'lightify --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/lightify/internal/logging"
	"github.com/muurk/lightify/internal/version"
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

var rootCmd = &cobra.Command{
	Use:   "lightify",
	Short: "OSRAM Lightify gateway client",
	Long: `A command-line client for OSRAM Lightify gateways.

Lists and controls the groups and lights a gateway knows over its local
binary protocol (TCP port 4000), and bridges the gateway to MQTT or HTTP.

If no command is specified, the interactive dashboard will launch.`,
	Version:           version.Version,
	PersistentPreRunE: setupLogging,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "lightify %s\n", version.Full())
	},
}
