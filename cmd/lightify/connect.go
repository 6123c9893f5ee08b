package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/lightify/internal/bridge"
	"github.com/muurk/lightify/internal/config"
	"github.com/muurk/lightify/internal/logging"
	"github.com/muurk/lightify/internal/ui"
)

// Common flags (persistent on root)
var (
	bridgeName string
	timeout    time.Duration
	logLevel   string
	jsonOutput bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&bridgeName, "bridge", "b", "", "Bridge name from config, or host[:port] (default: configured default bridge)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Bridge request timeout (default: config request_timeout, 5s)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LIGHTIFY_LOG_LEVEL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
}

// setupLogging initializes logging from --log-level or LIGHTIFY_LOG_LEVEL.
// Logging stays silent when neither is set so styled output is clean.
func setupLogging(cmd *cobra.Command, args []string) error {
	return logging.Initialize(logLevel)
}

// session is one connected bridge with the config it was resolved from.
type session struct {
	name     string
	registry *config.Registry
	bridge   *bridge.Bridge
	printer  *ui.Printer
}

// requestTimeout returns --timeout, falling back to the configured value.
func requestTimeout(registry *config.Registry) time.Duration {
	if timeout > 0 {
		return timeout
	}
	return registry.Preferences.RequestTimeout
}

// connect resolves --bridge against the registry and dials it. A bridge
// from the registry has its last-seen time updated.
func connect(ctx context.Context, cmd *cobra.Command) (*session, error) {
	printer := ui.NewPrinter(cmd.OutOrStdout())
	printer.JSON = jsonOutput

	registry, err := config.LoadRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	name, entry, err := registry.ResolveBridge(bridgeName)
	if err != nil {
		printer.PrintError("No bridge", err,
			"Add one with: lightify config add-bridge <name> <host>",
			"Or pass --bridge <host>",
		)
		return nil, err
	}

	addr := entry.Address()
	b, err := bridge.Dial(ctx, addr, bridge.Options{
		Timeout: requestTimeout(registry),
		Logger:  logging.Named("bridge"),
	})
	if err != nil {
		printer.PrintError("Could not connect to bridge", err,
			fmt.Sprintf("Check that %s is reachable on your network", addr),
			"The gateway listens on TCP port 4000",
			"Only one client can hold the gateway connection at a time",
		)
		return nil, err
	}

	if registry.GetBridge(name) != nil {
		registry.UpdateBridgeLastSeen(name)
		if err := registry.Save(); err != nil {
			logging.Warn("Failed to record bridge last seen", zap.String("bridge", name), zap.Error(err))
		}
	}

	return &session{name: name, registry: registry, bridge: b, printer: printer}, nil
}

// Close releases the bridge connection.
func (s *session) Close() {
	if err := s.bridge.Close(); err != nil {
		logging.Debug("Bridge close", zap.Error(err))
	}
}

// bridgeParam is the header line naming the connected bridge.
func (s *session) bridgeParam() ui.Param {
	return ui.Param{Key: "Bridge", Value: fmt.Sprintf("%s (%s)", s.name, s.bridge.RemoteAddr())}
}

// fail prints err in a result box with tips matched to its kind, then
// returns it so the command exits non-zero.
func (s *session) fail(title string, err error) error {
	var tips []string
	switch {
	case bridge.IsTimeout(err):
		tips = []string{"The gateway did not answer in time", "Retry with a longer --timeout"}
	case bridge.IsBusy(err):
		tips = []string{"Another request is still outstanding on this connection"}
	case bridge.IsTransportError(err), bridge.IsClosed(err):
		tips = []string{"The gateway closed the connection", "Check that no other app holds the connection"}
	case bridge.IsInvalidArgument(err):
		tips = []string{"Targets look like group:3, light:84:18:26:00:00:0b:2c:1d or a group/light name"}
	}
	s.printer.PrintError(title, err, tips...)
	return err
}

// withSession runs fn against a freshly connected bridge.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	// Suppress usage on execution errors (we're past argument parsing)
	cmd.SilenceUsage = true

	ctx := cmd.Context()
	s, err := connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(ctx, s)
}
