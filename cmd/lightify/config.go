package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/muurk/lightify/internal/config"
	"github.com/muurk/lightify/internal/ui"
)

var (
	bridgeNickname string
	makeDefault    bool
)

func init() {
	addBridgeCmd.Flags().StringVar(&bridgeNickname, "nickname", "", "Friendly name shown in listings")
	addBridgeCmd.Flags().BoolVar(&makeDefault, "default", false, "Make this the default bridge")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(addBridgeCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or edit the configuration file",
	Long: `Show or edit the lightify configuration file.

The file lives in the platform config directory (e.g. ~/.config/lightify/config.yaml
on Linux) unless LIGHTIFY_CONFIG_DIR is set.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the configured bridges and defaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		printer := ui.NewPrinter(cmd.OutOrStdout())
		printer.JSON = jsonOutput

		registry, err := config.LoadRegistry()
		if err != nil {
			printer.PrintError("Could not load config", err)
			return err
		}
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}

		if printer.JSON {
			return printer.PrintJSON(registry)
		}

		printer.PrintHeader("Configuration", "lightify config show", ui.Param{Key: "File", Value: path})

		if len(registry.Bridges) == 0 {
			printer.PrintWarning("No bridges configured",
				ui.Param{Key: "Add one", Value: "lightify config add-bridge <name> <host>"},
			)
		}
		for _, name := range registry.BridgeNames() {
			printer.PrintSuccess("Bridge "+name, bridgeDetails(registry, name)...)
		}

		mqtt := registry.MQTT
		printer.PrintSuccess("Defaults",
			ui.Param{Key: "Timeout", Value: registry.Preferences.RequestTimeout.String()},
			ui.Param{Key: "Fade", Value: fmt.Sprintf("%.1fs", float64(registry.Preferences.DefaultFade)/10)},
			ui.Param{Key: "MQTT broker", Value: valueOr(mqtt.Broker, "(not set)")},
			ui.Param{Key: "MQTT topics", Value: mqtt.TopicPrefix + "/<bridge>/#"},
			ui.Param{Key: "MQTT poll", Value: mqtt.PollInterval.String()},
			ui.Param{Key: "HTTP listen", Value: registry.Server.Listen},
		)
		return nil
	},
}

func bridgeDetails(registry *config.Registry, name string) []ui.Param {
	b := registry.GetBridge(name)
	details := []ui.Param{{Key: "Address", Value: b.Address()}}
	if b.Nickname != "" {
		details = append(details, ui.Param{Key: "Nickname", Value: b.Nickname})
	}
	if name == registry.DefaultBridge {
		details = append(details, ui.Param{Key: "Default", Value: "yes"})
	}
	if !b.LastSeen.IsZero() {
		details = append(details, ui.Param{Key: "Last seen", Value: b.LastSeen.Format("2006-01-02 15:04:05")})
	}
	return details
}

var addBridgeCmd = &cobra.Command{
	Use:   "add-bridge <name> <host[:port]>",
	Short: "Add or update a bridge",
	Example: `  lightify config add-bridge home 192.168.1.20
  lightify config add-bridge cabin cabin.lan:4000 --nickname "Cabin" --default`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		name := args[0]
		host, port, err := splitHostPort(args[1])
		if err != nil {
			return err
		}

		registry, err := config.LoadRegistry()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		b := registry.AddBridge(name, host, port, bridgeNickname)
		if makeDefault {
			registry.DefaultBridge = name
		}
		if err := registry.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		printer := ui.NewPrinter(cmd.OutOrStdout())
		printer.JSON = jsonOutput
		if printer.JSON {
			return printer.PrintJSON(b)
		}
		printer.PrintSuccess("Bridge "+name+" saved", bridgeDetails(registry, name)...)
		return nil
	},
}

// splitHostPort accepts a host with or without a port; the port is 0 when
// absent so the default applies.
func splitHostPort(s string) (string, int, error) {
	host, p, err := net.SplitHostPort(s)
	if err != nil {
		return s, 0, nil
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in %q", s)
	}
	return host, port, nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
