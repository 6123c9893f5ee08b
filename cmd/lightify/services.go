package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/lightify/internal/config"
	"github.com/muurk/lightify/internal/logging"
	"github.com/muurk/lightify/internal/relay"
	"github.com/muurk/lightify/internal/server"
	"github.com/muurk/lightify/internal/tui"
	"github.com/muurk/lightify/internal/ui"
)

// Service flags
var (
	mqttBroker   string
	mqttUsername string
	mqttPrefix   string
	mqttQoS      int
	pollInterval time.Duration

	listenAddr string
	certPath   string
	keyPath    string
)

func init() {
	relayCmd.Flags().StringVar(&mqttBroker, "broker", "", "MQTT broker URL, e.g. tcp://localhost:1883 (default: config mqtt.broker)")
	relayCmd.Flags().StringVar(&mqttUsername, "username", "", "MQTT username; the password is read from LIGHTIFY_MQTT_PASSWORD")
	relayCmd.Flags().StringVar(&mqttPrefix, "topic-prefix", "", "Topic prefix (default: config mqtt.topic_prefix, lightify)")
	relayCmd.Flags().IntVar(&mqttQoS, "qos", -1, "MQTT QoS level 0-2 (default: config mqtt.qos)")
	relayCmd.Flags().DurationVar(&pollInterval, "poll", 0, "Bridge refresh interval (default: config mqtt.poll_interval, 30s)")

	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address host:port (default: config server.listen, 127.0.0.1:8080)")
	serveCmd.Flags().StringVar(&certPath, "cert", "", "Path to TLS certificate file (serves plain HTTP if not provided)")
	serveCmd.Flags().StringVar(&keyPath, "key", "", "Path to TLS private key file")

	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(relayCmd)
	rootCmd.AddCommand(serveCmd)
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Launch the interactive dashboard",
	Long: `Launch a full-screen dashboard listing the bridge's groups and lights.

Switch the highlighted group or light with space, dim it with + and -,
refresh with r. Press ? for all key bindings.`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func runDashboard(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *session) error {
		return tui.Run(ctx, s.bridge, tui.Options{
			Name:    fmt.Sprintf("%s (%s)", s.name, s.bridge.RemoteAddr()),
			Timeout: requestTimeout(s.registry),
			Fade:    s.registry.Preferences.DefaultFade,
		})
	})
}

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Relay the bridge to an MQTT broker",
	Long: `Mirror the bridge's groups and lights onto MQTT and apply commands from it.

State is published retained as JSON:
  <prefix>/<bridge>/light/<address>
  <prefix>/<bridge>/group/<id>
Availability ("online"/"offline") is published on <prefix>/<bridge>/status.

Commands are read from <prefix>/<bridge>/light/<address>/set and
<prefix>/<bridge>/group/<id>/set:
  {"state":"ON","brightness":40,"color_temp":2700,"color":{"r":255,"g":0,"b":0},"transition":10}`,
	Example: `  # Relay the default bridge to a local broker
  lightify relay --broker tcp://localhost:1883

  # Authenticated broker, refresh every minute
  LIGHTIFY_MQTT_PASSWORD=secret lightify relay --broker tcp://mqtt:1883 --username lightify --poll 1m`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			cfg := mqttSettings(s.registry.MQTT)
			if cfg.Broker == "" {
				err := errors.New("no MQTT broker configured")
				s.printer.PrintError("MQTT relay", err, "Pass --broker tcp://host:1883", "Or set mqtt.broker in the config file")
				return err
			}

			topics := relay.Topics{Prefix: cfg.TopicPrefix, Bridge: topicSegment(s.name)}
			client, err := relay.Connect(relay.ClientConfig{
				Broker:      cfg.Broker,
				ClientID:    cfg.ClientID,
				Username:    cfg.Username,
				Password:    config.MQTTPassword(),
				QoS:         cfg.QoS,
				StatusTopic: topics.Status(),
			})
			if err != nil {
				return s.fail("Could not connect to MQTT broker", err)
			}
			defer func() {
				if err := client.Close(); err != nil {
					logging.Warn("MQTT close", zap.Error(err))
				}
			}()

			s.printer.PrintSuccess("Relay running",
				s.bridgeParam(),
				ui.Param{Key: "Broker", Value: cfg.Broker},
				ui.Param{Key: "Topics", Value: topics.Prefix + "/" + topics.Bridge + "/#"},
				ui.Param{Key: "Poll", Value: cfg.PollInterval.String()},
			)

			r := relay.New(s.bridge, client, relay.Options{
				Topics:       topics,
				PollInterval: cfg.PollInterval,
				DefaultFade:  s.registry.Preferences.DefaultFade,
			})
			return r.Run(ctx)
		})
	},
}

// mqttSettings applies relay flags over the configured MQTT section.
func mqttSettings(base *config.MQTTConfig) config.MQTTConfig {
	cfg := *base
	if mqttBroker != "" {
		cfg.Broker = mqttBroker
	}
	if mqttUsername != "" {
		cfg.Username = mqttUsername
	}
	if mqttPrefix != "" {
		cfg.TopicPrefix = mqttPrefix
	}
	if mqttQoS >= 0 {
		cfg.QoS = byte(mqttQoS)
	}
	if pollInterval > 0 {
		cfg.PollInterval = pollInterval
	}
	return cfg
}

// topicSegment makes a bridge name safe as one MQTT topic level.
func topicSegment(name string) string {
	return strings.NewReplacer("/", "_", "+", "_", "#", "_", ":", "_", " ", "_").Replace(name)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the bridge over HTTP and WebSocket",
	Long: `Serve the bridge's groups and lights over a small JSON API.

  GET  /healthz                      bridge connection and counters
  GET  /api/groups, /api/groups/{id}
  GET  /api/lights, /api/lights/{address}[?refresh=true]
  PUT  /api/groups/{id}/state        body as an MQTT relay command
  PUT  /api/lights/{address}/state
  POST /api/refresh
  GET  /ws                           snapshot, then every cache update`,
	Example: `  # Serve on the configured address
  lightify serve

  # Serve on all interfaces with TLS
  lightify serve --listen :8443 --cert cert.pem --key key.pem`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (certPath == "") != (keyPath == "") {
			return fmt.Errorf("both --cert and --key must be provided together, or neither")
		}

		return withSession(cmd, func(ctx context.Context, s *session) error {
			listen := s.registry.Server.Listen
			if listenAddr != "" {
				listen = listenAddr
			}

			srv, err := server.New(&server.Config{
				Listen:      listen,
				CertPath:    certPath,
				KeyPath:     keyPath,
				DefaultFade: s.registry.Preferences.DefaultFade,
			}, s.bridge)
			if err != nil {
				return s.fail("Could not start server", err)
			}

			if err := s.bridge.Refresh(ctx); err != nil {
				logging.Warn("Initial refresh failed", zap.Error(err))
			}

			scheme := "http"
			if certPath != "" {
				scheme = "https"
			}
			s.printer.PrintSuccess("Server running",
				s.bridgeParam(),
				ui.Param{Key: "Listen", Value: fmt.Sprintf("%s://%s", scheme, listen)},
			)
			return srv.Start(ctx)
		})
	},
}
