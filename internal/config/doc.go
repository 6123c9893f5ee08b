// Package config provides user configuration management for lightify.
//
// This package manages a YAML-based configuration file that stores known
// bridges, request defaults, and the settings of the MQTT relay and the HTTP
// status server. Command-line flags override anything read from the file.
//
// # Configuration File Location
//
// LIGHTIFY_CONFIG_DIR overrides the directory. Otherwise:
//   - Linux: $XDG_CONFIG_HOME/lightify/config.yaml or $HOME/.config/lightify/config.yaml
//   - macOS: $HOME/.config/lightify/config.yaml
//   - Windows: %LOCALAPPDATA%\lightify\config.yaml
//
// # Example File
//
//	version: 1
//	default_bridge: home
//	bridges:
//	    home:
//	        host: 192.168.1.20
//	        nickname: Living room gateway
//	preferences:
//	    request_timeout: 5s
//	    default_fade: 5
//	mqtt:
//	    broker: tcp://localhost:1883
//	    topic_prefix: lightify
//	    qos: 1
//	    poll_interval: 30s
//	server:
//	    listen: 127.0.0.1:8080
//
// # Security
//
// The MQTT broker password is never written to the file. It is read from
// LIGHTIFY_MQTT_PASSWORD when the relay starts.
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
