package config

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"time"
)

// Defaults applied when the file leaves a value unset
const (
	DefaultRequestTimeout = 5 * time.Second
	DefaultTopicPrefix    = "lightify"
	DefaultPollInterval   = 30 * time.Second
	DefaultListen         = "127.0.0.1:8080"
	DefaultBridgePort     = 4000
)

// Registry represents the entire user configuration file.
type Registry struct {
	Version       int                `yaml:"version"`
	DefaultBridge string             `yaml:"default_bridge,omitempty"`
	Bridges       map[string]*Bridge `yaml:"bridges,omitempty"` // Keyed by bridge name
	Preferences   *Preferences       `yaml:"preferences,omitempty"`
	MQTT          *MQTTConfig        `yaml:"mqtt,omitempty"`
	Server        *ServerConfig      `yaml:"server,omitempty"`
}

// Bridge represents one known lighting bridge.
type Bridge struct {
	Host     string    `yaml:"host"`
	Port     int       `yaml:"port,omitempty"`      // 0 means 4000
	Nickname string    `yaml:"nickname,omitempty"`  // User-friendly name
	LastSeen time.Time `yaml:"last_seen,omitempty"` // Last successful connection
}

// Address returns host:port for dialing.
func (b *Bridge) Address() string {
	port := b.Port
	if port == 0 {
		port = DefaultBridgePort
	}
	return net.JoinHostPort(b.Host, strconv.Itoa(port))
}

// Preferences represents application-wide defaults.
type Preferences struct {
	RequestTimeout time.Duration `yaml:"request_timeout"` // Bound on every bridge request
	DefaultFade    uint16        `yaml:"default_fade"`    // Fade time in deciseconds for commands
}

// MQTTConfig configures the MQTT relay.
// Note: the broker password is NEVER stored; it comes from LIGHTIFY_MQTT_PASSWORD.
type MQTTConfig struct {
	Broker       string        `yaml:"broker"`                  // e.g. tcp://localhost:1883
	Username     string        `yaml:"username,omitempty"`      // Broker username
	ClientID     string        `yaml:"client_id,omitempty"`     // Generated when empty
	TopicPrefix  string        `yaml:"topic_prefix,omitempty"`  // Defaults to "lightify"
	QoS          byte          `yaml:"qos"`                     // 0, 1 or 2
	PollInterval time.Duration `yaml:"poll_interval,omitempty"` // Bridge refresh interval
}

// ServerConfig configures the HTTP status server.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	r := &Registry{Version: 1}
	r.applyDefaults()
	return r
}

// applyDefaults fills sections and values a file may omit.
func (r *Registry) applyDefaults() {
	if r.Bridges == nil {
		r.Bridges = make(map[string]*Bridge)
	}
	if r.Preferences == nil {
		r.Preferences = &Preferences{}
	}
	if r.Preferences.RequestTimeout <= 0 {
		r.Preferences.RequestTimeout = DefaultRequestTimeout
	}
	if r.MQTT == nil {
		r.MQTT = &MQTTConfig{}
	}
	if r.MQTT.TopicPrefix == "" {
		r.MQTT.TopicPrefix = DefaultTopicPrefix
	}
	if r.MQTT.PollInterval <= 0 {
		r.MQTT.PollInterval = DefaultPollInterval
	}
	if r.Server == nil {
		r.Server = &ServerConfig{}
	}
	if r.Server.Listen == "" {
		r.Server.Listen = DefaultListen
	}
}

// GetBridge retrieves a bridge by name.
// Returns nil if the bridge doesn't exist in the registry.
func (r *Registry) GetBridge(name string) *Bridge {
	return r.Bridges[name]
}

// EnsureBridge ensures a bridge entry exists in the registry.
// Returns the bridge entry (existing or newly created).
func (r *Registry) EnsureBridge(name string) *Bridge {
	if r.Bridges == nil {
		r.Bridges = make(map[string]*Bridge)
	}

	if bridge, exists := r.Bridges[name]; exists {
		return bridge
	}

	bridge := &Bridge{}
	r.Bridges[name] = bridge
	return bridge
}

// AddBridge records a bridge. The first bridge added becomes the default.
func (r *Registry) AddBridge(name, host string, port int, nickname string) *Bridge {
	bridge := r.EnsureBridge(name)
	bridge.Host = host
	bridge.Port = port
	bridge.Nickname = nickname

	if r.DefaultBridge == "" {
		r.DefaultBridge = name
	}
	return bridge
}

// UpdateBridgeLastSeen updates the last seen timestamp for a bridge.
func (r *Registry) UpdateBridgeLastSeen(name string) {
	if bridge := r.GetBridge(name); bridge != nil {
		bridge.LastSeen = time.Now()
	}
}

// BridgeNames returns the configured bridge names in sorted order.
func (r *Registry) BridgeNames() []string {
	names := make([]string, 0, len(r.Bridges))
	for name := range r.Bridges {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveBridge picks the bridge to connect to. An empty name selects the
// default bridge, or the only bridge when there is exactly one. A name that
// is not configured is treated as a host with the default port.
func (r *Registry) ResolveBridge(name string) (string, *Bridge, error) {
	if name == "" {
		switch {
		case r.DefaultBridge != "":
			name = r.DefaultBridge
		case len(r.Bridges) == 1:
			name = r.BridgeNames()[0]
		default:
			return "", nil, fmt.Errorf("no bridge selected: pass --bridge or run 'lightify config add-bridge'")
		}
	}

	if bridge := r.GetBridge(name); bridge != nil {
		return name, bridge, nil
	}

	host, port := name, 0
	if h, p, err := net.SplitHostPort(name); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", nil, fmt.Errorf("invalid bridge port in %q: %w", name, err)
		}
		host, port = h, n
	}
	return name, &Bridge{Host: host, Port: port}, nil
}
