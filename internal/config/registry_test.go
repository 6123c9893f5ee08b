package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	t.Run("env override", func(t *testing.T) {
		t.Setenv(ConfigDirEnvVar, "/tmp/lightify-test")

		dir, err := GetConfigDir()
		if err != nil {
			t.Fatalf("GetConfigDir() error = %v", err)
		}
		if dir != "/tmp/lightify-test" {
			t.Errorf("GetConfigDir() = %v, want /tmp/lightify-test", dir)
		}
	})

	t.Run("platform default", func(t *testing.T) {
		t.Setenv(ConfigDirEnvVar, "")

		dir, err := GetConfigDir()
		if err != nil {
			t.Fatalf("GetConfigDir() error = %v", err)
		}
		if !strings.Contains(dir, "lightify") {
			t.Errorf("GetConfigDir() = %v, should contain 'lightify'", dir)
		}
	})
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv(ConfigDirEnvVar, t.TempDir())

	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("Version = %v, want 1", reg.Version)
	}
	if reg.Bridges == nil {
		t.Error("Bridges should not be nil")
	}
	if reg.Preferences.RequestTimeout != DefaultRequestTimeout {
		t.Errorf("RequestTimeout = %v, want %v", reg.Preferences.RequestTimeout, DefaultRequestTimeout)
	}
	if reg.MQTT.TopicPrefix != "lightify" {
		t.Errorf("TopicPrefix = %q, want lightify", reg.MQTT.TopicPrefix)
	}
	if reg.Server.Listen != DefaultListen {
		t.Errorf("Listen = %q, want %q", reg.Server.Listen, DefaultListen)
	}
}

func TestAddBridge(t *testing.T) {
	reg := NewRegistry()

	reg.AddBridge("home", "192.168.1.20", 0, "Living room")
	reg.AddBridge("office", "10.0.0.5", 4100, "")

	if reg.DefaultBridge != "home" {
		t.Errorf("DefaultBridge = %q, want home (first added)", reg.DefaultBridge)
	}
	if got := reg.GetBridge("home").Address(); got != "192.168.1.20:4000" {
		t.Errorf("home Address() = %q", got)
	}
	if got := reg.GetBridge("office").Address(); got != "10.0.0.5:4100" {
		t.Errorf("office Address() = %q", got)
	}
	if names := reg.BridgeNames(); len(names) != 2 || names[0] != "home" || names[1] != "office" {
		t.Errorf("BridgeNames() = %v", names)
	}

	before := time.Now()
	reg.UpdateBridgeLastSeen("office")
	if reg.GetBridge("office").LastSeen.Before(before) {
		t.Error("LastSeen not updated")
	}
	reg.UpdateBridgeLastSeen("missing")
	if reg.GetBridge("missing") != nil {
		t.Error("UpdateBridgeLastSeen created an entry")
	}
}

func TestResolveBridge(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *Registry)
		arg      string
		wantName string
		wantAddr string
		wantErr  bool
	}{
		{
			name:     "explicit configured name",
			setup:    func(r *Registry) { r.AddBridge("home", "10.0.0.1", 0, ""); r.AddBridge("lab", "10.0.0.2", 0, "") },
			arg:      "lab",
			wantName: "lab",
			wantAddr: "10.0.0.2:4000",
		},
		{
			name:     "default bridge",
			setup:    func(r *Registry) { r.AddBridge("home", "10.0.0.1", 0, ""); r.AddBridge("lab", "10.0.0.2", 0, "") },
			wantName: "home",
			wantAddr: "10.0.0.1:4000",
		},
		{
			name:     "only bridge without default",
			setup:    func(r *Registry) { r.EnsureBridge("solo").Host = "10.0.0.3" },
			wantName: "solo",
			wantAddr: "10.0.0.3:4000",
		},
		{
			name:     "bare host",
			setup:    func(r *Registry) {},
			arg:      "192.168.1.50",
			wantName: "192.168.1.50",
			wantAddr: "192.168.1.50:4000",
		},
		{
			name:     "host and port",
			setup:    func(r *Registry) {},
			arg:      "192.168.1.50:4001",
			wantName: "192.168.1.50:4001",
			wantAddr: "192.168.1.50:4001",
		},
		{
			name:    "nothing configured",
			setup:   func(r *Registry) {},
			wantErr: true,
		},
		{
			name:    "bad port",
			setup:   func(r *Registry) {},
			arg:     "bridge:http",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			tt.setup(reg)

			name, bridge, err := reg.ResolveBridge(tt.arg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveBridge(%q) error = %v, wantErr %v", tt.arg, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if name != tt.wantName {
				t.Errorf("name = %q, want %q", name, tt.wantName)
			}
			if got := bridge.Address(); got != tt.wantAddr {
				t.Errorf("Address() = %q, want %q", got, tt.wantAddr)
			}
		})
	}
}

func TestSaveAndLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	reg := NewRegistry()
	reg.AddBridge("home", "192.168.1.20", 0, "Living room")
	reg.Preferences.DefaultFade = 7
	reg.Preferences.RequestTimeout = 2 * time.Second
	reg.MQTT.Broker = "tcp://broker:1883"
	reg.MQTT.QoS = 1

	if err := reg.SaveFile(path); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "# Lightify Configuration File") {
		t.Error("config file missing header comment")
	}
	if !strings.Contains(string(data), "request_timeout: 2s") {
		t.Errorf("durations should be written as strings, got:\n%s", data)
	}

	loaded, err := LoadRegistryFile(path)
	if err != nil {
		t.Fatalf("LoadRegistryFile() error = %v", err)
	}
	if loaded.DefaultBridge != "home" || loaded.GetBridge("home").Nickname != "Living room" {
		t.Errorf("bridges not round-tripped: %+v", loaded.Bridges)
	}
	if loaded.Preferences.DefaultFade != 7 || loaded.Preferences.RequestTimeout != 2*time.Second {
		t.Errorf("preferences = %+v", loaded.Preferences)
	}
	if loaded.MQTT.Broker != "tcp://broker:1883" || loaded.MQTT.QoS != 1 {
		t.Errorf("mqtt = %+v", loaded.MQTT)
	}
	if loaded.MQTT.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want default", loaded.MQTT.PollInterval)
	}
}

func TestLoadRegistryFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file gives defaults", func(t *testing.T) {
		reg, err := LoadRegistryFile(filepath.Join(dir, "absent.yaml"))
		if err != nil {
			t.Fatalf("LoadRegistryFile() error = %v", err)
		}
		if reg.Version != 1 || len(reg.Bridges) != 0 {
			t.Errorf("unexpected registry: %+v", reg)
		}
	})

	t.Run("partial file gets defaults", func(t *testing.T) {
		path := filepath.Join(dir, "partial.yaml")
		content := "version: 1\nbridges:\n  home:\n    host: 10.1.1.1\nmqtt:\n  broker: tcp://x:1883\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		reg, err := LoadRegistryFile(path)
		if err != nil {
			t.Fatalf("LoadRegistryFile() error = %v", err)
		}
		if reg.GetBridge("home").Host != "10.1.1.1" {
			t.Errorf("host = %q", reg.GetBridge("home").Host)
		}
		if reg.MQTT.TopicPrefix != DefaultTopicPrefix || reg.Server.Listen != DefaultListen {
			t.Errorf("defaults not applied: mqtt=%+v server=%+v", reg.MQTT, reg.Server)
		}
	})

	t.Run("wrong version", func(t *testing.T) {
		path := filepath.Join(dir, "v2.yaml")
		if err := os.WriteFile(path, []byte("version: 2\n"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadRegistryFile(path); err == nil {
			t.Error("expected error for unsupported version")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		if err := os.WriteFile(path, []byte("version: [\n"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadRegistryFile(path); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestSaveUsesConfigDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(ConfigDirEnvVar, dir)

	reg := NewRegistry()
	reg.AddBridge("home", "10.0.0.1", 0, "")
	if err := reg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config not written to %s: %v", dir, err)
	}
}
