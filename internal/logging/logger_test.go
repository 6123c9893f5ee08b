package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitializeSilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger enabled without a level, want silent")
	}
}

func TestInitializeFromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	t.Cleanup(func() { logger = nil })

	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error: %v", err)
	}
	core := GetLogger().Core()
	if core.Enabled(zapcore.InfoLevel) {
		t.Error("info enabled at warn level")
	}
	if !core.Enabled(zapcore.WarnLevel) {
		t.Error("warn disabled at warn level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"DEBUG":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"loud":    zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogFrame(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	LogFrame(log, "sent", []byte{0x02, 0x1e, 0x00})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["direction"] != "sent" {
		t.Errorf("direction = %v, want sent", fields["direction"])
	}
	if fields["hex"] != "021e00" {
		t.Errorf("hex = %v, want 021e00", fields["hex"])
	}
}

func TestLogFrameSkippedAboveDebug(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	LogFrame(zap.New(core), "received", []byte{0x01})

	if logs.Len() != 0 {
		t.Errorf("entries = %d, want 0", logs.Len())
	}
}

func TestDumps(t *testing.T) {
	if got := asciiDump([]byte("Hi\x00\x7f!")); got != "Hi..!" {
		t.Errorf("asciiDump() = %q", got)
	}

	long := make([]byte, maxDumpBytes+1)
	if got := hexDump(long); len(got) != maxDumpBytes*2+3 {
		t.Errorf("hexDump() length = %d, want %d", len(got), maxDumpBytes*2+3)
	}
	if hexDump(nil) != "" || asciiDump(nil) != "" {
		t.Error("empty input should dump as empty string")
	}
}
