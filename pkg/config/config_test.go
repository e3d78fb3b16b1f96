package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Intake.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Intake.Workers)
	}
	if cfg.Buffers.PriorityCapacityBytes != 15*1024*1024 {
		t.Errorf("PriorityCapacityBytes = %d, want 15 MiB", cfg.Buffers.PriorityCapacityBytes)
	}
	if cfg.Buffers.DeadLetterCapacityMB != 10 {
		t.Errorf("DeadLetterCapacityMB = %d, want 10", cfg.Buffers.DeadLetterCapacityMB)
	}
	if cfg.Sink.Type != "file" || cfg.Sink.Path != "all_logs.log" {
		t.Errorf("unexpected default sink: %+v", cfg.Sink)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
intake:
  workers: 8
sink:
  type: console
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Intake.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Intake.Workers)
	}
	if cfg.Sink.Type != "console" {
		t.Errorf("Sink.Type = %q, want console", cfg.Sink.Type)
	}
	// Untouched keys keep defaults.
	if cfg.Server.TCPPort != 8081 {
		t.Errorf("TCPPort = %d, want default 8081", cfg.Server.TCPPort)
	}
	if cfg.Buffers.DeadLetterSoft != 0.6 {
		t.Errorf("DeadLetterSoft = %v, want default 0.6", cfg.Buffers.DeadLetterSoft)
	}
}

func TestLoad_InvalidThresholds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
buffers:
  deadletter_hard: 0.5
  deadletter_hard_stop: 0.7
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for hard_stop >= hard")
	}
}

func TestValidate_FanoutSink(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sink = SinkConfig{
		Type: "fanout",
		Outputs: []SinkConfig{
			{Type: "file", Path: "a.log"},
			{Type: "console"},
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("fanout config invalid: %v", err)
	}

	cfg.Sink.Outputs = nil
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for fanout without outputs")
	}

	cfg.Sink.Outputs = []SinkConfig{{Type: "http"}} // missing url
	if err := cfg.Validate(); err == nil {
		t.Error("expected child validation error to surface")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
