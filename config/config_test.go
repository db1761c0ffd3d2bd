package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Orchestrator.MinReadyLeadTime != time.Hour {
		t.Errorf("min ready lead time = %v, want 1h", cfg.Orchestrator.MinReadyLeadTime)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inboundcore.yaml")
	data := []byte(`
database:
  driver: postgres
upstream:
  region: us-east-1
  timeout: 5s
orchestrator:
  poll_budget: 40s
messaging:
  kafka:
    brokers: ["kafka-1:9092", "kafka-2:9092"]
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Database.Postgres.Port != 5432 {
		t.Errorf("postgres port = %d, want default 5432", cfg.Database.Postgres.Port)
	}
	if cfg.Upstream.Region != "us-east-1" || cfg.Upstream.Timeout != 5*time.Second {
		t.Errorf("upstream = %+v", cfg.Upstream)
	}
	if cfg.Orchestrator.PollBudget != 40*time.Second {
		t.Errorf("poll budget = %v, want 40s", cfg.Orchestrator.PollBudget)
	}
	if cfg.Orchestrator.PollStep != 500*time.Millisecond {
		t.Errorf("poll step = %v, want default 500ms", cfg.Orchestrator.PollStep)
	}
	if len(cfg.Messaging.Kafka.Brokers) != 2 {
		t.Errorf("brokers = %v", cfg.Messaging.Kafka.Brokers)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("database: [unclosed"), 0o600)
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}
