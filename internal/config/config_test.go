package config

import (
	"testing"
	"time"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPAddr != ":6161" {
		t.Errorf("expected HTTPAddr :6161, got %s", cfg.HTTPAddr)
	}
	if cfg.ActionIntentThreshold != 0.8 {
		t.Errorf("expected ActionIntentThreshold 0.8, got %v", cfg.ActionIntentThreshold)
	}
	if cfg.AutonomousMaxSteps != 16 {
		t.Errorf("expected AutonomousMaxSteps 16, got %d", cfg.AutonomousMaxSteps)
	}
	if cfg.ToolServerStartTimeout != 60*time.Second {
		t.Errorf("expected ToolServerStartTimeout 60s, got %v", cfg.ToolServerStartTimeout)
	}
	if cfg.SchedulerStateMinPublishInterval != 10*time.Second {
		t.Errorf("expected SchedulerStateMinPublishInterval 10s, got %v", cfg.SchedulerStateMinPublishInterval)
	}
	if cfg.WorkflowEventQueueMaxSize != 5000 {
		t.Errorf("expected WorkflowEventQueueMaxSize 5000, got %d", cfg.WorkflowEventQueueMaxSize)
	}
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("HER_ACTION_INTENT_THRESHOLD", "0.9")
	t.Setenv("MCP_SERVER_START_TIMEOUT_SECONDS", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ActionIntentThreshold != 0.9 {
		t.Errorf("expected ActionIntentThreshold 0.9, got %v", cfg.ActionIntentThreshold)
	}
	if cfg.ToolServerStartTimeout != 30*time.Second {
		t.Errorf("expected ToolServerStartTimeout 30s, got %v", cfg.ToolServerStartTimeout)
	}
}
