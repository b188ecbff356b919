package main

import (
	"os"
	"path/filepath"
	"testing"
)

func setMinimalValidConfigEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("SLACK_APP_TOKEN", "xapp-test")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("TIMEZONE", "UTC")
}

func TestLoadConfigFromEnvWithDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing-config.yaml"))
	setMinimalValidConfigEnv(t)
	t.Setenv("STAFF_SLACK_IDS", "U12345, U67890")

	cfg := LoadConfig()

	if cfg.SlackBotToken != "xoxb-test" {
		t.Fatalf("unexpected slack bot token: %q", cfg.SlackBotToken)
	}
	if cfg.SlackAppToken != "xapp-test" {
		t.Fatalf("unexpected slack app token: %q", cfg.SlackAppToken)
	}
	if cfg.AnthropicAPIKey != "sk-ant-test" {
		t.Fatalf("unexpected anthropic key: %q", cfg.AnthropicAPIKey)
	}
	if cfg.DBPath != "./assessbot.db" {
		t.Fatalf("unexpected db path default: %q", cfg.DBPath)
	}
	if cfg.HighTargetPercent != 0.65 || cfg.BaselinePercent != 0.45 {
		t.Fatalf("unexpected threshold defaults: high=%v baseline=%v", cfg.HighTargetPercent, cfg.BaselinePercent)
	}
	if cfg.Location == nil || cfg.Location.String() != "UTC" {
		t.Fatalf("unexpected location: %v", cfg.Location)
	}
	if len(cfg.StaffSlackIDs) != 2 {
		t.Fatalf("expected 2 staff IDs, got %d", len(cfg.StaffSlackIDs))
	}
}

func TestLoadConfigYAMLAndEnvOverride(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
slack_bot_token: "yaml-bot"
slack_app_token: "yaml-app"
anthropic_api_key: "yaml-anthropic"
timezone: "America/Los_Angeles"
db_path: "/tmp/yaml.db"
high_target_percent: 0.7
baseline_percent: 0.3
sheet_endpoint: "https://sheets.example.com/values"
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_PATH", cfgPath)
	t.Setenv("ANTHROPIC_API_KEY", "sk-env")
	t.Setenv("DB_PATH", "/tmp/env.db")
	t.Setenv("HIGH_TARGET_PERCENT", "0.8")

	cfg := LoadConfig()

	if cfg.SlackBotToken != "yaml-bot" {
		t.Fatalf("expected bot token from yaml, got %q", cfg.SlackBotToken)
	}
	if cfg.AnthropicAPIKey != "sk-env" {
		t.Fatalf("expected anthropic key from env override, got %q", cfg.AnthropicAPIKey)
	}
	if cfg.DBPath != "/tmp/env.db" {
		t.Fatalf("expected db path from env override, got %q", cfg.DBPath)
	}
	if cfg.HighTargetPercent != 0.8 {
		t.Fatalf("expected high target from env override, got %v", cfg.HighTargetPercent)
	}
	if cfg.BaselinePercent != 0.3 {
		t.Fatalf("expected baseline from yaml, got %v", cfg.BaselinePercent)
	}
	if cfg.SheetEndpoint != "https://sheets.example.com/values" {
		t.Fatalf("expected sheet endpoint from yaml, got %q", cfg.SheetEndpoint)
	}
	if cfg.Location == nil || cfg.Location.String() != "America/Los_Angeles" {
		t.Fatalf("unexpected location: %v", cfg.Location)
	}
}

func TestValidatePolicyPercents(t *testing.T) {
	tests := []struct {
		name     string
		baseline float64
		high     float64
		wantErr  bool
	}{
		{"valid defaults", 0.45, 0.65, false},
		{"baseline at zero", 0, 0.65, true},
		{"high at one", 0.45, 1, true},
		{"baseline above high", 0.7, 0.65, true},
		{"baseline equals high", 0.5, 0.5, true},
		{"negative baseline", -0.1, 0.65, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePolicyPercents(tt.baseline, tt.high)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validatePolicyPercents(%v, %v) = %v, wantErr=%v", tt.baseline, tt.high, err, tt.wantErr)
			}
		})
	}
}

func TestConfigPolicyTable(t *testing.T) {
	cfg := Config{HighTargetPercent: 0.7, BaselinePercent: 0.3}
	table := cfg.PolicyTable()

	got, err := table.Resolve(PolicyHighTarget)
	if err != nil || got != 0.7 {
		t.Fatalf("Resolve(high) = %v, %v", got, err)
	}
	got, err = table.Resolve(PolicyBaseline)
	if err != nil || got != 0.3 {
		t.Fatalf("Resolve(baseline) = %v, %v", got, err)
	}
}

func TestIsStaffID(t *testing.T) {
	cfg := Config{StaffSlackIDs: []string{"U12345", " U67890 "}}

	if !cfg.IsStaffID("U12345") {
		t.Error("expected U12345 to be staff")
	}
	if !cfg.IsStaffID("U67890") {
		t.Error("expected U67890 to be staff despite whitespace in config")
	}
	if cfg.IsStaffID("U99999") {
		t.Error("expected U99999 not to be staff")
	}
	if (Config{}).IsStaffID("U12345") {
		t.Error("expected no staff when list is empty")
	}
}

func TestEnvOverrideHelpers(t *testing.T) {
	s := "initial"
	t.Setenv("AB_TEST_STR", "value")
	envOverride(&s, "AB_TEST_STR")
	if s != "value" {
		t.Fatalf("envOverride failed, got %q", s)
	}

	f := 0.1
	t.Setenv("AB_TEST_FLOAT", "0.75")
	envOverrideFloat(&f, "AB_TEST_FLOAT")
	if f != 0.75 {
		t.Fatalf("envOverrideFloat failed, got %f", f)
	}

	unset := "keep"
	envOverride(&unset, "AB_TEST_UNSET")
	if unset != "keep" {
		t.Fatalf("envOverride mutated field for unset var, got %q", unset)
	}
}
