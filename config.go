package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	SlackBotToken string `yaml:"slack_bot_token"`
	SlackAppToken string `yaml:"slack_app_token"`

	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AdviceModel     string `yaml:"advice_model"`

	DBPath      string `yaml:"db_path"`
	CatalogPath string `yaml:"catalog_path"`

	SheetEndpoint  string `yaml:"sheet_endpoint"`
	SheetAPIKey    string `yaml:"sheet_api_key"`
	ImportSchedule string `yaml:"import_schedule"`
	ImportChannel  string `yaml:"import_channel_id"`

	StaffSlackIDs []string `yaml:"staff_slack_ids"`

	HighTargetPercent float64 `yaml:"high_target_percent"`
	BaselinePercent   float64 `yaml:"baseline_percent"`

	Timezone string         `yaml:"timezone"`
	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackAppToken, "SLACK_APP_TOKEN")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.AdviceModel, "ADVICE_MODEL")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.CatalogPath, "CATALOG_PATH")
	envOverride(&cfg.SheetEndpoint, "SHEET_ENDPOINT")
	envOverride(&cfg.SheetAPIKey, "SHEET_API_KEY")
	envOverride(&cfg.ImportSchedule, "IMPORT_SCHEDULE")
	envOverride(&cfg.ImportChannel, "IMPORT_CHANNEL_ID")
	envOverrideFloat(&cfg.HighTargetPercent, "HIGH_TARGET_PERCENT")
	envOverrideFloat(&cfg.BaselinePercent, "BASELINE_PERCENT")
	envOverride(&cfg.Timezone, "TIMEZONE")

	if ids := os.Getenv("STAFF_SLACK_IDS"); ids != "" {
		cfg.StaffSlackIDs = nil
		for _, id := range strings.Split(ids, ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				cfg.StaffSlackIDs = append(cfg.StaffSlackIDs, id)
			}
		}
	}

	// Defaults
	if cfg.DBPath == "" {
		cfg.DBPath = "./assessbot.db"
	}
	if cfg.HighTargetPercent == 0 {
		cfg.HighTargetPercent = 0.65
	}
	if cfg.BaselinePercent == 0 {
		cfg.BaselinePercent = 0.45
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	// Validate required fields
	required := map[string]string{
		"slack_bot_token":   cfg.SlackBotToken,
		"slack_app_token":   cfg.SlackAppToken,
		"anthropic_api_key": cfg.AnthropicAPIKey,
	}
	for name, val := range required {
		if val == "" {
			log.Fatalf("Required config '%s' is not set (via config.yaml or env var)", name)
		}
	}

	if err := validatePolicyPercents(cfg.BaselinePercent, cfg.HighTargetPercent); err != nil {
		log.Fatalf("invalid threshold configuration: %v", err)
	}
	if cfg.ImportSchedule != "" && cfg.SheetEndpoint == "" {
		log.Fatalf("import_schedule is set but sheet_endpoint is not")
	}
	if cfg.CatalogPath != "" {
		if _, err := LoadCatalog(cfg.CatalogPath); err != nil {
			log.Fatalf("invalid catalog_path '%s': %v", cfg.CatalogPath, err)
		}
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
		cfg.Timezone = time.Local.String()
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	return cfg
}

func validatePolicyPercents(baseline, high float64) error {
	if baseline <= 0 || baseline >= 1 {
		return fmt.Errorf("baseline_percent %v must be between 0 and 1 exclusive", baseline)
	}
	if high <= 0 || high >= 1 {
		return fmt.Errorf("high_target_percent %v must be between 0 and 1 exclusive", high)
	}
	if baseline >= high {
		return fmt.Errorf("baseline_percent %v must be below high_target_percent %v", baseline, high)
	}
	return nil
}

// PolicyTable builds the injected tier-to-percentage mapping from the
// configured cutoffs.
func (c Config) PolicyTable() PolicyTable {
	return PolicyTable{
		PolicyHighTarget: c.HighTargetPercent,
		PolicyBaseline:   c.BaselinePercent,
	}
}

// IsStaffID reports whether a Slack user ID belongs to facility staff.
// Staff callers receive a privileged capability.
func (c Config) IsStaffID(userID string) bool {
	for _, id := range c.StaffSlackIDs {
		if strings.TrimSpace(id) == userID {
			return true
		}
	}
	return false
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
