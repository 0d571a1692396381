package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"sprintreport/internal/aggregate"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 90 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

const (
	defaultBoardID          = 272
	defaultPageSize         = 50
	defaultMaxPages         = 200
	defaultStoryPointsField = "customfield_11922"
	defaultAnthropicModel   = "claude-sonnet-4-5-20250929"
)

type Config struct {
	JiraURL          string `yaml:"jira_url"`
	JiraCredentials  string `yaml:"jira_credentials"` // "user:api-token"
	BoardID          int    `yaml:"board_id"`
	PageSize         int    `yaml:"page_size"`
	MaxPages         int    `yaml:"max_pages"`
	StoryPointsField string `yaml:"story_points_field"`

	Teams              []string             `yaml:"teams"`
	UnmappedTeam       string               `yaml:"unmapped_team"`
	EpicMapping        []aggregate.EpicRule `yaml:"epic_mapping"`
	NotStartedStatuses []string             `yaml:"not_started_statuses"`
	DoneStatuses       []string             `yaml:"done_statuses"`
	IncludeEpicRows    bool                 `yaml:"include_epic_rows"`
	DefaultSprint      string               `yaml:"default_sprint"`

	ReportOutputDir            string `yaml:"report_output_dir"`
	TeamName                   string `yaml:"team_name"`
	DBPath                     string `yaml:"db_path"`
	ExternalHTTPTimeoutSeconds int    `yaml:"external_http_timeout_seconds"`
	Timezone                   string `yaml:"timezone"`
	ReportSchedule             string `yaml:"report_schedule"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`

	LLMSummaryEnabled bool   `yaml:"llm_summary_enabled"`
	LLMModel          string `yaml:"llm_model"`
	AnthropicAPIKey   string `yaml:"anthropic_api_key"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

// LoadConfig loads the configuration and exits the process when it is invalid.
func LoadConfig() Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// Load reads .env, then config.yaml (or CONFIG_PATH), then applies env var
// overrides, defaults and validation.
func Load() (Config, error) {
	var cfg Config

	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	envOverride(&cfg.JiraURL, "JIRA_DOMAIN")
	envOverride(&cfg.JiraURL, "JIRA_URL")
	envOverride(&cfg.JiraCredentials, "JIRA_CREDS")
	if err := envOverrideInt(&cfg.BoardID, "JIRA_BOARD_ID"); err != nil {
		return Config{}, err
	}
	if err := envOverrideInt(&cfg.PageSize, "JIRA_PAGE_SIZE"); err != nil {
		return Config{}, err
	}
	if err := envOverrideInt(&cfg.MaxPages, "JIRA_MAX_PAGES"); err != nil {
		return Config{}, err
	}
	envOverride(&cfg.StoryPointsField, "STORY_POINTS_FIELD")
	envOverrideList(&cfg.Teams, "TEAMS")
	envOverride(&cfg.UnmappedTeam, "UNMAPPED_TEAM")
	if raw := os.Getenv("EPIC_MAPPING"); raw != "" {
		rules, err := parseEpicMapping(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid EPIC_MAPPING: %w", err)
		}
		cfg.EpicMapping = rules
	}
	envOverrideList(&cfg.NotStartedStatuses, "NOT_STARTED_STATUSES")
	envOverrideList(&cfg.DoneStatuses, "DONE_STATUSES")
	if err := envOverrideBool(&cfg.IncludeEpicRows, "INCLUDE_EPIC_ROWS"); err != nil {
		return Config{}, err
	}
	envOverride(&cfg.DefaultSprint, "DEFAULT_SPRINT")
	envOverride(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	envOverride(&cfg.TeamName, "TEAM_NAME")
	envOverride(&cfg.DBPath, "DB_PATH")
	if err := envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS"); err != nil {
		return Config{}, err
	}
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverride(&cfg.ReportSchedule, "REPORT_SCHEDULE")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	if err := envOverrideBool(&cfg.LLMSummaryEnabled, "LLM_SUMMARY_ENABLED"); err != nil {
		return Config{}, err
	}
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.BoardID == 0 {
		cfg.BoardID = defaultBoardID
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.MaxPages == 0 {
		cfg.MaxPages = defaultMaxPages
	}
	if cfg.StoryPointsField == "" {
		cfg.StoryPointsField = defaultStoryPointsField
	}
	if len(cfg.Teams) == 0 {
		cfg.Teams = []string{"Athena", "Apollo", "Geosharding"}
		if cfg.UnmappedTeam == "" {
			cfg.UnmappedTeam = "Apollo"
		}
		if len(cfg.EpicMapping) == 0 {
			cfg.EpicMapping = []aggregate.EpicRule{
				{Epic: "Geosharding", Team: "Geosharding"},
				{Epic: "Care Data Centre", Team: "Athena"},
				{Epic: "Care Live Tasks", Team: "Athena"},
			}
		}
	}
	if len(cfg.NotStartedStatuses) == 0 {
		cfg.NotStartedStatuses = append([]string(nil), aggregate.DefaultNotStartedStatuses...)
	}
	if len(cfg.DoneStatuses) == 0 {
		cfg.DoneStatuses = append([]string(nil), aggregate.DefaultDoneStatuses...)
	}
	if cfg.DefaultSprint == "" {
		cfg.DefaultSprint = "current"
	}
	if cfg.ReportOutputDir == "" {
		cfg.ReportOutputDir = "./reports"
	}
	if cfg.TeamName == "" {
		cfg.TeamName = "Sprint Report"
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultAnthropicModel
	}
}

func validate(cfg *Config) error {
	required := []struct {
		name string
		val  string
	}{
		{"jira_url", cfg.JiraURL},
		{"jira_credentials", cfg.JiraCredentials},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			return fmt.Errorf("required config '%s' is not set (via config.yaml or env var)", r.name)
		}
	}
	cfg.JiraURL = strings.TrimRight(strings.TrimSpace(cfg.JiraURL), "/")

	if cfg.BoardID < 1 {
		return fmt.Errorf("invalid board_id '%d': must be >= 1", cfg.BoardID)
	}
	if cfg.PageSize < 1 {
		return fmt.Errorf("invalid page_size '%d': must be >= 1", cfg.PageSize)
	}
	if cfg.MaxPages < 1 {
		return fmt.Errorf("invalid max_pages '%d': must be >= 1", cfg.MaxPages)
	}
	if cfg.ExternalHTTPTimeoutSeconds < 1 {
		return fmt.Errorf("invalid external_http_timeout_seconds '%d': must be >= 1", cfg.ExternalHTTPTimeoutSeconds)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.DefaultSprint)) {
	case "current", "next", "previous":
	default:
		return fmt.Errorf("default_sprint must be 'current', 'next' or 'previous', got '%s'", cfg.DefaultSprint)
	}

	if _, err := aggregate.NewEpicMapping(cfg.Teams, cfg.UnmappedTeam, cfg.EpicMapping); err != nil {
		return err
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Timezone = time.Local.String()
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone '%s': %w", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	if cfg.SlackChannelID != "" && cfg.SlackBotToken == "" {
		return fmt.Errorf("slack_bot_token is required when slack_channel_id is set")
	}
	if cfg.LLMSummaryEnabled && cfg.AnthropicAPIKey == "" {
		return fmt.Errorf("anthropic_api_key is required when llm_summary_enabled=true")
	}
	return nil
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackChannelID != ""
}

func (c Config) HistoryEnabled() bool {
	return strings.TrimSpace(c.DBPath) != ""
}

// parseEpicMapping parses "Epic A=Team1;Epic B=Team2".
func parseEpicMapping(raw string) ([]aggregate.EpicRule, error) {
	var rules []aggregate.EpicRule
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		epic, team, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("entry %q is not in epic=team form", pair)
		}
		rules = append(rules, aggregate.EpicRule{
			Epic: strings.TrimSpace(epic),
			Team: strings.TrimSpace(team),
		})
	}
	return rules, nil
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideList(field *[]string, envKey string) {
	val := os.Getenv(envKey)
	if val == "" {
		return
	}
	*field = nil
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			*field = append(*field, part)
		}
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideBool(field *bool, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}
