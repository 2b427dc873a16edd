// Package config loads the bot's settings from defaults, an optional YAML
// file and LEDGERBOT_ environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // zone database for images without /usr/share/zoneinfo

	"github.com/dvloznov/ledger-bot/internal/domain"
	"github.com/dvloznov/ledger-bot/internal/extract"
	"github.com/dvloznov/ledger-bot/internal/ledger"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// LEDGERBOT_TELEGRAM_TOKEN for telegram.token.
const EnvPrefix = "LEDGERBOT"

// Config holds application configuration.
type Config struct {
	Telegram TelegramConfig
	Server   ServerConfig
	Ledger   LedgerConfig
	AI       AIConfig `mapstructure:"ai"`
	Features FeaturesConfig
	Receipts ReceiptsConfig
	Catalog  CatalogConfig
	Session  SessionConfig
	Dispatch DispatchConfig
	Log      LogConfig
}

// TelegramConfig holds bot API settings.
type TelegramConfig struct {
	Token         string
	WebhookURL    string `mapstructure:"webhook_url"`
	WebhookPath   string `mapstructure:"webhook_path"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type ServerConfig struct {
	Port int
}

// LedgerConfig selects the ledger backend and carries the settings of each.
type LedgerConfig struct {
	Backend         string
	CredentialsJSON string `mapstructure:"credentials_json"`
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	Worksheet       string
	Timezone        string

	ProjectID string `mapstructure:"project_id"`
	Dataset   string
	Table     string

	NotionToken      string `mapstructure:"notion_token"`
	NotionDatabaseID string `mapstructure:"notion_database_id"`
}

// AIConfig holds extraction provider settings.
type AIConfig struct {
	Enabled  bool
	Provider string
	APIKey   string `mapstructure:"api_key"`
	Model    string
	Timeout  time.Duration
}

type FeaturesConfig struct {
	ReceiptImages bool `mapstructure:"receipt_images"`
}

type ReceiptsConfig struct {
	Bucket string
}

type CatalogConfig struct {
	Path string
}

type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type DispatchConfig struct {
	Workers    int
	BufferSize int `mapstructure:"buffer_size"`
}

type LogConfig struct {
	Level  string
	Format string
}

// legacyEnv maps keys to the variable names of earlier deployments, which
// are still honoured when the LEDGERBOT_ variable is unset.
var legacyEnv = map[string]string{
	"telegram.token":          "TELEGRAM_BOT_TOKEN",
	"telegram.webhook_url":    "RENDER_EXTERNAL_URL",
	"server.port":             "PORT",
	"ledger.credentials_json": "GOOGLE_CREDENTIALS_JSON",
}

// Load reads configuration from file and env. The file is read from
// LEDGERBOT_CONFIG when set, otherwise ./ledgerbot.yaml if present.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("telegram.webhook_path", "telegram")
	v.SetDefault("server.port", 8080)
	v.SetDefault("ledger.backend", ledger.BackendSheets)
	v.SetDefault("ledger.worksheet", ledger.DefaultWorksheet)
	v.SetDefault("ledger.timezone", "America/Lima")
	v.SetDefault("ledger.table", "transactions")
	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.provider", extract.ProviderGemini)
	v.SetDefault("ai.timeout", 30*time.Second)
	v.SetDefault("features.receipt_images", false)
	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("session.sweep_interval", 5*time.Minute)
	v.SetDefault("dispatch.workers", 4)
	v.SetDefault("dispatch.buffer_size", 64)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Keys without a default must still be known to viper for AutomaticEnv
	// to reach them during Unmarshal.
	for _, key := range []string{
		"telegram.token", "telegram.webhook_url", "telegram.webhook_secret",
		"ledger.credentials_json", "ledger.spreadsheet_id", "ledger.project_id",
		"ledger.dataset", "ledger.notion_token", "ledger.notion_database_id",
		"ai.api_key", "ai.model", "receipts.bucket", "catalog.path",
	} {
		v.SetDefault(key, "")
	}

	v.SetConfigType("yaml")
	if cfgPath := os.Getenv(EnvPrefix + "_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("ledgerbot")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, envName(key), legacy); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Validate reports every required key that is missing, in one error
// wrapping domain.ErrConfigMissing.
func (c Config) Validate() error {
	var missing []string
	require := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}

	require("telegram.token", c.Telegram.Token)
	require("telegram.webhook_url", c.Telegram.WebhookURL)

	switch c.Ledger.Backend {
	case ledger.BackendSheets, "":
		require("ledger.credentials_json", c.Ledger.CredentialsJSON)
		require("ledger.spreadsheet_id", c.Ledger.SpreadsheetID)
	case ledger.BackendBigQuery:
		require("ledger.project_id", c.Ledger.ProjectID)
		require("ledger.dataset", c.Ledger.Dataset)
		require("ledger.table", c.Ledger.Table)
	case ledger.BackendNotion:
		require("ledger.notion_token", c.Ledger.NotionToken)
		require("ledger.notion_database_id", c.Ledger.NotionDatabaseID)
	case ledger.BackendMemory:
	default:
		return fmt.Errorf("%w: unknown ledger.backend %q", domain.ErrConfigMissing, c.Ledger.Backend)
	}

	if c.AI.Enabled {
		switch c.AI.Provider {
		case extract.ProviderGemini, extract.ProviderAnthropic:
		default:
			return fmt.Errorf("%w: unknown ai.provider %q", domain.ErrConfigMissing, c.AI.Provider)
		}
		require("ai.api_key", c.AI.APIKey)
	}

	if c.Features.ReceiptImages && !c.AI.Enabled {
		missing = append(missing, "ai.enabled (required by features.receipt_images)")
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: ledger.timezone: %v", domain.ErrConfigMissing, err)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrConfigMissing, strings.Join(missing, ", "))
	}
	return nil
}

// Location resolves ledger.timezone. Empty means UTC.
func (c Config) Location() (*time.Location, error) {
	if c.Ledger.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Ledger.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", c.Ledger.Timezone, err)
	}
	return loc, nil
}

// LedgerOpenConfig returns the settings ledger.Open needs.
func (c Config) LedgerOpenConfig(loc *time.Location) ledger.Config {
	return ledger.Config{
		Backend:          c.Ledger.Backend,
		Location:         loc,
		CredentialsJSON:  c.Ledger.CredentialsJSON,
		SpreadsheetID:    c.Ledger.SpreadsheetID,
		Worksheet:        c.Ledger.Worksheet,
		ProjectID:        c.Ledger.ProjectID,
		Dataset:          c.Ledger.Dataset,
		Table:            c.Ledger.Table,
		NotionToken:      c.Ledger.NotionToken,
		NotionDatabaseID: c.Ledger.NotionDatabaseID,
	}
}
