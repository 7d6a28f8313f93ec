// Package config loads the server settings from .env, an optional
// orbit.yaml and the environment.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mklimuk/orbit/pkg/automation"
)

// EnvPrefix prefixes every environment variable, e.g. ORBIT_PORT.
const EnvPrefix = "ORBIT"

// Config is the full server configuration.
type Config struct {
	Port            string        `mapstructure:"port"`
	DBPath          string        `mapstructure:"db"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	Notion          Notion        `mapstructure:"notion"`
	Vault           Vault         `mapstructure:"vault"`
	AI              AI            `mapstructure:"ai"`
	Telegram        Telegram      `mapstructure:"telegram"`
	Discord         Discord       `mapstructure:"discord"`
	Calendar        Calendar      `mapstructure:"calendar"`
	Digest          Digest        `mapstructure:"digest"`
}

// Notion selects the remote task database.
type Notion struct {
	Token      string `mapstructure:"token"`
	DatabaseID string `mapstructure:"database_id"`
	Version    string `mapstructure:"version"`
	PageSize   int    `mapstructure:"page_size"`
	SkipDone   bool   `mapstructure:"skip_done"`
}

// Enabled reports whether a Notion database is configured.
func (n Notion) Enabled() bool { return n.Token != "" || n.DatabaseID != "" }

// Vault points at a folder of markdown task notes.
type Vault struct {
	Path    string   `mapstructure:"path"`
	Exclude []string `mapstructure:"exclude"`

	// StoreLocal keeps local tasks as notes in the vault instead of SQLite.
	StoreLocal  bool   `mapstructure:"store_local"`
	GitSync     bool   `mapstructure:"git_sync"`
	SSHKeyPath  string `mapstructure:"ssh_key"`
	AuthorEmail string `mapstructure:"author_email"`
}

// AI selects the review and inbox drafting model.
type AI struct {
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
}

// Telegram configures the Telegram bot.
type Telegram struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

// Discord configures the Discord bot.
type Discord struct {
	Token     string `mapstructure:"token"`
	ChannelID string `mapstructure:"channel_id"`
}

// Calendar configures deadline publishing.
type Calendar struct {
	CredentialsFile string `mapstructure:"credentials"`
	CalendarID      string `mapstructure:"id"`
	Schedule        string `mapstructure:"schedule"`
}

// Enabled reports whether calendar publishing is configured.
func (c Calendar) Enabled() bool { return c.CredentialsFile != "" }

// Digest configures the scheduled chat digest.
type Digest struct {
	Schedule string `mapstructure:"schedule"`
	Timezone string `mapstructure:"timezone"`
}

// defaults are applied before the config file and environment.
var defaults = map[string]any{
	"port":                 "8080",
	"db":                   "orbit.db",
	"refresh_interval":     5 * time.Minute,
	"notion.token":         "",
	"notion.database_id":   "",
	"notion.version":       "2022-06-28",
	"notion.page_size":     100,
	"notion.skip_done":     false,
	"vault.path":           "",
	"vault.exclude":        []string{},
	"vault.store_local":    false,
	"vault.git_sync":       false,
	"vault.ssh_key":        "",
	"vault.author_email":   "orbit@localhost",
	"ai.provider":          "gemini",
	"ai.api_key":           "",
	"ai.model":             "",
	"telegram.token":       "",
	"telegram.chat_id":     0,
	"discord.token":        "",
	"discord.channel_id":   "",
	"calendar.credentials": "",
	"calendar.id":          "primary",
	"calendar.schedule":    "@every 15m",
	"digest.schedule":      "0 8 * * *",
	"digest.timezone":      "UTC",
}

// legacyEnv binds keys to the variable names used before the ORBIT_
// prefix existed; the prefixed name wins when both are set.
var legacyEnv = map[string][]string{
	"notion.token":       {"NOTION_API_KEY"},
	"notion.database_id": {"NOTION_DATABASE_ID"},
	"notion.version":     {"NOTION_API_VERSION"},
	"telegram.token":     {"TELEGRAM_TOKEN"},
	"discord.token":      {"DISCORD_TOKEN"},
}

// providerKeyEnv is the legacy API key variable of each AI provider. It is
// read only for the configured provider.
var providerKeyEnv = map[string]string{
	"gemini":   "GEMINI_API_KEY",
	"moonshot": "MOONSHOT_API_KEY",
	"openai":   "OPENAI_API_KEY",
}

// Load reads .env, then path (or ./orbit.yaml when path is empty and the
// file exists), then the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Config: no .env file found")
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		envs := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("orbit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.AI.APIKey == "" {
		if name, ok := providerKeyEnv[strings.ToLower(cfg.AI.Provider)]; ok {
			cfg.AI.APIKey = os.Getenv(name)
		}
	}
	return &cfg, nil
}

// Validate reports every inconsistent or missing setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.RefreshInterval <= 0 {
		errs = append(errs, errors.New("refresh_interval must be positive"))
	}
	if c.Notion.Enabled() {
		if c.Notion.Token == "" {
			errs = append(errs, errors.New("notion token is required (NOTION_API_KEY)"))
		}
		if c.Notion.DatabaseID == "" {
			errs = append(errs, errors.New("notion database id is required (NOTION_DATABASE_ID)"))
		}
	}
	if c.Notion.PageSize < 1 || c.Notion.PageSize > 100 {
		errs = append(errs, fmt.Errorf("notion page_size must be between 1 and 100, got %d", c.Notion.PageSize))
	}
	if c.Vault.StoreLocal && c.Vault.Path == "" {
		errs = append(errs, errors.New("vault.store_local needs vault.path"))
	}
	if c.Vault.GitSync && c.Vault.Path == "" {
		errs = append(errs, errors.New("vault.git_sync needs vault.path"))
	}
	switch strings.ToLower(c.AI.Provider) {
	case "", "gemini", "moonshot", "kimi", "openai":
	default:
		errs = append(errs, fmt.Errorf("unknown ai provider %q", c.AI.Provider))
	}
	if c.Digest.Schedule != "" {
		if _, err := automation.Parse(c.Digest.Schedule, c.Digest.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("digest schedule: %w", err))
		}
	}
	if c.Calendar.Enabled() {
		if c.Calendar.CalendarID == "" {
			errs = append(errs, errors.New("calendar id is required"))
		}
		if _, err := automation.Parse(c.Calendar.Schedule, c.Digest.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("calendar schedule: %w", err))
		}
	}
	return errors.Join(errs...)
}
