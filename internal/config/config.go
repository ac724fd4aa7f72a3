package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/MEKXH/warden/internal/policy"
)

// Config root configuration
type Config struct {
	Discord   DiscordConfig   `mapstructure:"discord" json:"discord"`
	Watchlist WatchlistConfig `mapstructure:"watchlist" json:"watchlist"`
	Storage   StorageConfig   `mapstructure:"storage" json:"storage"`
	Gateway   GatewayConfig   `mapstructure:"gateway" json:"gateway"`
	Log       LogConfig       `mapstructure:"log" json:"log"`
}

// DiscordConfig Discord bot settings
type DiscordConfig struct {
	Token         string `mapstructure:"token" json:"token"`
	ApplicationID string `mapstructure:"application_id" json:"application_id"`
	// GuildID scopes command registration and message handling to one server.
	GuildID            string      `mapstructure:"guild_id" json:"guild_id"`
	AllowGuilds        []string    `mapstructure:"allow_guilds" json:"allow_guilds"`
	WatchlistChannelID string      `mapstructure:"watchlist_channel_id" json:"watchlist_channel_id"`
	RequestChannelID   string      `mapstructure:"request_channel_id" json:"request_channel_id"`
	ModLogChannelID    string      `mapstructure:"mod_log_channel_id" json:"mod_log_channel_id"`
	CommandPrefix      string      `mapstructure:"command_prefix" json:"command_prefix"`
	Roles              RolesConfig `mapstructure:"roles" json:"roles"`
}

// RolesConfig maps watchlist operations to Discord role ids.
type RolesConfig struct {
	Admin   []string `mapstructure:"admin" json:"admin"`
	Add     []string `mapstructure:"add" json:"add"`
	Remove  []string `mapstructure:"remove" json:"remove"`
	Request []string `mapstructure:"request" json:"request"`
	Review  []string `mapstructure:"review" json:"review"`
	Refresh []string `mapstructure:"refresh" json:"refresh"`
}

// WatchlistConfig watchlist behaviour
type WatchlistConfig struct {
	Timezone        string `mapstructure:"timezone" json:"timezone"`
	DirectAddPolicy string `mapstructure:"direct_add_policy" json:"direct_add_policy"`
	// RefreshSchedule is a 5-field cron expression. Empty disables it.
	RefreshSchedule       string `mapstructure:"refresh_schedule" json:"refresh_schedule"`
	TentativeGraceSeconds int    `mapstructure:"tentative_grace_seconds" json:"tentative_grace_seconds"`
	AvatarURLTemplate     string `mapstructure:"avatar_url_template" json:"avatar_url_template"`
}

// StorageConfig persistence settings
type StorageConfig struct {
	DataDir string `mapstructure:"data_dir" json:"data_dir"`
}

// GatewayConfig server settings
type GatewayConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Host    string `mapstructure:"host" json:"host"`
	Port    int    `mapstructure:"port" json:"port"`
	Token   string `mapstructure:"token" json:"token"`
}

// LogConfig application logging settings
type LogConfig struct {
	Level string `mapstructure:"level" json:"level"`
	File  string `mapstructure:"file" json:"file"`
}

const (
	defaultTimezone       = "America/Boise"
	defaultTentativeGrace = 300
	defaultAvatarTemplate = "https://mineskin.eu/helm/{subject}/100.png"
)

// DefaultConfig returns config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Discord: DiscordConfig{
			AllowGuilds:   []string{},
			CommandPrefix: "!",
		},
		Watchlist: WatchlistConfig{
			Timezone:              defaultTimezone,
			DirectAddPolicy:       "reject",
			TentativeGraceSeconds: defaultTentativeGrace,
			AvatarURLTemplate:     defaultAvatarTemplate,
		},
		Storage: StorageConfig{
			DataDir: filepath.Join(ConfigDir(), "data"),
		},
		Gateway: GatewayConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    18790,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ConfigDir returns the warden config directory
func ConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		slog.Warn("failed to resolve home directory, using current directory as fallback", "error", err)
		homeDir = "."
	}
	return filepath.Join(homeDir, ".warden")
}

// ConfigPath returns the config file path
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// LoadDotEnv loads KEY=value pairs from .env files without overriding the
// existing environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads config from file or returns defaults
func Load() (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		slog.Warn("dotenv load failed", "error", err)
	}

	cfg := DefaultConfig()

	configPath := ConfigPath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := Save(cfg); err != nil {
			return cfg, fmt.Errorf("failed to create default config: %w", err)
		}
		cfg.applyEnv()
		return cfg, cfg.Validate()
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	v.SetEnvPrefix("WARDEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return cfg, err
	}

	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.MatchName = func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		}
	}); err != nil {
		return cfg, err
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnv fills the bot token from DISCORD_TOKEN when the file leaves it empty.
func (c *Config) applyEnv() {
	if strings.TrimSpace(c.Discord.Token) == "" {
		c.Discord.Token = strings.TrimSpace(os.Getenv("DISCORD_TOKEN"))
	}
}

func normalizeKey(input string) string {
	input = strings.ReplaceAll(input, "_", "")
	input = strings.ReplaceAll(input, "-", "")
	return strings.ToLower(input)
}

// Save saves config to file
func Save(cfg *Config) error {
	configPath := ConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

// Validate checks that the configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	w := &c.Watchlist

	if strings.TrimSpace(w.Timezone) == "" {
		w.Timezone = defaultTimezone
	}
	if _, err := time.LoadLocation(w.Timezone); err != nil {
		return fmt.Errorf("watchlist.timezone %q is not a known time zone: %w", w.Timezone, err)
	}

	switch strings.ToLower(strings.TrimSpace(w.DirectAddPolicy)) {
	case "":
		w.DirectAddPolicy = "reject"
	case "reject", "replace":
		w.DirectAddPolicy = strings.ToLower(strings.TrimSpace(w.DirectAddPolicy))
	default:
		return fmt.Errorf("watchlist.direct_add_policy must be one of: reject, replace; got %q", w.DirectAddPolicy)
	}

	if expr := strings.TrimSpace(w.RefreshSchedule); expr != "" && !gronx.New().IsValid(expr) {
		return fmt.Errorf("watchlist.refresh_schedule is not a valid cron expression: %q", w.RefreshSchedule)
	}

	if w.TentativeGraceSeconds < 0 {
		return fmt.Errorf("watchlist.tentative_grace_seconds must not be negative, got %d", w.TentativeGraceSeconds)
	}
	if w.TentativeGraceSeconds == 0 {
		w.TentativeGraceSeconds = defaultTentativeGrace
	}

	if strings.TrimSpace(c.Discord.CommandPrefix) == "" {
		c.Discord.CommandPrefix = "!"
	}
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		c.Storage.DataDir = filepath.Join(ConfigDir(), "data")
	}

	if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
		return fmt.Errorf("gateway.port must be between 1 and 65535, got %d", c.Gateway.Port)
	}

	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	if level == "" {
		c.Log.Level = "info"
	} else {
		validLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLevels[level] {
			return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
		}
		c.Log.Level = level
	}

	return nil
}

// Location returns the configured watchlist time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Watchlist.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TentativeGrace returns how long an unposted reservation may live.
func (c *Config) TentativeGrace() time.Duration {
	return time.Duration(c.Watchlist.TentativeGraceSeconds) * time.Second
}

// DataDirPath returns the data directory with a leading ~ expanded.
func (c *Config) DataDirPath() string {
	dir := strings.TrimSpace(c.Storage.DataDir)
	if dir == "" {
		return filepath.Join(ConfigDir(), "data")
	}
	if dir[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return dir
		}
		rest := strings.TrimPrefix(strings.TrimPrefix(dir[1:], string(filepath.Separator)), "/")
		return filepath.Join(homeDir, rest)
	}
	return dir
}

// Policy returns the role mapping for the authorization evaluator.
func (c *Config) Policy() policy.Config {
	r := c.Discord.Roles
	return policy.Config{
		Roles: map[policy.Operation][]string{
			policy.OpAdd:     r.Add,
			policy.OpRemove:  r.Remove,
			policy.OpRequest: r.Request,
			policy.OpReview:  r.Review,
			policy.OpRefresh: r.Refresh,
		},
		AdminRoles: r.Admin,
	}
}
