package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	IEX struct {
		Token         string `yaml:"token"`
		ProductionURL string `yaml:"production_url"`
		SandboxURL    string `yaml:"sandbox_url"`
		NewsCount     int    `yaml:"news_count"`
	} `yaml:"iex"`
	Cache struct {
		Enabled       *bool  `yaml:"enabled"`
		Backend       string `yaml:"backend"`
		Folder        string `yaml:"folder"`
		MinuteBuckets int    `yaml:"minute_buckets"`
		DayBuckets    int    `yaml:"day_buckets"`
		Timezone      string `yaml:"timezone"`
		Redis         struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Schedule struct {
		PrewarmCron string   `yaml:"prewarm_cron"`
		SweepCron   string   `yaml:"sweep_cron"`
		Watchlist   []string `yaml:"watchlist"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("IEX_TOKEN"); v != "" {
		cfg.IEX.Token = v
	}
	if v := os.Getenv("IEX_PRODUCTION_URL"); v != "" {
		cfg.IEX.ProductionURL = v
	}
	if v := os.Getenv("IEX_SANDBOX_URL"); v != "" {
		cfg.IEX.SandboxURL = v
	}
	if v := os.Getenv("CACHE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Cache.Enabled = &b
		}
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("CACHE_FOLDER"); v != "" {
		cfg.Cache.Folder = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.Redis.Password = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		cfg.Schedule.Watchlist = splitList(v)
	}
	if v := os.Getenv("CRON_PREWARM"); v != "" {
		cfg.Schedule.PrewarmCron = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.IEX.ProductionURL == "" {
		cfg.IEX.ProductionURL = "https://cloud.iexapis.com/v1"
	}
	if cfg.IEX.SandboxURL == "" {
		cfg.IEX.SandboxURL = "https://sandbox.iexapis.com/v1"
	}
	if cfg.IEX.NewsCount == 0 {
		cfg.IEX.NewsCount = 3
	}
	if cfg.Cache.Enabled == nil {
		enabled := true
		cfg.Cache.Enabled = &enabled
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "file"
	}
	if cfg.Cache.Folder == "" {
		cfg.Cache.Folder = "data/cache"
	}
	if cfg.Cache.MinuteBuckets == 0 {
		cfg.Cache.MinuteBuckets = 3
	}
	if cfg.Cache.DayBuckets == 0 {
		cfg.Cache.DayBuckets = 3
	}
	if cfg.Cache.Timezone == "" {
		cfg.Cache.Timezone = "Local"
	}
	if cfg.Cache.Redis.Addr == "" {
		cfg.Cache.Redis.Addr = "localhost:6379"
	}
	if cfg.Cache.Redis.Prefix == "" {
		cfg.Cache.Redis.Prefix = "overview:"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Schedule.PrewarmCron == "" {
		cfg.Schedule.PrewarmCron = "0 */5 14-21 * * 1-5"
	}
	if cfg.Schedule.SweepCron == "" {
		cfg.Schedule.SweepCron = "0 0 * * * *"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/overview.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	return cfg, nil
}

// CacheEnabled reports whether responses are memoized at all.
func (c *Config) CacheEnabled() bool {
	return c.Cache.Enabled == nil || *c.Cache.Enabled
}

// TelegramEnabled reports whether both bot token and chat id are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Location resolves cache.timezone, the zone bucket keys are cut in.
func (c *Config) Location() (*time.Location, error) {
	if c.Cache.Timezone == "" || c.Cache.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Cache.Timezone)
	if err != nil {
		return nil, fmt.Errorf("cache.timezone: %w", err)
	}
	return loc, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Cache.Backend != "file" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache.backend must be file or redis, got %q", c.Cache.Backend)
	}
	if c.Cache.MinuteBuckets < 0 || c.Cache.DayBuckets < 0 {
		return fmt.Errorf("cache retention must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, strings.ToUpper(s))
		}
	}
	return out
}
