package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	JWT         JWTConfig         `yaml:"jwt"`
	Redis       RedisConfig       `yaml:"redis"`
	Log         LogConfig         `yaml:"log"`
	Pricing     PricingConfig     `yaml:"pricing"`
	TreeBuilder TreeBuilderConfig `yaml:"tree_builder"`
	Industry    IndustryConfig    `yaml:"industry"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpireHour int    `yaml:"expire_hour"`
}

// RedisConfig enables the async sync queue, the price cache and submission locks
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// PricingConfig points at the market price source used for material lines.
type PricingConfig struct {
	BaseURL         string `yaml:"base_url"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	RetryMax        int    `yaml:"retry_max"`
	CacheTTLMinutes int    `yaml:"cache_ttl_minutes"`
	RefreshCron     string `yaml:"refresh_cron"` // empty disables the scheduler
}

// TreeBuilderConfig points at the production tree service.
type TreeBuilderConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RetryMax       int    `yaml:"retry_max"`
	MaxParallel    int    `yaml:"max_parallel"`
}

type IndustryConfig struct {
	DefaultBrokerFeePercent float64            `yaml:"default_broker_fee_percent"`
	DefaultSalesTaxPercent  float64            `yaml:"default_sales_tax_percent"`
	LineRentalRates         map[string]float64 `yaml:"line_rental_rates"` // activity -> ISK per run
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		// Unmarshal over the defaults so partial files keep sane values
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg.overrideFromEnv()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "groupindustry.db",
		},
		JWT: JWTConfig{
			Secret:     "groupindustry-secret-key-change-in-production",
			ExpireHour: 24,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		Log: LogConfig{
			Level: "info",
		},
		Pricing: PricingConfig{
			BaseURL:         "https://esi.evetech.net/latest",
			TimeoutSeconds:  15,
			RetryMax:        3,
			CacheTTLMinutes: 60,
			RefreshCron:     "0 */6 * * *",
		},
		TreeBuilder: TreeBuilderConfig{
			BaseURL:        "http://localhost:8090",
			TimeoutSeconds: 30,
			RetryMax:       2,
			MaxParallel:    4,
		},
		Industry: IndustryConfig{
			DefaultBrokerFeePercent: 3.0,
			DefaultSalesTaxPercent:  3.6,
			LineRentalRates:         map[string]float64{},
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if baseURL := os.Getenv("PRICING_BASE_URL"); baseURL != "" {
		c.Pricing.BaseURL = baseURL
	}
	if refreshCron, ok := os.LookupEnv("PRICING_REFRESH_CRON"); ok {
		c.Pricing.RefreshCron = refreshCron
	}
	if baseURL := os.Getenv("TREE_BUILDER_BASE_URL"); baseURL != "" {
		c.TreeBuilder.BaseURL = baseURL
	}
	if fee := os.Getenv("DEFAULT_BROKER_FEE_PERCENT"); fee != "" {
		if v, err := strconv.ParseFloat(fee, 64); err == nil {
			c.Industry.DefaultBrokerFeePercent = v
		}
	}
	if tax := os.Getenv("DEFAULT_SALES_TAX_PERCENT"); tax != "" {
		if v, err := strconv.ParseFloat(tax, 64); err == nil {
			c.Industry.DefaultSalesTaxPercent = v
		}
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		// Password format: :password or user:password
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	c.Redis.Addr = url
}

// LineRentalRate returns the configured ISK-per-run rate for an activity.
func (c *IndustryConfig) LineRentalRate(activity string) (float64, bool) {
	if c.LineRentalRates == nil {
		return 0, false
	}
	rate, ok := c.LineRentalRates[activity]
	return rate, ok
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
