package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jgivc/harvestoverview/internal/entity"
	"github.com/jinzhu/now"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	BackendFile  = "file"
	BackendRedis = "redis"

	defaultListen   = ":8080"
	defaultPath     = "overview.yml"
	defaultKey      = "overview"
	defaultWorkers  = 4
	defaultTimezone = "UTC"
	defaultEnvFile  = ".env"
)

// harvest_from_date may name a year or a month, it then means its first day.
var fromDateParser = &now.Config{
	TimeLocation: time.UTC,
	TimeFormats:  []string{"2006-1-2", "2006-1", "2006"},
}

type StoreConfig struct {
	Backend  string `yaml:"backend"`
	Path     string `yaml:"path"`
	RedisURL string `yaml:"redis_url"`
	Key      string `yaml:"key"`
}

type CycleConfig struct {
	Workers         int      `yaml:"workers"`
	Timezone        string   `yaml:"timezone"`
	HarvestFromDate string   `yaml:"harvest_from_date"`
	EndpointsFile   string   `yaml:"endpoints_file"`
	Command         []string `yaml:"command"`
}

type Config struct {
	Listen      string      `yaml:"listen"`
	LogLevel    string      `yaml:"log_level"`
	StoreConfig StoreConfig `yaml:"store"`
	CycleConfig CycleConfig `yaml:"cycle"`
}

func (c *Config) SetDefaults() {
	c.Listen = defaultListen
	c.LogLevel = LogLevelInfo
	c.StoreConfig.Backend = BackendFile
	c.StoreConfig.Path = defaultPath
	c.StoreConfig.Key = defaultKey
	c.CycleConfig.Workers = defaultWorkers
	c.CycleConfig.Timezone = defaultTimezone
}

func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("unknown log level: %s", c.LogLevel)
	}

	switch c.StoreConfig.Backend {
	case BackendFile:
		if c.StoreConfig.Path == "" {
			return errors.New("store path is empty")
		}
	case BackendRedis:
		if c.StoreConfig.RedisURL == "" {
			return errors.New("store redis_url is empty")
		}
	default:
		return fmt.Errorf("unknown store backend: %s", c.StoreConfig.Backend)
	}

	if c.CycleConfig.Workers < 1 {
		return fmt.Errorf("workers must be positive: %d", c.CycleConfig.Workers)
	}

	if _, err := c.HarvestFromDate(); err != nil {
		return err
	}

	return nil
}

// HarvestFromDate returns the configured cycle wide date, nil when unset.
func (c *Config) HarvestFromDate() (*entity.Date, error) {
	if c.CycleConfig.HarvestFromDate == "" {
		return nil, nil
	}

	t, err := fromDateParser.Parse(c.CycleConfig.HarvestFromDate)
	if err != nil {
		return nil, fmt.Errorf("invalid harvest_from_date %q: %w", c.CycleConfig.HarvestFromDate, err)
	}

	d := entity.DateOf(t)

	return &d, nil
}

// Load reads the yaml config at path. Variables from a .env file next to the
// process are loaded first; ${VAR} references in the yaml are expanded.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(defaultEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("cannot load env file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}

	cfg := &Config{}
	cfg.SetDefaults()

	if err := yaml.UnmarshalStrict([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}
