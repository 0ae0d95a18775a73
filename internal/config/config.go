package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Contest struct {
		Timezone        string `yaml:"timezone"`
		LockDuration    string `yaml:"lock_duration"`
		StoreTimeout    string `yaml:"store_timeout"`
		CacheTTL        string `yaml:"cache_ttl"`
		SelfRegister    *bool  `yaml:"self_register"`
		ViewInterval    string `yaml:"view_interval"`
		DefaultDuration string `yaml:"default_duration"`
		SessionTTL      string `yaml:"session_ttl"`
	} `yaml:"contest"`
	Admin struct {
		Token string `yaml:"token"`
	} `yaml:"admin"`
	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`
}

// Load reads YAML config from path, then applies .env and environment overrides.
// A missing config file is not an error; the defaults and environment apply.
func Load(path string) (Config, error) {
	cfg := Config{}
	// .env is optional
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Postgres.URL, "POSTGRES_URL")
	setString(&cfg.Admin.Token, "ADMIN_TOKEN")
	setString(&cfg.Contest.Timezone, "CONTEST_TIMEZONE")
	setString(&cfg.Contest.DefaultDuration, "CONTEST_DEFAULT_DURATION")
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	if v, ok := os.LookupEnv("CONTEST_SELF_REGISTER"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Contest.SelfRegister = &b
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// SelfRegister reports whether unknown user ids are registered on join. Defaults to true.
func (c Config) SelfRegister() bool {
	if c.Contest.SelfRegister == nil {
		return true
	}
	return *c.Contest.SelfRegister
}

// Location loads the contest timezone, falling back to fallback when unset.
func (c Config) Location(fallback string) (*time.Location, error) {
	name := c.Contest.Timezone
	if name == "" {
		name = fallback
	}
	return time.LoadLocation(name)
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
