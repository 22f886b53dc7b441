package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Snapshot store drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		CORSOrigins []string `yaml:"corsOrigins"`
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
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Quiz struct {
		TTL     string `yaml:"ttl"`
		Catalog string `yaml:"catalog"`
	} `yaml:"quiz"`
	Snapshot struct {
		// Driver selects the snapshot store; empty picks redis, then postgres, then memory.
		Driver string `yaml:"driver"`
		TTL    string `yaml:"ttl"`
	} `yaml:"snapshot"`
	Session struct {
		// TickInterval is the real time between countdown ticks. Every tick
		// removes one second of remaining time, so anything but 1s makes the
		// quiz clock run faster or slower than the wall clock.
		TickInterval  string `yaml:"tickInterval"`
		SweepSchedule string `yaml:"sweepSchedule"`
		Retention     string `yaml:"retention"`
	} `yaml:"session"`
}

// Load reads YAML config from path and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides file values with REDIS_ADDR, REDIS_DB, POSTGRES_URL,
// SQLITE_PATH, QUIZ_CATALOG and SNAPSHOT_DRIVER when set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		c.Postgres.URL = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.SQLite.Path = v
	}
	if v := os.Getenv("QUIZ_CATALOG"); v != "" {
		c.Quiz.Catalog = v
	}
	if v := os.Getenv("SNAPSHOT_DRIVER"); v != "" {
		c.Snapshot.Driver = v
	}
}

// SnapshotDriver resolves the configured driver.
func (c Config) SnapshotDriver() string {
	if c.Snapshot.Driver != "" {
		return c.Snapshot.Driver
	}
	switch {
	case c.Redis.Addr != "":
		return DriverRedis
	case c.Postgres.URL != "":
		return DriverPostgres
	default:
		return DriverMemory
	}
}

// TickInterval returns the countdown interval and whether it differs from one
// second, i.e. whether the quiz clock is scaled.
func (c Config) TickInterval() (time.Duration, bool) {
	d := TTLDuration(c.Session.TickInterval, time.Second)
	if d <= 0 {
		d = time.Second
	}
	return d, d != time.Second
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
