package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string           `yaml:"env" env:"ENV" env-default:"local"`
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Auth       AuthConfig       `yaml:"auth"`
	Session    SessionConfig    `yaml:"session"`
	Moderation ModerationConfig `yaml:"moderation"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
}

type HTTPConfig struct {
	Address      string   `yaml:"address" env:"HTTP_ADDRESS" env-default:""`
	AllowOrigins []string `yaml:"allow_origins" env:"HTTP_ALLOW_ORIGINS" env-separator:","`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" env:"DATABASE_DSN"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env-default:"10"`
	MaxOpenConns    int           `yaml:"max_open_conns" env-default:"25"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env-default:"30m"`
}

// RedisConfig with an empty Addr selects the in-process presence cache.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	Issuer    string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"debatehall"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"JWT_TOKEN_TTL" env-default:"24h"`
}

type SessionConfig struct {
	JoiningWindow time.Duration `yaml:"joining_window" env-default:"5m"`
	VotingWindow  time.Duration `yaml:"voting_window" env-default:"30s"`
	PresenceTTL   time.Duration `yaml:"presence_ttl" env-default:"1h"`
	MaxPerSide    int           `yaml:"max_per_side" env-default:"10"`
	ManualStart   bool          `yaml:"manual_start"`
	TypingTimeout time.Duration `yaml:"typing_timeout" env-default:"3s"`
	HistorySize   int           `yaml:"history_size" env-default:"50"`
}

type ModerationConfig struct {
	// AutoMuteWarnings mutes a participant on reaching this many warnings; 0 disables it.
	AutoMuteWarnings int `yaml:"auto_mute_warnings" env-default:"0"`
}

type SchedulerConfig struct {
	Disabled bool          `yaml:"disabled" env:"SCHEDULER_DISABLED"`
	Interval time.Duration `yaml:"interval" env-default:"5s"`
	Workers  int           `yaml:"workers" env-default:"4"`
}

func MustLoad(configPath string) *Config {
	if configPath == "" {
		configPath = fetchConfigPath()
	}
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	cfg.setDefaults()

	return &cfg
}

func fetchConfigPath() string {
	res := os.Getenv("CONFIG_PATH")

	if res == "" {
		res = "config/local.yaml"
	}

	return res
}

func (c *Config) setDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if len(c.HTTP.AllowOrigins) == 0 {
		c.HTTP.AllowOrigins = []string{"http://localhost:3000"}
	}
	if c.Session.MaxPerSide <= 0 {
		c.Session.MaxPerSide = 10
	}
	if c.Session.HistorySize <= 0 {
		c.Session.HistorySize = 50
	}
	if c.Scheduler.Workers <= 0 {
		c.Scheduler.Workers = 1
	}
	if c.Scheduler.Interval <= 0 {
		c.Scheduler.Interval = 5 * time.Second
	}
}
