package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env         string `mapstructure:"GO_ENV"`
	Port        string `mapstructure:"PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`
	FrontendURL string `mapstructure:"FRONTEND_URL"`

	// Redis (leaderboard cache, run-code throttling). Optional.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// Sandbox
	PistonURL      string `mapstructure:"PISTON_URL"`
	SandboxGraceMs int    `mapstructure:"SANDBOX_GRACE_MS"` // slack on top of a question's time limit
	RunCodePerMin  int    `mapstructure:"RUN_CODE_PER_MINUTE"`

	// Background jobs
	SweepIntervalSeconds    int `mapstructure:"SWEEP_INTERVAL_SECONDS"`
	LeaderboardCacheSeconds int `mapstructure:"LEADERBOARD_CACHE_SECONDS"`

	MaintenanceMode bool `mapstructure:"MAINTENANCE_MODE"`
}

var AppConfig = defaults()

func defaults() *Config {
	return &Config{
		Env:                     "development",
		Port:                    "8080",
		PistonURL:               "https://emkc.org/api/v2/piston/execute",
		SandboxGraceMs:          2000,
		RunCodePerMin:           30,
		SweepIntervalSeconds:    15,
		LeaderboardCacheSeconds: 10,
	}
}

func LoadConfig() {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Unmarshal only sees keys viper knows about, so register every field.
	d := defaults()
	viper.SetDefault("GO_ENV", d.Env)
	viper.SetDefault("PORT", d.Port)
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("FRONTEND_URL", "")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("PISTON_URL", d.PistonURL)
	viper.SetDefault("SANDBOX_GRACE_MS", d.SandboxGraceMs)
	viper.SetDefault("RUN_CODE_PER_MINUTE", d.RunCodePerMin)
	viper.SetDefault("SWEEP_INTERVAL_SECONDS", d.SweepIntervalSeconds)
	viper.SetDefault("LEADERBOARD_CACHE_SECONDS", d.LeaderboardCacheSeconds)
	viper.SetDefault("MAINTENANCE_MODE", false)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}
	AppConfig = cfg
}

func (c *Config) SandboxGrace() time.Duration {
	return time.Duration(c.SandboxGraceMs) * time.Millisecond
}

func (c *Config) SweepInterval() time.Duration {
	if c.SweepIntervalSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c *Config) LeaderboardTTL() time.Duration {
	return time.Duration(c.LeaderboardCacheSeconds) * time.Second
}
