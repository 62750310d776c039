/*
Package config loads server configuration from the environment
(cleanenv), with an optional YAML file via CONFIG_PATH.

Wallet thresholds live here rather than in code: the grace and blocked
boundaries are academy policy, not engine fact.
*/
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env     string `yaml:"env" env:"APP_ENV" env-default:"local"`
	Addr    string `yaml:"addr" env:"ADDR" env-default:":8080"`
	DBPath  string `yaml:"db_path" env:"DB_PATH" env-default:"academy.db"`
	Wallet  Wallet `yaml:"wallet"`
	Timeout HTTP   `yaml:"http"`
}

// Wallet configures the access-tier boundaries. A student is blocked at
// balance <= BlockedMax and in grace at balance <= GraceMax.
type Wallet struct {
	GraceMax   int `yaml:"grace_max" env:"WALLET_GRACE_MAX" env-default:"2"`
	BlockedMax int `yaml:"blocked_max" env:"WALLET_BLOCKED_MAX" env-default:"0"`
}

type HTTP struct {
	Read     time.Duration `yaml:"read" env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	Write    time.Duration `yaml:"write" env:"HTTP_WRITE_TIMEOUT" env-default:"15s"`
	Idle     time.Duration `yaml:"idle" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	Shutdown time.Duration `yaml:"shutdown" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"30s"`
}

// MustLoad reads configuration or exits. If CONFIG_PATH points to a YAML
// file it is read first; environment variables override either way.
func MustLoad() *Config {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if _, err := os.Stat(path); err != nil {
			log.Fatalf("Config file does not exist: %s", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			log.Fatalf("Failed to read config file: %v", err)
		}
		return &cfg
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("Failed to read environment: %v", err)
	}
	return &cfg
}
