// Package config loads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every knob the binaries read. All variables share the
// CALIBTRACK_ prefix.
type Config struct {
	// APIEndpoint points a client at a hosted server. Empty means the
	// client falls back to its local mock backend.
	APIEndpoint string `envconfig:"API_URL"`

	// DataFile backs the local mock and the file-backed server store.
	DataFile string `envconfig:"DATA_FILE" default:"calibtrack.json"`

	// DatabaseURL switches the server to Postgres when set.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	HTTPPort string        `envconfig:"HTTP_PORT" default:"8080"`
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	// KafkaBrokers enables audit publishing when non-empty.
	KafkaBrokers string `envconfig:"KAFKA_BROKERS"`
	AuditTopic   string `envconfig:"AUDIT_TOPIC" default:"calibtrack.order-mutations"`
	AuditGroup   string `envconfig:"AUDIT_GROUP" default:"calibtrack-audit-monitor"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads the environment into a Config. A .env file in the working
// directory is applied first when present; a missing file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("calibtrack", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
