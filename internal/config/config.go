// Package config loads the service configuration from environment variables.
package config

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/nkapur/syncbridge/internal/region"
)

// Config is the full runtime configuration for syncd.
type Config struct {
	// Region this instance is bound to; must be a member of Regions.
	Region  region.Region
	Regions region.Pair

	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string

	KafkaBroker string
	ClientID    string
	GroupID     string

	HTTPAddr string

	// JWTSecret guards the stats API when non-empty.
	JWTSecret string

	// Production enables TLS to the sink (Render PG convention).
	Production bool
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Load reads configuration from the environment. REGION is required and must
// belong to the configured pair; everything else has a usable default.
func Load() (*Config, error) {
	regions, err := region.ParsePair(env("REGIONS", "india,china"))
	if err != nil {
		return nil, fmt.Errorf("invalid REGIONS: %w", err)
	}

	local := region.Region(os.Getenv("REGION"))
	if local == "" {
		return nil, fmt.Errorf("REGION is required")
	}
	if !regions.Contains(local) {
		return nil, fmt.Errorf("REGION %q is not a member of the configured pair %v", local, regions)
	}

	cfg := &Config{
		Region:      local,
		Regions:     regions,
		DBHost:      env("DB_HOST", "localhost"),
		DBPort:      env("DB_PORT", "5432"),
		DBName:      env("DB_NAME", "syncdb"),
		DBUser:      env("DB_USER", "postgres"),
		DBPassword:  os.Getenv("DB_PASSWORD"),
		KafkaBroker: env("KAFKA_BROKER", "localhost:9092"),
		ClientID:    env("CLIENT_ID", fmt.Sprintf("syncd-%s-%s", local, uuid.NewString()[:8])),
		GroupID:     env("GROUP_ID", fmt.Sprintf("%s-sync-group", local)),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		JWTSecret:   os.Getenv("JWT_HS256_SECRET"),
		Production:  os.Getenv("NODE_ENV") == "production",
	}
	return cfg, nil
}

// Peer returns the opposite member of the region pair.
func (c *Config) Peer() region.Region {
	peer, _ := c.Regions.PeerOf(c.Region)
	return peer
}
