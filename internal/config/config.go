// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every setting the server and worker binaries read at startup.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// DatabaseURL selects the Postgres store; empty runs against the in-memory store.
	DatabaseURL string `env:"DATABASE_URL"`

	Redis    RedisConfig
	Token    TokenConfig
	Facebook FacebookConfig
	Game     GameConfig
	Pictures PictureConfig
}

type RedisConfig struct {
	Addr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `env:"REDIS_DB" envDefault:"0"`
	QueueName string `env:"ORGANIZATION_QUEUE" envDefault:"givdo:organizations"`
}

// TokenConfig controls session tokens. A zero ExpireAfter issues tokens without expiry.
type TokenConfig struct {
	ExpireAfter    Lifetime `env:"TOKEN_EXPIRE_TIME" envDefault:"72h"`
	PrivateKeyPath string        `env:"TOKEN_PRIVATE_KEY"`
	PublicKeyPath  string        `env:"TOKEN_PUBLIC_KEY"`
}

type FacebookConfig struct {
	AppID    string        `env:"FACEBOOK_APP_ID"`
	Secret   string        `env:"FACEBOOK_SECRET"`
	GraphURL string        `env:"GRAPH_URL" envDefault:"https://graph.facebook.com/v19.0"`
	Timeout  time.Duration `env:"GRAPH_TIMEOUT" envDefault:"10s"`
}

type GameConfig struct {
	Rounds int `env:"GAME_ROUNDS" envDefault:"5"`
}

// PictureConfig enables mirroring organization pictures to S3 when Bucket is set.
type PictureConfig struct {
	Bucket string `env:"S3_PICTURE_BUCKET"`
	Region string `env:"AWS_REGION" envDefault:"us-east-1"`
	Prefix string `env:"S3_PICTURE_PREFIX" envDefault:"organizations"`

	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

// Lifetime is a duration that also accepts "never", meaning no expiry.
type Lifetime time.Duration

func (l *Lifetime) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" || strings.EqualFold(s, "never") {
		*l = 0
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid lifetime %q: %w", s, err)
	}
	if d < 0 {
		return fmt.Errorf("invalid lifetime %q: must not be negative", s)
	}
	*l = Lifetime(d)
	return nil
}

func (l Lifetime) Duration() time.Duration {
	return time.Duration(l)
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Game.Rounds < 1 {
		return nil, fmt.Errorf("GAME_ROUNDS must be at least 1, got %d", cfg.Game.Rounds)
	}
	return cfg, nil
}

// MirrorPictures reports whether organization pictures are copied to S3.
func (c *Config) MirrorPictures() bool {
	return c.Pictures.Bucket != ""
}

// InMemory reports whether no database is configured.
func (c *Config) InMemory() bool {
	return c.DatabaseURL == ""
}
