package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/matheuscscp/fairshare/services/secrets"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type (
	// Config ...
	Config struct {
		LogLevel string   `yaml:"logLevel" env:"LOG_LEVEL"`
		Server   Server   `yaml:"server"`
		Database Database `yaml:"database"`
		OpenAI   OpenAI   `yaml:"openAI"`
		JWT      JWT      `yaml:"jwt"`
		Telegram Telegram `yaml:"telegram"`
		PubSub   PubSub   `yaml:"pubSub"`
		Images   Images   `yaml:"images"`
	}

	// Server ...
	Server struct {
		Addr    string `yaml:"addr" env:"ADDR"`
		BaseURL string `yaml:"baseURL" env:"BASE_URL"`
		// MaxImageBytes caps uploaded receipt photos.
		MaxImageBytes int64 `yaml:"maxImageBytes" env:"MAX_IMAGE_BYTES"`
	}

	// Database ...
	Database struct {
		Driver string `yaml:"driver" env:"DATABASE_DRIVER"`
		URL    string `yaml:"url" env:"DATABASE_URL"`
	}

	// OpenAI ...
	OpenAI struct {
		Token         string `yaml:"token" env:"OPENAI_TOKEN"`
		TokenSecretID string `yaml:"tokenSecretID" env:"OPENAI_TOKEN_SECRET_ID"`
		Model         string `yaml:"model" env:"OPENAI_MODEL"`
		MaxTokens     int    `yaml:"maxTokens" env:"OPENAI_MAX_TOKENS"`
	}

	// JWT ...
	JWT struct {
		Secret   string        `yaml:"secret" env:"JWT_SECRET"`
		SecretID string        `yaml:"secretID" env:"JWT_SECRET_ID"`
		TTL      time.Duration `yaml:"ttl" env:"JWT_TTL"`

		// Key is the resolved signing key.
		Key []byte `yaml:"-"`
	}

	// Telegram ...
	Telegram struct {
		Token  string `yaml:"token" env:"TELEGRAM_TOKEN"`
		ChatID int64  `yaml:"chatID" env:"TELEGRAM_CHAT_ID"`
	}

	// PubSub ...
	PubSub struct {
		ProjectID string `yaml:"projectID" env:"PUBSUB_PROJECT_ID"`
		TopicID   string `yaml:"topicID" env:"PUBSUB_TOPIC_ID"`
	}

	// Images ...
	Images struct {
		Bucket string `yaml:"bucket" env:"IMAGES_BUCKET"`
	}
)

const (
	// ConfFileEnv ...
	ConfFileEnv = "CONF_FILE"

	defaultConfFile = "config.yml"
)

// Default returns the configuration used when nothing is set.
func Default() *Config {
	conf := &Config{}
	conf.LogLevel = "info"
	conf.Server.Addr = ":8080"
	conf.Server.BaseURL = "http://localhost:8080"
	conf.Server.MaxImageBytes = 10 << 20
	conf.Database.Driver = "sqlite"
	conf.Database.URL = "fairshare.db"
	conf.OpenAI.Model = "gpt-4o"
	conf.OpenAI.MaxTokens = 1500
	conf.JWT.TTL = 30 * 24 * time.Hour
	return conf
}

// Load reads the YAML file named by CONF_FILE (default config.yml) over the
// defaults, then applies environment variables on top. A missing default
// file is not an error.
func Load() (*Config, error) {
	confFile := os.Getenv(ConfFileEnv)
	explicit := confFile != ""
	if !explicit {
		confFile = defaultConfFile
	}
	conf := Default()
	b, err := os.ReadFile(confFile)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, conf); err != nil {
			return nil, fmt.Errorf("error unmarshaling config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		logrus.Debugf("config file '%s' not found, using defaults and environment", confFile)
	default:
		return nil, fmt.Errorf("error reading config file '%s': %w", confFile, err)
	}
	if err := env.Parse(conf); err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}
	return conf, nil
}

// ResolveSecrets fills the OpenAI token and the JWT key from Secret Manager
// when secret IDs are configured. Without any JWT secret a random key is
// generated, which invalidates tokens on restart.
func (c *Config) ResolveSecrets(ctx context.Context, svc secrets.Service) error {
	if c.OpenAI.TokenSecretID != "" {
		token, err := svc.Read(ctx, c.OpenAI.TokenSecretID)
		if err != nil {
			return fmt.Errorf("error reading openai token secret: %w", err)
		}
		c.OpenAI.Token = token
	}

	switch {
	case c.JWT.SecretID != "":
		key, err := svc.ReadBinary(ctx, c.JWT.SecretID)
		if err != nil {
			return fmt.Errorf("error reading jwt secret: %w", err)
		}
		c.JWT.Key = key
	case c.JWT.Secret != "":
		c.JWT.Key = []byte(c.JWT.Secret)
	default:
		secret, err := secrets.Generate()
		if err != nil {
			return fmt.Errorf("error generating jwt secret: %w", err)
		}
		logrus.Warn("no jwt secret configured, tokens will not survive a restart")
		c.JWT.Key = []byte(secret)
	}
	return nil
}

// NeedsSecretManager tells whether any secret must be fetched remotely.
func (c *Config) NeedsSecretManager() bool {
	return c.OpenAI.TokenSecretID != "" || c.JWT.SecretID != ""
}
