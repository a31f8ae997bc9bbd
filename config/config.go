package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spacesedan/redditmcp/internal/clients"
	"github.com/spacesedan/redditmcp/internal/clients/kafka_client"
)

var ErrMissingCredentials = errors.New("REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET must be set")

type Config struct {
	Reddit   clients.Credentials
	AuthURL  string
	APIURL   string
	LogLevel string

	MinInterval time.Duration
	TokenMargin time.Duration
	HTTPTimeout time.Duration

	Valkey clients.ValkeyConfig
	Kafka  kafka_client.KafkaConfig
}

// Load builds a Config from the process environment. Call LoadEnv first to
// pull in a .env file.
func Load() (Config, error) {
	cfg := Config{
		Reddit: clients.Credentials{
			ClientID:     os.Getenv("REDDIT_CLIENT_ID"),
			ClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
			UserAgent:    getEnv("REDDIT_USER_AGENT", clients.USER_AGENT),
		},
		AuthURL:  getEnv("REDDIT_AUTH_URL", clients.REDDIT_AUTH_URL),
		APIURL:   getEnv("REDDIT_API_URL", clients.REDDIT_API_URL),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Valkey: clients.ValkeyConfig{
			Address:  os.Getenv("VALKEY_INIT_ADDRESS"),
			Password: os.Getenv("VALKEY_PASSWORD"),
		},
		Kafka: kafka_client.KafkaConfig{
			Broker: os.Getenv("KAFKA_BROKER"),
			Topic:  getEnv("KAFKA_TOPIC_RAW_CONTENT", kafka_client.KAFKA_TOPIC_RAW_CONTENT),
		},
	}

	if cfg.Reddit.ClientID == "" || cfg.Reddit.ClientSecret == "" {
		return Config{}, ErrMissingCredentials
	}

	var err error
	if cfg.MinInterval, err = getDuration("REDDIT_MIN_INTERVAL", clients.DEFAULT_MIN_INTERVAL); err != nil {
		return Config{}, err
	}
	if cfg.TokenMargin, err = getDuration("REDDIT_TOKEN_MARGIN", clients.DEFAULT_TOKEN_MARGIN); err != nil {
		return Config{}, err
	}
	if cfg.HTTPTimeout, err = getDuration("REDDIT_HTTP_TIMEOUT", clients.DEFAULT_HTTP_TIMEOUT); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("VALKEY_TLS"); v != "" {
		if cfg.Valkey.UseTLS, err = strconv.ParseBool(v); err != nil {
			return Config{}, fmt.Errorf("VALKEY_TLS: %w", err)
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", key, v)
	}
	return d, nil
}
