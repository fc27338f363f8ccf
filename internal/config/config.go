// Package config loads the relay's environment-driven configuration.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the relay daemon configuration.
type Config struct {
	Env string

	// HostWSURL is the editor host's websocket event endpoint. When set,
	// the relay consumes events directly from the host.
	HostWSURL string

	// NATSURL enables the NATS transport as an alternative event source.
	NATSURL string

	// StateDir is where batch progress records are stored.
	StateDir string

	// BlobConnectionString and BlobContainer switch state persistence to
	// blob storage when both are set.
	BlobConnectionString string
	BlobContainer        string

	// TriggerDelay is the queue trigger delay.
	TriggerDelay time.Duration

	// OTLPEndpoint enables tracing when non-empty.
	OTLPEndpoint string
}

// Load reads configuration from the environment, honoring a local .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	stateDir := strings.TrimSpace(os.Getenv("TEXTBATCH_STATE_DIR"))
	if stateDir == "" {
		stateDir = "state"
	}

	delay := 100 * time.Millisecond
	if raw := strings.TrimSpace(os.Getenv("TEXTBATCH_TRIGGER_DELAY_MS")); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms >= 0 {
			delay = time.Duration(ms) * time.Millisecond
		}
	}

	return &Config{
		Env:                  env,
		HostWSURL:            strings.TrimSpace(os.Getenv("TEXTBATCH_HOST_WS")),
		NATSURL:              strings.TrimSpace(os.Getenv("TEXTBATCH_NATS_URL")),
		StateDir:             stateDir,
		BlobConnectionString: strings.TrimSpace(os.Getenv("TEXTBATCH_BLOB_CONNECTION_STRING")),
		BlobContainer:        strings.TrimSpace(os.Getenv("TEXTBATCH_BLOB_CONTAINER")),
		TriggerDelay:         delay,
		OTLPEndpoint:         strings.TrimSpace(os.Getenv("TEXTBATCH_OTLP_ENDPOINT")),
	}, nil
}
