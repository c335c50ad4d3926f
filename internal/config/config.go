// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const Prefix = "DOODLE"

type Config struct {
	Addr  string `envconfig:"ADDR" default:":8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	// Base URL join links and QR codes point at.
	PublicURL string `envconfig:"PUBLIC_URL" default:"http://localhost:3000"`

	RoundSeconds        int `envconfig:"ROUND_SECONDS" default:"30"`
	IntermissionSeconds int `envconfig:"INTERMISSION_SECONDS" default:"3"`

	// Per-connection buffer of outgoing events. A connection that falls
	// this far behind is dropped.
	OutboxSize int `envconfig:"OUTBOX_SIZE" default:"64"`

	// Allowed websocket origins, e.g. "localhost:*". Empty means same-origin only.
	OriginPatterns []string `envconfig:"ORIGIN_PATTERNS"`

	// Results go to postgres when set, memory otherwise.
	DatabaseURL      string `envconfig:"DATABASE_URL"`
	ResultsCacheSize int    `envconfig:"RESULTS_CACHE_SIZE" default:"256"`

	// A room nobody joins within this window is discarded.
	EmptyRoomTimeout time.Duration `envconfig:"EMPTY_ROOM_TIMEOUT" default:"30s"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Load reads an optional .env file (missing files are fine) and then the
// process environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var c Config
	if err := envconfig.Process(Prefix, &c); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.New("config: ADDR is empty")
	case c.RoundSeconds < 1:
		return fmt.Errorf("config: ROUND_SECONDS must be positive, got %d", c.RoundSeconds)
	case c.IntermissionSeconds < 0:
		return fmt.Errorf("config: INTERMISSION_SECONDS must not be negative, got %d", c.IntermissionSeconds)
	case c.OutboxSize < 1:
		return fmt.Errorf("config: OUTBOX_SIZE must be positive, got %d", c.OutboxSize)
	case c.ResultsCacheSize < 1:
		return fmt.Errorf("config: RESULTS_CACHE_SIZE must be positive, got %d", c.ResultsCacheSize)
	case c.EmptyRoomTimeout <= 0:
		return fmt.Errorf("config: EMPTY_ROOM_TIMEOUT must be positive, got %s", c.EmptyRoomTimeout)
	}
	u, err := url.Parse(c.PublicURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: PUBLIC_URL %q is not an absolute URL", c.PublicURL)
	}
	return nil
}
