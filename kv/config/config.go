package config

import (
	"os"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
)

// Config holds the engine settings. It is TOML-decodable so binaries can
// load it from a file and override single fields from flags.
type Config struct {
	// Concurrency is the worker pool size. Zero means derive it from the
	// available parallelism at start time.
	Concurrency int `toml:"concurrency" json:"concurrency"`

	// Log related config.
	Log log.Config `toml:"log" json:"log"`
}

func (c *Config) Validate() error {
	if c.Concurrency < 0 {
		return errors.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	return nil
}

func getLogLevel() (logLevel string) {
	logLevel = "info"
	if l := os.Getenv("LOG_LEVEL"); len(l) != 0 {
		logLevel = l
	}
	return
}

func NewDefaultConfig() *Config {
	return &Config{
		Concurrency: 0,
		Log: log.Config{
			Level: getLogLevel(),
		},
	}
}
