package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// E2E_RECEIVE_TIMEOUT bounds every wait for a broadcast
	ReceiveTimeout time.Duration `envconfig:"E2E_RECEIVE_TIMEOUT" default:"1s"`
	// E2E_SILENCE_TIMEOUT is how long a client must stay silent to count as "received nothing"
	SilenceTimeout time.Duration `envconfig:"E2E_SILENCE_TIMEOUT" default:"150ms"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"DEBUG"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
