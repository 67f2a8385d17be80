package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = validator.New()

// Config holds the server tunables. Every variable is optional,
// an empty environment gives the plain broadcast server.
type Config struct {
	LogLevel        string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT,default=0s" validate:"gte=0"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT,default=10s" validate:"gte=0"`
	MaxLineLength   int           `env:"MAX_LINE_LENGTH,default=65536" validate:"gte=0"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	StatsInterval   time.Duration `env:"STATS_INTERVAL,default=0s" validate:"gte=0"`
	MetricsAddr     string        `env:"METRICS_ADDR" validate:"omitempty,hostname_port"`
	CensoredWords   string        `env:"CENSORED_WORDS"`
	CensoredDir     string        `env:"CENSORED_DIR"`
	CharReplacement string        `env:"CHARACTER_REPLACEMENT,default=*"`
}

// LoadConfig reads and validates the configuration from the process environment.
func LoadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	config.LogLevel = strings.ToUpper(strings.TrimSpace(config.LogLevel))
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := CharacterRune(c.CharReplacement); err != nil {
		return err
	}
	return nil
}

// Words splits CENSORED_WORDS on commas, blanks are skipped.
func (c Config) Words() []string {
	words := lo.Map(strings.Split(c.CensoredWords, ","), func(word string, _ int) string {
		return strings.TrimSpace(word)
	})
	return lo.Compact(words)
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}

// ParsePort validates the positional port argument.
func ParsePort(arg string) (int, error) {
	var port int
	if _, err := fmt.Sscanf(arg, "%d", &port); err != nil || fmt.Sprint(port) != arg {
		return 0, fmt.Errorf("invalid port %q", arg)
	}
	if err := validate.Var(port, "min=1,max=65535"); err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", arg, err)
	}
	return port, nil
}
