package internal

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPrintConfig(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer

	PrintConfig(&out, Config{
		LogLevel:        "DEBUG",
		WriteTimeout:    10 * time.Second,
		RestartInterval: 200 * time.Millisecond,
		MetricsAddr:     "127.0.0.1:9090",
		CensoredWords:   "badger,snake",
		CharReplacement: "#",
	})

	text := out.String()
	req.Contains(text, "LOG_LEVEL")
	req.Contains(text, "DEBUG")
	req.Contains(text, "10s")
	req.Contains(text, "200ms")
	req.Contains(text, "127.0.0.1:9090")
	req.Contains(text, "2 word(s)")
	req.NotContains(text, "badger")
}
