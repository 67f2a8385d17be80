package main

import (
	"bufio"
	"chat-relay/client"
	errs "chat-relay/errors"
	"chat-relay/internal"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/cobra"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const maxInputLine = 1 << 20

// Config defines the client-side environment variables.
type Config struct {
	LogLevel string `env:"LOG_LEVEL,default=WARN"`
	Colours  bool   `env:"CLIENT_COLOURS,default=true"`
}

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run(args []string) (int, error) {
	code := exitOK
	cmd := &cobra.Command{
		Use:           "client <port>",
		Short:         "Chat through the relay listening on 127.0.0.1:<port>",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			code, err = chat(cmd, args[0])
			return err
		},
	}
	cmd.SetArgs(args)

	// A local .env file is optional
	_ = godotenv.Load()

	// Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		if code == exitOK {
			_ = cmd.Usage()
			return exitRuntime, fmt.Errorf("%w: %v", errs.ErrUsage, err)
		}
		return code, err
	}
	return code, nil
}

// chat prints every received body and sends stdin line by line.
// It runs until the server closes the connection or the user quits.
func chat(cmd *cobra.Command, portArg string) (int, error) {
	port, err := internal.ParsePort(portArg)
	if err != nil {
		_ = cmd.Usage()
		return exitRuntime, err
	}
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	color.Enable = config.Colours
	log := logs.GetLoggerFromString(config.LogLevel)
	ctx := cmd.Context()

	address := fmt.Sprintf("127.0.0.1:%d", port)
	c, err := client.Dial(ctx, address, log)
	if err != nil {
		return exitRuntime, err
	}
	// Defer ensures the connection is closed even if the stream fails later.
	defer func() {
		log.Info("Closing connection...")
		_ = c.Close()
	}()
	color.Greenf(">>> Connected to %s (Ctrl+C to quit)\n", address)

	received := make(chan error, 1)
	go func() {
		received <- c.Listen(ctx, func(body []byte) {
			color.Cyan.Print("Server: ")
			fmt.Println(string(body))
		})
	}()

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), maxInputLine)
		for scanner.Scan() {
			if err := c.Send(scanner.Text()); err != nil {
				log.Warn("Send failed", "error", err)
				return
			}
		}
		// Stdin is exhausted, keep printing until the server or the user stops
		log.Info("Input closed, still listening")
	}()

	if err := <-received; err != nil {
		return exitRuntime, err
	}
	color.Yellowln("<<< Disconnected")
	return exitOK, nil
}
