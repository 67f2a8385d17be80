package main

import (
	errs "chat-relay/errors"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/session"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/cobra"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run parses the command line and serves until SIGINT or SIGTERM.
// A missing or invalid port prints the usage and exits with 1.
func run(args []string) (int, error) {
	code := exitOK
	cmd := &cobra.Command{
		Use:           "server <port>",
		Short:         "Relay every line a client sends to all the other connected clients",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			code, err = serve(cmd, args[0])
			return err
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the settings read from the environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := internal.LoadConfig()
			if err != nil {
				code = exitConfig
				return err
			}
			internal.PrintConfig(cmd.OutOrStdout(), config)
			return nil
		},
	})
	cmd.SetArgs(args)

	// A local .env file is optional
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		if code == exitOK {
			// Rejected by cobra before RunE
			_ = cmd.Usage()
			return exitRuntime, fmt.Errorf("%w: %v", errs.ErrUsage, err)
		}
		return code, err
	}
	return code, nil
}

func serve(cmd *cobra.Command, portArg string) (int, error) {
	// 1. Arguments, Configuration & Logger
	port, err := internal.ParsePort(portArg)
	if err != nil {
		_ = cmd.Usage()
		return exitRuntime, err
	}
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, err
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	censoredWords := config.Words()
	if config.CensoredDir != "" {
		data, err := moderation.LoadWords(os.DirFS(config.CensoredDir), ".")
		if err != nil {
			return exitConfig, fmt.Errorf("failed to load censored words from %s: %w", config.CensoredDir, err)
		}
		log.Info(fmt.Sprintf("%d censored files loaded [%s]",
			len(data.Languages), strings.Join(data.Languages, ",")))
		censoredWords = append(censoredWords, data.Words...)
	}

	// 2. Bind before anything starts, a busy port is fatal
	address := fmt.Sprintf("0.0.0.0:%d", port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	// 3. Setup Supervision & Orchestration
	sup := workers.NewSupervisor(log, config.RestartInterval)
	orchestrator, err := runtime.NewOrchestrator(log, sup, runtime.Options{
		Session: session.Config{
			ReadTimeout:   config.ReadTimeout,
			WriteTimeout:  config.WriteTimeout,
			MaxLineLength: config.MaxLineLength,
		},
		StatsInterval:   config.StatsInterval,
		MetricsAddr:     config.MetricsAddr,
		CensoredWords:   censoredWords,
		CharReplacement: charReplacement,
	})
	if err != nil {
		_ = listener.Close()
		return exitConfig, err
	}

	// 4. Serve until the context is canceled
	log.Info("Starting relay server", "address", address, "at", time.Now().UTC())
	if err := orchestrator.Serve(cmd.Context(), listener); err != nil {
		return exitRuntime, err
	}
	log.Info("Program stopped cleanly")
	return exitOK, nil
}
