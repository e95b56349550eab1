package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/haguru/eduquest/config"
	"github.com/haguru/eduquest/internal/client"
	"github.com/haguru/eduquest/internal/client/cli"
	"github.com/haguru/eduquest/pkg/zerolog"
)

func main() {
	os.Exit(run())
}

func run() int {
	flags := flag.NewFlagSet("client", flag.ContinueOnError)
	configPath := flags.String("config", config.CLIENT_CONFIG_PATH, "path to the client configuration")
	flags.Usage = func() {
		fmt.Fprintln(flags.Output(), cli.Usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		return 2
	}

	cfg, err := config.LoadClientConfig(*configPath, config.NewValidator())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load client config: %v\n", err)
		return 1
	}

	// logs go to stderr so command output stays clean
	logger := zerolog.NewZerologLoggerWithWriter(cfg.ServiceName, os.Stderr)
	logger.SetLevel(cfg.LogLevel)

	c, err := client.New(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start client: %v\n", err)
		return 1
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// every start resumes the cached session, like a page load
	if _, err := c.Restore(ctx); err != nil {
		logger.Warn("Failed to restore session", "error", err)
	}

	if err := cli.NewApp(c, os.Stdin, os.Stdout).Run(ctx, flags.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
