package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/good-news-everyone/discount-monitoring/internal/cli/commands"
	"github.com/good-news-everyone/discount-monitoring/internal/config"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), commands.FormatGlobalUsage())
		fmt.Fprintln(flag.CommandLine.Output(), "\nFlags:")
		flag.PrintDefaults()
	}

	// Load unified config (env + flags)
	cfg := config.NewConfig()

	if cfg.Version {
		printVersion()
		return
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "dmctl: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// dispatcher
	exitCode := commands.Dispatch(ctx, cfg, flag.Args())
	if exitCode == 0 {
		return
	}
	os.Exit(exitCode)
}

func printVersion() {
	fmt.Printf("dmctl\nVersion: %s\nBuild date: %s\n", version, buildDate)
}
