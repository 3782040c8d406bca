package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Olympus-chain/autocompose/internal/cmd"
)

// Version information (will be set during build)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := cmd.Execute(ctx, &cmd.App{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Build: cmd.BuildInfo{
			Version:   Version,
			Commit:    Commit,
			BuildDate: BuildDate,
		},
	}, os.Args[1:])

	stop()
	os.Exit(code)
}
