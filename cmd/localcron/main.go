package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"localcron/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, nil, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}
