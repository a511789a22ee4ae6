package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mchl/mairix/cmd/mairix/cmd"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return cmd.ExecuteContext(ctx)
}
