// cmd/dircrawl/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/law-makers/dircrawl/internal/cli"
)

func main() {
	// The first signal cancels the crawl gracefully, a second one kills the process
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()

	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
