// Command gptrader is the local data plane CLI.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/pri-23-03/Gptrader/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
