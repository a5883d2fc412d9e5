// Command slox runs, checks, and formats slox programs and hosts the REPL.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/slox-lang/slox/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.Main(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
