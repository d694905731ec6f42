package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/taxatag/taxatag-cli/internal/adapters/driving/cli"
)

func main() {
	// fang wraps the command tree with styled help, completions and
	// signal-aware context cancellation.
	if err := fang.Execute(
		context.Background(),
		cli.RootCmd(),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
